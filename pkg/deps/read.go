package deps

import (
	"bytes"
	"errors"
	"fmt"
	"os"
)

// ErrBinary marks a file whose content is not text.
var ErrBinary = errors.New("binary content")

// readSource loads one source file. Content with a NUL byte is rejected;
// anything else is returned as-is and left for the parser to judge.
func readSource(path string) ([]byte, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if i := bytes.IndexByte(src, 0); i >= 0 {
		return nil, fmt.Errorf("%w: NUL byte at offset %d", ErrBinary, i)
	}
	return src, nil
}
