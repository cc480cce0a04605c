package finder

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/src-d/enry/v2"
)

// Options controls which files FindSourceFiles reports.
type Options struct {
	// Extensions are matched against the end of the file name, e.g. ".py".
	Extensions []string
	// Exclude holds directory-name glob patterns (filepath.Match syntax) to skip.
	Exclude []string
	// SkipVendor skips directories enry classifies as vendored.
	SkipVendor bool
	// OnError handles a walk error below the root. Returning nil skips the
	// offending entry; nil OnError aborts the walk.
	OnError func(path string, err error) error
}

// DefaultOptions scans .py files and skips .git.
func DefaultOptions() Options {
	return Options{
		Extensions: []string{".py"},
		Exclude:    []string{".git"},
	}
}

// FindSourceFiles walks the root directory and returns all files whose name
// carries one of the source extensions, in lexical walk order.
func FindSourceFiles(root string, opts Options) ([]string, error) {
	var sourceFiles []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if opts.OnError == nil || path == root {
				return err
			}
			if herr := opts.OnError(path, err); herr != nil {
				return herr
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && SkipDir(root, path, opts) {
				return filepath.SkipDir
			}
			return nil
		}

		if HasSourceExtension(d.Name(), opts.Extensions) {
			sourceFiles = append(sourceFiles, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	return sourceFiles, nil
}

// HasSourceExtension reports whether name ends with one of exts.
func HasSourceExtension(name string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// SkipDir reports whether the directory at path (below root) is excluded.
func SkipDir(root, path string, opts Options) bool {
	name := filepath.Base(path)
	for _, pattern := range opts.Exclude {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}

	if opts.SkipVendor {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		if enry.IsVendor(filepath.ToSlash(rel) + "/") {
			return true
		}
	}

	return false
}
