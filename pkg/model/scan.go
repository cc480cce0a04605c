package model

import "time"

// SkipReason says why a file contributed no pairs.
type SkipReason string

const (
	SkipParse  SkipReason = "parse"  // source did not parse
	SkipRead   SkipReason = "read"   // file or directory could not be read
	SkipBinary SkipReason = "binary" // content is not text
)

// SkippedFile is a file left out of a scan.
type SkippedFile struct {
	Path   string     `json:"path"`
	Reason SkipReason `json:"reason"`
	Err    error      `json:"-"`
}

// ScanResult is the outcome of scanning one codebase.
type ScanResult struct {
	Root     string        `json:"root"`
	Pairs    []ImportPair  `json:"pairs"`
	Files    int           `json:"files"`  // matched source files
	Parsed   int           `json:"parsed"` // files that contributed (possibly zero) pairs
	Cached   int           `json:"cached"` // parsed files served from the parse cache
	Bytes    int64         `json:"bytes"`  // source bytes read
	Skipped  []SkippedFile `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// SkippedBy counts skipped files with the given reason.
func (r *ScanResult) SkippedBy(reason SkipReason) int {
	n := 0
	for _, s := range r.Skipped {
		if s.Reason == reason {
			n++
		}
	}
	return n
}
