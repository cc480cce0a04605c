// Package deps walks a codebase and collects the import pairs of every
// Python source file below it.
package deps

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ritzau/pyimport-graph/pkg/extract"
	"github.com/ritzau/pyimport-graph/pkg/finder"
	"github.com/ritzau/pyimport-graph/pkg/logging"
	"github.com/ritzau/pyimport-graph/pkg/model"
)

var (
	ErrRootNotFound     = errors.New("root does not exist")
	ErrRootNotDirectory = errors.New("root is not a directory")
	// ErrUnreadable wraps a read failure when FailOnUnreadable is set.
	ErrUnreadable = errors.New("unreadable source")
)

// Cache stores the pairs of files that parsed cleanly, keyed by path, size
// and modification time.
type Cache interface {
	Get(key string) ([]model.ImportPair, bool)
	Add(key string, pairs []model.ImportPair)
}

// Client produces the scan result for a root directory.
type Client interface {
	Scan(root string) (*model.ScanResult, error)
}

// ScanOptions configures a Scanner.
type ScanOptions struct {
	Finder finder.Options
	// FailOnUnreadable turns unreadable and binary files into a fatal error
	// instead of a skipped entry. Parse failures are never fatal.
	FailOnUnreadable bool
	Cache            Cache
}

// DefaultScanOptions scans .py files, skipping .git, without a cache.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{Finder: finder.DefaultOptions()}
}

// Scanner is the walker: it finds source files and extracts their pairs.
// A Scanner is not safe for concurrent use.
type Scanner struct {
	opts      ScanOptions
	extractor *extract.Extractor
}

// NewScanner creates a Scanner with its own parser.
func NewScanner(opts ScanOptions) *Scanner {
	return &Scanner{
		opts:      opts,
		extractor: extract.New(),
	}
}

// CheckRoot fails when root is missing or not a directory.
func CheckRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrRootNotFound, root)
		}
		return fmt.Errorf("checking root %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrRootNotDirectory, root)
	}
	return nil
}

// Scan collects the import pairs of every source file under root. Pairs
// appear in walk order, and within a file in first-occurrence order. Files
// that fail to parse are recorded in Skipped and contribute nothing.
func (s *Scanner) Scan(root string) (*model.ScanResult, error) {
	start := time.Now()

	if err := CheckRoot(root); err != nil {
		return nil, err
	}

	res := &model.ScanResult{Root: root}

	finderOpts := s.opts.Finder
	finderOpts.OnError = func(path string, err error) error {
		return s.skip(res, path, model.SkipRead, err)
	}

	files, err := finder.FindSourceFiles(root, finderOpts)
	if err != nil {
		return nil, fmt.Errorf("finding source files: %w", err)
	}
	res.Files = len(files)
	logging.Debug("found source files", "root", root, "count", len(files))

	for _, path := range files {
		if err := s.scanFile(path, res); err != nil {
			return nil, err
		}
	}

	res.Duration = time.Since(start)
	logging.Debug("scan complete",
		"root", root,
		"files", res.Files,
		"parsed", res.Parsed,
		"cached", res.Cached,
		"skipped", len(res.Skipped),
		"pairs", len(res.Pairs),
		"duration", res.Duration)

	return res, nil
}

func (s *Scanner) scanFile(path string, res *model.ScanResult) error {
	info, err := os.Stat(path)
	if err != nil {
		return s.skip(res, path, model.SkipRead, err)
	}

	key := cacheKey(path, info)
	if s.opts.Cache != nil {
		if pairs, ok := s.opts.Cache.Get(key); ok {
			res.Pairs = append(res.Pairs, pairs...)
			res.Parsed++
			res.Cached++
			return nil
		}
	}

	src, err := readSource(path)
	if err != nil {
		reason := model.SkipRead
		if errors.Is(err, ErrBinary) {
			reason = model.SkipBinary
		}
		return s.skip(res, path, reason, err)
	}
	res.Bytes += int64(len(src))

	pairs, err := s.extractor.Parse(path, src)
	if err != nil {
		logging.Debug("skipping unparsable file", "path", path, "error", err)
		res.Skipped = append(res.Skipped, model.SkippedFile{Path: path, Reason: model.SkipParse, Err: err})
		return nil
	}
	logging.Trace("parsed file", "path", path, "imports", len(pairs))

	res.Pairs = append(res.Pairs, pairs...)
	res.Parsed++
	if s.opts.Cache != nil {
		s.opts.Cache.Add(key, pairs)
	}
	return nil
}

// skip records an IO failure, or returns it when the scan must stop.
func (s *Scanner) skip(res *model.ScanResult, path string, reason model.SkipReason, err error) error {
	if s.opts.FailOnUnreadable {
		return fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	logging.Warn("skipping file", "path", path, "reason", string(reason), "error", err)
	res.Skipped = append(res.Skipped, model.SkippedFile{Path: path, Reason: reason, Err: err})
	return nil
}

func cacheKey(path string, info os.FileInfo) string {
	return path + "|" + strconv.FormatInt(info.Size(), 10) + "|" + strconv.FormatInt(info.ModTime().UnixNano(), 10)
}

// ParseAllFiles scans root with default options and returns only the pairs.
func ParseAllFiles(root string) ([]model.ImportPair, error) {
	res, err := NewScanner(DefaultScanOptions()).Scan(root)
	if err != nil {
		return nil, err
	}
	return res.Pairs, nil
}
