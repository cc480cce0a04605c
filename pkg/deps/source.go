package deps

import (
	"context"

	"github.com/ritzau/pyimport-graph/pkg/analysis/api"
	"github.com/ritzau/pyimport-graph/pkg/config"
	"github.com/ritzau/pyimport-graph/pkg/finder"
	"github.com/ritzau/pyimport-graph/pkg/logging"
	"github.com/ritzau/pyimport-graph/pkg/model"
)

// ImportsSource implements api.Source for Python import statements.
type ImportsSource struct {
	cache     Cache
	newClient func(ScanOptions) Client
}

// NewImportsSource creates an imports source. cache may be nil.
func NewImportsSource(cache Cache) api.Source {
	return &ImportsSource{
		cache:     cache,
		newClient: func(opts ScanOptions) Client { return NewScanner(opts) },
	}
}

func (s *ImportsSource) Name() string {
	return "PythonImports"
}

// ScanOptionsFromConfig maps configuration onto walker options.
func ScanOptionsFromConfig(cfg *config.Config) ScanOptions {
	return ScanOptions{
		Finder: finder.Options{
			Extensions: cfg.Extensions,
			Exclude:    cfg.Exclude,
			SkipVendor: cfg.SkipVendor,
		},
		FailOnUnreadable: cfg.FailOnUnreadable,
	}
}

func (s *ImportsSource) Run(ctx context.Context, cfg *config.Config) (*model.ScanResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logging.InfoContext(ctx, "starting import scan", "root", cfg.Root)

	opts := ScanOptionsFromConfig(cfg)
	opts.Cache = s.cache

	res, err := s.newClient(opts).Scan(cfg.Root)
	if err != nil {
		return nil, err
	}

	logging.InfoContext(ctx, "import scan complete",
		"files", res.Files,
		"pairs", len(res.Pairs),
		"skipped", len(res.Skipped))
	return res, nil
}
