package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	// DefaultConfigFile is read from the working directory when present.
	DefaultConfigFile = "pyimport-graph.toml"
	// EnvPrefix prefixes every environment override, e.g. PYIMPORT_GRAPH_THRESHOLD=8.
	EnvPrefix = "PYIMPORT_GRAPH_"
	// DefaultThreshold is the out-degree above which a node is a hub.
	DefaultThreshold = 5
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all configuration for the application
type Config struct {
	ConfigFile       string   `koanf:"config"`
	Root             string   `koanf:"root"`
	Format           string   `koanf:"format"`
	Output           string   `koanf:"output"`
	Title            string   `koanf:"title"`
	Threshold        int      `koanf:"threshold"`
	Extensions       []string `koanf:"extensions"`
	Exclude          []string `koanf:"exclude"`
	SkipVendor       bool     `koanf:"skip-vendor"`
	FailOnUnreadable bool     `koanf:"fail-on-unreadable"`
	Port             int      `koanf:"port"`
	Watch            bool     `koanf:"watch"`
	OpenBrowser      bool     `koanf:"open"`
	CacheSize        int      `koanf:"cache-size"`
	Verbosity        string   `koanf:"verbosity"`
	VerboseCnt       int      `koanf:"verbose"`
	LogJSON          bool     `koanf:"log-json"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"config":             "",
		"root":               ".",
		"format":             "html",
		"output":             "",
		"title":              "Python import graph",
		"threshold":          DefaultThreshold,
		"extensions":         []string{".py"},
		"exclude":            []string{".git"},
		"skip-vendor":        false,
		"fail-on-unreadable": false,
		"port":               8080,
		"watch":              false,
		"open":               false,
		"cache-size":         4096,
		"verbosity":          "",
		"verbose":            0,
		"log-json":           false,
	}
}

// Default returns the configuration with only defaults applied.
func Default() *Config {
	cfg, err := Load(nil)
	if err != nil {
		// defaults are static; a failure here is a programming error
		panic(err)
	}
	return cfg
}

// RegisterFlags defines the flags understood by Load on f.
func RegisterFlags(f *pflag.FlagSet) {
	d := defaults()
	f.String("config", "", "Config file (.toml, .yaml, .yml or .json)")
	f.StringP("format", "f", d["format"].(string), "Output format: html, svg, dot, json or text")
	f.StringP("output", "o", "", "Output file ('-' or empty for stdout)")
	f.String("title", d["title"].(string), "Title shown on rendered graphs")
	f.IntP("threshold", "t", DefaultThreshold, "Out-degree above which a node is highlighted as a hub")
	f.StringSlice("extensions", []string{".py"}, "Source file extensions to scan")
	f.StringSlice("exclude", []string{".git"}, "Directory name patterns to skip")
	f.Bool("skip-vendor", false, "Skip vendored directories (site-packages, node_modules, ...)")
	f.Bool("fail-on-unreadable", false, "Abort the scan when a source file cannot be read")
	f.Int("cache-size", 4096, "Parse cache entries kept between watch re-scans")
	f.String("verbosity", "", "Log level: trace, debug, info, warn or error")
	f.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	f.Bool("log-json", false, "Log as JSON")
}

// RegisterServeFlags defines the flags that only apply to the web viewer.
func RegisterServeFlags(f *pflag.FlagSet) {
	f.IntP("port", "p", 8080, "Port for the web viewer")
	f.BoolP("watch", "w", false, "Re-scan when source files change")
	f.Bool("open", false, "Open the viewer in a browser")
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env (.env included) > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file: explicit --config must exist, the default one is optional
	path := DefaultConfigFile
	explicit := false
	if f != nil {
		if p, err := f.GetString("config"); err == nil && p != "" {
			path, explicit = p, true
		}
	}
	if p := os.Getenv(EnvPrefix + "CONFIG"); p != "" && !explicit {
		path, explicit = p, true
	}
	if err := loadFile(k, path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// 3. Environment Variables, with .env filling in anything not already set
	_ = godotenv.Load()
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", "-")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return fmt.Errorf("unsupported config file type %q", filepath.Ext(path))
	}
	return k.Load(file.Provider(path), parser)
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.Threshold < 0 {
		return fmt.Errorf("%w: threshold must be >= 0, got %d", ErrInvalid, c.Threshold)
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("%w: at least one source extension is required", ErrInvalid)
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("%w: extension %q must look like \".py\"", ErrInvalid, ext)
		}
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.Port)
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("%w: cache-size must be positive", ErrInvalid)
	}
	return nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
