package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/gedex/internal/gedcom"
)

// ProjectConfig holds project-level settings loaded from gedex.yml.
type ProjectConfig struct {
	Strict     bool     `yaml:"strict,omitempty"`
	HeaderTag  string   `yaml:"headerTag,omitempty"`
	FatherTags []string `yaml:"fatherTags,omitempty"`
	MotherTags []string `yaml:"motherTags,omitempty"`
	LogLevel   string   `yaml:"logLevel,omitempty"`  // debug, info, warn, error
	LogFormat  string   `yaml:"logFormat,omitempty"` // text or json
	DBPath     string   `yaml:"dbPath,omitempty"`    // Kuzu directory; empty keeps the graph in memory
	MCPAddr    string   `yaml:"mcpAddr,omitempty"`   // HTTP listen address for serve-mcp; empty uses stdio
	CacheSize  int      `yaml:"cacheSize,omitempty"` // parse results kept by the tool server
	Workers    int      `yaml:"workers,omitempty"`   // concurrent parses in batch mode
}

// Defaults applied by Load when a field is left empty.
const (
	DefaultCacheSize = 32
	DefaultWorkers   = 4
)

// Load attempts to read gedex.yml or gedex.yaml from the given directory.
// Returns a default config (not an error) if no config file exists; a
// config file that exists but cannot be read is an error.
func Load(dir string) (*ProjectConfig, error) {
	cfg := &ProjectConfig{}
	for _, name := range []string{"gedex.yml", "gedex.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		break
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ProjectConfig) applyDefaults() {
	if c.CacheSize <= 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
}

// Validate checks the fields that have a closed set of values.
func (c *ProjectConfig) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format: %s", c.LogFormat)
	}
	if c.HeaderTag != "" {
		if _, ok := gedcom.Tokenize(1, "0 "+c.HeaderTag); !ok {
			return fmt.Errorf("header tag %q is not a valid tag", c.HeaderTag)
		}
	}
	return nil
}

// ParserOptions maps the config onto parser options.
func (c *ProjectConfig) ParserOptions(logger *slog.Logger) []gedcom.Option {
	return []gedcom.Option{
		gedcom.WithStrict(c.Strict),
		gedcom.WithHeaderTag(c.HeaderTag),
		gedcom.WithRelationshipTags(c.FatherTags, c.MotherTags),
		gedcom.WithLogger(logger),
	}
}

// NewLogger builds the process logger. verbose forces debug level.
func (c *ProjectConfig) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}

// Default returns the configuration Load produces when no file exists.
func Default() *ProjectConfig {
	cfg := &ProjectConfig{LogLevel: "info", LogFormat: "text"}
	cfg.applyDefaults()
	return cfg
}

// Save writes cfg to gedex.yml in dir.
func Save(dir string, cfg *ProjectConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	path := filepath.Join(dir, "gedex.yml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
