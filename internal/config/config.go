package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zeebo/errs"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/api"
	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/header"
	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/stitch"
)

// Error is the error class for configuration problems.
var Error = errs.Class("config")

// Config holds the settings of a combine deployment.
type Config struct {
	DataDir          string `yaml:"data_dir" hcl:"data_dir,optional"`
	Manifest         string `yaml:"manifest" hcl:"manifest,optional"`
	ManifestSelector string `yaml:"manifest_selector" hcl:"manifest_selector,optional"`
	OutputDir        string `yaml:"output_dir" hcl:"output_dir,optional"`
	DBPath           string `yaml:"db_path" hcl:"db_path,optional"`
	MissingValue     string `yaml:"missing_value" hcl:"missing_value,optional"`
	TimestampStart   string `yaml:"timestamp_start" hcl:"timestamp_start,optional"`
	TimestampEnd     string `yaml:"timestamp_end" hcl:"timestamp_end,optional"`
	ColumnPattern    string `yaml:"column_pattern" hcl:"column_pattern,optional"`
	Workers          int    `yaml:"workers" hcl:"workers,optional"`
	HeaderCacheSize  int    `yaml:"header_cache_size" hcl:"header_cache_size,optional"`
	LogLevel         string `yaml:"log_level" hcl:"log_level,optional"`
}

// DefaultConfig returns the settings used when no file is provided.
func DefaultConfig() Config {
	return Config{
		DataDir:          ".",
		Manifest:         "manifest.json",
		ManifestSelector: api.DefaultSelector,
		OutputDir:        "combined",
		DBPath:           filepath.Join(".dist", "outcomes.db"),
		MissingValue:     stitch.DefaultMissingValue,
		TimestampStart:   "TIMESTAMP_START",
		TimestampEnd:     "TIMESTAMP_END",
		ColumnPattern:    header.DefaultPattern,
		Workers:          4,
		HeaderCacheSize:  header.DefaultCacheSize,
		LogLevel:         "info",
	}
}

// Load reads configuration from path. Files ending in .hcl are decoded as
// HCL, anything else as YAML. Missing files fall back to defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	cfg := DefaultConfig()
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
			return Config{}, Error.New("parse %s: %v", path, err)
		}
	} else {
		content, err := os.ReadFile(path)
		if err != nil {
			return Config{}, Error.New("read config: %v", err)
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return Config{}, Error.New("parse %s: %v", path, err)
		}
	}

	cfg.backfill()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) backfill() {
	def := DefaultConfig()
	fill := func(v *string, d string) {
		if strings.TrimSpace(*v) == "" {
			*v = d
		}
	}
	fill(&c.DataDir, def.DataDir)
	fill(&c.Manifest, def.Manifest)
	fill(&c.ManifestSelector, def.ManifestSelector)
	fill(&c.OutputDir, def.OutputDir)
	fill(&c.MissingValue, def.MissingValue)
	fill(&c.TimestampStart, def.TimestampStart)
	fill(&c.TimestampEnd, def.TimestampEnd)
	fill(&c.ColumnPattern, def.ColumnPattern)
	fill(&c.LogLevel, def.LogLevel)
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.HeaderCacheSize <= 0 {
		c.HeaderCacheSize = def.HeaderCacheSize
	}
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	if c.TimestampStart == c.TimestampEnd {
		return Error.New("timestamp_start and timestamp_end are both %q", c.TimestampStart)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := header.NewPattern(c.ColumnPattern); err != nil {
		return Error.Wrap(err)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return lvl, Error.New("log_level: %v", err)
	}
	return lvl, nil
}

// ManifestPath returns the manifest location inside DataDir.
func (c Config) ManifestPath() string {
	if filepath.IsAbs(c.Manifest) {
		return c.Manifest
	}
	return filepath.Join(c.DataDir, c.Manifest)
}
