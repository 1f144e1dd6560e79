// Package config loads the user configuration file and merges it with the
// command line.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/kstost/cokacdir/internal/model"
)

const (
	// LogFormatDefault is the logrus text formatter.
	LogFormatDefault = "default"
	// LogFormatJSON is the logrus JSON formatter.
	LogFormatJSON = "json"

	defaultPath     = "~/.config/cokacdir/config.yaml"
	defaultPageSize = 20
	defaultRefresh  = 2 * time.Second
)

// Config is the application configuration.
type Config struct {
	LeftDir        string
	RightDir       string
	Policy         model.ConflictPolicy
	ProcessRefresh time.Duration
	PageSize       int
	LogFile        string
	LogFormat      string
	Debug          bool
}

// Default returns the configuration used when nothing is configured.
func Default() Config {
	return Config{
		LeftDir:        ".",
		RightDir:       "",
		Policy:         model.ConflictFailFast,
		ProcessRefresh: defaultRefresh,
		PageSize:       defaultPageSize,
		LogFormat:      LogFormatDefault,
	}
}

// DefaultPath returns the default location of the configuration file.
func DefaultPath() string {
	p, err := homedir.Expand(defaultPath)
	if err != nil {
		return ""
	}
	return p
}

// Validate normalises the configuration and rejects bad values.
func (c *Config) Validate() error {
	var err error
	if c.LeftDir == "" {
		c.LeftDir = "."
	}
	if c.LeftDir, err = expand(c.LeftDir); err != nil {
		return fmt.Errorf("left dir: %w", err)
	}
	if c.RightDir == "" {
		c.RightDir = c.LeftDir
	}
	if c.RightDir, err = expand(c.RightDir); err != nil {
		return fmt.Errorf("right dir: %w", err)
	}
	if c.LogFile != "" {
		if c.LogFile, err = expand(c.LogFile); err != nil {
			return fmt.Errorf("log file: %w", err)
		}
	}

	if c.PageSize == 0 {
		c.PageSize = defaultPageSize
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page size must be positive: %w", model.ErrNotValid)
	}
	if c.ProcessRefresh < 0 {
		return fmt.Errorf("process refresh can't be negative: %w", model.ErrNotValid)
	}

	switch c.LogFormat {
	case "":
		c.LogFormat = LogFormatDefault
	case LogFormatDefault, LogFormatJSON:
	default:
		return fmt.Errorf("unknown log format %q: %w", c.LogFormat, model.ErrNotValid)
	}
	return nil
}

func expand(path string) (string, error) {
	p, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}
	return filepath.Abs(p)
}

// file is the YAML shape of the configuration file.
type file struct {
	LeftDir        string `yaml:"left_dir"`
	RightDir       string `yaml:"right_dir"`
	Policy         string `yaml:"conflict_policy"`
	ProcessRefresh string `yaml:"process_refresh"`
	PageSize       int    `yaml:"page_size"`
	LogFile        string `yaml:"log_file"`
	LogFormat      string `yaml:"log_format"`
	Debug          bool   `yaml:"debug"`
}

// YAMLLoader reads configuration files from a filesystem.
type YAMLLoader struct {
	fs fs.FS
}

// NewYAMLLoader returns a loader reading from fsys.
func NewYAMLLoader(fsys fs.FS) *YAMLLoader {
	return &YAMLLoader{fs: fsys}
}

// Load reads path on top of the defaults. A missing file is not an error.
func (l *YAMLLoader) Load(ctx context.Context, path string) (Config, error) {
	cfg := Default()

	data, err := fs.ReadFile(l.fs, path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if ctx.Err() != nil {
		return cfg, ctx.Err()
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return cfg, fmt.Errorf("parsing YAML: %w", err)
	}

	if f.LeftDir != "" {
		cfg.LeftDir = f.LeftDir
	}
	if f.RightDir != "" {
		cfg.RightDir = f.RightDir
	}
	if f.Policy != "" {
		if cfg.Policy, err = model.ParseConflictPolicy(f.Policy); err != nil {
			return cfg, err
		}
	}
	if f.ProcessRefresh != "" {
		if cfg.ProcessRefresh, err = time.ParseDuration(f.ProcessRefresh); err != nil {
			return cfg, fmt.Errorf("process_refresh: %w", err)
		}
	}
	if f.PageSize != 0 {
		cfg.PageSize = f.PageSize
	}
	if f.LogFile != "" {
		cfg.LogFile = f.LogFile
	}
	if f.LogFormat != "" {
		cfg.LogFormat = f.LogFormat
	}
	cfg.Debug = f.Debug

	return cfg, nil
}

// LoadFile reads the configuration file at an absolute or relative path.
// An empty path loads nothing.
func LoadFile(ctx context.Context, path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	abs, err := expand(path)
	if err != nil {
		return Default(), err
	}
	return NewYAMLLoader(os.DirFS(filepath.Dir(abs))).Load(ctx, filepath.Base(abs))
}
