// Package config holds runtime configuration for optimg: defaults, the
// optional optimg.yaml file, .env and OPTIMG_* environment overrides, and
// validation. Command-line flags are applied on top by the cmd package.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no explicit config path is given and it exists.
const DefaultFile = "optimg.yaml"

// DefaultMaxPixels caps width×height of a source image before it is decoded.
// 100 MP decodes to about 400 MB of RGBA.
const DefaultMaxPixels = 100_000_000

// CollisionPolicy decides what happens when two sources map to one output.
type CollisionPolicy string

const (
	CollisionFail      CollisionPolicy = "fail"      // later claimants fail (default)
	CollisionOverwrite CollisionPolicy = "overwrite" // last claimant in sorted order wins
)

// UIMode controls how progress is rendered.
type UIMode string

const (
	UIAuto  UIMode = "auto"  // TUI when stdout is a terminal
	UITUI   UIMode = "tui"   // force the bubbletea progress view
	UIPlain UIMode = "plain" // one line per file
)

type Config struct {
	Source      string          `yaml:"source"`
	Output      string          `yaml:"output"`
	Quality     int             `yaml:"quality"`
	MaxWidth    int             `yaml:"max_width"`
	MaxPixels   int             `yaml:"max_pixels"`
	Formats     []string        `yaml:"formats"`
	Workers     int             `yaml:"workers"`
	FileTimeout time.Duration   `yaml:"file_timeout"`
	OnCollision CollisionPolicy `yaml:"on_collision"`
	Report      string          `yaml:"report"`
	UI          UIMode          `yaml:"ui"`

	Placeholder PlaceholderConfig `yaml:"placeholder"`
	Log         LogConfig         `yaml:"log"`
}

// PlaceholderConfig is the profile used by the placeholder command.
type PlaceholderConfig struct {
	Output   string  `yaml:"output"`
	MaxWidth int     `yaml:"max_width"`
	Quality  int     `yaml:"quality"`
	Blur     float64 `yaml:"blur"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the settings the site's image scripts always used:
// images/ in, images/optimized/ out, quality 80, 1200px wide.
func DefaultConfig() *Config {
	return &Config{
		Source:      "images",
		Output:      "images/optimized",
		Quality:     80,
		MaxWidth:    1200,
		MaxPixels:   DefaultMaxPixels,
		Formats:     []string{".jpg", ".jpeg", ".png"},
		Workers:     runtime.NumCPU(),
		OnCollision: CollisionFail,
		UI:          UIAuto,
		Placeholder: PlaceholderConfig{
			Output:   "images/placeholders",
			MaxWidth: 32,
			Quality:  40,
			Blur:     2,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Loader assembles a Config from defaults, .env, a YAML file and the environment.
type Loader struct {
	useDotEnv bool
	path      string
	lookupEnv func(string) (string, bool)
}

func NewLoader() *Loader {
	return &Loader{useDotEnv: true, lookupEnv: os.LookupEnv}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithFile sets an explicit YAML path; a missing explicit file is an error.
func (l *Loader) WithFile(path string) *Loader {
	l.path = path
	return l
}

// WithEnv overrides environment lookup (tests).
func (l *Loader) WithEnv(lookup func(string) (string, bool)) *Loader {
	if lookup != nil {
		l.lookupEnv = lookup
	}
	return l
}

// Result captures the loaded configuration and the file it came from, if any.
type Result struct {
	Config *Config
	Path   string
}

func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := DefaultConfig()
	res := &Result{Config: cfg}

	path := l.path
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		res.Path = path
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return res, nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := l.lookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := l.lookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", key, v)
		}
		*dst = n
		return nil
	}

	str("OPTIMG_SOURCE", &cfg.Source)
	str("OPTIMG_OUTPUT", &cfg.Output)
	str("OPTIMG_LOG_LEVEL", &cfg.Log.Level)
	str("OPTIMG_LOG_FILE", &cfg.Log.File)
	if err := num("OPTIMG_QUALITY", &cfg.Quality); err != nil {
		return err
	}
	if err := num("OPTIMG_MAX_WIDTH", &cfg.MaxWidth); err != nil {
		return err
	}
	if err := num("OPTIMG_MAX_PIXELS", &cfg.MaxPixels); err != nil {
		return err
	}
	if err := num("OPTIMG_WORKERS", &cfg.Workers); err != nil {
		return err
	}
	if v, ok := l.lookupEnv("OPTIMG_FILE_TIMEOUT"); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("OPTIMG_FILE_TIMEOUT: %w", err)
		}
		cfg.FileTimeout = d
	}
	return nil
}

// Normalize lower-cases extensions, adds missing leading dots and drops
// duplicates. Workers below one fall back to the CPU count.
func (c *Config) Normalize() {
	seen := make(map[string]bool, len(c.Formats))
	formats := c.Formats[:0]
	for _, f := range c.Formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if !strings.HasPrefix(f, ".") {
			f = "." + f
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		formats = append(formats, f)
	}
	c.Formats = formats

	if c.Workers < 1 {
		c.Workers = runtime.NumCPU()
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
}

// Validate checks ranges and enum fields.
func (c *Config) Validate() error {
	if c.Source == "" {
		return errors.New("source directory must not be empty")
	}
	if c.Output == "" {
		return errors.New("output directory must not be empty")
	}
	if c.Quality < 0 || c.Quality > 100 {
		return fmt.Errorf("quality %d out of range [0,100]", c.Quality)
	}
	if c.MaxWidth <= 0 {
		return fmt.Errorf("max width must be positive, got %d", c.MaxWidth)
	}
	if c.MaxPixels <= 0 {
		return fmt.Errorf("max pixels must be positive, got %d", c.MaxPixels)
	}
	if len(c.Formats) == 0 {
		return errors.New("at least one source format is required")
	}
	if c.FileTimeout < 0 {
		return errors.New("file timeout must not be negative")
	}

	switch c.OnCollision {
	case CollisionFail, CollisionOverwrite:
	default:
		return fmt.Errorf("invalid collision policy %q (use 'fail' or 'overwrite')", c.OnCollision)
	}

	switch c.UI {
	case UIAuto, UITUI, UIPlain:
	default:
		return fmt.Errorf("invalid ui mode %q (use 'auto', 'tui' or 'plain')", c.UI)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}

	p := c.Placeholder
	if p.Quality < 0 || p.Quality > 100 {
		return fmt.Errorf("placeholder quality %d out of range [0,100]", p.Quality)
	}
	if p.MaxWidth <= 0 {
		return fmt.Errorf("placeholder max width must be positive, got %d", p.MaxWidth)
	}
	if p.Blur < 0 {
		return errors.New("placeholder blur must not be negative")
	}
	return nil
}
