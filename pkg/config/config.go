// Package config loads pkgscout configuration from a TOML file.
//
// The file lives at os.UserConfigDir()/pkgscout/config.toml by default and
// declares the package sources to search plus the cache backend. A missing
// file is not an error: Load falls back to Default().
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

var (
	// ErrInvalid indicates the configuration failed validation.
	ErrInvalid = errors.New("invalid config")
)

// Source kinds accepted in [[source]] blocks.
const (
	KindNPM       = "npm"
	KindCrates    = "crates"
	KindPackagist = "packagist"
)

// Cache backends accepted in the [cache] block.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Source describes one package source, in priority order of appearance.
type Source struct {
	Name     string `toml:"name"`
	Kind     string `toml:"kind"`
	URL      string `toml:"url"`
	Disabled bool   `toml:"disabled"`
}

// Cache describes the response cache backend.
type Cache struct {
	Backend   string   `toml:"backend"`
	TTL       duration `toml:"ttl"`
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	RedisDB   int      `toml:"redis_db"`
}

// Config is the root configuration document.
type Config struct {
	Sources []Source `toml:"source"`
	Cache   Cache    `toml:"cache"`
}

// duration wraps time.Duration so TTLs can be written as "15m" in TOML.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the built-in configuration: npm, crates.io and packagist
// enabled in that priority order, with a file cache.
func Default() *Config {
	return &Config{
		Sources: []Source{
			{Name: "npmjs.org", Kind: KindNPM},
			{Name: "crates.io", Kind: KindCrates},
			{Name: "packagist.org", Kind: KindPackagist},
		},
		Cache: Cache{
			Backend: CacheFile,
			TTL:     duration{15 * time.Minute},
		},
	}
}

// DefaultPath returns the standard config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "pkgscout", "config.toml"), nil
}

// Load reads the config file at path. An empty path means DefaultPath().
// A missing file yields Default() without error; a present but malformed
// or invalid file is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if len(cfg.Sources) == 0 {
		cfg.Sources = Default().Sources
	}
	for i := range cfg.Sources {
		if cfg.Sources[i].Name == "" {
			cfg.Sources[i].Name = defaultSourceName(cfg.Sources[i].Kind)
		}
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = CacheFile
	}
	if cfg.Cache.TTL.Duration == 0 {
		cfg.Cache.TTL = duration{15 * time.Minute}
	}
}

func defaultSourceName(kind string) string {
	switch kind {
	case KindNPM:
		return "npmjs.org"
	case KindCrates:
		return "crates.io"
	case KindPackagist:
		return "packagist.org"
	}
	return kind
}

// Validate checks source kinds, duplicate names and the cache backend.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		switch s.Kind {
		case KindNPM, KindCrates, KindPackagist:
		default:
			return fmt.Errorf("%w: unknown source kind %q", ErrInvalid, s.Kind)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: duplicate source name %q", ErrInvalid, s.Name)
		}
		seen[s.Name] = true
	}

	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("%w: redis backend requires redis_addr", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalid, c.Cache.Backend)
	}
	return nil
}

// Enabled returns the sources that are not disabled, preserving order.
func (c *Config) Enabled() []Source {
	out := make([]Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		if !s.Disabled {
			out = append(out, s)
		}
	}
	return out
}
