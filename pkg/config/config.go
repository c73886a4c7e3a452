// Package config loads and saves the helveg configuration file.
//
// The file lives at $XDG_CONFIG_HOME/helveg/config.toml (falling back to
// ~/.config/helveg/config.toml). Missing keys keep their defaults, so a file
// only needs to mention what it changes:
//
//	[layout]
//	gravity = 0.5
//	barnes_hut_optimize = true
//
//	[supervisor]
//	stop_timeout = "2s"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/cafour/helveg-sub001/pkg/cache"
	herrors "github.com/cafour/helveg-sub001/pkg/errors"
	"github.com/cafour/helveg-sub001/pkg/forceatlas2"
	"github.com/cafour/helveg-sub001/pkg/layout"
)

// Config holds the helveg configuration.
type Config struct {
	Layout     forceatlas2.Settings `toml:"layout"`
	Supervisor SupervisorConfig     `toml:"supervisor"`
	Graph      GraphConfig          `toml:"graph"`
	Cache      CacheConfig          `toml:"cache"`
	Server     ServerConfig         `toml:"server"`
}

// SupervisorConfig controls the layout supervisor.
type SupervisorConfig struct {
	ReportInterval   int      `toml:"report_interval"`
	StopTimeout      Duration `toml:"stop_timeout"`
	SingleIterations int      `toml:"single_iterations"`
}

// GraphConfig controls how input graphs are interpreted.
type GraphConfig struct {
	MainRelation string   `toml:"main_relation"`
	Relations    []string `toml:"relations"` // empty = all relations
}

// CacheConfig selects the position cache backend.
type CacheConfig struct {
	Backend   string   `toml:"backend"` // "file", "redis", "none"
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	Prefix    string   `toml:"prefix"`
	TTL       Duration `toml:"ttl"`
}

// ServerConfig controls `helveg serve`.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Duration is a time.Duration written as a string such as "1s".
type Duration struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Layout: forceatlas2.DefaultSettings(),
		Supervisor: SupervisorConfig{
			ReportInterval:   layout.DefaultReportInterval,
			StopTimeout:      Duration{layout.DefaultStopTimeout},
			SingleIterations: layout.DefaultSingleIterations,
		},
		Graph: GraphConfig{MainRelation: "declares"},
		Cache: CacheConfig{
			Backend: cache.BackendFile,
			TTL:     Duration{7 * 24 * time.Hour},
		},
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
	}
}

// Dir returns the helveg config directory path.
func Dir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "helveg")
}

// Path returns the default config file path.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the config file at path, or at Path if path is empty. A missing
// file yields the defaults; a malformed or invalid one is an INVALID_CONFIG
// error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, herrors.Wrap(herrors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, herrors.New(herrors.ErrCodeInvalidConfig, "%s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return nil, herrors.Wrap(herrors.ErrCodeInvalidConfig, err, "%s", path)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if err := c.Layout.Validate(); err != nil {
		return err
	}
	if c.Supervisor.ReportInterval < 0 {
		return fmt.Errorf("supervisor.report_interval must be >= 0")
	}
	if c.Supervisor.StopTimeout.Duration < 0 {
		return fmt.Errorf("supervisor.stop_timeout must be >= 0")
	}
	if c.Supervisor.SingleIterations < 0 {
		return fmt.Errorf("supervisor.single_iterations must be >= 0")
	}
	switch c.Cache.Backend {
	case "", cache.BackendFile, cache.BackendNone:
	case cache.BackendRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend %q: want file, redis or none", c.Cache.Backend)
	}
	return nil
}

// Save writes cfg to path, or to Path if path is empty.
func Save(path string, cfg *Config) error {
	if path == "" {
		path = Path()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// EnsureExists creates the config file with defaults if it doesn't exist.
// It reports whether a file was written.
func EnsureExists(path string) (bool, error) {
	if path == "" {
		path = Path()
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	return true, Save(path, Default())
}

// LayoutOptions converts the layout and supervisor sections into supervisor
// options.
func (c *Config) LayoutOptions(logger *log.Logger) layout.Options {
	return layout.Options{
		Settings:         c.Layout,
		Relations:        c.Graph.Relations,
		ReportInterval:   c.Supervisor.ReportInterval,
		StopTimeout:      c.Supervisor.StopTimeout.Duration,
		SingleIterations: c.Supervisor.SingleIterations,
		Logger:           logger,
	}
}

// CacheOptions converts the cache section into backend options.
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend:   c.Cache.Backend,
		Dir:       c.Cache.Dir,
		RedisAddr: c.Cache.RedisAddr,
		Prefix:    c.Cache.Prefix,
	}
}
