// Package config loads the mudra configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/source"
)

const (
	// DefaultBaseDir is the per-user data directory under $HOME.
	DefaultBaseDir = ".mudra"
	// DefaultConfigFile is the configuration file name inside DefaultBaseDir.
	DefaultConfigFile = "config.yaml"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the service configuration.
type Config struct {
	Server  ServerConfig    `yaml:"server"`
	Engine  EngineConfig    `yaml:"engine"`
	Plugins PluginConfig    `yaml:"plugins"`
	Log     LogConfig       `yaml:"log"`
	Sources []source.Config `yaml:"sources,omitempty"`

	// Database is the SQLite file holding gestures, actions and the
	// recognition log.
	Database string `yaml:"database"`

	// GestureFiles are YAML gesture libraries loaded at startup. Their
	// definitions replace stored gestures of the same name.
	GestureFiles []string `yaml:"gesture_files,omitempty"`

	// Retention is how long recognition log entries are kept. Zero keeps
	// them forever.
	Retention time.Duration `yaml:"retention,omitempty"`

	// Tray shows the system tray icon when serving.
	Tray bool `yaml:"tray,omitempty"`

	path string
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir,omitempty"`
}

// EngineConfig configures the gesture engine.
type EngineConfig struct {
	// Mode is "single" or "multi".
	Mode string `yaml:"mode"`
	// Timeout is the default number of frames a partially matched gesture
	// may wait for its next segment. Zero disables abandonment.
	Timeout int `yaml:"timeout"`
	// Builtin registers the bundled gestures.
	Builtin bool `yaml:"builtin"`
}

// PluginConfig configures action plugins.
type PluginConfig struct {
	Dir     string        `yaml:"dir"`
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	base := BaseDir()
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Engine: EngineConfig{Mode: "single", Timeout: 60, Builtin: true},
		Plugins: PluginConfig{
			Dir:     filepath.Join(base, "plugins"),
			Timeout: 5 * time.Second,
		},
		Log:       LogConfig{Level: "info", Format: "text"},
		Database:  filepath.Join(base, "mudra.db"),
		Retention: 30 * 24 * time.Hour,
	}
}

// BaseDir returns ~/.mudra, or .mudra when the home directory is unknown.
func BaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultBaseDir
	}
	return filepath.Join(home, DefaultBaseDir)
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(BaseDir(), DefaultConfigFile)
}

// Load reads the configuration at path over the defaults. An empty path uses
// DefaultPath. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Save writes the configuration to its path, creating the directory.
func (c *Config) Save() error {
	if c.path == "" {
		c.path = DefaultPath()
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if _, ok := gesture.ParseMode(c.Engine.Mode); !ok {
		return fmt.Errorf("%w: engine.mode %q (want single or multi)", ErrInvalidConfig, c.Engine.Mode)
	}
	if c.Engine.Timeout < 0 {
		return fmt.Errorf("%w: engine.timeout must not be negative", ErrInvalidConfig)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for i, s := range c.Sources {
		if s.Kind == "" {
			return fmt.Errorf("%w: sources[%d] has no kind", ErrInvalidConfig, i)
		}
	}
	return nil
}

// EngineOptions converts the engine section.
func (c *Config) EngineOptions(logger *slog.Logger) gesture.Options {
	mode, _ := gesture.ParseMode(c.Engine.Mode)
	return gesture.Options{Mode: mode, Timeout: c.Engine.Timeout, Logger: logger}
}

func (c *Config) expandPaths() {
	c.Database = ExpandHome(c.Database)
	c.Plugins.Dir = ExpandHome(c.Plugins.Dir)
	c.Server.StaticDir = ExpandHome(c.Server.StaticDir)
	for i, f := range c.GestureFiles {
		c.GestureFiles[i] = ExpandHome(f)
	}
	for i := range c.Sources {
		c.Sources[i].Path = ExpandHome(c.Sources[i].Path)
		c.Sources[i].Script = ExpandHome(c.Sources[i].Script)
	}
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// SlogLevel parses Level. The empty string is info.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// NewLogger builds the process logger. verbose forces debug level.
func (l LogConfig) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
