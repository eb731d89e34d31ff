// Package config resolves settings shared by the ruidmap binaries.
//
// Sources are applied in priority order, later ones winning:
//  1. Defaults
//  2. User config file ($XDG_CONFIG_HOME/ruidmap/config.toml)
//  3. Project config file (ruidmap.toml or .ruidmap.toml in the working directory)
//  4. Environment variables (RUIDMAP_*)
//  5. CLI flags
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/tgienger/ruidmap/internal/apperr"
)

const (
	DefaultDataFile  = "roadmap.json"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultAuthor    = "me"
	appName          = "ruidmap"
)

// Config holds resolved settings. An empty LogFile means the binary picks
// its own destination.
type Config struct {
	DataFile  string `toml:"data_file" json:"data_file"`
	LogFile   string `toml:"log_file" json:"log_file"`
	LogLevel  string `toml:"log_level" json:"log_level"`
	LogFormat string `toml:"log_format" json:"log_format"`
	Author    string `toml:"author" json:"author"`
}

// Load resolves the configuration. Flags are registered on fs and parsed
// from args; positional arguments stay available through fs.Args().
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if path := findUserConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", path, err)
		}
	}
	if path := findProjectConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", path, err)
		}
	}

	loadFromEnv(cfg)

	if err := parseFlags(cfg, fs, args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	finalizeConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.DataFile = DefaultDataFile
	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = DefaultLogFormat
	cfg.Author = DefaultAuthor
	if u := os.Getenv("USER"); u != "" {
		cfg.Author = u
	}
}

// loadConfigFile merges the keys present in a TOML file over cfg.
func loadConfigFile(cfg *Config, path string) error {
	_, err := toml.DecodeFile(path, cfg)
	return err
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("RUIDMAP_FILE"); v != "" {
		cfg.DataFile = v
	}
	if v := os.Getenv("RUIDMAP_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("RUIDMAP_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("RUIDMAP_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("RUIDMAP_AUTHOR"); v != "" {
		cfg.Author = v
	}
}

func parseFlags(cfg *Config, fs *flag.FlagSet, args []string) error {
	if fs == nil {
		fs = flag.NewFlagSet(appName, flag.ContinueOnError)
	}
	fs.StringVar(&cfg.DataFile, "file", cfg.DataFile, "Path to the data file")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Log file path")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json, logfmt)")
	fs.StringVar(&cfg.Author, "author", cfg.Author, "Author recorded on new comments")
	return fs.Parse(args)
}

func finalizeConfig(cfg *Config) {
	cfg.DataFile = expandPath(cfg.DataFile)
	cfg.LogFile = expandPath(cfg.LogFile)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.Author = strings.TrimSpace(cfg.Author)
}

// Validate checks the resolved values.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.DataFile, validation.Required),
		validation.Field(&c.LogLevel, validation.Required, validation.In("debug", "info", "warn", "error", "fatal")),
		validation.Field(&c.LogFormat, validation.Required, validation.In("text", "json", "logfmt")),
		validation.Field(&c.Author, validation.Required, validation.RuneLength(1, 100)),
	)
	return apperr.FromRules("invalid configuration", err)
}

// findUserConfigFile returns the user-level config file if it exists.
func findUserConfigFile() string {
	dir := userConfigDir()
	if dir == "" {
		return ""
	}
	path := filepath.Join(dir, appName, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func userConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return dir
}

// findProjectConfigFile returns ruidmap.toml or .ruidmap.toml from the
// working directory.
func findProjectConfigFile() string {
	for _, name := range []string{appName + ".toml", "." + appName + ".toml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// DefaultLogFile is where the terminal UI logs when no log file is set:
// $XDG_STATE_HOME/ruidmap/ruidmap.log, falling back to ~/.local/state.
func DefaultLogFile() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), appName+".log")
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, appName, appName+".log")
}

// expandPath expands environment variables and a leading ~/.
func expandPath(p string) string {
	if p == "" {
		return p
	}
	expanded := os.ExpandEnv(p)
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return expanded
		}
		return filepath.Join(home, strings.TrimPrefix(expanded[1:], "/"))
	}
	return expanded
}
