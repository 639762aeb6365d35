// Package config loads server settings from defaults, a YAML file and
// command-line flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// EnvConfigFile names a config file used when --config is not given.
const EnvConfigFile = "XLSM_MCP_CONFIG"

// Flag names shared by the command line and ApplyFlags.
const (
	FlagLogLevel       = "log-level"
	FlagLogFile        = "log-file"
	FlagNoConsoleLog   = "no-console-log"
	FlagLogMaxSize     = "log-max-size"
	FlagLogMaxBackups  = "log-max-backups"
	FlagConfig         = "config"
	defaultMaxSizeMB   = 10
	defaultMaxBackups  = 5
	defaultLogLevel    = "info"
	defaultLogDirName  = ".xlsm-mcp"
	defaultLogFileName = "xlsm-mcp.log"
)

// Config holds the server settings.
type Config struct {
	LogLevel      string `yaml:"log_level"`
	LogFile       string `yaml:"log_file"`
	NoConsoleLog  bool   `yaml:"no_console_log"`
	LogMaxSize    int    `yaml:"log_max_size"`
	LogMaxBackups int    `yaml:"log_max_backups"`
}

// Default returns the built-in settings. The log file lives under the user's
// home directory, or the working directory when that is unknown.
func Default() Config {
	dir := filepath.Join(defaultLogDirName, "logs")
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, dir)
	}
	return Config{
		LogLevel:      defaultLogLevel,
		LogFile:       filepath.Join(dir, defaultLogFileName),
		LogMaxSize:    defaultMaxSizeMB,
		LogMaxBackups: defaultMaxBackups,
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path falls back to $XLSM_MCP_CONFIG; with neither set the defaults are
// returned. A named file that does not exist is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// RegisterFlags adds the config flags to fs with the built-in defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(FlagConfig, "", "YAML config file (env: "+EnvConfigFile+")")
	fs.String(FlagLogLevel, d.LogLevel, "log level: debug, info, warning, error, critical")
	fs.String(FlagLogFile, d.LogFile, "log file path; empty disables file logging")
	fs.Bool(FlagNoConsoleLog, false, "do not log to stderr")
	fs.Int(FlagLogMaxSize, d.LogMaxSize, "log file size in MB before rotation")
	fs.Int(FlagLogMaxBackups, d.LogMaxBackups, "rotated log files to keep")
}

// ApplyFlags overrides cfg with every flag the user set explicitly.
func (cfg *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case FlagLogLevel:
			cfg.LogLevel, err = fs.GetString(f.Name)
		case FlagLogFile:
			cfg.LogFile, err = fs.GetString(f.Name)
		case FlagNoConsoleLog:
			cfg.NoConsoleLog, err = fs.GetBool(f.Name)
		case FlagLogMaxSize:
			cfg.LogMaxSize, err = fs.GetInt(f.Name)
		case FlagLogMaxBackups:
			cfg.LogMaxBackups, err = fs.GetInt(f.Name)
		}
	})
	if err != nil {
		return err
	}
	return cfg.Validate()
}

// Validate checks the rotation settings.
func (cfg Config) Validate() error {
	if cfg.LogMaxSize <= 0 {
		return errors.New("log_max_size must be positive")
	}
	if cfg.LogMaxBackups < 0 {
		return errors.New("log_max_backups must not be negative")
	}
	return nil
}
