package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvConfigFile, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected log level info, got %s", cfg.LogLevel)
	}
	if cfg.LogMaxSize != 10 || cfg.LogMaxBackups != 5 {
		t.Errorf("Expected rotation 10MB/5, got %dMB/%d", cfg.LogMaxSize, cfg.LogMaxBackups)
	}
	if filepath.Base(cfg.LogFile) != "xlsm-mcp.log" {
		t.Errorf("Expected default log file name, got %s", cfg.LogFile)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	content := "log_level: debug\nno_console_log: true\nlog_max_backups: 2\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("setup config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.LogLevel)
	}
	if !cfg.NoConsoleLog {
		t.Error("Expected no_console_log to be true")
	}
	if cfg.LogMaxBackups != 2 {
		t.Errorf("Expected 2 backups, got %d", cfg.LogMaxBackups)
	}
	if cfg.LogMaxSize != 10 {
		t.Errorf("Expected default max size to survive, got %d", cfg.LogMaxSize)
	}
}

func TestLoad_EnvNamesFile(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "env.yaml")
	if err := os.WriteFile(path, []byte("log_level: error\n"), 0o600); err != nil {
		t.Fatalf("setup config: %v", err)
	}
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("Expected log level error, got %s", cfg.LogLevel)
	}
}

func TestLoad_Errors(t *testing.T) {
	tmp := t.TempDir()
	bad := filepath.Join(tmp, "bad.yaml")
	if err := os.WriteFile(bad, []byte("log_max_size: [1, 2]\n"), 0o600); err != nil {
		t.Fatalf("setup config: %v", err)
	}
	invalid := filepath.Join(tmp, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("log_max_size: 0\n"), 0o600); err != nil {
		t.Fatalf("setup config: %v", err)
	}

	for _, path := range []string{filepath.Join(tmp, "missing.yaml"), bad, invalid} {
		if _, err := Load(path); err == nil {
			t.Errorf("Expected error loading %s", filepath.Base(path))
		}
	}
}

func TestApplyFlags_OnlyChangedFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--log-level=warning", "--log-max-size=3"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg := Config{LogLevel: "debug", LogFile: "from-file.log", LogMaxSize: 20, LogMaxBackups: 1}
	if err := cfg.ApplyFlags(fs); err != nil {
		t.Fatalf("ApplyFlags failed: %v", err)
	}
	if cfg.LogLevel != "warning" {
		t.Errorf("Expected log level warning, got %s", cfg.LogLevel)
	}
	if cfg.LogMaxSize != 3 {
		t.Errorf("Expected max size 3, got %d", cfg.LogMaxSize)
	}
	if cfg.LogFile != "from-file.log" {
		t.Errorf("Expected unchanged log file, got %s", cfg.LogFile)
	}
	if cfg.LogMaxBackups != 1 {
		t.Errorf("Expected unchanged backups, got %d", cfg.LogMaxBackups)
	}
}
