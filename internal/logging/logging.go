// Package logging builds the process logger: logrus text output to stderr
// and to a size-rotated file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the logger outputs.
type Options struct {
	Level string
	// File is the log file path. Empty disables file logging.
	File       string
	NoConsole  bool
	MaxSizeMB  int
	MaxBackups int
	// Console overrides stderr, for tests.
	Console io.Writer
}

var (
	once      sync.Once
	logger    *logrus.Logger
	setupErr  error
	rotations *lumberjack.Logger
)

// Setup configures the process logger on first call and returns it on every
// call; later Options are ignored.
func Setup(opts Options) (*logrus.Logger, error) {
	once.Do(func() {
		logger, rotations, setupErr = build(opts)
	})
	return logger, setupErr
}

// Close flushes and closes the log file, if any.
func Close() error {
	if rotations == nil {
		return nil
	}
	return rotations.Close()
}

func build(opts Options) (*logrus.Logger, *lumberjack.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   true,
	})

	var writers []io.Writer
	if !opts.NoConsole {
		console := opts.Console
		if console == nil {
			console = os.Stderr
		}
		writers = append(writers, console)
	}

	var file *lumberjack.Logger
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		writers = append(writers, file)
	}

	switch len(writers) {
	case 0:
		l.SetOutput(io.Discard)
	case 1:
		l.SetOutput(writers[0])
	default:
		l.SetOutput(io.MultiWriter(writers...))
	}
	return l, file, nil
}

// ParseLevel accepts debug, info, warning, error and critical, plus the
// logrus level names. Critical maps to fatal and only filters output.
func ParseLevel(name string) (logrus.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return logrus.InfoLevel, nil
	case "critical":
		return logrus.FatalLevel, nil
	case "warning":
		return logrus.WarnLevel, nil
	}
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q (want debug, info, warning, error or critical)", name)
	}
	return level, nil
}
