// Package logging builds the module-scoped logger shared by every package.
// Callers depend on waLog.Logger only; zerolog is the sink.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	waLog "go.mau.fi/whatsmeow/util/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const consoleTimeFormat = "02-Jan-06 15:04:05"

const (
	defaultMaxSizeMB  = 5
	defaultMaxBackups = 10
)

// Options controls where log lines go. The file rotates once it reaches
// MaxSizeMB, keeping MaxBackups old files.
type Options struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	Console    io.Writer
}

// New returns a logger writing human-readable lines to the console and JSON
// lines to opts.File when set. The returned closer releases the file.
func New(opts Options) (waLog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: consoleTimeFormat}}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		if opts.MaxSizeMB <= 0 {
			opts.MaxSizeMB = defaultMaxSizeMB
		}
		if opts.MaxBackups <= 0 {
			opts.MaxBackups = defaultMaxBackups
		}
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		writers = append(writers, file)
		closer = file
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return waLog.Zerolog(zl), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
