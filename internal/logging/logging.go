package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"novafront/config"
)

// Setup points the default slog logger, and with it the std logger, at stdout
// and a rotating log file. The returned closer flushes and closes the file.
func Setup(cfg config.LogSettings) (io.Closer, error) {
	var out io.Writer = os.Stdout
	var rotator *lumberjack.Logger
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, err
		}
		rotator = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotator)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	// std log output is routed through this handler as well.
	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))

	if rotator == nil {
		return nopCloser{}, nil
	}
	return rotator, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
