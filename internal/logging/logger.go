package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/edvin/backupd/internal/config"
)

// NewLogger creates a structured zerolog.Logger writing to stdout with
// observability context fields from the config.
func NewLogger(cfg *config.Config) zerolog.Logger {
	return NewLoggerTo(os.Stdout, cfg)
}

// NewLoggerTo is NewLogger with an explicit destination. Non-empty fields are
// added automatically.
func NewLoggerTo(w io.Writer, cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(w).With().Timestamp()

	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	if cfg.AppVersion != "" {
		ctx = ctx.Str("app_version", cfg.AppVersion)
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		ctx = ctx.Str("host", host)
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
