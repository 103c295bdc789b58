// Package logger builds the application's slog.Logger from environment
// configuration. Production environments get JSON output for log shipping,
// everything else gets human-readable text at debug level.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Config is loaded from the environment by pkg/config.
type Config struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Format      string `env:"LOG_FORMAT" envDefault:"json"`
	Environment string `env:"APP_ENV" envDefault:"development"`
}

// Option adjusts logger construction.
type Option func(*settings)

type settings struct {
	level  slog.Level
	json   bool
	output io.Writer
	attrs  []slog.Attr
}

// WithLevel overrides the minimum level.
func WithLevel(l slog.Level) Option {
	return func(s *settings) { s.level = l }
}

// WithTextFormat switches to the human-readable handler.
func WithTextFormat() Option {
	return func(s *settings) { s.json = false }
}

// WithOutput redirects log output, nil writers are ignored.
func WithOutput(w io.Writer) Option {
	return func(s *settings) {
		if w != nil {
			s.output = w
		}
	}
}

// WithAttr attaches static attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(s *settings) { s.attrs = append(s.attrs, attrs...) }
}

// New builds a logger for the given service name and config, applying any
// extra options on top.
func New(service string, cfg Config, opts ...Option) *slog.Logger {
	s := settings{
		level:  parseLevel(cfg.Level),
		json:   cfg.Format != "text",
		output: os.Stdout,
	}
	if cfg.Environment == "development" {
		s.level = slog.LevelDebug
		s.json = false
	}
	for _, opt := range opts {
		opt(&s)
	}

	handlerOpts := &slog.HandlerOptions{Level: s.level}
	var handler slog.Handler
	if s.json {
		handler = slog.NewJSONHandler(s.output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(s.output, handlerOpts)
	}

	attrs := append([]slog.Attr{
		slog.String("service", service),
		slog.String("env", cfg.Environment),
	}, s.attrs...)

	return slog.New(handler.WithAttrs(attrs))
}

func parseLevel(raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
