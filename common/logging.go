package common

import (
	"log/slog"
	"os"
)

// LoggingOpts configures the process-wide structured logger.
type LoggingOpts struct {
	// Debug enables debug-level messages.
	Debug bool

	// JSON switches the handler to JSON output for log collectors.
	JSON bool

	// Service is added as a "service" attribute to every record.
	Service string

	// Version is added as a "version" attribute to every record.
	Version string
}

// SetupLogger creates a slog logger according to the given options and
// installs it as the default logger.
func SetupLogger(opts *LoggingOpts) *slog.Logger {
	logLevel := slog.LevelInfo
	if opts.Debug {
		logLevel = slog.LevelDebug
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	}

	logger := slog.New(handler)
	if opts.Service != "" {
		logger = logger.With("service", opts.Service)
	}
	if opts.Version != "" {
		logger = logger.With("version", opts.Version)
	}

	slog.SetDefault(logger)
	return logger
}
