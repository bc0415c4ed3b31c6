// Package log configures the process-wide slog handler and hands out
// component-tagged loggers so every record names the subsystem it came from.
package log

import (
	"log/slog"
	"os"
)

// Setup installs a text handler on stdout at the given level as the process
// default. Called once per binary before any component logs.
func Setup(level slog.Level) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))
}

// ForComponent returns a logger tagging every record with the component
// name. Components are the constants in fields.go.
func ForComponent(name string) *slog.Logger {
	return slog.Default().With(FieldComponent, name)
}
