// Package log configures a single process-wide zerolog logger and hands
// out component-scoped children, the way ManuGH-xg2g's internal/log does.
package log

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures the knobs the demo CLIs expose for logging.
type Config struct {
	Level string // "debug", "info", "warn", "error"; default "info"
}

var (
	once sync.Once
	base zerolog.Logger
)

// Configure initializes the global logger exactly once; later calls are
// no-ops.
func Configure(cfg Config) {
	once.Do(func() {
		level := zerolog.InfoLevel
		if cfg.Level != "" {
			if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
				level = parsed
			}
		}
		zerolog.SetGlobalLevel(level)
		zerolog.TimeFieldFormat = time.RFC3339

		base = zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = os.Stdout
		})).With().Timestamp().Str("service", "pub-sub-system").Logger()
	})
}

func logger() zerolog.Logger {
	Configure(Config{})
	return base
}

// WithComponent returns a child logger tagged with component, e.g.
// "publisher", "subscriber", "workerpool".
func WithComponent(component string) zerolog.Logger {
	return logger().With().Str("component", component).Logger()
}
