package logger

import (
	"log/slog"
	"os"
)

// EnvTestLevel overrides the level of NewTestLogger, e.g.
// TRUESTREAM_TEST_LOG_LEVEL=debug go test ./internal/service/...
const EnvTestLevel = "TRUESTREAM_TEST_LOG_LEVEL"

// NewTestLogger returns a text logger on stdout for tests. Only warnings
// and errors are printed unless EnvTestLevel says otherwise, since the
// pipeline logs every load and state change.
func NewTestLogger() *slog.Logger {
	level := slog.LevelWarn
	if l, ok := ParseLevel(os.Getenv(EnvTestLevel)); ok {
		level = l
	}
	return NewLogger(Config{Level: level, Format: "text", Output: os.Stdout})
}
