// Package logging wires a structured arbor logger: a package-level
// singleton set up once at startup, console output by default, level
// driven by config.
package logging

import (
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

var (
	global arbor.ILogger
	mu     sync.RWMutex
)

// Get returns the global logger, falling back to an unconfigured console
// logger if Setup has not run yet.
func Get() arbor.ILogger {
	mu.RLock()
	if global != nil {
		defer mu.RUnlock()
		return global
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		global = arbor.NewLogger().WithConsoleWriter(consoleWriterConfig(""))
		global.Warn().Msg("logging.Setup was not called before first use - falling back to console logger")
	}
	return global
}

// Setup configures the global logger from the resolved level/format and
// stores it for Get to return.
func Setup(level string, timeFormat string) arbor.ILogger {
	if timeFormat == "" {
		timeFormat = "15:04:05.000"
	}

	logger := arbor.NewLogger().
		WithConsoleWriter(consoleWriterConfig(timeFormat)).
		WithLevelFromString(level)

	mu.Lock()
	global = logger
	mu.Unlock()

	return logger
}

func consoleWriterConfig(timeFormat string) models.WriterConfiguration {
	if timeFormat == "" {
		timeFormat = "15:04:05.000"
	}
	return models.WriterConfiguration{
		Type:             models.LogWriterTypeConsole,
		TimeFormat:       timeFormat,
		DisableTimestamp: false,
	}
}

// ForRun returns a logger scoped to a single run for per-run log
// correlation.
func ForRun(runID string) arbor.ILogger {
	return Get().WithContextWriter(runID)
}
