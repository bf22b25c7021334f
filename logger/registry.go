package logger

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// registry holds named loggers and per-component level overrides.
var registry = &loggerRegistry{
	loggers: make(map[string]*Logger),
	levels:  make(map[string]zerolog.Level),
}

type loggerRegistry struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
	levels  map[string]zerolog.Level
}

// Register stores a named logger in the registry.
func Register(name string, l *Logger) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.loggers[name] = l
}

// Get retrieves a named logger. If the name is not registered it returns the
// global logger tagged with the requested component name.
func Get(name string) *Logger {
	registry.mu.RLock()
	l, ok := registry.loggers[name]
	registry.mu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// SetComponentLevels replaces the per-component levels applied by
// WithComponent. A component can only be made quieter than the global
// level, since the global level filters first.
func SetComponentLevels(levels map[string]string) error {
	parsed := make(map[string]zerolog.Level, len(levels))
	for name, raw := range levels {
		lvl, err := zerolog.ParseLevel(raw)
		if err != nil || raw == "" {
			return fmt.Errorf("logging.levels.%s: unknown level %q", name, raw)
		}
		parsed[name] = lvl
	}
	registry.mu.Lock()
	registry.levels = parsed
	registry.mu.Unlock()
	return nil
}

func componentLevel(name string) (zerolog.Level, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	lvl, ok := registry.levels[name]
	return lvl, ok
}
