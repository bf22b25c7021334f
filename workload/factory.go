package workload

import (
	"fmt"
	"sync"

	"github.com/tienminhktvn/dataops-project/logger"
)

// ExecutorFactory builds an Executor from runtime-specific config.
type ExecutorFactory func(providerCfg any, log *logger.Logger) (Executor, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]ExecutorFactory)
)

// RegisterFactory makes a runtime available to New. Runtime packages call it
// from init.
func RegisterFactory(name string, f ExecutorFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// New creates the Executor for cfg.Provider.
func New(cfg Config, providerCfg any, log *logger.Logger) (Executor, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Get("workload")
	}

	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("workload: unsupported provider %q (not registered)", cfg.Provider)
	}

	log.Info("initializing container runtime", logger.Fields("provider", cfg.Provider, "container", cfg.Container))
	return f(providerCfg, log)
}
