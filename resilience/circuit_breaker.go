package resilience

import (
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned without calling through while the circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	Name string
	// MaxFailures consecutive failures open the circuit.
	MaxFailures int
	// Timeout is how long the circuit stays open before a probe is allowed.
	Timeout          time.Duration
	HalfOpenMaxCalls int
	OnStateChange    func(name string, from, to State)
	// Now replaces time.Now in tests.
	Now func() time.Time
}

// DefaultCircuitBreakerConfig returns defaults for a chat webhook.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxFailures:      5,
		Timeout:          time.Minute,
		HalfOpenMaxCalls: 1,
	}
}

// CircuitBreaker fails fast after repeated failures and lets a single probe
// through once Timeout has passed.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu            sync.Mutex
	state         State
	failures      int
	successes     int
	openedAt      time.Time
	halfOpenCalls int
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig(config.Name)
	if config.MaxFailures <= 0 {
		config.MaxFailures = def.MaxFailures
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &CircuitBreaker{config: config, state: StateClosed}
}

// Execute runs fn through the breaker.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}
	err := fn()
	cb.record(err)
	return err
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.current()
}

// Failures returns the consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset closes the circuit.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
	cb.failures = 0
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.current() {
	case StateClosed:
		return true
	case StateHalfOpen:
		if cb.halfOpenCalls < cb.config.HalfOpenMaxCalls {
			cb.halfOpenCalls++
			return true
		}
	}
	return false
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state := cb.current()
	if err == nil {
		switch state {
		case StateClosed:
			cb.failures = 0
		case StateHalfOpen:
			cb.successes++
			if cb.successes >= cb.config.HalfOpenMaxCalls {
				cb.transition(StateClosed)
			}
		}
		return
	}

	cb.failures++
	if state == StateHalfOpen || cb.failures >= cb.config.MaxFailures {
		cb.openedAt = cb.config.Now()
		cb.transition(StateOpen)
	}
}

// current moves an expired open circuit to half-open. Callers hold mu.
func (cb *CircuitBreaker) current() State {
	if cb.state == StateOpen && cb.config.Now().Sub(cb.openedAt) >= cb.config.Timeout {
		cb.transition(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	cb.halfOpenCalls = 0
	cb.successes = 0
	if to == StateClosed {
		cb.failures = 0
	}
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}
