package resilience

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// BreakerState is the state of a circuit breaker
type BreakerState int32

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned while a breaker rejects calls
var ErrCircuitOpen = errors.New("circuit breaker is open")

// IsOpen reports whether err came from an open breaker
func IsOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// BreakerConfig configures a circuit breaker
type BreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold"` // consecutive failures before opening
	RecoveryTimeout  time.Duration `json:"recovery_timeout"`  // wait before a trial call
	SuccessThreshold int           `json:"success_threshold"` // trial successes needed to close
}

// CircuitBreaker stops calling a collaborator that keeps failing
type CircuitBreaker struct {
	mu          sync.Mutex
	config      BreakerConfig
	state       BreakerState
	failures    int
	successes   int
	nextAttempt time.Time
	now         func() time.Time
}

// NewCircuitBreaker creates a breaker, filling zero config fields with defaults
func NewCircuitBreaker(config BreakerConfig) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout == 0 {
		config.RecoveryTimeout = 30 * time.Second
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 1
	}
	return &CircuitBreaker{config: config, now: time.Now}
}

// Call runs fn unless the breaker is open
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}

	if err := fn(); err != nil {
		cb.onFailure()
		return err
	}
	cb.onSuccess()
	return nil
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return true
	}
	if cb.now().Before(cb.nextAttempt) {
		return false
	}
	cb.state = StateHalfOpen
	cb.successes = 0
	return true
}

func (cb *CircuitBreaker) onFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.successes = 0
	if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
		cb.state = StateOpen
		cb.nextAttempt = cb.now().Add(cb.config.RecoveryTimeout)
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = StateClosed
		}
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the consecutive failure count
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset closes the breaker
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
}

// BreakerRegistry holds one breaker per collaborator
type BreakerRegistry struct {
	mu       sync.Mutex
	config   BreakerConfig
	breakers map[string]*CircuitBreaker
}

// NewBreakerRegistry creates a registry that builds breakers from config
func NewBreakerRegistry(config BreakerConfig) *BreakerRegistry {
	return &BreakerRegistry{config: config, breakers: make(map[string]*CircuitBreaker)}
}

// Get returns the breaker for name, creating it on first use
func (r *BreakerRegistry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := NewCircuitBreaker(r.config)
	r.breakers[name] = b
	return b
}

// Stats reports state and failures per breaker
func (r *BreakerRegistry) Stats() map[string]interface{} {
	r.mu.Lock()
	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	r.mu.Unlock()
	sort.Strings(names)

	stats := make(map[string]interface{}, len(names))
	for _, name := range names {
		b := r.Get(name)
		stats[name] = map[string]interface{}{
			"state":    b.State().String(),
			"failures": b.Failures(),
		}
	}
	return stats
}
