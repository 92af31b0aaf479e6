package provider

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wardenlabs/defi-sentinel/internal/models"
)

// ErrBreakerOpen is returned when the breaker is rejecting fetches.
var ErrBreakerOpen = errors.New("snapshot provider circuit is open")

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes when the provider circuit opens and recovers.
type BreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold"`
	SuccessThreshold int           `json:"success_threshold"`
	OpenTimeout      time.Duration `json:"open_timeout"`
	ResetTimeout     time.Duration `json:"reset_timeout"`
}

// BreakerStats reports cumulative breaker activity.
type BreakerStats struct {
	TotalFetches      int64     `json:"total_fetches"`
	SuccessfulFetches int64     `json:"successful_fetches"`
	FailedFetches     int64     `json:"failed_fetches"`
	Rejected          int64     `json:"rejected"`
	LastFailureTime   time.Time `json:"last_failure_time"`
	StateChanges      int64     `json:"state_changes"`
}

// ResilientProvider guards an inner provider with a circuit breaker. When
// the upstream keeps failing, the circuit opens and fetches fail fast until
// the open timeout elapses, then a half-open probe decides recovery.
type ResilientProvider struct {
	inner  MarketDataProvider
	config BreakerConfig
	logger *logrus.Logger

	mu              sync.Mutex
	state           breakerState
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	lastStateChange time.Time
	stats           BreakerStats
}

// NewResilientProvider wraps a provider with breaker protection.
func NewResilientProvider(inner MarketDataProvider, config BreakerConfig, logger *logrus.Logger) *ResilientProvider {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 3
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = 60 * time.Second
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 300 * time.Second
	}

	return &ResilientProvider{
		inner:           inner,
		config:          config,
		logger:          logger,
		state:           breakerClosed,
		lastStateChange: time.Now(),
	}
}

func (p *ResilientProvider) Name() string {
	return p.inner.Name() + "+breaker"
}

// FetchSnapshot delegates to the inner provider when the circuit allows it.
func (p *ResilientProvider) FetchSnapshot(ctx context.Context, symbol string) (models.MarketSnapshot, error) {
	p.mu.Lock()
	p.stats.TotalFetches++
	if !p.canFetch() {
		p.stats.Rejected++
		state := p.state
		p.mu.Unlock()
		p.logger.WithFields(logrus.Fields{
			"provider": p.inner.Name(),
			"state":    state.String(),
		}).Warn("Circuit open, rejecting snapshot fetch")
		return models.MarketSnapshot{}, ErrBreakerOpen
	}
	p.mu.Unlock()

	snapshot, err := p.inner.FetchSnapshot(ctx, symbol)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.onFailure(err)
		return models.MarketSnapshot{}, err
	}
	p.onSuccess()
	return snapshot, nil
}

// State returns the current breaker state name.
func (p *ResilientProvider) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.String()
}

// Stats returns cumulative breaker activity.
func (p *ResilientProvider) Stats() BreakerStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Reset closes the circuit and clears the counters.
func (p *ResilientProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setState(breakerClosed)
	p.failureCount = 0
	p.successCount = 0
}

// canFetch is called with the lock held.
func (p *ResilientProvider) canFetch() bool {
	now := time.Now()

	switch p.state {
	case breakerClosed:
		// Old failures stop counting against the threshold
		if now.Sub(p.lastFailureTime) > p.config.ResetTimeout {
			p.failureCount = 0
		}
		return true

	case breakerOpen:
		if now.Sub(p.lastStateChange) > p.config.OpenTimeout {
			p.setState(breakerHalfOpen)
			p.successCount = 0
			return true
		}
		return false

	case breakerHalfOpen:
		return true

	default:
		return false
	}
}

func (p *ResilientProvider) onSuccess() {
	p.stats.SuccessfulFetches++

	switch p.state {
	case breakerClosed:
		p.failureCount = 0
	case breakerHalfOpen:
		p.successCount++
		if p.successCount >= p.config.SuccessThreshold {
			p.setState(breakerClosed)
			p.failureCount = 0
			p.successCount = 0
		}
	}
}

func (p *ResilientProvider) onFailure(err error) {
	p.stats.FailedFetches++
	p.stats.LastFailureTime = time.Now()
	p.lastFailureTime = time.Now()

	switch p.state {
	case breakerClosed:
		p.failureCount++
		if p.failureCount >= p.config.FailureThreshold {
			p.setState(breakerOpen)
		}
	case breakerHalfOpen:
		// Any failure while probing reopens the circuit
		p.setState(breakerOpen)
		p.successCount = 0
	}

	p.logger.WithFields(logrus.Fields{
		"provider":      p.inner.Name(),
		"state":         p.state.String(),
		"error":         err.Error(),
		"failure_count": p.failureCount,
	}).Warn("Snapshot fetch failed")
}

func (p *ResilientProvider) setState(newState breakerState) {
	if p.state == newState {
		return
	}
	oldState := p.state
	p.state = newState
	p.lastStateChange = time.Now()
	p.stats.StateChanges++

	p.logger.WithFields(logrus.Fields{
		"provider":  p.inner.Name(),
		"old_state": oldState.String(),
		"new_state": newState.String(),
	}).Info("Provider circuit state changed")
}
