// Package quota tracks provider usage budgets shared by every caller
// in the process. The Manager is the only writer of the ledgers, so
// concurrent pipelines cannot double-spend a budget.
package quota

import (
	"context"
	"sync"
	"time"

	"docquery/internal/rag/schema"
	"docquery/pkg/ratelimiter"
)

// Resource names the budgeted providers.
type Resource string

const (
	// ResourceEmbedding is the embedding provider budget.
	ResourceEmbedding Resource = "embedding"
	// ResourceLLM is the answer model provider budget.
	ResourceLLM Resource = "llm"
)

// State describes the current standing of a resource budget.
type State string

const (
	// StateAvailable means requests may proceed immediately.
	StateAvailable State = "available"
	// StateThrottled means the per-minute request budget is spent and
	// callers must wait for the window to reset.
	StateThrottled State = "throttled"
	// StateExhausted means the daily token budget is spent until the
	// next UTC midnight.
	StateExhausted State = "exhausted"
)

// Budget is the provider allowance for one resource.
type Budget struct {
	RequestsPerMinute int
	TokensPerDay      int64
}

// ledger tracks one resource's consumption.
type ledger struct {
	limiter   *ratelimiter.FixedWindowCounter
	budget    Budget
	dayTokens int64
	day       time.Time // UTC date the token counter belongs to
}

// Manager enforces per-minute request budgets and daily token budgets
// for the embedding and answer model providers.
type Manager struct {
	ledgers   map[Resource]*ledger
	threshold float64
	maxWait   time.Duration
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	mutex     sync.Mutex
}

// NewManager creates a Manager. threshold is the fraction of a daily
// token budget after which the resource counts as exhausted, maxWait
// the longest a Reserve call may block on a throttled resource.
func NewManager(budgets map[Resource]Budget, threshold float64, maxWait time.Duration) *Manager {
	m := &Manager{
		ledgers:   make(map[Resource]*ledger, len(budgets)),
		threshold: threshold,
		maxWait:   maxWait,
		now:       time.Now,
		sleep:     sleepCtx,
	}
	for res, budget := range budgets {
		m.ledgers[res] = &ledger{
			limiter: ratelimiter.NewFixedWindowCounter(budget.RequestsPerMinute, time.Minute),
			budget:  budget,
			day:     time.Now().UTC().Truncate(24 * time.Hour),
		}
	}
	return m
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Reserve claims one request slot for the resource, blocking up to the
// manager's maxWait if the per-minute budget is spent. estimate is the
// caller's expected token cost; a reservation that would push the day
// past the exhaustion threshold fails immediately with
// schema.ErrQuotaExhausted, and a schema.ThrottleTimeoutError is
// returned when the wait budget runs out first.
func (m *Manager) Reserve(ctx context.Context, res Resource, estimate int64) error {
	l, ok := m.ledgers[res]
	if !ok {
		return nil
	}

	var waited time.Duration
	for {
		m.mutex.Lock()
		m.rollover(l)
		if m.exhausted(l, estimate) {
			m.mutex.Unlock()
			return schema.ErrQuotaExhausted
		}
		if l.limiter.Allow() {
			m.mutex.Unlock()
			return nil
		}
		wait := l.limiter.RetryAfter()
		m.mutex.Unlock()

		if wait <= 0 {
			wait = time.Second
		}
		if waited+wait > m.maxWait {
			return &schema.ThrottleTimeoutError{Resource: string(res), RetryAfter: wait}
		}
		if err := m.sleep(ctx, wait); err != nil {
			return err
		}
		waited += wait
	}
}

// Commit records the tokens actually consumed by a call. Callers pass
// their best estimate when the provider does not report usage.
func (m *Manager) Commit(res Resource, tokens int64) {
	l, ok := m.ledgers[res]
	if !ok {
		return
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rollover(l)
	l.dayTokens += tokens
}

// StateOf reports the current standing of the resource budget.
func (m *Manager) StateOf(res Resource) State {
	l, ok := m.ledgers[res]
	if !ok {
		return StateAvailable
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rollover(l)
	if m.exhausted(l, 0) {
		return StateExhausted
	}
	if l.limiter.RetryAfter() > 0 {
		return StateThrottled
	}
	return StateAvailable
}

// Usage reports the tokens consumed today for the resource.
func (m *Manager) Usage(res Resource) int64 {
	l, ok := m.ledgers[res]
	if !ok {
		return 0
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rollover(l)
	return l.dayTokens
}

// exhausted reports whether the daily token budget would be spent after
// consuming estimate more tokens. Caller must hold the mutex.
func (m *Manager) exhausted(l *ledger, estimate int64) bool {
	return float64(l.dayTokens+estimate) >= float64(l.budget.TokensPerDay)*m.threshold
}

// rollover resets the daily token counter at UTC midnight. Caller must
// hold the mutex.
func (m *Manager) rollover(l *ledger) {
	today := m.now().UTC().Truncate(24 * time.Hour)
	if today.After(l.day) {
		l.day = today
		l.dayTokens = 0
	}
}
