// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/grazios/oshijiku/auth"
	"github.com/grazios/oshijiku/models"
)

// Scope is a named rate-limiting bucket tracked per client address.
type Scope string

const (
	ScopeCreate Scope = "create"
	ScopeFetch  Scope = "fetch"
	ScopeDelete Scope = "delete"
)

const (
	DefaultWindow      = time.Hour
	DefaultLockTimeout = 2 * time.Second
)

// DefaultBudgets are requests per window for each scope.
var DefaultBudgets = map[Scope]int{
	ScopeCreate: 30,
	ScopeDelete: 30,
	ScopeFetch:  300,
}

var ErrLockTimeout = errors.New("lock not acquired in time")

// Store persists the request timestamps of one key.
type Store interface {
	Load(ctx context.Context, key string) ([]time.Time, error)
	Save(ctx context.Context, key string, stamps []time.Time, ttl time.Duration) error
}

// Locker serializes access to one key. The returned unlock func is safe to
// call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type Limiter struct {
	store       Store
	locker      Locker
	budgets     map[Scope]int
	window      time.Duration
	lockTimeout time.Duration
	salt        string
	now         func() time.Time
}

type Option func(*Limiter)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func WithWindow(d time.Duration) Option {
	return func(l *Limiter) { l.window = d }
}

func WithLockTimeout(d time.Duration) Option {
	return func(l *Limiter) { l.lockTimeout = d }
}

// WithSalt keys the address hash used in storage keys.
func WithSalt(salt string) Option {
	return func(l *Limiter) { l.salt = salt }
}

// New creates a sliding-window limiter. Scopes missing from budgets are
// rejected outright.
func New(store Store, locker Locker, budgets map[Scope]int, opts ...Option) *Limiter {
	l := &Limiter{
		store:       store,
		locker:      locker,
		budgets:     make(map[Scope]int, len(budgets)),
		window:      DefaultWindow,
		lockTimeout: DefaultLockTimeout,
		now:         time.Now,
	}
	for scope, budget := range budgets {
		l.budgets[scope] = budget
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewMemory is a single-process limiter.
func NewMemory(budgets map[Scope]int, opts ...Option) *Limiter {
	return New(NewMemoryStore(), NewKeyedMutex(), budgets, opts...)
}

// Key returns the storage key for a scope and client address.
func (l *Limiter) Key(scope Scope, addr string) string {
	return "ratelimit:" + string(scope) + ":" + auth.HashIP(addr, l.salt)
}

// Budget returns the per-window budget of a scope.
func (l *Limiter) Budget(scope Scope) int {
	return l.budgets[scope]
}

// Allow records one request for (scope, addr) or rejects it.
//
// Returns *models.RateLimitError when the budget is spent, and an error
// matching models.ErrServerBusy when the key lock or the store is
// unavailable. The limiter fails closed in both cases.
func (l *Limiter) Allow(ctx context.Context, scope Scope, addr string) error {
	budget, ok := l.budgets[scope]
	if !ok {
		return fmt.Errorf("unknown rate limit scope %q", scope)
	}

	key := l.Key(scope, addr)

	lockCtx, cancel := context.WithTimeout(ctx, l.lockTimeout)
	defer cancel()
	unlock, err := l.locker.Lock(lockCtx, key)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrServerBusy, err)
	}
	defer unlock()

	stamps, err := l.store.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: load window: %v", models.ErrServerBusy, err)
	}

	now := l.now()
	cutoff := now.Add(-l.window)
	window := make([]time.Time, 0, len(stamps)+1)
	for _, ts := range stamps {
		if ts.After(cutoff) {
			window = append(window, ts)
		}
	}

	if len(window) >= budget {
		retry := l.window
		if len(window) > 0 {
			retry = window[0].Add(l.window).Sub(now)
		}
		return &models.RateLimitError{Scope: string(scope), RetryAfter: retry}
	}

	window = append(window, now)
	if err := l.store.Save(ctx, key, window, l.window); err != nil {
		return fmt.Errorf("%w: save window: %v", models.ErrServerBusy, err)
	}
	return nil
}
