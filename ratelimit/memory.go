// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	stamps    []time.Time
	expiresAt time.Time
}

// MemoryStore keeps windows in process memory. Time is taken from the saved
// stamps, so it follows whatever clock the limiter runs on. Expired entries
// are swept at most once per ttl.
type MemoryStore struct {
	entries   map[string]memoryEntry
	nextSweep time.Time
	mu        sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Load(ctx context.Context, key string) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	out := make([]time.Time, len(entry.stamps))
	copy(out, entry.stamps)
	return out, nil
}

func (s *MemoryStore) Save(ctx context.Context, key string, stamps []time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(stamps) == 0 {
		delete(s.entries, key)
		return nil
	}

	kept := make([]time.Time, len(stamps))
	copy(kept, stamps)
	now := latest(kept)
	s.entries[key] = memoryEntry{stamps: kept, expiresAt: now.Add(ttl)}

	if !now.Before(s.nextSweep) {
		for k, e := range s.entries {
			if !e.expiresAt.After(now) {
				delete(s.entries, k)
			}
		}
		s.nextSweep = now.Add(ttl)
	}
	return nil
}

// Len reports how many keys are held.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func latest(stamps []time.Time) time.Time {
	out := stamps[0]
	for _, ts := range stamps[1:] {
		if ts.After(out) {
			out = ts
		}
	}
	return out
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex is an in-process lock per key. Waiters give up when their
// context ends; unrelated keys never contend.
type KeyedMutex struct {
	locks map[string]*keyLock
	mu    sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-l.ch
				k.release(key, l)
			})
		}, nil
	case <-ctx.Done():
		k.release(key, l)
		return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
	}
}

func (k *KeyedMutex) release(key string, l *keyLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}
