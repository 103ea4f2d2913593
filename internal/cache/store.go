// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

// Package cache provides the read-through TTL stores that sit between the
// alert policies and the Channels DVR metadata API.
//
// Each store holds one category of metadata (channels, guide programs,
// recording jobs, VOD library items) with an independent TTL. Lookups for a
// fresh key are served from memory; an expired or absent key triggers a
// synchronous fetch through the injected loader. Concurrent cold lookups
// for the same key are coalesced into a single upstream request via
// singleflight, so a burst of events for one channel costs one API call.
//
// Failure containment: when a fetch fails and a stale entry exists, the
// stale value is served and the error is only logged. A failed fetch with
// no prior value surfaces as a *FetchError; callers degrade to un-enriched
// alerts rather than dropping them.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/dvrwatch/internal/logging"
)

// Loader fetches the value for a key from the upstream DVR API.
type Loader[V any] func(ctx context.Context, key string) (V, error)

// FetchError reports a cache miss that could not be filled because the
// upstream fetch failed and no stale value was available.
type FetchError struct {
	Store string
	Key   string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("cache %s: fetch %q: %v", e.Store, e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// entry is a cached value with its fetch time.
type entry[V any] struct {
	value     V
	fetchedAt time.Time
}

// Stats tracks store performance counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Loads       int64
	LoadErrors  int64
	StaleServes int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// Store is a thread-safe read-through cache with per-store TTL.
//
// A TTL of zero disables caching entirely: every Get goes to the loader
// (still coalesced across concurrent callers).
type Store[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]

	name   string
	ttl    time.Duration
	loader Loader[V]
	group  singleflight.Group

	statsMu sync.Mutex
	stats   Stats

	clock func() time.Time
}

// New creates a store and starts its background cleanup goroutine.
func New[V any](name string, ttl time.Duration, loader Loader[V]) *Store[V] {
	s := &Store[V]{
		entries: make(map[string]entry[V]),
		name:    name,
		ttl:     ttl,
		loader:  loader,
		clock:   time.Now,
	}

	go s.cleanupLoop()

	return s
}

// Get returns the value for key, fetching through the loader when the
// cached entry is absent or expired.
//
// Concurrent callers for the same cold key share a single fetch. When the
// fetch fails and an expired entry is still held, the stale value is
// returned; the entry stays expired so the next Get retries upstream.
func (s *Store[V]) Get(ctx context.Context, key string) (V, error) {
	if v, ok := s.Peek(key); ok {
		s.recordHit()
		return v, nil
	}
	s.recordMiss()

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		// Another caller may have filled the entry while we waited
		// for the flight slot.
		if v, ok := s.Peek(key); ok {
			return v, nil
		}
		return s.load(ctx, key)
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Peek returns the cached value for key only if it is present and fresh.
// It never touches the loader, making it safe for hot paths that must not
// block (the classifier uses it for channel name enrichment).
func (s *Store[V]) Peek(key string) (V, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || s.ttl <= 0 {
		var zero V
		return zero, false
	}
	if s.clock().Sub(e.fetchedAt) > s.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// load performs the upstream fetch and updates the entry. Called inside a
// singleflight slot.
func (s *Store[V]) load(ctx context.Context, key string) (V, error) {
	s.statsMu.Lock()
	s.stats.Loads++
	s.statsMu.Unlock()

	v, err := s.loader(ctx, key)
	if err != nil {
		s.statsMu.Lock()
		s.stats.LoadErrors++
		s.statsMu.Unlock()

		// Serve stale on upstream failure if we have anything at all.
		s.mu.RLock()
		stale, ok := s.entries[key]
		s.mu.RUnlock()
		if ok {
			s.statsMu.Lock()
			s.stats.StaleServes++
			s.statsMu.Unlock()
			logging.Warn().
				Str("cache", s.name).
				Str("key", key).
				Err(err).
				Msg("fetch failed, serving stale entry")
			return stale.value, nil
		}

		var zero V
		return zero, &FetchError{Store: s.name, Key: key, Err: err}
	}

	if s.ttl > 0 {
		s.mu.Lock()
		s.entries[key] = entry[V]{value: v, fetchedAt: s.clock()}
		total := int64(len(s.entries))
		s.mu.Unlock()

		s.statsMu.Lock()
		s.stats.TotalKeys = total
		s.statsMu.Unlock()
	}

	return v, nil
}

// Set stores a value directly, bypassing the loader. Used by the startup
// warm-up path which fetches entire collections in one API call.
func (s *Store[V]) Set(key string, value V) {
	if s.ttl <= 0 {
		return
	}

	s.mu.Lock()
	s.entries[key] = entry[V]{value: value, fetchedAt: s.clock()}
	total := int64(len(s.entries))
	s.mu.Unlock()

	s.statsMu.Lock()
	s.stats.TotalKeys = total
	s.statsMu.Unlock()
}

// Delete removes a single entry.
func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()

	s.statsMu.Lock()
	s.stats.Evictions++
	s.statsMu.Unlock()
}

// Clear removes all entries.
func (s *Store[V]) Clear() {
	s.mu.Lock()
	evicted := int64(len(s.entries))
	s.entries = make(map[string]entry[V])
	s.mu.Unlock()

	s.statsMu.Lock()
	s.stats.Evictions += evicted
	s.stats.TotalKeys = 0
	s.statsMu.Unlock()
}

// Len returns the number of entries, expired or not.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetStats returns a snapshot of the store counters.
func (s *Store[V]) GetStats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

// HitRate returns the hit percentage across all lookups.
func (s *Store[V]) HitRate() float64 {
	st := s.GetStats()
	total := st.Hits + st.Misses
	if total == 0 {
		return 0.0
	}
	return float64(st.Hits) / float64(total) * 100.0
}

// cleanupLoop periodically removes expired entries.
func (s *Store[V]) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.cleanup()
	}
}

// cleanup removes all expired entries.
func (s *Store[V]) cleanup() {
	if s.ttl <= 0 {
		return
	}

	now := s.clock()
	s.mu.Lock()
	evicted := int64(0)
	for key, e := range s.entries {
		if now.Sub(e.fetchedAt) > s.ttl {
			delete(s.entries, key)
			evicted++
		}
	}
	total := int64(len(s.entries))
	s.mu.Unlock()

	s.statsMu.Lock()
	s.stats.Evictions += evicted
	s.stats.TotalKeys = total
	s.stats.LastCleanup = now
	s.statsMu.Unlock()
}

func (s *Store[V]) recordHit() {
	s.statsMu.Lock()
	s.stats.Hits++
	s.statsMu.Unlock()
}

func (s *Store[V]) recordMiss() {
	s.statsMu.Lock()
	s.stats.Misses++
	s.statsMu.Unlock()
}
