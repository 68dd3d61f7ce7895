package main

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// shardCount is the number of independently-locked partitions of the key
// space. Sized well above typical GOMAXPROCS so reads/writes to distinct
// keys rarely contend on the same shard lock, following the spec's
// bucketed-locking design (§4.1) generalized from the teacher's single
// sync.Map and the original source's DashMap.
const shardCount = 64

// entry pairs a value buffer with an optional expiry deadline. The deadline
// is a monotonic time.Time (as produced by time.Now()); its absence
// (hasExpiry == false) means "never expires".
type entry struct {
	value     []byte
	expiresAt time.Time
	hasExpiry bool
}

func (e entry) expired(now time.Time) bool {
	return e.hasExpiry && now.After(e.expiresAt)
}

// shard is one bucket of the Store: its own map guarded by its own lock, so
// the janitor and concurrent handlers never serialize across buckets.
type shard struct {
	mu   sync.RWMutex
	data map[string]entry
}

// Store is a sharded, concurrent mapping from key to Entry with per-entry
// TTL. Get never returns an expired entry's buffer; physical removal of
// expired entries is the janitor's job via Sweep. All operations are
// non-blocking apart from brief per-shard lock acquisition.
type Store struct {
	shards [shardCount]*shard
}

// NewStore allocates an empty Store with all shards initialized.
func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{data: make(map[string]entry)}
	}
	return s
}

func (s *Store) shardFor(key string) *shard {
	h := xxhash.Sum64String(key)
	return s.shards[h%shardCount]
}

// Get returns the current value buffer for key iff an entry exists and is
// not expired. It does not remove expired entries; that is left to Sweep.
func (s *Store) Get(key string) ([]byte, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	e, ok := sh.data[key]
	if !ok || e.expired(time.Now()) {
		return nil, false
	}
	return e.value, true
}

// Set inserts or replaces the entry for key. A ttl of 0 means no expiry.
// It returns the displaced value buffer, if any existed (expired or not —
// replacement is unconditional, matching spec §4.1 invariant 4).
func (s *Store) Set(key string, value []byte, ttl time.Duration) ([]byte, bool) {
	sh := s.shardFor(key)
	now := time.Now()

	e := entry{value: value}
	if ttl > 0 {
		e.hasExpiry = true
		e.expiresAt = now.Add(ttl)
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	prev, had := sh.data[key]
	sh.data[key] = e
	if !had {
		return nil, false
	}
	return prev.value, true
}

// Remove deletes the entry for key, if present, and returns its value
// buffer. An expired-but-not-yet-swept entry is still returned (and
// removed) by Remove; only Get treats expiry as absence.
func (s *Store) Remove(key string) ([]byte, bool) {
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	prev, had := sh.data[key]
	if !had {
		return nil, false
	}
	delete(sh.data, key)
	return prev.value, true
}

// Sweep enumerates every shard, collecting and removing entries that are
// expired at the moment of removal. A key re-inserted between the scan and
// the delete is rechecked under the shard lock before removal, so a fresh
// (non-expired) write racing the sweep is never evicted. Sweep returns the
// number of entries it removed.
func (s *Store) Sweep() int {
	now := time.Now()
	removed := 0

	for _, sh := range s.shards {
		var expired []string

		sh.mu.RLock()
		for key, e := range sh.data {
			if e.expired(now) {
				expired = append(expired, key)
			}
		}
		sh.mu.RUnlock()

		if len(expired) == 0 {
			continue
		}

		sh.mu.Lock()
		for _, key := range expired {
			if e, ok := sh.data[key]; ok && e.expired(now) {
				delete(sh.data, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}

	return removed
}
