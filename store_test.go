package main

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGetSetRemove(t *testing.T) {
	s := NewStore()

	_, ok := s.Get("missing")
	assert.False(t, ok)

	prev, had := s.Set("a", []byte("hello"), 0)
	assert.False(t, had)
	assert.Nil(t, prev)

	v, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), v)

	prev, had = s.Set("a", []byte("world"), 0)
	assert.True(t, had)
	assert.Equal(t, []byte("hello"), prev)

	v, ok = s.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("world"), v)

	removed, had := s.Remove("a")
	assert.True(t, had)
	assert.Equal(t, []byte("world"), removed)

	_, ok = s.Get("a")
	assert.False(t, ok)
}

func TestStoreTTLExpiry(t *testing.T) {
	s := NewStore()

	s.Set("k", []byte("v"), 10*time.Millisecond)

	_, ok := s.Get("k")
	assert.True(t, ok, "entry should be visible before its deadline")

	time.Sleep(20 * time.Millisecond)

	_, ok = s.Get("k")
	assert.False(t, ok, "entry must be hidden once its deadline has passed")
}

func TestStoreZeroTTLNeverExpires(t *testing.T) {
	s := NewStore()
	s.Set("k", []byte("v"), 0)

	time.Sleep(5 * time.Millisecond)

	_, ok := s.Get("k")
	assert.True(t, ok)
}

func TestStoreSweepRemovesOnlyExpired(t *testing.T) {
	s := NewStore()
	s.Set("live", []byte("v"), 0)
	s.Set("dying", []byte("v"), 5*time.Millisecond)

	time.Sleep(15 * time.Millisecond)

	removed := s.Sweep()
	assert.Equal(t, 1, removed)

	_, ok := s.Get("live")
	assert.True(t, ok)

	sh := s.shardFor("dying")
	sh.mu.RLock()
	_, stillPresent := sh.data["dying"]
	sh.mu.RUnlock()
	assert.False(t, stillPresent)
}

func TestStoreSweepDoesNotEvictResurrectedKey(t *testing.T) {
	s := NewStore()
	s.Set("k", []byte("first"), 5*time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	// Re-insert with no expiry after the first entry has expired but before
	// Sweep runs; Sweep judges the entry it finds now, so this fresh write
	// must survive. (A re-insert landing between Sweep's scan and its
	// delete is not exercised here.)
	s.Set("k", []byte("second"), 0)

	removed := s.Sweep()
	assert.Equal(t, 0, removed)

	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("second"), v)
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "key"
			s.Set(key, []byte{byte(i)}, 0)
			s.Get(key)
		}(i)
	}
	wg.Wait()

	_, ok := s.Get("key")
	assert.True(t, ok)
}
