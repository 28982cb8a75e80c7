package sessions

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequence returns a randID stub yielding ids in order, then repeating the last.
func sequence(ids ...uint64) func() uint64 {
	var mu sync.Mutex
	i := 0
	return func() uint64 {
		mu.Lock()
		defer mu.Unlock()
		id := ids[i]
		if i < len(ids)-1 {
			i++
		}
		return id
	}
}

func TestManager_InsertGetRemove(t *testing.T) {
	m := NewManager(0)

	_, ok := m.Get(1)
	assert.False(t, ok)

	m.Insert(1, "alice")
	name, ok := m.Get(1)
	require.True(t, ok)
	assert.Equal(t, "alice", name)

	m.Insert(1, "bob")
	name, _ = m.Get(1)
	assert.Equal(t, "bob", name, "insert overwrites silently")

	m.Remove(1)
	_, ok = m.Get(1)
	assert.False(t, ok)

	assert.NotPanics(t, func() { m.Remove(1) })
	assert.Equal(t, 0, m.Len())
}

func TestManager_GenerateUniqueID_SkipsLiveIDs(t *testing.T) {
	m := NewManager(0)
	m.Insert(7, "alice")
	m.Insert(8, "bob")
	m.randID = sequence(7, 8, 7, 9)

	assert.Equal(t, uint64(9), m.GenerateUniqueID())
	assert.Equal(t, 2, m.Len(), "generation must not insert")
}

func TestManager_Issue_SkipsLiveIDsAndStores(t *testing.T) {
	m := NewManager(0)
	m.Insert(42, "alice")
	m.randID = sequence(42, 42, 43)

	id := m.Issue("bob")
	assert.Equal(t, uint64(43), id)

	name, ok := m.Get(43)
	require.True(t, ok)
	assert.Equal(t, "bob", name)

	name, _ = m.Get(42)
	assert.Equal(t, "alice", name)
}

func TestManager_GeneratedIDNeverLive(t *testing.T) {
	m := NewManager(0)
	live := make(map[uint64]bool)
	for i := 0; i < 1000; i++ {
		id := m.Issue("user")
		require.False(t, live[id])
		live[id] = true
	}

	for i := 0; i < 100; i++ {
		assert.False(t, live[m.GenerateUniqueID()])
	}
}

func TestManager_ConcurrentIssueIsUnique(t *testing.T) {
	m := NewManager(0)

	const workers, perWorker = 16, 200
	ids := make(chan uint64, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := m.Issue("u")
				_, _ = m.Get(id)
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool)
	for id := range ids {
		require.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Equal(t, workers*perWorker, m.Len())
}

func TestManager_ExpiredSessionIsAbsent(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(45 * time.Minute)
	m.now = func() time.Time { return now }

	id := m.Issue("alice")

	now = now.Add(44 * time.Minute)
	name, ok := m.Get(id)
	require.True(t, ok)
	assert.Equal(t, "alice", name)

	now = now.Add(time.Minute)
	_, ok = m.Get(id)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len(), "expired session dropped on lookup")
}

func TestManager_Sweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(time.Hour)
	m.now = func() time.Time { return now }

	m.Insert(1, "alice")
	now = now.Add(30 * time.Minute)
	m.Insert(2, "bob")

	assert.Equal(t, 0, m.Sweep())

	now = now.Add(31 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())

	_, ok := m.Get(2)
	assert.True(t, ok)
}

func TestManager_ZeroTTLNeverExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(0)
	m.now = func() time.Time { return now }

	id := m.Issue("alice")
	now = now.Add(24 * 365 * time.Hour)

	assert.Equal(t, 0, m.Sweep())
	_, ok := m.Get(id)
	assert.True(t, ok)
}
