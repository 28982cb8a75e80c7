package credentials

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/homevault/internal/cryptox"
	"github.com/dmitrijs2005/homevault/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParams = cryptox.Params{Memory: 1024, Iterations: 1, Threads: 1, SaltLen: 16, KeyLen: 32}

type fakeSource struct {
	mu      sync.Mutex
	records []Record
	err     error
	calls   int
}

func (f *fakeSource) Load(ctx context.Context) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]Record(nil), f.records...), nil
}

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := cryptox.HashPasswordWithParams([]byte(pw), testParams)
	require.NoError(t, err)
	return h
}

func newTestStore(t *testing.T, src Source) (*Store, *atomic.Int32) {
	t.Helper()
	s, err := NewStore(context.Background(), src, logging.Nop())
	require.NoError(t, err)

	var dummyCalls atomic.Int32
	s.verify = func(password []byte, encoded string) (bool, error) {
		if encoded == dummyHash {
			dummyCalls.Add(1)
			return false, nil
		}
		return cryptox.VerifyPassword(password, encoded)
	}
	return s, &dummyCalls
}

func TestStore_Verify(t *testing.T) {
	src := &fakeSource{records: []Record{
		{Username: "alice", PasswordHash: mustHash(t, "wonderland")},
		{Username: "bob", PasswordHash: "not-a-phc-string"},
	}}
	s, dummy := newTestStore(t, src)
	ctx := context.Background()

	assert.True(t, s.Verify(ctx, "alice", "wonderland"))
	assert.False(t, s.Verify(ctx, "alice", "looking-glass"))
	assert.False(t, s.Verify(ctx, "bob", "anything"), "malformed hash must fail closed")
	assert.Equal(t, int32(0), dummy.Load())

	assert.False(t, s.Verify(ctx, "mallory", "wonderland"))
	assert.Equal(t, int32(1), dummy.Load(), "unknown user still pays for a hash")
}

func TestStore_Verify_FirstMatchWins(t *testing.T) {
	src := &fakeSource{records: []Record{
		{Username: "alice", PasswordHash: mustHash(t, "first")},
		{Username: "alice", PasswordHash: mustHash(t, "second")},
	}}
	s, _ := newTestStore(t, src)
	ctx := context.Background()

	assert.True(t, s.Verify(ctx, "alice", "first"))
	assert.False(t, s.Verify(ctx, "alice", "second"))
	assert.Equal(t, 2, s.Len())
}

func TestStore_LoadsOnceAndReloadsExplicitly(t *testing.T) {
	src := &fakeSource{}
	s, _ := newTestStore(t, src)
	ctx := context.Background()

	assert.False(t, s.Verify(ctx, "carol", "pw"))
	assert.False(t, s.Verify(ctx, "carol", "pw"))
	assert.Equal(t, 1, src.calls, "Verify must not re-read the source")

	src.mu.Lock()
	src.records = []Record{{Username: "carol", PasswordHash: mustHash(t, "pw")}}
	src.mu.Unlock()

	require.NoError(t, s.Reload(ctx))
	assert.True(t, s.Verify(ctx, "carol", "pw"))
}

func TestStore_ReloadFailureKeepsPreviousTable(t *testing.T) {
	src := &fakeSource{records: []Record{{Username: "dave", PasswordHash: mustHash(t, "pw")}}}
	s, _ := newTestStore(t, src)
	ctx := context.Background()

	src.mu.Lock()
	src.err = errors.New("disk gone")
	src.mu.Unlock()

	require.Error(t, s.Reload(ctx))
	assert.True(t, s.Verify(ctx, "dave", "pw"))
}

func TestNewStore_InitialLoadError(t *testing.T) {
	_, err := NewStore(context.Background(), &fakeSource{err: errors.New("nope")}, logging.Nop())
	require.Error(t, err)
}

func TestStore_ConcurrentVerifyAndReload(t *testing.T) {
	src := &fakeSource{records: []Record{{Username: "erin", PasswordHash: mustHash(t, "pw")}}}
	s, _ := newTestStore(t, src)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.True(t, s.Verify(ctx, "erin", "pw"))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Reload(ctx))
		}()
	}
	wg.Wait()
}
