package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLock(t *testing.T) (*SlotLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb), mr
}

func TestAcquire_NewHold(t *testing.T) {
	l, mr := testLock(t)
	ctx := context.Background()

	res := l.Acquire(ctx, 42, "user:7", 10*time.Second)
	require.True(t, res.Acquired)
	assert.False(t, res.Extended)
	assert.False(t, res.Disabled)

	owner, err := mr.Get("slotlock:42")
	require.NoError(t, err)
	assert.Equal(t, "user:7", owner)
}

func TestAcquire_SameHolderExtends(t *testing.T) {
	l, _ := testLock(t)
	ctx := context.Background()

	require.True(t, l.Acquire(ctx, 42, "user:7", 10*time.Second).Acquired)

	res := l.Acquire(ctx, 42, "user:7", 10*time.Second)
	require.True(t, res.Acquired)
	assert.True(t, res.Extended)
}

func TestAcquire_ContentionReportsRetryAfter(t *testing.T) {
	l, _ := testLock(t)
	ctx := context.Background()

	require.True(t, l.Acquire(ctx, 42, "user:7", 10*time.Second).Acquired)

	res := l.Acquire(ctx, 42, "guest:abc", 10*time.Second)
	assert.False(t, res.Acquired)
	assert.False(t, res.Disabled)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, res.RetryAfter, 10*time.Second)
}

func TestAcquire_ZeroTTLUsesDefault(t *testing.T) {
	l, mr := testLock(t)
	ctx := context.Background()

	require.True(t, l.Acquire(ctx, 42, "user:7", 0).Acquired)
	ttl := mr.TTL("slotlock:42")
	assert.Equal(t, DefaultTTL, ttl)
}

func TestAcquire_AfterExpiry(t *testing.T) {
	l, mr := testLock(t)
	ctx := context.Background()

	require.True(t, l.Acquire(ctx, 42, "user:7", time.Second).Acquired)
	mr.FastForward(2 * time.Second)

	res := l.Acquire(ctx, 42, "guest:abc", time.Second)
	assert.True(t, res.Acquired)
	assert.False(t, res.Extended)
}

func TestRelease_OwnedAndForeign(t *testing.T) {
	l, mr := testLock(t)
	ctx := context.Background()

	require.True(t, l.Acquire(ctx, 42, "user:7", 10*time.Second).Acquired)

	assert.False(t, l.Release(ctx, 42, "guest:abc"), "foreign release must not drop the hold")
	assert.True(t, mr.Exists("slotlock:42"))

	assert.True(t, l.Release(ctx, 42, "user:7"))
	assert.False(t, mr.Exists("slotlock:42"))

	assert.False(t, l.Release(ctx, 42, "user:7"), "double release returns false")
}

func TestBulkStatus_Mixed(t *testing.T) {
	l, _ := testLock(t)
	ctx := context.Background()

	require.True(t, l.Acquire(ctx, 1, "user:7", 10*time.Second).Acquired)
	require.True(t, l.Acquire(ctx, 2, "guest:abc", 10*time.Second).Acquired)

	statuses := l.BulkStatus(ctx, []uint64{1, 2, 3}, "user:7")
	require.Len(t, statuses, 3)

	assert.True(t, statuses[1].Locked)
	assert.True(t, statuses[1].Mine)
	assert.Greater(t, statuses[1].TTL, time.Duration(0))

	assert.True(t, statuses[2].Locked)
	assert.False(t, statuses[2].Mine)

	assert.False(t, statuses[3].Locked)
	assert.False(t, statuses[3].Mine)
}

func TestLockStatus_Single(t *testing.T) {
	l, _ := testLock(t)
	ctx := context.Background()

	require.True(t, l.Acquire(ctx, 9, "user:7", 10*time.Second).Acquired)

	st := l.LockStatus(ctx, 9, "guest:abc")
	assert.True(t, st.Locked)
	assert.False(t, st.Mine)
}

func TestReleaseAllForHolder(t *testing.T) {
	l, mr := testLock(t)
	ctx := context.Background()

	require.True(t, l.Acquire(ctx, 1, "user:7", 10*time.Second).Acquired)
	require.True(t, l.Acquire(ctx, 2, "user:7", 10*time.Second).Acquired)
	require.True(t, l.Acquire(ctx, 3, "guest:abc", 10*time.Second).Acquired)

	released := l.ReleaseAllForHolder(ctx, "user:7")
	assert.Equal(t, 2, released)

	assert.False(t, mr.Exists("slotlock:1"))
	assert.False(t, mr.Exists("slotlock:2"))
	assert.True(t, mr.Exists("slotlock:3"), "other holders' locks survive")
}

func TestDisabled_NilClient(t *testing.T) {
	l := New(nil)
	ctx := context.Background()

	assert.False(t, l.Enabled())

	res := l.Acquire(ctx, 42, "user:7", time.Second)
	assert.True(t, res.Disabled)
	assert.False(t, res.Acquired)

	assert.False(t, l.Release(ctx, 42, "user:7"))
	assert.Equal(t, 0, l.ReleaseAllForHolder(ctx, "user:7"))

	statuses := l.BulkStatus(ctx, []uint64{1, 2}, "user:7")
	require.Len(t, statuses, 2)
	assert.True(t, statuses[1].Disabled)
	assert.True(t, statuses[2].Disabled)
}
