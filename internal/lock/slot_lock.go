// Package lock implements the short-lived distributed slot lock that
// bridges the gap between a claimant selecting a slot in the UI and
// the authoritative registration write. Holds live in Redis under a
// TTL; the database's own constraints remain the source of truth, so
// when Redis is unreachable every operation degrades to "locking
// disabled" instead of failing the claim path.
package lock

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is the hold duration used when a caller passes zero:
// short enough that an abandoned claim frees up quickly, long enough
// to cover filling in the reservation form.
const DefaultTTL = 30 * time.Second

// acquireScript is the single serialization point of the claim path:
// set-if-absent with expiry, extend when the same holder re-acquires
// (page refresh), otherwise report the remaining PTTL. One atomic
// script, never a read-then-write sequence.
var acquireScript = redis.NewScript(`
	local current = redis.call('GET', KEYS[1])
	if current == false then
		redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
		return {1, 0, 0}
	end
	if current == ARGV[1] then
		redis.call('PEXPIRE', KEYS[1], ARGV[2])
		return {1, 1, 0}
	end
	return {0, 0, redis.call('PTTL', KEYS[1])}
`)

// releaseScript deletes the hold only when the caller still owns it,
// so a slow release never clobbers a newer holder's lock.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// AcquireResult reports the outcome of one acquire attempt.
type AcquireResult struct {
	Acquired bool
	// Extended is true when the holder already owned the slot and the
	// hold was refreshed rather than newly granted.
	Extended bool
	// RetryAfter is the remaining lifetime of a competing hold; zero
	// unless the acquire was refused.
	RetryAfter time.Duration
	// Disabled is true when the lock store is unreachable and locking
	// is off; callers fall through to the database constraint.
	Disabled bool
}

// Status reports the state of one slot's hold.
type Status struct {
	Locked   bool
	Mine     bool
	TTL      time.Duration
	Disabled bool
}

// SlotLock grants TTL-bound exclusive holds on slot identifiers. A nil
// Redis client is a valid configuration meaning locking is disabled.
type SlotLock struct {
	rdb    *redis.Client
	prefix string
}

// New returns a SlotLock using the given client, which may be nil.
func New(rdb *redis.Client) *SlotLock {
	return &SlotLock{rdb: rdb, prefix: "slotlock:"}
}

// Enabled reports whether a lock store is configured.
func (l *SlotLock) Enabled() bool { return l.rdb != nil }

func (l *SlotLock) key(slotID uint64) string {
	return l.prefix + strconv.FormatUint(slotID, 10)
}

// Acquire attempts to take an exclusive hold on the slot for ttl (the
// default TTL when zero). Re-acquiring an owned slot extends the hold.
// Contention is a normal negative result, not an error.
func (l *SlotLock) Acquire(ctx context.Context, slotID uint64, holderID string, ttl time.Duration) AcquireResult {
	if l.rdb == nil {
		return AcquireResult{Disabled: true}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	vals, err := acquireScript.Run(ctx, l.rdb, []string{l.key(slotID)}, holderID, ttl.Milliseconds()).Int64Slice()
	if err != nil || len(vals) != 3 {
		log.Printf("slotlock: acquire failed for slot %d: %v", slotID, err)
		return AcquireResult{Disabled: true}
	}
	if vals[0] == 1 {
		return AcquireResult{Acquired: true, Extended: vals[1] == 1}
	}
	retry := time.Duration(vals[2]) * time.Millisecond
	if retry < 0 {
		retry = 0
	}
	return AcquireResult{RetryAfter: retry}
}

// Release drops the hold if holderID still owns it. Returns false when
// the hold belongs to someone else or already expired.
func (l *SlotLock) Release(ctx context.Context, slotID uint64, holderID string) bool {
	if l.rdb == nil {
		return false
	}
	n, err := releaseScript.Run(ctx, l.rdb, []string{l.key(slotID)}, holderID).Int64()
	if err != nil {
		log.Printf("slotlock: release failed for slot %d: %v", slotID, err)
		return false
	}
	return n == 1
}

// LockStatus reports whether the slot is held and, when holderID is
// non-empty, whether that holder owns it and for how much longer.
func (l *SlotLock) LockStatus(ctx context.Context, slotID uint64, holderID string) Status {
	statuses := l.BulkStatus(ctx, []uint64{slotID}, holderID)
	return statuses[slotID]
}

// BulkStatus reads many slots' holds in one pipelined round trip, for
// rendering a slot grid without N sequential lookups.
func (l *SlotLock) BulkStatus(ctx context.Context, slotIDs []uint64, holderID string) map[uint64]Status {
	out := make(map[uint64]Status, len(slotIDs))
	if l.rdb == nil {
		for _, id := range slotIDs {
			out[id] = Status{Disabled: true}
		}
		return out
	}

	pipe := l.rdb.Pipeline()
	gets := make(map[uint64]*redis.StringCmd, len(slotIDs))
	ttls := make(map[uint64]*redis.DurationCmd, len(slotIDs))
	for _, id := range slotIDs {
		gets[id] = pipe.Get(ctx, l.key(id))
		ttls[id] = pipe.PTTL(ctx, l.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		log.Printf("slotlock: bulk status failed: %v", err)
		for _, id := range slotIDs {
			out[id] = Status{Disabled: true}
		}
		return out
	}

	for _, id := range slotIDs {
		owner, err := gets[id].Result()
		if err == redis.Nil {
			out[id] = Status{}
			continue
		}
		if err != nil {
			out[id] = Status{Disabled: true}
			continue
		}
		ttl, _ := ttls[id].Result()
		if ttl < 0 {
			ttl = 0
		}
		out[id] = Status{
			Locked: true,
			Mine:   holderID != "" && owner == holderID,
			TTL:    ttl,
		}
	}
	return out
}

// ReleaseAllForHolder scans every outstanding hold and releases the
// ones owned by holderID. Used on logout and session end. Returns the
// number released.
func (l *SlotLock) ReleaseAllForHolder(ctx context.Context, holderID string) int {
	if l.rdb == nil {
		return 0
	}
	released := 0
	iter := l.rdb.Scan(ctx, 0, l.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		// Ownership is rechecked atomically by the release script, the
		// GET here only skips the obvious non-matches.
		owner, err := l.rdb.Get(ctx, key).Result()
		if err != nil || owner != holderID {
			continue
		}
		idStr := strings.TrimPrefix(key, l.prefix)
		slotID, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			continue
		}
		if l.Release(ctx, slotID, holderID) {
			released++
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("slotlock: scan failed: %v", err)
	}
	return released
}
