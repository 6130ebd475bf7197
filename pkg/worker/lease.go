// Package worker runs the event-driven process executor: it reacts to
// step-enqueued events, recovers stalled processes on a schedule and
// serializes work per process through an advisory lease.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lease grants temporary exclusive ownership of a process to one worker.
// Leasing is advisory: the store's finalize guard stays the source of truth,
// the lease only avoids wasted duplicate executions.
type Lease interface {
	// Acquire returns false when another worker currently holds the process.
	// The release function is a no-op when the lease was not acquired.
	Acquire(ctx context.Context, processID string) (release func(), acquired bool, err error)
}

const leaseKeyPrefix = "stepflow:lease:"

// Only the holder may delete its own lease key.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLease coordinates workers across instances through a SET NX key with a
// TTL. A crashed holder's lease expires on its own.
type RedisLease struct {
	client   *redis.Client
	workerID string
	ttl      time.Duration
}

func NewRedisLease(client *redis.Client, workerID string, ttl time.Duration) *RedisLease {
	return &RedisLease{
		client:   client,
		workerID: workerID,
		ttl:      ttl,
	}
}

func (l *RedisLease) Acquire(ctx context.Context, processID string) (func(), bool, error) {
	key := leaseKeyPrefix + processID

	acquired, err := l.client.SetNX(ctx, key, l.workerID, l.ttl).Result()
	if err != nil {
		return func() {}, false, fmt.Errorf("failed to acquire lease for process %s: %w", processID, err)
	}

	if !acquired {
		return func() {}, false, nil
	}

	release := func() {
		// Release must not inherit a cancelled request context.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, l.workerID).Err()
	}

	return release, true, nil
}

// LocalLease serializes processes within a single worker instance. Used when
// no Redis endpoint is configured.
type LocalLease struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLease() *LocalLease {
	return &LocalLease{held: make(map[string]struct{})}
}

func (l *LocalLease) Acquire(_ context.Context, processID string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, taken := l.held[processID]; taken {
		return func() {}, false, nil
	}

	l.held[processID] = struct{}{}

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		delete(l.held, processID)
	}

	return release, true, nil
}
