package generation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Guard admits at most one batch per account at a time.
type Guard interface {
	// Acquire fails with common.ErrBatchInFlight when a batch for accountID
	// is already running. release must be called exactly once.
	Acquire(ctx context.Context, accountID string) (release func(), err error)
}

// MemoryGuard is a single-process Guard.
type MemoryGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{active: make(map[string]struct{})}
}

func (g *MemoryGuard) Acquire(ctx context.Context, accountID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.active[accountID]; ok {
		return nil, common.ErrBatchInFlight
	}
	g.active[accountID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, accountID)
			g.mu.Unlock()
		})
	}, nil
}

// RedisClient is the subset of *redis.Client used by RedisGuard.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock taken over by another batch is left alone.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisGuard shares batch locks between server replicas. The TTL bounds how
// long a crashed replica can block an account.
type RedisGuard struct {
	client RedisClient
	ttl    time.Duration
	prefix string
}

func NewRedisGuard(client RedisClient, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisGuard{client: client, ttl: ttl, prefix: "socialmaster:batch:"}
}

func (g *RedisGuard) Acquire(ctx context.Context, accountID string) (func(), error) {
	key := g.prefix + accountID
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire batch lock: %w: %w", common.ErrTransientRemote, err)
	}
	if !ok {
		return nil, common.ErrBatchInFlight
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The batch context may already be cancelled.
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = g.client.Eval(rctx, releaseScript, []string{key}, token).Err()
		})
	}, nil
}
