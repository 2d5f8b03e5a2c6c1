package businessflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// InFlightGuard allows at most one lifecycle gateway call per campaign.
// The returned release func must be called on every exit path.
type InFlightGuard interface {
	Acquire(ctx context.Context, campaignID uint) (release func(), err error)
}

// LocalInFlightGuard is a process-local guard
type LocalInFlightGuard struct {
	mu      sync.Mutex
	holders map[uint]struct{}
}

// NewLocalInFlightGuard creates a process-local guard
func NewLocalInFlightGuard() *LocalInFlightGuard {
	return &LocalInFlightGuard{holders: make(map[uint]struct{})}
}

func (g *LocalInFlightGuard) Acquire(_ context.Context, campaignID uint) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.holders[campaignID]; held {
		return nil, ErrOperationInFlight
	}
	g.holders[campaignID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.holders, campaignID)
			g.mu.Unlock()
		})
	}, nil
}

// releaseScript deletes the lock only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisInFlightGuard shares the guard across broker instances through redis
type RedisInFlightGuard struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisInFlightGuard creates a redis-backed guard; ttl must outlive the gateway timeout
func NewRedisInFlightGuard(rc *redis.Client, prefix string, ttl time.Duration) *RedisInFlightGuard {
	return &RedisInFlightGuard{rc: rc, prefix: prefix, ttl: ttl}
}

func (g *RedisInFlightGuard) Acquire(ctx context.Context, campaignID uint) (func(), error) {
	key := fmt.Sprintf("%scampaign:%d:inflight", g.prefix, campaignID)
	token := uuid.NewString()

	ok, err := g.rc.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOCK_FAILED", "Failed to acquire campaign lock", err)
	}
	if !ok {
		return nil, ErrOperationInFlight
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's context may already be done
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, g.rc, []string{key}, token).Err()
		})
	}, nil
}
