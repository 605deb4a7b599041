package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Domenick1991/tripmates/config"
	"github.com/Domenick1991/tripmates/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockRetryInterval = 20 * time.Millisecond

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// KEYS[1] generation, KEYS[2] snapshot; ARGV: generation seen before listing, payload, ttl ms.
var setPlansScript = redis.NewScript(`
local gen = redis.call("GET", KEYS[1]) or "0"
if gen ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

type RedisCache struct {
	client     *redis.Client
	plansTTL   time.Duration
	lockTTL    time.Duration
	sessionTTL time.Duration
}

type Option func(*RedisCache)

func WithLockTTL(ttl time.Duration) Option {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.lockTTL = ttl
		}
	}
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.sessionTTL = ttl
		}
	}
}

func NewRedisCache(cfg config.RedisConfig, plansTTL time.Duration, opts ...Option) *RedisCache {
	c := &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		plansTTL:   plansTTL,
		lockTTL:    5 * time.Second,
		sessionTTL: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetPlans returns the cached discoverable plan snapshot, or nil on a miss.
func (c *RedisCache) GetPlans(ctx context.Context) ([]domain.TravelPlan, error) {
	data, err := c.client.Get(ctx, plansKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var plans []domain.TravelPlan
	if err := json.Unmarshal(data, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// PlansGeneration returns the counter bumped by every InvalidatePlans.
func (c *RedisCache) PlansGeneration(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, plansGenerationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// SetPlans stores the snapshot only if no invalidation happened since generation was read.
func (c *RedisCache) SetPlans(ctx context.Context, generation int64, plans []domain.TravelPlan) error {
	if c.plansTTL <= 0 {
		return nil
	}
	payload, err := json.Marshal(plans)
	if err != nil {
		return err
	}
	return setPlansScript.Run(ctx, c.client,
		[]string{plansGenerationKey(), plansKey()},
		generation, payload, c.plansTTL.Milliseconds(),
	).Err()
}

func (c *RedisCache) InvalidatePlans(ctx context.Context) error {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, plansGenerationKey())
	pipe.Del(ctx, plansKey())
	_, err := pipe.Exec(ctx)
	return err
}

// Lock takes the cross-instance lock for key, retrying until ctx is done.
func (c *RedisCache) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	lockKey := pairLockKey(key)
	for {
		ok, err := c.client.SetNX(ctx, lockKey, token, c.lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				if err := releaseLockScript.Run(context.Background(), c.client, []string{lockKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
					log.Printf("WARNING: failed to release lock %s: %v", lockKey, err)
				}
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
		case <-time.After(lockRetryInterval):
		}
	}
}

// Suppress records a dismissal. The session keeps a set of the users it touched
// so EndSession never has to pattern-match keys.
func (c *RedisCache) Suppress(ctx context.Context, sessionID, userID, planID string) error {
	key := sessionKey(sessionID, userID)
	usersKey := sessionUsersKey(sessionID)
	pipe := c.client.TxPipeline()
	pipe.SAdd(ctx, key, planID)
	pipe.Expire(ctx, key, c.sessionTTL)
	pipe.SAdd(ctx, usersKey, userID)
	pipe.Expire(ctx, usersKey, c.sessionTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisCache) Suppressed(ctx context.Context, sessionID, userID string) (map[string]struct{}, error) {
	members, err := c.client.SMembers(ctx, sessionKey(sessionID, userID)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(members))
	for _, m := range members {
		out[m] = struct{}{}
	}
	return out, nil
}

func (c *RedisCache) EndSession(ctx context.Context, sessionID string) error {
	usersKey := sessionUsersKey(sessionID)
	users, err := c.client.SMembers(ctx, usersKey).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(users)+1)
	for _, userID := range users {
		keys = append(keys, sessionKey(sessionID, userID))
	}
	keys = append(keys, usersKey)
	return c.client.Del(ctx, keys...).Err()
}

func plansKey() string {
	return "cache:plans:discoverable"
}

func plansGenerationKey() string {
	return "cache:plans:generation"
}

func pairLockKey(pair string) string {
	return fmt.Sprintf("lock:connection:pair:%s", pair)
}

func sessionKey(sessionID, userID string) string {
	return fmt.Sprintf("session:%s:user:%s:dismissed", sessionID, userID)
}

func sessionUsersKey(sessionID string) string {
	return fmt.Sprintf("session:%s:users", sessionID)
}
