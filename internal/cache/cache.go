package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"studyroom/internal/domain"
	"studyroom/internal/metrics"
)

const (
	keyPrefix = "studyroom:active:"
	genKey    = keyPrefix + "gen"
)

// ActiveCache keeps short-lived copies of the active reservation list so that
// every polling client does not hit Postgres on each tick.
//
// Every write bumps a generation counter. A fill carries the generation read
// before its database query, and an entry whose generation is behind the
// counter is a miss, so a read that raced a write cannot pin a stale list.
type ActiveCache struct {
	redis *redis.Client
	ttl   time.Duration
}

type entry struct {
	Gen          int64                `json:"gen"`
	Reservations []domain.Reservation `json:"reservations"`
}

func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}

func New(rdb *redis.Client, ttl time.Duration) *ActiveCache {
	return &ActiveCache{redis: rdb, ttl: ttl}
}

func key(roomID int) string {
	if roomID <= 0 {
		return keyPrefix + "all"
	}
	return fmt.Sprintf("%sroom:%d", keyPrefix, roomID)
}

// Generation returns the current write generation. Read it before querying
// the database and hand it to SetActive.
func (c *ActiveCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.redis.Get(ctx, genKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// GetActive reports ok=false on a miss.
func (c *ActiveCache) GetActive(ctx context.Context, roomID int) ([]domain.Reservation, bool, error) {
	vals, err := c.redis.MGet(ctx, key(roomID), genKey).Result()
	if err != nil {
		return nil, false, err
	}
	raw, ok := vals[0].(string)
	if !ok {
		metrics.RecordCacheLookup(false)
		return nil, false, nil
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		metrics.RecordCacheLookup(false)
		return nil, false, nil
	}
	cur, err := parseGen(vals[1])
	if err != nil || e.Gen != cur {
		metrics.RecordCacheLookup(false)
		return nil, false, nil
	}
	metrics.RecordCacheLookup(true)
	return e.Reservations, true, nil
}

func parseGen(v interface{}) (int64, error) {
	if v == nil {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected generation value %T", v)
	}
	return strconv.ParseInt(s, 10, 64)
}

// SetActive stores rs as read under generation gen.
func (c *ActiveCache) SetActive(ctx context.Context, roomID int, gen int64, rs []domain.Reservation) error {
	if rs == nil {
		rs = []domain.Reservation{}
	}
	data, err := json.Marshal(entry{Gen: gen, Reservations: rs})
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, key(roomID), data, c.ttl).Err()
}

// Invalidate bumps the generation, then drops the room's entry and the
// all-rooms entry.
func (c *ActiveCache) Invalidate(ctx context.Context, roomID int) error {
	if err := c.redis.Incr(ctx, genKey).Err(); err != nil {
		return err
	}
	return c.redis.Del(ctx, key(0), key(roomID)).Err()
}

func (c *ActiveCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}
