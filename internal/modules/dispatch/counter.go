// README: Rolling-window booking counters feeding the daily admission rule.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"toda/internal/infra"
	"toda/internal/modules/trust"
	"toda/internal/types"
)

// Window summarises a rider's bookings inside trust.DailyWindow.
type Window struct {
	Count int
	Last  time.Time
}

type DailyCounter interface {
	Record(ctx context.Context, riderID, bookingID types.ID, at time.Time) error
	Recent(ctx context.Context, riderID types.ID, now time.Time) (Window, error)
}

const counterKeyPrefix = "dispatch:rider:%s:bookings"

// RedisCounter keeps one sorted set per rider, scored by creation time in
// milliseconds. Entries older than the window are trimmed on every read.
type RedisCounter struct {
	redis *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{redis: client}
}

func (c *RedisCounter) Record(ctx context.Context, riderID, bookingID types.ID, at time.Time) error {
	key := counterKey(riderID)
	pipe := c.redis.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixMilli()), Member: string(bookingID)})
	pipe.Expire(ctx, key, trust.DailyWindow+time.Hour)
	_, err := pipe.Exec(ctx)
	return infra.RedisError(err)
}

func (c *RedisCounter) Recent(ctx context.Context, riderID types.ID, now time.Time) (Window, error) {
	key := counterKey(riderID)
	since := now.Add(-trust.DailyWindow).UnixMilli()

	pipe := c.redis.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(since, 10))
	count := pipe.ZCard(ctx, key)
	latest := pipe.ZRevRangeWithScores(ctx, key, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return Window{}, infra.RedisError(err)
	}

	w := Window{Count: int(count.Val())}
	if zs := latest.Val(); len(zs) > 0 {
		w.Last = time.UnixMilli(int64(zs[0].Score))
	}
	return w, nil
}

func counterKey(riderID types.ID) string {
	return fmt.Sprintf(counterKeyPrefix, string(riderID))
}

// MemoryCounter is the in-process DailyCounter.
type MemoryCounter struct {
	mu    sync.Mutex
	times map[types.ID][]time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{times: make(map[types.ID][]time.Time)}
}

func (c *MemoryCounter) Record(_ context.Context, riderID, _ types.ID, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := append(c.times[riderID], at)
	sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })
	c.times[riderID] = ts
	return nil
}

func (c *MemoryCounter) Recent(_ context.Context, riderID types.ID, now time.Time) (Window, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	since := now.Add(-trust.DailyWindow)
	ts := c.times[riderID]
	i := sort.Search(len(ts), func(i int) bool { return !ts[i].Before(since) })
	ts = ts[i:]
	c.times[riderID] = ts

	w := Window{Count: len(ts)}
	if len(ts) > 0 {
		w.Last = ts[len(ts)-1]
	}
	return w, nil
}

// ActivitySource reports rider bookings straight from the booking table.
type ActivitySource interface {
	RiderActivity(ctx context.Context, riderID types.ID, since time.Time) (int, time.Time, error)
}

// StoreCounter derives the window from the booking store itself; Record is a
// no-op because the booking row is the record.
type StoreCounter struct {
	source ActivitySource
}

func NewStoreCounter(source ActivitySource) *StoreCounter {
	return &StoreCounter{source: source}
}

func (c *StoreCounter) Record(context.Context, types.ID, types.ID, time.Time) error {
	return nil
}

func (c *StoreCounter) Recent(ctx context.Context, riderID types.ID, now time.Time) (Window, error) {
	n, last, err := c.source.RiderActivity(ctx, riderID, now.Add(-trust.DailyWindow))
	if err != nil {
		return Window{}, err
	}
	return Window{Count: n, Last: last}, nil
}
