package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/Sternrassler/dav-paginator/pkg/logging"
	"github.com/Sternrassler/dav-paginator/pkg/record"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// redisKeyPrefix namespaces every key written by RedisCache.
	redisKeyPrefix = "davpage:"

	// redisBatchSize is the number of rows pushed per pipeline round trip.
	redisBatchSize = 100

	// rowsGrace keeps the row list alive past its count key so a reader that
	// saw the count never finds the list gone.
	rowsGrace = time.Minute
)

// RedisCache stores each result set as a list plus a count key. Expiry is
// left to Redis.
type RedisCache struct {
	redis  *redis.Client
	config Config
	logger zerolog.Logger
}

// NewRedisCache creates a page cache with Redis backend.
func NewRedisCache(redisClient *redis.Client, cfg Config) *RedisCache {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	cfg = cfg.withDefaults()
	return &RedisCache{
		redis:  redisClient,
		config: cfg,
		logger: cfg.Logger.With().Str(logging.FieldBackend, backendRedis).Logger(),
	}
}

func rowsKey(hash, token string) string {
	return redisKeyPrefix + hash + ":" + token + ":rows"
}

func countKey(hash, token string) string {
	return redisKeyPrefix + hash + ":" + token + ":count"
}

// Store implements Cache. The count key is written last; until then the
// token does not exist. An empty set writes no count key, so it never
// exists. On failure the row list is deleted.
func (c *RedisCache) Store(ctx context.Context, key string, records iter.Seq2[record.Record, error]) (string, int, error) {
	token, err := c.config.Tokens.Token()
	if err != nil {
		Errors.WithLabelValues(backendRedis, "store").Inc()
		return "", 0, err
	}
	hash := HashKey(key)

	count, err := c.storeRows(ctx, hash, token, records)
	if err == nil && count > 0 {
		if serr := c.redis.Set(ctx, countKey(hash, token), count, c.config.TTL).Err(); serr != nil {
			err = fmt.Errorf("redis set: %w", serr)
		}
	}
	if err != nil {
		Errors.WithLabelValues(backendRedis, "store").Inc()
		c.discard(ctx, hash, token)
		return "", 0, err
	}

	RowsStored.WithLabelValues(backendRedis).Add(float64(count))
	logging.ResultSet(c.logger, hash, token).Debug().
		Int(logging.FieldCount, count).
		Msg("Result set stored")

	return token, count, nil
}

func (c *RedisCache) storeRows(ctx context.Context, hash, token string, records iter.Seq2[record.Record, error]) (int, error) {
	rk := rowsKey(hash, token)

	batch := make([]any, 0, redisBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		pipe := c.redis.Pipeline()
		pipe.RPush(ctx, rk, batch...)
		pipe.Expire(ctx, rk, c.config.TTL+rowsGrace)
		_, err := pipe.Exec(ctx)
		batch = batch[:0]
		if err != nil {
			return fmt.Errorf("redis rpush: %w", err)
		}
		return nil
	}

	count := 0
	for rec, err := range records {
		if err != nil {
			return count, fmt.Errorf("enumerate record %d: %w", count, err)
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return count, fmt.Errorf("marshal record %d: %w", count, err)
		}
		batch = append(batch, data)
		count++
		if len(batch) == redisBatchSize {
			if err := flush(); err != nil {
				return count, err
			}
		}
	}
	return count, flush()
}

// discard removes the row list of a failed store. It runs even if ctx is done.
func (c *RedisCache) discard(ctx context.Context, hash, token string) {
	if err := c.redis.Del(context.WithoutCancel(ctx), rowsKey(hash, token)).Err(); err != nil {
		Errors.WithLabelValues(backendRedis, "discard").Inc()
		logging.ResultSet(c.logger, hash, token).Warn().
			Err(err).
			Msg("Partial result set not removed")
	}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key, token string, offset, count int) ([]record.Record, error) {
	if offset < 0 {
		offset = 0
	}
	out := make([]record.Record, 0)
	if count <= 0 {
		return out, nil
	}
	count = clampCount(offset, count)
	hash := HashKey(key)

	total, err := c.redis.Get(ctx, countKey(hash, token)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			Misses.WithLabelValues(backendRedis).Inc()
			return out, nil
		}
		Errors.WithLabelValues(backendRedis, "get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}
	if offset >= total {
		Misses.WithLabelValues(backendRedis).Inc()
		return out, nil
	}
	last := min(total, offset+count) - 1

	values, err := c.redis.LRange(ctx, rowsKey(hash, token), int64(offset), int64(last)).Result()
	if err != nil {
		Errors.WithLabelValues(backendRedis, "get").Inc()
		return nil, fmt.Errorf("redis lrange: %w", err)
	}

	for i, v := range values {
		rec, err := decodeRow(Row{URLHash: hash, Token: token, Index: offset + i, Value: []byte(v)})
		if err != nil {
			Errors.WithLabelValues(backendRedis, "decode").Inc()
			logging.ResultSet(c.logger, hash, token).Warn().
				Err(err).
				Int("index", offset+i).
				Msg("Corrupt cache row")
			return nil, err
		}
		out = append(out, rec)
	}

	RowsServed.WithLabelValues(backendRedis).Add(float64(len(out)))
	logging.ResultSet(c.logger, hash, token).Debug().
		Int(logging.FieldOffset, offset).
		Int(logging.FieldCount, len(out)).
		Msg("Page read")

	return out, nil
}

// Exists implements Cache.
func (c *RedisCache) Exists(ctx context.Context, key, token string) (bool, error) {
	n, err := c.redis.Exists(ctx, countKey(HashKey(key), token)).Result()
	if err != nil {
		Errors.WithLabelValues(backendRedis, "exists").Inc()
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n == 1, nil
}

// Cleanup implements Cache. Keys carry their own TTL, so there is nothing to
// sweep.
func (c *RedisCache) Cleanup(ctx context.Context) (int64, error) {
	return 0, nil
}

// Clear implements Cache by deleting every key in the davpage: namespace.
func (c *RedisCache) Clear(ctx context.Context) error {
	it := c.redis.Scan(ctx, 0, redisKeyPrefix+"*", redisBatchSize).Iterator()

	keys := make([]string, 0, redisBatchSize)
	for it.Next(ctx) {
		keys = append(keys, it.Val())
		if len(keys) == redisBatchSize {
			if err := c.redis.Del(ctx, keys...).Err(); err != nil {
				Errors.WithLabelValues(backendRedis, "clear").Inc()
				return fmt.Errorf("redis del: %w", err)
			}
			keys = keys[:0]
		}
	}
	if err := it.Err(); err != nil {
		Errors.WithLabelValues(backendRedis, "clear").Inc()
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) > 0 {
		if err := c.redis.Del(ctx, keys...).Err(); err != nil {
			Errors.WithLabelValues(backendRedis, "clear").Inc()
			return fmt.Errorf("redis del: %w", err)
		}
	}
	return nil
}

// Ping reports whether the Redis server is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}
