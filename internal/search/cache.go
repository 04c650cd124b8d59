package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	waLog "go.mau.fi/whatsmeow/util/log"
)

const cacheKeyPrefix = "ytr:search:"

// CachedProvider memoizes search results in redis. Redis failures are
// logged and the underlying provider is used directly.
type CachedProvider struct {
	next Provider
	rdb  *redis.Client
	ttl  time.Duration
	log  waLog.Logger
}

func NewCachedProvider(next Provider, rdb *redis.Client, ttl time.Duration, log waLog.Logger) *CachedProvider {
	if log == nil {
		log = waLog.Noop
	}
	return &CachedProvider{next: next, rdb: rdb, ttl: ttl, log: log}
}

func cacheKey(query string, limit int) string {
	return fmt.Sprintf("%s%d:%s", cacheKeyPrefix, limit, query)
}

func (c *CachedProvider) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	key := cacheKey(query, limit)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []Result
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		c.log.Warnf("discarding unreadable cache entry %s", key)
	case !errors.Is(err, redis.Nil):
		c.log.Warnf("search cache read failed: %v", err)
	}

	results, err := c.next.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	// Empty result sets are never cached.
	if len(results) == 0 {
		return results, nil
	}

	if data, err := json.Marshal(results); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Warnf("search cache write failed: %v", err)
		}
	}
	return results, nil
}
