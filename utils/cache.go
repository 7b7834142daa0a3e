package utils

import (
	"context"
	"encoding/json"
	"time"

	"github.com/miraclezmoon/TELEBOT-19/config"
)

// Cache key prefixes for the bot-facing catalog lists.
const (
	CachePrefixRaffles  = "coinbot:raffles:"
	CachePrefixProducts = "coinbot:products:"
)

func cacheTTL() time.Duration {
	if sec := config.Get().CacheTTLSec; sec > 0 {
		return time.Duration(sec) * time.Second
	}
	return time.Minute
}

// CacheGetJSON decodes a cached JSON value into out. It reports false on a miss or when Redis is unavailable.
func CacheGetJSON(key string, out interface{}) bool {
	rc := GetRedis()
	if rc == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := rc.Get(ctx, key).Bytes()
	if err != nil {
		Sugar.Debugf("cache miss key=%s err=%v", key, err)
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		Sugar.Warnf("cache decode failed key=%s err=%v", key, err)
		return false
	}
	return true
}

// CacheSetJSON stores v as JSON with the configured TTL. Failures are logged and otherwise ignored.
func CacheSetJSON(key string, v interface{}) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Set(ctx, key, b, cacheTTL()).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// InvalidateByPrefix deletes keys that match the given prefix using SCAN.
func InvalidateByPrefix(prefix string) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var cursor uint64
	for i := 0; i < 10; i++ { // bounded; the key space per prefix is tiny
		keys, next, err := rc.Scan(ctx, cursor, prefix+"*", 500).Result()
		if err != nil {
			Sugar.Warnf("cache scan failed prefix=%s err=%v", prefix, err)
			return
		}
		if len(keys) > 0 {
			if err := rc.Del(ctx, keys...).Err(); err != nil {
				Sugar.Warnf("cache delete failed prefix=%s err=%v", prefix, err)
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
