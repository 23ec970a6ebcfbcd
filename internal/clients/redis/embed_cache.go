package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
)

// EmbedCache caches name embeddings keyed by (model version, text).
// Embeddings are deterministic per pinned model version, so entries
// never go stale; the TTL only bounds memory.
type EmbedCache interface {
	Get(ctx context.Context, model, text string) ([]float32, bool)
	Put(ctx context.Context, model, text string, vec []float32)
	Close() error
}

type embedCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewEmbedCache returns (nil, nil) when REDIS_ADDR is unset; the cache
// is optional and the matcher works without it.
func NewEmbedCache(log *logger.Logger) (EmbedCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, nil
	}

	ttl := 7 * 24 * time.Hour
	if v := strings.TrimSpace(os.Getenv("REDIS_EMBED_CACHE_TTL")); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			ttl = parsed
		}
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &embedCache{
		log: log.With("service", "RedisEmbedCache"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func (c *embedCache) key(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embed:" + model + ":" + hex.EncodeToString(sum[:])
}

func (c *embedCache) Get(ctx context.Context, model, text string) ([]float32, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, c.key(model, text)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Debug("embed cache get failed", "error", err)
		}
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil || len(vec) == 0 {
		return nil, false
	}
	return vec, true
}

func (c *embedCache) Put(ctx context.Context, model, text string, vec []float32) {
	if c == nil || c.rdb == nil || len(vec) == 0 {
		return
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(model, text), raw, c.ttl).Err(); err != nil {
		c.log.Debug("embed cache put failed", "error", err)
	}
}

func (c *embedCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
