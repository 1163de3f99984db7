package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"warehouse-api/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyProduct     = "product:%d"
	keyAllProducts = "products:all"

	notFoundMarker = "notfound"
	notFoundTTL    = time.Minute

	// reinvalidateAfter outlasts a read that loaded rows before the write
	// committed and is still about to store them.
	reinvalidateAfter   = 500 * time.Millisecond
	reinvalidateTimeout = time.Second
)

// CachedRepository serves product reads from Redis and falls back to the
// wrapped repository on a miss or any Redis failure. Writes go to the
// wrapped repository first and then drop the affected keys twice: at once,
// and again after reinvalidateAfter.
type CachedRepository struct {
	repo  Repository
	redis *redis.Client
	ttl   time.Duration

	settle    time.Duration
	afterFunc func(time.Duration, func())
}

func NewCachedRepository(repo Repository, rdb *redis.Client, ttl time.Duration) *CachedRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedRepository{
		repo:      repo,
		redis:     rdb,
		ttl:       ttl,
		settle:    reinvalidateAfter,
		afterFunc: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

func productKey(id int64) string {
	return fmt.Sprintf(keyProduct, id)
}

func (c *CachedRepository) GetByID(ctx context.Context, id int64) (*Product, error) {
	key := productKey(id)
	log := logger.FromCtx(ctx)

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if string(data) == notFoundMarker {
			return nil, ErrProductNotFound
		}
		var p Product
		if err := json.Unmarshal(data, &p); err == nil {
			return &p, nil
		}
		log.Warn("discarding unreadable cached product", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		log.Warn("redis get failed, continuing with DB", zap.String("key", key), zap.Error(err))
	}

	p, err := c.repo.GetByID(ctx, id)
	if errors.Is(err, ErrProductNotFound) {
		if setErr := c.redis.Set(ctx, key, notFoundMarker, notFoundTTL).Err(); setErr != nil {
			log.Warn("failed to cache missing product", zap.String("key", key), zap.Error(setErr))
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, p)
	return p, nil
}

func (c *CachedRepository) GetAll(ctx context.Context) ([]Product, error) {
	log := logger.FromCtx(ctx)

	data, err := c.redis.Get(ctx, keyAllProducts).Bytes()
	switch {
	case err == nil:
		var products []Product
		if err := json.Unmarshal(data, &products); err == nil {
			return products, nil
		}
		log.Warn("discarding unreadable cached product list")
	case errors.Is(err, redis.Nil):
	default:
		log.Warn("redis get failed, continuing with DB", zap.String("key", keyAllProducts), zap.Error(err))
	}

	products, err := c.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	c.store(ctx, keyAllProducts, products)
	return products, nil
}

func (c *CachedRepository) Create(ctx context.Context, in Input) (*Product, error) {
	p, err := c.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	c.Invalidate(ctx, p.ID)
	return p, nil
}

func (c *CachedRepository) Update(ctx context.Context, id int64, in Input) (*Product, error) {
	p, err := c.repo.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	c.Invalidate(ctx, id)
	return p, nil
}

func (c *CachedRepository) Delete(ctx context.Context, id int64) error {
	if err := c.repo.Delete(ctx, id); err != nil {
		return err
	}
	c.Invalidate(ctx, id)
	return nil
}

// Invalidate drops the list key and the per-product keys for ids, then
// schedules the same delete once more so a concurrent read-through cannot
// leave pre-write stock in Redis until the TTL expires.
func (c *CachedRepository) Invalidate(ctx context.Context, ids ...int64) {
	keys := make([]string, 0, len(ids)+1)
	keys = append(keys, keyAllProducts)
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}

	c.del(ctx, keys)
	if c.settle <= 0 {
		return
	}

	bg := context.WithoutCancel(ctx)
	c.afterFunc(c.settle, func() {
		ctx, cancel := context.WithTimeout(bg, reinvalidateTimeout)
		defer cancel()
		c.del(ctx, keys)
	})
}

func (c *CachedRepository) del(ctx context.Context, keys []string) {
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		logger.FromCtx(ctx).Warn("failed to invalidate product cache", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (c *CachedRepository) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.FromCtx(ctx).Warn("failed to marshal product for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.FromCtx(ctx).Warn("failed to cache product", zap.String("key", key), zap.Error(err))
	}
}
