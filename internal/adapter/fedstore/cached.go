package fedstore

import (
	"context"
	"time"

	"github.com/example/marketplace-service/internal/adapter/cache"
	"github.com/example/marketplace-service/internal/apub"
)

// DefaultCacheTTL — время жизни записи в кэше поверх хранилища.
const DefaultCacheTTL = time.Hour

// Cached — декоратор Store с кэшированием чтений по id.
// Кэш обновляется строго после успешной долговременной записи; Find кэш
// не использует.
type Cached struct {
	inner Store
	cache *cache.Memory[Record]
	ttl   time.Duration
}

// NewCached оборачивает store кэшем с временем жизни ttl (0 — DefaultCacheTTL).
func NewCached(inner Store, c *cache.Memory[Record], ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{inner: inner, cache: c, ttl: ttl}
}

var _ Store = (*Cached)(nil)

func cacheKey(kind apub.Kind, id string) string {
	return string(kind) + ":" + id
}

func (c *Cached) Get(ctx context.Context, kind apub.Kind, id string) (Record, error) {
	if rec, ok := c.cache.Get(cacheKey(kind, id)); ok {
		return rec, nil
	}
	rec, err := c.inner.Get(ctx, kind, id)
	if err != nil {
		return Record{}, err
	}
	c.cache.Set(cacheKey(kind, id), rec, c.ttl)
	return rec, nil
}

func (c *Cached) Put(ctx context.Context, kind apub.Kind, rec Record) error {
	if err := c.inner.Put(ctx, kind, rec); err != nil {
		return err
	}
	c.cache.Set(cacheKey(kind, rec.ID), rec, c.ttl)
	return nil
}

func (c *Cached) Find(ctx context.Context, kind apub.Kind, q Query) ([]Record, error) {
	return c.inner.Find(ctx, kind, q)
}
