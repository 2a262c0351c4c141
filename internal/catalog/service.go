package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cacheKey = "catalog:products"

// Service layers a short-lived cache over the catalog repository. The cache
// is invalidated after every write; there is no eviction beyond TTL expiry.
type Service struct {
	logger *slog.Logger
	repo   Repository
	cache  *redis.Client
	ttl    time.Duration

	rebuild singleflight.Group
}

// NewService constructs a Service. cache may be nil to disable caching.
func NewService(logger *slog.Logger, repo Repository, cache *redis.Client, ttl time.Duration) *Service {
	return &Service{logger: logger, repo: repo, cache: cache, ttl: ttl}
}

// List returns the full catalog, from cache when fresh.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	if s.cache != nil {
		data, err := s.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var products []Product
			if err := json.Unmarshal(data, &products); err == nil {
				return products, nil
			}
			s.invalidate(ctx)
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("catalog cache read failed", slog.Any("error", err))
		}
	}

	// Concurrent cache misses collapse into one spreadsheet read.
	ch := s.rebuild.DoChan(cacheKey, func() (interface{}, error) {
		products, err := s.repo.List(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if data, err := json.Marshal(products); err == nil {
				if err := s.cache.Set(context.WithoutCancel(ctx), cacheKey, data, s.ttl).Err(); err != nil {
					s.logger.Warn("catalog cache write failed", slog.Any("error", err))
				}
			}
		}
		return products, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Product), nil
	}
}

// Get returns one product by name. Names match case-insensitively, the same
// way the repository treats them for uniqueness.
func (s *Service) Get(ctx context.Context, name string) (*Product, bool, error) {
	products, err := s.List(ctx)
	if err != nil {
		return nil, false, err
	}
	for i := range products {
		if strings.EqualFold(products[i].Name, name) {
			return &products[i], true, nil
		}
	}
	return nil, false, nil
}

// Upsert validates and stores a product, then invalidates the cache.
func (s *Service) Upsert(ctx context.Context, p Product) error {
	if err := s.repo.Upsert(ctx, p); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Rename stores a product under a new name, replacing the old row.
func (s *Service) Rename(ctx context.Context, oldName string, p Product) error {
	type renamer interface {
		Rename(ctx context.Context, oldName string, p Product) error
	}
	r, ok := s.repo.(renamer)
	if !ok {
		return s.Upsert(ctx, p)
	}
	if err := r.Rename(ctx, oldName, p); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Delete removes a product by name, then invalidates the cache.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.repo.Delete(ctx, name); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey).Err(); err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn("catalog cache invalidation failed", slog.Any("error", err))
	}
}
