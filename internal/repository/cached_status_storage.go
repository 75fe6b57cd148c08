package repository

import (
	"context"
	"time"

	"github.com/mansoorceksport/imgpaste/internal/domain"
)

const connectionStatusKeyPrefix = "storage:status:"

// CachedStatusStorage wraps a StorageService and caches successful connection checks.
// Failures are never cached so a fixed configuration shows up on the next check.
type CachedStatusStorage struct {
	domain.StorageService
	cache *RedisCache
	key   string
	ttl   time.Duration
}

// NewCachedStatusStorage creates a new cached status decorator. bucket scopes the cache key.
func NewCachedStatusStorage(storage domain.StorageService, cache *RedisCache, bucket string, ttl time.Duration) *CachedStatusStorage {
	return &CachedStatusStorage{
		StorageService: storage,
		cache:          cache,
		key:            connectionStatusKeyPrefix + bucket,
		ttl:            ttl,
	}
}

// TestConnection answers from cache when a recent check succeeded
func (s *CachedStatusStorage) TestConnection(ctx context.Context) domain.OperationResult {
	var cached domain.OperationResult
	if err := s.cache.Get(ctx, s.key, &cached); err == nil && cached.Success {
		return cached
	}

	result := s.StorageService.TestConnection(ctx)
	if result.Success {
		// ignore cache errors
		_ = s.cache.Set(ctx, s.key, result, s.ttl)
	}
	return result
}

// Invalidate drops the cached status
func (s *CachedStatusStorage) Invalidate(ctx context.Context) error {
	return s.cache.Delete(ctx, s.key)
}
