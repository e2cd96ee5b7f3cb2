package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/optionpricer/internal/pricing/domain"
	"github.com/wyfcoding/optionpricer/pkg/cache"
)

const surfaceKeyPrefix = "pricing:surface:"

// SurfaceRepository 基于 Redis 的曲面结果缓存，
// 实现 domain.SurfaceCache
type SurfaceRepository struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewSurfaceRepository 创建曲面缓存仓库
func NewSurfaceRepository(c *cache.RedisCache, ttl time.Duration) *SurfaceRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SurfaceRepository{cache: c, ttl: ttl}
}

// Get 按请求指纹读取曲面，未命中时 found 为 false
func (r *SurfaceRepository) Get(ctx context.Context, key string) (*domain.GreeksSurface, bool, error) {
	var surface domain.GreeksSurface
	found, err := r.cache.GetJSON(ctx, surfaceKeyPrefix+key, &surface)
	if err != nil {
		return nil, false, fmt.Errorf("get surface from cache: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	return &surface, true, nil
}

// Set 写入曲面，带 TTL
func (r *SurfaceRepository) Set(ctx context.Context, key string, surface *domain.GreeksSurface) error {
	if err := r.cache.SetJSON(ctx, surfaceKeyPrefix+key, surface, r.ttl); err != nil {
		return fmt.Errorf("set surface to cache: %w", err)
	}
	return nil
}
