package domain

import "context"

// SurfaceCache 曲面结果缓存仓库；实现由基础设施层提供。
// Get 未命中时返回 (nil, false, nil)，缓存故障不应阻断定价
type SurfaceCache interface {
	Get(ctx context.Context, key string) (*GreeksSurface, bool, error)
	Set(ctx context.Context, key string, surface *GreeksSurface) error
}
