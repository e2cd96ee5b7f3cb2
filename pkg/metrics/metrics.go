// Package metrics 提供 Prometheus helper，包含定价服务的 counter/gauge/histogram 模板
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/optionpricer/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal prometheus.Counter
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram

	// 按模型区分的定价计数（european / american）
	PricingsTotal *prometheus.CounterVec
	// 定价耗时
	PricingDuration prometheus.Histogram
	// 组合定价的腿数分布
	PortfolioLegs prometheus.Histogram

	// 曲面缓存命中/未命中
	SurfaceCacheHits   prometheus.Counter
	SurfaceCacheMisses prometheus.Counter

	registry *prometheus.Registry
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pricing",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pricing",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		PricingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricing",
			Subsystem: serviceName,
			Name:      "pricings_total",
			Help:      "Total option pricings by model",
		}, []string{"model"}),
		PricingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pricing",
			Subsystem: serviceName,
			Name:      "pricing_duration_seconds",
			Help:      "Single pricing computation duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		PortfolioLegs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pricing",
			Subsystem: serviceName,
			Name:      "portfolio_legs",
			Help:      "Number of legs per portfolio pricing request",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		}),
		SurfaceCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pricing",
			Subsystem: serviceName,
			Name:      "surface_cache_hits_total",
			Help:      "Greeks surface cache hits",
		}),
		SurfaceCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pricing",
			Subsystem: serviceName,
			Name:      "surface_cache_misses_total",
			Help:      "Greeks surface cache misses",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PricingsTotal,
		m.PricingDuration,
		m.PortfolioLegs,
		m.SurfaceCacheHits,
		m.SurfaceCacheMisses,
	)

	return m
}

// Handler 返回 Prometheus 抓取端点的 http.Handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve 在独立端口上暴露指标端点，阻塞运行
func (m *Metrics) Serve(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "metrics endpoint listening", "addr", addr, "path", path)
	return http.ListenAndServe(addr, mux)
}
