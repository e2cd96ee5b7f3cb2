package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/optionpricer/internal/pricing/domain"
	"github.com/wyfcoding/optionpricer/pkg/logger"
	"github.com/wyfcoding/optionpricer/pkg/metrics"
)

// Options 定价服务运行参数
type Options struct {
	LatticeSteps    int // 二叉树步数
	PayoffSteps     int // 收益曲线分段数
	SurfaceMaxSteps int // 曲面每轴分段数上限
}

// PricingService 定价应用服务：参数校验、默认值补全、
// 领域引擎编排与 DTO 映射
type PricingService struct {
	opts    Options
	surface domain.SurfaceGenerator
	cache   domain.SurfaceCache // 可为 nil，此时曲面不做记忆化
	metrics *metrics.Metrics    // 可为 nil
}

// NewPricingService 创建定价服务；cache 与 m 均可为 nil
func NewPricingService(opts Options, cache domain.SurfaceCache, m *metrics.Metrics) *PricingService {
	if opts.LatticeSteps < 2 {
		opts.LatticeSteps = domain.DefaultLatticeSteps
	}
	if opts.PayoffSteps < 1 {
		opts.PayoffSteps = domain.DefaultPayoffSteps
	}
	return &PricingService{
		opts:    opts,
		surface: domain.NewSurfaceGenerator(opts.SurfaceMaxSteps),
		cache:   cache,
		metrics: m,
	}
}

// normalizeStyle 模型名缺省为欧式
func normalizeStyle(model string) domain.ExerciseStyle {
	if model == "" {
		return domain.StyleEuropean
	}
	return domain.ExerciseStyle(model)
}

// PriceOption 单一期权定价
func (s *PricingService) PriceOption(ctx context.Context, cmd PriceOptionCommand) (*OptionPriceDTO, error) {
	style := normalizeStyle(cmd.Model)
	mkt := domain.MarketContext{Spot: cmd.Spot, Rate: cmd.Rate}
	ins := domain.Instrument{
		Type:         domain.OptionType(cmd.Type),
		Style:        style,
		Strike:       cmd.Strike,
		Volatility:   cmd.Volatility,
		TimeToExpiry: cmd.Time,
	}
	if err := mkt.Validate(); err != nil {
		return nil, err
	}
	if err := ins.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := domain.PricerFor(style, s.opts.LatticeSteps).Price(mkt, ins)
	if err != nil {
		return nil, err
	}
	s.observePricing(string(style), time.Since(start))

	logger.Debug(ctx, "option priced",
		"type", cmd.Type, "model", string(style), "price", result.Price)

	return &OptionPriceDTO{
		Price:  result.Price,
		Delta:  result.Greeks.Delta,
		Gamma:  result.Greeks.Gamma,
		Vega:   result.Greeks.Vega,
		Theta:  result.Greeks.Theta,
		Rho:    result.Greeks.Rho,
		Spot:   cmd.Spot,
		Strike: cmd.Strike,
		Type:   cmd.Type,
		Model:  string(result.Model),
	}, nil
}

// buildPortfolio 把组合命令展开成领域组合，逐腿补全默认值
func (s *PricingService) buildPortfolio(cmd PricePortfolioCommand) (*domain.Portfolio, error) {
	mkt := domain.MarketContext{Spot: cmd.Spot, Rate: cmd.Rate}
	if err := mkt.Validate(); err != nil {
		return nil, err
	}

	legs := make([]domain.Leg, 0, len(cmd.Legs))
	for i, lc := range cmd.Legs {
		optType := lc.OptionType
		if optType == "" {
			optType = string(domain.OptionTypeCall)
		}
		qty := lc.Quantity
		if qty == 0 {
			qty = 1
		}
		ins := domain.Instrument{
			Type:         domain.OptionType(optType),
			Style:        normalizeStyle(lc.Type),
			Strike:       lc.Strike,
			Volatility:   lc.Volatility,
			TimeToExpiry: lc.Time,
		}
		leg, err := domain.NewLeg(ins, decimal.NewFromFloat(qty), s.opts.LatticeSteps)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
		legs = append(legs, leg)
	}

	return domain.NewPortfolio(mkt, legs)
}

// portfolioDTO 组合定价 + 收益曲线，映射为响应
func (s *PricingService) portfolioDTO(p *domain.Portfolio, payoffSteps int) (*PortfolioDTO, error) {
	result, err := p.PriceAll()
	if err != nil {
		return nil, err
	}

	cfg := domain.DefaultPayoffConfig()
	if payoffSteps > 0 {
		cfg.Steps = payoffSteps
	} else if s.opts.PayoffSteps > 0 {
		cfg.Steps = s.opts.PayoffSteps
	}
	curve, err := p.Payoff(cfg)
	if err != nil {
		return nil, err
	}

	legs := make([]LegDTO, 0, len(result.Legs))
	for _, lr := range result.Legs {
		qty, _ := lr.Quantity.Float64()
		legs = append(legs, LegDTO{
			OptionType: string(lr.Instrument.Type),
			Model:      string(lr.Model),
			Strike:     lr.Instrument.Strike,
			Price:      lr.Price,
			Quantity:   qty,
			Delta:      lr.Greeks.Delta,
			Gamma:      lr.Greeks.Gamma,
			Vega:       lr.Greeks.Vega,
			Theta:      lr.Greeks.Theta,
			Rho:        lr.Greeks.Rho,
		})
	}

	total, _ := result.TotalPrice.Float64()
	return &PortfolioDTO{
		Spot:       p.Market.Spot,
		TotalPrice: total,
		Greeks:     toGreeksDTO(result.Greeks),
		Legs:       legs,
		Payoff:     toPayoffDTO(curve),
	}, nil
}

// PricePortfolio 组合定价：净价、净希腊字母、逐腿明细与 P&L 曲线
func (s *PricingService) PricePortfolio(ctx context.Context, cmd PricePortfolioCommand) (*PortfolioDTO, error) {
	p, err := s.buildPortfolio(cmd)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	dto, err := s.portfolioDTO(p, cmd.PayoffSteps)
	if err != nil {
		return nil, err
	}
	s.observePricing("portfolio", time.Since(start))
	if s.metrics != nil {
		s.metrics.PortfolioLegs.Observe(float64(len(cmd.Legs)))
	}

	logger.Debug(ctx, "portfolio priced",
		"legs", len(cmd.Legs), "total", dto.TotalPrice)
	return dto, nil
}

// surfaceKey 曲面请求指纹，作为缓存键
func surfaceKey(q domain.SurfaceQuery) string {
	return fmt.Sprintf("%s:%g:%g:%g:%g-%g:%g-%g:%d",
		q.Type, q.Strike, q.Rate, q.Volatility,
		q.SpotRange[0], q.SpotRange[1], q.TimeRange[0], q.TimeRange[1], q.Steps)
}

// GenerateSurface 生成希腊字母曲面；命中缓存时直接返回
func (s *PricingService) GenerateSurface(ctx context.Context, q domain.SurfaceQuery) (*SurfaceDTO, error) {
	key := surfaceKey(q)
	if s.cache != nil {
		cached, found, err := s.cache.Get(ctx, key)
		if err != nil {
			logger.Warn(ctx, "surface cache read failed", "error", err)
		}
		if found {
			if s.metrics != nil {
				s.metrics.SurfaceCacheHits.Inc()
			}
			return surfaceDTO(cached), nil
		}
		if s.metrics != nil {
			s.metrics.SurfaceCacheMisses.Inc()
		}
	}

	start := time.Now()
	surface, err := s.surface.Generate(q)
	if err != nil {
		return nil, err
	}
	s.observePricing("surface", time.Since(start))

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, surface); err != nil {
			logger.Warn(ctx, "surface cache write failed", "error", err)
		}
	}

	logger.Debug(ctx, "surface generated",
		"steps", q.Steps, "type", string(q.Type))
	return surfaceDTO(surface), nil
}

func surfaceDTO(s *domain.GreeksSurface) *SurfaceDTO {
	return &SurfaceDTO{
		Surface:   s.Points,
		SpotRange: s.SpotRange,
		TimeRange: s.TimeRange,
	}
}

// ListStrategies 返回支持的策略模板名称
func (s *PricingService) ListStrategies() []string {
	return domain.AvailableStrategies()
}

// PriceStrategy 按模板展开多腿组合并定价
func (s *PricingService) PriceStrategy(ctx context.Context, cmd StrategyCommand) (*StrategyPriceDTO, error) {
	p, err := domain.BuildStrategy(cmd.Strategy, domain.StrategyParams{
		Market:       domain.MarketContext{Spot: cmd.Spot, Rate: cmd.Rate},
		Strike:       cmd.Strike,
		Volatility:   cmd.Volatility,
		TimeToExpiry: cmd.Time,
		IsLong:       cmd.IsLong,
		LatticeSteps: s.opts.LatticeSteps,
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	dto, err := s.portfolioDTO(p, 0)
	if err != nil {
		return nil, err
	}
	s.observePricing("strategy", time.Since(start))

	logger.Debug(ctx, "strategy priced",
		"strategy", cmd.Strategy, "long", cmd.IsLong, "price", dto.TotalPrice)

	return &StrategyPriceDTO{
		Strategy: cmd.Strategy,
		IsLong:   cmd.IsLong,
		Price:    dto.TotalPrice,
		Delta:    dto.Greeks.Delta,
		Gamma:    dto.Greeks.Gamma,
		Vega:     dto.Greeks.Vega,
		Theta:    dto.Greeks.Theta,
		Rho:      dto.Greeks.Rho,
		NumLegs:  len(dto.Legs),
		Payoff:   dto.Payoff,
	}, nil
}

func (s *PricingService) observePricing(model string, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.PricingsTotal.WithLabelValues(model).Inc()
	s.metrics.PricingDuration.Observe(elapsed.Seconds())
}
