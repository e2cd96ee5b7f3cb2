package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// 收益曲线默认网格：现价上下 30%，100 个分段
const (
	DefaultPayoffLoRatio = 0.7
	DefaultPayoffHiRatio = 1.3
	DefaultPayoffSteps   = 100
)

// Leg 组合中的一条腿：合约加带符号数量，负数表示空头
type Leg struct {
	Instrument Instrument
	Quantity   decimal.Decimal
	pricer     Pricer
}

// NewLeg 构造腿并在此时解析定价器：美式走二叉树，欧式走闭式解
func NewLeg(ins Instrument, qty decimal.Decimal, latticeSteps int) (Leg, error) {
	if err := ins.Validate(); err != nil {
		return Leg{}, err
	}
	if qty.IsZero() {
		return Leg{}, fmt.Errorf("%w: leg quantity must be non-zero", ErrInvalidInstrument)
	}
	return Leg{
		Instrument: ins,
		Quantity:   qty,
		pricer:     PricerFor(ins.Style, latticeSteps),
	}, nil
}

// PricerFor 按行权方式选择定价器
func PricerFor(style ExerciseStyle, latticeSteps int) Pricer {
	if style == StyleAmerican {
		return NewLatticePricer(latticeSteps)
	}
	return NewAnalyticPricer()
}

// Portfolio 共享同一市场环境的有序腿序列；腿的插入顺序保留用于响应回显
type Portfolio struct {
	Market MarketContext
	Legs   []Leg
}

// NewPortfolio 构造组合；空组合在到达定价器前即被拒绝
func NewPortfolio(mkt MarketContext, legs []Leg) (*Portfolio, error) {
	if err := mkt.Validate(); err != nil {
		return nil, err
	}
	if len(legs) == 0 {
		return nil, ErrEmptyPortfolio
	}
	return &Portfolio{Market: mkt, Legs: legs}, nil
}

// LegResult 单条腿的定价结果（单位合约口径，未乘数量）
type LegResult struct {
	Instrument Instrument
	Quantity   decimal.Decimal
	Price      float64
	Greeks     Greeks
	Model      ExerciseStyle
}

// PortfolioResult 组合净价与净希腊字母；线性叠加保证
// N 倍数量的组合价格恰为单腿的 N 倍
type PortfolioResult struct {
	TotalPrice decimal.Decimal
	Greeks     Greeks
	Legs       []LegResult
}

// PriceAll 为每条腿用其构造时解析的定价器定价，按带符号数量缩放后求和
func (p *Portfolio) PriceAll() (*PortfolioResult, error) {
	result := &PortfolioResult{
		Legs: make([]LegResult, 0, len(p.Legs)),
	}

	for i, leg := range p.Legs {
		unit, err := leg.pricer.Price(p.Market, leg.Instrument)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}

		qty, _ := leg.Quantity.Float64()
		result.TotalPrice = result.TotalPrice.Add(decimal.NewFromFloat(unit.Price).Mul(leg.Quantity))
		result.Greeks = result.Greeks.Add(unit.Greeks.Scale(qty))

		result.Legs = append(result.Legs, LegResult{
			Instrument: leg.Instrument,
			Quantity:   leg.Quantity,
			Price:      unit.Price,
			Greeks:     unit.Greeks,
			Model:      unit.Model,
		})
	}

	return result, nil
}

// PayoffCurve 组合盈亏曲线：等长的现价网格与对应 P&L
type PayoffCurve struct {
	SpotPrices []float64 `json:"spot_prices"`
	Payoffs    []float64 `json:"payoffs"`
}

// PayoffConfig 收益曲线网格配置
type PayoffConfig struct {
	LoRatio float64 // 网格下界与现价之比
	HiRatio float64 // 网格上界与现价之比
	Steps   int     // 分段数，网格点数为 Steps+1
}

// DefaultPayoffConfig 默认收益曲线配置
func DefaultPayoffConfig() PayoffConfig {
	return PayoffConfig{
		LoRatio: DefaultPayoffLoRatio,
		HiRatio: DefaultPayoffHiRatio,
		Steps:   DefaultPayoffSteps,
	}
}

// Payoff 在等距现价网格上重定价整个组合（利率、波动率、期限不变），
// 减去原现价下的净权利金，得到 P&L 曲线
func (p *Portfolio) Payoff(cfg PayoffConfig) (*PayoffCurve, error) {
	if cfg.Steps < 1 {
		return nil, fmt.Errorf("%w: payoff steps must be positive, got %d", ErrInvalidMarket, cfg.Steps)
	}
	if !(cfg.LoRatio > 0 && cfg.LoRatio < cfg.HiRatio) {
		return nil, fmt.Errorf("%w: payoff range [%v, %v] is not increasing and positive",
			ErrInvalidMarket, cfg.LoRatio, cfg.HiRatio)
	}

	base, err := p.PriceAll()
	if err != nil {
		return nil, err
	}
	premium, _ := base.TotalPrice.Float64()

	lo := p.Market.Spot * cfg.LoRatio
	hi := p.Market.Spot * cfg.HiRatio
	step := (hi - lo) / float64(cfg.Steps)

	curve := &PayoffCurve{
		SpotPrices: make([]float64, 0, cfg.Steps+1),
		Payoffs:    make([]float64, 0, cfg.Steps+1),
	}

	for i := 0; i <= cfg.Steps; i++ {
		spot := lo + step*float64(i)
		shifted := Portfolio{
			Market: MarketContext{Spot: spot, Rate: p.Market.Rate},
			Legs:   p.Legs,
		}
		value, err := shifted.PriceAll()
		if err != nil {
			return nil, fmt.Errorf("payoff at spot %v: %w", spot, err)
		}
		v, _ := value.TotalPrice.Float64()

		curve.SpotPrices = append(curve.SpotPrices, spot)
		curve.Payoffs = append(curve.Payoffs, v-premium)
	}

	return curve, nil
}
