// Package domain 定价服务的领域模型：期权合约、市场环境与定价器
package domain

import (
	"errors"
	"fmt"
	"math"
)

// OptionType 期权类型
type OptionType string

const (
	OptionTypeCall OptionType = "call" // 看涨期权
	OptionTypePut  OptionType = "put"  // 看跌期权
)

// ExerciseStyle 行权方式，同时作为响应中的模型标签
type ExerciseStyle string

const (
	StyleEuropean ExerciseStyle = "european" // 欧式，仅到期日可行权
	StyleAmerican ExerciseStyle = "american" // 美式，到期前任意时点可行权
)

var (
	// ErrInvalidInstrument 合约参数非法（缺失或非正）
	ErrInvalidInstrument = errors.New("invalid instrument parameters")
	// ErrInvalidMarket 市场参数非法
	ErrInvalidMarket = errors.New("invalid market parameters")
	// ErrEmptyPortfolio 组合不含任何腿
	ErrEmptyPortfolio = errors.New("portfolio has no legs")
	// ErrNumericalInstability 数值不稳定（如风险中性概率越界）
	ErrNumericalInstability = errors.New("numerical instability")
	// ErrUnsupportedGrid 曲面网格参数退化，无法计算
	ErrUnsupportedGrid = errors.New("unsupported surface grid")
	// ErrUnknownStrategy 未知的策略模板名称
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// MarketContext 市场环境，单次请求内不可变
type MarketContext struct {
	Spot float64 `json:"spot"` // 标的现价，必须为正
	Rate float64 `json:"rate"` // 连续复利无风险利率，可为任意实数
}

// Validate 校验市场参数
func (m MarketContext) Validate() error {
	if m.Spot <= 0 {
		return fmt.Errorf("%w: spot must be positive, got %v", ErrInvalidMarket, m.Spot)
	}
	if math.IsNaN(m.Rate) || math.IsInf(m.Rate, 0) {
		return fmt.Errorf("%w: rate must be finite", ErrInvalidMarket)
	}
	return nil
}

// Instrument 单一期权合约，不可变值类型；波动率按合约挂载，
// 同一组合内各腿可使用不同的隐含波动率
type Instrument struct {
	Type         OptionType    `json:"type"`
	Style        ExerciseStyle `json:"style"`
	Strike       float64       `json:"strike"`
	Volatility   float64       `json:"volatility"`
	TimeToExpiry float64       `json:"time"`
}

// Validate 校验合约参数
func (ins Instrument) Validate() error {
	if ins.Type != OptionTypeCall && ins.Type != OptionTypePut {
		return fmt.Errorf("%w: type must be call or put, got %q", ErrInvalidInstrument, ins.Type)
	}
	if ins.Style != StyleEuropean && ins.Style != StyleAmerican {
		return fmt.Errorf("%w: style must be european or american, got %q", ErrInvalidInstrument, ins.Style)
	}
	if ins.Strike <= 0 {
		return fmt.Errorf("%w: strike must be positive, got %v", ErrInvalidInstrument, ins.Strike)
	}
	if ins.Volatility <= 0 {
		return fmt.Errorf("%w: volatility must be positive, got %v", ErrInvalidInstrument, ins.Volatility)
	}
	if ins.TimeToExpiry <= 0 {
		return fmt.Errorf("%w: time to expiry must be positive, got %v", ErrInvalidInstrument, ins.TimeToExpiry)
	}
	return nil
}

// Intrinsic 当前现价下的内在价值
func (ins Instrument) Intrinsic(spot float64) float64 {
	if ins.Type == OptionTypeCall {
		return math.Max(spot-ins.Strike, 0)
	}
	return math.Max(ins.Strike-spot, 0)
}

// Greeks 希腊字母，一阶/二阶价格敏感度
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	Rho   float64 `json:"rho"`
}

// Scale 返回按数量缩放后的希腊字母
func (g Greeks) Scale(qty float64) Greeks {
	return Greeks{
		Delta: g.Delta * qty,
		Gamma: g.Gamma * qty,
		Vega:  g.Vega * qty,
		Theta: g.Theta * qty,
		Rho:   g.Rho * qty,
	}
}

// Add 返回两组希腊字母之和
func (g Greeks) Add(o Greeks) Greeks {
	return Greeks{
		Delta: g.Delta + o.Delta,
		Gamma: g.Gamma + o.Gamma,
		Vega:  g.Vega + o.Vega,
		Theta: g.Theta + o.Theta,
		Rho:   g.Rho + o.Rho,
	}
}

// finite 检查所有字段是否均为有限值
func (g Greeks) finite() bool {
	for _, v := range []float64{g.Delta, g.Gamma, g.Vega, g.Theta, g.Rho} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// PricingResult 单一合约的定价结果
type PricingResult struct {
	Price  float64       `json:"price"`
	Greeks Greeks        `json:"greeks"`
	Model  ExerciseStyle `json:"model"` // 实际使用的定价模型标签
}

// checkFinite 确保结果不含 NaN/Inf；任何非有限值都视为数值不稳定
func (r *PricingResult) checkFinite() error {
	if math.IsNaN(r.Price) || math.IsInf(r.Price, 0) || !r.Greeks.finite() {
		return fmt.Errorf("%w: non-finite pricing result", ErrNumericalInstability)
	}
	return nil
}

// Pricer 定价能力接口：每条腿在构造时解析到具体定价器
type Pricer interface {
	// Price 在给定市场环境下为合约定价
	Price(mkt MarketContext, ins Instrument) (*PricingResult, error)
}
