package application

import (
	"github.com/wyfcoding/optionpricer/internal/pricing/domain"
)

// PriceOptionCommand 单一期权定价命令
type PriceOptionCommand struct {
	Type       string  // call / put
	Spot       float64 //
	Strike     float64 //
	Rate       float64 // 连续复利，可为 0 或负
	Volatility float64 //
	Time       float64 // 年化剩余期限
	Model      string  // european / american，缺省 european
}

// LegCommand 组合中一条腿的输入
type LegCommand struct {
	Type       string  // 行权方式 european / american，缺省 european
	OptionType string  // call / put，缺省 call
	Strike     float64 //
	Volatility float64 //
	Time       float64 //
	Quantity   float64 // 带符号数量，缺省 1
}

// PricePortfolioCommand 组合定价命令
type PricePortfolioCommand struct {
	Spot        float64
	Rate        float64
	Legs        []LegCommand
	PayoffSteps int // 收益曲线分段数，非正时使用服务默认值
}

// StrategyCommand 策略模板定价命令
type StrategyCommand struct {
	Strategy   string
	Spot       float64
	Strike     float64
	Rate       float64
	Volatility float64
	Time       float64
	IsLong     bool
}

// GreeksDTO 希腊字母响应
type GreeksDTO struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"` // 年化衰减口径
	Rho   float64 `json:"rho"`
}

// OptionPriceDTO 单一期权定价响应
type OptionPriceDTO struct {
	Price  float64 `json:"price"`
	Delta  float64 `json:"delta"`
	Gamma  float64 `json:"gamma"`
	Vega   float64 `json:"vega"`
	Theta  float64 `json:"theta"`
	Rho    float64 `json:"rho"`
	Spot   float64 `json:"spot"`
	Strike float64 `json:"strike"`
	Type   string  `json:"type"`
	Model  string  `json:"model"`
}

// LegDTO 组合响应中单条腿的回显，model 标签为实际使用的定价模型
type LegDTO struct {
	OptionType string  `json:"optionType"`
	Model      string  `json:"model"`
	Strike     float64 `json:"strike"`
	Price      float64 `json:"price"`
	Quantity   float64 `json:"quantity"`
	Delta      float64 `json:"delta"`
	Gamma      float64 `json:"gamma"`
	Vega       float64 `json:"vega"`
	Theta      float64 `json:"theta"`
	Rho        float64 `json:"rho"`
}

// PayoffDTO 收益曲线：等长且现价严格递增的两个序列
type PayoffDTO struct {
	SpotPrices []float64 `json:"spot_prices"`
	Payoffs    []float64 `json:"payoffs"`
}

// PortfolioDTO 组合定价响应
type PortfolioDTO struct {
	Spot       float64   `json:"spot"`
	TotalPrice float64   `json:"totalPrice"`
	Greeks     GreeksDTO `json:"greeks"`
	Legs       []LegDTO  `json:"legs"`
	Payoff     PayoffDTO `json:"payoff"`
}

// SurfaceDTO 希腊字母曲面响应
type SurfaceDTO struct {
	Surface   [][]domain.SurfacePoint `json:"surface"`
	SpotRange [2]float64              `json:"spot_range"`
	TimeRange [2]float64              `json:"time_range"`
}

// StrategyPriceDTO 策略模板定价响应
type StrategyPriceDTO struct {
	Strategy string    `json:"strategy"`
	IsLong   bool      `json:"is_long"`
	Price    float64   `json:"price"`
	Delta    float64   `json:"delta"`
	Gamma    float64   `json:"gamma"`
	Vega     float64   `json:"vega"`
	Theta    float64   `json:"theta"`
	Rho      float64   `json:"rho"`
	NumLegs  int       `json:"num_legs"`
	Payoff   PayoffDTO `json:"payoff"`
}

// toGreeksDTO 领域希腊字母转响应
func toGreeksDTO(g domain.Greeks) GreeksDTO {
	return GreeksDTO{
		Delta: g.Delta,
		Gamma: g.Gamma,
		Vega:  g.Vega,
		Theta: g.Theta,
		Rho:   g.Rho,
	}
}

// toPayoffDTO 领域收益曲线转响应
func toPayoffDTO(c *domain.PayoffCurve) PayoffDTO {
	return PayoffDTO{
		SpotPrices: c.SpotPrices,
		Payoffs:    c.Payoffs,
	}
}
