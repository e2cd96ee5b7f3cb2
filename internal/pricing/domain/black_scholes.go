package domain

import (
	"fmt"
	"math"
)

// AnalyticPricer 欧式期权的 Black-Scholes 闭式解定价器
type AnalyticPricer struct{}

// NewAnalyticPricer 创建闭式解定价器
func NewAnalyticPricer() AnalyticPricer {
	return AnalyticPricer{}
}

// Price 计算欧式期权价格和全部希腊字母
//
// d1 = [ln(S/K) + (r + 0.5*sigma^2)T] / (sigma*sqrt(T)), d2 = d1 - sigma*sqrt(T)
// Call = S*N(d1) - K*e^{-rT}*N(d2); Put = K*e^{-rT}*N(-d2) - S*N(-d1)
// Theta 为年化衰减，Vega/Rho 为单位变动敏感度
func (AnalyticPricer) Price(mkt MarketContext, ins Instrument) (*PricingResult, error) {
	if err := mkt.Validate(); err != nil {
		return nil, err
	}
	if ins.Type != OptionTypeCall && ins.Type != OptionTypePut {
		return nil, fmt.Errorf("%w: type must be call or put, got %q", ErrInvalidInstrument, ins.Type)
	}
	if ins.Strike <= 0 {
		return nil, fmt.Errorf("%w: strike must be positive, got %v", ErrInvalidInstrument, ins.Strike)
	}

	// T=0 或 sigma=0 属于降精度退化区：返回确定性极限值而非报错
	if ins.TimeToExpiry <= 0 {
		return degeneratePayoff(mkt.Spot, ins, mkt.Spot-ins.Strike), nil
	}
	if ins.Volatility <= 0 {
		forward := mkt.Spot - ins.Strike*math.Exp(-mkt.Rate*ins.TimeToExpiry)
		return degeneratePayoff(mkt.Spot, ins, forward), nil
	}

	S, K, r := mkt.Spot, ins.Strike, mkt.Rate
	sigma, T := ins.Volatility, ins.TimeToExpiry

	sqrtT := math.Sqrt(T)
	d1 := calcD1(S, K, r, sigma, T)
	d2 := d1 - sigma*sqrtT
	discount := math.Exp(-r * T)

	var price, delta, theta, rho float64
	gamma := normPDF(d1) / (S * sigma * sqrtT)
	vega := S * normPDF(d1) * sqrtT

	if ins.Type == OptionTypeCall {
		price = S*normCDF(d1) - K*discount*normCDF(d2)
		delta = normCDF(d1)
		theta = -S*normPDF(d1)*sigma/(2*sqrtT) - r*K*discount*normCDF(d2)
		rho = K * T * discount * normCDF(d2)
	} else {
		price = K*discount*normCDF(-d2) - S*normCDF(-d1)
		delta = normCDF(d1) - 1
		theta = -S*normPDF(d1)*sigma/(2*sqrtT) + r*K*discount*normCDF(-d2)
		rho = -K * T * discount * normCDF(-d2)
	}

	result := &PricingResult{
		Price: price,
		Greeks: Greeks{
			Delta: delta,
			Gamma: gamma,
			Vega:  vega,
			Theta: theta,
			Rho:   rho,
		},
		Model: StyleEuropean,
	}
	if err := result.checkFinite(); err != nil {
		return nil, err
	}
	return result, nil
}

// degeneratePayoff T=0 / sigma=0 时的确定性极限：价格为 forward 收益的正部，
// delta 退化为示性函数，二阶及波动率敏感度为零
func degeneratePayoff(spot float64, ins Instrument, forward float64) *PricingResult {
	var price, delta float64
	if ins.Type == OptionTypeCall {
		price = math.Max(forward, 0)
		if forward > 0 {
			delta = 1
		}
	} else {
		price = math.Max(-forward, 0)
		if forward < 0 {
			delta = -1
		}
	}
	return &PricingResult{
		Price:  price,
		Greeks: Greeks{Delta: delta},
		Model:  StyleEuropean,
	}
}

// calcD1 计算 Black-Scholes 公式中的 d1
func calcD1(S, K, r, sigma, T float64) float64 {
	return (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / (sigma * math.Sqrt(T))
}

// normCDF 标准正态分布累积分布函数
// N(x) = 0.5 * (1 + erf(x / sqrt(2)))
func normCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

// normPDF 标准正态分布概率密度函数
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
