package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// StrategyParams 策略模板展开参数；K 为锚定行权价，
// 各腿的实际行权价由模板按固定比例推导
type StrategyParams struct {
	Market       MarketContext
	Strike       float64
	Volatility   float64
	TimeToExpiry float64
	IsLong       bool
	LatticeSteps int
}

// AvailableStrategies 返回支持的策略模板名称
func AvailableStrategies() []string {
	return []string{
		"straddle",
		"strangle",
		"bull_call",
		"bull_call_spread",
		"iron_condor",
		"butterfly",
	}
}

// BuildStrategy 将命名策略模板展开为组合；所有腿按欧式定价。
// IsLong=false 时整体反向（各腿数量取反）
func BuildStrategy(name string, p StrategyParams) (*Portfolio, error) {
	var specs []legSpec
	var err error

	switch name {
	case "straddle":
		// 同价买入看涨加看跌
		specs = []legSpec{
			{OptionTypeCall, p.Strike, 1},
			{OptionTypePut, p.Strike, 1},
		}
	case "strangle":
		// 虚值 5% 的看涨与看跌
		specs = []legSpec{
			{OptionTypeCall, p.Strike * 1.05, 1},
			{OptionTypePut, p.Strike * 0.95, 1},
		}
	case "bull_call", "bull_call_spread":
		// 买入平值看涨，卖出高 5% 看涨
		specs = []legSpec{
			{OptionTypeCall, p.Strike, 1},
			{OptionTypeCall, p.Strike * 1.05, -1},
		}
	case "iron_condor":
		specs, err = ironCondorSpecs(p.Strike*0.95, p.Strike*0.98, p.Strike*1.02, p.Strike*1.05)
		if err != nil {
			return nil, err
		}
	case "butterfly":
		// 对称蝶式：两翼买入，中间双倍卖出
		specs = []legSpec{
			{OptionTypeCall, p.Strike * 0.95, 1},
			{OptionTypeCall, p.Strike, -2},
			{OptionTypeCall, p.Strike * 1.05, 1},
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}

	legs := make([]Leg, 0, len(specs))
	for _, spec := range specs {
		qty := spec.quantity
		if !p.IsLong {
			qty = -qty
		}
		leg, err := NewLeg(
			Instrument{
				Type:         spec.optionType,
				Style:        StyleEuropean,
				Strike:       spec.strike,
				Volatility:   p.Volatility,
				TimeToExpiry: p.TimeToExpiry,
			},
			decimal.NewFromInt(int64(qty)),
			p.LatticeSteps,
		)
		if err != nil {
			return nil, err
		}
		legs = append(legs, leg)
	}

	return NewPortfolio(p.Market, legs)
}

// legSpec 模板中一条腿的静态描述
type legSpec struct {
	optionType OptionType
	strike     float64
	quantity   int
}

// ironCondorSpecs 铁鹰：卖出中间价差、买入两翼保护。
// 行权价必须满足 longPut < shortPut < shortCall < longCall
func ironCondorSpecs(longPut, shortPut, shortCall, longCall float64) ([]legSpec, error) {
	if !(longPut < shortPut && shortPut < shortCall && shortCall < longCall) {
		return nil, fmt.Errorf(
			"%w: iron condor strike ordering requires longPut < shortPut < shortCall < longCall, got %v %v %v %v",
			ErrInvalidInstrument, longPut, shortPut, shortCall, longCall)
	}
	return []legSpec{
		{OptionTypePut, longPut, 1},
		{OptionTypePut, shortPut, -1},
		{OptionTypeCall, shortCall, -1},
		{OptionTypeCall, longCall, 1},
	}, nil
}
