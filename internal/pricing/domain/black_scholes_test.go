package domain

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func refMarket() MarketContext {
	return MarketContext{Spot: 100, Rate: 0.05}
}

func refInstrument(t OptionType) Instrument {
	return Instrument{
		Type:         t,
		Style:        StyleEuropean,
		Strike:       100,
		Volatility:   0.2,
		TimeToExpiry: 1,
	}
}

func TestAnalytic_Prices_ReferenceCase(t *testing.T) {
	// 经典参数：S=100,K=100,r=0.05,sigma=0.2,T=1
	// 期望值（用于回归）：Call≈10.4505835722, Put≈5.5735260223
	pricer := NewAnalyticPricer()

	call, err := pricer.Price(refMarket(), refInstrument(OptionTypeCall))
	if err != nil {
		t.Fatalf("call err: %v", err)
	}
	put, err := pricer.Price(refMarket(), refInstrument(OptionTypePut))
	if err != nil {
		t.Fatalf("put err: %v", err)
	}

	if !almostEqual(call.Price, 10.450583572185565, 1e-9) {
		t.Fatalf("call price mismatch: got=%v", call.Price)
	}
	if !almostEqual(put.Price, 5.573526022256971, 1e-9) {
		t.Fatalf("put price mismatch: got=%v", put.Price)
	}
	if call.Model != StyleEuropean || put.Model != StyleEuropean {
		t.Fatalf("model tag mismatch: call=%v put=%v", call.Model, put.Model)
	}
}

func TestAnalytic_PutCallParity(t *testing.T) {
	// Put-Call Parity: C - P = S - K*e^{-rT}
	pricer := NewAnalyticPricer()
	mkt := refMarket()

	call, _ := pricer.Price(mkt, refInstrument(OptionTypeCall))
	put, _ := pricer.Price(mkt, refInstrument(OptionTypePut))

	left := call.Price - put.Price
	right := mkt.Spot - 100*math.Exp(-mkt.Rate*1)

	if !almostEqual(left, right, 1e-9) {
		t.Fatalf("parity mismatch: left=%v right=%v", left, right)
	}
}

func TestAnalytic_Greeks_ReferenceCase(t *testing.T) {
	pricer := NewAnalyticPricer()

	call, _ := pricer.Price(refMarket(), refInstrument(OptionTypeCall))
	put, _ := pricer.Price(refMarket(), refInstrument(OptionTypePut))

	// delta_call = N(d1), d1 = 0.35
	if !almostEqual(call.Greeks.Delta, 0.6368, 0.01) {
		t.Fatalf("call delta mismatch: got=%v", call.Greeks.Delta)
	}
	// delta_put = delta_call - 1，严格成立
	if !almostEqual(put.Greeks.Delta, call.Greeks.Delta-1, 1e-12) {
		t.Fatalf("put delta parity mismatch: call=%v put=%v", call.Greeks.Delta, put.Greeks.Delta)
	}
	// gamma/vega 看涨看跌共享，均非负
	if !almostEqual(call.Greeks.Gamma, put.Greeks.Gamma, 1e-12) || call.Greeks.Gamma < 0 {
		t.Fatalf("gamma mismatch: call=%v put=%v", call.Greeks.Gamma, put.Greeks.Gamma)
	}
	if !almostEqual(call.Greeks.Vega, put.Greeks.Vega, 1e-12) || call.Greeks.Vega < 0 {
		t.Fatalf("vega mismatch: call=%v put=%v", call.Greeks.Vega, put.Greeks.Vega)
	}
	// 平值多头期权随时间衰减
	if call.Greeks.Theta >= 0 || put.Greeks.Theta >= 0 {
		t.Fatalf("theta sign mismatch: call=%v put=%v", call.Greeks.Theta, put.Greeks.Theta)
	}
	// rho 符号：看涨为正、看跌为负
	if call.Greeks.Rho <= 0 || put.Greeks.Rho >= 0 {
		t.Fatalf("rho sign mismatch: call=%v put=%v", call.Greeks.Rho, put.Greeks.Rho)
	}
}

func TestAnalytic_DeltaBounds(t *testing.T) {
	pricer := NewAnalyticPricer()

	for _, spot := range []float64{10, 50, 90, 100, 110, 200, 1000} {
		mkt := MarketContext{Spot: spot, Rate: 0.05}
		call, err := pricer.Price(mkt, refInstrument(OptionTypeCall))
		if err != nil {
			t.Fatalf("spot=%v call err: %v", spot, err)
		}
		put, err := pricer.Price(mkt, refInstrument(OptionTypePut))
		if err != nil {
			t.Fatalf("spot=%v put err: %v", spot, err)
		}
		if call.Greeks.Delta < 0 || call.Greeks.Delta > 1 {
			t.Fatalf("spot=%v call delta out of [0,1]: %v", spot, call.Greeks.Delta)
		}
		if put.Greeks.Delta < -1 || put.Greeks.Delta > 0 {
			t.Fatalf("spot=%v put delta out of [-1,0]: %v", spot, put.Greeks.Delta)
		}
	}
}

func TestAnalytic_T0_IntrinsicValue(t *testing.T) {
	pricer := NewAnalyticPricer()
	mkt := MarketContext{Spot: 90, Rate: 0.05}
	ins := refInstrument(OptionTypeCall)
	ins.TimeToExpiry = 0

	call, err := pricer.Price(mkt, ins)
	if err != nil {
		t.Fatalf("call err: %v", err)
	}
	if call.Price != 0 {
		t.Fatalf("call intrinsic mismatch: got=%v", call.Price)
	}

	ins.Type = OptionTypePut
	put, err := pricer.Price(mkt, ins)
	if err != nil {
		t.Fatalf("put err: %v", err)
	}
	if put.Price != 10 {
		t.Fatalf("put intrinsic mismatch: got=%v", put.Price)
	}
}

func TestAnalytic_Sigma0_Deterministic(t *testing.T) {
	// sigma=0 时：Call = max(S - K*e^{-rT}, 0)
	pricer := NewAnalyticPricer()
	mkt := refMarket()
	ins := Instrument{
		Type:         OptionTypeCall,
		Style:        StyleEuropean,
		Strike:       120,
		Volatility:   0,
		TimeToExpiry: 1,
	}

	call, err := pricer.Price(mkt, ins)
	if err != nil {
		t.Fatalf("call err: %v", err)
	}
	want := math.Max(100-120*math.Exp(-0.05), 0)
	if !almostEqual(call.Price, want, 1e-12) {
		t.Fatalf("sigma0 call mismatch: got=%v want=%v", call.Price, want)
	}
}

func TestAnalytic_InvalidInputs(t *testing.T) {
	pricer := NewAnalyticPricer()

	_, err := pricer.Price(MarketContext{Spot: -1, Rate: 0.05}, refInstrument(OptionTypeCall))
	if !errors.Is(err, ErrInvalidMarket) {
		t.Fatalf("expected market error for invalid spot, got %v", err)
	}

	ins := refInstrument(OptionTypeCall)
	ins.Strike = 0
	_, err = pricer.Price(refMarket(), ins)
	if !errors.Is(err, ErrInvalidInstrument) {
		t.Fatalf("expected instrument error for invalid strike, got %v", err)
	}
}

func TestAnalytic_NegativeRate(t *testing.T) {
	// 负利率是合法输入
	pricer := NewAnalyticPricer()
	mkt := MarketContext{Spot: 100, Rate: -0.01}

	call, err := pricer.Price(mkt, refInstrument(OptionTypeCall))
	if err != nil {
		t.Fatalf("call err: %v", err)
	}
	put, err := pricer.Price(mkt, refInstrument(OptionTypePut))
	if err != nil {
		t.Fatalf("put err: %v", err)
	}

	left := call.Price - put.Price
	right := 100 - 100*math.Exp(0.01)
	if !almostEqual(left, right, 1e-9) {
		t.Fatalf("negative-rate parity mismatch: left=%v right=%v", left, right)
	}
}
