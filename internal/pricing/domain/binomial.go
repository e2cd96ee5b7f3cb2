package domain

import (
	"fmt"
	"math"
)

// DefaultLatticeSteps 二叉树默认步数；内部常量，不属于对外契约
const DefaultLatticeSteps = 600

// latticeBump 有限差分法计算 vega/rho 时的参数扰动幅度
const latticeBump = 0.01

// LatticePricer Cox-Ross-Rubinstein 二叉树定价器，支持美式提前行权；
// 欧式合约作为特例同样可定价（收敛到闭式解）
type LatticePricer struct {
	Steps int
}

// NewLatticePricer 创建二叉树定价器，steps 非正时使用默认步数
func NewLatticePricer(steps int) LatticePricer {
	if steps < 2 {
		steps = DefaultLatticeSteps
	}
	return LatticePricer{Steps: steps}
}

// Price 二叉树定价并计算希腊字母
//
// delta/gamma/theta 直接取自树根附近第 1、2 层的节点值，
// vega/rho 通过 ±1% 扰动重算树得到
func (lp LatticePricer) Price(mkt MarketContext, ins Instrument) (*PricingResult, error) {
	if err := mkt.Validate(); err != nil {
		return nil, err
	}
	if err := ins.Validate(); err != nil {
		return nil, err
	}

	v0, v1, v2, u, d, dt, err := lp.sweep(mkt, ins)
	if err != nil {
		return nil, err
	}

	S := mkt.Spot

	// 第 1 层节点差分给出 delta
	delta := (v1[0] - v1[1]) / (S*u - S*d)

	// 第 2 层节点的两段差分给出 gamma
	hUp := S*u*u - S
	hDown := S - S*d*d
	deltaUp := (v2[0] - v2[1]) / hUp
	deltaDown := (v2[1] - v2[2]) / hDown
	gamma := (deltaUp - deltaDown) / (0.5 * (S*u*u - S*d*d))

	// 第 2 层中心节点（标的价未变、时间前进 2Δt）给出 theta
	theta := (v2[1] - v0) / (2 * dt)

	// vega/rho 无树上解析式，采用中心差分重算
	bumpedVolUp := ins
	bumpedVolUp.Volatility += latticeBump
	bumpedVolDown := ins
	bumpedVolDown.Volatility -= latticeBump

	var vega float64
	if bumpedVolDown.Volatility > 0 {
		up, err := lp.priceOnly(mkt, bumpedVolUp)
		if err != nil {
			return nil, err
		}
		down, err := lp.priceOnly(mkt, bumpedVolDown)
		if err != nil {
			return nil, err
		}
		vega = (up - down) / (2 * latticeBump)
	} else {
		// 波动率过低时退化为单侧差分
		up, err := lp.priceOnly(mkt, bumpedVolUp)
		if err != nil {
			return nil, err
		}
		vega = (up - v0) / latticeBump
	}

	mktRateUp := mkt
	mktRateUp.Rate += latticeBump
	mktRateDown := mkt
	mktRateDown.Rate -= latticeBump
	rateUp, err := lp.priceOnly(mktRateUp, ins)
	if err != nil {
		return nil, err
	}
	rateDown, err := lp.priceOnly(mktRateDown, ins)
	if err != nil {
		return nil, err
	}
	rho := (rateUp - rateDown) / (2 * latticeBump)

	result := &PricingResult{
		Price: v0,
		Greeks: Greeks{
			Delta: delta,
			Gamma: gamma,
			Vega:  vega,
			Theta: theta,
			Rho:   rho,
		},
		Model: ins.Style,
	}
	if err := result.checkFinite(); err != nil {
		return nil, err
	}
	return result, nil
}

// priceOnly 仅计算树根价格，供扰动差分使用
func (lp LatticePricer) priceOnly(mkt MarketContext, ins Instrument) (float64, error) {
	v0, _, _, _, _, _, err := lp.sweep(mkt, ins)
	return v0, err
}

// sweep 反向归纳扫描整棵树；工作内存 O(N)，只保留当前层的节点值。
// 返回树根价格、第 1 层与第 2 层的节点值以及 u/d/Δt。
// 节点 (i,j) 的标的价为 S·u^(i-2j)，子节点为 (i+1,j) 和 (i+1,j+1)。
func (lp LatticePricer) sweep(mkt MarketContext, ins Instrument) (v0 float64, v1, v2 []float64, u, d, dt float64, err error) {
	n := lp.Steps
	S, r := mkt.Spot, mkt.Rate
	sigma, T := ins.Volatility, ins.TimeToExpiry

	dt = T / float64(n)
	u = math.Exp(sigma * math.Sqrt(dt))
	d = 1 / u
	p := (math.Exp(r*dt) - d) / (u - d)

	// 风险中性概率越界意味着参数组合破坏了无套利条件，拒绝而非截断
	if !(p > 0 && p < 1) {
		return 0, nil, nil, 0, 0, 0,
			fmt.Errorf("%w: risk-neutral probability %v outside (0,1)", ErrNumericalInstability, p)
	}

	discount := math.Exp(-r * dt)
	american := ins.Style == StyleAmerican

	// 终端层收益
	values := make([]float64, n+1)
	for j := 0; j <= n; j++ {
		st := S * math.Pow(u, float64(n-2*j))
		values[j] = ins.Intrinsic(st)
	}

	v1 = make([]float64, 2)
	v2 = make([]float64, 3)
	if n == 2 {
		copy(v2, values[:3])
	}

	for i := n - 1; i >= 0; i-- {
		for j := 0; j <= i; j++ {
			continuation := discount * (p*values[j] + (1-p)*values[j+1])
			if american {
				st := S * math.Pow(u, float64(i-2*j))
				exercise := ins.Intrinsic(st)
				if exercise > continuation {
					continuation = exercise
				}
			}
			values[j] = continuation
		}
		switch i {
		case 2:
			copy(v2, values[:3])
		case 1:
			copy(v1, values[:2])
		}
	}

	return values[0], v1, v2, u, d, dt, nil
}
