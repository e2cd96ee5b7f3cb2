package domain

import (
	"fmt"
)

// DefaultSurfaceMaxSteps 曲面每轴分段数上限，超出视为不支持的请求
const DefaultSurfaceMaxSteps = 200

// SurfacePoint 曲面上一个 (spot, time) 网格点的价格与希腊字母
type SurfacePoint struct {
	Spot  float64 `json:"spot"`
	Time  float64 `json:"time"`
	Price float64 `json:"price"`
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	Rho   float64 `json:"rho"`
}

// GreeksSurface 现价 × 期限 网格上的希腊字母曲面；
// 外层按现价、内层按期限排列，均为 steps+1 个点
type GreeksSurface struct {
	Points    [][]SurfacePoint `json:"surface"`
	SpotRange [2]float64       `json:"spot_range"`
	TimeRange [2]float64       `json:"time_range"`
}

// SurfaceQuery 曲面生成参数
type SurfaceQuery struct {
	Type       OptionType
	Strike     float64
	Rate       float64
	Volatility float64
	SpotRange  [2]float64
	TimeRange  [2]float64
	Steps      int
}

// SurfaceGenerator 在网格上逐点调用闭式解定价器生成曲面
type SurfaceGenerator struct {
	MaxSteps int
	pricer   AnalyticPricer
}

// NewSurfaceGenerator 创建曲面生成器，maxSteps 非正时使用默认上限
func NewSurfaceGenerator(maxSteps int) SurfaceGenerator {
	if maxSteps < 1 {
		maxSteps = DefaultSurfaceMaxSteps
	}
	return SurfaceGenerator{MaxSteps: maxSteps, pricer: NewAnalyticPricer()}
}

// validate 退化网格（单点区间、非正边界、过大步数）一律拒绝而非硬算
func (g SurfaceGenerator) validate(q SurfaceQuery) error {
	if q.Steps < 1 {
		return fmt.Errorf("%w: steps must be positive, got %d", ErrUnsupportedGrid, q.Steps)
	}
	if q.Steps > g.MaxSteps {
		return fmt.Errorf("%w: steps %d exceeds maximum %d", ErrUnsupportedGrid, q.Steps, g.MaxSteps)
	}
	if !(q.SpotRange[0] > 0 && q.SpotRange[0] < q.SpotRange[1]) {
		return fmt.Errorf("%w: spot_range [%v, %v] must be positive and increasing",
			ErrUnsupportedGrid, q.SpotRange[0], q.SpotRange[1])
	}
	if !(q.TimeRange[0] > 0 && q.TimeRange[0] < q.TimeRange[1]) {
		return fmt.Errorf("%w: time_range [%v, %v] must be positive and increasing",
			ErrUnsupportedGrid, q.TimeRange[0], q.TimeRange[1])
	}
	if q.Strike <= 0 || q.Volatility <= 0 {
		return fmt.Errorf("%w: strike and volatility must be positive", ErrUnsupportedGrid)
	}
	if q.Type != OptionTypeCall && q.Type != OptionTypePut {
		return fmt.Errorf("%w: type must be call or put, got %q", ErrUnsupportedGrid, q.Type)
	}
	return nil
}

// Generate 生成完整曲面。网格有界且在返回前整体物化，
// 曲面使用请求中的利率与波动率对每个 (spot, time) 点定价
func (g SurfaceGenerator) Generate(q SurfaceQuery) (*GreeksSurface, error) {
	if err := g.validate(q); err != nil {
		return nil, err
	}

	spotStep := (q.SpotRange[1] - q.SpotRange[0]) / float64(q.Steps)
	timeStep := (q.TimeRange[1] - q.TimeRange[0]) / float64(q.Steps)

	surface := &GreeksSurface{
		Points:    make([][]SurfacePoint, 0, q.Steps+1),
		SpotRange: q.SpotRange,
		TimeRange: q.TimeRange,
	}

	for i := 0; i <= q.Steps; i++ {
		spot := q.SpotRange[0] + spotStep*float64(i)
		row := make([]SurfacePoint, 0, q.Steps+1)

		for j := 0; j <= q.Steps; j++ {
			t := q.TimeRange[0] + timeStep*float64(j)

			result, err := g.pricer.Price(
				MarketContext{Spot: spot, Rate: q.Rate},
				Instrument{
					Type:         q.Type,
					Style:        StyleEuropean,
					Strike:       q.Strike,
					Volatility:   q.Volatility,
					TimeToExpiry: t,
				},
			)
			if err != nil {
				return nil, fmt.Errorf("surface point (%v, %v): %w", spot, t, err)
			}

			row = append(row, SurfacePoint{
				Spot:  spot,
				Time:  t,
				Price: result.Price,
				Delta: result.Greeks.Delta,
				Gamma: result.Greeks.Gamma,
				Vega:  result.Greeks.Vega,
				Theta: result.Greeks.Theta,
				Rho:   result.Greeks.Rho,
			})
		}
		surface.Points = append(surface.Points, row)
	}

	return surface, nil
}
