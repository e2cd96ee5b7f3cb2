package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/optionpricer/internal/pricing/domain"
)

func newTestService(cache domain.SurfaceCache) *PricingService {
	return NewPricingService(Options{
		LatticeSteps:    200,
		PayoffSteps:     100,
		SurfaceMaxSteps: 200,
	}, cache, nil)
}

func refOptionCommand() PriceOptionCommand {
	return PriceOptionCommand{
		Type:       "call",
		Spot:       100,
		Strike:     100,
		Rate:       0.05,
		Volatility: 0.2,
		Time:       1,
	}
}

func TestService_PriceOption_DefaultsToEuropean(t *testing.T) {
	svc := newTestService(nil)

	result, err := svc.PriceOption(context.Background(), refOptionCommand())
	require.NoError(t, err)
	require.InDelta(t, 10.4506, result.Price, 0.05)
	require.InDelta(t, 0.6368, result.Delta, 0.01)
	require.Equal(t, "european", result.Model)
	require.Equal(t, "call", result.Type)
}

func TestService_PriceOption_American(t *testing.T) {
	svc := newTestService(nil)

	cmd := refOptionCommand()
	cmd.Type = "put"
	cmd.Model = "american"
	american, err := svc.PriceOption(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, "american", american.Model)

	cmd.Model = ""
	european, err := svc.PriceOption(context.Background(), cmd)
	require.NoError(t, err)
	require.GreaterOrEqual(t, american.Price, european.Price-1e-9)
}

func TestService_PriceOption_Validation(t *testing.T) {
	svc := newTestService(nil)

	cmd := refOptionCommand()
	cmd.Spot = -1
	_, err := svc.PriceOption(context.Background(), cmd)
	require.ErrorIs(t, err, domain.ErrInvalidMarket)

	cmd = refOptionCommand()
	cmd.Type = "binary"
	_, err = svc.PriceOption(context.Background(), cmd)
	require.ErrorIs(t, err, domain.ErrInvalidInstrument)

	cmd = refOptionCommand()
	cmd.Model = "bermudan"
	_, err = svc.PriceOption(context.Background(), cmd)
	require.ErrorIs(t, err, domain.ErrInvalidInstrument)
}

func TestService_PricePortfolio(t *testing.T) {
	svc := newTestService(nil)

	result, err := svc.PricePortfolio(context.Background(), PricePortfolioCommand{
		Spot: 100,
		Rate: 0.05,
		Legs: []LegCommand{
			{OptionType: "call", Strike: 100, Volatility: 0.2, Time: 1, Quantity: 1},
			{OptionType: "put", Strike: 100, Volatility: 0.2, Time: 1, Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Legs, 2)
	require.InDelta(t, 16.024, result.TotalPrice, 0.05)
	require.InDelta(t, 0.274, result.Greeks.Delta, 0.01)

	// 每条腿回显自己的模型标签
	require.Equal(t, "european", result.Legs[0].Model)
	require.Equal(t, "european", result.Legs[1].Model)

	// 收益曲线与现价网格等长、网格严格递增
	require.NotEmpty(t, result.Payoff.SpotPrices)
	require.Len(t, result.Payoff.Payoffs, len(result.Payoff.SpotPrices))
	for i := 1; i < len(result.Payoff.SpotPrices); i++ {
		require.Greater(t, result.Payoff.SpotPrices[i], result.Payoff.SpotPrices[i-1])
	}
}

func TestService_PricePortfolio_LegDefaults(t *testing.T) {
	// optionType 缺省 call、quantity 缺省 1、type 缺省 european
	svc := newTestService(nil)

	result, err := svc.PricePortfolio(context.Background(), PricePortfolioCommand{
		Spot: 100,
		Rate: 0.05,
		Legs: []LegCommand{{Strike: 100, Volatility: 0.2, Time: 1}},
	})
	require.NoError(t, err)
	require.Len(t, result.Legs, 1)
	require.Equal(t, "call", result.Legs[0].OptionType)
	require.Equal(t, "european", result.Legs[0].Model)
	require.InDelta(t, 1.0, result.Legs[0].Quantity, 1e-12)
}

func TestService_PricePortfolio_EmptyLegs(t *testing.T) {
	svc := newTestService(nil)

	_, err := svc.PricePortfolio(context.Background(), PricePortfolioCommand{
		Spot: 100,
		Rate: 0.05,
	})
	require.ErrorIs(t, err, domain.ErrEmptyPortfolio)
}

func TestService_PricePortfolio_MixedStyles(t *testing.T) {
	svc := newTestService(nil)

	result, err := svc.PricePortfolio(context.Background(), PricePortfolioCommand{
		Spot: 100,
		Rate: 0.05,
		Legs: []LegCommand{
			{Type: "european", OptionType: "call", Strike: 100, Volatility: 0.2, Time: 1, Quantity: 1},
			{Type: "american", OptionType: "put", Strike: 100, Volatility: 0.2, Time: 1, Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "european", result.Legs[0].Model)
	require.Equal(t, "american", result.Legs[1].Model)
}

// memorySurfaceCache 进程内曲面缓存，记录读写次数
type memorySurfaceCache struct {
	mu   sync.Mutex
	data map[string]*domain.GreeksSurface
	hits int
	sets int
}

func newMemorySurfaceCache() *memorySurfaceCache {
	return &memorySurfaceCache{data: map[string]*domain.GreeksSurface{}}
}

func (c *memorySurfaceCache) Get(_ context.Context, key string) (*domain.GreeksSurface, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.data[key]
	if ok {
		c.hits++
	}
	return s, ok, nil
}

func (c *memorySurfaceCache) Set(_ context.Context, key string, s *domain.GreeksSurface) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = s
	c.sets++
	return nil
}

func refSurfaceQuery() domain.SurfaceQuery {
	return domain.SurfaceQuery{
		Type:       domain.OptionTypeCall,
		Strike:     100,
		Rate:       0.05,
		Volatility: 0.2,
		SpotRange:  [2]float64{90, 110},
		TimeRange:  [2]float64{0.1, 2.0},
		Steps:      5,
	}
}

func TestService_GenerateSurface(t *testing.T) {
	svc := newTestService(nil)

	result, err := svc.GenerateSurface(context.Background(), refSurfaceQuery())
	require.NoError(t, err)
	require.Len(t, result.Surface, 6)
	require.Len(t, result.Surface[0], 6)
	require.Equal(t, [2]float64{90, 110}, result.SpotRange)
}

func TestService_GenerateSurface_Memoization(t *testing.T) {
	cache := newMemorySurfaceCache()
	svc := newTestService(cache)

	first, err := svc.GenerateSurface(context.Background(), refSurfaceQuery())
	require.NoError(t, err)
	require.Equal(t, 1, cache.sets)
	require.Equal(t, 0, cache.hits)

	second, err := svc.GenerateSurface(context.Background(), refSurfaceQuery())
	require.NoError(t, err)
	require.Equal(t, 1, cache.sets)
	require.Equal(t, 1, cache.hits)

	// 记忆化不得改变结果
	require.Equal(t, first.Surface, second.Surface)

	// 指纹区分参数
	q := refSurfaceQuery()
	q.Volatility = 0.3
	_, err = svc.GenerateSurface(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, 2, cache.sets)
}

func TestService_GenerateSurface_DegenerateGrid(t *testing.T) {
	svc := newTestService(nil)

	q := refSurfaceQuery()
	q.SpotRange = [2]float64{100, 100}
	_, err := svc.GenerateSurface(context.Background(), q)
	require.ErrorIs(t, err, domain.ErrUnsupportedGrid)
}

func TestService_Strategies(t *testing.T) {
	svc := newTestService(nil)

	names := svc.ListStrategies()
	require.NotEmpty(t, names)
	require.Contains(t, names, "straddle")

	result, err := svc.PriceStrategy(context.Background(), StrategyCommand{
		Strategy:   "straddle",
		Spot:       100,
		Strike:     100,
		Rate:       0.05,
		Volatility: 0.2,
		Time:       1,
		IsLong:     true,
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.NumLegs)
	require.InDelta(t, 16.024, result.Price, 0.05)
	require.NotEmpty(t, result.Payoff.SpotPrices)

	_, err = svc.PriceStrategy(context.Background(), StrategyCommand{
		Strategy:   "calendar_spread",
		Spot:       100,
		Strike:     100,
		Rate:       0.05,
		Volatility: 0.2,
		Time:       1,
	})
	require.ErrorIs(t, err, domain.ErrUnknownStrategy)
}

func TestService_ConcurrentRequestsDeterministic(t *testing.T) {
	// 定价是纯函数，无共享可变状态，并发结果必须与串行一致
	svc := newTestService(nil)

	baseline, err := svc.PriceOption(context.Background(), refOptionCommand())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*OptionPriceDTO, 32)
	errs := make([]error, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.PriceOption(context.Background(), refOptionCommand())
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		require.Equal(t, baseline.Price, results[i].Price)
		require.Equal(t, baseline.Delta, results[i].Delta)
	}
}
