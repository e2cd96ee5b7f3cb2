package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/optionpricer/internal/pricing/application"
	"github.com/wyfcoding/optionpricer/internal/pricing/domain"
	"github.com/wyfcoding/optionpricer/pkg/logger"
)

// HTTP 处理器
// 负责将定价请求绑定、转发到应用服务并序列化结果
type PricingHandler struct {
	svc *application.PricingService
}

// 创建 HTTP 处理器实例
func NewPricingHandler(svc *application.PricingService) *PricingHandler {
	return &PricingHandler{svc: svc}
}

// 注册路由
// 将处理器方法绑定到 Gin 路由引擎
func (h *PricingHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/price", h.PriceOption)
	router.POST("/portfolio/price", h.PricePortfolio)
	router.GET("/greeks/surface", h.GreeksSurface)
	router.GET("/strategies", h.ListStrategies)
	router.POST("/strategies/price", h.PriceStrategy)
	router.GET("/health", h.Health)
}

// statusFor 领域错误到 HTTP 状态码与状态标签的映射
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnsupportedGrid):
		return http.StatusNotImplemented, "unsupported"
	case errors.Is(err, domain.ErrNumericalInstability):
		return http.StatusUnprocessableEntity, "numerical_instability"
	case errors.Is(err, domain.ErrInvalidInstrument),
		errors.Is(err, domain.ErrInvalidMarket),
		errors.Is(err, domain.ErrEmptyPortfolio),
		errors.Is(err, domain.ErrUnknownStrategy):
		return http.StatusBadRequest, "invalid_request"
	default:
		return http.StatusInternalServerError, "error"
	}
}

func respondError(c *gin.Context, err error) {
	status, label := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		logger.Error(c.Request.Context(), "pricing request failed", "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "status": label})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "status": "invalid_request"})
}

// PriceRequest 单一期权定价请求；rate 用指针区分缺失与合法的 0
type PriceRequest struct {
	Type       string   `json:"type" binding:"required"`
	Spot       float64  `json:"spot" binding:"required"`
	Strike     float64  `json:"strike" binding:"required"`
	Rate       *float64 `json:"rate" binding:"required"`
	Volatility float64  `json:"volatility" binding:"required"`
	Time       float64  `json:"time" binding:"required"`
	Model      string   `json:"model"`
}

// PriceOption 单一期权定价
func (h *PricingHandler) PriceOption(c *gin.Context) {
	var req PriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	result, err := h.svc.PriceOption(c.Request.Context(), application.PriceOptionCommand{
		Type:       req.Type,
		Spot:       req.Spot,
		Strike:     req.Strike,
		Rate:       *req.Rate,
		Volatility: req.Volatility,
		Time:       req.Time,
		Model:      req.Model,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// LegRequest 组合中一条腿；type 为行权方式，optionType 缺省 call
type LegRequest struct {
	Type       string  `json:"type"`
	OptionType string  `json:"optionType"`
	Strike     float64 `json:"strike" binding:"required"`
	Volatility float64 `json:"volatility" binding:"required"`
	Time       float64 `json:"time" binding:"required"`
	Quantity   float64 `json:"quantity"`
}

// PortfolioRequest 组合定价请求
type PortfolioRequest struct {
	Spot        float64      `json:"spot" binding:"required"`
	Rate        *float64     `json:"rate" binding:"required"`
	Legs        []LegRequest `json:"legs" binding:"required,min=1,dive"`
	PayoffSteps int          `json:"payoff_steps"`
}

// PricePortfolio 组合定价
func (h *PricingHandler) PricePortfolio(c *gin.Context) {
	var req PortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	legs := make([]application.LegCommand, 0, len(req.Legs))
	for _, l := range req.Legs {
		legs = append(legs, application.LegCommand{
			Type:       l.Type,
			OptionType: l.OptionType,
			Strike:     l.Strike,
			Volatility: l.Volatility,
			Time:       l.Time,
			Quantity:   l.Quantity,
		})
	}

	result, err := h.svc.PricePortfolio(c.Request.Context(), application.PricePortfolioCommand{
		Spot:        req.Spot,
		Rate:        *req.Rate,
		Legs:        legs,
		PayoffSteps: req.PayoffSteps,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"portfolio": result, "status": "ok"})
}

// 曲面查询默认值，与参数缺失时的行为对齐
const (
	defaultSurfaceSteps = 10
)

var (
	defaultSpotRange = [2]float64{90, 110}
	defaultTimeRange = [2]float64{0.1, 2.0}
)

// parseRange 解析 "[lo,hi]" 形式的区间参数
func parseRange(raw string, fallback [2]float64) ([2]float64, error) {
	if raw == "" {
		return fallback, nil
	}
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "[")
	trimmed = strings.TrimSuffix(trimmed, "]")
	parts := strings.Split(trimmed, ",")
	if len(parts) != 2 {
		return fallback, errors.New("range must be [lo,hi]")
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return fallback, err
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return fallback, err
	}
	return [2]float64{lo, hi}, nil
}

func parseFloatQuery(c *gin.Context, name string, fallback float64) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(raw, 64)
}

// GreeksSurface 希腊字母曲面查询
func (h *PricingHandler) GreeksSurface(c *gin.Context) {
	optType := c.DefaultQuery("type", string(domain.OptionTypeCall))

	strike, err := parseFloatQuery(c, "strike", 100)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	rate, err := parseFloatQuery(c, "rate", 0.05)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	vol, err := parseFloatQuery(c, "volatility", 0.2)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	spotRange, err := parseRange(c.Query("spot_range"), defaultSpotRange)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	timeRange, err := parseRange(c.Query("time_range"), defaultTimeRange)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	steps := defaultSurfaceSteps
	if raw := c.Query("steps"); raw != "" {
		steps, err = strconv.Atoi(raw)
		if err != nil {
			respondBadRequest(c, err)
			return
		}
	}

	result, err := h.svc.GenerateSurface(c.Request.Context(), domain.SurfaceQuery{
		Type:       domain.OptionType(optType),
		Strike:     strike,
		Rate:       rate,
		Volatility: vol,
		SpotRange:  spotRange,
		TimeRange:  timeRange,
		Steps:      steps,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"surface":    result.Surface,
		"spot_range": result.SpotRange,
		"time_range": result.TimeRange,
		"status":     "ok",
	})
}

// ListStrategies 列出支持的策略模板
func (h *PricingHandler) ListStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"strategies": h.svc.ListStrategies()})
}

// StrategyRequest 策略模板定价请求；is_long 缺省为做多
type StrategyRequest struct {
	Strategy   string   `json:"strategy" binding:"required"`
	Spot       float64  `json:"spot" binding:"required"`
	Strike     float64  `json:"strike" binding:"required"`
	Rate       *float64 `json:"rate" binding:"required"`
	Volatility float64  `json:"volatility" binding:"required"`
	Time       float64  `json:"time" binding:"required"`
	IsLong     *bool    `json:"is_long"`
}

// PriceStrategy 策略模板定价
func (h *PricingHandler) PriceStrategy(c *gin.Context) {
	var req StrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	isLong := true
	if req.IsLong != nil {
		isLong = *req.IsLong
	}

	result, err := h.svc.PriceStrategy(c.Request.Context(), application.StrategyCommand{
		Strategy:   req.Strategy,
		Spot:       req.Spot,
		Strike:     req.Strike,
		Rate:       *req.Rate,
		Volatility: req.Volatility,
		Time:       req.Time,
		IsLong:     isLong,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, struct {
		*application.StrategyPriceDTO
		Status string `json:"status"`
	}{result, "ok"})
}

// Health 存活探针
func (h *PricingHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "pricing"})
}
