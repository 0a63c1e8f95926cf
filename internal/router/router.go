package router

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/mediguard/internal/handler/health"
	"github.com/jwalitptl/mediguard/internal/handler/prometheus"
	"github.com/jwalitptl/mediguard/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine   *gin.Engine
	health   *health.Handler
	metrics  *prometheus.Handler
	handlers []Handler
	config   RouterConfig
}

type RouterConfig struct {
	Mode        string
	MetricsPath string
	RateLimit   middleware.RateLimiterConfig
	// RateLimitEnabled switches the per-client limiter on the API group.
	RateLimitEnabled bool
	CORSConfig       middleware.CORSConfig
	SizeLimit        middleware.SizeLimitConfig
}

func NewRouter(
	healthH *health.Handler,
	metricsH *prometheus.Handler,
	config RouterConfig,
	handlers ...Handler,
) (*Router, error) {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	if config.SizeLimit.MaxBodySize <= 0 {
		config.SizeLimit = middleware.DefaultSizeLimitConfig()
	}
	if len(config.CORSConfig.AllowOrigins) == 0 {
		config.CORSConfig = middleware.DefaultCORSConfig()
	}
	if err := middleware.RegisterValidators(); err != nil {
		return nil, err
	}

	engine := gin.New()

	r := &Router{
		engine:   engine,
		health:   healthH,
		metrics:  metricsH,
		handlers: handlers,
		config:   config,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		metricsH.Middleware(),
		middleware.ErrorHandler(),
		middleware.CORS(config.CORSConfig),
	)

	return r, nil
}

func (r *Router) Setup() {
	r.health.RegisterRoutes(r.engine)
	r.engine.GET(r.config.MetricsPath, r.metrics.Handler())

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})
	if r.config.RateLimitEnabled {
		api.Use(middleware.NewRateLimiter(r.config.RateLimit).RateLimit())
	}
	api.Use(middleware.SizeLimit(r.config.SizeLimit))

	for _, h := range r.handlers {
		h.RegisterRoutes(api)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
