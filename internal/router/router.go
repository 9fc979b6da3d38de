package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/hms-core/internal/handler"
	"github.com/jwalitptl/hms-core/internal/middleware"
	"github.com/jwalitptl/hms-core/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(gin.IRouter)
}

type RouterConfig struct {
	Mode        string
	RateLimit   rate.Limit
	RateBurst   int
	RateLimitOn bool
	CORSConfig  middleware.CORSConfig
	MetricsPath string
	// Gatherer serves /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

type Router struct {
	engine  *gin.Engine
	auth    *middleware.AuthMiddleware
	health  Handler
	api     []Handler
	config  RouterConfig
	metrics *metrics.Metrics
}

// NewRouter wires the global middleware chain. health is mounted outside
// authentication; every api handler is mounted under /api/v1 behind it.
func NewRouter(auth *middleware.AuthMiddleware, health Handler, api []Handler, m *metrics.Metrics, config RouterConfig) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	handler.RegisterBindingRules()

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.Metrics(m),
		middleware.CORS(config.CORSConfig),
		middleware.ErrorHandler(),
	)

	if config.RateLimitOn {
		engine.Use(middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		}).RateLimit())
	}

	return &Router{
		engine:  engine,
		auth:    auth,
		health:  health,
		api:     api,
		config:  config,
		metrics: m,
	}
}

func (r *Router) Setup() {
	r.health.RegisterRoutes(r.engine)

	path := r.config.MetricsPath
	if path == "" {
		path = "/metrics"
	}
	gatherer := r.config.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.engine.GET(path, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.engine.Group("/api/v1")
	api.Use(r.auth.Authenticate())
	for _, h := range r.api {
		h.RegisterRoutes(api)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
