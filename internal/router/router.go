package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/leukemia-dashboard/internal/handler"
	"github.com/jwalitptl/leukemia-dashboard/internal/handler/prometheus"
	"github.com/jwalitptl/leukemia-dashboard/internal/middleware"
	"github.com/jwalitptl/leukemia-dashboard/pkg/logger"
)

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	authH    handler.Handler
	healthH  handler.Handler
	mediaH   handler.Handler
	metrics  *prometheus.Handler
	// served under /api behind token auth
	protected []handler.Handler
}

type RouterConfig struct {
	// RateLimit of zero disables throttling.
	RateLimit rate.Limit
	RateBurst int
	CORS      middleware.CORSConfig
	SizeLimit middleware.SizeLimitConfig
}

func NewRouter(
	log *logger.Logger,
	config RouterConfig,
	auth *middleware.AuthMiddleware,
	metrics *prometheus.Handler,
	authH handler.Handler,
	healthH handler.Handler,
	mediaH handler.Handler,
	protected ...handler.Handler,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	// DRF routes end in a slash and clients call them that way
	engine.RedirectTrailingSlash = false

	r := &Router{
		engine:    engine,
		auth:      auth,
		authH:     authH,
		healthH:   healthH,
		mediaH:    mediaH,
		metrics:   metrics,
		protected: protected,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		metrics.Middleware(),
		middleware.CORS(config.CORS),
		middleware.SizeLimit(config.SizeLimit),
		middleware.ErrorHandler(log),
	)

	if config.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(limiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	root := r.engine.Group("")

	r.healthH.RegisterRoutes(root)
	r.metrics.RegisterRoutes(root)
	r.mediaH.RegisterRoutes(root)

	// Public routes; auth/users/me/ guards itself
	r.authH.RegisterRoutes(root)

	api := r.engine.Group("/api")
	api.Use(r.auth.Authenticate())
	for _, h := range r.protected {
		h.RegisterRoutes(api)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
