package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/starnotary/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options tunes the router
type Options struct {
	MaxStoryBytes  int
	RateLimitRPS   float64 // per client, zero disables
	RateLimitBurst int
	Gatherer       prometheus.Gatherer
	Logger         *slog.Logger
}

// SetupRouter sets up the Gin router
func SetupRouter(
	registry *service.SessionRegistry,
	verifier *service.AuthenticationVerifier,
	stars *service.StarService,
	opts Options,
) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	// Create handlers
	handlers := NewNotaryHandlers(registry, verifier, stars, opts.MaxStoryBytes, logger)

	// Ownership protocol and registration
	protocol := router.Group("/")
	protocol.Use(rateLimitMiddleware(newClientLimiter(opts.RateLimitRPS, opts.RateLimitBurst)))
	{
		protocol.POST("/requestValidation", handlers.RequestValidation)
		protocol.POST("/message-signature/validate", handlers.ValidateSignature)
		protocol.POST("/block", handlers.RegisterStar)
	}

	// Read-back routes
	router.GET("/block/:height", handlers.GetBlock)
	router.GET("/stars/:selector", handlers.GetStars)
	router.GET("/healthz", handlers.Health)

	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	return router
}
