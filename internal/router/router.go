package router

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mailparser/internal/handler"
	"mailparser/internal/middleware"
)

// Options holds the optional cross-cutting settings for Setup.
type Options struct {
	// APIKeys guard every route except the health checks. Empty disables auth.
	APIKeys     []string
	CORSOrigins []string
}

// Setup configures the Gin engine with all routes and middleware.
// recordH may be nil when no queryable store is configured.
func Setup(
	logger zerolog.Logger,
	opts Options,
	webhookH *handler.WebhookHandler,
	healthH *handler.HealthHandler,
	recordH *handler.RecordHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	if len(opts.CORSOrigins) > 0 {
		r.Use(middleware.CORS(opts.CORSOrigins))
	}

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	protected := r.Group("")
	if len(opts.APIKeys) > 0 {
		protected.Use(middleware.APIKeyAuth(opts.APIKeys))
	}

	// Inbound documents
	protected.POST("/webhook", webhookH.Receive)
	protected.POST("/webhook/upload", webhookH.Upload)

	if recordH != nil {
		records := protected.Group("/records")
		records.GET("", recordH.List)
		records.GET("/export", recordH.Export)
	}

	return r
}
