package router

import (
	"github.com/gin-gonic/gin"
	"github.com/printbridge/backend/internal/infrastructure/auth"
	"github.com/printbridge/backend/internal/infrastructure/logger"
	"github.com/printbridge/backend/internal/interfaces/http/handler"
	"github.com/printbridge/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers are the HTTP handlers mounted by NewEngine
type Handlers struct {
	System  *handler.SystemHandler
	Print   *handler.PrintHandler
	Command *handler.CommandHandler
}

// Options configure the middleware stack of NewEngine
type Options struct {
	Logger      *zap.Logger
	CORS        middleware.CORSConfig
	MaxBodySize int64
	Tracing     middleware.TracingConfig
	Metrics     middleware.HTTPMetricsConfig
	// Verifier enables bearer token authentication when set
	Verifier *auth.TokenVerifier
}

// NewEngine builds the gin engine with the full middleware stack and every
// printbridge route
func NewEngine(h Handlers, opts Options) *gin.Engine {
	log := logger.OrNop(opts.Logger)
	engine := gin.New()

	// The access log runs inside the server span so its lines carry the
	// trace ids; otelgin restores the request context when it returns.
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(opts.Tracing)...)
	engine.Use(logger.AccessLog(log, middleware.RequestIDFrom))
	engine.Use(middleware.HTTPMetrics(opts.Metrics))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(opts.CORS))
	engine.Use(middleware.BodyLimit(opts.MaxBodySize))

	engine.GET("/health", h.System.Health)

	routes := Routes(h)
	api := engine.Group(APIPrefix)
	if opts.Verifier != nil {
		jwtConfig := middleware.DefaultJWTConfig(opts.Verifier)
		jwtConfig.SkipPaths = append(jwtConfig.SkipPaths, PublicPaths(routes)...)
		jwtConfig.Logger = log
		api.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))
	}
	Mount(api, routes)

	for _, r := range routes {
		log.Debug("route registered",
			zap.String("method", r.Method),
			zap.String("path", r.FullPath()),
			zap.String("scope", r.Scope))
	}
	return engine
}
