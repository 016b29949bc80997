package router

import (
	"github.com/catalogsync/backend/internal/infrastructure/auth"
	"github.com/catalogsync/backend/internal/infrastructure/config"
	"github.com/catalogsync/backend/internal/infrastructure/logger"
	"github.com/catalogsync/backend/internal/interfaces/http/handler"
	"github.com/catalogsync/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Dependencies is everything the HTTP surface needs
type Dependencies struct {
	Logger      *zap.Logger
	HTTP        config.HTTPConfig
	ServiceName string

	// JWT is nil when authentication is disabled; the owner then comes from X-Owner-ID
	JWT *auth.JWTService

	Imports handler.ImportService
	System  *handler.SystemHandler

	// Meter is nil when metrics are disabled
	Meter            metric.Meter
	TracingEnabled   bool
	ProfilingEnabled bool
}

// NewEngine builds the gin engine with the full middleware chain and all routes
func NewEngine(deps Dependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(deps.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(deps.HTTP.TrustedProxies); err != nil {
			log.Warn("Invalid trusted proxies, trusting none", zap.Error(err))
			_ = engine.SetTrustedProxies(nil)
		}
	} else {
		_ = engine.SetTrustedProxies(nil)
	}

	engine.Use(
		middleware.TracingWithConfig(middleware.TracingConfig{ServiceName: deps.ServiceName, Enabled: deps.TracingEnabled}),
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.Secure(),
	)
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = deps.HTTP.CORSAllowOrigins
	engine.Use(middleware.CORSWithConfig(corsConfig))
	if deps.Meter != nil {
		engine.Use(middleware.HTTPMetrics(deps.Meter, log))
	}
	engine.Use(middleware.SpanErrorMarker())

	if deps.System != nil {
		engine.GET("/health", deps.System.Health)
	}
	// Serves whatever document is registered with swag; cmd/server links in package docs
	if deps.HTTP.SwaggerEnabled {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	if deps.JWT != nil {
		jwtConfig := middleware.DefaultJWTConfig(deps.JWT)
		jwtConfig.Logger = log
		r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))
	} else {
		log.Warn("Authentication disabled, owners are taken from the " + handler.OwnerHeader + " header")
	}
	r.Use(middleware.TracingAttributeInjector())
	if deps.ProfilingEnabled {
		r.Use(middleware.Profiling())
	}

	var resources []*Resource
	if deps.Imports != nil {
		resources = append(resources, ImportRoutes(
			handler.NewImportHandler(deps.Imports, deps.HTTP.MaxUploadSize),
			middleware.OwnerRateLimit(middleware.NewRateLimiter(deps.HTTP.UploadsPerMinute)),
			middleware.BodyLimit(uploadBodyLimit(deps.HTTP.MaxUploadSize)),
		))
	}
	if deps.System != nil {
		resources = append(resources, NewResource("/system").GET("/info", deps.System.GetSystemInfo))
	}
	for _, res := range resources {
		r.Register(res)
		log.Debug("Mounted API resource", zap.String("base", r.BasePath()), zap.Strings("endpoints", res.Endpoints()))
	}
	r.Setup()

	return engine
}

// ImportRoutes mounts the import endpoints. uploadMiddleware runs only on POST.
func ImportRoutes(h *handler.ImportHandler, uploadMiddleware ...gin.HandlerFunc) *Resource {
	return NewResource("/imports").
		POST("", append(uploadMiddleware, h.Upload)...).
		GET("", h.List).
		GET("/:id", h.Get)
}

// uploadBodyLimit leaves room for multipart framing around the file itself
func uploadBodyLimit(maxUploadSize int64) int64 {
	const multipartOverhead = 64 << 10
	if maxUploadSize <= 0 {
		return 20<<20 + multipartOverhead
	}
	return maxUploadSize + multipartOverhead
}
