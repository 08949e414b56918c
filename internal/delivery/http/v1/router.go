package v1

import (
	"net/http"
	"time"

	"contact-relay-backend/config"
	"contact-relay-backend/internal/delivery/http/middleware"
	"contact-relay-backend/internal/delivery/http/response"
	"contact-relay-backend/internal/domain"
	"contact-relay-backend/internal/metrics"
	"contact-relay-backend/internal/usecase"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

type RouterDeps struct {
	ContactUC domain.ContactUsecase
	HealthUC  usecase.HealthUsecase
	Metrics   *metrics.Metrics
	Config    *config.Config
	Logger    *zap.Logger
}

func NewRouter(deps RouterDeps) (*gin.Engine, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Config

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigins)) // CORS must be first!
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger.Named("http")))
	r.Use(middleware.HTTPMetrics(deps.Metrics))
	r.Use(middleware.SecurityHeadersMiddleware(cfg.IsProduction()))
	r.Use(middleware.ErrorHandler(logger, !cfg.IsProduction()))

	r.GET("/", rootInfo(cfg))

	api := r.Group("/api")
	api.GET("/health", healthStatus(deps.HealthUC))
	{
		contact := api.Group("")
		contact.Use(middleware.BodySizeLimit(cfg.BodyLimitBytes), middleware.ClientID())
		NewContactHandler(contact, deps.ContactUC)
	}

	if deps.HealthUC != nil {
		r.GET("/health/*probe", gin.WrapH(http.StripPrefix("/health", deps.HealthUC.Handler())))
	}
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// Swagger UI is only served in development.
	if cfg.IsDevelopment() {
		r.GET(middleware.SwaggerPathPrefix+"*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, "Route not found", "")
	})

	return r, nil
}

// rootInfo godoc
// @Summary      Service information
// @Tags         meta
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       / [get]
func rootInfo(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, http.StatusOK, "Contact relay API is running", gin.H{
			"environment": cfg.AppEnv,
			"provider":    cfg.EmailProvider,
			"endpoints": gin.H{
				"send_email": "POST /api/send-email",
				"health":     "GET /api/health",
			},
		})
	}
}

// healthStatus godoc
// @Summary      Health check
// @Tags         meta
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /api/health [get]
func healthStatus(h usecase.HealthUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := map[string]string{"status": "ok"}
		if h != nil {
			checks = h.Check(c.Request.Context())
		}
		checks["timestamp"] = time.Now().UTC().Format(time.RFC3339)

		if checks["status"] != "ok" {
			c.JSON(http.StatusServiceUnavailable, response.Response{
				Success:   false,
				Message:   "Service degraded",
				Data:      checks,
				RequestID: c.GetString(response.RequestIDKey),
			})
			return
		}
		response.Success(c, http.StatusOK, "Server is running", checks)
	}
}
