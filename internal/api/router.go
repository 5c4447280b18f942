package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nekogravitycat/rental-crm-backend/internal/agent"
	agentHttp "github.com/nekogravitycat/rental-crm-backend/internal/agent/http"
	"github.com/nekogravitycat/rental-crm-backend/internal/auth"
	"github.com/nekogravitycat/rental-crm-backend/internal/booking"
	bookingHttp "github.com/nekogravitycat/rental-crm-backend/internal/booking/http"
	"github.com/nekogravitycat/rental-crm-backend/internal/file"
	fileHttp "github.com/nekogravitycat/rental-crm-backend/internal/file/http"
	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/logger"
	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/metrics"
	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/ratelimit"
	"github.com/nekogravitycat/rental-crm-backend/internal/rentalcompany"
	rcHttp "github.com/nekogravitycat/rental-crm-backend/internal/rentalcompany/http"
	"github.com/nekogravitycat/rental-crm-backend/internal/tenant"
	tenantHttp "github.com/nekogravitycat/rental-crm-backend/internal/tenant/http"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds everything NewRouter wires into the HTTP layer.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	Log          *zap.Logger
	DB           Pinger

	JWTManager     *auth.JWTManager
	AuthLimiter    *ratelimit.Limiter
	MaxUploadBytes int64

	AgentService         agent.Service
	TenantService        tenant.Service
	BookingService       booking.Service
	RentalCompanyService rentalcompany.Service
	FileService          file.Service
}

// NewRouter initializes the HTTP router engine.
// It assembles the global middleware and registers the routes of every module under /v1.
func NewRouter(cfg Config) *gin.Engine {
	r := gin.New()

	// Global Middleware:
	// - RequestLogger: one structured line per request, logger exposed to handlers.
	// - Recovery: captures panics and returns a 500.
	// - Metrics: request counters by route template.
	r.Use(logger.RequestLogger(cfg.Log), gin.Recovery(), metrics.Middleware())
	r.Use(cors.New(corsConfig(cfg.IsProduction, cfg.ProdOrigins)))

	r.GET("/healthz", healthz(cfg.DB))
	r.GET("/metrics", metrics.Handler())

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)
	// ownerOnly: Further checks that the agent is an active owner of its tenant.
	ownerOnly := RequireOwner(cfg.AgentService)

	// Initialize HTTP Handlers for each module.
	fileHandler := fileHttp.NewHandler(cfg.FileService, cfg.MaxUploadBytes, cfg.Log)
	agentHandler := agentHttp.NewHandler(cfg.AgentService, cfg.TenantService, cfg.JWTManager)
	tenantHandler := tenantHttp.NewHandler(cfg.TenantService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService, fileHandler)
	rcHandler := rcHttp.NewHandler(cfg.RentalCompanyService)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		agentHttp.RegisterRoutes(v1, agentHandler, authMiddleware, ownerOnly, cfg.AuthLimiter.Middleware())
		tenantHttp.RegisterRoutes(v1, tenantHandler, authMiddleware, ownerOnly)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware)
		rcHttp.RegisterRoutes(v1, rcHandler, authMiddleware, ownerOnly)
		fileHttp.RegisterRoutes(v1, fileHandler, authMiddleware)
	}

	return r
}

func corsConfig(isProduction bool, prodOrigins string) cors.Config {
	config := cors.DefaultConfig()
	if isProduction {
		var origins []string
		for _, o := range strings.Split(prodOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		config.AllowOrigins = origins
	} else {
		config.AllowOrigins = []string{
			"http://localhost:3000", // Booking UI
			"http://localhost:5173", // Vite dev server
			"http://localhost:8081", // Swagger
		}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	config.ExposeHeaders = []string{"Content-Disposition"}
	return config
}

func healthz(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
	}
}
