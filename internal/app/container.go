package app

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nekogravitycat/rental-crm-backend/internal/agent"
	"github.com/nekogravitycat/rental-crm-backend/internal/api"
	"github.com/nekogravitycat/rental-crm-backend/internal/auth"
	"github.com/nekogravitycat/rental-crm-backend/internal/booking"
	"github.com/nekogravitycat/rental-crm-backend/internal/config"
	"github.com/nekogravitycat/rental-crm-backend/internal/file"
	"github.com/nekogravitycat/rental-crm-backend/internal/mail"
	"github.com/nekogravitycat/rental-crm-backend/internal/otp"
	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/metrics"
	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/ratelimit"
	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/storage"
	"github.com/nekogravitycat/rental-crm-backend/internal/rentalcompany"
	"github.com/nekogravitycat/rental-crm-backend/internal/tenant"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	App    *config.Config
	DBPool *pgxpool.Pool
	Redis  *redis.Client
	Log    *zap.Logger
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) (*Container, error) {
	app := cfg.App

	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasherWithCost(app.BcryptCost)
	jwtManager := auth.NewJWTManager(app.JWTSecret, app.JWTAccessTokenTTL)
	mailer, err := mail.New(mail.SMTPConfig{
		Host:     app.SMTP.Host,
		Port:     app.SMTP.Port,
		Username: app.SMTP.Username,
		Password: app.SMTP.Password,
		From:     app.SMTP.From,
		Timeout:  app.SMTP.Timeout,
	}, cfg.Log.Named("mail"))
	if err != nil {
		return nil, fmt.Errorf("init mailer: %w", err)
	}
	composer := mail.NewComposer()
	metrics.Register()

	store, err := storage.NewLocalStorage(app.Files.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("init file storage: %w", err)
	}

	// OTP Module
	otpService := otp.NewRedisService(cfg.Redis, otp.Config{
		TTL:         app.OTP.TTL,
		Cooldown:    app.OTP.Cooldown,
		MaxAttempts: app.OTP.MaxAttempts,
	})

	// Tenant Module
	tenantRepo := tenant.NewPgxRepository(cfg.DBPool)
	tenantService := tenant.NewService(tenantRepo)

	// Agent Module
	agentRepo := agent.NewPgxRepository(cfg.DBPool)
	agentService := agent.NewService(agent.Deps{
		Repo:     agentRepo,
		Hasher:   passwordHasher,
		OTP:      otpService,
		OTPTTL:   app.OTP.TTL,
		Tenants:  tenantService,
		Mailer:   mailer,
		Composer: composer,
		Log:      cfg.Log.Named("agent"),
	})

	// File Module
	fileRepo := file.NewRepository(cfg.DBPool)
	fileService := file.NewService(fileRepo, store, cfg.Log.Named("file"))

	// RentalCompany Module
	rcRepo := rentalcompany.NewPgxRepository(cfg.DBPool)
	rcService := rentalcompany.NewService(rcRepo)

	// Booking Module
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)
	bookingService := booking.NewService(
		bookingRepo,
		booking.NewTracker(),
		tenantService,
		mailer,
		composer,
		cfg.Log.Named("booking"),
	)

	// API Router Config
	routerParams := api.Config{
		IsProduction:         app.IsProduction,
		ProdOrigins:          app.ProdOrigins,
		Log:                  cfg.Log,
		DB:                   cfg.DBPool,
		JWTManager:           jwtManager,
		AuthLimiter:          ratelimit.New(app.Auth.RPS, app.Auth.Burst),
		MaxUploadBytes:       app.Files.MaxUploadBytes,
		AgentService:         agentService,
		TenantService:        tenantService,
		BookingService:       bookingService,
		RentalCompanyService: rcService,
		FileService:          fileService,
	}

	// Router
	router := api.NewRouter(routerParams)

	return &Container{
		Router:     router,
		JWTManager: jwtManager,
	}, nil
}
