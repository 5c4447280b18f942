package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction      bool
	ProdOrigins       string
	HTTPAddr          string
	DBDSN             string
	RunMigrations     bool
	JWTSecret         string
	JWTAccessTokenTTL time.Duration
	BcryptCost        int

	Redis RedisConfig
	OTP   OTPConfig
	Auth  AuthRateLimit
	Files FilesConfig
	SMTP  SMTPConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type OTPConfig struct {
	TTL         time.Duration
	Cooldown    time.Duration
	MaxAttempts int
}

// AuthRateLimit throttles the public auth endpoints per client IP.
type AuthRateLimit struct {
	RPS   float64
	Burst int
}

type FilesConfig struct {
	UploadDir      string
	MaxUploadBytes int64
}

// SMTPConfig configures outgoing mail. An empty Host means mail is only logged.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("failed to load .env file: %v", err)
	}

	cfg := &Config{}
	var err error

	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")
	cfg.IsProduction = getEnv("APP_ENV", "dev") == PROD_STRING
	if cfg.IsProduction && cfg.ProdOrigins == "" {
		return nil, fmt.Errorf("PROD_ORIGINS is required when APP_ENV=%s", PROD_STRING)
	}
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}
	if cfg.RunMigrations, err = getEnvAsBool("RUN_MIGRATIONS", true); err != nil {
		return nil, err
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.JWTAccessTokenTTL, err = getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getEnvAsInt("BCRYPT_COST", 12); err != nil {
		return nil, err
	}

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	if cfg.Redis.DB, err = getEnvAsInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	if cfg.OTP.TTL, err = getEnvAsDuration("OTP_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.OTP.Cooldown, err = getEnvAsDuration("OTP_RESEND_COOLDOWN", time.Minute); err != nil {
		return nil, err
	}
	if cfg.OTP.MaxAttempts, err = getEnvAsInt("OTP_MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}

	if cfg.Auth.RPS, err = getEnvAsFloat("AUTH_RATE_LIMIT_RPS", 1); err != nil {
		return nil, err
	}
	if cfg.Auth.Burst, err = getEnvAsInt("AUTH_RATE_LIMIT_BURST", 10); err != nil {
		return nil, err
	}

	cfg.Files.UploadDir = getEnv("UPLOAD_DIR", "./data")
	maxUpload, err := getEnvAsInt("MAX_UPLOAD_BYTES", 10<<20)
	if err != nil {
		return nil, err
	}
	cfg.Files.MaxUploadBytes = int64(maxUpload)

	cfg.SMTP.Host = getEnv("SMTP_HOST", "")
	if cfg.SMTP.Port, err = getEnvAsInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	cfg.SMTP.Username = getEnv("SMTP_USERNAME", "")
	cfg.SMTP.Password = getEnv("SMTP_PASSWORD", "")
	cfg.SMTP.From = getEnv("MAIL_FROM", "no-reply@rental-crm.local")
	if cfg.SMTP.Timeout, err = getEnvAsDuration("SMTP_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt returns the default when the variable is unset or empty,
// and an error when it is set to something that is not an integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := cast.ToIntE(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}
	return val, nil
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := cast.ToFloat64E(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid number: %w", key, valStr, err)
	}
	return val, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := cast.ToBoolE(valStr)
	if err != nil {
		return false, fmt.Errorf("env %s value %q is not a valid boolean: %w", key, valStr, err)
	}
	return val, nil
}

// getEnvAsDuration parses values such as "15m" or "1h".
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid duration: %w", key, valStr, err)
	}
	return val, nil
}
