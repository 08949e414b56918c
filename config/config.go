package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   string
	AppEnv string
	// Email delivery
	EmailProvider  string // "smtp" or "resend"
	EmailFrom      string
	ContactEmailTo string
	EmailTimeout   time.Duration // zero selects the backend default
	// SMTP relay
	SMTPHost                 string
	SMTPPort                 int
	SMTPUsername             string
	SMTPPassword             string
	SMTPTLSMode              string
	SMTPAllowUnauthenticated bool
	SMTPMaxConnections       int
	SMTPMaxMessages          int
	SMTPRateLimit            int
	SMTPRateWindow           time.Duration
	// Resend API
	ResendAPIKey  string
	ResendBaseURL string
	// Rate limiting
	RateLimitMaxRequests int
	RateLimitWindow      time.Duration
	RateLimitSweep       time.Duration
	// Redis (optional shared rate-limit store)
	RedisURL      string
	RedisPassword string
	// HTTP
	CORSOrigins    []string
	TrustedProxies []string
	BodyLimitBytes int64
	// Logging
	LogLevel string
	LogFile  string
}

const (
	ProviderSMTP   = "smtp"
	ProviderResend = "resend"
)

func LoadConfig() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	emailFrom := getEnv("EMAIL_FROM", getEnv("SMTP_USERNAME", ""))

	cfg := &Config{
		Port:   getEnv("PORT", "3000"),
		AppEnv: strings.ToLower(getEnv("APP_ENV", "production")),

		EmailProvider:  strings.ToLower(getEnv("EMAIL_PROVIDER", ProviderSMTP)),
		EmailFrom:      emailFrom,
		ContactEmailTo: getEnv("CONTACT_EMAIL_TO", emailFrom),
		EmailTimeout:   time.Duration(getEnvInt("EMAIL_TIMEOUT_SECONDS", 0)) * time.Second,

		SMTPHost:                 getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:                 getEnvInt("SMTP_PORT", 587),
		SMTPUsername:             getEnv("SMTP_USERNAME", ""),
		SMTPPassword:             getEnv("SMTP_PASSWORD", ""),
		SMTPTLSMode:              strings.ToLower(getEnv("SMTP_TLS_MODE", "")),
		SMTPAllowUnauthenticated: getEnvBool("SMTP_ALLOW_UNAUTHENTICATED", false),
		SMTPMaxConnections:       getEnvInt("SMTP_MAX_CONNECTIONS", 5),
		SMTPMaxMessages:          getEnvInt("SMTP_MAX_MESSAGES", 100),
		SMTPRateLimit:            getEnvInt("SMTP_RATE_LIMIT", 5),
		SMTPRateWindow:           time.Duration(getEnvInt("SMTP_RATE_WINDOW_SECONDS", 20)) * time.Second,

		ResendAPIKey:  getEnv("RESEND_API_KEY", ""),
		ResendBaseURL: getEnv("RESEND_BASE_URL", ""),

		RateLimitMaxRequests: getEnvInt("RATE_LIMIT_MAX_REQUESTS", 5),
		RateLimitWindow:      time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 3600)) * time.Second,
		RateLimitSweep:       time.Duration(getEnvInt("RATE_LIMIT_SWEEP_SECONDS", 300)) * time.Second,

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		CORSOrigins:    getEnvList("CORS_ORIGINS", []string{"*"}),
		TrustedProxies: getEnvList("TRUSTED_PROXIES", nil),
		BodyLimitBytes: int64(getEnvInt("BODY_LIMIT_BYTES", 32<<10)),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}

	// Missing credentials are not fatal: the service starts and reports a
	// configuration error per request until they are provided.
	switch cfg.EmailProvider {
	case ProviderResend:
		if cfg.ResendAPIKey == "" {
			log.Println("WARNING: RESEND_API_KEY is missing. Contact submissions will fail.")
		}
	default:
		if cfg.EmailProvider != ProviderSMTP {
			log.Printf("WARNING: unknown EMAIL_PROVIDER %q, using smtp", cfg.EmailProvider)
			cfg.EmailProvider = ProviderSMTP
		}
		if cfg.SMTPUsername == "" || cfg.SMTPPassword == "" {
			log.Println("WARNING: SMTP_USERNAME/SMTP_PASSWORD missing. Contact submissions will fail.")
		}
	}

	if cfg.EmailFrom == "" {
		log.Println("WARNING: EMAIL_FROM is missing. Contact submissions will fail.")
	}

	if cfg.RedisURL == "" {
		log.Println("WARNING: REDIS_URL not configured. Rate limiting will use in-memory ledger.")
	}

	return cfg, nil
}

// IsProduction reports whether error details must be hidden from clients.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// IsDevelopment enables the swagger UI and the console log encoder.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool returns a boolean environment variable or fallback if not set/invalid
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
