package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment variable enumerated by the platform's
// external-interface contract. Values with no safe default (JWT
// secrets, PSP keys) are left empty when unset; callers in production
// mode must check for that themselves.
type Config struct {
	Port string

	MongoURI string
	MongoDB  string

	RedisURL string // empty disables the cache layer

	JWTSecret        string
	JWTRefreshSecret string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration

	PlatformFeePercent int

	StripeSecretKey     string
	StripeWebhookSecret string

	// Out-of-scope external collaborators, carried only as passthrough
	// configuration so wiring code has somewhere to read them from.
	MailFromAddress  string
	MailFromName     string
	SMTPHost         string
	SMTPPort         string
	SMTPUser         string
	SMTPPass         string
	ObjectStoreURL   string
	PhoneAuthAdminID string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		MongoURI: getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGODB_DATABASE", "airpool"),

		RedisURL: getEnv("REDIS_URL", ""),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTRefreshSecret: getEnv("JWT_REFRESH_SECRET", ""),
		AccessTTL:        getDuration("ACCESS_TTL", 15*time.Minute),
		RefreshTTL:       getDuration("REFRESH_TTL", 7*24*time.Hour),

		PlatformFeePercent: getInt("PLATFORM_FEE_PERCENT", 10),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		MailFromAddress:  getEnv("EMAIL_FROM", "noreply@airpool.app"),
		MailFromName:     getEnv("EMAIL_FROM_NAME", "Airpool"),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getEnv("SMTP_PORT", ""),
		SMTPUser:         getEnv("SMTP_USER", ""),
		SMTPPass:         getEnv("SMTP_PASS", ""),
		ObjectStoreURL:   getEnv("OBJECT_STORE_URL", ""),
		PhoneAuthAdminID: getEnv("PHONE_AUTH_ADMIN_ID", ""),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		n := 0
		for _, c := range value {
			if c < '0' || c > '9' {
				return defaultValue
			}
			n = n*10 + int(c-'0')
		}
		return n
	}
	return defaultValue
}
