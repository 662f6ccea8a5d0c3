package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	// Timezone used for end-of-day expiry bookkeeping.
	Timezone string
	Currency string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimit RateLimitConfig

	CatalogRegistrySize int
	SchedulerEnabled    bool
	SeedCatalog         bool

	// StorefrontAPIURL is the base URL vipctl talks to.
	StorefrontAPIURL string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:             getenv("APP_SERVICE", "autobazaar"),
		AppVersion:          getenv("APP_VERSION", "0.1.0"),
		Environment:         getenv("ENVIRONMENT", "development"),
		HTTPAddr:            getenv("HTTP_ADDR", ":8080"),
		Timezone:            getenv("APP_TIMEZONE", "Asia/Tbilisi"),
		Currency:            strings.ToUpper(getenv("CURRENCY", "GEL")),
		OTLPEndpoint:        getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:              getenv("DATABASE_TYPE", "postgres"),
		DBHost:              getenv("DATABASE_HOST", "localhost"),
		DBPort:              getenv("DATABASE_PORT", "5432"),
		DBName:              getenv("DATABASE_NAME", "autobazaar"),
		DBUser:              getenv("DATABASE_USER", "postgres"),
		DBPassword:          getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:           getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:       getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:       getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime:   getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime:   getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		RedisAddr:           strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:       getenv("REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("REDIS_DB", 0),
		RateLimit: RateLimitConfig{
			Enabled:               getenvBool("RATE_LIMIT_ENABLED", false),
			PurchaseRate:          getenvFloat("RATE_LIMIT_PURCHASE_RATE", 0.5),
			PurchaseBurst:         getenvInt("RATE_LIMIT_PURCHASE_BURST", 5),
			ActivationLockSeconds: getenvInt("RATE_LIMIT_ACTIVATION_LOCK_SECONDS", 15),
		},
		CatalogRegistrySize: getenvInt("CATALOG_REGISTRY_SIZE", 64),
		SchedulerEnabled:    getenvBool("SCHEDULER_ENABLED", true),
		SeedCatalog:         getenvBool("SEED_CATALOG", true),
		StorefrontAPIURL:    strings.TrimRight(getenv("STOREFRONT_API_URL", "http://localhost:8080"), "/"),
	}

	return cfg
}

// RateLimitConfig throttles purchases per user and serialises activations per
// listing. Both need REDIS_ADDR.
type RateLimitConfig struct {
	Enabled               bool
	PurchaseRate          float64
	PurchaseBurst         int
	ActivationLockSeconds int
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Location resolves Timezone, falling back to UTC when it cannot be loaded.
func (c Config) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("[config] unknown timezone %q, using UTC: %v", name, err)
		return time.UTC
	}
	return loc
}

var Module = fx.Module("config",
	fx.Provide(
		Load,
		NewCatalogConfigHolder,
	),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
