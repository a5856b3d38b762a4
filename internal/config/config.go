package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port            string
	Environment     string
	LogLevel        string
	MongoDBURI      string
	MongoDBPassword string
	MongoDBName     string
	// Transactions require a replica set; without it bookings use lease locks.
	MongoDBTransactions bool
	DBTimeout           time.Duration

	JWTSecret  string
	JWTTTL     time.Duration
	JWKSURL    string
	BcryptCost int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	RateLimit     RateLimitConfig

	RabbitMQURL string

	MailjetAPIKey    string
	MailjetAPISecret string
	MailFrom         string
	MailFromName     string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	PublicBaseURL string
	CORSOrigins   []string
}

type RateLimitConfig struct {
	Enabled        bool
	Prefix         string
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:                getEnvWithDefault("PORT", "8080"),
		Environment:         getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:            getEnvWithDefault("LOG_LEVEL", "info"),
		MongoDBURI:          os.Getenv("MONGODB_URI"),
		MongoDBPassword:     os.Getenv("MONGODB_PASSWORD"),
		MongoDBName:         getEnvWithDefault("MONGODB_DB", "unibook"),
		MongoDBTransactions: getEnvBool("MONGODB_TRANSACTIONS", false),
		DBTimeout:           getEnvDuration("DB_TIMEOUT", 10*time.Second),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		JWTTTL:     getEnvDuration("JWT_TTL", time.Hour),
		JWKSURL:    os.Getenv("JWKS_URL"),
		BcryptCost: getEnvInt("BCRYPT_COST", 10),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 30*time.Second),
		RateLimit: RateLimitConfig{
			Enabled:        getEnvBool("RATE_LIMIT_ENABLED", true),
			Prefix:         getEnvWithDefault("RATE_LIMIT_PREFIX", "rl"),
			Capacity:       getEnvInt("RATE_LIMIT_CAPACITY", 60),
			RefillTokens:   getEnvInt("RATE_LIMIT_REFILL_TOKENS", 1),
			RefillInterval: getEnvDuration("RATE_LIMIT_REFILL_INTERVAL", time.Second),
			TTL:            getEnvDuration("RATE_LIMIT_TTL", 10*time.Minute),
		},

		RabbitMQURL: os.Getenv("RABBITMQ_URL"),

		MailjetAPIKey:    os.Getenv("MAILJET_API_KEY"),
		MailjetAPISecret: os.Getenv("MAILJET_API_SECRET"),
		MailFrom:         getEnvWithDefault("MAIL_FROM", "bookings@unibook.local"),
		MailFromName:     getEnvWithDefault("MAIL_FROM_NAME", "Unibook"),

		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),

		PublicBaseURL: strings.TrimRight(getEnvWithDefault("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		CORSOrigins:   splitList(getEnvWithDefault("CORS_ORIGINS", "http://localhost:3000")),
	}

	// Validate required fields
	if cfg.MongoDBURI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required")
	}
	if strings.Contains(cfg.MongoDBURI, "<password>") && cfg.MongoDBPassword == "" {
		return nil, fmt.Errorf("MONGODB_PASSWORD is required when MONGODB_URI contains <password>")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.DBTimeout <= 0 {
		return nil, fmt.Errorf("DB_TIMEOUT must be positive")
	}

	return cfg, nil
}

// MongoURI fills the <password> placeholder some providers put in connection strings.
func (c *Config) MongoURI() string {
	return strings.Replace(c.MongoDBURI, "<password>", c.MongoDBPassword, 1)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) MailjetEnabled() bool {
	return c.MailjetAPIKey != "" && c.MailjetAPISecret != ""
}

func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
