package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
}

// Postgres captures warehouse connection configuration.
type Postgres struct {
	DSN          string
	MaxOpenConns int
}

// Redis captures report cache configuration. An empty URL disables caching.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures audit event publishing configuration. Empty brokers disable
// publishing.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Config is the full process configuration assembled from the environment.
type Config struct {
	Server    Server
	Postgres  Postgres
	Redis     Redis
	Kafka     Kafka
	RulesPath string
	CacheTTL  time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	addr := getenv("DWHMON_ADDR", ":8080")

	jwtSigningKey := os.Getenv("DWHMON_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("DWHMON_KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return Config{
		Server: Server{
			Addr:          addr,
			JWTSigningKey: jwtSigningKey,
		},
		Postgres: Postgres{
			DSN:          os.Getenv("DWHMON_WAREHOUSE_DSN"),
			MaxOpenConns: getenvInt("DWHMON_WAREHOUSE_MAX_CONNS", 8),
		},
		Redis: Redis{
			URL:          os.Getenv("DWHMON_REDIS_URL"),
			PoolSize:     getenvInt("DWHMON_REDIS_POOL_SIZE", 10),
			MinIdleConns: getenvInt("DWHMON_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: Kafka{
			Brokers: brokers,
			Topic:   getenv("DWHMON_KAFKA_TOPIC", "dwhmon.report-runs"),
		},
		RulesPath: os.Getenv("DWHMON_RULES_PATH"),
		CacheTTL:  getenvDuration("DWHMON_CACHE_TTL", 5*time.Minute),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
