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
	DBHost        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBPort        string
	DBURL         string
	DBDriver      string
	DBPingRetries int

	AppPort     string
	AppEnv      string
	ServiceName string

	RedisAddr string
	CacheTTL  time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	JWTSecret    string
	OtelEndpoint string
	TrustProxy   bool
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:        os.Getenv("DB_HOST"),
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBName:        os.Getenv("DB_NAME"),
		DBPort:        getenv("DB_PORT", "5432"),
		DBURL:         os.Getenv("DB_URL"),
		DBDriver:      getenv("DB_DRIVER", "postgres"),
		DBPingRetries: getenvInt("DB_PING_RETRIES", 5),
		AppPort:       getenv("APP_PORT", "8080"),
		AppEnv:        os.Getenv("APP_ENV"),
		ServiceName:   getenv("SERVICE_NAME", "warehouse-api"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		CacheTTL:      getenvDuration("CACHE_TTL", 5*time.Minute),
		KafkaBrokers:  splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:    getenv("KAFKA_TOPIC", "warehouse.orders"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		OtelEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TrustProxy:    getenvBool("TRUST_PROXY", false),
	}

	if cfg.DBHost == "" && cfg.DBURL == "" {
		log.Fatal("Environment variables not loaded properly: DB_HOST or DB_URL is required")
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %t", key, v, def)
		return def
	}
	return b
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
