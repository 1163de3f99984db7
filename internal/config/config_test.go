package config

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Success loading from env", func(t *testing.T) {
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("DB_USER", "testuser")
		t.Setenv("DB_PASSWORD", "testpass")
		t.Setenv("DB_NAME", "testdb")
		t.Setenv("DB_PORT", "5433")
		t.Setenv("APP_PORT", "9090")
		t.Setenv("APP_ENV", "test")
		t.Setenv("REDIS_ADDR", "localhost:6379")
		t.Setenv("CACHE_TTL", "30s")
		t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("TRUST_PROXY", "true")

		cfg := LoadConfig()

		assert.NotNil(t, cfg)
		assert.Equal(t, "localhost", cfg.DBHost)
		assert.Equal(t, "testuser", cfg.DBUser)
		assert.Equal(t, "testpass", cfg.DBPassword)
		assert.Equal(t, "testdb", cfg.DBName)
		assert.Equal(t, "5433", cfg.DBPort)
		assert.Equal(t, "9090", cfg.AppPort)
		assert.Equal(t, "test", cfg.AppEnv)
		assert.Equal(t, "localhost:6379", cfg.RedisAddr)
		assert.Equal(t, 30*time.Second, cfg.CacheTTL)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
		assert.Equal(t, "secret", cfg.JWTSecret)
		assert.True(t, cfg.TrustProxy)
	})

	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("DB_URL", "postgres://u:p@localhost/db?sslmode=disable")
		t.Setenv("DB_HOST", "")
		t.Setenv("DB_PORT", "")
		t.Setenv("APP_PORT", "")
		t.Setenv("DB_DRIVER", "")
		t.Setenv("CACHE_TTL", "not-a-duration")
		t.Setenv("DB_PING_RETRIES", "x")
		t.Setenv("KAFKA_BROKERS", "")
		t.Setenv("TRUST_PROXY", "maybe")

		cfg := LoadConfig()

		assert.Equal(t, "5432", cfg.DBPort)
		assert.Equal(t, "8080", cfg.AppPort)
		assert.Equal(t, "postgres", cfg.DBDriver)
		assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
		assert.Equal(t, 5, cfg.DBPingRetries)
		assert.Equal(t, "warehouse.orders", cfg.KafkaTopic)
		assert.Empty(t, cfg.KafkaBrokers)
		assert.False(t, cfg.TrustProxy)
	})
}

func TestLoadConfig_MissingDatabase(t *testing.T) {
	if os.Getenv("BE_CRASHER") == "1" {
		os.Unsetenv("DB_HOST")
		os.Unsetenv("DB_URL")
		LoadConfig()
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestLoadConfig_MissingDatabase")
	cmd.Env = append(os.Environ(), "BE_CRASHER=1")
	err := cmd.Run()

	if e, ok := err.(*exec.ExitError); ok && !e.Success() {
		return
	}
	t.Fatalf("process ran with err %v, want exit status 1", err)
}
