package observability

import (
	"context"
	"testing"
	"time"

	"warehouse-api/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSetupTracing(t *testing.T) {
	t.Run("Disabled without endpoint", func(t *testing.T) {
		shutdown, err := SetupTracing(context.Background(), &config.Config{ServiceName: "warehouse-api"})
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))

		_, isSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider)
		assert.False(t, isSDK)
	})

	t.Run("Installs SDK provider", func(t *testing.T) {
		prev := otel.GetTracerProvider()
		t.Cleanup(func() { otel.SetTracerProvider(prev) })

		cfg := &config.Config{ServiceName: "warehouse-api", AppEnv: "test", OtelEndpoint: "http://127.0.0.1:4318"}
		shutdown, err := SetupTracing(context.Background(), cfg)
		require.NoError(t, err)

		_, isSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider)
		assert.True(t, isSDK)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		assert.NoError(t, shutdown(ctx))
	})
}
