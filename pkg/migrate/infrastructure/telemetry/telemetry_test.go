package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/config"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/infrastructure/telemetry"
)

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	p, err := telemetry.Setup(context.Background(), config.TracingConfig{ServiceName: "svc"})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestSetup_BuildsProviders(t *testing.T) {
	for _, protocol := range []string{"grpc", "http"} {
		t.Run(protocol, func(t *testing.T) {
			p, err := telemetry.Setup(context.Background(), config.TracingConfig{
				OTLPEndpoint: "127.0.0.1:4317",
				Protocol:     protocol,
				Insecure:     true,
				ServiceName:  "svc",
			})
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.NotNil(t, p.Tracer)
			assert.NotNil(t, p.Meter)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_ = p.Shutdown(ctx)
		})
	}
}
