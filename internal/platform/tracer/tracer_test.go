package tracer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinyoro/market-service/internal/config"
)

func TestInitTracer_NoEndpoint(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), &config.TracingConfig{ServiceName: "market-service"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
