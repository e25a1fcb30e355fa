package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "hawkops-agents"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	// No-op instruments are still usable.
	c, err := Meter("hawkops/test").Int64Counter("hawkops.test")
	require.NoError(t, err)
	c.Add(context.Background(), 1)

	_, span := Tracer("hawkops/test").Start(context.Background(), "noop")
	span.End()
}
