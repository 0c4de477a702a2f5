//go:build integration

package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}()

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	defer client.Close()
	store := NewRedisStore(client)

	_, ok, err := store.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Reserve(ctx, "k", time.Minute))
	assert.ErrorIs(t, store.Reserve(ctx, "k", time.Minute), ErrInFlight)

	_, ok, err = store.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "a reservation is not a response")

	require.NoError(t, store.Save(ctx, "k", Response{Status: 200, ContentType: "application/json", Body: []byte(`{}`)}, time.Minute))
	resp, ok, err := store.Lookup(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 200, resp.Status)

	require.NoError(t, store.Release(ctx, "k"))
	assert.NoError(t, store.Reserve(ctx, "k", time.Minute))
}
