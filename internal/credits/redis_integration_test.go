//go:build integration

package credits

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestIntegration_RedisCell(t *testing.T) {
	url := setupRedis(t)
	ctx := context.Background()

	client, err := OpenRedis(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	cell := NewRedisCell[Info](client, "speakflow:credits")

	_, ok, err := cell.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	info := NewInfo(&Subscription{CharacterCount: 30, CharacterLimit: 120}, time.Now())
	require.NoError(t, cell.Set(ctx, info, time.Second))

	got, ok, err := cell.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 25.0, got.PercentageUsed)

	time.Sleep(1500 * time.Millisecond)
	_, ok, err = cell.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "value should expire")

	last, ok, err := cell.Last(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(30), last.CharacterCount)
}
