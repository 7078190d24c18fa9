package managers

import (
	"context"
	"strconv"
	"testing"

	"github.com/conveyorhq/conveyor/pkg/domain"
	redisnode "github.com/conveyorhq/conveyor/pkg/nodes/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(credentials ...domain.Credential) *ConnectionManager {
	return NewConnectionManager(ConnectionManagerDeps{
		Provider: NewStaticCredentialProvider(credentials),
		Logger:   zerolog.Nop(),
	})
}

func TestStaticCredentialProvider(t *testing.T) {
	manager := newTestManager(
		domain.Credential{ID: "cred-1", WorkspaceID: "ws-1", Type: "redis"},
		domain.Credential{ID: "cred-2", Type: "http"},
	)
	ctx := context.Background()

	credential, err := manager.GetCredential(ctx, "ws-1", "cred-1")
	require.NoError(t, err)
	assert.Equal(t, "redis", credential.Type)

	// Credentials without a workspace are visible everywhere.
	_, err = manager.GetCredential(ctx, "ws-other", "cred-2")
	assert.NoError(t, err)

	// Workspace-bound credentials are not.
	_, err = manager.GetCredential(ctx, "ws-other", "cred-1")
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)

	_, err = manager.GetCredential(ctx, "ws-1", "missing")
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
}

func TestConnectionManager_RedisClientsAreCached(t *testing.T) {
	server := miniredis.RunT(t)
	manager := newTestManager()
	ctx := context.Background()

	credential := redisnode.RedisCredential{Host: server.Host(), Port: serverPort(t, server)}

	first, err := manager.GetRedisClient(ctx, credential)
	require.NoError(t, err)

	second, err := manager.GetRedisClient(ctx, credential)
	require.NoError(t, err)

	assert.Same(t, first, second)

	require.NoError(t, manager.Release(ctx))

	// After a release the next request opens a fresh client.
	third, err := manager.GetRedisClient(ctx, credential)
	require.NoError(t, err)
	assert.NotSame(t, first, third)

	require.NoError(t, manager.Release(ctx))
}

func TestConnectionManager_ReleaseIsIdempotent(t *testing.T) {
	manager := newTestManager()
	ctx := context.Background()

	require.NoError(t, manager.Release(ctx))
	require.NoError(t, manager.Release(ctx))
}

func serverPort(t *testing.T, server *miniredis.Miniredis) int {
	t.Helper()

	port, err := strconv.Atoi(server.Port())
	require.NoError(t, err)

	return port
}
