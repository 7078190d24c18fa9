package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/conveyorhq/conveyor/pkg/domain"
	redisnode "github.com/conveyorhq/conveyor/pkg/nodes/redis"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ConnectionManager resolves credentials through the configured provider
// and caches the client handles opened from them. Handles are shared by
// every node in the same run, nested subworkflow runs included, and closed
// together when Release is called at the end of the top-level run.
type ConnectionManager struct {
	provider domain.CredentialProvider
	logger   zerolog.Logger

	mutex         sync.Mutex
	postgresPools map[string]*pgxpool.Pool
	redisClients  map[string]*redis.Client
}

type ConnectionManagerDeps struct {
	Provider domain.CredentialProvider
	Logger   zerolog.Logger
}

func NewConnectionManager(deps ConnectionManagerDeps) *ConnectionManager {
	return &ConnectionManager{
		provider:      deps.Provider,
		logger:        deps.Logger,
		postgresPools: map[string]*pgxpool.Pool{},
		redisClients:  map[string]*redis.Client{},
	}
}

func (m *ConnectionManager) GetCredential(ctx context.Context, workspaceID, credentialID string) (domain.Credential, error) {
	return m.provider.GetCredential(ctx, workspaceID, credentialID)
}

// GetPostgresPool returns the cached pool for the DSN, opening it on first
// use. Pools connect lazily, so opening one is cheap.
func (m *ConnectionManager) GetPostgresPool(ctx context.Context, uri string) (*pgxpool.Pool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if pool, ok := m.postgresPools[uri]; ok {
		return pool, nil
	}

	pool, err := pgxpool.New(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}

	m.postgresPools[uri] = pool

	return pool, nil
}

func (m *ConnectionManager) GetRedisClient(ctx context.Context, credential redisnode.RedisCredential) (*redis.Client, error) {
	key := fmt.Sprintf("%s/%d/%s", credential.Addr(), credential.Database, credential.Username)

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if client, ok := m.redisClients[key]; ok {
		return client, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     credential.Addr(),
		Username: credential.Username,
		Password: credential.Password,
		DB:       credential.Database,
	})

	m.redisClients[key] = client

	return client, nil
}

// Release closes every cached client handle. It is idempotent; handles
// opened after a release are tracked for the next one.
func (m *ConnectionManager) Release(ctx context.Context) error {
	m.mutex.Lock()
	pools := m.postgresPools
	clients := m.redisClients
	m.postgresPools = map[string]*pgxpool.Pool{}
	m.redisClients = map[string]*redis.Client{}
	m.mutex.Unlock()

	var firstErr error

	for _, pool := range pools {
		pool.Close()
	}

	if len(pools) > 0 {
		m.logger.Debug().Int("pool_count", len(pools)).Msg("Closed postgres pools")
	}

	for key, client := range clients {
		m.logger.Debug().Str("client", key).Msg("Closing redis client")

		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
