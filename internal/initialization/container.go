package initialization

import (
	"context"
	"fmt"

	"github.com/conveyorhq/conveyor/internal/config"
	"github.com/conveyorhq/conveyor/internal/managers"
	"github.com/conveyorhq/conveyor/internal/store"
	"github.com/conveyorhq/conveyor/pkg/domain"
	"github.com/conveyorhq/conveyor/pkg/engine"
	"github.com/conveyorhq/conveyor/pkg/expressions"
	"github.com/conveyorhq/conveyor/pkg/nodes"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// EngineContainer holds the fully wired engine: node selector, stores,
// executor service and debug controller. It is built once at startup and
// shared by the HTTP server and the CLI.
type EngineContainer struct {
	Config            *config.Config
	Selector          domain.NodeSelector
	WorkflowStore     *store.MemoryWorkflowStore
	SessionStore      domain.SessionStore
	BreakpointStore   domain.BreakpointStore
	ConnectionManager *managers.ConnectionManager
	ExecutorService   *engine.ExecutorService
	DebugController   *engine.DebugController
}

func NewEngineContainer(ctx context.Context, cfg *config.Config) (*EngineContainer, error) {
	logger := log.Logger

	provider := managers.NewStaticCredentialProvider(cfg.Credentials)

	connectionManager := managers.NewConnectionManager(managers.ConnectionManagerDeps{
		Provider: provider,
		Logger:   logger,
	})

	workflowStore := store.NewMemoryWorkflowStore()

	if cfg.WorkflowsPath != "" {
		count, err := store.LoadWorkflowsFromFile(ctx, workflowStore, cfg.WorkflowsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflows from %s: %w", cfg.WorkflowsPath, err)
		}

		log.Info().Msgf("Loaded %d workflows from %s", count, cfg.WorkflowsPath)
	}

	sessionStore, err := newSessionStore(cfg)
	if err != nil {
		return nil, err
	}

	breakpointStore := store.NewMemoryBreakpointStore()

	selector := domain.NewNodeSelector()

	executorService := engine.NewExecutorService(engine.ExecutorServiceDeps{
		Selector:          selector,
		WorkflowStore:     workflowStore,
		CredentialManager: connectionManager,
		Logger:            logger,
	})

	subworkflowInvoker := engine.NewSubworkflowInvoker(engine.SubworkflowInvokerDeps{
		Service:  executorService,
		MaxDepth: cfg.MaxSubworkflowDepth,
		Logger:   logger,
	})

	binder := expressions.NewExprBinder(expressions.ExprBinderOptions{
		Logger: logger,
	})

	nodes.RegisterAll(nodes.RegisterParams{
		Selector: selector,
		NodeDeps: domain.NodeDeps{
			ParameterBinder:    binder,
			NodeSelector:       selector,
			CredentialManager:  connectionManager,
			HTTPHelper:         domain.NewHTTPHelper(),
			SubworkflowInvoker: subworkflowInvoker,
			WorkflowStore:      workflowStore,
			Logger:             logger,
		},
		PostgresPools: connectionManager,
		RedisClients:  connectionManager,
	})

	debugController := engine.NewDebugController(engine.DebugControllerDeps{
		Selector:          selector,
		SessionStore:      sessionStore,
		BreakpointStore:   breakpointStore,
		WorkflowStore:     workflowStore,
		CredentialManager: connectionManager,
		Logger:            logger,
		FrameItemLimit:    cfg.FrameItemLimit,
	})

	return &EngineContainer{
		Config:            cfg,
		Selector:          selector,
		WorkflowStore:     workflowStore,
		SessionStore:      sessionStore,
		BreakpointStore:   breakpointStore,
		ConnectionManager: connectionManager,
		ExecutorService:   executorService,
		DebugController:   debugController,
	}, nil
}

func newSessionStore(cfg *config.Config) (domain.SessionStore, error) {
	switch cfg.SessionStore {
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		log.Info().Msgf("Using redis session store at %s", cfg.RedisAddress)

		return store.NewRedisSessionStore(client, cfg.SessionTTL()), nil
	case "memory":
		return store.NewMemorySessionStore(), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}
