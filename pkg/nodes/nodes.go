package nodes

import (
	"github.com/conveyorhq/conveyor/pkg/domain"
	"github.com/conveyorhq/conveyor/pkg/nodes/code"
	"github.com/conveyorhq/conveyor/pkg/nodes/datetime"
	"github.com/conveyorhq/conveyor/pkg/nodes/http"
	"github.com/conveyorhq/conveyor/pkg/nodes/postgres"
	"github.com/conveyorhq/conveyor/pkg/nodes/redis"
	"github.com/conveyorhq/conveyor/pkg/nodes/subworkflow"
	"github.com/conveyorhq/conveyor/pkg/nodes/transform"

	"github.com/rs/zerolog/log"
)

type nodeRegisterParams struct {
	Schema     domain.NodeDescriptor
	NewCreator func(p RegisterParams) domain.NodeCreator
}

var nodeRegisterParamsList = []nodeRegisterParams{
	{
		Schema: http.Schema,
		NewCreator: func(p RegisterParams) domain.NodeCreator {
			return http.NewHTTPNodeCreator(p.NodeDeps)
		},
	},
	{
		Schema: transform.Schema,
		NewCreator: func(p RegisterParams) domain.NodeCreator {
			return transform.NewTransformNodeCreator(p.NodeDeps)
		},
	},
	{
		Schema: code.Schema,
		NewCreator: func(p RegisterParams) domain.NodeCreator {
			return code.NewCodeNodeCreator(p.NodeDeps)
		},
	},
	{
		Schema: datetime.Schema,
		NewCreator: func(p RegisterParams) domain.NodeCreator {
			return datetime.NewDateTimeNodeCreator(p.NodeDeps)
		},
	},
	{
		Schema: postgres.Schema,
		NewCreator: func(p RegisterParams) domain.NodeCreator {
			return postgres.NewPostgresNodeCreator(postgres.PostgresNodeCreatorDeps{
				NodeDeps: p.NodeDeps,
				Pools:    p.PostgresPools,
			})
		},
	},
	{
		Schema: redis.Schema,
		NewCreator: func(p RegisterParams) domain.NodeCreator {
			return redis.NewRedisNodeCreator(redis.RedisNodeCreatorDeps{
				NodeDeps: p.NodeDeps,
				Clients:  p.RedisClients,
			})
		},
	},
	{
		Schema: subworkflow.Schema,
		NewCreator: func(p RegisterParams) domain.NodeCreator {
			return subworkflow.NewSubworkflowNodeCreator(p.NodeDeps)
		},
	},
}

type RegisterParams struct {
	Selector      domain.NodeSelector
	NodeDeps      domain.NodeDeps
	PostgresPools postgres.PoolProvider
	RedisClients  redis.ClientProvider
}

// RegisterAll wires every built-in node type into the selector.
func RegisterAll(p RegisterParams) {
	for _, params := range nodeRegisterParamsList {
		log.Info().Msgf("Registering node type %s", params.Schema.Type)

		p.Selector.RegisterCreator(params.Schema.Type, params.NewCreator(p))
		p.Selector.RegisterDescriptor(params.Schema)
	}
}
