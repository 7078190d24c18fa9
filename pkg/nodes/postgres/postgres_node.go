package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/conveyorhq/conveyor/pkg/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	ActionType_Query   domain.NodeActionType = "query"
	ActionType_Execute domain.NodeActionType = "execute"
)

type PostgresCredential struct {
	URI string `json:"uri"`
}

// PoolProvider hands out connection pools for a DSN. The production
// implementation caches pools per execution scope and closes them when the
// scope's credential manager is released.
type PoolProvider interface {
	GetPostgresPool(ctx context.Context, uri string) (*pgxpool.Pool, error)
}

type PostgresNodeCreator struct {
	binder      domain.ParameterBinder
	credentials domain.CredentialProvider
	pools       PoolProvider
}

type PostgresNodeCreatorDeps struct {
	NodeDeps domain.NodeDeps
	Pools    PoolProvider
}

func NewPostgresNodeCreator(deps PostgresNodeCreatorDeps) domain.NodeCreator {
	return &PostgresNodeCreator{
		binder:      deps.NodeDeps.ParameterBinder,
		credentials: deps.NodeDeps.CredentialManager,
		pools:       deps.Pools,
	}
}

func (c *PostgresNodeCreator) CreateNode(ctx context.Context, p domain.CreateNodeParams) (domain.NodeExecutor, error) {
	if p.CredentialID == "" {
		return nil, domain.NewCredentialError("", errors.New("postgresql node requires a credential"))
	}

	getter := domain.NewCredentialGetter[PostgresCredential](p.WorkspaceID, c.credentials)

	credential, err := getter.GetDecryptedCredential(ctx, p.CredentialID)
	if err != nil {
		return nil, err
	}

	if credential.URI == "" {
		return nil, domain.NewCredentialError(p.CredentialID, errors.New("credential has no connection uri"))
	}

	pool, err := c.pools.GetPostgresPool(ctx, credential.URI)
	if err != nil {
		return nil, domain.NewCredentialError(p.CredentialID, err)
	}

	return NewPostgresNode(PostgresNodeDependencies{
		ParameterBinder: c.binder,
		Pool:            pool,
	})
}

type PostgresNode struct {
	binder        domain.ParameterBinder
	pool          *pgxpool.Pool
	actionManager *domain.NodeActionManager
}

type PostgresNodeDependencies struct {
	ParameterBinder domain.ParameterBinder
	Pool            *pgxpool.Pool
}

func NewPostgresNode(deps PostgresNodeDependencies) (*PostgresNode, error) {
	node := &PostgresNode{
		binder: deps.ParameterBinder,
		pool:   deps.Pool,
	}

	node.actionManager = domain.NewNodeActionManager().
		AddPerItemMulti(ActionType_Query, node.Query).
		AddPerItem(ActionType_Execute, node.Exec)

	return node, nil
}

func (n *PostgresNode) Execute(ctx context.Context, input domain.NodeInput) (domain.NodeOutput, error) {
	return n.actionManager.Run(ctx, input.Params.Action, input)
}

type QueryParams struct {
	Query string `json:"query"`
	Args  []any  `json:"args,omitempty"`
}

// Query runs a SELECT-style statement per input item; every returned row
// becomes one output item keyed by column name.
func (n *PostgresNode) Query(ctx context.Context, input domain.NodeInput, item domain.Item, index int) ([]domain.Item, error) {
	p, err := n.params(ctx, input, item, index)
	if err != nil {
		return nil, err
	}

	rows, err := n.pool.Query(ctx, p.Query, p.Args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	items := []domain.Item{}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		row := domain.Item{}
		for i, value := range values {
			row[rows.FieldDescriptions()[i].Name] = value
		}

		items = append(items, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	return items, nil
}

// Exec runs a statement without reading rows and reports how many were
// affected.
func (n *PostgresNode) Exec(ctx context.Context, input domain.NodeInput, item domain.Item, index int) (domain.Item, error) {
	p, err := n.params(ctx, input, item, index)
	if err != nil {
		return nil, err
	}

	tag, err := n.pool.Exec(ctx, p.Query, p.Args...)
	if err != nil {
		return nil, fmt.Errorf("statement failed: %w", err)
	}

	return domain.Item{
		"rows_affected": tag.RowsAffected(),
		"success":       true,
	}, nil
}

func (n *PostgresNode) params(ctx context.Context, input domain.NodeInput, item domain.Item, index int) (QueryParams, error) {
	var p QueryParams

	err := n.binder.BindToStruct(ctx, input.EnvFor(item, index), &p, input.Params.Settings)
	if err != nil {
		return QueryParams{}, err
	}

	if p.Query == "" {
		return QueryParams{}, domain.NewParameterResolutionError(input.NodeID, "query")
	}

	return p, nil
}
