package domain

import (
	"context"

	"github.com/rs/zerolog"
)

// NodeInput carries everything a node needs for one invocation. It is
// rebuilt for every invocation and must not leak state across nodes.
type NodeInput struct {
	NodeID string
	Node   Node

	// Items is the flattened, ordered input item sequence.
	Items []Item

	// ItemsBySource holds the items grouped by the upstream node that
	// produced them, in predecessor order. Join-style nodes use this; most
	// nodes only read Items.
	ItemsBySource []SourceItems

	// OutputsByNodeName exposes prior node outputs for expression
	// resolution ($node("Name")).
	OutputsByNodeName map[string][]Item

	Params   NodeParams
	Workflow *Workflow
}

// EnvFor builds the expression environment for one input item.
func (i NodeInput) EnvFor(item Item, index int) ExpressionEnv {
	return ExpressionEnv{
		Item:              item,
		Index:             index,
		OutputsByNodeName: i.OutputsByNodeName,
	}
}

type SourceItems struct {
	SourceNodeID string `json:"source_node_id"`
	Items        []Item `json:"items"`
}

type NodeParams struct {
	Action   NodeActionType
	Settings map[string]any
}

type NodeOutput struct {
	Items []Item
}

// NodeExecutor is implemented by every node type. A node's output, however
// it is structured internally, is returned as a single ordered item
// sequence.
type NodeExecutor interface {
	Execute(ctx context.Context, input NodeInput) (NodeOutput, error)
}

type CreateNodeParams struct {
	WorkspaceID  string
	CredentialID string
}

// NodeCreator builds a NodeExecutor bound to a workspace and credential.
type NodeCreator interface {
	CreateNode(ctx context.Context, p CreateNodeParams) (NodeExecutor, error)
}

// ParameterBinder resolves expression-valued settings against the current
// item and prior node outputs before they reach node logic.
type ParameterBinder interface {
	BindToStruct(ctx context.Context, env ExpressionEnv, target any, settings map[string]any) error
	BindValue(ctx context.Context, env ExpressionEnv, value any) (any, error)
}

// ExpressionEnv is the data an expression can reference: the current item
// ($json), its index ($index) and named upstream outputs ($node("Name")).
type ExpressionEnv struct {
	Item              Item
	Index             int
	OutputsByNodeName map[string][]Item
}

type SubworkflowMode string

const (
	SubworkflowModeOnce    SubworkflowMode = "once"
	SubworkflowModeForEach SubworkflowMode = "foreach"
)

type InvokeSubworkflowParams struct {
	WorkspaceID string
	WorkflowID  string
	Mode        SubworkflowMode
	Items       []Item
}

// SubworkflowInvoker executes a nested workflow by recursively driving the
// engine's top-level execute operation.
type SubworkflowInvoker interface {
	Invoke(ctx context.Context, params InvokeSubworkflowParams) ([]Item, error)
}

// WorkflowStore provides read access to a consistent workflow snapshot for
// the duration of a single execution.
type WorkflowStore interface {
	GetWorkflow(ctx context.Context, workspaceID, workflowID string) (Workflow, error)
}

// NodeDeps bundles the collaborators shared by node constructors.
type NodeDeps struct {
	ParameterBinder    ParameterBinder
	NodeSelector       NodeSelector
	CredentialManager  CredentialManager
	HTTPHelper         *HTTPHelper
	SubworkflowInvoker SubworkflowInvoker
	WorkflowStore      WorkflowStore
	Logger             zerolog.Logger
}
