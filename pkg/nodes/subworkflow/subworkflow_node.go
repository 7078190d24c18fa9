package subworkflow

import (
	"context"

	"github.com/conveyorhq/conveyor/pkg/domain"
)

const (
	ActionType_Invoke domain.NodeActionType = "invoke"
)

type SubworkflowNodeCreator struct {
	binder  domain.ParameterBinder
	invoker domain.SubworkflowInvoker
}

func NewSubworkflowNodeCreator(deps domain.NodeDeps) domain.NodeCreator {
	return &SubworkflowNodeCreator{
		binder:  deps.ParameterBinder,
		invoker: deps.SubworkflowInvoker,
	}
}

func (c *SubworkflowNodeCreator) CreateNode(ctx context.Context, p domain.CreateNodeParams) (domain.NodeExecutor, error) {
	return NewSubworkflowNode(SubworkflowNodeDependencies{
		ParameterBinder: c.binder,
		Invoker:         c.invoker,
		WorkspaceID:     p.WorkspaceID,
	})
}

type SubworkflowNode struct {
	binder        domain.ParameterBinder
	invoker       domain.SubworkflowInvoker
	workspaceID   string
	actionManager *domain.NodeActionManager
}

type SubworkflowNodeDependencies struct {
	ParameterBinder domain.ParameterBinder
	Invoker         domain.SubworkflowInvoker
	WorkspaceID     string
}

func NewSubworkflowNode(deps SubworkflowNodeDependencies) (*SubworkflowNode, error) {
	node := &SubworkflowNode{
		binder:      deps.ParameterBinder,
		invoker:     deps.Invoker,
		workspaceID: deps.WorkspaceID,
	}

	node.actionManager = domain.NewNodeActionManager().
		Add(ActionType_Invoke, node.Invoke)

	return node, nil
}

func (n *SubworkflowNode) Execute(ctx context.Context, input domain.NodeInput) (domain.NodeOutput, error) {
	action := input.Params.Action
	if action == "" {
		action = ActionType_Invoke
	}

	return n.actionManager.Run(ctx, action, input)
}

type InvokeParams struct {
	WorkflowID string `json:"workflow_id"`
	Mode       string `json:"mode,omitempty"`
}

// Invoke hands the whole input item sequence to the nested workflow. The
// mode decides whether the child runs once over the batch or once per item.
func (n *SubworkflowNode) Invoke(ctx context.Context, input domain.NodeInput) (domain.NodeOutput, error) {
	var p InvokeParams

	env := domain.ExpressionEnv{OutputsByNodeName: input.OutputsByNodeName}
	if len(input.Items) > 0 {
		env = input.EnvFor(input.Items[0], 0)
	}

	err := n.binder.BindToStruct(ctx, env, &p, input.Params.Settings)
	if err != nil {
		return domain.NodeOutput{}, err
	}

	if p.WorkflowID == "" {
		return domain.NodeOutput{}, domain.NewParameterResolutionError(input.NodeID, "workflow_id")
	}

	items, err := n.invoker.Invoke(ctx, domain.InvokeSubworkflowParams{
		WorkspaceID: n.workspaceID,
		WorkflowID:  p.WorkflowID,
		Mode:        domain.SubworkflowMode(p.Mode),
		Items:       input.Items,
	})
	if err != nil {
		return domain.NodeOutput{}, err
	}

	return domain.NodeOutput{Items: items}, nil
}
