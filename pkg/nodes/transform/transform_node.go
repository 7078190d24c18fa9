package transform

import (
	"context"

	"github.com/conveyorhq/conveyor/pkg/domain"
)

const (
	ActionType_Set    domain.NodeActionType = "set"
	ActionType_Rename domain.NodeActionType = "rename"
	ActionType_Pick   domain.NodeActionType = "pick"
	ActionType_Drop   domain.NodeActionType = "drop"
	ActionType_Limit  domain.NodeActionType = "limit"
)

type TransformNodeCreator struct {
	binder domain.ParameterBinder
}

func NewTransformNodeCreator(deps domain.NodeDeps) domain.NodeCreator {
	return &TransformNodeCreator{
		binder: deps.ParameterBinder,
	}
}

func (c *TransformNodeCreator) CreateNode(ctx context.Context, p domain.CreateNodeParams) (domain.NodeExecutor, error) {
	return NewTransformNode(TransformNodeDependencies{
		ParameterBinder: c.binder,
	})
}

type TransformNode struct {
	binder        domain.ParameterBinder
	actionManager *domain.NodeActionManager
}

type TransformNodeDependencies struct {
	ParameterBinder domain.ParameterBinder
}

func NewTransformNode(deps TransformNodeDependencies) (*TransformNode, error) {
	node := &TransformNode{
		binder: deps.ParameterBinder,
	}

	node.actionManager = domain.NewNodeActionManager().
		AddPerItem(ActionType_Set, node.Set).
		AddPerItem(ActionType_Rename, node.Rename).
		AddPerItem(ActionType_Pick, node.Pick).
		AddPerItem(ActionType_Drop, node.Drop).
		Add(ActionType_Limit, node.Limit)

	return node, nil
}

func (n *TransformNode) Execute(ctx context.Context, input domain.NodeInput) (domain.NodeOutput, error) {
	return n.actionManager.Run(ctx, input.Params.Action, input)
}

type SetParams struct {
	Fields map[string]any `json:"fields"`

	// KeepOnlySet drops every field that is not listed in Fields.
	KeepOnlySet bool `json:"keep_only_set,omitempty"`
}

// Set writes the configured fields into each item. Field values may be
// expressions and are resolved against the item they are written to.
func (n *TransformNode) Set(ctx context.Context, input domain.NodeInput, item domain.Item, index int) (domain.Item, error) {
	var p SetParams

	err := n.binder.BindToStruct(ctx, input.EnvFor(item, index), &p, input.Params.Settings)
	if err != nil {
		return nil, err
	}

	result := item.Clone()
	if p.KeepOnlySet {
		result = domain.Item{}
	}

	for key, value := range p.Fields {
		result[key] = value
	}

	return result, nil
}

type RenameParams struct {
	Fields map[string]string `json:"fields"`
}

func (n *TransformNode) Rename(ctx context.Context, input domain.NodeInput, item domain.Item, index int) (domain.Item, error) {
	var p RenameParams

	err := n.binder.BindToStruct(ctx, input.EnvFor(item, index), &p, input.Params.Settings)
	if err != nil {
		return nil, err
	}

	result := item.Clone()

	for from, to := range p.Fields {
		value, exists := result[from]
		if !exists {
			continue
		}

		delete(result, from)
		result[to] = value
	}

	return result, nil
}

type PickParams struct {
	Fields []string `json:"fields"`
}

func (n *TransformNode) Pick(ctx context.Context, input domain.NodeInput, item domain.Item, index int) (domain.Item, error) {
	var p PickParams

	err := n.binder.BindToStruct(ctx, input.EnvFor(item, index), &p, input.Params.Settings)
	if err != nil {
		return nil, err
	}

	source := item.Clone()
	result := domain.Item{}

	for _, field := range p.Fields {
		if value, exists := source[field]; exists {
			result[field] = value
		}
	}

	return result, nil
}

type DropParams struct {
	Fields []string `json:"fields"`
}

func (n *TransformNode) Drop(ctx context.Context, input domain.NodeInput, item domain.Item, index int) (domain.Item, error) {
	var p DropParams

	err := n.binder.BindToStruct(ctx, input.EnvFor(item, index), &p, input.Params.Settings)
	if err != nil {
		return nil, err
	}

	result := item.Clone()

	for _, field := range p.Fields {
		delete(result, field)
	}

	return result, nil
}

type LimitParams struct {
	Count int `json:"count"`

	// FromEnd keeps the last Count items instead of the first.
	FromEnd bool `json:"from_end,omitempty"`
}

// Limit truncates the item sequence. It operates on the whole input rather
// than per item, so it is registered as a whole-input action.
func (n *TransformNode) Limit(ctx context.Context, input domain.NodeInput) (domain.NodeOutput, error) {
	var p LimitParams

	env := domain.ExpressionEnv{OutputsByNodeName: input.OutputsByNodeName}
	if len(input.Items) > 0 {
		env = input.EnvFor(input.Items[0], 0)
	}

	err := n.binder.BindToStruct(ctx, env, &p, input.Params.Settings)
	if err != nil {
		return domain.NodeOutput{}, err
	}

	if p.Count < 0 {
		p.Count = 0
	}

	items := domain.CloneItems(input.Items)

	if p.Count < len(items) {
		if p.FromEnd {
			items = items[len(items)-p.Count:]
		} else {
			items = items[:p.Count]
		}
	}

	return domain.NodeOutput{Items: items}, nil
}
