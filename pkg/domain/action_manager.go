package domain

import (
	"context"
	"fmt"
	"sync"
)

type ActionFunc func(ctx context.Context, input NodeInput) (NodeOutput, error)
type ActionFuncPerItem func(ctx context.Context, input NodeInput, item Item, index int) (Item, error)
type ActionFuncPerItemMulti func(ctx context.Context, input NodeInput, item Item, index int) ([]Item, error)

// NodeActionManager dispatches a node invocation to the function registered
// for its action type. Per-item functions are invoked once per input item in
// input order, each with its own expression environment.
type NodeActionManager struct {
	mtx                     sync.RWMutex
	actionFuncs             map[NodeActionType]ActionFunc
	actionFuncsPerItem      map[NodeActionType]ActionFuncPerItem
	actionFuncsPerItemMulti map[NodeActionType]ActionFuncPerItemMulti
}

func NewNodeActionManager() *NodeActionManager {
	return &NodeActionManager{
		actionFuncs:             make(map[NodeActionType]ActionFunc),
		actionFuncsPerItem:      make(map[NodeActionType]ActionFuncPerItem),
		actionFuncsPerItemMulti: make(map[NodeActionType]ActionFuncPerItemMulti),
	}
}

func (m *NodeActionManager) Add(actionType NodeActionType, actionFunc ActionFunc) *NodeActionManager {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.actionFuncs[actionType] = actionFunc

	return m
}

func (m *NodeActionManager) AddPerItem(actionType NodeActionType, actionFunc ActionFuncPerItem) *NodeActionManager {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.actionFuncsPerItem[actionType] = actionFunc

	return m
}

func (m *NodeActionManager) AddPerItemMulti(actionType NodeActionType, actionFunc ActionFuncPerItemMulti) *NodeActionManager {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.actionFuncsPerItemMulti[actionType] = actionFunc

	return m
}

func (m *NodeActionManager) Run(ctx context.Context, actionType NodeActionType, input NodeInput) (NodeOutput, error) {
	m.mtx.RLock()
	actionFunc, hasWholeInput := m.actionFuncs[actionType]
	perItemFunc, hasPerItem := m.actionFuncsPerItem[actionType]
	perItemMultiFunc, hasPerItemMulti := m.actionFuncsPerItemMulti[actionType]
	m.mtx.RUnlock()

	switch {
	case hasWholeInput:
		return actionFunc(ctx, input)
	case hasPerItem:
		return m.runPerItem(ctx, input, perItemFunc)
	case hasPerItemMulti:
		return m.runPerItemMulti(ctx, input, perItemMultiFunc)
	default:
		return NodeOutput{}, fmt.Errorf("action %s not registered", actionType)
	}
}

func (m *NodeActionManager) runPerItem(ctx context.Context, input NodeInput, actionFunc ActionFuncPerItem) (NodeOutput, error) {
	outputItems := make([]Item, 0, len(input.Items))

	for index, item := range input.Items {
		if ctx.Err() != nil {
			return NodeOutput{}, ctx.Err()
		}

		outputItem, err := actionFunc(ctx, input, item, index)
		if err != nil {
			return NodeOutput{}, err
		}

		if outputItem == nil {
			continue
		}

		outputItems = append(outputItems, outputItem)
	}

	return NodeOutput{Items: outputItems}, nil
}

func (m *NodeActionManager) runPerItemMulti(ctx context.Context, input NodeInput, actionFunc ActionFuncPerItemMulti) (NodeOutput, error) {
	outputItems := []Item{}

	for index, item := range input.Items {
		if ctx.Err() != nil {
			return NodeOutput{}, ctx.Err()
		}

		items, err := actionFunc(ctx, input, item, index)
		if err != nil {
			return NodeOutput{}, err
		}

		outputItems = append(outputItems, items...)
	}

	return NodeOutput{Items: outputItems}, nil
}
