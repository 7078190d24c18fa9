package engine

import (
	"context"
	"fmt"

	"github.com/conveyorhq/conveyor/pkg/domain"

	"github.com/rs/zerolog"
)

// DefaultMaxSubworkflowDepth bounds recursive workflow invocation. A
// workflow may reference itself or a peer that references it back, so the
// chain is cut off once it nests this deep.
const DefaultMaxSubworkflowDepth = 10

// SubworkflowInvoker executes a nested workflow by recursing into the
// engine's top-level execute operation. In "once" mode the sub-workflow
// runs a single time over all input items; in "foreach" mode it runs once
// per item in input order and the per-run outputs are concatenated.
type SubworkflowInvoker struct {
	service  *ExecutorService
	maxDepth int
	logger   zerolog.Logger
}

type SubworkflowInvokerDeps struct {
	Service  *ExecutorService
	MaxDepth int
	Logger   zerolog.Logger
}

func NewSubworkflowInvoker(deps SubworkflowInvokerDeps) *SubworkflowInvoker {
	maxDepth := deps.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxSubworkflowDepth
	}

	return &SubworkflowInvoker{
		service:  deps.Service,
		maxDepth: maxDepth,
		logger:   deps.Logger,
	}
}

func (i *SubworkflowInvoker) Invoke(ctx context.Context, params domain.InvokeSubworkflowParams) ([]domain.Item, error) {
	if scope, ok := domain.ExecutionScopeFromContext(ctx); ok && scope.Depth+1 > i.maxDepth {
		return nil, domain.NewSubworkflowError(params.WorkflowID, -1, domain.ErrMaxDepthExceeded)
	}

	switch params.Mode {
	case domain.SubworkflowModeOnce, "":
		return i.invokeOnce(ctx, params)
	case domain.SubworkflowModeForEach:
		return i.invokeForEach(ctx, params)
	default:
		return nil, domain.NewSubworkflowError(params.WorkflowID, -1, fmt.Errorf("unknown subworkflow mode %q", params.Mode))
	}
}

func (i *SubworkflowInvoker) invokeOnce(ctx context.Context, params domain.InvokeSubworkflowParams) ([]domain.Item, error) {
	var firstJSON domain.Item
	if len(params.Items) > 0 {
		firstJSON = params.Items[0]
	}

	trigger := []domain.Item{
		{
			"items": params.Items,
			"json":  firstJSON,
		},
	}

	result, err := i.service.ExecuteWorkflow(ctx, ExecuteWorkflowParams{
		WorkspaceID:  params.WorkspaceID,
		WorkflowID:   params.WorkflowID,
		TriggerItems: trigger,
	})
	if err != nil {
		return nil, domain.NewSubworkflowError(params.WorkflowID, -1, err)
	}

	return result.OutputItems, nil
}

func (i *SubworkflowInvoker) invokeForEach(ctx context.Context, params domain.InvokeSubworkflowParams) ([]domain.Item, error) {
	outputItems := []domain.Item{}

	for index, item := range params.Items {
		trigger := []domain.Item{
			{
				"item":  item,
				"index": index,
				"json":  item,
			},
		}

		result, err := i.service.ExecuteWorkflow(ctx, ExecuteWorkflowParams{
			WorkspaceID:  params.WorkspaceID,
			WorkflowID:   params.WorkflowID,
			TriggerItems: trigger,
		})
		if err != nil {
			// Partial outputs gathered so far are discarded; the caller
			// gets the originating item index instead.
			return nil, domain.NewSubworkflowError(params.WorkflowID, index, err)
		}

		if len(result.OutputItems) == 0 {
			outputItems = append(outputItems, domain.Item{"index": index, "success": true})

			continue
		}

		outputItems = append(outputItems, result.OutputItems...)
	}

	return outputItems, nil
}
