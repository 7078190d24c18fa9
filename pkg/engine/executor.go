package engine

import (
	"context"
	"sync"

	"github.com/conveyorhq/conveyor/pkg/domain"

	"github.com/rs/zerolog"
)

// WorkflowExecutor runs a whole workflow against trigger data. Independent
// branches execute in parallel waves; a node with multiple inbound edges
// waits until every predecessor has completed. Debug sessions never use
// this path, they step through the same plan one node at a time.
type WorkflowExecutor struct {
	executionID string
	workflow    domain.Workflow
	plan        *ExecutionPlan
	runner      *nodeRunner
	logger      zerolog.Logger

	mutex           sync.Mutex
	outputsByNodeID map[string][]domain.Item
}

type WorkflowExecutorDeps struct {
	ExecutionID string
	Workflow    domain.Workflow
	Plan        *ExecutionPlan
	Selector    domain.NodeSelector
	Logger      zerolog.Logger
}

func NewWorkflowExecutor(deps WorkflowExecutorDeps) *WorkflowExecutor {
	return &WorkflowExecutor{
		executionID:     deps.ExecutionID,
		workflow:        deps.Workflow,
		plan:            deps.Plan,
		runner:          newNodeRunner(deps.Selector, deps.Logger),
		logger:          deps.Logger,
		outputsByNodeID: map[string][]domain.Item{},
	}
}

type ExecutionResult struct {
	ExecutionID     string
	OutputItems     []domain.Item
	OutputsByNodeID map[string][]domain.Item
}

func (e *WorkflowExecutor) Execute(ctx context.Context, triggerItems []domain.Item) (ExecutionResult, error) {
	order := e.plan.Order

	remaining := make(map[string]int, len(order))
	for _, nodeID := range order {
		remaining[nodeID] = len(e.plan.Predecessors[nodeID])
	}

	executed := make(map[string]struct{}, len(order))

	for len(executed) < len(order) {
		if ctx.Err() != nil {
			return ExecutionResult{}, ctx.Err()
		}

		wave := []string{}
		for _, nodeID := range order {
			if _, done := executed[nodeID]; done {
				continue
			}

			if remaining[nodeID] == 0 {
				wave = append(wave, nodeID)
			}
		}

		errsByNodeID := make(map[string]error, len(wave))

		var wg sync.WaitGroup
		var errMutex sync.Mutex

		for _, nodeID := range wave {
			node, _ := e.plan.NodeByID(nodeID)

			wg.Add(1)
			go func(node domain.Node) {
				defer wg.Done()

				result, err := e.runner.runNode(ctx, runNodeParams{
					Workflow:        &e.workflow,
					Node:            node,
					Plan:            e.plan,
					OutputsByNodeID: e.snapshotOutputs(),
					TriggerItems:    triggerItems,
				})
				if err != nil {
					errMutex.Lock()
					errsByNodeID[node.ID] = err
					errMutex.Unlock()

					return
				}

				e.mutex.Lock()
				e.outputsByNodeID[node.ID] = result.Output
				e.mutex.Unlock()
			}(node)
		}

		wg.Wait()

		// Report the first failure in plan order so repeated runs fail the
		// same way.
		for _, nodeID := range wave {
			if err := errsByNodeID[nodeID]; err != nil {
				e.logger.Error().Err(err).Str("execution_id", e.executionID).Str("node_id", nodeID).Msg("Node execution failed")

				return ExecutionResult{}, err
			}
		}

		for _, nodeID := range wave {
			executed[nodeID] = struct{}{}

			for _, successor := range e.plan.Successors[nodeID] {
				remaining[successor]--
			}
		}
	}

	outputItems := []domain.Item{}
	for _, nodeID := range e.plan.TerminalNodes() {
		outputItems = append(outputItems, e.outputsByNodeID[nodeID]...)
	}

	return ExecutionResult{
		ExecutionID:     e.executionID,
		OutputItems:     outputItems,
		OutputsByNodeID: e.snapshotOutputs(),
	}, nil
}

func (e *WorkflowExecutor) snapshotOutputs() map[string][]domain.Item {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	snapshot := make(map[string][]domain.Item, len(e.outputsByNodeID))
	for nodeID, items := range e.outputsByNodeID {
		snapshot[nodeID] = items
	}

	return snapshot
}
