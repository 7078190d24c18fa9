package engine

import (
	"context"
	"fmt"

	"github.com/conveyorhq/conveyor/pkg/domain"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
)

// ExecutorService is the engine's entry point: batch execution of a whole
// workflow and the factory for debug session controllers. It owns no global
// state; every run derives its scope from the parameters.
type ExecutorService struct {
	selector          domain.NodeSelector
	workflowStore     domain.WorkflowStore
	credentialManager domain.CredentialManager
	logger            zerolog.Logger
}

type ExecutorServiceDeps struct {
	Selector          domain.NodeSelector
	WorkflowStore     domain.WorkflowStore
	CredentialManager domain.CredentialManager
	Logger            zerolog.Logger
}

func NewExecutorService(deps ExecutorServiceDeps) *ExecutorService {
	return &ExecutorService{
		selector:          deps.Selector,
		workflowStore:     deps.WorkflowStore,
		credentialManager: deps.CredentialManager,
		logger:            deps.Logger,
	}
}

type ExecuteWorkflowParams struct {
	WorkspaceID  string
	WorkflowID   string
	TriggerItems []domain.Item
}

// ExecuteWorkflow runs one workflow to completion and returns the outputs
// of its terminal nodes. Credential client handles opened during the run
// are released when the run finishes.
func (s *ExecutorService) ExecuteWorkflow(ctx context.Context, params ExecuteWorkflowParams) (ExecutionResult, error) {
	workflow, err := s.workflowStore.GetWorkflow(ctx, params.WorkspaceID, params.WorkflowID)
	if err != nil {
		return ExecutionResult{}, err
	}

	return s.executeWorkflow(ctx, workflow, params.TriggerItems)
}

func (s *ExecutorService) executeWorkflow(ctx context.Context, workflow domain.Workflow, triggerItems []domain.Item) (ExecutionResult, error) {
	if err := workflow.Validate(); err != nil {
		return ExecutionResult{}, err
	}

	plan, err := ResolveGraph(workflow.Nodes, workflow.Connections)
	if err != nil {
		return ExecutionResult{}, err
	}

	executionID := xid.New().String()

	_, isNested := domain.ExecutionScopeFromContext(ctx)
	if isNested {
		ctx = domain.ContextWithChildScope(ctx, workflow.ID, executionID)
	} else {
		ctx = domain.NewContextWithExecutionScope(ctx, domain.ExecutionScope{
			WorkspaceID: workflow.WorkspaceID,
			WorkflowID:  workflow.ID,
			ExecutionID: executionID,
		})
	}

	s.logger.Info().
		Str("execution_id", executionID).
		Str("workflow_id", workflow.ID).
		Int("node_count", len(workflow.Nodes)).
		Msg("Executing workflow")

	executor := NewWorkflowExecutor(WorkflowExecutorDeps{
		ExecutionID: executionID,
		Workflow:    workflow,
		Plan:        plan,
		Selector:    s.selector,
		Logger:      s.logger,
	})

	result, err := executor.Execute(ctx, triggerItems)

	// Credential client handles are shared with nested runs; only the
	// top-level run tears them down.
	if s.credentialManager != nil && !isNested {
		if releaseErr := s.credentialManager.Release(ctx); releaseErr != nil {
			s.logger.Warn().Err(releaseErr).Str("execution_id", executionID).Msg("Failed to release credential clients")
		}
	}

	if err != nil {
		return ExecutionResult{}, fmt.Errorf("execution %s: %w", executionID, err)
	}

	return result, nil
}
