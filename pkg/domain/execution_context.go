package domain

import (
	"context"
)

type executionScopeKey struct{}

// ExecutionScope identifies the run a node invocation belongs to. Depth
// counts nested subworkflow invocations and backs the recursion guard.
type ExecutionScope struct {
	WorkspaceID string
	WorkflowID  string
	ExecutionID string
	Depth       int
}

func NewContextWithExecutionScope(ctx context.Context, scope ExecutionScope) context.Context {
	return context.WithValue(ctx, executionScopeKey{}, scope)
}

func ExecutionScopeFromContext(ctx context.Context) (ExecutionScope, bool) {
	scope, ok := ctx.Value(executionScopeKey{}).(ExecutionScope)

	return scope, ok
}

// ContextWithChildScope derives the scope for a nested workflow run,
// incrementing the recursion depth.
func ContextWithChildScope(ctx context.Context, workflowID, executionID string) context.Context {
	scope, _ := ExecutionScopeFromContext(ctx)

	scope.WorkflowID = workflowID
	scope.ExecutionID = executionID
	scope.Depth++

	return NewContextWithExecutionScope(ctx, scope)
}
