package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSessionNotFound  = errors.New("debug session not found")
	ErrMaxDepthExceeded = errors.New("maximum subworkflow depth exceeded")
)

// GraphCycleError is returned when a workflow graph cannot be linearized
// because one or more nodes transitively depend on themselves. It is fatal
// to starting any execution.
type GraphCycleError struct {
	NodeIDs []string
}

func (e *GraphCycleError) Error() string {
	return fmt.Sprintf("workflow graph contains a cycle involving nodes [%s]", strings.Join(e.NodeIDs, ", "))
}

// NodeExecutionError wraps any failure raised by node logic. It is captured
// into the current stack frame and node result instead of crashing the
// engine.
type NodeExecutionError struct {
	NodeID   string
	NodeName string
	Err      error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %s (%s) failed: %v", e.NodeName, e.NodeID, e.Err)
}

func (e *NodeExecutionError) Unwrap() error {
	return e.Err
}

func NewNodeExecutionError(nodeID, nodeName string, err error) *NodeExecutionError {
	return &NodeExecutionError{NodeID: nodeID, NodeName: nodeName, Err: err}
}

// ParameterResolutionError reports a required parameter that resolved to
// nothing for the node that declared it.
type ParameterResolutionError struct {
	NodeID string
	Key    string
}

func (e *ParameterResolutionError) Error() string {
	return fmt.Sprintf("required parameter %q of node %s resolved to no value", e.Key, e.NodeID)
}

func NewParameterResolutionError(nodeID, key string) *ParameterResolutionError {
	return &ParameterResolutionError{NodeID: nodeID, Key: key}
}

// CredentialError reports a missing or invalid credential. It is treated as
// a node-local failure.
type CredentialError struct {
	CredentialID string
	Err          error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credential %s: %v", e.CredentialID, e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

func NewCredentialError(credentialID string, err error) *CredentialError {
	return &CredentialError{CredentialID: credentialID, Err: err}
}

// SubworkflowError wraps a failed nested run. ItemIndex is -1 for runs in
// "once" mode, otherwise the index of the input item whose run failed.
type SubworkflowError struct {
	WorkflowID string
	ItemIndex  int
	Err        error
}

func (e *SubworkflowError) Error() string {
	if e.ItemIndex < 0 {
		return fmt.Sprintf("subworkflow %s failed: %v", e.WorkflowID, e.Err)
	}

	return fmt.Sprintf("subworkflow %s failed for item %d: %v", e.WorkflowID, e.ItemIndex, e.Err)
}

func (e *SubworkflowError) Unwrap() error {
	return e.Err
}

func NewSubworkflowError(workflowID string, itemIndex int, err error) *SubworkflowError {
	return &SubworkflowError{WorkflowID: workflowID, ItemIndex: itemIndex, Err: err}
}

// SessionStateError reports an operation that is illegal for the session's
// current status, e.g. a step while the session is still idle.
type SessionStateError struct {
	Op     string
	Status DebugSessionStatus
}

func (e *SessionStateError) Error() string {
	return fmt.Sprintf("operation %s is not allowed while session is %s", e.Op, e.Status)
}

func NewSessionStateError(op string, status DebugSessionStatus) *SessionStateError {
	return &SessionStateError{Op: op, Status: status}
}
