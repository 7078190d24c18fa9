package domain

import (
	"context"
	"time"
)

type DebugSessionStatus string

const (
	DebugSessionStatusIdle       DebugSessionStatus = "idle"
	DebugSessionStatusActive     DebugSessionStatus = "active"
	DebugSessionStatusPaused     DebugSessionStatus = "paused"
	DebugSessionStatusCompleted  DebugSessionStatus = "completed"
	DebugSessionStatusFailed     DebugSessionStatus = "failed"
	DebugSessionStatusTerminated DebugSessionStatus = "terminated"
)

func (s DebugSessionStatus) IsTerminal() bool {
	switch s {
	case DebugSessionStatusCompleted, DebugSessionStatusFailed, DebugSessionStatusTerminated:
		return true
	default:
		return false
	}
}

type NodeResultStatus string

const (
	NodeResultStatusSuccess NodeResultStatus = "success"
	NodeResultStatusFailed  NodeResultStatus = "failed"
)

type NodeResult struct {
	Status    NodeResultStatus `json:"status"`
	Error     string           `json:"error,omitempty"`
	ItemCount int              `json:"item_count"`
}

// DebugStackFrame records one executed node. Frames form an append-only
// trace of execution history, not a live stack; they are only discarded
// together with the whole session.
type DebugStackFrame struct {
	NodeID         string    `json:"node_id"`
	NodeName       string    `json:"node_name"`
	NodeType       NodeType  `json:"node_type"`
	Input          []Item    `json:"input,omitempty"`
	Output         []Item    `json:"output,omitempty"`
	Error          string    `json:"error,omitempty"`
	SourceLocation string    `json:"source_location,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// DebugSession is the persisted state of one interactive debug run. It is
// plain structured data so a session can be reloaded between stateless
// calls.
type DebugSession struct {
	ID            string                `json:"id"`
	WorkflowID    string                `json:"workflow_id"`
	WorkspaceID   string                `json:"workspace_id"`
	Status        DebugSessionStatus    `json:"status"`
	CurrentNodeID string                `json:"current_node_id,omitempty"`
	ExecutionPlan []string              `json:"execution_plan,omitempty"`
	CallStack     []DebugStackFrame     `json:"call_stack"`
	NodeResults   map[string]NodeResult `json:"node_results"`
	NodeOutputs   map[string][]Item     `json:"node_outputs"`
	Breakpoints   []string              `json:"breakpoints"`
	TriggerItems  []Item                `json:"trigger_items,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

func (s *DebugSession) HasBreakpoint(nodeID string) bool {
	for _, id := range s.Breakpoints {
		if id == nodeID {
			return true
		}
	}

	return false
}

// SetBreakpoint adds or removes a breakpoint. It takes effect the next time
// a node is about to run; toggling a breakpoint on an already-passed node
// has no retroactive effect.
func (s *DebugSession) SetBreakpoint(nodeID string, enabled bool) {
	if enabled {
		if s.HasBreakpoint(nodeID) {
			return
		}

		s.Breakpoints = append(s.Breakpoints, nodeID)

		return
	}

	remaining := s.Breakpoints[:0]
	for _, id := range s.Breakpoints {
		if id != nodeID {
			remaining = append(remaining, id)
		}
	}

	s.Breakpoints = remaining
}

// ExecutedCount is the number of nodes that have run so far; it doubles as
// the index of the next node in the execution plan.
func (s *DebugSession) ExecutedCount() int {
	return len(s.CallStack)
}

// SessionStore persists debug sessions between stateless calls.
type SessionStore interface {
	GetSession(ctx context.Context, sessionID string) (DebugSession, error)
	PutSession(ctx context.Context, session DebugSession) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// BreakpointStore keeps the per-workflow breakpoint template used to seed
// sessions that have not been created yet.
type BreakpointStore interface {
	GetBreakpoints(ctx context.Context, workflowID string) ([]string, error)
	SetBreakpoint(ctx context.Context, workflowID, nodeID string, enabled bool) error
}
