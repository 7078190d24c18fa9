package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/conveyorhq/conveyor/pkg/domain"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
)

// DefaultFrameItemLimit caps how many input/output items are copied into a
// stack frame for inspection.
const DefaultFrameItemLimit = 10

// DebugController drives interactive, single-stepped workflow execution.
// Sessions are persisted between calls; operations against the same session
// are serialized so two racing steps cannot corrupt the call stack.
type DebugController struct {
	selector          domain.NodeSelector
	sessionStore      domain.SessionStore
	breakpointStore   domain.BreakpointStore
	workflowStore     domain.WorkflowStore
	credentialManager domain.CredentialManager
	runner            *nodeRunner
	logger            zerolog.Logger
	frameItemLimit    int

	mutex        sync.Mutex
	sessionLocks map[string]*sync.Mutex
	cancels      map[string]context.CancelFunc
}

type DebugControllerDeps struct {
	Selector          domain.NodeSelector
	SessionStore      domain.SessionStore
	BreakpointStore   domain.BreakpointStore
	WorkflowStore     domain.WorkflowStore
	CredentialManager domain.CredentialManager
	Logger            zerolog.Logger
	FrameItemLimit    int
}

func NewDebugController(deps DebugControllerDeps) *DebugController {
	frameItemLimit := deps.FrameItemLimit
	if frameItemLimit <= 0 {
		frameItemLimit = DefaultFrameItemLimit
	}

	return &DebugController{
		selector:          deps.Selector,
		sessionStore:      deps.SessionStore,
		breakpointStore:   deps.BreakpointStore,
		workflowStore:     deps.WorkflowStore,
		credentialManager: deps.CredentialManager,
		runner:            newNodeRunner(deps.Selector, deps.Logger),
		logger:            deps.Logger,
		frameItemLimit:    frameItemLimit,
		sessionLocks:      map[string]*sync.Mutex{},
		cancels:           map[string]context.CancelFunc{},
	}
}

type DebugStepResult struct {
	Session   domain.DebugSession
	IsPaused  bool
	CallStack []domain.DebugStackFrame
}

type CreateSessionParams struct {
	WorkspaceID  string
	WorkflowID   string
	Breakpoints  []string
	TriggerItems []domain.Item
}

// CreateSession allocates an idle session. The breakpoint set starts from
// the workflow's persisted breakpoint template plus whatever the caller
// passes explicitly.
func (c *DebugController) CreateSession(ctx context.Context, params CreateSessionParams) (domain.DebugSession, error) {
	if _, err := c.workflowStore.GetWorkflow(ctx, params.WorkspaceID, params.WorkflowID); err != nil {
		return domain.DebugSession{}, err
	}

	now := time.Now().UTC()

	session := domain.DebugSession{
		ID:           xid.New().String(),
		WorkflowID:   params.WorkflowID,
		WorkspaceID:  params.WorkspaceID,
		Status:       domain.DebugSessionStatusIdle,
		CallStack:    []domain.DebugStackFrame{},
		NodeResults:  map[string]domain.NodeResult{},
		NodeOutputs:  map[string][]domain.Item{},
		Breakpoints:  []string{},
		TriggerItems: params.TriggerItems,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if c.breakpointStore != nil {
		template, err := c.breakpointStore.GetBreakpoints(ctx, params.WorkflowID)
		if err != nil {
			return domain.DebugSession{}, err
		}

		for _, nodeID := range template {
			session.SetBreakpoint(nodeID, true)
		}
	}

	for _, nodeID := range params.Breakpoints {
		session.SetBreakpoint(nodeID, true)
	}

	if err := c.sessionStore.PutSession(ctx, session); err != nil {
		return domain.DebugSession{}, err
	}

	c.logger.Info().
		Str("session_id", session.ID).
		Str("workflow_id", session.WorkflowID).
		Int("breakpoint_count", len(session.Breakpoints)).
		Msg("Created debug session")

	return session, nil
}

// Start activates an idle session and executes nodes in plan order until a
// breakpoint pauses it, a node fails, or the plan is exhausted.
func (c *DebugController) Start(ctx context.Context, sessionID string) (DebugStepResult, error) {
	unlock := c.lockSession(sessionID)
	defer unlock()

	session, err := c.sessionStore.GetSession(ctx, sessionID)
	if err != nil {
		return DebugStepResult{}, err
	}

	if session.Status != domain.DebugSessionStatusIdle {
		return DebugStepResult{}, domain.NewSessionStateError("start", session.Status)
	}

	workflow, plan, err := c.activate(ctx, &session)
	if err != nil {
		return DebugStepResult{}, err
	}

	return c.runUntilBreak(ctx, session, workflow, plan, false)
}

// StepOver executes exactly the next node, ignoring its own breakpoint
// since the caller explicitly requested the step. From idle it doubles as a
// bootstrap step.
func (c *DebugController) StepOver(ctx context.Context, sessionID string) (DebugStepResult, error) {
	unlock := c.lockSession(sessionID)
	defer unlock()

	session, err := c.sessionStore.GetSession(ctx, sessionID)
	if err != nil {
		return DebugStepResult{}, err
	}

	var workflow domain.Workflow
	var plan *ExecutionPlan

	switch session.Status {
	case domain.DebugSessionStatusIdle:
		workflow, plan, err = c.activate(ctx, &session)
	case domain.DebugSessionStatusPaused:
		session.Status = domain.DebugSessionStatusActive
		workflow, plan, err = c.resolve(ctx, session)
	default:
		return DebugStepResult{}, domain.NewSessionStateError("stepOver", session.Status)
	}

	if err != nil {
		return DebugStepResult{}, err
	}

	if session.ExecutedCount() >= len(plan.Order) {
		session.Status = domain.DebugSessionStatusCompleted

		return c.finish(ctx, session)
	}

	if err := c.executeNext(ctx, &session, workflow, plan); err != nil {
		return DebugStepResult{}, err
	}

	if session.Status == domain.DebugSessionStatusActive {
		if session.ExecutedCount() >= len(plan.Order) {
			session.Status = domain.DebugSessionStatusCompleted
		} else {
			session.Status = domain.DebugSessionStatusPaused
		}
	}

	return c.finish(ctx, session)
}

// Continue resumes a paused session until the next node carrying a
// breakpoint is about to run, a node fails, or the plan is exhausted. The
// breakpoint set is evaluated as each node is about to run, so toggles made
// while paused take effect immediately.
func (c *DebugController) Continue(ctx context.Context, sessionID string) (DebugStepResult, error) {
	unlock := c.lockSession(sessionID)
	defer unlock()

	session, err := c.sessionStore.GetSession(ctx, sessionID)
	if err != nil {
		return DebugStepResult{}, err
	}

	if session.Status != domain.DebugSessionStatusPaused {
		return DebugStepResult{}, domain.NewSessionStateError("continue", session.Status)
	}

	session.Status = domain.DebugSessionStatusActive

	workflow, plan, err := c.resolve(ctx, session)
	if err != nil {
		return DebugStepResult{}, err
	}

	// A session paused in front of a breakpoint runs that node
	// unconditionally; pausing before it again would make continue a no-op.
	// A pause left by a step sits behind the last executed node, so the next
	// node's breakpoint still applies.
	index := session.ExecutedCount()
	pausedOnBreakpoint := index < len(plan.Order) && session.CurrentNodeID == plan.Order[index]

	return c.runUntilBreak(ctx, session, workflow, plan, pausedOnBreakpoint)
}

// Terminate moves a session to the absorbing terminated state from any
// non-terminal state and cancels any in-flight node call.
func (c *DebugController) Terminate(ctx context.Context, sessionID string) (DebugStepResult, error) {
	c.mutex.Lock()
	if cancel, ok := c.cancels[sessionID]; ok {
		cancel()
	}
	c.mutex.Unlock()

	unlock := c.lockSession(sessionID)
	defer unlock()

	session, err := c.sessionStore.GetSession(ctx, sessionID)
	if err != nil {
		return DebugStepResult{}, err
	}

	if session.Status.IsTerminal() {
		return DebugStepResult{}, domain.NewSessionStateError("terminate", session.Status)
	}

	session.Status = domain.DebugSessionStatusTerminated

	return c.finish(ctx, session)
}

type ToggleBreakpointParams struct {
	SessionID  string
	WorkflowID string
	NodeID     string
	Enabled    bool
}

// ToggleBreakpoint mutates a session's breakpoint set, or the workflow's
// persisted template when no session id is given. It is legal in any
// session status and takes effect the next time a node is about to run.
func (c *DebugController) ToggleBreakpoint(ctx context.Context, params ToggleBreakpointParams) (domain.DebugSession, error) {
	if params.SessionID == "" {
		if c.breakpointStore == nil {
			return domain.DebugSession{}, errors.New("no breakpoint store configured")
		}

		err := c.breakpointStore.SetBreakpoint(ctx, params.WorkflowID, params.NodeID, params.Enabled)

		return domain.DebugSession{}, err
	}

	unlock := c.lockSession(params.SessionID)
	defer unlock()

	session, err := c.sessionStore.GetSession(ctx, params.SessionID)
	if err != nil {
		return domain.DebugSession{}, err
	}

	session.SetBreakpoint(params.NodeID, params.Enabled)
	session.UpdatedAt = time.Now().UTC()

	if err := c.sessionStore.PutSession(ctx, session); err != nil {
		return domain.DebugSession{}, err
	}

	return session, nil
}

// GetBreakpoints returns a session's effective breakpoint set, or the
// workflow template when no session id is given.
func (c *DebugController) GetBreakpoints(ctx context.Context, sessionID, workflowID string) ([]string, error) {
	if sessionID == "" {
		if c.breakpointStore == nil {
			return []string{}, nil
		}

		return c.breakpointStore.GetBreakpoints(ctx, workflowID)
	}

	session, err := c.sessionStore.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return append([]string{}, session.Breakpoints...), nil
}

func (c *DebugController) GetSession(ctx context.Context, sessionID string) (domain.DebugSession, error) {
	return c.sessionStore.GetSession(ctx, sessionID)
}

// activate resolves the graph and transitions idle → active. A cycle is
// raised directly to the caller; no execution starts.
func (c *DebugController) activate(ctx context.Context, session *domain.DebugSession) (domain.Workflow, *ExecutionPlan, error) {
	workflow, plan, err := c.resolve(ctx, *session)
	if err != nil {
		return domain.Workflow{}, nil, err
	}

	session.Status = domain.DebugSessionStatusActive
	session.ExecutionPlan = append([]string{}, plan.Order...)

	return workflow, plan, nil
}

func (c *DebugController) resolve(ctx context.Context, session domain.DebugSession) (domain.Workflow, *ExecutionPlan, error) {
	workflow, err := c.workflowStore.GetWorkflow(ctx, session.WorkspaceID, session.WorkflowID)
	if err != nil {
		return domain.Workflow{}, nil, err
	}

	if err := workflow.Validate(); err != nil {
		return domain.Workflow{}, nil, err
	}

	plan, err := ResolveGraph(workflow.Nodes, workflow.Connections)
	if err != nil {
		return domain.Workflow{}, nil, err
	}

	return workflow, plan, nil
}

func (c *DebugController) runUntilBreak(ctx context.Context, session domain.DebugSession, workflow domain.Workflow, plan *ExecutionPlan, skipBreakpointOnFirst bool) (DebugStepResult, error) {
	first := true

	for {
		index := session.ExecutedCount()
		if index >= len(plan.Order) {
			session.Status = domain.DebugSessionStatusCompleted

			return c.finish(ctx, session)
		}

		nextNodeID := plan.Order[index]

		if session.HasBreakpoint(nextNodeID) && !(first && skipBreakpointOnFirst) {
			session.Status = domain.DebugSessionStatusPaused
			session.CurrentNodeID = nextNodeID

			return c.finish(ctx, session)
		}

		first = false

		if err := c.executeNext(ctx, &session, workflow, plan); err != nil {
			return DebugStepResult{}, err
		}

		if session.Status != domain.DebugSessionStatusActive {
			return c.finish(ctx, session)
		}
	}
}

// executeNext runs the next node in plan order and appends its stack frame.
// A node failure is captured into the frame and flips the session to
// failed; it is not returned as an error.
func (c *DebugController) executeNext(ctx context.Context, session *domain.DebugSession, workflow domain.Workflow, plan *ExecutionPlan) error {
	nodeID := plan.Order[session.ExecutedCount()]

	node, ok := plan.NodeByID(nodeID)
	if !ok {
		return domain.ErrNodeNotFound
	}

	runCtx, cancel := context.WithCancel(ctx)
	runCtx = domain.NewContextWithExecutionScope(runCtx, domain.ExecutionScope{
		WorkspaceID: session.WorkspaceID,
		WorkflowID:  session.WorkflowID,
		ExecutionID: session.ID,
	})

	c.mutex.Lock()
	c.cancels[session.ID] = cancel
	c.mutex.Unlock()

	result, runErr := c.runner.runNode(runCtx, runNodeParams{
		Workflow:        &workflow,
		Node:            node,
		Plan:            plan,
		OutputsByNodeID: session.NodeOutputs,
		TriggerItems:    session.TriggerItems,
	})

	c.mutex.Lock()
	delete(c.cancels, session.ID)
	c.mutex.Unlock()
	cancel()

	frame := domain.DebugStackFrame{
		NodeID:    node.ID,
		NodeName:  node.Name,
		NodeType:  node.Type,
		Input:     capItems(result.Input, c.frameItemLimit),
		Output:    capItems(result.Output, c.frameItemLimit),
		Timestamp: time.Now().UTC(),
	}

	session.CurrentNodeID = node.ID

	if runErr != nil {
		frame.Error = causeMessage(runErr)
		frame.SourceLocation = sourceLocation(runErr)

		session.CallStack = append(session.CallStack, frame)
		session.NodeResults[node.ID] = domain.NodeResult{
			Status: domain.NodeResultStatusFailed,
			Error:  frame.Error,
		}
		session.Status = domain.DebugSessionStatusFailed

		c.logger.Warn().
			Str("session_id", session.ID).
			Str("node_id", node.ID).
			Str("error", frame.Error).
			Msg("Debug session failed on node")

		return nil
	}

	session.CallStack = append(session.CallStack, frame)
	session.NodeResults[node.ID] = domain.NodeResult{
		Status:    domain.NodeResultStatusSuccess,
		ItemCount: len(result.Output),
	}
	session.NodeOutputs[node.ID] = result.Output

	return nil
}

// finish persists the session and releases credential clients when it has
// reached a terminal state.
func (c *DebugController) finish(ctx context.Context, session domain.DebugSession) (DebugStepResult, error) {
	session.UpdatedAt = time.Now().UTC()

	if err := c.sessionStore.PutSession(ctx, session); err != nil {
		return DebugStepResult{}, err
	}

	if session.Status.IsTerminal() && c.credentialManager != nil {
		if err := c.credentialManager.Release(ctx); err != nil {
			c.logger.Warn().Err(err).Str("session_id", session.ID).Msg("Failed to release credential clients")
		}
	}

	return DebugStepResult{
		Session:   session,
		IsPaused:  session.Status == domain.DebugSessionStatusPaused,
		CallStack: session.CallStack,
	}, nil
}

func (c *DebugController) lockSession(sessionID string) func() {
	c.mutex.Lock()
	lock, ok := c.sessionLocks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		c.sessionLocks[sessionID] = lock
	}
	c.mutex.Unlock()

	lock.Lock()

	return lock.Unlock
}

func capItems(items []domain.Item, limit int) []domain.Item {
	if len(items) > limit {
		items = items[:limit]
	}

	return domain.CloneItems(items)
}

// causeMessage unwraps a node failure to the underlying cause so the stack
// frame shows what the node actually raised.
func causeMessage(err error) string {
	var nodeErr *domain.NodeExecutionError
	if errors.As(err, &nodeErr) && nodeErr.Err != nil {
		return nodeErr.Err.Error()
	}

	return err.Error()
}

type sourceLocator interface {
	SourceLocation() string
}

func sourceLocation(err error) string {
	for err != nil {
		if locator, ok := err.(sourceLocator); ok {
			return locator.SourceLocation()
		}

		err = errors.Unwrap(err)
	}

	return ""
}
