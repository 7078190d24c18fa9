package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/conveyorhq/conveyor/pkg/domain"
)

// MemoryWorkflowStore keeps workflows in process memory, keyed by workspace
// and workflow id. It backs the CLI's single-shot runs and tests.
type MemoryWorkflowStore struct {
	mutex     sync.RWMutex
	workflows map[string]domain.Workflow
}

func NewMemoryWorkflowStore() *MemoryWorkflowStore {
	return &MemoryWorkflowStore{
		workflows: map[string]domain.Workflow{},
	}
}

func workflowKey(workspaceID, workflowID string) string {
	return fmt.Sprintf("%s/%s", workspaceID, workflowID)
}

func (s *MemoryWorkflowStore) GetWorkflow(ctx context.Context, workspaceID, workflowID string) (domain.Workflow, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	workflow, ok := s.workflows[workflowKey(workspaceID, workflowID)]
	if !ok {
		return domain.Workflow{}, fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, workflowID)
	}

	return workflow, nil
}

func (s *MemoryWorkflowStore) PutWorkflow(ctx context.Context, workflow domain.Workflow) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.workflows[workflowKey(workflow.WorkspaceID, workflow.ID)] = workflow

	return nil
}

// MemorySessionStore holds debug sessions for a single process. Sessions
// cross the store boundary as deep copies so a caller mutating a session's
// maps or call stack cannot race another caller reading the stored copy.
type MemorySessionStore struct {
	mutex    sync.RWMutex
	sessions map[string]domain.DebugSession
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: map[string]domain.DebugSession{},
	}
}

func (s *MemorySessionStore) GetSession(ctx context.Context, sessionID string) (domain.DebugSession, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.DebugSession{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}

	return cloneSession(session)
}

func (s *MemorySessionStore) PutSession(ctx context.Context, session domain.DebugSession) error {
	clone, err := cloneSession(session)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.sessions[session.ID] = clone

	return nil
}

// cloneSession deep-copies a session through JSON, the same isolation the
// redis store gets from serializing.
func cloneSession(session domain.DebugSession) (domain.DebugSession, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return domain.DebugSession{}, fmt.Errorf("failed to clone session %s: %w", session.ID, err)
	}

	var clone domain.DebugSession
	if err := json.Unmarshal(data, &clone); err != nil {
		return domain.DebugSession{}, fmt.Errorf("failed to clone session %s: %w", session.ID, err)
	}

	return clone, nil
}

func (s *MemorySessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.sessions, sessionID)

	return nil
}

// MemoryBreakpointStore keeps per-workflow breakpoint templates.
type MemoryBreakpointStore struct {
	mutex       sync.RWMutex
	breakpoints map[string][]string
}

func NewMemoryBreakpointStore() *MemoryBreakpointStore {
	return &MemoryBreakpointStore{
		breakpoints: map[string][]string{},
	}
}

func (s *MemoryBreakpointStore) GetBreakpoints(ctx context.Context, workflowID string) ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return append([]string{}, s.breakpoints[workflowID]...), nil
}

func (s *MemoryBreakpointStore) SetBreakpoint(ctx context.Context, workflowID, nodeID string, enabled bool) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	existing := s.breakpoints[workflowID]

	if enabled {
		for _, id := range existing {
			if id == nodeID {
				return nil
			}
		}

		s.breakpoints[workflowID] = append(existing, nodeID)

		return nil
	}

	remaining := make([]string, 0, len(existing))
	for _, id := range existing {
		if id != nodeID {
			remaining = append(remaining, id)
		}
	}

	s.breakpoints[workflowID] = remaining

	return nil
}
