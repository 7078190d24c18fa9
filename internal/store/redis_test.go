package store

import (
	"context"
	"testing"
	"time"

	"github.com/conveyorhq/conveyor/pkg/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionStore(t *testing.T) *RedisSessionStore {
	t.Helper()

	server := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return NewRedisSessionStore(client, time.Hour)
}

func TestRedisSessionStore_RoundTrip(t *testing.T) {
	store := newTestSessionStore(t)
	ctx := context.Background()

	session := domain.DebugSession{
		ID:            "sess-1",
		WorkflowID:    "wf-1",
		WorkspaceID:   "ws-1",
		Status:        domain.DebugSessionStatusPaused,
		CurrentNodeID: "node-b",
		ExecutionPlan: []string{"node-a", "node-b", "node-c"},
		CallStack: []domain.DebugStackFrame{
			{
				NodeID:   "node-a",
				NodeName: "Fetch",
				NodeType: domain.NodeType_HTTP,
				Output:   []domain.Item{{"status": float64(200)}},
			},
		},
		NodeResults: map[string]domain.NodeResult{
			"node-a": {Status: domain.NodeResultStatusSuccess, ItemCount: 1},
		},
		NodeOutputs: map[string][]domain.Item{
			"node-a": {{"status": float64(200)}},
		},
		Breakpoints: []string{"node-b"},
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
		UpdatedAt:   time.Now().UTC().Truncate(time.Second),
	}

	require.NoError(t, store.PutSession(ctx, session))

	loaded, err := store.GetSession(ctx, "sess-1")
	require.NoError(t, err)

	assert.Equal(t, session.Status, loaded.Status)
	assert.Equal(t, session.CurrentNodeID, loaded.CurrentNodeID)
	assert.Equal(t, session.ExecutionPlan, loaded.ExecutionPlan)
	assert.Equal(t, session.Breakpoints, loaded.Breakpoints)
	assert.Len(t, loaded.CallStack, 1)
	assert.Equal(t, "Fetch", loaded.CallStack[0].NodeName)
	assert.Equal(t, session.NodeOutputs, loaded.NodeOutputs)
}

func TestRedisSessionStore_GetMissing(t *testing.T) {
	store := newTestSessionStore(t)

	_, err := store.GetSession(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRedisSessionStore_Delete(t *testing.T) {
	store := newTestSessionStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutSession(ctx, domain.DebugSession{ID: "sess-2"}))
	require.NoError(t, store.DeleteSession(ctx, "sess-2"))

	_, err := store.GetSession(ctx, "sess-2")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMemoryBreakpointStore_Toggle(t *testing.T) {
	store := NewMemoryBreakpointStore()
	ctx := context.Background()

	require.NoError(t, store.SetBreakpoint(ctx, "wf-1", "node-a", true))
	require.NoError(t, store.SetBreakpoint(ctx, "wf-1", "node-b", true))
	require.NoError(t, store.SetBreakpoint(ctx, "wf-1", "node-a", true))

	breakpoints, err := store.GetBreakpoints(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"node-a", "node-b"}, breakpoints)

	require.NoError(t, store.SetBreakpoint(ctx, "wf-1", "node-a", false))

	breakpoints, err = store.GetBreakpoints(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"node-b"}, breakpoints)
}
