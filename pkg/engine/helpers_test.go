package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/conveyorhq/conveyor/internal/store"
	"github.com/conveyorhq/conveyor/pkg/domain"

	"github.com/rs/zerolog"
)

type executorFunc func(ctx context.Context, input domain.NodeInput) (domain.NodeOutput, error)

func (f executorFunc) Execute(ctx context.Context, input domain.NodeInput) (domain.NodeOutput, error) {
	return f(ctx, input)
}

type creatorFunc func(ctx context.Context, p domain.CreateNodeParams) (domain.NodeExecutor, error)

func (f creatorFunc) CreateNode(ctx context.Context, p domain.CreateNodeParams) (domain.NodeExecutor, error) {
	return f(ctx, p)
}

func registerExecutor(selector domain.NodeSelector, nodeType domain.NodeType, executor executorFunc) {
	selector.RegisterCreator(nodeType, creatorFunc(func(ctx context.Context, p domain.CreateNodeParams) (domain.NodeExecutor, error) {
		return executor, nil
	}))
}

// executionRecorder tracks the order in which nodes ran; waves run in
// parallel so appends are locked.
type executionRecorder struct {
	mutex   sync.Mutex
	nodeIDs []string
}

func (r *executionRecorder) record(nodeID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.nodeIDs = append(r.nodeIDs, nodeID)
}

func (r *executionRecorder) executed() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return append([]string{}, r.nodeIDs...)
}

// fakeTransformExecutor interprets node settings:
//
//	"fail":    return an error with the given message
//	"set":     merge the given fields into every item
//	"append":  emit one extra item {"appended": true}
func fakeTransformExecutor(recorder *executionRecorder) executorFunc {
	return func(ctx context.Context, input domain.NodeInput) (domain.NodeOutput, error) {
		if recorder != nil {
			recorder.record(input.NodeID)
		}

		if message, ok := input.Node.Settings["fail"].(string); ok {
			return domain.NodeOutput{}, errors.New(message)
		}

		items := domain.CloneItems(input.Items)

		if fields, ok := input.Node.Settings["set"].(map[string]any); ok {
			for _, item := range items {
				for key, value := range fields {
					item[key] = value
				}
			}
		}

		if _, ok := input.Node.Settings["append"]; ok {
			items = append(items, domain.Item{"appended": true})
		}

		return domain.NodeOutput{Items: items}, nil
	}
}

func testNode(id string, settings map[string]any) domain.Node {
	return domain.Node{
		ID:       id,
		Type:     domain.NodeType_Transform,
		Name:     id,
		Settings: settings,
	}
}

func edge(source, target string) domain.Connection {
	return domain.Connection{SourceNodeID: source, TargetNodeID: target}
}

func testWorkflow(id string, nodes []domain.Node, connections []domain.Connection) domain.Workflow {
	return domain.Workflow{
		ID:          id,
		Name:        id,
		WorkspaceID: "ws-test",
		Nodes:       nodes,
		Connections: connections,
	}
}

type engineFixture struct {
	selector        domain.NodeSelector
	workflowStore   *store.MemoryWorkflowStore
	sessionStore    *store.MemorySessionStore
	breakpointStore *store.MemoryBreakpointStore
	recorder        *executionRecorder
	service         *ExecutorService
	controller      *DebugController
}

func newEngineFixture() *engineFixture {
	selector := domain.NewNodeSelector()
	recorder := &executionRecorder{}
	registerExecutor(selector, domain.NodeType_Transform, fakeTransformExecutor(recorder))

	workflowStore := store.NewMemoryWorkflowStore()
	sessionStore := store.NewMemorySessionStore()
	breakpointStore := store.NewMemoryBreakpointStore()

	service := NewExecutorService(ExecutorServiceDeps{
		Selector:      selector,
		WorkflowStore: workflowStore,
		Logger:        zerolog.Nop(),
	})

	controller := NewDebugController(DebugControllerDeps{
		Selector:        selector,
		SessionStore:    sessionStore,
		BreakpointStore: breakpointStore,
		WorkflowStore:   workflowStore,
		Logger:          zerolog.Nop(),
	})

	return &engineFixture{
		selector:        selector,
		workflowStore:   workflowStore,
		sessionStore:    sessionStore,
		breakpointStore: breakpointStore,
		recorder:        recorder,
		service:         service,
		controller:      controller,
	}
}

func (f *engineFixture) addWorkflow(workflow domain.Workflow) {
	_ = f.workflowStore.PutWorkflow(context.Background(), workflow)
}
