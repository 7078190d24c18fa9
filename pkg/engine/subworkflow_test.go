package engine

import (
	"context"
	"testing"

	"github.com/conveyorhq/conveyor/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subworkflowFixture() (*engineFixture, *SubworkflowInvoker) {
	fixture := newEngineFixture()

	invoker := NewSubworkflowInvoker(SubworkflowInvokerDeps{
		Service: fixture.service,
	})

	return fixture, invoker
}

func TestSubworkflowInvoker_OnceBundlesItems(t *testing.T) {
	fixture, invoker := subworkflowFixture()
	fixture.addWorkflow(testWorkflow("wf-child",
		[]domain.Node{testNode("child", map[string]any{"set": map[string]any{"seen": true}})},
		nil,
	))

	items, err := invoker.Invoke(context.Background(), domain.InvokeSubworkflowParams{
		WorkspaceID: "ws-test",
		WorkflowID:  "wf-child",
		Mode:        domain.SubworkflowModeOnce,
		Items:       []domain.Item{{"id": 1}, {"id": 2}},
	})
	require.NoError(t, err)

	// One child run over the whole batch: a single trigger item bundling
	// the input items.
	require.Len(t, items, 1)
	assert.Equal(t, true, items[0]["seen"])
	assert.Len(t, items[0]["items"], 2)

	assert.Equal(t, []string{"child"}, fixture.recorder.executed())
}

func TestSubworkflowInvoker_ForEachRunsPerItem(t *testing.T) {
	fixture, invoker := subworkflowFixture()
	fixture.addWorkflow(testWorkflow("wf-child",
		[]domain.Node{testNode("child", nil)},
		nil,
	))

	items, err := invoker.Invoke(context.Background(), domain.InvokeSubworkflowParams{
		WorkspaceID: "ws-test",
		WorkflowID:  "wf-child",
		Mode:        domain.SubworkflowModeForEach,
		Items:       []domain.Item{{"id": "first"}, {"id": "second"}, {"id": "third"}},
	})
	require.NoError(t, err)

	require.Len(t, items, 3)
	for index, wantID := range []string{"first", "second", "third"} {
		assert.EqualValues(t, index, items[index]["index"])

		itemJSON, ok := items[index]["json"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, wantID, itemJSON["id"])
	}

	assert.Equal(t, []string{"child", "child", "child"}, fixture.recorder.executed())
}

func TestSubworkflowInvoker_ForEachFailureCarriesItemIndex(t *testing.T) {
	fixture, invoker := subworkflowFixture()

	// The child fails whenever the item carries explode=true.
	registerExecutor(fixture.selector, domain.NodeType_Code, executorFunc(func(ctx context.Context, input domain.NodeInput) (domain.NodeOutput, error) {
		item, ok := input.Items[0]["item"].(map[string]any)
		if ok && item["explode"] == true {
			return domain.NodeOutput{}, assert.AnError
		}

		return domain.NodeOutput{Items: domain.CloneItems(input.Items)}, nil
	}))

	child := domain.Node{ID: "child", Type: domain.NodeType_Code, Name: "child"}
	fixture.addWorkflow(testWorkflow("wf-child", []domain.Node{child}, nil))

	_, err := invoker.Invoke(context.Background(), domain.InvokeSubworkflowParams{
		WorkspaceID: "ws-test",
		WorkflowID:  "wf-child",
		Mode:        domain.SubworkflowModeForEach,
		Items:       []domain.Item{{"id": 1}, {"explode": true}, {"id": 3}},
	})

	var subErr *domain.SubworkflowError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "wf-child", subErr.WorkflowID)
	assert.Equal(t, 1, subErr.ItemIndex)
}

func TestSubworkflowInvoker_ForEachEmptyRunYieldsPlaceholder(t *testing.T) {
	fixture, invoker := subworkflowFixture()

	// The child consumes its input and emits nothing.
	registerExecutor(fixture.selector, domain.NodeType_Code, executorFunc(func(ctx context.Context, input domain.NodeInput) (domain.NodeOutput, error) {
		return domain.NodeOutput{}, nil
	}))

	child := domain.Node{ID: "child", Type: domain.NodeType_Code, Name: "child"}
	fixture.addWorkflow(testWorkflow("wf-child", []domain.Node{child}, nil))

	items, err := invoker.Invoke(context.Background(), domain.InvokeSubworkflowParams{
		WorkspaceID: "ws-test",
		WorkflowID:  "wf-child",
		Mode:        domain.SubworkflowModeForEach,
		Items:       []domain.Item{{"id": 1}, {"id": 2}},
	})
	require.NoError(t, err)

	require.Len(t, items, 2)
	for index, item := range items {
		assert.Equal(t, index, item["index"])
		assert.Equal(t, true, item["success"])
	}
}

func TestSubworkflowInvoker_DepthGuard(t *testing.T) {
	fixture, invoker := subworkflowFixture()
	fixture.addWorkflow(testWorkflow("wf-child",
		[]domain.Node{testNode("child", nil)},
		nil,
	))

	ctx := domain.NewContextWithExecutionScope(context.Background(), domain.ExecutionScope{
		WorkspaceID: "ws-test",
		WorkflowID:  "wf-root",
		ExecutionID: "exec-1",
		Depth:       DefaultMaxSubworkflowDepth,
	})

	_, err := invoker.Invoke(ctx, domain.InvokeSubworkflowParams{
		WorkspaceID: "ws-test",
		WorkflowID:  "wf-child",
		Mode:        domain.SubworkflowModeOnce,
		Items:       []domain.Item{{"id": 1}},
	})

	require.ErrorIs(t, err, domain.ErrMaxDepthExceeded)

	var subErr *domain.SubworkflowError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, -1, subErr.ItemIndex)

	assert.Empty(t, fixture.recorder.executed())
}

func TestSubworkflowInvoker_UnknownMode(t *testing.T) {
	fixture, invoker := subworkflowFixture()
	fixture.addWorkflow(testWorkflow("wf-child",
		[]domain.Node{testNode("child", nil)},
		nil,
	))

	_, err := invoker.Invoke(context.Background(), domain.InvokeSubworkflowParams{
		WorkspaceID: "ws-test",
		WorkflowID:  "wf-child",
		Mode:        "sometimes",
		Items:       []domain.Item{{"id": 1}},
	})

	var subErr *domain.SubworkflowError
	assert.ErrorAs(t, err, &subErr)
}
