package engine

import (
	"context"
	"testing"

	"github.com/conveyorhq/conveyor/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteWorkflow_Linear(t *testing.T) {
	fixture := newEngineFixture()
	fixture.addWorkflow(testWorkflow("wf-linear",
		[]domain.Node{
			testNode("fetch", map[string]any{"set": map[string]any{"fetched": true}}),
			testNode("enrich", map[string]any{"set": map[string]any{"enriched": true}}),
		},
		[]domain.Connection{edge("fetch", "enrich")},
	))

	result, err := fixture.service.ExecuteWorkflow(context.Background(), ExecuteWorkflowParams{
		WorkspaceID:  "ws-test",
		WorkflowID:   "wf-linear",
		TriggerItems: []domain.Item{{"id": 1}, {"id": 2}},
	})
	require.NoError(t, err)

	require.Len(t, result.OutputItems, 2)
	for _, item := range result.OutputItems {
		assert.Equal(t, true, item["fetched"])
		assert.Equal(t, true, item["enriched"])
	}

	assert.Equal(t, []string{"fetch", "enrich"}, fixture.recorder.executed())
}

func TestExecuteWorkflow_FanOutDoesNotAliasItems(t *testing.T) {
	fixture := newEngineFixture()
	fixture.addWorkflow(testWorkflow("wf-fanout",
		[]domain.Node{
			testNode("start", nil),
			testNode("left", map[string]any{"set": map[string]any{"branch": "left"}}),
			testNode("right", map[string]any{"set": map[string]any{"branch": "right"}}),
		},
		[]domain.Connection{
			edge("start", "left"),
			edge("start", "right"),
		},
	))

	result, err := fixture.service.ExecuteWorkflow(context.Background(), ExecuteWorkflowParams{
		WorkspaceID:  "ws-test",
		WorkflowID:   "wf-fanout",
		TriggerItems: []domain.Item{{"id": 1}},
	})
	require.NoError(t, err)

	// Terminal outputs are concatenated in plan order; each branch saw its
	// own copy of the item.
	require.Len(t, result.OutputItems, 2)
	assert.Equal(t, "left", result.OutputItems[0]["branch"])
	assert.Equal(t, "right", result.OutputItems[1]["branch"])
}

func TestExecuteWorkflow_MergeConcatenatesInPredecessorOrder(t *testing.T) {
	fixture := newEngineFixture()
	fixture.addWorkflow(testWorkflow("wf-merge",
		[]domain.Node{
			testNode("start", nil),
			testNode("left", map[string]any{"set": map[string]any{"branch": "left"}}),
			testNode("right", map[string]any{"set": map[string]any{"branch": "right"}}),
			testNode("merge", nil),
		},
		[]domain.Connection{
			edge("start", "left"),
			edge("start", "right"),
			edge("left", "merge"),
			edge("right", "merge"),
		},
	))

	result, err := fixture.service.ExecuteWorkflow(context.Background(), ExecuteWorkflowParams{
		WorkspaceID:  "ws-test",
		WorkflowID:   "wf-merge",
		TriggerItems: []domain.Item{{"id": 1}},
	})
	require.NoError(t, err)

	require.Len(t, result.OutputItems, 2)
	assert.Equal(t, "left", result.OutputItems[0]["branch"])
	assert.Equal(t, "right", result.OutputItems[1]["branch"])
}

func TestExecuteWorkflow_DataMappingRenamesFields(t *testing.T) {
	fixture := newEngineFixture()

	workflow := testWorkflow("wf-mapping",
		[]domain.Node{
			testNode("source", nil),
			testNode("sink", nil),
		},
		[]domain.Connection{
			{
				SourceNodeID: "source",
				TargetNodeID: "sink",
				DataMapping:  map[string]string{"user_name": "name"},
			},
		},
	)
	fixture.addWorkflow(workflow)

	result, err := fixture.service.ExecuteWorkflow(context.Background(), ExecuteWorkflowParams{
		WorkspaceID:  "ws-test",
		WorkflowID:   "wf-mapping",
		TriggerItems: []domain.Item{{"user_name": "ada", "age": 36}},
	})
	require.NoError(t, err)

	require.Len(t, result.OutputItems, 1)
	assert.Equal(t, "ada", result.OutputItems[0]["name"])
	assert.EqualValues(t, 36, result.OutputItems[0]["age"])
	assert.NotContains(t, result.OutputItems[0], "user_name")
}

func TestExecuteWorkflow_NodeFailureAborts(t *testing.T) {
	fixture := newEngineFixture()
	fixture.addWorkflow(testWorkflow("wf-fail",
		[]domain.Node{
			testNode("ok", nil),
			testNode("broken", map[string]any{"fail": "boom"}),
			testNode("never", nil),
		},
		[]domain.Connection{
			edge("ok", "broken"),
			edge("broken", "never"),
		},
	))

	_, err := fixture.service.ExecuteWorkflow(context.Background(), ExecuteWorkflowParams{
		WorkspaceID:  "ws-test",
		WorkflowID:   "wf-fail",
		TriggerItems: []domain.Item{{"id": 1}},
	})

	var nodeErr *domain.NodeExecutionError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "broken", nodeErr.NodeID)

	assert.NotContains(t, fixture.recorder.executed(), "never")
}

func TestExecuteWorkflow_ContinueOnFailEmitsErrorItem(t *testing.T) {
	fixture := newEngineFixture()

	broken := testNode("broken", map[string]any{"fail": "boom"})
	broken.ContinueOnFail = true

	fixture.addWorkflow(testWorkflow("wf-continue",
		[]domain.Node{broken, testNode("after", nil)},
		[]domain.Connection{edge("broken", "after")},
	))

	result, err := fixture.service.ExecuteWorkflow(context.Background(), ExecuteWorkflowParams{
		WorkspaceID:  "ws-test",
		WorkflowID:   "wf-continue",
		TriggerItems: []domain.Item{{"id": 1}},
	})
	require.NoError(t, err)

	require.Len(t, result.OutputItems, 1)
	assert.Contains(t, result.OutputItems[0]["error_message"], "boom")
}

func TestExecuteWorkflow_UnknownWorkflow(t *testing.T) {
	fixture := newEngineFixture()

	_, err := fixture.service.ExecuteWorkflow(context.Background(), ExecuteWorkflowParams{
		WorkspaceID: "ws-test",
		WorkflowID:  "missing",
	})

	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
}

func TestExecuteWorkflow_CycleRejected(t *testing.T) {
	fixture := newEngineFixture()
	fixture.addWorkflow(testWorkflow("wf-cycle",
		[]domain.Node{testNode("a", nil), testNode("b", nil)},
		[]domain.Connection{
			edge("a", "b"),
			edge("b", "a"),
		},
	))

	_, err := fixture.service.ExecuteWorkflow(context.Background(), ExecuteWorkflowParams{
		WorkspaceID: "ws-test",
		WorkflowID:  "wf-cycle",
	})

	var cycleErr *domain.GraphCycleError
	assert.ErrorAs(t, err, &cycleErr)

	assert.Empty(t, fixture.recorder.executed())
}

func TestExecuteWorkflow_MissingRequiredSettingRejected(t *testing.T) {
	fixture := newEngineFixture()
	fixture.selector.RegisterDescriptor(domain.NodeDescriptor{
		Type: domain.NodeType_Transform,
		Name: "Transform",
		Actions: []domain.NodeAction{
			{
				ActionType: "set",
				Properties: []domain.NodeProperty{
					{Key: "fields", Required: true, Type: domain.NodePropertyType_Map},
				},
			},
		},
	})

	node := testNode("strict", nil)
	node.Action = "set"

	fixture.addWorkflow(testWorkflow("wf-strict", []domain.Node{node}, nil))

	_, err := fixture.service.ExecuteWorkflow(context.Background(), ExecuteWorkflowParams{
		WorkspaceID:  "ws-test",
		WorkflowID:   "wf-strict",
		TriggerItems: []domain.Item{{"id": 1}},
	})

	var paramErr *domain.ParameterResolutionError
	require.ErrorAs(t, err, &paramErr)
	assert.Equal(t, "strict", paramErr.NodeID)
	assert.Equal(t, "fields", paramErr.Key)

	// The node was rejected before its executor ran.
	assert.Empty(t, fixture.recorder.executed())

	// With the declared setting present the same workflow runs.
	node.Settings = map[string]any{"fields": map[string]any{}}
	fixture.addWorkflow(testWorkflow("wf-strict", []domain.Node{node}, nil))

	_, err = fixture.service.ExecuteWorkflow(context.Background(), ExecuteWorkflowParams{
		WorkspaceID:  "ws-test",
		WorkflowID:   "wf-strict",
		TriggerItems: []domain.Item{{"id": 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"strict"}, fixture.recorder.executed())
}
