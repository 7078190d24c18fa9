package code

import (
	"context"
	"testing"
	"time"

	"github.com/conveyorhq/conveyor/pkg/domain"
	"github.com/conveyorhq/conveyor/pkg/expressions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNode(t *testing.T) domain.NodeExecutor {
	t.Helper()

	creator := NewCodeNodeCreator(domain.NodeDeps{
		ParameterBinder: expressions.NewExprBinder(expressions.DefaultExprBinderOptions()),
	})

	executor, err := creator.CreateNode(context.Background(), domain.CreateNodeParams{WorkspaceID: "ws-test"})
	require.NoError(t, err)

	return executor
}

func codeInput(action domain.NodeActionType, script string, items []domain.Item) domain.NodeInput {
	return domain.NodeInput{
		NodeID: "code-1",
		Node:   domain.Node{ID: "code-1", Type: domain.NodeType_Code},
		Items:  items,
		Params: domain.NodeParams{
			Action:   action,
			Settings: map[string]any{"script": script},
		},
	}
}

func TestCodeNode_RunMapsItems(t *testing.T) {
	node := newTestNode(t)

	output, err := node.Execute(context.Background(), codeInput(ActionType_Run,
		`items.map(function(item) { return { doubled: item.value * 2 }; })`,
		[]domain.Item{{"value": 2}, {"value": 5}},
	))
	require.NoError(t, err)

	require.Len(t, output.Items, 2)
	assert.EqualValues(t, 4, output.Items[0]["doubled"])
	assert.EqualValues(t, 10, output.Items[1]["doubled"])
}

func TestCodeNode_RunSingleObjectResult(t *testing.T) {
	node := newTestNode(t)

	output, err := node.Execute(context.Background(), codeInput(ActionType_Run,
		`({ count: items.length })`,
		[]domain.Item{{"a": 1}, {"b": 2}, {"c": 3}},
	))
	require.NoError(t, err)

	require.Len(t, output.Items, 1)
	assert.EqualValues(t, 3, output.Items[0]["count"])
}

func TestCodeNode_RunPerItem(t *testing.T) {
	node := newTestNode(t)

	output, err := node.Execute(context.Background(), codeInput(ActionType_RunPerItem,
		`({ id: item.id, position: index })`,
		[]domain.Item{{"id": "a"}, {"id": "b"}},
	))
	require.NoError(t, err)

	require.Len(t, output.Items, 2)
	assert.Equal(t, "a", output.Items[0]["id"])
	assert.EqualValues(t, 0, output.Items[0]["position"])
	assert.EqualValues(t, 1, output.Items[1]["position"])
}

func TestCodeNode_RunPerItemNullDropsItem(t *testing.T) {
	node := newTestNode(t)

	output, err := node.Execute(context.Background(), codeInput(ActionType_RunPerItem,
		`item.keep ? item : null`,
		[]domain.Item{{"keep": true, "id": 1}, {"keep": false, "id": 2}},
	))
	require.NoError(t, err)

	require.Len(t, output.Items, 1)
	assert.EqualValues(t, 1, output.Items[0]["id"])
}

func TestCodeNode_NodesGlobalExposesUpstreamOutputs(t *testing.T) {
	node := newTestNode(t)

	input := codeInput(ActionType_Run,
		`({ first_user: nodes["Fetch Users"][0].name })`,
		[]domain.Item{{}},
	)
	input.OutputsByNodeName = map[string][]domain.Item{
		"Fetch Users": {{"name": "ada"}},
	}

	output, err := node.Execute(context.Background(), input)
	require.NoError(t, err)

	require.Len(t, output.Items, 1)
	assert.Equal(t, "ada", output.Items[0]["first_user"])
}

func TestCodeNode_ThrowCarriesSourceLocation(t *testing.T) {
	node := newTestNode(t)

	_, err := node.Execute(context.Background(), codeInput(ActionType_Run,
		"var x = 1;\nthrow new Error(\"boom\");",
		[]domain.Item{{}},
	))

	var scriptErr *ScriptError
	require.ErrorAs(t, err, &scriptErr)
	assert.Contains(t, scriptErr.Message, "boom")
}

func TestCodeNode_SyntaxError(t *testing.T) {
	node := newTestNode(t)

	_, err := node.Execute(context.Background(), codeInput(ActionType_Run,
		`this is not javascript`,
		[]domain.Item{{}},
	))

	var scriptErr *ScriptError
	assert.ErrorAs(t, err, &scriptErr)
}

func TestCodeNode_CancelInterruptsScript(t *testing.T) {
	node := newTestNode(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := node.Execute(ctx, codeInput(ActionType_Run, `for (;;) {}`, []domain.Item{{}}))
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(5 * time.Second):
		t.Fatal("script was not interrupted")
	}
}

func TestCodeNode_MissingScript(t *testing.T) {
	node := newTestNode(t)

	_, err := node.Execute(context.Background(), codeInput(ActionType_Run, "", []domain.Item{{}}))

	var paramErr *domain.ParameterResolutionError
	require.ErrorAs(t, err, &paramErr)
	assert.Equal(t, "script", paramErr.Key)
}

func TestCodeNode_NonObjectResultRejected(t *testing.T) {
	node := newTestNode(t)

	_, err := node.Execute(context.Background(), codeInput(ActionType_Run, `42`, []domain.Item{{}}))
	assert.Error(t, err)
}
