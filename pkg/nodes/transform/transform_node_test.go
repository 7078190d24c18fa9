package transform

import (
	"context"
	"testing"

	"github.com/conveyorhq/conveyor/pkg/domain"
	"github.com/conveyorhq/conveyor/pkg/expressions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNode(t *testing.T) domain.NodeExecutor {
	t.Helper()

	creator := NewTransformNodeCreator(domain.NodeDeps{
		ParameterBinder: expressions.NewExprBinder(expressions.DefaultExprBinderOptions()),
	})

	executor, err := creator.CreateNode(context.Background(), domain.CreateNodeParams{WorkspaceID: "ws-test"})
	require.NoError(t, err)

	return executor
}

func transformInput(action domain.NodeActionType, settings map[string]any, items []domain.Item) domain.NodeInput {
	return domain.NodeInput{
		NodeID: "transform-1",
		Node:   domain.Node{ID: "transform-1", Type: domain.NodeType_Transform},
		Items:  items,
		Params: domain.NodeParams{Action: action, Settings: settings},
	}
}

func TestTransformNode_Set(t *testing.T) {
	node := newTestNode(t)

	output, err := node.Execute(context.Background(), transformInput(ActionType_Set,
		map[string]any{
			"fields": map[string]any{
				"greeting": "hello {{ $json.name }}",
				"static":   42,
			},
		},
		[]domain.Item{{"name": "ada"}, {"name": "grace"}},
	))
	require.NoError(t, err)

	require.Len(t, output.Items, 2)
	assert.Equal(t, "hello ada", output.Items[0]["greeting"])
	assert.Equal(t, "hello grace", output.Items[1]["greeting"])
	assert.EqualValues(t, 42, output.Items[0]["static"])
	assert.Equal(t, "ada", output.Items[0]["name"])
}

func TestTransformNode_SetKeepOnlySet(t *testing.T) {
	node := newTestNode(t)

	output, err := node.Execute(context.Background(), transformInput(ActionType_Set,
		map[string]any{
			"fields":        map[string]any{"kept": "{{ $json.name }}"},
			"keep_only_set": true,
		},
		[]domain.Item{{"name": "ada", "age": 36}},
	))
	require.NoError(t, err)

	require.Len(t, output.Items, 1)
	assert.Equal(t, domain.Item{"kept": "ada"}, output.Items[0])
}

func TestTransformNode_Rename(t *testing.T) {
	node := newTestNode(t)

	output, err := node.Execute(context.Background(), transformInput(ActionType_Rename,
		map[string]any{
			"fields": map[string]any{"user_name": "name"},
		},
		[]domain.Item{{"user_name": "ada", "age": 36}},
	))
	require.NoError(t, err)

	require.Len(t, output.Items, 1)
	assert.Equal(t, "ada", output.Items[0]["name"])
	assert.NotContains(t, output.Items[0], "user_name")
	assert.EqualValues(t, 36, output.Items[0]["age"])
}

func TestTransformNode_PickAndDrop(t *testing.T) {
	node := newTestNode(t)

	picked, err := node.Execute(context.Background(), transformInput(ActionType_Pick,
		map[string]any{"fields": []any{"name"}},
		[]domain.Item{{"name": "ada", "age": 36}},
	))
	require.NoError(t, err)
	assert.Equal(t, domain.Item{"name": "ada"}, picked.Items[0])

	dropped, err := node.Execute(context.Background(), transformInput(ActionType_Drop,
		map[string]any{"fields": []any{"age"}},
		[]domain.Item{{"name": "ada", "age": 36}},
	))
	require.NoError(t, err)
	assert.Equal(t, domain.Item{"name": "ada"}, dropped.Items[0])
}

func TestTransformNode_Limit(t *testing.T) {
	items := []domain.Item{{"id": 1}, {"id": 2}, {"id": 3}}
	node := newTestNode(t)

	tests := []struct {
		name     string
		settings map[string]any
		wantIDs  []float64
	}{
		{
			name:     "first two",
			settings: map[string]any{"count": 2},
			wantIDs:  []float64{1, 2},
		},
		{
			name:     "last two",
			settings: map[string]any{"count": 2, "from_end": true},
			wantIDs:  []float64{2, 3},
		},
		{
			name:     "count larger than input",
			settings: map[string]any{"count": 10},
			wantIDs:  []float64{1, 2, 3},
		},
		{
			name:     "zero keeps nothing",
			settings: map[string]any{"count": 0},
			wantIDs:  []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := node.Execute(context.Background(), transformInput(ActionType_Limit, tt.settings, items))
			require.NoError(t, err)

			gotIDs := []float64{}
			for _, item := range output.Items {
				gotIDs = append(gotIDs, item["id"].(float64))
			}

			assert.Equal(t, tt.wantIDs, gotIDs)
		})
	}
}

func TestTransformNode_DoesNotMutateInput(t *testing.T) {
	node := newTestNode(t)

	items := []domain.Item{{"name": "ada"}}

	_, err := node.Execute(context.Background(), transformInput(ActionType_Set,
		map[string]any{"fields": map[string]any{"extra": true}},
		items,
	))
	require.NoError(t, err)

	assert.Equal(t, domain.Item{"name": "ada"}, items[0])
}
