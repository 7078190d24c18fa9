package engine

import (
	"testing"

	"github.com/conveyorhq/conveyor/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveGraph_LinearOrder(t *testing.T) {
	nodes := []domain.Node{
		testNode("c", nil),
		testNode("a", nil),
		testNode("b", nil),
	}
	connections := []domain.Connection{
		edge("a", "b"),
		edge("b", "c"),
	}

	plan, err := ResolveGraph(nodes, connections)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, plan.Order)
	assert.Equal(t, []string{"a"}, plan.EntryNodes())
	assert.Equal(t, []string{"c"}, plan.TerminalNodes())
}

func TestResolveGraph_DiamondIsDeterministic(t *testing.T) {
	nodes := []domain.Node{
		testNode("start", nil),
		testNode("right", nil),
		testNode("left", nil),
		testNode("merge", nil),
	}
	connections := []domain.Connection{
		edge("start", "left"),
		edge("start", "right"),
		edge("left", "merge"),
		edge("right", "merge"),
	}

	first, err := ResolveGraph(nodes, connections)
	require.NoError(t, err)

	// Same graph resolved repeatedly must give the same linearization.
	for i := 0; i < 5; i++ {
		again, err := ResolveGraph(nodes, connections)
		require.NoError(t, err)
		assert.Equal(t, first.Order, again.Order)
	}

	// Siblings with no ordering hints tie-break on node id.
	assert.Equal(t, []string{"start", "left", "right", "merge"}, first.Order)
}

func TestResolveGraph_ExecutionOrderHintWins(t *testing.T) {
	left := testNode("left", nil)
	right := testNode("right", nil)
	right.ExecutionOrder = -1

	nodes := []domain.Node{testNode("start", nil), left, right}
	connections := []domain.Connection{
		edge("start", "left"),
		edge("start", "right"),
	}

	plan, err := ResolveGraph(nodes, connections)
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "right", "left"}, plan.Order)
}

func TestResolveGraph_Cycle(t *testing.T) {
	nodes := []domain.Node{
		testNode("a", nil),
		testNode("b", nil),
		testNode("c", nil),
	}
	connections := []domain.Connection{
		edge("a", "b"),
		edge("b", "c"),
		edge("c", "b"),
	}

	_, err := ResolveGraph(nodes, connections)

	var cycleErr *domain.GraphCycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"b", "c"}, cycleErr.NodeIDs)
}

func TestResolveGraph_DuplicateEdges(t *testing.T) {
	nodes := []domain.Node{
		testNode("a", nil),
		testNode("b", nil),
	}
	connections := []domain.Connection{
		edge("a", "b"),
		edge("a", "b"),
	}

	plan, err := ResolveGraph(nodes, connections)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, plan.Order)
}

func TestResolveGraph_InboundConnectionsFollowPlanOrder(t *testing.T) {
	nodes := []domain.Node{
		testNode("merge", nil),
		testNode("second", nil),
		testNode("first", nil),
	}
	connections := []domain.Connection{
		edge("second", "merge"),
		edge("first", "merge"),
	}

	plan, err := ResolveGraph(nodes, connections)
	require.NoError(t, err)

	inbound := plan.InboundConnections("merge")
	require.Len(t, inbound, 2)
	assert.Equal(t, "first", inbound[0].SourceNodeID)
	assert.Equal(t, "second", inbound[1].SourceNodeID)
}
