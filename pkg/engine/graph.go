package engine

import (
	"sort"

	"github.com/conveyorhq/conveyor/pkg/domain"
)

// ExecutionPlan is the linearized form of a workflow graph: a deterministic
// topological order plus the dependency structure the runners need.
type ExecutionPlan struct {
	Order        []string
	Predecessors map[string][]string
	Successors   map[string][]string

	nodesByID       map[string]domain.Node
	connectionsByID map[string][]domain.Connection
}

func (p *ExecutionPlan) NodeByID(nodeID string) (domain.Node, bool) {
	node, ok := p.nodesByID[nodeID]

	return node, ok
}

// InboundConnections returns the connections targeting the given node in
// predecessor order.
func (p *ExecutionPlan) InboundConnections(nodeID string) []domain.Connection {
	return p.connectionsByID[nodeID]
}

// EntryNodes returns the nodes with no predecessors, in plan order. Trigger
// data is fed to these.
func (p *ExecutionPlan) EntryNodes() []string {
	entries := []string{}

	for _, nodeID := range p.Order {
		if len(p.Predecessors[nodeID]) == 0 {
			entries = append(entries, nodeID)
		}
	}

	return entries
}

// TerminalNodes returns the nodes with no successors, in plan order. Their
// outputs form the workflow's final output.
func (p *ExecutionPlan) TerminalNodes() []string {
	terminals := []string{}

	for _, nodeID := range p.Order {
		if len(p.Successors[nodeID]) == 0 {
			terminals = append(terminals, nodeID)
		}
	}

	return terminals
}

// ResolveGraph linearizes a node and connection set into a deterministic
// execution order. The tie-break between ready nodes is stable by
// (ExecutionOrder, node id), so repeated resolutions of an unchanged graph
// always yield the same order. A cycle is fatal and reported with the ids
// of the nodes still entangled in it.
func ResolveGraph(nodes []domain.Node, connections []domain.Connection) (*ExecutionPlan, error) {
	nodesByID := make(map[string]domain.Node, len(nodes))
	for _, node := range nodes {
		nodesByID[node.ID] = node
	}

	predecessors := make(map[string][]string, len(nodes))
	successors := make(map[string][]string, len(nodes))
	connectionsByID := make(map[string][]domain.Connection)
	inDegree := make(map[string]int, len(nodes))

	for _, node := range nodes {
		predecessors[node.ID] = []string{}
		successors[node.ID] = []string{}
		inDegree[node.ID] = 0
	}

	seen := map[[2]string]struct{}{}

	for _, conn := range connections {
		connectionsByID[conn.TargetNodeID] = append(connectionsByID[conn.TargetNodeID], conn)

		edge := [2]string{conn.SourceNodeID, conn.TargetNodeID}
		if _, duplicate := seen[edge]; duplicate {
			continue
		}
		seen[edge] = struct{}{}

		predecessors[conn.TargetNodeID] = append(predecessors[conn.TargetNodeID], conn.SourceNodeID)
		successors[conn.SourceNodeID] = append(successors[conn.SourceNodeID], conn.TargetNodeID)
		inDegree[conn.TargetNodeID]++
	}

	less := func(a, b string) bool {
		nodeA, nodeB := nodesByID[a], nodesByID[b]
		if nodeA.ExecutionOrder != nodeB.ExecutionOrder {
			return nodeA.ExecutionOrder < nodeB.ExecutionOrder
		}

		return a < b
	}

	ready := []string{}
	for _, node := range nodes {
		if inDegree[node.ID] == 0 {
			ready = append(ready, node.ID)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })

	order := make([]string, 0, len(nodes))

	for len(ready) > 0 {
		nodeID := ready[0]
		ready = ready[1:]
		order = append(order, nodeID)

		for _, successor := range successors[nodeID] {
			inDegree[successor]--
			if inDegree[successor] == 0 {
				ready = append(ready, successor)
			}
		}

		sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })
	}

	if len(order) != len(nodes) {
		cycleNodes := []string{}
		for _, node := range nodes {
			if inDegree[node.ID] > 0 {
				cycleNodes = append(cycleNodes, node.ID)
			}
		}
		sort.Strings(cycleNodes)

		return nil, &domain.GraphCycleError{NodeIDs: cycleNodes}
	}

	// Predecessor lists follow plan order so that input assembly is
	// deterministic for merge nodes.
	positions := make(map[string]int, len(order))
	for i, nodeID := range order {
		positions[nodeID] = i
	}

	for nodeID := range predecessors {
		sort.Slice(predecessors[nodeID], func(i, j int) bool {
			return positions[predecessors[nodeID][i]] < positions[predecessors[nodeID][j]]
		})
	}

	for nodeID := range connectionsByID {
		conns := connectionsByID[nodeID]
		sort.SliceStable(conns, func(i, j int) bool {
			return positions[conns[i].SourceNodeID] < positions[conns[j].SourceNodeID]
		})
	}

	return &ExecutionPlan{
		Order:           order,
		Predecessors:    predecessors,
		Successors:      successors,
		nodesByID:       nodesByID,
		connectionsByID: connectionsByID,
	}, nil
}
