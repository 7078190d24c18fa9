package domain

import (
	"errors"
	"fmt"
)

var (
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrNodeNotFound     = errors.New("node not found")
)

type NodeType string

const (
	NodeType_HTTP        NodeType = "http"
	NodeType_Transform   NodeType = "transform"
	NodeType_Code        NodeType = "code"
	NodeType_PostgreSQL  NodeType = "postgresql"
	NodeType_Redis       NodeType = "redis"
	NodeType_DateTime    NodeType = "datetime"
	NodeType_Subworkflow NodeType = "subworkflow"
)

type NodeActionType string

type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	WorkspaceID string         `json:"workspace_id"`
	Nodes       []Node         `json:"nodes"`
	Connections []Connection   `json:"connections"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func (w Workflow) GetNodeByID(nodeID string) (Node, bool) {
	for _, node := range w.Nodes {
		if node.ID == nodeID {
			return node, true
		}
	}

	return Node{}, false
}

func (w Workflow) GetNodeByName(name string) (Node, bool) {
	for _, node := range w.Nodes {
		if node.Name == name {
			return node, true
		}
	}

	return Node{}, false
}

// Validate checks that every connection references nodes that exist in this
// workflow and that no connection forms a self-loop. Cycle detection across
// multiple connections happens at graph resolution time.
func (w Workflow) Validate() error {
	nodeIDs := make(map[string]struct{}, len(w.Nodes))
	for _, node := range w.Nodes {
		if node.ID == "" {
			return fmt.Errorf("workflow %s contains a node with an empty id", w.ID)
		}

		if _, exists := nodeIDs[node.ID]; exists {
			return fmt.Errorf("workflow %s contains duplicate node id %s", w.ID, node.ID)
		}

		nodeIDs[node.ID] = struct{}{}
	}

	for _, conn := range w.Connections {
		if _, ok := nodeIDs[conn.SourceNodeID]; !ok {
			return fmt.Errorf("connection source node %s not found in workflow %s", conn.SourceNodeID, w.ID)
		}

		if _, ok := nodeIDs[conn.TargetNodeID]; !ok {
			return fmt.Errorf("connection target node %s not found in workflow %s", conn.TargetNodeID, w.ID)
		}

		if conn.SourceNodeID == conn.TargetNodeID {
			return fmt.Errorf("connection on node %s is a self-loop", conn.SourceNodeID)
		}
	}

	return nil
}

type Node struct {
	ID             string         `json:"id"`
	Type           NodeType       `json:"type"`
	Action         NodeActionType `json:"action,omitempty"`
	Name           string         `json:"name"`
	Settings       map[string]any `json:"settings,omitempty"`
	ExecutionOrder int            `json:"execution_order,omitempty"`
	ContinueOnFail bool           `json:"continue_on_fail,omitempty"`
}

func (n Node) CredentialID() string {
	credentialID, ok := n.Settings["credential_id"].(string)
	if !ok {
		return ""
	}

	return credentialID
}

type Connection struct {
	SourceNodeID string `json:"source_node_id"`
	SourceHandle string `json:"source_handle,omitempty"`
	TargetNodeID string `json:"target_node_id"`
	TargetHandle string `json:"target_handle,omitempty"`

	// DataMapping renames item fields as they cross this edge, keyed by
	// source field name. Fields not listed pass through unchanged.
	DataMapping map[string]string `json:"data_mapping,omitempty"`
}

// ApplyDataMapping returns copies of the given items with the connection's
// field remapping applied.
func (c Connection) ApplyDataMapping(items []Item) []Item {
	if len(c.DataMapping) == 0 {
		return CloneItems(items)
	}

	mapped := make([]Item, 0, len(items))

	for _, item := range items {
		clone := item.Clone()

		for sourceField, targetField := range c.DataMapping {
			value, exists := clone[sourceField]
			if !exists {
				continue
			}

			delete(clone, sourceField)
			clone[targetField] = value
		}

		mapped = append(mapped, clone)
	}

	return mapped
}
