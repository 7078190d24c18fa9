package domain

// NodeKind selects how the engine drives a node type. Declarative nodes are
// fully described by their routing and settings; programmatic nodes carry
// custom logic that runs inside an execution context built per invocation.
type NodeKind string

const (
	NodeKindDeclarative  NodeKind = "declarative"
	NodeKindProgrammatic NodeKind = "programmatic"
)

type NodePropertyType string

const (
	NodePropertyType_String     NodePropertyType = "string"
	NodePropertyType_Text       NodePropertyType = "text"
	NodePropertyType_Integer    NodePropertyType = "integer"
	NodePropertyType_Number     NodePropertyType = "number"
	NodePropertyType_Boolean    NodePropertyType = "boolean"
	NodePropertyType_Array      NodePropertyType = "array"
	NodePropertyType_Map        NodePropertyType = "map"
	NodePropertyType_CodeEditor NodePropertyType = "code_editor"
)

type NodeProperty struct {
	Key              string             `json:"key"`
	Name             string             `json:"name"`
	Description      string             `json:"description,omitempty"`
	Required         bool               `json:"required"`
	Type             NodePropertyType   `json:"type"`
	ExpressionChoice bool               `json:"expression_choice,omitempty"`
	Options          []NodeOption       `json:"options,omitempty"`
	SubProperties    []NodeProperty     `json:"sub_properties,omitempty"`
}

type NodeOption struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

type NodeAction struct {
	ActionType  NodeActionType `json:"action_type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Properties  []NodeProperty `json:"properties,omitempty"`
}

// NodeDescriptor describes a node type: what it is called, how it is driven,
// which credential type it needs and which actions and parameters it exposes.
type NodeDescriptor struct {
	Type                 NodeType     `json:"type"`
	Kind                 NodeKind     `json:"kind"`
	Name                 string       `json:"name"`
	Description          string       `json:"description,omitempty"`
	CredentialType       string       `json:"credential_type,omitempty"`
	IsCredentialOptional bool         `json:"is_credential_optional,omitempty"`
	Actions              []NodeAction `json:"actions,omitempty"`
}

func (d NodeDescriptor) GetAction(actionType NodeActionType) (NodeAction, bool) {
	for _, action := range d.Actions {
		if action.ActionType == actionType {
			return action, true
		}
	}

	return NodeAction{}, false
}

// RequiredKeys returns the keys of required properties for the given action.
func (d NodeDescriptor) RequiredKeys(actionType NodeActionType) []string {
	action, ok := d.GetAction(actionType)
	if !ok {
		return nil
	}

	keys := []string{}
	for _, property := range action.Properties {
		if property.Required {
			keys = append(keys, property.Key)
		}
	}

	return keys
}
