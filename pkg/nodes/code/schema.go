package code

import "github.com/conveyorhq/conveyor/pkg/domain"

var scriptProperty = domain.NodeProperty{
	Key:         "script",
	Name:        "Script",
	Description: "JavaScript source to execute",
	Required:    true,
	Type:        domain.NodePropertyType_CodeEditor,
}

var Schema = domain.NodeDescriptor{
	Type:                 domain.NodeType_Code,
	Kind:                 domain.NodeKindProgrammatic,
	Name:                 "Code",
	Description:          "Run a JavaScript snippet over the input items",
	IsCredentialOptional: true,
	Actions: []domain.NodeAction{
		{
			ActionType:  ActionType_Run,
			Name:        "Run Once",
			Description: "Run the script once with all items bound to 'items'",
			Properties:  []domain.NodeProperty{scriptProperty},
		},
		{
			ActionType:  ActionType_RunPerItem,
			Name:        "Run Per Item",
			Description: "Run the script once per item with 'item' and 'index' bound",
			Properties:  []domain.NodeProperty{scriptProperty},
		},
	},
}
