package subworkflow

import "github.com/conveyorhq/conveyor/pkg/domain"

var Schema = domain.NodeDescriptor{
	Type:                 domain.NodeType_Subworkflow,
	Kind:                 domain.NodeKindDeclarative,
	Name:                 "Subworkflow",
	Description:          "Invoke another workflow with this node's input items",
	IsCredentialOptional: true,
	Actions: []domain.NodeAction{
		{
			ActionType: ActionType_Invoke,
			Name:       "Invoke",
			Properties: []domain.NodeProperty{
				{
					Key:              "workflow_id",
					Name:             "Workflow",
					Required:         true,
					Type:             domain.NodePropertyType_String,
					ExpressionChoice: true,
				},
				{
					Key:  "mode",
					Name: "Mode",
					Type: domain.NodePropertyType_String,
					Options: []domain.NodeOption{
						{Label: "Run once with all items", Value: "once"},
						{Label: "Run once per item", Value: "foreach"},
					},
				},
			},
		},
	},
}
