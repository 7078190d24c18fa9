package transform

import "github.com/conveyorhq/conveyor/pkg/domain"

var Schema = domain.NodeDescriptor{
	Type:                 domain.NodeType_Transform,
	Kind:                 domain.NodeKindDeclarative,
	Name:                 "Transform",
	Description:          "Reshape items by setting, renaming, picking or dropping fields, or limit the item count",
	IsCredentialOptional: true,
	Actions: []domain.NodeAction{
		{
			ActionType:  ActionType_Set,
			Name:        "Set Fields",
			Description: "Write fields into each item",
			Properties: []domain.NodeProperty{
				{
					Key:              "fields",
					Name:             "Fields",
					Description:      "Field values to write, may contain expressions",
					Required:         true,
					Type:             domain.NodePropertyType_Map,
					ExpressionChoice: true,
				},
				{
					Key:  "keep_only_set",
					Name: "Keep Only Set Fields",
					Type: domain.NodePropertyType_Boolean,
				},
			},
		},
		{
			ActionType:  ActionType_Rename,
			Name:        "Rename Fields",
			Description: "Rename fields on each item",
			Properties: []domain.NodeProperty{
				{
					Key:      "fields",
					Name:     "Fields",
					Required: true,
					Type:     domain.NodePropertyType_Map,
				},
			},
		},
		{
			ActionType:  ActionType_Pick,
			Name:        "Pick Fields",
			Description: "Keep only the listed fields",
			Properties: []domain.NodeProperty{
				{
					Key:      "fields",
					Name:     "Fields",
					Required: true,
					Type:     domain.NodePropertyType_Array,
				},
			},
		},
		{
			ActionType:  ActionType_Drop,
			Name:        "Drop Fields",
			Description: "Remove the listed fields",
			Properties: []domain.NodeProperty{
				{
					Key:      "fields",
					Name:     "Fields",
					Required: true,
					Type:     domain.NodePropertyType_Array,
				},
			},
		},
		{
			ActionType:  ActionType_Limit,
			Name:        "Limit",
			Description: "Truncate the item sequence to at most N items",
			Properties: []domain.NodeProperty{
				{
					Key:      "count",
					Name:     "Count",
					Required: true,
					Type:     domain.NodePropertyType_Integer,
				},
				{
					Key:  "from_end",
					Name: "Keep Last Items",
					Type: domain.NodePropertyType_Boolean,
				},
			},
		},
	},
}
