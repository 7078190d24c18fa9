package datetime

import "github.com/conveyorhq/conveyor/pkg/domain"

var targetFieldProperty = domain.NodeProperty{
	Key:         "target_field",
	Name:        "Target Field",
	Description: "Item field to write the result into",
	Type:        domain.NodePropertyType_String,
}

var Schema = domain.NodeDescriptor{
	Type:                 domain.NodeType_DateTime,
	Kind:                 domain.NodeKindDeclarative,
	Name:                 "Date & Time",
	Description:          "Produce, reformat and compare timestamps",
	IsCredentialOptional: true,
	Actions: []domain.NodeAction{
		{
			ActionType:  ActionType_Now,
			Name:        "Current Time",
			Description: "Stamp each item with the current time",
			Properties:  []domain.NodeProperty{targetFieldProperty},
		},
		{
			ActionType: ActionType_Format,
			Name:       "Format",
			Properties: []domain.NodeProperty{
				{Key: "value", Name: "Value", Required: true, Type: domain.NodePropertyType_String, ExpressionChoice: true},
				{
					Key:  "format",
					Name: "Format",
					Type: domain.NodePropertyType_String,
					Options: []domain.NodeOption{
						{Label: "RFC 3339", Value: "rfc3339"},
						{Label: "RFC 1123", Value: "rfc1123"},
						{Label: "Date", Value: "date"},
						{Label: "Time", Value: "time"},
						{Label: "Date and Time", Value: "datetime"},
						{Label: "Unix Seconds", Value: "unix"},
					},
				},
				targetFieldProperty,
			},
		},
		{
			ActionType: ActionType_Shift,
			Name:       "Shift",
			Properties: []domain.NodeProperty{
				{Key: "value", Name: "Value", Required: true, Type: domain.NodePropertyType_String, ExpressionChoice: true},
				{Key: "amount", Name: "Amount", Required: true, Type: domain.NodePropertyType_Integer},
				{
					Key:      "unit",
					Name:     "Unit",
					Required: true,
					Type:     domain.NodePropertyType_String,
					Options: []domain.NodeOption{
						{Label: "Seconds", Value: "seconds"},
						{Label: "Minutes", Value: "minutes"},
						{Label: "Hours", Value: "hours"},
						{Label: "Days", Value: "days"},
					},
				},
				targetFieldProperty,
			},
		},
		{
			ActionType: ActionType_Diff,
			Name:       "Difference",
			Properties: []domain.NodeProperty{
				{Key: "start", Name: "Start", Required: true, Type: domain.NodePropertyType_String, ExpressionChoice: true},
				{Key: "end", Name: "End", Required: true, Type: domain.NodePropertyType_String, ExpressionChoice: true},
				{Key: "unit", Name: "Unit", Type: domain.NodePropertyType_String},
				targetFieldProperty,
			},
		},
	},
}
