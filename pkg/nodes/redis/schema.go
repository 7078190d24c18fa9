package redis

import "github.com/conveyorhq/conveyor/pkg/domain"

func keyProperty(key string) domain.NodeProperty {
	return domain.NodeProperty{
		Key:              key,
		Name:             "Key",
		Required:         true,
		Type:             domain.NodePropertyType_String,
		ExpressionChoice: true,
	}
}

var Schema = domain.NodeDescriptor{
	Type:           domain.NodeType_Redis,
	Kind:           domain.NodeKindDeclarative,
	Name:           "Redis",
	Description:    "Read and write keys in a Redis instance",
	CredentialType: "redis",
	Actions: []domain.NodeAction{
		{
			ActionType: ActionType_Get,
			Name:       "Get",
			Properties: []domain.NodeProperty{keyProperty("key")},
		},
		{
			ActionType: ActionType_Set,
			Name:       "Set",
			Properties: []domain.NodeProperty{
				keyProperty("key"),
				{Key: "value", Name: "Value", Required: true, Type: domain.NodePropertyType_String, ExpressionChoice: true},
				{Key: "expiration_seconds", Name: "Expiration (seconds)", Type: domain.NodePropertyType_Integer},
			},
		},
		{
			ActionType: ActionType_Del,
			Name:       "Delete",
			Properties: []domain.NodeProperty{
				{Key: "keys", Name: "Keys", Required: true, Type: domain.NodePropertyType_Array, ExpressionChoice: true},
			},
		},
		{
			ActionType: ActionType_Exists,
			Name:       "Exists",
			Properties: []domain.NodeProperty{
				{Key: "keys", Name: "Keys", Required: true, Type: domain.NodePropertyType_Array, ExpressionChoice: true},
			},
		},
		{
			ActionType: ActionType_Incr,
			Name:       "Increment",
			Properties: []domain.NodeProperty{keyProperty("key")},
		},
		{
			ActionType: ActionType_Expire,
			Name:       "Expire",
			Properties: []domain.NodeProperty{
				keyProperty("key"),
				{Key: "expiration_seconds", Name: "Expiration (seconds)", Required: true, Type: domain.NodePropertyType_Integer},
			},
		},
		{
			ActionType: ActionType_TTL,
			Name:       "TTL",
			Properties: []domain.NodeProperty{keyProperty("key")},
		},
		{
			ActionType: ActionType_Keys,
			Name:       "List Keys",
			Properties: []domain.NodeProperty{
				{Key: "pattern", Name: "Pattern", Type: domain.NodePropertyType_String},
			},
		},
	},
}
