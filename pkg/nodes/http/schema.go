package http

import "github.com/conveyorhq/conveyor/pkg/domain"

var requestProperties = []domain.NodeProperty{
	{
		Key:              "url",
		Name:             "URL",
		Required:         true,
		Type:             domain.NodePropertyType_String,
		ExpressionChoice: true,
	},
	{
		Key:              "headers",
		Name:             "Headers",
		Type:             domain.NodePropertyType_Map,
		ExpressionChoice: true,
	},
	{
		Key:              "query_params",
		Name:             "Query Parameters",
		Type:             domain.NodePropertyType_Map,
		ExpressionChoice: true,
	},
	{
		Key:              "body",
		Name:             "Body",
		Description:      "JSON-encoded request body",
		Type:             domain.NodePropertyType_Map,
		ExpressionChoice: true,
	},
	{
		Key:  "timeout_seconds",
		Name: "Timeout (seconds)",
		Type: domain.NodePropertyType_Integer,
	},
	{
		Key:         "ignore_status_errors",
		Name:        "Ignore Status Errors",
		Description: "Return non-2xx responses as items instead of failing",
		Type:        domain.NodePropertyType_Boolean,
	},
}

var Schema = domain.NodeDescriptor{
	Type:                 domain.NodeType_HTTP,
	Kind:                 domain.NodeKindDeclarative,
	Name:                 "HTTP Request",
	Description:          "Perform an HTTP request per input item",
	CredentialType:       "http",
	IsCredentialOptional: true,
	Actions: []domain.NodeAction{
		{ActionType: ActionType_Get, Name: "GET", Properties: requestProperties},
		{ActionType: ActionType_Post, Name: "POST", Properties: requestProperties},
		{ActionType: ActionType_Put, Name: "PUT", Properties: requestProperties},
		{ActionType: ActionType_Patch, Name: "PATCH", Properties: requestProperties},
		{ActionType: ActionType_Delete, Name: "DELETE", Properties: requestProperties},
	},
}
