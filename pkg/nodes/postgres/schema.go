package postgres

import "github.com/conveyorhq/conveyor/pkg/domain"

var statementProperties = []domain.NodeProperty{
	{
		Key:              "query",
		Name:             "Query",
		Description:      "SQL statement with positional parameters ($1, $2, ...)",
		Required:         true,
		Type:             domain.NodePropertyType_Text,
		ExpressionChoice: true,
	},
	{
		Key:              "args",
		Name:             "Arguments",
		Description:      "Positional parameter values, may contain expressions",
		Type:             domain.NodePropertyType_Array,
		ExpressionChoice: true,
	},
}

var Schema = domain.NodeDescriptor{
	Type:           domain.NodeType_PostgreSQL,
	Kind:           domain.NodeKindDeclarative,
	Name:           "PostgreSQL",
	Description:    "Run SQL queries and statements against a PostgreSQL database",
	CredentialType: "postgresql",
	Actions: []domain.NodeAction{
		{
			ActionType:  ActionType_Query,
			Name:        "Query",
			Description: "Run a query; every row becomes an item",
			Properties:  statementProperties,
		},
		{
			ActionType:  ActionType_Execute,
			Name:        "Execute",
			Description: "Run a statement and report affected rows",
			Properties:  statementProperties,
		},
	},
}
