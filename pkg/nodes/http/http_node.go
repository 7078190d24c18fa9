package http

import (
	"context"
	"time"

	"github.com/conveyorhq/conveyor/pkg/domain"
)

const (
	ActionType_Get    domain.NodeActionType = "get"
	ActionType_Post   domain.NodeActionType = "post"
	ActionType_Put    domain.NodeActionType = "put"
	ActionType_Patch  domain.NodeActionType = "patch"
	ActionType_Delete domain.NodeActionType = "delete"
)

var methodsByAction = map[domain.NodeActionType]string{
	ActionType_Get:    "GET",
	ActionType_Post:   "POST",
	ActionType_Put:    "PUT",
	ActionType_Patch:  "PATCH",
	ActionType_Delete: "DELETE",
}

type HTTPNodeCreator struct {
	binder      domain.ParameterBinder
	helper      *domain.HTTPHelper
	credentials domain.CredentialProvider
}

func NewHTTPNodeCreator(deps domain.NodeDeps) domain.NodeCreator {
	return &HTTPNodeCreator{
		binder:      deps.ParameterBinder,
		helper:      deps.HTTPHelper,
		credentials: deps.CredentialManager,
	}
}

func (c *HTTPNodeCreator) CreateNode(ctx context.Context, p domain.CreateNodeParams) (domain.NodeExecutor, error) {
	node := &HTTPNode{
		binder: c.binder,
		helper: c.helper,
	}

	if node.helper == nil {
		node.helper = domain.NewHTTPHelper()
	}

	// The credential is optional; without one requests go out unsigned.
	if p.CredentialID != "" && c.credentials != nil {
		getter := domain.NewCredentialGetter[domain.HTTPCredential](p.WorkspaceID, c.credentials)

		credential, err := getter.GetDecryptedCredential(ctx, p.CredentialID)
		if err != nil {
			return nil, err
		}

		node.credential = &credential
	}

	node.actionManager = domain.NewNodeActionManager().
		AddPerItem(ActionType_Get, node.Request).
		AddPerItem(ActionType_Post, node.Request).
		AddPerItem(ActionType_Put, node.Request).
		AddPerItem(ActionType_Patch, node.Request).
		AddPerItem(ActionType_Delete, node.Request)

	return node, nil
}

type HTTPNode struct {
	binder        domain.ParameterBinder
	helper        *domain.HTTPHelper
	credential    *domain.HTTPCredential
	actionManager *domain.NodeActionManager
}

func (n *HTTPNode) Execute(ctx context.Context, input domain.NodeInput) (domain.NodeOutput, error) {
	return n.actionManager.Run(ctx, input.Params.Action, input)
}

type RequestParams struct {
	URL                string            `json:"url"`
	Headers            map[string]string `json:"headers,omitempty"`
	QueryParams        map[string]string `json:"query_params,omitempty"`
	Body               any               `json:"body,omitempty"`
	TimeoutSeconds     int               `json:"timeout_seconds,omitempty"`
	IgnoreStatusErrors bool              `json:"ignore_status_errors,omitempty"`
}

// Request performs one HTTP call per input item. The method comes from the
// action type, everything else from the bound parameters.
func (n *HTTPNode) Request(ctx context.Context, input domain.NodeInput, item domain.Item, index int) (domain.Item, error) {
	var p RequestParams

	err := n.binder.BindToStruct(ctx, input.EnvFor(item, index), &p, input.Params.Settings)
	if err != nil {
		return nil, err
	}

	if p.URL == "" {
		return nil, domain.NewParameterResolutionError(input.NodeID, "url")
	}

	result, err := n.helper.Do(ctx, domain.HTTPRequestOptions{
		Method:             methodsByAction[input.Params.Action],
		URL:                p.URL,
		Headers:            p.Headers,
		Query:              p.QueryParams,
		Body:               p.Body,
		Timeout:            time.Duration(p.TimeoutSeconds) * time.Second,
		IgnoreStatusErrors: p.IgnoreStatusErrors,
		Credential:         n.credential,
	})
	if err != nil {
		return nil, err
	}

	return domain.Item{
		"status_code": result.StatusCode,
		"headers":     result.Headers,
		"body":        result.Body,
	}, nil
}
