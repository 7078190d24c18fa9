package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/conveyorhq/conveyor/pkg/domain"

	"github.com/redis/go-redis/v9"
)

const (
	ActionType_Get    domain.NodeActionType = "get"
	ActionType_Set    domain.NodeActionType = "set"
	ActionType_Del    domain.NodeActionType = "del"
	ActionType_Exists domain.NodeActionType = "exists"
	ActionType_Incr   domain.NodeActionType = "incr"
	ActionType_Expire domain.NodeActionType = "expire"
	ActionType_TTL    domain.NodeActionType = "ttl"
	ActionType_Keys   domain.NodeActionType = "keys"
)

type RedisCredential struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Database int    `json:"database,omitempty"`
}

func (c RedisCredential) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ClientProvider hands out Redis clients for a credential. The production
// implementation caches clients per execution scope and closes them when
// the scope's credential manager is released.
type ClientProvider interface {
	GetRedisClient(ctx context.Context, credential RedisCredential) (*redis.Client, error)
}

type RedisNodeCreator struct {
	binder      domain.ParameterBinder
	credentials domain.CredentialProvider
	clients     ClientProvider
}

type RedisNodeCreatorDeps struct {
	NodeDeps domain.NodeDeps
	Clients  ClientProvider
}

func NewRedisNodeCreator(deps RedisNodeCreatorDeps) domain.NodeCreator {
	return &RedisNodeCreator{
		binder:      deps.NodeDeps.ParameterBinder,
		credentials: deps.NodeDeps.CredentialManager,
		clients:     deps.Clients,
	}
}

func (c *RedisNodeCreator) CreateNode(ctx context.Context, p domain.CreateNodeParams) (domain.NodeExecutor, error) {
	if p.CredentialID == "" {
		return nil, domain.NewCredentialError("", errors.New("redis node requires a credential"))
	}

	getter := domain.NewCredentialGetter[RedisCredential](p.WorkspaceID, c.credentials)

	credential, err := getter.GetDecryptedCredential(ctx, p.CredentialID)
	if err != nil {
		return nil, err
	}

	client, err := c.clients.GetRedisClient(ctx, credential)
	if err != nil {
		return nil, domain.NewCredentialError(p.CredentialID, err)
	}

	return NewRedisNode(RedisNodeDependencies{
		ParameterBinder: c.binder,
		Client:          client,
	})
}

type RedisNode struct {
	binder        domain.ParameterBinder
	client        *redis.Client
	actionManager *domain.NodeActionManager
}

type RedisNodeDependencies struct {
	ParameterBinder domain.ParameterBinder
	Client          *redis.Client
}

func NewRedisNode(deps RedisNodeDependencies) (*RedisNode, error) {
	node := &RedisNode{
		binder: deps.ParameterBinder,
		client: deps.Client,
	}

	node.actionManager = domain.NewNodeActionManager().
		AddPerItem(ActionType_Get, node.Get).
		AddPerItem(ActionType_Set, node.Set).
		AddPerItem(ActionType_Del, node.Del).
		AddPerItem(ActionType_Exists, node.Exists).
		AddPerItem(ActionType_Incr, node.Incr).
		AddPerItem(ActionType_Expire, node.Expire).
		AddPerItem(ActionType_TTL, node.TTL).
		AddPerItem(ActionType_Keys, node.Keys)

	return node, nil
}

func (n *RedisNode) Execute(ctx context.Context, input domain.NodeInput) (domain.NodeOutput, error) {
	return n.actionManager.Run(ctx, input.Params.Action, input)
}

type GetParams struct {
	Key string `json:"key"`
}

func (n *RedisNode) Get(ctx context.Context, input domain.NodeInput, item domain.Item, index int) (domain.Item, error) {
	var p GetParams

	err := n.binder.BindToStruct(ctx, input.EnvFor(item, index), &p, input.Params.Settings)
	if err != nil {
		return nil, err
	}

	value, err := n.client.Get(ctx, p.Key).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Item{"key": p.Key, "value": nil, "found": false}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", p.Key, err)
	}

	return domain.Item{"key": p.Key, "value": value, "found": true}, nil
}

type SetParams struct {
	Key               string `json:"key"`
	Value             string `json:"value"`
	ExpirationSeconds int    `json:"expiration_seconds,omitempty"`
}

func (n *RedisNode) Set(ctx context.Context, input domain.NodeInput, item domain.Item, index int) (domain.Item, error) {
	var p SetParams

	err := n.binder.BindToStruct(ctx, input.EnvFor(item, index), &p, input.Params.Settings)
	if err != nil {
		return nil, err
	}

	var expiration time.Duration
	if p.ExpirationSeconds > 0 {
		expiration = time.Duration(p.ExpirationSeconds) * time.Second
	}

	if err := n.client.Set(ctx, p.Key, p.Value, expiration).Err(); err != nil {
		return nil, fmt.Errorf("failed to set key %s: %w", p.Key, err)
	}

	return domain.Item{"key": p.Key, "value": p.Value, "success": true}, nil
}

type DelParams struct {
	Keys []string `json:"keys"`
}

func (n *RedisNode) Del(ctx context.Context, input domain.NodeInput, item domain.Item, index int) (domain.Item, error) {
	var p DelParams

	err := n.binder.BindToStruct(ctx, input.EnvFor(item, index), &p, input.Params.Settings)
	if err != nil {
		return nil, err
	}

	deleted, err := n.client.Del(ctx, p.Keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to delete keys %v: %w", p.Keys, err)
	}

	return domain.Item{"keys": p.Keys, "deleted_count": deleted, "success": true}, nil
}

type ExistsParams struct {
	Keys []string `json:"keys"`
}

func (n *RedisNode) Exists(ctx context.Context, input domain.NodeInput, item domain.Item, index int) (domain.Item, error) {
	var p ExistsParams

	err := n.binder.BindToStruct(ctx, input.EnvFor(item, index), &p, input.Params.Settings)
	if err != nil {
		return nil, err
	}

	count, err := n.client.Exists(ctx, p.Keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check keys %v: %w", p.Keys, err)
	}

	return domain.Item{"keys": p.Keys, "existing_count": count}, nil
}

type IncrParams struct {
	Key string `json:"key"`
}

func (n *RedisNode) Incr(ctx context.Context, input domain.NodeInput, item domain.Item, index int) (domain.Item, error) {
	var p IncrParams

	err := n.binder.BindToStruct(ctx, input.EnvFor(item, index), &p, input.Params.Settings)
	if err != nil {
		return nil, err
	}

	value, err := n.client.Incr(ctx, p.Key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to increment key %s: %w", p.Key, err)
	}

	return domain.Item{"key": p.Key, "value": value}, nil
}

type ExpireParams struct {
	Key               string `json:"key"`
	ExpirationSeconds int    `json:"expiration_seconds"`
}

func (n *RedisNode) Expire(ctx context.Context, input domain.NodeInput, item domain.Item, index int) (domain.Item, error) {
	var p ExpireParams

	err := n.binder.BindToStruct(ctx, input.EnvFor(item, index), &p, input.Params.Settings)
	if err != nil {
		return nil, err
	}

	ok, err := n.client.Expire(ctx, p.Key, time.Duration(p.ExpirationSeconds)*time.Second).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to expire key %s: %w", p.Key, err)
	}

	return domain.Item{"key": p.Key, "success": ok}, nil
}

type TTLParams struct {
	Key string `json:"key"`
}

func (n *RedisNode) TTL(ctx context.Context, input domain.NodeInput, item domain.Item, index int) (domain.Item, error) {
	var p TTLParams

	err := n.binder.BindToStruct(ctx, input.EnvFor(item, index), &p, input.Params.Settings)
	if err != nil {
		return nil, err
	}

	ttl, err := n.client.TTL(ctx, p.Key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get ttl of key %s: %w", p.Key, err)
	}

	return domain.Item{"key": p.Key, "ttl_seconds": int64(ttl.Seconds())}, nil
}

type KeysParams struct {
	Pattern string `json:"pattern"`
}

func (n *RedisNode) Keys(ctx context.Context, input domain.NodeInput, item domain.Item, index int) (domain.Item, error) {
	var p KeysParams

	err := n.binder.BindToStruct(ctx, input.EnvFor(item, index), &p, input.Params.Settings)
	if err != nil {
		return nil, err
	}

	if p.Pattern == "" {
		p.Pattern = "*"
	}

	keys, err := n.client.Keys(ctx, p.Pattern).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list keys for pattern %s: %w", p.Pattern, err)
	}

	return domain.Item{"pattern": p.Pattern, "keys": keys, "count": len(keys)}, nil
}
