package redis

import (
	"context"
	"testing"
	"time"

	"github.com/conveyorhq/conveyor/pkg/domain"
	"github.com/conveyorhq/conveyor/pkg/expressions"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNode(t *testing.T) (*RedisNode, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	node, err := NewRedisNode(RedisNodeDependencies{
		ParameterBinder: expressions.NewExprBinder(expressions.DefaultExprBinderOptions()),
		Client:          client,
	})
	require.NoError(t, err)

	return node, server
}

func redisInput(action domain.NodeActionType, settings map[string]any, items []domain.Item) domain.NodeInput {
	return domain.NodeInput{
		NodeID: "redis-1",
		Node:   domain.Node{ID: "redis-1", Type: domain.NodeType_Redis},
		Items:  items,
		Params: domain.NodeParams{Action: action, Settings: settings},
	}
}

func TestRedisNode_SetAndGet(t *testing.T) {
	node, server := newTestNode(t)
	ctx := context.Background()

	output, err := node.Execute(ctx, redisInput(ActionType_Set,
		map[string]any{
			"key":   "user:{{ $json.id }}",
			"value": "{{ $json.name }}",
		},
		[]domain.Item{{"id": "1", "name": "ada"}},
	))
	require.NoError(t, err)
	assert.Equal(t, true, output.Items[0]["success"])

	stored, err := server.Get("user:1")
	require.NoError(t, err)
	assert.Equal(t, "ada", stored)

	output, err = node.Execute(ctx, redisInput(ActionType_Get,
		map[string]any{"key": "user:1"},
		[]domain.Item{{}},
	))
	require.NoError(t, err)

	assert.Equal(t, true, output.Items[0]["found"])
	assert.Equal(t, "ada", output.Items[0]["value"])
}

func TestRedisNode_GetMissingKey(t *testing.T) {
	node, _ := newTestNode(t)

	output, err := node.Execute(context.Background(), redisInput(ActionType_Get,
		map[string]any{"key": "nope"},
		[]domain.Item{{}},
	))
	require.NoError(t, err)

	assert.Equal(t, false, output.Items[0]["found"])
	assert.Nil(t, output.Items[0]["value"])
}

func TestRedisNode_SetWithExpiration(t *testing.T) {
	node, server := newTestNode(t)

	_, err := node.Execute(context.Background(), redisInput(ActionType_Set,
		map[string]any{
			"key":                "session",
			"value":              "token",
			"expiration_seconds": 60,
		},
		[]domain.Item{{}},
	))
	require.NoError(t, err)

	assert.Equal(t, time.Minute, server.TTL("session"))
}

func TestRedisNode_DelAndExists(t *testing.T) {
	node, server := newTestNode(t)
	ctx := context.Background()

	server.Set("a", "1")
	server.Set("b", "2")

	output, err := node.Execute(ctx, redisInput(ActionType_Exists,
		map[string]any{"keys": []any{"a", "b", "c"}},
		[]domain.Item{{}},
	))
	require.NoError(t, err)
	assert.EqualValues(t, 2, output.Items[0]["existing_count"])

	output, err = node.Execute(ctx, redisInput(ActionType_Del,
		map[string]any{"keys": []any{"a", "c"}},
		[]domain.Item{{}},
	))
	require.NoError(t, err)
	assert.EqualValues(t, 1, output.Items[0]["deleted_count"])

	assert.False(t, server.Exists("a"))
	assert.True(t, server.Exists("b"))
}

func TestRedisNode_Incr(t *testing.T) {
	node, _ := newTestNode(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		output, err := node.Execute(ctx, redisInput(ActionType_Incr,
			map[string]any{"key": "counter"},
			[]domain.Item{{}},
		))
		require.NoError(t, err)
		assert.Equal(t, want, output.Items[0]["value"])
	}
}

func TestRedisNode_Keys(t *testing.T) {
	node, server := newTestNode(t)

	server.Set("user:1", "ada")
	server.Set("user:2", "grace")
	server.Set("other", "x")

	output, err := node.Execute(context.Background(), redisInput(ActionType_Keys,
		map[string]any{"pattern": "user:*"},
		[]domain.Item{{}},
	))
	require.NoError(t, err)

	assert.Equal(t, 2, output.Items[0]["count"])
	assert.ElementsMatch(t, []string{"user:1", "user:2"}, output.Items[0]["keys"])
}

func TestRedisNode_PerItemExecution(t *testing.T) {
	node, server := newTestNode(t)

	output, err := node.Execute(context.Background(), redisInput(ActionType_Set,
		map[string]any{
			"key":   "item:{{ $index }}",
			"value": "{{ $json.name }}",
		},
		[]domain.Item{{"name": "ada"}, {"name": "grace"}},
	))
	require.NoError(t, err)
	require.Len(t, output.Items, 2)

	first, err := server.Get("item:0")
	require.NoError(t, err)
	assert.Equal(t, "ada", first)

	second, err := server.Get("item:1")
	require.NoError(t, err)
	assert.Equal(t, "grace", second)
}
