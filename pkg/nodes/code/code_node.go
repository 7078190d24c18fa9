package code

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/conveyorhq/conveyor/pkg/domain"

	"github.com/dop251/goja"
)

const (
	ActionType_Run        domain.NodeActionType = "run"
	ActionType_RunPerItem domain.NodeActionType = "run_per_item"
)

type CodeNodeCreator struct {
	binder domain.ParameterBinder
}

func NewCodeNodeCreator(deps domain.NodeDeps) domain.NodeCreator {
	return &CodeNodeCreator{
		binder: deps.ParameterBinder,
	}
}

func (c *CodeNodeCreator) CreateNode(ctx context.Context, p domain.CreateNodeParams) (domain.NodeExecutor, error) {
	return NewCodeNode(CodeNodeDependencies{
		ParameterBinder: c.binder,
	})
}

type CodeNode struct {
	binder        domain.ParameterBinder
	actionManager *domain.NodeActionManager
}

type CodeNodeDependencies struct {
	ParameterBinder domain.ParameterBinder
}

func NewCodeNode(deps CodeNodeDependencies) (*CodeNode, error) {
	node := &CodeNode{
		binder: deps.ParameterBinder,
	}

	node.actionManager = domain.NewNodeActionManager().
		Add(ActionType_Run, node.Run).
		AddPerItem(ActionType_RunPerItem, node.RunPerItem)

	return node, nil
}

func (n *CodeNode) Execute(ctx context.Context, input domain.NodeInput) (domain.NodeOutput, error) {
	action := input.Params.Action
	if action == "" {
		action = ActionType_Run
	}

	return n.actionManager.Run(ctx, action, input)
}

type RunParams struct {
	Script string `json:"script"`
}

// Run executes the script once with the whole item sequence bound to
// "items". The script's result value becomes the node output: an array of
// objects yields that many items, a single object yields one item.
func (n *CodeNode) Run(ctx context.Context, input domain.NodeInput) (domain.NodeOutput, error) {
	script, err := n.script(ctx, input, domain.ExpressionEnv{OutputsByNodeName: input.OutputsByNodeName})
	if err != nil {
		return domain.NodeOutput{}, err
	}

	globals := map[string]any{
		"items": itemsToAny(input.Items),
		"nodes": outputsToAny(input.OutputsByNodeName),
	}

	result, err := n.runScript(ctx, script, globals)
	if err != nil {
		return domain.NodeOutput{}, err
	}

	items, err := valueToItems(result)
	if err != nil {
		return domain.NodeOutput{}, err
	}

	return domain.NodeOutput{Items: items}, nil
}

// RunPerItem executes the script once per input item with "item" and
// "index" bound. Returning null or undefined drops the item.
func (n *CodeNode) RunPerItem(ctx context.Context, input domain.NodeInput, item domain.Item, index int) (domain.Item, error) {
	script, err := n.script(ctx, input, input.EnvFor(item, index))
	if err != nil {
		return nil, err
	}

	globals := map[string]any{
		"item":  map[string]any(item),
		"index": index,
		"nodes": outputsToAny(input.OutputsByNodeName),
	}

	result, err := n.runScript(ctx, script, globals)
	if err != nil {
		return nil, err
	}

	if result == nil {
		return nil, nil
	}

	items, err := valueToItems(result)
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return nil, nil
	}

	if len(items) > 1 {
		return nil, fmt.Errorf("per-item script returned %d items, expected at most one", len(items))
	}

	return items[0], nil
}

func (n *CodeNode) script(ctx context.Context, input domain.NodeInput, env domain.ExpressionEnv) (string, error) {
	var p RunParams

	err := n.binder.BindToStruct(ctx, env, &p, input.Params.Settings)
	if err != nil {
		return "", err
	}

	if p.Script == "" {
		return "", domain.NewParameterResolutionError(input.NodeID, "script")
	}

	return p.Script, nil
}

func (n *CodeNode) runScript(ctx context.Context, script string, globals map[string]any) (any, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	for name, value := range globals {
		if err := vm.Set(name, value); err != nil {
			return nil, newScriptError(err)
		}
	}

	// A cancelled context interrupts the running script; scripts cannot
	// outlive their node invocation.
	watchdogDone := make(chan struct{})
	defer close(watchdogDone)

	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-watchdogDone:
		}
	}()

	value, err := vm.RunString(script)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, ctx.Err()
		}

		return nil, newScriptError(err)
	}

	if value == nil {
		return nil, nil
	}

	return value.Export(), nil
}

// ScriptError carries the failure position inside the user's script so the
// debugger can point at the offending line.
type ScriptError struct {
	Message  string
	Location string
}

func (e *ScriptError) Error() string {
	return e.Message
}

func (e *ScriptError) SourceLocation() string {
	return e.Location
}

var scriptPositionRegex = regexp.MustCompile(`<eval>:(\d+):(\d+)`)

func newScriptError(err error) *ScriptError {
	scriptErr := &ScriptError{Message: err.Error()}

	var exception *goja.Exception
	if errors.As(err, &exception) {
		scriptErr.Message = exception.Value().String()
	}

	if match := scriptPositionRegex.FindStringSubmatch(err.Error()); match != nil {
		scriptErr.Location = fmt.Sprintf("line %s, column %s", match[1], match[2])
	}

	return scriptErr
}

func itemsToAny(items []domain.Item) []any {
	converted := make([]any, 0, len(items))
	for _, item := range items {
		converted = append(converted, map[string]any(item))
	}

	return converted
}

func outputsToAny(outputs map[string][]domain.Item) map[string]any {
	converted := make(map[string]any, len(outputs))
	for name, items := range outputs {
		converted[name] = itemsToAny(items)
	}

	return converted
}

// valueToItems normalizes a script result into an item sequence via a JSON
// round trip, which also strips functions and other non-data values.
func valueToItems(value any) ([]domain.Item, error) {
	if value == nil {
		return []domain.Item{}, nil
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("script result is not serializable: %w", err)
	}

	if string(encoded) == "null" {
		return []domain.Item{}, nil
	}

	var asItems []domain.Item
	if err := json.Unmarshal(encoded, &asItems); err == nil {
		return asItems, nil
	}

	var asItem domain.Item
	if err := json.Unmarshal(encoded, &asItem); err == nil {
		return []domain.Item{asItem}, nil
	}

	return nil, fmt.Errorf("script result must be an object or an array of objects")
}
