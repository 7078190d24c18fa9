package datetime

import (
	"context"
	"fmt"
	"time"

	"github.com/conveyorhq/conveyor/pkg/domain"
)

const (
	ActionType_Now    domain.NodeActionType = "now"
	ActionType_Format domain.NodeActionType = "format"
	ActionType_Shift  domain.NodeActionType = "shift"
	ActionType_Diff   domain.NodeActionType = "diff"
)

// layoutsByName maps user-facing format names onto Go reference layouts.
var layoutsByName = map[string]string{
	"rfc3339":  time.RFC3339,
	"rfc1123":  time.RFC1123,
	"date":     "2006-01-02",
	"time":     "15:04:05",
	"datetime": "2006-01-02 15:04:05",
	"unix":     "unix",
}

type DateTimeNodeCreator struct {
	binder domain.ParameterBinder
}

func NewDateTimeNodeCreator(deps domain.NodeDeps) domain.NodeCreator {
	return &DateTimeNodeCreator{
		binder: deps.ParameterBinder,
	}
}

func (c *DateTimeNodeCreator) CreateNode(ctx context.Context, p domain.CreateNodeParams) (domain.NodeExecutor, error) {
	return NewDateTimeNode(DateTimeNodeDependencies{
		ParameterBinder: c.binder,
	})
}

type DateTimeNode struct {
	binder        domain.ParameterBinder
	actionManager *domain.NodeActionManager

	// now is swappable for tests.
	now func() time.Time
}

type DateTimeNodeDependencies struct {
	ParameterBinder domain.ParameterBinder
	Now             func() time.Time
}

func NewDateTimeNode(deps DateTimeNodeDependencies) (*DateTimeNode, error) {
	node := &DateTimeNode{
		binder: deps.ParameterBinder,
		now:    deps.Now,
	}

	if node.now == nil {
		node.now = func() time.Time { return time.Now().UTC() }
	}

	node.actionManager = domain.NewNodeActionManager().
		AddPerItem(ActionType_Now, node.Now).
		AddPerItem(ActionType_Format, node.Format).
		AddPerItem(ActionType_Shift, node.Shift).
		AddPerItem(ActionType_Diff, node.Diff)

	return node, nil
}

func (n *DateTimeNode) Execute(ctx context.Context, input domain.NodeInput) (domain.NodeOutput, error) {
	return n.actionManager.Run(ctx, input.Params.Action, input)
}

type NowParams struct {
	TargetField string `json:"target_field,omitempty"`
}

// Now stamps each item with the current time in RFC 3339.
func (n *DateTimeNode) Now(ctx context.Context, input domain.NodeInput, item domain.Item, index int) (domain.Item, error) {
	var p NowParams

	err := n.binder.BindToStruct(ctx, input.EnvFor(item, index), &p, input.Params.Settings)
	if err != nil {
		return nil, err
	}

	field := p.TargetField
	if field == "" {
		field = "now"
	}

	result := item.Clone()
	result[field] = n.now().Format(time.RFC3339)

	return result, nil
}

type FormatParams struct {
	Value       string `json:"value"`
	Format      string `json:"format"`
	TargetField string `json:"target_field,omitempty"`
}

// Format re-renders a timestamp in another layout. The input value is
// parsed as RFC 3339 or as unix seconds.
func (n *DateTimeNode) Format(ctx context.Context, input domain.NodeInput, item domain.Item, index int) (domain.Item, error) {
	var p FormatParams

	err := n.binder.BindToStruct(ctx, input.EnvFor(item, index), &p, input.Params.Settings)
	if err != nil {
		return nil, err
	}

	if p.Value == "" {
		return nil, domain.NewParameterResolutionError(input.NodeID, "value")
	}

	parsed, err := parseTimestamp(p.Value)
	if err != nil {
		return nil, err
	}

	formatted, err := formatTimestamp(parsed, p.Format)
	if err != nil {
		return nil, err
	}

	field := p.TargetField
	if field == "" {
		field = "formatted"
	}

	result := item.Clone()
	result[field] = formatted

	return result, nil
}

type ShiftParams struct {
	Value       string `json:"value"`
	Amount      int    `json:"amount"`
	Unit        string `json:"unit"`
	TargetField string `json:"target_field,omitempty"`
}

// Shift moves a timestamp by a signed amount of seconds, minutes, hours or
// days.
func (n *DateTimeNode) Shift(ctx context.Context, input domain.NodeInput, item domain.Item, index int) (domain.Item, error) {
	var p ShiftParams

	err := n.binder.BindToStruct(ctx, input.EnvFor(item, index), &p, input.Params.Settings)
	if err != nil {
		return nil, err
	}

	if p.Value == "" {
		return nil, domain.NewParameterResolutionError(input.NodeID, "value")
	}

	parsed, err := parseTimestamp(p.Value)
	if err != nil {
		return nil, err
	}

	duration, err := unitDuration(p.Unit)
	if err != nil {
		return nil, err
	}

	field := p.TargetField
	if field == "" {
		field = "shifted"
	}

	result := item.Clone()
	result[field] = parsed.Add(time.Duration(p.Amount) * duration).Format(time.RFC3339)

	return result, nil
}

type DiffParams struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	Unit        string `json:"unit,omitempty"`
	TargetField string `json:"target_field,omitempty"`
}

// Diff computes end minus start in the requested unit, seconds by default.
func (n *DateTimeNode) Diff(ctx context.Context, input domain.NodeInput, item domain.Item, index int) (domain.Item, error) {
	var p DiffParams

	err := n.binder.BindToStruct(ctx, input.EnvFor(item, index), &p, input.Params.Settings)
	if err != nil {
		return nil, err
	}

	if p.Start == "" {
		return nil, domain.NewParameterResolutionError(input.NodeID, "start")
	}

	if p.End == "" {
		return nil, domain.NewParameterResolutionError(input.NodeID, "end")
	}

	start, err := parseTimestamp(p.Start)
	if err != nil {
		return nil, err
	}

	end, err := parseTimestamp(p.End)
	if err != nil {
		return nil, err
	}

	unit := p.Unit
	if unit == "" {
		unit = "seconds"
	}

	duration, err := unitDuration(unit)
	if err != nil {
		return nil, err
	}

	field := p.TargetField
	if field == "" {
		field = "diff"
	}

	result := item.Clone()
	result[field] = end.Sub(start).Seconds() / duration.Seconds()

	return result, nil
}

func parseTimestamp(value string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}

	var unix int64
	if _, err := fmt.Sscanf(value, "%d", &unix); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", value)
}

func formatTimestamp(value time.Time, format string) (string, error) {
	if format == "" {
		return value.Format(time.RFC3339), nil
	}

	layout, ok := layoutsByName[format]
	if !ok {
		// Unknown names are treated as raw Go layouts.
		return value.Format(format), nil
	}

	if layout == "unix" {
		return fmt.Sprintf("%d", value.Unix()), nil
	}

	return value.Format(layout), nil
}

func unitDuration(unit string) (time.Duration, error) {
	switch unit {
	case "seconds":
		return time.Second, nil
	case "minutes":
		return time.Minute, nil
	case "hours":
		return time.Hour, nil
	case "days":
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown time unit %q", unit)
	}
}
