package expressions

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/conveyorhq/conveyor/pkg/domain"

	"github.com/expr-lang/expr"
	"github.com/rs/zerolog"
)

// ExprBinder resolves {{ ... }} expressions in node settings against the
// current item and prior node outputs. Expressions reference the item as
// $json, its position as $index and upstream outputs as $node("Name").
type ExprBinder struct {
	exprRegex  *regexp.Regexp
	tokenRegex *regexp.Regexp
	logger     zerolog.Logger
}

type ExprBinderOptions struct {
	Logger zerolog.Logger
}

func DefaultExprBinderOptions() ExprBinderOptions {
	return ExprBinderOptions{
		Logger: zerolog.Nop(),
	}
}

func NewExprBinder(opts ExprBinderOptions) *ExprBinder {
	return &ExprBinder{
		exprRegex:  regexp.MustCompile(`\{\{(.*?)\}\}`),
		tokenRegex: regexp.MustCompile(`\$(json|item|node|index|now)\b`),
		logger:     opts.Logger,
	}
}

// BindToStruct resolves all expressions in settings and decodes the result
// into the target struct through JSON.
func (b *ExprBinder) BindToStruct(ctx context.Context, env domain.ExpressionEnv, target any, settings map[string]any) error {
	if target == nil || settings == nil {
		return fmt.Errorf("target and settings cannot be nil")
	}

	if reflect.ValueOf(target).Kind() != reflect.Ptr {
		return fmt.Errorf("target must be a pointer")
	}

	boundData, err := b.bindValue(ctx, env, settings)
	if err != nil {
		return fmt.Errorf("binding failed: %w", err)
	}

	jsonData, err := json.Marshal(boundData)
	if err != nil {
		return fmt.Errorf("failed to marshal bound settings: %w", err)
	}

	if err := json.Unmarshal(jsonData, target); err != nil {
		return fmt.Errorf("failed to unmarshal bound settings: %w", err)
	}

	return nil
}

// BindValue resolves expressions in a single value, which may be a string,
// map or slice.
func (b *ExprBinder) BindValue(ctx context.Context, env domain.ExpressionEnv, value any) (any, error) {
	return b.bindValue(ctx, env, value)
}

func (b *ExprBinder) bindValue(ctx context.Context, env domain.ExpressionEnv, value any) (any, error) {
	switch v := value.(type) {
	case string:
		return b.bindString(ctx, env, v)
	case map[string]any:
		result := make(map[string]any, len(v))

		for key, entry := range v {
			bound, err := b.bindValue(ctx, env, entry)
			if err != nil {
				return nil, fmt.Errorf("failed to bind key %q: %w", key, err)
			}

			result[key] = bound
		}

		return result, nil
	case []any:
		result := make([]any, len(v))

		for i, entry := range v {
			bound, err := b.bindValue(ctx, env, entry)
			if err != nil {
				return nil, fmt.Errorf("failed to bind index %d: %w", i, err)
			}

			result[i] = bound
		}

		return result, nil
	default:
		return value, nil
	}
}

func (b *ExprBinder) bindString(ctx context.Context, env domain.ExpressionEnv, str string) (any, error) {
	matches := b.exprRegex.FindAllStringSubmatch(str, -1)
	if len(matches) == 0 {
		return str, nil
	}

	// A string that is exactly one expression keeps the expression's value
	// and type; anything else interpolates into a string.
	if len(matches) == 1 && matches[0][0] == str {
		expression := strings.TrimSpace(matches[0][1])

		return b.evaluate(ctx, env, expression), nil
	}

	result := str
	for _, match := range matches {
		expression := strings.TrimSpace(match[1])
		value := b.evaluate(ctx, env, expression)
		result = strings.ReplaceAll(result, match[0], valueToString(value))
	}

	return result, nil
}

// evaluate runs one expression. Unresolvable references yield nil rather
// than an error; nodes that require a value surface the missing parameter
// themselves.
func (b *ExprBinder) evaluate(ctx context.Context, env domain.ExpressionEnv, expression string) any {
	code := b.tokenRegex.ReplaceAllString(expression, "$1")

	program, err := expr.Compile(code, expr.AllowUndefinedVariables())
	if err != nil {
		b.logger.Debug().Err(err).Str("expression", expression).Msg("Expression failed to compile")

		return nil
	}

	output, err := expr.Run(program, b.environment(env))
	if err != nil {
		b.logger.Debug().Err(err).Str("expression", expression).Msg("Expression evaluation failed")

		return nil
	}

	return output
}

func (b *ExprBinder) environment(env domain.ExpressionEnv) map[string]any {
	return map[string]any{
		"json":  map[string]any(env.Item),
		"item":  map[string]any(env.Item),
		"index": env.Index,
		"now": func() time.Time {
			return time.Now().UTC()
		},
		"node": func(name string) map[string]any {
			items := env.OutputsByNodeName[name]
			if len(items) == 0 {
				return map[string]any{"json": nil, "items": []domain.Item{}}
			}

			return map[string]any{
				"json":  map[string]any(items[0]),
				"items": items,
			}
		},
	}
}

func valueToString(value any) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}

		return string(jsonBytes)
	}
}
