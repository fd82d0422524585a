package qrbatch

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// idFilter evaluates a CEL expression against each extracted identifier.
type idFilter struct {
	expr string
	prg  cel.Program
}

func newIDFilter(expr string) (*idFilter, error) {
	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("index", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("filter compilation error for '%s': %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("filter program creation error for '%s': %w", expr, err)
	}
	return &idFilter{expr: expr, prg: prg}, nil
}

func (f *idFilter) match(id string, index int) (bool, error) {
	out, _, err := f.prg.Eval(map[string]any{
		"id":    id,
		"index": index,
	})
	if err != nil {
		return false, fmt.Errorf("filter evaluation error for '%s': %w", f.expr, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter '%s' must evaluate to bool, got %T", f.expr, out.Value())
	}
	return b, nil
}
