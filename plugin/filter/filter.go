// Package filter compiles CEL expressions that narrow a due set, for example
// `level < 2 && is_difficult` or `overdue_days > 3`.
package filter

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/hrygo/wordloop/plugin/srs"
)

// evalCostLimit bounds the work a single expression may do per candidate.
const evalCostLimit = 10000

var candidateEnv = mustEnv()

func mustEnv() *cel.Env {
	env, err := cel.NewEnv(
		cel.Variable("item_id", cel.StringType),
		cel.Variable("level", cel.IntType),
		cel.Variable("days_since", cel.IntType),
		cel.Variable("required_interval", cel.IntType),
		cel.Variable("overdue_days", cel.IntType),
		cel.Variable("priority", cel.DoubleType),
		cel.Variable("accuracy", cel.DoubleType),
		cel.Variable("is_difficult", cel.BoolType),
		cel.Variable("streak", cel.IntType),
		cel.Variable("correct", cel.IntType),
		cel.Variable("incorrect", cel.IntType),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to build candidate filter env: %v", err))
	}
	return env
}

// Filter is a compiled boolean expression over candidate fields.
// It is safe for concurrent use.
type Filter struct {
	expr    string
	program cel.Program
}

// Compile parses and type-checks expr. The expression must evaluate to bool.
func Compile(expr string) (*Filter, error) {
	ast, issues := candidateEnv.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile filter %q: %w", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("filter %q must evaluate to bool, got %s", expr, ast.OutputType())
	}
	program, err := candidateEnv.Program(ast, cel.CostLimit(evalCostLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to build filter program %q: %w", expr, err)
	}
	return &Filter{expr: expr, program: program}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.expr
}

// Match evaluates the filter against one candidate.
func (f *Filter) Match(c srs.Candidate) (bool, error) {
	out, _, err := f.program.Eval(activation(c))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate filter %q on item %q: %w", f.expr, c.Record.ItemID, err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter %q returned %T", f.expr, out.Value())
	}
	return matched, nil
}

// Apply keeps the candidates that match, preserving order. The result is never nil.
func (f *Filter) Apply(candidates []srs.Candidate) ([]srs.Candidate, error) {
	kept := make([]srs.Candidate, 0, len(candidates))
	for _, c := range candidates {
		ok, err := f.Match(c)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

func activation(c srs.Candidate) map[string]any {
	r := c.Record
	return map[string]any{
		"item_id":           r.ItemID,
		"level":             int64(r.MasteryLevel),
		"days_since":        int64(c.DaysSinceReview),
		"required_interval": int64(c.RequiredInterval),
		"overdue_days":      int64(c.OverdueDays),
		"priority":          c.Priority,
		"accuracy":          srs.Accuracy(r),
		"is_difficult":      r.IsDifficult,
		"streak":            int64(r.StudyStreak),
		"correct":           int64(r.CorrectCount),
		"incorrect":         int64(r.IncorrectCount),
	}
}
