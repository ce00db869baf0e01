package workflow

import (
	"errors"
	"fmt"
	"sort"

	apperrors "github.com/spec-kit/case-service/pkg/util/errorutil"
)

// predicate tests one CaseView field value (string, float64, bool or nil).
type predicate func(value any) (bool, error)

type condition struct {
	field string
	test  predicate
}

var thresholdOps = map[string]func(got, want float64) bool{
	"gte": func(got, want float64) bool { return got >= want },
	"gt":  func(got, want float64) bool { return got > want },
	"lte": func(got, want float64) bool { return got <= want },
	"lt":  func(got, want float64) bool { return got < want },
	"eq":  func(got, want float64) bool { return got == want },
	"ne":  func(got, want float64) bool { return got != want },
}

// compileConditions turns the stored condition map into predicates, ordered by field
// name so evaluation is deterministic.
func compileConditions(conds map[string]any) ([]condition, error) {
	names := make([]string, 0, len(conds))
	for name := range conds {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]condition, 0, len(names))
	for _, name := range names {
		test, err := compileCondition(conds[name])
		if err != nil {
			return nil, fmt.Errorf("condition %q: %w", name, err)
		}
		out = append(out, condition{field: name, test: test})
	}
	return out, nil
}

func compileCondition(spec any) (predicate, error) {
	switch s := spec.(type) {
	case nil:
		return func(value any) (bool, error) { return value == nil, nil }, nil
	case []string:
		members := make([]any, len(s))
		for i, m := range s {
			members[i] = m
		}
		return membership(members), nil
	case []any:
		members := make([]any, 0, len(s))
		for _, m := range s {
			norm, ok := normalize(m)
			if !ok {
				return nil, fmt.Errorf("unsupported list member %T", m)
			}
			members = append(members, norm)
		}
		return membership(members), nil
	case map[string]any:
		return compileObject(s)
	default:
		want, ok := normalize(spec)
		if !ok {
			return nil, fmt.Errorf("unsupported condition value %T", spec)
		}
		return func(value any) (bool, error) { return equal(value, want) }, nil
	}
}

func compileObject(spec map[string]any) (predicate, error) {
	if raw, ok := spec["not_null"]; ok {
		if len(spec) != 1 {
			return nil, errors.New("not_null cannot be combined with other operators")
		}
		required, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("not_null must be a boolean, got %T", raw)
		}
		return func(value any) (bool, error) { return (value != nil) == required, nil }, nil
	}
	if len(spec) == 0 {
		return nil, errors.New("empty condition object")
	}

	type bound struct {
		cmp  func(got, want float64) bool
		want float64
	}
	bounds := make([]bound, 0, len(spec))
	for op, raw := range spec {
		cmp, ok := thresholdOps[op]
		if !ok {
			return nil, fmt.Errorf("unknown operator %q", op)
		}
		norm, _ := normalize(raw)
		want, ok := norm.(float64)
		if !ok {
			return nil, fmt.Errorf("operator %q needs a number, got %T", op, raw)
		}
		bounds = append(bounds, bound{cmp: cmp, want: want})
	}
	return func(value any) (bool, error) {
		got, ok := value.(float64)
		if !ok {
			return false, fmt.Errorf("numeric comparison on %T", value)
		}
		for _, b := range bounds {
			if !b.cmp(got, b.want) {
				return false, nil
			}
		}
		return true, nil
	}, nil
}

func membership(members []any) predicate {
	return func(value any) (bool, error) {
		for _, m := range members {
			ok, err := equal(value, m)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
}

// equal compares a field value with an expected scalar. A null field never equals a
// scalar; differing kinds are an evaluation error.
func equal(got, want any) (bool, error) {
	if got == nil {
		return false, nil
	}
	switch w := want.(type) {
	case string:
		g, ok := got.(string)
		if !ok {
			return false, fmt.Errorf("cannot compare %T with string", got)
		}
		return g == w, nil
	case float64:
		g, ok := got.(float64)
		if !ok {
			return false, fmt.Errorf("cannot compare %T with number", got)
		}
		return g == w, nil
	case bool:
		g, ok := got.(bool)
		if !ok {
			return false, fmt.Errorf("cannot compare %T with bool", got)
		}
		return g == w, nil
	}
	return false, fmt.Errorf("unsupported value %T", want)
}

func normalize(v any) (any, bool) {
	switch n := v.(type) {
	case string, bool:
		return n, true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return nil, false
}

// evaluateConditions reports whether all conditions hold for v.
func evaluateConditions(conds []condition, v CaseView) (bool, error) {
	for _, c := range conds {
		value, ok := v.Field(c.field)
		if !ok {
			return false, fmt.Errorf("%w: unknown field %q", apperrors.ErrRuleEvaluation, c.field)
		}
		holds, err := c.test(value)
		if err != nil {
			return false, fmt.Errorf("%w: field %q: %w", apperrors.ErrRuleEvaluation, c.field, err)
		}
		if !holds {
			return false, nil
		}
	}
	return true, nil
}
