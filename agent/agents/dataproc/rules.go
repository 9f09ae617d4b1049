package dataproc

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

// Rule tests one field of a record. An empty Field tests the record itself,
// which is how scalar data is checked. Dotted fields reach nested objects.
type Rule struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

// Step rewrites one field of a record.
type Step struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value"`
	// To names the target of a rename.
	To string `json:"to"`
}

var (
	ruleOps = []string{"exists", "missing", "not_empty", "eq", "ne", "gt", "gte", "lt", "lte", "contains", "in", "type"}
	stepOps = []string{"set", "add", "multiply", "round", "upper", "lower", "trim", "rename", "drop"}
)

func (r Rule) String() string {
	if r.Value == nil {
		return strings.TrimSpace(r.Field + " " + r.Op)
	}
	return fmt.Sprintf("%s %s %v", r.Field, r.Op, r.Value)
}

func (r Rule) check() error {
	if !slices.Contains(ruleOps, r.Op) {
		return fmt.Errorf("%w: unknown rule op %q", contractx.ErrValidation, r.Op)
	}
	return nil
}

func (s Step) check() error {
	if !slices.Contains(stepOps, s.Op) {
		return fmt.Errorf("%w: unknown transformation op %q", contractx.ErrValidation, s.Op)
	}
	switch s.Op {
	case "rename":
		if s.Field == "" || s.To == "" {
			return fmt.Errorf("%w: rename needs field and to", contractx.ErrValidation)
		}
	case "drop":
		if s.Field == "" {
			return fmt.Errorf("%w: drop needs a field", contractx.ErrValidation)
		}
	case "add", "multiply":
		if _, ok := contractx.Number(s.Value); !ok {
			return fmt.Errorf("%w: %s needs a numeric value", contractx.ErrValidation, s.Op)
		}
	}
	return nil
}

func (r Rule) match(record any) bool {
	v, ok := lookup(record, r.Field)
	switch r.Op {
	case "exists":
		return ok
	case "missing":
		return !ok
	case "not_empty":
		return ok && !empty(v)
	}
	if !ok {
		return false
	}

	switch r.Op {
	case "eq":
		return equal(v, r.Value)
	case "ne":
		return !equal(v, r.Value)
	case "gt", "gte", "lt", "lte":
		a, okA := contractx.Number(v)
		b, okB := contractx.Number(r.Value)
		if !okA || !okB {
			return false
		}
		switch r.Op {
		case "gt":
			return a > b
		case "gte":
			return a >= b
		case "lt":
			return a < b
		default:
			return a <= b
		}
	case "contains":
		switch c := v.(type) {
		case string:
			return strings.Contains(c, fmt.Sprint(r.Value))
		case []any:
			return slices.ContainsFunc(c, func(x any) bool { return equal(x, r.Value) })
		}
		return false
	case "in":
		list, _ := r.Value.([]any)
		return slices.ContainsFunc(list, func(x any) bool { return equal(v, x) })
	case "type":
		return kindOf(v) == fmt.Sprint(r.Value)
	}
	return false
}

// apply returns the rewritten record. Objects are copied; the caller's data
// is never mutated.
func (s Step) apply(record any) (any, error) {
	if s.Field == "" {
		return s.rewrite(record, true)
	}
	obj, ok := record.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s on field %q needs an object, got %s", contractx.ErrValidation, s.Op, s.Field, kindOf(record))
	}
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = v
	}

	switch s.Op {
	case "drop":
		delete(out, s.Field)
		return out, nil
	case "rename":
		if v, ok := out[s.Field]; ok {
			delete(out, s.Field)
			out[s.To] = v
		}
		return out, nil
	}

	cur, present := out[s.Field]
	v, err := s.rewrite(cur, present)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", s.Field, err)
	}
	out[s.Field] = v
	return out, nil
}

func (s Step) rewrite(v any, present bool) (any, error) {
	switch s.Op {
	case "set":
		return s.Value, nil
	case "add", "multiply", "round":
		n, ok := contractx.Number(v)
		if !present || !ok {
			return nil, fmt.Errorf("%w: %s needs a number, got %v", contractx.ErrValidation, s.Op, v)
		}
		by, _ := contractx.Number(s.Value)
		switch s.Op {
		case "add":
			return n + by, nil
		case "multiply":
			return n * by, nil
		default:
			scale := math.Pow(10, math.Round(by))
			return math.Round(n*scale) / scale, nil
		}
	case "upper", "lower", "trim":
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs a string, got %v", contractx.ErrValidation, s.Op, v)
		}
		switch s.Op {
		case "upper":
			return strings.ToUpper(str), nil
		case "lower":
			return strings.ToLower(str), nil
		default:
			return strings.TrimSpace(str), nil
		}
	}
	return nil, fmt.Errorf("%w: %s needs a field", contractx.ErrValidation, s.Op)
}

func lookup(record any, field string) (any, bool) {
	if field == "" {
		return record, record != nil
	}
	cur := record
	for _, part := range strings.Split(field, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func equal(a, b any) bool {
	x, okA := contractx.Number(a)
	y, okB := contractx.Number(b)
	if okA && okB {
		return x == y
	}
	return reflect.DeepEqual(a, b) || fmt.Sprint(a) == fmt.Sprint(b)
}

func empty(v any) bool {
	switch c := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(c) == ""
	case []any:
		return len(c) == 0
	case map[string]any:
		return len(c) == 0
	}
	return false
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	}
	if _, ok := contractx.Number(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
