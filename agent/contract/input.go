package contract

import (
	"encoding/json"
	"strconv"
	"strings"
)

func (in Input) String(key string) string {
	switch v := in[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	case json.Number:
		return v.String()
	default:
		if f, ok := toFloat(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return ""
	}
}

func (in Input) StringOr(key, def string) string {
	if s := in.String(key); s != "" {
		return s
	}
	return def
}

// Float reads a number that may have arrived as any JSON or Go numeric type
// or as a numeric string.
func (in Input) Float(key string) (float64, bool) {
	return toFloat(in[key])
}

func (in Input) IntOr(key string, def int) int {
	if f, ok := in.Float(key); ok {
		return int(f)
	}
	return def
}

func (in Input) Map(key string) map[string]any {
	switch v := in[key].(type) {
	case map[string]any:
		return v
	case Output:
		return v
	case Input:
		return v
	default:
		return nil
	}
}

func (in Input) Slice(key string) []any {
	switch v := in[key].(type) {
	case []any:
		return v
	case []map[string]any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	case []float64:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	case []int:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	case []string:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	default:
		return nil
	}
}

// Number is the exported form of the numeric coercion used by Input.
func Number(v any) (float64, bool) {
	return toFloat(v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
