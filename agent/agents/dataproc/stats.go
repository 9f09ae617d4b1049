package dataproc

import (
	"math"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

// Stats reports count and type, plus min, max, sum and avg over the numeric
// values: list items themselves, or field of each object when field is set.
func Stats(data any, field string) map[string]any {
	items, isList := data.([]any)
	if !isList {
		out := map[string]any{"count": count(data), "type": kindOf(data)}
		if n, ok := contractx.Number(data); ok && kindOf(data) == "number" {
			out["min"], out["max"], out["sum"], out["avg"] = n, n, n, n
		}
		return out
	}

	out := map[string]any{"count": len(items), "type": "list"}
	var nums []float64
	for _, item := range items {
		v, ok := lookup(item, field)
		if !ok {
			continue
		}
		if _, isStr := v.(string); isStr && field == "" {
			continue
		}
		if n, ok := contractx.Number(v); ok {
			nums = append(nums, n)
		}
	}
	if len(nums) == 0 {
		return out
	}

	lo, hi, sum := math.Inf(1), math.Inf(-1), 0.0
	for _, n := range nums {
		lo, hi = min(lo, n), max(hi, n)
		sum += n
	}
	out["min"] = lo
	out["max"] = hi
	out["sum"] = sum
	out["avg"] = sum / float64(len(nums))
	if field != "" {
		out["field"] = field
	}
	return out
}
