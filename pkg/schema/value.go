package schema

import (
	"fmt"
	"math"
)

// NormalizeValue converts decoded YAML or Go values into the shapes
// encoding/json produces: float64 numbers, map[string]any objects and []any
// arrays.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case nil, bool, string, float64:
		return val
	case int:
		return float64(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = NormalizeValue(item)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = NormalizeValue(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = NormalizeValue(item)
		}
		return out
	default:
		return val
	}
}

// NormalizeMap normalizes every value of a parameter map.
func NormalizeMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	return NormalizeValue(in).(map[string]any)
}

// IsIntegral reports whether f has no fractional part and fits in an int64.
func IsIntegral(f float64) bool {
	return f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<53
}
