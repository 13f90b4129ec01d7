package mbql

import (
	"encoding/json"
	"math"
	"strconv"
)

// normalize converts a decoded or hand-built MBQL value into its canonical
// form: arrays become []any, objects map[string]any, integers int64 and other
// numbers float64. Containers are always copied.
func normalize(v any) any {
	switch t := v.(type) {
	case nil, bool, string:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case float32:
		return normalizeFloat(float64(t))
	case float64:
		return normalizeFloat(t)
	case json.Number:
		if i, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return i
		}
		f, _ := t.Float64()
		return normalizeFloat(f)
	case Clause:
		return normalizeSlice(t)
	case []any:
		return normalizeSlice(t)
	case Join:
		return normalizeMap(t)
	case map[string]any:
		return normalizeMap(t)
	default:
		return t
	}
}

// normalizeFloat keeps whole numbers as int64 so that values read from JSON
// and values built in Go compare equal.
func normalizeFloat(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

func normalizeSlice(s []any) []any {
	if s == nil {
		return nil
	}
	out := make([]any, len(s))
	for i, e := range s {
		out[i] = normalize(e)
	}
	return out
}

func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, e := range m {
		out[k] = normalize(e)
	}
	return out
}

func asInt(v any) (int64, bool) {
	switch t := normalize(v).(type) {
	case int64:
		return t, true
	default:
		return 0, false
	}
}
