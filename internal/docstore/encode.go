package docstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is the canonical layout of stored time values. Fixed width keeps
// lexicographic and chronological order identical.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

func encode(fields Fields) ([]byte, error) {
	data, err := json.Marshal(normalize(fields))
	if err != nil {
		return nil, fmt.Errorf("docstore: encode: %w", err)
	}
	return data, nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(TimeLayout)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC().Format(TimeLayout)
	case Fields:
		return normalizeMap(t)
	case map[string]any:
		return normalizeMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, item := range m {
		out[k] = normalize(item)
	}
	return out
}
