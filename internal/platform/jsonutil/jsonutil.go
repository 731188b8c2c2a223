// Package jsonutil holds the tolerant-decode helpers the Content Enricher
// uses to pull typed values out of an LLM's structured-output map without
// failing the whole enrichment run over one malformed field. Grounded on
// the teacher's course_build/utils.go coercion helpers (toStringSlice,
// intFromAny, clampString).
package jsonutil

import (
	"strings"
)

// ObjectList tolerantly extracts a []map[string]any from a decoded JSON
// value, skipping (not failing on) any element that is not itself an
// object. A missing or wrong-typed key yields an empty slice rather than
// an error.
func ObjectList(v any) []map[string]any {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// AsString coerces a decoded JSON value to a trimmed string, returning ""
// for anything that isn't a string.
func AsString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// AsFloat64 coerces a decoded JSON value (always float64 for numbers
// under encoding/json) to a float64, defaulting to 0 for anything else.
func AsFloat64(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	default:
		return 0
	}
}

// GetString looks up key in m and coerces it with AsString.
func GetString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	return AsString(m[key])
}

// GetFloat64 looks up key in m and coerces it with AsFloat64.
func GetFloat64(m map[string]any, key string) float64 {
	if m == nil {
		return 0
	}
	return AsFloat64(m[key])
}
