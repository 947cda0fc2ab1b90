package fallback

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// SafeString returns a trimmed string or the provided fallback.
func SafeString(value interface{}, fallback string) string {
	if s, ok := value.(string); ok {
		s = strings.TrimSpace(s)
		if s != "" {
			return s
		}
	}
	return fallback
}

// SafeInt reads a positive whole number from a loose JSON value (number,
// json.Number or numeric string). Fractions are truncated; anything below 1 or
// unparsable yields the fallback.
func SafeInt(value interface{}, fallback int) int {
	n, ok := number(value)
	if !ok || !(n >= 1) || n > math.MaxInt32 {
		return fallback
	}
	return int(n)
}

func number(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// FirstString returns the first non-empty string among the given keys.
func FirstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s := SafeString(m[k], ""); s != "" {
			return s
		}
	}
	return ""
}

// SafeStringList keeps the non-empty strings of a JSON array; a single string becomes a one-item list.
func SafeStringList(value interface{}) []string {
	out := []string{}
	switch v := value.(type) {
	case []interface{}:
		for _, item := range v {
			if s := SafeString(item, ""); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range v {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}
