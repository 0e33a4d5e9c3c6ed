package tools

import (
	"math"
	"strconv"
	"strings"
)

// Argument coercion helpers: MCP arguments arrive as decoded JSON, so
// numbers are float64 and arrays are []any.

func asInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func asInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func asBool(raw any) (bool, bool) {
	v, ok := raw.(bool)
	return v, ok
}

func asStringSlice(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func asInt64Slice(raw any) ([]int64, bool) {
	items, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]int64, 0, len(items))
	for _, item := range items {
		n, ok := asInt64(item)
		if !ok {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}
