package llm

import (
	"fmt"
	"strconv"
	"strings"
)

// String reads key as a trimmed string. Numbers and booleans are formatted;
// anything else yields "".
func String(obj map[string]interface{}, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// StringList reads key as a list of non-empty strings. A bare string becomes a
// one-element list.
func StringList(obj map[string]interface{}, key string) []string {
	out := []string{}
	switch v := obj[key].(type) {
	case []interface{}:
		for _, item := range v {
			var s string
			switch iv := item.(type) {
			case string:
				s = strings.TrimSpace(iv)
			case float64, bool:
				s = fmt.Sprint(iv)
			}
			if s != "" {
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

// Float reads key as a number, accepting numeric strings such as "85" or "85%".
func Float(obj map[string]interface{}, key string) (float64, bool) {
	switch v := obj[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "%"), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Objects reads key as a list of JSON objects, skipping other elements.
func Objects(obj map[string]interface{}, key string) []map[string]interface{} {
	list, ok := obj[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}
