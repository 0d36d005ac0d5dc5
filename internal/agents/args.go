package agents

import "strings"

// Argument extraction helpers for tool handlers. Tool arguments arrive as
// map[string]any decoded from the service's JSON, so every access needs a
// type assertion with a sane zero fallback.

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func floatArg(args map[string]any, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// extractJSONObject returns the outermost {...} region of s, or "" when
// no object is present. Replies wrap their JSON payload in prose, so the
// scan is greedy from the first opening brace to the last closing one.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// scopedName prefixes an agent's base name with the deployment scope so
// multiple installations can share one remote account without colliding.
func scopedName(scope, base string) string {
	if scope == "" {
		return base
	}
	return scope + "-" + base
}
