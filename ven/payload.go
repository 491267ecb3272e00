package ven

import "time"

func timeFromPayload(p map[string]any, key string) time.Time {
	if p == nil {
		return time.Time{}
	}
	if t, ok := p[key].(time.Time); ok {
		return t
	}
	return time.Time{}
}

func durationFromPayload(p map[string]any, key string) time.Duration {
	return time.Duration(payloadInt(p, key, 0)) * time.Second
}

func payloadString(p map[string]any, key string) string {
	if p == nil {
		return ""
	}
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

func payloadInt(p map[string]any, key string, def int) int {
	if p == nil {
		return def
	}
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

func payloadBool(p map[string]any, key string, def bool) bool {
	if p == nil {
		return def
	}
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

func payloadSlice(p map[string]any, key string) []map[string]any {
	if p == nil {
		return nil
	}
	raw, ok := p[key].([]map[string]any)
	if ok {
		return raw
	}
	if anySlice, ok := p[key].([]any); ok {
		out := make([]map[string]any, 0, len(anySlice))
		for _, v := range anySlice {
			if m, ok := v.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}
