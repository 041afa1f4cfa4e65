package rules

// Typed accessors over the untyped rule param map. They fail softly
// (ok=false) on type mismatch: the config validator already reported
// the problem, so rules just skip evaluation.

func intParam(params map[string]interface{}, key string, fallback int) (int, bool) {
	raw, present := params[key]
	if !present {
		return fallback, true
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}

func boolParam(params map[string]interface{}, key string, fallback bool) (bool, bool) {
	raw, present := params[key]
	if !present {
		return fallback, true
	}
	v, ok := raw.(bool)
	if !ok {
		return false, false
	}
	return v, true
}

func stringParam(params map[string]interface{}, key string) (string, bool) {
	raw, present := params[key]
	if !present {
		return "", false
	}
	v, ok := raw.(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func stringListParam(params map[string]interface{}, key string) ([]string, bool) {
	raw, present := params[key]
	if !present {
		return nil, false
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
