package config

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// ParamKind is the declared type of a rule parameter.
type ParamKind int

const (
	ParamInt ParamKind = iota
	ParamFloat
	ParamBool
	ParamString
	ParamStringList
	ParamRegexList
	ParamStringMap
)

// ParamSpec declares one allowed parameter key of a rule type.
type ParamSpec struct {
	Name     string
	Kind     ParamKind
	Required bool
	// Min is the inclusive lower bound for int/float parameters.
	Min *float64
}

// RuleSpec is the validation contract of one rule type. The rule
// engine registers a spec per rule so the validator can enforce an
// explicit allow-list of typed parameter keys.
type RuleSpec struct {
	Type   string
	Params []ParamSpec
}

var (
	ruleSpecMu sync.RWMutex
	ruleSpecs  = map[string]RuleSpec{}
)

// RegisterRuleSpec makes a rule type known to the validator.
func RegisterRuleSpec(spec RuleSpec) {
	ruleSpecMu.Lock()
	defer ruleSpecMu.Unlock()
	ruleSpecs[spec.Type] = spec
}

// LookupRuleSpec returns the registered spec for a rule type.
func LookupRuleSpec(ruleType string) (RuleSpec, bool) {
	ruleSpecMu.RLock()
	defer ruleSpecMu.RUnlock()
	spec, ok := ruleSpecs[ruleType]
	return spec, ok
}

// RegisteredRuleTypes lists all known rule types in sorted order.
func RegisteredRuleTypes() []string {
	ruleSpecMu.RLock()
	defer ruleSpecMu.RUnlock()
	types := make([]string, 0, len(ruleSpecs))
	for t := range ruleSpecs {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// MinValue is a convenience for ParamSpec bounds.
func MinValue(v float64) *float64 { return &v }

// validateParams checks the params of one rule definition against its
// spec: unknown keys are errors, required keys must be present, and
// every value must match its declared kind.
func validateParams(spec RuleSpec, def *RuleDef, path string) []ValidationError {
	var errs []ValidationError

	allowed := make(map[string]ParamSpec, len(spec.Params))
	for _, p := range spec.Params {
		allowed[p.Name] = p
	}

	keys := make([]string, 0, len(def.Params))
	for k := range def.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		p, ok := allowed[key]
		if !ok {
			errs = append(errs, errorAt(fmt.Sprintf("%s.params.%s", path, key),
				fmt.Sprintf("unknown parameter %q for rule type %q", key, spec.Type)))
			continue
		}
		errs = append(errs, checkParamValue(p, def.Params[key], fmt.Sprintf("%s.params.%s", path, key))...)
	}

	for _, p := range spec.Params {
		if !p.Required {
			continue
		}
		if _, ok := def.Params[p.Name]; !ok {
			errs = append(errs, errorAt(fmt.Sprintf("%s.params.%s", path, p.Name),
				fmt.Sprintf("required parameter %q is missing", p.Name)))
		}
	}
	return errs
}

func checkParamValue(p ParamSpec, value interface{}, path string) []ValidationError {
	var errs []ValidationError
	switch p.Kind {
	case ParamInt:
		n, ok := asInt(value)
		if !ok {
			errs = append(errs, errorAt(path, fmt.Sprintf("expected an integer, got %T", value)))
		} else if p.Min != nil && float64(n) < *p.Min {
			errs = append(errs, errorAt(path, fmt.Sprintf("value %d is below the minimum %v", n, *p.Min)))
		}
	case ParamFloat:
		f, ok := asFloat(value)
		if !ok {
			errs = append(errs, errorAt(path, fmt.Sprintf("expected a number, got %T", value)))
		} else if p.Min != nil && f < *p.Min {
			errs = append(errs, errorAt(path, fmt.Sprintf("value %v is below the minimum %v", f, *p.Min)))
		}
	case ParamBool:
		if _, ok := value.(bool); !ok {
			errs = append(errs, errorAt(path, fmt.Sprintf("expected a boolean, got %T", value)))
		}
	case ParamString:
		s, ok := value.(string)
		if !ok || s == "" {
			errs = append(errs, errorAt(path, "expected a non-blank string"))
		}
	case ParamStringList:
		items, ok := asStringList(value)
		if !ok {
			errs = append(errs, errorAt(path, "expected a list of strings"))
			break
		}
		for i, s := range items {
			if s == "" {
				errs = append(errs, errorAt(fmt.Sprintf("%s[%d]", path, i), "blank entry"))
			}
		}
	case ParamRegexList:
		items, ok := asStringList(value)
		if !ok {
			errs = append(errs, errorAt(path, "expected a list of regular expressions"))
			break
		}
		for i, s := range items {
			if _, err := regexp.Compile(s); err != nil {
				errs = append(errs, errorAt(fmt.Sprintf("%s[%d]", path, i),
					fmt.Sprintf("invalid regular expression %q: %v", s, err)))
			}
		}
	case ParamStringMap:
		if _, ok := asStringMap(value); !ok {
			errs = append(errs, errorAt(path, "expected a map of strings"))
		}
	}
	return errs
}

// asInt accepts the integer shapes yaml.v2 produces.
func asInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func asStringList(value interface{}) ([]string, bool) {
	raw, ok := value.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// asStringMap accepts both map shapes yaml.v2 can decode into.
func asStringMap(value interface{}) (map[string]string, bool) {
	out := map[string]string{}
	switch m := value.(type) {
	case map[interface{}]interface{}:
		for k, v := range m {
			ks, ok1 := k.(string)
			vs, ok2 := v.(string)
			if !ok1 || !ok2 {
				return nil, false
			}
			out[ks] = vs
		}
	case map[string]interface{}:
		for k, v := range m {
			vs, ok := v.(string)
			if !ok {
				return nil, false
			}
			out[k] = vs
		}
	default:
		return nil, false
	}
	return out, true
}
