package rules

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/facts"
	"github.com/shamash-tools/shamash/internal/report"
)

const defaultExamples = 10

func init() {
	Register(&maxFieldsRule{})
	Register(&maxMethodsRule{})
	config.RegisterRuleSpec(config.RuleSpec{
		Type: "metrics.maxFieldsPerClass",
		Params: []config.ParamSpec{
			{Name: "max", Kind: config.ParamInt, Required: true, Min: config.MinValue(1)},
			{Name: "examples", Kind: config.ParamInt, Min: config.MinValue(1)},
		},
	})
	config.RegisterRuleSpec(config.RuleSpec{
		Type: "metrics.maxMethodsPerClass",
		Params: []config.ParamSpec{
			{Name: "max", Kind: config.ParamInt, Required: true, Min: config.MinValue(1)},
			{Name: "examples", Kind: config.ParamInt, Min: config.MinValue(1)},
		},
	})
}

type maxFieldsRule struct{}

func (r *maxFieldsRule) Type() string { return "metrics.maxFieldsPerClass" }

func (r *maxFieldsRule) Evaluate(rctx *Context) []report.Finding {
	return evaluateMemberCount(rctx, "fields", func(index *facts.Index, fqn string) []string {
		fields := index.FieldsOf(fqn)
		names := make([]string, 0, len(fields))
		for _, f := range fields {
			names = append(names, f.Name)
		}
		return names
	})
}

type maxMethodsRule struct{}

func (r *maxMethodsRule) Type() string { return "metrics.maxMethodsPerClass" }

func (r *maxMethodsRule) Evaluate(rctx *Context) []report.Finding {
	return evaluateMemberCount(rctx, "methods", func(index *facts.Index, fqn string) []string {
		methods := index.MethodsOf(fqn)
		names := make([]string, 0, len(methods))
		for _, m := range methods {
			if m.Name == "<init>" || m.Name == "<clinit>" {
				continue
			}
			names = append(names, m.Name)
		}
		return names
	})
}

func evaluateMemberCount(rctx *Context, kind string, membersOf func(*facts.Index, string) []string) []report.Finding {
	max, ok := intParam(rctx.Def.Params, "max", 0)
	if !ok || max <= 0 {
		return nil
	}
	exampleCap, ok := intParam(rctx.Def.Params, "examples", defaultExamples)
	if !ok || exampleCap <= 0 {
		return nil
	}

	var findings []report.Finding
	for _, class := range rctx.ScopedClasses() {
		members := membersOf(rctx.Index, class.FqName)
		if len(members) <= max {
			continue
		}
		examples, truncated := exampleList(members, exampleCap)
		data := map[string]string{
			"count":    strconv.Itoa(len(members)),
			"max":      strconv.Itoa(max),
			"examples": strings.Join(examples, ", "),
		}
		if truncated {
			data["examplesTruncated"] = "true"
		}
		findings = append(findings, report.Finding{
			Message:  fmt.Sprintf("class %s declares %d %s, limit is %d", class.FqName, len(members), kind, max),
			FilePath: class.Location.SourceFile,
			ClassFqn: class.FqName,
			Data:     data,
		})
	}
	return findings
}

// exampleList returns a sorted, deduplicated member list capped at
// limit, and whether the cap dropped anything. Truncation is never
// silent: callers surface the flag in finding data.
func exampleList(members []string, limit int) ([]string, bool) {
	seen := make(map[string]struct{}, len(members))
	unique := make([]string, 0, len(members))
	for _, m := range members {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		unique = append(unique, m)
	}
	sort.Strings(unique)
	if len(unique) > limit {
		return unique[:limit], true
	}
	return unique, false
}
