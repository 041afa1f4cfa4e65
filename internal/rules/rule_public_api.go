package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/facts"
	"github.com/shamash-tools/shamash/internal/report"
)

func init() {
	Register(&maxPublicSurfaceRule{})
	config.RegisterRuleSpec(config.RuleSpec{
		Type: "api.maxPublicSurface",
		Params: []config.ParamSpec{
			{Name: "max", Kind: config.ParamInt, Required: true, Min: config.MinValue(1)},
			{Name: "examples", Kind: config.ParamInt, Min: config.MinValue(1)},
		},
	})
}

type maxPublicSurfaceRule struct{}

func (r *maxPublicSurfaceRule) Type() string { return "api.maxPublicSurface" }

// Evaluate counts public top-level types in scope and emits a single
// finding when the count exceeds the limit, anchored at the first
// public class by fq-name.
func (r *maxPublicSurfaceRule) Evaluate(rctx *Context) []report.Finding {
	max, ok := intParam(rctx.Def.Params, "max", 0)
	if !ok || max <= 0 {
		return nil
	}
	exampleCap, ok := intParam(rctx.Def.Params, "examples", defaultExamples)
	if !ok || exampleCap <= 0 {
		return nil
	}

	var public []string
	var anchor *facts.ClassFact
	for _, class := range rctx.ScopedClasses() {
		if class.Visibility != facts.VisibilityPublic {
			continue
		}
		// Nested types carry a $ in their fq-name; only top-level
		// types count toward the API surface.
		if strings.Contains(class.SimpleName, "$") {
			continue
		}
		if anchor == nil {
			anchor = class
		}
		public = append(public, class.FqName)
	}
	if len(public) <= max {
		return nil
	}

	examples, truncated := exampleList(public, exampleCap)
	data := map[string]string{
		"count":    strconv.Itoa(len(public)),
		"max":      strconv.Itoa(max),
		"examples": strings.Join(examples, ", "),
	}
	if truncated {
		data["examplesTruncated"] = "true"
	}
	f := report.Finding{
		Message: fmt.Sprintf("public API surface is %d top-level types, limit is %d", len(public), max),
		Data:    data,
	}
	if anchor != nil {
		f.FilePath = anchor.Location.SourceFile
		f.ClassFqn = anchor.FqName
	}
	return []report.Finding{f}
}
