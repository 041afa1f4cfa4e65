package rules

import (
	"fmt"
	"regexp"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/report"
)

func init() {
	Register(&forbiddenPackagesRule{})
	Register(&allowedPackagesRule{})
	config.RegisterRuleSpec(config.RuleSpec{
		Type: "arch.forbiddenPackages",
		Params: []config.ParamSpec{
			{Name: "patterns", Kind: config.ParamRegexList, Required: true},
		},
	})
	config.RegisterRuleSpec(config.RuleSpec{
		Type: "arch.allowedPackages",
		Params: []config.ParamSpec{
			{Name: "patterns", Kind: config.ParamRegexList, Required: true},
		},
	})
}

type forbiddenPackagesRule struct{}

func (r *forbiddenPackagesRule) Type() string { return "arch.forbiddenPackages" }

// Evaluate flags every in-scope class whose package matches one of the
// configured patterns. The first matching pattern wins, in declared
// list order, so the reported pattern is deterministic.
func (r *forbiddenPackagesRule) Evaluate(rctx *Context) []report.Finding {
	patterns, ok := compiledPatterns(rctx.Def.Params)
	if !ok {
		return nil
	}
	var findings []report.Finding
	for _, class := range rctx.ScopedClasses() {
		for _, p := range patterns {
			if !p.re.MatchString(class.Package) {
				continue
			}
			findings = append(findings, report.Finding{
				Message:  fmt.Sprintf("class %s lives in forbidden package %s (pattern %q)", class.FqName, class.Package, p.raw),
				FilePath: class.Location.SourceFile,
				ClassFqn: class.FqName,
				Data: map[string]string{
					"package": class.Package,
					"pattern": p.raw,
				},
			})
			break
		}
	}
	return findings
}

type allowedPackagesRule struct{}

func (r *allowedPackagesRule) Type() string { return "arch.allowedPackages" }

// Evaluate flags every in-scope class whose package matches none of
// the configured allow patterns.
func (r *allowedPackagesRule) Evaluate(rctx *Context) []report.Finding {
	patterns, ok := compiledPatterns(rctx.Def.Params)
	if !ok {
		return nil
	}
	var findings []report.Finding
	for _, class := range rctx.ScopedClasses() {
		allowed := false
		for _, p := range patterns {
			if p.re.MatchString(class.Package) {
				allowed = true
				break
			}
		}
		if allowed {
			continue
		}
		findings = append(findings, report.Finding{
			Message:  fmt.Sprintf("class %s lives in package %s which matches no allowed pattern", class.FqName, class.Package),
			FilePath: class.Location.SourceFile,
			ClassFqn: class.FqName,
			Data: map[string]string{
				"package": class.Package,
			},
		})
	}
	return findings
}

type compiledPattern struct {
	raw string
	re  *regexp.Regexp
}

func compiledPatterns(params map[string]interface{}) ([]compiledPattern, bool) {
	raw, ok := stringListParam(params, "patterns")
	if !ok || len(raw) == 0 {
		return nil, false
	}
	out := make([]compiledPattern, 0, len(raw))
	for _, expr := range raw {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, false
		}
		out = append(out, compiledPattern{raw: expr, re: re})
	}
	return out, true
}
