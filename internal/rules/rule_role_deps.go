package rules

import (
	"fmt"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/report"
)

func init() {
	Register(&forbiddenRoleDepsRule{})
	Register(&allowedRoleDepsRule{})
	config.RegisterRuleSpec(config.RuleSpec{
		Type: "arch.forbiddenRoleDependencies",
		Params: []config.ParamSpec{
			{Name: "from", Kind: config.ParamString, Required: true},
			{Name: "to", Kind: config.ParamStringList, Required: true},
		},
	})
	config.RegisterRuleSpec(config.RuleSpec{
		Type: "arch.allowedRoleDependencies",
		Params: []config.ParamSpec{
			{Name: "from", Kind: config.ParamString, Required: true},
			{Name: "to", Kind: config.ParamStringList, Required: true},
		},
	})
}

type forbiddenRoleDepsRule struct{}

func (r *forbiddenRoleDepsRule) Type() string { return "arch.forbiddenRoleDependencies" }

// Evaluate flags dependency edges from classes of role `from` to
// classes of any role listed in `to`.
func (r *forbiddenRoleDepsRule) Evaluate(rctx *Context) []report.Finding {
	from, to, ok := roleDepParams(rctx.Def.Params)
	if !ok {
		return nil
	}
	forbidden := toSet(to)

	var findings []report.Finding
	for _, class := range rctx.ScopedClasses() {
		role, hasRole := rctx.Index.RoleOf(class.FqName)
		if !hasRole || role != from {
			continue
		}
		for _, edge := range rctx.Index.OutEdges(class.FqName) {
			targetRole, hasTarget := rctx.Index.RoleOf(edge.To)
			if !hasTarget {
				continue
			}
			if _, bad := forbidden[targetRole]; !bad {
				continue
			}
			findings = append(findings, report.Finding{
				Message:  fmt.Sprintf("%s (role %s) must not depend on %s (role %s)", class.FqName, role, edge.To, targetRole),
				FilePath: pickPath(edge.FilePath, class.Location.SourceFile),
				ClassFqn: class.FqName,
				Data: map[string]string{
					"fromRole": role,
					"toRole":   targetRole,
					"target":   edge.To,
					"kind":     string(edge.Kind),
				},
			})
		}
	}
	return findings
}

type allowedRoleDepsRule struct{}

func (r *allowedRoleDepsRule) Type() string { return "arch.allowedRoleDependencies" }

// Evaluate flags dependency edges from classes of role `from` to
// role-assigned classes whose role is neither `from` itself nor in the
// `to` allow list. Edges to unassigned classes are not judged.
func (r *allowedRoleDepsRule) Evaluate(rctx *Context) []report.Finding {
	from, to, ok := roleDepParams(rctx.Def.Params)
	if !ok {
		return nil
	}
	allowed := toSet(to)
	allowed[from] = struct{}{}

	var findings []report.Finding
	for _, class := range rctx.ScopedClasses() {
		role, hasRole := rctx.Index.RoleOf(class.FqName)
		if !hasRole || role != from {
			continue
		}
		for _, edge := range rctx.Index.OutEdges(class.FqName) {
			targetRole, hasTarget := rctx.Index.RoleOf(edge.To)
			if !hasTarget {
				continue
			}
			if _, ok := allowed[targetRole]; ok {
				continue
			}
			findings = append(findings, report.Finding{
				Message:  fmt.Sprintf("%s (role %s) may not depend on role %s (%s)", class.FqName, role, targetRole, edge.To),
				FilePath: pickPath(edge.FilePath, class.Location.SourceFile),
				ClassFqn: class.FqName,
				Data: map[string]string{
					"fromRole": role,
					"toRole":   targetRole,
					"target":   edge.To,
					"kind":     string(edge.Kind),
				},
			})
		}
	}
	return findings
}

func roleDepParams(params map[string]interface{}) (string, []string, bool) {
	from, ok := stringParam(params, "from")
	if !ok {
		return "", nil, false
	}
	to, ok := stringListParam(params, "to")
	if !ok || len(to) == 0 {
		return "", nil, false
	}
	return from, to, true
}

func pickPath(paths ...string) string {
	for _, p := range paths {
		if p != "" {
			return p
		}
	}
	return ""
}
