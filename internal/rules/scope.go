package rules

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/facts"
)

// CompiledScope is a rule's evaluation domain with regexes compiled
// once per rule run. The role allow list of the rule definition is
// folded in so rules only see classes they apply to.
type CompiledScope struct {
	allowRoles      map[string]struct{} // nil means wildcard
	includeRoles    map[string]struct{}
	excludeRoles    map[string]struct{}
	includePackages []*regexp.Regexp
	excludePackages []*regexp.Regexp
	includeGlobs    []string
	excludeGlobs    []string
}

// CompileScope builds the combined role/scope filter for a rule.
func CompileScope(def *config.RuleDef) (*CompiledScope, error) {
	cs := &CompiledScope{}
	if !def.IsWildcard() {
		cs.allowRoles = toSet(def.Roles)
	}
	if def.Scope == nil {
		return cs, nil
	}
	if len(def.Scope.IncludeRoles) > 0 {
		cs.includeRoles = toSet(def.Scope.IncludeRoles)
	}
	if len(def.Scope.ExcludeRoles) > 0 {
		cs.excludeRoles = toSet(def.Scope.ExcludeRoles)
	}
	var err error
	if cs.includePackages, err = compileAll(def.Scope.IncludePackages); err != nil {
		return nil, fmt.Errorf("scope includePackages: %w", err)
	}
	if cs.excludePackages, err = compileAll(def.Scope.ExcludePackages); err != nil {
		return nil, fmt.Errorf("scope excludePackages: %w", err)
	}
	cs.includeGlobs = def.Scope.IncludeGlobs
	cs.excludeGlobs = def.Scope.ExcludeGlobs
	return cs, nil
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

func compileAll(exprs []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid regular expression %q: %w", expr, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// InScope reports whether a class is inside the rule's evaluation
// domain: the role allow list first, then include/exclude filters.
func (cs *CompiledScope) InScope(class *facts.ClassFact, index *facts.Index) bool {
	role, hasRole := index.RoleOf(class.FqName)

	if cs.allowRoles != nil {
		if !hasRole {
			return false
		}
		if _, ok := cs.allowRoles[role]; !ok {
			return false
		}
	}
	if cs.includeRoles != nil {
		if !hasRole {
			return false
		}
		if _, ok := cs.includeRoles[role]; !ok {
			return false
		}
	}
	if cs.excludeRoles != nil && hasRole {
		if _, ok := cs.excludeRoles[role]; ok {
			return false
		}
	}

	for _, re := range cs.excludePackages {
		if re.MatchString(class.Package) {
			return false
		}
	}
	if len(cs.includePackages) > 0 {
		matched := false
		for _, re := range cs.includePackages {
			if re.MatchString(class.Package) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	path := filepath.ToSlash(class.Location.SourceFile)
	for _, g := range cs.excludeGlobs {
		if globMatch(g, path) {
			return false
		}
	}
	if len(cs.includeGlobs) > 0 {
		matched := false
		for _, g := range cs.includeGlobs {
			if globMatch(g, path) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// ScopedClasses returns the classes the rule applies to, in stable
// fq-name order (the index is normalized before evaluation).
func (rctx *Context) ScopedClasses() []*facts.ClassFact {
	var out []*facts.ClassFact
	for i := range rctx.Index.Classes {
		class := &rctx.Index.Classes[i]
		if rctx.Scope.InScope(class, rctx.Index) {
			out = append(out, class)
		}
	}
	return out
}

// globMatch matches a forward-slashed path against a glob. A pattern
// with a trailing "**" suffix matches any subtree under its prefix,
// which covers the common "dir/**" configuration shape without pulling
// in a full double-star matcher.
func globMatch(pattern, path string) bool {
	if path == "" {
		return false
	}
	if ok, err := filepath.Match(pattern, path); err == nil && ok {
		return true
	}
	const doubleStar = "/**"
	if len(pattern) > len(doubleStar) && pattern[len(pattern)-len(doubleStar):] == doubleStar {
		prefix := pattern[:len(pattern)-len(doubleStar)]
		if len(path) > len(prefix) && path[:len(prefix)] == prefix && path[len(prefix)] == '/' {
			return true
		}
	}
	return false
}
