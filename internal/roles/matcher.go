package roles

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/facts"
)

// CompiledMatcher is a matcher expression tree with its regexes
// compiled, ready for pure boolean evaluation against class facts.
type CompiledMatcher struct {
	anyOf            []*CompiledMatcher
	allOf            []*CompiledMatcher
	not              *CompiledMatcher
	packageRegex     *regexp.Regexp
	packageSegment   string
	classNameSuffix  string
	annotation       string
	annotationPrefix string
}

// CompileMatcher compiles a config matcher tree. The config validator
// is the authority on well-formedness; compilation still fails loudly
// on regexes that do not compile.
func CompileMatcher(m *config.Matcher) (*CompiledMatcher, error) {
	if m == nil {
		return nil, fmt.Errorf("matcher is nil")
	}
	c := &CompiledMatcher{
		packageSegment:   m.PackageContainsSegment,
		classNameSuffix:  m.ClassNameEndsWith,
		annotation:       m.Annotation,
		annotationPrefix: m.AnnotationPrefix,
	}
	if m.PackageRegex != "" {
		re, err := regexp.Compile(m.PackageRegex)
		if err != nil {
			return nil, fmt.Errorf("invalid package regex %q: %w", m.PackageRegex, err)
		}
		c.packageRegex = re
	}
	for _, child := range m.AnyOf {
		cc, err := CompileMatcher(child)
		if err != nil {
			return nil, err
		}
		c.anyOf = append(c.anyOf, cc)
	}
	for _, child := range m.AllOf {
		cc, err := CompileMatcher(child)
		if err != nil {
			return nil, err
		}
		c.allOf = append(c.allOf, cc)
	}
	if m.Not != nil {
		cc, err := CompileMatcher(m.Not)
		if err != nil {
			return nil, err
		}
		c.not = cc
	}
	return c, nil
}

// Matches evaluates the expression against one class.
func (c *CompiledMatcher) Matches(class *facts.ClassFact) bool {
	switch {
	case len(c.anyOf) > 0:
		for _, child := range c.anyOf {
			if child.Matches(class) {
				return true
			}
		}
		return false
	case len(c.allOf) > 0:
		for _, child := range c.allOf {
			if !child.Matches(class) {
				return false
			}
		}
		return true
	case c.not != nil:
		return !c.not.Matches(class)
	case c.packageRegex != nil:
		return c.packageRegex.MatchString(class.Package)
	case c.packageSegment != "":
		for _, seg := range strings.Split(class.Package, ".") {
			if seg == c.packageSegment {
				return true
			}
		}
		return false
	case c.classNameSuffix != "":
		return strings.HasSuffix(class.SimpleName, c.classNameSuffix)
	case c.annotation != "":
		for _, ann := range class.Annotations {
			if ann == c.annotation {
				return true
			}
		}
		return false
	case c.annotationPrefix != "":
		for _, ann := range class.Annotations {
			if strings.HasPrefix(ann, c.annotationPrefix) {
				return true
			}
		}
		return false
	}
	return false
}
