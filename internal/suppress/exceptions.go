package suppress

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/facts"
	"github.com/shamash-tools/shamash/internal/report"
)

// CompiledException is one exception rule with its regexes compiled.
// Exceptions with patterns that fail to compile are dropped here; the
// config validator already reported them.
type CompiledException struct {
	id        string
	suppress  map[string]struct{}
	expiresOn *time.Time
	role      string
	pkgRe     *regexp.Regexp
	classRe   *regexp.Regexp
	memberRe  *regexp.Regexp
	ann       string
	annPrefix string
	glob      string
	ruleID    string
}

// CompileExceptions prepares the configured exceptions for matching.
func CompileExceptions(exceptions []config.ExceptionRule) []CompiledException {
	out := make([]CompiledException, 0, len(exceptions))
	for _, exc := range exceptions {
		c := CompiledException{
			id:        exc.ID,
			role:      exc.Match.Role,
			ann:       exc.Match.Annotation,
			annPrefix: exc.Match.AnnotationPrefix,
			glob:      exc.Match.Glob,
		}
		if len(exc.Suppress) > 0 {
			c.suppress = make(map[string]struct{}, len(exc.Suppress))
			for _, id := range exc.Suppress {
				c.suppress[id] = struct{}{}
			}
		}
		if exc.ExpiresOn != "" {
			t, err := time.Parse("2006-01-02", exc.ExpiresOn)
			if err != nil {
				continue
			}
			c.expiresOn = &t
		}
		bad := false
		for _, p := range []struct {
			expr string
			dst  **regexp.Regexp
		}{
			{exc.Match.PackageRegex, &c.pkgRe},
			{exc.Match.ClassRegex, &c.classRe},
			{exc.Match.MemberRegex, &c.memberRe},
		} {
			if p.expr == "" {
				continue
			}
			re, err := regexp.Compile(p.expr)
			if err != nil {
				bad = true
				break
			}
			*p.dst = re
		}
		if bad {
			continue
		}
		if exc.Match.RuleType != "" && exc.Match.RuleName != "" {
			c.ruleID = exc.Match.RuleType + "/" + exc.Match.RuleName
		}
		out = append(out, c)
	}
	return out
}

// ApplyExceptions filters out findings matching any active exception.
// Returns the kept findings and the number suppressed.
func ApplyExceptions(findings []report.Finding, exceptions []CompiledException, index *facts.Index, basePath string, now time.Time) ([]report.Finding, int) {
	if len(exceptions) == 0 || len(findings) == 0 {
		return findings, 0
	}
	kept := make([]report.Finding, 0, len(findings))
	suppressed := 0
	for _, f := range findings {
		matched := false
		for i := range exceptions {
			if exceptions[i].matches(&f, index, basePath, now) {
				matched = true
				break
			}
		}
		if matched {
			suppressed++
			continue
		}
		kept = append(kept, f)
	}
	return kept, suppressed
}

func (c *CompiledException) matches(f *report.Finding, index *facts.Index, basePath string, now time.Time) bool {
	// An expired exception no longer applies.
	if c.expiresOn != nil && now.After(*c.expiresOn) {
		return false
	}
	if c.suppress != nil {
		if _, ok := c.suppress[f.RuleID]; !ok {
			return false
		}
	}
	if c.ruleID != "" && c.ruleID != f.RuleID {
		return false
	}
	if c.role != "" {
		role, ok := index.RoleOf(f.ClassFqn)
		if !ok || role != c.role {
			return false
		}
	}
	if c.pkgRe != nil && !c.pkgRe.MatchString(packageOf(f.ClassFqn)) {
		return false
	}
	if c.classRe != nil && !c.classRe.MatchString(f.ClassFqn) {
		return false
	}
	if c.memberRe != nil {
		if f.MemberName == "" || !c.memberRe.MatchString(f.MemberName) {
			return false
		}
	}
	if c.ann != "" || c.annPrefix != "" {
		if !c.annotationMatches(f, index) {
			return false
		}
	}
	if c.glob != "" {
		if !c.globMatches(f.FilePath, basePath) {
			return false
		}
	}
	return true
}

// annotationMatches checks the class annotations and, when the finding
// names a member, the resolved member's annotations too.
func (c *CompiledException) annotationMatches(f *report.Finding, index *facts.Index) bool {
	var annotations []string
	if class := index.Class(f.ClassFqn); class != nil {
		annotations = append(annotations, class.Annotations...)
	}
	if f.MemberName != "" {
		for _, m := range index.MethodsOf(f.ClassFqn) {
			if m.Name == f.MemberName {
				annotations = append(annotations, m.Annotations...)
			}
		}
		for _, fd := range index.FieldsOf(f.ClassFqn) {
			if fd.Name == f.MemberName {
				annotations = append(annotations, fd.Annotations...)
			}
		}
	}
	for _, ann := range annotations {
		if c.ann != "" && ann == c.ann {
			return true
		}
		if c.annPrefix != "" && strings.HasPrefix(ann, c.annPrefix) {
			return true
		}
	}
	return false
}

// globMatches tests the finding path in both its absolute and
// project-relative forms, with forward slashes.
func (c *CompiledException) globMatches(path, basePath string) bool {
	if path == "" {
		return false
	}
	candidates := []string{filepath.ToSlash(path)}
	if basePath != "" {
		if !filepath.IsAbs(path) {
			candidates = append(candidates, filepath.ToSlash(filepath.Join(basePath, path)))
		} else if rel, err := filepath.Rel(basePath, path); err == nil && !strings.HasPrefix(rel, "..") {
			candidates = append(candidates, filepath.ToSlash(rel))
		}
	}
	for _, candidate := range candidates {
		if ok, err := filepath.Match(c.glob, candidate); err == nil && ok {
			return true
		}
	}
	return false
}

func packageOf(fqn string) string {
	if i := strings.LastIndex(fqn, "."); i >= 0 {
		return fqn[:i]
	}
	return ""
}
