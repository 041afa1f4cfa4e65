package suppress

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shamash-tools/shamash/internal/report"
)

// Inline suppression directives:
//
//	// shamash:ignore <ruleId>          on the first non-blank line of a
//	// shamash:ignore all               file suppresses file-wide
//
// The same directive on, or within two lines above, a finding's anchor
// line suppresses that finding only. @Suppress("shamash:<ruleId>") and
// @SuppressWarnings("shamash:<ruleId>") above a declaration suppress
// findings anchored at or below it.
const directiveMarker = "shamash:ignore"

var suppressAnnotationRe = regexp.MustCompile(`@Suppress(?:Warnings)?\(\s*"shamash:([^"]+)"\s*\)`)

// lineWindow is how many lines above an anchor a line directive still
// applies.
const lineWindow = 2

type fileDirectives struct {
	fileWide map[string]struct{} // rule ids, "all" for everything
	byLine   map[int][]string    // 1-based line -> rule ids / "all"
	// annotations: suppressed rule id -> first line it applies from
	annotations []annotationDirective
	lines       []string
}

type annotationDirective struct {
	ruleID   string
	fromLine int // 1-based line of the annotated declaration
}

// InlineScanner applies inline suppression directives. File contents
// are scanned once per file and cached for the scan's lifetime.
type InlineScanner struct {
	basePath string
	cache    map[string]*fileDirectives
}

// NewInlineScanner creates a scanner resolving relative finding paths
// against basePath.
func NewInlineScanner(basePath string) *InlineScanner {
	return &InlineScanner{
		basePath: basePath,
		cache:    map[string]*fileDirectives{},
	}
}

// Apply filters findings suppressed by inline directives. Returns the
// kept findings and the number suppressed. Findings without a file
// path, or whose file cannot be read, are always kept.
func (s *InlineScanner) Apply(findings []report.Finding) ([]report.Finding, int) {
	kept := make([]report.Finding, 0, len(findings))
	suppressed := 0
	for _, f := range findings {
		if s.isSuppressed(&f) {
			suppressed++
			continue
		}
		kept = append(kept, f)
	}
	return kept, suppressed
}

func (s *InlineScanner) isSuppressed(f *report.Finding) bool {
	if f.FilePath == "" {
		return false
	}
	d := s.directivesFor(f.FilePath)
	if d == nil {
		return false
	}
	if d.applies(d.fileWide, f.RuleID) {
		return true
	}

	anchor := d.anchorLine(f)
	if anchor == 0 {
		// No resolvable anchor: line and annotation suppression cannot
		// apply, only the file-wide directive checked above can.
		return false
	}
	for line := anchor - lineWindow; line <= anchor; line++ {
		for _, id := range d.byLine[line] {
			if id == "all" || id == f.RuleID {
				return true
			}
		}
	}
	for _, ann := range d.annotations {
		if anchor >= ann.fromLine && (ann.ruleID == "all" || ann.ruleID == f.RuleID) {
			return true
		}
	}
	return false
}

func (d *fileDirectives) applies(set map[string]struct{}, ruleID string) bool {
	if set == nil {
		return false
	}
	if _, ok := set["all"]; ok {
		return true
	}
	_, ok := set[ruleID]
	return ok
}

func (s *InlineScanner) directivesFor(path string) *fileDirectives {
	if d, ok := s.cache[path]; ok {
		return d
	}
	full := path
	if !filepath.IsAbs(full) && s.basePath != "" {
		full = filepath.Join(s.basePath, path)
	}
	content, err := os.ReadFile(full)
	if err != nil {
		s.cache[path] = nil
		return nil
	}
	d := parseDirectives(string(content))
	s.cache[path] = d
	return d
}

func parseDirectives(content string) *fileDirectives {
	lines := strings.Split(content, "\n")
	d := &fileDirectives{
		byLine: map[int][]string{},
		lines:  lines,
	}

	firstNonBlank := 0
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			firstNonBlank = i + 1
			break
		}
	}

	for i, line := range lines {
		lineNo := i + 1
		if ids := parseIgnoreDirective(line); len(ids) > 0 {
			if lineNo == firstNonBlank {
				d.fileWide = map[string]struct{}{}
				for _, id := range ids {
					d.fileWide[id] = struct{}{}
				}
			}
			d.byLine[lineNo] = append(d.byLine[lineNo], ids...)
		}
		for _, m := range suppressAnnotationRe.FindAllStringSubmatch(line, -1) {
			d.annotations = append(d.annotations, annotationDirective{
				ruleID:   m[1],
				fromLine: declarationLineAfter(lines, i),
			})
		}
	}
	return d
}

// parseIgnoreDirective extracts the rule ids of a "shamash:ignore"
// comment, or nil when the line carries none.
func parseIgnoreDirective(line string) []string {
	idx := strings.Index(line, directiveMarker)
	if idx < 0 {
		return nil
	}
	rest := strings.TrimSpace(line[idx+len(directiveMarker):])
	if rest == "" {
		return nil
	}
	// Directive arguments end at the next comment token, if any.
	if i := strings.Index(rest, "*/"); i >= 0 {
		rest = strings.TrimSpace(rest[:i])
	}
	var ids []string
	for _, tok := range strings.Fields(rest) {
		ids = append(ids, strings.TrimSuffix(tok, ","))
	}
	return ids
}

// declarationLineAfter finds the declaration an annotation applies to:
// the next line that is neither blank nor another annotation. Falls
// back to the annotation's own line.
func declarationLineAfter(lines []string, annIdx int) int {
	for i := annIdx + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "@") {
			continue
		}
		return i + 1
	}
	return annIdx + 1
}

var declarationKeywords = []string{"class ", "interface ", "enum ", "record ", "void ", "fun "}

// anchorLine resolves a finding to a 1-based line. Resolution falls
// back from the explicit offset, to a named declaration search for the
// member or class, to a declaration keyword search. Zero means no
// anchor could be resolved.
func (d *fileDirectives) anchorLine(f *report.Finding) int {
	if f.StartOffset != nil {
		return lineOfOffset(d.lines, *f.StartOffset)
	}
	if f.MemberName != "" {
		if line := d.findNamed(f.MemberName); line > 0 {
			return line
		}
	}
	if f.ClassFqn != "" {
		simple := f.ClassFqn
		if i := strings.LastIndex(simple, "."); i >= 0 {
			simple = simple[i+1:]
		}
		if line := d.findNamed(simple); line > 0 {
			return line
		}
	}
	for i, line := range d.lines {
		for _, kw := range declarationKeywords {
			if strings.Contains(line, kw) {
				return i + 1
			}
		}
	}
	return 0
}

// findNamed locates the first line that looks like a declaration of
// the given name: the name appears followed by a declaration-ish
// character rather than a call.
func (d *fileDirectives) findNamed(name string) int {
	for i, line := range d.lines {
		idx := strings.Index(line, name)
		if idx < 0 {
			continue
		}
		rest := line[idx+len(name):]
		if rest == "" || strings.HasPrefix(rest, " ") || strings.HasPrefix(rest, "(") ||
			strings.HasPrefix(rest, ";") || strings.HasPrefix(rest, "=") || strings.HasPrefix(rest, "{") {
			return i + 1
		}
	}
	return 0
}

func lineOfOffset(lines []string, offset int) int {
	if offset < 0 {
		return 0
	}
	pos := 0
	for i, line := range lines {
		// +1 for the newline split away from each line
		end := pos + len(line) + 1
		if offset < end {
			return i + 1
		}
		pos = end
	}
	return len(lines)
}
