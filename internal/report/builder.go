package report

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Preprocessor may filter or transform the finding list before
// normalization. Implementations must be deterministic and
// side-effect-free; they run in the order they were registered.
type Preprocessor interface {
	Name() string
	Process(findings []Finding) []Finding
}

// Builder turns raw findings into the canonical ExportedReport.
type Builder struct {
	tool          string
	toolVersion   string
	project       string
	basePath      string
	preprocessors []Preprocessor
	now           func() time.Time
}

// NewBuilder creates a report builder. basePath is the project root
// used to relativize finding file paths.
func NewBuilder(tool, toolVersion, project, basePath string) *Builder {
	return &Builder{
		tool:        tool,
		toolVersion: toolVersion,
		project:     project,
		basePath:    basePath,
		now:         time.Now,
	}
}

// AddPreprocessor appends a preprocessor; order of registration is
// order of execution.
func (b *Builder) AddPreprocessor(p Preprocessor) {
	b.preprocessors = append(b.preprocessors, p)
}

// Build runs preprocessors, normalizes each finding, fingerprints it
// and sorts the result into a total order.
func (b *Builder) Build(findings []Finding) *ExportedReport {
	for _, p := range b.preprocessors {
		findings = p.Process(findings)
	}

	exported := make([]ExportedFinding, 0, len(findings))
	for _, f := range findings {
		nf := b.normalize(f)
		exported = append(exported, ExportedFinding{
			Finding:     nf,
			Fingerprint: Fingerprint(nf),
		})
	}

	sort.Slice(exported, func(i, j int) bool {
		return lessExported(exported[i], exported[j])
	})

	return &ExportedReport{
		Tool:        b.tool,
		ToolVersion: b.toolVersion,
		Project:     b.project,
		GeneratedAt: b.now().UTC().Format(time.RFC3339),
		Findings:    exported,
	}
}

func (b *Builder) normalize(f Finding) Finding {
	return NormalizeFinding(f, b.basePath)
}

// NormalizeFinding returns a copy with optional string fields trimmed
// and the file path relativized against basePath with forward slashes.
// Every fingerprint computation must go through this, otherwise a rule
// emitting a padded field would fingerprint differently at baseline
// generation time than in the report. The input finding is never
// mutated.
func NormalizeFinding(f Finding, basePath string) Finding {
	out := f
	out.Message = strings.TrimSpace(f.Message)
	out.ClassFqn = strings.TrimSpace(f.ClassFqn)
	out.MemberName = strings.TrimSpace(f.MemberName)
	out.FilePath = RelativizePath(f.FilePath, basePath)
	return out
}

// RelativizePath makes path relative to base when possible and
// normalizes separators to forward slashes.
func RelativizePath(path, base string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if base != "" {
		if rel, err := filepath.Rel(base, path); err == nil && !strings.HasPrefix(rel, "..") {
			path = rel
		}
	}
	return filepath.ToSlash(path)
}

// Fingerprint computes the stable content hash of a normalized
// finding. Message, the data map and the offsets are deliberately
// excluded: they can vary between runs without the finding changing
// identity.
func Fingerprint(f Finding) string {
	h := sha256.New()
	for _, part := range []string{f.RuleID, string(f.Severity), f.FilePath, f.ClassFqn, f.MemberName} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// lessExported is the total order of the canonical report. Message is
// the final tiebreaker so that even otherwise-identical findings sort
// stably.
func lessExported(a, b ExportedFinding) bool {
	if a.FilePath != b.FilePath {
		return a.FilePath < b.FilePath
	}
	if a.RuleID != b.RuleID {
		return a.RuleID < b.RuleID
	}
	if ra, rb := SeverityRank(a.Severity), SeverityRank(b.Severity); ra != rb {
		return ra < rb
	}
	if a.ClassFqn != b.ClassFqn {
		return a.ClassFqn < b.ClassFqn
	}
	if a.MemberName != b.MemberName {
		return a.MemberName < b.MemberName
	}
	if a.Fingerprint != b.Fingerprint {
		return a.Fingerprint < b.Fingerprint
	}
	return a.Message < b.Message
}
