package suppress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/facts"
	"github.com/shamash-tools/shamash/internal/report"
)

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func exceptionIndex() *facts.Index {
	index := facts.NewIndex()
	index.Classes = []facts.ClassFact{
		{
			FqName:      "com.acme.legacy.OldService",
			Package:     "com.acme.legacy",
			SimpleName:  "OldService",
			Visibility:  facts.VisibilityPublic,
			Annotations: []string{"com.acme.Generated"},
		},
		{
			FqName:     "com.acme.web.UserController",
			Package:    "com.acme.web",
			SimpleName: "UserController",
			Visibility: facts.VisibilityPublic,
		},
	}
	index.Normalize()
	index.AssignRole("com.acme.web.UserController", "web")
	return index
}

func legacyFinding() report.Finding {
	return report.Finding{
		RuleID:   "metrics.maxMethodsPerClass",
		Severity: report.SeverityWarning,
		Message:  "too many methods",
		FilePath: "src/legacy/OldService.java",
		ClassFqn: "com.acme.legacy.OldService",
	}
}

func TestApplyExceptions(t *testing.T) {
	webFinding := report.Finding{
		RuleID:   "arch.allowedRoleDependencies",
		Severity: report.SeverityError,
		FilePath: "src/web/UserController.java",
		ClassFqn: "com.acme.web.UserController",
	}

	tests := []struct {
		name       string
		exception  config.ExceptionRule
		findings   []report.Finding
		wantKept   int
		wantDroppd int
	}{
		{
			name: "class regex suppresses the legacy package",
			exception: config.ExceptionRule{
				ID:     "legacy",
				Reason: "grandfathered",
				Match:  config.ExceptionMatch{ClassRegex: `^com\.acme\.legacy\.`},
			},
			findings:   []report.Finding{legacyFinding(), webFinding},
			wantKept:   1,
			wantDroppd: 1,
		},
		{
			name: "suppress list limits the rules affected",
			exception: config.ExceptionRule{
				ID:       "legacy-metrics-only",
				Reason:   "grandfathered",
				Suppress: []string{"deadcode.unusedPrivate"},
				Match:    config.ExceptionMatch{ClassRegex: `^com\.acme\.legacy\.`},
			},
			findings:   []report.Finding{legacyFinding()},
			wantKept:   1,
			wantDroppd: 0,
		},
		{
			name: "role match",
			exception: config.ExceptionRule{
				ID:     "web-roles",
				Reason: "migration in flight",
				Match:  config.ExceptionMatch{Role: "web"},
			},
			findings:   []report.Finding{legacyFinding(), webFinding},
			wantKept:   1,
			wantDroppd: 1,
		},
		{
			name: "rule type and name pair",
			exception: config.ExceptionRule{
				ID:     "named-rule",
				Reason: "tracked elsewhere",
				Match:  config.ExceptionMatch{RuleType: "metrics.maxMethodsPerClass", RuleName: "strict"},
			},
			findings:   []report.Finding{legacyFinding()},
			wantKept:   1,
			wantDroppd: 0,
		},
		{
			name: "annotation match",
			exception: config.ExceptionRule{
				ID:     "generated",
				Reason: "generated code",
				Match:  config.ExceptionMatch{Annotation: "com.acme.Generated"},
			},
			findings:   []report.Finding{legacyFinding(), webFinding},
			wantKept:   1,
			wantDroppd: 1,
		},
		{
			name: "glob match",
			exception: config.ExceptionRule{
				ID:     "legacy-tree",
				Reason: "grandfathered",
				Match:  config.ExceptionMatch{Glob: "src/legacy/*.java"},
			},
			findings:   []report.Finding{legacyFinding(), webFinding},
			wantKept:   1,
			wantDroppd: 1,
		},
		{
			name: "expired exception no longer applies",
			exception: config.ExceptionRule{
				ID:        "expired",
				Reason:    "was temporary",
				ExpiresOn: "2026-01-01",
				Match:     config.ExceptionMatch{ClassRegex: `^com\.acme\.legacy\.`},
			},
			findings:   []report.Finding{legacyFinding()},
			wantKept:   1,
			wantDroppd: 0,
		},
		{
			name: "future expiry still applies",
			exception: config.ExceptionRule{
				ID:        "active",
				Reason:    "temporary",
				ExpiresOn: "2027-01-01",
				Match:     config.ExceptionMatch{ClassRegex: `^com\.acme\.legacy\.`},
			},
			findings:   []report.Finding{legacyFinding()},
			wantKept:   0,
			wantDroppd: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled := CompileExceptions([]config.ExceptionRule{tt.exception})
			kept, suppressed := ApplyExceptions(tt.findings, compiled, exceptionIndex(), "", fixedNow)
			assert.Len(t, kept, tt.wantKept)
			assert.Equal(t, tt.wantDroppd, suppressed)
		})
	}
}

func TestApplyExceptionsAllFieldsMustMatch(t *testing.T) {
	// Class regex matches but the member regex does not: the finding
	// has no member name.
	exc := config.ExceptionRule{
		ID:     "member-only",
		Reason: "accessor noise",
		Match: config.ExceptionMatch{
			ClassRegex:  `^com\.acme\.legacy\.`,
			MemberRegex: `^get`,
		},
	}
	compiled := CompileExceptions([]config.ExceptionRule{exc})

	kept, suppressed := ApplyExceptions([]report.Finding{legacyFinding()}, compiled, exceptionIndex(), "", fixedNow)
	assert.Len(t, kept, 1)
	assert.Zero(t, suppressed)

	withMember := legacyFinding()
	withMember.MemberName = "getName"
	kept, suppressed = ApplyExceptions([]report.Finding{withMember}, compiled, exceptionIndex(), "", fixedNow)
	assert.Empty(t, kept)
	assert.Equal(t, 1, suppressed)
}

func TestCompileExceptionsDropsInvalidRegex(t *testing.T) {
	compiled := CompileExceptions([]config.ExceptionRule{
		{ID: "broken", Reason: "r", Match: config.ExceptionMatch{ClassRegex: "["}},
		{ID: "fine", Reason: "r", Match: config.ExceptionMatch{ClassRegex: "^ok$"}},
	})
	require.Len(t, compiled, 1)
	assert.Equal(t, "fine", compiled[0].id)
}

func TestApplyExceptionsGlobAgainstRelativePath(t *testing.T) {
	exc := config.ExceptionRule{
		ID:     "generated",
		Reason: "generated code",
		Match:  config.ExceptionMatch{Glob: "gen/*.java"},
	}
	compiled := CompileExceptions([]config.ExceptionRule{exc})

	f := legacyFinding()
	f.FilePath = "/work/project/gen/Stub.java"
	kept, suppressed := ApplyExceptions([]report.Finding{f}, compiled, exceptionIndex(), "/work/project", fixedNow)
	assert.Empty(t, kept)
	assert.Equal(t, 1, suppressed)
}
