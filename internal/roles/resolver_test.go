package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/facts"
)

func classFact(fqn, pkg, simple string, annotations ...string) facts.ClassFact {
	return facts.ClassFact{
		FqName:      fqn,
		Package:     pkg,
		SimpleName:  simple,
		Visibility:  facts.VisibilityPublic,
		Annotations: annotations,
	}
}

func TestResolveAssignsHighestPriorityRole(t *testing.T) {
	index := facts.NewIndex()
	index.Classes = []facts.ClassFact{
		classFact("com.acme.web.UserController", "com.acme.web", "UserController"),
	}
	index.Normalize()

	// Both matchers hit the same class; controller has the higher priority.
	roles := map[string]config.Role{
		"api": {
			Priority: 50,
			Match:    &config.Matcher{ClassNameEndsWith: "Controller"},
		},
		"controller": {
			Priority: 90,
			Match:    &config.Matcher{ClassNameEndsWith: "Controller"},
		},
	}

	require.NoError(t, Resolve(index, roles))

	role, ok := index.RoleOf("com.acme.web.UserController")
	require.True(t, ok)
	assert.Equal(t, "controller", role)
	assert.Equal(t, []string{"com.acme.web.UserController"}, index.Roles["controller"])
	assert.Empty(t, index.Roles["api"])
}

func TestResolveTieBreaksOnRoleID(t *testing.T) {
	index := facts.NewIndex()
	index.Classes = []facts.ClassFact{
		classFact("com.acme.core.Service", "com.acme.core", "Service"),
	}
	index.Normalize()

	roles := map[string]config.Role{
		"zeta": {
			Priority: 10,
			Match:    &config.Matcher{PackageContainsSegment: "core"},
		},
		"alpha": {
			Priority: 10,
			Match:    &config.Matcher{PackageContainsSegment: "core"},
		},
	}

	require.NoError(t, Resolve(index, roles))

	role, ok := index.RoleOf("com.acme.core.Service")
	require.True(t, ok)
	assert.Equal(t, "alpha", role)
}

func TestResolveLeavesNonMatchingClassesUnassigned(t *testing.T) {
	index := facts.NewIndex()
	index.Classes = []facts.ClassFact{
		classFact("com.acme.util.Strings", "com.acme.util", "Strings"),
	}
	index.Normalize()

	roles := map[string]config.Role{
		"repository": {
			Priority: 10,
			Match:    &config.Matcher{ClassNameEndsWith: "Repository"},
		},
	}

	require.NoError(t, Resolve(index, roles))

	_, ok := index.RoleOf("com.acme.util.Strings")
	assert.False(t, ok)
}

func TestResolveRejectsInvalidRegex(t *testing.T) {
	index := facts.NewIndex()
	roles := map[string]config.Role{
		"broken": {
			Priority: 1,
			Match:    &config.Matcher{PackageRegex: "["},
		},
	}
	err := Resolve(index, roles)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestCompiledMatcher(t *testing.T) {
	service := classFact("com.acme.app.BillingService", "com.acme.app", "BillingService", "javax.inject.Singleton")
	entity := classFact("com.acme.domain.Invoice", "com.acme.domain", "Invoice", "jakarta.persistence.Entity")

	tests := []struct {
		name    string
		matcher *config.Matcher
		class   *facts.ClassFact
		want    bool
	}{
		{
			name:    "package regex match",
			matcher: &config.Matcher{PackageRegex: `^com\.acme\.app$`},
			class:   &service,
			want:    true,
		},
		{
			name:    "package segment match",
			matcher: &config.Matcher{PackageContainsSegment: "domain"},
			class:   &entity,
			want:    true,
		},
		{
			name:    "package segment is not a substring match",
			matcher: &config.Matcher{PackageContainsSegment: "dom"},
			class:   &entity,
			want:    false,
		},
		{
			name:    "class name suffix",
			matcher: &config.Matcher{ClassNameEndsWith: "Service"},
			class:   &service,
			want:    true,
		},
		{
			name:    "annotation exact",
			matcher: &config.Matcher{Annotation: "jakarta.persistence.Entity"},
			class:   &entity,
			want:    true,
		},
		{
			name:    "annotation prefix",
			matcher: &config.Matcher{AnnotationPrefix: "javax.inject."},
			class:   &service,
			want:    true,
		},
		{
			name: "anyOf takes the first hit",
			matcher: &config.Matcher{AnyOf: []*config.Matcher{
				{ClassNameEndsWith: "Repository"},
				{ClassNameEndsWith: "Service"},
			}},
			class: &service,
			want:  true,
		},
		{
			name: "allOf requires every branch",
			matcher: &config.Matcher{AllOf: []*config.Matcher{
				{ClassNameEndsWith: "Service"},
				{PackageContainsSegment: "domain"},
			}},
			class: &service,
			want:  false,
		},
		{
			name:    "not inverts",
			matcher: &config.Matcher{Not: &config.Matcher{ClassNameEndsWith: "Service"}},
			class:   &entity,
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := CompileMatcher(tt.matcher)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Matches(tt.class))
		})
	}
}
