package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/facts"
)

func publicAPIIndex(t *testing.T) *facts.Index {
	pkgPrivate := simpleClass("com.acme.Hidden", "com.acme", "Hidden", "src/Hidden.java")
	pkgPrivate.Visibility = facts.VisibilityPackage
	nested := simpleClass("com.acme.Outer$Inner", "com.acme", "Outer$Inner", "src/Outer.java")

	return newTestIndex(t,
		[]facts.ClassFact{
			simpleClass("com.acme.Alpha", "com.acme", "Alpha", "src/Alpha.java"),
			simpleClass("com.acme.Beta", "com.acme", "Beta", "src/Beta.java"),
			simpleClass("com.acme.Gamma", "com.acme", "Gamma", "src/Gamma.java"),
			pkgPrivate,
			nested,
		},
		nil, nil, nil)
}

func TestMaxPublicSurfaceOverLimit(t *testing.T) {
	def := &config.RuleDef{
		Type:   "api.maxPublicSurface",
		Params: map[string]interface{}{"max": 2},
	}
	findings := evaluateRule(t, &maxPublicSurfaceRule{}, def, publicAPIIndex(t))

	require.Len(t, findings, 1)
	f := findings[0]
	// Package-private and nested types do not count toward the surface.
	assert.Equal(t, "public API surface is 3 top-level types, limit is 2", f.Message)
	assert.Equal(t, "3", f.Data["count"])
	assert.Equal(t, "com.acme.Alpha, com.acme.Beta, com.acme.Gamma", f.Data["examples"])
	// Anchored at the first public class in fq-name order.
	assert.Equal(t, "com.acme.Alpha", f.ClassFqn)
	assert.Equal(t, "src/Alpha.java", f.FilePath)
}

func TestMaxPublicSurfaceWithinLimit(t *testing.T) {
	def := &config.RuleDef{
		Type:   "api.maxPublicSurface",
		Params: map[string]interface{}{"max": 3},
	}
	assert.Empty(t, evaluateRule(t, &maxPublicSurfaceRule{}, def, publicAPIIndex(t)))
}

func TestMaxPublicSurfaceExampleCap(t *testing.T) {
	def := &config.RuleDef{
		Type:   "api.maxPublicSurface",
		Params: map[string]interface{}{"max": 1, "examples": 2},
	}
	findings := evaluateRule(t, &maxPublicSurfaceRule{}, def, publicAPIIndex(t))

	require.Len(t, findings, 1)
	assert.Equal(t, "com.acme.Alpha, com.acme.Beta", findings[0].Data["examples"])
	assert.Equal(t, "true", findings[0].Data["examplesTruncated"])
}
