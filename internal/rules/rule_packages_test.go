package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/facts"
)

func packagesIndex(t *testing.T) *facts.Index {
	return newTestIndex(t,
		[]facts.ClassFact{
			simpleClass("com.acme.app.Main", "com.acme.app", "Main", "src/Main.java"),
			simpleClass("com.acme.internal.Hack", "com.acme.internal", "Hack", "src/Hack.java"),
			simpleClass("org.thirdparty.Shim", "org.thirdparty", "Shim", "src/Shim.java"),
		},
		nil, nil, nil)
}

func TestForbiddenPackages(t *testing.T) {
	def := &config.RuleDef{
		Type: "arch.forbiddenPackages",
		Params: map[string]interface{}{
			"patterns": []interface{}{`\.internal$`, `^org\.`},
		},
	}
	findings := evaluateRule(t, &forbiddenPackagesRule{}, def, packagesIndex(t))

	require.Len(t, findings, 2)
	assert.Equal(t, "com.acme.internal.Hack", findings[0].ClassFqn)
	assert.Equal(t, `\.internal$`, findings[0].Data["pattern"])
	assert.Equal(t, "org.thirdparty.Shim", findings[1].ClassFqn)
	assert.Equal(t, `^org\.`, findings[1].Data["pattern"])
}

func TestForbiddenPackagesFirstPatternWins(t *testing.T) {
	def := &config.RuleDef{
		Type: "arch.forbiddenPackages",
		Params: map[string]interface{}{
			"patterns": []interface{}{`internal`, `\.internal$`},
		},
	}
	findings := evaluateRule(t, &forbiddenPackagesRule{}, def, packagesIndex(t))
	require.Len(t, findings, 1)
	assert.Equal(t, `internal`, findings[0].Data["pattern"])
}

func TestAllowedPackages(t *testing.T) {
	def := &config.RuleDef{
		Type: "arch.allowedPackages",
		Params: map[string]interface{}{
			"patterns": []interface{}{`^com\.acme\.`},
		},
	}
	findings := evaluateRule(t, &allowedPackagesRule{}, def, packagesIndex(t))

	require.Len(t, findings, 1)
	assert.Equal(t, "org.thirdparty.Shim", findings[0].ClassFqn)
	assert.Equal(t, "org.thirdparty", findings[0].Data["package"])
}

func TestPackagesInvalidPatternYieldsNothing(t *testing.T) {
	def := &config.RuleDef{
		Type:   "arch.forbiddenPackages",
		Params: map[string]interface{}{"patterns": []interface{}{"["}},
	}
	assert.Empty(t, evaluateRule(t, &forbiddenPackagesRule{}, def, packagesIndex(t)))
}
