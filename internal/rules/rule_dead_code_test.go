package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/facts"
)

func privateMethod(owner, name string, annotations ...string) facts.MethodFact {
	return facts.MethodFact{
		Owner:       owner,
		Name:        name,
		Descriptor:  "()V",
		Visibility:  facts.VisibilityPrivate,
		Annotations: annotations,
	}
}

func TestUnusedPrivateReportsDeadMembers(t *testing.T) {
	index := newTestIndex(t,
		[]facts.ClassFact{simpleClass("com.acme.A", "com.acme", "A", "src/A.java")},
		[]facts.MethodFact{
			privateMethod("com.acme.A", "helper"),
			{Owner: "com.acme.A", Name: "run", Descriptor: "()V", Visibility: facts.VisibilityPublic},
		},
		[]facts.FieldFact{
			{Owner: "com.acme.A", Name: "counter", Descriptor: "I", Visibility: facts.VisibilityPrivate},
		},
		nil)

	def := &config.RuleDef{Type: "deadcode.unusedPrivate"}
	findings := evaluateRule(t, &unusedPrivateRule{}, def, index)

	require.Len(t, findings, 2)
	assert.Equal(t, "private method com.acme.A.helper is never used", findings[0].Message)
	assert.Equal(t, "method", findings[0].Data["memberKind"])
	assert.Equal(t, "private field com.acme.A.counter is never used", findings[1].Message)
	assert.Equal(t, "field", findings[1].Data["memberKind"])
}

func TestUnusedPrivateSkipsReferencedMembers(t *testing.T) {
	index := newTestIndex(t,
		[]facts.ClassFact{
			simpleClass("com.acme.A", "com.acme", "A", "src/A.java"),
			simpleClass("com.acme.B", "com.acme", "B", "src/B.java"),
		},
		[]facts.MethodFact{privateMethod("com.acme.A", "helper")},
		nil,
		[]facts.DependencyFact{
			{From: "com.acme.B", To: "com.acme.A", Kind: facts.KindMethodCall, Detail: "helper()V"},
		})

	def := &config.RuleDef{Type: "deadcode.unusedPrivate"}
	assert.Empty(t, evaluateRule(t, &unusedPrivateRule{}, def, index))
}

func TestUnusedPrivateSkipsSelfReferencedMembers(t *testing.T) {
	// The normalizer moves same-class edges out of the dependency list,
	// but a member called only from its own class is still used.
	index := newTestIndex(t,
		[]facts.ClassFact{simpleClass("com.acme.A", "com.acme", "A", "src/A.java")},
		[]facts.MethodFact{
			privateMethod("com.acme.A", "helper"),
			{Owner: "com.acme.A", Name: "run", Descriptor: "()V", Visibility: facts.VisibilityPublic},
		},
		[]facts.FieldFact{
			{Owner: "com.acme.A", Name: "counter", Descriptor: "I", Visibility: facts.VisibilityPrivate},
		},
		[]facts.DependencyFact{
			{From: "com.acme.A", To: "com.acme.A", Kind: facts.KindMethodCall, Detail: "helper()V"},
			{From: "com.acme.A", To: "com.acme.A", Kind: facts.KindFieldType, Detail: "counter"},
		})

	require.Empty(t, index.OutEdges("com.acme.A"))
	require.Len(t, index.SelfDependencies(), 2)

	def := &config.RuleDef{Type: "deadcode.unusedPrivate"}
	assert.Empty(t, evaluateRule(t, &unusedPrivateRule{}, def, index))
}

func TestUnusedPrivateSkipsFrameworkAnnotated(t *testing.T) {
	index := newTestIndex(t,
		[]facts.ClassFact{simpleClass("com.acme.A", "com.acme", "A", "src/A.java")},
		[]facts.MethodFact{
			privateMethod("com.acme.A", "inject", "javax.inject.Inject"),
			privateMethod("com.acme.A", "custom", "com.acme.framework.Handler"),
		},
		nil, nil)

	def := &config.RuleDef{
		Type:   "deadcode.unusedPrivate",
		Params: map[string]interface{}{"extraAnnotations": []interface{}{"com.acme.framework."}},
	}
	assert.Empty(t, evaluateRule(t, &unusedPrivateRule{}, def, index))
}

func TestUnusedPrivateSkipsEntryPointClasses(t *testing.T) {
	main := simpleClass("com.acme.Main", "com.acme", "Main", "src/Main.java")
	main.HasMainMethod = true

	index := newTestIndex(t,
		[]facts.ClassFact{main},
		[]facts.MethodFact{privateMethod("com.acme.Main", "setup")},
		nil, nil)

	def := &config.RuleDef{Type: "deadcode.unusedPrivate"}
	assert.Empty(t, evaluateRule(t, &unusedPrivateRule{}, def, index))
}

func TestUnusedPrivateSkipsConstructors(t *testing.T) {
	index := newTestIndex(t,
		[]facts.ClassFact{simpleClass("com.acme.A", "com.acme", "A", "src/A.java")},
		[]facts.MethodFact{
			{Owner: "com.acme.A", Name: "<init>", Descriptor: "()V", Visibility: facts.VisibilityPrivate},
			{Owner: "com.acme.A", Name: "<clinit>", Descriptor: "()V", Visibility: facts.VisibilityPrivate},
		},
		nil, nil)

	def := &config.RuleDef{Type: "deadcode.unusedPrivate"}
	assert.Empty(t, evaluateRule(t, &unusedPrivateRule{}, def, index))
}

func TestUnusedPrivateSkipsOverrides(t *testing.T) {
	base := simpleClass("com.acme.Base", "com.acme", "Base", "src/Base.java")
	child := simpleClass("com.acme.Child", "com.acme", "Child", "src/Child.java")
	child.SuperClass = "com.acme.Base"

	index := newTestIndex(t,
		[]facts.ClassFact{base, child},
		[]facts.MethodFact{
			{Owner: "com.acme.Base", Name: "hook", Descriptor: "()V", Visibility: facts.VisibilityProtected},
			privateMethod("com.acme.Child", "hook"),
		},
		nil, nil)

	def := &config.RuleDef{
		Type:  "deadcode.unusedPrivate",
		Scope: &config.RuleScope{IncludePackages: []string{`^com\.acme$`}},
	}
	findings := evaluateRule(t, &unusedPrivateRule{}, def, index)
	for _, f := range findings {
		assert.NotEqual(t, "hook", f.MemberName)
	}
}

func TestUnusedPrivateTogglesMemberKinds(t *testing.T) {
	index := newTestIndex(t,
		[]facts.ClassFact{simpleClass("com.acme.A", "com.acme", "A", "src/A.java")},
		[]facts.MethodFact{privateMethod("com.acme.A", "helper")},
		[]facts.FieldFact{
			{Owner: "com.acme.A", Name: "counter", Descriptor: "I", Visibility: facts.VisibilityPrivate},
		},
		nil)

	def := &config.RuleDef{
		Type:   "deadcode.unusedPrivate",
		Params: map[string]interface{}{"includeMethods": false},
	}
	findings := evaluateRule(t, &unusedPrivateRule{}, def, index)
	require.Len(t, findings, 1)
	assert.Equal(t, "counter", findings[0].MemberName)
}
