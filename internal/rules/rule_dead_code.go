package rules

import (
	"fmt"
	"strings"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/facts"
	"github.com/shamash-tools/shamash/internal/report"
)

func init() {
	Register(&unusedPrivateRule{})
	config.RegisterRuleSpec(config.RuleSpec{
		Type: "deadcode.unusedPrivate",
		Params: []config.ParamSpec{
			{Name: "includeMethods", Kind: config.ParamBool},
			{Name: "includeFields", Kind: config.ParamBool},
			{Name: "extraAnnotations", Kind: config.ParamStringList},
		},
	})
}

// Annotations that mark a member as used indirectly by a framework
// (injection, persistence, serialization, test lifecycle). Members
// carrying any of these are never reported.
var frameworkAnnotationPrefixes = []string{
	"javax.inject.",
	"jakarta.inject.",
	"javax.persistence.",
	"jakarta.persistence.",
	"javax.annotation.",
	"jakarta.annotation.",
	"org.springframework.",
	"org.junit.",
	"com.fasterxml.jackson.",
	"com.google.inject.",
}

// EntryPointClassifier is the host-specific collaborator deciding
// whether a class is an application entry point. The default treats
// classes with a main method as entry points; IDE hosts plug richer
// platform rules.
type EntryPointClassifier interface {
	IsEntryPoint(class *facts.ClassFact) bool
}

type mainMethodClassifier struct{}

func (mainMethodClassifier) IsEntryPoint(class *facts.ClassFact) bool {
	return class.HasMainMethod
}

// SetEntryPointClassifier replaces the classifier used by dead-code
// detection. Intended for embedding hosts; the CLI keeps the default.
func SetEntryPointClassifier(c EntryPointClassifier) {
	if c != nil {
		entryPoints = c
	}
}

var entryPoints EntryPointClassifier = mainMethodClassifier{}

type unusedPrivateRule struct{}

func (r *unusedPrivateRule) Type() string { return "deadcode.unusedPrivate" }

// Evaluate reports private members with zero references anywhere in
// the scanned facts. The analysis is conservative by construction:
// only private members are candidates, and anything a framework might
// reach indirectly is excluded up front.
func (r *unusedPrivateRule) Evaluate(rctx *Context) []report.Finding {
	includeMethods, ok := boolParam(rctx.Def.Params, "includeMethods", true)
	if !ok {
		return nil
	}
	includeFields, ok := boolParam(rctx.Def.Params, "includeFields", true)
	if !ok {
		return nil
	}
	extra, _ := stringListParam(rctx.Def.Params, "extraAnnotations")

	refs := memberReferences(rctx.Index)

	var findings []report.Finding
	for _, class := range rctx.ScopedClasses() {
		if entryPoints.IsEntryPoint(class) {
			continue
		}
		if includeMethods {
			for _, method := range rctx.Index.MethodsOf(class.FqName) {
				if method.Visibility != facts.VisibilityPrivate {
					continue
				}
				if method.Name == "<init>" || method.Name == "<clinit>" {
					continue
				}
				if frameworkAnnotated(method.Annotations, extra) {
					continue
				}
				if overridesSupertype(rctx.Index, class, method) {
					continue
				}
				if refs[class.FqName+"#"+method.Name] > 0 {
					continue
				}
				findings = append(findings, report.Finding{
					Message:    fmt.Sprintf("private method %s.%s is never used", class.FqName, method.Name),
					FilePath:   pickPath(method.Location.SourceFile, class.Location.SourceFile),
					ClassFqn:   class.FqName,
					MemberName: method.Name,
					Data:       map[string]string{"memberKind": "method"},
				})
			}
		}
		if includeFields {
			for _, field := range rctx.Index.FieldsOf(class.FqName) {
				if field.Visibility != facts.VisibilityPrivate {
					continue
				}
				if frameworkAnnotated(field.Annotations, extra) {
					continue
				}
				if refs[class.FqName+"#"+field.Name] > 0 {
					continue
				}
				findings = append(findings, report.Finding{
					Message:    fmt.Sprintf("private field %s.%s is never used", class.FqName, field.Name),
					FilePath:   pickPath(field.Location.SourceFile, class.Location.SourceFile),
					ClassFqn:   class.FqName,
					MemberName: field.Name,
					Data:       map[string]string{"memberKind": "field"},
				})
			}
		}
	}
	return findings
}

// memberReferences counts member-level references across all
// dependency edges, including the self-loops the index keeps aside:
// a private member called only from its own class is still used.
// METHOD_CALL and FIELD_TYPE edges carry the target member in Detail
// as "name" or "name(descriptor)".
func memberReferences(index *facts.Index) map[string]int {
	refs := map[string]int{}
	countMemberRefs(refs, index.Dependencies)
	countMemberRefs(refs, index.SelfDependencies())
	return refs
}

func countMemberRefs(refs map[string]int, edges []facts.DependencyFact) {
	for _, edge := range edges {
		if edge.Detail == "" {
			continue
		}
		if edge.Kind != facts.KindMethodCall && edge.Kind != facts.KindFieldType {
			continue
		}
		name := edge.Detail
		if i := strings.IndexByte(name, '('); i >= 0 {
			name = name[:i]
		}
		refs[edge.To+"#"+name]++
	}
}

func frameworkAnnotated(annotations, extra []string) bool {
	for _, ann := range annotations {
		for _, prefix := range frameworkAnnotationPrefixes {
			if strings.HasPrefix(ann, prefix) {
				return true
			}
		}
		for _, e := range extra {
			if ann == e || strings.HasPrefix(ann, e) {
				return true
			}
		}
	}
	return false
}

// overridesSupertype walks the super-class chain and interfaces
// looking for a member with the same name and descriptor.
func overridesSupertype(index *facts.Index, class *facts.ClassFact, method facts.MethodFact) bool {
	seen := map[string]struct{}{}
	queue := append([]string{}, class.Interfaces...)
	if class.SuperClass != "" {
		queue = append(queue, class.SuperClass)
	}
	for len(queue) > 0 {
		fqn := queue[0]
		queue = queue[1:]
		if _, ok := seen[fqn]; ok {
			continue
		}
		seen[fqn] = struct{}{}
		super := index.Class(fqn)
		if super == nil {
			continue
		}
		for _, m := range index.MethodsOf(fqn) {
			if m.Name == method.Name && m.Descriptor == method.Descriptor {
				return true
			}
		}
		queue = append(queue, super.Interfaces...)
		if super.SuperClass != "" {
			queue = append(queue, super.SuperClass)
		}
	}
	return false
}
