package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/facts"
	"github.com/shamash-tools/shamash/internal/report"
)

func init() {
	Register(&godClassRule{})
	config.RegisterRuleSpec(config.RuleSpec{
		Type:   "metrics.godClass",
		Params: nil, // tuned via analysis.godClass, not per-rule params
	})
}

// Default god-class weights. The score is a heuristic, not a
// correctness contract; analysis.godClass.weights overrides any subset.
var defaultGodClassWeights = map[string]float64{
	"methods":          1.0,
	"publicMethods":    1.5,
	"fields":           1.0,
	"instructions":     0.5, // applied to instructions/100
	"fanOut":           2.0,
	"fanIn":            1.0,
	"inheritanceDepth": 3.0,
}

var defaultGodClassThresholds = config.ScoreThresholds{
	Low:      40,
	Medium:   60,
	High:     85,
	Critical: 120,
}

type godClassRule struct{}

func (r *godClassRule) Type() string { return "metrics.godClass" }

// Evaluate computes the composite god-class score for every in-scope
// class and emits a finding per class whose score reaches the low
// band. Severity is the highest band the score reaches.
func (r *godClassRule) Evaluate(rctx *Context) []report.Finding {
	weights := mergedWeights(rctx.Cfg.Analysis.GodClass.Weights)
	thresholds := rctx.Cfg.Analysis.GodClass.Thresholds
	if thresholds == (config.ScoreThresholds{}) {
		thresholds = defaultGodClassThresholds
	}

	var findings []report.Finding
	for _, class := range rctx.ScopedClasses() {
		m := classMetrics(rctx.Index, class)
		score := weights["methods"]*float64(m.methods) +
			weights["publicMethods"]*float64(m.publicMethods) +
			weights["fields"]*float64(m.fields) +
			weights["instructions"]*float64(m.instructions)/100 +
			weights["fanOut"]*float64(m.fanOut) +
			weights["fanIn"]*float64(m.fanIn) +
			weights["inheritanceDepth"]*float64(m.inheritanceDepth)

		severity, band := scoreBand(score, thresholds)
		if band == "" {
			continue
		}
		findings = append(findings, report.Finding{
			Message:  fmt.Sprintf("class %s scores %.1f on the god-class scale (%s)", class.FqName, score, band),
			FilePath: class.Location.SourceFile,
			Severity: severity,
			ClassFqn: class.FqName,
			Data: map[string]string{
				"score":            strconv.FormatFloat(score, 'f', 1, 64),
				"band":             band,
				"methods":          strconv.Itoa(m.methods),
				"publicMethods":    strconv.Itoa(m.publicMethods),
				"fields":           strconv.Itoa(m.fields),
				"instructions":     strconv.Itoa(m.instructions),
				"fanOut":           strconv.Itoa(m.fanOut),
				"fanIn":            strconv.Itoa(m.fanIn),
				"inheritanceDepth": strconv.Itoa(m.inheritanceDepth),
			},
		})
	}
	return findings
}

type metrics struct {
	methods          int
	publicMethods    int
	fields           int
	instructions     int
	fanOut           int
	fanIn            int
	inheritanceDepth int
}

func classMetrics(index *facts.Index, class *facts.ClassFact) metrics {
	var m metrics
	for _, method := range index.MethodsOf(class.FqName) {
		if method.Name == "<init>" || method.Name == "<clinit>" {
			continue
		}
		m.methods++
		if method.Visibility == facts.VisibilityPublic {
			m.publicMethods++
		}
		m.instructions += method.Instructions
	}
	m.fields = len(index.FieldsOf(class.FqName))

	// Fan-out counts distinct non-JDK dependency targets; fan-in only
	// project-internal incoming references.
	outSeen := map[string]struct{}{}
	for _, edge := range index.OutEdges(class.FqName) {
		if isJDKType(edge.To) {
			continue
		}
		outSeen[edge.To] = struct{}{}
	}
	m.fanOut = len(outSeen)

	inSeen := map[string]struct{}{}
	for _, edge := range index.InEdges(class.FqName) {
		if !index.HasClass(edge.From) {
			continue
		}
		inSeen[edge.From] = struct{}{}
	}
	m.fanIn = len(inSeen)

	m.inheritanceDepth = inheritanceDepth(index, class)
	return m
}

// inheritanceDepth follows the super-class chain through the index;
// the walk stops at types outside the scan or at java.lang.Object.
func inheritanceDepth(index *facts.Index, class *facts.ClassFact) int {
	depth := 0
	cur := class
	for cur != nil && cur.SuperClass != "" && cur.SuperClass != "java.lang.Object" {
		depth++
		if depth > 64 {
			// super chain longer than 64 means a malformed hierarchy
			break
		}
		cur = index.Class(cur.SuperClass)
	}
	return depth
}

func isJDKType(fqn string) bool {
	return strings.HasPrefix(fqn, "java.") || strings.HasPrefix(fqn, "javax.") ||
		strings.HasPrefix(fqn, "jdk.") || strings.HasPrefix(fqn, "sun.")
}

func mergedWeights(overrides map[string]float64) map[string]float64 {
	merged := make(map[string]float64, len(defaultGodClassWeights))
	for k, v := range defaultGodClassWeights {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// scoreBand returns the severity and band name of the highest
// threshold the score reaches, or empty when below the low band.
func scoreBand(score float64, t config.ScoreThresholds) (report.Severity, string) {
	switch {
	case score >= t.Critical:
		return report.SeverityError, "critical"
	case score >= t.High:
		return report.SeverityError, "high"
	case score >= t.Medium:
		return report.SeverityWarning, "medium"
	case score >= t.Low:
		return report.SeverityInfo, "low"
	default:
		return "", ""
	}
}
