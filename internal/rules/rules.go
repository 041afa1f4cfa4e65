package rules

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/facts"
	"github.com/shamash-tools/shamash/internal/report"
)

// Context carries everything one rule evaluation needs. The fact index
// is read-only for rules.
type Context struct {
	Def    *config.RuleDef
	Index  *facts.Index
	Cfg    *config.Config
	Scope  *CompiledScope
	Logger hclog.Logger
}

// Rule is one evaluable rule type. The config validator is the
// authority on param correctness, so a rule that sees malformed
// params returns no findings instead of failing the scan.
type Rule interface {
	Type() string
	Evaluate(rctx *Context) []report.Finding
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Rule{}
)

// Register adds a rule implementation to the engine registry. Each
// rule file registers itself and its parameter spec from init.
func Register(r Rule) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[r.Type()] = r
}

// Lookup returns the registered rule implementation for a type.
func Lookup(ruleType string) (Rule, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := registry[ruleType]
	return r, ok
}

// EvaluateAll runs every enabled configured rule against the index.
// Rules run in sorted rule-id order so the raw finding stream is
// reproducible; a panicking rule is recovered and logged without
// stopping the others. Cancellation is checked between rules.
func EvaluateAll(ctx context.Context, cfg *config.Config, index *facts.Index, logger hclog.Logger) ([]report.Finding, error) {
	defs := make([]*config.RuleDef, 0, len(cfg.Rules))
	for i := range cfg.Rules {
		if cfg.Rules[i].IsEnabled() {
			defs = append(defs, &cfg.Rules[i])
		}
	}
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].RuleID() != defs[j].RuleID() {
			return defs[i].RuleID() < defs[j].RuleID()
		}
		// Specific definitions after the wildcard one, by role list.
		return fmt.Sprint(defs[i].Roles) < fmt.Sprint(defs[j].Roles)
	})

	var all []report.Finding
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		impl, ok := Lookup(def.Type)
		if !ok {
			// Unregistered rules were already surfaced by validation
			// per the unknownRule policy; evaluation skips them.
			logger.Debug("skipping unregistered rule", "type", def.Type)
			continue
		}
		scope, err := CompileScope(def)
		if err != nil {
			logger.Warn("skipping rule with invalid scope", "rule", def.RuleID(), "error", err)
			continue
		}
		findings := evaluateOne(impl, &Context{
			Def:    def,
			Index:  index,
			Cfg:    cfg,
			Scope:  scope,
			Logger: logger.With("rule", def.RuleID()),
		})
		for i := range findings {
			findings[i].RuleID = def.RuleID()
			if findings[i].Severity == "" {
				findings[i].Severity = defSeverity(def)
			}
		}
		all = append(all, findings...)
	}
	return all, nil
}

// evaluateOne isolates a single rule run: an unexpected panic in one
// rule must not prevent other rules from running.
func evaluateOne(impl Rule, rctx *Context) (findings []report.Finding) {
	defer func() {
		if r := recover(); r != nil {
			rctx.Logger.Error("rule evaluation panicked", "panic", r)
			findings = nil
		}
	}()
	return impl.Evaluate(rctx)
}

func defSeverity(def *config.RuleDef) report.Severity {
	switch def.Severity {
	case "ERROR":
		return report.SeverityError
	case "INFO":
		return report.SeverityInfo
	default:
		return report.SeverityWarning
	}
}
