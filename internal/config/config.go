package config

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// SupportedVersion is the only config schema version this build accepts.
const SupportedVersion = 1

// UnknownRulePolicy controls how unrecognized rule types in the config
// are treated by validation.
type UnknownRulePolicy string

const (
	UnknownRuleIgnore UnknownRulePolicy = "ignore"
	UnknownRuleWarn   UnknownRulePolicy = "warn"
	UnknownRuleError  UnknownRulePolicy = "error"
)

// Config is the versioned declarative analysis configuration.
type Config struct {
	Version     int                      `yaml:"version"`
	Project     Project                  `yaml:"project"`
	Roles       map[string]Role          `yaml:"roles"`
	Analysis    Analysis                 `yaml:"analysis"`
	Rules       []RuleDef                `yaml:"rules"`
	Exceptions  []ExceptionRule          `yaml:"exceptions"`
	Baseline    BaselineConfig           `yaml:"baseline"`
	Export      ExportConfig             `yaml:"export"`
	UnknownRule UnknownRulePolicy        `yaml:"unknownRule"`
}

// Project describes what to scan.
type Project struct {
	Name          string   `yaml:"name"`
	BasePath      string   `yaml:"basePath"`
	BytecodeRoots []string `yaml:"bytecodeRoots"`
	Include       []string `yaml:"include"`
	Exclude       []string `yaml:"exclude"`
	MaxClasses    *int     `yaml:"maxClasses"`
	MaxJarBytes   *int64   `yaml:"maxJarBytes"`
	MaxClassBytes *int64   `yaml:"maxClassBytes"`
}

// Role is a user-defined architectural category. Classes are assigned
// to at most one role: the highest-priority matching role wins.
type Role struct {
	Priority    int      `yaml:"priority"`
	Description string   `yaml:"description"`
	Match       *Matcher `yaml:"match"`
}

// Matcher is one node of the boolean matcher expression tree. Exactly
// one field must be set per node.
type Matcher struct {
	AnyOf                  []*Matcher `yaml:"anyOf"`
	AllOf                  []*Matcher `yaml:"allOf"`
	Not                    *Matcher   `yaml:"not"`
	PackageRegex           string     `yaml:"packageRegex"`
	PackageContainsSegment string     `yaml:"packageContainsSegment"`
	ClassNameEndsWith      string     `yaml:"classNameEndsWith"`
	Annotation             string     `yaml:"annotation"`
	AnnotationPrefix       string     `yaml:"annotationPrefix"`
}

// Analysis holds heuristic tuning shared across rules.
type Analysis struct {
	GodClass GodClassConfig `yaml:"godClass"`
	Graph    GraphConfig    `yaml:"graph"`
}

// GodClassConfig configures the composite god-class score. Weights and
// thresholds are heuristics, not a correctness contract.
type GodClassConfig struct {
	Weights    map[string]float64 `yaml:"weights"`
	Thresholds ScoreThresholds    `yaml:"thresholds"`
}

// ScoreThresholds are the monotonic severity bands of the god-class
// score (critical > high > medium > low).
type ScoreThresholds struct {
	Low      float64 `yaml:"low"`
	Medium   float64 `yaml:"medium"`
	High     float64 `yaml:"high"`
	Critical float64 `yaml:"critical"`
}

// GraphConfig configures dependency-graph rules.
type GraphConfig struct {
	Granularity       string `yaml:"granularity"` // class, package or module
	IncludeExternal   bool   `yaml:"includeExternal"`
	MaxCyclesReported int    `yaml:"maxCyclesReported"`
	MaxCycleLength    int    `yaml:"maxCycleLength"`
}

// RuleDef is one configured rule instance. Identity is the
// (type, name, role) triple: wildcard definitions (no roles) apply to
// all roles, specific definitions to the listed ones.
type RuleDef struct {
	Type     string                 `yaml:"type"`
	Name     string                 `yaml:"name"`
	Enabled  *bool                  `yaml:"enabled"`
	Severity string                 `yaml:"severity"`
	Scope    *RuleScope             `yaml:"scope"`
	Roles    []string               `yaml:"roles"`
	Params   map[string]interface{} `yaml:"params"`
}

// IsEnabled reports whether the rule should run; rules are enabled
// unless explicitly switched off.
func (r *RuleDef) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// RuleID is the identifier findings and exceptions use to refer to
// this rule instance.
func (r *RuleDef) RuleID() string {
	if r.Name == "" {
		return r.Type
	}
	return r.Type + "/" + r.Name
}

// IsWildcard reports whether the rule applies to all roles.
func (r *RuleDef) IsWildcard() bool {
	return len(r.Roles) == 0
}

// RuleScope narrows a rule's evaluation domain orthogonally to the
// role allow list.
type RuleScope struct {
	IncludeRoles    []string `yaml:"includeRoles"`
	ExcludeRoles    []string `yaml:"excludeRoles"`
	IncludePackages []string `yaml:"includePackages"` // regexes
	ExcludePackages []string `yaml:"excludePackages"` // regexes
	IncludeGlobs    []string `yaml:"includeGlobs"`
	ExcludeGlobs    []string `yaml:"excludeGlobs"`
}

// ExceptionRule suppresses matching findings. At least one matcher
// field of Match must be set.
type ExceptionRule struct {
	ID        string         `yaml:"id"`
	Reason    string         `yaml:"reason"`
	ExpiresOn string         `yaml:"expiresOn"` // YYYY-MM-DD
	Suppress  []string       `yaml:"suppress"`  // rule ids
	Match     ExceptionMatch `yaml:"match"`
}

// ExceptionMatch is the predicate of an exception rule. RuleType and
// RuleName are paired: both present or both absent.
type ExceptionMatch struct {
	Role             string `yaml:"role"`
	PackageRegex     string `yaml:"packageRegex"`
	ClassRegex       string `yaml:"classRegex"`
	MemberRegex      string `yaml:"memberRegex"`
	Annotation       string `yaml:"annotation"`
	AnnotationPrefix string `yaml:"annotationPrefix"`
	Glob             string `yaml:"glob"`
	RuleType         string `yaml:"ruleType"`
	RuleName         string `yaml:"ruleName"`
}

// IsEmpty reports whether no matcher field is set.
func (m ExceptionMatch) IsEmpty() bool {
	return m.Role == "" && m.PackageRegex == "" && m.ClassRegex == "" &&
		m.MemberRegex == "" && m.Annotation == "" && m.AnnotationPrefix == "" &&
		m.Glob == "" && m.RuleType == "" && m.RuleName == ""
}

// BaselineConfig selects the baseline mode and file.
type BaselineConfig struct {
	Mode  string `yaml:"mode"` // none, use or generate
	Path  string `yaml:"path"`
	Merge bool   `yaml:"merge"`
}

// ExportConfig selects report output formats.
type ExportConfig struct {
	Enabled   bool     `yaml:"enabled"`
	OutputDir string   `yaml:"outputDir"`
	Formats   []string `yaml:"formats"` // json, sarif, xml, html
}

// LoadConfig reads and parses the YAML configuration file. Semantic
// validation is a separate step; see Validate.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config %q: %w", path, err)
	}
	defer file.Close()

	cfg := &Config{}
	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	if cfg.UnknownRule == "" {
		cfg.UnknownRule = UnknownRuleWarn
	}
	return cfg, nil
}

// EffectiveRoleTargets returns the set of roles a rule applies to:
// the explicit role list, or every configured role for wildcard rules.
func (c *Config) EffectiveRoleTargets(r *RuleDef) map[string]struct{} {
	targets := map[string]struct{}{}
	if r.IsWildcard() {
		for id := range c.Roles {
			targets[id] = struct{}{}
		}
		return targets
	}
	for _, id := range r.Roles {
		targets[id] = struct{}{}
	}
	return targets
}
