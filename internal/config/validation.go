package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// ValidationSeverity grades a validation entry. A config with any
// ERROR entry is invalid and rule evaluation must not proceed.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "ERROR"
	SeverityWarning ValidationSeverity = "WARNING"
)

// ValidationError is one structural or semantic problem found in the
// configuration, anchored at a config path.
type ValidationError struct {
	Path     string
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) String() string {
	return fmt.Sprintf("%s: %s: %s", e.Severity, e.Path, e.Message)
}

func errorAt(path, message string) ValidationError {
	return ValidationError{Path: path, Message: message, Severity: SeverityError}
}

func warningAt(path, message string) ValidationError {
	return ValidationError{Path: path, Message: message, Severity: SeverityWarning}
}

// HasErrors reports whether any entry is ERROR severity.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Mutually exclusive rule type pairs. Configuring both sides for the
// same role is contradictory and rejected rather than silently
// resolved.
var exclusiveRulePairs = [][2]string{
	{"arch.allowedRoleDependencies", "arch.forbiddenRoleDependencies"},
	{"arch.allowedPackages", "arch.forbiddenPackages"},
}

// Validate performs structural, semantic and cross-rule validation.
// All checks run to completion (collect-all), except the schema
// version check which short-circuits.
func Validate(cfg *Config) []ValidationError {
	if cfg == nil {
		return []ValidationError{errorAt("", "configuration is nil")}
	}
	if cfg.Version != SupportedVersion {
		return []ValidationError{errorAt("version",
			fmt.Sprintf("unsupported schema version %d, this build supports %d", cfg.Version, SupportedVersion))}
	}

	var errs []ValidationError
	errs = append(errs, validateProject(&cfg.Project)...)
	errs = append(errs, validateRoles(cfg.Roles)...)
	errs = append(errs, validateRules(cfg)...)
	errs = append(errs, validateExclusivePairs(cfg)...)
	errs = append(errs, validateExceptions(cfg)...)
	errs = append(errs, validateBaseline(&cfg.Baseline)...)
	errs = append(errs, validateExport(&cfg.Export)...)
	errs = append(errs, validateAnalysis(&cfg.Analysis)...)
	return errs
}

func validateProject(p *Project) []ValidationError {
	var errs []ValidationError
	if len(p.BytecodeRoots) == 0 {
		errs = append(errs, errorAt("project.bytecodeRoots", "at least one scan root is required"))
	}
	for i, root := range p.BytecodeRoots {
		if strings.TrimSpace(root) == "" {
			errs = append(errs, errorAt(fmt.Sprintf("project.bytecodeRoots[%d]", i), "blank entry"))
		}
	}
	if len(p.Include) == 0 {
		errs = append(errs, errorAt("project.include", "at least one include glob is required"))
	}
	for i, g := range p.Include {
		if strings.TrimSpace(g) == "" {
			errs = append(errs, errorAt(fmt.Sprintf("project.include[%d]", i), "blank glob"))
		}
	}
	for i, g := range p.Exclude {
		if strings.TrimSpace(g) == "" {
			errs = append(errs, errorAt(fmt.Sprintf("project.exclude[%d]", i), "blank glob"))
		}
	}
	if p.MaxClasses != nil && *p.MaxClasses <= 0 {
		errs = append(errs, errorAt("project.maxClasses", "must be greater than zero"))
	}
	if p.MaxJarBytes != nil && *p.MaxJarBytes <= 0 {
		errs = append(errs, errorAt("project.maxJarBytes", "must be greater than zero"))
	}
	if p.MaxClassBytes != nil && *p.MaxClassBytes <= 0 {
		errs = append(errs, errorAt("project.maxClassBytes", "must be greater than zero"))
	}
	return errs
}

func validateRoles(roles map[string]Role) []ValidationError {
	var errs []ValidationError
	ids := make([]string, 0, len(roles))
	for id := range roles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		role := roles[id]
		path := "roles." + id
		if strings.TrimSpace(id) == "" {
			errs = append(errs, errorAt("roles", "role id must not be blank"))
		}
		if role.Priority < 0 || role.Priority > 100 {
			errs = append(errs, errorAt(path+".priority",
				fmt.Sprintf("priority %d is outside [0,100]", role.Priority)))
		}
		if role.Match == nil {
			errs = append(errs, errorAt(path+".match", "matcher is required"))
			continue
		}
		errs = append(errs, validateMatcher(role.Match, path+".match")...)
	}
	return errs
}

// validateMatcher recursively checks one matcher node: exactly one
// field set, composite nodes non-empty, leaf values non-blank and
// regex leaves compilable.
func validateMatcher(m *Matcher, path string) []ValidationError {
	var errs []ValidationError

	set := 0
	if len(m.AnyOf) > 0 {
		set++
	}
	if len(m.AllOf) > 0 {
		set++
	}
	if m.Not != nil {
		set++
	}
	for _, leaf := range []string{m.PackageRegex, m.PackageContainsSegment, m.ClassNameEndsWith, m.Annotation, m.AnnotationPrefix} {
		if leaf != "" {
			set++
		}
	}
	if set == 0 {
		return append(errs, errorAt(path, "matcher node is empty"))
	}
	if set > 1 {
		errs = append(errs, errorAt(path, "matcher node must set exactly one field"))
	}

	for i, child := range m.AnyOf {
		childPath := fmt.Sprintf("%s.anyOf[%d]", path, i)
		if child == nil {
			errs = append(errs, errorAt(childPath, "empty child"))
			continue
		}
		errs = append(errs, validateMatcher(child, childPath)...)
	}
	for i, child := range m.AllOf {
		childPath := fmt.Sprintf("%s.allOf[%d]", path, i)
		if child == nil {
			errs = append(errs, errorAt(childPath, "empty child"))
			continue
		}
		errs = append(errs, validateMatcher(child, childPath)...)
	}
	if m.Not != nil {
		errs = append(errs, validateMatcher(m.Not, path+".not")...)
	}

	for _, leaf := range []struct{ name, value string }{
		{"packageContainsSegment", m.PackageContainsSegment},
		{"classNameEndsWith", m.ClassNameEndsWith},
		{"annotation", m.Annotation},
		{"annotationPrefix", m.AnnotationPrefix},
	} {
		if leaf.value != "" && strings.TrimSpace(leaf.value) == "" {
			errs = append(errs, errorAt(path+"."+leaf.name, "blank value"))
		}
	}
	if m.PackageRegex != "" {
		if _, err := regexp.Compile(m.PackageRegex); err != nil {
			errs = append(errs, errorAt(path+".packageRegex",
				fmt.Sprintf("invalid regular expression %q: %v", m.PackageRegex, err)))
		}
	}
	return errs
}

func validateRules(cfg *Config) []ValidationError {
	var errs []ValidationError

	wildcardSeen := map[string]string{} // type|name -> path
	specificSeen := map[string]string{} // type|name|role -> path

	for i := range cfg.Rules {
		rule := &cfg.Rules[i]
		path := fmt.Sprintf("rules[%d]", i)

		if strings.TrimSpace(rule.Type) == "" {
			errs = append(errs, errorAt(path+".type", "rule type must not be blank"))
		}
		if strings.TrimSpace(rule.Name) == "" {
			errs = append(errs, errorAt(path+".name", "rule name must not be blank"))
		}
		if rule.Severity != "" {
			switch rule.Severity {
			case "ERROR", "WARNING", "INFO":
			default:
				errs = append(errs, errorAt(path+".severity",
					fmt.Sprintf("unknown severity %q (expected ERROR, WARNING or INFO)", rule.Severity)))
			}
		}

		if rule.IsWildcard() {
			key := rule.Type + "|" + rule.Name
			if prev, ok := wildcardSeen[key]; ok {
				errs = append(errs, errorAt(path,
					fmt.Sprintf("duplicate wildcard definition for rule %q (see %s)", rule.RuleID(), prev)))
			} else {
				wildcardSeen[key] = path
			}
		}
		for j, roleID := range rule.Roles {
			if _, ok := cfg.Roles[roleID]; !ok {
				errs = append(errs, errorAt(fmt.Sprintf("%s.roles[%d]", path, j),
					fmt.Sprintf("unknown role %q", roleID)))
			}
			key := rule.Type + "|" + rule.Name + "|" + roleID
			if prev, ok := specificSeen[key]; ok {
				errs = append(errs, errorAt(path,
					fmt.Sprintf("duplicate definition of rule %q for role %q (see %s)", rule.RuleID(), roleID, prev)))
			} else {
				specificSeen[key] = path
			}
		}

		if rule.Scope != nil {
			errs = append(errs, validateScope(cfg, rule.Scope, path+".scope")...)
		}

		if !rule.IsEnabled() {
			continue
		}
		spec, known := LookupRuleSpec(rule.Type)
		if !known {
			switch cfg.UnknownRule {
			case UnknownRuleIgnore:
			case UnknownRuleError:
				errs = append(errs, errorAt(path+".type", fmt.Sprintf("unknown rule type %q", rule.Type)))
			default:
				errs = append(errs, warningAt(path+".type", fmt.Sprintf("unknown rule type %q", rule.Type)))
			}
			continue
		}
		errs = append(errs, validateParams(spec, rule, path)...)
	}
	return errs
}

func validateScope(cfg *Config, scope *RuleScope, path string) []ValidationError {
	var errs []ValidationError
	for i, roleID := range scope.IncludeRoles {
		if _, ok := cfg.Roles[roleID]; !ok {
			errs = append(errs, errorAt(fmt.Sprintf("%s.includeRoles[%d]", path, i), fmt.Sprintf("unknown role %q", roleID)))
		}
	}
	for i, roleID := range scope.ExcludeRoles {
		if _, ok := cfg.Roles[roleID]; !ok {
			errs = append(errs, errorAt(fmt.Sprintf("%s.excludeRoles[%d]", path, i), fmt.Sprintf("unknown role %q", roleID)))
		}
	}
	for i, expr := range scope.IncludePackages {
		if _, err := regexp.Compile(expr); err != nil {
			errs = append(errs, errorAt(fmt.Sprintf("%s.includePackages[%d]", path, i),
				fmt.Sprintf("invalid regular expression %q: %v", expr, err)))
		}
	}
	for i, expr := range scope.ExcludePackages {
		if _, err := regexp.Compile(expr); err != nil {
			errs = append(errs, errorAt(fmt.Sprintf("%s.excludePackages[%d]", path, i),
				fmt.Sprintf("invalid regular expression %q: %v", expr, err)))
		}
	}
	for i, g := range scope.IncludeGlobs {
		if strings.TrimSpace(g) == "" {
			errs = append(errs, errorAt(fmt.Sprintf("%s.includeGlobs[%d]", path, i), "blank glob"))
		}
	}
	for i, g := range scope.ExcludeGlobs {
		if strings.TrimSpace(g) == "" {
			errs = append(errs, errorAt(fmt.Sprintf("%s.excludeGlobs[%d]", path, i), "blank glob"))
		}
	}
	return errs
}

// validateExclusivePairs rejects configs where both sides of a
// mutually exclusive rule pair target the same role, directly or via
// a wildcard definition. One ERROR is emitted per overlapping role.
func validateExclusivePairs(cfg *Config) []ValidationError {
	var errs []ValidationError

	type target struct {
		path  string
		roles map[string]struct{}
	}
	byType := map[string][]target{}
	for i := range cfg.Rules {
		rule := &cfg.Rules[i]
		if !rule.IsEnabled() {
			continue
		}
		byType[rule.Type] = append(byType[rule.Type], target{
			path:  fmt.Sprintf("rules[%d]", i),
			roles: cfg.EffectiveRoleTargets(rule),
		})
	}

	for _, pair := range exclusiveRulePairs {
		for _, a := range byType[pair[0]] {
			for _, b := range byType[pair[1]] {
				var overlap []string
				for role := range a.roles {
					if _, ok := b.roles[role]; ok {
						overlap = append(overlap, role)
					}
				}
				sort.Strings(overlap)
				for _, role := range overlap {
					errs = append(errs, errorAt(a.path,
						fmt.Sprintf("rule %q and %q (at %s) both target role %q; the pair is mutually exclusive",
							pair[0], pair[1], b.path, role)))
				}
			}
		}
	}
	return errs
}

func validateExceptions(cfg *Config) []ValidationError {
	var errs []ValidationError
	for i := range cfg.Exceptions {
		exc := &cfg.Exceptions[i]
		path := fmt.Sprintf("exceptions[%d]", i)

		if strings.TrimSpace(exc.ID) == "" {
			errs = append(errs, errorAt(path+".id", "exception id must not be blank"))
		}
		if strings.TrimSpace(exc.Reason) == "" {
			errs = append(errs, errorAt(path+".reason", "a reason is required"))
		}
		if exc.Match.IsEmpty() {
			errs = append(errs, errorAt(path+".match", "at least one matcher field is required"))
		}
		if exc.Match.Role != "" {
			if _, ok := cfg.Roles[exc.Match.Role]; !ok {
				errs = append(errs, errorAt(path+".match.role", fmt.Sprintf("unknown role %q", exc.Match.Role)))
			}
		}
		if (exc.Match.RuleType == "") != (exc.Match.RuleName == "") {
			errs = append(errs, errorAt(path+".match", "ruleType and ruleName must both be present or both absent"))
		}
		for _, re := range []struct{ name, expr string }{
			{"packageRegex", exc.Match.PackageRegex},
			{"classRegex", exc.Match.ClassRegex},
			{"memberRegex", exc.Match.MemberRegex},
		} {
			if re.expr == "" {
				continue
			}
			if _, err := regexp.Compile(re.expr); err != nil {
				errs = append(errs, errorAt(path+".match."+re.name,
					fmt.Sprintf("invalid regular expression %q: %v", re.expr, err)))
			}
		}
		if exc.ExpiresOn != "" {
			if _, err := time.Parse("2006-01-02", exc.ExpiresOn); err != nil {
				errs = append(errs, errorAt(path+".expiresOn",
					fmt.Sprintf("invalid date %q (expected YYYY-MM-DD)", exc.ExpiresOn)))
			}
		}
	}
	return errs
}

func validateBaseline(b *BaselineConfig) []ValidationError {
	var errs []ValidationError
	switch b.Mode {
	case "", "none":
	case "use", "generate":
		if strings.TrimSpace(b.Path) == "" {
			errs = append(errs, errorAt("baseline.path",
				fmt.Sprintf("a baseline path is required for mode %q", b.Mode)))
		}
	default:
		errs = append(errs, errorAt("baseline.mode",
			fmt.Sprintf("unknown mode %q (expected none, use or generate)", b.Mode)))
	}
	return errs
}

func validateExport(e *ExportConfig) []ValidationError {
	var errs []ValidationError
	if !e.Enabled {
		return errs
	}
	if strings.TrimSpace(e.OutputDir) == "" {
		errs = append(errs, errorAt("export.outputDir", "an output directory is required when export is enabled"))
	}
	if len(e.Formats) == 0 {
		errs = append(errs, errorAt("export.formats", "at least one format is required when export is enabled"))
	}
	seen := map[string]struct{}{}
	for i, f := range e.Formats {
		switch f {
		case "json", "sarif", "xml", "html":
		default:
			errs = append(errs, errorAt(fmt.Sprintf("export.formats[%d]", i),
				fmt.Sprintf("unknown format %q (expected json, sarif, xml or html)", f)))
			continue
		}
		if _, dup := seen[f]; dup {
			errs = append(errs, errorAt(fmt.Sprintf("export.formats[%d]", i),
				fmt.Sprintf("duplicate format %q", f)))
		}
		seen[f] = struct{}{}
	}
	return errs
}

func validateAnalysis(a *Analysis) []ValidationError {
	var errs []ValidationError
	switch a.Graph.Granularity {
	case "", "class", "package", "module":
	default:
		errs = append(errs, errorAt("analysis.graph.granularity",
			fmt.Sprintf("unknown granularity %q (expected class, package or module)", a.Graph.Granularity)))
	}
	if a.Graph.MaxCyclesReported < 0 {
		errs = append(errs, errorAt("analysis.graph.maxCyclesReported", "must not be negative"))
	}
	if a.Graph.MaxCycleLength < 0 {
		errs = append(errs, errorAt("analysis.graph.maxCycleLength", "must not be negative"))
	}
	t := a.GodClass.Thresholds
	if t.Low != 0 || t.Medium != 0 || t.High != 0 || t.Critical != 0 {
		if !(t.Low <= t.Medium && t.Medium <= t.High && t.High <= t.Critical) {
			errs = append(errs, errorAt("analysis.godClass.thresholds",
				"thresholds must be monotonic: low <= medium <= high <= critical"))
		}
	}
	for name, w := range a.GodClass.Weights {
		if w < 0 {
			errs = append(errs, errorAt("analysis.godClass.weights."+name, "weight must not be negative"))
		}
	}
	return errs
}
