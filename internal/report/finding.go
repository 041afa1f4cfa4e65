package report

// Severity of a finding. The rank order (ERROR < WARNING < INFO) is
// part of the deterministic report sort.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// SeverityRank maps a severity to its sort rank. Unknown severities
// sort after INFO.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

// Finding is a single rule violation. Once emitted by a rule it is
// never mutated in place; the report builder normalizes copies.
type Finding struct {
	RuleID      string            `json:"rule_id"`
	Message     string            `json:"message"`
	FilePath    string            `json:"file_path,omitempty"`
	Severity    Severity          `json:"severity"`
	ClassFqn    string            `json:"class_fqn,omitempty"`
	MemberName  string            `json:"member_name,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
	StartOffset *int              `json:"start_offset,omitempty"`
	EndOffset   *int              `json:"end_offset,omitempty"`
}

// ExportedFinding is a normalized finding plus its stable content
// fingerprint used for baseline comparison.
type ExportedFinding struct {
	Finding
	Fingerprint string `json:"fingerprint"`
}

// ExportedReport is the canonical report model consumed by every
// exporter. Exporters are read-only over it and must all reflect the
// exact same finding set and order.
type ExportedReport struct {
	Tool        string            `json:"tool"`
	ToolVersion string            `json:"tool_version"`
	Project     string            `json:"project,omitempty"`
	GeneratedAt string            `json:"generated_at"`
	Findings    []ExportedFinding `json:"findings"`
}
