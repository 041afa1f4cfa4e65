package facts

// Facts stream format: line-delimited JSON records, optionally
// gzip-compressed. The first record is a meta record identifying the
// schema; class and edge records follow in any interleaving, so a
// consumer can process the stream without holding the whole graph.
const (
	StreamSchemaID      = "shamash.facts"
	StreamSchemaVersion = 1

	RecordMeta  = "meta"
	RecordClass = "class"
	RecordEdge  = "edge"
)

// StreamMeta is the leading record of a facts stream.
type StreamMeta struct {
	SchemaID      string `json:"schemaId"`
	SchemaVersion int    `json:"schemaVersion"`
	Tool          string `json:"tool"`
	ToolVersion   string `json:"toolVersion"`
	GeneratedAt   string `json:"generatedAt"`
	RunID         string `json:"runId"`
	Project       string `json:"project"`
}

// StreamRecord is one line of the facts stream. Record selects which
// of the payload fields is set. Class records carry the class together
// with its methods and fields so member facts never precede their
// owner.
type StreamRecord struct {
	Record  string          `json:"record"`
	Meta    *StreamMeta     `json:"meta,omitempty"`
	Class   *ClassFact      `json:"class,omitempty"`
	Methods []MethodFact    `json:"methods,omitempty"`
	Fields  []FieldFact     `json:"fields,omitempty"`
	Edge    *DependencyFact `json:"edge,omitempty"`
}
