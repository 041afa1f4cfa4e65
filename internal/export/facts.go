package export

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/shamash-tools/shamash/internal/facts"
)

// StreamWriter writes the facts stream: a meta record, then one class
// record per class with its members, then the dependency edges. The
// index should be normalized so the stream is deterministic up to the
// meta record's run id and timestamp.
type StreamWriter struct {
	Tool        string
	ToolVersion string
	Project     string
	Gzip        bool

	// Now and RunID are overridable for reproducible output.
	Now   func() time.Time
	RunID func() string
}

func NewStreamWriter(tool, toolVersion, project string, gzipped bool) *StreamWriter {
	return &StreamWriter{
		Tool:        tool,
		ToolVersion: toolVersion,
		Project:     project,
		Gzip:        gzipped,
		Now:         time.Now,
		RunID:       uuid.NewString,
	}
}

// Write streams the index to w.
func (sw *StreamWriter) Write(w io.Writer, index *facts.Index) error {
	out := w
	var gz *gzip.Writer
	if sw.Gzip {
		gz = gzip.NewWriter(w)
		out = gz
	}
	enc := json.NewEncoder(out)

	meta := facts.StreamRecord{
		Record: facts.RecordMeta,
		Meta: &facts.StreamMeta{
			SchemaID:      facts.StreamSchemaID,
			SchemaVersion: facts.StreamSchemaVersion,
			Tool:          sw.Tool,
			ToolVersion:   sw.ToolVersion,
			GeneratedAt:   sw.Now().UTC().Format(time.RFC3339),
			RunID:         sw.RunID(),
			Project:       sw.Project,
		},
	}
	if err := enc.Encode(meta); err != nil {
		return err
	}

	for i := range index.Classes {
		class := &index.Classes[i]
		rec := facts.StreamRecord{
			Record:  facts.RecordClass,
			Class:   class,
			Methods: index.MethodsOf(class.FqName),
			Fields:  index.FieldsOf(class.FqName),
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	for i := range index.Dependencies {
		rec := facts.StreamRecord{
			Record: facts.RecordEdge,
			Edge:   &index.Dependencies[i],
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	// Self-loops live outside the dependency list but still carry
	// member references, so a round trip must not lose them.
	selfEdges := index.SelfDependencies()
	for i := range selfEdges {
		rec := facts.StreamRecord{
			Record: facts.RecordEdge,
			Edge:   &selfEdges[i],
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}

	if gz != nil {
		return gz.Close()
	}
	return nil
}
