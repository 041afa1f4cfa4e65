package extractor

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shamash-tools/shamash/internal/facts"
)

// maxStreamLine bounds one stream record; a class record with many
// members stays well below this.
const maxStreamLine = 4 * 1024 * 1024

// StreamDecoder reads the shamash facts stream. It is the concrete
// decoder shipped with the CLI; hosts with direct bytecode or PSI
// access provide their own Decoder instead.
type StreamDecoder struct{}

func NewStreamDecoder() *StreamDecoder { return &StreamDecoder{} }

// Decode parses one unit into an index. The stream must start with a
// meta record naming a supported schema; any malformed line fails the
// whole unit, the extractor isolates the failure.
func (d *StreamDecoder) Decode(unit Unit) (*facts.Index, error) {
	rc, err := unit.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	reader, err := maybeGunzip(rc)
	if err != nil {
		return nil, err
	}

	index := facts.NewIndex()
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), maxStreamLine)

	sawMeta := false
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec facts.StreamRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if !sawMeta {
			if rec.Record != facts.RecordMeta || rec.Meta == nil {
				return nil, fmt.Errorf("line %d: expected meta record, got %q", lineNo, rec.Record)
			}
			if rec.Meta.SchemaID != facts.StreamSchemaID {
				return nil, fmt.Errorf("unsupported schema %q", rec.Meta.SchemaID)
			}
			if rec.Meta.SchemaVersion != facts.StreamSchemaVersion {
				return nil, fmt.Errorf("unsupported schema version %d", rec.Meta.SchemaVersion)
			}
			sawMeta = true
			continue
		}
		switch rec.Record {
		case facts.RecordClass:
			if rec.Class == nil {
				return nil, fmt.Errorf("line %d: class record without class", lineNo)
			}
			index.Classes = append(index.Classes, *rec.Class)
			index.Methods = append(index.Methods, rec.Methods...)
			index.Fields = append(index.Fields, rec.Fields...)
		case facts.RecordEdge:
			if rec.Edge == nil {
				return nil, fmt.Errorf("line %d: edge record without edge", lineNo)
			}
			index.Dependencies = append(index.Dependencies, *rec.Edge)
		case facts.RecordMeta:
			return nil, fmt.Errorf("line %d: duplicate meta record", lineNo)
		default:
			return nil, fmt.Errorf("line %d: unknown record type %q", lineNo, rec.Record)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sawMeta {
		return nil, fmt.Errorf("stream has no meta record")
	}
	return index, nil
}

// maybeGunzip sniffs the gzip magic bytes and wraps the reader when
// present, so plain and compressed streams decode the same way.
func maybeGunzip(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil {
		if err == io.EOF {
			return br, nil
		}
		return nil, err
	}
	if magic[0] == 0x1f && magic[1] == 0x8b {
		return gzip.NewReader(br)
	}
	return br, nil
}
