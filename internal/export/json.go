package export

import (
	"bytes"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/shamash-tools/shamash/internal/report"
)

// MarshalJSON renders the report with a hand-rolled writer so the
// field order is stable across Go versions and struct changes. Output
// is UTF-8, two-space indented.
func MarshalJSON(rep *report.ExportedReport) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("{\n")
	writeField(&b, 1, "tool", rep.Tool, true)
	writeField(&b, 1, "tool_version", rep.ToolVersion, true)
	writeField(&b, 1, "project", rep.Project, true)
	writeField(&b, 1, "generated_at", rep.GeneratedAt, true)
	indent(&b, 1)
	b.WriteString(`"findings": [`)
	for i := range rep.Findings {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
		writeFinding(&b, &rep.Findings[i])
	}
	if len(rep.Findings) > 0 {
		b.WriteByte('\n')
		indent(&b, 1)
	}
	b.WriteString("]\n}\n")
	return b.Bytes(), nil
}

func writeFinding(b *bytes.Buffer, f *report.ExportedFinding) {
	indent(b, 2)
	b.WriteString("{\n")
	writeField(b, 3, "rule_id", f.RuleID, true)
	writeField(b, 3, "severity", string(f.Severity), true)
	writeField(b, 3, "message", f.Message, true)
	writeField(b, 3, "file_path", f.FilePath, true)
	writeField(b, 3, "class_fqn", f.ClassFqn, true)
	writeField(b, 3, "member_name", f.MemberName, true)
	if f.StartOffset != nil {
		indent(b, 3)
		b.WriteString(`"start_offset": ` + strconv.Itoa(*f.StartOffset) + ",\n")
	}
	if f.EndOffset != nil {
		indent(b, 3)
		b.WriteString(`"end_offset": ` + strconv.Itoa(*f.EndOffset) + ",\n")
	}
	if len(f.Data) > 0 {
		indent(b, 3)
		b.WriteString("\"data\": {\n")
		keys := sortedKeys(f.Data)
		for i, k := range keys {
			writeField(b, 4, k, f.Data[k], i < len(keys)-1)
		}
		indent(b, 3)
		b.WriteString("},\n")
	}
	writeField(b, 3, "fingerprint", f.Fingerprint, false)
	indent(b, 2)
	b.WriteByte('}')
}

func writeField(b *bytes.Buffer, depth int, key, value string, comma bool) {
	indent(b, depth)
	writeJSONString(b, key)
	b.WriteString(": ")
	writeJSONString(b, value)
	if comma {
		b.WriteByte(',')
	}
	b.WriteByte('\n')
}

func indent(b *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// writeJSONString escapes per RFC 8259: quote, backslash and control
// characters, with invalid UTF-8 replaced.
func writeJSONString(b *bytes.Buffer, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				b.WriteString(`\u00`)
				const hex = "0123456789abcdef"
				b.WriteByte(hex[r>>4])
				b.WriteByte(hex[r&0xf])
			} else if r == utf8.RuneError {
				b.WriteString(`�`)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}
