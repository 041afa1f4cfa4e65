package export

import (
	"bytes"
	"encoding/xml"
	"sort"

	"github.com/shamash-tools/shamash/internal/report"
)

type xmlReport struct {
	XMLName     xml.Name     `xml:"report"`
	Tool        string       `xml:"tool,attr"`
	ToolVersion string       `xml:"toolVersion,attr"`
	Project     string       `xml:"project,attr,omitempty"`
	GeneratedAt string       `xml:"generatedAt,attr"`
	Findings    []xmlFinding `xml:"finding"`
}

type xmlFinding struct {
	RuleID      string         `xml:"ruleId,attr"`
	Severity    string         `xml:"severity,attr"`
	Fingerprint string         `xml:"fingerprint,attr"`
	Message     string         `xml:"message"`
	FilePath    string         `xml:"filePath,omitempty"`
	ClassFqn    string         `xml:"classFqn,omitempty"`
	MemberName  string         `xml:"memberName,omitempty"`
	StartOffset *int           `xml:"startOffset,omitempty"`
	EndOffset   *int           `xml:"endOffset,omitempty"`
	Data        []xmlDataEntry `xml:"data>entry,omitempty"`
}

type xmlDataEntry struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// MarshalXML renders the report as XML with findings in report order
// and data entries sorted by key.
func MarshalXML(rep *report.ExportedReport) ([]byte, error) {
	out := xmlReport{
		Tool:        rep.Tool,
		ToolVersion: rep.ToolVersion,
		Project:     rep.Project,
		GeneratedAt: rep.GeneratedAt,
	}
	for i := range rep.Findings {
		f := &rep.Findings[i]
		xf := xmlFinding{
			RuleID:      f.RuleID,
			Severity:    string(f.Severity),
			Fingerprint: f.Fingerprint,
			Message:     f.Message,
			FilePath:    f.FilePath,
			ClassFqn:    f.ClassFqn,
			MemberName:  f.MemberName,
			StartOffset: f.StartOffset,
			EndOffset:   f.EndOffset,
		}
		keys := make([]string, 0, len(f.Data))
		for k := range f.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			xf.Data = append(xf.Data, xmlDataEntry{Key: k, Value: f.Data[k]})
		}
		out.Findings = append(out.Findings, xf)
	}

	var b bytes.Buffer
	b.WriteString(xml.Header)
	enc := xml.NewEncoder(&b)
	enc.Indent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
