package export

import (
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/report"
)

func sampleReport() *report.ExportedReport {
	offset := 120
	return &report.ExportedReport{
		Tool:        "shamash",
		ToolVersion: "1.0.0",
		Project:     "acme",
		GeneratedAt: "2026-01-02T03:04:05Z",
		Findings: []report.ExportedFinding{
			{
				Finding: report.Finding{
					RuleID:      "graph.noCycles",
					Severity:    report.SeverityError,
					Message:     "dependency cycle: com.acme.A -> com.acme.B -> com.acme.A",
					FilePath:    "src/A.java",
					ClassFqn:    "com.acme.A",
					StartOffset: &offset,
					Data:        map[string]string{"cycleCount": "1", "cycle": "com.acme.A -> com.acme.B -> com.acme.A"},
				},
				Fingerprint: "aaaa1111",
			},
			{
				Finding: report.Finding{
					RuleID:     "deadcode.unusedPrivate",
					Severity:   report.SeverityInfo,
					Message:    `private method "helper" is never used`,
					FilePath:   "src/B.java",
					ClassFqn:   "com.acme.B",
					MemberName: "helper",
				},
				Fingerprint: "bbbb2222",
			},
		},
	}
}

func TestMarshalJSONRoundTripsThroughStdlib(t *testing.T) {
	rep := sampleReport()
	data, err := MarshalJSON(rep)
	require.NoError(t, err)

	var decoded report.ExportedReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *rep, decoded)
}

func TestMarshalJSONIsStable(t *testing.T) {
	first, err := MarshalJSON(sampleReport())
	require.NoError(t, err)
	second, err := MarshalJSON(sampleReport())
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestMarshalJSONEscapesStrings(t *testing.T) {
	rep := sampleReport()
	data, err := MarshalJSON(rep)
	require.NoError(t, err)
	assert.Contains(t, string(data), `\"helper\"`)
}

func TestMarshalJSONEmptyFindings(t *testing.T) {
	rep := sampleReport()
	rep.Findings = nil
	data, err := MarshalJSON(rep)
	require.NoError(t, err)

	var decoded report.ExportedReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Empty(t, decoded.Findings)
}

func TestMarshalSARIF(t *testing.T) {
	data, err := MarshalSARIF(sampleReport())
	require.NoError(t, err)

	var doc struct {
		Version string `json:"version"`
		Runs    []struct {
			Tool struct {
				Driver struct {
					Name    string `json:"name"`
					Version string `json:"version"`
					Rules   []struct {
						ID string `json:"id"`
					} `json:"rules"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID  string `json:"ruleId"`
				Level   string `json:"level"`
				Message struct {
					Text string `json:"text"`
				} `json:"message"`
				PartialFingerprints map[string]string `json:"partialFingerprints"`
			} `json:"results"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "2.1.0", doc.Version)
	require.Len(t, doc.Runs, 1)
	run := doc.Runs[0]
	assert.Equal(t, "shamash", run.Tool.Driver.Name)
	assert.Equal(t, "1.0.0", run.Tool.Driver.Version)
	assert.Len(t, run.Tool.Driver.Rules, 2)

	require.Len(t, run.Results, 2)
	assert.Equal(t, "graph.noCycles", run.Results[0].RuleID)
	assert.Equal(t, "error", run.Results[0].Level)
	assert.Equal(t, "note", run.Results[1].Level)
	assert.Equal(t, "aaaa1111", run.Results[0].PartialFingerprints["shamash/v1"])
}

func TestMarshalXML(t *testing.T) {
	data, err := MarshalXML(sampleReport())
	require.NoError(t, err)

	var doc struct {
		XMLName  xml.Name `xml:"report"`
		Tool     string   `xml:"tool,attr"`
		Findings []struct {
			RuleID      string `xml:"ruleId,attr"`
			Severity    string `xml:"severity,attr"`
			Fingerprint string `xml:"fingerprint,attr"`
			Message     string `xml:"message"`
			FilePath    string `xml:"filePath"`
		} `xml:"finding"`
	}
	require.NoError(t, xml.Unmarshal(data, &doc))

	assert.Equal(t, "shamash", doc.Tool)
	require.Len(t, doc.Findings, 2)
	assert.Equal(t, "graph.noCycles", doc.Findings[0].RuleID)
	assert.Equal(t, "ERROR", doc.Findings[0].Severity)
	assert.Equal(t, "src/A.java", doc.Findings[0].FilePath)
}

func TestMarshalHTML(t *testing.T) {
	data, err := MarshalHTML(sampleReport())
	require.NoError(t, err)
	html := string(data)

	assert.Contains(t, html, "graph.noCycles")
	assert.Contains(t, html, "com.acme.B")
	// Template escaping must neutralize markup in messages.
	assert.Contains(t, html, "&#34;helper&#34;")
}

func TestWriteAllCreatesEveryFormat(t *testing.T) {
	dir := t.TempDir()
	cfg := config.ExportConfig{
		Enabled:   true,
		OutputDir: "reports",
		Formats:   []string{"json", "sarif", "xml", "html", "json"},
	}

	err := WriteAll(sampleReport(), cfg, dir, hclog.NewNullLogger())
	require.NoError(t, err)

	for _, name := range []string{"report.json", "report.sarif", "report.xml", "report.html"} {
		info, statErr := os.Stat(filepath.Join(dir, "reports", name))
		require.NoError(t, statErr, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}
}

func TestWriteAllDisabledDoesNothing(t *testing.T) {
	dir := t.TempDir()
	cfg := config.ExportConfig{Enabled: false, Formats: []string{"json"}}

	require.NoError(t, WriteAll(sampleReport(), cfg, dir, hclog.NewNullLogger()))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteAllRejectsEscapingOutputDir(t *testing.T) {
	dir := t.TempDir()
	cfg := config.ExportConfig{
		Enabled:   true,
		OutputDir: filepath.Join("..", "outside"),
		Formats:   []string{"json"},
	}

	err := WriteAll(sampleReport(), cfg, dir, hclog.NewNullLogger())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "output dir"))
}
