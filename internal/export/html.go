package export

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/shamash-tools/shamash/internal/report"
)

// severityClass maps a severity to its CSS class in the report page.
func severityClass(s report.Severity) string {
	return "sev-" + strings.ToLower(string(s))
}

func add(a, b int) int {
	return a + b
}

var htmlTemplate = template.Must(template.New("report.html").
	Funcs(template.FuncMap{
		"add":           add,
		"severityClass": severityClass,
	}).
	Parse(reportPage))

type htmlModel struct {
	*report.ExportedReport
	Errors   int
	Warnings int
	Infos    int
}

// MarshalHTML renders the report as a self-contained styled document
// with a summary and a findings table, one row per finding in report
// order.
func MarshalHTML(rep *report.ExportedReport) ([]byte, error) {
	model := htmlModel{ExportedReport: rep}
	for i := range rep.Findings {
		switch rep.Findings[i].Severity {
		case report.SeverityError:
			model.Errors++
		case report.SeverityWarning:
			model.Warnings++
		default:
			model.Infos++
		}
	}
	var b bytes.Buffer
	if err := htmlTemplate.Execute(&b, model); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

const reportPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Tool}} report{{if .Project}} - {{.Project}}{{end}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 2em; color: #1d1d1f; }
h1 { font-size: 1.4em; }
.meta { color: #6e6e73; margin-bottom: 1.5em; }
.summary span { display: inline-block; margin-right: 1.5em; font-weight: 600; }
table { border-collapse: collapse; width: 100%; margin-top: 1em; }
th, td { text-align: left; padding: 6px 10px; border-bottom: 1px solid #d2d2d7; vertical-align: top; }
th { background: #f5f5f7; }
td.mono { font-family: ui-monospace, Menlo, monospace; font-size: 0.85em; }
.sev-error { color: #b3261e; font-weight: 600; }
.sev-warning { color: #8a6d00; font-weight: 600; }
.sev-info { color: #2a5db0; font-weight: 600; }
.data { color: #6e6e73; font-size: 0.85em; }
</style>
</head>
<body>
<h1>{{.Tool}} report{{if .Project}} - {{.Project}}{{end}}</h1>
<div class="meta">{{.Tool}} {{.ToolVersion}}, generated {{.GeneratedAt}}</div>
<div class="summary">
<span class="sev-error">{{.Errors}} errors</span>
<span class="sev-warning">{{.Warnings}} warnings</span>
<span class="sev-info">{{.Infos}} infos</span>
<span>{{len .Findings}} total</span>
</div>
<table>
<tr><th>#</th><th>Severity</th><th>Rule</th><th>Location</th><th>Message</th></tr>
{{range $i, $f := .Findings}}<tr>
<td>{{add $i 1}}</td>
<td class="{{severityClass $f.Severity}}">{{$f.Severity}}</td>
<td class="mono">{{$f.RuleID}}</td>
<td class="mono">{{$f.FilePath}}{{if $f.ClassFqn}}<br>{{$f.ClassFqn}}{{if $f.MemberName}}#{{$f.MemberName}}{{end}}{{end}}</td>
<td>{{$f.Message}}{{if $f.Data}}<div class="data">{{range $k, $v := $f.Data}}{{$k}}={{$v}} {{end}}</div>{{end}}</td>
</tr>
{{end}}</table>
</body>
</html>
`
