package export

import (
	"bytes"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/shamash-tools/shamash/internal/report"
)

const informationURI = "https://github.com/shamash-tools/shamash"

// MarshalSARIF renders the report as SARIF 2.1.0: a single run, one
// rule descriptor per distinct rule id, one result per finding in
// report order.
func MarshalSARIF(rep *report.ExportedReport) ([]byte, error) {
	doc, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, err
	}
	run := sarif.NewRunWithInformationURI(rep.Tool, informationURI)
	if rep.ToolVersion != "" {
		version := rep.ToolVersion
		run.Tool.Driver.Version = &version
	}

	seenRules := map[string]struct{}{}
	for i := range rep.Findings {
		f := &rep.Findings[i]
		if _, ok := seenRules[f.RuleID]; !ok {
			seenRules[f.RuleID] = struct{}{}
			run.AddRule(f.RuleID).WithDescription(f.RuleID)
		}

		result := run.CreateResultForRule(f.RuleID).
			WithLevel(sarifLevel(f.Severity)).
			WithMessage(sarif.NewTextMessage(f.Message))
		if f.FilePath != "" {
			physical := sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewSimpleArtifactLocation(f.FilePath))
			if f.StartOffset != nil {
				region := sarif.NewRegion().WithCharOffset(*f.StartOffset)
				if f.EndOffset != nil && *f.EndOffset >= *f.StartOffset {
					region.WithCharLength(*f.EndOffset - *f.StartOffset)
				}
				physical.WithRegion(region)
			}
			result.AddLocation(sarif.NewLocationWithPhysicalLocation(physical))
		}
		result.PartialFingerprints = map[string]interface{}{
			"shamash/v1": f.Fingerprint,
		}
	}
	doc.AddRun(run)

	var b bytes.Buffer
	if err := doc.PrettyWrite(&b); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func sarifLevel(s report.Severity) string {
	switch s {
	case report.SeverityError:
		return "error"
	case report.SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}
