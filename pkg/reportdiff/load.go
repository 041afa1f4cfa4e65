package reportdiff

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shamash-tools/shamash/internal/report"
)

// LoadReport reads a JSON report produced by the json exporter.
func LoadReport(path string) (*report.ExportedReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rep report.ExportedReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parsing report %q: %w", path, err)
	}
	return &rep, nil
}
