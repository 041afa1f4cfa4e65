package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/go-hclog"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/report"
	"github.com/shamash-tools/shamash/pkg/shared/files"
)

// Report export formats. Every exporter is read-only over the
// canonical report and reflects the exact same finding set and order.
const (
	FormatJSON  = "json"
	FormatSARIF = "sarif"
	FormatXML   = "xml"
	FormatHTML  = "html"
)

var formatFileNames = map[string]string{
	FormatJSON:  "report.json",
	FormatSARIF: "report.sarif",
	FormatXML:   "report.xml",
	FormatHTML:  "report.html",
}

// WriteAll writes the report in each configured format under the
// export output directory. The directory is created up front so an
// I/O failure never leaves a half-written file looking valid.
func WriteAll(rep *report.ExportedReport, cfg config.ExportConfig, basePath string, logger hclog.Logger) error {
	if !cfg.Enabled || len(cfg.Formats) == 0 {
		return nil
	}
	outDir := cfg.OutputDir
	if outDir == "" {
		outDir = "shamash-reports"
	}
	if !filepath.IsAbs(outDir) && basePath != "" {
		resolved, err := files.EnsureWithinRoot(basePath, filepath.Join(basePath, outDir))
		if err != nil {
			return fmt.Errorf("export output dir: %w", err)
		}
		outDir = resolved
	}
	if err := files.CreateFolderIfNotExists(outDir); err != nil {
		return err
	}

	formats := dedupeFormats(cfg.Formats)
	for _, format := range formats {
		name, ok := formatFileNames[format]
		if !ok {
			return fmt.Errorf("unknown export format %q", format)
		}
		path := filepath.Join(outDir, name)
		if err := writeFormat(rep, format, path); err != nil {
			return fmt.Errorf("exporting %s: %w", format, err)
		}
		logger.Info("report exported", "format", format, "path", path)
	}
	return nil
}

func writeFormat(rep *report.ExportedReport, format, path string) error {
	var data []byte
	var err error
	switch format {
	case FormatJSON:
		data, err = MarshalJSON(rep)
	case FormatSARIF:
		data, err = MarshalSARIF(rep)
	case FormatXML:
		data, err = MarshalXML(rep)
	case FormatHTML:
		data, err = MarshalHTML(rep)
	}
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// writeAtomic writes to a temp file in the target directory and
// renames it into place, so readers never observe partial output.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func dedupeFormats(formats []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, f := range formats {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
