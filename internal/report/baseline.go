package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// BaselineMode controls how the baseline file is used during a scan.
type BaselineMode string

const (
	BaselineNone     BaselineMode = "none"
	BaselineUse      BaselineMode = "use"
	BaselineGenerate BaselineMode = "generate"
)

const baselineVersion = 1

// Baseline is a persisted set of finding fingerprints. Findings whose
// fingerprint is present are considered previously accepted.
type Baseline struct {
	Version      int      `json:"version"`
	Fingerprints []string `json:"fingerprints"`

	set map[string]struct{}
}

// NewBaseline builds a baseline from a fingerprint set.
func NewBaseline(fingerprints []string) *Baseline {
	b := &Baseline{Version: baselineVersion}
	b.set = make(map[string]struct{}, len(fingerprints))
	for _, fp := range fingerprints {
		b.set[fp] = struct{}{}
	}
	b.refresh()
	return b
}

func (b *Baseline) refresh() {
	b.Fingerprints = b.Fingerprints[:0]
	for fp := range b.set {
		b.Fingerprints = append(b.Fingerprints, fp)
	}
	sort.Strings(b.Fingerprints)
}

// Contains reports whether the fingerprint is part of the baseline.
func (b *Baseline) Contains(fingerprint string) bool {
	_, ok := b.set[fingerprint]
	return ok
}

// Merge unions the other baseline into this one.
func (b *Baseline) Merge(other *Baseline) {
	if other == nil {
		return
	}
	for fp := range other.set {
		b.set[fp] = struct{}{}
	}
	b.refresh()
}

// LoadBaseline reads a baseline file from disk.
func LoadBaseline(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline %q: %w", path, err)
	}
	var raw Baseline
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse baseline %q: %w", path, err)
	}
	if raw.Version != baselineVersion {
		return nil, fmt.Errorf("unsupported baseline version %d in %q", raw.Version, path)
	}
	return NewBaseline(raw.Fingerprints), nil
}

// Save writes the baseline atomically: the content goes to a temp file
// in the target directory first, then replaces the destination, so a
// failed write never leaves a half-valid baseline behind.
func (b *Baseline) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create baseline directory %q: %w", dir, err)
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode baseline: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".baseline-*")
	if err != nil {
		return fmt.Errorf("failed to create temp baseline file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write baseline: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close baseline file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move baseline into place: %w", err)
	}
	return nil
}

// GenerateBaseline computes the fingerprint set of the given findings,
// optionally merged (union) with an existing baseline file.
func GenerateBaseline(findings []Finding, basePath, path string, merge bool) (*Baseline, error) {
	fps := make([]string, 0, len(findings))
	for _, f := range findings {
		fps = append(fps, Fingerprint(NormalizeFinding(f, basePath)))
	}
	b := NewBaseline(fps)
	if merge {
		existing, err := LoadBaseline(path)
		if err == nil {
			b.Merge(existing)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	return b, nil
}

// baselinePreprocessor drops findings already present in the baseline.
type baselinePreprocessor struct {
	baseline *Baseline
	basePath string
}

// NewBaselinePreprocessor returns a preprocessor implementing baseline
// USE mode: any finding whose fingerprint is already persisted is
// suppressed.
func NewBaselinePreprocessor(baseline *Baseline, basePath string) Preprocessor {
	return &baselinePreprocessor{baseline: baseline, basePath: basePath}
}

func (p *baselinePreprocessor) Name() string { return "baseline" }

func (p *baselinePreprocessor) Process(findings []Finding) []Finding {
	if p.baseline == nil {
		return findings
	}
	kept := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if p.baseline.Contains(Fingerprint(NormalizeFinding(f, p.basePath))) {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}
