package extractor

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"

	"github.com/shamash-tools/shamash/internal/facts"
)

// Unit is one independently-decodable input, typically a facts-stream
// file. Stamp changes whenever the content may have changed, so it
// keys the decode cache.
type Unit interface {
	ID() string
	Stamp() string
	Open() (io.ReadCloser, error)
}

// Provider enumerates the units of a scan. Per-unit problems found
// during enumeration (unreadable files, size-limit violations) are
// returned as extraction errors next to the usable units.
type Provider interface {
	Units(ctx context.Context) ([]Unit, []ExtractionError, error)
}

// Decoder turns one unit into facts. The stream decoder is the
// concrete implementation shipped with the CLI; embedding hosts plug
// their own bytecode or PSI-backed decoders.
type Decoder interface {
	Decode(unit Unit) (*facts.Index, error)
}

// ExtractionError records a per-unit extraction failure. The scan
// continues with the facts extracted from the remaining units.
type ExtractionError struct {
	File      string `json:"file"`
	Phase     string `json:"phase"`
	Message   string `json:"message"`
	Exception string `json:"exception,omitempty"`
}

func (e ExtractionError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.File, e.Phase, e.Message)
}

// Result is the outcome of one extraction pass: the merged normalized
// index plus whatever went wrong along the way.
type Result struct {
	Index     *facts.Index
	Errors    []ExtractionError
	Units     int
	CacheHits int
}

type Extractor struct {
	provider   Provider
	decoder    Decoder
	maxClasses int
	logger     hclog.Logger
	cache      map[string]*facts.Index
}

// New creates an extractor. maxClasses caps the merged class count,
// zero means unlimited. The decode cache lives as long as the
// extractor, so reusing one across scans skips unchanged units.
func New(provider Provider, decoder Decoder, maxClasses int, logger hclog.Logger) *Extractor {
	return &Extractor{
		provider:   provider,
		decoder:    decoder,
		maxClasses: maxClasses,
		logger:     logger,
		cache:      map[string]*facts.Index{},
	}
}

// Extract enumerates units, decodes each in isolation and merges the
// facts. One bad unit costs one ExtractionError, not the scan. The
// context is checked between units.
func (e *Extractor) Extract(ctx context.Context) (*Result, error) {
	units, unitErrs, err := e.provider.Units(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerating units: %w", err)
	}

	result := &Result{
		Index:  facts.NewIndex(),
		Errors: unitErrs,
		Units:  len(units),
	}
	for _, unit := range units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.maxClasses > 0 && len(result.Index.Classes) >= e.maxClasses {
			result.Errors = append(result.Errors, ExtractionError{
				File:    unit.ID(),
				Phase:   "limit",
				Message: fmt.Sprintf("class limit %d reached, remaining units skipped", e.maxClasses),
			})
			break
		}

		stamp := unit.Stamp()
		index, ok := e.cache[stamp]
		if ok {
			result.CacheHits++
		} else {
			index, err = e.decoder.Decode(unit)
			if err != nil {
				e.logger.Debug("unit decode failed", "unit", unit.ID(), "error", err)
				result.Errors = append(result.Errors, ExtractionError{
					File:      unit.ID(),
					Phase:     "decode",
					Message:   err.Error(),
					Exception: fmt.Sprintf("%T", err),
				})
				continue
			}
			e.cache[stamp] = index
		}
		result.Index.Merge(index)
	}

	result.Index.Normalize()
	e.logger.Debug("extraction finished",
		"units", result.Units,
		"classes", len(result.Index.Classes),
		"edges", len(result.Index.Dependencies),
		"errors", len(result.Errors),
		"cacheHits", result.CacheHits)
	return result, nil
}
