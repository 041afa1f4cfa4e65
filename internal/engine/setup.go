package engine

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/extractor"
)

// ExtractIndex runs the stream-decoding extractor over the project.
// factsFiles, when non-empty, replaces the configured bytecode roots
// with explicit facts files.
func ExtractIndex(ctx context.Context, cfg *config.Config, factsFiles []string, logger hclog.Logger) (*extractor.Result, error) {
	var provider extractor.Provider
	if len(factsFiles) > 0 {
		provider = extractor.NewFileProvider(factsFiles)
	} else {
		provider = extractor.NewFSProvider(cfg.Project)
	}

	maxClasses := 0
	if cfg.Project.MaxClasses != nil {
		maxClasses = *cfg.Project.MaxClasses
	}
	ex := extractor.New(provider, extractor.NewStreamDecoder(), maxClasses, logger)
	return ex.Extract(ctx)
}
