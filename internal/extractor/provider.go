package extractor

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shamash-tools/shamash/internal/config"
)

// fileUnit is one facts file on disk. The stamp folds in size and
// modification time so an unchanged file decodes from cache.
type fileUnit struct {
	path    string // absolute
	relPath string // relative to the project base, forward slashes
	size    int64
	modTime int64
}

func (u *fileUnit) ID() string { return u.relPath }

func (u *fileUnit) Stamp() string {
	return fmt.Sprintf("%s|%d|%d", u.path, u.size, u.modTime)
}

func (u *fileUnit) Open() (io.ReadCloser, error) {
	return os.Open(u.path)
}

// FSProvider walks project.bytecodeRoots for facts files, honoring
// the include/exclude globs and per-file size limits of the project
// section. Roots are resolved against project.basePath.
type FSProvider struct {
	project config.Project
}

func NewFSProvider(project config.Project) *FSProvider {
	return &FSProvider{project: project}
}

// Default extensions picked up when the project declares no include
// globs.
var factsExtensions = []string{".facts", ".facts.gz", ".ndjson", ".ndjson.gz", ".jsonl", ".jsonl.gz"}

// Units walks every configured root. Unreadable entries and files over
// the configured size limits become extraction errors; the walk itself
// continues.
func (p *FSProvider) Units(ctx context.Context) ([]Unit, []ExtractionError, error) {
	var units []Unit
	var errs []ExtractionError

	roots := p.project.BytecodeRoots
	if len(roots) == 0 {
		roots = []string{"."}
	}
	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		full := root
		if !filepath.IsAbs(full) && p.project.BasePath != "" {
			full = filepath.Join(p.project.BasePath, root)
		}
		walkErr := filepath.WalkDir(full, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				errs = append(errs, ExtractionError{
					File:    filepath.ToSlash(path),
					Phase:   "walk",
					Message: err.Error(),
				})
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			unit, unitErr := p.examine(path, d)
			if unitErr != nil {
				errs = append(errs, *unitErr)
			}
			if unit != nil {
				units = append(units, unit)
			}
			return nil
		})
		if walkErr != nil {
			return nil, nil, fmt.Errorf("walking %s: %w", root, walkErr)
		}
	}

	sort.Slice(units, func(i, j int) bool {
		return units[i].ID() < units[j].ID()
	})
	return units, errs, nil
}

// examine decides whether one file is a unit. Returns (nil, nil) for
// files that simply don't match, and an error entry for files that
// should have been scanned but can't be.
func (p *FSProvider) examine(path string, d fs.DirEntry) (Unit, *ExtractionError) {
	rel := p.relativize(path)
	if !p.selected(rel) {
		return nil, nil
	}
	info, err := d.Info()
	if err != nil {
		return nil, &ExtractionError{File: rel, Phase: "stat", Message: err.Error()}
	}

	limit := p.project.MaxClassBytes
	if strings.HasSuffix(rel, ".gz") {
		limit = p.project.MaxJarBytes
	}
	if limit != nil && info.Size() > *limit {
		return nil, &ExtractionError{
			File:    rel,
			Phase:   "limit",
			Message: fmt.Sprintf("file is %d bytes, limit is %d", info.Size(), *limit),
		}
	}
	return &fileUnit{
		path:    path,
		relPath: rel,
		size:    info.Size(),
		modTime: info.ModTime().UnixNano(),
	}, nil
}

func (p *FSProvider) relativize(path string) string {
	if p.project.BasePath != "" {
		if rel, err := filepath.Rel(p.project.BasePath, path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(path)
}

// selected applies the include/exclude globs. Without include globs,
// files with a known facts extension are picked up.
func (p *FSProvider) selected(rel string) bool {
	for _, g := range p.project.Exclude {
		if pathGlobMatch(g, rel) {
			return false
		}
	}
	if len(p.project.Include) > 0 {
		for _, g := range p.project.Include {
			if pathGlobMatch(g, rel) {
				return true
			}
		}
		return false
	}
	for _, ext := range factsExtensions {
		if strings.HasSuffix(rel, ext) {
			return true
		}
	}
	return false
}

// FileProvider serves an explicit list of facts files, bypassing the
// project walk and its filters.
type FileProvider struct {
	paths []string
}

func NewFileProvider(paths []string) *FileProvider {
	return &FileProvider{paths: paths}
}

func (p *FileProvider) Units(ctx context.Context) ([]Unit, []ExtractionError, error) {
	var units []Unit
	var errs []ExtractionError
	for _, path := range p.paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		rel := filepath.ToSlash(path)
		info, err := os.Stat(path)
		if err != nil {
			errs = append(errs, ExtractionError{File: rel, Phase: "stat", Message: err.Error()})
			continue
		}
		units = append(units, &fileUnit{
			path:    path,
			relPath: rel,
			size:    info.Size(),
			modTime: info.ModTime().UnixNano(),
		})
	}
	sort.Slice(units, func(i, j int) bool {
		return units[i].ID() < units[j].ID()
	})
	return units, errs, nil
}

// pathGlobMatch matches a forward-slashed path against a glob,
// supporting the trailing "/**" subtree form.
func pathGlobMatch(pattern, path string) bool {
	if ok, err := filepath.Match(pattern, path); err == nil && ok {
		return true
	}
	const doubleStar = "/**"
	if strings.HasSuffix(pattern, doubleStar) {
		prefix := strings.TrimSuffix(pattern, doubleStar)
		return strings.HasPrefix(path, prefix+"/")
	}
	return false
}
