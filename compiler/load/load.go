// Package load implements the metadata extraction pass: it loads the
// extension's Go packages, walks their //pgmantle: directives and
// produces the entity list the graph builder consumes.
//
// Extraction is an explicit two-phase design. Phase one parses the
// annotated source; phase two hands the resulting list directly to
// sqlgen.Build. No process-wide registry is involved, so visibility of
// an entity depends only on its package being part of the load
// patterns.
package load

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"

	"golang.org/x/tools/go/packages"

	"github.com/pgmantle/pgmantle/entity"
)

// Config controls one extraction run.
type Config struct {
	// Dir is the working directory for package resolution.
	Dir string
	// Patterns are go/packages load patterns, e.g. "./...".
	Patterns []string
	// BuildFlags are passed through to the build system.
	BuildFlags []string
	// CacheDir enables the per-file extraction cache when non-empty.
	CacheDir string
}

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedSyntax

// Load extracts entities from every package matched by the config
// patterns, in deterministic package-then-file order.
func Load(ctx context.Context, cfg Config) ([]entity.Entity, error) {
	pkgs, err := packages.Load(&packages.Config{
		Context:    ctx,
		Mode:       loadMode,
		Dir:        cfg.Dir,
		BuildFlags: cfg.BuildFlags,
	}, cfg.Patterns...)
	if err != nil {
		return nil, fmt.Errorf("pgmantle: loading packages: %w", err)
	}
	var cache *extractCache
	if cfg.CacheDir != "" {
		cache = newExtractCache(cfg.CacheDir)
	}

	var out []entity.Entity
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return nil, fmt.Errorf("pgmantle: package %s: %v", pkg.PkgPath, pkg.Errors[0])
		}
		for i, f := range pkg.Syntax {
			file := ""
			if i < len(pkg.CompiledGoFiles) {
				file = pkg.CompiledGoFiles[i]
			}
			ents, err := extractCached(cache, pkg.PkgPath, file, pkg.Fset, f)
			if err != nil {
				return nil, err
			}
			out = append(out, ents...)
		}
	}
	return out, nil
}

// ExtractFile runs the extraction core over an already-parsed file.
// Exposed for embedding tools that manage parsing themselves.
func ExtractFile(pkgPath string, fset *token.FileSet, f *ast.File) ([]entity.Entity, error) {
	return extractFile(pkgPath, fset, f)
}

func extractCached(cache *extractCache, pkgPath, file string, fset *token.FileSet, f *ast.File) ([]entity.Entity, error) {
	if cache == nil || file == "" {
		return extractFile(pkgPath, fset, f)
	}
	if ents, ok := cache.get(pkgPath, file); ok {
		return ents, nil
	}
	ents, err := extractFile(pkgPath, fset, f)
	if err != nil {
		return nil, err
	}
	cache.put(pkgPath, file, ents)
	return ents, nil
}
