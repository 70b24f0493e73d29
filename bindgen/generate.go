package bindgen

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Version describes one PostgreSQL major to bind against. Headers are
// read in order and concatenated; a missing optional header is skipped
// with a warning, while an empty effective input is an error.
type Version struct {
	Major   int
	Headers []string
	// Optional lets a later header in the list be absent, for
	// contrib headers that not every installation ships.
	Optional map[string]bool
}

// Config drives GenerateAll. Each version lands in its own pg<N>
// subpackage under OutputDir.
type Config struct {
	// OutputDir receives pg<N>/pg<N>.go, pg<N>/pg<N>_oids.go and
	// manifest.yaml.
	OutputDir string
	Versions  []Version
}

// VersionOutput is the in-memory result for a single major.
type VersionOutput struct {
	Major    int
	Bindings string
	Oids     string

	Structs   int
	Funcs     int
	Enums     int
	OidConsts int
	Nodes     int
}

// ManifestEntry records what was emitted for one major, for build
// tooling to diff across regenerations.
type ManifestEntry struct {
	Major     int `yaml:"major"`
	Structs   int `yaml:"structs"`
	Funcs     int `yaml:"funcs"`
	Enums     int `yaml:"enums"`
	OidConsts int `yaml:"oid_consts"`
	Nodes     int `yaml:"nodes"`
}

// Generate scans, filters and renders the bindings for one version.
func Generate(v Version) (*VersionOutput, error) {
	src, err := readHeaders(v)
	if err != nil {
		return nil, err
	}
	decls, err := Scan(src)
	if err != nil {
		return nil, fmt.Errorf("pg%d: %w", v.Major, err)
	}
	applyBlocklist(decls)

	graph := NewStructGraph(decls.Structs)
	oids := extractOids(decls.Defines)

	bindings, err := emitBindings(pkgPathFor(v.Major), pkgNameFor(v.Major), v.Major, decls, graph)
	if err != nil {
		return nil, fmt.Errorf("pg%d: render bindings: %w", v.Major, err)
	}
	oidFile, err := emitOids(pkgPathFor(v.Major), pkgNameFor(v.Major), v.Major, oids)
	if err != nil {
		return nil, fmt.Errorf("pg%d: render oids: %w", v.Major, err)
	}

	var bsb, osb strings.Builder
	if err := bindings.Render(&bsb); err != nil {
		return nil, fmt.Errorf("pg%d: render bindings: %w", v.Major, err)
	}
	if err := oidFile.Render(&osb); err != nil {
		return nil, fmt.Errorf("pg%d: render oids: %w", v.Major, err)
	}
	return &VersionOutput{
		Major:     v.Major,
		Bindings:  bsb.String(),
		Oids:      osb.String(),
		Structs:   len(decls.Structs),
		Funcs:     len(decls.Funcs),
		Enums:     len(decls.Enums),
		OidConsts: len(oids),
		Nodes:     len(graph.NodeClosure()),
	}, nil
}

// GenerateAll binds every configured version concurrently and writes
// the output files plus a combined manifest once all versions have
// joined. One failing version cancels the rest.
func GenerateAll(ctx context.Context, cfg Config) ([]*VersionOutput, error) {
	if len(cfg.Versions) == 0 {
		return nil, fmt.Errorf("bindgen: no versions configured")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("bindgen: create output dir: %w", err)
	}

	outputs := make([]*VersionOutput, len(cfg.Versions))
	g, ctx := errgroup.WithContext(ctx)
	for i, v := range cfg.Versions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := Generate(v)
			if err != nil {
				return err
			}
			dir := filepath.Join(cfg.OutputDir, pkgNameFor(v.Major))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("pg%d: %w", v.Major, err)
			}
			name := fmt.Sprintf("pg%d.go", v.Major)
			if err := os.WriteFile(filepath.Join(dir, name), []byte(out.Bindings), 0o644); err != nil {
				return fmt.Errorf("pg%d: %w", v.Major, err)
			}
			name = fmt.Sprintf("pg%d_oids.go", v.Major)
			if err := os.WriteFile(filepath.Join(dir, name), []byte(out.Oids), 0o644); err != nil {
				return fmt.Errorf("pg%d: %w", v.Major, err)
			}
			outputs[i] = out
			log.Printf("[INFO] bindgen: pg%d done, %d structs, %d funcs, %d oids",
				out.Major, out.Structs, out.Funcs, out.OidConsts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(outputs, func(i, j int) bool { return outputs[i].Major < outputs[j].Major })
	if err := writeManifest(cfg.OutputDir, outputs); err != nil {
		return nil, err
	}
	return outputs, nil
}

func writeManifest(dir string, outputs []*VersionOutput) error {
	entries := make([]ManifestEntry, len(outputs))
	for i, out := range outputs {
		entries[i] = ManifestEntry{
			Major:     out.Major,
			Structs:   out.Structs,
			Funcs:     out.Funcs,
			Enums:     out.Enums,
			OidConsts: out.OidConsts,
			Nodes:     out.Nodes,
		}
	}
	raw, err := yaml.Marshal(map[string][]ManifestEntry{"versions": entries})
	if err != nil {
		return fmt.Errorf("bindgen: encode manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "manifest.yaml"), raw, 0o644)
}

func readHeaders(v Version) (string, error) {
	if len(v.Headers) == 0 {
		return "", fmt.Errorf("pg%d: no headers configured; point --include at the server includedir", v.Major)
	}
	var sb strings.Builder
	read := 0
	for _, path := range v.Headers {
		raw, err := os.ReadFile(path)
		if err != nil {
			if v.Optional[path] {
				log.Printf("[WARN] bindgen: pg%d: optional header %s missing, skipping", v.Major, path)
				continue
			}
			return "", fmt.Errorf("pg%d: read %s: %w", v.Major, path, err)
		}
		sb.Write(raw)
		sb.WriteByte('\n')
		read++
	}
	if read == 0 {
		return "", fmt.Errorf("pg%d: every configured header was missing", v.Major)
	}
	return sb.String(), nil
}

func pkgNameFor(major int) string { return fmt.Sprintf("pg%d", major) }

func pkgPathFor(major int) string {
	return "github.com/pgmantle/pgmantle/bindgen/" + pkgNameFor(major)
}
