package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pgmantle/pgmantle"
	"github.com/pgmantle/pgmantle/compiler/load"
	"github.com/pgmantle/pgmantle/entity"
	"github.com/pgmantle/pgmantle/sqlgen"
)

var (
	schemaDir     string
	schemaControl string
	schemaOut     string
	schemaDot     string
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Emit the extension's SQL schema",
	Long: `Extract annotated declarations from the package in --dir, order
them by dependency and emit the CREATE statements for the extension
named by --control.`,
	Example: `  # Write the schema next to the control file
  pgmantle schema --dir . --control myext.control --out myext--0.1.0.sql

  # Inspect the dependency graph
  pgmantle schema --dir . --control myext.control --dot graph.dot`,
	RunE: func(cmd *cobra.Command, args []string) error {
		graph, err := buildGraph(cmd.Context(), schemaDir, schemaControl)
		if err != nil {
			return err
		}
		script, err := graph.SQL()
		if err != nil {
			return err
		}
		if schemaDot != "" {
			if err := os.WriteFile(schemaDot, []byte(graph.Dot()), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", schemaDot, err)
			}
			log.Printf("[INFO] schema: wrote graph to %s", schemaDot)
		}
		if schemaOut == "" {
			fmt.Fprint(cmd.OutOrStdout(), script)
			return nil
		}
		if err := os.WriteFile(schemaOut, []byte(script), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", schemaOut, err)
		}
		log.Printf("[INFO] schema: wrote %d entities to %s", graph.Len(), schemaOut)
		return nil
	},
}

func init() {
	f := schemaCmd.Flags()
	f.StringVar(&schemaDir, "dir", ".", "package directory to extract from")
	f.StringVar(&schemaControl, "control", "", "path to the extension's .control file")
	f.StringVar(&schemaOut, "out", "", "output file (default stdout)")
	f.StringVar(&schemaDot, "dot", "", "also write the dependency graph in DOT form")
	_ = schemaCmd.MarkFlagRequired("control")
}

// buildGraph runs extraction and graph construction for one package.
func buildGraph(ctx context.Context, dir, controlPath string) (*sqlgen.Graph, error) {
	raw, err := os.ReadFile(controlPath)
	if err != nil {
		return nil, fmt.Errorf("read control file: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(controlPath), ".control")
	cf, err := pgmantle.ParseControlFile(name, string(raw))
	if err != nil {
		return nil, err
	}
	if err := cf.Validate(); err != nil {
		return nil, err
	}

	ents, err := load.Load(ctx, load.Config{
		Dir:      dir,
		Patterns: []string{"./..."},
		CacheDir: filepath.Join(dir, ".pgmantle-cache"),
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] schema: extracted %d entities from %s", len(ents), dir)

	control := entity.ControlData{
		Extension:      cf.Extension,
		ModulePathname: cf.ModulePathname,
		Relocatable:    cf.Relocatable,
		Schema:         cf.Schema,
	}
	return sqlgen.Build(control, ents)
}
