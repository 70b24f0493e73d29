package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pgmantle/pgmantle/bindgen"
	"github.com/pgmantle/pgmantle/pgconfig"
)

// includeEnv overrides the header location for every version. It
// mirrors the pg_config flag it replaces.
const includeEnv = "PGMANTLE_INCLUDEDIR_SERVER"

var (
	bindgenLabels  []string
	bindgenInclude string
	bindgenOut     string
)

var bindgenCmd = &cobra.Command{
	Use:   "bindgen",
	Short: "Generate typed bindings from the server headers",
	Long: `Scan the server headers of each requested major and generate the
typed declarations: struct types, node markers, rewritten OID
constants and guarded adapters for external functions.

Headers are located through the registered pg_config of each version,
unless --include or ` + includeEnv + ` points somewhere else.`,
	Example: `  # Bind two registered versions
  pgmantle bindgen --pg pg15 --pg pg16 --out internal/pg

  # Bind against an explicit header tree
  pgmantle bindgen --pg pg16 --include /opt/pg16/include/server`,
	RunE: func(cmd *cobra.Command, args []string) error {
		include := bindgenInclude
		if include == "" {
			include = os.Getenv(includeEnv)
		}

		var versions []bindgen.Version
		for _, label := range bindgenLabels {
			major, err := pgconfig.MajorFromLabel(label)
			if err != nil {
				return err
			}
			dir := include
			if dir == "" {
				inst, err := toolCfg.Interrogate(cmd.Context(), label)
				if err != nil {
					return err
				}
				dir = inst.IncludeDirServer
			}
			versions = append(versions, headerSet(major, dir))
		}

		outputs, err := bindgen.GenerateAll(cmd.Context(), bindgen.Config{
			OutputDir: bindgenOut,
			Versions:  versions,
		})
		if err != nil {
			return err
		}
		for _, out := range outputs {
			fmt.Fprintf(cmd.OutOrStdout(), "pg%d: %d structs, %d funcs, %d oid consts\n",
				out.Major, out.Structs, out.Funcs, out.OidConsts)
		}
		return nil
	},
}

// headerSet lists the headers read for one major. The contrib header
// is optional; not every installation ships it.
func headerSet(major int, includeDir string) bindgen.Version {
	postgres := filepath.Join(includeDir, "postgres.h")
	nodes := filepath.Join(includeDir, "nodes", "nodes.h")
	plannodes := filepath.Join(includeDir, "nodes", "plannodes.h")
	contrib := filepath.Join(includeDir, "extension", "pgmantle.h")
	return bindgen.Version{
		Major:    major,
		Headers:  []string{postgres, nodes, plannodes, contrib},
		Optional: map[string]bool{contrib: true},
	}
}

func init() {
	f := bindgenCmd.Flags()
	f.StringArrayVar(&bindgenLabels, "pg", nil, "version label to bind, repeatable (e.g. --pg pg15)")
	f.StringVar(&bindgenInclude, "include", "", "server include directory override")
	f.StringVar(&bindgenOut, "out", "bindings", "output directory")
	_ = bindgenCmd.MarkFlagRequired("pg")
}
