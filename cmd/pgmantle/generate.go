package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pgmantle/pgmantle/compiler/gen"
	"github.com/pgmantle/pgmantle/compiler/load"
)

var (
	generateDir      string
	generatePkgPath  string
	generatePkgName  string
	generateOut      string
	generateManifest string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Emit wrapper source for annotated functions",
	Long: `Generate the Go source binding every annotated function to the
server's call boundary, plus a manifest mapping exported symbols back
to their SQL names.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ents, err := load.Load(cmd.Context(), load.Config{
			Dir:      generateDir,
			Patterns: []string{"./..."},
			CacheDir: filepath.Join(generateDir, ".pgmantle-cache"),
		})
		if err != nil {
			return err
		}

		g := gen.New(generatePkgPath, generatePkgName)
		src, err := g.Render(ents)
		if err != nil {
			return err
		}
		if err := os.WriteFile(generateOut, []byte(src), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", generateOut, err)
		}
		log.Printf("[INFO] generate: wrote %s", generateOut)

		if generateManifest != "" {
			raw, err := gen.Manifest(ents)
			if err != nil {
				return err
			}
			if err := os.WriteFile(generateManifest, raw, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", generateManifest, err)
			}
			log.Printf("[INFO] generate: wrote %s", generateManifest)
		}
		return nil
	},
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&generateDir, "dir", ".", "package directory to extract from")
	f.StringVar(&generatePkgPath, "pkg-path", "", "import path of the generated package")
	f.StringVar(&generatePkgName, "pkg-name", "main", "name of the generated package")
	f.StringVar(&generateOut, "out", "pgmantle_wrappers.go", "output file")
	f.StringVar(&generateManifest, "manifest", "", "also write a symbol manifest")
	_ = generateCmd.MarkFlagRequired("pkg-path")
}
