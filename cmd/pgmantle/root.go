package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pgmantle/pgmantle/pgconfig"
)

var (
	// Global state resolved during PersistentPreRunE.
	toolCfg     *pgconfig.Config
	toolCfgPath string

	// Persistent flags.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "pgmantle",
	Short: "PostgreSQL extensions in Go",
	Long: `pgmantle - PostgreSQL extensions in Go

pgmantle compiles annotated Go packages into a PostgreSQL extension:
the SQL declaring its schema objects, the wrapper code binding each
function to the server's call boundary, and typed bindings for the
server's own headers.`,
	Version: revision,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		path := cfgFile
		if path == "" {
			var err error
			path, err = pgconfig.DefaultPath()
			if err != nil {
				return err
			}
		}
		var err error
		toolCfg, err = pgconfig.Load(path)
		toolCfgPath = path
		return err
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.pgmantle/config.toml)")

	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(bindgenCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pgmantle: %v\n", err)
		os.Exit(1)
	}
}
