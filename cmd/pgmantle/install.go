package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pgmantle/pgmantle/harness"
	"github.com/pgmantle/pgmantle/pgconfig"
)

var (
	installScript   string
	installLabel    string
	installDatabase string
	installHost     string
	installUser     string
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Apply a generated schema script to a database",
	Long: `Apply a generated SQL script statement by statement inside one
transaction. The server port is derived from the registered base port
and the version label.`,
	Example: `  pgmantle install --pg pg15 --db mydb --script myext--0.1.0.sql`,
	RunE: func(cmd *cobra.Command, args []string) error {
		major, err := pgconfig.MajorFromLabel(installLabel)
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(installScript)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}

		db, err := harness.Open(harness.Options{
			Host:     installHost,
			Port:     toolCfg.PortFor(major),
			User:     installUser,
			Database: installDatabase,
		})
		if err != nil {
			return err
		}
		defer db.Close()

		return harness.NewInstaller(db).Install(cmd.Context(), string(raw))
	},
}

func init() {
	f := installCmd.Flags()
	f.StringVar(&installScript, "script", "", "generated SQL script to apply")
	f.StringVar(&installLabel, "pg", "", "version label of the target server")
	f.StringVar(&installDatabase, "db", "", "database name")
	f.StringVar(&installHost, "host", "localhost", "server host")
	f.StringVar(&installUser, "user", "postgres", "server user")
	_ = installCmd.MarkFlagRequired("script")
	_ = installCmd.MarkFlagRequired("pg")
	_ = installCmd.MarkFlagRequired("db")
}
