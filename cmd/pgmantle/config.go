package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/pgmantle/pgmantle/pgconfig"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage registered server installations",
}

var configInitCmd = &cobra.Command{
	Use:   "init <label> <pg_config-path>",
	Short: "Register a server installation",
	Long: `Register the pg_config of one installation under a version label
like pg16. The label's major must match what pg_config reports.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		label, path := args[0], args[1]
		if err := toolCfg.Register(label, path); err != nil {
			return err
		}
		// Interrogate before persisting so a bad path never lands in
		// the config file.
		inst, err := toolCfg.Interrogate(cmd.Context(), label)
		if err != nil {
			return err
		}
		if err := toolCfg.Store(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "registered %s (%s) in %s\n", label, inst.VersionString, toolCfgPath)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the registered installations",
	RunE: func(cmd *cobra.Command, args []string) error {
		labels := toolCfg.Labels()
		if len(labels) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no installations registered; run `pgmantle config init`")
			return nil
		}
		bold := color.New(color.Bold)
		if f, ok := cmd.OutOrStdout().(interface{ Fd() uintptr }); !ok || !isatty.IsTerminal(f.Fd()) {
			bold.DisableColor()
		}
		for _, label := range labels {
			major, _ := pgconfig.MajorFromLabel(label)
			bold.Fprintf(cmd.OutOrStdout(), "%s", label)
			fmt.Fprintf(cmd.OutOrStdout(), "\t%s\tport %d\n", toolCfg.Configs[label], toolCfg.PortFor(major))
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
