package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	servecmd "github.com/carelog/carelog_backend/cmd/serve"
	systemcmd "github.com/carelog/carelog_backend/cmd/system"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "carelog",
	Short: "CareLog multi-tenant care coordination backend.",
	Long: `CareLog is a multi-tenant backend for hospitals coordinating care between
patients, clinicians and admins: journaling, pain alerts, messaging and
clinician-reviewed feedback, all persisted in one encrypted record file.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global config flag, available for all commands.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	// Attach top-level command trees.
	rootCmd.AddCommand(systemcmd.NewSystemCommand())
	rootCmd.AddCommand(servecmd.NewServeCommand())
}
