package main

import (
	"fmt"
	"os"

	"github.com/lsoc/neco/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "neco",
	Short: "NeutronCommunicator fleet agent",
	Long: `NeutronCommunicator keeps this host's managed components at the
version the fleet controller assigns and keeps their certificates renewed.

Run with no subcommand to start the long-lived agent process; the other
subcommands configure the settings document it runs from.`,
	RunE: runAgent,
}

func init() {
	rootCmd.PersistentFlags().String("verbosity", "info", "Log verbosity (info|warn|debug|trace)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(genSettingsCmd)
	rootCmd.AddCommand(neutronCredentialsCmd)
	rootCmd.AddCommand(compBackhaulCredentialsCmd)
	rootCmd.AddCommand(updateComponentCmd)
	rootCmd.AddCommand(addCertAuxPathsCmd)
	rootCmd.AddCommand(addCertificateCmd)
}

func initLogging() {
	verbosity, _ := rootCmd.PersistentFlags().GetString("verbosity")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(verbosity),
		JSONOutput: logJSON,
	})

	if os.Getenv("USER") != "root" {
		log.Logger.Warn().Str("user", os.Getenv("USER")).Msg("not running as root; most operations require root privileges")
	}
}
