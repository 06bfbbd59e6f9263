// Package commands implements ncamdctl's cobra command tree: persistent
// --server and --token flags synced into a package-level Flags struct,
// and SilenceUsage so RunE errors print once without a usage dump.
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

// Flags holds the global flag values every subcommand reads from.
var Flags = &GlobalFlags{}

// GlobalFlags mirrors cmdutil.GlobalFlags, trimmed to what ncamdctl needs:
// there is one admin principal, not a multi-context credential store.
type GlobalFlags struct {
	Server string
	Token  string
}

var rootCmd = &cobra.Command{
	Use:   "ncamdctl",
	Short: "Remote control client for the ncamd gateway's admin API",
	Long: `ncamdctl talks to a running ncamd gateway's admin HTTP API to inspect
the live client registry, kill sessions, trigger a config reload, and
manage the local accounts file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		Flags.Server, _ = cmd.Flags().GetString("server")
		Flags.Token, _ = cmd.Flags().GetString("token")
		if Flags.Token == "" {
			Flags.Token = os.Getenv("NCAMD_TOKEN")
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "admin API base URL")
	rootCmd.PersistentFlags().String("token", "", "admin bearer token (defaults to $NCAMD_TOKEN)")
}

// PrintErr prints a message to stderr without the usage banner.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}
