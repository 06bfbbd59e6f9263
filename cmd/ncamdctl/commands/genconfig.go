package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/barnettlynn/ncamd/internal/config"
)

var genconfigPath string

var genconfigCmd = &cobra.Command{
	Use:   "genconfig",
	Short: "Write a new gateway config with a freshly generated root key",
	RunE:  runGenconfig,
}

func init() {
	genconfigCmd.Flags().StringVar(&genconfigPath, "out", "config.yaml", "path to write")
	rootCmd.AddCommand(genconfigCmd)
}

func runGenconfig(cmd *cobra.Command, args []string) error {
	if err := config.WriteDefault(genconfigPath); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Printf("wrote %s\n", genconfigPath)
	return nil
}
