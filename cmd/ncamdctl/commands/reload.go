package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/barnettlynn/ncamd/internal/ncamdclient"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Trigger the gateway's accounts/channels reload flag",
	RunE:  runReload,
}

func init() {
	rootCmd.AddCommand(reloadCmd)
}

func runReload(cmd *cobra.Command, args []string) error {
	client := ncamdclient.New(Flags.Server, Flags.Token)
	if err := client.Reload(); err != nil {
		return fmt.Errorf("trigger reload: %w", err)
	}
	fmt.Println("reload requested")
	return nil
}
