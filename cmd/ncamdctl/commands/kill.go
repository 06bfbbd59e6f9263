package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/barnettlynn/ncamd/internal/ncamdclient"
)

var killCmd = &cobra.Command{
	Use:   "kill <client-id>",
	Short: "Set the kill flag on a connected client",
	Args:  cobra.ExactArgs(1),
	RunE:  runKill,
}

func init() {
	rootCmd.AddCommand(killCmd)
}

func runKill(cmd *cobra.Command, args []string) error {
	client := ncamdclient.New(Flags.Server, Flags.Token)
	if err := client.KillClient(args[0]); err != nil {
		return fmt.Errorf("kill client %s: %w", args[0], err)
	}
	fmt.Printf("kill flag set on %s\n", args[0])
	return nil
}
