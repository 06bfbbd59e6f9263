package commands

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/barnettlynn/ncamd/internal/ncamdclient"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List the gateway's live client registry",
	Long: `Fetch and display the gateway's live client registry, one row per
connected client, grounded on pkg/newcamd's admin-facing Snapshot type.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := ncamdclient.New(Flags.Server, Flags.Token)

	clients, err := client.Clients()
	if err != nil {
		return fmt.Errorf("fetch client registry: %w", err)
	}

	if len(clients) == 0 {
		fmt.Println("no clients connected")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Username", "IP", "State", "Channel", "Bytes In", "Bytes Out"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, c := range clients {
		table.Append([]string{
			c.ID,
			c.Username,
			c.IP,
			c.State,
			c.Channel,
			fmt.Sprintf("%d", c.BytesIn),
			fmt.Sprintf("%d", c.BytesOut),
		})
	}
	table.Render()
	return nil
}
