// Command ncamdctl is the remote control client for a running ncamd
// gateway's admin API.
package main

import (
	"os"

	"github.com/barnettlynn/ncamd/cmd/ncamdctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.PrintErr("error: %v", err)
		os.Exit(1)
	}
}
