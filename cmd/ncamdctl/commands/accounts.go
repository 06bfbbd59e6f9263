package commands

import (
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/barnettlynn/ncamd/internal/config"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage the local accounts file",
}

var accountsFile string

var accountsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an account to the accounts file",
	Long: `Interactively collect a username, password, and key material and
append the resulting account to the accounts file. The gateway picks up
the change on its next "ncamdctl reload" (or file-watcher tick).`,
	RunE: runAccountsAdd,
}

func init() {
	accountsCmd.PersistentFlags().StringVar(&accountsFile, "accounts-file", "accounts.yaml", "path to the accounts YAML file")
	accountsCmd.AddCommand(accountsAddCmd)
	rootCmd.AddCommand(accountsCmd)
}

func runAccountsAdd(cmd *cobra.Command, args []string) error {
	username, err := promptInput("Username")
	if err != nil {
		return handleAbort(err)
	}

	password, err := promptPassword("Password", 8)
	if err != nil {
		return handleAbort(err)
	}

	caid, err := promptHex("CAID (4 hex digits)", 4)
	if err != nil {
		return handleAbort(err)
	}

	k0, err := promptHex("Key K0 (32 hex digits)", 32)
	if err != nil {
		return handleAbort(err)
	}

	k1, err := promptHex("Key K1 (32 hex digits)", 32)
	if err != nil {
		return handleAbort(err)
	}

	enabled, err := promptConfirm("Enable account immediately?", true)
	if err != nil {
		return handleAbort(err)
	}

	if err := config.AppendAccount(accountsFile, config.NewAccountParams{
		Username: username,
		Password: password,
		CAID:     caid,
		K0:       k0,
		K1:       k1,
		Enabled:  enabled,
	}); err != nil {
		return fmt.Errorf("add account: %w", err)
	}

	fmt.Printf("account %q added to %s\n", username, accountsFile)
	fmt.Println("run \"ncamdctl reload\" to pick it up on a running gateway")
	return nil
}

// promptInput, promptPassword, promptHex, promptConfirm, and handleAbort
// are deliberately thin wrappers around promptui rather than a separate
// internal/prompt package: ncamdctl has one interactive command, not
// enough to justify a shared abstraction.

var errAborted = fmt.Errorf("aborted")

func handleAbort(err error) error {
	if err == promptui.ErrInterrupt || err == promptui.ErrAbort || err == errAborted {
		fmt.Println("\naborted")
		return nil
	}
	return err
}

func promptInput(label string) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if s == "" {
				return fmt.Errorf("required")
			}
			return nil
		},
	}
	return p.Run()
}

// promptPassword reads a password with echo disabled via term.ReadPassword,
// the same raw-terminal-mode approach the gateway's companion tools use for
// interactive input, rather than promptui's own masking.
func promptPassword(label string, minLen int) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", err
		}
		password := string(raw)
		if len(password) < minLen {
			fmt.Printf("must be at least %d characters\n", minLen)
			continue
		}
		return password, nil
	}
}

func promptHex(label string, length int) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if len(s) != length {
				return fmt.Errorf("must be exactly %d hex characters", length)
			}
			for _, r := range s {
				if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
					return fmt.Errorf("must be hex digits only")
				}
			}
			return nil
		},
	}
	return p.Run()
}

func promptConfirm(label string, defaultYes bool) (bool, error) {
	suffix := "y/N"
	if defaultYes {
		suffix = "Y/n"
	}
	p := promptui.Prompt{
		Label:     fmt.Sprintf("%s [%s]", label, suffix),
		IsConfirm: true,
	}
	result, err := p.Run()
	if err != nil {
		if err == promptui.ErrAbort {
			return false, nil
		}
		if err == promptui.ErrInterrupt {
			return false, errAborted
		}
		if result == "" {
			return defaultYes, nil
		}
		return false, err
	}
	return result == "y" || result == "yes", nil
}
