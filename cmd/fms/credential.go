package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/fms-tracker/internal/credential"
)

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Manage the IMAP password used by the imap notifier",
	Long: `The IMAP password is kept in the platform keyring, or in an encrypted
file under credentials.dir when credentials.file_only is set.`,
}

var credentialSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the IMAP password (read from stdin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Fprint(cmd.ErrOrStderr(), "IMAP password: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}
			return fmt.Errorf("password must not be empty")
		}

		if err := credentials(cfg).Set(credential.IMAPPasswordKey, password); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "IMAP password stored")
		return nil
	},
}

var credentialDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored IMAP password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := credentials(cfg).Delete(credential.IMAPPasswordKey); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "IMAP password removed")
		return nil
	},
}

func init() {
	credentialCmd.AddCommand(credentialSetCmd, credentialDeleteCmd)
}
