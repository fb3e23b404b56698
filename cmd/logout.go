// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"pinotboard/cli/internal/keychain"
)

// logoutCmd removes stored secrets. The config file is left alone.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored broker token and Postgres DSN",
	Long: `The logout command removes the broker access token and the Postgres DSN from the
OS keychain. The broker URL in the config file is kept; secrets provided through
environment variables are not affected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			pterm.Warning.Println("Secure storage is not available on this system; nothing to remove.")
			return nil
		}
		km.ClearAll()
		pterm.Success.Println("Stored broker token and DSN have been removed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
