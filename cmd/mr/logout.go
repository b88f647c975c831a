package main

import (
	"github.com/spf13/cobra"

	"github.com/daviddao/mailrules/internal/auth"
	"github.com/daviddao/mailrules/internal/display"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Delete the stored OAuth token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := auth.Logout(cfg.Gmail.Token); err != nil {
			return err
		}
		if !quietFlag {
			display.SuccessMsg(cmd.OutOrStdout(), "removed %s", cfg.Gmail.Token)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
