package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daviddao/mailrules/internal/display"
)

var matchLimit int

var matchCmd = &cobra.Command{
	Use:   "match [RULE_FILE]",
	Short: "List stored messages a rule selects",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rf, err := loadRuleFile(args)
		if err != nil {
			return err
		}
		n, err := rf.Node()
		if err != nil {
			return err
		}

		emails, err := store.MatchingEmails(cmd.Context(), n, matchLimit)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), emails)
		}

		w := cmd.OutOrStdout()
		if len(emails) == 0 {
			fmt.Fprintln(w, "No messages match.")
			return nil
		}
		display.Header(w, fmt.Sprintf("%s (%d)", rf.Name, len(emails)))
		for _, e := range emails {
			display.EmailLine(w, e.Labels, e.From, e.Subject, e.ReceivedAt)
		}
		return nil
	},
}

func init() {
	matchCmd.Flags().IntVarP(&matchLimit, "limit", "n", 50, "Maximum messages to list (0 = all)")
	rootCmd.AddCommand(matchCmd)
}
