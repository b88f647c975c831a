package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daviddao/mailrules/internal/display"
	"github.com/daviddao/mailrules/internal/types"
)

type statsOutput struct {
	Driver string             `json:"driver"`
	Total  int                `json:"total_messages"`
	Labels []types.LabelCount `json:"labels"`
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show message counts by label",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		total, err := store.EmailCount(ctx)
		if err != nil {
			return err
		}
		labels, err := store.LabelCounts(ctx)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), statsOutput{Driver: cfg.Database.Driver, Total: total, Labels: labels})
		}

		w := cmd.OutOrStdout()
		display.Header(w, "mailrules Statistics")
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %-28s %6d\n", "Messages", total)
		fmt.Fprintln(w)
		display.SubHeader(w, "  Labels")
		for _, l := range labels {
			fmt.Fprintf(w, "    %-26s %6d\n", l.Label, l.Count)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
