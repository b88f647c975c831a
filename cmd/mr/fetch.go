package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daviddao/mailrules/internal/display"
	"github.com/daviddao/mailrules/internal/sync"
)

var (
	fetchLabels  []string
	fetchQuery   string
	fetchMax     int
	fetchWorkers int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch messages from Gmail into the local store",
	Long: `Lists messages carrying the configured labels (INBOX by default), downloads
each one and stores its addresses, subject, body and labels. Messages already
stored are refreshed, including their labels.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := gmailClient(ctx)
		if err != nil {
			return err
		}

		opts := sync.Options{
			Labels:      cfg.Gmail.Labels,
			Query:       fetchQuery,
			PageSize:    cfg.Gmail.PageSize,
			MaxMessages: cfg.Gmail.MaxMessages,
			Workers:     cfg.Gmail.Workers,
			Logger:      logger,
		}
		if cmd.Flags().Changed("label") {
			opts.Labels = fetchLabels
		}
		if cmd.Flags().Changed("max") {
			opts.MaxMessages = fetchMax
		}
		if cmd.Flags().Changed("workers") {
			opts.Workers = fetchWorkers
		}
		if !quietFlag && !jsonOutput {
			out := cmd.ErrOrStderr()
			opts.Progress = func(done, total int) {
				fmt.Fprintf(out, "  Fetching %d/%d...\r", done, total)
			}
		}

		res, err := sync.Fetch(ctx, client, store, opts)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		if !quietFlag {
			out := cmd.OutOrStdout()
			display.SuccessMsg(out, "%d fetched, %d failed              ", res.Fetched, res.Failed)
			fmt.Fprintf(out, "  %d messages in store\n", res.Total)
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringSliceVar(&fetchLabels, "label", nil, "Label IDs to fetch (default from config: INBOX)")
	fetchCmd.Flags().StringVar(&fetchQuery, "query", "", "Gmail search query, e.g. 'newer_than:7d'")
	fetchCmd.Flags().IntVar(&fetchMax, "max", 0, "Maximum number of messages (0 = no limit)")
	fetchCmd.Flags().IntVar(&fetchWorkers, "workers", 4, "Concurrent message downloads")
	rootCmd.AddCommand(fetchCmd)
}
