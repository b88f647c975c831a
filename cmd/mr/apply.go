package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/daviddao/mailrules/internal/apply"
	"github.com/daviddao/mailrules/internal/display"
	"github.com/daviddao/mailrules/internal/gmail"
	"github.com/daviddao/mailrules/internal/types"
)

var (
	applyDryRun    bool
	applyChunkSize int
)

var applyCmd = &cobra.Command{
	Use:   "apply [RULE_FILE]",
	Short: "Apply a rule file's action to every matching message",
	Long: `Selects stored messages with the rule tree and modifies their Gmail labels
in batches. Run 'mr fetch' first so the store reflects the mailbox.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rf, err := loadRuleFile(args)
		if err != nil {
			return err
		}

		opts := apply.Options{
			ChunkSize: cfg.Apply.ChunkSize,
			DryRun:    cfg.Apply.DryRun || applyDryRun,
			Logger:    logger,
		}
		if cmd.Flags().Changed("chunk-size") {
			opts.ChunkSize = applyChunkSize
		}

		var client gmail.Client
		if !opts.DryRun {
			if client, err = gmailClient(ctx); err != nil {
				return err
			}
		}

		res, err := apply.Run(ctx, client, store, rf, opts)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		if quietFlag {
			return nil
		}

		printApplySummary(cmd.OutOrStdout(), res)
		return nil
	},
}

func printApplySummary(w io.Writer, res *types.ApplyResult) {
	fmt.Fprintf(w, "  %s %s\n", display.Bold.Render(res.Rule), display.LabelChanges(res.Add, res.Remove))
	switch {
	case res.Matched == 0:
		fmt.Fprintln(w, "  No messages match.")
	case len(res.Add)+len(res.Remove) == 0:
		fmt.Fprintf(w, "  %d messages match; nothing to change.\n", res.Matched)
	case res.DryRun:
		display.SuccessMsg(w, "dry run: %d messages would change in %d batches", res.Matched, res.Batches)
	default:
		display.SuccessMsg(w, "%d messages updated in %d batches", res.Modified, res.Batches)
	}
}

func init() {
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Show what would change without calling Gmail")
	applyCmd.Flags().IntVar(&applyChunkSize, "chunk-size", 100, "Messages per Gmail batch (max 1000)")
	rootCmd.AddCommand(applyCmd)
}
