package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daviddao/mailrules/internal/config"
	"github.com/daviddao/mailrules/internal/display"
	"github.com/daviddao/mailrules/internal/rules"
)

var (
	checkDialect string
	checkBind    bool
)

type checkOutput struct {
	Rule     string         `json:"rule"`
	Dialect  string         `json:"dialect"`
	SQL      string         `json:"sql"`
	Args     []any          `json:"args,omitempty"`
	Mutation rules.Mutation `json:"mutation"`
}

var checkCmd = &cobra.Command{
	Use:   "check [RULE_FILE]",
	Short: "Validate a rule file and print its SQL filter and label changes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rf, err := loadRuleFile(args)
		if err != nil {
			return err
		}
		dialect, err := rules.ParseDialect(checkDialect)
		if err != nil {
			return err
		}

		n, err := rf.Node()
		if err != nil {
			return err
		}
		expr, err := rules.Compiler{Dialect: dialect, Bind: checkBind}.Compile(n)
		if err != nil {
			return fmt.Errorf("rule %s: %w", rf.Name, err)
		}
		m, err := rules.ReconcileAction(rf.Action)
		if err != nil {
			return fmt.Errorf("rule %s: %w", rf.Name, err)
		}

		out := checkOutput{Rule: rf.Name, Dialect: dialect.String(), SQL: expr.String(), Mutation: m}
		if expr != nil {
			out.Args = expr.Args
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), out)
		}

		w := cmd.OutOrStdout()
		display.SuccessMsg(w, "%s is valid", rf.Name)
		fmt.Fprintln(w)
		display.SubHeader(w, "  Filter ("+out.Dialect+")")
		if out.SQL == "" {
			fmt.Fprintf(w, "    %s\n", display.Dim.Render("(matches every message)"))
		} else {
			fmt.Fprintf(w, "    %s\n", out.SQL)
		}
		for i, a := range out.Args {
			fmt.Fprintf(w, "    %s %v\n", display.Dim.Render(fmt.Sprintf("arg %d:", i+1)), a)
		}
		display.SubHeader(w, "  Labels")
		fmt.Fprintf(w, "    %s\n", display.LabelChanges(m.Add, m.Remove))
		return nil
	},
}

// loadRuleFile reads the rule file named on the command line, falling back
// to apply.rule_file from the config.
func loadRuleFile(args []string) (*config.RuleFile, error) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	} else if cfg != nil {
		path = cfg.Apply.RuleFile
	}
	if path == "" {
		return nil, fmt.Errorf("no rule file given and apply.rule_file is not set")
	}
	return config.LoadRuleFile(path)
}

func init() {
	checkCmd.Flags().StringVar(&checkDialect, "dialect", "postgres", "SQL dialect: postgres or sqlite")
	checkCmd.Flags().BoolVar(&checkBind, "bind", false, "Use bound parameters instead of inline literals")
	rootCmd.AddCommand(checkCmd)
}
