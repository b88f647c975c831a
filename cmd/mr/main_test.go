package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviddao/mailrules/internal/types"
)

func TestEnsureGitignore(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, ".gitignore")
	require.NoError(t, os.WriteFile(path, []byte("node_modules"), 0o644))

	ensureGitignore(root)
	ensureGitignore(root)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), ".mailrules/"))
	assert.True(t, strings.HasPrefix(string(data), "node_modules\n"))
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		jsonOutput, checkBind, checkDialect = false, false, "postgres"
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCheckCommand(t *testing.T) {
	rule := filepath.Join(t.TempDir(), "archive.yaml")
	require.NoError(t, os.WriteFile(rule, []byte(`
rule:
  type: rule
  predicate: all
  rules:
    - {type: condition, field: from_address, operator: contains, value: "news"}
    - {type: condition, field: received_at, operator: less_than, value: "2 months"}
action:
  unread: false
  location: TRASH
`), 0o644))

	out, err := runRoot(t, "check", "--json", "--dialect", "sqlite", "--bind", rule)
	require.NoError(t, err, out)

	var got checkOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "archive", got.Rule)
	assert.Equal(t, "sqlite", got.Dialect)
	assert.Equal(t, "(from_address like ? and received_at < datetime('now', ?))", got.SQL)
	assert.Equal(t, []any{"%news%", "-2 months"}, got.Args)
	assert.Equal(t, []string{"TRASH"}, got.Mutation.Add)
	assert.Equal(t, []string{"UNREAD", "INBOX", "SPAM"}, got.Mutation.Remove)
}

func TestCheckCommand_Invalid(t *testing.T) {
	rule := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(rule, []byte(`{"rule":{"type":"condition","field":"subject","operator":"greater_than","value":"x"},"action":{}}`), 0o644))

	_, err := runRoot(t, "check", rule)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestCompletionSkipsStore(t *testing.T) {
	out, err := runRoot(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "bash completion")
	assert.Nil(t, store)
}

func TestPrintApplySummary(t *testing.T) {
	tests := []struct {
		name string
		res  types.ApplyResult
		want string
	}{
		{"no matches", types.ApplyResult{Rule: "r", Add: []string{"STARRED"}}, "No messages match."},
		{"empty action", types.ApplyResult{Rule: "r", Matched: 4}, "4 messages match; nothing to change."},
		{"empty action dry run", types.ApplyResult{Rule: "r", Matched: 4, DryRun: true}, "4 messages match; nothing to change."},
		{"dry run", types.ApplyResult{Rule: "r", Add: []string{"STARRED"}, Matched: 4, Batches: 1, DryRun: true}, "dry run: 4 messages would change in 1 batches"},
		{"applied", types.ApplyResult{Rule: "r", Remove: []string{"UNREAD"}, Matched: 4, Modified: 4, Batches: 1}, "4 messages updated in 1 batches"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printApplySummary(&buf, &tt.res)
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}
