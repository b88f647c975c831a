package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviddao/mailrules/internal/config"
	"github.com/daviddao/mailrules/internal/rules"
	"github.com/daviddao/mailrules/internal/types"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", FileName))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seed stores three messages received 1 day, 10 days and 60 days ago.
func seed(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	emails := []*types.Email{
		{ID: "new", ThreadID: "t1", From: "billing@shop.com", Subject: "Your INVOICE is ready", Body: "total due", ReceivedAt: now.Add(-24 * time.Hour), Labels: []string{"INBOX", "UNREAD"}},
		{ID: "mid", ThreadID: "t2", From: "friend@example.com", Subject: "lunch?", Body: "it's on me", ReceivedAt: now.Add(-10 * 24 * time.Hour), Labels: []string{"INBOX"}},
		{ID: "old", ThreadID: "t3", From: "news@shop.com", Subject: "Weekly digest", Body: "deals", ReceivedAt: now.Add(-60 * 24 * time.Hour), Labels: []string{"INBOX", "CATEGORY_PROMOTIONS"}},
	}
	for _, e := range emails {
		require.NoError(t, s.UpsertEmail(ctx, e))
		require.NoError(t, s.ReplaceLabels(ctx, e.ID, e.Labels))
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), FileName)
	s, err := Open(ctx, config.Database{Driver: "sqlite", Path: path})
	require.NoError(t, err)
	assert.Equal(t, rules.SQLite, s.Dialect())
	require.IsType(t, &SQLite{}, s)
	assert.Equal(t, path, s.(*SQLite).Path())
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.Database{Driver: "sqlite"})
	assert.Error(t, err)
	_, err = Open(ctx, config.Database{Driver: "mysql"})
	assert.Error(t, err)
	_, err = Open(ctx, config.Database{Driver: "postgres"})
	assert.Error(t, err)
}

func TestMatchingIDs(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)
	checkMatching(t, s)
}

// checkMatching runs rule lookups against a store holding the seed data.
func checkMatching(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	tests := []struct {
		name string
		rule rules.Node
		want []string
	}{
		{
			name: "empty group selects all",
			rule: rules.Group{Predicate: rules.PredicateAll},
			want: []string{"new", "mid", "old"},
		},
		{
			name: "contains is case-insensitive",
			rule: rules.Condition{Field: "subject", Operator: rules.OpContains, Value: "invoice"},
			want: []string{"new"},
		},
		{
			name: "is",
			rule: rules.Condition{Field: "from_address", Operator: rules.OpIs, Value: "friend@example.com"},
			want: []string{"mid"},
		},
		{
			name: "quote in value is bound",
			rule: rules.Condition{Field: "body", Operator: rules.OpContains, Value: "it's"},
			want: []string{"mid"},
		},
		{
			name: "received within a week",
			rule: rules.Condition{Field: "received_at", Operator: rules.OpGreaterThan, Value: "7 days"},
			want: []string{"new"},
		},
		{
			name: "received more than a month ago",
			rule: rules.Condition{Field: "received_at", Operator: rules.OpLessThan, Value: "1 month"},
			want: []string{"old"},
		},
		{
			name: "any of",
			rule: rules.Group{Predicate: rules.PredicateAny, Rules: []rules.Node{
				rules.Condition{Field: "from_address", Operator: rules.OpIs, Value: "friend@example.com"},
				rules.Condition{Field: "subject", Operator: rules.OpContains, Value: "digest"},
			}},
			want: []string{"mid", "old"},
		},
		{
			name: "all with not_contains",
			rule: rules.Group{Predicate: rules.PredicateAll, Rules: []rules.Node{
				rules.Condition{Field: "from_address", Operator: rules.OpContains, Value: "@shop.com"},
				rules.Condition{Field: "subject", Operator: rules.OpNotContains, Value: "digest"},
			}},
			want: []string{"new"},
		},
		{
			name: "is_not",
			rule: rules.Condition{Field: "subject", Operator: rules.OpIsNot, Value: "x"},
			want: []string{"new", "mid", "old"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.MatchingIDs(ctx, tt.rule)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchingIDs_InvalidRule(t *testing.T) {
	s := openTestStore(t)
	_, err := s.MatchingIDs(context.Background(), rules.Condition{Field: "cc", Operator: rules.OpIs, Value: "x"})
	assert.ErrorIs(t, err, rules.ErrInvalidField)
}

func TestMatchingEmails(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)

	got, err := s.MatchingEmails(context.Background(), rules.Group{Predicate: rules.PredicateAll}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "billing@shop.com", got[0].From)
	assert.Equal(t, []string{"INBOX", "UNREAD"}, got[0].Labels)
	assert.Empty(t, got[0].Body)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), got[0].ReceivedAt, time.Minute)
	assert.Equal(t, "mid", got[1].ID)
}

func TestUpsertEmail_Refreshes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	e := &types.Email{ID: "m", ThreadID: "t", Subject: "first", ReceivedAt: time.Now()}
	require.NoError(t, s.UpsertEmail(ctx, e))
	e.Subject = "second"
	require.NoError(t, s.UpsertEmail(ctx, e))

	n, err := s.EmailCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ids, err := s.MatchingIDs(ctx, rules.Condition{Field: "subject", Operator: rules.OpIs, Value: "second"})
	require.NoError(t, err)
	assert.Equal(t, []string{"m"}, ids)
}

func TestApplyMutation(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)
	ctx := context.Background()

	m, err := rules.ReconcileAction(rules.Action{Unread: boolp(false), Location: strp("TRASH")})
	require.NoError(t, err)
	require.NoError(t, s.ApplyMutation(ctx, []string{"new", "mid", "ghost"}, m))

	counts, err := s.LabelCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.LabelCount{
		{Label: "TRASH", Count: 2},
		{Label: "CATEGORY_PROMOTIONS", Count: 1},
		{Label: "INBOX", Count: 1},
	}, counts)

	n, err := s.EmailCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "unknown ids must not create messages")

	// Applying the same mutation again changes nothing.
	require.NoError(t, s.ApplyMutation(ctx, []string{"new", "mid"}, m))
	again, err := s.LabelCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, counts, again)
}

func TestReplaceLabels(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.ReplaceLabels(ctx, "old", []string{"SPAM"}))
	got, err := s.MatchingEmails(ctx, rules.Condition{Field: "subject", Operator: rules.OpContains, Value: "digest"}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"SPAM"}, got[0].Labels)
}

func boolp(b bool) *bool    { return &b }
func strp(s string) *string { return &s }
