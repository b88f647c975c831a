package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviddao/mailrules/internal/config"
	"github.com/daviddao/mailrules/internal/rules"
	"github.com/daviddao/mailrules/internal/types"
)

// openTestPostgres connects to MAILRULES_TEST_POSTGRES_DSN. The database
// must hold no messages; seeded rows are removed afterwards.
func openTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("MAILRULES_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("MAILRULES_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	s, err := Open(ctx, config.Database{Driver: "postgres", DSN: dsn})
	require.NoError(t, err)
	p := s.(*Postgres)
	t.Cleanup(func() { p.Close() })

	n, err := p.EmailCount(ctx)
	require.NoError(t, err)
	if n > 0 {
		t.Skipf("gmail.messages holds %d rows; need an empty database", n)
	}
	t.Cleanup(func() {
		_, err := p.pool.Exec(context.Background(),
			"DELETE FROM gmail.messages WHERE message_id = ANY($1)", []string{"new", "mid", "old"})
		assert.NoError(t, err)
	})
	return p
}

func TestPostgres_MatchingIDs(t *testing.T) {
	p := openTestPostgres(t)
	assert.Equal(t, rules.Postgres, p.Dialect())
	seed(t, p)
	checkMatching(t, p)
}

func TestPostgres_ApplyMutation(t *testing.T) {
	p := openTestPostgres(t)
	seed(t, p)
	ctx := context.Background()

	m, err := rules.ReconcileAction(rules.Action{Unread: boolp(false), Location: strp("TRASH")})
	require.NoError(t, err)
	require.NoError(t, p.ApplyMutation(ctx, []string{"new", "mid", "ghost"}, m))
	require.NoError(t, p.ApplyMutation(ctx, []string{"new", "mid"}, m))

	counts, err := p.LabelCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.LabelCount{
		{Label: "TRASH", Count: 2},
		{Label: "CATEGORY_PROMOTIONS", Count: 1},
		{Label: "INBOX", Count: 1},
	}, counts)

	got, err := p.MatchingEmails(ctx, rules.Condition{Field: "subject", Operator: rules.OpContains, Value: "invoice"}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"TRASH"}, got[0].Labels)
}
