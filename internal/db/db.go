// Package db stores fetched Gmail messages and their labels, and runs
// compiled rule filters against them. SQLite is the default local store;
// Postgres mirrors the gmail schema used by shared deployments.
package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/daviddao/mailrules/internal/config"
	"github.com/daviddao/mailrules/internal/rules"
	"github.com/daviddao/mailrules/internal/types"
)

// FileName is the default SQLite database name inside config.DirName.
const FileName = "mail.db"

// timeLayout is how received_at is stored in SQLite. It matches the output
// of SQLite's datetime() so relative-date filters compare lexically.
const timeLayout = "2006-01-02 15:04:05"

// Store is a message store that can evaluate rule trees.
type Store interface {
	// UpsertEmail inserts e or refreshes the stored copy.
	UpsertEmail(ctx context.Context, e *types.Email) error
	// ReplaceLabels sets the full label set of a stored message.
	ReplaceLabels(ctx context.Context, messageID string, labels []string) error
	// MatchingIDs returns the IDs of messages selected by n, newest first.
	MatchingIDs(ctx context.Context, n rules.Node) ([]string, error)
	// MatchingEmails returns up to limit messages selected by n, newest
	// first, without bodies. A limit <= 0 means no limit.
	MatchingEmails(ctx context.Context, n rules.Node, limit int) ([]*types.Email, error)
	// ApplyMutation mirrors a label mutation onto stored messages.
	ApplyMutation(ctx context.Context, ids []string, m rules.Mutation) error
	EmailCount(ctx context.Context) (int, error)
	LabelCounts(ctx context.Context) ([]types.LabelCount, error)
	Dialect() rules.Dialect
	Close() error
}

// Open opens the store selected by cfg.
func Open(ctx context.Context, cfg config.Database) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("open sqlite: no database path")
		}
		return OpenSQLite(ctx, cfg.Path)
	case "postgres":
		return OpenPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("open database: unknown driver %q", cfg.Driver)
	}
}

// filter compiles n into a WHERE clause for dialect d, with bound args.
// An unconstrained tree yields an empty clause.
func filter(d rules.Dialect, n rules.Node) (string, []any, error) {
	expr, err := rules.Compiler{Dialect: d, Bind: true}.Compile(n)
	if err != nil {
		return "", nil, fmt.Errorf("compile rule: %w", err)
	}
	if expr == nil {
		return "", nil, nil
	}
	return " WHERE (" + expr.SQL + ")", expr.Args, nil
}

// DiscoverDB finds the mailrules database by walking up from cwd.
// Returns the path to .mailrules/mail.db or empty string if not found.
func DiscoverDB() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, config.DirName, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}
