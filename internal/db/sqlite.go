package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/daviddao/mailrules/internal/rules"
	"github.com/daviddao/mailrules/internal/types"
	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by a local SQLite file.
type SQLite struct {
	conn *sql.DB
	path string
}

// OpenSQLite opens (or creates) a database at the given path.
func OpenSQLite(ctx context.Context, dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer at a time; fetch workers share the connection.
	conn.SetMaxOpenConns(1)

	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &SQLite{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (d *SQLite) Close() error {
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}

// Path returns the database file path.
func (d *SQLite) Path() string {
	return d.path
}

func (d *SQLite) Dialect() rules.Dialect {
	return rules.SQLite
}

func (d *SQLite) UpsertEmail(ctx context.Context, e *types.Email) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO messages
			(message_id, thread_id, from_address, to_address, subject, body, received_at, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (message_id) DO UPDATE SET
			thread_id = excluded.thread_id,
			from_address = excluded.from_address,
			to_address = excluded.to_address,
			subject = excluded.subject,
			body = excluded.body,
			received_at = excluded.received_at,
			fetched_at = excluded.fetched_at`,
		e.ID, e.ThreadID, e.From, e.To, e.Subject, e.Body,
		e.ReceivedAt.UTC().Format(timeLayout), time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("upsert message %s: %w", e.ID, err)
	}
	return nil
}

func (d *SQLite) ReplaceLabels(ctx context.Context, messageID string, labels []string) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM message_labels WHERE message_id = ?", messageID); err != nil {
		return fmt.Errorf("clear labels for %s: %w", messageID, err)
	}
	for _, label := range labels {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO message_labels (message_id, label) VALUES (?, ?)",
			messageID, label,
		); err != nil {
			return fmt.Errorf("insert label %s for %s: %w", label, messageID, err)
		}
	}
	return tx.Commit()
}

func (d *SQLite) MatchingIDs(ctx context.Context, n rules.Node) ([]string, error) {
	where, args, err := filter(rules.SQLite, n)
	if err != nil {
		return nil, err
	}

	rows, err := d.conn.QueryContext(ctx,
		"SELECT message_id FROM messages"+where+" ORDER BY received_at DESC, message_id", args...)
	if err != nil {
		return nil, fmt.Errorf("query matching messages: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (d *SQLite) MatchingEmails(ctx context.Context, n rules.Node, limit int) ([]*types.Email, error) {
	where, args, err := filter(rules.SQLite, n)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT m.message_id, m.thread_id, m.from_address, m.to_address, m.subject, m.received_at,
			COALESCE((SELECT group_concat(l.label, ',') FROM message_labels l WHERE l.message_id = m.message_id), '')
		FROM messages m` + where + " ORDER BY m.received_at DESC, m.message_id"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query matching messages: %w", err)
	}
	defer rows.Close()

	var emails []*types.Email
	for rows.Next() {
		var e types.Email
		var received, labels string
		if err := rows.Scan(&e.ID, &e.ThreadID, &e.From, &e.To, &e.Subject, &received, &labels); err != nil {
			return nil, err
		}
		if e.ReceivedAt, err = time.ParseInLocation(timeLayout, received, time.UTC); err != nil {
			return nil, fmt.Errorf("parse received_at of %s: %w", e.ID, err)
		}
		e.Labels = splitLabels(labels)
		emails = append(emails, &e)
	}
	return emails, rows.Err()
}

func (d *SQLite) ApplyMutation(ctx context.Context, ids []string, m rules.Mutation) error {
	if len(ids) == 0 || m.Empty() {
		return nil
	}
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		for _, label := range m.Remove {
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM message_labels WHERE message_id = ? AND label = ?", id, label,
			); err != nil {
				return fmt.Errorf("remove label %s from %s: %w", label, id, err)
			}
		}
		for _, label := range m.Add {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO message_labels (message_id, label)
				SELECT message_id, ? FROM messages WHERE message_id = ?`, label, id,
			); err != nil {
				return fmt.Errorf("add label %s to %s: %w", label, id, err)
			}
		}
	}
	return tx.Commit()
}

func (d *SQLite) EmailCount(ctx context.Context) (int, error) {
	var n int
	if err := d.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages").Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func (d *SQLite) LabelCounts(ctx context.Context) ([]types.LabelCount, error) {
	rows, err := d.conn.QueryContext(ctx,
		"SELECT label, COUNT(*) FROM message_labels GROUP BY label ORDER BY COUNT(*) DESC, label")
	if err != nil {
		return nil, fmt.Errorf("count labels: %w", err)
	}
	defer rows.Close()

	var counts []types.LabelCount
	for rows.Next() {
		var c types.LabelCount
		if err := rows.Scan(&c.Label, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// splitLabels parses a comma-joined label list into sorted labels.
func splitLabels(s string) []string {
	if s == "" {
		return nil
	}
	labels := strings.Split(s, ",")
	sort.Strings(labels)
	return labels
}
