package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daviddao/mailrules/internal/rules"
	"github.com/daviddao/mailrules/internal/types"
)

// Postgres is a Store backed by the gmail schema in a Postgres database.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and ensures the gmail schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("open postgres: empty dsn")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) Dialect() rules.Dialect {
	return rules.Postgres
}

func (p *Postgres) UpsertEmail(ctx context.Context, e *types.Email) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO gmail.messages
			(message_id, thread_id, from_address, to_address, subject, body, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (message_id) DO UPDATE SET
			thread_id = EXCLUDED.thread_id,
			from_address = EXCLUDED.from_address,
			to_address = EXCLUDED.to_address,
			subject = EXCLUDED.subject,
			body = EXCLUDED.body,
			received_at = EXCLUDED.received_at,
			fetched_at = now()`,
		e.ID, e.ThreadID, e.From, e.To, e.Subject, e.Body, e.ReceivedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert message %s: %w", e.ID, err)
	}
	return nil
}

func (p *Postgres) ReplaceLabels(ctx context.Context, messageID string, labels []string) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM gmail.message_labels WHERE message_id = $1", messageID); err != nil {
			return fmt.Errorf("clear labels for %s: %w", messageID, err)
		}
		if len(labels) == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO gmail.message_labels (message_id, label)
			SELECT $1, unnest($2::text[])
			ON CONFLICT DO NOTHING`, messageID, labels,
		); err != nil {
			return fmt.Errorf("insert labels for %s: %w", messageID, err)
		}
		return nil
	})
}

func (p *Postgres) MatchingIDs(ctx context.Context, n rules.Node) ([]string, error) {
	where, args, err := filter(rules.Postgres, n)
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx,
		"SELECT message_id FROM gmail.messages"+where+" ORDER BY received_at DESC, message_id", args...)
	if err != nil {
		return nil, fmt.Errorf("query matching messages: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan matching messages: %w", err)
	}
	return ids, nil
}

func (p *Postgres) MatchingEmails(ctx context.Context, n rules.Node, limit int) ([]*types.Email, error) {
	where, args, err := filter(rules.Postgres, n)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT m.message_id, m.thread_id, m.from_address, m.to_address, m.subject, m.received_at,
			ARRAY(SELECT l.label FROM gmail.message_labels l WHERE l.message_id = m.message_id ORDER BY l.label)
		FROM gmail.messages m` + where + " ORDER BY m.received_at DESC, m.message_id"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query matching messages: %w", err)
	}
	defer rows.Close()

	var emails []*types.Email
	for rows.Next() {
		var e types.Email
		if err := rows.Scan(&e.ID, &e.ThreadID, &e.From, &e.To, &e.Subject, &e.ReceivedAt, &e.Labels); err != nil {
			return nil, err
		}
		e.ReceivedAt = e.ReceivedAt.UTC()
		emails = append(emails, &e)
	}
	return emails, rows.Err()
}

func (p *Postgres) ApplyMutation(ctx context.Context, ids []string, m rules.Mutation) error {
	if len(ids) == 0 || m.Empty() {
		return nil
	}
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if len(m.Remove) > 0 {
			if _, err := tx.Exec(ctx,
				"DELETE FROM gmail.message_labels WHERE message_id = ANY($1) AND label = ANY($2)",
				ids, m.Remove,
			); err != nil {
				return fmt.Errorf("remove labels: %w", err)
			}
		}
		if len(m.Add) > 0 {
			if _, err := tx.Exec(ctx, `
				INSERT INTO gmail.message_labels (message_id, label)
				SELECT m.message_id, l.label
				FROM gmail.messages m CROSS JOIN unnest($2::text[]) AS l(label)
				WHERE m.message_id = ANY($1)
				ON CONFLICT DO NOTHING`, ids, m.Add,
			); err != nil {
				return fmt.Errorf("add labels: %w", err)
			}
		}
		return nil
	})
}

func (p *Postgres) EmailCount(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM gmail.messages").Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func (p *Postgres) LabelCounts(ctx context.Context) ([]types.LabelCount, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT label, COUNT(*) FROM gmail.message_labels GROUP BY label ORDER BY COUNT(*) DESC, label")
	if err != nil {
		return nil, fmt.Errorf("count labels: %w", err)
	}
	counts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.LabelCount, error) {
		var c types.LabelCount
		err := row.Scan(&c.Label, &c.Count)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan label counts: %w", err)
	}
	return counts, nil
}
