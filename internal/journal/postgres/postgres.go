// Package postgres implements the analysis journal on Postgres via pgxpool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/niisara/poc-azure-assistant/internal/journal"
)

// Statements are executed one at a time; pgx's default extended protocol
// rejects multi-statement batches.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS analysis_journal (
	id              BIGSERIAL PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	blob_name       TEXT NOT NULL,
	columns_count   INTEGER NOT NULL,
	analyzed_at     TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_analysis_journal_analyzed_at
	ON analysis_journal (analyzed_at)`,
}

type store struct {
	pool *pgxpool.Pool
}

func init() {
	journal.Register("postgres", New)
}

// New connects to cfg.DSN and ensures the journal table exists.
func New(ctx context.Context, cfg journal.Config) (journal.Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	for _, stmt := range ddl {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("journal postgres ddl: %w", err)
		}
	}
	return &store{pool: pool}, nil
}

func (s *store) Append(ctx context.Context, e journal.Entry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO analysis_journal (conversation_id, blob_name, columns_count, analyzed_at)
		 VALUES ($1, $2, $3, $4)`,
		e.ConversationID, e.BlobName, e.ColumnsCount, e.AnalyzedAt)
	return err
}

func (s *store) Recent(ctx context.Context, limit int) ([]journal.Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT conversation_id, blob_name, columns_count, analyzed_at
		 FROM analysis_journal
		 ORDER BY id DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []journal.Entry
	for rows.Next() {
		var e journal.Entry
		if err := rows.Scan(&e.ConversationID, &e.BlobName, &e.ColumnsCount, &e.AnalyzedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *store) Close() error {
	s.pool.Close()
	return nil
}
