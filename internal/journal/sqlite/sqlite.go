// Package sqlite implements the analysis journal on SQLite.
//
// SQLite has no native timestamp type; AnalyzedAt is stored as an
// RFC3339Nano string for reliable round-trip behavior and easy debugging.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/niisara/poc-azure-assistant/internal/journal"
)

const ddl = `
CREATE TABLE IF NOT EXISTS analysis_journal (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL,
	blob_name       TEXT NOT NULL,
	columns_count   INTEGER NOT NULL,
	analyzed_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analysis_journal_analyzed_at
	ON analysis_journal (analyzed_at);
`

type store struct {
	db *sql.DB
}

func init() {
	journal.Register("sqlite", New)
}

// New opens (or creates) the journal database at cfg.DSN.
func New(ctx context.Context, cfg journal.Config) (journal.Store, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal sqlite ddl: %w", err)
	}
	return &store{db: db}, nil
}

func (s *store) Append(ctx context.Context, e journal.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analysis_journal (conversation_id, blob_name, columns_count, analyzed_at)
		 VALUES (?, ?, ?, ?)`,
		e.ConversationID, e.BlobName, e.ColumnsCount, e.AnalyzedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *store) Recent(ctx context.Context, limit int) ([]journal.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_id, blob_name, columns_count, analyzed_at
		 FROM analysis_journal
		 ORDER BY id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []journal.Entry
	for rows.Next() {
		var e journal.Entry
		var ts string
		if err := rows.Scan(&e.ConversationID, &e.BlobName, &e.ColumnsCount, &ts); err != nil {
			return nil, err
		}
		e.AnalyzedAt, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("journal sqlite: bad analyzed_at %q: %w", ts, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *store) Close() error { return s.db.Close() }
