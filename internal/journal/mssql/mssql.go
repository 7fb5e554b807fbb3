// Package mssql implements the analysis journal on Microsoft SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/niisara/poc-azure-assistant/internal/journal"
)

const ddl = `
IF OBJECT_ID('analysis_journal', 'U') IS NULL
CREATE TABLE analysis_journal (
	id              BIGINT IDENTITY(1,1) PRIMARY KEY,
	conversation_id NVARCHAR(256) NOT NULL,
	blob_name       NVARCHAR(1024) NOT NULL,
	columns_count   INT NOT NULL,
	analyzed_at     DATETIMEOFFSET NOT NULL
);
`

type store struct {
	db *sql.DB
}

func init() {
	journal.Register("mssql", New)
}

// New connects using the "sqlserver" driver and ensures the journal table
// exists.
func New(ctx context.Context, cfg journal.Config) (journal.Store, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal mssql ddl: %w", err)
	}
	return &store{db: db}, nil
}

func (s *store) Append(ctx context.Context, e journal.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analysis_journal (conversation_id, blob_name, columns_count, analyzed_at)
		 VALUES (@p1, @p2, @p3, @p4)`,
		e.ConversationID, e.BlobName, e.ColumnsCount, e.AnalyzedAt)
	return err
}

func (s *store) Recent(ctx context.Context, limit int) ([]journal.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT TOP (@p1) conversation_id, blob_name, columns_count, analyzed_at
		 FROM analysis_journal
		 ORDER BY id DESC`, limit)
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

func (s *store) Close() error { return s.db.Close() }
