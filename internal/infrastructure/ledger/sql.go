package ledger

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"   // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"GazetteScanner/internal/ports"
)

const ledgerTable = "captured_entries"

const createLedgerTable = `CREATE TABLE IF NOT EXISTS captured_entries (
	ledger_ref  TEXT NOT NULL,
	url         TEXT NOT NULL,
	captured_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (ledger_ref, url)
)`

// SQLLedger persists ledger entries into Postgres or SQLite.
type SQLLedger struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.Ledger = (*SQLLedger)(nil)

// NewSQLLedger wires a sql.DB; placeholder must match the driver
// (sq.Dollar for Postgres, sq.Question for SQLite).
func NewSQLLedger(db *sql.DB, placeholder sq.PlaceholderFormat) *SQLLedger {
	return &SQLLedger{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
	}
}

// OpenPostgres connects with lib/pq and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*SQLLedger, *sql.DB, error) {
	return open(ctx, "postgres", dsn, sq.Dollar)
}

// OpenSQLite opens a local database file and ensures the schema exists.
func OpenSQLite(ctx context.Context, path string) (*SQLLedger, *sql.DB, error) {
	return open(ctx, "sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", sq.Question)
}

func open(ctx context.Context, driver, dsn string, placeholder sq.PlaceholderFormat) (*SQLLedger, *sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", driver, err)
	}
	l := NewSQLLedger(db, placeholder)
	if err := l.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return l, db, nil
}

// EnsureSchema creates the ledger table if needed.
func (l *SQLLedger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, createLedgerTable); err != nil {
		return fmt.Errorf("create ledger table: %w", err)
	}
	return nil
}

// Load returns every url recorded for ref.
func (l *SQLLedger) Load(ctx context.Context, ref string) (map[string]struct{}, error) {
	query, args, err := l.builder.Select("url").From(ledgerTable).Where(sq.Eq{"ledger_ref": ref}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}

	result := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan url: %w", err)
		}
		result[url] = struct{}{}
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// Append inserts id, ignoring conflicts on (ledger_ref, url).
func (l *SQLLedger) Append(ctx context.Context, ref, id string) error {
	query, args, err := l.builder.Insert(ledgerTable).
		Columns("ledger_ref", "url").
		Values(ref, id).
		Suffix("ON CONFLICT (ledger_ref, url) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// Clear removes every entry of ref.
func (l *SQLLedger) Clear(ctx context.Context, ref string) error {
	query, args, err := l.builder.Delete(ledgerTable).Where(sq.Eq{"ledger_ref": ref}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	return nil
}
