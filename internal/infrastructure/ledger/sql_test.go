package ledger

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockLedger(t *testing.T) (*SQLLedger, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLLedger(db, sq.Dollar), mock
}

func TestSQLLedger_EnsureSchema(t *testing.T) {
	l, mock := newMockLedger(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS captured_entries")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, l.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLedger_Load(t *testing.T) {
	l, mock := newMockLedger(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT url FROM captured_entries WHERE ledger_ref = $1")).
		WithArgs("daily").
		WillReturnRows(sqlmock.NewRows([]string{"url"}).AddRow("u1").AddRow("u2"))

	ids, err := l.Load(context.Background(), "daily")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"u1": {}, "u2": {}}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLedger_LoadError(t *testing.T) {
	l, mock := newMockLedger(t)

	mock.ExpectQuery("SELECT url FROM captured_entries").
		WillReturnError(errors.New("connection reset"))

	_, err := l.Load(context.Background(), "daily")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query ledger")
}

func TestSQLLedger_Append(t *testing.T) {
	l, mock := newMockLedger(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO captured_entries (ledger_ref,url) VALUES ($1,$2) ON CONFLICT (ledger_ref, url) DO NOTHING")).
		WithArgs("daily", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, l.Append(context.Background(), "daily", "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLedger_Clear(t *testing.T) {
	l, mock := newMockLedger(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM captured_entries WHERE ledger_ref = $1")).
		WithArgs("daily").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, l.Clear(context.Background(), "daily"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
