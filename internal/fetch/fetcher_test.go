package fetch

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugtech/findash/internal/query"
)

type recordingObserver struct {
	calls  int
	failed int
}

func (o *recordingObserver) ObserveQuery(_ time.Duration, err error) {
	o.calls++
	if err != nil {
		o.failed++
	}
}

func TestSQLFetchNormalisesRows(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	due := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT VALOR, NOME, VENC FROM CONTAS_RECEBER WHERE IDLOJA = ?").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"VALOR", "NOME", "VENC"}).
			AddRow([]byte("10.50"), []byte("ACME  "), due).
			AddRow(nil, "Beta", nil))

	obs := &recordingObserver{}
	f := NewSQL(db, WithObserver(obs))
	stmt, err := query.NewStatement("SELECT VALOR, NOME, VENC FROM CONTAS_RECEBER WHERE IDLOJA = ?", int64(7))
	require.NoError(t, err)

	table, err := f.Fetch(context.Background(), stmt)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []string{"valor", "nome", "venc"}, table.Columns)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "ACME", table.String(0, "NOME"))
	assert.True(t, decimal.RequireFromString("10.5").Equal(table.Decimal(0, "valor").Decimal))
	assert.InDelta(t, 10.5, table.Float(0, "valor"), 1e-9)
	got, ok := table.Time(0, "venc")
	require.True(t, ok)
	assert.True(t, due.Equal(got))

	assert.False(t, table.Decimal(1, "valor").Valid)
	assert.Zero(t, table.Float(1, "valor"))
	_, ok = table.Time(1, "venc")
	assert.False(t, ok)
	assert.Equal(t, 1, obs.calls)
}

func TestSQLFetchWrapsQueryErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("connection reset"))

	obs := &recordingObserver{}
	f := NewSQL(db, WithObserver(obs))
	table, err := f.Fetch(context.Background(), query.Statement{Text: "SELECT 1"})
	require.Error(t, err)

	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "SELECT 1", qerr.Query)
	assert.True(t, table.Empty())
	assert.Equal(t, 1, obs.failed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLFetchRejectsMismatchedStatement(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewSQL(db).Fetch(context.Background(), query.Statement{Text: "SELECT ? FROM X"})
	assert.ErrorIs(t, err, query.ErrPlaceholderMismatch)
}

func TestSQLFetchDollarDialect(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT 1 WHERE a = $1 AND b = $2").
		WithArgs("x", "y").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(1)))

	f := NewSQL(db, WithDialect(DialectFor("pgx")))
	table, err := f.Fetch(context.Background(), query.Statement{Text: "SELECT 1 WHERE a = ? AND b = ?", Args: []any{"x", "y"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), table.Scalar())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLFetchWithoutDatabase(t *testing.T) {
	f := NewSQL(nil)
	assert.False(t, f.Available())

	table, err := f.Fetch(context.Background(), query.Statement{Text: "SELECT 1"})
	require.NoError(t, err)
	assert.True(t, table.Empty())
}

func TestSQLServesEmptyTablesWhileUnreachable(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true), sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f := NewSQL(db, WithRecheck(time.Minute))
	f.now = func() time.Time { return now }
	stmt := query.Statement{Text: "SELECT 1 AS n FROM RDB$DATABASE"}

	f.MarkUnreachable(errors.New("connection refused"))
	assert.False(t, f.Available())
	table, err := f.Fetch(context.Background(), stmt)
	require.NoError(t, err)
	assert.True(t, table.Empty())

	now = now.Add(2 * time.Minute)
	mock.ExpectPing().WillReturnError(errors.New("still down"))
	assert.False(t, f.Available())
	// Within the recheck window no further ping is attempted.
	assert.False(t, f.Available())

	now = now.Add(2 * time.Minute)
	mock.ExpectPing()
	mock.ExpectQuery(stmt.Text).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(1)))
	assert.True(t, f.Available())
	table, err = f.Fetch(context.Background(), stmt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), table.Scalar())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMarksConnectionErrorsUnreachable(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	stmt := query.Statement{Text: "SELECT 1 AS n FROM RDB$DATABASE"}
	mock.ExpectQuery(stmt.Text).WillReturnError(&net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")})

	f := NewSQL(db)
	_, err = f.Fetch(context.Background(), stmt)
	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	assert.False(t, f.Available())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLQueryErrorsKeepDatabaseAvailable(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	stmt := query.Statement{Text: "SELECT BROKEN FROM X"}
	mock.ExpectQuery(stmt.Text).WillReturnError(errors.New("Column unknown BROKEN"))

	f := NewSQL(db)
	_, err = f.Fetch(context.Background(), stmt)
	require.Error(t, err)
	assert.True(t, f.Available())
}
