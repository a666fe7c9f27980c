package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/floorplan/internal/domain"
)

func setupMockTableStore(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *TableStore) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock, NewTableStore(db)
}

func TestTableStoreReplaceRollsBackOnInsertFailure(t *testing.T) {
	_, mock, store := setupMockTableStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COALESCE\(client_id, ''\), code, name, status FROM dining_tables`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"client_id", "code", "name", "status"}).
			AddRow("item-a", "T4", "Window", domain.TableStatusOccupied))
	mock.ExpectExec(`DELETE FROM dining_tables`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO dining_tables`).
		WithArgs(int64(1), "item-a", "T4", "Window", 2, domain.TableStatusOccupied, 0).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err := store.ReplaceTables(context.Background(), 1, []domain.TableAssignment{
		{ClientID: "item-a", Name: "Window", Seats: 2},
	})

	assert.ErrorContains(t, err, "failed to insert table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableStoreReplaceBeginFailure(t *testing.T) {
	_, mock, store := setupMockTableStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	_, err := store.ReplaceTables(context.Background(), 1, nil)

	assert.ErrorContains(t, err, "failed to begin transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableStoreListTablesQueryFailure(t *testing.T) {
	_, mock, store := setupMockTableStore(t)

	mock.ExpectQuery(`SELECT code, seats, status FROM dining_tables`).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrConnDone)

	_, err := store.ListTables(context.Background(), 9)

	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}
