package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestNextReferenceCode(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDealRepository(db)

	prefix := "BF-" + time.Now().Format("20060102") + "-"

	// The advisory lock must be taken before the prefix count is read.
	mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs(prefix).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "deals"`).
		WithArgs(prefix + "%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(41))

	code, err := repo.NextReferenceCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%s00042", prefix), code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNextReferenceCode_FirstOfTheDay(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDealRepository(db)

	prefix := "BF-" + time.Now().Format("20060102") + "-"

	mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs(prefix).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "deals"`).
		WithArgs(prefix + "%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	code, err := repo.NextReferenceCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, prefix+"00001", code)
}

func TestGetByApplicationID_AbsentIsNotAnError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDealRepository(db)

	applicationID := uuid.NewString()
	mock.ExpectQuery(`SELECT \* FROM "deals" WHERE application_id = \$1`).
		WithArgs(applicationID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	deal, err := repo.GetByApplicationID(context.Background(), applicationID)
	require.NoError(t, err)
	assert.Nil(t, deal)
}
