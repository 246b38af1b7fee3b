package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/L1nkStart/optimizacion-combinatoria/pkg/errors"
)

func newCatalogRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCatalogRepositorySnapshot(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT days, slots_per_day, day_names, slot_labels FROM time_grid LIMIT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"days", "slots_per_day", "day_names", "slot_labels"}).
			AddRow(5, 4, "Lunes,Martes,Miercoles,Jueves,Viernes", "8:00-9:30,9:45-11:15,11:30-13:00,14:00-15:30"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, position FROM teachers ORDER BY position ASC, id ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "position"}).
			AddRow("t1", "Prof. Garcia", 1).
			AddRow("t2", "Prof. Martinez", 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT teacher_id, day_of_week, time_slot FROM teacher_preferred_slots")).
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id", "day_of_week", "time_slot"}).
			AddRow("t1", 0, 0).
			AddRow("t1", 0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, capacity, position FROM rooms ORDER BY position ASC, id ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "capacity", "position"}).
			AddRow("a1", "Aula A", 30, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, name, teacher_id, weekly_sessions, position, updated_at FROM subjects")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "teacher_id", "weekly_sessions", "position", "updated_at"}).
			AddRow("m1", "ALG", "Algoritmos", "t1", 4, 1, now).
			AddRow("m2", "BD", "Bases de Datos", "t2", 3, 2, now))
	mock.ExpectRollback()

	snap, err := repo.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, snap.Grid.Days)
	assert.Equal(t, 4, snap.Grid.SlotsPerDay)
	require.Len(t, snap.Teachers, 2)
	assert.Equal(t, "Prof. Garcia", snap.Teachers[0].FullName)
	require.Len(t, snap.PreferredSlots, 2)
	assert.Equal(t, 1, snap.PreferredSlots[1].TimeSlot)
	require.Len(t, snap.Rooms, 1)
	require.Len(t, snap.Subjects, 2)
	assert.Equal(t, 3, snap.Subjects[1].WeeklySessions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositorySnapshotMissingGrid(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT days, slots_per_day, day_names, slot_labels FROM time_grid LIMIT 1")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Snapshot(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryVersion(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)
	latest := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS total")).
		WillReturnRows(sqlmock.NewRows([]string{"total", "latest"}).AddRow(5, latest))

	version, err := repo.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5-1704164645", version)
	assert.NoError(t, mock.ExpectationsWereMet())
}
