package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/L1nkStart/optimizacion-combinatoria/internal/models"
	appErrors "github.com/L1nkStart/optimizacion-combinatoria/pkg/errors"
)

// CatalogRepository reads the timetable catalog tables.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository builds a catalog repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Snapshot loads the grid, teachers, preferred slots, rooms and subjects in
// one transaction so the catalog is consistent.
func (r *CatalogRepository) Snapshot(ctx context.Context) (*models.CatalogSnapshot, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin catalog snapshot: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var snap models.CatalogSnapshot

	const gridQuery = `SELECT days, slots_per_day, day_names, slot_labels FROM time_grid LIMIT 1`
	if err := tx.GetContext(ctx, &snap.Grid, gridQuery); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time grid is not configured")
		}
		return nil, fmt.Errorf("get time grid: %w", err)
	}

	const teacherQuery = `SELECT id, full_name, position FROM teachers ORDER BY position ASC, id ASC`
	if err := tx.SelectContext(ctx, &snap.Teachers, teacherQuery); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}

	const preferredQuery = `SELECT teacher_id, day_of_week, time_slot FROM teacher_preferred_slots ORDER BY teacher_id ASC, day_of_week ASC, time_slot ASC`
	if err := tx.SelectContext(ctx, &snap.PreferredSlots, preferredQuery); err != nil {
		return nil, fmt.Errorf("list teacher preferred slots: %w", err)
	}

	const roomQuery = `SELECT id, name, capacity, position FROM rooms ORDER BY position ASC, id ASC`
	if err := tx.SelectContext(ctx, &snap.Rooms, roomQuery); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	const subjectQuery = `SELECT id, code, name, teacher_id, weekly_sessions, position, updated_at FROM subjects ORDER BY position ASC, id ASC`
	if err := tx.SelectContext(ctx, &snap.Subjects, subjectQuery); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}

	return &snap, nil
}

// Version returns a token that changes whenever subjects are edited. It is
// used to key cached catalogs.
func (r *CatalogRepository) Version(ctx context.Context) (string, error) {
	const query = `SELECT COUNT(*) AS total, COALESCE(MAX(updated_at), 'epoch'::timestamptz) AS latest FROM subjects`
	var row struct {
		Total  int          `db:"total"`
		Latest sql.NullTime `db:"latest"`
	}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return "", fmt.Errorf("catalog version: %w", err)
	}
	latest := int64(0)
	if row.Latest.Valid {
		latest = row.Latest.Time.UTC().Unix()
	}
	return fmt.Sprintf("%d-%d", row.Total, latest), nil
}
