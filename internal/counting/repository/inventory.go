// Package repository persists counting campaigns, items and serial rows in
// PostgreSQL. Item and serial updates carry an optimistic version check: a
// write that matches zero rows means another counter got there first and is
// surfaced as a retryable conflict.
package repository

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/domain"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/database"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/errors"
)

// InventoryRepository handles counting campaign persistence
type InventoryRepository struct {
	db *database.DB
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *database.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// Create inserts a new campaign in planning status
func (r *InventoryRepository) Create(ctx context.Context, inv *domain.Inventory) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.Status == "" {
		inv.Status = domain.StatusPlanning
	}

	query := `
		INSERT INTO inventories (id, code, status, location_ids, category_ids, predicted_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		inv.ID, inv.Code, inv.Status, inv.LocationIDs, inv.CategoryIDs,
		inv.PredictedAt, inv.CreatedBy,
	).Scan(&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return errors.Conflict("inventory code already exists")
		}
		return errors.Database(err)
	}

	return nil
}

// GetByID fetches a campaign by ID
func (r *InventoryRepository) GetByID(ctx context.Context, id string) (*domain.Inventory, error) {
	var inv domain.Inventory

	query := `
		SELECT id, code, status, location_ids, category_ids,
		       started_at, predicted_at, ended_at, migrated_at,
		       created_by, created_at, updated_at
		FROM inventories WHERE id = $1
	`

	if err := r.db.GetContext(ctx, &inv, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("inventory not found")
		}
		return nil, errors.Database(err)
	}

	return &inv, nil
}

// GetForUpdate fetches a campaign inside a transaction and locks its row
// until the transaction ends
func (r *InventoryRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*domain.Inventory, error) {
	var inv domain.Inventory

	query := `
		SELECT id, code, status, location_ids, category_ids,
		       started_at, predicted_at, ended_at, migrated_at,
		       created_by, created_at, updated_at
		FROM inventories WHERE id = $1
		FOR UPDATE
	`

	if err := tx.GetContext(ctx, &inv, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("inventory not found")
		}
		return nil, errors.Database(err)
	}

	return &inv, nil
}

// List returns campaigns, newest first, optionally filtered by status
func (r *InventoryRepository) List(ctx context.Context, status domain.InventoryStatus, limit, offset int) ([]*domain.Inventory, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
		SELECT id, code, status, location_ids, category_ids,
		       started_at, predicted_at, ended_at, migrated_at,
		       created_by, created_at, updated_at
		FROM inventories
	`
	args := []interface{}{}

	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}

	query += ` ORDER BY created_at DESC`
	query += ` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	invs := []*domain.Inventory{}
	if err := r.db.SelectContext(ctx, &invs, query, args...); err != nil {
		return nil, errors.Database(err)
	}

	return invs, nil
}

// Count returns the total number of campaigns matching the status filter
func (r *InventoryRepository) Count(ctx context.Context, status domain.InventoryStatus) (int, error) {
	query := `SELECT COUNT(*) FROM inventories`
	args := []interface{}{}

	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, errors.Database(err)
	}

	return total, nil
}

// TransitionStatus moves a campaign from one status to another with a
// compare-and-set on the current status. A zero-row update means the campaign
// moved concurrently and the caller should re-read and retry.
func (r *InventoryRepository) TransitionStatus(ctx context.Context, id string, from, to domain.InventoryStatus) error {
	query := `
		UPDATE inventories
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	result, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return errors.Database(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Database(err)
	}
	if rows == 0 {
		return errors.ConcurrentModification("inventory " + id)
	}

	return nil
}

// TransitionStatusTx is TransitionStatus inside an existing transaction
func (r *InventoryRepository) TransitionStatusTx(ctx context.Context, tx *sqlx.Tx, id string, from, to domain.InventoryStatus) error {
	query := `
		UPDATE inventories
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	result, err := tx.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return errors.Database(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Database(err)
	}
	if rows == 0 {
		return errors.ConcurrentModification("inventory " + id)
	}

	return nil
}

// SetStarted stamps the snapshot time when the campaign opens
func (r *InventoryRepository) SetStarted(ctx context.Context, tx *sqlx.Tx, id string, at time.Time) error {
	query := `UPDATE inventories SET started_at = $1, updated_at = NOW() WHERE id = $2`
	if _, err := tx.ExecContext(ctx, query, at, id); err != nil {
		return errors.Database(err)
	}
	return nil
}

// SetEnded stamps the close time
func (r *InventoryRepository) SetEnded(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE inventories SET ended_at = $1, updated_at = NOW() WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, at, id); err != nil {
		return errors.Database(err)
	}
	return nil
}

// MarkMigrated stamps the stock-commit time, exactly once
func (r *InventoryRepository) MarkMigrated(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE inventories
		SET migrated_at = $1, updated_at = NOW()
		WHERE id = $2 AND migrated_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return errors.Database(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Database(err)
	}
	if rows == 0 {
		return errors.AlreadyMigrated(id)
	}

	return nil
}
