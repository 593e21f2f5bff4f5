package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/domain"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/database"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/errors"
)

const serialColumns = `
	id, inventory_id, serial_number, product_id, location_id, expected,
	count1_found, count1_by, count1_at,
	count2_found, count2_by, count2_at,
	count3_found, count3_by, count3_at,
	count4_found, count4_by, count4_at,
	status, final_status, version, created_at, updated_at
`

// SerialRepository handles serial row persistence
type SerialRepository struct {
	db *database.DB
}

// NewSerialRepository creates a new serial repository
func NewSerialRepository(db *database.DB) *SerialRepository {
	return &SerialRepository{db: db}
}

// BulkInsert inserts the expected serial rows for an opening inventory
func (r *SerialRepository) BulkInsert(ctx context.Context, tx *sqlx.Tx, serials []*domain.InventorySerialItem) error {
	query := `
		INSERT INTO inventory_serial_items (
			id, inventory_id, serial_number, product_id, location_id,
			expected, status, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
	`

	for _, s := range serials {
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		if s.Status == "" {
			s.Status = domain.SerialPending
		}

		if _, err := tx.ExecContext(ctx, query,
			s.ID, s.InventoryID, s.SerialNumber, s.ProductID, s.LocationID,
			s.Expected, s.Status,
		); err != nil {
			if database.IsUniqueViolation(err) {
				return errors.Conflict("serial number " + s.SerialNumber + " already snapshotted")
			}
			return errors.Database(err)
		}
	}

	return nil
}

// GetBySerialNumber fetches one serial row of an inventory
func (r *SerialRepository) GetBySerialNumber(ctx context.Context, inventoryID, serialNumber string) (*domain.InventorySerialItem, error) {
	var s domain.InventorySerialItem

	query := `
		SELECT ` + serialColumns + `
		FROM inventory_serial_items
		WHERE inventory_id = $1 AND serial_number = $2
	`

	if err := r.db.GetContext(ctx, &s, query, inventoryID, serialNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("serial item not found")
		}
		return nil, errors.Database(err)
	}

	return &s, nil
}

// ListByInventory returns all serial rows of an inventory
func (r *SerialRepository) ListByInventory(ctx context.Context, inventoryID string) ([]*domain.InventorySerialItem, error) {
	query := `
		SELECT ` + serialColumns + `
		FROM inventory_serial_items
		WHERE inventory_id = $1
		ORDER BY location_id, product_id, serial_number
	`

	serials := []*domain.InventorySerialItem{}
	if err := r.db.SelectContext(ctx, &serials, query, inventoryID); err != nil {
		return nil, errors.Database(err)
	}

	return serials, nil
}

// ListByItem returns the serial rows matching an item's product and location
func (r *SerialRepository) ListByItem(ctx context.Context, inventoryID, productID, locationID string) ([]*domain.InventorySerialItem, error) {
	query := `
		SELECT ` + serialColumns + `
		FROM inventory_serial_items
		WHERE inventory_id = $1 AND product_id = $2 AND location_id = $3
		ORDER BY serial_number
	`

	serials := []*domain.InventorySerialItem{}
	if err := r.db.SelectContext(ctx, &serials, query, inventoryID, productID, locationID); err != nil {
		return nil, errors.Database(err)
	}

	return serials, nil
}

// ListByItemTx is ListByItem inside an existing transaction
func (r *SerialRepository) ListByItemTx(ctx context.Context, tx *sqlx.Tx, inventoryID, productID, locationID string) ([]*domain.InventorySerialItem, error) {
	query := `
		SELECT ` + serialColumns + `
		FROM inventory_serial_items
		WHERE inventory_id = $1 AND product_id = $2 AND location_id = $3
		ORDER BY serial_number
	`

	serials := []*domain.InventorySerialItem{}
	if err := tx.SelectContext(ctx, &serials, query, inventoryID, productID, locationID); err != nil {
		return nil, errors.Database(err)
	}

	return serials, nil
}

// Insert adds a single serial row discovered during counting (an extra)
func (r *SerialRepository) Insert(ctx context.Context, s *domain.InventorySerialItem) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	query := `
		INSERT INTO inventory_serial_items (
			id, inventory_id, serial_number, product_id, location_id,
			expected, count1_found, count1_by, count1_at,
			count2_found, count2_by, count2_at,
			count3_found, count3_by, count3_at,
			count4_found, count4_by, count4_at,
			status, final_status, version
		) VALUES ($1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, 1)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		s.ID, s.InventoryID, s.SerialNumber, s.ProductID, s.LocationID, s.Expected,
		s.Count1Found, s.Count1By, s.Count1At,
		s.Count2Found, s.Count2By, s.Count2At,
		s.Count3Found, s.Count3By, s.Count3At,
		s.Count4Found, s.Count4By, s.Count4At,
		s.Status, s.FinalStatus,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return errors.Conflict("serial number " + s.SerialNumber + " already registered")
		}
		return errors.Database(err)
	}

	return nil
}

// Update writes a serial row's reading columns with an optimistic version check
func (r *SerialRepository) Update(ctx context.Context, s *domain.InventorySerialItem) error {
	query := `
		UPDATE inventory_serial_items
		SET count1_found = $1, count1_by = $2, count1_at = $3,
		    count2_found = $4, count2_by = $5, count2_at = $6,
		    count3_found = $7, count3_by = $8, count3_at = $9,
		    count4_found = $10, count4_by = $11, count4_at = $12,
		    status = $13, final_status = $14,
		    version = version + 1, updated_at = NOW()
		WHERE id = $15 AND version = $16
	`

	result, err := r.db.ExecContext(ctx, query,
		s.Count1Found, s.Count1By, s.Count1At,
		s.Count2Found, s.Count2By, s.Count2At,
		s.Count3Found, s.Count3By, s.Count3At,
		s.Count4Found, s.Count4By, s.Count4At,
		s.Status, s.FinalStatus,
		s.ID, s.Version,
	)
	if err != nil {
		return errors.Database(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Database(err)
	}
	if rows == 0 {
		return errors.ConcurrentModification("serial item " + s.ID)
	}

	s.Version++
	return nil
}

// ResolvePending marks every still-pending serial row of an inventory as
// missing. Called when the inventory closes.
func (r *SerialRepository) ResolvePending(ctx context.Context, tx *sqlx.Tx, inventoryID string) (int, error) {
	query := `
		UPDATE inventory_serial_items
		SET status = $1, final_status = FALSE,
		    version = version + 1, updated_at = NOW()
		WHERE inventory_id = $2 AND status = $3
	`

	result, err := tx.ExecContext(ctx, query, domain.SerialMissing, inventoryID, domain.SerialPending)
	if err != nil {
		return 0, errors.Database(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Database(err)
	}

	return int(rows), nil
}
