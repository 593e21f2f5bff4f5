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

const itemColumns = `
	id, inventory_id, product_id, location_id, serial_controlled,
	expected_quantity, count1, count2, count3, count4, final_quantity,
	status, version, created_at, updated_at
`

// ItemRepository handles inventory item persistence
type ItemRepository struct {
	db *database.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// BulkInsert inserts the snapshot rows for an opening inventory. Runs inside
// the open transaction so a failed snapshot leaves nothing behind.
func (r *ItemRepository) BulkInsert(ctx context.Context, tx *sqlx.Tx, items []*domain.InventoryItem) error {
	query := `
		INSERT INTO inventory_items (
			id, inventory_id, product_id, location_id, serial_controlled,
			expected_quantity, status, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
	`

	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		if item.Status == "" {
			item.Status = domain.ItemPending
		}

		if _, err := tx.ExecContext(ctx, query,
			item.ID, item.InventoryID, item.ProductID, item.LocationID,
			item.SerialControlled, item.ExpectedQuantity, item.Status,
		); err != nil {
			return errors.Database(err)
		}
	}

	return nil
}

// GetByID fetches an item by ID
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*domain.InventoryItem, error) {
	var item domain.InventoryItem

	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE id = $1`

	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("inventory item not found")
		}
		return nil, errors.Database(err)
	}

	return &item, nil
}

// ListByInventory returns all items of an inventory ordered by location and product
func (r *ItemRepository) ListByInventory(ctx context.Context, inventoryID string) ([]*domain.InventoryItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM inventory_items
		WHERE inventory_id = $1
		ORDER BY location_id, product_id
	`

	items := []*domain.InventoryItem{}
	if err := r.db.SelectContext(ctx, &items, query, inventoryID); err != nil {
		return nil, errors.Database(err)
	}

	return items, nil
}

// ListByInventoryTx is ListByInventory inside an existing transaction, with
// the rows locked until the transaction ends
func (r *ItemRepository) ListByInventoryTx(ctx context.Context, tx *sqlx.Tx, inventoryID string) ([]*domain.InventoryItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM inventory_items
		WHERE inventory_id = $1
		ORDER BY location_id, product_id
		FOR UPDATE
	`

	items := []*domain.InventoryItem{}
	if err := tx.SelectContext(ctx, &items, query, inventoryID); err != nil {
		return nil, errors.Database(err)
	}

	return items, nil
}

// ListUnresolved returns items of an inventory without a final quantity
func (r *ItemRepository) ListUnresolved(ctx context.Context, inventoryID string) ([]*domain.InventoryItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM inventory_items
		WHERE inventory_id = $1 AND final_quantity IS NULL
		ORDER BY location_id, product_id
	`

	items := []*domain.InventoryItem{}
	if err := r.db.SelectContext(ctx, &items, query, inventoryID); err != nil {
		return nil, errors.Database(err)
	}

	return items, nil
}

// Update writes the item's mutable columns with an optimistic version check.
// The item's Version must be the value read; on success it is incremented to
// match the stored row.
func (r *ItemRepository) Update(ctx context.Context, item *domain.InventoryItem) error {
	query := `
		UPDATE inventory_items
		SET count1 = $1, count2 = $2, count3 = $3, count4 = $4,
		    final_quantity = $5, status = $6,
		    version = version + 1, updated_at = NOW()
		WHERE id = $7 AND version = $8
	`

	result, err := r.db.ExecContext(ctx, query,
		item.Count1, item.Count2, item.Count3, item.Count4,
		item.FinalQuantity, item.Status,
		item.ID, item.Version,
	)
	if err != nil {
		return errors.Database(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Database(err)
	}
	if rows == 0 {
		return errors.ConcurrentModification("inventory item " + item.ID)
	}

	item.Version++
	return nil
}

// UpdateTx is Update inside an existing transaction
func (r *ItemRepository) UpdateTx(ctx context.Context, tx *sqlx.Tx, item *domain.InventoryItem) error {
	query := `
		UPDATE inventory_items
		SET count1 = $1, count2 = $2, count3 = $3, count4 = $4,
		    final_quantity = $5, status = $6,
		    version = version + 1, updated_at = NOW()
		WHERE id = $7 AND version = $8
	`

	result, err := tx.ExecContext(ctx, query,
		item.Count1, item.Count2, item.Count3, item.Count4,
		item.FinalQuantity, item.Status,
		item.ID, item.Version,
	)
	if err != nil {
		return errors.Database(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Database(err)
	}
	if rows == 0 {
		return errors.ConcurrentModification("inventory item " + item.ID)
	}

	item.Version++
	return nil
}

// ProgressCounts aggregates item progress for one inventory
type ProgressCounts struct {
	Total     int `db:"total"`
	Counted   int `db:"counted"`
	Resolved  int `db:"resolved"`
	Divergent int `db:"divergent"`
}

// Progress returns item progress for the given counting stage. Counted means
// the stage column is filled; divergent means resolved but off the snapshot.
func (r *ItemRepository) Progress(ctx context.Context, inventoryID string, stage domain.CountStage) (*ProgressCounts, error) {
	var col string
	switch stage {
	case domain.Stage1:
		col = "count1"
	case domain.Stage2:
		col = "count2"
	case domain.Stage3:
		col = "count3"
	case domain.Stage4:
		col = "count4"
	default:
		return nil, errors.BadRequest("unknown counting stage")
	}

	query := `
		SELECT COUNT(*) AS total,
		       COUNT(` + col + `) AS counted,
		       COUNT(final_quantity) AS resolved,
		       COUNT(*) FILTER (WHERE final_quantity IS NOT NULL
		                          AND final_quantity <> expected_quantity) AS divergent
		FROM inventory_items
		WHERE inventory_id = $1
	`

	var p ProgressCounts
	if err := r.db.GetContext(ctx, &p, query, inventoryID); err != nil {
		return nil, errors.Database(err)
	}

	return &p, nil
}
