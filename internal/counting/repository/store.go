package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/domain"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/database"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/errors"
)

// Store bundles the counting repositories and the transactional operations
// spanning more than one of them
type Store struct {
	db *database.DB
	*InventoryRepository
	Items   *ItemRepository
	Serials *SerialRepository
}

// NewStore creates a store over the given database
func NewStore(db *database.DB) *Store {
	return &Store{
		db:                  db,
		InventoryRepository: NewInventoryRepository(db),
		Items:               NewItemRepository(db),
		Serials:             NewSerialRepository(db),
	}
}

// OpenSnapshot atomically moves a planning inventory to open, stamps the
// snapshot time and writes the item and serial rows. A failure anywhere rolls
// the whole snapshot back.
func (s *Store) OpenSnapshot(ctx context.Context, inv *domain.Inventory, items []*domain.InventoryItem, serials []*domain.InventorySerialItem, at time.Time) error {
	return s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.TransitionStatusTx(ctx, tx, inv.ID, domain.StatusPlanning, domain.StatusOpen); err != nil {
			return err
		}
		if err := s.SetStarted(ctx, tx, inv.ID, at); err != nil {
			return err
		}
		if err := s.Items.BulkInsert(ctx, tx, items); err != nil {
			return err
		}
		return s.Serials.BulkInsert(ctx, tx, serials)
	})
}

// StageCloseOutcome reports what one stage close did: which pass closed, the
// statuses the campaign moved through, and the resolver results for passes
// that evaluate items.
type StageCloseOutcome struct {
	Stage         domain.CountStage
	From          domain.InventoryStatus
	Closed        domain.InventoryStatus
	Final         domain.InventoryStatus
	Unresolved    int
	Discrepancies []domain.Discrepancy
}

// CloseStage closes the currently open counting pass in one transaction. The
// uncounted-item check, the status moves and the resolver verdicts all land
// together or not at all, so a failure partway cannot strand the campaign
// between statuses. The campaign row is locked for the duration.
func (s *Store) CloseStage(ctx context.Context, inventoryID string) (*StageCloseOutcome, error) {
	var out *StageCloseOutcome

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		inv, err := s.GetForUpdate(ctx, tx, inventoryID)
		if err != nil {
			return err
		}

		stage := inv.Status.OpenStage()
		target, ok := inv.Status.CloseTarget()
		if !ok {
			if inv.Status.IsTerminal() {
				return errors.InventoryClosed(string(inv.Status))
			}
			return errors.StageClosed(int(stage))
		}

		items, err := s.Items.ListByInventoryTx(ctx, tx, inventoryID)
		if err != nil {
			return err
		}

		var missing []string
		for _, item := range items {
			if item.RequiresStage(stage) && item.Count(stage) == nil {
				missing = append(missing, item.ID)
			}
		}
		if len(missing) > 0 {
			return errors.StagePrecondition("items are still uncounted for this stage", missing)
		}

		if err := s.TransitionStatusTx(ctx, tx, inventoryID, inv.Status, target); err != nil {
			return err
		}

		out = &StageCloseOutcome{Stage: stage, From: inv.Status, Closed: target, Final: target}

		// The first pass closes without evaluation: blind counting needs a
		// second value before anything can be compared
		if stage == domain.Stage1 {
			return nil
		}

		for _, item := range items {
			if item.Resolved() {
				continue
			}

			var serials []*domain.InventorySerialItem
			if item.SerialControlled {
				serials, err = s.Serials.ListByItemTx(ctx, tx, inventoryID, item.ProductID, item.LocationID)
				if err != nil {
					return err
				}
			}

			res := domain.Resolve(item, serials)
			out.Discrepancies = append(out.Discrepancies, res.Discrepancies...)

			if !res.Resolved() {
				out.Unresolved++
				continue
			}

			item.FinalQuantity = res.FinalQuantity
			item.Status = domain.ItemCompleted
			if err := s.Items.UpdateTx(ctx, tx, item); err != nil {
				return err
			}
		}

		switch stage {
		case domain.Stage2:
			next := domain.StatusCount2Completed
			if out.Unresolved > 0 {
				next = domain.StatusCount3Required
			}
			if err := s.TransitionStatusTx(ctx, tx, inventoryID, target, next); err != nil {
				return err
			}
			out.Final = next
		case domain.Stage3:
			// The third pass always hands the campaign to the audit,
			// whatever the recounts showed
			if err := s.TransitionStatusTx(ctx, tx, inventoryID, target, domain.StatusAuditMode); err != nil {
				return err
			}
			out.Final = domain.StatusAuditMode
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// CloseInventory atomically resolves still-pending serial rows to missing and
// moves the inventory to closed. Returns the number of serials marked missing.
func (s *Store) CloseInventory(ctx context.Context, inventoryID string, from domain.InventoryStatus, at time.Time) (int, error) {
	var missing int

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		n, err := s.Serials.ResolvePending(ctx, tx, inventoryID)
		if err != nil {
			return err
		}
		missing = n

		if err := s.TransitionStatusTx(ctx, tx, inventoryID, from, domain.StatusClosed); err != nil {
			return err
		}

		query := `UPDATE inventories SET ended_at = $1, updated_at = NOW() WHERE id = $2`
		_, err = tx.ExecContext(ctx, query, at, inventoryID)
		return err
	})
	if err != nil {
		return 0, err
	}

	return missing, nil
}
