package service

import (
	"context"
	"time"

	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/client"
	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/domain"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/errors"
)

// CreateInventoryRequest is the request to plan a new counting campaign
type CreateInventoryRequest struct {
	Code        string     `json:"code" validate:"required,min=3,max=50"`
	LocationIDs []string   `json:"location_ids"`
	CategoryIDs []string   `json:"category_ids"`
	PredictedAt *time.Time `json:"predicted_at,omitempty"`
}

// CreateInventory plans a new campaign. Nothing is snapshotted yet; the scope
// can still be adjusted until the inventory opens.
func (s *Service) CreateInventory(ctx context.Context, req *CreateInventoryRequest) (*domain.Inventory, error) {
	act, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	inv := &domain.Inventory{
		Code:        req.Code,
		Status:      domain.StatusPlanning,
		LocationIDs: req.LocationIDs,
		CategoryIDs: req.CategoryIDs,
		PredictedAt: req.PredictedAt,
		CreatedBy:   act.ID,
	}

	if err := s.inventories.Create(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("inventory_id", inv.ID).
		Str("code", inv.Code).
		Msg("counting campaign created")

	s.publisher.PublishInventoryCreated(ctx, inv)
	return inv, nil
}

// GetInventory fetches a campaign by ID
func (s *Service) GetInventory(ctx context.Context, id string) (*domain.Inventory, error) {
	return s.inventories.GetByID(ctx, id)
}

// ListInventories returns campaigns with the total for pagination
func (s *Service) ListInventories(ctx context.Context, status domain.InventoryStatus, limit, offset int) ([]*domain.Inventory, int, error) {
	if status != "" && !domain.KnownStatus(status) {
		return nil, 0, errors.BadRequest("unknown inventory status filter")
	}

	invs, err := s.inventories.List(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.inventories.Count(ctx, status)
	if err != nil {
		return nil, 0, err
	}

	return invs, total, nil
}

// OpenInventory snapshots current stock and serialized assets for the
// campaign's scope and opens it for counting. The snapshot is taken exactly
// once; counting never consults live stock afterwards.
func (s *Service) OpenInventory(ctx context.Context, id string) (*domain.Inventory, error) {
	act, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	inv, err := s.inventories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if inv.Status != domain.StatusPlanning {
		if inv.Status.IsTerminal() {
			return nil, errors.InventoryClosed(string(inv.Status))
		}
		return nil, errors.Conflict("inventory is already open")
	}

	filter := client.SnapshotFilter{
		LocationIDs: inv.LocationIDs,
		CategoryIDs: inv.CategoryIDs,
	}

	lines, err := s.stock.Snapshot(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, errors.BadRequest("stock snapshot is empty for the selected scope")
	}

	assets, err := s.assets.ListAssets(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*domain.InventoryItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, &domain.InventoryItem{
			InventoryID:      inv.ID,
			ProductID:        line.ProductID,
			LocationID:       line.LocationID,
			SerialControlled: line.SerialControlled,
			ExpectedQuantity: line.Quantity,
			Status:           domain.ItemPending,
		})
	}

	serials := make([]*domain.InventorySerialItem, 0, len(assets))
	for _, asset := range assets {
		serials = append(serials, &domain.InventorySerialItem{
			InventoryID:  inv.ID,
			SerialNumber: asset.SerialNumber,
			ProductID:    asset.ProductID,
			LocationID:   asset.LocationID,
			Expected:     true,
			Status:       domain.SerialPending,
		})
	}

	now := time.Now().UTC()
	if err := s.inventories.OpenSnapshot(ctx, inv, items, serials, now); err != nil {
		return nil, err
	}

	inv.Status = domain.StatusOpen
	inv.StartedAt = &now

	s.logger.Info().
		Str("inventory_id", inv.ID).
		Int("items", len(items)).
		Int("serials", len(serials)).
		Msg("inventory opened with stock snapshot")

	s.publisher.PublishInventoryOpened(ctx, inv, len(items), len(serials))
	s.publisher.PublishStageChanged(ctx, inv.ID, domain.StatusPlanning, domain.StatusOpen, act.ID)
	return inv, nil
}

// OpenStage opens a counting pass. The transition table decides which passes
// are reachable from the current status.
func (s *Service) OpenStage(ctx context.Context, id string, stage domain.CountStage) (*domain.Inventory, error) {
	act, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	if !stage.Valid() {
		return nil, errors.BadRequest("unknown counting stage")
	}

	inv, err := s.inventories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	target := domain.NextOpenStatus(stage)
	if !domain.CanTransition(inv.Status, target) {
		if inv.Status.IsTerminal() {
			return nil, errors.InventoryClosed(string(inv.Status))
		}
		return nil, errors.Conflict("cannot open stage from status " + string(inv.Status))
	}

	if err := s.inventories.TransitionStatus(ctx, id, inv.Status, target); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("inventory_id", id).
		Int("stage", int(stage)).
		Str("opened_by", act.ID).
		Msg("counting stage opened")

	s.publisher.PublishStageChanged(ctx, id, inv.Status, target, act.ID)
	inv.Status = target
	return inv, nil
}

// CloseStage closes the currently open counting pass. Closing requires every
// item still in the pass to have its count recorded; after the second and
// third passes the resolver runs and decides where the campaign goes next.
// The whole close runs in one store transaction, so the campaign is never
// left parked between statuses by a partial failure.
func (s *Service) CloseStage(ctx context.Context, id string) (*domain.Inventory, error) {
	act, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	inv, err := s.inventories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	out, err := s.inventories.CloseStage(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publisher.PublishStageChanged(ctx, id, out.From, out.Closed, act.ID)
	if out.Final != out.Closed {
		s.publisher.PublishStageChanged(ctx, id, out.Closed, out.Final, act.ID)
	}
	for _, d := range out.Discrepancies {
		s.publisher.PublishDiscrepancyDetected(ctx, id, d)
	}

	if out.Stage != domain.Stage1 {
		s.logger.Info().
			Str("inventory_id", id).
			Int("stage", int(out.Stage)).
			Int("unresolved", out.Unresolved).
			Str("status", string(out.Final)).
			Msg("counting pass evaluated")
	}

	inv.Status = out.Final
	return inv, nil
}

// CloseInventory finishes the campaign. Every item must be resolved; pending
// serial rows become missing; the final quantities are committed to ERP
// stock. A failed commit leaves the inventory closed but unmigrated so the
// commit can be retried.
func (s *Service) CloseInventory(ctx context.Context, id string) (*domain.Inventory, error) {
	act, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	inv, err := s.inventories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if inv.Status != domain.StatusCount2Completed && inv.Status != domain.StatusAuditMode {
		if inv.Status.IsTerminal() {
			return nil, errors.InventoryClosed(string(inv.Status))
		}
		return nil, errors.Conflict("inventory cannot be closed from status " + string(inv.Status))
	}

	unresolvedItems, err := s.items.ListUnresolved(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(unresolvedItems) > 0 {
		ids := make([]string, 0, len(unresolvedItems))
		for _, item := range unresolvedItems {
			ids = append(ids, item.ID)
		}
		return nil, errors.StagePrecondition("items without a final quantity block closing", ids)
	}

	// Closing always passes through audit mode, even when nothing was left
	// to audit after the second pass
	from := inv.Status
	if from == domain.StatusCount2Completed {
		if err := s.inventories.TransitionStatus(ctx, id, from, domain.StatusAuditMode); err != nil {
			return nil, err
		}
		s.publisher.PublishStageChanged(ctx, id, from, domain.StatusAuditMode, act.ID)
		from = domain.StatusAuditMode
	}

	now := time.Now().UTC()
	missing, err := s.inventories.CloseInventory(ctx, id, from, now)
	if err != nil {
		return nil, err
	}

	s.publisher.PublishStageChanged(ctx, id, from, domain.StatusClosed, act.ID)
	inv.Status = domain.StatusClosed
	inv.EndedAt = &now

	items, err := s.items.ListByInventory(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("inventory_id", id).
		Int("items", len(items)).
		Int("serials_missing", missing).
		Msg("inventory closed")

	s.publisher.PublishInventoryClosed(ctx, inv, len(items), act.ID)

	if err := s.commitStock(ctx, inv, items); err != nil {
		// The inventory stays closed with migrated_at unset; the commit
		// is retried through MigrateInventory
		s.logger.Error().Err(err).Str("inventory_id", id).Msg("stock commit failed, retry via migrate")
	}

	return inv, nil
}

func (s *Service) commitStock(ctx context.Context, inv *domain.Inventory, items []*domain.InventoryItem) error {
	lines := make([]client.CommitLine, 0, len(items))
	for _, item := range items {
		if item.FinalQuantity == nil {
			continue
		}
		lines = append(lines, client.CommitLine{
			ProductID:     item.ProductID,
			LocationID:    item.LocationID,
			FinalQuantity: *item.FinalQuantity,
		})
	}

	if err := s.committer.CommitStock(ctx, inv.ID, lines); err != nil {
		return err
	}

	if err := s.inventories.MarkMigrated(ctx, inv.ID, time.Now().UTC()); err != nil {
		return err
	}

	s.publisher.PublishStockCommitted(ctx, inv.ID, len(lines))
	return nil
}

// MigrateInventory retries the stock commit for a closed inventory whose
// commit did not go through when it closed
func (s *Service) MigrateInventory(ctx context.Context, id string) (*domain.Inventory, error) {
	inv, err := s.inventories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if inv.Status != domain.StatusClosed {
		return nil, errors.Conflict("only closed inventories can be migrated")
	}
	if inv.MigratedAt != nil {
		return nil, errors.AlreadyMigrated(id)
	}

	items, err := s.items.ListByInventory(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.commitStock(ctx, inv, items); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	inv.MigratedAt = &now
	return inv, nil
}

// CancelInventory cancels the campaign from any non-terminal status
func (s *Service) CancelInventory(ctx context.Context, id string) (*domain.Inventory, error) {
	act, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	inv, err := s.inventories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if inv.Status.IsTerminal() {
		return nil, errors.InventoryClosed(string(inv.Status))
	}

	if err := s.inventories.TransitionStatus(ctx, id, inv.Status, domain.StatusCancelled); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("inventory_id", id).
		Str("from_status", string(inv.Status)).
		Str("cancelled_by", act.ID).
		Msg("inventory cancelled")

	s.publisher.PublishInventoryCancelled(ctx, id, inv.Status, act.ID)
	s.publisher.PublishStageChanged(ctx, id, inv.Status, domain.StatusCancelled, act.ID)

	inv.Status = domain.StatusCancelled
	return inv, nil
}
