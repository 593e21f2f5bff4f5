package service

import (
	"context"

	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/domain"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/errors"
)

// RecordCountRequest is a blind count submission for one item
type RecordCountRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// CorrectCountRequest overwrites an already recorded count. Elevated roles only.
type CorrectCountRequest struct {
	Stage    int `json:"stage" validate:"required,min=1,max=4"`
	Quantity int `json:"quantity" validate:"gte=0"`
}

// RecordCount records a blind count for the stage currently open on the
// item's inventory. Counts are write-once: a second submission for the same
// stage conflicts and must go through CorrectCount. The returned view is
// blind for regular counters, like every other item read.
func (s *Service) RecordCount(ctx context.Context, itemID string, req *RecordCountRequest) (*ItemView, error) {
	act, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	inv, err := s.inventories.GetByID(ctx, item.InventoryID)
	if err != nil {
		return nil, err
	}

	stage := inv.Status.OpenStage()
	if stage == 0 {
		if inv.Status.IsTerminal() {
			return nil, errors.InventoryClosed(string(inv.Status))
		}
		return nil, errors.StageClosed(int(stage))
	}

	// Audit counts are reserved for the elevated path
	if stage == domain.Stage4 && !act.Elevated() {
		return nil, errors.Forbidden("audit counts require supervisor or auditor role")
	}

	if !item.RequiresStage(stage) {
		return nil, errors.Conflict("item is already resolved")
	}

	if item.Count(stage) != nil {
		return nil, errors.CountAlreadyRecorded(int(stage))
	}

	item.SetCount(stage, req.Quantity)
	item.Status = domain.ItemCounting

	// An audit count settles the item immediately
	if stage == domain.Stage4 {
		serials, err := s.itemSerials(ctx, item)
		if err != nil {
			return nil, err
		}
		res := domain.Resolve(item, serials)
		if res.Resolved() {
			item.FinalQuantity = res.FinalQuantity
			item.Status = domain.ItemCompleted
		}
		for _, d := range res.Discrepancies {
			s.publisher.PublishDiscrepancyDetected(ctx, item.InventoryID, d)
		}
	}

	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("item_id", item.ID).
		Str("inventory_id", item.InventoryID).
		Int("stage", int(stage)).
		Str("counter_id", act.ID).
		Msg("count recorded")

	s.publisher.PublishCountRecorded(ctx, item, stage, act.ID)
	return newItemView(item, act.Elevated()), nil
}

// CorrectCount overwrites a recorded count and re-runs the resolver for the
// item. The elevated-role gate lives in the HTTP layer; the service re-checks
// it because corrections bypass blind-count protections.
func (s *Service) CorrectCount(ctx context.Context, itemID string, req *CorrectCountRequest) (*ItemView, error) {
	act, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if !act.Elevated() {
		return nil, errors.Forbidden("count corrections require supervisor or auditor role")
	}

	stage := domain.CountStage(req.Stage)
	if !stage.Valid() {
		return nil, errors.BadRequest("unknown counting stage")
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	inv, err := s.inventories.GetByID(ctx, item.InventoryID)
	if err != nil {
		return nil, err
	}
	if inv.Status.IsTerminal() {
		return nil, errors.InventoryClosed(string(inv.Status))
	}

	if item.Count(stage) == nil {
		return nil, errors.BadRequest("no count recorded for this stage, nothing to correct")
	}

	item.SetCount(stage, req.Quantity)

	// The correction invalidates any verdict built on the old value
	item.FinalQuantity = nil
	item.Status = domain.ItemCounting

	serials, err := s.itemSerials(ctx, item)
	if err != nil {
		return nil, err
	}
	res := domain.Resolve(item, serials)
	if res.Resolved() {
		item.FinalQuantity = res.FinalQuantity
		item.Status = domain.ItemCompleted
	}
	for _, d := range res.Discrepancies {
		s.publisher.PublishDiscrepancyDetected(ctx, item.InventoryID, d)
	}

	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Warn().
		Str("item_id", item.ID).
		Int("stage", req.Stage).
		Str("corrected_by", act.ID).
		Msg("count corrected")

	s.publisher.PublishCountCorrected(ctx, item, stage, act.ID)
	return newItemView(item, act.Elevated()), nil
}

func (s *Service) itemSerials(ctx context.Context, item *domain.InventoryItem) ([]*domain.InventorySerialItem, error) {
	if !item.SerialControlled {
		return nil, nil
	}
	return s.serials.ListByItem(ctx, item.InventoryID, item.ProductID, item.LocationID)
}

// ItemView is an item as seen through the API. For regular counters the
// expected quantity and all recorded counts are stripped so counting stays
// blind; elevated roles see everything.
type ItemView struct {
	ID               string            `json:"id"`
	InventoryID      string            `json:"inventory_id"`
	ProductID        string            `json:"product_id"`
	LocationID       string            `json:"location_id"`
	SerialControlled bool              `json:"serial_controlled"`
	Status           domain.ItemStatus `json:"status"`
	CountedStages    []int             `json:"counted_stages"`

	// Elevated-only fields
	ExpectedQuantity *int `json:"expected_quantity,omitempty"`
	Count1           *int `json:"count1,omitempty"`
	Count2           *int `json:"count2,omitempty"`
	Count3           *int `json:"count3,omitempty"`
	Count4           *int `json:"count4,omitempty"`
	FinalQuantity    *int `json:"final_quantity,omitempty"`
}

func newItemView(item *domain.InventoryItem, elevated bool) *ItemView {
	v := &ItemView{
		ID:               item.ID,
		InventoryID:      item.InventoryID,
		ProductID:        item.ProductID,
		LocationID:       item.LocationID,
		SerialControlled: item.SerialControlled,
		Status:           item.Status,
		CountedStages:    []int{},
	}

	for _, stage := range []domain.CountStage{domain.Stage1, domain.Stage2, domain.Stage3, domain.Stage4} {
		if item.Count(stage) != nil {
			v.CountedStages = append(v.CountedStages, int(stage))
		}
	}

	if elevated {
		expected := item.ExpectedQuantity
		v.ExpectedQuantity = &expected
		v.Count1 = item.Count1
		v.Count2 = item.Count2
		v.Count3 = item.Count3
		v.Count4 = item.Count4
		v.FinalQuantity = item.FinalQuantity
	}

	return v
}

// ListItems returns the items of an inventory, blind for regular counters
func (s *Service) ListItems(ctx context.Context, inventoryID string) ([]*ItemView, error) {
	act, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.inventories.GetByID(ctx, inventoryID); err != nil {
		return nil, err
	}

	items, err := s.items.ListByInventory(ctx, inventoryID)
	if err != nil {
		return nil, err
	}

	views := make([]*ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, newItemView(item, act.Elevated()))
	}

	return views, nil
}

// GetItem returns one item, blind for regular counters
func (s *Service) GetItem(ctx context.Context, itemID string) (*ItemView, error) {
	act, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	return newItemView(item, act.Elevated()), nil
}

// ProgressReport summarizes counting progress for the stage implied by the
// inventory's status
type ProgressReport struct {
	InventoryID     string                 `json:"inventory_id"`
	Status          domain.InventoryStatus `json:"status"`
	Stage           int                    `json:"stage"`
	TotalItems      int                    `json:"total_items"`
	CountedItems    int                    `json:"counted_items"`
	ResolvedItems   int                    `json:"resolved_items"`
	DivergentItems  int                    `json:"divergent_items"`
	PercentComplete float64                `json:"percent_complete"`
}

// progressStage maps a status to the stage whose progress is most relevant
func progressStage(status domain.InventoryStatus) domain.CountStage {
	if s := status.OpenStage(); s != 0 {
		return s
	}
	switch status {
	case domain.StatusCount1Closed:
		return domain.Stage1
	case domain.StatusCount2Open, domain.StatusCount2Closed, domain.StatusCount2Completed, domain.StatusCount3Required:
		return domain.Stage2
	case domain.StatusCount3Open, domain.StatusCount3Closed:
		return domain.Stage3
	case domain.StatusClosed:
		return domain.Stage4
	}
	return domain.Stage1
}

// GetProgress reports counting progress for an inventory
func (s *Service) GetProgress(ctx context.Context, inventoryID string) (*ProgressReport, error) {
	inv, err := s.inventories.GetByID(ctx, inventoryID)
	if err != nil {
		return nil, err
	}

	stage := progressStage(inv.Status)
	counts, err := s.items.Progress(ctx, inventoryID, stage)
	if err != nil {
		return nil, err
	}

	report := &ProgressReport{
		InventoryID:    inv.ID,
		Status:         inv.Status,
		Stage:          int(stage),
		TotalItems:     counts.Total,
		CountedItems:   counts.Counted,
		ResolvedItems:  counts.Resolved,
		DivergentItems: counts.Divergent,
	}
	if counts.Total > 0 {
		report.PercentComplete = float64(counts.Counted) / float64(counts.Total) * 100
	}

	return report, nil
}
