package service

import (
	"context"

	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/domain"
)

// Report thresholds. Campaigns below the accuracy floor or above the
// divergence ceiling are flagged for supervisor review before stock commit.
const (
	accuracyWarningThreshold   = 90.0
	divergenceWarningThreshold = 10.0
)

// ValidationReport states whether an inventory is ready to close and what
// still blocks it
type ValidationReport struct {
	InventoryID       string                 `json:"inventory_id"`
	Status            domain.InventoryStatus `json:"status"`
	Ready             bool                   `json:"ready"`
	UnresolvedItemIDs []string               `json:"unresolved_item_ids"`
	PendingSerials    int                    `json:"pending_serials"`
	DuplicateSerials  []domain.Discrepancy   `json:"duplicate_serials,omitempty"`
	Blockers          []string               `json:"blockers,omitempty"`
}

// ValidateInventory checks the closing preconditions without changing
// anything. Pending serials do not block closing (they become missing), but
// they are reported so supervisors can chase them first.
func (s *Service) ValidateInventory(ctx context.Context, inventoryID string) (*ValidationReport, error) {
	inv, err := s.inventories.GetByID(ctx, inventoryID)
	if err != nil {
		return nil, err
	}

	report := &ValidationReport{
		InventoryID:       inv.ID,
		Status:            inv.Status,
		UnresolvedItemIDs: []string{},
	}

	unresolved, err := s.items.ListUnresolved(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	for _, item := range unresolved {
		report.UnresolvedItemIDs = append(report.UnresolvedItemIDs, item.ID)
	}
	if len(unresolved) > 0 {
		report.Blockers = append(report.Blockers, "items without a final quantity")
	}

	serials, err := s.serials.ListByInventory(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	for _, row := range serials {
		if row.Status == domain.SerialPending {
			report.PendingSerials++
		}
	}

	// Duplicates in the serial table mean corrupted snapshot data and
	// always block closing
	report.DuplicateSerials = domain.FindDuplicateSerials(serials)
	if len(report.DuplicateSerials) > 0 {
		report.Blockers = append(report.Blockers, "duplicate serial numbers in the snapshot")
	}

	if inv.Status != domain.StatusCount2Completed && inv.Status != domain.StatusAuditMode {
		report.Blockers = append(report.Blockers, "inventory status does not allow closing")
	}

	report.Ready = len(report.Blockers) == 0
	return report, nil
}

// ReconciliationLine is one item of the reconciliation report
type ReconciliationLine struct {
	ItemID        string `json:"item_id"`
	ProductID     string `json:"product_id"`
	LocationID    string `json:"location_id"`
	Expected      int    `json:"expected"`
	FinalQuantity *int   `json:"final_quantity"`
	Difference    int    `json:"difference"`
	Severity      string `json:"severity,omitempty"`
}

// ReconciliationReport compares final quantities against the snapshot
type ReconciliationReport struct {
	InventoryID    string                 `json:"inventory_id"`
	Status         domain.InventoryStatus `json:"status"`
	TotalItems     int                    `json:"total_items"`
	ResolvedItems  int                    `json:"resolved_items"`
	DivergentItems int                    `json:"divergent_items"`
	SerialsFound   int                    `json:"serials_found"`
	SerialsMissing int                    `json:"serials_missing"`
	SerialsExtra   int                    `json:"serials_extra"`
	Accuracy       float64                `json:"accuracy"`
	DivergenceRate float64                `json:"divergence_rate"`
	Warnings       []string               `json:"warnings,omitempty"`
	Lines          []ReconciliationLine   `json:"lines"`
}

// ReconcileInventory builds the reconciliation report. Available at any point
// after counting starts; handlers restrict it to elevated roles because the
// lines expose recorded quantities.
func (s *Service) ReconcileInventory(ctx context.Context, inventoryID string) (*ReconciliationReport, error) {
	inv, err := s.inventories.GetByID(ctx, inventoryID)
	if err != nil {
		return nil, err
	}

	items, err := s.items.ListByInventory(ctx, inventoryID)
	if err != nil {
		return nil, err
	}

	serials, err := s.serials.ListByInventory(ctx, inventoryID)
	if err != nil {
		return nil, err
	}

	report := &ReconciliationReport{
		InventoryID: inv.ID,
		Status:      inv.Status,
		TotalItems:  len(items),
		Lines:       make([]ReconciliationLine, 0, len(items)),
	}

	accurate := 0
	for _, item := range items {
		line := ReconciliationLine{
			ItemID:        item.ID,
			ProductID:     item.ProductID,
			LocationID:    item.LocationID,
			Expected:      item.ExpectedQuantity,
			FinalQuantity: item.FinalQuantity,
		}

		if item.FinalQuantity != nil {
			report.ResolvedItems++
			line.Difference = *item.FinalQuantity - item.ExpectedQuantity
			if line.Difference == 0 {
				accurate++
			} else {
				report.DivergentItems++
				line.Severity = string(domain.GradeSeverity(line.Difference))
			}
		}

		report.Lines = append(report.Lines, line)
	}

	tally := domain.TallySerials(serials)
	report.SerialsFound = tally.Found
	report.SerialsMissing = tally.Missing
	report.SerialsExtra = tally.Extra

	if report.ResolvedItems > 0 {
		report.Accuracy = float64(accurate) / float64(report.ResolvedItems) * 100
	}
	if report.TotalItems > 0 {
		report.DivergenceRate = float64(report.DivergentItems) / float64(report.TotalItems) * 100
	}

	if report.ResolvedItems > 0 && report.Accuracy < accuracyWarningThreshold {
		report.Warnings = append(report.Warnings, "count accuracy below 90%, review before committing stock")
	}
	if report.DivergenceRate > divergenceWarningThreshold {
		report.Warnings = append(report.Warnings, "more than 10% of items diverge from expected stock")
	}

	return report, nil
}
