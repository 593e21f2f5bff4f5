package service

import (
	"context"
	"time"

	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/domain"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/actor"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/errors"
)

// RegisterReadingRequest is one handheld scan of a serialized asset
type RegisterReadingRequest struct {
	SerialNumber string `json:"serial_number" validate:"required,min=1,max=100"`
	LocationID   string `json:"location_id" validate:"required,uuid"`
}

// RegisterReading records a serial scan for the stage currently open.
//
// A serial in the snapshot scanned at its expected location becomes FOUND. A
// snapshot serial scanned elsewhere, or a registry serial missing from the
// snapshot entirely, becomes EXTRA attributed to the location where it was
// actually found. Serials the registry does not know are rejected. Re-scans
// within the same stage are idempotent. The returned view hides what earlier
// passes found unless the actor is elevated.
func (s *Service) RegisterReading(ctx context.Context, inventoryID string, req *RegisterReadingRequest) (*SerialReadingView, error) {
	act, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	inv, err := s.inventories.GetByID(ctx, inventoryID)
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

	if !inv.LocationInScope(req.LocationID) {
		return nil, errors.OutOfScopeRead(req.SerialNumber, req.LocationID)
	}

	row, err := s.serials.GetBySerialNumber(ctx, inventoryID, req.SerialNumber)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		return s.registerUnexpected(ctx, inv, stage, req, act)
	}

	relocated := row.LocationID != req.LocationID

	if !row.MarkFound(stage, act.ID, time.Now().UTC()) {
		// Same serial, same stage: idempotent no-op, the row stays exactly
		// as the first scan left it
		return newSerialReadingView(row, act.Elevated()), nil
	}

	// A snapshot serial found away from its expected location is an extra
	// at the location where it actually turned up
	if relocated {
		row.Status = domain.SerialExtra
		row.LocationID = req.LocationID
	}

	if err := s.serials.Update(ctx, row); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("inventory_id", inventoryID).
		Str("serial_number", row.SerialNumber).
		Str("status", string(row.Status)).
		Int("stage", int(stage)).
		Str("counter_id", act.ID).
		Msg("serial reading registered")

	s.publisher.PublishSerialRegistered(ctx, row, stage, act.ID)
	return newSerialReadingView(row, act.Elevated()), nil
}

// registerUnexpected handles a scan of a serial absent from the snapshot. The
// asset registry decides whether it is a legitimate extra or an unknown tag.
func (s *Service) registerUnexpected(ctx context.Context, inv *domain.Inventory, stage domain.CountStage, req *RegisterReadingRequest, act *actor.Actor) (*SerialReadingView, error) {
	asset, err := s.assets.LookupSerial(ctx, req.SerialNumber)
	if err != nil {
		return nil, err
	}

	row := &domain.InventorySerialItem{
		InventoryID:  inv.ID,
		SerialNumber: asset.SerialNumber,
		ProductID:    asset.ProductID,
		LocationID:   req.LocationID,
		Expected:     false,
		Status:       domain.SerialExtra,
	}
	row.MarkFound(stage, act.ID, time.Now().UTC())

	if err := s.serials.Insert(ctx, row); err != nil {
		return nil, err
	}

	s.logger.Warn().
		Str("inventory_id", inv.ID).
		Str("serial_number", row.SerialNumber).
		Str("location_id", req.LocationID).
		Msg("unexpected serial registered as extra")

	s.publisher.PublishSerialRegistered(ctx, row, stage, act.ID)
	return newSerialReadingView(row, act.Elevated()), nil
}

// SerialReadingView is a serial row as returned from a scan. The per-stage
// reading marks reveal what earlier passes found, so they are stripped for
// regular counters; elevated roles see the full reconciliation state.
type SerialReadingView struct {
	ID           string              `json:"id"`
	InventoryID  string              `json:"inventory_id"`
	SerialNumber string              `json:"serial_number"`
	ProductID    string              `json:"product_id"`
	LocationID   string              `json:"location_id"`
	Expected     bool                `json:"expected"`
	Status       domain.SerialStatus `json:"status"`

	// Elevated-only fields
	Count1Found *bool      `json:"count1_found,omitempty"`
	Count1By    *string    `json:"count1_by,omitempty"`
	Count1At    *time.Time `json:"count1_at,omitempty"`
	Count2Found *bool      `json:"count2_found,omitempty"`
	Count2By    *string    `json:"count2_by,omitempty"`
	Count2At    *time.Time `json:"count2_at,omitempty"`
	Count3Found *bool      `json:"count3_found,omitempty"`
	Count3By    *string    `json:"count3_by,omitempty"`
	Count3At    *time.Time `json:"count3_at,omitempty"`
	Count4Found *bool      `json:"count4_found,omitempty"`
	Count4By    *string    `json:"count4_by,omitempty"`
	Count4At    *time.Time `json:"count4_at,omitempty"`
	FinalStatus *bool      `json:"final_status,omitempty"`
}

func newSerialReadingView(row *domain.InventorySerialItem, elevated bool) *SerialReadingView {
	v := &SerialReadingView{
		ID:           row.ID,
		InventoryID:  row.InventoryID,
		SerialNumber: row.SerialNumber,
		ProductID:    row.ProductID,
		LocationID:   row.LocationID,
		Expected:     row.Expected,
		Status:       row.Status,
	}

	if elevated {
		v.Count1Found, v.Count1By, v.Count1At = row.Count1Found, row.Count1By, row.Count1At
		v.Count2Found, v.Count2By, v.Count2At = row.Count2Found, row.Count2By, row.Count2At
		v.Count3Found, v.Count3By, v.Count3At = row.Count3Found, row.Count3By, row.Count3At
		v.Count4Found, v.Count4By, v.Count4At = row.Count4Found, row.Count4By, row.Count4At
		v.FinalStatus = row.FinalStatus
	}

	return v
}

// ListSerials returns the serial rows of an inventory. Handlers expose this
// only to elevated roles: the reconciliation state reveals prior readings.
func (s *Service) ListSerials(ctx context.Context, inventoryID string) ([]*domain.InventorySerialItem, error) {
	if _, err := s.inventories.GetByID(ctx, inventoryID); err != nil {
		return nil, err
	}
	return s.serials.ListByInventory(ctx, inventoryID)
}
