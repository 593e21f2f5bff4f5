// Package domain holds the counting entities, the stage state machine and the
// discrepancy resolver. Everything here is pure: no storage, no transport, no
// cross-call state. Services pass entities in and get decisions out.
package domain

import (
	"time"

	"github.com/lib/pq"
)

// ItemStatus tracks the counting progress of a single (product, location) item
type ItemStatus string

const (
	ItemPending   ItemStatus = "PENDING"
	ItemCounting  ItemStatus = "COUNTING"
	ItemCompleted ItemStatus = "COMPLETED"
)

// SerialStatus tracks the reconciliation state of a serialized asset
type SerialStatus string

const (
	SerialPending SerialStatus = "PENDING"
	SerialFound   SerialStatus = "FOUND"
	SerialMissing SerialStatus = "MISSING"
	// SerialExtra marks an asset found at a location different from its
	// snapshot location, or not part of the snapshot at all
	SerialExtra SerialStatus = "EXTRA"
)

// Inventory is one counting campaign. Items and serial rows are snapshotted
// when the inventory opens and are never re-derived from live stock.
type Inventory struct {
	ID          string          `db:"id" json:"id"`
	Code        string          `db:"code" json:"code"`
	Status      InventoryStatus `db:"status" json:"status"`
	LocationIDs pq.StringArray  `db:"location_ids" json:"location_ids"`
	CategoryIDs pq.StringArray  `db:"category_ids" json:"category_ids"`
	StartedAt   *time.Time      `db:"started_at" json:"started_at,omitempty"`
	PredictedAt *time.Time      `db:"predicted_at" json:"predicted_at,omitempty"`
	EndedAt     *time.Time      `db:"ended_at" json:"ended_at,omitempty"`
	MigratedAt  *time.Time      `db:"migrated_at" json:"migrated_at,omitempty"`
	CreatedBy   string          `db:"created_by" json:"created_by"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// LocationInScope reports whether a location belongs to the inventory's
// selected scope. An empty selection means "all locations".
func (inv *Inventory) LocationInScope(locationID string) bool {
	if len(inv.LocationIDs) == 0 {
		return true
	}
	for _, id := range inv.LocationIDs {
		if id == locationID {
			return true
		}
	}
	return false
}

// InventoryItem is one (inventory, product, location) triple, the unit of
// manual counting. ExpectedQuantity is the stock level snapshotted at open.
type InventoryItem struct {
	ID               string     `db:"id" json:"id"`
	InventoryID      string     `db:"inventory_id" json:"inventory_id"`
	ProductID        string     `db:"product_id" json:"product_id"`
	LocationID       string     `db:"location_id" json:"location_id"`
	SerialControlled bool       `db:"serial_controlled" json:"serial_controlled"`
	ExpectedQuantity int        `db:"expected_quantity" json:"expected_quantity"`
	Count1           *int       `db:"count1" json:"count1,omitempty"`
	Count2           *int       `db:"count2" json:"count2,omitempty"`
	Count3           *int       `db:"count3" json:"count3,omitempty"`
	Count4           *int       `db:"count4" json:"count4,omitempty"`
	FinalQuantity    *int       `db:"final_quantity" json:"final_quantity,omitempty"`
	Status           ItemStatus `db:"status" json:"status"`
	Version          int        `db:"version" json:"-"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Count returns the recorded value for a stage, nil when not yet counted
func (it *InventoryItem) Count(stage CountStage) *int {
	switch stage {
	case Stage1:
		return it.Count1
	case Stage2:
		return it.Count2
	case Stage3:
		return it.Count3
	case Stage4:
		return it.Count4
	}
	return nil
}

// SetCount stores a stage value. Write-once enforcement lives in the service,
// not here.
func (it *InventoryItem) SetCount(stage CountStage, quantity int) {
	q := quantity
	switch stage {
	case Stage1:
		it.Count1 = &q
	case Stage2:
		it.Count2 = &q
	case Stage3:
		it.Count3 = &q
	case Stage4:
		it.Count4 = &q
	}
}

// Resolved reports whether the item's authoritative quantity is fixed
func (it *InventoryItem) Resolved() bool {
	return it.FinalQuantity != nil
}

// RequiresStage reports whether the item still needs a value for the given
// stage. Stages one and two are always required; stage three and the audit
// count apply only to items not yet resolved.
func (it *InventoryItem) RequiresStage(stage CountStage) bool {
	switch stage {
	case Stage1, Stage2:
		return true
	case Stage3, Stage4:
		return !it.Resolved()
	}
	return false
}

// ManualCount returns the most authoritative manual value recorded so far:
// the audit count when present, otherwise count3, count2, count1.
func (it *InventoryItem) ManualCount() *int {
	for _, c := range []*int{it.Count4, it.Count3, it.Count2, it.Count1} {
		if c != nil {
			return c
		}
	}
	return nil
}

// InventorySerialItem is one (inventory, serial number) record for a
// serialized asset. ProductID/LocationID are the snapshot expectation; for
// EXTRA rows they describe where the asset was actually found.
type InventorySerialItem struct {
	ID           string       `db:"id" json:"id"`
	InventoryID  string       `db:"inventory_id" json:"inventory_id"`
	SerialNumber string       `db:"serial_number" json:"serial_number"`
	ProductID    string       `db:"product_id" json:"product_id"`
	LocationID   string       `db:"location_id" json:"location_id"`
	Expected     bool         `db:"expected" json:"expected"`
	Count1Found  *bool        `db:"count1_found" json:"count1_found,omitempty"`
	Count1By     *string      `db:"count1_by" json:"count1_by,omitempty"`
	Count1At     *time.Time   `db:"count1_at" json:"count1_at,omitempty"`
	Count2Found  *bool        `db:"count2_found" json:"count2_found,omitempty"`
	Count2By     *string      `db:"count2_by" json:"count2_by,omitempty"`
	Count2At     *time.Time   `db:"count2_at" json:"count2_at,omitempty"`
	Count3Found  *bool        `db:"count3_found" json:"count3_found,omitempty"`
	Count3By     *string      `db:"count3_by" json:"count3_by,omitempty"`
	Count3At     *time.Time   `db:"count3_at" json:"count3_at,omitempty"`
	Count4Found  *bool        `db:"count4_found" json:"count4_found,omitempty"`
	Count4By     *string      `db:"count4_by" json:"count4_by,omitempty"`
	Count4At     *time.Time   `db:"count4_at" json:"count4_at,omitempty"`
	Status       SerialStatus `db:"status" json:"status"`
	FinalStatus  *bool        `db:"final_status" json:"final_status,omitempty"`
	Version      int          `db:"version" json:"-"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// FoundAt reports whether the serial was already read in the given stage
func (s *InventorySerialItem) FoundAt(stage CountStage) bool {
	var f *bool
	switch stage {
	case Stage1:
		f = s.Count1Found
	case Stage2:
		f = s.Count2Found
	case Stage3:
		f = s.Count3Found
	case Stage4:
		f = s.Count4Found
	}
	return f != nil && *f
}

// MarkFound records a reading for the stage. Returns false when the stage was
// already recorded: duplicate handheld scans are idempotent no-ops.
func (s *InventorySerialItem) MarkFound(stage CountStage, counterID string, at time.Time) bool {
	if s.FoundAt(stage) {
		return false
	}

	found := true
	switch stage {
	case Stage1:
		s.Count1Found, s.Count1By, s.Count1At = &found, &counterID, &at
	case Stage2:
		s.Count2Found, s.Count2By, s.Count2At = &found, &counterID, &at
	case Stage3:
		s.Count3Found, s.Count3By, s.Count3At = &found, &counterID, &at
	case Stage4:
		s.Count4Found, s.Count4By, s.Count4At = &found, &counterID, &at
	default:
		return false
	}

	if s.Status != SerialExtra {
		s.Status = SerialFound
	}
	s.FinalStatus = &found
	return true
}

// CountsForItem reports whether the serial contributes to the serial-derived
// total of its parent item. Extras are attributed to the location where they
// were actually found and reported separately, never folded into the
// originally expected item's total.
func (s *InventorySerialItem) CountsForItem() bool {
	return s.FinalStatus != nil && *s.FinalStatus && s.Status != SerialExtra
}

// SerialTally aggregates the serial children of one item
type SerialTally struct {
	Found   int `json:"found"`
	Missing int `json:"missing"`
	Extra   int `json:"extra"`
}

// TallySerials aggregates serial rows for one item. Rows never scanned count
// as missing; extras are tracked separately.
func TallySerials(serials []*InventorySerialItem) SerialTally {
	var t SerialTally
	for _, s := range serials {
		switch {
		case s.Status == SerialExtra:
			t.Extra++
		case s.CountsForItem():
			t.Found++
		default:
			t.Missing++
		}
	}
	return t
}
