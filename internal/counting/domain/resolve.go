package domain

// DiscrepancyType classifies the mismatch the resolver found on an item
type DiscrepancyType string

const (
	// DiscrepancySerialMismatch: the serial-derived quantity differs from
	// the snapshot expectation
	DiscrepancySerialMismatch DiscrepancyType = "SERIAL_MISMATCH"
	// DiscrepancyDuplicateSerial: the same serial number appears on more
	// than one row of the inventory
	DiscrepancyDuplicateSerial DiscrepancyType = "DUPLICATE_SERIAL"
	// DiscrepancyQuantitySerial: the manual count disagrees with the
	// serial-derived quantity for a serial-controlled item
	DiscrepancyQuantitySerial DiscrepancyType = "QUANTITY_SERIAL_MISMATCH"
)

// Severity grades a discrepancy by its distance from the expectation
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// GradeSeverity maps an absolute difference to a severity band
func GradeSeverity(diff int) Severity {
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= 1:
		return SeverityLow
	case diff <= 5:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

// Discrepancy is one resolver finding for an item
type Discrepancy struct {
	ItemID     string          `json:"item_id"`
	ProductID  string          `json:"product_id"`
	LocationID string          `json:"location_id"`
	Type       DiscrepancyType `json:"type"`
	Severity   Severity        `json:"severity"`
	Expected   int             `json:"expected"`
	Actual     int             `json:"actual"`
	Detail     string          `json:"detail,omitempty"`
}

// Resolution is the resolver's verdict for one item
type Resolution struct {
	// FinalQuantity is set when the item is resolved
	FinalQuantity *int
	// NeedsThirdCount is set when two manual passes disagree and no
	// authoritative source can break the tie yet
	NeedsThirdCount bool
	Discrepancies   []Discrepancy
}

// Resolved reports whether the verdict fixes a final quantity
func (r *Resolution) Resolved() bool {
	return r.FinalQuantity != nil
}

// Resolve decides an item's authoritative quantity from its manual counts and
// serial children. Pure function: it inspects but never mutates its inputs.
//
// Serial-controlled items resolve from the serial tally, which takes
// precedence over any manual count; disagreement between the two is reported
// as a discrepancy but does not block resolution. Non-serial items resolve
// when two manual passes agree or when an audit count settles the matter.
func Resolve(item *InventoryItem, serials []*InventorySerialItem) Resolution {
	if item.SerialControlled {
		return resolveSerial(item, serials)
	}
	return resolveManual(item)
}

func resolveSerial(item *InventoryItem, serials []*InventorySerialItem) Resolution {
	tally := TallySerials(serials)
	final := tally.Found

	res := Resolution{FinalQuantity: &final}

	if manual := item.ManualCount(); manual != nil && *manual != final {
		res.Discrepancies = append(res.Discrepancies, Discrepancy{
			ItemID:     item.ID,
			ProductID:  item.ProductID,
			LocationID: item.LocationID,
			Type:       DiscrepancyQuantitySerial,
			Severity:   GradeSeverity(*manual - final),
			Expected:   final,
			Actual:     *manual,
			Detail:     "manual count disagrees with serial readings",
		})
	}

	if final != item.ExpectedQuantity {
		res.Discrepancies = append(res.Discrepancies, Discrepancy{
			ItemID:     item.ID,
			ProductID:  item.ProductID,
			LocationID: item.LocationID,
			Type:       DiscrepancySerialMismatch,
			Severity:   GradeSeverity(final - item.ExpectedQuantity),
			Expected:   item.ExpectedQuantity,
			Actual:     final,
			Detail:     "serial-derived quantity differs from expected stock",
		})
	}

	return res
}

func resolveManual(item *InventoryItem) Resolution {
	// An audit count is always authoritative
	if item.Count4 != nil {
		return Resolution{FinalQuantity: item.Count4}
	}

	if item.Count1 == nil || item.Count2 == nil {
		return Resolution{}
	}

	if *item.Count1 == *item.Count2 {
		return Resolution{FinalQuantity: item.Count2}
	}

	// A third count is informative only. Once the first two passes disagree
	// the item stays open until an audit count settles it, no matter what
	// the recount shows.
	if item.Count3 != nil {
		return Resolution{}
	}

	return Resolution{NeedsThirdCount: true}
}

// FindDuplicateSerials scans all serial rows of an inventory and reports
// serial numbers appearing on more than one row. The snapshot enforces
// uniqueness, so hits here mean corrupted or manually altered data.
func FindDuplicateSerials(serials []*InventorySerialItem) []Discrepancy {
	seen := make(map[string]*InventorySerialItem, len(serials))
	var out []Discrepancy

	for _, s := range serials {
		first, ok := seen[s.SerialNumber]
		if !ok {
			seen[s.SerialNumber] = s
			continue
		}
		out = append(out, Discrepancy{
			ItemID:     s.ID,
			ProductID:  s.ProductID,
			LocationID: s.LocationID,
			Type:       DiscrepancyDuplicateSerial,
			Severity:   SeverityHigh,
			Detail:     "serial number " + s.SerialNumber + " also present on row " + first.ID,
		})
	}

	return out
}
