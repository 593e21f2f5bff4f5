package domain

// InventoryStatus is the lifecycle state of a counting campaign
type InventoryStatus string

const (
	StatusPlanning        InventoryStatus = "planning"
	StatusOpen            InventoryStatus = "open"
	StatusCount1Open      InventoryStatus = "count1_open"
	StatusCount1Closed    InventoryStatus = "count1_closed"
	StatusCount2Open      InventoryStatus = "count2_open"
	StatusCount2Closed    InventoryStatus = "count2_closed"
	StatusCount2Completed InventoryStatus = "count2_completed"
	StatusCount3Required  InventoryStatus = "count3_required"
	StatusCount3Open      InventoryStatus = "count3_open"
	StatusCount3Closed    InventoryStatus = "count3_closed"
	StatusAuditMode       InventoryStatus = "audit_mode"
	StatusClosed          InventoryStatus = "closed"
	StatusCancelled       InventoryStatus = "cancelled"
)

// CountStage identifies one counting pass. Stage4 is the audit count recorded
// during audit_mode.
type CountStage int

const (
	Stage1 CountStage = 1
	Stage2 CountStage = 2
	Stage3 CountStage = 3
	Stage4 CountStage = 4
)

// Valid reports whether the stage is one of the four known passes
func (s CountStage) Valid() bool {
	return s >= Stage1 && s <= Stage4
}

// transitions is the full status graph. Any status absent here is terminal.
var transitions = map[InventoryStatus][]InventoryStatus{
	StatusPlanning:        {StatusOpen, StatusCancelled},
	StatusOpen:            {StatusCount1Open, StatusCancelled},
	StatusCount1Open:      {StatusCount1Closed, StatusCancelled},
	StatusCount1Closed:    {StatusCount2Open, StatusCancelled},
	StatusCount2Open:      {StatusCount2Closed, StatusCancelled},
	StatusCount2Closed:    {StatusCount2Completed, StatusCount3Required, StatusCancelled},
	StatusCount2Completed: {StatusAuditMode, StatusCancelled},
	StatusCount3Required:  {StatusCount3Open, StatusCancelled},
	StatusCount3Open:      {StatusCount3Closed, StatusCancelled},
	StatusCount3Closed:    {StatusAuditMode, StatusCancelled},
	StatusAuditMode:       {StatusClosed, StatusCancelled},
}

// CanTransition reports whether moving from one status to another is legal
func CanTransition(from, to InventoryStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions
func (s InventoryStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Countable reports whether manual counts and serial readings are accepted
// in this status
func (s InventoryStatus) Countable() bool {
	switch s {
	case StatusCount1Open, StatusCount2Open, StatusCount3Open, StatusAuditMode:
		return true
	}
	return false
}

// OpenStage maps a status to the counting pass it accepts, 0 when none
func (s InventoryStatus) OpenStage() CountStage {
	switch s {
	case StatusCount1Open:
		return Stage1
	case StatusCount2Open:
		return Stage2
	case StatusCount3Open:
		return Stage3
	case StatusAuditMode:
		return Stage4
	}
	return 0
}

// NextOpenStatus returns the status that opens the given stage
func NextOpenStatus(stage CountStage) InventoryStatus {
	switch stage {
	case Stage1:
		return StatusCount1Open
	case Stage2:
		return StatusCount2Open
	case Stage3:
		return StatusCount3Open
	case Stage4:
		return StatusAuditMode
	}
	return ""
}

// CloseTarget returns the status a counting pass closes into. The decision
// between count2_completed and count3_required after the second pass depends
// on the item evaluation and is taken by the service, so stage two closes into
// count2_closed first.
func (s InventoryStatus) CloseTarget() (InventoryStatus, bool) {
	switch s {
	case StatusCount1Open:
		return StatusCount1Closed, true
	case StatusCount2Open:
		return StatusCount2Closed, true
	case StatusCount3Open:
		return StatusCount3Closed, true
	}
	return "", false
}

// KnownStatus reports whether the value is a recognized lifecycle status
func KnownStatus(s InventoryStatus) bool {
	switch s {
	case StatusPlanning, StatusOpen,
		StatusCount1Open, StatusCount1Closed,
		StatusCount2Open, StatusCount2Closed, StatusCount2Completed,
		StatusCount3Required, StatusCount3Open, StatusCount3Closed,
		StatusAuditMode, StatusClosed, StatusCancelled:
		return true
	}
	return false
}
