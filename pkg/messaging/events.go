package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Inventory lifecycle events
	EventInventoryCreated   = "counting.inventory.created"
	EventInventoryOpened    = "counting.inventory.opened"
	EventStageChanged       = "counting.inventory.stage.changed"
	EventInventoryClosed    = "counting.inventory.closed"
	EventInventoryCancelled = "counting.inventory.cancelled"
	EventStockCommitted     = "counting.inventory.stock.committed"

	// Counting events
	EventCountRecorded    = "counting.count.recorded"
	EventCountCorrected   = "counting.count.corrected"
	EventSerialRegistered = "counting.serial.registered"

	// Discrepancy events
	EventDiscrepancyDetected = "counting.discrepancy.detected"
)

// Exchange names
const (
	ExchangeCountingEvents = "counting.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Inventory lifecycle events

// InventoryCreatedEvent is published when a counting campaign is created
type InventoryCreatedEvent struct {
	InventoryID string `json:"inventory_id"`
	Code        string `json:"code"`
	CreatedBy   string `json:"created_by"`
}

// InventoryOpenedEvent is published when the stock/asset snapshot is taken
// and the inventory becomes countable
type InventoryOpenedEvent struct {
	InventoryID string `json:"inventory_id"`
	Code        string `json:"code"`
	ItemCount   int    `json:"item_count"`
	SerialCount int    `json:"serial_count"`
}

// StageChangedEvent is published on every stage transition
type StageChangedEvent struct {
	InventoryID string `json:"inventory_id"`
	FromStatus  string `json:"from_status"`
	ToStatus    string `json:"to_status"`
	ChangedBy   string `json:"changed_by"`
}

// InventoryClosedEvent is published when an inventory reaches its terminal
// closed state
type InventoryClosedEvent struct {
	InventoryID string `json:"inventory_id"`
	Code        string `json:"code"`
	ItemCount   int    `json:"item_count"`
	ClosedBy    string `json:"closed_by"`
}

// InventoryCancelledEvent is published when an inventory is cancelled
type InventoryCancelledEvent struct {
	InventoryID string `json:"inventory_id"`
	FromStatus  string `json:"from_status"`
	CancelledBy string `json:"cancelled_by"`
}

// StockCommittedEvent is published after the stock-commit collaborator
// accepted the final quantities
type StockCommittedEvent struct {
	InventoryID string `json:"inventory_id"`
	LineCount   int    `json:"line_count"`
}

// Counting events

// CountRecordedEvent is published when a blind count is recorded.
// It deliberately carries no quantity: downstream consumers must not become a
// side channel around blind counting.
type CountRecordedEvent struct {
	InventoryID string `json:"inventory_id"`
	ItemID      string `json:"item_id"`
	Stage       int    `json:"stage"`
	CounterID   string `json:"counter_id"`
}

// CountCorrectedEvent is published on the explicit correction path
type CountCorrectedEvent struct {
	InventoryID string `json:"inventory_id"`
	ItemID      string `json:"item_id"`
	Stage       int    `json:"stage"`
	CounterID   string `json:"counter_id"`
}

// SerialRegisteredEvent is published for each accepted serial reading
type SerialRegisteredEvent struct {
	InventoryID  string `json:"inventory_id"`
	SerialNumber string `json:"serial_number"`
	Stage        int    `json:"stage"`
	Status       string `json:"status"`
	CounterID    string `json:"counter_id"`
}

// Discrepancy events

// DiscrepancyDetectedEvent is published when the resolver classifies a
// discrepancy for an item
type DiscrepancyDetectedEvent struct {
	InventoryID string `json:"inventory_id"`
	ItemID      string `json:"item_id"`
	ProductID   string `json:"product_id"`
	LocationID  string `json:"location_id"`
	Type        string `json:"type"`
	Severity    string `json:"severity"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.New().String()[:8])
}
