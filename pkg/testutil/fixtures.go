package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/domain"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/actor"
)

// FixedTime is a stable timestamp for deterministic fixtures
var FixedTime = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

// IntPtr returns a pointer to the given int
func IntPtr(v int) *int { return &v }

// BoolPtr returns a pointer to the given bool
func BoolPtr(v bool) *bool { return &v }

// StringPtr returns a pointer to the given string
func StringPtr(v string) *string { return &v }

// TimePtr returns a pointer to the given time
func TimePtr(v time.Time) *time.Time { return &v }

// NewInventory builds an inventory fixture in the given status.
// Override fields on the returned struct as needed.
func NewInventory(status domain.InventoryStatus) *domain.Inventory {
	return &domain.Inventory{
		ID:        uuid.New().String(),
		Code:      "INV-2025-001",
		Status:    status,
		CreatedBy: uuid.New().String(),
		CreatedAt: FixedTime,
		UpdatedAt: FixedTime,
	}
}

// NewItem builds an item fixture belonging to the given inventory
func NewItem(inventoryID string, expected int) *domain.InventoryItem {
	return &domain.InventoryItem{
		ID:               uuid.New().String(),
		InventoryID:      inventoryID,
		ProductID:        uuid.New().String(),
		LocationID:       uuid.New().String(),
		ExpectedQuantity: expected,
		Status:           domain.ItemPending,
		Version:          1,
		CreatedAt:        FixedTime,
		UpdatedAt:        FixedTime,
	}
}

// NewSerialItem builds an expected serial row for the given item
func NewSerialItem(item *domain.InventoryItem, serialNumber string) *domain.InventorySerialItem {
	return &domain.InventorySerialItem{
		ID:           uuid.New().String(),
		InventoryID:  item.InventoryID,
		SerialNumber: serialNumber,
		ProductID:    item.ProductID,
		LocationID:   item.LocationID,
		Expected:     true,
		Status:       domain.SerialPending,
		Version:      1,
		CreatedAt:    FixedTime,
		UpdatedAt:    FixedTime,
	}
}

// NewCounter builds a counter actor fixture
func NewCounter() *actor.Actor {
	return &actor.Actor{
		ID:   uuid.New().String(),
		Name: "Test Counter",
		Role: actor.RoleCounter,
	}
}

// NewSupervisor builds a supervisor actor fixture
func NewSupervisor() *actor.Actor {
	return &actor.Actor{
		ID:   uuid.New().String(),
		Name: "Test Supervisor",
		Role: actor.RoleSupervisor,
	}
}

// NewAuditor builds an auditor actor fixture
func NewAuditor() *actor.Actor {
	return &actor.Actor{
		ID:   uuid.New().String(),
		Name: "Test Auditor",
		Role: actor.RoleAuditor,
	}
}
