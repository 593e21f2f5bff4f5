// Package service implements the counting workflow: campaign lifecycle,
// blind count submission, serial reconciliation and the validation and
// reconciliation reports. All authorization beyond role gating and every
// stage rule lives here, behind the HTTP handlers.
package service

import (
	"context"
	"time"

	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/client"
	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/domain"
	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/events"
	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/repository"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/actor"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/errors"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/logger"
)

// InventoryStore persists counting campaigns and their cross-entity
// transactions. Implemented by repository.Store.
type InventoryStore interface {
	Create(ctx context.Context, inv *domain.Inventory) error
	GetByID(ctx context.Context, id string) (*domain.Inventory, error)
	List(ctx context.Context, status domain.InventoryStatus, limit, offset int) ([]*domain.Inventory, error)
	Count(ctx context.Context, status domain.InventoryStatus) (int, error)
	TransitionStatus(ctx context.Context, id string, from, to domain.InventoryStatus) error
	MarkMigrated(ctx context.Context, id string, at time.Time) error
	OpenSnapshot(ctx context.Context, inv *domain.Inventory, items []*domain.InventoryItem, serials []*domain.InventorySerialItem, at time.Time) error
	CloseStage(ctx context.Context, inventoryID string) (*repository.StageCloseOutcome, error)
	CloseInventory(ctx context.Context, inventoryID string, from domain.InventoryStatus, at time.Time) (int, error)
}

// ItemStore persists inventory items
type ItemStore interface {
	GetByID(ctx context.Context, id string) (*domain.InventoryItem, error)
	ListByInventory(ctx context.Context, inventoryID string) ([]*domain.InventoryItem, error)
	ListUnresolved(ctx context.Context, inventoryID string) ([]*domain.InventoryItem, error)
	Update(ctx context.Context, item *domain.InventoryItem) error
	Progress(ctx context.Context, inventoryID string, stage domain.CountStage) (*repository.ProgressCounts, error)
}

// SerialStore persists serial rows
type SerialStore interface {
	GetBySerialNumber(ctx context.Context, inventoryID, serialNumber string) (*domain.InventorySerialItem, error)
	ListByInventory(ctx context.Context, inventoryID string) ([]*domain.InventorySerialItem, error)
	ListByItem(ctx context.Context, inventoryID, productID, locationID string) ([]*domain.InventorySerialItem, error)
	Insert(ctx context.Context, s *domain.InventorySerialItem) error
	Update(ctx context.Context, s *domain.InventorySerialItem) error
}

// StockProvider supplies the stock levels snapshotted when an inventory opens
type StockProvider interface {
	Snapshot(ctx context.Context, filter client.SnapshotFilter) ([]client.StockLine, error)
}

// AssetRegistry resolves serialized assets
type AssetRegistry interface {
	ListAssets(ctx context.Context, filter client.SnapshotFilter) ([]client.Asset, error)
	LookupSerial(ctx context.Context, serialNumber string) (*client.Asset, error)
}

// StockCommitter applies final quantities back to ERP stock
type StockCommitter interface {
	CommitStock(ctx context.Context, inventoryID string, lines []client.CommitLine) error
}

// requireActor extracts the acting counter from the context. Operations that
// record identity refuse to run without one.
func requireActor(ctx context.Context) (*actor.Actor, error) {
	act := actor.FromContext(ctx)
	if act == nil {
		return nil, errors.Unauthorized("missing actor identity")
	}
	return act, nil
}

// Service implements the counting workflow
type Service struct {
	inventories InventoryStore
	items       ItemStore
	serials     SerialStore
	stock       StockProvider
	assets      AssetRegistry
	committer   StockCommitter
	publisher   *events.CountingEventPublisher
	logger      *logger.Logger
}

// NewService creates the counting service. The ERP client satisfies all three
// collaborator interfaces in production.
func NewService(
	inventories InventoryStore,
	items ItemStore,
	serials SerialStore,
	stock StockProvider,
	assets AssetRegistry,
	committer StockCommitter,
	publisher *events.CountingEventPublisher,
	log *logger.Logger,
) *Service {
	return &Service{
		inventories: inventories,
		items:       items,
		serials:     serials,
		stock:       stock,
		assets:      assets,
		committer:   committer,
		publisher:   publisher,
		logger:      log,
	}
}
