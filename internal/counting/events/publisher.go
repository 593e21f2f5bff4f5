// Package events publishes counting domain events to the counting.events
// exchange. Publishing is best effort: a broker failure is logged and never
// fails the operation that produced the event.
package events

import (
	"context"

	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/domain"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/logger"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/messaging"
)

// CountingEventPublisher publishes counting-related events
type CountingEventPublisher struct {
	sink   messaging.Sink
	logger *logger.Logger
}

// NewCountingEventPublisher creates a publisher bound to the counting exchange
func NewCountingEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*CountingEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeCountingEvents, "counting-service", log)
	if err != nil {
		return nil, err
	}

	return &CountingEventPublisher{
		sink:   publisher,
		logger: log,
	}, nil
}

// NewCountingEventPublisherWithSink wires an alternative sink, used by tests
func NewCountingEventPublisherWithSink(sink messaging.Sink, log *logger.Logger) *CountingEventPublisher {
	return &CountingEventPublisher{sink: sink, logger: log}
}

// PublishInventoryCreated publishes an inventory created event
func (p *CountingEventPublisher) PublishInventoryCreated(ctx context.Context, inv *domain.Inventory) {
	if p == nil {
		return
	}

	data := messaging.InventoryCreatedEvent{
		InventoryID: inv.ID,
		Code:        inv.Code,
		CreatedBy:   inv.CreatedBy,
	}

	if err := p.sink.Publish(ctx, messaging.EventInventoryCreated, data); err != nil {
		p.logger.Error().Err(err).Str("inventory_id", inv.ID).Msg("failed to publish inventory created event")
	}
}

// PublishInventoryOpened publishes an inventory opened event with the
// snapshot dimensions
func (p *CountingEventPublisher) PublishInventoryOpened(ctx context.Context, inv *domain.Inventory, itemCount, serialCount int) {
	if p == nil {
		return
	}

	data := messaging.InventoryOpenedEvent{
		InventoryID: inv.ID,
		Code:        inv.Code,
		ItemCount:   itemCount,
		SerialCount: serialCount,
	}

	if err := p.sink.Publish(ctx, messaging.EventInventoryOpened, data); err != nil {
		p.logger.Error().Err(err).Str("inventory_id", inv.ID).Msg("failed to publish inventory opened event")
	}
}

// PublishStageChanged publishes a stage transition event
func (p *CountingEventPublisher) PublishStageChanged(ctx context.Context, inventoryID string, from, to domain.InventoryStatus, changedBy string) {
	if p == nil {
		return
	}

	data := messaging.StageChangedEvent{
		InventoryID: inventoryID,
		FromStatus:  string(from),
		ToStatus:    string(to),
		ChangedBy:   changedBy,
	}

	if err := p.sink.Publish(ctx, messaging.EventStageChanged, data); err != nil {
		p.logger.Error().Err(err).Str("inventory_id", inventoryID).Msg("failed to publish stage changed event")
	}
}

// PublishInventoryClosed publishes an inventory closed event
func (p *CountingEventPublisher) PublishInventoryClosed(ctx context.Context, inv *domain.Inventory, itemCount int, closedBy string) {
	if p == nil {
		return
	}

	data := messaging.InventoryClosedEvent{
		InventoryID: inv.ID,
		Code:        inv.Code,
		ItemCount:   itemCount,
		ClosedBy:    closedBy,
	}

	if err := p.sink.Publish(ctx, messaging.EventInventoryClosed, data); err != nil {
		p.logger.Error().Err(err).Str("inventory_id", inv.ID).Msg("failed to publish inventory closed event")
	}
}

// PublishInventoryCancelled publishes an inventory cancelled event
func (p *CountingEventPublisher) PublishInventoryCancelled(ctx context.Context, inventoryID string, from domain.InventoryStatus, cancelledBy string) {
	if p == nil {
		return
	}

	data := messaging.InventoryCancelledEvent{
		InventoryID: inventoryID,
		FromStatus:  string(from),
		CancelledBy: cancelledBy,
	}

	if err := p.sink.Publish(ctx, messaging.EventInventoryCancelled, data); err != nil {
		p.logger.Error().Err(err).Str("inventory_id", inventoryID).Msg("failed to publish inventory cancelled event")
	}
}

// PublishStockCommitted publishes a stock committed event
func (p *CountingEventPublisher) PublishStockCommitted(ctx context.Context, inventoryID string, lineCount int) {
	if p == nil {
		return
	}

	data := messaging.StockCommittedEvent{
		InventoryID: inventoryID,
		LineCount:   lineCount,
	}

	if err := p.sink.Publish(ctx, messaging.EventStockCommitted, data); err != nil {
		p.logger.Error().Err(err).Str("inventory_id", inventoryID).Msg("failed to publish stock committed event")
	}
}

// PublishCountRecorded publishes a count recorded event. The payload carries
// no quantity so event consumers cannot leak counts to other counters.
func (p *CountingEventPublisher) PublishCountRecorded(ctx context.Context, item *domain.InventoryItem, stage domain.CountStage, counterID string) {
	if p == nil {
		return
	}

	data := messaging.CountRecordedEvent{
		InventoryID: item.InventoryID,
		ItemID:      item.ID,
		Stage:       int(stage),
		CounterID:   counterID,
	}

	if err := p.sink.Publish(ctx, messaging.EventCountRecorded, data); err != nil {
		p.logger.Error().Err(err).Str("item_id", item.ID).Msg("failed to publish count recorded event")
	}
}

// PublishCountCorrected publishes a count corrected event
func (p *CountingEventPublisher) PublishCountCorrected(ctx context.Context, item *domain.InventoryItem, stage domain.CountStage, counterID string) {
	if p == nil {
		return
	}

	data := messaging.CountCorrectedEvent{
		InventoryID: item.InventoryID,
		ItemID:      item.ID,
		Stage:       int(stage),
		CounterID:   counterID,
	}

	if err := p.sink.Publish(ctx, messaging.EventCountCorrected, data); err != nil {
		p.logger.Error().Err(err).Str("item_id", item.ID).Msg("failed to publish count corrected event")
	}
}

// PublishSerialRegistered publishes a serial registered event
func (p *CountingEventPublisher) PublishSerialRegistered(ctx context.Context, s *domain.InventorySerialItem, stage domain.CountStage, counterID string) {
	if p == nil {
		return
	}

	data := messaging.SerialRegisteredEvent{
		InventoryID:  s.InventoryID,
		SerialNumber: s.SerialNumber,
		Stage:        int(stage),
		Status:       string(s.Status),
		CounterID:    counterID,
	}

	if err := p.sink.Publish(ctx, messaging.EventSerialRegistered, data); err != nil {
		p.logger.Error().Err(err).Str("serial_number", s.SerialNumber).Msg("failed to publish serial registered event")
	}
}

// PublishDiscrepancyDetected publishes one event per resolver finding
func (p *CountingEventPublisher) PublishDiscrepancyDetected(ctx context.Context, inventoryID string, d domain.Discrepancy) {
	if p == nil {
		return
	}

	data := messaging.DiscrepancyDetectedEvent{
		InventoryID: inventoryID,
		ItemID:      d.ItemID,
		ProductID:   d.ProductID,
		LocationID:  d.LocationID,
		Type:        string(d.Type),
		Severity:    string(d.Severity),
	}

	if err := p.sink.Publish(ctx, messaging.EventDiscrepancyDetected, data); err != nil {
		p.logger.Error().Err(err).Str("item_id", d.ItemID).Msg("failed to publish discrepancy detected event")
	}
}
