package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/client"
	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/domain"
	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/events"
	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/repository"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/actor"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/errors"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/logger"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/testutil"
)

// memory is shared in-memory state backing the fake stores
type memory struct {
	invs    map[string]*domain.Inventory
	items   map[string]*domain.InventoryItem
	serials map[string]*domain.InventorySerialItem
}

func newMemory() *memory {
	return &memory{
		invs:    make(map[string]*domain.Inventory),
		items:   make(map[string]*domain.InventoryItem),
		serials: make(map[string]*domain.InventorySerialItem),
	}
}

type fakeInventoryStore struct{ m *memory }

func (f *fakeInventoryStore) Create(_ context.Context, inv *domain.Inventory) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	for _, existing := range f.m.invs {
		if existing.Code == inv.Code {
			return errors.Conflict("inventory code already exists")
		}
	}
	cp := *inv
	f.m.invs[inv.ID] = &cp
	return nil
}

func (f *fakeInventoryStore) GetByID(_ context.Context, id string) (*domain.Inventory, error) {
	inv, ok := f.m.invs[id]
	if !ok {
		return nil, errors.NotFound("inventory not found")
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInventoryStore) List(_ context.Context, status domain.InventoryStatus, limit, offset int) ([]*domain.Inventory, error) {
	out := []*domain.Inventory{}
	for _, inv := range f.m.invs {
		if status == "" || inv.Status == status {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (f *fakeInventoryStore) Count(_ context.Context, status domain.InventoryStatus) (int, error) {
	n := 0
	for _, inv := range f.m.invs {
		if status == "" || inv.Status == status {
			n++
		}
	}
	return n, nil
}

func (f *fakeInventoryStore) TransitionStatus(_ context.Context, id string, from, to domain.InventoryStatus) error {
	inv, ok := f.m.invs[id]
	if !ok {
		return errors.NotFound("inventory not found")
	}
	if inv.Status != from {
		return errors.ConcurrentModification("inventory " + id)
	}
	inv.Status = to
	return nil
}

func (f *fakeInventoryStore) MarkMigrated(_ context.Context, id string, at time.Time) error {
	inv, ok := f.m.invs[id]
	if !ok {
		return errors.NotFound("inventory not found")
	}
	if inv.MigratedAt != nil {
		return errors.AlreadyMigrated(id)
	}
	inv.MigratedAt = &at
	return nil
}

func (f *fakeInventoryStore) OpenSnapshot(ctx context.Context, inv *domain.Inventory, items []*domain.InventoryItem, serials []*domain.InventorySerialItem, at time.Time) error {
	if err := f.TransitionStatus(ctx, inv.ID, domain.StatusPlanning, domain.StatusOpen); err != nil {
		return err
	}
	stored := f.m.invs[inv.ID]
	stored.StartedAt = &at

	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.Version = 1
		cp := *item
		f.m.items[item.ID] = &cp
	}
	for _, s := range serials {
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		s.Version = 1
		cp := *s
		f.m.serials[s.ID] = &cp
	}
	return nil
}

func (f *fakeInventoryStore) CloseStage(_ context.Context, inventoryID string) (*repository.StageCloseOutcome, error) {
	inv, ok := f.m.invs[inventoryID]
	if !ok {
		return nil, errors.NotFound("inventory not found")
	}

	stage := inv.Status.OpenStage()
	target, hasTarget := inv.Status.CloseTarget()
	if !hasTarget {
		if inv.Status.IsTerminal() {
			return nil, errors.InventoryClosed(string(inv.Status))
		}
		return nil, errors.StageClosed(int(stage))
	}

	var items []*domain.InventoryItem
	for _, item := range f.m.items {
		if item.InventoryID == inventoryID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	var missing []string
	for _, item := range items {
		if item.RequiresStage(stage) && item.Count(stage) == nil {
			missing = append(missing, item.ID)
		}
	}
	if len(missing) > 0 {
		return nil, errors.StagePrecondition("items are still uncounted for this stage", missing)
	}

	out := &repository.StageCloseOutcome{Stage: stage, From: inv.Status, Closed: target, Final: target}
	inv.Status = target

	if stage == domain.Stage1 {
		return out, nil
	}

	for _, item := range items {
		if item.Resolved() {
			continue
		}

		var serials []*domain.InventorySerialItem
		if item.SerialControlled {
			for _, s := range f.m.serials {
				if s.InventoryID == inventoryID && s.ProductID == item.ProductID && s.LocationID == item.LocationID {
					serials = append(serials, s)
				}
			}
		}

		res := domain.Resolve(item, serials)
		out.Discrepancies = append(out.Discrepancies, res.Discrepancies...)

		if !res.Resolved() {
			out.Unresolved++
			continue
		}

		item.FinalQuantity = res.FinalQuantity
		item.Status = domain.ItemCompleted
		item.Version++
	}

	switch stage {
	case domain.Stage2:
		out.Final = domain.StatusCount2Completed
		if out.Unresolved > 0 {
			out.Final = domain.StatusCount3Required
		}
	case domain.Stage3:
		out.Final = domain.StatusAuditMode
	}
	inv.Status = out.Final

	return out, nil
}

func (f *fakeInventoryStore) CloseInventory(ctx context.Context, inventoryID string, from domain.InventoryStatus, at time.Time) (int, error) {
	missing := 0
	for _, s := range f.m.serials {
		if s.InventoryID == inventoryID && s.Status == domain.SerialPending {
			s.Status = domain.SerialMissing
			notFound := false
			s.FinalStatus = &notFound
			missing++
		}
	}
	if err := f.TransitionStatus(ctx, inventoryID, from, domain.StatusClosed); err != nil {
		return 0, err
	}
	f.m.invs[inventoryID].EndedAt = &at
	return missing, nil
}

type fakeItemStore struct{ m *memory }

func (f *fakeItemStore) GetByID(_ context.Context, id string) (*domain.InventoryItem, error) {
	item, ok := f.m.items[id]
	if !ok {
		return nil, errors.NotFound("inventory item not found")
	}
	cp := *item
	return &cp, nil
}

func (f *fakeItemStore) ListByInventory(_ context.Context, inventoryID string) ([]*domain.InventoryItem, error) {
	out := []*domain.InventoryItem{}
	for _, item := range f.m.items {
		if item.InventoryID == inventoryID {
			cp := *item
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeItemStore) ListUnresolved(ctx context.Context, inventoryID string) ([]*domain.InventoryItem, error) {
	all, _ := f.ListByInventory(ctx, inventoryID)
	out := []*domain.InventoryItem{}
	for _, item := range all {
		if item.FinalQuantity == nil {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeItemStore) Update(_ context.Context, item *domain.InventoryItem) error {
	stored, ok := f.m.items[item.ID]
	if !ok {
		return errors.NotFound("inventory item not found")
	}
	if stored.Version != item.Version {
		return errors.ConcurrentModification("inventory item " + item.ID)
	}
	item.Version++
	cp := *item
	f.m.items[item.ID] = &cp
	return nil
}

func (f *fakeItemStore) Progress(ctx context.Context, inventoryID string, stage domain.CountStage) (*repository.ProgressCounts, error) {
	all, _ := f.ListByInventory(ctx, inventoryID)
	p := &repository.ProgressCounts{}
	for _, item := range all {
		p.Total++
		if item.Count(stage) != nil {
			p.Counted++
		}
		if item.FinalQuantity != nil {
			p.Resolved++
			if *item.FinalQuantity != item.ExpectedQuantity {
				p.Divergent++
			}
		}
	}
	return p, nil
}

type fakeSerialStore struct{ m *memory }

func (f *fakeSerialStore) GetBySerialNumber(_ context.Context, inventoryID, serialNumber string) (*domain.InventorySerialItem, error) {
	for _, s := range f.m.serials {
		if s.InventoryID == inventoryID && s.SerialNumber == serialNumber {
			cp := *s
			return &cp, nil
		}
	}
	return nil, errors.NotFound("serial item not found")
}

func (f *fakeSerialStore) ListByInventory(_ context.Context, inventoryID string) ([]*domain.InventorySerialItem, error) {
	out := []*domain.InventorySerialItem{}
	for _, s := range f.m.serials {
		if s.InventoryID == inventoryID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SerialNumber < out[j].SerialNumber })
	return out, nil
}

func (f *fakeSerialStore) ListByItem(_ context.Context, inventoryID, productID, locationID string) ([]*domain.InventorySerialItem, error) {
	out := []*domain.InventorySerialItem{}
	for _, s := range f.m.serials {
		if s.InventoryID == inventoryID && s.ProductID == productID && s.LocationID == locationID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SerialNumber < out[j].SerialNumber })
	return out, nil
}

func (f *fakeSerialStore) Insert(_ context.Context, s *domain.InventorySerialItem) error {
	for _, existing := range f.m.serials {
		if existing.InventoryID == s.InventoryID && existing.SerialNumber == s.SerialNumber {
			return errors.Conflict("serial number " + s.SerialNumber + " already registered")
		}
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.Version = 1
	cp := *s
	f.m.serials[s.ID] = &cp
	return nil
}

func (f *fakeSerialStore) Update(_ context.Context, s *domain.InventorySerialItem) error {
	stored, ok := f.m.serials[s.ID]
	if !ok {
		return errors.NotFound("serial item not found")
	}
	if stored.Version != s.Version {
		return errors.ConcurrentModification("serial item " + s.ID)
	}
	s.Version++
	cp := *s
	f.m.serials[s.ID] = &cp
	return nil
}

// fakeERP stands in for the ERP collaborators
type fakeERP struct {
	snapshot  []client.StockLine
	assets    []client.Asset
	committed [][]client.CommitLine
	commitErr error
}

func (f *fakeERP) Snapshot(context.Context, client.SnapshotFilter) ([]client.StockLine, error) {
	return f.snapshot, nil
}

func (f *fakeERP) ListAssets(context.Context, client.SnapshotFilter) ([]client.Asset, error) {
	return f.assets, nil
}

func (f *fakeERP) LookupSerial(_ context.Context, serialNumber string) (*client.Asset, error) {
	for _, a := range f.assets {
		if a.SerialNumber == serialNumber {
			cp := a
			return &cp, nil
		}
	}
	return nil, errors.UnknownSerial(serialNumber)
}

func (f *fakeERP) CommitStock(_ context.Context, inventoryID string, lines []client.CommitLine) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = append(f.committed, lines)
	return nil
}

// testService wires the service onto the fakes
type testService struct {
	svc *Service
	mem *memory
	erp *fakeERP
	pub *testutil.MockPublisher
}

func newTestService() *testService {
	mem := newMemory()
	erp := &fakeERP{}
	pub := testutil.NewMockPublisher()
	log := logger.New("counting-test", "test")

	svc := NewService(
		&fakeInventoryStore{m: mem},
		&fakeItemStore{m: mem},
		&fakeSerialStore{m: mem},
		erp, erp, erp,
		events.NewCountingEventPublisherWithSink(pub, log),
		log,
	)

	return &testService{svc: svc, mem: mem, erp: erp, pub: pub}
}

func counterCtx() context.Context {
	return actor.WithActor(context.Background(), testutil.NewCounter())
}

func supervisorCtx() context.Context {
	return actor.WithActor(context.Background(), testutil.NewSupervisor())
}
