package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/client"
	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/domain"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/errors"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/messaging"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/testutil"
)

// seedInventory plants a campaign in the given status directly in the fakes
func seedInventory(ts *testService, status domain.InventoryStatus) *domain.Inventory {
	inv := testutil.NewInventory(status)
	ts.mem.invs[inv.ID] = inv
	return inv
}

func seedItem(ts *testService, inv *domain.Inventory, expected int) *domain.InventoryItem {
	item := testutil.NewItem(inv.ID, expected)
	ts.mem.items[item.ID] = item
	return item
}

func TestCreateInventory(t *testing.T) {
	ts := newTestService()

	inv, err := ts.svc.CreateInventory(counterCtx(), &CreateInventoryRequest{
		Code:        "INV-2025-007",
		LocationIDs: []string{"loc-1"},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, inv.ID)
	assert.Equal(t, domain.StatusPlanning, inv.Status)
	assert.NotEmpty(t, inv.CreatedBy)
	ts.pub.AssertEventPublished(t, messaging.EventInventoryCreated)
}

func TestCreateInventory_DuplicateCode(t *testing.T) {
	ts := newTestService()

	_, err := ts.svc.CreateInventory(counterCtx(), &CreateInventoryRequest{Code: "INV-DUP"})
	require.NoError(t, err)

	_, err = ts.svc.CreateInventory(counterCtx(), &CreateInventoryRequest{Code: "INV-DUP"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestOpenInventory_SnapshotsStockAndAssets(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusPlanning)

	ts.erp.snapshot = []client.StockLine{
		{ProductID: "prod-1", LocationID: "loc-1", Quantity: 10},
		{ProductID: "prod-2", LocationID: "loc-1", Quantity: 2, SerialControlled: true},
	}
	ts.erp.assets = []client.Asset{
		{SerialNumber: "SN-001", ProductID: "prod-2", LocationID: "loc-1"},
		{SerialNumber: "SN-002", ProductID: "prod-2", LocationID: "loc-1"},
	}

	opened, err := ts.svc.OpenInventory(supervisorCtx(), inv.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, opened.Status)
	require.NotNil(t, opened.StartedAt)
	assert.Len(t, ts.mem.items, 2)
	assert.Len(t, ts.mem.serials, 2)
	ts.pub.AssertEventPublished(t, messaging.EventInventoryOpened)
	ts.pub.AssertEventPublished(t, messaging.EventStageChanged)
}

func TestOpenInventory_EmptySnapshotRejected(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusPlanning)

	_, err := ts.svc.OpenInventory(supervisorCtx(), inv.ID)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
}

func TestOpenInventory_AlreadyOpen(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount1Open)

	_, err := ts.svc.OpenInventory(supervisorCtx(), inv.ID)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestOpenStage_FollowsTransitionTable(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusOpen)

	out, err := ts.svc.OpenStage(supervisorCtx(), inv.ID, domain.Stage1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCount1Open, out.Status)

	// Second pass cannot open while the first is still open
	_, err = ts.svc.OpenStage(supervisorCtx(), inv.ID, domain.Stage2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestCloseStage_RequiresAllCounts(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount1Open)
	item := seedItem(ts, inv, 10)

	_, err := ts.svc.CloseStage(supervisorCtx(), inv.ID)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStagePrecondition))

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Details["unresolved_items"], item.ID)

	// The rejected close leaves the campaign exactly where it was
	assert.Equal(t, domain.StatusCount1Open, ts.mem.invs[inv.ID].Status)
}

func TestCloseStage_SecondCountAgreementCompletes(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount2Open)
	item := seedItem(ts, inv, 10)
	item.SetCount(domain.Stage1, 10)
	item.SetCount(domain.Stage2, 10)

	out, err := ts.svc.CloseStage(supervisorCtx(), inv.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCount2Completed, out.Status)

	stored := ts.mem.items[item.ID]
	require.NotNil(t, stored.FinalQuantity)
	assert.Equal(t, 10, *stored.FinalQuantity)
	assert.Equal(t, domain.ItemCompleted, stored.Status)
}

func TestCloseStage_DisagreementRequiresThirdCount(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount2Open)
	item := seedItem(ts, inv, 10)
	item.SetCount(domain.Stage1, 10)
	item.SetCount(domain.Stage2, 8)

	out, err := ts.svc.CloseStage(supervisorCtx(), inv.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCount3Required, out.Status)
	assert.Nil(t, ts.mem.items[item.ID].FinalQuantity)
}

func TestCloseStage_ThirdCountHandsOverToAudit(t *testing.T) {
	// The third pass never settles an item on its own, even when the
	// recount matches an earlier pass. Closing it moves the campaign
	// straight into audit mode where count four decides.
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount3Open)
	item := seedItem(ts, inv, 10)
	item.SetCount(domain.Stage1, 10)
	item.SetCount(domain.Stage2, 8)
	item.SetCount(domain.Stage3, 8)

	out, err := ts.svc.CloseStage(supervisorCtx(), inv.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuditMode, out.Status)
	assert.Equal(t, domain.StatusAuditMode, ts.mem.invs[inv.ID].Status)
	assert.Nil(t, ts.mem.items[item.ID].FinalQuantity)
}

func TestCloseInventory_CommitsStock(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount2Completed)
	item := seedItem(ts, inv, 10)
	final := 10
	item.FinalQuantity = &final
	item.Status = domain.ItemCompleted

	out, err := ts.svc.CloseInventory(supervisorCtx(), inv.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, out.Status)
	require.NotNil(t, out.EndedAt)

	require.Len(t, ts.erp.committed, 1)
	require.Len(t, ts.erp.committed[0], 1)
	assert.Equal(t, 10, ts.erp.committed[0][0].FinalQuantity)
	require.NotNil(t, ts.mem.invs[inv.ID].MigratedAt)

	ts.pub.AssertEventPublished(t, messaging.EventInventoryClosed)
	ts.pub.AssertEventPublished(t, messaging.EventStockCommitted)
}

func TestCloseInventory_PassesThroughAuditMode(t *testing.T) {
	// Even a campaign whose second pass resolved everything walks through
	// audit mode on its way to closed; nothing jumps the audit gate
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount2Completed)
	item := seedItem(ts, inv, 10)
	final := 10
	item.FinalQuantity = &final

	out, err := ts.svc.CloseInventory(supervisorCtx(), inv.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, out.Status)

	var transitions []string
	for _, e := range ts.pub.PublishedEvents {
		if e.Type == messaging.EventStageChanged {
			payload, ok := e.Payload.(messaging.StageChangedEvent)
			require.True(t, ok)
			transitions = append(transitions, payload.FromStatus+">"+payload.ToStatus)
		}
	}
	assert.Contains(t, transitions, string(domain.StatusCount2Completed)+">"+string(domain.StatusAuditMode))
	assert.Contains(t, transitions, string(domain.StatusAuditMode)+">"+string(domain.StatusClosed))
	assert.NotContains(t, transitions, string(domain.StatusCount2Completed)+">"+string(domain.StatusClosed))
}

func TestCloseInventory_UnresolvedItemsBlock(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount2Completed)
	seedItem(ts, inv, 10)

	_, err := ts.svc.CloseInventory(supervisorCtx(), inv.ID)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStagePrecondition))
}

func TestCloseInventory_PendingSerialsBecomeMissing(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount2Completed)
	item := seedItem(ts, inv, 1)
	final := 0
	item.FinalQuantity = &final

	serial := testutil.NewSerialItem(item, "SN-001")
	ts.mem.serials[serial.ID] = serial

	_, err := ts.svc.CloseInventory(supervisorCtx(), inv.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.SerialMissing, ts.mem.serials[serial.ID].Status)
}

func TestCloseInventory_CommitFailureLeavesUnmigrated(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount2Completed)
	item := seedItem(ts, inv, 10)
	final := 10
	item.FinalQuantity = &final

	ts.erp.commitErr = errors.Internal("erp unavailable")

	out, err := ts.svc.CloseInventory(supervisorCtx(), inv.ID)

	// Closing succeeds; only the migration is left for a retry
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, out.Status)
	assert.Nil(t, ts.mem.invs[inv.ID].MigratedAt)
}

func TestMigrateInventory_RetriesCommit(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusClosed)
	item := seedItem(ts, inv, 10)
	final := 9
	item.FinalQuantity = &final

	out, err := ts.svc.MigrateInventory(supervisorCtx(), inv.ID)

	require.NoError(t, err)
	require.NotNil(t, out.MigratedAt)
	require.Len(t, ts.erp.committed, 1)
	assert.Equal(t, 9, ts.erp.committed[0][0].FinalQuantity)
}

func TestMigrateInventory_AlreadyMigrated(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusClosed)
	inv.MigratedAt = &testutil.FixedTime

	_, err := ts.svc.MigrateInventory(supervisorCtx(), inv.ID)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAlreadyMigrated))
}

func TestMigrateInventory_NotClosed(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusAuditMode)

	_, err := ts.svc.MigrateInventory(supervisorCtx(), inv.ID)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestCancelInventory(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount2Open)

	out, err := ts.svc.CancelInventory(supervisorCtx(), inv.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, out.Status)
	ts.pub.AssertEventPublished(t, messaging.EventInventoryCancelled)
}

func TestCancelInventory_TerminalStatusRejected(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusClosed)

	_, err := ts.svc.CancelInventory(supervisorCtx(), inv.ID)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInventoryClosed))
}

func TestListInventories_UnknownStatusFilter(t *testing.T) {
	ts := newTestService()

	_, _, err := ts.svc.ListInventories(counterCtx(), domain.InventoryStatus("bogus"), 10, 0)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
}

func TestListInventories(t *testing.T) {
	ts := newTestService()
	for i := 0; i < 3; i++ {
		inv := testutil.NewInventory(domain.StatusPlanning)
		inv.Code = "INV-" + uuid.New().String()[:8]
		ts.mem.invs[inv.ID] = inv
	}
	seedInventory(ts, domain.StatusClosed)

	invs, total, err := ts.svc.ListInventories(counterCtx(), domain.StatusPlanning, 10, 0)

	require.NoError(t, err)
	assert.Len(t, invs, 3)
	assert.Equal(t, 3, total)
}
