package service

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/client"
	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/domain"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/errors"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/messaging"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/testutil"
)

func seedSerial(ts *testService, item *domain.InventoryItem, sn string) *domain.InventorySerialItem {
	s := testutil.NewSerialItem(item, sn)
	ts.mem.serials[s.ID] = s
	return s
}

func TestRegisterReading_ExpectedSerialFound(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount1Open)
	item := seedItem(ts, inv, 1)
	serial := seedSerial(ts, item, "SN-001")

	out, err := ts.svc.RegisterReading(counterCtx(), inv.ID, &RegisterReadingRequest{
		SerialNumber: "SN-001",
		LocationID:   item.LocationID,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SerialFound, out.Status)

	stored := ts.mem.serials[serial.ID]
	assert.Equal(t, domain.SerialFound, stored.Status)
	require.NotNil(t, stored.Count1Found)
	assert.True(t, *stored.Count1Found)
	ts.pub.AssertEventPublished(t, messaging.EventSerialRegistered)
}

func TestRegisterReading_ResponseHidesEarlierPasses(t *testing.T) {
	// A counter scanning in the second pass must not learn from the
	// response whether the first pass already found the serial
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount2Open)
	item := seedItem(ts, inv, 1)
	serial := seedSerial(ts, item, "SN-001")
	serial.MarkFound(domain.Stage1, "c1", testutil.FixedTime)

	out, err := ts.svc.RegisterReading(counterCtx(), inv.ID, &RegisterReadingRequest{
		SerialNumber: "SN-001",
		LocationID:   item.LocationID,
	})

	require.NoError(t, err)
	assert.Nil(t, out.Count1Found)
	assert.Nil(t, out.Count1By)
	assert.Nil(t, out.Count1At)
	assert.Nil(t, out.Count2Found)
	assert.Nil(t, out.FinalStatus)
	assert.Equal(t, "SN-001", out.SerialNumber)
}

func TestRegisterReading_ElevatedSeesReadingMarks(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount1Open)
	item := seedItem(ts, inv, 1)
	seedSerial(ts, item, "SN-001")

	out, err := ts.svc.RegisterReading(supervisorCtx(), inv.ID, &RegisterReadingRequest{
		SerialNumber: "SN-001",
		LocationID:   item.LocationID,
	})

	require.NoError(t, err)
	require.NotNil(t, out.Count1Found)
	assert.True(t, *out.Count1Found)
	require.NotNil(t, out.Count1By)
}

func TestRegisterReading_RescanIsIdempotent(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount1Open)
	item := seedItem(ts, inv, 1)
	seedSerial(ts, item, "SN-001")

	req := &RegisterReadingRequest{SerialNumber: "SN-001", LocationID: item.LocationID}

	first, err := ts.svc.RegisterReading(supervisorCtx(), inv.ID, req)
	require.NoError(t, err)

	second, err := ts.svc.RegisterReading(supervisorCtx(), inv.ID, req)
	require.NoError(t, err)

	assert.Equal(t, first.Count1At, second.Count1At)
	assert.Equal(t, first.Count1By, second.Count1By)
}

func TestRegisterReading_RescanElsewhereLeavesRowUntouched(t *testing.T) {
	// A duplicate scan within the same stage is a no-op even when it names
	// a different location; the row keeps the state of the first scan
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount1Open)
	item := seedItem(ts, inv, 1)
	serial := seedSerial(ts, item, "SN-001")

	_, err := ts.svc.RegisterReading(counterCtx(), inv.ID, &RegisterReadingRequest{
		SerialNumber: "SN-001",
		LocationID:   item.LocationID,
	})
	require.NoError(t, err)
	version := ts.mem.serials[serial.ID].Version

	out, err := ts.svc.RegisterReading(counterCtx(), inv.ID, &RegisterReadingRequest{
		SerialNumber: "SN-001",
		LocationID:   "22222222-2222-2222-2222-222222222222",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SerialFound, out.Status)
	assert.Equal(t, item.LocationID, out.LocationID)

	stored := ts.mem.serials[serial.ID]
	assert.Equal(t, domain.SerialFound, stored.Status)
	assert.Equal(t, item.LocationID, stored.LocationID)
	assert.Equal(t, version, stored.Version)
}

func TestRegisterReading_WrongLocationBecomesExtra(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount1Open)
	item := seedItem(ts, inv, 1)
	serial := seedSerial(ts, item, "SN-001")

	out, err := ts.svc.RegisterReading(counterCtx(), inv.ID, &RegisterReadingRequest{
		SerialNumber: "SN-001",
		LocationID:   "22222222-2222-2222-2222-222222222222",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SerialExtra, out.Status)
	assert.Equal(t, "22222222-2222-2222-2222-222222222222", out.LocationID)

	stored := ts.mem.serials[serial.ID]
	assert.Equal(t, domain.SerialExtra, stored.Status)
	assert.False(t, stored.CountsForItem())
}

func TestRegisterReading_UnexpectedKnownSerialBecomesExtra(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount1Open)
	item := seedItem(ts, inv, 1)

	ts.erp.assets = []client.Asset{
		{SerialNumber: "SN-999", ProductID: "prod-9", LocationID: "loc-9"},
	}

	out, err := ts.svc.RegisterReading(counterCtx(), inv.ID, &RegisterReadingRequest{
		SerialNumber: "SN-999",
		LocationID:   item.LocationID,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SerialExtra, out.Status)
	assert.False(t, out.Expected)
	assert.Equal(t, "prod-9", out.ProductID)
	assert.Equal(t, item.LocationID, out.LocationID, "extra is attributed to where it was found")
}

func TestRegisterReading_UnknownSerialRejected(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount1Open)
	item := seedItem(ts, inv, 1)

	_, err := ts.svc.RegisterReading(counterCtx(), inv.ID, &RegisterReadingRequest{
		SerialNumber: "SN-GHOST",
		LocationID:   item.LocationID,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownSerial))
	assert.Len(t, ts.mem.serials, 0)
}

func TestRegisterReading_OutOfScopeLocation(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount1Open)
	inv.LocationIDs = pq.StringArray{"11111111-1111-1111-1111-111111111111"}
	item := seedItem(ts, inv, 1)
	seedSerial(ts, item, "SN-001")

	_, err := ts.svc.RegisterReading(counterCtx(), inv.ID, &RegisterReadingRequest{
		SerialNumber: "SN-001",
		LocationID:   "99999999-9999-9999-9999-999999999999",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrOutOfScopeRead))
}

func TestRegisterReading_NoOpenStage(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount1Closed)
	item := seedItem(ts, inv, 1)
	seedSerial(ts, item, "SN-001")

	_, err := ts.svc.RegisterReading(counterCtx(), inv.ID, &RegisterReadingRequest{
		SerialNumber: "SN-001",
		LocationID:   item.LocationID,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStageClosed))
}

func TestRegisterReading_SerialPrecedesManualResolution(t *testing.T) {
	// A serial-controlled item resolves from its serial readings even when
	// the manual counts tell a different story
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount2Open)
	item := seedItem(ts, inv, 2)
	item.SerialControlled = true
	item.SetCount(domain.Stage1, 5)
	item.SetCount(domain.Stage2, 5)

	s1 := seedSerial(ts, item, "SN-001")
	s2 := seedSerial(ts, item, "SN-002")
	s1.MarkFound(domain.Stage1, "c1", testutil.FixedTime)
	s2.MarkFound(domain.Stage1, "c1", testutil.FixedTime)

	out, err := ts.svc.CloseStage(supervisorCtx(), inv.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCount2Completed, out.Status)

	stored := ts.mem.items[item.ID]
	require.NotNil(t, stored.FinalQuantity)
	assert.Equal(t, 2, *stored.FinalQuantity, "serial tally wins over manual counts")
	ts.pub.AssertEventPublished(t, messaging.EventDiscrepancyDetected)
}

func TestListSerials(t *testing.T) {
	ts := newTestService()
	inv := seedInventory(ts, domain.StatusCount1Open)
	item := seedItem(ts, inv, 2)
	seedSerial(ts, item, "SN-002")
	seedSerial(ts, item, "SN-001")

	serials, err := ts.svc.ListSerials(supervisorCtx(), inv.ID)

	require.NoError(t, err)
	require.Len(t, serials, 2)
	assert.Equal(t, "SN-001", serials[0].SerialNumber)
}
