package domain

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventory_LocationInScope(t *testing.T) {
	inv := &Inventory{LocationIDs: pq.StringArray{"loc-1", "loc-2"}}

	assert.True(t, inv.LocationInScope("loc-1"))
	assert.True(t, inv.LocationInScope("loc-2"))
	assert.False(t, inv.LocationInScope("loc-9"))
}

func TestInventory_EmptyScopeMeansAllLocations(t *testing.T) {
	inv := &Inventory{}
	assert.True(t, inv.LocationInScope("anything"))
}

func TestInventoryItem_CountAccessors(t *testing.T) {
	it := &InventoryItem{}

	it.SetCount(Stage1, 5)
	it.SetCount(Stage3, 7)

	require.NotNil(t, it.Count(Stage1))
	assert.Equal(t, 5, *it.Count(Stage1))
	assert.Nil(t, it.Count(Stage2))
	require.NotNil(t, it.Count(Stage3))
	assert.Equal(t, 7, *it.Count(Stage3))
}

func TestInventoryItem_ManualCountPrecedence(t *testing.T) {
	it := &InventoryItem{}
	assert.Nil(t, it.ManualCount())

	it.SetCount(Stage1, 3)
	assert.Equal(t, 3, *it.ManualCount())

	it.SetCount(Stage2, 4)
	assert.Equal(t, 4, *it.ManualCount())

	it.SetCount(Stage4, 9)
	assert.Equal(t, 9, *it.ManualCount())
}

func TestInventoryItem_RequiresStage(t *testing.T) {
	it := &InventoryItem{}
	assert.True(t, it.RequiresStage(Stage1))
	assert.True(t, it.RequiresStage(Stage3))

	final := 5
	it.FinalQuantity = &final
	assert.True(t, it.RequiresStage(Stage2))
	assert.False(t, it.RequiresStage(Stage3))
	assert.False(t, it.RequiresStage(Stage4))
}

func TestInventorySerialItem_MarkFound(t *testing.T) {
	s := &InventorySerialItem{SerialNumber: "SN-001", Status: SerialPending}
	at := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	ok := s.MarkFound(Stage1, "counter-1", at)

	require.True(t, ok)
	assert.Equal(t, SerialFound, s.Status)
	require.NotNil(t, s.Count1Found)
	assert.True(t, *s.Count1Found)
	assert.Equal(t, "counter-1", *s.Count1By)
	assert.Equal(t, at, *s.Count1At)
	require.NotNil(t, s.FinalStatus)
	assert.True(t, *s.FinalStatus)
}

func TestInventorySerialItem_MarkFoundIdempotent(t *testing.T) {
	s := &InventorySerialItem{SerialNumber: "SN-001", Status: SerialPending}
	at := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	require.True(t, s.MarkFound(Stage1, "counter-1", at))

	// Second scan in the same stage changes nothing
	ok := s.MarkFound(Stage1, "counter-2", at.Add(time.Minute))
	assert.False(t, ok)
	assert.Equal(t, "counter-1", *s.Count1By)
	assert.Equal(t, at, *s.Count1At)
}

func TestInventorySerialItem_MarkFoundKeepsExtraStatus(t *testing.T) {
	s := &InventorySerialItem{SerialNumber: "SN-999", Status: SerialExtra}

	require.True(t, s.MarkFound(Stage2, "counter-1", time.Now()))
	assert.Equal(t, SerialExtra, s.Status)
	assert.False(t, s.CountsForItem())
}

func TestTallySerials(t *testing.T) {
	found := &InventorySerialItem{Status: SerialPending}
	found.MarkFound(Stage1, "c1", time.Now())

	extra := &InventorySerialItem{Status: SerialExtra}
	extra.MarkFound(Stage1, "c1", time.Now())

	pending := &InventorySerialItem{Status: SerialPending}
	missing := &InventorySerialItem{Status: SerialMissing}

	tally := TallySerials([]*InventorySerialItem{found, extra, pending, missing})

	assert.Equal(t, 1, tally.Found)
	assert.Equal(t, 2, tally.Missing)
	assert.Equal(t, 1, tally.Extra)
}
