package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from InventoryStatus
		to   InventoryStatus
		want bool
	}{
		{"planning to open", StatusPlanning, StatusOpen, true},
		{"open to first count", StatusOpen, StatusCount1Open, true},
		{"close first count", StatusCount1Open, StatusCount1Closed, true},
		{"open second count", StatusCount1Closed, StatusCount2Open, true},
		{"second count completed", StatusCount2Closed, StatusCount2Completed, true},
		{"second count needs third", StatusCount2Closed, StatusCount3Required, true},
		{"completed to audit", StatusCount2Completed, StatusAuditMode, true},
		{"third count to audit", StatusCount3Closed, StatusAuditMode, true},
		{"audit to closed", StatusAuditMode, StatusClosed, true},
		{"cancel from planning", StatusPlanning, StatusCancelled, true},
		{"cancel from audit", StatusAuditMode, StatusCancelled, true},

		{"no skipping first count", StatusOpen, StatusCount2Open, false},
		{"completed cannot skip audit", StatusCount2Completed, StatusClosed, false},
		{"no reopening closed stage", StatusCount1Closed, StatusCount1Open, false},
		{"no closing from open count", StatusCount2Open, StatusClosed, false},
		{"third required cannot skip", StatusCount3Required, StatusClosed, false},
		{"closed is terminal", StatusClosed, StatusCancelled, false},
		{"cancelled is terminal", StatusCancelled, StatusOpen, false},
		{"no backwards transition", StatusCount2Open, StatusCount1Open, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestInventoryStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusClosed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())

	for _, s := range []InventoryStatus{
		StatusPlanning, StatusOpen,
		StatusCount1Open, StatusCount1Closed,
		StatusCount2Open, StatusCount2Closed, StatusCount2Completed,
		StatusCount3Required, StatusCount3Open, StatusCount3Closed,
		StatusAuditMode,
	} {
		assert.False(t, s.IsTerminal(), "status %s should not be terminal", s)
	}
}

func TestInventoryStatus_OpenStage(t *testing.T) {
	assert.Equal(t, Stage1, StatusCount1Open.OpenStage())
	assert.Equal(t, Stage2, StatusCount2Open.OpenStage())
	assert.Equal(t, Stage3, StatusCount3Open.OpenStage())
	assert.Equal(t, Stage4, StatusAuditMode.OpenStage())

	assert.Equal(t, CountStage(0), StatusPlanning.OpenStage())
	assert.Equal(t, CountStage(0), StatusCount1Closed.OpenStage())
	assert.Equal(t, CountStage(0), StatusClosed.OpenStage())
}

func TestInventoryStatus_Countable(t *testing.T) {
	assert.True(t, StatusCount1Open.Countable())
	assert.True(t, StatusAuditMode.Countable())
	assert.False(t, StatusCount1Closed.Countable())
	assert.False(t, StatusOpen.Countable())
}

func TestInventoryStatus_CloseTarget(t *testing.T) {
	target, ok := StatusCount1Open.CloseTarget()
	assert.True(t, ok)
	assert.Equal(t, StatusCount1Closed, target)

	target, ok = StatusCount2Open.CloseTarget()
	assert.True(t, ok)
	assert.Equal(t, StatusCount2Closed, target)

	target, ok = StatusCount3Open.CloseTarget()
	assert.True(t, ok)
	assert.Equal(t, StatusCount3Closed, target)

	_, ok = StatusAuditMode.CloseTarget()
	assert.False(t, ok)

	_, ok = StatusPlanning.CloseTarget()
	assert.False(t, ok)
}

func TestNextOpenStatus(t *testing.T) {
	assert.Equal(t, StatusCount1Open, NextOpenStatus(Stage1))
	assert.Equal(t, StatusCount2Open, NextOpenStatus(Stage2))
	assert.Equal(t, StatusCount3Open, NextOpenStatus(Stage3))
	assert.Equal(t, StatusAuditMode, NextOpenStatus(Stage4))
}

func TestKnownStatus(t *testing.T) {
	assert.True(t, KnownStatus(StatusCount2Completed))
	assert.False(t, KnownStatus(InventoryStatus("count5_open")))
	assert.False(t, KnownStatus(InventoryStatus("")))
}
