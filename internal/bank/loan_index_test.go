package bank

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coveline/service-ledger-go/internal/bank/entity"
)

func loanApp(id string, score int, applied time.Time) entity.LoanApplication {
	return entity.LoanApplication{
		ID:              id,
		UserID:          "u-" + id,
		Amount:          decimal.NewFromInt(100),
		Status:          entity.LoanPending,
		ApplicationDate: applied,
		PriorityScore:   score,
	}
}

func TestLoanIndexOrdering(t *testing.T) {
	li := newLoanIndex()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	li.Enqueue(loanApp("mid", 5, base))
	li.Enqueue(loanApp("urgent", 1, base.Add(time.Hour)))
	li.Enqueue(loanApp("low", 9, base.Add(2*time.Hour)))

	next, ok := li.PeekNext()
	require.True(t, ok)
	assert.Equal(t, "urgent", next.ID)
	// peek must not remove
	assert.Equal(t, 3, li.Len())
}

func TestLoanIndexTieBreakByApplicationDate(t *testing.T) {
	li := newLoanIndex()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	li.Enqueue(loanApp("later", 3, base.Add(time.Minute)))
	li.Enqueue(loanApp("earlier", 3, base))

	next, ok := li.PeekNext()
	require.True(t, ok)
	assert.Equal(t, "earlier", next.ID)
}

func TestLoanIndexRemoveByID(t *testing.T) {
	li := newLoanIndex()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		li.Enqueue(loanApp(fmt.Sprintf("l%d", i), i, base))
	}

	// remove a non-head entry
	removed, ok := li.RemoveByID("l7")
	require.True(t, ok)
	assert.Equal(t, "l7", removed.ID)
	assert.Equal(t, 9, li.Len())

	_, ok = li.Get("l7")
	assert.False(t, ok)

	// remaining entries still drain in priority order
	var drained []string
	for li.Len() > 0 {
		head, ok := li.PeekNext()
		require.True(t, ok)
		_, ok = li.RemoveByID(head.ID)
		require.True(t, ok)
		drained = append(drained, head.ID)
	}
	assert.Equal(t, []string{"l0", "l1", "l2", "l3", "l4", "l5", "l6", "l8", "l9"}, drained)
}

func TestLoanIndexRemoveMissing(t *testing.T) {
	li := newLoanIndex()
	_, ok := li.RemoveByID("absent")
	assert.False(t, ok)
}

func TestLoanIndexSnapshotDoesNotMutate(t *testing.T) {
	li := newLoanIndex()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	li.Enqueue(loanApp("b", 2, base))
	li.Enqueue(loanApp("a", 1, base))
	li.Enqueue(loanApp("c", 3, base))

	snap := li.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "a", snap[0].ID)
	assert.Equal(t, "b", snap[1].ID)
	assert.Equal(t, "c", snap[2].ID)

	// snapshot is a copy: mutating it leaves the index intact
	snap[0].ID = "mutated"
	next, ok := li.PeekNext()
	require.True(t, ok)
	assert.Equal(t, "a", next.ID)
	assert.Equal(t, 3, li.Len())
}

func TestLoanIndexPeekEmpty(t *testing.T) {
	li := newLoanIndex()
	_, ok := li.PeekNext()
	assert.False(t, ok)
}
