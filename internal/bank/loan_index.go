package bank

import (
	"container/heap"
	"sort"

	"github.com/coveline/service-ledger-go/internal/bank/entity"
)

// loanIndex is a min-priority index over pending loan applications: lowest
// priority score first, earliest application date breaking ties. An id→slot
// map kept up to date in Swap gives O(log n) removal of arbitrary entries,
// which approve/reject need since admins may process any pending loan, not
// just the head.
//
// The index is a cache over persisted state; it is never the source of truth
// and is not safe for concurrent use on its own (the service mutex guards it).
type loanIndex struct {
	items []entity.LoanApplication
	pos   map[string]int
}

func newLoanIndex() *loanIndex {
	return &loanIndex{pos: make(map[string]int)}
}

func (li *loanIndex) Len() int { return len(li.items) }

func (li *loanIndex) Less(i, j int) bool {
	a, b := li.items[i], li.items[j]
	if a.PriorityScore != b.PriorityScore {
		return a.PriorityScore < b.PriorityScore
	}
	return a.ApplicationDate.Before(b.ApplicationDate)
}

func (li *loanIndex) Swap(i, j int) {
	li.items[i], li.items[j] = li.items[j], li.items[i]
	li.pos[li.items[i].ID] = i
	li.pos[li.items[j].ID] = j
}

func (li *loanIndex) Push(x any) {
	l := x.(entity.LoanApplication)
	li.pos[l.ID] = len(li.items)
	li.items = append(li.items, l)
}

func (li *loanIndex) Pop() any {
	n := len(li.items)
	l := li.items[n-1]
	li.items = li.items[:n-1]
	delete(li.pos, l.ID)
	return l
}

// Enqueue inserts a pending application.
func (li *loanIndex) Enqueue(l entity.LoanApplication) {
	heap.Push(li, l)
}

// PeekNext returns the application that would be served next without removing
// it, or false when the index is empty.
func (li *loanIndex) PeekNext() (entity.LoanApplication, bool) {
	if len(li.items) == 0 {
		return entity.LoanApplication{}, false
	}
	return li.items[0], true
}

// Get returns the entry with the given id without removing it.
func (li *loanIndex) Get(id string) (entity.LoanApplication, bool) {
	i, ok := li.pos[id]
	if !ok {
		return entity.LoanApplication{}, false
	}
	return li.items[i], true
}

// RemoveByID extracts the entry with the given id regardless of its position.
func (li *loanIndex) RemoveByID(id string) (entity.LoanApplication, bool) {
	i, ok := li.pos[id]
	if !ok {
		return entity.LoanApplication{}, false
	}
	l := heap.Remove(li, i).(entity.LoanApplication)
	return l, true
}

// Snapshot returns all current entries in serving order without mutating the
// index.
func (li *loanIndex) Snapshot() []entity.LoanApplication {
	out := make([]entity.LoanApplication, len(li.items))
	copy(out, li.items)
	sort.Slice(out, func(i, j int) bool {
		if out[i].PriorityScore != out[j].PriorityScore {
			return out[i].PriorityScore < out[j].PriorityScore
		}
		return out[i].ApplicationDate.Before(out[j].ApplicationDate)
	})
	return out
}
