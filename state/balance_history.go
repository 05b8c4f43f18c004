package state

import "github.com/google/btree"

// BalanceHistory is an ordered height->amount mapping (spec §4.4). The most
// recently recorded height holds the "current" balance; querying an older
// height returns the amount that was in effect at or after that height.
type BalanceHistory struct {
	tree *btree.BTree
}

// NewBalanceHistory returns an empty BalanceHistory.
func NewBalanceHistory() *BalanceHistory {
	return &BalanceHistory{tree: btree.New(8)}
}

type balanceEntry struct {
	height uint64
	amount uint64
}

func (e balanceEntry) Less(than btree.Item) bool {
	return e.height < than.(balanceEntry).height
}

// Add records amount as the balance in effect at height, overwriting any
// existing entry at that height.
func (h *BalanceHistory) Add(height uint64, amount uint64) {
	h.tree.ReplaceOrInsert(balanceEntry{height: height, amount: amount})
}

// Remove deletes the entry recorded at height, if any. Used by undo to
// invert a prior Add.
func (h *BalanceHistory) Remove(height uint64) {
	h.tree.Delete(balanceEntry{height: height})
}

// Balance returns the most recently recorded amount, or 0 if the history
// is empty.
func (h *BalanceHistory) Balance() uint64 {
	item := h.tree.Max()
	if item == nil {
		return 0
	}
	return item.(balanceEntry).amount
}

// BalanceAt returns the amount recorded at the smallest height >= at, or 0
// if no such entry exists.
func (h *BalanceHistory) BalanceAt(at uint64) uint64 {
	var found uint64
	h.tree.AscendGreaterOrEqual(balanceEntry{height: at}, func(item btree.Item) bool {
		found = item.(balanceEntry).amount
		return false
	})
	return found
}

// AnyAtLeast reports whether any recorded amount is >= x.
func (h *BalanceHistory) AnyAtLeast(x uint64) bool {
	any := false
	h.tree.Ascend(func(item btree.Item) bool {
		if item.(balanceEntry).amount >= x {
			any = true
			return false
		}
		return true
	})
	return any
}

// Prune collapses every entry with height > at into a single entry at at,
// carrying forward the amount that was in effect at at before pruning, so
// that BalanceAt(h) for h <= at is unchanged. If no entry with height >=
// at exists (at is above every recorded height), Prune is a no-op: there
// is nothing above at to collapse, and inserting one would fabricate a
// balance that was never recorded. Prune is idempotent: calling it twice
// at the same height is equivalent to calling it once, because the
// second call finds nothing above at left to collapse.
func (h *BalanceHistory) Prune(at uint64) {
	var preserved uint64
	found := false
	h.tree.AscendGreaterOrEqual(balanceEntry{height: at}, func(item btree.Item) bool {
		preserved = item.(balanceEntry).amount
		found = true
		return false
	})
	if !found {
		return
	}

	var toDelete []btree.Item
	h.tree.AscendGreaterOrEqual(balanceEntry{height: at + 1}, func(item btree.Item) bool {
		toDelete = append(toDelete, item)
		return true
	})
	for _, item := range toDelete {
		h.tree.Delete(item)
	}

	h.tree.ReplaceOrInsert(balanceEntry{height: at, amount: preserved})
}

// Len reports the number of distinct heights recorded.
func (h *BalanceHistory) Len() int {
	return h.tree.Len()
}

// Clone returns a deep copy of h: mutating the clone's entries (via Add,
// Remove, or Prune) never touches h's tree.
func (h *BalanceHistory) Clone() *BalanceHistory {
	clone := NewBalanceHistory()
	h.tree.Ascend(func(item btree.Item) bool {
		clone.tree.ReplaceOrInsert(item)
		return true
	})
	return clone
}
