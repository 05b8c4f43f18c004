package state

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBalanceHistoryTracksMostRecent(t *testing.T) {
	h := NewBalanceHistory()
	h.Add(10, 100)
	h.Add(20, 250)
	require.Equal(t, uint64(250), h.Balance())
	require.Equal(t, 2, h.Len())
}

func TestBalanceHistoryBalanceAt(t *testing.T) {
	h := NewBalanceHistory()
	h.Add(10, 100)
	h.Add(20, 250)
	h.Add(30, 400)

	require.Equal(t, uint64(100), h.BalanceAt(1))
	require.Equal(t, uint64(100), h.BalanceAt(10))
	require.Equal(t, uint64(250), h.BalanceAt(11))
	require.Equal(t, uint64(400), h.BalanceAt(30))
	require.Equal(t, uint64(0), h.BalanceAt(31))
}

func TestBalanceHistoryAnyAtLeast(t *testing.T) {
	h := NewBalanceHistory()
	h.Add(10, 100)
	h.Add(20, 5)
	require.True(t, h.AnyAtLeast(100))
	require.False(t, h.AnyAtLeast(101))
}

func TestBalanceHistoryRemoveUndoesAdd(t *testing.T) {
	h := NewBalanceHistory()
	h.Add(10, 100)
	h.Add(20, 250)
	h.Remove(20)
	require.Equal(t, uint64(100), h.Balance())
	require.Equal(t, 1, h.Len())
}

func TestBalanceHistoryPrunePreservesOlderQueries(t *testing.T) {
	h := NewBalanceHistory()
	h.Add(10, 100)
	h.Add(20, 250)
	h.Add(30, 400)

	before := map[uint64]uint64{5: h.BalanceAt(5), 10: h.BalanceAt(10), 20: h.BalanceAt(20)}

	h.Prune(20)

	for height, want := range before {
		require.Equal(t, want, h.BalanceAt(height), "height %d", height)
	}
	require.Equal(t, uint64(250), h.Balance())
}

func TestBalanceHistoryCloneIsIndependent(t *testing.T) {
	h := NewBalanceHistory()
	h.Add(10, 100)
	h.Add(20, 250)

	clone := h.Clone()
	clone.Add(30, 999)
	clone.Remove(10)

	require.Equal(t, uint64(250), h.Balance())
	require.Equal(t, 2, h.Len())
	require.Equal(t, uint64(999), clone.Balance())
	require.Equal(t, 2, clone.Len())
}

func TestBalanceHistoryPruneAboveNewestHeightIsNoOp(t *testing.T) {
	h := NewBalanceHistory()
	h.Add(10, 100)
	h.Add(20, 250)

	h.Prune(30)

	require.Equal(t, uint64(250), h.Balance(), "pruning above the newest height must not fabricate a zero entry")
	require.Equal(t, 2, h.Len())
}

func TestBalanceHistoryPruneIsIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := NewBalanceHistory()
		n := rapid.IntRange(0, 20).Draw(rt, "n")
		height := uint64(0)
		for i := 0; i < n; i++ {
			height += rapid.Uint64Range(1, 50).Draw(rt, "gap")
			h.Add(height, rapid.Uint64Range(0, 1000).Draw(rt, "amount"))
		}
		at := rapid.Uint64Range(0, height+50).Draw(rt, "at")

		h.Prune(at)
		afterFirst := snapshotHeights(h)

		h.Prune(at)
		afterSecond := snapshotHeights(h)

		require.Equal(rt, afterFirst, afterSecond)
	})
}

func snapshotHeights(h *BalanceHistory) map[uint64]uint64 {
	out := make(map[uint64]uint64)
	for height := uint64(0); height <= 200; height++ {
		out[height] = h.BalanceAt(height)
	}
	return out
}
