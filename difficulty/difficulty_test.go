package difficulty_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/superhow/catapult-server/address"
	"github.com/superhow/catapult-server/difficulty"
	"github.com/superhow/catapult-server/model"
)

type fakeBlock struct {
	height     uint64
	difficulty uint64
}

func (b *fakeBlock) Type() model.EntityType            { return 0 }
func (b *fakeBlock) Size() uint32                      { return 0 }
func (b *fakeBlock) FooterSize() uint32                { return 0 }
func (b *fakeBlock) Version() uint8                    { return 1 }
func (b *fakeBlock) Network() address.NetworkID        { return address.NetworkTestnet }
func (b *fakeBlock) Height() uint64                    { return b.height }
func (b *fakeBlock) Timestamp() int64                  { return int64(b.height) * 10 }
func (b *fakeBlock) Difficulty() uint64                { return b.difficulty }
func (b *fakeBlock) FeeMultiplier() uint32             { return 0 }
func (b *fakeBlock) Signer() address.PublicKey         { return address.PublicKey{} }
func (b *fakeBlock) Beneficiary() address.PublicKey    { return address.PublicKey{} }
func (b *fakeBlock) Transactions() []model.Transaction { return nil }
func (b *fakeBlock) Hash() [32]byte                    { return [32]byte{} }

func elementsFor(diffs ...uint64) []*model.BlockElement {
	out := make([]*model.BlockElement, len(diffs))
	for i, d := range diffs {
		out[i] = &model.BlockElement{Block: &fakeBlock{height: uint64(i + 1), difficulty: d}}
	}
	return out
}

func TestCacheInvariantMatchesStoredRange(t *testing.T) {
	c := difficulty.NewCache()
	for h := uint64(1); h <= 5; h++ {
		c.Insert(difficulty.Info{Height: h, Timestamp: int64(h), Difficulty: 100})
	}
	require.Equal(t, 5, c.Size())
	c.Remove(3)
	require.Equal(t, 4, c.Size())
	_, ok := c.Get(3)
	require.False(t, ok)
}

func TestAveragingCheckerAcceptsBaseWithEmptyCache(t *testing.T) {
	c := difficulty.NewCache()
	checker := difficulty.NewAveragingChecker(100)
	require.True(t, checker(elementsFor(100, 100, 100), c))
}

func TestAveragingCheckerRejectsWrongDifficulty(t *testing.T) {
	c := difficulty.NewCache()
	checker := difficulty.NewAveragingChecker(100)
	require.False(t, checker(elementsFor(100, 300), c))
}

func TestAveragingCheckerUsesPriorCacheEntries(t *testing.T) {
	c := difficulty.NewCache()
	c.Insert(difficulty.Info{Height: 1, Difficulty: 200})
	checker := difficulty.NewAveragingChecker(100)
	// height 2's expected difficulty is the mean of height 1's entry: 200.
	elements := []*model.BlockElement{{Block: &fakeBlock{height: 2, difficulty: 200}}}
	require.True(t, checker(elements, c))
}

func TestRecentWindowSkipsGapsAndOrdersAscending(t *testing.T) {
	c := difficulty.NewCache()
	c.Insert(difficulty.Info{Height: 1, Difficulty: 10})
	c.Insert(difficulty.Info{Height: 3, Difficulty: 30})
	window := c.RecentWindow(3, 5)
	require.Len(t, window, 2)
	require.Equal(t, uint64(1), window[0].Height)
	require.Equal(t, uint64(3), window[1].Height)
}

func TestDeltaDiscardLeavesCacheUntouched(t *testing.T) {
	c := difficulty.NewCache()
	c.Insert(difficulty.Info{Height: 1, Difficulty: 10})

	d := c.NewDelta(1)
	d.Remove(1)
	d.Insert(difficulty.Info{Height: 2, Difficulty: 20})
	_, ok := d.Get(1)
	require.False(t, ok, "removal should be visible within the delta")

	d.Discard()

	_, ok = c.Get(1)
	require.True(t, ok, "discard must not apply the staged removal")
	_, ok = c.Get(2)
	require.False(t, ok, "discard must not apply the staged insert")
}

func TestDeltaCommitAppliesStagedChanges(t *testing.T) {
	c := difficulty.NewCache()
	c.Insert(difficulty.Info{Height: 1, Difficulty: 10})

	d := c.NewDelta(1)
	d.Remove(1)
	d.Insert(difficulty.Info{Height: 2, Difficulty: 20})
	d.Commit()

	_, ok := c.Get(1)
	require.False(t, ok)
	info, ok := c.Get(2)
	require.True(t, ok)
	require.Equal(t, uint64(20), info.Difficulty)
}

func TestDeltaUsedAfterCloseIsAProgrammerError(t *testing.T) {
	c := difficulty.NewCache()
	d := c.NewDelta(0)
	d.Discard()
	require.Panics(t, func() { d.Insert(difficulty.Info{Height: 1}) })
}
