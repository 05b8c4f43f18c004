package state

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/superhow/catapult-server/address"
)

func testOptions() Options {
	return Options{
		NetworkID:           address.NetworkTestnet,
		ImportanceGrouping:  180,
		MinHarvesterBalance: 1000,
		MaxHarvesterBalance: 100000,
		HarvestingMosaicID:  0x1,
		CurrencyMosaicID:    0x1,
	}
}

func accountWithBalance(seed byte, balance uint64, opts Options) *AccountState {
	var addr address.Address
	addr[0] = seed
	addr[1] = seed + 1
	acc := NewAccountState(addr, 1, opts.CurrencyMosaicID)
	acc.CreditAt(opts.HarvestingMosaicID, 1, balance)
	return acc
}

func TestComputeHighValueAddsWithinWindow(t *testing.T) {
	opts := testOptions()
	acc := accountWithBalance(1, 5000, opts)

	snap := ComputeHighValue(map[address.Address]struct{}{}, []*AccountState{acc}, nil, opts)
	_, in := snap.Current[acc.Address]
	require.True(t, in)
	require.Empty(t, snap.Removed)
}

func TestComputeHighValueExcludesBelowMinimum(t *testing.T) {
	opts := testOptions()
	acc := accountWithBalance(1, opts.MinHarvesterBalance-1, opts)

	snap := ComputeHighValue(map[address.Address]struct{}{}, []*AccountState{acc}, nil, opts)
	_, in := snap.Current[acc.Address]
	require.False(t, in)
}

func TestComputeHighValueExcludesAboveMaximum(t *testing.T) {
	opts := testOptions()
	acc := accountWithBalance(1, opts.MaxHarvesterBalance+1, opts)

	snap := ComputeHighValue(map[address.Address]struct{}{}, []*AccountState{acc}, nil, opts)
	_, in := snap.Current[acc.Address]
	require.False(t, in)
}

func TestComputeHighValueDropsFallenAccountFromBaseline(t *testing.T) {
	opts := testOptions()
	acc := accountWithBalance(1, 5000, opts)
	baseline := map[address.Address]struct{}{acc.Address: {}}

	acc.CreditAt(opts.HarvestingMosaicID, 2, 1)
	snap := ComputeHighValue(baseline, []*AccountState{acc}, nil, opts)

	_, in := snap.Current[acc.Address]
	require.False(t, in)
	_, removed := snap.Removed[acc.Address]
	require.True(t, removed)
}

func TestComputeHighValueExplicitRemovalWins(t *testing.T) {
	opts := testOptions()
	acc := accountWithBalance(1, 5000, opts)
	baseline := map[address.Address]struct{}{acc.Address: {}}

	snap := ComputeHighValue(baseline, []*AccountState{acc}, []address.Address{acc.Address}, opts)
	_, in := snap.Current[acc.Address]
	require.False(t, in)
	_, removed := snap.Removed[acc.Address]
	require.True(t, removed)
}

func TestComputeHighValueBaselineUnaffectedAccountsPersist(t *testing.T) {
	opts := testOptions()
	var untouched address.Address
	untouched[0] = 9
	baseline := map[address.Address]struct{}{untouched: {}}

	snap := ComputeHighValue(baseline, nil, nil, opts)
	_, in := snap.Current[untouched]
	require.True(t, in)
	require.Empty(t, snap.Removed)
}

func TestComputeHighValueMembershipMatchesBalancePredicate(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		opts := testOptions()
		balance := rapid.Uint64Range(0, opts.MaxHarvesterBalance*2).Draw(rt, "balance")
		acc := accountWithBalance(1, balance, opts)

		snap := ComputeHighValue(map[address.Address]struct{}{}, []*AccountState{acc}, nil, opts)
		_, in := snap.Current[acc.Address]

		want := balance >= opts.MinHarvesterBalance && balance <= opts.MaxHarvesterBalance
		require.Equal(rt, want, in)
	})
}
