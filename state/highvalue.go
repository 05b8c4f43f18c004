package state

import "github.com/superhow/catapult-server/address"

// HighValueSnapshot is the (current, removed) pair produced by the
// high-value-account updater (spec §4.2): Current is the complete new
// high-value address set; Removed is the subset of the previous baseline
// that fell out of the window.
type HighValueSnapshot struct {
	Current map[address.Address]struct{}
	Removed map[address.Address]struct{}
}

// ComputeHighValue runs the high-value-account update algorithm: given the
// baseline set and the delta's touched (added-or-modified) and removed
// account sets, it derives the new Current set and the Removed subset of
// the baseline, without mutating baseline.
func ComputeHighValue(
	baseline map[address.Address]struct{},
	touched []*AccountState,
	removed []address.Address,
	opts Options,
) HighValueSnapshot {
	currentAdds := make(map[address.Address]struct{})
	removedAdds := make(map[address.Address]struct{})

	for _, acc := range touched {
		bal := acc.Balance(opts.HarvestingMosaicID)
		if bal >= opts.MinHarvesterBalance && bal <= opts.MaxHarvesterBalance {
			currentAdds[acc.Address] = struct{}{}
		} else {
			removedAdds[acc.Address] = struct{}{}
		}
	}
	for _, addr := range removed {
		removedAdds[addr] = struct{}{}
		delete(currentAdds, addr)
	}

	current := make(map[address.Address]struct{}, len(baseline)+len(currentAdds))
	for a := range baseline {
		current[a] = struct{}{}
	}
	for a := range currentAdds {
		current[a] = struct{}{}
	}
	for a := range removedAdds {
		delete(current, a)
	}

	removedOut := make(map[address.Address]struct{})
	for a := range baseline {
		if _, ok := removedAdds[a]; ok {
			removedOut[a] = struct{}{}
		}
	}

	return HighValueSnapshot{Current: current, Removed: removedOut}
}

// computeHighValueLocked assembles ComputeHighValue's inputs from the
// cache's committed baseline and a delta's staged changes. Callers must
// hold cache.mu for reading (or writing, during commit).
func computeHighValueLocked(cache *AccountStateCache, d *Delta) HighValueSnapshot {
	touched := make([]*AccountState, 0, len(d.touched))
	for _, acc := range d.touched {
		touched = append(touched, acc)
	}
	removed := make([]address.Address, 0, len(d.removedAddrs))
	for addr := range d.removedAddrs {
		removed = append(removed, addr)
	}
	return ComputeHighValue(cache.highValue, touched, removed, cache.options)
}
