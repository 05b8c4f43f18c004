package state

import (
	"github.com/superhow/catapult-server/address"
)

// ImportanceView answers harvesting-eligibility questions against a
// read-only account view, dereferencing Remote accounts to their linked
// Main account as needed (spec §4.3).
type ImportanceView struct {
	view *View
}

// NewImportanceView wraps view.
func NewImportanceView(view *View) *ImportanceView {
	return &ImportanceView{view: view}
}

// mainAccount resolves acc to the Main account whose importance actually
// governs harvesting: a Main account resolves to itself; a Remote account
// dereferences its LinkedPublicKey. A Remote account with no linked Main
// account, or one whose Main account does not link back, is a corrupted
// link and never eligible.
func (v *ImportanceView) mainAccount(acc *AccountState) (*AccountState, error) {
	switch acc.Type {
	case Main, Unlinked:
		return acc, nil
	case Remote:
		if !acc.HasLinkedKey {
			return nil, ErrCorruptedLink
		}
		main, ok := v.view.FindByPublicKey(acc.LinkedPublicKey)
		if !ok || main.Type != Main {
			return nil, ErrCorruptedLink
		}
		if !main.HasLinkedKey || main.LinkedPublicKey != acc.PublicKey {
			return nil, ErrCorruptedLink
		}
		return main, nil
	default:
		return nil, ErrCorruptedLink
	}
}

// CanHarvest reports whether addr is eligible to harvest at height: it
// must resolve to a known account (dereferencing Remote->Main), that
// account's recorded importance must be at exactly height's
// importance-height and nonzero, and its harvesting-mosaic balance must
// fall within the configured harvester balance window (spec §4.3).
func (v *ImportanceView) CanHarvest(addr address.Address, height uint64) (bool, error) {
	acc, ok := v.view.FindByAddress(addr)
	if !ok {
		return false, nil
	}
	main, err := v.mainAccount(acc)
	if err != nil {
		return false, err
	}
	opts := v.view.Options()
	if main.Importance.Height() != opts.ImportanceHeight(height) {
		return false, nil
	}
	if main.Importance.Current() == 0 {
		return false, nil
	}
	balance := main.Balance(opts.HarvestingMosaicID)
	return balance >= opts.MinHarvesterBalance && balance <= opts.MaxHarvesterBalance, nil
}

// ImportanceOf returns the importance value governing addr at height,
// dereferencing Remote->Main as CanHarvest does. Returns 0 if the account
// is unknown or has no importance recorded at exactly height's
// importance-height.
func (v *ImportanceView) ImportanceOf(addr address.Address, height uint64) (uint64, error) {
	acc, ok := v.view.FindByAddress(addr)
	if !ok {
		return 0, nil
	}
	main, err := v.mainAccount(acc)
	if err != nil {
		return 0, err
	}
	importanceHeight := v.view.Options().ImportanceHeight(height)
	if main.Importance.Height() != importanceHeight {
		return 0, nil
	}
	return main.Importance.Current(), nil
}
