package state

import (
	"github.com/superhow/catapult-server/address"
)

// AccountType classifies how an account participates in harvesting (spec §3).
type AccountType int

const (
	Unlinked AccountType = iota
	Main
	Remote
)

// ImportanceSnapshot is one importance-height's recorded importance value.
type ImportanceSnapshot struct {
	Height     uint64
	Importance uint64
}

// ImportanceSnapshots is a small bounded stack of importance snapshots:
// the current value plus enough history to undo recent recalculations.
type ImportanceSnapshots struct {
	entries []ImportanceSnapshot // entries[0] is current, most recent first
	max     int
}

// DefaultImportanceHistoryDepth bounds how many past recalculations an
// account remembers, matching what the undo path ever needs: one push per
// importance-grouping boundary crossed during a single sync.
const DefaultImportanceHistoryDepth = 3

// NewImportanceSnapshots returns an empty snapshot stack.
func NewImportanceSnapshots() *ImportanceSnapshots {
	return &ImportanceSnapshots{max: DefaultImportanceHistoryDepth}
}

// Height returns the importance-height of the current snapshot, or 0 if
// none has ever been recorded.
func (s *ImportanceSnapshots) Height() uint64 {
	if len(s.entries) == 0 {
		return 0
	}
	return s.entries[0].Height
}

// Current returns the current importance, or 0 if none has been recorded.
func (s *ImportanceSnapshots) Current() uint64 {
	if len(s.entries) == 0 {
		return 0
	}
	return s.entries[0].Importance
}

// Push records a new current snapshot, retiring the previous current into
// history.
func (s *ImportanceSnapshots) Push(height, importance uint64) {
	s.entries = append([]ImportanceSnapshot{{Height: height, Importance: importance}}, s.entries...)
	if len(s.entries) > s.max {
		s.entries = s.entries[:s.max]
	}
}

// Pop discards the current snapshot, restoring whatever was previously
// current. It is the exact inverse of the Push that introduced the
// discarded snapshot, used by undo.
func (s *ImportanceSnapshots) Pop() {
	if len(s.entries) == 0 {
		return
	}
	s.entries = s.entries[1:]
}

// Clone returns a deep copy of s: Push/Pop on the clone never touches s's
// backing slice.
func (s *ImportanceSnapshots) Clone() *ImportanceSnapshots {
	clone := &ImportanceSnapshots{max: s.max}
	clone.entries = append([]ImportanceSnapshot(nil), s.entries...)
	return clone
}

// LockStatus is the lifecycle state of a LockInfo.
type LockStatus int

const (
	LockUnused LockStatus = iota
	LockUsed
	LockExpired
)

// LockInfo is inserted by lock transactions and mutated by the expiry
// observer exactly once, at its ExpiryHeight (spec §3, SPEC_FULL supplement 1).
type LockInfo struct {
	Owner        address.Address
	MosaicID     uint64
	Amount       uint64
	ExpiryHeight uint64
	Status       LockStatus
}

// AccountState is the mutable per-account record the cache delta owns.
type AccountState struct {
	Address       address.Address
	AddressHeight uint64

	PublicKey       address.PublicKey
	PublicKeyHeight uint64

	Type AccountType

	// LinkedPublicKey is the counterpart key for Main<->Remote linking:
	// on a Remote account it names the Main account's public key; on a
	// Main account that has delegated harvesting it names the Remote
	// account's public key.
	LinkedPublicKey address.PublicKey
	HasLinkedKey    bool

	Balances map[uint64]*BalanceHistory

	Importance *ImportanceSnapshots
}

// NewAccountState returns an AccountState for address at addressHeight,
// with the currency mosaic pre-registered as an empty balance slot.
func NewAccountState(addr address.Address, addressHeight uint64, currencyMosaicID uint64) *AccountState {
	s := &AccountState{
		Address:       addr,
		AddressHeight: addressHeight,
		Type:          Unlinked,
		Balances:      make(map[uint64]*BalanceHistory),
		Importance:    NewImportanceSnapshots(),
	}
	s.Balances[currencyMosaicID] = NewBalanceHistory()
	return s
}

// Balance returns the current balance of mosaicID, or 0 if the account has
// never held it.
func (s *AccountState) Balance(mosaicID uint64) uint64 {
	h, ok := s.Balances[mosaicID]
	if !ok {
		return 0
	}
	return h.Balance()
}

// balanceHistory returns (creating if necessary) the BalanceHistory for
// mosaicID.
func (s *AccountState) balanceHistory(mosaicID uint64) *BalanceHistory {
	h, ok := s.Balances[mosaicID]
	if !ok {
		h = NewBalanceHistory()
		s.Balances[mosaicID] = h
	}
	return h
}

// CreditAt records a new balance for mosaicID at height, as an absolute
// amount (the observer computes the resulting total; this method does not
// add deltas).
func (s *AccountState) CreditAt(mosaicID uint64, height uint64, amount uint64) {
	s.balanceHistory(mosaicID).Add(height, amount)
}
