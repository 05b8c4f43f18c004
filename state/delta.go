package state

import (
	"github.com/superhow/catapult-server/address"
)

// removalKind distinguishes the two independently-keyed removal requests a
// delta can queue (spec §4.1: address-height and public-key-height removal
// follow asymmetric matching rules).
type removalKind int

const (
	removeByAddress removalKind = iota
	removeByPublicKey
)

type queuedRemoval struct {
	kind      removalKind
	address   address.Address
	publicKey address.PublicKey
	height    uint64
}

// Delta is a single open transaction against an AccountStateCache. All
// reads observe the baseline overlaid with this delta's staged changes;
// nothing is visible to other views until Commit (spec §4.1, §5).
type Delta struct {
	cache  *AccountStateCache
	closed bool

	overlay              map[address.Address]*AccountState
	removedAddrs         map[address.Address]struct{}
	pubKeyOverlay        map[address.PublicKey]address.Address
	removedPubKeyOverlay map[address.PublicKey]struct{}

	// touched mirrors every address materialized into overlay, whether by
	// AddAccount or by a copy-on-write read of the baseline. Recomputing
	// high-value membership over touched even for untouched-in-substance
	// reads is harmless: the membership predicate is a pure function of
	// current balance, so re-evaluating an unchanged balance reproduces
	// the baseline's existing verdict.
	touched map[address.Address]*AccountState

	queuedRemovals []queuedRemoval

	highValueSnapshot *HighValueSnapshot
}

func newDelta(cache *AccountStateCache) *Delta {
	return &Delta{
		cache:                cache,
		overlay:              make(map[address.Address]*AccountState),
		removedAddrs:         make(map[address.Address]struct{}),
		pubKeyOverlay:        make(map[address.PublicKey]address.Address),
		removedPubKeyOverlay: make(map[address.PublicKey]struct{}),
		touched:              make(map[address.Address]*AccountState),
	}
}

func (d *Delta) checkOpen() {
	if d.closed {
		panic("state: delta used after Commit or Discard")
	}
}

// stage copies acc into the overlay (and marks it touched) so subsequent
// mutation on the returned pointer is visible to this delta only.
func (d *Delta) stage(acc *AccountState) *AccountState {
	d.overlay[acc.Address] = acc
	d.touched[acc.Address] = acc
	delete(d.removedAddrs, acc.Address)
	return acc
}

// FindByAddress resolves addr against this delta's overlay, falling back
// to the committed baseline. A baseline hit is copy-on-write: it is
// cloned into the overlay before being returned, so the caller may freely
// mutate the result without touching the committed cache.
func (d *Delta) FindByAddress(addr address.Address) (*AccountState, bool) {
	d.checkOpen()
	if _, removed := d.removedAddrs[addr]; removed {
		return nil, false
	}
	if acc, ok := d.overlay[addr]; ok {
		return acc, true
	}
	d.cache.mu.RLock()
	acc, ok := d.cache.accounts[addr]
	d.cache.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return d.stage(cloneAccountState(acc)), true
}

// FindByPublicKey resolves publicKey through the delta-local secondary
// index, then falls back to the committed one.
func (d *Delta) FindByPublicKey(publicKey address.PublicKey) (*AccountState, bool) {
	d.checkOpen()
	if _, removed := d.removedPubKeyOverlay[publicKey]; removed {
		return nil, false
	}
	if addr, ok := d.pubKeyOverlay[publicKey]; ok {
		return d.FindByAddress(addr)
	}
	d.cache.mu.RLock()
	addr, ok := d.cache.byPublicKey[publicKey]
	d.cache.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return d.FindByAddress(addr)
}

// AddAccount returns the account state for addr, creating and staging a
// fresh one at addressHeight if it is not already known to this delta or
// the committed baseline (spec I1: re-adding an existing address is a
// no-op that returns the existing state).
func (d *Delta) AddAccount(addr address.Address, addressHeight uint64) *AccountState {
	d.checkOpen()
	if existing, ok := d.FindByAddress(addr); ok {
		return existing
	}
	return d.stage(NewAccountState(addr, addressHeight, d.cache.options.CurrencyMosaicID))
}

// AddAccountByPublicKey derives addr = FromPublicKey(publicKey) on the
// cache's network, ensures the account exists (via AddAccount), and
// records the public-key link at publicKeyHeight if it is not already
// recorded.
func (d *Delta) AddAccountByPublicKey(publicKey address.PublicKey, publicKeyHeight uint64) *AccountState {
	d.checkOpen()
	addr := address.FromPublicKey(publicKey, d.cache.options.NetworkID)
	acc := d.AddAccount(addr, publicKeyHeight) // already overlay-resident, safe to mutate in place
	if acc.PublicKeyHeight == 0 {
		acc.PublicKey = publicKey
		acc.PublicKeyHeight = publicKeyHeight
		d.pubKeyOverlay[publicKey] = addr
		delete(d.removedPubKeyOverlay, publicKey)
	}
	return acc
}

// AddExistingAccount adopts an already-constructed AccountState (e.g. one
// read from a snapshot restore) directly into the overlay, indexing its
// public key if one is set. Used by the account-restore path, not by
// ordinary block processing.
func (d *Delta) AddExistingAccount(acc *AccountState) *AccountState {
	d.checkOpen()
	d.stage(acc)
	if acc.PublicKeyHeight != 0 {
		d.pubKeyOverlay[acc.PublicKey] = acc.Address
		delete(d.removedPubKeyOverlay, acc.PublicKey)
	}
	return acc
}

// cloneAccountState deep-copies acc so that mutating the clone's balances
// or importance history never reaches back into the committed baseline —
// a shallow copy sharing *BalanceHistory or *ImportanceSnapshots pointers
// would let a discarded delta's undo/redo corrupt committed state.
func cloneAccountState(acc *AccountState) *AccountState {
	clone := *acc
	clone.Balances = make(map[uint64]*BalanceHistory, len(acc.Balances))
	for id, h := range acc.Balances {
		clone.Balances[id] = h.Clone()
	}
	clone.Importance = acc.Importance.Clone()
	return &clone
}

// RemoveAccount stages removal of addr, but only if its recorded
// AddressHeight equals height — removal is a no-op undo of the addAccount
// that introduced the address at that exact height, not a general delete
// (spec §4.1 remove(address, height)).
func (d *Delta) RemoveAccount(addr address.Address, height uint64) {
	d.checkOpen()
	acc, ok := d.FindByAddress(addr)
	if !ok || acc.AddressHeight != height {
		return
	}
	d.removedAddrs[addr] = struct{}{}
	delete(d.overlay, addr)
	delete(d.touched, addr)
	if acc.PublicKeyHeight != 0 {
		d.removedPubKeyOverlay[acc.PublicKey] = struct{}{}
		delete(d.pubKeyOverlay, acc.PublicKey)
	}
}

// RemovePublicKey stages removal of the public-key link recorded at
// height. When PublicKeyHeight equals AddressHeight, the address was
// introduced by this same public-key link and is removed outright,
// routing to RemoveAccount; otherwise only the link is cleared and the
// account is demoted to Unlinked (spec §4.1 remove(publicKey, height)).
func (d *Delta) RemovePublicKey(publicKey address.PublicKey, height uint64) {
	d.checkOpen()
	acc, ok := d.FindByPublicKey(publicKey)
	if !ok || acc.PublicKeyHeight != height {
		return
	}
	if acc.PublicKeyHeight == acc.AddressHeight {
		d.RemoveAccount(acc.Address, acc.AddressHeight)
		return
	}
	// acc is already overlay-resident (FindByPublicKey routes through
	// FindByAddress's copy-on-write), so mutating it in place is safe.
	acc.PublicKey = address.PublicKey{}
	acc.PublicKeyHeight = 0
	acc.Type = Unlinked
	d.removedPubKeyOverlay[publicKey] = struct{}{}
	delete(d.pubKeyOverlay, publicKey)
}

// QueueRemove records a removal request for later, batched application via
// CommitRemovals. Used by the transaction undo path, which must not
// mutate the cache until an entire block's notifications have been
// unwound in reverse (spec §4.1).
func (d *Delta) QueueRemove(addr address.Address, height uint64) {
	d.checkOpen()
	d.queuedRemovals = append(d.queuedRemovals, queuedRemoval{kind: removeByAddress, address: addr, height: height})
}

// QueueRemovePublicKey is QueueRemove's public-key counterpart.
func (d *Delta) QueueRemovePublicKey(publicKey address.PublicKey, height uint64) {
	d.checkOpen()
	d.queuedRemovals = append(d.queuedRemovals, queuedRemoval{kind: removeByPublicKey, publicKey: publicKey, height: height})
}

// CommitRemovals applies every queued removal, addresses first and then
// public keys, matching the order the account-state observers apply them
// in (spec §4.1).
func (d *Delta) CommitRemovals() {
	d.checkOpen()
	for _, r := range d.queuedRemovals {
		if r.kind == removeByAddress {
			d.RemoveAccount(r.address, r.height)
		}
	}
	for _, r := range d.queuedRemovals {
		if r.kind == removeByPublicKey {
			d.RemovePublicKey(r.publicKey, r.height)
		}
	}
	d.queuedRemovals = nil
}

// ClearRemove discards all queued removals without applying them.
func (d *Delta) ClearRemove() {
	d.checkOpen()
	d.queuedRemovals = nil
}

// DetachHighValueAccounts computes and caches this delta's high-value
// snapshot against the cache's current committed baseline, without
// mutating either. Calling it more than once returns the same snapshot;
// Commit reuses it instead of recomputing.
func (d *Delta) DetachHighValueAccounts() HighValueSnapshot {
	d.checkOpen()
	if d.highValueSnapshot != nil {
		return *d.highValueSnapshot
	}
	d.cache.mu.RLock()
	snapshot := computeHighValueLocked(d.cache, d)
	d.cache.mu.RUnlock()
	d.highValueSnapshot = &snapshot
	return snapshot
}

// Commit installs this delta's staged changes into the cache and closes
// the delta. Calling Commit or Discard a second time on the same delta is
// a programming error.
func (d *Delta) Commit() {
	d.checkOpen()
	d.cache.applyCommit(d)
	d.closed = true
	d.cache.closeDelta()
}

// Discard closes the delta without applying any of its staged changes.
func (d *Delta) Discard() {
	d.checkOpen()
	d.closed = true
	d.cache.closeDelta()
}
