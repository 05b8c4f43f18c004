// Package state implements the account-state cache, its transactional
// delta, the high-value-account updater, and the importance view — the
// account-side half of the sync consumer's hard part (spec §4.1-§4.4).
package state

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/superhow/catapult-server/address"
	"github.com/superhow/catapult-server/log"
)

// Options are the immutable parameters that shape cache behavior: network
// id, importance grouping, harvester balance window, and the two
// distinguished mosaics (spec §3 AccountStateCache row).
type Options struct {
	NetworkID           address.NetworkID
	ImportanceGrouping  uint64
	MinHarvesterBalance uint64
	MaxHarvesterBalance uint64
	HarvestingMosaicID  uint64
	CurrencyMosaicID    uint64
}

// ImportanceHeight computes h - (h mod grouping), per spec §3 invariant I3.
func (o Options) ImportanceHeight(h uint64) uint64 {
	if o.ImportanceGrouping == 0 {
		return h
	}
	return h - (h % o.ImportanceGrouping)
}

// AccountStateCache is the process-wide, committed account-state store. All
// mutation flows through a single open Delta; external code never mutates
// the committed baseline directly (spec §5).
type AccountStateCache struct {
	mu      sync.RWMutex
	options Options

	accounts      map[address.Address]*AccountState
	byPublicKey   map[address.PublicKey]address.Address
	lookupCache   *lru.Cache // memoizes publicKey -> *AccountState, invalidated per commit
	highValue     map[address.Address]struct{}

	logger log.Logger

	deltaOpen bool
}

// NewAccountStateCache returns an empty cache with the given options. A nil
// logger is replaced with a no-op implementation.
func NewAccountStateCache(options Options, logger log.Logger) *AccountStateCache {
	if logger == nil {
		logger = log.Nop()
	}
	cache, _ := lru.New(4096)
	return &AccountStateCache{
		options:     options,
		accounts:    make(map[address.Address]*AccountState),
		byPublicKey: make(map[address.PublicKey]address.Address),
		lookupCache: cache,
		highValue:   make(map[address.Address]struct{}),
		logger:      logger.With("component", "state.cache"),
	}
}

// Options returns the cache's immutable configuration.
func (c *AccountStateCache) Options() Options {
	return c.options
}

// View returns a read-only handle over the committed baseline; it reads
// the live committed state, so changes committed later are visible
// through it.
// Multiple views may be held concurrently with at most one open Delta.
func (c *AccountStateCache) View() *View {
	return &View{cache: c}
}

// NewDelta opens a transactional view for mutation. Only one delta may be
// open at a time; attempting to open a second is a programming error, not
// a recoverable condition (spec §5).
func (c *AccountStateCache) NewDelta() *Delta {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deltaOpen {
		panic("state: a delta is already open on this cache")
	}
	c.deltaOpen = true
	return newDelta(c)
}

// IsHighValue reports whether addr is currently in the high-value set.
func (c *AccountStateCache) IsHighValue(addr address.Address) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.highValue[addr]
	return ok
}

// HighValueAddresses returns a snapshot slice of the committed high-value
// address set.
func (c *AccountStateCache) HighValueAddresses() []address.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]address.Address, 0, len(c.highValue))
	for a := range c.highValue {
		out = append(out, a)
	}
	return out
}

// View is a read-only handle over the committed baseline.
type View struct {
	cache *AccountStateCache
}

// FindByAddress returns the committed account state at addr itself (not a
// copy), or (nil, false) if absent. The returned pointer must not be
// mutated.
func (v *View) FindByAddress(addr address.Address) (*AccountState, bool) {
	v.cache.mu.RLock()
	defer v.cache.mu.RUnlock()
	s, ok := v.cache.accounts[addr]
	return s, ok
}

// FindByPublicKey resolves publicKey through the secondary index, then
// looks up the resulting address. Hits are memoized in lookupCache so
// repeated lookups of the same hot public key skip the map indirection;
// the cache is purged wholesale on every commit, so a memoized entry
// never survives past the committed state it was read from.
func (v *View) FindByPublicKey(publicKey address.PublicKey) (*AccountState, bool) {
	if cached, ok := v.cache.lookupCache.Get(publicKey); ok {
		return cached.(*AccountState), true
	}
	v.cache.mu.RLock()
	addr, ok := v.cache.byPublicKey[publicKey]
	v.cache.mu.RUnlock()
	if !ok {
		return nil, false
	}
	acc, ok := v.FindByAddress(addr)
	if ok {
		v.cache.lookupCache.Add(publicKey, acc)
	}
	return acc, ok
}

// Options returns the cache's immutable configuration.
func (v *View) Options() Options {
	return v.cache.options
}

func (c *AccountStateCache) closeDelta() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deltaOpen = false
}

// applyCommit installs a delta's staged changes into the committed
// baseline. It is only ever called by Delta.Commit and assumes the caller
// already validated the delta's lifecycle.
func (c *AccountStateCache) applyCommit(d *Delta) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for addr := range d.removedAddrs {
		if existing, ok := c.accounts[addr]; ok && existing.PublicKeyHeight != 0 {
			delete(c.byPublicKey, existing.PublicKey)
		}
		delete(c.accounts, addr)
	}

	for addr, acc := range d.overlay {
		c.accounts[addr] = acc
	}

	for pk, addr := range d.pubKeyOverlay {
		c.byPublicKey[pk] = addr
	}
	for pk := range d.removedPubKeyOverlay {
		delete(c.byPublicKey, pk)
	}

	c.lookupCache.Purge()

	snapshot := d.highValueSnapshot
	if snapshot == nil {
		computed := computeHighValueLocked(c, d)
		snapshot = &computed
	}
	// snapshot.Current is already the complete new high-value set (spec
	// §4.2: Current = (B ∪ currentAdds) \ removedAdds), so committing it
	// is a full replace; Removed is exposed separately for callers that
	// need to know which previously-high-value addresses dropped out.
	c.highValue = snapshot.Current

	c.logger.Debug("delta committed", "accounts", len(c.accounts), "highValue", len(c.highValue))
}
