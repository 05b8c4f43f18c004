// Package chainstore is the persisted block storage view/modifier: the
// height-indexed, crash-consistent-at-block-granularity store the sync
// consumer swaps blocks into and out of on commit (spec §4.5, §5
// "Persisted state layout").
package chainstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/google/orderedcode"
	dbm "github.com/tendermint/tm-db"

	"github.com/superhow/catapult-server/log"
	"github.com/superhow/catapult-server/model"
)

// Codec encodes and decodes block elements to and from the bytes actually
// written to the KV backend. The wire format itself is owned by the layer
// above the core; chainstore only needs to round-trip whatever that layer
// hands it.
type Codec interface {
	Encode(*model.BlockElement) ([]byte, error)
	Decode([]byte) (*model.BlockElement, error)
}

// ErrNotFound is returned by LoadBlock/LoadBlockElement when height has no
// stored block.
var ErrNotFound = errors.New("chainstore: block not found")

// Store is a height-indexed block store backed by a pluggable KV database.
// It can be assumed to hold all contiguous heights between 1 and Height()
// inclusive; it never stores gaps.
type Store struct {
	db    dbm.DB
	codec Codec

	logger log.Logger

	mu     sync.RWMutex
	height uint64
}

const heightKey = "chainstore:height"

// Open returns a Store backed by db, restoring its height from whatever
// was last persisted (0 if db is empty). A nil logger is replaced with a
// no-op implementation.
func Open(db dbm.DB, codec Codec, logger log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Nop()
	}
	s := &Store{db: db, codec: codec, logger: logger.With("component", "chainstore")}
	raw, err := db.Get([]byte(heightKey))
	if err != nil {
		return nil, fmt.Errorf("chainstore: read height: %w", err)
	}
	if len(raw) == 8 {
		s.height = binary.BigEndian.Uint64(raw)
	}
	s.logger.Info("chain store opened", "height", s.height)
	return s, nil
}

// ChainHeight returns the height of the highest stored block, or 0 if the
// store is empty.
func (s *Store) ChainHeight() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.height
}

const blockKeyPrefix = "block"

// blockKey encodes height as an order-preserving key so that a raw KV
// backend range-scan over block keys visits heights in ascending order.
func blockKey(height uint64) []byte {
	key, err := orderedcode.Append(nil, blockKeyPrefix, int64(height))
	if err != nil {
		panic(fmt.Sprintf("chainstore: encode block key for height %d: %v", height, err))
	}
	return key
}

// LoadBlockElement returns the full element (block plus derived fields)
// stored at height.
func (s *Store) LoadBlockElement(height uint64) (*model.BlockElement, error) {
	raw, err := s.db.Get(blockKey(height))
	if err != nil {
		return nil, fmt.Errorf("chainstore: read height %d: %w", height, err)
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	return s.codec.Decode(raw)
}

// LoadBlock returns just the Block at height.
func (s *Store) LoadBlock(height uint64) (model.Block, error) {
	elem, err := s.LoadBlockElement(height)
	if err != nil {
		return nil, err
	}
	return elem.Block, nil
}

// SaveBlock appends element as the new chain tip. It is a programmer error
// to call SaveBlock with anything but the next contiguous height.
func (s *Store) SaveBlock(element *model.BlockElement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	height := element.Height()
	if height != s.height+1 {
		panic(fmt.Sprintf("chainstore: non-contiguous save: have height %d, got %d", s.height, height))
	}

	raw, err := s.codec.Encode(element)
	if err != nil {
		return fmt.Errorf("chainstore: encode height %d: %w", height, err)
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(blockKey(height), raw); err != nil {
		return fmt.Errorf("chainstore: stage height %d: %w", height, err)
	}
	heightBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(heightBytes, height)
	if err := batch.Set([]byte(heightKey), heightBytes); err != nil {
		return fmt.Errorf("chainstore: stage height marker: %w", err)
	}
	if err := batch.WriteSync(); err != nil {
		return fmt.Errorf("chainstore: commit height %d: %w", height, err)
	}

	s.height = height
	return nil
}

// ReplaceTip atomically drops every stored block above base and appends
// elements (which must start at base+1 and be contiguous) in a single
// batch write, so the swap is all-or-nothing: either every block above
// base is replaced by elements, or (on error) nothing changes at all.
// This is the storage half of the sync consumer's commit step, where
// partial application would violate crash-consistency (spec §4.5, §7
// StorageFailure).
func (s *Store) ReplaceTip(base uint64, elements []*model.BlockElement) error {
	encoded := make([][]byte, len(elements))
	for i, elem := range elements {
		if elem.Height() != base+uint64(i)+1 {
			panic(fmt.Sprintf("chainstore: non-contiguous replacement: expected height %d, got %d", base+uint64(i)+1, elem.Height()))
		}
		raw, err := s.codec.Encode(elem)
		if err != nil {
			return fmt.Errorf("chainstore: encode height %d: %w", elem.Height(), err)
		}
		encoded[i] = raw
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.db.NewBatch()
	defer batch.Close()
	for height := s.height; height > base; height-- {
		if err := batch.Delete(blockKey(height)); err != nil {
			return fmt.Errorf("chainstore: stage delete height %d: %w", height, err)
		}
	}
	newHeight := base
	for i, raw := range encoded {
		height := base + uint64(i) + 1
		if err := batch.Set(blockKey(height), raw); err != nil {
			return fmt.Errorf("chainstore: stage set height %d: %w", height, err)
		}
		newHeight = height
	}
	heightBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(heightBytes, newHeight)
	if err := batch.Set([]byte(heightKey), heightBytes); err != nil {
		return fmt.Errorf("chainstore: stage height marker: %w", err)
	}
	if err := batch.WriteSync(); err != nil {
		s.logger.Error("failed to commit tip replacement", "base", base, "err", err.Error())
		return fmt.Errorf("chainstore: commit replacement: %w", err)
	}

	s.height = newHeight
	s.logger.Debug("replaced chain tip", "base", base, "newHeight", newHeight, "count", len(elements))
	return nil
}

// DropBlocksAfter deletes every stored block above h and rewinds the chain
// tip to h. It is a no-op if h is already >= the current height.
func (s *Store) DropBlocksAfter(h uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h >= s.height {
		return nil
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	for height := s.height; height > h; height-- {
		if err := batch.Delete(blockKey(height)); err != nil {
			return fmt.Errorf("chainstore: stage delete height %d: %w", height, err)
		}
	}
	heightBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(heightBytes, h)
	if err := batch.Set([]byte(heightKey), heightBytes); err != nil {
		return fmt.Errorf("chainstore: stage height marker: %w", err)
	}
	if err := batch.WriteSync(); err != nil {
		s.logger.Error("failed to commit drop", "height", h, "err", err.Error())
		return fmt.Errorf("chainstore: commit drop to height %d: %w", h, err)
	}

	s.height = h
	s.logger.Debug("dropped blocks after height", "height", h)
	return nil
}
