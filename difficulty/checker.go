package difficulty

import "github.com/superhow/catapult-server/model"

// Checker is the injected difficulty-checking collaborator (spec §6):
// pure, no mutation, returns whether every candidate block's declared
// difficulty matches what the local node would have computed for that
// height.
type Checker func(elements []*model.BlockElement, cache *Cache) bool

// WindowSize is the number of preceding heights averaged to derive the
// expected difficulty for the next height, when no cached difficulty
// override applies.
const WindowSize = 60

// NewAveragingChecker returns a Checker that expects each candidate
// block's difficulty to equal the arithmetic mean of the difficulties
// recorded for up to WindowSize contiguous heights immediately preceding
// it (falling back to baseDifficulty only when the height directly below
// it has no recorded difficulty). It is a default, replaceable
// implementation of the injected Checker contract, not a mandated
// algorithm.
func NewAveragingChecker(baseDifficulty uint64) Checker {
	return func(elements []*model.BlockElement, cache *Cache) bool {
		// The checker must not mutate the cache; work off a local
		// scratch history seeded from it and extended with each
		// accepted candidate in turn.
		history := make(map[uint64]uint64)

		expectedFor := func(height uint64) uint64 {
			var sum uint64
			var count uint64
			for h := height - 1; count < WindowSize && h > 0; h-- {
				if d, ok := history[h]; ok {
					sum += d
					count++
					continue
				}
				if info, ok := cache.Get(h); ok {
					sum += info.Difficulty
					count++
					continue
				}
				break
			}
			if count == 0 {
				return baseDifficulty
			}
			return sum / count
		}

		for _, el := range elements {
			height := el.Block.Height()
			if el.Block.Difficulty() != expectedFor(height) {
				return false
			}
			history[height] = el.Block.Difficulty()
		}
		return true
	}
}
