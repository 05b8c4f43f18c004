package chainstore

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/superhow/catapult-server/model"
)

// LoadRange concurrently loads every block element in [from, to] (both
// inclusive) and returns them in ascending height order. Loads run in
// parallel across the KV backend but the result preserves height order
// regardless of completion order, so callers (e.g. unwind, which needs
// descending traversal) can rely on index i meaning height from+i.
//
// If any load fails, LoadRange cancels the remaining in-flight loads and
// returns the first error.
func (s *Store) LoadRange(ctx context.Context, from, to uint64) ([]*BlockElementRef, error) {
	if to < from {
		return nil, nil
	}
	n := int(to - from + 1)
	out := make([]*BlockElementRef, n)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		height := from + uint64(i)
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			elem, err := s.LoadBlockElement(height)
			if err != nil {
				return err
			}
			out[i] = &BlockElementRef{Height: height, Element: elem}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// BlockElementRef pairs a loaded element with the height it was requested
// at, so callers can match results back to a height without re-deriving it
// from the (possibly not-yet-decoded) element.
type BlockElementRef struct {
	Height  uint64
	Element *model.BlockElement
}
