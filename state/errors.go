package state

import (
	"errors"
	"fmt"
)

// ErrInvariantViolation is returned when the cache observes state that
// should be impossible if every prior mutation respected the cache's
// invariants (spec §7 taxonomy item 3). Callers must treat it as fatal:
// stop processing the current chain, do not commit.
var ErrInvariantViolation = errors.New("state: invariant violation")

// ErrCorruptedLink is a more specific InvariantViolation raised by
// ImportanceView when a Remote account's link to its Main account cannot
// be verified (spec §4.3).
var ErrCorruptedLink = fmt.Errorf("state: corrupted remote/main account link: %w", ErrInvariantViolation)
