// Package consumer implements the chain-sync consumer state machine: the
// single-writer pipeline that reconciles a candidate suffix of blocks
// against the locally stored chain (spec §4.5).
package consumer

import (
	"errors"

	"github.com/superhow/catapult-server/difficulty"
	"github.com/superhow/catapult-server/model"
	"github.com/superhow/catapult-server/state"
)

// ProcessResult is the Processor's validation verdict.
type ProcessResult int

const (
	ProcessSuccess ProcessResult = iota
	ProcessNeutral
	ProcessFailure
)

func (r ProcessResult) String() string {
	switch r {
	case ProcessSuccess:
		return "Success"
	case ProcessNeutral:
		return "Neutral"
	case ProcessFailure:
		return "Failure"
	default:
		return "Unknown"
	}
}

// Outcome classifies how a Sync call concluded.
type Outcome int

const (
	// Committed means the candidate suffix replaced the local tip.
	Committed Outcome = iota
	// RemoteChainUnlinked is pre-check failure P1-P3.
	RemoteChainUnlinked
	// MismatchedDifficulties is the injected DifficultyChecker rejecting
	// the candidate.
	MismatchedDifficulties
	// ProcessorRejected means the Processor returned Neutral or Failure;
	// see Result.ProcessResult for which.
	ProcessorRejected
	// ScoreNotBetter means the candidate's score did not strictly exceed
	// the unwound chain's score.
	ScoreNotBetter
)

func (o Outcome) String() string {
	switch o {
	case Committed:
		return "Committed"
	case RemoteChainUnlinked:
		return "RemoteChainUnlinked"
	case MismatchedDifficulties:
		return "MismatchedDifficulties"
	case ProcessorRejected:
		return "ProcessorRejected"
	case ScoreNotBetter:
		return "ScoreNotBetter"
	default:
		return "Unknown"
	}
}

// Result is the outcome of a single Sync call. A non-Committed Outcome
// with a nil error from Sync is a ValidationFailure/ProcessorFailure: the
// caller may log and resume. Sync itself returns a non-nil error only for
// the fatal InvariantViolation/StorageFailure cases (spec §7).
type Result struct {
	Outcome       Outcome
	ProcessResult ProcessResult
	ScoreDelta    int64
	UndoCount     int
	NewHeight     uint64
	AddedHashes   []model.TransactionHash
	RevertedHashes []model.TransactionHash
}

// ErrInvariantViolation and ErrStorageFailure are the two fatal error
// classes that propagate out of Sync instead of being folded into Result
// (spec §7 taxonomy items 3 and 4). The node must not continue processing
// chains after either.
var (
	ErrInvariantViolation = state.ErrInvariantViolation
	ErrStorageFailure     = errors.New("consumer: storage failure")
)

// ObserverState is the mutable context threaded through UndoBlock and
// Processor calls during a single sync: the open cache delta, the
// last-importance-recalculation marker (in/out — the processor is the one
// that normally advances it), and a staged view over the block-difficulty
// cache that is only applied to the live cache on a successful commit.
type ObserverState struct {
	Delta                       *state.Delta
	LastImportanceRecalculation *uint64
	DifficultyCache             *difficulty.Delta
}

// UndoBlock reverts element's effects against obs.Delta: account
// balances, importance snapshots, supplemental key links, and reinserts
// the block's difficulty info into the difficulty cache. It must be the
// exact inverse of the Processor call that originally applied element.
type UndoBlock func(element *model.BlockElement, obs *ObserverState) error

// ParentBlockInfo is what the Processor is told about the block
// immediately preceding the candidate suffix.
type ParentBlockInfo struct {
	Height         uint64
	GenerationHash [32]byte
}

// Processor replays candidateElements against obs.Delta, starting from
// parent. It may mutate candidateElements in place to fill in
// per-element derived fields (e.g. generation hashes) and must leave
// obs.Delta untouched on any result other than ProcessSuccess.
type Processor func(parent ParentBlockInfo, candidateElements []*model.BlockElement, obs *ObserverState) (ProcessResult, error)

// StateChange is invoked exactly once per successful sync, after the
// cache delta has been committed.
type StateChange func(scoreDelta int64, delta *state.Delta, newHeight uint64)

// TransactionsChange is invoked exactly once per successful sync, after
// StateChange, with the symmetric-difference-adjusted added/reverted
// transaction hash sets (spec §4.5 step 4).
type TransactionsChange func(added []model.TransactionHash, reverted []model.TransactionHash)
