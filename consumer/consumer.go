package consumer

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/superhow/catapult-server/chainstore"
	"github.com/superhow/catapult-server/difficulty"
	"github.com/superhow/catapult-server/log"
	"github.com/superhow/catapult-server/metrics"
	"github.com/superhow/catapult-server/model"
	"github.com/superhow/catapult-server/state"
)

// Consumer is the chain-write critical section: it owns the single mutex
// that serializes chain-sync attempts, and wires together the cache, the
// block store, the difficulty cache, and the injected collaborators
// (spec §5 "strictly single-writer").
type Consumer struct {
	mu sync.Mutex // the chain-write mutex; held for the duration of Sync

	cache           *state.AccountStateCache
	store           *chainstore.Store
	difficultyCache *difficulty.Cache
	checker         difficulty.Checker

	undo               UndoBlock
	processor          Processor
	stateChange        StateChange
	transactionsChange TransactionsChange

	logger  log.Logger
	metrics *metrics.Metrics

	lastImportanceRecalculation uint64
}

// New wires a Consumer from its collaborators. cache, store,
// difficultyCache, checker, undo and processor are required; a nil
// StateChange/TransactionsChange callback is replaced with a no-op, and a
// nil logger/metrics is replaced with a no-op implementation.
func New(
	cache *state.AccountStateCache,
	store *chainstore.Store,
	difficultyCache *difficulty.Cache,
	checker difficulty.Checker,
	undo UndoBlock,
	processor Processor,
	stateChange StateChange,
	transactionsChange TransactionsChange,
	logger log.Logger,
	metricsSink *metrics.Metrics,
) *Consumer {
	if stateChange == nil {
		stateChange = func(int64, *state.Delta, uint64) {}
	}
	if transactionsChange == nil {
		transactionsChange = func([]model.TransactionHash, []model.TransactionHash) {}
	}
	if logger == nil {
		logger = log.Nop()
	}
	if metricsSink == nil {
		metricsSink = metrics.NopMetrics()
	}
	return &Consumer{
		cache:              cache,
		store:              store,
		difficultyCache:    difficultyCache,
		checker:            checker,
		undo:               undo,
		processor:          processor,
		stateChange:        stateChange,
		transactionsChange: transactionsChange,
		logger:             logger.With("component", "consumer"),
		metrics:            metricsSink,
	}
}

// Sync runs one end-to-end chain-sync attempt against input. It returns a
// non-nil error only for the fatal InvariantViolation/StorageFailure
// cases; every other rejection is reported through Result.Outcome with a
// nil error (spec §7).
func (c *Consumer) Sync(input *model.CandidateInput) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	defer func() { c.metrics.LastSyncSeconds.Set(time.Since(start).Seconds()) }()

	attemptID := uuid.New()
	logger := c.logger.With("attempt", attemptID.String())

	reject := func(outcome Outcome, height uint64) (Result, error) {
		c.metrics.SyncAttempts.With("outcome", outcome.String()).Add(1)
		logger.Debug("sync attempt rejected", "outcome", outcome.String(), "height", height)
		return Result{Outcome: outcome, NewHeight: height}, nil
	}

	if len(input.Elements) == 0 {
		return reject(RemoteChainUnlinked, 0)
	}

	localTip := c.store.ChainHeight()
	firstHeight := input.FirstHeight()

	if firstHeight < 2 {
		return reject(RemoteChainUnlinked, localTip)
	}
	if firstHeight > localTip+1 {
		return reject(RemoteChainUnlinked, localTip)
	}
	if firstHeight <= localTip && input.Source != model.SourceRemotePull {
		return reject(RemoteChainUnlinked, localTip)
	}

	if !c.checker(input.Elements, c.difficultyCache) {
		return reject(MismatchedDifficulties, localTip)
	}

	delta := c.cache.NewDelta()
	difficultyDelta := c.difficultyCache.NewDelta(localTip)
	committed := false
	defer func() {
		if !committed {
			delta.Discard()
			difficultyDelta.Discard()
		}
	}()

	marker := c.lastImportanceRecalculation
	obs := &ObserverState{
		Delta:                       delta,
		LastImportanceRecalculation: &marker,
		DifficultyCache:             difficultyDelta,
	}

	unwoundElements := make([]*model.BlockElement, 0, localTip-firstHeight+1)
	revertedSet := make(map[model.TransactionHash]struct{})

	for h := localTip; h >= firstHeight; h-- {
		elem, err := c.store.LoadBlockElement(h)
		if err != nil {
			logger.Error("failed to load block for unwind", "height", h, "err", err.Error())
			return Result{}, fmt.Errorf("consumer: attempt %s: load height %d for unwind: %w", attemptID, h, ErrStorageFailure)
		}
		if err := c.undo(elem, obs); err != nil {
			logger.Error("undo failed", "height", h, "err", err.Error())
			return Result{}, fmt.Errorf("consumer: attempt %s: undo height %d: %w", attemptID, h, ErrInvariantViolation)
		}
		unwoundElements = append(unwoundElements, elem)
		for _, hash := range elem.TransactionHashes {
			revertedSet[hash] = struct{}{}
		}
	}
	if len(unwoundElements) > 0 {
		c.metrics.BlocksUndone.Add(float64(len(unwoundElements)))
		logger.Debug("unwound local blocks", "count", len(unwoundElements), "firstHeight", firstHeight, "localTip", localTip)
	}

	// Score arbitration runs on the candidate's own (already
	// difficulty-checked) declared difficulties, before the processor is
	// ever invoked: a candidate that cannot possibly outscore what it
	// would replace is rejected without paying for replay.
	scoreDelta := scoreOf(input.Elements) - scoreOf(unwoundElements)
	if scoreDelta <= 0 {
		c.metrics.SyncAttempts.With("outcome", ScoreNotBetter.String()).Add(1)
		logger.Debug("candidate score not better", "scoreDelta", scoreDelta)
		return Result{Outcome: ScoreNotBetter, UndoCount: len(unwoundElements), NewHeight: localTip}, nil
	}

	var parent ParentBlockInfo
	if firstHeight > 1 {
		parentElem, err := c.store.LoadBlockElement(firstHeight - 1)
		if err != nil {
			logger.Error("failed to load parent block", "height", firstHeight-1, "err", err.Error())
			return Result{}, fmt.Errorf("consumer: attempt %s: load parent height %d: %w", attemptID, firstHeight-1, ErrStorageFailure)
		}
		parent = ParentBlockInfo{Height: parentElem.Height(), GenerationHash: parentElem.GenerationHash}
	}

	result, err := c.processor(parent, input.Elements, obs)
	if err != nil {
		logger.Error("processor returned an error", "err", err.Error())
		return Result{}, fmt.Errorf("consumer: attempt %s: processor: %w", attemptID, ErrInvariantViolation)
	}
	if result != ProcessSuccess {
		c.metrics.SyncAttempts.With("outcome", ProcessorRejected.String()).Add(1)
		logger.Debug("processor rejected candidate", "processResult", result.String())
		return Result{Outcome: ProcessorRejected, ProcessResult: result, UndoCount: len(unwoundElements), NewHeight: localTip}, nil
	}

	addedSet := make(map[model.TransactionHash]struct{})
	for _, elem := range input.Elements {
		for _, hash := range elem.TransactionHashes {
			addedSet[hash] = struct{}{}
		}
	}
	shared := make(map[model.TransactionHash]struct{})
	for hash := range addedSet {
		if _, ok := revertedSet[hash]; ok {
			shared[hash] = struct{}{}
		}
	}

	if err := c.store.ReplaceTip(firstHeight-1, input.Elements); err != nil {
		logger.Error("failed to swap chain tip", "base", firstHeight-1, "err", err.Error())
		return Result{}, fmt.Errorf("consumer: attempt %s: replace tip: %w", attemptID, ErrStorageFailure)
	}

	delta.Commit()
	difficultyDelta.Commit()
	committed = true

	newHeight := input.Elements[len(input.Elements)-1].Height()
	c.stateChange(scoreDelta, delta, newHeight)

	added := setMinus(addedSet, shared)
	reverted := setMinus(revertedSet, shared)
	c.transactionsChange(added, reverted)

	c.lastImportanceRecalculation = *obs.LastImportanceRecalculation

	c.metrics.SyncAttempts.With("outcome", Committed.String()).Add(1)
	c.metrics.BlocksApplied.Add(float64(len(input.Elements)))
	c.metrics.Height.Set(float64(newHeight))
	c.metrics.HighValueAccounts.Set(float64(len(c.cache.HighValueAddresses())))
	logger.Info("committed candidate chain", "newHeight", newHeight, "scoreDelta", scoreDelta, "undone", len(unwoundElements), "applied", len(input.Elements))

	return Result{
		Outcome:        Committed,
		ScoreDelta:     scoreDelta,
		UndoCount:      len(unwoundElements),
		NewHeight:      newHeight,
		AddedHashes:    added,
		RevertedHashes: reverted,
	}, nil
}

func setMinus(a, subtract map[model.TransactionHash]struct{}) []model.TransactionHash {
	out := make([]model.TransactionHash, 0, len(a))
	for hash := range a {
		if _, ok := subtract[hash]; ok {
			continue
		}
		out = append(out, hash)
	}
	return out
}
