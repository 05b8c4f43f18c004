package consumer

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"

	"github.com/superhow/catapult-server/address"
	"github.com/superhow/catapult-server/chainstore"
	"github.com/superhow/catapult-server/difficulty"
	"github.com/superhow/catapult-server/model"
	"github.com/superhow/catapult-server/state"
)

const testBaseDifficulty = 1000

type testBlock struct {
	height     uint64
	difficulty uint64
}

func (b *testBlock) Type() model.EntityType            { return 0 }
func (b *testBlock) Size() uint32                      { return 0 }
func (b *testBlock) FooterSize() uint32                { return 0 }
func (b *testBlock) Version() uint8                    { return 1 }
func (b *testBlock) Network() address.NetworkID        { return address.NetworkTestnet }
func (b *testBlock) Height() uint64                    { return b.height }
func (b *testBlock) Timestamp() int64                  { return int64(b.height) }
func (b *testBlock) Difficulty() uint64                { return b.difficulty }
func (b *testBlock) FeeMultiplier() uint32             { return 0 }
func (b *testBlock) Signer() address.PublicKey         { return address.PublicKey{} }
func (b *testBlock) Beneficiary() address.PublicKey    { return address.PublicKey{} }
func (b *testBlock) Transactions() []model.Transaction { return nil }
func (b *testBlock) Hash() [32]byte                    { return [32]byte{byte(b.height), byte(b.height >> 8)} }

// testCodec is a minimal fixed-layout codec sufficient to round-trip
// testBlock + its transaction hashes through chainstore for these tests.
type testCodec struct{}

func (testCodec) Encode(e *model.BlockElement) ([]byte, error) {
	b := e.Block.(*testBlock)
	buf := make([]byte, 16+4+32*len(e.TransactionHashes))
	binary.BigEndian.PutUint64(buf[0:8], b.height)
	binary.BigEndian.PutUint64(buf[8:16], b.difficulty)
	binary.BigEndian.PutUint32(buf[16:20], uint32(len(e.TransactionHashes)))
	for i, h := range e.TransactionHashes {
		copy(buf[20+i*32:], h[:])
	}
	return buf, nil
}

func (testCodec) Decode(raw []byte) (*model.BlockElement, error) {
	if len(raw) < 20 {
		return nil, fmt.Errorf("testCodec: short buffer")
	}
	height := binary.BigEndian.Uint64(raw[0:8])
	diff := binary.BigEndian.Uint64(raw[8:16])
	count := binary.BigEndian.Uint32(raw[16:20])
	hashes := make([]model.TransactionHash, count)
	for i := range hashes {
		copy(hashes[i][:], raw[20+i*32:20+(i+1)*32])
	}
	return &model.BlockElement{Block: &testBlock{height: height, difficulty: diff}, TransactionHashes: hashes}, nil
}

func hashFor(namespace byte, height uint64, idx int) model.TransactionHash {
	var h model.TransactionHash
	h[0] = namespace
	binary.BigEndian.PutUint64(h[1:9], height)
	h[9] = byte(idx)
	return h
}

// seedLocalChain stores a transaction-free block at height 1 (the store
// only accepts contiguous heights starting at 1), then blocks 2..tip, each
// with 3 transactions, all at testBaseDifficulty.
func seedLocalChain(t *testing.T, store *chainstore.Store, tip uint64) {
	t.Helper()
	require.NoError(t, store.SaveBlock(&model.BlockElement{Block: &testBlock{height: 1, difficulty: testBaseDifficulty}}))
	for h := uint64(2); h <= tip; h++ {
		hashes := []model.TransactionHash{hashFor('L', h, 0), hashFor('L', h, 1), hashFor('L', h, 2)}
		require.NoError(t, store.SaveBlock(&model.BlockElement{Block: &testBlock{height: h, difficulty: testBaseDifficulty}, TransactionHashes: hashes}))
	}
}

// override identifies a single candidate transaction hash to replace with
// a specific value, used to construct fork-with-shared-transaction
// scenarios.
type override struct {
	blockIndex int
	txIndex    int
	hash       model.TransactionHash
}

func buildCandidate(startHeight, n, difficulty uint64, overrides ...override) []*model.BlockElement {
	elements := make([]*model.BlockElement, n)
	for i := uint64(0); i < n; i++ {
		height := startHeight + i
		hashes := []model.TransactionHash{hashFor('C', height, 0), hashFor('C', height, 1), hashFor('C', height, 2)}
		for _, o := range overrides {
			if o.blockIndex == int(i) {
				hashes[o.txIndex] = o.hash
			}
		}
		elements[i] = &model.BlockElement{Block: &testBlock{height: height, difficulty: difficulty}, TransactionHashes: hashes}
	}
	return elements
}

func alwaysTrueChecker(_ []*model.BlockElement, _ *difficulty.Cache) bool { return true }

func noopUndo(_ *model.BlockElement, _ *ObserverState) error { return nil }

func countingUndo(count *int) UndoBlock {
	return func(_ *model.BlockElement, _ *ObserverState) error {
		*count++
		return nil
	}
}

func countingSuccessProcessor(count *int) Processor {
	return func(_ ParentBlockInfo, _ []*model.BlockElement, obs *ObserverState) (ProcessResult, error) {
		*count++
		*obs.LastImportanceRecalculation++
		return ProcessSuccess, nil
	}
}

func newTestConsumer(t *testing.T, tip uint64, undo UndoBlock, processor Processor) (*Consumer, *chainstore.Store) {
	t.Helper()
	store, err := chainstore.Open(dbm.NewMemDB(), testCodec{}, nil)
	require.NoError(t, err)
	seedLocalChain(t, store, tip)

	cache := state.NewAccountStateCache(state.Options{
		NetworkID:           address.NetworkTestnet,
		ImportanceGrouping:  180,
		MinHarvesterBalance: 1000,
		MaxHarvesterBalance: 100000,
		HarvestingMosaicID:  1,
		CurrencyMosaicID:    1,
	}, nil)
	diffCache := difficulty.NewCache()

	c := New(cache, store, diffCache, alwaysTrueChecker, undo, processor, nil, nil, nil, nil)
	return c, store
}

func TestScenarioCompatibleExtension(t *testing.T) {
	var undoCount, processCount int
	c, store := newTestConsumer(t, 7, countingUndo(&undoCount), countingSuccessProcessor(&processCount))

	candidate := buildCandidate(8, 4, testBaseDifficulty)
	result, err := c.Sync(&model.CandidateInput{Elements: candidate, Source: model.SourceRemotePull})
	require.NoError(t, err)

	require.Equal(t, Committed, result.Outcome)
	require.Equal(t, 0, undoCount)
	require.Equal(t, 1, processCount)
	require.Empty(t, result.RevertedHashes)
	require.Len(t, result.AddedHashes, 12)
	require.Equal(t, int64(4*(testBaseDifficulty-1)), result.ScoreDelta)
	require.Equal(t, uint64(11), store.ChainHeight())
}

func TestScenarioForkReplace(t *testing.T) {
	var undoCount, processCount int
	c, _ := newTestConsumer(t, 7, countingUndo(&undoCount), countingSuccessProcessor(&processCount))

	candidate := buildCandidate(5, 4, testBaseDifficulty)
	result, err := c.Sync(&model.CandidateInput{Elements: candidate, Source: model.SourceRemotePull})
	require.NoError(t, err)

	require.Equal(t, Committed, result.Outcome)
	require.Equal(t, 3, undoCount)
	require.Equal(t, 1, processCount)
	require.Len(t, result.RevertedHashes, 9)
	require.Len(t, result.AddedHashes, 12)
	require.Equal(t, int64(testBaseDifficulty-1), result.ScoreDelta)
}

func TestScenarioForkWithSharedTransactions(t *testing.T) {
	var undoCount, processCount int
	c, _ := newTestConsumer(t, 7, countingUndo(&undoCount), countingSuccessProcessor(&processCount))

	// Local height 7 tx#2 (idx 1) and local height 5 tx#3 (idx 2) reappear
	// verbatim in the candidate suffix.
	overrides := []override{
		{blockIndex: 0, txIndex: 0, hash: hashFor('L', 7, 1)},
		{blockIndex: 1, txIndex: 0, hash: hashFor('L', 5, 2)},
	}
	candidate := buildCandidate(5, 4, testBaseDifficulty, overrides...)
	result, err := c.Sync(&model.CandidateInput{Elements: candidate, Source: model.SourceRemotePull})
	require.NoError(t, err)

	require.Equal(t, Committed, result.Outcome)
	require.Equal(t, 3, undoCount)
	require.Len(t, result.AddedHashes, 10)
	require.Len(t, result.RevertedHashes, 7)
}

func TestScenarioWorseScoreRejected(t *testing.T) {
	var undoCount, processCount int
	c, store := newTestConsumer(t, 7, countingUndo(&undoCount), countingSuccessProcessor(&processCount))

	candidate := buildCandidate(5, 2, testBaseDifficulty)
	result, err := c.Sync(&model.CandidateInput{Elements: candidate, Source: model.SourceRemotePull})
	require.NoError(t, err)

	require.Equal(t, ScoreNotBetter, result.Outcome)
	require.Equal(t, 3, undoCount)
	require.Equal(t, 0, processCount)
	require.Equal(t, uint64(7), store.ChainHeight())
}

func TestScenarioEqualScoreRejected(t *testing.T) {
	var undoCount, processCount int
	c, store := newTestConsumer(t, 7, countingUndo(&undoCount), countingSuccessProcessor(&processCount))

	candidate := buildCandidate(6, 2, testBaseDifficulty)
	result, err := c.Sync(&model.CandidateInput{Elements: candidate, Source: model.SourceRemotePull})
	require.NoError(t, err)

	require.Equal(t, ScoreNotBetter, result.Outcome)
	require.Equal(t, 2, undoCount)
	require.Equal(t, uint64(7), store.ChainHeight())
}

func TestScenarioUnlinkedRemotePushRejectedButPullAccepted(t *testing.T) {
	var undoCount, processCount int
	c, _ := newTestConsumer(t, 100, countingUndo(&undoCount), countingSuccessProcessor(&processCount))

	candidate := buildCandidate(99, 1, testBaseDifficulty)
	result, err := c.Sync(&model.CandidateInput{Elements: candidate, Source: model.SourceRemotePush})
	require.NoError(t, err)
	require.Equal(t, RemoteChainUnlinked, result.Outcome)

	c2, _ := newTestConsumer(t, 100, countingUndo(&undoCount), countingSuccessProcessor(&processCount))
	candidate2 := buildCandidate(99, 1, testBaseDifficulty)
	result2, err := c2.Sync(&model.CandidateInput{Elements: candidate2, Source: model.SourceRemotePull})
	require.NoError(t, err)
	require.NotEqual(t, RemoteChainUnlinked, result2.Outcome)
}

func TestScenarioShorterButHeavierPull(t *testing.T) {
	var undoCount, processCount int
	c, _ := newTestConsumer(t, 7, countingUndo(&undoCount), countingSuccessProcessor(&processCount))

	candidate := buildCandidate(5, 1, 3*testBaseDifficulty)
	result, err := c.Sync(&model.CandidateInput{Elements: candidate, Source: model.SourceRemotePull})
	require.NoError(t, err)

	require.Equal(t, Committed, result.Outcome)
	require.Equal(t, 3, undoCount)
	require.Equal(t, int64(2), result.ScoreDelta)
}

func TestPreCheckAbortLeavesStateUnchanged(t *testing.T) {
	var undoCount, processCount int
	c, store := newTestConsumer(t, 7, countingUndo(&undoCount), countingSuccessProcessor(&processCount))

	candidate := buildCandidate(1, 1, testBaseDifficulty) // height 1 violates P1
	result, err := c.Sync(&model.CandidateInput{Elements: candidate, Source: model.SourceRemotePull})
	require.NoError(t, err)
	require.Equal(t, RemoteChainUnlinked, result.Outcome)
	require.Equal(t, uint64(7), store.ChainHeight())
	require.Equal(t, 0, undoCount)
	require.Equal(t, 0, processCount)
}

func TestMismatchedDifficultiesAbortLeavesStateUnchanged(t *testing.T) {
	c, store := newTestConsumer(t, 7, noopUndo, countingSuccessProcessor(new(int)))
	c.checker = func(_ []*model.BlockElement, _ *difficulty.Cache) bool { return false }

	candidate := buildCandidate(8, 1, testBaseDifficulty)
	result, err := c.Sync(&model.CandidateInput{Elements: candidate, Source: model.SourceRemotePull})
	require.NoError(t, err)
	require.Equal(t, MismatchedDifficulties, result.Outcome)
	require.Equal(t, uint64(7), store.ChainHeight())
}

func TestProcessorNeutralAbortsWithoutCommit(t *testing.T) {
	var undoCount int
	neutral := func(_ ParentBlockInfo, _ []*model.BlockElement, _ *ObserverState) (ProcessResult, error) {
		return ProcessNeutral, nil
	}
	c, store := newTestConsumer(t, 7, countingUndo(&undoCount), neutral)

	candidate := buildCandidate(8, 1, testBaseDifficulty)
	result, err := c.Sync(&model.CandidateInput{Elements: candidate, Source: model.SourceRemotePull})
	require.NoError(t, err)
	require.Equal(t, ProcessorRejected, result.Outcome)
	require.Equal(t, ProcessNeutral, result.ProcessResult)
	require.Equal(t, uint64(7), store.ChainHeight())
}

func TestUndoErrorIsFatalInvariantViolation(t *testing.T) {
	failingUndo := func(_ *model.BlockElement, _ *ObserverState) error {
		return fmt.Errorf("boom")
	}
	c, store := newTestConsumer(t, 7, failingUndo, countingSuccessProcessor(new(int)))

	candidate := buildCandidate(5, 1, testBaseDifficulty)
	_, err := c.Sync(&model.CandidateInput{Elements: candidate, Source: model.SourceRemotePull})
	require.ErrorIs(t, err, ErrInvariantViolation)
	require.Equal(t, uint64(7), store.ChainHeight())
}
