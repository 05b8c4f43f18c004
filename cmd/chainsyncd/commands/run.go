package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	dbm "github.com/tendermint/tm-db"

	"github.com/superhow/catapult-server/address"
	"github.com/superhow/catapult-server/chainstore"
	"github.com/superhow/catapult-server/consumer"
	"github.com/superhow/catapult-server/difficulty"
	"github.com/superhow/catapult-server/log"
	"github.com/superhow/catapult-server/metrics"
	"github.com/superhow/catapult-server/model"
	"github.com/superhow/catapult-server/state"
)

// RunCommand wires the cache, block store, difficulty cache, and consumer
// together and blocks until interrupted. Block ingestion itself is left to
// whatever process feeds CandidateInput values to consumer.Consumer.Sync;
// that transport is an external collaborator this module does not own
// (spec §1 Non-goals).
func RunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "open storage and the account-state cache, and wait",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadedConfig

			var logger log.Logger
			if cfg.LogFormat == "json" {
				logger = log.New(os.Stderr)
			} else {
				logger = log.NewConsole()
			}
			logger = logger.With("component", "cmd")

			network, err := cfg.State.Network()
			if err != nil {
				return err
			}

			db, err := dbm.NewDB("chain", dbm.BackendType(cfg.DBBackend), filepath.Join(cfg.RootDir, cfg.DBPath))
			if err != nil {
				return fmt.Errorf("open chain db: %w", err)
			}
			store, err := chainstore.Open(db, jsonCodec{}, logger)
			if err != nil {
				return fmt.Errorf("open chainstore: %w", err)
			}

			cache := state.NewAccountStateCache(state.Options{
				NetworkID:           network,
				ImportanceGrouping:  cfg.State.ImportanceGrouping,
				MinHarvesterBalance: cfg.State.MinHarvesterBalance,
				MaxHarvesterBalance: cfg.State.MaxHarvesterBalance,
				HarvestingMosaicID:  cfg.State.HarvestingMosaicID,
				CurrencyMosaicID:    cfg.State.CurrencyMosaicID,
			}, logger)

			diffCache := difficulty.NewCache()
			checker := difficulty.NewAveragingChecker(cfg.Difficulty.BaseDifficulty)

			var metricsSink *metrics.Metrics
			if cfg.Metrics.Enabled {
				metricsSink = metrics.PrometheusMetrics(cfg.Metrics.Namespace)
				go serveMetrics(cfg.Metrics.ListenAddr, logger)
			}

			// undo/processor are the injected replay collaborators (spec §6);
			// wiring a concrete implementation requires the transaction
			// plugin registry this module treats as an external collaborator.
			consumer.New(cache, store, diffCache, checker,
				func(*model.BlockElement, *consumer.ObserverState) error { return nil },
				func(consumer.ParentBlockInfo, []*model.BlockElement, *consumer.ObserverState) (consumer.ProcessResult, error) {
					return consumer.ProcessSuccess, nil
				},
				nil, nil, logger, metricsSink)

			logger.Info("chainsyncd ready", "height", store.ChainHeight(), "network", cfg.State.NetworkID)

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop
			logger.Info("shutting down")
			return nil
		},
	}
}

func serveMetrics(addr string, logger log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("serving prometheus metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "err", err.Error())
	}
}

// jsonCodec is a placeholder chainstore.Codec for the demo binary. The real
// wire codec is an external collaborator (spec §1); this exists only so
// `run` can open a Store without one.
type jsonCodec struct{}

type jsonBlock struct {
	BlockType      model.EntityType
	BlockSize      uint32
	BlockVersion   uint8
	BlockNetwork   byte
	BlockHeight    uint64
	BlockTimestamp int64
	BlockDiff      uint64
	BlockFeeMult   uint32
	BlockSigner    [32]byte
	BlockBenef     [32]byte
	BlockHash      [32]byte
}

func (b *jsonBlock) Type() model.EntityType            { return b.BlockType }
func (b *jsonBlock) Size() uint32                      { return b.BlockSize }
func (b *jsonBlock) FooterSize() uint32                { return 0 }
func (b *jsonBlock) Version() uint8                    { return b.BlockVersion }
func (b *jsonBlock) Network() address.NetworkID        { return address.NetworkID(b.BlockNetwork) }
func (b *jsonBlock) Height() uint64                    { return b.BlockHeight }
func (b *jsonBlock) Timestamp() int64                  { return b.BlockTimestamp }
func (b *jsonBlock) Difficulty() uint64                { return b.BlockDiff }
func (b *jsonBlock) FeeMultiplier() uint32             { return b.BlockFeeMult }
func (b *jsonBlock) Signer() address.PublicKey         { return b.BlockSigner }
func (b *jsonBlock) Beneficiary() address.PublicKey    { return b.BlockBenef }
func (b *jsonBlock) Transactions() []model.Transaction { return nil }
func (b *jsonBlock) Hash() [32]byte                    { return b.BlockHash }

type jsonElement struct {
	Block             jsonBlock
	GenerationHash    [32]byte
	TransactionHashes [][32]byte
}

func (jsonCodec) Encode(elem *model.BlockElement) ([]byte, error) {
	b := elem.Block.(*jsonBlock)
	hashes := make([][32]byte, len(elem.TransactionHashes))
	for i, h := range elem.TransactionHashes {
		hashes[i] = h
	}
	return json.Marshal(jsonElement{Block: *b, GenerationHash: elem.GenerationHash, TransactionHashes: hashes})
}

func (jsonCodec) Decode(raw []byte) (*model.BlockElement, error) {
	var je jsonElement
	if err := json.Unmarshal(raw, &je); err != nil {
		return nil, err
	}
	block := je.Block
	hashes := make([]model.TransactionHash, len(je.TransactionHashes))
	for i, h := range je.TransactionHashes {
		hashes[i] = h
	}
	return &model.BlockElement{Block: &block, GenerationHash: je.GenerationHash, TransactionHashes: hashes}, nil
}
