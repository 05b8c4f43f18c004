// Package notification walks a block or transaction and emits a fixed,
// typed sequence of notifications to a model.NotificationSink, mirroring
// spec §4.6. The ordering is part of the contract: validators and
// observers downstream rely on receiving SourceChange before anything else
// for a given source, and BalanceDebit before Signature.
package notification

import (
	"github.com/superhow/catapult-server/model"
)

// Publisher walks blocks and transactions, emitting notifications through
// a model.NotificationSink in the order defined by spec §4.6.
type Publisher struct {
	registry *model.PluginRegistry
}

// NewPublisher builds a Publisher that dispatches type-specific
// notifications through registry. registry may be nil if only PublishBasic
// mode is ever used.
func NewPublisher(registry *model.PluginRegistry) *Publisher {
	return &Publisher{registry: registry}
}

// PublishBlock emits the block's notification sequence.
func (p *Publisher) PublishBlock(block model.Block, mode model.PublishMode, sink model.NotificationSink) error {
	if mode == model.PublishCustom {
		return nil // blocks have no type-specific notifications of their own
	}

	sink.Notify(model.Notification{
		Type: model.NotificationSourceChange,
		Payload: model.SourceChangeNotification{
			PrimaryType:   model.SourceAbsolute,
			PrimaryID:     0,
			SecondaryType: model.SourceAbsolute,
			SecondaryID:   0,
		},
	})

	harvester := block.Signer()
	beneficiary := block.Beneficiary()
	sink.Notify(model.Notification{
		Type:    model.NotificationAccountPublicKey,
		Payload: model.AccountPublicKeyNotification{PublicKey: harvester},
	})
	if beneficiary != harvester {
		sink.Notify(model.Notification{
			Type:    model.NotificationAccountPublicKey,
			Payload: model.AccountPublicKeyNotification{PublicKey: beneficiary},
		})
	}

	sink.Notify(model.Notification{
		Type: model.NotificationEntity,
		Payload: model.EntityNotification{
			Version: block.Version(),
			Network: block.Network(),
		},
	})

	sink.Notify(model.Notification{
		Type: model.NotificationBlock,
		Payload: model.BlockNotification{
			Harvester:     harvester,
			Beneficiary:   beneficiary,
			Timestamp:     block.Timestamp(),
			Difficulty:    block.Difficulty(),
			FeeMultiplier: block.FeeMultiplier(),
		},
	})

	dataEnd := block.Size() - block.FooterSize()
	sink.Notify(model.Notification{
		Type: model.NotificationSignature,
		Payload: model.SignatureNotification{
			Signer:    harvester,
			DataStart: model.VerifiableEntityHeaderSize,
			DataEnd:   dataEnd,
		},
	})

	return nil
}

// TransactionFee computes the fee that must be charged for tx, per spec
// §4.6: maxFee when standalone, min(maxFee, feeMultiplier*size) when
// published as part of a block.
func TransactionFee(tx model.Transaction, blockFeeMultiplier uint32, standalone bool) uint64 {
	if standalone {
		return tx.MaxFee()
	}
	byMultiplier := uint64(blockFeeMultiplier) * uint64(tx.Size())
	if byMultiplier < tx.MaxFee() {
		return byMultiplier
	}
	return tx.MaxFee()
}

// PublishTransaction emits a transaction's notification sequence.
// blockFeeMultiplier and standalone together determine the fee charged;
// pass standalone=true and blockFeeMultiplier=0 for a mempool-style
// standalone publish.
func (p *Publisher) PublishTransaction(
	tx model.Transaction,
	blockFeeMultiplier uint32,
	standalone bool,
	currencyMosaicID uint64,
	mode model.PublishMode,
	sink model.NotificationSink,
) error {
	if mode != model.PublishCustom {
		sink.Notify(model.Notification{
			Type: model.NotificationSourceChange,
			Payload: model.SourceChangeNotification{
				PrimaryType:   model.SourceRelative,
				PrimaryID:     1,
				SecondaryType: model.SourceAbsolute,
				SecondaryID:   0,
			},
		})

		sink.Notify(model.Notification{
			Type:    model.NotificationAccountPublicKey,
			Payload: model.AccountPublicKeyNotification{PublicKey: tx.Signer()},
		})

		sink.Notify(model.Notification{
			Type: model.NotificationEntity,
			Payload: model.EntityNotification{
				Version: tx.Version(),
				Network: tx.Network(),
			},
		})

		sink.Notify(model.Notification{
			Type: model.NotificationTransaction,
			Payload: model.TransactionNotification{
				Signer: tx.Signer(),
				Hash:   tx.Hash(),
				Type:   tx.Type(),
			},
		})

		sink.Notify(model.Notification{
			Type:    model.NotificationTransactionDeadline,
			Payload: model.TransactionDeadlineNotification{Deadline: tx.Deadline()},
		})

		fee := TransactionFee(tx, blockFeeMultiplier, standalone)
		sink.Notify(model.Notification{
			Type: model.NotificationTransactionFee,
			Payload: model.TransactionFeeNotification{
				TransactionSize: tx.Size(),
				Fee:             fee,
			},
		})

		sink.Notify(model.Notification{
			Type: model.NotificationBalanceDebit,
			Payload: model.BalanceDebitNotification{
				Sender:   tx.Signer(),
				MosaicID: currencyMosaicID,
				Amount:   fee,
			},
		})

		dataEnd := tx.Size()
		sink.Notify(model.Notification{
			Type: model.NotificationSignature,
			Payload: model.SignatureNotification{
				Signer:    tx.Signer(),
				DataStart: model.VerifiableEntityHeaderSize,
				DataEnd:   dataEnd,
			},
		})
	}

	if mode == model.PublishBasic {
		return nil
	}

	if p.registry == nil {
		return nil
	}
	plugin, ok := p.registry.Lookup(tx.Type())
	if !ok {
		return nil
	}
	return plugin.Publish(tx, sink)
}
