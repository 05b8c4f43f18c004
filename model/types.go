// Package model defines the wire-agnostic view the core has of blocks and
// transactions. Serialization, signature verification, and per-transaction
// semantics all live outside this module; the core only ever sees the
// fields named here plus the ability to walk a block or transaction's
// notifications through a plugin.
package model

import (
	"github.com/superhow/catapult-server/address"
)

// TransactionHash identifies a transaction independent of its containing
// block; two transactions with the same hash are the same transaction for
// the purposes of the added/reverted transaction-set bookkeeping.
type TransactionHash [32]byte

// EntityType discriminates block and transaction kinds. The core never
// switches on specific values itself; it only uses EntityType to look up a
// TransactionPlugin.
type EntityType uint16

// InputSource classifies where a candidate chain came from.
type InputSource int

const (
	SourceUnknown InputSource = iota
	SourceLocal
	SourceRemotePull
	SourceRemotePush
)

func (s InputSource) String() string {
	switch s {
	case SourceLocal:
		return "Local"
	case SourceRemotePull:
		return "Remote_Pull"
	case SourceRemotePush:
		return "Remote_Push"
	default:
		return "Unknown"
	}
}

// VerifiableEntityHeaderSize is the number of leading bytes common to every
// signed entity (size, reserved fields, signature, signer public key)
// before the signed data begins; the version, network and type fields
// that follow it are inside the signed range. Signature notifications use
// it to bound the signed byte range.
const VerifiableEntityHeaderSize = 108

// Block is the core's view of a block. Implementations are supplied by the
// wire-codec layer outside this module.
type Block interface {
	Type() EntityType
	Size() uint32
	Version() uint8
	Network() address.NetworkID
	Height() uint64
	Timestamp() int64
	Difficulty() uint64
	FeeMultiplier() uint32
	Signer() address.PublicKey
	Beneficiary() address.PublicKey
	Transactions() []Transaction
	Hash() [32]byte

	// FooterSize is the number of trailing bytes appended after the
	// block's transactions (e.g. importance-block voter data) that fall
	// outside the signed range. Most blocks carry no footer and return 0.
	FooterSize() uint32
}

// Transaction is the core's view of a transaction.
type Transaction interface {
	Type() EntityType
	Size() uint32
	Signer() address.PublicKey
	Version() uint8
	Network() address.NetworkID
	Deadline() uint64
	MaxFee() uint64
	Hash() TransactionHash
}

// BlockElement pairs a Block with the derived fields the Processor fills
// in while replaying a candidate suffix (spec: "the processor is allowed
// to mutate candidateElements ... to fill in per-element derived fields
// such as generation hashes"). Unlike Block, BlockElement is mutable and
// owned by whichever stage of the pipeline currently holds it.
type BlockElement struct {
	Block             Block
	GenerationHash    [32]byte
	TransactionHashes []TransactionHash
}

// Height is a convenience accessor.
func (e *BlockElement) Height() uint64 {
	return e.Block.Height()
}

// CandidateInput is the pipeline's entry point: a non-empty, strictly
// increasing-height sequence of block elements tagged with where they came
// from.
type CandidateInput struct {
	Elements []*BlockElement
	Source   InputSource
}

// FirstHeight returns the height of the first candidate element. Callers
// must not invoke this on an empty CandidateInput.
func (c *CandidateInput) FirstHeight() uint64 {
	return c.Elements[0].Height()
}
