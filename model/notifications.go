package model

import "github.com/superhow/catapult-server/address"

// NotificationType tags the payload carried by a Notification. The set is
// closed; new notification kinds are added here, not by growing a class
// hierarchy (spec §9).
type NotificationType int

const (
	NotificationSourceChange NotificationType = iota
	NotificationAccountPublicKey
	NotificationEntity
	NotificationBlock
	NotificationSignature
	NotificationTransaction
	NotificationTransactionDeadline
	NotificationTransactionFee
	NotificationBalanceDebit
)

// SourceChangeType distinguishes an absolute source id from one expressed
// relative to the previous source.
type SourceChangeType int

const (
	SourceAbsolute SourceChangeType = iota
	SourceRelative
)

// SourceChangeNotification marks the start of a new logical source
// (a block, or a transaction within a block) for the notifications that
// follow it until the next SourceChangeNotification.
type SourceChangeNotification struct {
	PrimaryType    SourceChangeType
	PrimaryID      uint32
	SecondaryType  SourceChangeType
	SecondaryID    uint32
}

// AccountPublicKeyNotification names a public key that participated in an
// entity (harvester, beneficiary, signer, ...).
type AccountPublicKeyNotification struct {
	PublicKey address.PublicKey
}

// EntityNotification carries version/network for either a block or a
// transaction.
type EntityNotification struct {
	Version uint8
	Network address.NetworkID
}

// BlockNotification carries block-level fields needed by validators and
// observers.
type BlockNotification struct {
	Harvester     address.PublicKey
	Beneficiary   address.PublicKey
	Timestamp     int64
	Difficulty    uint64
	FeeMultiplier uint32
}

// SignatureNotification carries the byte range that was signed, from the
// byte after the verifiable-entity header to the byte before the entity's
// footer.
type SignatureNotification struct {
	Signer    address.PublicKey
	DataStart uint32
	DataEnd   uint32
}

// TransactionNotification carries the fields needed to validate a
// transaction independent of its type-specific semantics.
type TransactionNotification struct {
	Signer address.PublicKey
	Hash   TransactionHash
	Type   EntityType
}

// TransactionDeadlineNotification carries a transaction's expiry.
type TransactionDeadlineNotification struct {
	Deadline uint64
}

// TransactionFeeNotification carries the fee actually charged, which
// depends on whether the transaction is standalone or embedded in a block
// (spec §4.6 fee computation).
type TransactionFeeNotification struct {
	TransactionSize uint32
	Fee             uint64
}

// BalanceDebitNotification records that an account's balance of a mosaic
// must be reduced by amount; the fee debit uses this to charge the sender.
type BalanceDebitNotification struct {
	Sender   address.PublicKey
	MosaicID uint64
	Amount   uint64
}

// Notification is a single tagged record emitted by a NotificationPublisher
// in a deterministic sequence.
type Notification struct {
	Type    NotificationType
	Payload interface{}
}

// NotificationSink receives a deterministic stream of notifications for one
// publish call.
type NotificationSink interface {
	Notify(Notification)
}

// SinkFunc adapts a function to a NotificationSink.
type SinkFunc func(Notification)

func (f SinkFunc) Notify(n Notification) { f(n) }

// CollectingSink accumulates every notification it receives, in order. It
// is primarily useful in tests.
type CollectingSink struct {
	Notifications []Notification
}

func (s *CollectingSink) Notify(n Notification) {
	s.Notifications = append(s.Notifications, n)
}
