package model

import "github.com/superhow/catapult-server/address"

// PublishMode controls which notifications a NotificationPublisher emits.
type PublishMode int

const (
	// PublishAll emits both the fixed Basic sequence and the
	// transaction-plugin's type-specific notifications.
	PublishAll PublishMode = iota
	// PublishBasic suppresses type-specific notifications.
	PublishBasic
	// PublishCustom emits only the type-specific notifications.
	PublishCustom
)

// TransactionPlugin is the capability set a transaction type must expose so
// the core can publish its notifications and compute its size without
// knowing its specific semantics (spec §9: "replace deep class hierarchies
// with ... a dispatch table (entity-type -> plugin descriptor)").
type TransactionPlugin interface {
	Type() EntityType
	Attributes() PluginAttributes
	CalculateRealSize(tx Transaction) uint32
	Publish(tx Transaction, sink NotificationSink) error
	AdditionalRequiredCosigners(tx Transaction) []address.PublicKey
	DataBuffer(tx Transaction) []byte
	SupportsTopLevel() bool
	SupportsEmbedding() bool
}

// PluginAttributes carries the small set of type-specific facts the core
// needs before it can dispatch to Publish (e.g. minimum supported version).
type PluginAttributes struct {
	MinVersion uint8
	MaxVersion uint8
}

// PluginRegistry maps an EntityType to the plugin describing it. It is the
// dispatch table replacing a class hierarchy of transaction types.
type PluginRegistry struct {
	plugins map[EntityType]TransactionPlugin
}

// NewPluginRegistry builds a registry from the given plugins, keyed by
// their own declared Type().
func NewPluginRegistry(plugins ...TransactionPlugin) *PluginRegistry {
	r := &PluginRegistry{plugins: make(map[EntityType]TransactionPlugin, len(plugins))}
	for _, p := range plugins {
		r.plugins[p.Type()] = p
	}
	return r
}

// Lookup returns the plugin registered for t, or (nil, false).
func (r *PluginRegistry) Lookup(t EntityType) (TransactionPlugin, bool) {
	p, ok := r.plugins[t]
	return p, ok
}
