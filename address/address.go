// Package address derives and encodes account addresses.
//
// An address is a fixed-size value computed from a public key and a
// network id; it never depends on account-cache state. Two accounts with
// the same public key always derive the same address, and the derivation
// is one-way.
package address

import (
	"encoding/base32"
	"errors"
	"fmt"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck
	"golang.org/x/crypto/sha3"
)

// Length is the size in bytes of a decoded address.
const Length = 25 // 1 network byte + 20 hash bytes + 4 checksum bytes

// NetworkID identifies which network an address belongs to.
type NetworkID byte

// Well-known network ids. The core does not interpret these beyond using
// them as a derivation and validation parameter.
const (
	NetworkMainnet NetworkID = 0x68
	NetworkTestnet NetworkID = 0x98
	NetworkPrivate NetworkID = 0x78
)

// Address is a fixed-size, comparable account identifier suitable for use
// as a map key.
type Address [Length]byte

// PublicKey is an opaque 32-byte public key.
type PublicKey [32]byte

var errChecksumMismatch = errors.New("address: checksum mismatch")

// FromPublicKey derives the address that owns publicKey on the given
// network. Derivation is: RIPEMD160(SHA3-256(publicKey)), prefixed with
// the network byte, suffixed with a 4-byte SHA3-256 checksum of the
// prefixed hash.
func FromPublicKey(publicKey PublicKey, network NetworkID) Address {
	sha3Hash := sha3.Sum256(publicKey[:])

	ripemd := ripemd160.New()
	_, _ = ripemd.Write(sha3Hash[:])
	step1 := ripemd.Sum(nil)

	versioned := make([]byte, 0, 1+len(step1))
	versioned = append(versioned, byte(network))
	versioned = append(versioned, step1...)

	checksum := sha3.Sum256(versioned)

	var addr Address
	copy(addr[:], versioned)
	copy(addr[len(versioned):], checksum[:4])
	return addr
}

// Network returns the network id embedded in the address.
func (a Address) Network() NetworkID {
	return NetworkID(a[0])
}

// Verify reports whether the embedded checksum matches the address body.
func (a Address) Verify() error {
	checksum := sha3.Sum256(a[:21])
	if string(checksum[:4]) != string(a[21:]) {
		return errChecksumMismatch
	}
	return nil
}

// String returns the base32 text encoding of the address, matching the
// wire encoding used by explorers and CLI tooling.
func (a Address) String() string {
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(a[:])
}

// Parse decodes a base32-encoded address and verifies its checksum.
func Parse(text string) (Address, error) {
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(text)
	if err != nil {
		return Address{}, fmt.Errorf("address: decode: %w", err)
	}
	if len(raw) != Length {
		return Address{}, fmt.Errorf("address: wrong length %d", len(raw))
	}
	var addr Address
	copy(addr[:], raw)
	if err := addr.Verify(); err != nil {
		return Address{}, err
	}
	return addr, nil
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}
