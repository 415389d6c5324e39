package sign

import (
	"github.com/d11dpool/channel/tx"
)

// Party identifies which channel participant produced a signature.
type Party uint8

const (
	PartyPayer Party = iota
	PartyPayee
)

// String returns the string value of Party.
func (p Party) String() string {
	switch p {
	case PartyPayer:
		return "payer"
	case PartyPayee:
		return "payee"
	default:
		return "unknown"
	}
}

// BundleKey identifies a single signature slot on a transaction input.
type BundleKey struct {
	Tx         tx.Hash
	InputIndex int
	Party      Party
}

// Bundle maps transaction input signature slots to detached signature bytes.
// A multisignature input may carry one or two signatures per input.
type Bundle map[BundleKey][]byte

// Add records a signature for the given slot.
func (b Bundle) Add(hash tx.Hash, inputIndex int, party Party, sig []byte) {
	b[BundleKey{Tx: hash, InputIndex: inputIndex, Party: party}] = sig
}

// Get returns the signature for the given slot, or nil if absent.
func (b Bundle) Get(hash tx.Hash, inputIndex int, party Party) []byte {
	return b[BundleKey{Tx: hash, InputIndex: inputIndex, Party: party}]
}
