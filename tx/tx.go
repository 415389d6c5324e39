// Package tx provides canonical binary encoding and decoding of channel
// transactions, and the transaction hash type used to identify them.
//
// The encoding is the ledger's wire encoding of a transaction (version,
// inputs, outputs, locktime) with fixed field order and integer widths, so
// two semantically identical transactions always encode to identical bytes.
// Signature hashes are computed over this encoding, which makes canonical
// encoding a correctness requirement and not only a convenience.
package tx

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/wire"
)

// ErrMalformedTransaction indicates that bytes presented for decoding are not
// a well-formed transaction. It is returned for truncated input, invalid
// input or output counts, and trailing bytes after the transaction.
var ErrMalformedTransaction = errors.New("malformed transaction")

// Encode returns the canonical binary encoding of the transaction.
func Encode(t *wire.MsgTx) ([]byte, error) {
	buf := bytes.Buffer{}
	buf.Grow(t.SerializeSize())
	err := t.Serialize(&buf)
	if err != nil {
		return nil, fmt.Errorf("encoding transaction: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses the canonical binary encoding of a transaction. Decode is the
// inverse of Encode for all well-formed transactions. Input that is
// truncated, carries invalid counts, or has bytes remaining after the
// transaction is rejected with ErrMalformedTransaction.
func Decode(b []byte) (*wire.MsgTx, error) {
	r := bytes.NewReader(b)
	t := &wire.MsgTx{}
	err := t.Deserialize(r)
	if err != nil {
		return nil, fmt.Errorf("decoding transaction: %v: %w", err, ErrMalformedTransaction)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("decoding transaction: %d trailing bytes: %w", r.Len(), ErrMalformedTransaction)
	}
	return t, nil
}
