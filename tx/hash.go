package tx

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/wire"
)

// Hash is a transaction hash that identifies a transaction by its contents.
type Hash [32]byte

// HashTx returns the hash of the transaction, computed over its canonical
// encoding.
func HashTx(t *wire.MsgTx) Hash {
	return Hash(t.TxHash())
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	text := [len(h) * 2]byte{}
	n := hex.Encode(text[:], h[:])
	if n != len(text) {
		return nil, hex.ErrLength
	}
	return text[:], nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	if len(text) != len(h)*2 {
		return fmt.Errorf("unmarshaling transaction hash: input length %d expected %d", len(text), len(h)*2)
	}
	n, err := hex.Decode(h[:], text)
	if err != nil {
		return fmt.Errorf("unmarshaling transaction hash: %w", err)
	}
	if n != len(h) {
		return fmt.Errorf("unmarshaling transaction hash: decoded length %d expected %d", n, len(h))
	}
	return nil
}
