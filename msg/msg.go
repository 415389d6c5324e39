// Package msg contains the messages that channel participants exchange over a
// connection to open a channel, issue payments, and coordinate its close.
// Messages are encoded with encoding/gob.
package msg

import (
	"encoding/gob"
	"io"

	"github.com/d11dpool/channel/state"
)

type Type int

const (
	TypeHello         Type = 10
	TypeOpenRequest   Type = 20
	TypeOpenResponse  Type = 21
	TypePaymentNotify Type = 30
	TypeCloseNotify   Type = 40
)

// Message is the envelope for all messages. Type selects which of the
// pointer fields is set.
type Message struct {
	Type Type

	Hello *Hello

	OpenRequest  *state.OpenAgreement
	OpenResponse *state.OpenAgreement

	PaymentNotify *PaymentNotify

	CloseNotify *CloseNotify
}

// PaymentNotify carries a signed update agreement to the payee, with an
// optional free-form memo. The memo is not covered by the payer's signature.
type PaymentNotify struct {
	Update state.UpdateAgreement
	Memo   string
}

// Hello identifies a participant to the other when a connection is
// established. Keys are in compressed SEC form.
type Hello struct {
	MultiSigKey []byte
	RefundKey   []byte
	Payer       bool
}

// CloseNotify informs the counterparty the channel reached a terminal state,
// carrying the hash of the broadcast closing transaction.
type CloseNotify struct {
	State  state.State
	TxHash [32]byte
}

type Encoder = gob.Encoder

func NewEncoder(w io.Writer) *Encoder {
	return gob.NewEncoder(w)
}

type Decoder = gob.Decoder

func NewDecoder(r io.Reader) *Decoder {
	return gob.NewDecoder(r)
}
