package agent

import (
	"github.com/d11dpool/channel/state"
	"github.com/d11dpool/channel/tx"
)

// Event is implemented by all events the agent pushes to its events channel.
type Event interface {
	event()
}

func (ErrorEvent) event()           {}
func (ConnectedEvent) event()       {}
func (OpenedEvent) event()          {}
func (PaymentSentEvent) event()     {}
func (PaymentReceivedEvent) event() {}
func (SettledEvent) event()         {}
func (ExpiredEvent) event()         {}

// ErrorEvent occurs when an error has occurred, and contains the error
// occurred.
type ErrorEvent struct {
	Err error
}

// ConnectedEvent occurs when the agent has exchanged hellos with the other
// participant.
type ConnectedEvent struct{}

// OpenedEvent occurs when the channel's funding output has confirmed and the
// channel has been opened.
type OpenedEvent struct {
	FundingHeight int32
}

// PaymentSentEvent occurs when a payment is sent, raising the amount owed to
// the payee to the balance the update agrees to.
type PaymentSentEvent struct {
	Update state.UpdateAgreement
	Memo   string
}

// PaymentReceivedEvent occurs when a payment is received, raising the amount
// owed to the payee to the balance the update agrees to.
type PaymentReceivedEvent struct {
	Update state.UpdateAgreement
	Memo   string
}

// SettledEvent occurs when the channel is settled at its latest authorized
// update, either locally by the payee or as reported by the counterparty.
type SettledEvent struct {
	TxHash tx.Hash
}

// ExpiredEvent occurs when the channel is closed through the refund path,
// either locally by the payer or as reported by the counterparty.
type ExpiredEvent struct {
	TxHash tx.Hash
}
