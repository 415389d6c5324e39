package state

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"

	"github.com/d11dpool/channel/tx"
)

// Snapshot is a snapshot of the channel's mutable state, excluding any fields
// provided in the Config when instantiating a channel. A Snapshot can be
// restored into a Channel using NewChannelFromSnapshot. The fields are plain
// values so that callers can persist a Snapshot with any codec.
type Snapshot struct {
	State State

	FundingTx       []byte
	FundingOutpoint wire.OutPoint
	FundingHeight   int32

	PayerRefundSig []byte
	PayeeRefundSig []byte

	Balance      btcutil.Amount
	UpdateNumber uint64
	LatestUpdate UpdateAgreement
}

// Snapshot returns a snapshot of the channel's mutable state.
func (c *Channel) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		State:           c.state,
		FundingOutpoint: c.fundingOutpoint,
		FundingHeight:   c.fundingHeight,
		PayerRefundSig:  c.payerRefundSig,
		PayeeRefundSig:  c.payeeRefundSig,
		Balance:         c.balance,
		UpdateNumber:    c.updateNumber,
		LatestUpdate:    c.latestUpdate,
	}
	if c.fundingTx != nil {
		b, err := tx.Encode(c.fundingTx)
		if err != nil {
			// Encoding an in-memory transaction only fails on exhausted
			// memory, at which point panicking is the honest outcome.
			panic(fmt.Errorf("encoding funding tx for snapshot: %w", err))
		}
		s.FundingTx = b
	}
	return s
}

// NewChannelFromSnapshot creates a channel using a previously generated
// snapshot so that the new channel has the same state as the previous
// channel. To restore the channel to its identical state the same config
// should be provided that was in use when the snapshot was created.
func NewChannelFromSnapshot(config Config, s Snapshot) (*Channel, error) {
	c, err := NewChannel(config)
	if err != nil {
		return nil, err
	}
	switch s.State {
	case StateUnfunded, StateOpen, StateClosed, StateExpired:
	default:
		return nil, fmt.Errorf("restoring snapshot with unknown state %q: %w", s.State, ErrInvalidStateTransition)
	}
	if len(s.FundingTx) != 0 {
		funding, err := tx.Decode(s.FundingTx)
		if err != nil {
			return nil, fmt.Errorf("decoding funding tx from snapshot: %w", err)
		}
		c.fundingTx = funding
	}
	c.state = s.State
	c.fundingOutpoint = s.FundingOutpoint
	c.fundingHeight = s.FundingHeight
	c.payerRefundSig = s.PayerRefundSig
	c.payeeRefundSig = s.PayeeRefundSig
	c.balance = s.Balance
	c.updateNumber = s.UpdateNumber
	c.latestUpdate = s.LatestUpdate
	return c, nil
}
