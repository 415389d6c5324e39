package state

import (
	"errors"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/d11dpool/channel/script"
	"github.com/d11dpool/channel/sign"
	"github.com/d11dpool/channel/txbuild"
)

// State is the lifecycle state of a channel.
type State string

const (
	// StateUnfunded is the initial state, before the funding transaction is
	// confirmed on-chain.
	StateUnfunded = State("unfunded")

	// StateOpen is the operating state, in which updates may be issued.
	StateOpen = State("open")

	// StateClosed is the terminal state reached by settling on the latest
	// update.
	StateClosed = State("closed")

	// StateExpired is the terminal state reached by broadcasting the refund
	// after its relative timelock matured.
	StateExpired = State("expired")
)

// Config contains the information that configures a Channel at construction.
type Config struct {
	NetParams *chaincfg.Params

	// Payer is true when the local participant is the payer.
	Payer bool

	Capacity btcutil.Amount

	// Delay is the refund's relative timelock in blocks.
	Delay uint32

	// PayerKey and PayeeKey lock the funding output under a 2-of-2
	// multisignature condition.
	PayerKey *btcec.PublicKey
	PayeeKey *btcec.PublicKey

	// PayerRefundKey receives the payer's side of every payout: change,
	// payment remainders, and the refund.
	PayerRefundKey *btcec.PublicKey

	LocalSigner *sign.Signer
}

// Channel manages the lifecycle of a one-way payment channel and is the
// authoritative holder of its state.
type Channel struct {
	netParams *chaincfg.Params
	payer     bool
	capacity  btcutil.Amount
	delay     uint32

	payerKey       *btcec.PublicKey
	payeeKey       *btcec.PublicKey
	payerRefundKey *btcec.PublicKey

	localSigner *sign.Signer

	fundingRedeem   []byte
	fundingPkScript []byte

	// mu serializes all mutating lifecycle operations. The monotonicity
	// check-and-set in payments must be atomic with respect to concurrent
	// calls, so every access to the mutable fields below holds mu.
	mu sync.Mutex

	state State

	fundingTx       *wire.MsgTx
	fundingInputs   []txbuild.FundingInput
	fundingOutpoint wire.OutPoint
	fundingHeight   int32

	payerRefundSig []byte
	payeeRefundSig []byte

	balance      btcutil.Amount
	updateNumber uint64
	latestUpdate UpdateAgreement
}

// NewChannel constructs a channel in the unfunded state.
func NewChannel(c Config) (*Channel, error) {
	if c.Capacity <= 0 {
		return nil, errors.New("invalid capacity: must be positive")
	}
	if c.Delay == 0 {
		return nil, errors.New("invalid delay: must be positive")
	}
	if c.PayerKey == nil || c.PayeeKey == nil || c.PayerRefundKey == nil {
		return nil, errors.New("payer, payee, and refund keys are required")
	}
	if c.LocalSigner == nil {
		return nil, errors.New("local signer is required")
	}
	redeem, err := script.MultiSig(c.PayerKey, c.PayeeKey)
	if err != nil {
		return nil, err
	}
	pkScript, err := script.MultiSigPkScript(redeem, c.NetParams)
	if err != nil {
		return nil, err
	}
	return &Channel{
		netParams:       c.NetParams,
		payer:           c.Payer,
		capacity:        c.Capacity,
		delay:           c.Delay,
		payerKey:        c.PayerKey,
		payeeKey:        c.PayeeKey,
		payerRefundKey:  c.PayerRefundKey,
		localSigner:     c.LocalSigner,
		fundingRedeem:   redeem,
		fundingPkScript: pkScript,
		state:           StateUnfunded,
	}, nil
}

// State returns the channel's lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Balance returns the amount currently owed to the payee.
func (c *Channel) Balance() btcutil.Amount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance
}

// Capacity returns the total channel capacity.
func (c *Channel) Capacity() btcutil.Amount {
	return c.capacity
}

// Delay returns the refund's relative timelock in blocks.
func (c *Channel) Delay() uint32 {
	return c.delay
}

// IsPayer reports whether the local participant is the payer.
func (c *Channel) IsPayer() bool {
	return c.payer
}

// UpdateNumber returns the sequence number of the latest issued update.
func (c *Channel) UpdateNumber() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateNumber
}

// FundingOutpoint returns the outpoint of the channel's funding output. The
// zero outpoint is returned before an open has been proposed or confirmed.
func (c *Channel) FundingOutpoint() wire.OutPoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fundingOutpoint
}

// FundingHeight returns the height at which the funding transaction was
// reported confirmed, or zero before then.
func (c *Channel) FundingHeight() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fundingHeight
}

// LatestUpdate returns the latest authorized update agreement. The zero
// agreement is returned before any update has been issued.
func (c *Channel) LatestUpdate() UpdateAgreement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latestUpdate
}

// remoteKey returns the multisignature key of the remote participant.
func (c *Channel) remoteKey() *btcec.PublicKey {
	if c.payer {
		return c.payeeKey
	}
	return c.payerKey
}
