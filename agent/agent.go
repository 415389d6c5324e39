// Package agent contains an implementation of an agent that coordinates the
// network connection, initial handshake, and channel opens, payments, and
// closes for a one-way payment channel.
package agent

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/d11dpool/channel/msg"
	"github.com/d11dpool/channel/sign"
	"github.com/d11dpool/channel/state"
	"github.com/d11dpool/channel/tx"
	"github.com/d11dpool/channel/txbuild"
)

// Submitter submits a transaction to the network.
type Submitter interface {
	SubmitTx(t *wire.MsgTx) error
}

// ChainObserver reports facts about the chain. The agent polls it; it never
// calls back into the agent.
type ChainObserver interface {
	// IsConfirmed reports whether the output exists on chain, and if so the
	// height of the transaction that created it.
	IsConfirmed(op wire.OutPoint) (bool, int32, error)

	// CurrentHeight returns the current chain height.
	CurrentHeight() (int32, error)
}

// Snapshotter is given a snapshot of the agent and its dependencies whenever
// its meaningful state changes. Snapshots can be restored using
// NewAgentFromSnapshot.
type Snapshotter interface {
	Snapshot(a *Agent, s Snapshot)
}

type Config struct {
	NetParams *chaincfg.Params

	// Payer is true when the local participant funds the channel and issues
	// payments.
	Payer bool

	Capacity btcutil.Amount

	// Delay is the refund's relative timelock in blocks.
	Delay uint32

	Observer    ChainObserver
	Submitter   Submitter
	Snapshotter Snapshotter

	// LocalSigner signs with the local participant's multisignature key.
	LocalSigner *sign.Signer

	// RefundKey is the payer's payout key. Ignored for the payee.
	RefundKey *btcec.PublicKey

	Events chan<- Event
}

func NewAgent(c Config) *Agent {
	agent := &Agent{
		netParams: c.NetParams,
		payer:     c.Payer,
		capacity:  c.Capacity,
		delay:     c.Delay,

		observer:    c.Observer,
		submitter:   c.Submitter,
		snapshotter: c.Snapshotter,

		localSigner: c.LocalSigner,
		refundKey:   c.RefundKey,

		events: c.Events,
	}
	return agent
}

// Snapshot is a snapshot of the agent and its dependencies excluding any
// fields provided in the Config when instantiating an agent. A Snapshot can
// be restored into an Agent using NewAgentFromSnapshot.
type Snapshot struct {
	OtherKey       []byte
	OtherRefundKey []byte
	State          *state.Snapshot
}

// NewAgentFromSnapshot creates an agent using a previously generated snapshot
// so that the new agent has the same state as the previous agent. To restore
// the agent to its identical state the same config should be provided that
// was in use when the snapshot was created.
func NewAgentFromSnapshot(c Config, s Snapshot) (*Agent, error) {
	agent := NewAgent(c)
	if len(s.OtherKey) != 0 {
		otherKey, err := btcec.ParsePubKey(s.OtherKey)
		if err != nil {
			return nil, fmt.Errorf("parsing other's key from snapshot: %w", err)
		}
		agent.otherKey = otherKey
	}
	if len(s.OtherRefundKey) != 0 {
		otherRefundKey, err := btcec.ParsePubKey(s.OtherRefundKey)
		if err != nil {
			return nil, fmt.Errorf("parsing other's refund key from snapshot: %w", err)
		}
		agent.otherRefundKey = otherRefundKey
	}
	if s.State != nil {
		err := agent.initChannel(s.State)
		if err != nil {
			return nil, fmt.Errorf("restoring channel from snapshot: %w", err)
		}
	}
	return agent, nil
}

// Agent coordinates a payment channel over a connection.
type Agent struct {
	netParams *chaincfg.Params
	payer     bool
	capacity  btcutil.Amount
	delay     uint32

	observer    ChainObserver
	submitter   Submitter
	snapshotter Snapshotter

	localSigner *sign.Signer
	refundKey   *btcec.PublicKey

	events chan<- Event

	// mu is a lock for the mutable fields of this type. It should be locked
	// when reading or writing any of the mutable fields, which are listed
	// below. If pushing to the events chan it is unnecessary to lock.
	mu sync.Mutex

	conn           io.ReadWriter
	otherKey       *btcec.PublicKey
	otherRefundKey *btcec.PublicKey
	channel        *state.Channel
}

// Config returns the configuration the agent was instantiated with, with
// external dependencies and the events channel omitted.
func (a *Agent) Config() Config {
	return Config{
		NetParams: a.netParams,
		Payer:     a.payer,
		Capacity:  a.capacity,
		Delay:     a.delay,
		RefundKey: a.refundKey,
	}
}

// Channel returns the agent's channel, or nil before a channel open has
// begun.
func (a *Agent) Channel() *state.Channel {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.channel
}

// Snapshot returns a snapshot of the agent's mutable state.
func (a *Agent) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buildSnapshot()
}

func (a *Agent) buildSnapshot() Snapshot {
	snapshot := Snapshot{}
	if a.otherKey != nil {
		snapshot.OtherKey = a.otherKey.SerializeCompressed()
	}
	if a.otherRefundKey != nil {
		snapshot.OtherRefundKey = a.otherRefundKey.SerializeCompressed()
	}
	if a.channel != nil {
		s := a.channel.Snapshot()
		snapshot.State = &s
	}
	return snapshot
}

func (a *Agent) snapshot() {
	if a.snapshotter == nil {
		return
	}
	a.snapshotter.Snapshot(a, a.buildSnapshot())
}

// hello sends a hello message to the remote participant over the connection.
func (a *Agent) hello() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	localKey, err := a.localSigner.PublicKey()
	if err != nil {
		return fmt.Errorf("getting local key: %w", err)
	}
	hello := msg.Hello{
		MultiSigKey: localKey.SerializeCompressed(),
		Payer:       a.payer,
	}
	if a.payer {
		hello.RefundKey = a.refundKey.SerializeCompressed()
	}
	enc := msg.NewEncoder(a.conn)
	err = enc.Encode(msg.Message{
		Type:  msg.TypeHello,
		Hello: &hello,
	})
	if err != nil {
		return fmt.Errorf("sending hello: %w", err)
	}
	return nil
}

func (a *Agent) initChannel(snapshot *state.Snapshot) error {
	localKey, err := a.localSigner.PublicKey()
	if err != nil {
		return fmt.Errorf("getting local key: %w", err)
	}
	payerKey, payeeKey := localKey, a.otherKey
	refundKey := a.refundKey
	if !a.payer {
		payerKey, payeeKey = a.otherKey, localKey
		refundKey = a.otherRefundKey
	}
	config := state.Config{
		NetParams:      a.netParams,
		Payer:          a.payer,
		Capacity:       a.capacity,
		Delay:          a.delay,
		PayerKey:       payerKey,
		PayeeKey:       payeeKey,
		PayerRefundKey: refundKey,
		LocalSigner:    a.localSigner,
	}
	if snapshot == nil {
		a.channel, err = state.NewChannel(config)
	} else {
		a.channel, err = state.NewChannelFromSnapshot(config, *snapshot)
	}
	if err != nil {
		return fmt.Errorf("initializing channel: %w", err)
	}
	return nil
}

// Open kicks off the open process which will continue after the function
// returns. It is called by the payer with inputs covering the channel
// capacity.
func (a *Agent) Open(fundingInputs []txbuild.FundingInput) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn == nil {
		return fmt.Errorf("not connected")
	}
	if a.otherKey == nil {
		return fmt.Errorf("not introduced")
	}
	if a.channel != nil {
		return fmt.Errorf("channel already exists")
	}
	if !a.payer {
		return fmt.Errorf("only the payer opens")
	}

	defer a.snapshot()

	err := a.initChannel(nil)
	if err != nil {
		return err
	}
	open, err := a.channel.ProposeOpen(state.OpenParams{FundingInputs: fundingInputs})
	if err != nil {
		return fmt.Errorf("proposing open: %w", err)
	}
	log.Debugf("Proposed open of channel with capacity %d", a.capacity)
	enc := msg.NewEncoder(a.conn)
	err = enc.Encode(msg.Message{
		Type:        msg.TypeOpenRequest,
		OpenRequest: &open,
	})
	if err != nil {
		return fmt.Errorf("sending open: %w", err)
	}
	return nil
}

// CheckFunding checks with the chain observer whether the channel's funding
// output has confirmed, and if so transitions the channel to open and emits
// an OpenedEvent. Call it periodically after the open process until the
// channel reports open.
func (a *Agent) CheckFunding() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.channel == nil {
		return fmt.Errorf("no channel")
	}
	if a.channel.State() != state.StateUnfunded {
		return nil
	}

	confirmed, height, err := a.observer.IsConfirmed(a.channel.FundingOutpoint())
	if err != nil {
		return fmt.Errorf("checking funding confirmation: %w", err)
	}
	if !confirmed {
		return nil
	}

	defer a.snapshot()

	err = a.channel.FundingConfirmed(height)
	if err != nil {
		return fmt.Errorf("recording funding confirmation: %w", err)
	}
	log.Infof("Channel funding confirmed at height %d", height)
	if a.events != nil {
		a.events <- OpenedEvent{FundingHeight: height}
	}
	return nil
}

// Payment pays the payment amount to the remote participant, raising the
// total amount owed to the payee by the amount. The function returns after
// the update is signed and sent to the remote participant; the payee needs
// no response for the payment to be spendable.
func (a *Agent) Payment(paymentAmount btcutil.Amount) error {
	return a.PaymentWithMemo(paymentAmount, "")
}

// PaymentWithMemo is Payment with a free-form memo attached to the payment
// notification. The memo is not covered by the payment's signature.
func (a *Agent) PaymentWithMemo(paymentAmount btcutil.Amount, memo string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn == nil {
		return fmt.Errorf("not connected")
	}
	if a.channel == nil {
		return fmt.Errorf("no channel")
	}

	defer a.snapshot()

	update, err := a.channel.ProposePayment(a.channel.Balance() + paymentAmount)
	if err != nil {
		return fmt.Errorf("proposing payment of %d: %w", paymentAmount, err)
	}
	enc := msg.NewEncoder(a.conn)
	err = enc.Encode(msg.Message{
		Type:          msg.TypePaymentNotify,
		PaymentNotify: &msg.PaymentNotify{Update: update, Memo: memo},
	})
	if err != nil {
		return fmt.Errorf("sending payment: %w", err)
	}
	log.Debugf("Sent payment update %d raising balance to %d",
		update.Details.UpdateNumber, update.Details.Balance)
	if a.events != nil {
		a.events <- PaymentSentEvent{Update: update, Memo: memo}
	}
	return nil
}

// Settle settles the channel at the latest authorized update. It is called
// by the payee. The settlement transaction is submitted for broadcast and
// the remote participant is notified.
func (a *Agent) Settle() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn == nil {
		return fmt.Errorf("not connected")
	}
	if a.channel == nil {
		return fmt.Errorf("no channel")
	}

	defer a.snapshot()

	settlement, err := a.channel.Settle()
	if err != nil {
		return fmt.Errorf("settling: %w", err)
	}
	err = a.submitter.SubmitTx(settlement)
	if err != nil {
		return fmt.Errorf("submitting settlement tx: %w", err)
	}
	hash := tx.HashTx(settlement)
	log.Infof("Settled channel with tx %s", hash)
	enc := msg.NewEncoder(a.conn)
	err = enc.Encode(msg.Message{
		Type:        msg.TypeCloseNotify,
		CloseNotify: &msg.CloseNotify{State: state.StateClosed, TxHash: hash},
	})
	if err != nil {
		return fmt.Errorf("sending close notification: %w", err)
	}
	if a.events != nil {
		a.events <- SettledEvent{TxHash: hash}
	}
	return nil
}

// Expire closes the channel through the refund path. It is called by the
// payer once the refund's relative timelock has matured. The refund
// transaction is submitted for broadcast and the remote participant is
// notified.
func (a *Agent) Expire() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn == nil {
		return fmt.Errorf("not connected")
	}
	if a.channel == nil {
		return fmt.Errorf("no channel")
	}

	height, err := a.observer.CurrentHeight()
	if err != nil {
		return fmt.Errorf("getting current height: %w", err)
	}

	defer a.snapshot()

	refund, err := a.channel.Expire(height)
	if err != nil {
		return fmt.Errorf("expiring at height %d: %w", height, err)
	}
	err = a.submitter.SubmitTx(refund)
	if err != nil {
		return fmt.Errorf("submitting refund tx: %w", err)
	}
	hash := tx.HashTx(refund)
	log.Infof("Expired channel with refund tx %s", hash)
	enc := msg.NewEncoder(a.conn)
	err = enc.Encode(msg.Message{
		Type:        msg.TypeCloseNotify,
		CloseNotify: &msg.CloseNotify{State: state.StateExpired, TxHash: hash},
	})
	if err != nil {
		return fmt.Errorf("sending close notification: %w", err)
	}
	if a.events != nil {
		a.events <- ExpiredEvent{TxHash: hash}
	}
	return nil
}

func (a *Agent) receive() error {
	recv := msg.NewDecoder(a.conn)
	send := msg.NewEncoder(a.conn)
	m := msg.Message{}
	err := recv.Decode(&m)
	if err == io.EOF {
		return err
	}
	if err != nil {
		return fmt.Errorf("reading and decoding: %v", err)
	}
	err = a.handle(m, send)
	if err != nil {
		return fmt.Errorf("handling message: %v", err)
	}
	return nil
}

func (a *Agent) receiveLoop() {
	for {
		err := a.receive()
		if err == io.EOF {
			log.Debugf("Connection closed, stopping receiving")
			break
		}
		if err != nil {
			log.Errorf("Error receiving: %v", err)
		}
	}
}

func (a *Agent) handle(m msg.Message, send *msg.Encoder) error {
	log.Debugf("Handling message type %v", m.Type)
	handler := handlerMap[m.Type]
	if handler == nil {
		err := fmt.Errorf("handling message %d: unrecognized message type", m.Type)
		if a.events != nil {
			a.events <- ErrorEvent{Err: err}
		}
		return err
	}
	err := handler(a, m, send)
	if err != nil {
		err = fmt.Errorf("handling message %d: %w", m.Type, err)
		if a.events != nil {
			a.events <- ErrorEvent{Err: err}
		}
		return err
	}
	return nil
}

var handlerMap = map[msg.Type]func(*Agent, msg.Message, *msg.Encoder) error{
	msg.TypeHello:         (*Agent).handleHello,
	msg.TypeOpenRequest:   (*Agent).handleOpenRequest,
	msg.TypeOpenResponse:  (*Agent).handleOpenResponse,
	msg.TypePaymentNotify: (*Agent).handlePaymentNotify,
	msg.TypeCloseNotify:   (*Agent).handleCloseNotify,
}

func (a *Agent) handleHello(m msg.Message, send *msg.Encoder) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	defer a.snapshot()

	h := m.Hello

	if h.Payer == a.payer {
		return fmt.Errorf("hello received from another %s", partyName(h.Payer))
	}
	if a.otherKey != nil && !bytes.Equal(a.otherKey.SerializeCompressed(), h.MultiSigKey) {
		return fmt.Errorf("hello received with unexpected key: %x", h.MultiSigKey)
	}

	otherKey, err := btcec.ParsePubKey(h.MultiSigKey)
	if err != nil {
		return fmt.Errorf("parsing other's key: %w", err)
	}
	a.otherKey = otherKey
	if h.Payer {
		otherRefundKey, err := btcec.ParsePubKey(h.RefundKey)
		if err != nil {
			return fmt.Errorf("parsing other's refund key: %w", err)
		}
		a.otherRefundKey = otherRefundKey
	}

	log.Debugf("Connected to %s with key %x", partyName(h.Payer), h.MultiSigKey)
	if a.events != nil {
		a.events <- ConnectedEvent{}
	}
	return nil
}

func (a *Agent) handleOpenRequest(m msg.Message, send *msg.Encoder) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	defer a.snapshot()

	if a.channel != nil {
		return fmt.Errorf("channel already exists")
	}
	if a.payer {
		return fmt.Errorf("open request received by the payer")
	}

	err := a.initChannel(nil)
	if err != nil {
		return err
	}
	openIn := *m.OpenRequest
	open, err := a.channel.ConfirmOpen(openIn)
	if err != nil {
		return fmt.Errorf("confirming open: %w", err)
	}
	log.Debugf("Open authorized, countersigned refund")
	err = send.Encode(msg.Message{
		Type:         msg.TypeOpenResponse,
		OpenResponse: &open,
	})
	if err != nil {
		return fmt.Errorf("encoding open to send back: %w", err)
	}
	return nil
}

func (a *Agent) handleOpenResponse(m msg.Message, send *msg.Encoder) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.channel == nil {
		return fmt.Errorf("no channel")
	}

	defer a.snapshot()

	openIn := *m.OpenResponse
	_, err := a.channel.ConfirmOpen(openIn)
	if err != nil {
		return fmt.Errorf("confirming open: %w", err)
	}
	log.Debugf("Open authorized, broadcasting funding")
	fundingTx, err := a.channel.FundingTx()
	if err != nil {
		return fmt.Errorf("building funding tx: %w", err)
	}
	err = a.submitter.SubmitTx(fundingTx)
	if err != nil {
		return fmt.Errorf("submitting funding tx: %w", err)
	}
	return nil
}

func (a *Agent) handlePaymentNotify(m msg.Message, send *msg.Encoder) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.channel == nil {
		return fmt.Errorf("no channel")
	}

	defer a.snapshot()

	n := *m.PaymentNotify
	update, err := a.channel.ConfirmPayment(n.Update)
	if err != nil {
		return fmt.Errorf("confirming payment: %w", err)
	}
	log.Debugf("Payment authorized, balance raised to %d", update.Details.Balance)
	if a.events != nil {
		a.events <- PaymentReceivedEvent{Update: update, Memo: n.Memo}
	}
	return nil
}

func (a *Agent) handleCloseNotify(m msg.Message, send *msg.Encoder) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.channel == nil {
		return fmt.Errorf("no channel")
	}

	defer a.snapshot()

	n := *m.CloseNotify
	switch n.State {
	case state.StateClosed:
		err := a.channel.ConfirmSettle()
		if err != nil {
			return fmt.Errorf("confirming settle: %w", err)
		}
		log.Infof("Channel settled by payee with tx %s", tx.Hash(n.TxHash))
		if a.events != nil {
			a.events <- SettledEvent{TxHash: tx.Hash(n.TxHash)}
		}
	case state.StateExpired:
		err := a.channel.ConfirmExpire()
		if err != nil {
			return fmt.Errorf("confirming expire: %w", err)
		}
		log.Infof("Channel expired by payer with refund tx %s", tx.Hash(n.TxHash))
		if a.events != nil {
			a.events <- ExpiredEvent{TxHash: tx.Hash(n.TxHash)}
		}
	default:
		return errors.New("close notification with a non-terminal state")
	}
	return nil
}

func partyName(payer bool) string {
	if payer {
		return "payer"
	}
	return "payee"
}
