// Package bufferedagent contains an agent that coordinates a payment channel
// and buffers outgoing payments, collapsing them down to a single channel
// update while it waits for a chance to make the next payment.
package bufferedagent

import (
	"errors"
	"math"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/google/uuid"

	"github.com/d11dpool/channel/agent"
	"github.com/d11dpool/channel/txbuild"
)

// ErrBufferFull indicates that the payment buffer has reached its maximum
// size as configured when the buffered agent was created.
var ErrBufferFull = errors.New("buffer full")

// Config contains the information that can be supplied to configure the Agent
// at construction.
type Config struct {
	Agent       *agent.Agent
	AgentEvents <-chan agent.Event

	// MaxBufferSize is the maximum number of payments that can be buffered
	// while waiting for the opportunity to include them in an update. Zero
	// means unbounded.
	MaxBufferSize int

	Events chan<- agent.Event
}

// NewAgent constructs a new buffered agent with the given config.
func NewAgent(c Config) *Agent {
	agent := &Agent{
		agent:       c.Agent,
		agentEvents: c.AgentEvents,

		maxBufferSize: c.MaxBufferSize,

		bufferReady:  make(chan struct{}, 1),
		sendingReady: make(chan struct{}, 1),
		idle:         make(chan struct{}),

		events: c.Events,
	}
	agent.resetBuffer()
	agent.sendingReady <- struct{}{}
	go agent.flushLoop()
	return agent
}

// Agent coordinates a payment channel over a connection, and buffers payments
// by collapsing them down into single channel updates while it waits for a
// chance to make the next payment.
//
// All functions of the Agent are safe to call from multiple goroutines as
// they use an internal mutex.
type Agent struct {
	agentEvents <-chan agent.Event
	events      chan<- agent.Event

	// mu is a lock for the mutable fields of this type. It should be locked
	// when reading or writing any of the mutable fields, which are listed
	// below. If pushing to a chan, such as events, it is unnecessary to lock.
	mu sync.Mutex

	agent *agent.Agent

	maxBufferSize int

	bufferID          string
	buffer            []BufferedPayment
	bufferTotalAmount btcutil.Amount
	bufferReady       chan struct{}
	sendingReady      chan struct{}
	idle              chan struct{}
}

// MaxBufferSize returns the maximum buffer size that was configured at
// construction or changed with SetMaxBufferSize.
func (a *Agent) MaxBufferSize() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.maxBufferSize
}

// SetMaxBufferSize sets and changes the maximum buffer size.
func (a *Agent) SetMaxBufferSize(maxBufferSize int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.maxBufferSize = maxBufferSize
}

// Open opens the channel. The open is coordinated with the other participant.
// An immediate error may be indicated if the attempt to open was immediately
// unsuccessful, however more likely any error will be surfaced on the events
// channel as the process involves the other participant.
func (a *Agent) Open(fundingInputs []txbuild.FundingInput) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.agent.Open(fundingInputs)
}

// PaymentWithMemo buffers a payment which will be paid in the next update.
// The identifier for the buffer is returned. An error may be returned
// immediately if the buffer is full. Any errors relating to the payment will
// be surfaced asynchronously on the events channel.
func (a *Agent) PaymentWithMemo(paymentAmount btcutil.Amount, memo string) (bufferID string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.maxBufferSize != 0 && len(a.buffer) == a.maxBufferSize {
		return "", ErrBufferFull
	}
	if paymentAmount > math.MaxInt64-a.bufferTotalAmount {
		return "", ErrBufferFull
	}
	a.buffer = append(a.buffer, BufferedPayment{Amount: paymentAmount, Memo: memo})
	a.bufferTotalAmount += paymentAmount
	bufferID = a.bufferID
	select {
	case a.bufferReady <- struct{}{}:
	default:
	}
	return
}

// Payment is equivalent to calling PaymentWithMemo with an empty memo.
func (a *Agent) Payment(paymentAmount btcutil.Amount) (bufferID string, err error) {
	return a.PaymentWithMemo(paymentAmount, "")
}

// Wait waits for sending of all buffered payments to complete and the buffer
// to be empty. It can be called multiple times, and it can be called in
// between sends of new payments.
func (a *Agent) Wait() {
	<-a.idle
}

// Settle settles the channel at the latest authorized update. It is not
// possible to make new payments once called.
func (a *Agent) Settle() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	close(a.bufferReady)
	return a.agent.Settle()
}

// Expire closes the channel through the refund path. It is not possible to
// make new payments once called.
func (a *Agent) Expire() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	close(a.bufferReady)
	return a.agent.Expire()
}

func (a *Agent) eventLoop() {
	defer close(a.events)
	defer close(a.sendingReady)
	for {
		ae, open := <-a.agentEvents
		if !open {
			break
		}

		// Pass all agent events up to the caller.
		a.events <- ae

		// Unpack payment received and sent events and create events for each
		// sub-payment that was buffered within them.
		switch e := ae.(type) {
		case agent.PaymentReceivedEvent:
			memo, err := parseBufferedPaymentsMemo(e.Memo)
			if err != nil {
				a.events <- agent.ErrorEvent{Err: err}
				continue
			}
			a.events <- BufferedPaymentsReceivedEvent{
				PaymentReceivedEvent: e,
				BufferID:             memo.ID,
				Payments:             memo.Payments,
			}
		case agent.PaymentSentEvent:
			a.sendingReady <- struct{}{}
			memo, err := parseBufferedPaymentsMemo(e.Memo)
			if err != nil {
				a.events <- agent.ErrorEvent{Err: err}
				continue
			}
			a.events <- BufferedPaymentsSentEvent{
				PaymentSentEvent: e,
				BufferID:         memo.ID,
				Payments:         memo.Payments,
			}
		}
	}
}

func (a *Agent) flushLoop() {
	for {
		_, open := <-a.sendingReady
		if !open {
			return
		}
		select {
		case _, open = <-a.bufferReady:
			if !open {
				return
			}
			a.flush()
		default:
			select {
			case _, open = <-a.bufferReady:
				if !open {
					return
				}
				a.flush()
			case a.idle <- struct{}{}:
				a.sendingReady <- struct{}{}
			}
		}
	}
}

func (a *Agent) flush() {
	var bufferID string
	var buffer []BufferedPayment
	var bufferTotalAmount btcutil.Amount

	func() {
		a.mu.Lock()
		defer a.mu.Unlock()

		bufferID = a.bufferID
		buffer = a.buffer
		bufferTotalAmount = a.bufferTotalAmount
		a.resetBuffer()
	}()

	if len(buffer) == 0 {
		a.sendingReady <- struct{}{}
		return
	}

	memo := bufferedPaymentsMemo{
		ID:       bufferID,
		Payments: buffer,
	}
	err := a.agent.PaymentWithMemo(bufferTotalAmount, memo.String())
	if err != nil {
		a.events <- agent.ErrorEvent{Err: err}
		a.sendingReady <- struct{}{}
		return
	}
}

func (a *Agent) resetBuffer() {
	a.bufferID = uuid.NewString()
	a.buffer = nil
	a.bufferTotalAmount = 0
}
