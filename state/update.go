package state

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/google/go-cmp/cmp"

	"github.com/d11dpool/channel/sign"
	"github.com/d11dpool/channel/txbuild"
)

// The high level steps for a channel update are as follows, where the
// returned agreement flows to the next step:
// 1. Payer calls ProposePayment
// 2. Payee calls ConfirmPayment
//
// The payee never counter-signs: the payee chooses whether and when to
// broadcast, and broadcasting any older update only pays the payee less, so
// the payer's signature alone is sufficient for the exchange.

// UpdateDetails contains the details of an update that the participants agree
// on.
type UpdateDetails struct {
	// UpdateNumber is the sequence number of the update, starting at 1.
	UpdateNumber uint64

	// Balance is the total amount owed to the payee after the update.
	Balance btcutil.Amount
}

// UpdateAgreement contains everything the payee needs to settle the channel
// at the agreed balance: the update details and the payer's signature for the
// corresponding payment transaction.
type UpdateAgreement struct {
	Details  UpdateDetails
	PayerSig []byte
}

func (a UpdateAgreement) isEmpty() bool {
	return a.Equal(UpdateAgreement{})
}

func (a UpdateAgreement) Equal(a2 UpdateAgreement) bool {
	type UA UpdateAgreement
	return cmp.Equal(UA(a), UA(a2))
}

// ProposePayment issues an update raising the amount owed to the payee to
// newBalance. It is called by the payer. The check of the new balance against
// the latest issued update and the advance of the channel state are atomic:
// on any error the channel state is unchanged.
func (c *Channel) ProposePayment(newBalance btcutil.Amount) (UpdateAgreement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.payer {
		return UpdateAgreement{}, fmt.Errorf("proposing payment: only the payer proposes: %w", ErrInvalidStateTransition)
	}
	if c.state != StateOpen {
		return UpdateAgreement{}, fmt.Errorf("proposing payment in state %s: %w", c.state, ErrInvalidStateTransition)
	}
	if newBalance < c.balance {
		return UpdateAgreement{}, fmt.Errorf("proposing payment of %d after %d: %w", newBalance, c.balance, ErrNonMonotonicUpdate)
	}
	if newBalance > c.capacity {
		return UpdateAgreement{}, fmt.Errorf("proposing payment of %d with capacity %d: %w", newBalance, c.capacity, ErrCapacityExceeded)
	}

	payment, err := c.buildPayment(newBalance)
	if err != nil {
		return UpdateAgreement{}, fmt.Errorf("building payment tx: %w", err)
	}
	sig, err := c.localSigner.SignInput(payment, 0, c.fundingRedeem, txscript.SigHashAll)
	if err != nil {
		return UpdateAgreement{}, fmt.Errorf("signing payment tx: %w", err)
	}

	c.balance = newBalance
	c.updateNumber++
	c.latestUpdate = UpdateAgreement{
		Details: UpdateDetails{
			UpdateNumber: c.updateNumber,
			Balance:      newBalance,
		},
		PayerSig: sig,
	}
	return c.latestUpdate, nil
}

// ConfirmPayment confirms an update proposed by the payer. It is called by
// the payee on receipt. The payer's signature is verified against the payment
// transaction the payee independently constructs from the agreed details; a
// signature that does not verify is discarded and the channel state is
// unchanged.
func (c *Channel) ConfirmPayment(m UpdateAgreement) (UpdateAgreement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpen {
		return m, fmt.Errorf("confirming payment in state %s: %w", c.state, ErrInvalidStateTransition)
	}
	if m.Details.UpdateNumber != c.updateNumber+1 {
		return m, fmt.Errorf("invalid update number, got: %d want: %d", m.Details.UpdateNumber, c.updateNumber+1)
	}
	if m.Details.Balance < c.balance {
		return m, fmt.Errorf("confirming payment of %d after %d: %w", m.Details.Balance, c.balance, ErrNonMonotonicUpdate)
	}
	if m.Details.Balance > c.capacity {
		return m, fmt.Errorf("confirming payment of %d with capacity %d: %w", m.Details.Balance, c.capacity, ErrCapacityExceeded)
	}

	payment, err := c.buildPayment(m.Details.Balance)
	if err != nil {
		return m, fmt.Errorf("building payment tx: %w", err)
	}
	digest, err := sign.SigHash(payment, 0, c.fundingRedeem, txscript.SigHashAll)
	if err != nil {
		return m, err
	}
	err = sign.Verify(m.PayerSig, digest, c.payerKey)
	if err != nil {
		return m, fmt.Errorf("verifying payment signed by payer: %w", err)
	}

	c.balance = m.Details.Balance
	c.updateNumber = m.Details.UpdateNumber
	c.latestUpdate = m
	return m, nil
}

// PaymentTx returns the unsigned payment transaction for the latest
// authorized update.
func (c *Channel) PaymentTx() (*wire.MsgTx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latestUpdate.isEmpty() {
		return nil, fmt.Errorf("no update has been issued: %w", ErrInvalidStateTransition)
	}
	return c.buildPayment(c.latestUpdate.Details.Balance)
}

func (c *Channel) buildPayment(balance btcutil.Amount) (*wire.MsgTx, error) {
	return txbuild.Payment(txbuild.PaymentParams{
		FundingOutpoint: c.fundingOutpoint,
		Capacity:        c.capacity,
		AmountToPayee:   balance,
		PayerRefundKey:  c.payerRefundKey,
		PayeeKey:        c.payeeKey,
		NetParams:       c.netParams,
	})
}
