package state

import (
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/d11dpool/channel/sign"
	"github.com/d11dpool/channel/tx"
)

// ImportCounterpartySignature accepts a detached signature from the remote
// participant for one of the channel's candidate transactions, identified by
// transaction hash and input index. The signature is verified against the
// locally constructed transaction before acceptance; a signature that does
// not verify is discarded and the channel state is unchanged.
func (c *Channel) ImportCounterpartySignature(hash tx.Hash, inputIndex int, sig []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fundingTx == nil {
		return fmt.Errorf("importing signature before open: %w", ErrInvalidStateTransition)
	}
	if inputIndex != 0 {
		return fmt.Errorf("importing signature for input %d: channel transactions have a single funding input: %w",
			inputIndex, ErrInvalidStateTransition)
	}

	t, err := c.candidateTx(hash)
	if err != nil {
		return err
	}
	digest, err := sign.SigHash(t, inputIndex, c.fundingRedeem, txscript.SigHashAll)
	if err != nil {
		return err
	}
	err = sign.Verify(sig, digest, c.remoteKey())
	if err != nil {
		return fmt.Errorf("verifying signature for tx %s input %d: %w", hash, inputIndex, err)
	}

	if c.isRefund(t) {
		if c.payer {
			c.payeeRefundSig = sig
		} else {
			c.payerRefundSig = sig
		}
		return nil
	}
	// Payment signatures only flow payer to payee.
	if c.payer {
		return fmt.Errorf("importing payment signature as payer: %w", ErrInvalidStateTransition)
	}
	c.latestUpdate.PayerSig = sig
	return nil
}

// ExportSignatureBundle returns the signatures the channel holds for the
// transaction identified by hash, keyed by input index and signing party.
func (c *Channel) ExportSignatureBundle(hash tx.Hash) (sign.Bundle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fundingTx == nil {
		return nil, fmt.Errorf("exporting signatures before open: %w", ErrInvalidStateTransition)
	}

	t, err := c.candidateTx(hash)
	if err != nil {
		return nil, err
	}

	b := sign.Bundle{}
	if c.isRefund(t) {
		if len(c.payerRefundSig) != 0 {
			b.Add(hash, 0, sign.PartyPayer, c.payerRefundSig)
		}
		if len(c.payeeRefundSig) != 0 {
			b.Add(hash, 0, sign.PartyPayee, c.payeeRefundSig)
		}
		return b, nil
	}
	if len(c.latestUpdate.PayerSig) != 0 {
		b.Add(hash, 0, sign.PartyPayer, c.latestUpdate.PayerSig)
	}
	return b, nil
}

// candidateTx reconstructs the channel transaction matching hash. Only the
// refund and the payment at the latest authorized balance are candidates:
// earlier payments are superseded and their signatures are not retained.
func (c *Channel) candidateTx(hash tx.Hash) (t *wire.MsgTx, err error) {
	refund, err := c.buildRefund(c.fundingOutpoint)
	if err != nil {
		return nil, fmt.Errorf("building refund tx: %w", err)
	}
	if tx.HashTx(refund) == hash {
		return refund, nil
	}
	payment, err := c.buildPayment(c.balance)
	if err != nil {
		return nil, fmt.Errorf("building payment tx: %w", err)
	}
	if tx.HashTx(payment) == hash {
		return payment, nil
	}
	return nil, fmt.Errorf("tx %s is not a candidate transaction of this channel: %w", hash, ErrInvalidStateTransition)
}

// isRefund reports whether t is the channel's refund, distinguished from a
// payment by its non-final sequence.
func (c *Channel) isRefund(t *wire.MsgTx) bool {
	return t.TxIn[0].Sequence == c.delay
}
