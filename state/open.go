package state

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/google/go-cmp/cmp"

	"github.com/d11dpool/channel/script"
	"github.com/d11dpool/channel/sign"
	"github.com/d11dpool/channel/tx"
	"github.com/d11dpool/channel/txbuild"
)

// The high level steps for opening a channel are as follows, where the
// returned agreements flow to the next step:
// 1. Payer calls ProposeOpen
// 2. Payee calls ConfirmOpen
// 3. Payer calls ConfirmOpen
// 4. Payer broadcasts the funding transaction
// 5. Both call FundingConfirmed when the funding output confirms

// OpenParams are the parameters selected by the payer proposing an open.
type OpenParams struct {
	// FundingInputs are payer-owned outpoints covering at least the channel
	// capacity.
	FundingInputs []txbuild.FundingInput

	// ChangeKey receives input value in excess of the capacity. Defaults to
	// the payer refund key.
	ChangeKey *btcec.PublicKey
}

// OpenAgreement contains everything the participants exchange to open the
// channel: the funding transaction and the detached refund signatures that
// protect the payer before the funding is broadcast.
type OpenAgreement struct {
	// FundingTx is the canonical encoding of the funding transaction, signed
	// by the payer.
	FundingTx []byte

	PayerRefundSig []byte
	PayeeRefundSig []byte
}

func (a OpenAgreement) isEmpty() bool {
	return a.Equal(OpenAgreement{})
}

func (a OpenAgreement) Equal(a2 OpenAgreement) bool {
	type OA OpenAgreement
	return cmp.Equal(OA(a), OA(a2))
}

// ProposeOpen proposes the open of the channel. It is called by the payer,
// who owns the funding inputs. The returned agreement carries the signed
// funding transaction and the payer's refund signature; the channel remains
// unfunded until the funding transaction is confirmed on-chain.
func (c *Channel) ProposeOpen(p OpenParams) (OpenAgreement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.payer {
		return OpenAgreement{}, fmt.Errorf("proposing open: only the payer proposes: %w", ErrInvalidStateTransition)
	}
	if c.state != StateUnfunded || c.fundingTx != nil {
		return OpenAgreement{}, fmt.Errorf("proposing open in state %s: %w", c.state, ErrInvalidStateTransition)
	}

	changeKey := p.ChangeKey
	if changeKey == nil {
		changeKey = c.payerRefundKey
	}
	funding, err := txbuild.Funding(txbuild.FundingParams{
		Inputs:    p.FundingInputs,
		Capacity:  c.capacity,
		PayerKey:  c.payerKey,
		PayeeKey:  c.payeeKey,
		ChangeKey: changeKey,
		NetParams: c.netParams,
	})
	if err != nil {
		return OpenAgreement{}, fmt.Errorf("building funding tx: %w", err)
	}

	// Sign the payer-owned inputs. The funding outpoint is derived from the
	// signed transaction so that the refund references the transaction that
	// will actually be broadcast.
	for i, in := range p.FundingInputs {
		sigScript, err := c.localSigner.SignatureScript(funding, i, in.PkScript, txscript.SigHashAll)
		if err != nil {
			return OpenAgreement{}, fmt.Errorf("signing funding input %d: %w", i, err)
		}
		funding.TxIn[i].SignatureScript = sigScript
	}
	fundingHash := funding.TxHash()
	fundingOutpoint := *wire.NewOutPoint(&fundingHash, txbuild.FundingOutputIndex)

	refund, err := c.buildRefund(fundingOutpoint)
	if err != nil {
		return OpenAgreement{}, fmt.Errorf("building refund tx: %w", err)
	}
	refundSig, err := c.localSigner.SignInput(refund, 0, c.fundingRedeem, txscript.SigHashAll)
	if err != nil {
		return OpenAgreement{}, fmt.Errorf("signing refund tx: %w", err)
	}
	fundingBytes, err := tx.Encode(funding)
	if err != nil {
		return OpenAgreement{}, err
	}

	c.fundingTx = funding
	c.fundingInputs = p.FundingInputs
	c.fundingOutpoint = fundingOutpoint
	c.payerRefundSig = refundSig

	return OpenAgreement{
		FundingTx:      fundingBytes,
		PayerRefundSig: refundSig,
	}, nil
}

// ConfirmOpen confirms an open that was proposed. It is called by both
// participants as they both participate in the open process.
//
// If the payer's refund signature is missing or invalid, the open is invalid.
//
// If the local participant is the payee and has not signed the refund, it
// signs it.
//
// If both refund signatures are present, the refund is assembled and locally
// verified against the funding output's locking condition, and the payer may
// safely broadcast the funding transaction.
func (c *Channel) ConfirmOpen(m OpenAgreement) (OpenAgreement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateUnfunded {
		return m, fmt.Errorf("confirming open in state %s: %w", c.state, ErrInvalidStateTransition)
	}

	funding, err := tx.Decode(m.FundingTx)
	if err != nil {
		return m, fmt.Errorf("decoding funding tx: %w", err)
	}
	if len(funding.TxOut) <= txbuild.FundingOutputIndex {
		return m, fmt.Errorf("funding tx has no output %d", txbuild.FundingOutputIndex)
	}
	fundingOut := funding.TxOut[txbuild.FundingOutputIndex]
	if fundingOut.Value != int64(c.capacity) {
		return m, fmt.Errorf("funding output value %d does not match capacity %d", fundingOut.Value, c.capacity)
	}
	if !bytes.Equal(fundingOut.PkScript, c.fundingPkScript) {
		return m, fmt.Errorf("funding output is not the channel's 2-of-2 output")
	}
	fundingHash := funding.TxHash()
	fundingOutpoint := *wire.NewOutPoint(&fundingHash, txbuild.FundingOutputIndex)

	refund, err := c.buildRefund(fundingOutpoint)
	if err != nil {
		return m, fmt.Errorf("building refund tx: %w", err)
	}
	digest, err := sign.SigHash(refund, 0, c.fundingRedeem, txscript.SigHashAll)
	if err != nil {
		return m, err
	}

	// The payer must have signed the refund, else the open is invalid.
	if len(m.PayerRefundSig) == 0 {
		return m, fmt.Errorf("verifying refund signed by payer: not signed: %w", sign.ErrVerification)
	}
	err = sign.Verify(m.PayerRefundSig, digest, c.payerKey)
	if err != nil {
		return m, fmt.Errorf("verifying refund signed by payer: %w", err)
	}

	// If the local participant is the payee and has not signed, sign.
	if !c.payer && len(m.PayeeRefundSig) == 0 {
		sig, err := c.localSigner.SignInput(refund, 0, c.fundingRedeem, txscript.SigHashAll)
		if err != nil {
			return m, fmt.Errorf("signing refund tx: %w", err)
		}
		m.PayeeRefundSig = sig
	}

	if len(m.PayeeRefundSig) != 0 {
		err = verifySignatures([]signatureVerificationInput{
			{Digest: digest, Signature: m.PayerRefundSig, Key: c.payerKey},
			{Digest: digest, Signature: m.PayeeRefundSig, Key: c.payeeKey},
		})
		if err != nil {
			return m, fmt.Errorf("verifying refund signed by payee: %w", err)
		}
		// Assemble the refund's unlocking proof and check it locally against
		// the funding output's locking condition before relying on it.
		unlock, err := script.MultiSigUnlock(m.PayerRefundSig, m.PayeeRefundSig, c.fundingRedeem)
		if err != nil {
			return m, err
		}
		refund.TxIn[0].SignatureScript = unlock
		err = script.Verify(c.fundingPkScript, refund, 0, c.capacity)
		if err != nil {
			return m, fmt.Errorf("verifying refund unlocking proof: %w", err)
		}
	}

	c.fundingTx = funding
	c.fundingOutpoint = fundingOutpoint
	c.payerRefundSig = m.PayerRefundSig
	c.payeeRefundSig = m.PayeeRefundSig

	return m, nil
}

// FundingConfirmed transitions the channel from unfunded to open. It is
// called when confirmation of the funding transaction is reported by an
// external chain observer, with the height at which the funding confirmed.
func (c *Channel) FundingConfirmed(height int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateUnfunded || c.fundingTx == nil {
		return fmt.Errorf("funding confirmation in state %s: %w", c.state, ErrInvalidStateTransition)
	}
	if c.payer && len(c.payeeRefundSig) == 0 {
		return fmt.Errorf("funding confirmed before refund was countersigned: %w", ErrInvalidStateTransition)
	}

	c.state = StateOpen
	c.fundingHeight = height
	return nil
}

// FundingTx returns the funding transaction as exchanged during the open,
// signed by the payer and ready for broadcast.
func (c *Channel) FundingTx() (*wire.MsgTx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fundingTx == nil {
		return nil, fmt.Errorf("no open has been proposed or confirmed: %w", ErrInvalidStateTransition)
	}
	return c.fundingTx, nil
}

func (c *Channel) buildRefund(fundingOutpoint wire.OutPoint) (*wire.MsgTx, error) {
	return txbuild.Refund(txbuild.RefundParams{
		FundingOutpoint: fundingOutpoint,
		Capacity:        c.capacity,
		Delay:           c.delay,
		PayerRefundKey:  c.payerRefundKey,
		NetParams:       c.netParams,
	})
}
