package state

import (
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/d11dpool/channel/script"
	"github.com/d11dpool/channel/sign"
	"github.com/d11dpool/channel/txbuild"
)

// A channel ends one of two ways. In the cooperative case the payee settles:
// it counter-signs the latest authorized payment and broadcasts it, paying
// each party its final balance. In the abandonment case the payer waits out
// the relative timelock and broadcasts the refund, recovering the full
// capacity. Settling any earlier update would only pay the payee less, so
// the payee always settles at the latest.

// Settle finalizes the channel at the latest authorized update. It is called
// by the payee. The returned transaction carries both signatures on the
// funding output and is ready for broadcast. The channel transitions to
// closed; no further updates are accepted.
func (c *Channel) Settle() (*wire.MsgTx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.payer {
		return nil, fmt.Errorf("settling: only the payee settles: %w", ErrInvalidStateTransition)
	}
	if c.state != StateOpen {
		return nil, fmt.Errorf("settling in state %s: %w", c.state, ErrInvalidStateTransition)
	}
	if c.latestUpdate.isEmpty() {
		return nil, fmt.Errorf("settling with no authorized update: %w", ErrInvalidStateTransition)
	}

	settlement, err := txbuild.Settlement(txbuild.SettlementParams{
		FundingOutpoint: c.fundingOutpoint,
		Capacity:        c.capacity,
		AmountToPayee:   c.latestUpdate.Details.Balance,
		PayerRefundKey:  c.payerRefundKey,
		PayeeKey:        c.payeeKey,
		NetParams:       c.netParams,
	})
	if err != nil {
		return nil, fmt.Errorf("building settlement tx: %w", err)
	}
	payeeSig, err := c.localSigner.SignInput(settlement, 0, c.fundingRedeem, txscript.SigHashAll)
	if err != nil {
		return nil, fmt.Errorf("signing settlement tx: %w", err)
	}
	unlock, err := script.MultiSigUnlock(c.latestUpdate.PayerSig, payeeSig, c.fundingRedeem)
	if err != nil {
		return nil, err
	}
	settlement.TxIn[0].SignatureScript = unlock
	err = script.Verify(c.fundingPkScript, settlement, 0, c.capacity)
	if err != nil {
		return nil, fmt.Errorf("verifying settlement unlocking proof: %w", err)
	}

	c.state = StateClosed
	return settlement, nil
}

// ConfirmSettle transitions the channel to closed. It is called by the payer
// when the payee reports the channel settled, or when a settlement spending
// the funding output is seen on chain.
func (c *Channel) ConfirmSettle() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpen {
		return fmt.Errorf("confirming settle in state %s: %w", c.state, ErrInvalidStateTransition)
	}
	c.state = StateClosed
	return nil
}

// ConfirmExpire transitions the channel to expired. It is called by the
// payee when a refund spending the funding output is seen on chain.
func (c *Channel) ConfirmExpire() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpen {
		return fmt.Errorf("confirming expire in state %s: %w", c.state, ErrInvalidStateTransition)
	}
	c.state = StateExpired
	return nil
}

// Expire finalizes the channel through the refund path. It is called by the
// payer with the current chain height once the relative timelock on the
// refund has matured, at or after the funding confirmation height plus the
// channel delay. The returned transaction carries both signatures on the
// funding output and is ready for broadcast. The channel transitions to
// expired.
func (c *Channel) Expire(currentHeight int32) (*wire.MsgTx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.payer {
		return nil, fmt.Errorf("expiring: only the payer expires: %w", ErrInvalidStateTransition)
	}
	if c.state != StateOpen {
		return nil, fmt.Errorf("expiring in state %s: %w", c.state, ErrInvalidStateTransition)
	}
	matureHeight := c.fundingHeight + int32(c.delay)
	if currentHeight < matureHeight {
		return nil, fmt.Errorf("expiring at height %d before refund matures at height %d: %w",
			currentHeight, matureHeight, ErrInvalidStateTransition)
	}
	if len(c.payerRefundSig) == 0 || len(c.payeeRefundSig) == 0 {
		return nil, fmt.Errorf("expiring without a fully signed refund: %w", sign.ErrVerification)
	}

	refund, err := c.buildRefund(c.fundingOutpoint)
	if err != nil {
		return nil, fmt.Errorf("building refund tx: %w", err)
	}
	unlock, err := script.MultiSigUnlock(c.payerRefundSig, c.payeeRefundSig, c.fundingRedeem)
	if err != nil {
		return nil, err
	}
	refund.TxIn[0].SignatureScript = unlock
	err = script.Verify(c.fundingPkScript, refund, 0, c.capacity)
	if err != nil {
		return nil, fmt.Errorf("verifying refund unlocking proof: %w", err)
	}

	c.state = StateExpired
	return refund, nil
}
