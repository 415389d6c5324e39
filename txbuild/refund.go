package txbuild

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/d11dpool/channel/script"
)

// maxRefundDelay is the largest relative-timelock delay expressible in the
// sequence field's block-count range.
const maxRefundDelay = wire.SequenceLockTimeMask

// RefundParams are the parameters for building the channel refund
// transaction.
type RefundParams struct {
	FundingOutpoint wire.OutPoint
	Capacity        btcutil.Amount

	// Delay is the relative timelock in blocks. The refund is
	// consensus-invalid until Delay blocks after the funding output
	// confirms.
	Delay uint32

	PayerRefundKey *btcec.PublicKey

	NetParams *chaincfg.Params
}

// Refund builds the channel refund transaction: it spends the funding output
// back to the payer in full, and carries the relative timelock delay in the
// funding input's sequence field. Both participants must sign it; the payee
// signs once during the open, before the channel is considered safely open,
// as the payer's protection if the payee disappears.
//
// If the refund is broadcast while the payee holds an unsettled entitlement,
// the payer recovers the full capacity and the payee's claim is void. That is
// the economic penalty for payee non-responsiveness, not an accounting bug.
func Refund(p RefundParams) (*wire.MsgTx, error) {
	if p.Capacity <= 0 {
		return nil, errors.New("invalid capacity: must be positive")
	}
	if p.Delay == 0 || p.Delay > maxRefundDelay {
		return nil, fmt.Errorf("invalid refund delay %d: must be in [1, %d]", p.Delay, maxRefundDelay)
	}

	refundScript, err := script.P2PKH(p.PayerRefundKey, p.NetParams)
	if err != nil {
		return nil, fmt.Errorf("building refund output script: %w", err)
	}

	// Version 2 is required for the sequence field to be interpreted as a
	// relative locktime.
	t := wire.NewMsgTx(2)
	t.AddTxIn(&wire.TxIn{
		PreviousOutPoint: p.FundingOutpoint,
		Sequence:         p.Delay,
	})
	t.AddTxOut(wire.NewTxOut(int64(p.Capacity), refundScript))
	return t, nil
}
