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

// PaymentParams are the parameters for building a channel payment (update)
// transaction.
type PaymentParams struct {
	FundingOutpoint wire.OutPoint
	Capacity        btcutil.Amount
	AmountToPayee   btcutil.Amount
	PayerRefundKey  *btcec.PublicKey
	PayeeKey        *btcec.PublicKey
	NetParams       *chaincfg.Params
}

// Payment builds a channel payment transaction: it spends the funding output
// into an output of AmountToPayee to the payee and an output of
// Capacity−AmountToPayee back to the payer. Zero-value outputs are omitted.
// It carries no timelock, so it is valid the moment it is fully signed, which
// is exactly why only the most recent update should ever be broadcast.
func Payment(p PaymentParams) (*wire.MsgTx, error) {
	return payout(p)
}

// SettlementParams are the parameters for building the channel settlement
// transaction: the final payout split broadcast when the channel closes
// cooperatively.
type SettlementParams struct {
	FundingOutpoint wire.OutPoint
	Capacity        btcutil.Amount
	AmountToPayee   btcutil.Amount
	PayerRefundKey  *btcec.PublicKey
	PayeeKey        *btcec.PublicKey
	NetParams       *chaincfg.Params
}

// Settlement builds the channel settlement transaction. Settling a one-way
// channel broadcasts the most recent payment split, so the settlement is the
// payment transaction at the channel's final balance.
func Settlement(p SettlementParams) (*wire.MsgTx, error) {
	return payout(PaymentParams(p))
}

func payout(p PaymentParams) (*wire.MsgTx, error) {
	if p.Capacity <= 0 {
		return nil, errors.New("invalid capacity: must be positive")
	}
	if p.AmountToPayee < 0 || p.AmountToPayee > p.Capacity {
		return nil, fmt.Errorf("invalid amount to payee %d: must be in [0, %d]", p.AmountToPayee, p.Capacity)
	}

	t := wire.NewMsgTx(2)
	t.AddTxIn(&wire.TxIn{
		PreviousOutPoint: p.FundingOutpoint,
		Sequence:         wire.MaxTxInSequenceNum,
	})

	// Output order is fixed, payee first, so the unsigned transaction is
	// identical regardless of which participant builds it.
	if p.AmountToPayee > 0 {
		payeeScript, err := script.P2PKH(p.PayeeKey, p.NetParams)
		if err != nil {
			return nil, fmt.Errorf("building payee output script: %w", err)
		}
		t.AddTxOut(wire.NewTxOut(int64(p.AmountToPayee), payeeScript))
	}
	if remainder := p.Capacity - p.AmountToPayee; remainder > 0 {
		payerScript, err := script.P2PKH(p.PayerRefundKey, p.NetParams)
		if err != nil {
			return nil, fmt.Errorf("building payer output script: %w", err)
		}
		t.AddTxOut(wire.NewTxOut(int64(remainder), payerScript))
	}
	return t, nil
}
