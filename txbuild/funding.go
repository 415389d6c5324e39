// Package txbuild builds the transactions that make up a one-way payment
// channel: funding, refund, payment, and settlement.
//
// Builders are pure functions of their params: identical params always yield
// byte-identical unsigned transactions, so both participants can construct
// and agree on a transaction independently before exchanging signatures.
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

// FundingInput is a payer-supplied outpoint contributing value to the channel
// funding transaction.
type FundingInput struct {
	Outpoint wire.OutPoint
	Value    btcutil.Amount

	// PkScript is the locking script of the spent output, required to sign
	// the input.
	PkScript []byte
}

// FundingParams are the parameters for building the channel funding
// transaction.
type FundingParams struct {
	Inputs   []FundingInput
	Capacity btcutil.Amount
	PayerKey *btcec.PublicKey
	PayeeKey *btcec.PublicKey

	// ChangeKey receives any input value in excess of the capacity. Required
	// when the inputs overpay.
	ChangeKey *btcec.PublicKey

	NetParams *chaincfg.Params
}

// FundingOutputIndex is the index of the 2-of-2 channel output in the funding
// transaction.
const FundingOutputIndex = 0

// Funding builds the channel funding transaction: the payer's inputs paying a
// single output of value capacity locked by a 2-of-2 multisignature condition
// over the payer and payee keys, with any excess returned to the payer as
// change. Only the payer signs, since the payer owns the funding inputs.
func Funding(p FundingParams) (*wire.MsgTx, error) {
	if p.Capacity <= 0 {
		return nil, errors.New("invalid capacity: must be positive")
	}
	if len(p.Inputs) == 0 {
		return nil, errors.New("funding requires at least one input")
	}
	total := btcutil.Amount(0)
	for _, in := range p.Inputs {
		if in.Value <= 0 {
			return nil, fmt.Errorf("invalid input value %d: must be positive", in.Value)
		}
		total += in.Value
	}
	if total < p.Capacity {
		return nil, fmt.Errorf("inputs %d do not cover capacity %d", total, p.Capacity)
	}
	change := total - p.Capacity
	if change > 0 && p.ChangeKey == nil {
		return nil, fmt.Errorf("inputs overpay capacity by %d and no change key is set", change)
	}

	redeem, err := script.MultiSig(p.PayerKey, p.PayeeKey)
	if err != nil {
		return nil, fmt.Errorf("building 2-of-2 redeem script: %w", err)
	}
	pkScript, err := script.MultiSigPkScript(redeem, p.NetParams)
	if err != nil {
		return nil, fmt.Errorf("building funding output script: %w", err)
	}

	t := wire.NewMsgTx(2)
	for _, in := range p.Inputs {
		t.AddTxIn(&wire.TxIn{
			PreviousOutPoint: in.Outpoint,
			Sequence:         wire.MaxTxInSequenceNum,
		})
	}
	t.AddTxOut(wire.NewTxOut(int64(p.Capacity), pkScript))
	if change > 0 {
		changeScript, err := script.P2PKH(p.ChangeKey, p.NetParams)
		if err != nil {
			return nil, fmt.Errorf("building change output script: %w", err)
		}
		t.AddTxOut(wire.NewTxOut(int64(change), changeScript))
	}
	return t, nil
}
