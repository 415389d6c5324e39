package txbuild

import (
	"bytes"

	"github.com/btcsuite/btcd/wire"

	"github.com/d11dpool/channel/sign"
)

// TransactionType is the closed set of channel transaction variants.
type TransactionType string

const (
	TransactionTypeUnrecognized TransactionType = "unrecognized"
	TransactionTypeFunding      TransactionType = "funding"
	TransactionTypeRefund       TransactionType = "refund"
	TransactionTypePayment      TransactionType = "payment"
	TransactionTypeSettlement   TransactionType = "settlement"
)

// RequiredSigners returns the parties whose signatures a transaction variant
// needs to be valid on-chain. The funding transaction spends only
// payer-owned inputs; every other variant spends the 2-of-2 funding output
// and needs both parties.
func (t TransactionType) RequiredSigners() []sign.Party {
	switch t {
	case TransactionTypeFunding:
		return []sign.Party{sign.PartyPayer}
	case TransactionTypeRefund, TransactionTypePayment, TransactionTypeSettlement:
		return []sign.Party{sign.PartyPayer, sign.PartyPayee}
	}
	return nil
}

// Classify reports which channel transaction variant a transaction is, based
// on its shape relative to the channel's funding outpoint and funding output
// script. Transactions that neither create nor spend the funding output are
// unrecognized.
func Classify(t *wire.MsgTx, fundingOutpoint wire.OutPoint, fundingPkScript []byte) TransactionType {
	spendsFunding := false
	var fundingIn *wire.TxIn
	for _, in := range t.TxIn {
		if in.PreviousOutPoint == fundingOutpoint {
			spendsFunding = true
			fundingIn = in
			break
		}
	}

	if !spendsFunding {
		for i, out := range t.TxOut {
			if i == FundingOutputIndex && bytes.Equal(out.PkScript, fundingPkScript) {
				return TransactionTypeFunding
			}
		}
		return TransactionTypeUnrecognized
	}

	// A timelocked spend of the funding output is the refund; a final spend
	// splitting into two outputs is a payment, and a final spend collapsing
	// to a single output is the settlement of the whole balance to one side.
	if fundingIn.Sequence != wire.MaxTxInSequenceNum {
		return TransactionTypeRefund
	}
	switch len(t.TxOut) {
	case 2:
		return TransactionTypePayment
	case 1:
		return TransactionTypeSettlement
	}
	return TransactionTypeUnrecognized
}
