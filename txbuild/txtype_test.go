package txbuild

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d11dpool/channel/script"
	"github.com/d11dpool/channel/sign"
)

func TestClassify(t *testing.T) {
	payer, payee, refundKey := testKeys(t)

	funding, err := Funding(FundingParams{
		Inputs:    []FundingInput{testInput(100_000)},
		Capacity:  100_000,
		PayerKey:  payer,
		PayeeKey:  payee,
		NetParams: &chaincfg.RegressionNetParams,
	})
	require.NoError(t, err)
	fundingHash := funding.TxHash()
	fundingOutpoint := *wire.NewOutPoint(&fundingHash, FundingOutputIndex)
	fundingPkScript := funding.TxOut[FundingOutputIndex].PkScript

	refund, err := Refund(RefundParams{
		FundingOutpoint: fundingOutpoint,
		Capacity:        100_000,
		Delay:           144,
		PayerRefundKey:  refundKey,
		NetParams:       &chaincfg.RegressionNetParams,
	})
	require.NoError(t, err)

	payment, err := Payment(PaymentParams{
		FundingOutpoint: fundingOutpoint,
		Capacity:        100_000,
		AmountToPayee:   1_000,
		PayerRefundKey:  refundKey,
		PayeeKey:        payee,
		NetParams:       &chaincfg.RegressionNetParams,
	})
	require.NoError(t, err)

	settlement, err := Settlement(SettlementParams{
		FundingOutpoint: fundingOutpoint,
		Capacity:        100_000,
		AmountToPayee:   100_000,
		PayerRefundKey:  refundKey,
		PayeeKey:        payee,
		NetParams:       &chaincfg.RegressionNetParams,
	})
	require.NoError(t, err)

	assert.Equal(t, TransactionTypeFunding, Classify(funding, fundingOutpoint, fundingPkScript))
	assert.Equal(t, TransactionTypeRefund, Classify(refund, fundingOutpoint, fundingPkScript))
	assert.Equal(t, TransactionTypePayment, Classify(payment, fundingOutpoint, fundingPkScript))
	assert.Equal(t, TransactionTypeSettlement, Classify(settlement, fundingOutpoint, fundingPkScript))

	// A transaction unrelated to the channel.
	otherScript, err := script.P2PKH(refundKey, &chaincfg.RegressionNetParams)
	require.NoError(t, err)
	prev := chainhash.Hash{0xee}
	unrelated := wire.NewMsgTx(2)
	unrelated.AddTxIn(&wire.TxIn{
		PreviousOutPoint: *wire.NewOutPoint(&prev, 3),
		Sequence:         wire.MaxTxInSequenceNum,
	})
	unrelated.AddTxOut(wire.NewTxOut(5_000, otherScript))
	assert.Equal(t, TransactionTypeUnrecognized, Classify(unrelated, fundingOutpoint, fundingPkScript))
}

func TestTransactionType_requiredSigners(t *testing.T) {
	assert.Equal(t, []sign.Party{sign.PartyPayer}, TransactionTypeFunding.RequiredSigners())
	assert.Equal(t, []sign.Party{sign.PartyPayer, sign.PartyPayee}, TransactionTypeRefund.RequiredSigners())
	assert.Equal(t, []sign.Party{sign.PartyPayer, sign.PartyPayee}, TransactionTypePayment.RequiredSigners())
	assert.Equal(t, []sign.Party{sign.PartyPayer, sign.PartyPayee}, TransactionTypeSettlement.RequiredSigners())
	assert.Nil(t, TransactionTypeUnrecognized.RequiredSigners())
}
