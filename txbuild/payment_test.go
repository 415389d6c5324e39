package txbuild

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayment(t *testing.T) {
	_, payee, refundKey := testKeys(t)

	tx, err := Payment(PaymentParams{
		FundingOutpoint: testFundingOutpoint(),
		Capacity:        100_000,
		AmountToPayee:   1_000,
		PayerRefundKey:  refundKey,
		PayeeKey:        payee,
		NetParams:       &chaincfg.RegressionNetParams,
	})
	require.NoError(t, err)

	require.Len(t, tx.TxOut, 2)
	assert.EqualValues(t, 1_000, tx.TxOut[0].Value)
	assert.EqualValues(t, 99_000, tx.TxOut[1].Value)

	// No timelock: the payment is valid the moment it is fully signed.
	require.Len(t, tx.TxIn, 1)
	assert.Equal(t, uint32(wire.MaxTxInSequenceNum), tx.TxIn[0].Sequence)
	assert.EqualValues(t, 0, tx.LockTime)
}

func TestPayment_conservation(t *testing.T) {
	_, payee, refundKey := testKeys(t)

	for _, amount := range []int64{1, 1_000, 50_000, 99_999} {
		tx, err := Payment(PaymentParams{
			FundingOutpoint: testFundingOutpoint(),
			Capacity:        100_000,
			AmountToPayee:   btcutil.Amount(amount),
			PayerRefundKey:  refundKey,
			PayeeKey:        payee,
			NetParams:       &chaincfg.RegressionNetParams,
		})
		require.NoError(t, err)
		total := int64(0)
		for _, out := range tx.TxOut {
			total += out.Value
		}
		assert.EqualValues(t, 100_000, total, "amount %d", amount)
	}
}

func TestPayment_zeroValueOutputsOmitted(t *testing.T) {
	_, payee, refundKey := testKeys(t)

	// Nothing owed to the payee yet.
	tx, err := Payment(PaymentParams{
		FundingOutpoint: testFundingOutpoint(),
		Capacity:        100_000,
		AmountToPayee:   0,
		PayerRefundKey:  refundKey,
		PayeeKey:        payee,
		NetParams:       &chaincfg.RegressionNetParams,
	})
	require.NoError(t, err)
	require.Len(t, tx.TxOut, 1)
	assert.EqualValues(t, 100_000, tx.TxOut[0].Value)

	// The whole capacity owed to the payee.
	tx, err = Payment(PaymentParams{
		FundingOutpoint: testFundingOutpoint(),
		Capacity:        100_000,
		AmountToPayee:   100_000,
		PayerRefundKey:  refundKey,
		PayeeKey:        payee,
		NetParams:       &chaincfg.RegressionNetParams,
	})
	require.NoError(t, err)
	require.Len(t, tx.TxOut, 1)
	assert.EqualValues(t, 100_000, tx.TxOut[0].Value)
}

func TestPayment_amountBounds(t *testing.T) {
	_, payee, refundKey := testKeys(t)

	_, err := Payment(PaymentParams{
		FundingOutpoint: testFundingOutpoint(),
		Capacity:        100_000,
		AmountToPayee:   100_001,
		PayerRefundKey:  refundKey,
		PayeeKey:        payee,
		NetParams:       &chaincfg.RegressionNetParams,
	})
	assert.EqualError(t, err, "invalid amount to payee 100001: must be in [0, 100000]")

	_, err = Payment(PaymentParams{
		FundingOutpoint: testFundingOutpoint(),
		Capacity:        100_000,
		AmountToPayee:   -1,
		PayerRefundKey:  refundKey,
		PayeeKey:        payee,
		NetParams:       &chaincfg.RegressionNetParams,
	})
	assert.EqualError(t, err, "invalid amount to payee -1: must be in [0, 100000]")
}

func TestPayment_deterministic(t *testing.T) {
	_, payee, refundKey := testKeys(t)

	p := PaymentParams{
		FundingOutpoint: testFundingOutpoint(),
		Capacity:        100_000,
		AmountToPayee:   5_000,
		PayerRefundKey:  refundKey,
		PayeeKey:        payee,
		NetParams:       &chaincfg.RegressionNetParams,
	}
	tx1, err := Payment(p)
	require.NoError(t, err)
	tx2, err := Payment(p)
	require.NoError(t, err)
	assert.Equal(t, tx1.TxHash(), tx2.TxHash())
}

func TestSettlement_matchesFinalPayment(t *testing.T) {
	_, payee, refundKey := testKeys(t)

	settlement, err := Settlement(SettlementParams{
		FundingOutpoint: testFundingOutpoint(),
		Capacity:        100_000,
		AmountToPayee:   5_000,
		PayerRefundKey:  refundKey,
		PayeeKey:        payee,
		NetParams:       &chaincfg.RegressionNetParams,
	})
	require.NoError(t, err)
	payment, err := Payment(PaymentParams{
		FundingOutpoint: testFundingOutpoint(),
		Capacity:        100_000,
		AmountToPayee:   5_000,
		PayerRefundKey:  refundKey,
		PayeeKey:        payee,
		NetParams:       &chaincfg.RegressionNetParams,
	})
	require.NoError(t, err)
	assert.Equal(t, payment.TxHash(), settlement.TxHash())
}
