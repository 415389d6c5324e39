package txbuild

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFundingOutpoint() wire.OutPoint {
	hash := chainhash.Hash{0xfa, 0xce}
	return *wire.NewOutPoint(&hash, FundingOutputIndex)
}

func TestRefund(t *testing.T) {
	_, _, refundKey := testKeys(t)

	tx, err := Refund(RefundParams{
		FundingOutpoint: testFundingOutpoint(),
		Capacity:        100_000,
		Delay:           144,
		PayerRefundKey:  refundKey,
		NetParams:       &chaincfg.RegressionNetParams,
	})
	require.NoError(t, err)

	// The full capacity returns to the payer.
	require.Len(t, tx.TxOut, 1)
	assert.EqualValues(t, 100_000, tx.TxOut[0].Value)

	// The relative timelock is carried in the funding input's sequence, and
	// version 2 makes the sequence a relative locktime.
	require.Len(t, tx.TxIn, 1)
	assert.Equal(t, uint32(144), tx.TxIn[0].Sequence)
	assert.EqualValues(t, 2, tx.Version)
	assert.Equal(t, testFundingOutpoint(), tx.TxIn[0].PreviousOutPoint)
}

func TestRefund_delayBounds(t *testing.T) {
	_, _, refundKey := testKeys(t)

	_, err := Refund(RefundParams{
		FundingOutpoint: testFundingOutpoint(),
		Capacity:        100_000,
		Delay:           0,
		PayerRefundKey:  refundKey,
		NetParams:       &chaincfg.RegressionNetParams,
	})
	assert.EqualError(t, err, "invalid refund delay 0: must be in [1, 65535]")

	_, err = Refund(RefundParams{
		FundingOutpoint: testFundingOutpoint(),
		Capacity:        100_000,
		Delay:           65536,
		PayerRefundKey:  refundKey,
		NetParams:       &chaincfg.RegressionNetParams,
	})
	assert.EqualError(t, err, "invalid refund delay 65536: must be in [1, 65535]")
}

func TestRefund_deterministic(t *testing.T) {
	_, _, refundKey := testKeys(t)

	p := RefundParams{
		FundingOutpoint: testFundingOutpoint(),
		Capacity:        100_000,
		Delay:           144,
		PayerRefundKey:  refundKey,
		NetParams:       &chaincfg.RegressionNetParams,
	}
	tx1, err := Refund(p)
	require.NoError(t, err)
	tx2, err := Refund(p)
	require.NoError(t, err)
	assert.Equal(t, tx1.TxHash(), tx2.TxHash())
}
