package state

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_restoresChannel(t *testing.T) {
	payerChannel, payeeChannel := testOpenChannelPair(t, 100_000, 144, 500)

	update, err := payerChannel.ProposePayment(5_000)
	require.NoError(t, err)
	_, err = payeeChannel.ConfirmPayment(update)
	require.NoError(t, err)

	config := Config{
		NetParams:      payeeChannel.netParams,
		Capacity:       payeeChannel.capacity,
		Delay:          payeeChannel.delay,
		PayerKey:       payeeChannel.payerKey,
		PayeeKey:       payeeChannel.payeeKey,
		PayerRefundKey: payeeChannel.payerRefundKey,
		LocalSigner:    payeeChannel.localSigner,
	}
	restored, err := NewChannelFromSnapshot(config, payeeChannel.Snapshot())
	require.NoError(t, err)

	require.Equal(t, StateOpen, restored.State())
	require.Equal(t, btcutil.Amount(5_000), restored.Balance())
	require.Equal(t, uint64(1), restored.UpdateNumber())
	require.Equal(t, payeeChannel.FundingOutpoint(), restored.FundingOutpoint())
	require.Equal(t, int32(500), restored.FundingHeight())
	require.True(t, restored.LatestUpdate().Equal(payeeChannel.LatestUpdate()))

	// The restored payee can settle straight away.
	settlement, err := restored.Settle()
	require.NoError(t, err)
	require.Equal(t, int64(5_000), settlement.TxOut[0].Value)
	require.Equal(t, StateClosed, restored.State())
}

func TestSnapshot_restoresUnfundedChannel(t *testing.T) {
	payerChannel, _, _, _ := testChannelPair(t, 100_000, 144)

	config := Config{
		NetParams:      payerChannel.netParams,
		Payer:          true,
		Capacity:       payerChannel.capacity,
		Delay:          payerChannel.delay,
		PayerKey:       payerChannel.payerKey,
		PayeeKey:       payerChannel.payeeKey,
		PayerRefundKey: payerChannel.payerRefundKey,
		LocalSigner:    payerChannel.localSigner,
	}
	restored, err := NewChannelFromSnapshot(config, payerChannel.Snapshot())
	require.NoError(t, err)
	require.Equal(t, StateUnfunded, restored.State())
	require.Nil(t, restored.fundingTx)
}

func TestSnapshot_rejectsUnknownState(t *testing.T) {
	payerChannel, _, _, _ := testChannelPair(t, 100_000, 144)

	config := Config{
		NetParams:      payerChannel.netParams,
		Payer:          true,
		Capacity:       payerChannel.capacity,
		Delay:          payerChannel.delay,
		PayerKey:       payerChannel.payerKey,
		PayeeKey:       payerChannel.payeeKey,
		PayerRefundKey: payerChannel.payerRefundKey,
		LocalSigner:    payerChannel.localSigner,
	}
	s := payerChannel.Snapshot()
	s.State = State("corrupt")
	_, err := NewChannelFromSnapshot(config, s)
	require.ErrorIs(t, err, ErrInvalidStateTransition)
}
