package submit

import (
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	sendErr    error
	txOut      *btcjson.GetTxOutResult
	blockCount int64
}

func (c *fakeClient) SendRawTransaction(t *wire.MsgTx, allowHighFees bool) (*chainhash.Hash, error) {
	if c.sendErr != nil {
		return nil, c.sendErr
	}
	hash := t.TxHash()
	return &hash, nil
}

func (c *fakeClient) GetTxOut(txHash *chainhash.Hash, index uint32, mempool bool) (*btcjson.GetTxOutResult, error) {
	return c.txOut, nil
}

func (c *fakeClient) GetBlockCount() (int64, error) {
	return c.blockCount, nil
}

func TestSubmitter_SubmitTx(t *testing.T) {
	client := &fakeClient{}
	s := Submitter{Client: client}

	msgTx := wire.NewMsgTx(2)
	msgTx.AddTxOut(wire.NewTxOut(1_000, []byte{0x51}))
	require.NoError(t, s.SubmitTx(msgTx))

	client.sendErr = errors.New("tx rejected")
	err := s.SubmitTx(msgTx)
	require.EqualError(t, err, "submitting tx: tx rejected")
}

func TestObserver_IsConfirmed(t *testing.T) {
	client := &fakeClient{blockCount: 509}
	o := Observer{Client: client}

	op := wire.OutPoint{Index: 0}

	// Output not found.
	confirmed, _, err := o.IsConfirmed(op)
	require.NoError(t, err)
	require.False(t, confirmed)

	// In the mempool only.
	client.txOut = &btcjson.GetTxOutResult{Confirmations: 0}
	confirmed, _, err = o.IsConfirmed(op)
	require.NoError(t, err)
	require.False(t, confirmed)

	// Confirmed 10 blocks ago at height 500.
	client.txOut = &btcjson.GetTxOutResult{Confirmations: 10}
	confirmed, height, err := o.IsConfirmed(op)
	require.NoError(t, err)
	require.True(t, confirmed)
	require.Equal(t, int32(500), height)
}

func TestObserver_CurrentHeight(t *testing.T) {
	o := Observer{Client: &fakeClient{blockCount: 1234}}
	height, err := o.CurrentHeight()
	require.NoError(t, err)
	require.Equal(t, int32(1234), height)
}
