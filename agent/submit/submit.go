// Package submit implements transaction broadcast and chain observation
// against a btcd or bitcoind JSON-RPC node.
package submit

import (
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
)

// Connect dials the node over HTTP POST mode and returns a Submitter and an
// Observer sharing the connection.
func Connect(cfg *rpcclient.ConnConfig) (*Submitter, *Observer, error) {
	client, err := rpcclient.New(cfg, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to node: %w", err)
	}
	return &Submitter{Client: client}, &Observer{Client: client}, nil
}

// RPCClient is the subset of the rpcclient.Client methods the package uses,
// so that a fake can stand in for the node in tests.
type RPCClient interface {
	SendRawTransaction(t *wire.MsgTx, allowHighFees bool) (*chainhash.Hash, error)
	GetTxOut(txHash *chainhash.Hash, index uint32, mempool bool) (*btcjson.GetTxOutResult, error)
	GetBlockCount() (int64, error)
}

// Submitter broadcasts transactions to the network via the node.
type Submitter struct {
	Client RPCClient
}

// SubmitTx broadcasts the transaction.
func (s *Submitter) SubmitTx(t *wire.MsgTx) error {
	hash, err := s.Client.SendRawTransaction(t, false)
	if err != nil {
		return fmt.Errorf("submitting tx: %w", err)
	}
	if want := t.TxHash(); *hash != want {
		return fmt.Errorf("submitting tx: node reported hash %s for tx %s", hash, want)
	}
	return nil
}

// Observer reports chain facts via the node.
type Observer struct {
	Client RPCClient
}

// IsConfirmed reports whether the output is an unspent confirmed output, and
// if so the height of the transaction that created it.
func (o *Observer) IsConfirmed(op wire.OutPoint) (bool, int32, error) {
	out, err := o.Client.GetTxOut(&op.Hash, op.Index, false)
	if err != nil {
		return false, 0, fmt.Errorf("getting tx out %s: %w", op, err)
	}
	if out == nil || out.Confirmations == 0 {
		return false, 0, nil
	}
	height, err := o.Client.GetBlockCount()
	if err != nil {
		return false, 0, fmt.Errorf("getting block count: %w", err)
	}
	confirmedAt := int32(height - out.Confirmations + 1)
	return true, confirmedAt, nil
}

// CurrentHeight returns the current chain height.
func (o *Observer) CurrentHeight() (int32, error) {
	height, err := o.Client.GetBlockCount()
	if err != nil {
		return 0, fmt.Errorf("getting block count: %w", err)
	}
	return int32(height), nil
}
