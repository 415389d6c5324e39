package script

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// Verify executes the script engine over the given input of the transaction
// and reports whether the input's unlocking script satisfies the locking
// script of the output it spends. It is a local check only and does not
// consult the chain.
func Verify(pkScript []byte, t *wire.MsgTx, inputIndex int, value btcutil.Amount) error {
	if inputIndex < 0 || inputIndex >= len(t.TxIn) {
		return fmt.Errorf("verifying input %d: transaction has %d inputs", inputIndex, len(t.TxIn))
	}
	prevOuts := txscript.NewCannedPrevOutputFetcher(pkScript, int64(value))
	vm, err := txscript.NewEngine(
		pkScript, t, inputIndex, txscript.StandardVerifyFlags, nil, nil,
		int64(value), prevOuts,
	)
	if err != nil {
		return fmt.Errorf("constructing script engine: %w", err)
	}
	err = vm.Execute()
	if err != nil {
		return fmt.Errorf("executing script: %w", err)
	}
	return nil
}
