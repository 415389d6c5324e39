package bufferedagent

import "github.com/btcsuite/btcd/btcutil"

// BufferedPayment contains the details of a payment that is buffered and
// transmitted in the memo of a channel update.
type BufferedPayment struct {
	Amount btcutil.Amount
	Memo   string
}
