// Package script builds the locking and unlocking scripts used by channel
// transactions, and locally evaluates that an unlocking proof satisfies its
// locking condition.
package script

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// MultiSig constructs the 2-of-2 multisignature redeem script locking the
// channel funding output. Both the payer and payee signatures are required to
// spend, and signatures must appear in the same order as the keys.
//
// OP_2 <payerKey> <payeeKey> OP_2 OP_CHECKMULTISIG
func MultiSig(payerKey, payeeKey *btcec.PublicKey) ([]byte, error) {
	builder := txscript.NewScriptBuilder()

	builder.AddOp(txscript.OP_2)
	builder.AddData(payerKey.SerializeCompressed())
	builder.AddData(payeeKey.SerializeCompressed())
	builder.AddOp(txscript.OP_2)
	builder.AddOp(txscript.OP_CHECKMULTISIG)

	return builder.Script()
}

// MultiSigPkScript returns the pay-to-script-hash output script for the 2-of-2
// multisignature redeem script.
func MultiSigPkScript(redeem []byte, params *chaincfg.Params) ([]byte, error) {
	address, err := btcutil.NewAddressScriptHash(redeem, params)
	if err != nil {
		return nil, fmt.Errorf("building script hash address: %w", err)
	}
	return txscript.PayToAddrScript(address)
}

// MultiSigUnlock assembles the unlocking script for a 2-of-2 multisignature
// spend from detached signatures. The leading OP_FALSE absorbs the extra
// stack element consumed by OP_CHECKMULTISIG.
//
// OP_FALSE <payerSig> <payeeSig> <redeem>
func MultiSigUnlock(payerSig, payeeSig, redeem []byte) ([]byte, error) {
	builder := txscript.NewScriptBuilder()

	builder.AddOp(txscript.OP_FALSE)
	builder.AddData(payerSig)
	builder.AddData(payeeSig)
	builder.AddData(redeem)

	return builder.Script()
}

// P2PKH returns the pay-to-pubkey-hash output script paying to the given key,
// used for payout outputs (payee entitlement, payer change and refund).
func P2PKH(key *btcec.PublicKey, params *chaincfg.Params) ([]byte, error) {
	address, err := btcutil.NewAddressPubKeyHash(
		btcutil.Hash160(key.SerializeCompressed()), params,
	)
	if err != nil {
		return nil, fmt.Errorf("building pubkey hash address: %w", err)
	}
	return txscript.PayToAddrScript(address)
}
