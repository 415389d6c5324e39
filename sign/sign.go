// Package sign produces and verifies digital signatures over a transaction's
// signature hash for a given input, key, and sighash flag.
package sign

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// ErrVerification indicates a signature does not satisfy its locking
// condition. A transaction and signature pair failing verification is
// discarded, never silently accepted.
var ErrVerification = errors.New("signature verification failed")

// KeyProvider supplies the local party's private key material to the Signer.
// The Signer never persists or logs key material.
type KeyProvider interface {
	PrivateKey() (*btcec.PrivateKey, error)
}

// KeyProviderFunc adapts a function to the KeyProvider interface.
type KeyProviderFunc func() (*btcec.PrivateKey, error)

func (f KeyProviderFunc) PrivateKey() (*btcec.PrivateKey, error) {
	return f()
}

// Signer signs transaction inputs with the key supplied by its KeyProvider.
type Signer struct {
	Keys KeyProvider
}

// PublicKey returns the public key corresponding to the signing key.
func (s *Signer) PublicKey() (*btcec.PublicKey, error) {
	key, err := s.Keys.PrivateKey()
	if err != nil {
		return nil, fmt.Errorf("getting private key: %w", err)
	}
	return key.PubKey(), nil
}

// SignInput returns a detached signature for the given input, signing the
// transaction's signature hash computed over the given script with the given
// sighash flag. The returned bytes are DER with the sighash flag appended,
// ready for inclusion in an unlocking script.
func (s *Signer) SignInput(t *wire.MsgTx, inputIndex int, subScript []byte,
	flag txscript.SigHashType) ([]byte, error) {

	key, err := s.Keys.PrivateKey()
	if err != nil {
		return nil, fmt.Errorf("getting private key: %w", err)
	}
	sig, err := txscript.RawTxInSignature(t, inputIndex, subScript, flag, key)
	if err != nil {
		return nil, fmt.Errorf("signing input %d: %w", inputIndex, err)
	}
	return sig, nil
}

// SignatureScript returns a complete pay-to-pubkey-hash unlocking script for
// the given input, used when signing the payer-owned inputs of the funding
// transaction.
func (s *Signer) SignatureScript(t *wire.MsgTx, inputIndex int,
	prevPkScript []byte, flag txscript.SigHashType) ([]byte, error) {

	key, err := s.Keys.PrivateKey()
	if err != nil {
		return nil, fmt.Errorf("getting private key: %w", err)
	}
	sigScript, err := txscript.SignatureScript(t, inputIndex, prevPkScript, flag, key, true)
	if err != nil {
		return nil, fmt.Errorf("signing input %d: %w", inputIndex, err)
	}
	return sigScript, nil
}

// SigHash returns the digest a signature for the given input commits to.
func SigHash(t *wire.MsgTx, inputIndex int, subScript []byte,
	flag txscript.SigHashType) ([]byte, error) {

	digest, err := txscript.CalcSignatureHash(subScript, flag, t, inputIndex)
	if err != nil {
		return nil, fmt.Errorf("computing signature hash for input %d: %w", inputIndex, err)
	}
	return digest, nil
}

// Verify checks that a detached signature, as produced by SignInput, is a
// valid signature over the digest by the given key.
func Verify(sig, digest []byte, key *btcec.PublicKey) error {
	if len(sig) < 1 {
		return fmt.Errorf("empty signature: %w", ErrVerification)
	}
	// Strip the appended sighash flag before parsing the DER signature.
	parsed, err := ecdsa.ParseDERSignature(sig[:len(sig)-1])
	if err != nil {
		return fmt.Errorf("parsing signature: %v: %w", err, ErrVerification)
	}
	if !parsed.Verify(digest, key) {
		return ErrVerification
	}
	return nil
}
