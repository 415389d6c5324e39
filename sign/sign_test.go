package sign

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d11dpool/channel/tx"
)

func testSigner(t *testing.T) (*Signer, *btcec.PrivateKey) {
	t.Helper()
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	signer := &Signer{Keys: KeyProviderFunc(func() (*btcec.PrivateKey, error) {
		return key, nil
	})}
	return signer, key
}

func testSpend() (*wire.MsgTx, []byte) {
	prev := chainhash.Hash{0x0a}
	t := wire.NewMsgTx(2)
	t.AddTxIn(&wire.TxIn{
		PreviousOutPoint: *wire.NewOutPoint(&prev, 0),
		Sequence:         wire.MaxTxInSequenceNum,
	})
	t.AddTxOut(wire.NewTxOut(50_000, []byte{0x51}))
	subScript := []byte{0x51}
	return t, subScript
}

func TestSignInput_verifies(t *testing.T) {
	signer, key := testSigner(t)
	spend, subScript := testSpend()

	sig, err := signer.SignInput(spend, 0, subScript, txscript.SigHashAll)
	require.NoError(t, err)

	digest, err := SigHash(spend, 0, subScript, txscript.SigHashAll)
	require.NoError(t, err)

	assert.NoError(t, Verify(sig, digest, key.PubKey()))
}

func TestVerify_wrongKey(t *testing.T) {
	signer, _ := testSigner(t)
	spend, subScript := testSpend()

	sig, err := signer.SignInput(spend, 0, subScript, txscript.SigHashAll)
	require.NoError(t, err)
	digest, err := SigHash(spend, 0, subScript, txscript.SigHashAll)
	require.NoError(t, err)

	otherKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	assert.ErrorIs(t, Verify(sig, digest, otherKey.PubKey()), ErrVerification)
}

func TestVerify_wrongDigest(t *testing.T) {
	signer, key := testSigner(t)
	spend, subScript := testSpend()

	sig, err := signer.SignInput(spend, 0, subScript, txscript.SigHashAll)
	require.NoError(t, err)

	// Change the transaction after signing.
	spend.TxOut[0].Value = 49_999
	digest, err := SigHash(spend, 0, subScript, txscript.SigHashAll)
	require.NoError(t, err)

	assert.ErrorIs(t, Verify(sig, digest, key.PubKey()), ErrVerification)
}

func TestVerify_malformed(t *testing.T) {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	assert.ErrorIs(t, Verify(nil, []byte{0x01}, key.PubKey()), ErrVerification)
	assert.ErrorIs(t, Verify([]byte{0x30, 0x00, 0x01}, []byte{0x01}, key.PubKey()), ErrVerification)
}

func TestBundle(t *testing.T) {
	b := Bundle{}
	hash := tx.Hash{0x01}
	b.Add(hash, 0, PartyPayer, []byte{0xaa})
	b.Add(hash, 0, PartyPayee, []byte{0xbb})

	assert.Equal(t, []byte{0xaa}, b.Get(hash, 0, PartyPayer))
	assert.Equal(t, []byte{0xbb}, b.Get(hash, 0, PartyPayee))
	assert.Nil(t, b.Get(hash, 1, PartyPayer))
	assert.Nil(t, b.Get(tx.Hash{0x02}, 0, PartyPayer))
}
