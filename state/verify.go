package state

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/sync/errgroup"

	"github.com/d11dpool/channel/sign"
)

type signatureVerificationInput struct {
	Digest    []byte
	Signature []byte
	Key       *btcec.PublicKey
}

func verifySignatures(inputs []signatureVerificationInput) error {
	g := errgroup.Group{}
	for _, i := range inputs {
		i := i
		g.Go(func() error {
			return sign.Verify(i.Signature, i.Digest, i.Key)
		})
	}
	return g.Wait()
}
