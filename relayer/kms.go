package relayer

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/confidential-polls/crypto/ecc"
	"github.com/vocdoni/confidential-polls/fhe"
	"github.com/vocdoni/confidential-polls/storage"
	"github.com/vocdoni/confidential-polls/types"
)

// DefaultMaxValue bounds the plaintexts the KMS searches for. Tallies never
// exceed the member limit of a platform.
const DefaultMaxValue = 1 << 20

// KMS holds the network private key and decrypts stored ciphertexts.
type KMS struct {
	stg        *storage.Storage
	publicKey  ecc.Point
	privateKey *big.Int
	maxValue   uint64
}

// NewKMS returns a KMS decrypting the ciphertexts of stg. The keys are
// usually obtained with fhe.LoadOrGenerateKeys.
func NewKMS(stg *storage.Storage, publicKey ecc.Point, privateKey *big.Int, maxValue uint64) (*KMS, error) {
	if stg == nil || publicKey == nil || privateKey == nil {
		return nil, fhe.ErrNotInitialized
	}
	if maxValue == 0 {
		maxValue = DefaultMaxValue
	}
	return &KMS{stg: stg, publicKey: publicKey, privateKey: privateKey, maxValue: maxValue}, nil
}

// Decrypt returns the plaintext behind handle.
func (k *KMS) Decrypt(handle types.Handle) (*big.Int, error) {
	var data []byte
	if err := k.stg.View(func(tx *storage.Tx) error {
		var err error
		data, err = tx.Ciphertext(handle)
		return err
	}); err != nil {
		return nil, fmt.Errorf("handle %s: %w", handle, err)
	}
	ct, err := fhe.DecodeCiphertext(k.publicKey, data)
	if err != nil {
		return nil, err
	}
	return ct.Decrypt(k.privateKey, k.maxValue)
}
