package decrypt

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/ecies"

	"github.com/vocdoni/confidential-polls/types"
)

// valueLength is the size of a sealed plaintext.
const valueLength = 32

// Keypair is the ephemeral key pair of one decryption attempt. The relayer
// seals plaintexts to its public key; the private key never leaves the
// process.
type Keypair struct {
	private *ecies.PrivateKey
}

// GenerateKeypair returns a fresh secp256k1 keypair.
func GenerateKeypair() (*Keypair, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("could not generate ephemeral key: %w", err)
	}
	return &Keypair{private: ecies.ImportECDSA(key)}, nil
}

// PublicKey returns the uncompressed public key.
func (k *Keypair) PublicKey() types.HexBytes {
	return crypto.FromECDSAPub(k.private.PublicKey.ExportECDSA())
}

// Open decrypts a value the relayer sealed for handle.
func (k *Keypair) Open(handle types.Handle, sealed []byte) (*big.Int, error) {
	plain, err := k.private.Decrypt(sealed, handle.Bytes(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not open sealed value: %w", err)
	}
	if len(plain) != valueLength {
		return nil, fmt.Errorf("invalid sealed value length %d", len(plain))
	}
	return new(big.Int).SetBytes(plain), nil
}

// Seal encrypts value for the holder of publicKey. The handle is used as
// shared info, so a sealed value only opens for the handle it was sealed
// for.
func Seal(publicKey []byte, handle types.Handle, value *big.Int) (types.HexBytes, error) {
	if value == nil || value.Sign() < 0 || value.BitLen() > valueLength*8 {
		return nil, fmt.Errorf("invalid value")
	}
	pub, err := crypto.UnmarshalPubkey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("invalid ephemeral public key: %w", err)
	}
	plain := make([]byte, valueLength)
	value.FillBytes(plain)
	return ecies.Encrypt(rand.Reader, ecies.ImportECDSAPublic(pub), plain, handle.Bytes(), nil)
}
