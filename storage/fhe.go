package storage

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db"

	"github.com/vocdoni/confidential-polls/types"
)

// EncryptionKeys is the network key pair of the FHE primitive. Public is the
// curve encoding of the public key point.
type EncryptionKeys struct {
	Curve      string         `cbor:"0,keyasint,omitempty"`
	PublicKey  types.HexBytes `cbor:"1,keyasint,omitempty"`
	PrivateKey *big.Int       `cbor:"2,keyasint,omitempty"`
}

var encryptionKeysKey = []byte("network")

// Ciphertext returns the ciphertext addressed by handle, or ErrNotFound.
func (tx *Tx) Ciphertext(handle types.Handle) ([]byte, error) {
	data, err := tx.prefixed(ciphertextPrefix).Get(handle.Bytes())
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), data...), nil
}

// SetCiphertext stores the serialized ciphertext under handle.
func (tx *Tx) SetCiphertext(handle types.Handle, ciphertext []byte) error {
	if len(ciphertext) == 0 {
		return fmt.Errorf("empty ciphertext")
	}
	return tx.prefixed(ciphertextPrefix).Set(handle.Bytes(), ciphertext)
}

// EncryptionKeys returns the network encryption keys, or ErrNotFound.
func (tx *Tx) EncryptionKeys() (*EncryptionKeys, error) {
	eks := &EncryptionKeys{}
	if err := tx.getArtifact(encryptionKeyPrefix, encryptionKeysKey, eks); err != nil {
		return nil, err
	}
	return eks, nil
}

// SetEncryptionKeys stores the network encryption keys.
func (tx *Tx) SetEncryptionKeys(eks *EncryptionKeys) error {
	if eks == nil || eks.PrivateKey == nil || len(eks.PublicKey) == 0 {
		return fmt.Errorf("incomplete encryption keys")
	}
	return tx.setArtifact(encryptionKeyPrefix, encryptionKeysKey, eks)
}

// Nonce returns the next expected nonce of the account. Unknown accounts
// start at zero.
func (tx *Tx) Nonce(addr common.Address) (uint64, error) {
	var nonce uint64
	if err := tx.getArtifact(noncePrefix, addr.Bytes(), &nonce); err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return nonce, nil
}

// SetNonce stores the next expected nonce of the account.
func (tx *Tx) SetNonce(addr common.Address, nonce uint64) error {
	return tx.setArtifact(noncePrefix, addr.Bytes(), nonce)
}
