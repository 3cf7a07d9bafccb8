// Package ethereum provides secp256k1 wallet keys with Ethereum compatible
// signing: EIP-191 personal messages and EIP-712 typed data, plus the
// matching address recovery helpers.
package ethereum

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/vocdoni/confidential-polls/util"
)

const (
	// SignatureLength is the size of an Ethereum signature [R || S || V].
	SignatureLength = ethcrypto.SignatureLength
	// sigRecoveryOffset is added to V so signatures look like the ones
	// produced by wallets.
	sigRecoveryOffset = 27
)

// SignKeys represents an ECDSA secp256k1 key pair used to sign as an
// Ethereum account.
type SignKeys struct {
	Public  ecdsa.PublicKey
	Private ecdsa.PrivateKey
}

// NewSignKeys returns an empty SignKeys. Use Generate or AddHexKey to load a
// key.
func NewSignKeys() *SignKeys {
	return &SignKeys{}
}

// Generate creates a new random key pair.
func (k *SignKeys) Generate() error {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// AddHexKey imports a hex encoded private key.
func (k *SignKeys) AddHexKey(privHex string) error {
	key, err := ethcrypto.HexToECDSA(util.TrimHex(privHex))
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// HexString returns the compressed public key and the private key, both hex
// encoded without prefix.
func (k *SignKeys) HexString() (string, string) {
	pub := hex.EncodeToString(k.PublicKey())
	priv := hex.EncodeToString(ethcrypto.FromECDSA(&k.Private))
	return pub, priv
}

// PublicKey returns the compressed public key.
func (k *SignKeys) PublicKey() []byte {
	if k.Public.X == nil {
		return nil
	}
	return ethcrypto.CompressPubkey(&k.Public)
}

// Address returns the Ethereum address of the key pair.
func (k *SignKeys) Address() common.Address {
	return ethcrypto.PubkeyToAddress(k.Public)
}

// AddressString returns the checksummed address.
func (k *SignKeys) AddressString() string {
	return k.Address().Hex()
}

// SignEthereum signs message as an EIP-191 personal message.
func (k *SignKeys) SignEthereum(message []byte) ([]byte, error) {
	return k.sign(HashMessage(message))
}

// SignTypedData signs EIP-712 typed data.
func (k *SignKeys) SignTypedData(typedData apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("cannot hash typed data: %w", err)
	}
	return k.sign(hash)
}

func (k *SignKeys) sign(hash []byte) ([]byte, error) {
	if k.Private.D == nil {
		return nil, fmt.Errorf("no private key available")
	}
	signature, err := ethcrypto.Sign(hash, &k.Private)
	if err != nil {
		return nil, err
	}
	signature[ethcrypto.RecoveryIDOffset] += sigRecoveryOffset
	return signature, nil
}

// HashMessage returns the EIP-191 hash of a personal message.
func HashMessage(message []byte) []byte {
	return accounts.TextHash(message)
}

// AddrFromSignature recovers the address that signed message as an EIP-191
// personal message.
func AddrFromSignature(message, signature []byte) (common.Address, error) {
	return addrFromHash(HashMessage(message), signature)
}

// AddrFromTypedDataSignature recovers the address that signed the EIP-712
// typed data.
func AddrFromTypedDataSignature(typedData apitypes.TypedData, signature []byte) (common.Address, error) {
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return common.Address{}, fmt.Errorf("cannot hash typed data: %w", err)
	}
	return addrFromHash(hash, signature)
}

// AddrFromPublicKey returns the address of a compressed or uncompressed
// public key.
func AddrFromPublicKey(pubKey []byte) (common.Address, error) {
	var pub *ecdsa.PublicKey
	var err error
	switch len(pubKey) {
	case 33:
		pub, err = ethcrypto.DecompressPubkey(pubKey)
	case 65:
		pub, err = ethcrypto.UnmarshalPubkey(pubKey)
	default:
		return common.Address{}, fmt.Errorf("invalid public key length %d", len(pubKey))
	}
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

func addrFromHash(hash, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(signature))
	}
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[ethcrypto.RecoveryIDOffset] >= sigRecoveryOffset {
		sig[ethcrypto.RecoveryIDOffset] -= sigRecoveryOffset
	}
	pub, err := ethcrypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}
