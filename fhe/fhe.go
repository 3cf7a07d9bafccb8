// Package fhe implements the FHE primitive the poll ledger is built on: an
// additively homomorphic scheme (exponential ElGamal) whose ciphertexts are
// only ever referenced through opaque handles. The ciphertexts themselves live
// in a handle store, which the ledger backs with its storage transaction so
// primitive side effects commit or roll back with the ledger mutation.
package fhe

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vocdoni/confidential-polls/types"
)

var (
	// ErrUnknownHandle is returned when a handle has no ciphertext in the
	// store.
	ErrUnknownHandle = errors.New("unknown ciphertext handle")
	// ErrNotInitialized is returned when the primitive has no key material.
	ErrNotInitialized = errors.New("fhe primitive not initialized")
)

// Store is the handle store the primitive reads and writes ciphertexts from.
// *storage.Tx implements it.
type Store interface {
	Ciphertext(handle types.Handle) ([]byte, error)
	SetCiphertext(handle types.Handle, ciphertext []byte) error
}

// ProofContext is the context an encrypted input is verified in. The proof is
// bound to Contract and Submitter and must show the ciphertext encrypts
// Value; PlatformID and PollIndex are informative and only used for logging.
type ProofContext struct {
	Contract   common.Address
	Submitter  common.Address
	Value      uint64
	PlatformID uint64
	PollIndex  uint32
}

// Primitive is the FHE capability injected into the ledger.
type Primitive interface {
	// EncryptZero stores a fresh encryption of zero and returns its handle.
	EncryptZero(st Store) (types.Handle, error)
	// Add stores the homomorphic sum of a and b and returns its handle.
	Add(st Store, a, b types.Handle) (types.Handle, error)
	// VerifyProof checks that proof is a valid encrypted input of ctx.Value
	// for handle under ctx. On success the ciphertext is imported into st, so the
	// handle becomes operable. It never fails, any problem yields false.
	VerifyProof(st Store, handle types.Handle, proof []byte, ctx ProofContext) bool
	// EncryptInput encrypts value for (contract, submitter) and returns the
	// handle and its proof.
	EncryptInput(contract, submitter common.Address, value uint64) (types.Handle, []byte, error)
	// Public returns the public parameters clients need to encrypt inputs.
	Public() *PublicParams
}

// PublicParams are the public parameters of the primitive.
type PublicParams struct {
	Curve     string         `json:"curve"`
	PublicKey types.HexBytes `json:"publicKey"`
}
