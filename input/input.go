// Package input builds the encrypted inputs a voter attaches to a vote: a
// ciphertext handle and a validity proof bound to the ledger contract and
// the submitting account.
package input

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vocdoni/confidential-polls/fhe"
	"github.com/vocdoni/confidential-polls/log"
	"github.com/vocdoni/confidential-polls/types"
)

// BallotValue is the plaintext a vote adds to the chosen option tally.
const BallotValue = types.BallotValue

// ErrEncryptionUnavailable is returned when the builder has no usable
// encryption primitive.
var ErrEncryptionUnavailable = errors.New("encryption unavailable")

// Encrypter is the part of the FHE primitive the builder needs.
// *fhe.Encryptor and *fhe.Engine implement it.
type Encrypter interface {
	EncryptInput(contract, submitter common.Address, value uint64) (types.Handle, []byte, error)
}

// EncryptedInput is a handle and the proof that makes it acceptable to the
// ledger for one (contract, submitter) pair.
type EncryptedInput struct {
	Handle types.Handle   `json:"handle"`
	Proof  types.HexBytes `json:"proof"`
}

// Builder creates encrypted inputs. It can be created empty and initialized
// later, once the public parameters of the network are known.
type Builder struct {
	mu  sync.RWMutex
	enc Encrypter
}

// NewBuilder returns a builder using enc, which may be nil.
func NewBuilder(enc Encrypter) *Builder {
	return &Builder{enc: enc}
}

// Init sets up the builder from the public parameters published by a node.
func (b *Builder) Init(params *fhe.PublicParams) error {
	enc, err := fhe.NewEncryptor(params)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncryptionUnavailable, err)
	}
	b.mu.Lock()
	b.enc = enc
	b.mu.Unlock()
	log.Debugw("encrypted input builder initialized", "curve", params.Curve)
	return nil
}

// Initialized reports whether the builder can encrypt.
func (b *Builder) Initialized() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.enc != nil
}

// CreateEncryptedInput encrypts value for (contract, submitter).
func (b *Builder) CreateEncryptedInput(contract, submitter common.Address, value uint64) (*EncryptedInput, error) {
	b.mu.RLock()
	enc := b.enc
	b.mu.RUnlock()
	if enc == nil {
		return nil, ErrEncryptionUnavailable
	}
	handle, proof, err := enc.EncryptInput(contract, submitter, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionUnavailable, err)
	}
	return &EncryptedInput{Handle: handle, Proof: proof}, nil
}

// CreateBallot encrypts the value of one vote for (contract, submitter).
func (b *Builder) CreateBallot(contract, submitter common.Address) (*EncryptedInput, error) {
	return b.CreateEncryptedInput(contract, submitter, BallotValue)
}
