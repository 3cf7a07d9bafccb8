package fhe

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fxamacker/cbor/v2"

	"github.com/vocdoni/confidential-polls/crypto/ecc"
	"github.com/vocdoni/confidential-polls/crypto/ecc/curves"
	"github.com/vocdoni/confidential-polls/crypto/elgamal"
	"github.com/vocdoni/confidential-polls/types"
)

// Domain separators of the handle derivation.
var (
	domainZero  = []byte("fhe/zero")
	domainAdd   = []byte("fhe/add")
	domainInput = []byte("fhe/input")
)

// InputProof is the proof attached to an encrypted input. It carries the
// ciphertext, since the handle alone does not reveal it.
type InputProof struct {
	Ciphertext types.HexBytes `cbor:"0,keyasint,omitempty"`
	Proof      types.HexBytes `cbor:"1,keyasint,omitempty"`
}

// Encryptor holds the public side of the primitive. It is all a client needs
// to build encrypted inputs.
type Encryptor struct {
	publicKey ecc.Point
}

// NewEncryptor builds an Encryptor from the public parameters published by a
// node.
func NewEncryptor(params *PublicParams) (*Encryptor, error) {
	if params == nil || len(params.PublicKey) == 0 {
		return nil, ErrNotInitialized
	}
	if !curves.IsValid(params.Curve) {
		return nil, fmt.Errorf("unsupported curve %q", params.Curve)
	}
	pub := curves.New(params.Curve)
	if err := pub.Unmarshal(params.PublicKey); err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	return &Encryptor{publicKey: pub}, nil
}

// Public returns the public parameters.
func (e *Encryptor) Public() *PublicParams {
	return &PublicParams{
		Curve:     e.publicKey.Type(),
		PublicKey: e.publicKey.Marshal(),
	}
}

// PublicKey returns the network public key.
func (e *Encryptor) PublicKey() ecc.Point {
	return e.publicKey
}

// EncryptInput encrypts value for (contract, submitter) and returns its
// handle and proof. The proof shows the ciphertext encrypts value and commits
// to contract and submitter, so it is rejected anywhere else.
func (e *Encryptor) EncryptInput(contract, submitter common.Address, value uint64) (types.Handle, []byte, error) {
	if e == nil || e.publicKey == nil {
		return types.Handle{}, nil, ErrNotInitialized
	}
	k, err := elgamal.RandK(e.publicKey.Order())
	if err != nil {
		return types.Handle{}, nil, err
	}
	v := new(big.Int).SetUint64(value)
	ct, err := elgamal.NewCiphertext(e.publicKey).Encrypt(v, e.publicKey, k)
	if err != nil {
		return types.Handle{}, nil, err
	}
	proof, err := elgamal.BuildInputProof(e.publicKey, ct, v, k, binding(contract, submitter)...)
	if err != nil {
		return types.Handle{}, nil, fmt.Errorf("build input proof: %w", err)
	}
	serialized := ct.Serialize()
	data, err := cbor.Marshal(&InputProof{Ciphertext: serialized, Proof: proof.Serialize()})
	if err != nil {
		return types.Handle{}, nil, fmt.Errorf("encode input proof: %w", err)
	}
	return InputHandle(serialized, contract, submitter), data, nil
}

// verifyInput checks an encoded input proof and returns the ciphertext it
// carries.
func (e *Encryptor) verifyInput(handle types.Handle, data []byte, ctx ProofContext) (*elgamal.Ciphertext, error) {
	envelope := &InputProof{}
	if err := cbor.Unmarshal(data, envelope); err != nil {
		return nil, fmt.Errorf("decode input proof: %w", err)
	}
	if InputHandle(envelope.Ciphertext, ctx.Contract, ctx.Submitter) != handle {
		return nil, fmt.Errorf("handle does not match the ciphertext and context")
	}
	ct, err := e.decodeCiphertext(envelope.Ciphertext)
	if err != nil {
		return nil, err
	}
	proof, err := elgamal.DeserializeInputProof(e.publicKey, envelope.Proof)
	if err != nil {
		return nil, err
	}
	value := new(big.Int).SetUint64(ctx.Value)
	if err := elgamal.VerifyInputProof(e.publicKey, ct, value, proof, binding(ctx.Contract, ctx.Submitter)...); err != nil {
		return nil, err
	}
	return ct, nil
}

func (e *Encryptor) decodeCiphertext(data []byte) (*elgamal.Ciphertext, error) {
	return DecodeCiphertext(e.publicKey, data)
}

// DecodeCiphertext parses a stored ciphertext of the curve of the given
// point.
func DecodeCiphertext(curve ecc.Point, data []byte) (*elgamal.Ciphertext, error) {
	ct := elgamal.NewCiphertext(curve)
	if err := ct.Deserialize(data); err != nil {
		return nil, fmt.Errorf("invalid ciphertext: %w", err)
	}
	return ct, nil
}

// InputHandle derives the handle of an encrypted input.
func InputHandle(ciphertext []byte, contract, submitter common.Address) types.Handle {
	return types.Handle(crypto.Keccak256Hash(domainInput, ciphertext, contract.Bytes(), submitter.Bytes()))
}

// ciphertextHandle derives the handle of a ciphertext produced by the
// primitive itself.
func ciphertextHandle(domain, ciphertext []byte) types.Handle {
	return types.Handle(crypto.Keccak256Hash(domain, ciphertext))
}

func binding(contract, submitter common.Address) []*big.Int {
	return []*big.Int{
		new(big.Int).SetBytes(contract.Bytes()),
		new(big.Int).SetBytes(submitter.Bytes()),
	}
}
