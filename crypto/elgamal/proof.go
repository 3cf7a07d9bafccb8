// Chaum-Pedersen proof that a ciphertext encrypts a given public value.
//
// Given a ciphertext (C1, C2) = (k*G, v*G + k*P) and a public value v, the
// prover shows that
//
//	log_G(C1) == log_P(C2 - v*G)
//
// without revealing k. Any other plaintext breaks the equality, so a valid
// proof pins the encrypted value to v. The challenge commits to the public
// key, the ciphertext, the value and an arbitrary binding (contract and
// submitter for encrypted inputs), so a proof can not be replayed under a
// different binding or attached to a different ciphertext.
//
//	Prover:   r <- F*, A1 = r*G, A2 = r*P, D = C2 - v*G
//	          e = H(G, P, C1, D, A1, A2, binding), z = r + e*k
//	Verifier: z*G == A1 + e*C1
//	          z*P == A2 + e*D

package elgamal

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/arbo"

	"github.com/vocdoni/confidential-polls/crypto/ecc"
	"github.com/vocdoni/confidential-polls/crypto/hash/poseidon"
)

// scalarSize is the encoded size of the proof response.
const scalarSize = 32

// InputProof is a non-interactive proof that a ciphertext encrypts a known
// value.
type InputProof struct {
	A1 ecc.Point // = r*G
	A2 ecc.Point // = r*P
	Z  *big.Int  // = r + e*k
}

// BuildInputProof creates a proof that ct encrypts value under publicKey with
// randomness k, bound to the given binding values.
func BuildInputProof(publicKey ecc.Point, ct *Ciphertext, value, k *big.Int, binding ...*big.Int) (*InputProof, error) {
	if !CheckK(ct.C1, k) {
		return nil, fmt.Errorf("randomness does not match the ciphertext")
	}
	d := shared(publicKey, ct, value)
	// k*P must match C2 - v*G, otherwise ct does not encrypt value
	kp := publicKey.New()
	kp.ScalarMult(publicKey, k)
	if !kp.Equal(d) {
		return nil, fmt.Errorf("ciphertext does not encrypt the given value")
	}

	order := publicKey.Order()
	r, err := RandK(order)
	if err != nil {
		return nil, err
	}
	a1 := publicKey.New()
	a1.ScalarBaseMult(r)
	a2 := publicKey.New()
	a2.ScalarMult(publicKey, r)

	e, err := inputChallenge(publicKey, ct.C1, d, a1, a2, binding)
	if err != nil {
		return nil, err
	}
	z := new(big.Int).Mul(e, k)
	z.Add(z, r)
	z.Mod(z, order)
	return &InputProof{A1: a1, A2: a2, Z: z}, nil
}

// VerifyInputProof checks that proof shows ct encrypts value, under the given
// binding. Returns nil if the proof is valid.
func VerifyInputProof(publicKey ecc.Point, ct *Ciphertext, value *big.Int, proof *InputProof, binding ...*big.Int) error {
	if proof == nil || proof.A1 == nil || proof.A2 == nil || proof.Z == nil {
		return fmt.Errorf("invalid proof: missing fields")
	}
	if proof.Z.Sign() < 0 || proof.Z.Cmp(publicKey.Order()) >= 0 {
		return fmt.Errorf("invalid proof: response out of range")
	}
	d := shared(publicKey, ct, value)
	e, err := inputChallenge(publicKey, ct.C1, d, proof.A1, proof.A2, binding)
	if err != nil {
		return err
	}

	// z*G == A1 + e*C1
	left := publicKey.New()
	left.ScalarBaseMult(proof.Z)
	right := publicKey.New()
	right.ScalarMult(ct.C1, e)
	right.Add(right, proof.A1)
	if !left.Equal(right) {
		return fmt.Errorf("invalid proof: randomness equation fails")
	}

	// z*P == A2 + e*D
	left.ScalarMult(publicKey, proof.Z)
	right.ScalarMult(d, e)
	right.Add(right, proof.A2)
	if !left.Equal(right) {
		return fmt.Errorf("invalid proof: value equation fails")
	}
	return nil
}

// shared returns D = C2 - value*G, which equals k*P when ct encrypts value.
func shared(publicKey ecc.Point, ct *Ciphertext, value *big.Int) ecc.Point {
	m := publicKey.New()
	m.ScalarBaseMult(new(big.Int).Mod(value, publicKey.Order()))
	negM := publicKey.New()
	negM.Neg(m)
	d := publicKey.New()
	d.Add(ct.C2, negM)
	return d
}

// Serialize returns A1 || A2 || Z, with Z as a fixed size little-endian
// scalar.
func (p *InputProof) Serialize() []byte {
	a1, a2 := p.A1.Marshal(), p.A2.Marshal()
	buf := make([]byte, 0, len(a1)+len(a2)+scalarSize)
	buf = append(buf, a1...)
	buf = append(buf, a2...)
	return append(buf, arbo.BigIntToBytes(scalarSize, p.Z)...)
}

// DeserializeInputProof parses the output of Serialize for the curve of the
// given point.
func DeserializeInputProof(curve ecc.Point, data []byte) (*InputProof, error) {
	pointSize := SizePoint(curve)
	if len(data) != 2*pointSize+scalarSize {
		return nil, fmt.Errorf("invalid proof length: got %d bytes, expected %d bytes",
			len(data), 2*pointSize+scalarSize)
	}
	a1 := curve.New()
	if err := a1.Unmarshal(data[:pointSize]); err != nil {
		return nil, fmt.Errorf("invalid proof commitment: %w", err)
	}
	a2 := curve.New()
	if err := a2.Unmarshal(data[pointSize : 2*pointSize]); err != nil {
		return nil, fmt.Errorf("invalid proof commitment: %w", err)
	}
	return &InputProof{A1: a1, A2: a2, Z: arbo.BytesToBigInt(data[2*pointSize:])}, nil
}

// inputChallenge computes the Fiat-Shamir challenge reduced to the group
// order.
func inputChallenge(publicKey, c1, d, a1, a2 ecc.Point, binding []*big.Int) (*big.Int, error) {
	gen := publicKey.New()
	gen.SetGenerator()
	inputs := []*big.Int{}
	for _, p := range []ecc.Point{gen, publicKey, c1, d, a1, a2} {
		x, y := p.Point()
		inputs = append(inputs, x, y)
	}
	inputs = append(inputs, binding...)
	digest, err := poseidon.MultiPoseidon(inputs...)
	if err != nil {
		return nil, fmt.Errorf("failed to hash proof inputs: %w", err)
	}
	return digest.Mod(digest, publicKey.Order()), nil
}
