package elgamal

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/confidential-polls/crypto/ecc"
)

// Ciphertext represents an ElGamal encrypted message with homomorphic
// properties. It encapsulates the two points of a ciphertext.
type Ciphertext struct {
	C1 ecc.Point `json:"c1"`
	C2 ecc.Point `json:"c2"`
}

// NewCiphertext creates a new Ciphertext on the same curve as the given
// point, set to the identity on both components. The identity ciphertext is
// a valid (non hiding) encryption of zero.
func NewCiphertext(curve ecc.Point) *Ciphertext {
	return &Ciphertext{C1: curve.New(), C2: curve.New()}
}

// Encrypt encrypts message with the public key. The randomness k can be
// provided, or nil to generate a new one.
func (z *Ciphertext) Encrypt(message *big.Int, publicKey ecc.Point, k *big.Int) (*Ciphertext, error) {
	var err error
	if k == nil {
		k, err = RandK(publicKey.Order())
		if err != nil {
			return nil, fmt.Errorf("elgamal encryption failed: %w", err)
		}
	}
	c1, c2, err := EncryptWithK(publicKey, message, k)
	if err != nil {
		return nil, fmt.Errorf("elgamal encryption failed: %w", err)
	}
	z.C1 = c1
	z.C2 = c2
	return z, nil
}

// Add adds two ciphertexts and stores the result in z, which is also
// returned. The inputs may alias z.
func (z *Ciphertext) Add(x, y *Ciphertext) *Ciphertext {
	c1 := x.C1.New()
	c1.Add(x.C1, y.C1)
	c2 := x.C2.New()
	c2.Add(x.C2, y.C2)
	z.C1, z.C2 = c1, c2
	return z
}

// Clone returns a deep copy of z.
func (z *Ciphertext) Clone() *Ciphertext {
	c := NewCiphertext(z.C1)
	c.C1.Set(z.C1)
	c.C2.Set(z.C2)
	return c
}

// Equal reports whether both ciphertexts have the same points.
func (z *Ciphertext) Equal(x *Ciphertext) bool {
	return z.C1.Equal(x.C1) && z.C2.Equal(x.C2)
}

// Decrypt returns the message of z, searched in [0, maxMessage].
func (z *Ciphertext) Decrypt(privateKey *big.Int, maxMessage uint64) (*big.Int, error) {
	_, msg, err := Decrypt(privateKey, z.C1, z.C2, maxMessage)
	return msg, err
}

// Serialize returns C1 || C2 in the compact encoding of the curve.
func (z *Ciphertext) Serialize() []byte {
	c1 := z.C1.Marshal()
	c2 := z.C2.Marshal()
	buf := make([]byte, 0, len(c1)+len(c2))
	buf = append(buf, c1...)
	return append(buf, c2...)
}

// Deserialize reconstructs z from the output of Serialize. The curve is taken
// from z.C1, so z must be created with NewCiphertext first.
func (z *Ciphertext) Deserialize(data []byte) error {
	size := SizeCiphertext(z.C1)
	if len(data) != size {
		return fmt.Errorf("invalid input length: got %d bytes, expected %d bytes", len(data), size)
	}
	c1, c2 := z.C1.New(), z.C1.New()
	if err := c1.Unmarshal(data[:size/2]); err != nil {
		return fmt.Errorf("invalid C1: %w", err)
	}
	if err := c2.Unmarshal(data[size/2:]); err != nil {
		return fmt.Errorf("invalid C2: %w", err)
	}
	z.C1, z.C2 = c1, c2
	return nil
}

// String returns a string representation of the Ciphertext.
func (z *Ciphertext) String() string {
	if z == nil || z.C1 == nil || z.C2 == nil {
		return "{C1: nil, C2: nil}"
	}
	return fmt.Sprintf("{C1: %s, C2: %s}", z.C1.String(), z.C2.String())
}

// SizePoint returns the encoded size of a point of the given curve.
func SizePoint(curve ecc.Point) int {
	return len(curve.New().Marshal())
}

// SizeCiphertext returns the encoded size of a ciphertext of the given curve.
func SizeCiphertext(curve ecc.Point) int {
	return 2 * SizePoint(curve)
}
