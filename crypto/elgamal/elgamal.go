// Package elgamal implements additively homomorphic (exponential) ElGamal
// over the curves of crypto/ecc. Messages are encoded as m*G, so the sum of
// two ciphertexts decrypts to the sum of their messages and decryption needs
// a bounded discrete log.
package elgamal

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"

	"github.com/vocdoni/confidential-polls/crypto/ecc"
)

// RandK generates a random non-zero scalar lower than order.
func RandK(order *big.Int) (*big.Int, error) {
	for {
		k, err := rand.Int(rand.Reader, order)
		if err != nil {
			return nil, fmt.Errorf("failed to generate random k: %w", err)
		}
		if k.Sign() != 0 {
			return k, nil
		}
	}
}

// Encrypt encrypts msg with the public key provided as elliptic curve point.
// It generates a random k and returns the two points of the ciphertext and
// the k used.
func Encrypt(publicKey ecc.Point, msg *big.Int) (ecc.Point, ecc.Point, *big.Int, error) {
	k, err := RandK(publicKey.Order())
	if err != nil {
		return nil, nil, nil, err
	}
	c1, c2, err := EncryptWithK(publicKey, msg, k)
	if err != nil {
		return nil, nil, nil, err
	}
	return c1, c2, k, nil
}

// EncryptWithK encrypts msg with the public key and the randomness k. It
// returns C1 = k*G and C2 = msg*G + k*P.
func EncryptWithK(pubKey ecc.Point, msg, k *big.Int) (ecc.Point, ecc.Point, error) {
	if msg == nil || k == nil {
		return nil, nil, fmt.Errorf("nil message or randomness")
	}
	if msg.Sign() < 0 {
		return nil, nil, fmt.Errorf("negative message")
	}
	order := pubKey.Order()
	m := new(big.Int).Mod(msg, order)
	// compute C1 = k * G
	c1 := pubKey.New()
	c1.ScalarBaseMult(k)
	// compute s = k * pubKey
	s := pubKey.New()
	s.ScalarMult(pubKey, k)
	// encode message as point M = message * G
	mPoint := pubKey.New()
	mPoint.ScalarBaseMult(m)
	// compute C2 = M + s
	c2 := pubKey.New()
	c2.Add(mPoint, s)
	return c1, c2, nil
}

// GenerateKey generates a new public/private ElGamal key pair on the curve of
// the given point.
func GenerateKey(curve ecc.Point) (publicKey ecc.Point, privateKey *big.Int, err error) {
	d, err := RandK(curve.Order())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate private key scalar: %w", err)
	}
	publicKey = curve.New()
	publicKey.ScalarBaseMult(d)
	return publicKey, d, nil
}

// Decrypt decrypts the ciphertext (c1, c2) with the private key. It returns
// the point M = c2 - d*c1 and its discrete log, searched in [0, maxMessage].
func Decrypt(privateKey *big.Int, c1, c2 ecc.Point, maxMessage uint64) (M ecc.Point, message *big.Int, err error) {
	dC1 := c2.New()
	dC1.ScalarMult(c1, privateKey)
	dC1.Neg(dC1)

	M = c2.New()
	M.Add(c2, dC1)

	G := c2.New()
	G.SetGenerator()
	message, err = BabyStepGiantStepECC(M, G, maxMessage)
	if err != nil {
		return nil, nil, err
	}
	return M, message, nil
}

// BabyStepGiantStepECC solves M = x*G for x in [0, maxMessage] using the
// baby-step giant-step algorithm.
func BabyStepGiantStepECC(M, G ecc.Point, maxMessage uint64) (*big.Int, error) {
	mSqrt := uint64(math.Sqrt(float64(maxMessage))) + 1

	// baby steps: j*G for j in [0, mSqrt)
	babySteps := make(map[string]uint64, mSqrt)
	babyStep := M.New()
	babyStep.SetZero()
	for j := uint64(0); j < mSqrt; j++ {
		babySteps[babyStep.String()] = j
		babyStep.Add(babyStep, G)
	}

	// c = -(mSqrt * G)
	c := M.New()
	c.ScalarMult(G, new(big.Int).SetUint64(mSqrt))
	c.Neg(c)

	giantStep := M.New()
	giantStep.Set(M)
	for i := uint64(0); i <= mSqrt; i++ {
		if j, found := babySteps[giantStep.String()]; found {
			x := i*mSqrt + j
			if x > maxMessage {
				break
			}
			return new(big.Int).SetUint64(x), nil
		}
		giantStep.Add(giantStep, c)
	}
	return nil, fmt.Errorf("discrete logarithm not found in [0, %d]", maxMessage)
}

// CheckK reports whether k was used to produce c1, that is c1 == k*G.
func CheckK(c1 ecc.Point, k *big.Int) bool {
	kCheck := c1.New()
	kCheck.ScalarBaseMult(k)
	return kCheck.Equal(c1)
}
