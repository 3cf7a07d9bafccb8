package poseidon

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/iden3/go-iden3-crypto/poseidon"

	"github.com/vocdoni/confidential-polls/util"
)

func TestMultiPoseidon(t *testing.T) {
	c := qt.New(t)

	_, err := MultiPoseidon()
	c.Assert(err, qt.ErrorMatches, "no inputs provided")

	tooMany := make([]*big.Int, MaxInputs+1)
	for i := range tooMany {
		tooMany[i] = big.NewInt(int64(i))
	}
	_, err = MultiPoseidon(tooMany...)
	c.Assert(err, qt.ErrorMatches, "too many inputs.*")

	// a single chunk matches the plain poseidon hash
	single, err := MultiPoseidon(big.NewInt(1), big.NewInt(2))
	c.Assert(err, qt.IsNil)
	expected, err := poseidon.Hash([]*big.Int{big.NewInt(1), big.NewInt(2)})
	c.Assert(err, qt.IsNil)
	c.Assert(single.Cmp(expected), qt.Equals, 0)

	// several chunks are deterministic and order dependent
	inputs := make([]*big.Int, 40)
	for i := range inputs {
		inputs[i] = big.NewInt(int64(i + 1))
	}
	h1, err := MultiPoseidon(inputs...)
	c.Assert(err, qt.IsNil)
	h2, err := MultiPoseidon(inputs...)
	c.Assert(err, qt.IsNil)
	c.Assert(h1.Cmp(h2), qt.Equals, 0)
	inputs[0], inputs[1] = inputs[1], inputs[0]
	h3, err := MultiPoseidon(inputs...)
	c.Assert(err, qt.IsNil)
	c.Assert(h1.Cmp(h3), qt.Not(qt.Equals), 0)
}

func TestMultiPoseidonReducesInputs(t *testing.T) {
	c := qt.New(t)
	over := new(big.Int).Add(util.BN254ScalarField, big.NewInt(5))
	h1, err := MultiPoseidon(over)
	c.Assert(err, qt.IsNil)
	h2, err := MultiPoseidon(big.NewInt(5))
	c.Assert(err, qt.IsNil)
	c.Assert(h1.Cmp(h2), qt.Equals, 0)
	// the input is not modified
	c.Assert(over.Cmp(util.BN254ScalarField) > 0, qt.IsTrue)
}

func TestHashBytes(t *testing.T) {
	c := qt.New(t)
	h1, err := HashBytes([]byte("confidential polls"))
	c.Assert(err, qt.IsNil)
	h2, err := HashBytes([]byte("confidential pollz"))
	c.Assert(err, qt.IsNil)
	c.Assert(h1.Cmp(h2), qt.Not(qt.Equals), 0)

	_, err = HashBytes(nil)
	c.Assert(err, qt.IsNotNil)
}
