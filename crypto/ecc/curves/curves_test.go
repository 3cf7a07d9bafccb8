package curves

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestGroupLaws(t *testing.T) {
	for _, curveType := range Curves() {
		t.Run(curveType, func(t *testing.T) {
			c := qt.New(t)

			a := New(curveType)
			a.ScalarBaseMult(big.NewInt(123456789))
			b := New(curveType)
			b.ScalarBaseMult(big.NewInt(987654321))

			// (a + b) == (123456789 + 987654321) * G
			sum := a.New()
			sum.Add(a, b)
			expected := a.New()
			expected.ScalarBaseMult(big.NewInt(123456789 + 987654321))
			c.Assert(sum.Equal(expected), qt.IsTrue)
			c.Assert(sum.String(), qt.Equals, expected.String())

			// a + (-a) == 0
			neg := a.New()
			neg.Neg(a)
			zero := a.New()
			zero.Add(a, neg)
			identity := a.New()
			identity.SetZero()
			c.Assert(zero.Equal(identity), qt.IsTrue)

			// a + 0 == a
			same := a.New()
			same.Add(a, identity)
			c.Assert(same.Equal(a), qt.IsTrue)

			// 2 * a == a + a
			dbl := a.New()
			dbl.Add(a, a)
			mul := a.New()
			mul.ScalarMult(a, big.NewInt(2))
			c.Assert(dbl.Equal(mul), qt.IsTrue)

			// order * G == 0
			gen := a.New()
			gen.SetGenerator()
			gen.ScalarMult(gen, a.Order())
			c.Assert(gen.Equal(identity), qt.IsTrue)

			// Set copies without aliasing
			cp := a.New()
			cp.Set(a)
			cp.ScalarMult(cp, big.NewInt(3))
			c.Assert(cp.Equal(a), qt.IsFalse)

			// Point and SetPoint round trip
			x, y := a.Point()
			c.Assert(a.SetPoint(x, y).Equal(a), qt.IsTrue)
			c.Assert(a.Type(), qt.Equals, curveType)
		})
	}
}

func TestMarshal(t *testing.T) {
	for _, curveType := range Curves() {
		t.Run(curveType, func(t *testing.T) {
			c := qt.New(t)

			p := New(curveType)
			p.ScalarBaseMult(big.NewInt(42))
			decoded := New(curveType)
			c.Assert(decoded.Unmarshal(p.Marshal()), qt.IsNil)
			c.Assert(decoded.Equal(p), qt.IsTrue)

			identity := New(curveType)
			identity.SetZero()
			decoded = New(curveType)
			c.Assert(decoded.Unmarshal(identity.Marshal()), qt.IsNil)
			c.Assert(decoded.Equal(identity), qt.IsTrue)

			c.Assert(decoded.Unmarshal([]byte{1, 2, 3}), qt.IsNotNil)
		})
	}
}

func TestNew(t *testing.T) {
	c := qt.New(t)
	c.Assert(IsValid(CurveTypeBabyJubJub), qt.IsTrue)
	c.Assert(IsValid("secp256k1"), qt.IsFalse)
	c.Assert(func() { New("secp256k1") }, qt.PanicMatches, "unsupported curve type: secp256k1")
}
