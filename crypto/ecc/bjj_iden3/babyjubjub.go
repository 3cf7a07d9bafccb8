package bjj

import (
	"fmt"
	"math/big"

	babyjubjub "github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/iden3/go-iden3-crypto/constants"

	curve "github.com/vocdoni/confidential-polls/crypto/ecc"
)

const CurveType = "bjj_iden3"

// BJJ is the affine representation of the BabyJubJub group element.
type BJJ struct {
	inner *babyjubjub.Point
}

// New creates a new BJJ point (identity element by default).
func New() curve.Point {
	return &BJJ{inner: babyjubjub.NewPoint()}
}

func (g *BJJ) New() curve.Point {
	return New()
}

func (g *BJJ) init() {
	if g.inner == nil {
		g.inner = babyjubjub.NewPoint()
	}
}

// Order returns the order of the subgroup generated by B8.
func (g *BJJ) Order() *big.Int {
	return new(big.Int).Set(babyjubjub.SubOrder)
}

func (g *BJJ) Add(a, b curve.Point) {
	g.inner = babyjubjub.NewPoint().Projective().
		Add(a.(*BJJ).inner.Projective(), b.(*BJJ).inner.Projective()).Affine()
}

func (g *BJJ) ScalarMult(a curve.Point, scalar *big.Int) {
	g.init()
	g.inner = g.inner.Mul(new(big.Int).Mod(scalar, babyjubjub.SubOrder), a.(*BJJ).inner)
}

func (g *BJJ) ScalarBaseMult(scalar *big.Int) {
	g.init()
	g.inner = g.inner.Mul(new(big.Int).Mod(scalar, babyjubjub.SubOrder), babyjubjub.B8)
}

// Marshal returns the 32 bytes compressed form of the point.
func (g *BJJ) Marshal() []byte {
	g.init()
	b := g.inner.Compress()
	return b[:]
}

func (g *BJJ) Unmarshal(buf []byte) error {
	if len(buf) != 32 {
		return fmt.Errorf("invalid point length: got %d bytes, expected 32", len(buf))
	}
	b32 := [32]byte{}
	copy(b32[:], buf)
	p, err := babyjubjub.NewPoint().Decompress(b32)
	if err != nil {
		return err
	}
	if !p.InSubGroup() {
		return fmt.Errorf("point is not in the prime order subgroup")
	}
	g.inner = p
	return nil
}

func (g *BJJ) Equal(a curve.Point) bool {
	g.init()
	o := a.(*BJJ)
	o.init()
	return g.inner.X.Cmp(o.inner.X) == 0 && g.inner.Y.Cmp(o.inner.Y) == 0
}

// Neg sets g to -a, which on a twisted Edwards curve is (-x, y).
func (g *BJJ) Neg(a curve.Point) {
	src := a.(*BJJ).inner
	x := new(big.Int).Sub(constants.Q, src.X)
	x.Mod(x, constants.Q)
	g.inner = &babyjubjub.Point{X: x, Y: new(big.Int).Set(src.Y)}
}

func (g *BJJ) SetZero() {
	g.inner = babyjubjub.NewPoint()
}

func (g *BJJ) Set(a curve.Point) {
	src := a.(*BJJ).inner
	g.inner = &babyjubjub.Point{X: new(big.Int).Set(src.X), Y: new(big.Int).Set(src.Y)}
}

func (g *BJJ) SetGenerator() {
	g.inner = &babyjubjub.Point{
		X: new(big.Int).Set(babyjubjub.B8.X),
		Y: new(big.Int).Set(babyjubjub.B8.Y),
	}
}

func (g *BJJ) String() string {
	g.init()
	return fmt.Sprintf("%s,%s", g.inner.X.String(), g.inner.Y.String())
}

func (g *BJJ) Point() (*big.Int, *big.Int) {
	g.init()
	return new(big.Int).Set(g.inner.X), new(big.Int).Set(g.inner.Y)
}

func (g *BJJ) SetPoint(x, y *big.Int) curve.Point {
	return &BJJ{inner: &babyjubjub.Point{X: new(big.Int).Set(x), Y: new(big.Int).Set(y)}}
}

func (g *BJJ) Type() string {
	return CurveType
}
