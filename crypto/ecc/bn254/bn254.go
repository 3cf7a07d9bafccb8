package bn254

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	curve "github.com/vocdoni/confidential-polls/crypto/ecc"
)

const CurveType = "bn254"

// Generator is the affine generator of G1.
var Generator bn254.G1Affine

func init() {
	_, _, Generator, _ = bn254.Generators()
}

// G1 is the affine representation of a G1 group element. The zero value is
// the point at infinity.
type G1 struct {
	inner bn254.G1Affine
}

// New creates a new G1 point set to the point at infinity.
func New() curve.Point {
	return &G1{}
}

func (g *G1) New() curve.Point {
	return New()
}

func (g *G1) Order() *big.Int {
	return fr.Modulus()
}

func (g *G1) Add(a, b curve.Point) {
	var res bn254.G1Affine
	res.Add(&a.(*G1).inner, &b.(*G1).inner)
	g.inner = res
}

func (g *G1) ScalarMult(a curve.Point, scalar *big.Int) {
	var res bn254.G1Affine
	res.ScalarMultiplication(&a.(*G1).inner, new(big.Int).Mod(scalar, fr.Modulus()))
	g.inner = res
}

func (g *G1) ScalarBaseMult(scalar *big.Int) {
	var res bn254.G1Affine
	res.ScalarMultiplication(&Generator, new(big.Int).Mod(scalar, fr.Modulus()))
	g.inner = res
}

// Marshal returns the 64 bytes uncompressed form of the point.
func (g *G1) Marshal() []byte {
	b := g.inner.RawBytes()
	return b[:]
}

func (g *G1) Unmarshal(buf []byte) error {
	if len(buf) != bn254.SizeOfG1AffineUncompressed {
		return fmt.Errorf("invalid point length: got %d bytes, expected %d",
			len(buf), bn254.SizeOfG1AffineUncompressed)
	}
	var p bn254.G1Affine
	if _, err := p.SetBytes(buf); err != nil {
		return err
	}
	g.inner = p
	return nil
}

func (g *G1) Equal(a curve.Point) bool {
	return g.inner.Equal(&a.(*G1).inner)
}

func (g *G1) Neg(a curve.Point) {
	var res bn254.G1Affine
	res.Neg(&a.(*G1).inner)
	g.inner = res
}

func (g *G1) SetZero() {
	g.inner = bn254.G1Affine{}
}

func (g *G1) Set(a curve.Point) {
	g.inner = a.(*G1).inner
}

func (g *G1) SetGenerator() {
	g.inner = Generator
}

func (g *G1) String() string {
	return fmt.Sprintf("%x", g.Marshal())
}

func (g *G1) Point() (*big.Int, *big.Int) {
	return g.inner.X.BigInt(new(big.Int)), g.inner.Y.BigInt(new(big.Int))
}

func (g *G1) SetPoint(x, y *big.Int) curve.Point {
	p := &G1{}
	p.inner.X.SetBigInt(x)
	p.inner.Y.SetBigInt(y)
	return p
}

func (g *G1) Type() string {
	return CurveType
}
