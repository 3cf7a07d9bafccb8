// Package ecc defines the group element abstraction the ElGamal scheme is
// written against. Concrete curves live in the subpackages.
package ecc

import (
	"math/big"
)

// Point defines the common operations that can be performed on elliptic curve
// group elements. Implementations hold the affine coordinates of the point.
// Points are not safe for concurrent mutation.
type Point interface {
	// New returns a new elliptic curve point, set to the identity.
	New() Point

	// Order returns the order of the (sub)group the generator spans.
	Order() *big.Int

	// Add adds two group elements and stores the result in the receiver.
	Add(a, b Point)

	// ScalarMult multiplies the group element a by the scalar and stores the
	// result in the receiver.
	ScalarMult(a Point, scalar *big.Int)

	// ScalarBaseMult sets the receiver to scalar * G.
	ScalarBaseMult(scalar *big.Int)

	// Marshal serializes the element into its canonical compact encoding.
	Marshal() []byte

	// Unmarshal deserializes buf into the receiver. It fails if buf does not
	// encode a valid point of the group.
	Unmarshal(buf []byte) error

	// Equal reports whether both elements are the same.
	Equal(a Point) bool

	// Neg sets the receiver to -a.
	Neg(a Point)

	// SetZero sets the receiver to the identity element.
	SetZero()

	// Set copies a into the receiver.
	Set(a Point)

	// SetGenerator sets the receiver to the group generator.
	SetGenerator()

	// String returns a printable representation of the element. Equal points
	// always have the same string.
	String() string

	// Point returns the X and Y affine coordinates.
	Point() (*big.Int, *big.Int)

	// SetPoint returns a new element with the given affine coordinates.
	SetPoint(x, y *big.Int) Point

	// Type returns the curve identifier, as understood by curves.New.
	Type() string
}
