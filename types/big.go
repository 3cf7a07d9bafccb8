package types

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// BigInt is a big.Int wrapper which marshals JSON to a decimal string and CBOR
// to a tagged bignum.
type BigInt big.Int

// MarshalText returns the decimal string representation of the big number.
func (i BigInt) MarshalText() ([]byte, error) {
	return (*big.Int)(&i).MarshalText()
}

// UnmarshalText parses the text representation into the big number.
func (i *BigInt) UnmarshalText(data []byte) error {
	if i == nil {
		return fmt.Errorf("cannot unmarshal into nil BigInt")
	}
	if _, ok := i.MathBigInt().SetString(string(data), 0); !ok {
		return fmt.Errorf("invalid big number %q", data)
	}
	return nil
}

// MarshalCBOR encodes the number as a CBOR bignum.
func (i *BigInt) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(i.MathBigInt())
}

// UnmarshalCBOR decodes a CBOR bignum.
func (i *BigInt) UnmarshalCBOR(data []byte) error {
	return cbor.Unmarshal(data, i.MathBigInt())
}

// MathBigInt converts i to a *math/big.Int. Both share the same memory.
func (i *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(i)
}

// SetUint64 sets the value of x to the big number.
func (i *BigInt) SetUint64(x uint64) *BigInt {
	i.MathBigInt().SetUint64(x)
	return i
}

// Uint64 returns the uint64 representation of i.
func (i *BigInt) Uint64() uint64 {
	return i.MathBigInt().Uint64()
}

// String returns the decimal representation of i.
func (i *BigInt) String() string {
	return i.MathBigInt().String()
}

// Equal returns true if i and j hold the same value.
func (i *BigInt) Equal(j *BigInt) bool {
	return i.MathBigInt().Cmp(j.MathBigInt()) == 0
}
