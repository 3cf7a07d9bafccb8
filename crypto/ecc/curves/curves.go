package curves

import (
	"fmt"
	"slices"

	"github.com/vocdoni/confidential-polls/crypto/ecc"
	bjj_iden3 "github.com/vocdoni/confidential-polls/crypto/ecc/bjj_iden3"
	"github.com/vocdoni/confidential-polls/crypto/ecc/bn254"
)

const (
	CurveTypeBabyJubJub      = CurveTypeBabyJubJubIden3 // Default curve type
	CurveTypeBabyJubJubIden3 = bjj_iden3.CurveType
	CurveTypeBN254           = bn254.CurveType
)

// New creates a new instance of a Curve implementation based on the provided type string.
// The supported types are defined as constants in this package.
// If the type is not supported, it will panic.
func New(curveType string) ecc.Point {
	switch curveType {
	case CurveTypeBN254:
		return bn254.New()
	case CurveTypeBabyJubJubIden3:
		return bjj_iden3.New()
	default:
		panic(fmt.Sprintf("unsupported curve type: %s", curveType))
	}
}

// Curves returns the list of supported curve types.
func Curves() []string {
	return []string{CurveTypeBabyJubJubIden3, CurveTypeBN254}
}

// IsValid reports whether curveType is supported by New.
func IsValid(curveType string) bool {
	return slices.Contains(Curves(), curveType)
}
