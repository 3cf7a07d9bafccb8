package decrypt

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	// DomainName and DomainVersion identify the EIP-712 domain of
	// decryption grants.
	DomainName    = "Decryption"
	DomainVersion = "1"

	primaryType = "UserDecryptRequestVerification"
)

// Domain is the EIP-712 domain a grant is signed under. VerifyingContract is
// the KMS verifying contract advertised by the node.
type Domain struct {
	Name              string         `json:"name"`
	Version           string         `json:"version"`
	ChainID           uint64         `json:"chainId"`
	VerifyingContract common.Address `json:"verifyingContract"`
}

// NewDomain returns the decryption domain for chainID and verifyingContract.
func NewDomain(chainID uint64, verifyingContract common.Address) Domain {
	return Domain{
		Name:              DomainName,
		Version:           DomainVersion,
		ChainID:           chainID,
		VerifyingContract: verifyingContract,
	}
}

var grantTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	primaryType: {
		{Name: "publicKey", Type: "bytes"},
		{Name: "contractAddresses", Type: "address[]"},
		{Name: "startTimestamp", Type: "uint256"},
		{Name: "durationDays", Type: "uint256"},
	},
}

// TypedData builds the message a wallet signs to authorize the holder of
// publicKey to decrypt values of contracts during
// [startTimestamp, startTimestamp+durationDays].
func TypedData(domain Domain, publicKey []byte, contracts []common.Address, startTimestamp, durationDays uint64) apitypes.TypedData {
	addrs := make([]any, len(contracts))
	for i, c := range contracts {
		addrs[i] = c.Hex()
	}
	return apitypes.TypedData{
		Types:       grantTypes,
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).SetUint64(domain.ChainID)),
			VerifyingContract: domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"publicKey":         hexutil.Encode(publicKey),
			"contractAddresses": addrs,
			"startTimestamp":    strconv.FormatUint(startTimestamp, 10),
			"durationDays":      strconv.FormatUint(durationDays, 10),
		},
	}
}
