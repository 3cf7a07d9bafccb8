package api

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/vocdoni/confidential-polls/decrypt"
	"github.com/vocdoni/confidential-polls/fhe"
	"github.com/vocdoni/confidential-polls/gateway"
	"github.com/vocdoni/confidential-polls/types"
)

// Info is the public configuration of the node: everything a client needs
// to sign transactions, build encrypted inputs and request decryptions.
type Info struct {
	ChainID                uint64            `json:"chainId"`
	Contract               common.Address    `json:"contract"`
	FHE                    *fhe.PublicParams `json:"fhe"`
	Domain                 decrypt.Domain    `json:"decryptionDomain"`
	DecryptionDurationDays uint64            `json:"decryptionDurationDays"`
}

// TransactionResponse is the receipt of an executed transaction.
type TransactionResponse struct {
	Op         gateway.Op     `json:"op"`
	Caller     common.Address `json:"caller"`
	PlatformID uint64         `json:"platformId"`
	PollIndex  uint32         `json:"pollIndex"`
}

// NonceResponse is the next nonce of an account.
type NonceResponse struct {
	Address common.Address `json:"address"`
	Nonce   uint64         `json:"nonce"`
}

// Platforms is the list of platform summaries.
type Platforms struct {
	Platforms []*types.PlatformSummary `json:"platforms"`
}

// Membership tells whether an address belongs to a platform.
type Membership struct {
	PlatformID uint64         `json:"platformId"`
	Address    common.Address `json:"address"`
	Member     bool           `json:"member"`
}

// Polls is the list of polls of a platform.
type Polls struct {
	Polls []*types.PollInfo `json:"polls"`
}

// EncryptedCounts are the tally handles of a poll, one per option.
type EncryptedCounts struct {
	PlatformID uint64         `json:"platformId"`
	PollIndex  uint32         `json:"pollIndex"`
	Tallies    []types.Handle `json:"tallies"`
}

// Voted tells whether an address voted in a poll.
type Voted struct {
	Address common.Address `json:"address"`
	Voted   bool           `json:"voted"`
}
