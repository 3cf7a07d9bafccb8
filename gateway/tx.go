package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vocdoni/confidential-polls/crypto/ethereum"
	"github.com/vocdoni/confidential-polls/types"
)

// Op identifies a ledger mutation.
type Op string

const (
	OpCreatePlatform Op = "createPlatform"
	OpJoinPlatform   Op = "joinPlatform"
	OpCreatePoll     Op = "createPoll"
	OpVote           Op = "vote"
	OpFinalize       Op = "finalize"
)

// Valid reports whether op is a known operation.
func (op Op) Valid() bool {
	switch op {
	case OpCreatePlatform, OpJoinPlatform, OpCreatePoll, OpVote, OpFinalize:
		return true
	}
	return false
}

// Tx is a ledger mutation. Only the fields of its Op are meaningful.
type Tx struct {
	Op          Op             `json:"op"`
	PlatformID  uint64         `json:"platformId,omitempty"`
	PollIndex   uint32         `json:"pollIndex,omitempty"`
	Name        string         `json:"name,omitempty"`
	MemberLimit uint32         `json:"memberLimit,omitempty"`
	Title       string         `json:"title,omitempty"`
	Options     []string       `json:"options,omitempty"`
	Choice      uint32         `json:"choice,omitempty"`
	Handle      *types.Handle  `json:"handle,omitempty"`
	Proof       types.HexBytes `json:"proof,omitempty"`
}

// CreatePlatformTx builds a createPlatform transaction.
func CreatePlatformTx(name string, memberLimit uint32) *Tx {
	return &Tx{Op: OpCreatePlatform, Name: name, MemberLimit: memberLimit}
}

// JoinPlatformTx builds a joinPlatform transaction.
func JoinPlatformTx(platformID uint64) *Tx {
	return &Tx{Op: OpJoinPlatform, PlatformID: platformID}
}

// CreatePollTx builds a createPoll transaction.
func CreatePollTx(platformID uint64, title string, options []string) *Tx {
	return &Tx{Op: OpCreatePoll, PlatformID: platformID, Title: title, Options: options}
}

// VoteTx builds a vote transaction carrying an encrypted input.
func VoteTx(platformID uint64, pollIndex, choice uint32, handle types.Handle, proof []byte) *Tx {
	return &Tx{
		Op:         OpVote,
		PlatformID: platformID,
		PollIndex:  pollIndex,
		Choice:     choice,
		Handle:     &handle,
		Proof:      proof,
	}
}

// FinalizeTx builds a finalize transaction.
func FinalizeTx(platformID uint64, pollIndex uint32) *Tx {
	return &Tx{Op: OpFinalize, PlatformID: platformID, PollIndex: pollIndex}
}

// SignedTx is a transaction authenticated by an EIP-191 signature of its
// sender over (chainId, nonce, tx).
type SignedTx struct {
	ChainID   uint64         `json:"chainId"`
	Nonce     uint64         `json:"nonce"`
	Tx        *Tx            `json:"tx"`
	Signature types.HexBytes `json:"signature"`
}

// signedPayload is the canonical message signed by the sender.
type signedPayload struct {
	ChainID uint64 `json:"chainId"`
	Nonce   uint64 `json:"nonce"`
	Tx      *Tx    `json:"tx"`
}

// Payload returns the bytes covered by the signature.
func (s *SignedTx) Payload() ([]byte, error) {
	if s.Tx == nil {
		return nil, fmt.Errorf("empty transaction")
	}
	return json.Marshal(&signedPayload{ChainID: s.ChainID, Nonce: s.Nonce, Tx: s.Tx})
}

// Sender recovers the address that signed the transaction.
func (s *SignedTx) Sender() (common.Address, error) {
	payload, err := s.Payload()
	if err != nil {
		return common.Address{}, err
	}
	return ethereum.AddrFromSignature(payload, s.Signature)
}

// SignTx signs tx for chainID and nonce with the given keys.
func SignTx(keys *ethereum.SignKeys, chainID, nonce uint64, tx *Tx) (*SignedTx, error) {
	stx := &SignedTx{ChainID: chainID, Nonce: nonce, Tx: tx}
	payload, err := stx.Payload()
	if err != nil {
		return nil, err
	}
	if stx.Signature, err = keys.SignEthereum(payload); err != nil {
		return nil, fmt.Errorf("could not sign transaction: %w", err)
	}
	return stx, nil
}

// Receipt is the outcome of an executed transaction. PlatformID and PollIndex
// carry the identifiers assigned by createPlatform and createPoll.
type Receipt struct {
	Op         Op             `json:"op"`
	Caller     common.Address `json:"caller"`
	PlatformID uint64         `json:"platformId"`
	PollIndex  uint32         `json:"pollIndex"`
	Err        error          `json:"-"`
}
