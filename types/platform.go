package types

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
)

// Platform is a named group of members with a membership cap. Polls are
// scoped to a platform.
type Platform struct {
	ID          uint64         `json:"id"          cbor:"0,keyasint,omitempty"`
	Name        string         `json:"name"        cbor:"1,keyasint,omitempty"`
	MemberLimit uint32         `json:"memberLimit" cbor:"2,keyasint,omitempty"`
	MemberCount uint32         `json:"memberCount" cbor:"3,keyasint,omitempty"`
	PollCount   uint32         `json:"pollCount"   cbor:"4,keyasint,omitempty"`
	Creator     common.Address `json:"creator"     cbor:"5,keyasint,omitempty"`
}

// IsFull reports whether the platform reached its member limit.
func (p *Platform) IsFull() bool {
	return p.MemberCount >= p.MemberLimit
}

func (p *Platform) String() string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}

// PlatformSummary is the public projection of a Platform.
type PlatformSummary struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	MemberLimit uint32 `json:"memberLimit"`
	MemberCount uint32 `json:"memberCount"`
	PollCount   uint32 `json:"pollCount"`
}

// Summary returns the public projection of p.
func (p *Platform) Summary() *PlatformSummary {
	return &PlatformSummary{
		ID:          p.ID,
		Name:        p.Name,
		MemberLimit: p.MemberLimit,
		MemberCount: p.MemberCount,
		PollCount:   p.PollCount,
	}
}

// Poll is a multi-option vote scoped to a platform. Tallies holds one
// encrypted counter per option, in the same order as Options.
type Poll struct {
	PlatformID          uint64         `json:"platformId"          cbor:"0,keyasint,omitempty"`
	Index               uint32         `json:"index"               cbor:"1,keyasint,omitempty"`
	Title               string         `json:"title"               cbor:"2,keyasint,omitempty"`
	Options             []string       `json:"options"             cbor:"3,keyasint,omitempty"`
	Tallies             []Handle       `json:"tallies"             cbor:"4,keyasint,omitempty"`
	MemberCountSnapshot uint32         `json:"memberCountSnapshot" cbor:"5,keyasint,omitempty"`
	TotalVoted          uint32         `json:"totalVoted"          cbor:"6,keyasint,omitempty"`
	Finalized           bool           `json:"finalized"           cbor:"7,keyasint,omitempty"`
	Creator             common.Address `json:"creator"             cbor:"8,keyasint,omitempty"`
}

func (p *Poll) String() string {
	data, err := json.Marshal(p.Info())
	if err != nil {
		return ""
	}
	return string(data)
}

// PollInfo is the public projection of a Poll. The tallies are exposed
// separately, as encrypted counts.
type PollInfo struct {
	PlatformID          uint64   `json:"platformId"`
	Index               uint32   `json:"index"`
	Title               string   `json:"title"`
	Options             []string `json:"options"`
	TotalVoted          uint32   `json:"totalVoted"`
	MemberCountSnapshot uint32   `json:"memberCountSnapshot"`
	Finalized           bool     `json:"finalized"`
}

// Info returns the public projection of p.
func (p *Poll) Info() *PollInfo {
	options := make([]string, len(p.Options))
	copy(options, p.Options)
	return &PollInfo{
		PlatformID:          p.PlatformID,
		Index:               p.Index,
		Title:               p.Title,
		Options:             options,
		TotalVoted:          p.TotalVoted,
		MemberCountSnapshot: p.MemberCountSnapshot,
		Finalized:           p.Finalized,
	}
}

// OptionResult is a decrypted tally mapped back to its option label.
type OptionResult struct {
	Option string  `json:"option"`
	Count  *BigInt `json:"count"`
}
