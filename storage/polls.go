package storage

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vocdoni/confidential-polls/types"
)

// Poll returns the poll, or ErrNotFound.
func (tx *Tx) Poll(platformID uint64, index uint32) (*types.Poll, error) {
	p := &types.Poll{}
	if err := tx.getArtifact(pollPrefix, pollKey(platformID, index), p); err != nil {
		return nil, err
	}
	return p, nil
}

// SetPoll stores the poll.
func (tx *Tx) SetPoll(p *types.Poll) error {
	if p == nil {
		return fmt.Errorf("nil poll")
	}
	return tx.setArtifact(pollPrefix, pollKey(p.PlatformID, p.Index), p)
}

// ListPolls returns every poll of the platform ordered by index.
func (tx *Tx) ListPolls(platformID uint64) ([]*types.Poll, error) {
	values, err := tx.listValues(pollPrefix, platformKey(platformID))
	if err != nil {
		return nil, err
	}
	polls := make([]*types.Poll, 0, len(values))
	for _, v := range values {
		p := &types.Poll{}
		if err := decodeArtifact(v, p); err != nil {
			return nil, fmt.Errorf("decode poll: %w", err)
		}
		polls = append(polls, p)
	}
	slices.SortFunc(polls, func(a, b *types.Poll) int {
		return cmp.Compare(a.Index, b.Index)
	})
	return polls, nil
}

// HasVoted reports whether addr voted in the poll.
func (tx *Tx) HasVoted(platformID uint64, index uint32, addr common.Address) (bool, error) {
	return tx.hasKey(voterPrefix, voterKey(platformID, index, addr))
}

// SetVoted records that addr voted in the poll.
func (tx *Tx) SetVoted(platformID uint64, index uint32, addr common.Address) error {
	return tx.prefixed(voterPrefix).Set(voterKey(platformID, index, addr), addr.Bytes())
}

// TallyPoll returns the poll the handle is a tally of, or ErrNotFound.
func (tx *Tx) TallyPoll(handle types.Handle) (*PollRef, error) {
	ref := &PollRef{}
	if err := tx.getArtifact(tallyRefPrefix, handle.Bytes(), ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// SetTallyPoll indexes handle as a tally of the poll.
func (tx *Tx) SetTallyPoll(handle types.Handle, platformID uint64, index uint32) error {
	return tx.setArtifact(tallyRefPrefix, handle.Bytes(), &PollRef{PlatformID: platformID, Index: index})
}

// DeleteTallyPoll removes the tally index entry of handle.
func (tx *Tx) DeleteTallyPoll(handle types.Handle) error {
	return tx.prefixed(tallyRefPrefix).Delete(handle.Bytes())
}
