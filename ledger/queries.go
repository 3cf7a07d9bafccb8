package ledger

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vocdoni/confidential-polls/log"
	"github.com/vocdoni/confidential-polls/storage"
	"github.com/vocdoni/confidential-polls/storage/census"
	"github.com/vocdoni/confidential-polls/types"
)

// Platforms returns every platform summary ordered by ascending id.
func (l *Ledger) Platforms() ([]*types.PlatformSummary, error) {
	summaries := []*types.PlatformSummary{}
	err := l.stg.View(func(tx *storage.Tx) error {
		platforms, err := tx.ListPlatforms()
		if err != nil {
			return err
		}
		for _, p := range platforms {
			summaries = append(summaries, p.Summary())
		}
		return nil
	})
	return summaries, err
}

// Platform returns the summary of one platform.
func (l *Ledger) Platform(id uint64) (*types.PlatformSummary, error) {
	var summary *types.PlatformSummary
	err := l.stg.View(func(tx *storage.Tx) error {
		p, err := platform(tx, id)
		if err != nil {
			return err
		}
		summary = p.Summary()
		return nil
	})
	return summary, err
}

// IsMember reports whether addr is a member of the platform. Unknown
// platforms have no members.
func (l *Ledger) IsMember(platformID uint64, addr common.Address) bool {
	var member bool
	if err := l.stg.View(func(tx *storage.Tx) error {
		var err error
		member, err = tx.IsMember(platformID, addr)
		return err
	}); err != nil {
		log.Warnw("cannot check membership", "platformId", platformID, "address", addr.Hex(), "err", err.Error())
		return false
	}
	return member
}

// MembershipProof returns the Merkle proof of addr in the platform
// membership tree. It is a non inclusion proof if addr is not a member.
func (l *Ledger) MembershipProof(platformID uint64, addr common.Address) (*census.Proof, error) {
	var proof *census.Proof
	err := l.stg.View(func(tx *storage.Tx) error {
		if _, err := platform(tx, platformID); err != nil {
			return err
		}
		var err error
		proof, err = tx.MembershipProof(platformID, addr)
		return err
	})
	return proof, err
}

// Poll returns the public information of a poll.
func (l *Ledger) Poll(platformID uint64, pollIndex uint32) (*types.PollInfo, error) {
	var info *types.PollInfo
	err := l.stg.View(func(tx *storage.Tx) error {
		poll, err := pollByIndex(tx, platformID, pollIndex)
		if err != nil {
			return err
		}
		info = poll.Info()
		return nil
	})
	return info, err
}

// ListPolls returns the public information of every poll of the platform, in
// index order.
func (l *Ledger) ListPolls(platformID uint64) ([]*types.PollInfo, error) {
	infos := []*types.PollInfo{}
	err := l.stg.View(func(tx *storage.Tx) error {
		if _, err := platform(tx, platformID); err != nil {
			return err
		}
		polls, err := tx.ListPolls(platformID)
		if err != nil {
			return err
		}
		for _, poll := range polls {
			infos = append(infos, poll.Info())
		}
		return nil
	})
	return infos, err
}

// EncryptedCounts returns the current tally handles of a poll, one per
// option in option order.
func (l *Ledger) EncryptedCounts(platformID uint64, pollIndex uint32) ([]types.Handle, error) {
	var handles []types.Handle
	err := l.stg.View(func(tx *storage.Tx) error {
		poll, err := pollByIndex(tx, platformID, pollIndex)
		if err != nil {
			return err
		}
		handles = append([]types.Handle(nil), poll.Tallies...)
		return nil
	})
	return handles, err
}

// HasVoted reports whether addr voted in the poll.
func (l *Ledger) HasVoted(platformID uint64, pollIndex uint32, addr common.Address) (bool, error) {
	var voted bool
	err := l.stg.View(func(tx *storage.Tx) error {
		if _, err := pollByIndex(tx, platformID, pollIndex); err != nil {
			return err
		}
		var err error
		voted, err = tx.HasVoted(platformID, pollIndex, addr)
		return err
	})
	return voted, err
}

// IsAllowed is the decryption access control: handle must be the current
// tally of a finalized poll and account a member of the poll platform.
func (l *Ledger) IsAllowed(handle types.Handle, account common.Address) bool {
	allowed := false
	err := l.stg.View(func(tx *storage.Tx) error {
		ref, err := tx.TallyPoll(handle)
		if err != nil {
			return err
		}
		poll, err := tx.Poll(ref.PlatformID, ref.Index)
		if err != nil {
			return err
		}
		if !poll.Finalized {
			return fmt.Errorf("poll %d/%d is not finalized", ref.PlatformID, ref.Index)
		}
		current := false
		for _, t := range poll.Tallies {
			if t == handle {
				current = true
				break
			}
		}
		if !current {
			return fmt.Errorf("handle is not a current tally of poll %d/%d", ref.PlatformID, ref.Index)
		}
		member, err := tx.IsMember(ref.PlatformID, account)
		if err != nil {
			return err
		}
		if !member {
			return fmt.Errorf("%s is not a member of platform %d", account.Hex(), ref.PlatformID)
		}
		allowed = true
		return nil
	})
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Debugw("decryption not allowed", "handle", handle.String(), "account", account.Hex(), "reason", err.Error())
	}
	return allowed
}
