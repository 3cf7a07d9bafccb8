// Package ledger implements the membership registry and the poll ledger:
// platforms with a member cap, and polls whose per-option tallies are
// encrypted counters only ever updated through the FHE primitive.
//
// The ledger takes no locks. Mutations must be serialized by the caller (the
// gateway does), and each of them runs in a single storage transaction, so
// it either fully applies or leaves no trace.
package ledger

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vocdoni/confidential-polls/fhe"
	"github.com/vocdoni/confidential-polls/log"
	"github.com/vocdoni/confidential-polls/storage"
	"github.com/vocdoni/confidential-polls/types"
)

// Ledger is the platform and poll state machine.
type Ledger struct {
	stg      *storage.Storage
	fhe      fhe.Primitive
	contract common.Address
	hook     func(tx *storage.Tx) error
}

// New returns a Ledger persisting its state in stg and operating tallies
// with primitive. Encrypted inputs must be bound to contract.
func New(stg *storage.Storage, primitive fhe.Primitive, contract common.Address) *Ledger {
	return &Ledger{stg: stg, fhe: primitive, contract: contract}
}

// WithCommitHook returns a ledger sharing the state of l whose successful
// mutations also run hook inside their storage transaction, so whatever
// hook writes commits together with the mutation. If hook fails the
// mutation is discarded and its error returned.
func (l *Ledger) WithCommitHook(hook func(tx *storage.Tx) error) *Ledger {
	hooked := *l
	hooked.hook = hook
	return &hooked
}

// update runs fn and then the commit hook, if any, in one storage
// transaction.
func (l *Ledger) update(fn func(tx *storage.Tx) error) error {
	return l.stg.Update(func(tx *storage.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		if l.hook == nil {
			return nil
		}
		return l.hook(tx)
	})
}

// Contract returns the address encrypted inputs are bound to.
func (l *Ledger) Contract() common.Address {
	return l.contract
}

// FHE returns the primitive the ledger operates tallies with.
func (l *Ledger) FHE() fhe.Primitive {
	return l.fhe
}

// CreatePlatform registers a new platform with an empty member set and
// returns its id. Ids are sequential, starting at types.FirstPlatformID.
func (l *Ledger) CreatePlatform(caller common.Address, name string, memberLimit uint32) (uint64, error) {
	if memberLimit == 0 {
		return 0, fmt.Errorf("%w: member limit must be greater than zero", ErrInvalidArgument)
	}
	if len(name) > types.MaxTitleLength {
		return 0, fmt.Errorf("%w: name longer than %d bytes", ErrInvalidArgument, types.MaxTitleLength)
	}
	var id uint64
	err := l.update(func(tx *storage.Tx) error {
		var err error
		if id, err = tx.NextPlatformID(); err != nil {
			return err
		}
		if err := tx.SetPlatform(&types.Platform{
			ID:          id,
			Name:        name,
			MemberLimit: memberLimit,
			Creator:     caller,
		}); err != nil {
			return err
		}
		return tx.SetNextPlatformID(id + 1)
	})
	if err != nil {
		return 0, err
	}
	log.Infow("platform created", "id", id, "name", name, "memberLimit", memberLimit, "creator", caller.Hex())
	return id, nil
}

// JoinPlatform adds caller to the platform members.
func (l *Ledger) JoinPlatform(caller common.Address, platformID uint64) error {
	var count uint32
	err := l.update(func(tx *storage.Tx) error {
		p, err := platform(tx, platformID)
		if err != nil {
			return err
		}
		member, err := tx.IsMember(platformID, caller)
		if err != nil {
			return err
		}
		if member {
			return fmt.Errorf("%w: %s in platform %d", ErrAlreadyMember, caller.Hex(), platformID)
		}
		if p.IsFull() {
			return fmt.Errorf("%w: platform %d has %d members", ErrFull, platformID, p.MemberLimit)
		}
		p.MemberCount++
		count = p.MemberCount
		if err := tx.AddMember(platformID, caller, p.MemberCount); err != nil {
			return err
		}
		return tx.SetPlatform(p)
	})
	if err != nil {
		return err
	}
	log.Infow("platform joined", "id", platformID, "member", caller.Hex(), "memberCount", count)
	return nil
}

// CreatePoll creates a poll in the platform and returns its index. It
// snapshots the current member count and starts every option tally at an
// encryption of zero.
func (l *Ledger) CreatePoll(caller common.Address, platformID uint64, title string, options []string) (uint32, error) {
	if err := validatePoll(title, options); err != nil {
		return 0, err
	}
	var index uint32
	err := l.update(func(tx *storage.Tx) error {
		p, err := platform(tx, platformID)
		if err != nil {
			return err
		}
		index = p.PollCount
		poll := &types.Poll{
			PlatformID:          platformID,
			Index:               index,
			Title:               title,
			Options:             slices.Clone(options),
			Tallies:             make([]types.Handle, len(options)),
			MemberCountSnapshot: p.MemberCount,
			Creator:             caller,
		}
		for i := range poll.Tallies {
			if poll.Tallies[i], err = l.fhe.EncryptZero(tx); err != nil {
				return fmt.Errorf("encrypt initial tally: %w", err)
			}
			if err := tx.SetTallyPoll(poll.Tallies[i], platformID, index); err != nil {
				return err
			}
		}
		if err := tx.SetPoll(poll); err != nil {
			return err
		}
		p.PollCount++
		return tx.SetPlatform(p)
	})
	if err != nil {
		return 0, err
	}
	log.Infow("poll created", "platformId", platformID, "index", index, "options", len(options), "creator", caller.Hex())
	return index, nil
}

// Vote adds the encrypted input handle to the tally of the chosen option.
// The choice is public, only the magnitude is encrypted, and the proof must
// show it is exactly one vote.
func (l *Ledger) Vote(caller common.Address, platformID uint64, pollIndex, choice uint32, handle types.Handle, proof []byte) error {
	var totalVoted uint32
	err := l.update(func(tx *storage.Tx) error {
		poll, err := l.memberPoll(tx, caller, platformID, pollIndex)
		if err != nil {
			return err
		}
		voted, err := tx.HasVoted(platformID, pollIndex, caller)
		if err != nil {
			return err
		}
		if voted {
			return fmt.Errorf("%w: %s in poll %d/%d", ErrAlreadyVoted, caller.Hex(), platformID, pollIndex)
		}
		if poll.Finalized {
			return fmt.Errorf("%w: %d/%d", ErrFinalized, platformID, pollIndex)
		}
		if choice >= uint32(len(poll.Options)) {
			return fmt.Errorf("%w: choice %d out of range, poll has %d options",
				ErrInvalidArgument, choice, len(poll.Options))
		}
		ctx := fhe.ProofContext{
			Contract:   l.contract,
			Submitter:  caller,
			Value:      types.BallotValue,
			PlatformID: platformID,
			PollIndex:  pollIndex,
		}
		if !l.fhe.VerifyProof(tx, handle, proof, ctx) {
			return ErrInvalidProof
		}
		old := poll.Tallies[choice]
		sum, err := l.fhe.Add(tx, old, handle)
		if err != nil {
			return fmt.Errorf("add to tally: %w", err)
		}
		if err := tx.DeleteTallyPoll(old); err != nil {
			return err
		}
		if err := tx.SetTallyPoll(sum, platformID, pollIndex); err != nil {
			return err
		}
		poll.Tallies[choice] = sum
		poll.TotalVoted++
		totalVoted = poll.TotalVoted
		if err := tx.SetVoted(platformID, pollIndex, caller); err != nil {
			return err
		}
		return tx.SetPoll(poll)
	})
	if err != nil {
		return err
	}
	log.Infow("vote accepted", "platformId", platformID, "pollIndex", pollIndex, "voter", caller.Hex(), "totalVoted", totalVoted)
	return nil
}

// Finalize closes the poll. It is a one way transition which enables the
// decryption of the tallies.
func (l *Ledger) Finalize(caller common.Address, platformID uint64, pollIndex uint32) error {
	err := l.update(func(tx *storage.Tx) error {
		poll, err := l.memberPoll(tx, caller, platformID, pollIndex)
		if err != nil {
			return err
		}
		if poll.Finalized {
			return fmt.Errorf("%w: %d/%d", ErrAlreadyFinalized, platformID, pollIndex)
		}
		poll.Finalized = true
		return tx.SetPoll(poll)
	})
	if err != nil {
		return err
	}
	log.Infow("poll finalized", "platformId", platformID, "pollIndex", pollIndex, "by", caller.Hex())
	return nil
}

// memberPoll loads the poll and checks caller is a member of its platform.
func (l *Ledger) memberPoll(tx *storage.Tx, caller common.Address, platformID uint64, pollIndex uint32) (*types.Poll, error) {
	poll, err := pollByIndex(tx, platformID, pollIndex)
	if err != nil {
		return nil, err
	}
	member, err := tx.IsMember(platformID, caller)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("%w: %s is not a member of platform %d", ErrForbidden, caller.Hex(), platformID)
	}
	return poll, nil
}

func validatePoll(title string, options []string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: empty title", ErrInvalidArgument)
	}
	if len(title) > types.MaxTitleLength {
		return fmt.Errorf("%w: title longer than %d bytes", ErrInvalidArgument, types.MaxTitleLength)
	}
	if len(options) < types.MinPollOptions {
		return fmt.Errorf("%w: at least %d options required", ErrInvalidArgument, types.MinPollOptions)
	}
	if len(options) > types.MaxPollOptions {
		return fmt.Errorf("%w: at most %d options allowed", ErrInvalidArgument, types.MaxPollOptions)
	}
	for i, o := range options {
		if len(o) > types.MaxTitleLength {
			return fmt.Errorf("%w: option %d longer than %d bytes", ErrInvalidArgument, i, types.MaxTitleLength)
		}
	}
	return nil
}

func platform(tx *storage.Tx, id uint64) (*types.Platform, error) {
	p, err := tx.Platform(id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: platform %d", ErrNotFound, id)
	}
	return p, err
}

func pollByIndex(tx *storage.Tx, platformID uint64, index uint32) (*types.Poll, error) {
	if _, err := platform(tx, platformID); err != nil {
		return nil, err
	}
	poll, err := tx.Poll(platformID, index)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: poll %d/%d", ErrNotFound, platformID, index)
	}
	return poll, err
}
