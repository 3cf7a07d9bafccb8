package ledger

import "errors"

// Every ledger failure wraps exactly one of these kinds. Callers tell them
// apart with errors.Is.
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrAlreadyMember    = errors.New("already a member")
	ErrAlreadyVoted     = errors.New("already voted")
	ErrAlreadyFinalized = errors.New("poll already finalized")
	ErrFull             = errors.New("platform is full")
	ErrFinalized        = errors.New("poll is finalized")
	ErrInvalidProof     = errors.New("invalid encrypted input proof")
)
