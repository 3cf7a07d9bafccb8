package types

const (
	// FirstPlatformID is the identifier assigned to the first platform created.
	FirstPlatformID uint64 = 1
	// MinPollOptions is the minimum number of options a poll must offer.
	MinPollOptions = 2
	// MaxPollOptions bounds the number of options (and therefore tallies) a
	// single poll can hold.
	MaxPollOptions = 64
	// MaxTitleLength bounds the size of platform names, poll titles and
	// option labels, in bytes.
	MaxTitleLength = 256
	// BallotValue is the plaintext a vote adds to the chosen option tally.
	BallotValue = 1
	// DefaultDecryptionDurationDays is the validity of a decryption grant.
	DefaultDecryptionDurationDays = 10
	// SecondsPerDay is used to convert grant durations to seconds.
	SecondsPerDay = 24 * 60 * 60
)
