package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// InfoEndpoint returns the public parameters of the node
	InfoEndpoint = "/info"
	// MetricsEndpoint exposes the Prometheus metrics
	MetricsEndpoint = "/metrics"

	// TransactionsEndpoint is the endpoint for submitting signed transactions
	TransactionsEndpoint = "/transactions"
	// AccountNonceEndpoint returns the next nonce of an account
	AddressURLParam      = "address"
	AccountNonceEndpoint = "/accounts/{" + AddressURLParam + "}/nonce"

	// PlatformsEndpoint lists the platforms
	PlatformsEndpoint = "/platforms"
	// PlatformEndpoint returns a platform summary
	PlatformURLParam = "platformId"
	PlatformEndpoint = "/platforms/{" + PlatformURLParam + "}"
	// MemberEndpoint reports whether an address is a platform member
	MemberEndpoint = PlatformEndpoint + "/members/{" + AddressURLParam + "}"
	// MemberProofEndpoint returns the membership proof of an address
	MemberProofEndpoint = MemberEndpoint + "/proof"

	// PollsEndpoint lists the polls of a platform
	PollsEndpoint = PlatformEndpoint + "/polls"
	// PollEndpoint returns a poll
	PollURLParam = "pollIndex"
	PollEndpoint = PollsEndpoint + "/{" + PollURLParam + "}"
	// PollCountsEndpoint returns the encrypted tallies of a poll
	PollCountsEndpoint = PollEndpoint + "/counts"
	// PollVoterEndpoint reports whether an address voted in a poll
	PollVoterEndpoint = PollEndpoint + "/voters/{" + AddressURLParam + "}"

	// DecryptEndpoint is the relayer user decryption endpoint
	DecryptEndpoint = "/decrypt"
)
