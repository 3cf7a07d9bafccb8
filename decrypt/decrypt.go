// Package decrypt implements the client side of the decryption authorization
// protocol. Each attempt generates an ephemeral keypair, has the wallet sign
// an EIP-712 grant scoped to the ledger contract and a time window, and asks
// the relayer for the plaintexts, which come back sealed to the ephemeral key.
// Nothing here touches ledger state.
package decrypt

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/vocdoni/confidential-polls/log"
	"github.com/vocdoni/confidential-polls/types"
)

const (
	// DefaultTimeout bounds a single relayer call.
	DefaultTimeout = 60 * time.Second
	// DefaultRetries is the number of extra attempts of DecryptWithRetry.
	DefaultRetries = 2
	// DefaultRetryDelay is the pause between attempts.
	DefaultRetryDelay = time.Second
)

// HandleContractPair is a handle and the contract it belongs to.
type HandleContractPair struct {
	Handle   types.Handle   `json:"handle"`
	Contract common.Address `json:"contractAddress"`
}

// UserDecryptRequest is what the relayer receives. It carries the ephemeral
// public key but never the private one.
type UserDecryptRequest struct {
	Pairs             []HandleContractPair `json:"handleContractPairs"`
	PublicKey         types.HexBytes       `json:"publicKey"`
	Signature         types.HexBytes       `json:"signature"`
	ContractAddresses []common.Address     `json:"contractAddresses"`
	UserAddress       common.Address       `json:"userAddress"`
	StartTimestamp    uint64               `json:"startTimestamp"`
	DurationDays      uint64               `json:"durationDays"`
}

// TypedData returns the EIP-712 message the request signature covers.
func (r *UserDecryptRequest) TypedData(domain Domain) apitypes.TypedData {
	return TypedData(domain, r.PublicKey, r.ContractAddresses, r.StartTimestamp, r.DurationDays)
}

// SealedValue is a plaintext encrypted to the ephemeral public key.
type SealedValue struct {
	Handle types.Handle   `json:"handle"`
	Value  types.HexBytes `json:"value"`
}

// UserDecryptResponse is the relayer answer, one sealed value per requested
// handle.
type UserDecryptResponse struct {
	Results []SealedValue `json:"results"`
}

// Open opens every sealed value with kp and returns them by handle.
func (r *UserDecryptResponse) Open(kp *Keypair) (map[types.Handle]*big.Int, error) {
	values := make(map[types.Handle]*big.Int, len(r.Results))
	for _, sv := range r.Results {
		v, err := kp.Open(sv.Handle, sv.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecryptionUnavailable, err)
		}
		values[sv.Handle] = v
	}
	return values, nil
}

// Relayer performs user decryptions. Implementations send req to the
// decryption service and open the answer with kp locally.
type Relayer interface {
	UserDecrypt(ctx context.Context, req *UserDecryptRequest, kp *Keypair) (map[types.Handle]*big.Int, error)
}

// Signer is the wallet authorizing decryptions. *ethereum.SignKeys
// implements it.
type Signer interface {
	Address() common.Address
	SignTypedData(typedData apitypes.TypedData) ([]byte, error)
}

// Decryptor runs decryption attempts on behalf of a wallet.
type Decryptor struct {
	relayer      Relayer
	signer       Signer
	domain       Domain
	durationDays uint64
	timeout      time.Duration
	retries      uint64
	retryDelay   time.Duration
	now          func() time.Time
}

// Option configures a Decryptor.
type Option func(*Decryptor)

// WithTimeout sets the bound of a single relayer call.
func WithTimeout(d time.Duration) Option {
	return func(dec *Decryptor) { dec.timeout = d }
}

// WithRetries sets the extra attempts and the delay between them used by
// DecryptWithRetry.
func WithRetries(retries uint64, delay time.Duration) Option {
	return func(dec *Decryptor) {
		dec.retries = retries
		dec.retryDelay = delay
	}
}

// WithDurationDays sets the validity of the grants.
func WithDurationDays(days uint64) Option {
	return func(dec *Decryptor) { dec.durationDays = days }
}

// WithClock replaces the clock used for grant start timestamps.
func WithClock(now func() time.Time) Option {
	return func(dec *Decryptor) { dec.now = now }
}

// New returns a Decryptor. A nil relayer or signer is accepted, but every
// attempt then fails with ErrNotInitialized.
func New(relayer Relayer, signer Signer, domain Domain, opts ...Option) *Decryptor {
	d := &Decryptor{
		relayer:      relayer,
		signer:       signer,
		domain:       domain,
		durationDays: types.DefaultDecryptionDurationDays,
		timeout:      DefaultTimeout,
		retries:      DefaultRetries,
		retryDelay:   DefaultRetryDelay,
		now:          time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// DecryptValue decrypts a single handle of contract.
func (d *Decryptor) DecryptValue(ctx context.Context, contract common.Address, handle types.Handle) (*big.Int, error) {
	values, err := d.DecryptValues(ctx, contract, []types.Handle{handle})
	if err != nil {
		return nil, err
	}
	return values[0], nil
}

// DecryptValues runs one decryption attempt for handles of contract and
// returns the plaintexts in the same order.
func (d *Decryptor) DecryptValues(ctx context.Context, contract common.Address, handles []types.Handle) ([]*big.Int, error) {
	if d == nil || d.relayer == nil || d.signer == nil {
		return nil, ErrNotInitialized
	}
	if len(handles) == 0 {
		return nil, fmt.Errorf("%w: no handles to decrypt", ErrDecryptionUnavailable)
	}
	attempt := uuid.New().String()

	kp, err := GenerateKeypair()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionUnavailable, err)
	}
	req := &UserDecryptRequest{
		Pairs:             make([]HandleContractPair, len(handles)),
		PublicKey:         kp.PublicKey(),
		ContractAddresses: []common.Address{contract},
		UserAddress:       d.signer.Address(),
		StartTimestamp:    uint64(d.now().Unix()),
		DurationDays:      d.durationDays,
	}
	for i, h := range handles {
		req.Pairs[i] = HandleContractPair{Handle: h, Contract: contract}
	}
	if req.Signature, err = d.signer.SignTypedData(req.TypedData(d.domain)); err != nil {
		return nil, fmt.Errorf("%w: could not sign grant: %v", ErrUnauthorized, err)
	}
	log.Debugw("decryption attempt", "attempt", attempt, "user", req.UserAddress.Hex(),
		"contract", contract.Hex(), "handles", len(handles))

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	values, err := d.relayer.UserDecrypt(callCtx, req, kp)
	if err != nil {
		// the parent context is the caller's to report
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil {
			err = fmt.Errorf("%w after %s", ErrTimeout, d.timeout)
		} else if !errors.Is(err, ErrUnauthorized) && !errors.Is(err, ErrTimeout) &&
			!errors.Is(err, ErrDecryptionUnavailable) {
			err = fmt.Errorf("%w: %v", ErrDecryptionUnavailable, err)
		}
		log.Debugw("decryption attempt failed", "attempt", attempt, "error", err.Error())
		return nil, err
	}

	plaintexts := make([]*big.Int, len(handles))
	for i, h := range handles {
		v, ok := values[h]
		if !ok {
			return nil, fmt.Errorf("%w: no value for handle %s", ErrDecryptionUnavailable, h)
		}
		plaintexts[i] = v
	}
	return plaintexts, nil
}

// DecryptWithRetry runs DecryptValues, retrying with a fresh keypair and
// grant while attempts time out.
func (d *Decryptor) DecryptWithRetry(ctx context.Context, contract common.Address, handles []types.Handle) ([]*big.Int, error) {
	var plaintexts []*big.Int
	backoff := retry.WithMaxRetries(d.retries, retry.NewConstant(d.retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		plaintexts, err = d.DecryptValues(ctx, contract, handles)
		if Retryable(err) {
			log.Warnw("decryption timed out, retrying", "contract", contract.Hex())
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return plaintexts, nil
}

// DecryptPoll decrypts the tallies of a finalized poll and maps them to its
// options.
func (d *Decryptor) DecryptPoll(ctx context.Context, contract common.Address, poll *types.PollInfo, tallies []types.Handle) ([]types.OptionResult, error) {
	counts, err := d.DecryptWithRetry(ctx, contract, tallies)
	if err != nil {
		return nil, err
	}
	return PollResults(poll.Options, counts)
}

// PollResults maps decrypted counts to option labels by position.
func PollResults(options []string, counts []*big.Int) ([]types.OptionResult, error) {
	if len(options) != len(counts) {
		return nil, fmt.Errorf("%d options but %d counts", len(options), len(counts))
	}
	results := make([]types.OptionResult, len(options))
	for i, opt := range options {
		results[i] = types.OptionResult{Option: opt, Count: (*types.BigInt)(new(big.Int).Set(counts[i]))}
	}
	return results, nil
}
