// Package relayer implements the decryption service. It checks user
// decryption grants (scope, validity window, EIP-712 signature and the ledger
// access control), decrypts the requested handles with the KMS and seals
// every plaintext to the ephemeral key of the request.
package relayer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/vocdoni/confidential-polls/crypto/ethereum"
	"github.com/vocdoni/confidential-polls/decrypt"
	"github.com/vocdoni/confidential-polls/log"
	"github.com/vocdoni/confidential-polls/metrics"
	"github.com/vocdoni/confidential-polls/types"
)

const (
	// DefaultMaxGrantDays is the longest grant validity accepted.
	DefaultMaxGrantDays = 365
	// MaxHandlesPerRequest bounds the handles of a single request.
	MaxHandlesPerRequest = 2 * types.MaxPollOptions
)

// ACL decides whether account may decrypt handle. *ledger.Ledger implements
// it.
type ACL interface {
	IsAllowed(handle types.Handle, account common.Address) bool
}

// Config is the relayer configuration.
type Config struct {
	// Domain is the EIP-712 domain grants are signed under.
	Domain decrypt.Domain
	// Contract is the ledger contract whose handles are served.
	Contract common.Address
	// MaxGrantDays is the longest accepted grant duration.
	MaxGrantDays uint64
	// Timeout bounds the handling of one request, decrypt.DefaultTimeout if
	// zero.
	Timeout time.Duration
	// Now is the clock, time.Now if nil.
	Now func() time.Time
}

// Relayer serves user decryption requests.
type Relayer struct {
	kms          *KMS
	acl          ACL
	domain       decrypt.Domain
	contract     common.Address
	maxGrantDays uint64
	timeout      time.Duration
	now          func() time.Time
}

// New returns a relayer decrypting with kms under the access control acl.
func New(kms *KMS, acl ACL, conf Config) *Relayer {
	r := &Relayer{
		kms:          kms,
		acl:          acl,
		domain:       conf.Domain,
		contract:     conf.Contract,
		maxGrantDays: conf.MaxGrantDays,
		timeout:      conf.Timeout,
		now:          conf.Now,
	}
	if r.maxGrantDays == 0 {
		r.maxGrantDays = DefaultMaxGrantDays
	}
	if r.timeout <= 0 {
		r.timeout = decrypt.DefaultTimeout
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Domain returns the EIP-712 domain grants must be signed under.
func (r *Relayer) Domain() decrypt.Domain {
	return r.domain
}

// UserDecrypt checks the grant carried by req and returns the requested
// plaintexts sealed to req.PublicKey. Requests running past the configured
// timeout fail with decrypt.ErrTimeout.
func (r *Relayer) UserDecrypt(ctx context.Context, req *decrypt.UserDecryptRequest) (*decrypt.UserDecryptResponse, error) {
	id := uuid.New().String()
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	resp, err := r.userDecrypt(ctx, id, req)
	label := metrics.ResultOK
	switch {
	case err == nil:
		log.Debugw("user decryption served", "request", id, "user", req.UserAddress.Hex(), "handles", len(req.Pairs))
	default:
		label = metrics.ResultError
		log.Infow("user decryption rejected", "request", id, "error", err.Error())
	}
	metrics.Decryptions.WithLabelValues(label).Inc()
	return resp, err
}

func (r *Relayer) userDecrypt(ctx context.Context, id string, req *decrypt.UserDecryptRequest) (*decrypt.UserDecryptResponse, error) {
	if r == nil || r.kms == nil || r.acl == nil {
		return nil, fmt.Errorf("%w: relayer not initialized", decrypt.ErrDecryptionUnavailable)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: empty request", decrypt.ErrUnauthorized)
	}
	if err := r.checkScope(req); err != nil {
		return nil, err
	}
	if err := r.checkWindow(req); err != nil {
		return nil, err
	}
	signer, err := ethereum.AddrFromTypedDataSignature(req.TypedData(r.domain), req.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", decrypt.ErrUnauthorized, err)
	}
	if signer != req.UserAddress {
		return nil, fmt.Errorf("%w: grant signed by %s, not %s", decrypt.ErrUnauthorized, signer.Hex(), req.UserAddress.Hex())
	}
	for _, p := range req.Pairs {
		if !r.acl.IsAllowed(p.Handle, req.UserAddress) {
			return nil, fmt.Errorf("%w: %s may not decrypt %s", decrypt.ErrUnauthorized, req.UserAddress.Hex(), p.Handle)
		}
	}

	resp := &decrypt.UserDecryptResponse{Results: make([]decrypt.SealedValue, 0, len(req.Pairs))}
	for _, p := range req.Pairs {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %w", decrypt.ErrTimeout, err)
			}
			return nil, err
		}
		value, err := r.kms.Decrypt(p.Handle)
		if err != nil {
			log.Warnw("kms decryption failed", "request", id, "handle", p.Handle.String(), "error", err.Error())
			return nil, fmt.Errorf("%w: %v", decrypt.ErrDecryptionUnavailable, err)
		}
		sealed, err := decrypt.Seal(req.PublicKey, p.Handle, value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", decrypt.ErrUnauthorized, err)
		}
		resp.Results = append(resp.Results, decrypt.SealedValue{Handle: p.Handle, Value: sealed})
	}
	return resp, nil
}

// checkScope verifies the grant duration and that every pair falls inside
// the signed contract list and belongs to the served ledger.
func (r *Relayer) checkScope(req *decrypt.UserDecryptRequest) error {
	if req.DurationDays == 0 || req.DurationDays > r.maxGrantDays {
		return fmt.Errorf("%w: duration of %d days outside [1, %d]", decrypt.ErrUnauthorized, req.DurationDays, r.maxGrantDays)
	}
	if len(req.Pairs) == 0 {
		return fmt.Errorf("%w: no handles requested", decrypt.ErrUnauthorized)
	}
	if len(req.Pairs) > MaxHandlesPerRequest {
		return fmt.Errorf("%w: more than %d handles requested", decrypt.ErrUnauthorized, MaxHandlesPerRequest)
	}
	scope := make(map[common.Address]bool, len(req.ContractAddresses))
	for _, c := range req.ContractAddresses {
		scope[c] = true
	}
	for _, p := range req.Pairs {
		if !scope[p.Contract] {
			return fmt.Errorf("%w: contract %s not in the signed scope", decrypt.ErrUnauthorized, p.Contract.Hex())
		}
		if p.Contract != r.contract {
			return fmt.Errorf("%w: unknown contract %s", decrypt.ErrUnauthorized, p.Contract.Hex())
		}
	}
	return nil
}

// checkWindow verifies that now is inside [start, start+durationDays].
func (r *Relayer) checkWindow(req *decrypt.UserDecryptRequest) error {
	now := r.now().Unix()
	start := int64(req.StartTimestamp)
	end := start + int64(req.DurationDays)*types.SecondsPerDay
	if start < 0 || now < start || now > end {
		return fmt.Errorf("%w: grant valid from %d to %d, now is %d", decrypt.ErrUnauthorized, start, end, now)
	}
	return nil
}

// Local adapts a Relayer to decrypt.Relayer for in-process clients.
type Local struct {
	relayer *Relayer
}

var _ decrypt.Relayer = (*Local)(nil)

// NewLocal returns an in-process decrypt.Relayer backed by r.
func NewLocal(r *Relayer) *Local {
	return &Local{relayer: r}
}

// UserDecrypt forwards req to the relayer and opens the answer with kp.
func (l *Local) UserDecrypt(ctx context.Context, req *decrypt.UserDecryptRequest, kp *decrypt.Keypair) (map[types.Handle]*big.Int, error) {
	resp, err := l.relayer.UserDecrypt(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Open(kp)
}
