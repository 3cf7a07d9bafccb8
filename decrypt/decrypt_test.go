package decrypt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/confidential-polls/crypto/ethereum"
	"github.com/vocdoni/confidential-polls/types"
)

var (
	testContract = common.HexToAddress("0x00000000000000000000000000000000c0ffee01")
	testDomain   = NewDomain(31337, common.HexToAddress("0x00000000000000000000000000000000000c0de5"))
)

// fakeRelayer checks the grant signature and seals the stored values. The
// first hangs calls block until their context ends.
type fakeRelayer struct {
	mu       sync.Mutex
	values   map[types.Handle]*big.Int
	hangs    int
	calls    int
	keys     [][]byte
	failWith error
}

func (f *fakeRelayer) UserDecrypt(ctx context.Context, req *UserDecryptRequest, kp *Keypair) (map[types.Handle]*big.Int, error) {
	f.mu.Lock()
	f.calls++
	f.keys = append(f.keys, req.PublicKey)
	hang := f.calls <= f.hangs
	f.mu.Unlock()
	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.failWith != nil {
		return nil, f.failWith
	}
	signer, err := ethereum.AddrFromTypedDataSignature(req.TypedData(testDomain), req.Signature)
	if err != nil || signer != req.UserAddress {
		return nil, ErrUnauthorized
	}
	resp := &UserDecryptResponse{}
	for _, p := range req.Pairs {
		sealed, err := Seal(req.PublicKey, p.Handle, f.values[p.Handle])
		if err != nil {
			return nil, err
		}
		resp.Results = append(resp.Results, SealedValue{Handle: p.Handle, Value: sealed})
	}
	return resp.Open(kp)
}

func handle(i byte) types.Handle {
	var h types.Handle
	h[0] = i
	return h
}

func newSigner(c *qt.C) *ethereum.SignKeys {
	keys := ethereum.NewSignKeys()
	c.Assert(keys.Generate(), qt.IsNil)
	return keys
}

func TestSealOpen(t *testing.T) {
	c := qt.New(t)
	kp, err := GenerateKeypair()
	c.Assert(err, qt.IsNil)
	c.Assert(kp.PublicKey(), qt.HasLen, 65)

	sealed, err := Seal(kp.PublicKey(), handle(1), big.NewInt(42))
	c.Assert(err, qt.IsNil)
	v, err := kp.Open(handle(1), sealed)
	c.Assert(err, qt.IsNil)
	c.Assert(v.Int64(), qt.Equals, int64(42))

	// bound to the handle
	_, err = kp.Open(handle(2), sealed)
	c.Assert(err, qt.Not(qt.IsNil))

	other, err := GenerateKeypair()
	c.Assert(err, qt.IsNil)
	_, err = other.Open(handle(1), sealed)
	c.Assert(err, qt.Not(qt.IsNil))

	_, err = Seal([]byte{1, 2, 3}, handle(1), big.NewInt(1))
	c.Assert(err, qt.Not(qt.IsNil))
	_, err = Seal(kp.PublicKey(), handle(1), big.NewInt(-1))
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestTypedDataSignature(t *testing.T) {
	c := qt.New(t)
	keys := newSigner(c)
	kp, err := GenerateKeypair()
	c.Assert(err, qt.IsNil)

	td := TypedData(testDomain, kp.PublicKey(), []common.Address{testContract}, 1700000000, 10)
	sig, err := keys.SignTypedData(td)
	c.Assert(err, qt.IsNil)
	addr, err := ethereum.AddrFromTypedDataSignature(td, sig)
	c.Assert(err, qt.IsNil)
	c.Assert(addr, qt.Equals, keys.Address())

	for name, changed := range map[string]func() (common.Address, error){
		"duration": func() (common.Address, error) {
			return ethereum.AddrFromTypedDataSignature(
				TypedData(testDomain, kp.PublicKey(), []common.Address{testContract}, 1700000000, 11), sig)
		},
		"start": func() (common.Address, error) {
			return ethereum.AddrFromTypedDataSignature(
				TypedData(testDomain, kp.PublicKey(), []common.Address{testContract}, 1700000001, 10), sig)
		},
		"domain": func() (common.Address, error) {
			return ethereum.AddrFromTypedDataSignature(
				TypedData(NewDomain(1, testDomain.VerifyingContract), kp.PublicKey(), []common.Address{testContract}, 1700000000, 10), sig)
		},
		"scope": func() (common.Address, error) {
			return ethereum.AddrFromTypedDataSignature(
				TypedData(testDomain, kp.PublicKey(), []common.Address{testDomain.VerifyingContract}, 1700000000, 10), sig)
		},
	} {
		addr, err := changed()
		c.Assert(err, qt.IsNil, qt.Commentf(name))
		c.Assert(addr, qt.Not(qt.Equals), keys.Address(), qt.Commentf(name))
	}
}

func TestTypedDataLargeChainID(t *testing.T) {
	c := qt.New(t)
	keys := newSigner(c)
	kp, err := GenerateKeypair()
	c.Assert(err, qt.IsNil)

	for _, chainID := range []uint64{math.MaxInt64 + 1, math.MaxUint64} {
		td := TypedData(NewDomain(chainID, testDomain.VerifyingContract), kp.PublicKey(), []common.Address{testContract}, 1700000000, 10)
		c.Assert((*big.Int)(td.Domain.ChainId).Uint64(), qt.Equals, chainID)
		c.Assert((*big.Int)(td.Domain.ChainId).Sign(), qt.Equals, 1)

		sig, err := keys.SignTypedData(td)
		c.Assert(err, qt.IsNil)
		addr, err := ethereum.AddrFromTypedDataSignature(td, sig)
		c.Assert(err, qt.IsNil)
		c.Assert(addr, qt.Equals, keys.Address())
	}
}

func TestDecryptValues(t *testing.T) {
	c := qt.New(t)
	relayer := &fakeRelayer{values: map[types.Handle]*big.Int{
		handle(1): big.NewInt(3),
		handle(2): big.NewInt(0),
	}}
	d := New(relayer, newSigner(c), testDomain)

	values, err := d.DecryptValues(context.Background(), testContract, []types.Handle{handle(2), handle(1)})
	c.Assert(err, qt.IsNil)
	c.Assert(values[0].Int64(), qt.Equals, int64(0))
	c.Assert(values[1].Int64(), qt.Equals, int64(3))

	v, err := d.DecryptValue(context.Background(), testContract, handle(1))
	c.Assert(err, qt.IsNil)
	c.Assert(v.Int64(), qt.Equals, int64(3))

	// every attempt uses a fresh key
	c.Assert(relayer.keys, qt.HasLen, 2)
	c.Assert(relayer.keys[0], qt.Not(qt.DeepEquals), relayer.keys[1])

	_, err = d.DecryptValues(context.Background(), testContract, nil)
	c.Assert(err, qt.ErrorIs, ErrDecryptionUnavailable)
}

func TestDecryptNotInitialized(t *testing.T) {
	c := qt.New(t)
	_, err := New(nil, newSigner(c), testDomain).DecryptValue(context.Background(), testContract, handle(1))
	c.Assert(err, qt.ErrorIs, ErrNotInitialized)
	_, err = New(&fakeRelayer{}, nil, testDomain).DecryptValue(context.Background(), testContract, handle(1))
	c.Assert(err, qt.ErrorIs, ErrNotInitialized)
}

func TestDecryptErrors(t *testing.T) {
	c := qt.New(t)
	signer := newSigner(c)

	d := New(&fakeRelayer{failWith: fmt.Errorf("relayer says: %w", ErrUnauthorized)}, signer, testDomain)
	_, err := d.DecryptValue(context.Background(), testContract, handle(1))
	c.Assert(err, qt.ErrorIs, ErrUnauthorized)
	c.Assert(Retryable(err), qt.IsFalse)

	d = New(&fakeRelayer{failWith: errors.New("connection refused")}, signer, testDomain)
	_, err = d.DecryptValue(context.Background(), testContract, handle(1))
	c.Assert(err, qt.ErrorIs, ErrDecryptionUnavailable)
	c.Assert(Retryable(err), qt.IsFalse)

	d = New(&fakeRelayer{hangs: 1}, signer, testDomain, WithTimeout(20*time.Millisecond))
	_, err = d.DecryptValue(context.Background(), testContract, handle(1))
	c.Assert(err, qt.ErrorIs, ErrTimeout)
	c.Assert(Retryable(err), qt.IsTrue)
}

func TestDecryptWithRetry(t *testing.T) {
	c := qt.New(t)
	signer := newSigner(c)
	values := map[types.Handle]*big.Int{handle(1): big.NewInt(7)}

	relayer := &fakeRelayer{values: values, hangs: 2}
	d := New(relayer, signer, testDomain,
		WithTimeout(20*time.Millisecond), WithRetries(2, time.Millisecond))
	got, err := d.DecryptWithRetry(context.Background(), testContract, []types.Handle{handle(1)})
	c.Assert(err, qt.IsNil)
	c.Assert(got[0].Int64(), qt.Equals, int64(7))
	c.Assert(relayer.calls, qt.Equals, 3)

	relayer = &fakeRelayer{values: values, hangs: 5}
	d = New(relayer, signer, testDomain,
		WithTimeout(20*time.Millisecond), WithRetries(1, time.Millisecond))
	_, err = d.DecryptWithRetry(context.Background(), testContract, []types.Handle{handle(1)})
	c.Assert(err, qt.ErrorIs, ErrTimeout)
	c.Assert(relayer.calls, qt.Equals, 2)

	// non retryable failures stop at the first attempt
	relayer = &fakeRelayer{failWith: ErrUnauthorized}
	d = New(relayer, signer, testDomain, WithRetries(3, time.Millisecond))
	_, err = d.DecryptWithRetry(context.Background(), testContract, []types.Handle{handle(1)})
	c.Assert(err, qt.ErrorIs, ErrUnauthorized)
	c.Assert(relayer.calls, qt.Equals, 1)
}

func TestPollResults(t *testing.T) {
	c := qt.New(t)
	res, err := PollResults([]string{"X", "Y"}, []*big.Int{big.NewInt(1), big.NewInt(2)})
	c.Assert(err, qt.IsNil)
	c.Assert(res[0].Option, qt.Equals, "X")
	c.Assert(res[0].Count.MathBigInt().Int64(), qt.Equals, int64(1))
	c.Assert(res[1].Option, qt.Equals, "Y")
	c.Assert(res[1].Count.MathBigInt().Int64(), qt.Equals, int64(2))

	_, err = PollResults([]string{"X"}, nil)
	c.Assert(err, qt.Not(qt.IsNil))
}
