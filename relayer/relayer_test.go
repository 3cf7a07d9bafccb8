package relayer

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/arbo/memdb"

	"github.com/vocdoni/confidential-polls/crypto/ecc/curves"
	"github.com/vocdoni/confidential-polls/crypto/ethereum"
	"github.com/vocdoni/confidential-polls/decrypt"
	"github.com/vocdoni/confidential-polls/fhe"
	"github.com/vocdoni/confidential-polls/ledger"
	"github.com/vocdoni/confidential-polls/storage"
	"github.com/vocdoni/confidential-polls/types"
)

var (
	testContract = common.HexToAddress("0x00000000000000000000000000000000c0ffee01")
	testDomain   = decrypt.NewDomain(31337, common.HexToAddress("0x00000000000000000000000000000000000c0de5"))
)

type testEnv struct {
	ledger  *ledger.Ledger
	engine  *fhe.Engine
	relayer *Relayer
	alice   *ethereum.SignKeys
	bob     *ethereum.SignKeys
	outside *ethereum.SignKeys
}

func newTestEnv(c *qt.C) *testEnv {
	stg := storage.New(memdb.New())
	pub, priv, err := fhe.LoadOrGenerateKeys(stg, curves.CurveTypeBabyJubJub)
	c.Assert(err, qt.IsNil)
	engine := fhe.NewEngine(pub)
	l := ledger.New(stg, engine, testContract)
	kms, err := NewKMS(stg, pub, priv, 1000)
	c.Assert(err, qt.IsNil)

	env := &testEnv{
		ledger:  l,
		engine:  engine,
		relayer: New(kms, l, Config{Domain: testDomain, Contract: testContract, MaxGrantDays: 30}),
	}
	for _, k := range []**ethereum.SignKeys{&env.alice, &env.bob, &env.outside} {
		*k = ethereum.NewSignKeys()
		c.Assert((*k).Generate(), qt.IsNil)
	}
	return env
}

func (env *testEnv) vote(c *qt.C, voter common.Address, platformID uint64, pollIndex, choice uint32) {
	handle, proof, err := env.engine.EncryptInput(testContract, voter, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(env.ledger.Vote(voter, platformID, pollIndex, choice, handle, proof), qt.IsNil)
}

// setup runs the two member scenario: limit 2, alice and bob join, a poll
// with options X and Y, alice votes X and bob votes Y.
func (env *testEnv) setup(c *qt.C) (uint64, uint32) {
	id, err := env.ledger.CreatePlatform(env.alice.Address(), "pair", 2)
	c.Assert(err, qt.IsNil)
	c.Assert(env.ledger.JoinPlatform(env.alice.Address(), id), qt.IsNil)
	c.Assert(env.ledger.JoinPlatform(env.bob.Address(), id), qt.IsNil)
	c.Assert(env.ledger.JoinPlatform(env.outside.Address(), id), qt.ErrorIs, ledger.ErrFull)
	idx, err := env.ledger.CreatePoll(env.alice.Address(), id, "pick", []string{"X", "Y"})
	c.Assert(err, qt.IsNil)
	env.vote(c, env.alice.Address(), id, idx, 0)
	env.vote(c, env.bob.Address(), id, idx, 1)
	return id, idx
}

func TestDecryptFinalizedPoll(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c)
	id, idx := env.setup(c)
	d := decrypt.New(NewLocal(env.relayer), env.alice, testDomain)

	tallies, err := env.ledger.EncryptedCounts(id, idx)
	c.Assert(err, qt.IsNil)

	// open polls cannot be decrypted
	_, err = d.DecryptValues(context.Background(), testContract, tallies)
	c.Assert(err, qt.ErrorIs, decrypt.ErrUnauthorized)

	c.Assert(env.ledger.Finalize(env.alice.Address(), id, idx), qt.IsNil)
	info, err := env.ledger.Poll(id, idx)
	c.Assert(err, qt.IsNil)

	results, err := d.DecryptPoll(context.Background(), testContract, info, tallies)
	c.Assert(err, qt.IsNil)
	c.Assert(results, qt.HasLen, 2)
	c.Assert(results[0].Option, qt.Equals, "X")
	c.Assert(results[0].Count.MathBigInt().Int64(), qt.Equals, int64(1))
	c.Assert(results[1].Option, qt.Equals, "Y")
	c.Assert(results[1].Count.MathBigInt().Int64(), qt.Equals, int64(1))

	// members only
	d = decrypt.New(NewLocal(env.relayer), env.outside, testDomain)
	_, err = d.DecryptValues(context.Background(), testContract, tallies)
	c.Assert(err, qt.ErrorIs, decrypt.ErrUnauthorized)

	// tallies only
	handle, _, err := env.engine.EncryptInput(testContract, env.alice.Address(), 1)
	c.Assert(err, qt.IsNil)
	d = decrypt.New(NewLocal(env.relayer), env.alice, testDomain)
	_, err = d.DecryptValue(context.Background(), testContract, handle)
	c.Assert(err, qt.ErrorIs, decrypt.ErrUnauthorized)
}

func TestGrantWindow(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c)
	id, idx := env.setup(c)
	c.Assert(env.ledger.Finalize(env.bob.Address(), id, idx), qt.IsNil)
	tallies, err := env.ledger.EncryptedCounts(id, idx)
	c.Assert(err, qt.IsNil)

	now := time.Now()
	for name, tc := range map[string]struct {
		start time.Time
		days  uint64
		ok    bool
	}{
		"now":              {now, 10, true},
		"inside window":    {now.Add(-9 * 24 * time.Hour), 10, true},
		"expired":          {now.Add(-11 * 24 * time.Hour), 10, false},
		"not started":      {now.Add(time.Hour), 10, false},
		"zero duration":    {now, 0, false},
		"too long":         {now, 31, false},
		"longest accepted": {now, 30, true},
	} {
		start := tc.start
		d := decrypt.New(NewLocal(env.relayer), env.alice, testDomain,
			decrypt.WithDurationDays(tc.days),
			decrypt.WithClock(func() time.Time { return start }))
		values, err := d.DecryptValues(context.Background(), testContract, tallies)
		if !tc.ok {
			c.Assert(err, qt.ErrorIs, decrypt.ErrUnauthorized, qt.Commentf(name))
			continue
		}
		c.Assert(err, qt.IsNil, qt.Commentf(name))
		c.Assert(values[0].Int64()+values[1].Int64(), qt.Equals, int64(2), qt.Commentf(name))
	}
}

func TestGrantScopeAndSignature(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c)
	id, idx := env.setup(c)
	c.Assert(env.ledger.Finalize(env.bob.Address(), id, idx), qt.IsNil)
	tallies, err := env.ledger.EncryptedCounts(id, idx)
	c.Assert(err, qt.IsNil)

	kp, err := decrypt.GenerateKeypair()
	c.Assert(err, qt.IsNil)
	newRequest := func() *decrypt.UserDecryptRequest {
		req := &decrypt.UserDecryptRequest{
			Pairs:             []decrypt.HandleContractPair{{Handle: tallies[0], Contract: testContract}},
			PublicKey:         kp.PublicKey(),
			ContractAddresses: []common.Address{testContract},
			UserAddress:       env.alice.Address(),
			StartTimestamp:    uint64(time.Now().Unix()),
			DurationDays:      10,
		}
		req.Signature, err = env.alice.SignTypedData(req.TypedData(testDomain))
		c.Assert(err, qt.IsNil)
		return req
	}

	resp, err := env.relayer.UserDecrypt(context.Background(), newRequest())
	c.Assert(err, qt.IsNil)
	values, err := resp.Open(kp)
	c.Assert(err, qt.IsNil)
	c.Assert(values[tallies[0]].Cmp(big.NewInt(1)), qt.Equals, 0)

	// pair outside the signed scope
	req := newRequest()
	req.Pairs[0].Contract = testDomain.VerifyingContract
	_, err = env.relayer.UserDecrypt(context.Background(), req)
	c.Assert(err, qt.ErrorIs, decrypt.ErrUnauthorized)

	// scope widened after signing
	req = newRequest()
	req.ContractAddresses = append(req.ContractAddresses, testDomain.VerifyingContract)
	_, err = env.relayer.UserDecrypt(context.Background(), req)
	c.Assert(err, qt.ErrorIs, decrypt.ErrUnauthorized)

	// requester impersonation
	req = newRequest()
	req.UserAddress = env.bob.Address()
	_, err = env.relayer.UserDecrypt(context.Background(), req)
	c.Assert(err, qt.ErrorIs, decrypt.ErrUnauthorized)

	// sealed to another key than the signed one
	other, err := decrypt.GenerateKeypair()
	c.Assert(err, qt.IsNil)
	req = newRequest()
	req.PublicKey = other.PublicKey()
	_, err = env.relayer.UserDecrypt(context.Background(), req)
	c.Assert(err, qt.ErrorIs, decrypt.ErrUnauthorized)

	req = newRequest()
	req.Pairs = nil
	_, err = env.relayer.UserDecrypt(context.Background(), req)
	c.Assert(err, qt.ErrorIs, decrypt.ErrUnauthorized)
}

func TestKMSUnknownHandle(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c)
	_, err := env.relayer.kms.Decrypt(types.Handle{1})
	c.Assert(err, qt.ErrorIs, storage.ErrNotFound)

	_, err = NewKMS(nil, nil, nil, 0)
	c.Assert(err, qt.ErrorIs, fhe.ErrNotInitialized)
}

func TestRelayerTimeout(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c)
	id, idx := env.setup(c)
	c.Assert(env.ledger.Finalize(env.alice.Address(), id, idx), qt.IsNil)
	tallies, err := env.ledger.EncryptedCounts(id, idx)
	c.Assert(err, qt.IsNil)

	slow := New(env.relayer.kms, env.ledger, Config{Domain: testDomain, Contract: testContract, Timeout: time.Nanosecond})
	d := decrypt.New(NewLocal(slow), env.alice, testDomain)
	_, err = d.DecryptValues(context.Background(), testContract, tallies)
	c.Assert(err, qt.ErrorIs, decrypt.ErrTimeout)
	c.Assert(decrypt.Retryable(err), qt.IsTrue)

	// the default bound leaves room for the request
	c.Assert(New(env.relayer.kms, env.ledger, Config{}).timeout, qt.Equals, decrypt.DefaultTimeout)
}

// recordingRelayer remembers the ephemeral public key of every request it
// forwards.
type recordingRelayer struct {
	decrypt.Relayer
	mu   sync.Mutex
	keys map[string]int
}

func (r *recordingRelayer) UserDecrypt(ctx context.Context, req *decrypt.UserDecryptRequest, kp *decrypt.Keypair) (map[types.Handle]*big.Int, error) {
	r.mu.Lock()
	r.keys[req.PublicKey.String()]++
	r.mu.Unlock()
	return r.Relayer.UserDecrypt(ctx, req, kp)
}

func TestConcurrentDecryptions(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c)
	id, idx := env.setup(c)
	c.Assert(env.ledger.Finalize(env.alice.Address(), id, idx), qt.IsNil)
	tallies, err := env.ledger.EncryptedCounts(id, idx)
	c.Assert(err, qt.IsNil)

	rec := &recordingRelayer{Relayer: NewLocal(env.relayer), keys: map[string]int{}}
	alice := decrypt.New(rec, env.alice, testDomain)
	bob := decrypt.New(rec, env.bob, testDomain)

	const attempts = 16
	type result struct {
		counts []*big.Int
		err    error
	}
	results := make([]result, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		d := alice
		if i%2 == 1 {
			d = bob
		}
		wg.Add(1)
		go func(i int, d *decrypt.Decryptor) {
			defer wg.Done()
			counts, err := d.DecryptValues(context.Background(), testContract, tallies)
			results[i] = result{counts: counts, err: err}
		}(i, d)
	}
	wg.Wait()

	for _, r := range results {
		c.Assert(r.err, qt.IsNil)
		c.Assert(r.counts, qt.HasLen, 2)
		c.Assert(r.counts[0].Int64(), qt.Equals, int64(1))
		c.Assert(r.counts[1].Int64(), qt.Equals, int64(1))
	}
	// every attempt used its own ephemeral key
	c.Assert(rec.keys, qt.HasLen, attempts)
	for _, n := range rec.keys {
		c.Assert(n, qt.Equals, 1)
	}
}
