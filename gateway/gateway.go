// Package gateway implements the ledger gateway: the single entry point for
// ledger mutations. Transactions are queued and executed one at a time by a
// worker goroutine, so the ledger sees a total order of mutations and needs
// no locks of its own.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vocdoni/confidential-polls/ledger"
	"github.com/vocdoni/confidential-polls/log"
	"github.com/vocdoni/confidential-polls/metrics"
	"github.com/vocdoni/confidential-polls/storage"
)

// DefaultQueueSize is the number of transactions that can wait for the
// worker before Submit blocks.
const DefaultQueueSize = 256

var (
	// ErrInvalidNonce is returned when a signed transaction does not carry
	// the next nonce of its sender.
	ErrInvalidNonce = errors.New("invalid nonce")
	// ErrInvalidSignature is returned when the sender of a signed
	// transaction cannot be recovered or the chain id does not match.
	ErrInvalidSignature = errors.New("invalid transaction signature")
	// ErrNotRunning is returned when the gateway is not started.
	ErrNotRunning = errors.New("gateway is not running")
)

type request struct {
	caller common.Address
	tx     *Tx
	signed bool
	nonce  uint64
	done   chan *Receipt
}

// Gateway sequences ledger transactions.
type Gateway struct {
	ledger  *ledger.Ledger
	stg     *storage.Storage
	chainID uint64
	queue   chan *request

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a stopped gateway in front of l. Nonces of signed transactions
// are kept in stg. A non positive queueSize selects DefaultQueueSize.
func New(l *ledger.Ledger, stg *storage.Storage, chainID uint64, queueSize int) *Gateway {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Gateway{
		ledger:  l,
		stg:     stg,
		chainID: chainID,
		queue:   make(chan *request, queueSize),
	}
}

// Start launches the worker. The gateway stops when ctx is canceled or Stop
// is called.
func (g *Gateway) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ctx != nil && g.ctx.Err() == nil {
		return fmt.Errorf("gateway already running")
	}
	g.ctx, g.cancel = context.WithCancel(ctx)
	g.wg.Add(1)
	go g.run(g.ctx)
	log.Infow("gateway started", "chainId", g.chainID, "contract", g.ledger.Contract().Hex())
	return nil
}

// Stop cancels the worker and waits for it to exit. Transactions still in
// the queue are not executed. It is safe to call Stop multiple times.
func (g *Gateway) Stop() error {
	g.mu.Lock()
	cancel := g.cancel
	g.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	g.wg.Wait()
	log.Infow("gateway stopped")
	return nil
}

// Ledger returns the ledger behind the gateway, for point-in-time queries.
func (g *Gateway) Ledger() *ledger.Ledger {
	return g.ledger
}

// ChainID returns the chain id signed transactions must carry.
func (g *Gateway) ChainID() uint64 {
	return g.chainID
}

// Nonce returns the next nonce expected from addr.
func (g *Gateway) Nonce(addr common.Address) (uint64, error) {
	var nonce uint64
	err := g.stg.View(func(tx *storage.Tx) error {
		var err error
		nonce, err = tx.Nonce(addr)
		return err
	})
	return nonce, err
}

// Submit executes tx on behalf of an already authenticated caller and waits
// for its receipt. The returned error is the receipt error, or a gateway
// error if the transaction could not be executed. A transaction already
// queued may still be executed after ctx is canceled.
func (g *Gateway) Submit(ctx context.Context, caller common.Address, tx *Tx) (*Receipt, error) {
	if tx == nil || !tx.Op.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction", ledger.ErrInvalidArgument)
	}
	return g.submit(ctx, &request{caller: caller, tx: tx})
}

// SubmitSigned authenticates stx, checks its chain id and executes it like
// Submit. The sender nonce is checked and consumed by the worker, so replays
// fail with ErrInvalidNonce.
func (g *Gateway) SubmitSigned(ctx context.Context, stx *SignedTx) (*Receipt, error) {
	if stx == nil || stx.Tx == nil || !stx.Tx.Op.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction", ledger.ErrInvalidArgument)
	}
	if stx.ChainID != g.chainID {
		return nil, fmt.Errorf("%w: chain id %d, expected %d", ErrInvalidSignature, stx.ChainID, g.chainID)
	}
	sender, err := stx.Sender()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return g.submit(ctx, &request{caller: sender, tx: stx.Tx, signed: true, nonce: stx.Nonce})
}

func (g *Gateway) submit(ctx context.Context, req *request) (*Receipt, error) {
	g.mu.Lock()
	running := g.ctx
	g.mu.Unlock()
	if running == nil || running.Err() != nil {
		return nil, ErrNotRunning
	}
	req.done = make(chan *Receipt, 1)
	select {
	case g.queue <- req:
		metrics.QueueLength.Inc()
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-running.Done():
		return nil, ErrNotRunning
	}
	select {
	case r := <-req.done:
		return r, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-running.Done():
		return nil, ErrNotRunning
	}
}

func (g *Gateway) run(ctx context.Context) {
	defer g.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-g.queue:
			metrics.QueueLength.Dec()
			req.done <- g.execute(req)
		}
	}
}

// execute runs one transaction. The nonce of a signed transaction is
// consumed once it passed the nonce check, even if the ledger rejects it.
// An accepted transaction stores its nonce in the same commit as the
// mutation; a rejected one changed nothing, so its nonce is stored alone.
func (g *Gateway) execute(req *request) *Receipt {
	r := &Receipt{Op: req.tx.Op, Caller: req.caller}
	if req.signed {
		expected, err := g.Nonce(req.caller)
		if err != nil {
			r.Err = fmt.Errorf("could not read nonce: %w", err)
			return r
		}
		if req.nonce != expected {
			r.Err = fmt.Errorf("%w: got %d, expected %d", ErrInvalidNonce, req.nonce, expected)
			metrics.Transactions.WithLabelValues(string(r.Op), metrics.ResultError).Inc()
			return r
		}
	}

	l := g.ledger
	if req.signed {
		l = l.WithCommitHook(func(tx *storage.Tx) error {
			return tx.SetNonce(req.caller, req.nonce+1)
		})
	}
	r.Err = apply(l, req.caller, req.tx, r)

	if req.signed && r.Err != nil {
		if err := g.stg.Update(func(tx *storage.Tx) error {
			return tx.SetNonce(req.caller, req.nonce+1)
		}); err != nil {
			log.Warnw("could not store nonce", "account", req.caller.Hex(), "error", err.Error())
		}
	}
	metrics.Transactions.WithLabelValues(string(r.Op), metrics.Result(r.Err)).Inc()
	if r.Err != nil {
		log.Debugw("transaction rejected", "op", r.Op, "caller", req.caller.Hex(), "error", r.Err.Error())
	}
	return r
}

// apply executes tx on l and fills the receipt fields it determines.
func apply(l *ledger.Ledger, caller common.Address, tx *Tx, r *Receipt) error {
	var err error
	switch tx.Op {
	case OpCreatePlatform:
		r.PlatformID, err = l.CreatePlatform(caller, tx.Name, tx.MemberLimit)
	case OpJoinPlatform:
		r.PlatformID = tx.PlatformID
		err = l.JoinPlatform(caller, tx.PlatformID)
	case OpCreatePoll:
		r.PlatformID = tx.PlatformID
		r.PollIndex, err = l.CreatePoll(caller, tx.PlatformID, tx.Title, tx.Options)
	case OpVote:
		r.PlatformID, r.PollIndex = tx.PlatformID, tx.PollIndex
		if tx.Handle == nil {
			return fmt.Errorf("%w: missing ciphertext handle", ledger.ErrInvalidArgument)
		}
		err = l.Vote(caller, tx.PlatformID, tx.PollIndex, tx.Choice, *tx.Handle, tx.Proof)
	case OpFinalize:
		r.PlatformID, r.PollIndex = tx.PlatformID, tx.PollIndex
		err = l.Finalize(caller, tx.PlatformID, tx.PollIndex)
	default:
		err = fmt.Errorf("%w: unknown operation %q", ledger.ErrInvalidArgument, tx.Op)
	}
	return err
}
