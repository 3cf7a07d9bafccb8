// Package storage persists the ledger state and the FHE handle store in a
// prefixed key-value database. The following prefixes are used:
//   - 'm/' for counters (next platform id)
//   - 'pf/' for platforms
//   - 'mb/' for platform members
//   - 'mt/' for the platform membership Merkle trees
//   - 'pl/' for polls
//   - 'vt/' for poll voters
//   - 'th/' for the tally handle to poll index
//   - 'ct/' for ciphertexts, addressed by handle
//   - 'ek/' for the network encryption keys
//   - 'n/' for account nonces
//
// Every access happens inside a Tx. Update commits the transaction only if
// the callback succeeds, so a failed mutation leaves no partial state.
package storage

import (
	"errors"
	"fmt"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/vocdoni/confidential-polls/log"
)

var (
	// Prefixes for the keys in the database.
	metadataPrefix      = []byte("m/")
	platformPrefix      = []byte("pf/")
	memberPrefix        = []byte("mb/")
	memberTreePrefix    = []byte("mt/")
	pollPrefix          = []byte("pl/")
	voterPrefix         = []byte("vt/")
	tallyRefPrefix      = []byte("th/")
	ciphertextPrefix    = []byte("ct/")
	encryptionKeyPrefix = []byte("ek/")
	noncePrefix         = []byte("n/")
)

// ErrNotFound is returned when the requested artifact does not exist.
var ErrNotFound = errors.New("not found")

// Storage wraps the database holding all the artifacts.
type Storage struct {
	db db.Database
}

// New creates a new Storage instance.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the storage.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnw("error closing storage", "err", err)
	}
}

// Tx is a storage transaction. Reads see the writes done in the same
// transaction.
type Tx struct {
	s   *Storage
	wTx db.WriteTx
}

// NewTx opens a new transaction. The caller must either Commit or Discard it.
func (s *Storage) NewTx() *Tx {
	return &Tx{s: s, wTx: s.db.WriteTx()}
}

// Commit persists the transaction.
func (tx *Tx) Commit() error {
	return tx.wTx.Commit()
}

// Discard drops the transaction. It is safe to call after Commit.
func (tx *Tx) Discard() {
	tx.wTx.Discard()
}

// Update runs fn inside a new transaction and commits it if fn returns nil.
// On error the transaction is discarded and the error returned as is.
func (s *Storage) Update(fn func(tx *Tx) error) error {
	tx := s.NewTx()
	defer tx.Discard()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// View runs fn inside a transaction that is always discarded.
func (s *Storage) View(fn func(tx *Tx) error) error {
	tx := s.NewTx()
	defer tx.Discard()
	return fn(tx)
}

// prefixed returns a write transaction scoped to prefix, sharing the
// underlying transaction.
func (tx *Tx) prefixed(prefix []byte) db.WriteTx {
	return prefixeddb.NewPrefixedWriteTx(tx.wTx, prefix)
}

// getArtifact reads and decodes the artifact stored under prefix/key. It
// returns ErrNotFound if the key does not exist.
func (tx *Tx) getArtifact(prefix, key []byte, out any) error {
	data, err := tx.prefixed(prefix).Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get artifact: %w", err)
	}
	if err := decodeArtifact(data, out); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	return nil
}

// setArtifact encodes and stores the artifact under prefix/key.
func (tx *Tx) setArtifact(prefix, key []byte, artifact any) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	return tx.prefixed(prefix).Set(key, data)
}

// hasKey reports whether prefix/key exists.
func (tx *Tx) hasKey(prefix, key []byte) (bool, error) {
	_, err := tx.prefixed(prefix).Get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, db.ErrKeyNotFound) {
		return false, nil
	}
	return false, err
}

// listValues returns a copy of every value stored under prefix/sub, in key
// order.
func (tx *Tx) listValues(prefix, sub []byte) ([][]byte, error) {
	values := [][]byte{}
	if err := tx.prefixed(prefix).Iterate(sub, func(_, v []byte) bool {
		values = append(values, append([]byte(nil), v...))
		return true
	}); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return values, nil
}
