package fhe

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/arbo/memdb"

	"github.com/vocdoni/confidential-polls/crypto/ecc/curves"
	"github.com/vocdoni/confidential-polls/storage"
	"github.com/vocdoni/confidential-polls/types"
)

var (
	testContract  = common.HexToAddress("0xc0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0")
	testSubmitter = common.HexToAddress("0x5b5b5b5b5b5b5b5b5b5b5b5b5b5b5b5b5b5b5b5b")
)

func newTestEngine(c *qt.C, curveType string) (*Engine, *big.Int, *storage.Storage) {
	stg := storage.New(memdb.New())
	pub, priv, err := LoadOrGenerateKeys(stg, curveType)
	c.Assert(err, qt.IsNil)
	return NewEngine(pub), priv, stg
}

// decryptHandle reads the ciphertext of handle and decrypts it.
func decryptHandle(c *qt.C, e *Engine, priv *big.Int, tx *storage.Tx, handle types.Handle) int64 {
	data, err := tx.Ciphertext(handle)
	c.Assert(err, qt.IsNil)
	ct, err := DecodeCiphertext(e.PublicKey(), data)
	c.Assert(err, qt.IsNil)
	msg, err := ct.Decrypt(priv, 1000)
	c.Assert(err, qt.IsNil)
	return msg.Int64()
}

func TestEngineHomomorphicTally(t *testing.T) {
	for _, curveType := range curves.Curves() {
		t.Run(curveType, func(t *testing.T) {
			c := qt.New(t)
			e, priv, stg := newTestEngine(c, curveType)

			c.Assert(stg.Update(func(tx *storage.Tx) error {
				tally, err := e.EncryptZero(tx)
				c.Assert(err, qt.IsNil)
				c.Assert(decryptHandle(c, e, priv, tx, tally), qt.Equals, int64(0))

				for i := 0; i < 3; i++ {
					submitter := common.BigToAddress(big.NewInt(int64(i + 1)))
					handle, proof, err := e.EncryptInput(testContract, submitter, 1)
					c.Assert(err, qt.IsNil)
					ok := e.VerifyProof(tx, handle, proof, ProofContext{Contract: testContract, Submitter: submitter, Value: 1})
					c.Assert(ok, qt.IsTrue)

					next, err := e.Add(tx, tally, handle)
					c.Assert(err, qt.IsNil)
					c.Assert(next, qt.Not(qt.Equals), tally)
					tally = next
				}
				c.Assert(decryptHandle(c, e, priv, tx, tally), qt.Equals, int64(3))
				return nil
			}), qt.IsNil)
		})
	}
}

func TestEngineEncryptZeroIsFresh(t *testing.T) {
	c := qt.New(t)
	e, _, stg := newTestEngine(c, curves.CurveTypeBabyJubJub)
	c.Assert(stg.Update(func(tx *storage.Tx) error {
		a, err := e.EncryptZero(tx)
		c.Assert(err, qt.IsNil)
		b, err := e.EncryptZero(tx)
		c.Assert(err, qt.IsNil)
		c.Assert(a, qt.Not(qt.Equals), b)
		return nil
	}), qt.IsNil)
}

func TestEngineVerifyProof(t *testing.T) {
	c := qt.New(t)
	e, _, stg := newTestEngine(c, curves.CurveTypeBabyJubJub)

	handle, proof, err := e.EncryptInput(testContract, testSubmitter, 1)
	c.Assert(err, qt.IsNil)
	ctx := ProofContext{Contract: testContract, Submitter: testSubmitter, Value: 1}

	c.Assert(stg.Update(func(tx *storage.Tx) error {
		// wrong submitter
		other := ctx
		other.Submitter = common.HexToAddress("0x01")
		c.Assert(e.VerifyProof(tx, handle, proof, other), qt.IsFalse)
		// wrong contract
		other = ctx
		other.Contract = common.HexToAddress("0x02")
		c.Assert(e.VerifyProof(tx, handle, proof, other), qt.IsFalse)
		// wrong value
		other = ctx
		other.Value = 2
		c.Assert(e.VerifyProof(tx, handle, proof, other), qt.IsFalse)
		// wrong handle
		c.Assert(e.VerifyProof(tx, types.BytesToHandle([]byte{1}), proof, ctx), qt.IsFalse)
		// garbage proof
		c.Assert(e.VerifyProof(tx, handle, []byte{0xff, 0x00}, ctx), qt.IsFalse)
		// proof of another input
		_, otherProof, err := e.EncryptInput(testContract, testSubmitter, 1)
		c.Assert(err, qt.IsNil)
		c.Assert(e.VerifyProof(tx, handle, otherProof, ctx), qt.IsFalse)

		// rejected inputs are not imported
		_, err = tx.Ciphertext(handle)
		c.Assert(err, qt.ErrorIs, storage.ErrNotFound)

		c.Assert(e.VerifyProof(tx, handle, proof, ctx), qt.IsTrue)
		_, err = tx.Ciphertext(handle)
		c.Assert(err, qt.IsNil)
		return nil
	}), qt.IsNil)
}

func TestEngineAddUnknownHandle(t *testing.T) {
	c := qt.New(t)
	e, _, stg := newTestEngine(c, curves.CurveTypeBabyJubJub)
	c.Assert(stg.View(func(tx *storage.Tx) error {
		zero, err := e.EncryptZero(tx)
		c.Assert(err, qt.IsNil)
		_, err = e.Add(tx, zero, types.BytesToHandle([]byte{7}))
		c.Assert(err, qt.ErrorIs, ErrUnknownHandle)
		return nil
	}), qt.IsNil)
}

func TestLoadOrGenerateKeys(t *testing.T) {
	c := qt.New(t)
	stg := storage.New(memdb.New())

	pub1, priv1, err := LoadOrGenerateKeys(stg, curves.CurveTypeBN254)
	c.Assert(err, qt.IsNil)
	pub2, priv2, err := LoadOrGenerateKeys(stg, curves.CurveTypeBN254)
	c.Assert(err, qt.IsNil)
	c.Assert(pub1.Equal(pub2), qt.IsTrue)
	c.Assert(priv1.Cmp(priv2), qt.Equals, 0)

	_, _, err = LoadOrGenerateKeys(stg, curves.CurveTypeBabyJubJub)
	c.Assert(err, qt.ErrorMatches, "stored encryption keys use curve.*")
	_, _, err = LoadOrGenerateKeys(stg, "secp256k1")
	c.Assert(err, qt.ErrorMatches, "unsupported curve.*")
}

func TestEncryptorFromPublicParams(t *testing.T) {
	c := qt.New(t)
	e, priv, stg := newTestEngine(c, curves.CurveTypeBabyJubJub)

	// a client only knows the published parameters
	client, err := NewEncryptor(e.Public())
	c.Assert(err, qt.IsNil)
	handle, proof, err := client.EncryptInput(testContract, testSubmitter, 5)
	c.Assert(err, qt.IsNil)

	c.Assert(stg.Update(func(tx *storage.Tx) error {
		ok := e.VerifyProof(tx, handle, proof, ProofContext{Contract: testContract, Submitter: testSubmitter, Value: 5})
		c.Assert(ok, qt.IsTrue)
		c.Assert(decryptHandle(c, e, priv, tx, handle), qt.Equals, int64(5))
		return nil
	}), qt.IsNil)

	_, err = NewEncryptor(nil)
	c.Assert(err, qt.ErrorIs, ErrNotInitialized)
	_, err = NewEncryptor(&PublicParams{Curve: "foo", PublicKey: []byte{1}})
	c.Assert(err, qt.ErrorMatches, "unsupported curve.*")

	var uninitialized *Encryptor
	_, _, err = uninitialized.EncryptInput(testContract, testSubmitter, 1)
	c.Assert(err, qt.ErrorIs, ErrNotInitialized)
}
