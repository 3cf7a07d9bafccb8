package storage

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/arbo/memdb"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/vocdoni/confidential-polls/storage/census"
	"github.com/vocdoni/confidential-polls/types"
)

// testDatabases returns the database backends the storage is tested with.
func testDatabases(t *testing.T) map[string]db.Database {
	return map[string]db.Database{
		"memdb":  memdb.New(),
		"pebble": metadb.NewTest(t),
	}
}

func TestUpdateCommitsOnlyOnSuccess(t *testing.T) {
	for name, database := range testDatabases(t) {
		t.Run(name, func(t *testing.T) {
			c := qt.New(t)
			stg := New(database)

			errAbort := errors.New("abort")
			err := stg.Update(func(tx *Tx) error {
				if err := tx.SetPlatform(&types.Platform{ID: 1, Name: "discarded", MemberLimit: 1}); err != nil {
					return err
				}
				return errAbort
			})
			c.Assert(err, qt.ErrorIs, errAbort)
			c.Assert(stg.View(func(tx *Tx) error {
				_, err := tx.Platform(1)
				return err
			}), qt.ErrorIs, ErrNotFound)

			c.Assert(stg.Update(func(tx *Tx) error {
				return tx.SetPlatform(&types.Platform{ID: 1, Name: "kept", MemberLimit: 1})
			}), qt.IsNil)
			c.Assert(stg.View(func(tx *Tx) error {
				p, err := tx.Platform(1)
				if err != nil {
					return err
				}
				c.Assert(p.Name, qt.Equals, "kept")
				return nil
			}), qt.IsNil)
		})
	}
}

func TestPlatforms(t *testing.T) {
	c := qt.New(t)
	stg := New(memdb.New())

	c.Assert(stg.Update(func(tx *Tx) error {
		id, err := tx.NextPlatformID()
		c.Assert(err, qt.IsNil)
		c.Assert(id, qt.Equals, uint64(types.FirstPlatformID))
		// ids above 255 check the big-endian ordering
		for _, id := range []uint64{300, 2, 1} {
			if err := tx.SetPlatform(&types.Platform{ID: id, Name: fmt.Sprintf("p%d", id), MemberLimit: 3}); err != nil {
				return err
			}
		}
		return tx.SetNextPlatformID(301)
	}), qt.IsNil)

	c.Assert(stg.View(func(tx *Tx) error {
		id, err := tx.NextPlatformID()
		c.Assert(err, qt.IsNil)
		c.Assert(id, qt.Equals, uint64(301))

		platforms, err := tx.ListPlatforms()
		c.Assert(err, qt.IsNil)
		c.Assert(platforms, qt.HasLen, 3)
		c.Assert(platforms[0].ID, qt.Equals, uint64(1))
		c.Assert(platforms[1].ID, qt.Equals, uint64(2))
		c.Assert(platforms[2].ID, qt.Equals, uint64(300))
		return nil
	}), qt.IsNil)
}

func TestMembers(t *testing.T) {
	for name, database := range testDatabases(t) {
		t.Run(name, func(t *testing.T) {
			c := qt.New(t)
			stg := New(database)

			alice := common.HexToAddress("0xa11ce")
			bob := common.HexToAddress("0xb0b")
			carol := common.HexToAddress("0xca201")

			var emptyRoot types.HexBytes
			c.Assert(stg.View(func(tx *Tx) error {
				var err error
				emptyRoot, err = tx.MembershipRoot(1)
				return err
			}), qt.IsNil)

			c.Assert(stg.Update(func(tx *Tx) error {
				if err := tx.AddMember(1, alice, 1); err != nil {
					return err
				}
				return tx.AddMember(1, bob, 2)
			}), qt.IsNil)
			// same address on another platform
			c.Assert(stg.Update(func(tx *Tx) error {
				return tx.AddMember(2, carol, 1)
			}), qt.IsNil)

			c.Assert(stg.View(func(tx *Tx) error {
				ok, err := tx.IsMember(1, alice)
				c.Assert(err, qt.IsNil)
				c.Assert(ok, qt.IsTrue)
				ok, err = tx.IsMember(1, carol)
				c.Assert(err, qt.IsNil)
				c.Assert(ok, qt.IsFalse)
				ok, err = tx.IsMember(2, alice)
				c.Assert(err, qt.IsNil)
				c.Assert(ok, qt.IsFalse)

				members, err := tx.ListMembers(1)
				c.Assert(err, qt.IsNil)
				c.Assert(members, qt.HasLen, 2)
				c.Assert(members, qt.Contains, alice)
				c.Assert(members, qt.Contains, bob)

				root, err := tx.MembershipRoot(1)
				c.Assert(err, qt.IsNil)
				c.Assert(root, qt.Not(qt.DeepEquals), emptyRoot)

				proof, err := tx.MembershipProof(1, bob)
				c.Assert(err, qt.IsNil)
				c.Assert(proof.Included, qt.IsTrue)
				ok, err = census.CheckProof(root, proof)
				c.Assert(err, qt.IsNil)
				c.Assert(ok, qt.IsTrue)

				proof, err = tx.MembershipProof(1, carol)
				c.Assert(err, qt.IsNil)
				c.Assert(proof.Included, qt.IsFalse)
				ok, err = census.CheckProof(root, proof)
				c.Assert(err, qt.IsNil)
				c.Assert(ok, qt.IsFalse)
				return nil
			}), qt.IsNil)
		})
	}
}

func TestPollsAndVoters(t *testing.T) {
	c := qt.New(t)
	stg := New(memdb.New())

	voter := common.HexToAddress("0x01")
	tally := types.BytesToHandle([]byte{0xaa})
	c.Assert(stg.Update(func(tx *Tx) error {
		for i := uint32(0); i < 3; i++ {
			if err := tx.SetPoll(&types.Poll{
				PlatformID: 1,
				Index:      i,
				Title:      fmt.Sprintf("poll %d", i),
				Options:    []string{"yes", "no"},
			}); err != nil {
				return err
			}
		}
		if err := tx.SetPoll(&types.Poll{PlatformID: 2, Title: "other"}); err != nil {
			return err
		}
		if err := tx.SetVoted(1, 1, voter); err != nil {
			return err
		}
		return tx.SetTallyPoll(tally, 1, 2)
	}), qt.IsNil)

	c.Assert(stg.View(func(tx *Tx) error {
		polls, err := tx.ListPolls(1)
		c.Assert(err, qt.IsNil)
		c.Assert(polls, qt.HasLen, 3)
		for i, p := range polls {
			c.Assert(p.Index, qt.Equals, uint32(i))
		}

		_, err = tx.Poll(1, 3)
		c.Assert(err, qt.ErrorIs, ErrNotFound)

		voted, err := tx.HasVoted(1, 1, voter)
		c.Assert(err, qt.IsNil)
		c.Assert(voted, qt.IsTrue)
		voted, err = tx.HasVoted(1, 0, voter)
		c.Assert(err, qt.IsNil)
		c.Assert(voted, qt.IsFalse)

		ref, err := tx.TallyPoll(tally)
		c.Assert(err, qt.IsNil)
		c.Assert(*ref, qt.Equals, PollRef{PlatformID: 1, Index: 2})
		return nil
	}), qt.IsNil)

	c.Assert(stg.Update(func(tx *Tx) error {
		return tx.DeleteTallyPoll(tally)
	}), qt.IsNil)
	c.Assert(stg.View(func(tx *Tx) error {
		_, err := tx.TallyPoll(tally)
		return err
	}), qt.ErrorIs, ErrNotFound)
}

func TestCiphertextsKeysAndNonces(t *testing.T) {
	c := qt.New(t)
	stg := New(memdb.New())

	handle := types.BytesToHandle([]byte{0x01})
	account := common.HexToAddress("0x02")
	c.Assert(stg.Update(func(tx *Tx) error {
		if err := tx.SetCiphertext(handle, []byte{1, 2, 3}); err != nil {
			return err
		}
		if err := tx.SetEncryptionKeys(&EncryptionKeys{
			Curve:      "bjj_iden3",
			PublicKey:  []byte{4, 5, 6},
			PrivateKey: big.NewInt(42),
		}); err != nil {
			return err
		}
		return tx.SetNonce(account, 7)
	}), qt.IsNil)

	c.Assert(stg.View(func(tx *Tx) error {
		ct, err := tx.Ciphertext(handle)
		c.Assert(err, qt.IsNil)
		c.Assert(ct, qt.DeepEquals, []byte{1, 2, 3})
		_, err = tx.Ciphertext(types.BytesToHandle([]byte{0x09}))
		c.Assert(err, qt.ErrorIs, ErrNotFound)

		eks, err := tx.EncryptionKeys()
		c.Assert(err, qt.IsNil)
		c.Assert(eks.Curve, qt.Equals, "bjj_iden3")
		c.Assert(eks.PrivateKey.Int64(), qt.Equals, int64(42))

		nonce, err := tx.Nonce(account)
		c.Assert(err, qt.IsNil)
		c.Assert(nonce, qt.Equals, uint64(7))
		nonce, err = tx.Nonce(common.HexToAddress("0x03"))
		c.Assert(err, qt.IsNil)
		c.Assert(nonce, qt.Equals, uint64(0))
		return nil
	}), qt.IsNil)

	c.Assert(stg.Update(func(tx *Tx) error {
		return tx.SetEncryptionKeys(&EncryptionKeys{})
	}), qt.ErrorMatches, "incomplete encryption keys")
	c.Assert(stg.Update(func(tx *Tx) error {
		return tx.SetCiphertext(handle, nil)
	}), qt.ErrorMatches, "empty ciphertext")
}
