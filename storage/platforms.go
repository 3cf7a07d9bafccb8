package storage

import (
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/vocdoni/confidential-polls/storage/census"
	"github.com/vocdoni/confidential-polls/types"
)

var nextPlatformIDKey = []byte("nextPlatformID")

// NextPlatformID returns the id the next created platform will get.
func (tx *Tx) NextPlatformID() (uint64, error) {
	data, err := tx.prefixed(metadataPrefix).Get(nextPlatformIDKey)
	if errors.Is(err, db.ErrKeyNotFound) {
		return types.FirstPlatformID, nil
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("corrupted platform counter")
	}
	return binary.BigEndian.Uint64(data), nil
}

// SetNextPlatformID stores the id the next created platform will get.
func (tx *Tx) SetNextPlatformID(id uint64) error {
	return tx.prefixed(metadataPrefix).Set(nextPlatformIDKey, binary.BigEndian.AppendUint64(nil, id))
}

// Platform returns the platform with the given id, or ErrNotFound.
func (tx *Tx) Platform(id uint64) (*types.Platform, error) {
	p := &types.Platform{}
	if err := tx.getArtifact(platformPrefix, platformKey(id), p); err != nil {
		return nil, err
	}
	return p, nil
}

// SetPlatform stores the platform.
func (tx *Tx) SetPlatform(p *types.Platform) error {
	if p == nil {
		return fmt.Errorf("nil platform")
	}
	return tx.setArtifact(platformPrefix, platformKey(p.ID), p)
}

// ListPlatforms returns every platform ordered by ascending id.
func (tx *Tx) ListPlatforms() ([]*types.Platform, error) {
	values, err := tx.listValues(platformPrefix, nil)
	if err != nil {
		return nil, err
	}
	platforms := make([]*types.Platform, 0, len(values))
	for _, v := range values {
		p := &types.Platform{}
		if err := decodeArtifact(v, p); err != nil {
			return nil, fmt.Errorf("decode platform: %w", err)
		}
		platforms = append(platforms, p)
	}
	slices.SortFunc(platforms, func(a, b *types.Platform) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return platforms, nil
}

// IsMember reports whether addr is a member of the platform.
func (tx *Tx) IsMember(platformID uint64, addr common.Address) (bool, error) {
	return tx.hasKey(memberPrefix, memberKey(platformID, addr))
}

// AddMember stores addr as a member of the platform, with the given 1-based
// join position, and inserts it in the platform membership tree.
func (tx *Tx) AddMember(platformID uint64, addr common.Address, position uint32) error {
	if err := tx.prefixed(memberPrefix).Set(memberKey(platformID, addr), addr.Bytes()); err != nil {
		return err
	}
	tree, treeTx, err := tx.memberTree(platformID)
	if err != nil {
		return err
	}
	return tree.Add(treeTx, addr, position)
}

// ListMembers returns the members of the platform, ordered by address.
func (tx *Tx) ListMembers(platformID uint64) ([]common.Address, error) {
	values, err := tx.listValues(memberPrefix, platformKey(platformID))
	if err != nil {
		return nil, err
	}
	members := make([]common.Address, 0, len(values))
	for _, v := range values {
		members = append(members, common.BytesToAddress(v))
	}
	slices.SortFunc(members, func(a, b common.Address) int {
		return a.Cmp(b)
	})
	return members, nil
}

// MembershipRoot returns the root of the platform membership tree.
func (tx *Tx) MembershipRoot(platformID uint64) (types.HexBytes, error) {
	tree, treeTx, err := tx.memberTree(platformID)
	if err != nil {
		return nil, err
	}
	return tree.Root(treeTx)
}

// MembershipProof returns the membership proof of addr in the platform tree.
func (tx *Tx) MembershipProof(platformID uint64, addr common.Address) (*census.Proof, error) {
	tree, treeTx, err := tx.memberTree(platformID)
	if err != nil {
		return nil, err
	}
	return tree.GenProof(treeTx, addr)
}

// memberTree opens the membership tree of the platform, scoped to this
// transaction.
func (tx *Tx) memberTree(platformID uint64) (*census.Tree, db.WriteTx, error) {
	prefix := append(append([]byte(nil), memberTreePrefix...), platformKey(platformID)...)
	treeTx := tx.prefixed(prefix)
	tree, err := census.Open(treeTx, prefixeddb.NewPrefixedDatabase(tx.s.db, prefix))
	if err != nil {
		return nil, nil, err
	}
	return tree, treeTx, nil
}
