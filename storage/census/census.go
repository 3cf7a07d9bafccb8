// Package census keeps the members of a platform in an arbo Merkle tree, so a
// member can prove its membership against a single root.
package census

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/arbo"
	"go.vocdoni.io/dvote/db"

	"github.com/vocdoni/confidential-polls/types"
)

// MaxLevels is the depth of the tree, one level per address bit.
const MaxLevels = common.AddressLength * 8

// HashFunction is the hash used by the membership trees.
var HashFunction = arbo.HashFunctionPoseidon

// Tree is the membership tree of one platform. Leaves are keyed by the member
// address and hold the 1-based join position.
type Tree struct {
	tree *arbo.Tree
}

// Open opens (or creates inside wTx) the tree stored in database. wTx must
// write to the same namespace as database.
func Open(wTx db.WriteTx, database db.Database) (*Tree, error) {
	tree, err := arbo.NewTreeWithTx(wTx, arbo.Config{
		Database:     database,
		MaxLevels:    MaxLevels,
		HashFunction: HashFunction,
	})
	if err != nil {
		return nil, fmt.Errorf("open membership tree: %w", err)
	}
	return &Tree{tree: tree}, nil
}

// Add inserts the member inside wTx.
func (t *Tree) Add(wTx db.WriteTx, addr common.Address, position uint32) error {
	if err := t.tree.AddWithTx(wTx, addr.Bytes(), leafValue(position)); err != nil {
		return fmt.Errorf("add member %s: %w", addr.Hex(), err)
	}
	return nil
}

// Root returns the tree root as seen by rTx.
func (t *Tree) Root(rTx db.Reader) (types.HexBytes, error) {
	root, err := t.tree.RootWithTx(rTx)
	if err != nil {
		return nil, err
	}
	return root, nil
}

// Proof is a membership (or non membership) proof of an address.
type Proof struct {
	Root     types.HexBytes `json:"root"`
	Address  common.Address `json:"address"`
	Value    types.HexBytes `json:"value"`
	Siblings types.HexBytes `json:"siblings"`
	Included bool           `json:"included"`
}

// GenProof generates the proof for addr as seen by rTx.
func (t *Tree) GenProof(rTx db.Reader, addr common.Address) (*Proof, error) {
	root, err := t.Root(rTx)
	if err != nil {
		return nil, err
	}
	_, value, siblings, included, err := t.tree.GenProofWithTx(rTx, addr.Bytes())
	if err != nil {
		return nil, fmt.Errorf("generate proof: %w", err)
	}
	return &Proof{
		Root:     root,
		Address:  addr,
		Value:    value,
		Siblings: siblings,
		Included: included,
	}, nil
}

// CheckProof verifies that p proves the inclusion of p.Address under root.
func CheckProof(root []byte, p *Proof) (bool, error) {
	if p == nil || !p.Included {
		return false, nil
	}
	return arbo.CheckProof(HashFunction, p.Address.Bytes(), p.Value, root, p.Siblings)
}

func leafValue(position uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, position)
}
