// Package poseidon provides a variable-length Poseidon hash over the BN254
// scalar field, built by chunking the inputs into groups of 16.
package poseidon

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"

	"github.com/vocdoni/confidential-polls/util"
)

// MaxInputs is the maximum number of field elements MultiPoseidon accepts.
const MaxInputs = 256

const chunkSize = 16

// MultiPoseidon hashes up to MaxInputs field elements. Inputs outside the
// BN254 scalar field are reduced first, so coordinates of points over other
// fields can be hashed too.
func MultiPoseidon(inputs ...*big.Int) (*big.Int, error) {
	if len(inputs) > MaxInputs {
		return nil, fmt.Errorf("too many inputs: %d > %d", len(inputs), MaxInputs)
	} else if len(inputs) == 0 {
		return nil, fmt.Errorf("no inputs provided")
	}
	// calculate chunk hashes
	hashes := []*big.Int{}
	chunk := []*big.Int{}
	for _, input := range inputs {
		if input == nil {
			return nil, fmt.Errorf("nil input")
		}
		if len(chunk) == chunkSize {
			hash, err := poseidon.Hash(chunk)
			if err != nil {
				return nil, err
			}
			hashes = append(hashes, hash)
			chunk = []*big.Int{}
		}
		chunk = append(chunk, util.BigToFF(new(big.Int).Set(input)))
	}
	// if the final chunk is not empty, hash it to get the last chunk hash
	if len(chunk) > 0 {
		hash, err := poseidon.Hash(chunk)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, hash)
	}
	// if there is only one chunk hash, return it
	if len(hashes) == 1 {
		return hashes[0], nil
	}
	// return the hash of all chunk hashes
	return poseidon.Hash(hashes)
}

// HashBytes hashes arbitrary bytes, read as 31 bytes big-endian field
// elements.
func HashBytes(data []byte) (*big.Int, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("no inputs provided")
	}
	inputs := []*big.Int{}
	for start := 0; start < len(data); start += 31 {
		end := min(start+31, len(data))
		inputs = append(inputs, new(big.Int).SetBytes(data[start:end]))
	}
	return MultiPoseidon(inputs...)
}
