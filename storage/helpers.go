package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor encoding mode: %v", err))
	}
}

// Artifact encoding/decoding
func encodeArtifact(a any) ([]byte, error) {
	data, err := encMode.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return data, nil
}

func decodeArtifact(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}

// Keys are big-endian so iteration follows the numeric order.

func platformKey(platformID uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, platformID)
}

func pollKey(platformID uint64, index uint32) []byte {
	return binary.BigEndian.AppendUint32(platformKey(platformID), index)
}

func memberKey(platformID uint64, addr common.Address) []byte {
	return append(platformKey(platformID), addr.Bytes()...)
}

func voterKey(platformID uint64, index uint32, addr common.Address) []byte {
	return append(pollKey(platformID, index), addr.Bytes()...)
}

// PollRef addresses a poll.
type PollRef struct {
	PlatformID uint64 `cbor:"0,keyasint,omitempty"`
	Index      uint32 `cbor:"1,keyasint,omitempty"`
}
