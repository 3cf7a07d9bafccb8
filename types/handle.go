package types

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/confidential-polls/util"
)

// HandleLength is the size in bytes of a ciphertext handle.
const HandleLength = common.HashLength

// Handle is an opaque reference to a ciphertext held by the FHE coprocessor.
// It never carries the plaintext nor the ciphertext itself.
type Handle [HandleLength]byte

// BytesToHandle returns a Handle from b. Bigger inputs are cropped from the
// left, like common.BytesToHash does.
func BytesToHandle(b []byte) Handle {
	var h Handle
	if len(b) > len(h) {
		b = b[len(b)-HandleLength:]
	}
	copy(h[HandleLength-len(b):], b)
	return h
}

// HexToHandle parses a 0x prefixed (or plain) hex string into a Handle.
func HexToHandle(s string) (Handle, error) {
	var h Handle
	if err := h.UnmarshalText([]byte(s)); err != nil {
		return Handle{}, err
	}
	return h, nil
}

// Bytes returns a copy of the handle bytes.
func (h Handle) Bytes() []byte {
	b := make([]byte, HandleLength)
	copy(b, h[:])
	return b
}

// IsZero reports whether h is the empty handle.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

func (h Handle) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Handle) UnmarshalText(data []byte) error {
	b, err := hex.DecodeString(util.TrimHex(string(data)))
	if err != nil {
		return fmt.Errorf("invalid handle: %w", err)
	}
	if len(b) != HandleLength {
		return fmt.Errorf("invalid handle length: got %d bytes, expected %d", len(b), HandleLength)
	}
	copy(h[:], b)
	return nil
}
