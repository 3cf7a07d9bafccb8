package types

import (
	"encoding/hex"
	"fmt"

	"github.com/vocdoni/confidential-polls/util"
)

// HexBytes is a []byte which encodes as hexadecimal in json, as opposed to the
// base64 default.
type HexBytes []byte

func (b HexBytes) String() string {
	return "0x" + hex.EncodeToString(b)
}

func (b HexBytes) MarshalText() ([]byte, error) {
	enc := make([]byte, hex.EncodedLen(len(b))+2)
	enc[0], enc[1] = '0', 'x'
	hex.Encode(enc[2:], b)
	return enc, nil
}

func (b *HexBytes) UnmarshalText(data []byte) error {
	decoded, err := hex.DecodeString(util.TrimHex(string(data)))
	if err != nil {
		return fmt.Errorf("invalid hex bytes: %w", err)
	}
	*b = decoded
	return nil
}

// HexStringToHexBytes decodes a hex string (with or without 0x prefix).
func HexStringToHexBytes(s string) (HexBytes, error) {
	b := HexBytes{}
	if err := b.UnmarshalText([]byte(s)); err != nil {
		return nil, err
	}
	return b, nil
}
