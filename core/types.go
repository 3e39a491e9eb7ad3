package core

import (
	"encoding/hex"
	"fmt"
)

// Money is expressed in base units. The genesis supply, (2^32-1)*1e9 ~=
// 4.29e18, fits well under uint64's ceiling, so no big-integer type is
// needed anywhere in this package.
type Money = uint64

// WalletID names a wallet by the canonical byte encoding of its public
// key. The same encoding is used whether the key belongs to a single
// replica (test fixtures, see signing_test_double.go) or is a section's
// aggregate threshold key (production) - identity is the bytes, not the
// role of the key that produced them.
type WalletID struct {
	raw string // hex of the canonical bytes; the comparable/hashable form
}

// NewWalletID builds a WalletID from the canonical (BLS-compressed) byte
// encoding of a public key.
func NewWalletID(canonical []byte) WalletID {
	return WalletID{raw: hex.EncodeToString(canonical)}
}

// Bytes returns the canonical byte encoding.
func (w WalletID) Bytes() []byte {
	b, _ := hex.DecodeString(w.raw)
	return b
}

// String renders the wallet identifier for logs, file names and wire
// messages.
func (w WalletID) String() string {
	return w.raw
}

// IsZero reports whether w was never assigned a key.
func (w WalletID) IsZero() bool {
	return w.raw == ""
}

// MarshalText encodes the identifier in its hex form, so wallet ids
// survive JSON encoding in log records and wire messages despite the
// unexported representation.
func (w WalletID) MarshalText() ([]byte, error) {
	return []byte(w.raw), nil
}

// UnmarshalText parses the hex form produced by MarshalText.
func (w *WalletID) UnmarshalText(b []byte) error {
	id, err := ParseWalletID(string(b))
	if err != nil {
		return err
	}
	*w = id
	return nil
}

// ParseWalletID parses the hex encoding produced by WalletID.String,
// used to decode wallet ids carried in URL paths and JSON requests.
func ParseWalletID(hexStr string) (WalletID, error) {
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return WalletID{}, fmt.Errorf("invalid wallet id %q: %w", hexStr, err)
	}
	return NewWalletID(b), nil
}
