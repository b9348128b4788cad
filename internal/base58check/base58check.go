// Package base58check implements the checksummed base58 text form used for
// keys and signatures. The checksum is the first four bytes of
// RIPEMD-160(payload || keyType); an empty key type selects the legacy
// checksum, RIPEMD-160(payload).
package base58check

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // the text format is defined over RIPEMD-160
)

// ChecksumSize is the number of checksum bytes appended to the payload.
const ChecksumSize = 4

// ErrChecksum is returned when a string does not decode or its checksum
// does not match.
var ErrChecksum = errors.New("checksum mismatch")

// Checksum returns the checksum of data keyed by keyType.
func Checksum(data []byte, keyType string) []byte {
	h := ripemd160.New()
	h.Write(data)
	h.Write([]byte(keyType))
	return h.Sum(nil)[:ChecksumSize]
}

// Encode appends the checksum to data and base58-encodes the result.
func Encode(data []byte, keyType string) string {
	buf := make([]byte, 0, len(data)+ChecksumSize)
	buf = append(buf, data...)
	buf = append(buf, Checksum(data, keyType)...)
	return base58.Encode(buf)
}

// Decode reverses Encode, verifying and stripping the checksum.
func Decode(text, keyType string) ([]byte, error) {
	raw := base58.Decode(text)
	if len(raw) <= ChecksumSize {
		return nil, fmt.Errorf("%w: %q is not a base58 payload", ErrChecksum, text)
	}

	data, sum := raw[:len(raw)-ChecksumSize], raw[len(raw)-ChecksumSize:]
	if want := Checksum(data, keyType); !bytes.Equal(sum, want) {
		return nil, fmt.Errorf("%w: expected %x, got %x", ErrChecksum, want, sum)
	}
	return data, nil
}

// Codec adapts the package functions to an interface value.
type Codec struct{}

// Encode implements the checksum encoder contract.
func (Codec) Encode(data []byte, keyType string) string {
	return Encode(data, keyType)
}

// Decode implements the checksum decoder contract.
func (Codec) Decode(text, keyType string) ([]byte, error) {
	return Decode(text, keyType)
}
