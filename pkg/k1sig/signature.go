package k1sig

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

const (
	// KeyType is the only curve-type tag this package produces or accepts.
	KeyType = "K1"

	// SignatureSize is the length of the binary form: header, r and s.
	SignatureSize = 1 + 2*scalarSize

	// HexSize is the length of the hex form.
	HexSize = 2 * SignatureSize

	// signaturePrefix starts every text-form signature.
	signaturePrefix = "SIG_"

	scalarSize = 32

	// recoveryOffset is the legacy base of the header byte; compressedOffset is
	// added on top of it when the recovered key is compressed.
	recoveryOffset   = 27
	compressedOffset = 4
)

var signaturePattern = regexp.MustCompile(`^SIG_([A-Za-z0-9]+)_([A-Za-z0-9]+)$`)

// Signature is a recoverable secp256k1 ECDSA signature: r, s and the header
// byte that selects the public key during recovery.
//
// A Signature is immutable. Its text form is computed on first use and
// cached, so values must be shared by pointer. A signature remembers the
// Codec that built it; its Verify, Recover and String methods use that
// codec's collaborators.
type Signature struct {
	r          *big.Int
	s          *big.Int
	recoveryID byte

	codec    *Codec
	textOnce sync.Once
	text     string
}

// NewSignature builds a signature from its raw components. The values are
// trusted: only a missing component, or one that cannot be encoded in 32
// bytes, is rejected.
func NewSignature(r, s *big.Int, recoveryID byte) (*Signature, error) {
	return defaultCodec.NewSignature(r, s, recoveryID)
}

// FromBuffer parses the 65-byte binary form.
func FromBuffer(buf []byte) (*Signature, error) {
	return defaultCodec.FromBuffer(buf)
}

// FromHex parses the 130-character hex form.
func FromHex(text string) (*Signature, error) {
	return defaultCodec.FromHex(text)
}

// ParseString parses the SIG_K1_ text form, returning why it failed.
func ParseString(text string) (*Signature, error) {
	return defaultCodec.ParseString(text)
}

// FromString parses the SIG_K1_ text form and returns nil if text is not a
// valid signature.
func FromString(text string) *Signature {
	return defaultCodec.FromString(text)
}

// NewSignature is the codec-bound form of the package-level NewSignature.
func (c *Codec) NewSignature(r, s *big.Int, recoveryID byte) (*Signature, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: r", ErrMissingField)
	}
	if s == nil {
		return nil, fmt.Errorf("%w: s", ErrMissingField)
	}
	if !fitsScalar(r) || !fitsScalar(s) {
		return nil, fmt.Errorf("%w: r and s must be unsigned and at most %d bytes", ErrInvalidLength, scalarSize)
	}

	return &Signature{
		r:          new(big.Int).Set(r),
		s:          new(big.Int).Set(s),
		recoveryID: recoveryID,
		codec:      c,
	}, nil
}

// FromBuffer is the codec-bound form of the package-level FromBuffer.
func (c *Codec) FromBuffer(buf []byte) (*Signature, error) {
	if len(buf) != SignatureSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidLength, SignatureSize, len(buf))
	}

	i := int(buf[0])
	if i-recoveryOffset != (i-recoveryOffset)&7 {
		return nil, fmt.Errorf("%w: header byte %d", ErrInvalidRecoveryID, i)
	}

	r := new(big.Int).SetBytes(buf[1 : 1+scalarSize])
	s := new(big.Int).SetBytes(buf[1+scalarSize:])
	return c.NewSignature(r, s, buf[0])
}

// FromHex is the codec-bound form of the package-level FromHex.
func (c *Codec) FromHex(text string) (*Signature, error) {
	buf, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hex: %v", ErrFormat, err)
	}
	return c.FromBuffer(buf)
}

// ParseString is the codec-bound form of the package-level ParseString.
func (c *Codec) ParseString(text string) (*Signature, error) {
	match := signaturePattern.FindStringSubmatch(text)
	if match == nil {
		return nil, fmt.Errorf("%w: expecting SIG_<type>_<payload>", ErrFormat)
	}

	keyType, payload := match[1], match[2]
	if keyType != KeyType {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCurveType, keyType)
	}

	buf, err := c.checksum.Decode(payload, keyType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode signature payload: %w", err)
	}
	return c.FromBuffer(buf)
}

// FromString is the codec-bound form of the package-level FromString.
func (c *Codec) FromString(text string) *Signature {
	sig, err := c.ParseString(text)
	if err != nil {
		c.logger.Debug().Err(err).Msg("text is not a signature")
		return nil
	}
	return sig
}

// R returns a copy of the r component.
func (sig *Signature) R() *big.Int {
	return new(big.Int).Set(sig.r)
}

// S returns a copy of the s component.
func (sig *Signature) S() *big.Int {
	return new(big.Int).Set(sig.s)
}

// RecoveryID returns the stored header byte.
func (sig *Signature) RecoveryID() byte {
	return sig.recoveryID
}

// Equal reports whether both signatures carry the same r, s and recovery id.
func (sig *Signature) Equal(other *Signature) bool {
	if sig == nil || other == nil {
		return sig == other
	}
	return sig.recoveryID == other.recoveryID && sig.r.Cmp(other.r) == 0 && sig.s.Cmp(other.s) == 0
}

// ToBuffer returns the 65-byte binary form: header, then r and s as 32-byte
// big-endian integers.
func (sig *Signature) ToBuffer() []byte {
	buf := make([]byte, SignatureSize)
	buf[0] = sig.recoveryID
	sig.r.FillBytes(buf[1 : 1+scalarSize])
	sig.s.FillBytes(buf[1+scalarSize:])
	return buf
}

// ToHex returns the lowercase hex encoding of ToBuffer.
func (sig *Signature) ToHex() string {
	return hex.EncodeToString(sig.ToBuffer())
}

// String returns the SIG_K1_ text form.
func (sig *Signature) String() string {
	sig.textOnce.Do(func() {
		sig.text = signaturePrefix + KeyType + "_" + sig.codecOrDefault().checksum.Encode(sig.ToBuffer(), KeyType)
	})
	return sig.text
}

// MarshalText implements encoding.TextMarshaler using the SIG_K1_ form.
func (sig *Signature) MarshalText() ([]byte, error) {
	return []byte(sig.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. A zero Signature parses
// with the default codec.
func (sig *Signature) UnmarshalText(text []byte) error {
	parsed, err := sig.codecOrDefault().ParseString(string(text))
	if err != nil {
		return err
	}
	sig.assign(parsed)
	return nil
}

// MarshalCBOR encodes the signature as a CBOR byte string of its binary form.
func (sig *Signature) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(sig.ToBuffer())
}

// UnmarshalCBOR decodes a CBOR byte string produced by MarshalCBOR.
func (sig *Signature) UnmarshalCBOR(data []byte) error {
	var buf []byte
	if err := cbor.Unmarshal(data, &buf); err != nil {
		return fmt.Errorf("failed to decode CBOR signature: %w", err)
	}
	parsed, err := sig.codecOrDefault().FromBuffer(buf)
	if err != nil {
		return err
	}
	sig.assign(parsed)
	return nil
}

// assign overwrites sig with other and drops any cached text form.
func (sig *Signature) assign(other *Signature) {
	sig.r = other.r
	sig.s = other.s
	sig.recoveryID = other.recoveryID
	sig.codec = other.codec
	sig.textOnce = sync.Once{}
	sig.text = ""
}

func (sig *Signature) codecOrDefault() *Codec {
	if sig == nil || sig.codec == nil {
		return defaultCodec
	}
	return sig.codec
}

// selector maps the stored header onto the 2-bit recovery code the curve
// engine expects. The compressed-key bit is dropped: only compressed keys
// are ever recovered.
func (sig *Signature) selector() byte {
	return (sig.recoveryID - recoveryOffset) & 3
}

func fitsScalar(v *big.Int) bool {
	return v.Sign() >= 0 && v.BitLen() <= 8*scalarSize
}
