package k1sig

import (
	"fmt"
	"math/big"
)

// Source names where a signature comes from. The caller picks the variant,
// so no guessing is done between hex, text and binary input.
type Source interface {
	isSource()
}

// RawSource carries the three signature components directly. Nil fields
// are reported as ErrMissingField. It decodes from JSON objects of the form
// {"r": <number>, "s": <number>, "i": <number>}.
type RawSource struct {
	R          *big.Int `json:"r"`
	S          *big.Int `json:"s"`
	RecoveryID *byte    `json:"i"`
}

// HexSource is the 130-character hex form.
type HexSource string

// TextSource is the SIG_K1_ text form.
type TextSource string

// BytesSource is the 65-byte binary form.
type BytesSource []byte

func (RawSource) isSource()   {}
func (HexSource) isSource()   {}
func (TextSource) isSource()  {}
func (BytesSource) isSource() {}

// From builds a signature from any Source.
func From(src Source) (*Signature, error) {
	return defaultCodec.From(src)
}

// From is the codec-bound form of the package-level From.
func (c *Codec) From(src Source) (*Signature, error) {
	switch v := src.(type) {
	case RawSource:
		if v.RecoveryID == nil {
			return nil, fmt.Errorf("%w: recovery id", ErrMissingField)
		}
		return c.NewSignature(v.R, v.S, *v.RecoveryID)
	case *RawSource:
		if v == nil {
			return nil, fmt.Errorf("%w: nil source", ErrMissingField)
		}
		return c.From(*v)
	case HexSource:
		return c.FromHex(string(v))
	case TextSource:
		return c.ParseString(string(v))
	case BytesSource:
		return c.FromBuffer(v)
	case nil:
		return nil, fmt.Errorf("%w: nil source", ErrMissingField)
	default:
		return nil, fmt.Errorf("%w: unknown source %T", ErrFormat, src)
	}
}
