package k1sig

import (
	"errors"

	"github.com/mahdiidarabi/k1sig/internal/base58check"
)

var (
	// ErrMissingField is returned when a raw signature lacks r, s or the recovery id.
	ErrMissingField = errors.New("missing signature field")

	// ErrDigestLength is returned when a hash input is not 32 bytes.
	ErrDigestLength = errors.New("digest must be 32 bytes")

	// ErrInvalidLength is returned when a signature buffer is not 65 bytes.
	ErrInvalidLength = errors.New("invalid signature length")

	// ErrInvalidRecoveryID is returned when the header byte is outside 27..34.
	ErrInvalidRecoveryID = errors.New("invalid recovery id")

	// ErrFormat is returned when text does not look like SIG_<TYPE>_<payload>.
	ErrFormat = errors.New("invalid signature format")

	// ErrUnsupportedCurveType is returned for any curve tag other than K1.
	ErrUnsupportedCurveType = errors.New("unsupported curve type")

	// ErrChecksum is returned when a checksummed string fails to decode.
	ErrChecksum = base58check.ErrChecksum

	// ErrInvalidPublicKey is returned when a key cannot be resolved to a curve point.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrInvalidPrivateKey is returned when a private key cannot be resolved to a scalar.
	ErrInvalidPrivateKey = errors.New("invalid private key")

	// ErrNonCanonical is returned when the curve engine hands back a high-s signature.
	ErrNonCanonical = errors.New("non-canonical signature")

	// ErrUnsupportedEncoding is returned for an unknown payload text encoding.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
)
