package k1sig

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/mahdiidarabi/k1sig/internal/base58check"
)

const (
	publicKeyPrefix  = "PUB_"
	privateKeyPrefix = "PVT_"

	// LegacyPublicKeyPrefix is the prefix of public keys in the pre-K1 text
	// form, which uses the untagged checksum.
	LegacyPublicKeyPrefix = "EOS"
)

var (
	publicKeyPattern  = regexp.MustCompile(`^PUB_([A-Za-z0-9]+)_([A-Za-z0-9]+)$`)
	privateKeyPattern = regexp.MustCompile(`^PVT_([A-Za-z0-9]+)_([A-Za-z0-9]+)$`)
)

// PublicKey is a secp256k1 public key with the PUB_K1_ text form.
type PublicKey struct {
	point *secp256k1.PublicKey
}

// PublicKeyFromPoint wraps a curve point.
func PublicKeyFromPoint(point *secp256k1.PublicKey) *PublicKey {
	return &PublicKey{point: point}
}

// ParsePublicKey resolves PUB_K1_, legacy EOS-prefixed and hex (compressed
// or uncompressed) public keys.
func ParsePublicKey(text string) (*PublicKey, error) {
	var raw []byte
	switch {
	case strings.HasPrefix(text, publicKeyPrefix):
		match := publicKeyPattern.FindStringSubmatch(text)
		if match == nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, ErrFormat)
		}
		if match[1] != KeyType {
			return nil, fmt.Errorf("%w: %w: %s", ErrInvalidPublicKey, ErrUnsupportedCurveType, match[1])
		}
		b, err := base58check.Decode(match[2], KeyType)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
		}
		raw = b
	case strings.HasPrefix(text, LegacyPublicKeyPrefix):
		b, err := base58check.Decode(strings.TrimPrefix(text, LegacyPublicKeyPrefix), "")
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
		}
		raw = b
	default:
		b, err := hex.DecodeString(strings.TrimPrefix(text, "0x"))
		if err != nil {
			return nil, fmt.Errorf("%w: unrecognised key format", ErrInvalidPublicKey)
		}
		raw = b
	}

	point, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return PublicKeyFromPoint(point), nil
}

// Point returns the underlying curve point.
func (pub *PublicKey) Point() *secp256k1.PublicKey {
	return pub.point
}

// Bytes returns the 33-byte compressed encoding.
func (pub *PublicKey) Bytes() []byte {
	return pub.point.SerializeCompressed()
}

// String returns the PUB_K1_ text form.
func (pub *PublicKey) String() string {
	return publicKeyPrefix + KeyType + "_" + base58check.Encode(pub.Bytes(), KeyType)
}

// LegacyString returns the pre-K1 text form under the given prefix,
// typically LegacyPublicKeyPrefix.
func (pub *PublicKey) LegacyString(prefix string) string {
	return prefix + base58check.Encode(pub.Bytes(), "")
}

// Equal reports whether both keys are the same point.
func (pub *PublicKey) Equal(other *PublicKey) bool {
	if pub == nil || other == nil {
		return pub == other
	}
	return pub.point.IsEqual(other.point)
}

// MarshalText implements encoding.TextMarshaler using the PUB_K1_ form.
func (pub *PublicKey) MarshalText() ([]byte, error) {
	return []byte(pub.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (pub *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	pub.point = parsed.point
	return nil
}

func (pub *PublicKey) valid() bool {
	return pub != nil && pub.point != nil && pub.point.IsOnCurve()
}

// PrivateKey is a secp256k1 private scalar with the PVT_K1_ text form.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GeneratePrivateKey returns a new random private key.
func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes builds a key from a 32-byte big-endian scalar in [1, N-1].
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != scalarSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPrivateKey, scalarSize, len(b))
	}
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(b); overflow || scalar.IsZero() {
		return nil, fmt.Errorf("%w: scalar out of range", ErrInvalidPrivateKey)
	}
	return &PrivateKey{key: secp256k1.NewPrivateKey(&scalar)}, nil
}

// ParsePrivateKey resolves PVT_K1_, legacy WIF and 64-character hex keys.
func ParsePrivateKey(text string) (*PrivateKey, error) {
	if strings.HasPrefix(text, privateKeyPrefix) {
		match := privateKeyPattern.FindStringSubmatch(text)
		if match == nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPrivateKey, ErrFormat)
		}
		if match[1] != KeyType {
			return nil, fmt.Errorf("%w: %w: %s", ErrInvalidPrivateKey, ErrUnsupportedCurveType, match[1])
		}
		b, err := base58check.Decode(match[2], KeyType)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPrivateKey, err)
		}
		return PrivateKeyFromBytes(b)
	}

	if len(text) == 2*scalarSize {
		if b, err := hex.DecodeString(text); err == nil {
			return PrivateKeyFromBytes(b)
		}
	}

	wif, err := btcutil.DecodeWIF(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return PrivateKeyFromBytes(wif.PrivKey.Serialize())
}

// Key returns the underlying secp256k1 key.
func (priv *PrivateKey) Key() *secp256k1.PrivateKey {
	return priv.key
}

// PublicKey derives the matching public key.
func (priv *PrivateKey) PublicKey() *PublicKey {
	return PublicKeyFromPoint(priv.key.PubKey())
}

// Bytes returns the 32-byte scalar.
func (priv *PrivateKey) Bytes() []byte {
	return priv.key.Serialize()
}

// String returns the PVT_K1_ text form.
func (priv *PrivateKey) String() string {
	return privateKeyPrefix + KeyType + "_" + base58check.Encode(priv.Bytes(), KeyType)
}

// WIF returns the legacy uncompressed wallet import format.
func (priv *PrivateKey) WIF() (string, error) {
	wif, err := btcutil.NewWIF(priv.key, &chaincfg.MainNetParams, false)
	if err != nil {
		return "", fmt.Errorf("failed to encode WIF: %w", err)
	}
	return wif.String(), nil
}
