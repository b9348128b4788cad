package k1sig

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mahdiidarabi/k1sig/internal/base58check"
)

// ChecksumEncoding is the checksummed text encoding used for the SIG_K1_ form.
type ChecksumEncoding interface {
	Encode(data []byte, keyType string) string
	Decode(text, keyType string) ([]byte, error)
}

// Codec ties signatures to the collaborators that sign, verify, recover and
// encode them. The zero value is not usable; start from NewCodec.
type Codec struct {
	engine   CurveEngine
	checksum ChecksumEncoding
	logger   zerolog.Logger
}

var defaultCodec = NewCodec()

// NewCodec creates a codec backed by secp256k1 and base58check.
func NewCodec() *Codec {
	return &Codec{
		engine:   Secp256k1Engine{},
		checksum: base58check.Codec{},
		logger:   zerolog.Nop(),
	}
}

// WithEngine sets a custom curve engine.
func (c *Codec) WithEngine(engine CurveEngine) *Codec {
	c.engine = engine
	return c
}

// WithChecksum sets a custom checksum encoding.
func (c *Codec) WithChecksum(checksum ChecksumEncoding) *Codec {
	c.checksum = checksum
	return c
}

// WithLogger sets the logger used for debug events.
func (c *Codec) WithLogger(logger zerolog.Logger) *Codec {
	c.logger = logger
	return c
}

// Sign hashes data with SHA-256 and signs the digest.
func Sign(data []byte, priv *PrivateKey) (*Signature, error) {
	return defaultCodec.Sign(data, priv)
}

// SignString encodes text under enc, then signs it like Sign.
func SignString(text string, enc Encoding, priv *PrivateKey) (*Signature, error) {
	return defaultCodec.SignString(text, enc, priv)
}

// SignHash signs a 32-byte digest.
func SignHash(digest []byte, priv *PrivateKey) (*Signature, error) {
	return defaultCodec.SignHash(digest, priv)
}

// Sign is the codec-bound form of the package-level Sign.
func (c *Codec) Sign(data []byte, priv *PrivateKey) (*Signature, error) {
	return c.SignHash(HashPayload(data), priv)
}

// SignString is the codec-bound form of the package-level SignString.
func (c *Codec) SignString(text string, enc Encoding, priv *PrivateKey) (*Signature, error) {
	digest, err := hashText(text, enc)
	if err != nil {
		return nil, err
	}
	return c.SignHash(digest, priv)
}

// SignHash is the codec-bound form of the package-level SignHash.
func (c *Codec) SignHash(digest []byte, priv *PrivateKey) (*Signature, error) {
	if err := checkDigest(digest); err != nil {
		return nil, err
	}
	if priv == nil || priv.key == nil {
		return nil, fmt.Errorf("%w: nil key", ErrInvalidPrivateKey)
	}

	r, s, recoveryParam, err := c.engine.Sign(priv.key, digest)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}
	if !isCanonical(s) {
		return nil, ErrNonCanonical
	}
	if recoveryParam > 3 {
		return nil, fmt.Errorf("%w: recovery param %d", ErrInvalidRecoveryID, recoveryParam)
	}
	if !fitsScalar(r) || !fitsScalar(s) {
		return nil, fmt.Errorf("%w: engine returned oversized components", ErrInvalidLength)
	}

	buf := make([]byte, SignatureSize)
	buf[0] = recoveryParam + recoveryOffset + compressedOffset
	r.FillBytes(buf[1 : 1+scalarSize])
	s.FillBytes(buf[1+scalarSize:])

	c.logger.Debug().Uint8("header", buf[0]).Hex("digest", digest).Msg("signed digest")
	return c.FromBuffer(buf)
}

// Verify hashes data with SHA-256 and verifies the signature against pub
// using the codec that built the signature.
func (sig *Signature) Verify(data []byte, pub *PublicKey) (bool, error) {
	return sig.codecOrDefault().Verify(sig, data, pub)
}

// VerifyString encodes text under enc, then verifies it like Verify.
func (sig *Signature) VerifyString(text string, enc Encoding, pub *PublicKey) (bool, error) {
	return sig.codecOrDefault().VerifyString(sig, text, enc, pub)
}

// VerifyHash verifies the signature over a 32-byte digest. High-s
// signatures are accepted.
func (sig *Signature) VerifyHash(digest []byte, pub *PublicKey) (bool, error) {
	return sig.codecOrDefault().VerifyHash(sig, digest, pub)
}

// Verify is the codec-bound form of Signature.Verify.
func (c *Codec) Verify(sig *Signature, data []byte, pub *PublicKey) (bool, error) {
	return c.VerifyHash(sig, HashPayload(data), pub)
}

// VerifyString is the codec-bound form of Signature.VerifyString.
func (c *Codec) VerifyString(sig *Signature, text string, enc Encoding, pub *PublicKey) (bool, error) {
	digest, err := hashText(text, enc)
	if err != nil {
		return false, err
	}
	return c.VerifyHash(sig, digest, pub)
}

// VerifyHash is the codec-bound form of Signature.VerifyHash.
func (c *Codec) VerifyHash(sig *Signature, digest []byte, pub *PublicKey) (bool, error) {
	if sig == nil {
		return false, fmt.Errorf("%w: nil signature", ErrMissingField)
	}
	if err := checkDigest(digest); err != nil {
		return false, err
	}
	if !pub.valid() {
		return false, fmt.Errorf("%w: not a point on secp256k1", ErrInvalidPublicKey)
	}
	return c.engine.Verify(digest, sig.r, sig.s, pub.point), nil
}

// Recover hashes data with SHA-256 and recovers the signing public key
// using the codec that built the signature.
func (sig *Signature) Recover(data []byte) (*PublicKey, error) {
	return sig.codecOrDefault().Recover(sig, data)
}

// RecoverString encodes text under enc, then recovers like Recover.
func (sig *Signature) RecoverString(text string, enc Encoding) (*PublicKey, error) {
	return sig.codecOrDefault().RecoverString(sig, text, enc)
}

// RecoverHash recovers the public key that signed a 32-byte digest.
func (sig *Signature) RecoverHash(digest []byte) (*PublicKey, error) {
	return sig.codecOrDefault().RecoverHash(sig, digest)
}

// Recover is the codec-bound form of Signature.Recover.
func (c *Codec) Recover(sig *Signature, data []byte) (*PublicKey, error) {
	return c.RecoverHash(sig, HashPayload(data))
}

// RecoverString is the codec-bound form of Signature.RecoverString.
func (c *Codec) RecoverString(sig *Signature, text string, enc Encoding) (*PublicKey, error) {
	digest, err := hashText(text, enc)
	if err != nil {
		return nil, err
	}
	return c.RecoverHash(sig, digest)
}

// RecoverHash is the codec-bound form of Signature.RecoverHash.
func (c *Codec) RecoverHash(sig *Signature, digest []byte) (*PublicKey, error) {
	if sig == nil {
		return nil, fmt.Errorf("%w: nil signature", ErrMissingField)
	}
	if err := checkDigest(digest); err != nil {
		return nil, err
	}

	point, err := c.engine.RecoverPoint(digest, sig.r, sig.s, sig.selector())
	if err != nil {
		return nil, err
	}

	pub := PublicKeyFromPoint(point)
	c.logger.Debug().Uint8("header", sig.recoveryID).Str("public_key", pub.String()).Msg("recovered public key")
	return pub, nil
}

func checkDigest(digest []byte) error {
	if len(digest) != 32 {
		return fmt.Errorf("%w: got %d bytes", ErrDigestLength, len(digest))
	}
	return nil
}
