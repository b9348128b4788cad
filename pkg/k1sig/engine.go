package k1sig

import (
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

var (
	// Secp256k1CurveOrder is the order of the secp256k1 group.
	Secp256k1CurveOrder = new(big.Int).Set(secp256k1.Params().N)

	// halfOrder is the largest s accepted as canonical.
	halfOrder = new(big.Int).Rsh(Secp256k1CurveOrder, 1)
)

// CurveEngine is the elliptic-curve arithmetic the codec delegates to.
type CurveEngine interface {
	// Sign produces a low-s signature over digest and the recovery code
	// (0..3) of the nonce point.
	Sign(priv *secp256k1.PrivateKey, digest []byte) (r, s *big.Int, recoveryParam byte, err error)

	// Verify reports whether (r, s) is a valid signature of digest by pub.
	Verify(digest []byte, r, s *big.Int, pub *secp256k1.PublicKey) bool

	// RecoverPoint returns the public key selected by the 2-bit recovery code.
	RecoverPoint(digest []byte, r, s *big.Int, selector byte) (*secp256k1.PublicKey, error)
}

// Secp256k1Engine implements CurveEngine with deterministic RFC6979 nonces.
type Secp256k1Engine struct{}

// Sign implements CurveEngine.
func (Secp256k1Engine) Sign(priv *secp256k1.PrivateKey, digest []byte) (*big.Int, *big.Int, byte, error) {
	compact := ecdsa.SignCompact(priv, digest, true)
	if len(compact) != SignatureSize {
		return nil, nil, 0, fmt.Errorf("unexpected compact signature size %d", len(compact))
	}

	r := new(big.Int).SetBytes(compact[1 : 1+scalarSize])
	s := new(big.Int).SetBytes(compact[1+scalarSize:])
	return r, s, compact[0] - recoveryOffset - compressedOffset, nil
}

// Verify implements CurveEngine.
func (Secp256k1Engine) Verify(digest []byte, r, s *big.Int, pub *secp256k1.PublicKey) bool {
	var rs, ss secp256k1.ModNScalar
	if !toScalar(r, &rs) || !toScalar(s, &ss) {
		return false
	}
	return ecdsa.NewSignature(&rs, &ss).Verify(digest, pub)
}

// RecoverPoint implements CurveEngine.
func (Secp256k1Engine) RecoverPoint(digest []byte, r, s *big.Int, selector byte) (*secp256k1.PublicKey, error) {
	if !fitsScalar(r) || !fitsScalar(s) {
		return nil, fmt.Errorf("%w: r and s must fit in %d bytes", ErrInvalidLength, scalarSize)
	}

	var compact [SignatureSize]byte
	compact[0] = recoveryOffset + compressedOffset + selector&3
	r.FillBytes(compact[1 : 1+scalarSize])
	s.FillBytes(compact[1+scalarSize:])

	pub, _, err := ecdsa.RecoverCompact(compact[:], digest)
	if err != nil {
		return nil, fmt.Errorf("failed to recover public key: %w", err)
	}
	return pub, nil
}

// toScalar loads v into out, rejecting zero and values at or above the
// group order.
func toScalar(v *big.Int, out *secp256k1.ModNScalar) bool {
	if v == nil || !fitsScalar(v) {
		return false
	}
	var buf [scalarSize]byte
	v.FillBytes(buf[:])
	if overflow := out.SetByteSlice(buf[:]); overflow {
		return false
	}
	return !out.IsZero()
}

func isCanonical(s *big.Int) bool {
	return s.Cmp(halfOrder) <= 0
}
