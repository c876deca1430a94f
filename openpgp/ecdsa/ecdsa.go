// Package ecdsa binds the OpenPGP ECDSA public-key algorithm to a
// pluggable curve back-end: a platform-optimized tier tried first, and a
// pure-software tier used as fallback (and always, for curves the
// platform tier is known to mishandle, or for streamed messages).
package ecdsa

import (
	"crypto/rand"
	"crypto/sha256"
	"io"
	"math/big"

	"github.com/openpgp-go/corepgp/errors"
	"github.com/openpgp-go/corepgp/internal/ecc"
)

// PublicKey is an ECDSA public point bound to a specific curve.
type PublicKey struct {
	Curve *ecc.CurveInfo
	X, Y  *big.Int
}

// PrivateKey is an ECDSA keypair.
type PrivateKey struct {
	PublicKey
	D *big.Int
}

// isKeyIntegrityError reports whether err is the class of failure the
// platform tier raises when it rejects inputs as malformed, as opposed
// to a transient or environmental failure. This module's adapters only
// ever return errors.KeyInvalidError for that class; any other error is
// treated as eligible for software-tier fallback.
func isKeyIntegrityError(err error) bool {
	_, ok := err.(errors.KeyInvalidError)
	return ok
}

// Generate creates a new ECDSA keypair on the given curve, always using
// the software tier: key generation output must be reproducible by the
// same arithmetic path regardless of which tier later signs with it.
func Generate(rand io.Reader, curve *ecc.CurveInfo) (*PrivateKey, error) {
	impl := curve.Software
	if impl == nil {
		impl = curve.Platform
	}
	x, y, d, err := impl.GenerateECDSA(rand)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{PublicKey: PublicKey{Curve: curve, X: x, Y: y}, D: d}, nil
}

// streaming, when true, forces the software tier regardless of
// whether a platform tier is registered. Sign and Verify both honor it
// because the platform API requires a contiguous buffer, which a
// streamed message body cannot always provide.
//
// Sign performs an ECDSA signature over digest (already hashed by the
// caller with the algorithm named in the signature). It tries the
// platform tier first (unless curve is P-521 or streaming is requested),
// propagating key-integrity failures and falling back to the software
// tier on any other platform failure.
func Sign(randReader io.Reader, priv *PrivateKey, digest []byte, streaming bool) (r, s *big.Int, err error) {
	curve := priv.Curve
	if !streaming && curve.Platform != nil {
		r, s, err = curve.Platform.Sign(randReader, priv.X, priv.Y, priv.D, digest)
		if err == nil {
			return r, s, nil
		}
		if isKeyIntegrityError(err) {
			return nil, nil, err
		}
		// Any other platform failure (including none registered) falls
		// through to the software tier.
	}
	if curve.Software == nil {
		return nil, nil, errors.UnsupportedError("ecdsa: curve " + curve.Name + " has no software tier")
	}
	return curve.Software.Sign(randReader, priv.X, priv.Y, priv.D, digest)
}

// Verify checks an ECDSA signature over digest against pub, following
// the same platform/software tier policy as Sign.
func Verify(pub *PublicKey, digest []byte, r, s *big.Int, streaming bool) bool {
	curve := pub.Curve
	if !streaming && curve.Platform != nil {
		if curve.Platform.Verify(pub.X, pub.Y, digest, r, s) {
			return true
		}
		// A failed verification is not a key-integrity error; the
		// software tier is given a chance in case the platform tier's
		// point-decoding disagreed with ours, but a genuinely bad
		// signature will fail both tiers identically.
	}
	if curve.Software == nil {
		return false
	}
	return curve.Software.Verify(pub.X, pub.Y, digest, r, s)
}

// ValidateParams first has the curve back-end check the private scalar
// against the public point (ValidateECDSA), then signs and verifies a
// fresh random message as a functional self-test of that back-end.
func ValidateParams(priv *PrivateKey) bool {
	impl := priv.Curve.Software
	if impl == nil {
		impl = priv.Curve.Platform
	}
	if impl == nil {
		return false
	}
	if err := impl.ValidateECDSA(priv.X, priv.Y, priv.D.Bytes()); err != nil {
		return false
	}
	msg := make([]byte, 8)
	if _, err := rand.Read(msg); err != nil {
		return false
	}
	digest := sha256.Sum256(msg)
	r, s, err := impl.Sign(rand.Reader, priv.X, priv.Y, priv.D, digest[:])
	if err != nil {
		return false
	}
	return impl.Verify(priv.X, priv.Y, digest[:], r, s)
}

// MarshalSignature encodes (r, s) as a pair of fixed-width big-endian
// integers whose width is the curve's coordinate size.
func MarshalSignature(curve *ecc.CurveInfo, r, s *big.Int) (rBytes, sBytes []byte) {
	impl := curve.Curve()
	return impl.MarshalFieldInteger(r), impl.MarshalFieldInteger(s)
}

// UnmarshalSignature is the inverse of MarshalSignature.
func UnmarshalSignature(curve *ecc.CurveInfo, rBytes, sBytes []byte) (r, s *big.Int) {
	impl := curve.Curve()
	return impl.UnmarshalFieldInteger(rBytes), impl.UnmarshalFieldInteger(sBytes)
}
