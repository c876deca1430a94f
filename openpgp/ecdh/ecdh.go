// Package ecdh implements RFC 6637 ECDH key agreement over the curves
// registered in internal/ecc, including the Curve25519 special case
// (draft-ietf-openpgp-rfc4880bis' Montgomery-curve ECDH variant).
package ecdh

import (
	"crypto/elliptic"
	"crypto/rand"
	"io"
	"math/big"

	"golang.org/x/crypto/curve25519"

	"github.com/openpgp-go/corepgp/errors"
	"github.com/openpgp-go/corepgp/internal/ecc"
)

// KDF parameters bound to an ECDH public key, per RFC 6637 §8: the hash
// used to derive the wrapping key, and the cipher that key wraps a
// session key with.
type KDF struct {
	Hash   byte
	Cipher byte
}

// PublicKey is an ECDH public point (or, for Curve25519, a 32-byte
// Montgomery u-coordinate) bound to a curve and its KDF parameters.
type PublicKey struct {
	Curve *ecc.CurveInfo
	KDF   KDF

	// X, Y are set when Curve.CurveType == CurveTypeWeierstrass.
	X, Y *big.Int
	// Point is the 32-byte raw u-coordinate when Curve.CurveType ==
	// CurveTypeCurve25519.
	Point []byte
}

// PrivateKey is an ECDH keypair.
type PrivateKey struct {
	PublicKey
	D []byte
}

// Generate creates a fresh ECDH keypair on curve.
func Generate(randReader io.Reader, curve *ecc.CurveInfo, kdf KDF) (*PrivateKey, error) {
	if curve.CurveType == ecc.CurveTypeCurve25519 {
		var priv [32]byte
		if _, err := io.ReadFull(randReader, priv[:]); err != nil {
			return nil, err
		}
		// Clamp per RFC 7748 §5.
		priv[0] &= 248
		priv[31] &= 127
		priv[31] |= 64
		pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
		if err != nil {
			return nil, err
		}
		return &PrivateKey{
			PublicKey: PublicKey{Curve: curve, KDF: kdf, Point: pub},
			D:         priv[:],
		}, nil
	}

	weierstrass := curve.WeierstrassCurve
	if weierstrass == nil {
		return nil, errors.UnsupportedError("ecdh: curve " + curve.Name + " has no point arithmetic registered")
	}
	d, x, y, err := elliptic.GenerateKey(weierstrass, randReader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{
		PublicKey: PublicKey{Curve: curve, KDF: kdf, X: x, Y: y},
		D:         d,
	}, nil
}

// sharedSecret computes the ECDH shared point/scalar used to seed the
// RFC 6637 KDF. For Weierstrass curves it is the x-coordinate of
// priv.D * pub.(X,Y); for Curve25519 it is the raw X25519 output.
func sharedSecret(priv *PrivateKey, pub *PublicKey) ([]byte, error) {
	if priv.Curve.CurveType != pub.Curve.CurveType {
		return nil, errors.InvalidArgumentError("ecdh: mismatched curve types")
	}
	if priv.Curve.CurveType == ecc.CurveTypeCurve25519 {
		if len(pub.Point) != 32 {
			return nil, errors.StructuralError("ecdh: malformed Curve25519 point")
		}
		return curve25519.X25519(priv.D, pub.Point)
	}

	weierstrass := priv.Curve.WeierstrassCurve
	if weierstrass == nil {
		return nil, errors.UnsupportedError("ecdh: curve " + priv.Curve.Name + " has no point arithmetic registered")
	}
	x, _ := weierstrass.ScalarMult(pub.X, pub.Y, priv.D)
	return x.Bytes(), nil
}

// Encrypt wraps sessionKey for the recipient pub using the ECDH KDF and
// key-wrap scheme from RFC 6637 §8, using an ephemeral keypair on the
// same curve. It returns the ephemeral public point (to place on the
// wire) and the wrapped session key.
func Encrypt(randReader io.Reader, pub *PublicKey, curveOid, fingerprint, sessionKey []byte) (ephemeral *PublicKey, wrapped []byte, err error) {
	eph, err := Generate(randReader, pub.Curve, pub.KDF)
	if err != nil {
		return nil, nil, err
	}
	secret, err := sharedSecret(eph, pub)
	if err != nil {
		return nil, nil, err
	}
	wrapKey := deriveKDFKey(secret, curveOid, pub.KDF, fingerprint)
	wrapped, err = aesKeyWrap(wrapKey, pkcs5Pad(sessionKey))
	if err != nil {
		return nil, nil, err
	}
	return &eph.PublicKey, wrapped, nil
}

// Decrypt is the inverse of Encrypt: it derives the shared secret from
// priv and the sender's ephemeral public key, then unwraps the session
// key.
func Decrypt(priv *PrivateKey, ephemeral *PublicKey, curveOid, fingerprint, wrapped []byte) ([]byte, error) {
	secret, err := sharedSecret(priv, ephemeral)
	if err != nil {
		return nil, err
	}
	wrapKey := deriveKDFKey(secret, curveOid, priv.KDF, fingerprint)
	padded, err := aesKeyUnwrap(wrapKey, wrapped)
	if err != nil {
		return nil, errors.ErrKeyIncorrect("ecdh: session key unwrap failed")
	}
	return pkcs5Unpad(padded)
}

// randomBytes reads n cryptographically secure random bytes, falling
// back to crypto/rand when no reader is supplied.
func randomBytes(randReader io.Reader, n int) ([]byte, error) {
	if randReader == nil {
		randReader = rand.Reader
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return nil, err
	}
	return b, nil
}
