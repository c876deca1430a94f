// Package ecc is the elliptic-curve slice of the algorithm registry: it
// maps curve OIDs and generation names to curve implementations, and
// defines the ECDSACurve capability set that the ECDSA back-end plugs
// into. Two tiers of ECDSA curve exist for every NIST curve: a
// platform-optimized tier (crypto/elliptic's dedicated P224/P256/P384/P521
// implementations, which crypto/ecdsa fast-paths) and a pure-software
// tier (crypto/elliptic.CurveParams' generic, non-constant-time affine
// arithmetic, which crypto/ecdsa also accepts through its generic path).
// Curves outside the NIST set (brainpool, secp256k1) are not registered,
// so they have neither tier.
package ecc

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"io"
	"math/big"

	"github.com/openpgp-go/corepgp/errors"
	"github.com/openpgp-go/corepgp/internal/encoding"
)

// SigAlgorithm distinguishes which signature scheme a curve is
// registered for.
type SigAlgorithm int

const (
	SigNone SigAlgorithm = iota
	SigECDSA
	SigEdDSA
	// SigECDH marks a curve registered for Diffie-Hellman key agreement
	// rather than signing.
	SigECDH
)

// CurveType distinguishes the point-encoding family a curve belongs to.
type CurveType int

const (
	CurveTypeWeierstrass CurveType = iota
	CurveTypeCurve25519
	CurveTypeCurve448
)

// ECDSACurve is the capability set a curve implementation exposes to an
// ECDSA back-end (priv.PublicKey.Curve.{Sign, Verify, GenerateECDSA,
// ValidateECDSA, Marshal/UnmarshalIntegerPoint,
// Marshal/UnmarshalFieldInteger}).
type ECDSACurve interface {
	GenerateECDSA(rand io.Reader) (x, y, d *big.Int, err error)
	Sign(rand io.Reader, x, y, d *big.Int, hash []byte) (r, s *big.Int, err error)
	Verify(x, y *big.Int, hash []byte, r, s *big.Int) bool
	ValidateECDSA(x, y *big.Int, d []byte) error
	MarshalIntegerPoint(x, y *big.Int) []byte
	UnmarshalIntegerPoint(p []byte) (x, y *big.Int)
	MarshalFieldInteger(n *big.Int) []byte
	UnmarshalFieldInteger(b []byte) *big.Int
	// FieldByteLength is the fixed width each of r, s occupies on the
	// wire: the curve's coordinate size.
	FieldByteLength() int
}

// CurveInfo describes one registered curve.
type CurveInfo struct {
	Name         string // e.g. "P-256"
	GenName      string // config-facing generation name, e.g. "p256"
	Oid          *encoding.OID
	CurveType    CurveType
	SigAlgorithm SigAlgorithm
	// Platform is the optimized tier, nil when no optimized
	// implementation exists for this curve.
	Platform ECDSACurve
	// Software is the generic-arithmetic tier; always present for
	// Weierstrass curves.
	Software ECDSACurve
	// WeierstrassCurve is populated for SigECDH entries over a NIST
	// curve, giving the ecdh package the point arithmetic it needs for
	// key agreement without re-deriving it from Platform/Software.
	WeierstrassCurve elliptic.Curve
}

var curves []*CurveInfo

func register(c *CurveInfo) *CurveInfo {
	curves = append(curves, c)
	return c
}

// ecdsaAdapter adapts a concrete elliptic.Curve (either a stdlib named
// curve or a raw CurveParams) to the ECDSACurve capability set via
// crypto/ecdsa and crypto/elliptic. The two tiers for a given named NIST
// curve are two ecdsaAdapter values wrapping different elliptic.Curve
// instances: the dedicated fast curve for Platform, and a CurveParams
// clone of the same domain parameters for Software.
type ecdsaAdapter struct {
	curve      elliptic.Curve
	byteLength int
}

func (a *ecdsaAdapter) GenerateECDSA(rand io.Reader) (x, y, d *big.Int, err error) {
	priv, err := ecdsa.GenerateKey(a.curve, rand)
	if err != nil {
		return nil, nil, nil, err
	}
	return priv.X, priv.Y, priv.D, nil
}

func (a *ecdsaAdapter) Sign(rand io.Reader, x, y, d *big.Int, hash []byte) (r, s *big.Int, err error) {
	priv := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: a.curve, X: x, Y: y},
		D:         d,
	}
	return ecdsa.Sign(rand, priv, hash)
}

func (a *ecdsaAdapter) Verify(x, y *big.Int, hash []byte, r, s *big.Int) bool {
	pub := &ecdsa.PublicKey{Curve: a.curve, X: x, Y: y}
	return ecdsa.Verify(pub, hash, r, s)
}

func (a *ecdsaAdapter) ValidateECDSA(x, y *big.Int, d []byte) error {
	if x == nil || y == nil {
		return errors.KeyInvalidError("ecc: missing public point")
	}
	if !a.curve.IsOnCurve(x, y) {
		return errors.KeyInvalidError("ecc: point is not on curve")
	}
	secret := new(big.Int).SetBytes(d)
	if secret.Sign() <= 0 || secret.Cmp(a.curve.Params().N) >= 0 {
		return errors.KeyInvalidError("ecc: private scalar out of range")
	}
	expX, expY := a.curve.ScalarBaseMult(d)
	if expX.Cmp(x) != 0 || expY.Cmp(y) != 0 {
		return errors.KeyInvalidError("ecc: private scalar does not match public point")
	}
	return nil
}

func (a *ecdsaAdapter) MarshalIntegerPoint(x, y *big.Int) []byte {
	return elliptic.Marshal(a.curve, x, y)
}

func (a *ecdsaAdapter) UnmarshalIntegerPoint(p []byte) (x, y *big.Int) {
	return elliptic.Unmarshal(a.curve, p)
}

func (a *ecdsaAdapter) MarshalFieldInteger(n *big.Int) []byte {
	return zeroPad(n.Bytes(), a.byteLength)
}

func (a *ecdsaAdapter) UnmarshalFieldInteger(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

func (a *ecdsaAdapter) FieldByteLength() int {
	return a.byteLength
}

func zeroPad(b []byte, length int) []byte {
	if len(b) >= length {
		return b
	}
	out := make([]byte, length)
	copy(out[length-len(b):], b)
	return out
}

// softwareParams clones a named curve's domain parameters into a raw
// CurveParams so that crypto/ecdsa falls through to its generic,
// non-optimized arithmetic path instead of the curve's dedicated one.
func softwareParams(name string, c elliptic.Curve) *elliptic.CurveParams {
	p := c.Params()
	clone := &elliptic.CurveParams{
		P:       new(big.Int).Set(p.P),
		N:       new(big.Int).Set(p.N),
		B:       new(big.Int).Set(p.B),
		Gx:      new(big.Int).Set(p.Gx),
		Gy:      new(big.Int).Set(p.Gy),
		BitSize: p.BitSize,
		Name:    name,
	}
	return clone
}

func byteLen(bits int) int {
	return (bits + 7) / 8
}

func init() {
	registerNIST("P-256", "p256", elliptic.P256(), []byte{0x2a, 0x86, 0x48, 0xce, 0x3d, 0x03, 0x01, 0x07})
	registerNIST("P-384", "p384", elliptic.P384(), []byte{0x2b, 0x81, 0x04, 0x00, 0x22})
	// P-521 is registered with no Platform tier: spec policy always
	// routes this curve through the software tier, because some
	// platform ECDSA back-ends are known to reject it outright.
	p521Software := &ecdsaAdapter{curve: softwareParams("P-521", elliptic.P521()), byteLength: byteLen(521)}
	register(&CurveInfo{
		Name: "P-521", GenName: "p521",
		Oid:          encoding.NewOID([]byte{0x2b, 0x81, 0x04, 0x00, 0x23}),
		SigAlgorithm: SigECDSA,
		Software:     p521Software,
	})
	registerECDH("P-256", "p256", elliptic.P256(), []byte{0x2a, 0x86, 0x48, 0xce, 0x3d, 0x03, 0x01, 0x07})
	registerECDH("P-384", "p384", elliptic.P384(), []byte{0x2b, 0x81, 0x04, 0x00, 0x22})
	registerECDH("P-521", "p521", elliptic.P521(), []byte{0x2b, 0x81, 0x04, 0x00, 0x23})
	registerCurve25519()
}

// registerECDH adds a Weierstrass curve's ECDH (key-agreement) entry,
// separate from its possible ECDSA entry: the two are looked up by
// different FindXByGenName functions because a PublicKeyAlgorithm
// (ECDSA vs ECDH) picks one or the other even for the same curve.
func registerECDH(name, genName string, curve elliptic.Curve, oid []byte) {
	register(&CurveInfo{
		Name: name, GenName: genName,
		Oid:              encoding.NewOID(oid),
		CurveType:        CurveTypeWeierstrass,
		SigAlgorithm:     SigECDH,
		WeierstrassCurve: curve,
	})
}

func registerNIST(name, genName string, curve elliptic.Curve, oid []byte) {
	bits := curve.Params().BitSize
	register(&CurveInfo{
		Name: name, GenName: genName,
		Oid:          encoding.NewOID(oid),
		SigAlgorithm: SigECDSA,
		Platform:     &ecdsaAdapter{curve: curve, byteLength: byteLen(bits)},
		Software:     &ecdsaAdapter{curve: softwareParams(name, curve), byteLength: byteLen(bits)},
	})
}

// FindByOid returns the curve registered under the given OID bytes, or
// nil.
func FindByOid(oid *encoding.OID) *CurveInfo {
	for _, c := range curves {
		if c.Oid != nil && string(c.Oid.Bytes()) == string(oid.Bytes()) {
			return c
		}
	}
	return nil
}

// FindByGenName returns the curve registered under the given
// configuration-facing generation name, or nil.
func FindByGenName(name string) *CurveInfo {
	for _, c := range curves {
		if c.GenName == name {
			return c
		}
	}
	return nil
}

// FindECDSAByGenName returns a curve suitable for ECDSA key generation
// under the given name.
func FindECDSAByGenName(name string) *CurveInfo {
	c := FindByGenName(name)
	if c == nil || c.SigAlgorithm != SigECDSA {
		return nil
	}
	return c
}

// FindECDHByGenName returns a curve suitable for ECDH key generation
// under the given name. "curve25519" selects the Montgomery curve; any
// other recognized name selects the matching Weierstrass curve's
// key-agreement entry.
func FindECDHByGenName(name string) *CurveInfo {
	for _, c := range curves {
		if c.GenName == name && c.SigAlgorithm == SigECDH {
			return c
		}
	}
	return nil
}

// FindEdDSAByGenName returns a curve suitable for EdDSA key generation.
func FindEdDSAByGenName(name string) *CurveInfo {
	for _, c := range curves {
		if c.GenName == name && c.SigAlgorithm == SigEdDSA {
			return c
		}
	}
	return nil
}

// FindByCurveType returns the first registered curve of the given point
// family with the given signature/agreement usage, used to resolve the
// Curve25519 OID to either its ECDH or EdDSA registration.
func FindByCurveType(t CurveType, usage SigAlgorithm) *CurveInfo {
	for _, c := range curves {
		if c.CurveType == t && c.SigAlgorithm == usage {
			return c
		}
	}
	return nil
}

// Curve selects the curve's preferred-per-policy ECDSACurve
// implementation: Platform if present, else Software.
func (c *CurveInfo) Curve() ECDSACurve {
	if c.Platform != nil {
		return c.Platform
	}
	return c.Software
}
