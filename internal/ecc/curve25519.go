package ecc

import "github.com/openpgp-go/corepgp/internal/encoding"

// ed25519Oid and x25519Oid are the DER object identifiers OpenPGP uses to
// name the two usages of Curve25519 on the wire. They are different OIDs
// even though they ultimately address the same curve: 1.3.6.1.4.1.11591.15.1
// for EdDSA signing, 1.3.6.1.4.1.3029.1.5.1 for ECDH key agreement.
var (
	ed25519Oid = []byte{0x2b, 0x06, 0x01, 0x04, 0x01, 0xda, 0x47, 0x0f, 0x01}
	x25519Oid  = []byte{0x2b, 0x06, 0x01, 0x04, 0x01, 0x97, 0x55, 0x01, 0x05, 0x01}
)

// registerCurve25519 adds the two distinct OpenPGP OIDs that name the
// Curve25519 family: "Ed25519" for EdDSA signing (draft-koch-eddsa-for-
// openpgp-04) and "Curve25519" for ECDH key agreement (RFC 6637 adapted
// to a Montgomery curve by GnuPG convention). They are different OIDs on
// the wire even though they ultimately share the same curve, which is
// why both live in the CurveInfo table as independent entries. Neither
// gets a Platform/Software ECDSACurve adapter: their point arithmetic is
// Montgomery/Edwards, not Weierstrass, and is handled directly by
// openpgp/packet (SecretKey.Validate, via golang.org/x/crypto/ed25519)
// and openpgp/ecdh (via golang.org/x/crypto/curve25519).
func registerCurve25519() {
	register(&CurveInfo{
		Name: "Ed25519", GenName: "ed25519",
		Oid:          encoding.NewOID(ed25519Oid),
		CurveType:    CurveTypeCurve25519,
		SigAlgorithm: SigEdDSA,
	})
	register(&CurveInfo{
		Name: "Curve25519", GenName: "curve25519",
		Oid:          encoding.NewOID(x25519Oid),
		CurveType:    CurveTypeCurve25519,
		SigAlgorithm: SigECDH,
	})
}
