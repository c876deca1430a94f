package packet

import (
	"bytes"
	"crypto/dsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"io"
	"math/big"
	"time"

	"github.com/openpgp-go/corepgp/errors"
	"github.com/openpgp-go/corepgp/internal/ecc"
	"github.com/openpgp-go/corepgp/internal/encoding"
	"github.com/openpgp-go/corepgp/openpgp/ecdh"
)

// rsaPublicParams mirrors rsa.PublicKey's fields as the wire-facing MPI
// pair (n, e).
type rsaPublicParams struct {
	N, E *encoding.MPI
}

type dsaPublicParams struct {
	P, Q, G, Y *encoding.MPI
}

type elGamalPublicParams struct {
	P, G, Y *encoding.MPI
}

// ecdsaPublicParams and eddsaPublicParams carry a curve OID and the
// encoded public point as an MPI (for ECDSA, a Weierstrass point; for
// EdDSA, the 0x40-prefixed native Ed25519 point, per
// draft-koch-eddsa-for-openpgp).
type ecdsaPublicParams struct {
	Oid   *encoding.OID
	Point *encoding.MPI
}

type eddsaPublicParams struct {
	Oid   *encoding.OID
	Point *encoding.MPI
}

// ecdhPublicParams additionally carries the KDF parameters byte blob
// (RFC 6637 §9's 3-octet length-prefixed {reserved, hash, cipher}
// field).
type ecdhPublicParams struct {
	Oid   *encoding.OID
	Point *encoding.MPI
	KDF   *encoding.OctetArray
}

// PublicKey is the Public-Key / Public-Subkey packet: versioned
// parse/write, cached fingerprint and key ID derivation.
type PublicKey struct {
	Version      int
	CreationTime time.Time
	PubKeyAlgo   PublicKeyAlgorithm
	PublicKey    any // one of *rsaPublicParams, *dsaPublicParams, *elGamalPublicParams, *ecdsaPublicParams, *ecdhPublicParams, *eddsaPublicParams
	IsSubkey     bool

	fingerprint []byte
	keyId       uint64
}

func (pk *PublicKey) Tag() Tag {
	if pk.IsSubkey {
		return PacketTypePublicSubkey
	}
	return PacketTypePublicKey
}

// parse reads the public-key packet body: version octet, creation
// time, algorithm octet, and the algorithm's public parameters.
func (pk *PublicKey) parse(r io.Reader) error {
	var buf [6]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	version := int(buf[0])
	if version != 4 && version != 5 {
		return errors.UnsupportedVersion("public key", version)
	}
	pk.Version = version
	created := uint32(buf[1])<<24 | uint32(buf[2])<<16 | uint32(buf[3])<<8 | uint32(buf[4])
	pk.CreationTime = time.Unix(int64(created), 0)
	pk.PubKeyAlgo = PublicKeyAlgorithm(buf[5])

	if version == 5 {
		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return err
		}
		// The 4-octet key-material length is used only to skip unknown
		// params; this implementation always recognizes the algorithms it
		// parses, so the value itself is not otherwise consulted.
	}

	params, err := parsePublicParams(pk.PubKeyAlgo, r)
	if err != nil {
		return err
	}
	pk.PublicKey = params
	pk.invalidateCache()
	return nil
}

func parsePublicParams(algo PublicKeyAlgorithm, r io.Reader) (any, error) {
	switch algo {
	case PubKeyAlgoRSA, PubKeyAlgoRSAEncryptOnly, PubKeyAlgoRSASignOnly:
		n, e := new(encoding.MPI), new(encoding.MPI)
		if _, err := n.ReadFrom(r); err != nil {
			return nil, errors.StructuralError("malformed RSA public params: " + err.Error())
		}
		if _, err := e.ReadFrom(r); err != nil {
			return nil, errors.StructuralError("malformed RSA public params: " + err.Error())
		}
		return &rsaPublicParams{N: n, E: e}, nil

	case PubKeyAlgoDSA:
		p, q, g, y := new(encoding.MPI), new(encoding.MPI), new(encoding.MPI), new(encoding.MPI)
		for _, f := range []*encoding.MPI{p, q, g, y} {
			if _, err := f.ReadFrom(r); err != nil {
				return nil, errors.StructuralError("malformed DSA public params: " + err.Error())
			}
		}
		return &dsaPublicParams{P: p, Q: q, G: g, Y: y}, nil

	case PubKeyAlgoElGamal:
		p, g, y := new(encoding.MPI), new(encoding.MPI), new(encoding.MPI)
		for _, f := range []*encoding.MPI{p, g, y} {
			if _, err := f.ReadFrom(r); err != nil {
				return nil, errors.StructuralError("malformed ElGamal public params: " + err.Error())
			}
		}
		return &elGamalPublicParams{P: p, G: g, Y: y}, nil

	case PubKeyAlgoECDSA:
		oid := new(encoding.OID)
		if _, err := oid.ReadFrom(r); err != nil {
			return nil, errors.StructuralError("malformed ECDSA curve OID: " + err.Error())
		}
		point := new(encoding.MPI)
		if _, err := point.ReadFrom(r); err != nil {
			return nil, errors.StructuralError("malformed ECDSA public point: " + err.Error())
		}
		return &ecdsaPublicParams{Oid: oid, Point: point}, nil

	case PubKeyAlgoEdDSA:
		oid := new(encoding.OID)
		if _, err := oid.ReadFrom(r); err != nil {
			return nil, errors.StructuralError("malformed EdDSA curve OID: " + err.Error())
		}
		point := new(encoding.MPI)
		if _, err := point.ReadFrom(r); err != nil {
			return nil, errors.StructuralError("malformed EdDSA public point: " + err.Error())
		}
		return &eddsaPublicParams{Oid: oid, Point: point}, nil

	case PubKeyAlgoECDH:
		oid := new(encoding.OID)
		if _, err := oid.ReadFrom(r); err != nil {
			return nil, errors.StructuralError("malformed ECDH curve OID: " + err.Error())
		}
		point := new(encoding.MPI)
		if _, err := point.ReadFrom(r); err != nil {
			return nil, errors.StructuralError("malformed ECDH public point: " + err.Error())
		}
		var kdfLen [1]byte
		if _, err := io.ReadFull(r, kdfLen[:]); err != nil {
			return nil, errors.StructuralError("malformed ECDH KDF params: " + err.Error())
		}
		kdf := encoding.NewEmptyOctetArray(int(kdfLen[0]))
		if _, err := kdf.ReadFrom(r); err != nil {
			return nil, errors.StructuralError("malformed ECDH KDF params: " + err.Error())
		}
		return &ecdhPublicParams{Oid: oid, Point: point, KDF: kdf}, nil

	default:
		return nil, errors.UnknownAlgorithm("public-key algorithm", int(algo))
	}
}

// writePublicKey serializes the version/created/algo header plus
// algorithm-specific params, preceded for version 5 by the four-octet
// params length (used both standalone and as the common prefix
// read/written by SecretKey).
func (pk *PublicKey) writePublicKey(w io.Writer) error {
	var buf [6]byte
	buf[0] = byte(pk.Version)
	t := uint32(pk.CreationTime.Unix())
	buf[1], buf[2], buf[3], buf[4] = byte(t>>24), byte(t>>16), byte(t>>8), byte(t)
	buf[5] = byte(pk.PubKeyAlgo)
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}

	paramBytes, err := serializePublicParams(pk.PubKeyAlgo, pk.PublicKey)
	if err != nil {
		return err
	}
	if pk.Version == 5 {
		var lenBuf [4]byte
		l := uint32(len(paramBytes))
		lenBuf[0], lenBuf[1], lenBuf[2], lenBuf[3] = byte(l>>24), byte(l>>16), byte(l>>8), byte(l)
		if _, err := w.Write(lenBuf[:]); err != nil {
			return err
		}
	}
	_, err = w.Write(paramBytes)
	return err
}

func serializePublicParams(algo PublicKeyAlgorithm, params any) ([]byte, error) {
	var buf bytes.Buffer
	switch p := params.(type) {
	case *rsaPublicParams:
		buf.Write(p.N.EncodedBytes())
		buf.Write(p.E.EncodedBytes())
	case *dsaPublicParams:
		buf.Write(p.P.EncodedBytes())
		buf.Write(p.Q.EncodedBytes())
		buf.Write(p.G.EncodedBytes())
		buf.Write(p.Y.EncodedBytes())
	case *elGamalPublicParams:
		buf.Write(p.P.EncodedBytes())
		buf.Write(p.G.EncodedBytes())
		buf.Write(p.Y.EncodedBytes())
	case *ecdsaPublicParams:
		buf.Write(p.Oid.EncodedBytes())
		buf.Write(p.Point.EncodedBytes())
	case *eddsaPublicParams:
		buf.Write(p.Oid.EncodedBytes())
		buf.Write(p.Point.EncodedBytes())
	case *ecdhPublicParams:
		buf.Write(p.Oid.EncodedBytes())
		buf.Write(p.Point.EncodedBytes())
		buf.WriteByte(byte(p.KDF.EncodedLength()))
		buf.Write(p.KDF.EncodedBytes())
	default:
		return nil, errors.UnknownAlgorithm("public-key algorithm", int(algo))
	}
	return buf.Bytes(), nil
}

// Serialize writes the packet with its framing header.
func (pk *PublicKey) Serialize(w io.Writer) error {
	var body bytes.Buffer
	if err := pk.writePublicKey(&body); err != nil {
		return err
	}
	if err := serializeHeader(w, pk.Tag(), body.Len()); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// writeForHash frames the packet for fingerprint/signature hashing:
// v4 uses a one-octet 0x99 tag with a 2-octet length; v5 uses 0x9A
// with a 4-octet length.
func (pk *PublicKey) writeForHash(w io.Writer, version int) error {
	var body bytes.Buffer
	if err := pk.writePublicKey(&body); err != nil {
		return err
	}
	if version == 5 {
		l := uint32(body.Len())
		if _, err := w.Write([]byte{0x9A, byte(l >> 24), byte(l >> 16), byte(l >> 8), byte(l)}); err != nil {
			return err
		}
	} else {
		l := uint16(body.Len())
		if _, err := w.Write([]byte{0x99, byte(l >> 8), byte(l)}); err != nil {
			return err
		}
	}
	_, err := w.Write(body.Bytes())
	return err
}

func (pk *PublicKey) invalidateCache() {
	pk.fingerprint = nil
	pk.keyId = 0
}

// Fingerprint returns the packet's fingerprint, computing and caching it
// on first call: SHA-1 for v4, SHA-256 for v5.
func (pk *PublicKey) Fingerprint() ([]byte, error) {
	if pk.fingerprint != nil {
		return pk.fingerprint, nil
	}
	var buf bytes.Buffer
	if err := pk.writeForHash(&buf, pk.Version); err != nil {
		return nil, err
	}
	if pk.Version == 5 {
		sum := sha256.Sum256(buf.Bytes())
		pk.fingerprint = sum[:]
	} else {
		sum := sha1.Sum(buf.Bytes())
		pk.fingerprint = sum[:]
	}
	return pk.fingerprint, nil
}

// KeyId returns the low 8 bytes of the fingerprint for v4, or the high
// 8 bytes for v5, as a big-endian uint64.
func (pk *PublicKey) KeyId() (uint64, error) {
	if pk.keyId != 0 {
		return pk.keyId, nil
	}
	fp, err := pk.Fingerprint()
	if err != nil {
		return 0, err
	}
	var idBytes []byte
	if pk.Version == 5 {
		idBytes = fp[:8]
	} else {
		idBytes = fp[12:20]
	}
	var id uint64
	for _, b := range idBytes {
		id = id<<8 | uint64(b)
	}
	pk.keyId = id
	return id, nil
}

// HasSameFingerprintAs compares (version, writePublicKey()) byte-wise,
// cheaper than hashing both sides.
func (pk *PublicKey) HasSameFingerprintAs(other *PublicKey) (bool, error) {
	if pk.Version != other.Version {
		return false, nil
	}
	var a, b bytes.Buffer
	if err := pk.writePublicKey(&a); err != nil {
		return false, err
	}
	if err := other.writePublicKey(&b); err != nil {
		return false, err
	}
	return bytes.Equal(a.Bytes(), b.Bytes()), nil
}

// toRSAPublicKey converts the wire params into a *rsa.PublicKey for use
// by crypto.Decrypter/crypto.Signer-shaped collaborators.
func (p *rsaPublicParams) toRSAPublicKey() *rsa.PublicKey {
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(p.N.Bytes()),
		E: int(new(big.Int).SetBytes(p.E.Bytes()).Int64()),
	}
}

func (p *dsaPublicParams) toDSAPublicKey() *dsa.PublicKey {
	return &dsa.PublicKey{
		Parameters: dsa.Parameters{
			P: new(big.Int).SetBytes(p.P.Bytes()),
			Q: new(big.Int).SetBytes(p.Q.Bytes()),
			G: new(big.Int).SetBytes(p.G.Bytes()),
		},
		Y: new(big.Int).SetBytes(p.Y.Bytes()),
	}
}

// toECDSAParams resolves the registered curve and decodes the wire
// point into (X, Y) for use by the ecdsa package.
func (p *ecdsaPublicParams) toECDSAParams() (*ecc.CurveInfo, *big.Int, *big.Int, error) {
	curve := ecc.FindByOid(p.Oid)
	if curve == nil {
		return nil, nil, nil, errors.UnknownAlgorithm("curve OID", 0)
	}
	impl := curve.Curve()
	if impl == nil {
		return nil, nil, nil, errors.UnsupportedError("ecdsa: curve " + curve.Name + " has no back-end")
	}
	x, y := impl.UnmarshalIntegerPoint(p.Point.Bytes())
	if x == nil || y == nil {
		return nil, nil, nil, errors.StructuralError("malformed ECDSA public point")
	}
	return curve, x, y, nil
}

// toECDHParams resolves the curve for the ecdh package, handling both
// the Weierstrass and Curve25519 point encodings.
func (p *ecdhPublicParams) toECDHParams() (*ecdh.PublicKey, error) {
	curve := ecc.FindByOid(p.Oid)
	if curve != nil && curve.SigAlgorithm != ecc.SigECDH {
		curve = ecc.FindECDHByGenName(curve.GenName)
	}
	if curve == nil {
		return nil, errors.UnknownAlgorithm("curve OID", 0)
	}
	kdfBytes := p.KDF.Bytes()
	if len(kdfBytes) != 3 {
		return nil, errors.StructuralError("malformed ECDH KDF params")
	}
	kdf := ecdh.KDF{Hash: kdfBytes[1], Cipher: kdfBytes[2]}

	if curve.CurveType == ecc.CurveTypeCurve25519 {
		point := p.Point.Bytes()
		// draft-ietf-openpgp-crypto-refresh's legacy ECDH-over-Curve25519
		// point is 0x40-prefixed, matching the EdDSA native point
		// convention, ahead of the raw 32-byte u-coordinate.
		if len(point) == 33 && point[0] == 0x40 {
			point = point[1:]
		}
		return &ecdh.PublicKey{Curve: curve, KDF: kdf, Point: point}, nil
	}

	if curve.WeierstrassCurve == nil {
		return nil, errors.UnsupportedError("ecdh: curve " + curve.Name + " has no back-end")
	}
	x, y := elliptic.Unmarshal(curve.WeierstrassCurve, p.Point.Bytes())
	if x == nil || y == nil {
		return nil, errors.StructuralError("malformed ECDH public point")
	}
	return &ecdh.PublicKey{Curve: curve, KDF: kdf, X: x, Y: y}, nil
}
