package packet

import (
	"bytes"
	"crypto/elliptic"
	"crypto/rsa"
	"io"
	"math/big"

	"github.com/openpgp-go/corepgp/errors"
	"github.com/openpgp-go/corepgp/internal/ecc"
	"github.com/openpgp-go/corepgp/internal/encoding"
	"github.com/openpgp-go/corepgp/openpgp/ecdh"
)

// EncryptedKey is the Public-Key Encrypted Session Key packet (tag 1,
// RFC 4880 §5.1): it carries a session key encrypted to one recipient's
// public key, the natural collaborator a PacketList needs to actually
// decrypt anything it carries. Scoped to the RSA/ElGamal/ECDH branches;
// the Kyber hybrid and native X25519/X448 branches are out of scope
// (see DESIGN.md). ElGamal packets are parsed and serialized only:
// Decrypt and SerializeEncryptedKey handle RSA and ECDH, not ElGamal.
type EncryptedKey struct {
	Version        int
	KeyId          uint64
	KeyVersion     int    // v6 only
	KeyFingerprint []byte // v6 only
	Algo           PublicKeyAlgorithm

	encryptedMPI1 *encoding.MPI // RSA ciphertext; ElGamal c1
	encryptedMPI2 *encoding.MPI // ElGamal c2

	ecdhEphemeral *ecdh.PublicKey
	ecdhWrapped   []byte

	// Key holds the decrypted session key (cipher-prefix byte + key +
	// checksum already stripped) after a successful Decrypt.
	Key []byte
}

func (ek *EncryptedKey) Tag() Tag {
	return PacketTypeEncryptedKey
}

func (ek *EncryptedKey) parse(r io.Reader) error {
	var verBuf [1]byte
	if _, err := io.ReadFull(r, verBuf[:]); err != nil {
		return err
	}
	ek.Version = int(verBuf[0])
	if ek.Version != 3 && ek.Version != 6 {
		return errors.UnsupportedVersion("encrypted key", ek.Version)
	}

	if ek.Version == 6 {
		var head [2]byte
		if _, err := io.ReadFull(r, head[:]); err != nil {
			return err
		}
		// head[0] is the one-octet key-version-and-fingerprint-length
		// field; head[1] is the key version itself per crypto-refresh.
		ek.KeyVersion = int(head[1])
		fpLen := 32
		if ek.KeyVersion != 6 {
			fpLen = 20
		}
		ek.KeyFingerprint = make([]byte, fpLen)
		if _, err := io.ReadFull(r, ek.KeyFingerprint); err != nil {
			return err
		}
		ek.KeyId = fingerprintToKeyId(ek.KeyFingerprint, ek.KeyVersion)
	} else {
		var idBuf [8]byte
		if _, err := io.ReadFull(r, idBuf[:]); err != nil {
			return err
		}
		var id uint64
		for _, b := range idBuf {
			id = id<<8 | uint64(b)
		}
		ek.KeyId = id
	}

	var algoBuf [1]byte
	if _, err := io.ReadFull(r, algoBuf[:]); err != nil {
		return err
	}
	ek.Algo = PublicKeyAlgorithm(algoBuf[0])

	switch ek.Algo {
	case PubKeyAlgoRSA, PubKeyAlgoRSAEncryptOnly:
		m := new(encoding.MPI)
		if _, err := m.ReadFrom(r); err != nil {
			return errors.StructuralError("malformed RSA encrypted session key: " + err.Error())
		}
		ek.encryptedMPI1 = m
	case PubKeyAlgoElGamal:
		c1, c2 := new(encoding.MPI), new(encoding.MPI)
		if _, err := c1.ReadFrom(r); err != nil {
			return errors.StructuralError("malformed ElGamal encrypted session key: " + err.Error())
		}
		if _, err := c2.ReadFrom(r); err != nil {
			return errors.StructuralError("malformed ElGamal encrypted session key: " + err.Error())
		}
		ek.encryptedMPI1, ek.encryptedMPI2 = c1, c2
	case PubKeyAlgoECDH:
		if err := ek.parseECDH(r); err != nil {
			return err
		}
	default:
		return errors.UnknownAlgorithm("public-key algorithm", int(ek.Algo))
	}
	return nil
}

func (ek *EncryptedKey) parseECDH(r io.Reader) error {
	point := new(encoding.MPI)
	if _, err := point.ReadFrom(r); err != nil {
		return errors.StructuralError("malformed ECDH ephemeral point: " + err.Error())
	}
	var wrapLenBuf [1]byte
	if _, err := io.ReadFull(r, wrapLenBuf[:]); err != nil {
		return err
	}
	wrapped := make([]byte, wrapLenBuf[0])
	if _, err := io.ReadFull(r, wrapped); err != nil {
		return err
	}
	// The ephemeral point's curve/KDF are not known until Decrypt is
	// given the recipient SecretKey; stash the raw point bytes and fill
	// them in then.
	ek.ecdhEphemeral = &ecdh.PublicKey{Point: point.Bytes()}
	ek.ecdhWrapped = wrapped
	return nil
}

func fingerprintToKeyId(fp []byte, keyVersion int) uint64 {
	idBytes := fp[:8]
	if keyVersion == 4 && len(fp) >= 20 {
		idBytes = fp[12:20]
	}
	var id uint64
	for _, b := range idBytes {
		id = id<<8 | uint64(b)
	}
	return id
}

func (ek *EncryptedKey) Serialize(w io.Writer) error {
	var body bytes.Buffer
	body.WriteByte(byte(ek.Version))
	if ek.Version == 6 {
		body.WriteByte(byte(1 + len(ek.KeyFingerprint)))
		body.WriteByte(byte(ek.KeyVersion))
		body.Write(ek.KeyFingerprint)
	} else {
		var idBuf [8]byte
		for i := 0; i < 8; i++ {
			idBuf[i] = byte(ek.KeyId >> uint(56-8*i))
		}
		body.Write(idBuf[:])
	}
	body.WriteByte(byte(ek.Algo))

	switch ek.Algo {
	case PubKeyAlgoRSA, PubKeyAlgoRSAEncryptOnly:
		body.Write(ek.encryptedMPI1.EncodedBytes())
	case PubKeyAlgoElGamal:
		body.Write(ek.encryptedMPI1.EncodedBytes())
		body.Write(ek.encryptedMPI2.EncodedBytes())
	case PubKeyAlgoECDH:
		body.Write(encoding.NewMPI(ek.ecdhEphemeral.Point).EncodedBytes())
		body.WriteByte(byte(len(ek.ecdhWrapped)))
		body.Write(ek.ecdhWrapped)
	default:
		return errors.UnknownAlgorithm("public-key algorithm", int(ek.Algo))
	}

	if err := serializeHeader(w, ek.Tag(), body.Len()); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// Decrypt recovers the session key, dispatching on priv.PublicKey's
// algorithm and reusing the public-key packet's parameter records rather
// than duplicating their parsing.
func (ek *EncryptedKey) Decrypt(priv *SecretKey, config *Config) error {
	if priv.IsDummy() {
		return errors.ErrDummyPrivateKey("cannot decrypt with a gnu-dummy secret key")
	}
	if priv.isEncrypted {
		return errors.InvalidArgumentError("secret key must be decrypted before use")
	}

	var padded []byte
	var err error
	switch ek.Algo {
	case PubKeyAlgoRSA, PubKeyAlgoRSAEncryptOnly:
		pub, ok := priv.PublicKey.PublicKey.(*rsaPublicParams)
		if !ok {
			return errors.InvalidArgumentError("secret key algorithm does not match encrypted key")
		}
		p, ok := priv.privateParams.(*rsaPrivateParams)
		if !ok {
			return errors.InvalidArgumentError("secret key algorithm does not match encrypted key")
		}
		rsaPriv := &rsa.PrivateKey{
			PublicKey: *pub.toRSAPublicKey(),
			D:         new(big.Int).SetBytes(p.D.Bytes()),
			Primes:    []*big.Int{new(big.Int).SetBytes(p.P.Bytes()), new(big.Int).SetBytes(p.Q.Bytes())},
		}
		rsaPriv.Precompute()
		padded, err = rsa.DecryptPKCS1v15(config.Random(), rsaPriv, ek.encryptedMPI1.Bytes())
		if err != nil {
			return errors.ErrKeyIncorrect("rsa: " + err.Error())
		}

	case PubKeyAlgoECDH:
		pub, ok := priv.PublicKey.PublicKey.(*ecdhPublicParams)
		if !ok {
			return errors.InvalidArgumentError("secret key algorithm does not match encrypted key")
		}
		ecdhPub, err2 := pub.toECDHParams()
		if err2 != nil {
			return err2
		}
		p, ok := priv.privateParams.(*ecdhPrivateParams)
		if !ok {
			return errors.InvalidArgumentError("secret key algorithm does not match encrypted key")
		}
		ecdhPriv := &ecdh.PrivateKey{PublicKey: *ecdhPub, D: p.D.Bytes()}
		ek.ecdhEphemeral.Curve = ecdhPub.Curve
		ek.ecdhEphemeral.KDF = ecdhPub.KDF
		if ecdhPub.Curve.CurveType == ecc.CurveTypeWeierstrass && ek.ecdhEphemeral.X == nil {
			x, y := elliptic.Unmarshal(ecdhPub.Curve.WeierstrassCurve, ek.ecdhEphemeral.Point)
			if x == nil {
				return errors.StructuralError("malformed ECDH ephemeral point")
			}
			ek.ecdhEphemeral.X, ek.ecdhEphemeral.Y = x, y
		}
		fp, ferr := priv.PublicKey.Fingerprint()
		if ferr != nil {
			return ferr
		}
		padded, err = ecdh.Decrypt(ecdhPriv, ek.ecdhEphemeral, ecdhPub.Oid.EncodedBytes(), fp, ek.ecdhWrapped)
		if err != nil {
			return err
		}

	default:
		return errors.UnknownAlgorithm("public-key algorithm", int(ek.Algo))
	}

	return ek.unpackSessionKey(padded)
}

// unpackSessionKey strips the RFC 4880 §5.1 session-key frame
// (one-octet cipher-algo prefix, key bytes, two-octet checksum) that
// RSA and ECDH's PKCS1/key-wrap layers carry as their plaintext.
func (ek *EncryptedKey) unpackSessionKey(padded []byte) error {
	if len(padded) < 3 {
		return errors.StructuralError("encrypted session key frame too short")
	}
	keyLen := len(padded) - 3
	key := padded[1 : 1+keyLen]
	wantSum := uint16(padded[len(padded)-2])<<8 | uint16(padded[len(padded)-1])
	var gotSum uint16
	for _, b := range key {
		gotSum += uint16(b)
	}
	if gotSum != wantSum {
		return errors.ErrKeyIncorrect("session key checksum mismatch")
	}
	ek.Key = key
	return nil
}

// SerializeEncryptedKey builds and serializes a v3 EncryptedKey for
// sessionKey, encrypted to pub under cipherAlgo's RFC 4880 §5.1 frame.
func SerializeEncryptedKey(w io.Writer, pub *PublicKey, cipherAlgo byte, sessionKey []byte, config *Config) error {
	ek := &EncryptedKey{Version: 3, Algo: pub.PubKeyAlgo}
	var err error
	ek.KeyId, err = pub.KeyId()
	if err != nil {
		return err
	}

	frame := make([]byte, 0, 1+len(sessionKey)+2)
	frame = append(frame, cipherAlgo)
	frame = append(frame, sessionKey...)
	var sum uint16
	for _, b := range sessionKey {
		sum += uint16(b)
	}
	frame = append(frame, byte(sum>>8), byte(sum))

	switch p := pub.PublicKey.(type) {
	case *rsaPublicParams:
		ciphertext, err := rsa.EncryptPKCS1v15(config.Random(), p.toRSAPublicKey(), frame)
		if err != nil {
			return err
		}
		ek.encryptedMPI1 = encoding.NewMPI(ciphertext)
	case *ecdhPublicParams:
		ecdhPub, err := p.toECDHParams()
		if err != nil {
			return err
		}
		fp, err := pub.Fingerprint()
		if err != nil {
			return err
		}
		eph, wrapped, err := ecdh.Encrypt(config.Random(), ecdhPub, p.Oid.EncodedBytes(), fp, frame)
		if err != nil {
			return err
		}
		if eph.Point == nil && eph.X != nil {
			eph.Point = elliptic.Marshal(ecdhPub.Curve.WeierstrassCurve, eph.X, eph.Y)
		}
		ek.ecdhEphemeral = eph
		ek.ecdhWrapped = wrapped
	default:
		return errors.UnsupportedError("encrypted key: algorithm not supported for encryption")
	}

	return ek.Serialize(w)
}
