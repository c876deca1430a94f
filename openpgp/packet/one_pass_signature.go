package packet

import (
	"io"

	"github.com/openpgp-go/corepgp/errors"
)

// SignatureVerifier is the narrow capability this module needs from a
// trailing Signature packet to bind and verify a OnePassSignature: the
// full Signature packet is out of scope here, so this interface is the
// seam a higher-level package plugs an actual Signature packet
// implementation into.
type SignatureVerifier interface {
	SignatureType() uint8
	HashAlgorithm() byte
	PublicKeyAlgorithm() PublicKeyAlgorithm
	IssuerKeyId() uint64
	// VerifyHash checks the accumulated hashed-data digest against the
	// signature, returning an error on mismatch.
	VerifyHash(hashed []byte) error
}

// OnePassSignature is the tag-4 header packet announcing a trailing
// Signature packet for a streamed message. Its body is a fixed 13
// bytes.
type OnePassSignature struct {
	Version             int
	SigType              uint8
	HashAlgo             byte
	PubKeyAlgo           PublicKeyAlgorithm
	KeyId                uint64
	IsNested             bool

	correspondingSig SignatureVerifier
	accumulatedHash  []byte
}

func (ops *OnePassSignature) Tag() Tag {
	return PacketTypeOnePassSignature
}

func (ops *OnePassSignature) parse(r io.Reader) error {
	var buf [13]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	ops.Version = int(buf[0])
	if ops.Version != 3 {
		return errors.UnsupportedVersion("one-pass signature", ops.Version)
	}
	ops.SigType = buf[1]
	ops.HashAlgo = buf[2]
	ops.PubKeyAlgo = PublicKeyAlgorithm(buf[3])
	var keyId uint64
	for _, b := range buf[4:12] {
		keyId = keyId<<8 | uint64(b)
	}
	ops.KeyId = keyId
	ops.IsNested = buf[12] == 0
	return nil
}

func (ops *OnePassSignature) Serialize(w io.Writer) error {
	var body [13]byte
	body[0] = byte(ops.Version)
	body[1] = ops.SigType
	body[2] = ops.HashAlgo
	body[3] = byte(ops.PubKeyAlgo)
	for i := 0; i < 8; i++ {
		body[4+i] = byte(ops.KeyId >> uint(56-8*i))
	}
	if ops.IsNested {
		body[12] = 0
	} else {
		body[12] = 1
	}
	if err := serializeHeader(w, ops.Tag(), len(body)); err != nil {
		return err
	}
	_, err := w.Write(body[:])
	return err
}

// Bind attaches the trailing Signature packet this OnePassSignature
// pairs with. It is set exactly once, during message-level
// verification, once the trailing packet has actually been read off
// the stream.
func (ops *OnePassSignature) Bind(sig SignatureVerifier, accumulatedHash []byte) {
	ops.correspondingSig = sig
	ops.accumulatedHash = accumulatedHash
}

// Verify checks that all four algorithm/type fields and the issuer
// key ID agree with the bound Signature packet, then delegates to its
// hash verification.
func (ops *OnePassSignature) Verify() error {
	sig := ops.correspondingSig
	if sig == nil {
		return errors.ErrMissingTrailingSignature{}
	}
	switch {
	case sig.SignatureType() != ops.SigType:
		return errors.ErrMismatchedTrailingSignature{Field: "signatureType"}
	case sig.HashAlgorithm() != ops.HashAlgo:
		return errors.ErrMismatchedTrailingSignature{Field: "hashAlgorithm"}
	case sig.PublicKeyAlgorithm() != ops.PubKeyAlgo:
		return errors.ErrMismatchedTrailingSignature{Field: "publicKeyAlgorithm"}
	case sig.IssuerKeyId() != ops.KeyId:
		return errors.ErrMismatchedTrailingSignature{Field: "issuerKeyId"}
	}
	return sig.VerifyHash(ops.accumulatedHash)
}
