package encoding

import (
	"io"

	"github.com/openpgp-go/corepgp/errors"
)

// OID is a DER-encoded curve object identifier, prefixed on the wire by a
// single length octet, per RFC 6637 §9. A single octet is sufficient for
// every curve OID OpenPGP defines; 0x00 and 0xFF are reserved.
type OID struct {
	bytes []byte
}

// NewOID constructs an OID field from its raw DER bytes (no length
// prefix).
func NewOID(b []byte) *OID {
	return &OID{bytes: b}
}

// ReadFrom reads a one-octet length prefix followed by that many bytes.
func (o *OID) ReadFrom(r io.Reader) (n int64, err error) {
	var lenBuf [1]byte
	nn, err := readFull(r, lenBuf[:])
	n += nn
	if err != nil {
		return
	}
	length := lenBuf[0]
	if length == 0x00 || length == 0xff {
		err = errors.StructuralError("reserved OID length byte")
		return
	}
	o.bytes = make([]byte, length)
	nn, err = readFull(r, o.bytes)
	n += nn
	return
}

// Bytes returns the raw DER OID bytes.
func (o *OID) Bytes() []byte {
	return o.bytes
}

// EncodedBytes returns the one-octet length prefix followed by the OID
// bytes.
func (o *OID) EncodedBytes() []byte {
	out := make([]byte, 1+len(o.bytes))
	out[0] = byte(len(o.bytes))
	copy(out[1:], o.bytes)
	return out
}

// EncodedLength returns 1 + len(o.bytes).
func (o *OID) EncodedLength() uint16 {
	return uint16(1 + len(o.bytes))
}

// OctetArray is a fixed-length byte string with no length prefix at all:
// used for ECDH session keys' wrapped plaintext and other fields whose
// length is implied by context rather than self-described.
type OctetArray struct {
	bytes []byte
}

// NewOctetArray wraps an existing byte slice.
func NewOctetArray(b []byte) *OctetArray {
	return &OctetArray{bytes: b}
}

// NewEmptyOctetArray allocates a zeroed array of the given length, ready
// to be the target of ReadFrom.
func NewEmptyOctetArray(length int) *OctetArray {
	return &OctetArray{bytes: make([]byte, length)}
}

// ReadFrom fills the array's pre-sized buffer exactly; the caller must
// have constructed it with NewEmptyOctetArray(length) first since the
// array carries no self-describing length.
func (o *OctetArray) ReadFrom(r io.Reader) (n int64, err error) {
	nn, err := readFull(r, o.bytes)
	return nn, err
}

// Bytes returns the array's contents.
func (o *OctetArray) Bytes() []byte {
	return o.bytes
}

// EncodedBytes returns the array's contents (no length prefix).
func (o *OctetArray) EncodedBytes() []byte {
	return o.bytes
}

// EncodedLength returns len(o.bytes).
func (o *OctetArray) EncodedLength() uint16 {
	return uint16(len(o.bytes))
}
