// Package encoding implements the length-prefixed wire fields that make up
// OpenPGP public-key and secret-key parameters: multi-precision integers
// (MPI), curve OIDs, and fixed-length octet arrays. Every public-key
// algorithm's parameter codec is built out of these.
package encoding

import "io"

// Field is satisfied by every wire-encodable parameter value: an MPI, an
// OID, or a fixed-length octet array. Parsing and serialization of
// algorithm parameters is expressed entirely in terms of this interface so
// that per-algorithm code never has to special-case the encoding.
type Field interface {
	// ReadFrom reads the field, including its own length prefix, from r
	// and returns the number of bytes consumed.
	ReadFrom(r io.Reader) (int64, error)
	// Bytes returns the field's value with any length prefix stripped.
	Bytes() []byte
	// EncodedBytes returns the field's complete wire encoding, including
	// its length prefix.
	EncodedBytes() []byte
	// EncodedLength returns len(EncodedBytes()).
	EncodedLength() uint16
}

func readFull(r io.Reader, buf []byte) (int64, error) {
	n, err := io.ReadFull(r, buf)
	return int64(n), err
}
