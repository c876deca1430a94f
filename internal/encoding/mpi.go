package encoding

import (
	"io"
	"math/big"
)

// MPI is a multi-precision integer, length-prefixed in bits, big-endian,
// per RFC 4880 §3.2. It is the wire representation for RSA/DSA/ElGamal
// parameters and for the encoded point/scalar of ECC parameters.
type MPI struct {
	bytes     []byte
	bitLength uint16
}

// NewMPI constructs an MPI from its big-endian byte value, stripping any
// leading zero bytes so the bit length matches the true magnitude.
func NewMPI(n []byte) *MPI {
	m := new(MPI)
	m.bytes = n
	for len(m.bytes) > 0 && m.bytes[0] == 0 {
		m.bytes = m.bytes[1:]
	}
	if len(m.bytes) == 0 {
		m.bitLength = 0
		return m
	}
	m.bitLength = uint16(8*(len(m.bytes)-1)) + uint16(bitLen(m.bytes[0]))
	return m
}

// SetBig sets the MPI's value from a big.Int.
func (m *MPI) SetBig(n *big.Int) *MPI {
	*m = *NewMPI(n.Bytes())
	return m
}

func bitLen(b byte) int {
	n := 0
	for b != 0 {
		n++
		b >>= 1
	}
	return n
}

// ReadFrom reads a two-octet bit-length prefix followed by
// ceil(bitLength/8) value bytes.
func (m *MPI) ReadFrom(r io.Reader) (n int64, err error) {
	var buf [2]byte
	nn, err := readFull(r, buf[:])
	n += nn
	if err != nil {
		return
	}
	m.bitLength = uint16(buf[0])<<8 | uint16(buf[1])
	numBytes := (int(m.bitLength) + 7) / 8
	m.bytes = make([]byte, numBytes)
	nn, err = readFull(r, m.bytes)
	n += nn
	return
}

// Bytes returns the big-endian value with no leading zero bytes beyond
// what is needed to reach the stated bit length.
func (m *MPI) Bytes() []byte {
	return m.bytes
}

// BitLength returns the reported bit length of the integer.
func (m *MPI) BitLength() uint16 {
	return m.bitLength
}

// EncodedBytes returns the two-octet bit-length prefix followed by the
// value bytes: the exact wire encoding.
func (m *MPI) EncodedBytes() []byte {
	out := make([]byte, 2+len(m.bytes))
	out[0] = byte(m.bitLength >> 8)
	out[1] = byte(m.bitLength)
	copy(out[2:], m.bytes)
	return out
}

// EncodedLength returns 2 + len(m.bytes).
func (m *MPI) EncodedLength() uint16 {
	return uint16(2 + len(m.bytes))
}
