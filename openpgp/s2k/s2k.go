// Package s2k implements the OpenPGP string-to-key specifiers used to
// derive a symmetric key from a passphrase for secret-key protection.
package s2k

import (
	"crypto"
	"io"

	"github.com/openpgp-go/corepgp/errors"
	"github.com/openpgp-go/corepgp/internal/algorithm"
)

// Mode identifies the S2K specifier's on-wire type octet.
type Mode uint8

const (
	SimpleS2K         Mode = 0
	SaltedS2K         Mode = 1
	IteratedSaltedS2K Mode = 3
	Argon2S2K         Mode = 4
	GnuS2K            Mode = 101
)

const saltSize = 8

// Argon2SaltSize is the salt length the Argon2 specifier reads and
// writes, per the crypto-refresh Argon2 S2K extension.
const Argon2SaltSize = 16

// gnuDummyMarker is the three-byte "GNU" identifier that follows a
// GnuS2K mode's hash-algo field; the dummy protection mode octet comes
// after it and is not part of the marker.
var gnuDummyMarker = [3]byte{'G', 'N', 'U'}

// Params is a parsed S2K specifier. Exactly one of the hash-based fields
// (hash/salt/count) or the Argon2 fields is meaningful, selected by mode.
type Params struct {
	mode     Mode
	hashId   byte
	salt     [saltSize]byte
	countByte byte

	argonSalt   [Argon2SaltSize]byte
	passes      byte
	parallelism byte
	memoryExp   byte

	dummy bool
}

// Generate builds a fresh iterated-salted specifier seeded with random
// salt, the shape every newly protected secret key uses.
func Generate(rand io.Reader, hashId byte, countByte byte) (*Params, error) {
	p := &Params{mode: IteratedSaltedS2K, hashId: hashId, countByte: countByte}
	if _, err := io.ReadFull(rand, p.salt[:]); err != nil {
		return nil, err
	}
	return p, nil
}

// Dummy returns a gnu-dummy specifier: a sentinel meaning the secret
// material behind it has been intentionally stubbed out.
func Dummy() *Params {
	return &Params{mode: GnuS2K, dummy: true}
}

// IsDummy reports whether this specifier is the gnu-dummy sentinel.
func (p *Params) IsDummy() bool {
	return p != nil && p.mode == GnuS2K && p.dummy
}

// Mode returns the specifier's type.
func (p *Params) Mode() Mode {
	return p.mode
}

// ParseIntoParams reads one S2K specifier from r, consuming exactly as
// many bytes as its mode dictates.
func ParseIntoParams(r io.Reader) (*Params, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}
	p := &Params{mode: Mode(buf[0])}

	switch p.mode {
	case SimpleS2K:
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		p.hashId = buf[0]
	case SaltedS2K:
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		p.hashId = buf[0]
		if _, err := io.ReadFull(r, p.salt[:]); err != nil {
			return nil, err
		}
	case IteratedSaltedS2K:
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		p.hashId = buf[0]
		if _, err := io.ReadFull(r, p.salt[:]); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		p.countByte = buf[0]
	case Argon2S2K:
		if _, err := io.ReadFull(r, p.argonSalt[:]); err != nil {
			return nil, err
		}
		var rest [3]byte
		if _, err := io.ReadFull(r, rest[:]); err != nil {
			return nil, err
		}
		p.passes, p.parallelism, p.memoryExp = rest[0], rest[1], rest[2]
	case GnuS2K:
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		p.hashId = buf[0]
		var marker [3]byte
		if _, err := io.ReadFull(r, marker[:]); err != nil {
			return nil, err
		}
		if marker != gnuDummyMarker {
			return nil, errors.StructuralError("malformed GNU S2K marker")
		}
		var mode [1]byte
		if _, err := io.ReadFull(r, mode[:]); err != nil {
			return nil, err
		}
		// Only the "dummy key" GNU extension (mode 1) is recognized.
		if mode[0] != 1 {
			return nil, errors.UnknownAlgorithm("GNU S2K extension", int(mode[0]))
		}
		p.dummy = true
	default:
		return nil, errors.UnknownAlgorithm("S2K mode", int(p.mode))
	}
	return p, nil
}

// Serialize writes the specifier in its on-wire form.
func (p *Params) Serialize(w io.Writer) error {
	if _, err := w.Write([]byte{byte(p.mode)}); err != nil {
		return err
	}
	switch p.mode {
	case SimpleS2K:
		_, err := w.Write([]byte{p.hashId})
		return err
	case SaltedS2K:
		if _, err := w.Write([]byte{p.hashId}); err != nil {
			return err
		}
		_, err := w.Write(p.salt[:])
		return err
	case IteratedSaltedS2K:
		if _, err := w.Write([]byte{p.hashId}); err != nil {
			return err
		}
		if _, err := w.Write(p.salt[:]); err != nil {
			return err
		}
		_, err := w.Write([]byte{p.countByte})
		return err
	case Argon2S2K:
		if _, err := w.Write(p.argonSalt[:]); err != nil {
			return err
		}
		_, err := w.Write([]byte{p.passes, p.parallelism, p.memoryExp})
		return err
	case GnuS2K:
		if _, err := w.Write([]byte{p.hashId}); err != nil {
			return err
		}
		if _, err := w.Write(gnuDummyMarker[:]); err != nil {
			return err
		}
		_, err := w.Write([]byte{1})
		return err
	default:
		return errors.UnknownAlgorithm("S2K mode", int(p.mode))
	}
}

// EncodedLength returns the number of bytes Serialize writes.
func (p *Params) EncodedLength() int {
	switch p.mode {
	case SimpleS2K:
		return 2
	case SaltedS2K:
		return 2 + saltSize
	case IteratedSaltedS2K:
		return 3 + saltSize
	case Argon2S2K:
		return 1 + Argon2SaltSize + 3
	case GnuS2K:
		return 2 + 3 + 1
	default:
		return 0
	}
}

// decodeCount expands the coded iteration-count octet into the actual
// number of passphrase-plus-salt octets hashed, per RFC 4880 §3.7.1.3.
func decodeCount(c byte) int {
	return (16 + int(c&15)) << (uint(c>>4) + 6)
}

// encodeCount finds the coded octet whose decoded value is the closest
// value ≥ count within the representable range [1024, 65011712].
func encodeCount(count int) byte {
	if count < 1024 {
		count = 1024
	}
	if count > 65011712 {
		return 255
	}
	for i := 0; i < 256; i++ {
		if decodeCount(byte(i)) >= count {
			return byte(i)
		}
	}
	return 255
}

// EncodeCount is the exported form of encodeCount, used by callers
// (packet.Config) constructing a fresh specifier.
func EncodeCount(count int) byte { return encodeCount(count) }

// produceKey implements the shared simple/salted/iterated hash-stretch
// loop: the hash function is re-seeded with an incrementing run of
// leading zero bytes and fed the (optionally salted) passphrase
// repeatedly until enough output blocks exist to fill length bytes.
func produceKey(h crypto.Hash, prefix func(hsh io.Writer), passphrase []byte, length int) ([]byte, error) {
	hashSize := h.Size()
	numHashes := (length + hashSize - 1) / hashSize
	result := make([]byte, 0, numHashes*hashSize)
	for i := 0; i < numHashes; i++ {
		hsh := h.New()
		for j := 0; j < i; j++ {
			hsh.Write([]byte{0})
		}
		prefix(hsh)
		hsh.Write(passphrase)
		result = hsh.Sum(result)
	}
	return result[:length], nil
}

// ProduceKey derives a length-byte symmetric key from the passphrase per
// this specifier's mode. gnu-dummy specifiers always fail.
func (p *Params) ProduceKey(passphrase []byte, length int) ([]byte, error) {
	if p.IsDummy() {
		return nil, errors.ErrDummyPrivateKey("cannot derive key material from a gnu-dummy S2K")
	}
	hash, ok := algorithm.HashIdToHash(p.hashId)
	if !ok {
		return nil, errors.UnknownAlgorithm("hash algorithm", int(p.hashId))
	}
	if !hash.Available() {
		return nil, errors.UnsupportedError("hash algorithm not linked into binary")
	}

	switch p.mode {
	case SimpleS2K:
		return produceKey(hash, func(io.Writer) {}, passphrase, length)
	case SaltedS2K:
		return produceKey(hash, func(h io.Writer) { h.Write(p.salt[:]) }, passphrase, length)
	case IteratedSaltedS2K:
		count := decodeCount(p.countByte)
		combined := append(append([]byte{}, p.salt[:]...), passphrase...)
		return produceKey(hash, func(h io.Writer) {
			written := 0
			for written+len(combined) <= count {
				h.Write(combined)
				written += len(combined)
			}
			if remaining := count - written; remaining > 0 {
				h.Write(combined[:remaining])
			}
		}, nil, length)
	case Argon2S2K:
		return p.produceArgon2Key(passphrase, length)
	default:
		return nil, errors.UnknownAlgorithm("S2K mode", int(p.mode))
	}
}
