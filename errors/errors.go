// Package errors holds the typed error kinds raised by the packet
// subsystem. Every kind here corresponds to a row of the error table the
// callers of this module rely on: wire-format problems never surface as a
// bare fmt.Errorf, so a caller can always type-switch on what went wrong.
package errors

import "strconv"

// StructuralError is returned when a packet is parsed as invalid according
// to the OpenPGP standard.
type StructuralError string

func (s StructuralError) Error() string {
	return "openpgp: invalid data: " + string(s)
}

// UnsupportedError indicates that, although the packet was well formed,
// this implementation does not support it.
type UnsupportedError string

func (s UnsupportedError) Error() string {
	return "openpgp: unsupported feature: " + string(s)
}

// UnknownEnumError indicates that a numeric code read from the wire has no
// registered symbolic meaning.
type UnknownEnumError string

func (s UnknownEnumError) Error() string {
	return "openpgp: unknown enum value: " + string(s)
}

// InvalidArgumentError indicates that a function was invoked with an
// invalid argument, or that a packet's lifecycle was violated (e.g.
// encrypting an already-encrypted secret key).
type InvalidArgumentError string

func (s InvalidArgumentError) Error() string {
	return "openpgp: invalid argument: " + string(s)
}

// SignatureError indicates that a signature verification failed.
type SignatureError string

func (s SignatureError) Error() string {
	return "openpgp: invalid signature: " + string(s)
}

// KeyInvalidError indicates that the given key is not valid.
type KeyInvalidError string

func (s KeyInvalidError) Error() string {
	return "openpgp: invalid key: " + string(s)
}

// ErrKeyIncorrect is returned when a secret key cannot be decrypted with
// the passphrase provided.
type ErrKeyIncorrect string

func (s ErrKeyIncorrect) Error() string {
	if s == "" {
		return "openpgp: incorrect key"
	}
	return "openpgp: incorrect key: " + string(s)
}

// ErrDummyPrivateKey is returned when a dummy private key (s2k.gnu-dummy)
// is the target of an operation that requires actual secret material.
type ErrDummyPrivateKey string

func (s ErrDummyPrivateKey) Error() string {
	return "openpgp: dummy private key found: " + string(s)
}

// ErrMissingTrailingSignature is returned when a OnePassSignature packet
// is verified without a corresponding Signature packet ever having been
// bound to it.
type ErrMissingTrailingSignature struct{}

func (ErrMissingTrailingSignature) Error() string {
	return "openpgp: one-pass signature has no corresponding signature packet"
}

// ErrMismatchedTrailingSignature is returned when a OnePassSignature
// packet's header fields disagree with the corresponding Signature
// packet.
type ErrMismatchedTrailingSignature struct {
	Field string
}

func (e ErrMismatchedTrailingSignature) Error() string {
	return "openpgp: one-pass signature does not match corresponding signature: " + e.Field
}

// ErrInsecureS2K is returned when decrypt is asked to trust an S2K usage
// octet that this module considers too weak to honor (unsalted/unkeyed
// forms, or the reserved two-octet-checksum form).
type ErrInsecureS2K string

func (s ErrInsecureS2K) Error() string {
	return "openpgp: insecure S2K usage rejected: " + string(s)
}

// UnsupportedVersion builds the UnsupportedError for an out-of-range
// packet version octet ("public key version " + strconv.Itoa(...)).
func UnsupportedVersion(label string, version int) error {
	return UnsupportedError(label + " version " + strconv.Itoa(version))
}

// UnknownAlgorithm builds the UnknownEnumError for an unregistered
// algorithm code in the given domain ("public-key algorithm", "hash
// algorithm", "cipher algorithm", "curve OID", ...).
func UnknownAlgorithm(domain string, code int) error {
	return UnknownEnumError(domain + " code " + strconv.Itoa(code))
}

// DisallowedPacket builds the InvalidArgumentError for a packet tag
// that is not present in a PacketList read's caller-supplied allow-list.
func DisallowedPacket(tag int) error {
	return InvalidArgumentError("packet tag " + strconv.Itoa(tag) + " not in allow-list")
}
