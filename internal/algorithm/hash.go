// Package algorithm is the numeric-code registry: bidirectional
// mappings between the wire octet for a hash/cipher algorithm and its
// symbolic crypto.Hash / block-cipher metadata. No numeric literal for an
// algorithm is allowed to escape this package; every parser and writer in
// openpgp/packet consults it.
package algorithm

import (
	"crypto"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"

	"golang.org/x/crypto/sha3"
)

// HashId is the one-octet RFC 4880 §9.4 hash algorithm identifier.
type HashId uint8

const (
	HashMD5       HashId = 1
	HashSHA1      HashId = 2
	HashRIPEMD160 HashId = 3
	HashSHA256    HashId = 8
	HashSHA384    HashId = 9
	HashSHA512    HashId = 10
	HashSHA224    HashId = 11
	HashSHA3_256  HashId = 12
	HashSHA3_512  HashId = 14
)

var hashToHashId = map[crypto.Hash]HashId{
	crypto.SHA256: HashSHA256,
	crypto.SHA384: HashSHA384,
	crypto.SHA512: HashSHA512,
	crypto.SHA224: HashSHA224,
	crypto.SHA1:   HashSHA1,
}

var hashIdToHash = map[HashId]crypto.Hash{
	HashSHA256: crypto.SHA256,
	HashSHA384: crypto.SHA384,
	HashSHA512: crypto.SHA512,
	HashSHA224: crypto.SHA224,
	HashSHA1:   crypto.SHA1,
}

func init() {
	crypto.RegisterHash(crypto.SHA3_256, sha3.New256)
	crypto.RegisterHash(crypto.SHA3_512, sha3.New512)
	hashToHashId[crypto.SHA3_256] = HashSHA3_256
	hashToHashId[crypto.SHA3_512] = HashSHA3_512
	hashIdToHash[HashSHA3_256] = crypto.SHA3_256
	hashIdToHash[HashSHA3_512] = crypto.SHA3_512
}

// HashToHashId looks up the wire identifier for a crypto.Hash.
func HashToHashId(h crypto.Hash) (id HashId, ok bool) {
	id, ok = hashToHashId[h]
	return
}

// HashIdToHash looks up the crypto.Hash for a wire identifier. MD5 and
// RIPEMD160 are deliberately absent: this module never needs to produce
// them, only to recognize their codes when rejecting insecure S2K usage.
func HashIdToHash(id byte) (h crypto.Hash, ok bool) {
	h, ok = hashIdToHash[HashId(id)]
	return
}

// DigestLength returns the output size in bytes of the given hash
// algorithm, or 0 if unknown.
func DigestLength(id HashId) int {
	if h, ok := hashIdToHash[id]; ok {
		return h.Size()
	}
	return 0
}
