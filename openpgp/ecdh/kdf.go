package ecdh

import (
	"crypto/aes"
	"crypto/sha256"
	"encoding/binary"
	"hash"

	"github.com/openpgp-go/corepgp/errors"
	"github.com/openpgp-go/corepgp/internal/algorithm"
)

// pkcs5Pad applies RFC 6637 §8's padding scheme before AES key wrap:
// each padding octet holds the padding length.
func pkcs5Pad(sessionKey []byte) []byte {
	const blockSize = 8
	padLen := blockSize - len(sessionKey)%blockSize
	if padLen == 0 {
		padLen = blockSize
	}
	out := make([]byte, len(sessionKey)+padLen)
	copy(out, sessionKey)
	for i := len(sessionKey); i < len(out); i++ {
		out[i] = byte(padLen)
	}
	return out
}

func pkcs5Unpad(padded []byte) ([]byte, error) {
	if len(padded) == 0 {
		return nil, errors.StructuralError("ecdh: empty padded session key")
	}
	padLen := int(padded[len(padded)-1])
	if padLen == 0 || padLen > len(padded) {
		return nil, errors.StructuralError("ecdh: bad session key padding")
	}
	for _, b := range padded[len(padded)-padLen:] {
		if int(b) != padLen {
			return nil, errors.StructuralError("ecdh: bad session key padding")
		}
	}
	return padded[:len(padded)-padLen], nil
}

// deriveKDFKey implements the RFC 6637 §7 concat-KDF: hash the shared
// secret together with a fixed "Anonymous Sender" parameter block
// (curve OID, algorithm identifier octet, KDF params, recipient
// fingerprint), then take the leading cipher.KeySize() bytes.
func deriveKDFKey(sharedSecret, curveOid []byte, kdf KDF, fingerprint []byte) []byte {
	h := newKDFHash(kdf.Hash)
	h.Write([]byte{0, 0, 0, 1})
	h.Write(sharedSecret)

	// param = curveOID || pubAlgo(18=ECDH) || kdfParams || "Anonymous Sender    " || fingerprint
	param := make([]byte, 0, len(curveOid)+3+20+len(fingerprint))
	param = append(param, curveOid...)
	param = append(param, 18) // ECDH public-key algorithm id, fixed per RFC 6637.
	param = append(param, 3, 1, kdf.Hash, kdf.Cipher)
	param = append(param, []byte("Anonymous Sender    ")...)
	param = append(param, fingerprint...)
	h.Write(param)

	digest := h.Sum(nil)
	keySize := algorithm.CipherId(kdf.Cipher).KeySize()
	if keySize > len(digest) {
		keySize = len(digest)
	}
	return digest[:keySize]
}

func newKDFHash(hashId byte) hash.Hash {
	h, ok := algorithm.HashIdToHash(hashId)
	if !ok || !h.Available() {
		return sha256.New()
	}
	return h.New()
}

// aesKeyWrapIV is the fixed initial value RFC 3394 §2.2.3.1 mandates.
var aesKeyWrapIV = []byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}

// aesKeyWrap implements RFC 3394 key wrap with AES as the underlying
// block cipher, the wrapping scheme RFC 6637 §8 mandates for ECDH
// session keys.
func aesKeyWrap(kek, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, err
	}
	n := len(plaintext) / 8
	r := make([][]byte, n+1)
	r[0] = append([]byte{}, aesKeyWrapIV...)
	for i := 1; i <= n; i++ {
		r[i] = append([]byte{}, plaintext[(i-1)*8:i*8]...)
	}

	buf := make([]byte, 16)
	for j := 0; j <= 5; j++ {
		for i := 1; i <= n; i++ {
			copy(buf[:8], r[0])
			copy(buf[8:], r[i])
			block.Encrypt(buf, buf)
			t := uint64(n*j + i)
			var tb [8]byte
			binary.BigEndian.PutUint64(tb[:], t)
			for k := range r[0] {
				r[0][k] = buf[k] ^ tb[k]
			}
			r[i] = append([]byte{}, buf[8:]...)
		}
	}

	out := make([]byte, 8*(n+1))
	copy(out[:8], r[0])
	for i := 1; i <= n; i++ {
		copy(out[i*8:(i+1)*8], r[i])
	}
	return out, nil
}

// aesKeyUnwrap is the inverse of aesKeyWrap; it returns an
// authentication failure if the recovered IV does not match
// aesKeyWrapIV, signaling a wrong key-wrapping key.
func aesKeyUnwrap(kek, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, err
	}
	if len(ciphertext)%8 != 0 || len(ciphertext) < 16 {
		return nil, errors.StructuralError("ecdh: malformed wrapped key length")
	}
	n := len(ciphertext)/8 - 1
	r := make([][]byte, n+1)
	r[0] = append([]byte{}, ciphertext[:8]...)
	for i := 1; i <= n; i++ {
		r[i] = append([]byte{}, ciphertext[i*8:(i+1)*8]...)
	}

	buf := make([]byte, 16)
	for j := 5; j >= 0; j-- {
		for i := n; i >= 1; i-- {
			t := uint64(n*j + i)
			var tb [8]byte
			binary.BigEndian.PutUint64(tb[:], t)
			var a [8]byte
			for k := range a {
				a[k] = r[0][k] ^ tb[k]
			}
			copy(buf[:8], a[:])
			copy(buf[8:], r[i])
			block.Decrypt(buf, buf)
			r[0] = append([]byte{}, buf[:8]...)
			r[i] = append([]byte{}, buf[8:]...)
		}
	}

	for i, b := range aesKeyWrapIV {
		if r[0][i] != b {
			return nil, errors.ErrKeyIncorrect("ecdh: key unwrap integrity check failed")
		}
	}
	out := make([]byte, 0, 8*n)
	for i := 1; i <= n; i++ {
		out = append(out, r[i]...)
	}
	return out, nil
}
