package packet

import (
	"bytes"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"math/big"
	"testing"
	"time"

	"github.com/openpgp-go/corepgp/internal/ecc"
	"github.com/openpgp-go/corepgp/internal/encoding"
	"github.com/openpgp-go/corepgp/openpgp/ecdh"
)

func newTestRSAKeyPair(t *testing.T) (*PublicKey, *SecretKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatal(err)
	}
	priv.Precompute()
	u := new(big.Int).ModInverse(priv.Primes[0], priv.Primes[1])
	pub := &PublicKey{
		Version:      4,
		CreationTime: time.Unix(1700000000, 0),
		PubKeyAlgo:   PubKeyAlgoRSA,
		PublicKey: &rsaPublicParams{
			N: encoding.NewMPI(priv.PublicKey.N.Bytes()),
			E: encoding.NewMPI(big.NewInt(int64(priv.PublicKey.E)).Bytes()),
		},
	}
	sk := &SecretKey{
		PublicKey: *pub,
		privateParams: &rsaPrivateParams{
			D: encoding.NewMPI(priv.D.Bytes()),
			P: encoding.NewMPI(priv.Primes[0].Bytes()),
			Q: encoding.NewMPI(priv.Primes[1].Bytes()),
			U: encoding.NewMPI(u.Bytes()),
		},
	}
	return pub, sk
}

func TestEncryptedKeyRSASerializeDecryptRoundTrip(t *testing.T) {
	pub, sk := newTestRSAKeyPair(t)
	sessionKey := []byte("0123456789abcdef")

	var buf bytes.Buffer
	if err := SerializeEncryptedKey(&buf, pub, 7 /* AES-128 */, sessionKey, &Config{}); err != nil {
		t.Fatalf("SerializeEncryptedKey: %v", err)
	}

	tag, length, isPartial, err := readHeader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if tag != PacketTypeEncryptedKey {
		t.Fatalf("got tag %d", tag)
	}
	ek := &EncryptedKey{}
	if err := ek.parse(newPartialLengthReader(&buf, length, isPartial)); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ek.Algo != PubKeyAlgoRSA {
		t.Fatalf("got algo %v", ek.Algo)
	}

	if err := ek.Decrypt(sk, &Config{}); err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(ek.Key, sessionKey) {
		t.Fatalf("got session key %x, want %x", ek.Key, sessionKey)
	}
}

func TestEncryptedKeyRSADecryptWrongKeyFails(t *testing.T) {
	pub, _ := newTestRSAKeyPair(t)
	_, otherSk := newTestRSAKeyPair(t)
	sessionKey := []byte("0123456789abcdef")

	var buf bytes.Buffer
	if err := SerializeEncryptedKey(&buf, pub, 7, sessionKey, &Config{}); err != nil {
		t.Fatal(err)
	}
	_, length, isPartial, err := readHeader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	ek := &EncryptedKey{}
	if err := ek.parse(newPartialLengthReader(&buf, length, isPartial)); err != nil {
		t.Fatal(err)
	}
	if err := ek.Decrypt(otherSk, &Config{}); err == nil {
		t.Fatal("expected Decrypt to fail with an unrelated recipient's key")
	}
}

func newTestECDHKeyPair(t *testing.T) (*PublicKey, *SecretKey) {
	t.Helper()
	curve := ecc.FindECDHByGenName("p256")
	if curve == nil {
		t.Fatal("p256 not registered for ECDH")
	}
	kdf := ecdh.KDF{Hash: 8 /* SHA-256 */, Cipher: 7 /* AES-128 */}
	priv, err := ecdh.Generate(rand.Reader, curve, kdf)
	if err != nil {
		t.Fatal(err)
	}
	point := elliptic.Marshal(curve.WeierstrassCurve, priv.X, priv.Y)
	kdfBytes := encoding.NewOctetArray([]byte{1, kdf.Hash, kdf.Cipher})
	pub := &PublicKey{
		Version:      4,
		CreationTime: time.Unix(1700000000, 0),
		PubKeyAlgo:   PubKeyAlgoECDH,
		PublicKey: &ecdhPublicParams{
			Oid:   curve.Oid,
			Point: encoding.NewMPI(point),
			KDF:   kdfBytes,
		},
	}
	sk := &SecretKey{
		PublicKey:     *pub,
		privateParams: &ecdhPrivateParams{D: encoding.NewMPI(priv.D)},
	}
	return pub, sk
}

func TestEncryptedKeyECDHSerializeDecryptRoundTrip(t *testing.T) {
	pub, sk := newTestECDHKeyPair(t)
	sessionKey := []byte("0123456789abcdef")

	var buf bytes.Buffer
	if err := SerializeEncryptedKey(&buf, pub, 7 /* AES-128 */, sessionKey, &Config{}); err != nil {
		t.Fatalf("SerializeEncryptedKey: %v", err)
	}

	tag, length, isPartial, err := readHeader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if tag != PacketTypeEncryptedKey {
		t.Fatalf("got tag %d", tag)
	}
	ek := &EncryptedKey{}
	if err := ek.parse(newPartialLengthReader(&buf, length, isPartial)); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ek.Algo != PubKeyAlgoECDH {
		t.Fatalf("got algo %v", ek.Algo)
	}

	if err := ek.Decrypt(sk, &Config{}); err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(ek.Key, sessionKey) {
		t.Fatalf("got session key %x, want %x", ek.Key, sessionKey)
	}
}
