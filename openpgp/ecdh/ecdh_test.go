package ecdh

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/openpgp-go/corepgp/internal/algorithm"
	"github.com/openpgp-go/corepgp/internal/ecc"
)

func TestEncryptDecryptRoundTripCurve25519(t *testing.T) {
	curve := ecc.FindECDHByGenName("curve25519")
	if curve == nil {
		t.Fatal("curve25519 not registered for ECDH")
	}
	kdf := KDF{Hash: byte(algorithm.HashSHA256), Cipher: byte(algorithm.CipherAES128)}

	priv, err := Generate(rand.Reader, curve, kdf)
	if err != nil {
		t.Fatal(err)
	}
	fingerprint := bytes.Repeat([]byte{0xAB}, 20)
	sessionKey := []byte("0123456789abcdef")

	ephemeral, wrapped, err := Encrypt(rand.Reader, &priv.PublicKey, curve.Oid.Bytes(), fingerprint, sessionKey)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := Decrypt(priv, ephemeral, curve.Oid.Bytes(), fingerprint, wrapped)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, sessionKey) {
		t.Fatalf("got session key %x, want %x", got, sessionKey)
	}
}

func TestEncryptDecryptRoundTripP256(t *testing.T) {
	curve := ecc.FindECDHByGenName("p256")
	if curve == nil {
		t.Fatal("p256 not registered for ECDH")
	}
	kdf := KDF{Hash: byte(algorithm.HashSHA256), Cipher: byte(algorithm.CipherAES256)}

	priv, err := Generate(rand.Reader, curve, kdf)
	if err != nil {
		t.Fatal(err)
	}
	fingerprint := bytes.Repeat([]byte{0xCD}, 32)
	sessionKey := []byte("0123456789abcdef0123456789abcdef")

	ephemeral, wrapped, err := Encrypt(rand.Reader, &priv.PublicKey, curve.Oid.Bytes(), fingerprint, sessionKey)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := Decrypt(priv, ephemeral, curve.Oid.Bytes(), fingerprint, wrapped)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, sessionKey) {
		t.Fatalf("got session key %x, want %x", got, sessionKey)
	}
}

func TestDecryptRejectsWrongRecipient(t *testing.T) {
	curve := ecc.FindECDHByGenName("p256")
	kdf := KDF{Hash: byte(algorithm.HashSHA256), Cipher: byte(algorithm.CipherAES128)}

	recipient, err := Generate(rand.Reader, curve, kdf)
	if err != nil {
		t.Fatal(err)
	}
	other, err := Generate(rand.Reader, curve, kdf)
	if err != nil {
		t.Fatal(err)
	}
	fingerprint := bytes.Repeat([]byte{0xEF}, 20)
	sessionKey := []byte("0123456789abcdef")

	ephemeral, wrapped, err := Encrypt(rand.Reader, &recipient.PublicKey, curve.Oid.Bytes(), fingerprint, sessionKey)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := Decrypt(other, ephemeral, curve.Oid.Bytes(), fingerprint, wrapped); err == nil {
		t.Fatal("expected Decrypt to fail with the wrong recipient's private key")
	}
}

func TestDecryptRejectsTamperedWrapping(t *testing.T) {
	curve := ecc.FindECDHByGenName("curve25519")
	kdf := KDF{Hash: byte(algorithm.HashSHA256), Cipher: byte(algorithm.CipherAES128)}

	priv, err := Generate(rand.Reader, curve, kdf)
	if err != nil {
		t.Fatal(err)
	}
	fingerprint := bytes.Repeat([]byte{0x11}, 20)
	sessionKey := []byte("0123456789abcdef")

	ephemeral, wrapped, err := Encrypt(rand.Reader, &priv.PublicKey, curve.Oid.Bytes(), fingerprint, sessionKey)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	tampered := append([]byte{}, wrapped...)
	tampered[len(tampered)-1] ^= 0xFF
	if _, err := Decrypt(priv, ephemeral, curve.Oid.Bytes(), fingerprint, tampered); err == nil {
		t.Fatal("expected Decrypt to reject a tampered wrapped key")
	}
}
