package ecdsa

import (
	"crypto/rand"
	"crypto/sha256"
	"testing"

	"github.com/openpgp-go/corepgp/internal/ecc"
)

func TestSignVerifyRoundTripP256(t *testing.T) {
	curve := ecc.FindECDSAByGenName("p256")
	if curve == nil {
		t.Fatal("p256 not registered for ECDSA")
	}
	priv, err := Generate(rand.Reader, curve)
	if err != nil {
		t.Fatal(err)
	}
	digest := sha256.Sum256([]byte("hello openpgp"))
	r, s, err := Sign(rand.Reader, priv, digest[:], false)
	if err != nil {
		t.Fatal(err)
	}
	if !Verify(&priv.PublicKey, digest[:], r, s, false) {
		t.Fatal("Verify rejected a signature produced by Sign")
	}
}

func TestVerifyRejectsTamperedDigest(t *testing.T) {
	curve := ecc.FindECDSAByGenName("p256")
	priv, err := Generate(rand.Reader, curve)
	if err != nil {
		t.Fatal(err)
	}
	digest := sha256.Sum256([]byte("original"))
	r, s, err := Sign(rand.Reader, priv, digest[:], false)
	if err != nil {
		t.Fatal(err)
	}
	other := sha256.Sum256([]byte("tampered"))
	if Verify(&priv.PublicKey, other[:], r, s, false) {
		t.Fatal("Verify accepted a signature over a different digest")
	}
}

func TestP521AlwaysUsesSoftwareTier(t *testing.T) {
	curve := ecc.FindECDSAByGenName("p521")
	if curve == nil {
		t.Fatal("p521 not registered for ECDSA")
	}
	if curve.Platform != nil {
		t.Fatal("P-521 must have no platform tier so it always falls back to software")
	}
	priv, err := Generate(rand.Reader, curve)
	if err != nil {
		t.Fatal(err)
	}
	digest := sha256.Sum256([]byte("p521 streaming path"))
	r, s, err := Sign(rand.Reader, priv, digest[:], true)
	if err != nil {
		t.Fatal(err)
	}
	if !Verify(&priv.PublicKey, digest[:], r, s, true) {
		t.Fatal("software-tier verify failed for its own signature")
	}
}

func TestValidateParamsSelfTest(t *testing.T) {
	curve := ecc.FindECDSAByGenName("p256")
	priv, err := Generate(rand.Reader, curve)
	if err != nil {
		t.Fatal(err)
	}
	if !ValidateParams(priv) {
		t.Fatal("ValidateParams rejected a freshly generated keypair")
	}
}

func TestMarshalUnmarshalSignatureFixedWidth(t *testing.T) {
	curve := ecc.FindECDSAByGenName("p256")
	priv, err := Generate(rand.Reader, curve)
	if err != nil {
		t.Fatal(err)
	}
	digest := sha256.Sum256([]byte("fixed width check"))
	r, s, err := Sign(rand.Reader, priv, digest[:], false)
	if err != nil {
		t.Fatal(err)
	}
	rBytes, sBytes := MarshalSignature(curve, r, s)
	if len(rBytes) != 32 || len(sBytes) != 32 {
		t.Fatalf("P-256 (r, s) should marshal to 32 bytes each, got %d/%d", len(rBytes), len(sBytes))
	}
	gotR, gotS := UnmarshalSignature(curve, rBytes, sBytes)
	if gotR.Cmp(r) != 0 || gotS.Cmp(s) != 0 {
		t.Fatal("UnmarshalSignature did not invert MarshalSignature")
	}
}
