package packet

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"math/big"
	"testing"
	"time"

	"github.com/openpgp-go/corepgp/internal/encoding"
)

func newTestRSAPublicKey(t *testing.T, version int) (*PublicKey, *rsa.PrivateKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatal(err)
	}
	pk := &PublicKey{
		Version:      version,
		CreationTime: time.Unix(1700000000, 0),
		PubKeyAlgo:   PubKeyAlgoRSA,
		PublicKey: &rsaPublicParams{
			N: encoding.NewMPI(priv.PublicKey.N.Bytes()),
			E: encoding.NewMPI(big.NewInt(int64(priv.PublicKey.E)).Bytes()),
		},
	}
	return pk, priv
}

func TestPublicKeySerializeParseRoundTrip(t *testing.T) {
	for _, version := range []int{4, 5} {
		pk, _ := newTestRSAPublicKey(t, version)

		var buf bytes.Buffer
		if err := pk.Serialize(&buf); err != nil {
			t.Fatalf("version %d: Serialize: %v", version, err)
		}

		tag, length, isPartial, err := readHeader(&buf)
		if err != nil {
			t.Fatalf("version %d: readHeader: %v", version, err)
		}
		if tag != PacketTypePublicKey || isPartial {
			t.Fatalf("version %d: got tag=%d isPartial=%v", version, tag, isPartial)
		}

		body := newPartialLengthReader(&buf, length, false)
		got := &PublicKey{}
		if err := got.parse(body); err != nil {
			t.Fatalf("version %d: parse: %v", version, err)
		}
		if got.Version != version || got.PubKeyAlgo != PubKeyAlgoRSA {
			t.Fatalf("version %d: got version=%d algo=%v", version, got.Version, got.PubKeyAlgo)
		}
		if !got.CreationTime.Equal(pk.CreationTime) {
			t.Fatalf("version %d: creation time mismatch: got %v want %v", version, got.CreationTime, pk.CreationTime)
		}
		gotParams := got.PublicKey.(*rsaPublicParams)
		wantParams := pk.PublicKey.(*rsaPublicParams)
		if !bytes.Equal(gotParams.N.Bytes(), wantParams.N.Bytes()) || !bytes.Equal(gotParams.E.Bytes(), wantParams.E.Bytes()) {
			t.Fatalf("version %d: RSA params did not round-trip", version)
		}
	}
}

func TestFingerprintLengthMatchesVersion(t *testing.T) {
	pk4, _ := newTestRSAPublicKey(t, 4)
	fp4, err := pk4.Fingerprint()
	if err != nil {
		t.Fatal(err)
	}
	if len(fp4) != 20 {
		t.Errorf("v4 fingerprint length = %d, want 20 (SHA-1)", len(fp4))
	}

	pk5, _ := newTestRSAPublicKey(t, 5)
	fp5, err := pk5.Fingerprint()
	if err != nil {
		t.Fatal(err)
	}
	if len(fp5) != 32 {
		t.Errorf("v5 fingerprint length = %d, want 32 (SHA-256)", len(fp5))
	}
}

func TestKeyIdDerivesFromFingerprint(t *testing.T) {
	pk4, _ := newTestRSAPublicKey(t, 4)
	fp, err := pk4.Fingerprint()
	if err != nil {
		t.Fatal(err)
	}
	keyId, err := pk4.KeyId()
	if err != nil {
		t.Fatal(err)
	}
	var want uint64
	for _, b := range fp[12:20] {
		want = want<<8 | uint64(b)
	}
	if keyId != want {
		t.Errorf("v4 KeyId = %x, want low 8 bytes of fingerprint %x", keyId, want)
	}

	pk5, _ := newTestRSAPublicKey(t, 5)
	fp5, err := pk5.Fingerprint()
	if err != nil {
		t.Fatal(err)
	}
	keyId5, err := pk5.KeyId()
	if err != nil {
		t.Fatal(err)
	}
	var want5 uint64
	for _, b := range fp5[:8] {
		want5 = want5<<8 | uint64(b)
	}
	if keyId5 != want5 {
		t.Errorf("v5 KeyId = %x, want first 8 bytes of fingerprint %x", keyId5, want5)
	}
}

func TestHasSameFingerprintAsDetectsDivergence(t *testing.T) {
	pk1, _ := newTestRSAPublicKey(t, 4)
	pk2, _ := newTestRSAPublicKey(t, 4)

	same, err := pk1.HasSameFingerprintAs(pk1)
	if err != nil {
		t.Fatal(err)
	}
	if !same {
		t.Error("a key should have the same fingerprint as itself")
	}

	same, err = pk1.HasSameFingerprintAs(pk2)
	if err != nil {
		t.Fatal(err)
	}
	if same {
		t.Error("two independently generated keys should not share a fingerprint")
	}
}
