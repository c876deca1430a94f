package packet

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/openpgp-go/corepgp/errors"
)

type fakeSignatureVerifier struct {
	sigType    uint8
	hashAlgo   byte
	pubKeyAlgo PublicKeyAlgorithm
	keyId      uint64
	verifyErr  error
	gotHash    []byte
}

func (f *fakeSignatureVerifier) SignatureType() uint8                  { return f.sigType }
func (f *fakeSignatureVerifier) HashAlgorithm() byte                    { return f.hashAlgo }
func (f *fakeSignatureVerifier) PublicKeyAlgorithm() PublicKeyAlgorithm { return f.pubKeyAlgo }
func (f *fakeSignatureVerifier) IssuerKeyId() uint64                    { return f.keyId }
func (f *fakeSignatureVerifier) VerifyHash(hashed []byte) error {
	f.gotHash = hashed
	return f.verifyErr
}

func newTestOnePassSignature() *OnePassSignature {
	return &OnePassSignature{
		Version:    3,
		SigType:    0x00,
		HashAlgo:   8,
		PubKeyAlgo: PubKeyAlgoRSA,
		KeyId:      0x0123456789ABCDEF,
		IsNested:   true,
	}
}

func TestOnePassSignatureSerializeParseRoundTrip(t *testing.T) {
	ops := newTestOnePassSignature()
	var buf bytes.Buffer
	if err := ops.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	tag, length, isPartial, err := readHeader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if tag != PacketTypeOnePassSignature || length != 13 || isPartial {
		t.Fatalf("got tag=%d length=%d isPartial=%v", tag, length, isPartial)
	}
	got := &OnePassSignature{}
	if err := got.parse(newPartialLengthReader(&buf, length, isPartial)); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(got, ops) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, ops)
	}
}

func TestOnePassSignatureParseRejectsUnsupportedVersion(t *testing.T) {
	body := [13]byte{2 /* version */}
	got := &OnePassSignature{}
	if err := got.parse(bytes.NewReader(body[:])); err == nil {
		t.Fatal("expected an error for a non-version-3 one-pass signature")
	}
}

func TestOnePassSignatureVerifySuccess(t *testing.T) {
	ops := newTestOnePassSignature()
	verifier := &fakeSignatureVerifier{
		sigType:    ops.SigType,
		hashAlgo:   ops.HashAlgo,
		pubKeyAlgo: ops.PubKeyAlgo,
		keyId:      ops.KeyId,
	}
	hash := []byte{1, 2, 3, 4}
	ops.Bind(verifier, hash)
	if err := ops.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !bytes.Equal(verifier.gotHash, hash) {
		t.Fatal("Verify did not pass the accumulated hash through to VerifyHash")
	}
}

func TestOnePassSignatureVerifyMissingTrailingSignature(t *testing.T) {
	ops := newTestOnePassSignature()
	err := ops.Verify()
	if _, ok := err.(errors.ErrMissingTrailingSignature); !ok {
		t.Fatalf("got %T, want errors.ErrMissingTrailingSignature", err)
	}
}

func TestOnePassSignatureVerifyDetectsMismatches(t *testing.T) {
	cases := []struct {
		field   string
		mutate  func(v *fakeSignatureVerifier)
	}{
		{"signatureType", func(v *fakeSignatureVerifier) { v.sigType = 0x01 }},
		{"hashAlgorithm", func(v *fakeSignatureVerifier) { v.hashAlgo = 2 }},
		{"publicKeyAlgorithm", func(v *fakeSignatureVerifier) { v.pubKeyAlgo = PubKeyAlgoDSA }},
		{"issuerKeyId", func(v *fakeSignatureVerifier) { v.keyId ^= 0xFF }},
	}
	for _, tc := range cases {
		ops := newTestOnePassSignature()
		verifier := &fakeSignatureVerifier{
			sigType:    ops.SigType,
			hashAlgo:   ops.HashAlgo,
			pubKeyAlgo: ops.PubKeyAlgo,
			keyId:      ops.KeyId,
		}
		tc.mutate(verifier)
		ops.Bind(verifier, nil)
		err := ops.Verify()
		mismatch, ok := err.(errors.ErrMismatchedTrailingSignature)
		if !ok {
			t.Fatalf("%s: got %T, want errors.ErrMismatchedTrailingSignature", tc.field, err)
		}
		if mismatch.Field != tc.field {
			t.Fatalf("got field %q, want %q", mismatch.Field, tc.field)
		}
	}
}
