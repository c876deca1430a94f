package s2k

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/openpgp-go/corepgp/internal/algorithm"
)

func TestEncodeDecodeCountRoundTrip(t *testing.T) {
	for _, want := range []int{1024, 2048, 65536, 1 << 20, 65011712} {
		c := encodeCount(want)
		got := decodeCount(c)
		if got < want {
			t.Errorf("encodeCount(%d) decoded to %d, want >= %d", want, got, want)
		}
	}
}

func TestEncodeCountClampsToRange(t *testing.T) {
	if decodeCount(encodeCount(1)) < 1024 {
		t.Error("encodeCount should clamp small counts up to the minimum representable value")
	}
	if encodeCount(1 << 30) != 255 {
		t.Error("encodeCount should saturate to 255 above the representable maximum")
	}
}

func TestParamsSerializeParseRoundTrip(t *testing.T) {
	cases := []*Params{
		{mode: SimpleS2K, hashId: byte(algorithm.HashSHA256)},
		{mode: SaltedS2K, hashId: byte(algorithm.HashSHA256), salt: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}},
		{mode: IteratedSaltedS2K, hashId: byte(algorithm.HashSHA256), salt: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}, countByte: 96},
		Dummy(),
	}
	for _, p := range cases {
		var buf bytes.Buffer
		if err := p.Serialize(&buf); err != nil {
			t.Fatalf("mode %d: Serialize: %v", p.mode, err)
		}
		if buf.Len() != p.EncodedLength() {
			t.Errorf("mode %d: wrote %d bytes, EncodedLength says %d", p.mode, buf.Len(), p.EncodedLength())
		}
		got, err := ParseIntoParams(&buf)
		if err != nil {
			t.Fatalf("mode %d: ParseIntoParams: %v", p.mode, err)
		}
		if got.mode != p.mode || got.hashId != p.hashId || got.salt != p.salt || got.countByte != p.countByte || got.dummy != p.dummy {
			t.Errorf("mode %d: round trip mismatch: got %+v, want %+v", p.mode, got, p)
		}
	}
}

func TestGnuDummyRejectsBadMarker(t *testing.T) {
	// Mode 101, a hash octet, then a marker that isn't "GNU".
	buf := bytes.NewReader([]byte{101, byte(algorithm.HashSHA256), 'X', 'N', 'U', 1})
	if _, err := ParseIntoParams(buf); err == nil {
		t.Error("expected an error for a malformed GNU marker")
	}
}

func TestProduceKeyDeterministic(t *testing.T) {
	p, err := Generate(rand.Reader, byte(algorithm.HashSHA256), EncodeCount(65536))
	if err != nil {
		t.Fatal(err)
	}
	key1, err := p.ProduceKey([]byte("correct horse battery staple"), 32)
	if err != nil {
		t.Fatal(err)
	}
	key2, err := p.ProduceKey([]byte("correct horse battery staple"), 32)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(key1, key2) {
		t.Error("ProduceKey is not deterministic for identical inputs")
	}
	key3, err := p.ProduceKey([]byte("different passphrase"), 32)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(key1, key3) {
		t.Error("ProduceKey produced identical keys for different passphrases")
	}
}

func TestProduceKeyRejectsDummy(t *testing.T) {
	if _, err := Dummy().ProduceKey([]byte("x"), 16); err == nil {
		t.Error("expected an error deriving key material from a gnu-dummy specifier")
	}
}

func TestSimpleS2KLongerThanDigest(t *testing.T) {
	p := &Params{mode: SimpleS2K, hashId: byte(algorithm.HashSHA256)}
	key, err := p.ProduceKey([]byte("passphrase"), 48)
	if err != nil {
		t.Fatal(err)
	}
	if len(key) != 48 {
		t.Fatalf("got %d bytes, want 48", len(key))
	}
}
