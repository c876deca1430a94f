package packet

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rsa"
	"crypto/sha1"
	"io"
	"math/big"

	"golang.org/x/crypto/ed25519"

	"github.com/openpgp-go/corepgp/errors"
	"github.com/openpgp-go/corepgp/internal/algorithm"
	"github.com/openpgp-go/corepgp/internal/encoding"
	"github.com/openpgp-go/corepgp/openpgp/ecdsa"
	"github.com/openpgp-go/corepgp/openpgp/s2k"
)

type rsaPrivateParams struct {
	D, P, Q, U *encoding.MPI
}

type dsaPrivateParams struct {
	X *encoding.MPI
}

type elGamalPrivateParams struct {
	X *encoding.MPI
}

type ecdsaPrivateParams struct {
	D *encoding.MPI
}

type ecdhPrivateParams struct {
	D *encoding.MPI
}

type eddsaPrivateParams struct {
	D *encoding.MPI
}

// SecretKey is the Secret-Key / Secret-Subkey packet: composes a
// PublicKey with the secret-material protection lifecycle. Composition,
// not inheritance: the embedded PublicKey's fields are all reachable
// but never hidden.
type SecretKey struct {
	PublicKey PublicKey

	s2kUsage  uint8
	symmetric algorithm.CipherId
	aead      algorithm.AEADMode
	s2kParams *s2k.Params
	iv        []byte

	keyMaterial   []byte // present when not decrypted (encrypted or to-be-parsed cleartext bytes)
	privateParams any    // present when decrypted
	isEncrypted   bool
}

func (sk *SecretKey) Tag() Tag {
	if sk.PublicKey.IsSubkey {
		return PacketTypeSecretSubkey
	}
	return PacketTypeSecretKey
}

// PublicPortion exposes the embedded PublicKey explicitly rather than
// aliasing its fields under the secret key's own name.
func (sk *SecretKey) PublicPortion() *PublicKey {
	return &sk.PublicKey
}

func (sk *SecretKey) IsDummy() bool {
	return sk.s2kParams != nil && sk.s2kParams.IsDummy()
}

func (sk *SecretKey) IsDecrypted() bool {
	return !sk.isEncrypted
}

// parse reads the secret-key packet body: the embedded public portion,
// followed by the S2K-usage octet and the protected or cleartext
// private parameters.
func (sk *SecretKey) parse(r io.Reader) error {
	if err := sk.PublicKey.parse(r); err != nil {
		return err
	}

	var usageBuf [1]byte
	if _, err := io.ReadFull(r, usageBuf[:]); err != nil {
		return err
	}
	sk.s2kUsage = usageBuf[0]

	if sk.PublicKey.Version == 5 {
		// v5's combined-block scalar-octet-count; this implementation
		// always re-derives the block boundary from the S2K/algo fields
		// it parses, so the count itself is consumed and discarded.
		var blockLen [1]byte
		if _, err := io.ReadFull(r, blockLen[:]); err != nil {
			return err
		}
	}

	switch sk.s2kUsage {
	case 253, 254, 255:
		var algoBuf [1]byte
		if _, err := io.ReadFull(r, algoBuf[:]); err != nil {
			return err
		}
		sk.symmetric = algorithm.CipherId(algoBuf[0])
		if sk.s2kUsage == 253 {
			var aeadBuf [1]byte
			if _, err := io.ReadFull(r, aeadBuf[:]); err != nil {
				return err
			}
			sk.aead = algorithm.AEADMode(aeadBuf[0])
		}
		params, err := s2k.ParseIntoParams(r)
		if err != nil {
			return err
		}
		sk.s2kParams = params
		if params.IsDummy() {
			sk.isEncrypted = false
			return nil
		}
	default:
		if sk.s2kUsage != 0 {
			sk.symmetric = algorithm.CipherId(sk.s2kUsage)
		}
	}

	sk.isEncrypted = sk.s2kUsage != 0
	if sk.isEncrypted {
		ivLen := sk.symmetric.BlockSize()
		if sk.s2kUsage == 253 {
			ivLen = sk.aead.IVLength()
		}
		sk.iv = make([]byte, ivLen)
		if _, err := io.ReadFull(r, sk.iv); err != nil {
			return err
		}
	}

	if sk.PublicKey.Version == 5 {
		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return err
		}
		matLen := uint32(lenBuf[0])<<24 | uint32(lenBuf[1])<<16 | uint32(lenBuf[2])<<8 | uint32(lenBuf[3])
		sk.keyMaterial = make([]byte, matLen)
		if _, err := io.ReadFull(r, sk.keyMaterial); err != nil {
			return err
		}
	} else {
		rest, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		sk.keyMaterial = rest
	}

	if !sk.isEncrypted {
		return sk.parseCleartext()
	}
	return nil
}

// parseCleartext verifies the trailing checksum and parses private
// params, for the not-encrypted case.
func (sk *SecretKey) parseCleartext() error {
	if len(sk.keyMaterial) < 2 {
		return errors.StructuralError("secret key material too short for checksum")
	}
	cleartext := sk.keyMaterial[:len(sk.keyMaterial)-2]
	wantSum := uint16(sk.keyMaterial[len(sk.keyMaterial)-2])<<8 | uint16(sk.keyMaterial[len(sk.keyMaterial)-1])
	var gotSum uint16
	for _, b := range cleartext {
		gotSum += uint16(b)
	}
	if gotSum != wantSum {
		return errors.StructuralError("private key checksum mismatch")
	}
	params, err := parsePrivateParams(sk.PublicKey.PubKeyAlgo, bytes.NewReader(cleartext))
	if err != nil {
		return errors.StructuralError("malformed private key params: " + err.Error())
	}
	sk.privateParams = params
	sk.keyMaterial = nil
	return nil
}

func parsePrivateParams(algo PublicKeyAlgorithm, r io.Reader) (any, error) {
	switch algo {
	case PubKeyAlgoRSA, PubKeyAlgoRSAEncryptOnly, PubKeyAlgoRSASignOnly:
		d, p, q, u := new(encoding.MPI), new(encoding.MPI), new(encoding.MPI), new(encoding.MPI)
		for _, f := range []*encoding.MPI{d, p, q, u} {
			if _, err := f.ReadFrom(r); err != nil {
				return nil, err
			}
		}
		return &rsaPrivateParams{D: d, P: p, Q: q, U: u}, nil
	case PubKeyAlgoDSA:
		x := new(encoding.MPI)
		if _, err := x.ReadFrom(r); err != nil {
			return nil, err
		}
		return &dsaPrivateParams{X: x}, nil
	case PubKeyAlgoElGamal:
		x := new(encoding.MPI)
		if _, err := x.ReadFrom(r); err != nil {
			return nil, err
		}
		return &elGamalPrivateParams{X: x}, nil
	case PubKeyAlgoECDSA:
		d := new(encoding.MPI)
		if _, err := d.ReadFrom(r); err != nil {
			return nil, err
		}
		return &ecdsaPrivateParams{D: d}, nil
	case PubKeyAlgoECDH:
		d := new(encoding.MPI)
		if _, err := d.ReadFrom(r); err != nil {
			return nil, err
		}
		return &ecdhPrivateParams{D: d}, nil
	case PubKeyAlgoEdDSA:
		d := new(encoding.MPI)
		if _, err := d.ReadFrom(r); err != nil {
			return nil, err
		}
		return &eddsaPrivateParams{D: d}, nil
	default:
		return nil, errors.UnknownAlgorithm("public-key algorithm", int(algo))
	}
}

func serializePrivateParams(algo PublicKeyAlgorithm, params any) ([]byte, error) {
	var buf bytes.Buffer
	switch p := params.(type) {
	case *rsaPrivateParams:
		buf.Write(p.D.EncodedBytes())
		buf.Write(p.P.EncodedBytes())
		buf.Write(p.Q.EncodedBytes())
		buf.Write(p.U.EncodedBytes())
	case *dsaPrivateParams:
		buf.Write(p.X.EncodedBytes())
	case *elGamalPrivateParams:
		buf.Write(p.X.EncodedBytes())
	case *ecdsaPrivateParams:
		buf.Write(p.D.EncodedBytes())
	case *ecdhPrivateParams:
		buf.Write(p.D.EncodedBytes())
	case *eddsaPrivateParams:
		buf.Write(p.D.EncodedBytes())
	default:
		return nil, errors.UnknownAlgorithm("public-key algorithm", int(algo))
	}
	return buf.Bytes(), nil
}

// Serialize writes the secret-key packet's framed header and body.
func (sk *SecretKey) Serialize(w io.Writer) error {
	var body bytes.Buffer
	if err := sk.writeBody(&body); err != nil {
		return err
	}
	if err := serializeHeader(w, sk.Tag(), body.Len()); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

func (sk *SecretKey) writeBody(w io.Writer) error {
	if err := sk.PublicKey.writePublicKey(w); err != nil {
		return err
	}
	if _, err := w.Write([]byte{sk.s2kUsage}); err != nil {
		return err
	}

	var material []byte
	if sk.isEncrypted {
		material = sk.keyMaterial
	} else if !sk.IsDummy() {
		cleartext, err := serializePrivateParams(sk.PublicKey.PubKeyAlgo, sk.privateParams)
		if err != nil {
			return err
		}
		var sum uint16
		for _, b := range cleartext {
			sum += uint16(b)
		}
		material = append(cleartext, byte(sum>>8), byte(sum))
	}

	if sk.PublicKey.Version == 5 {
		blockLen := 0
		if sk.s2kUsage == 253 || sk.s2kUsage == 254 || sk.s2kUsage == 255 {
			blockLen = 1 + sk.s2kParams.EncodedLength()
			if sk.s2kUsage == 253 {
				blockLen++
			}
		}
		if _, err := w.Write([]byte{byte(blockLen)}); err != nil {
			return err
		}
	}

	switch sk.s2kUsage {
	case 253, 254, 255:
		if _, err := w.Write([]byte{byte(sk.symmetric)}); err != nil {
			return err
		}
		if sk.s2kUsage == 253 {
			if _, err := w.Write([]byte{byte(sk.aead)}); err != nil {
				return err
			}
		}
		if err := sk.s2kParams.Serialize(w); err != nil {
			return err
		}
		if sk.s2kParams.IsDummy() {
			return nil
		}
	}

	if sk.isEncrypted {
		if _, err := w.Write(sk.iv); err != nil {
			return err
		}
	}

	if sk.PublicKey.Version == 5 {
		var lenBuf [4]byte
		l := uint32(len(material))
		lenBuf[0], lenBuf[1], lenBuf[2], lenBuf[3] = byte(l>>24), byte(l>>16), byte(l>>8), byte(l)
		if _, err := w.Write(lenBuf[:]); err != nil {
			return err
		}
	}
	_, err := w.Write(material)
	return err
}

// Encrypt derives a key from passphrase via a fresh iterated-salted S2K
// specifier (config's hash and count; Config.S2KMode is not consulted)
// and uses it to protect the secret key's private parameters in place.
func (sk *SecretKey) Encrypt(passphrase []byte, config *Config) error {
	if sk.IsDummy() {
		return nil
	}
	if sk.isEncrypted {
		return errors.InvalidArgumentError("secret key is already encrypted")
	}
	if len(passphrase) == 0 {
		sk.s2kUsage = 0
		return nil
	}

	cleartext, err := serializePrivateParams(sk.PublicKey.PubKeyAlgo, sk.privateParams)
	if err != nil {
		return err
	}

	sk.symmetric = config.Cipher()
	params, err := s2k.Generate(config.Random(), hashIdForConfig(config), config.S2KCountEncoded())
	if err != nil {
		return err
	}
	sk.s2kParams = params

	key, err := params.ProduceKey(passphrase, sk.symmetric.KeySize())
	if err != nil {
		return err
	}

	if aeadCfg := config.AEAD(); aeadCfg != nil {
		sk.s2kUsage = 253
		sk.aead = algorithm.AEADModeEAX
		sk.iv = make([]byte, sk.aead.IVLength())
		if _, err := io.ReadFull(config.Random(), sk.iv); err != nil {
			return err
		}
		e, err := newAESEAX(key)
		if err != nil {
			return err
		}
		ciphertext, err := e.Seal(sk.iv, nil, cleartext)
		if err != nil {
			return err
		}
		sk.keyMaterial = ciphertext
	} else {
		sk.s2kUsage = 254
		sk.iv = make([]byte, sk.symmetric.BlockSize())
		if _, err := io.ReadFull(config.Random(), sk.iv); err != nil {
			return err
		}
		digest := sha1.Sum(cleartext)
		plaintext := append(append([]byte{}, cleartext...), digest[:]...)
		ciphertext, err := cfbEncryptAES(key, sk.iv, plaintext)
		if err != nil {
			return err
		}
		sk.keyMaterial = ciphertext
	}

	sk.privateParams = nil
	sk.isEncrypted = true
	return nil
}

// Decrypt recovers the private parameters using passphrase, verifying
// the S2K-usage-specific integrity check before trusting the result.
func (sk *SecretKey) Decrypt(passphrase []byte) error {
	if sk.IsDummy() {
		return nil
	}
	if !sk.isEncrypted {
		return errors.InvalidArgumentError("secret key is already decrypted")
	}
	if sk.s2kUsage != 253 && sk.s2kUsage != 254 {
		return errors.ErrInsecureS2K("s2k usage octet rejected: unsalted or two-byte-checksum form")
	}

	key, err := sk.s2kParams.ProduceKey(passphrase, sk.symmetric.KeySize())
	if err != nil {
		return err
	}

	var cleartext []byte
	if sk.s2kUsage == 253 {
		e, err := newAESEAX(key)
		if err != nil {
			return err
		}
		cleartext, err = e.Open(sk.iv, nil, sk.keyMaterial)
		if err != nil {
			return err
		}
	} else {
		plaintext, err := cfbDecryptAES(key, sk.iv, sk.keyMaterial)
		if err != nil {
			return err
		}
		if len(plaintext) < sha1.Size {
			return errors.StructuralError("encrypted secret material too short for integrity digest")
		}
		body := plaintext[:len(plaintext)-sha1.Size]
		wantDigest := plaintext[len(plaintext)-sha1.Size:]
		gotDigest := sha1.Sum(body)
		if !bytes.Equal(gotDigest[:], wantDigest) {
			zero(plaintext)
			return errors.ErrKeyIncorrect("SHA-1 integrity check failed")
		}
		cleartext = body
	}

	params, err := parsePrivateParams(sk.PublicKey.PubKeyAlgo, bytes.NewReader(cleartext))
	if err != nil {
		zero(cleartext)
		return errors.StructuralError("malformed private key params: " + err.Error())
	}
	sk.privateParams = params
	zero(sk.keyMaterial)
	sk.keyMaterial = nil
	sk.s2kUsage = 0
	sk.isEncrypted = false
	return nil
}

// Validate checks that the decrypted private parameters are internally
// consistent with the public key they claim to belong to.
func (sk *SecretKey) Validate() error {
	if sk.IsDummy() {
		return nil
	}
	if sk.isEncrypted {
		return errors.InvalidArgumentError("cannot validate an encrypted secret key")
	}

	switch pub := sk.PublicKey.PublicKey.(type) {
	case *rsaPublicParams:
		priv := pub.toRSAPublicKey()
		p := sk.privateParams.(*rsaPrivateParams)
		rsaPriv := &rsa.PrivateKey{
			PublicKey: *priv,
			D:         new(big.Int).SetBytes(p.D.Bytes()),
			Primes:    []*big.Int{new(big.Int).SetBytes(p.P.Bytes()), new(big.Int).SetBytes(p.Q.Bytes())},
		}
		rsaPriv.Precompute()
		if err := rsaPriv.Validate(); err != nil {
			return errors.KeyInvalidError("rsa: " + err.Error())
		}
		return nil

	case *dsaPublicParams:
		p := sk.privateParams.(*dsaPrivateParams)
		dsaPub := pub.toDSAPublicKey()
		x := new(big.Int).SetBytes(p.X.Bytes())
		expectedY := new(big.Int).Exp(dsaPub.G, x, dsaPub.P)
		if expectedY.Cmp(dsaPub.Y) != 0 {
			return errors.KeyInvalidError("dsa: private exponent does not match public key")
		}
		return nil

	case *elGamalPublicParams:
		p := sk.privateParams.(*elGamalPrivateParams)
		x := new(big.Int).SetBytes(p.X.Bytes())
		pBig := new(big.Int).SetBytes(pub.P.Bytes())
		gBig := new(big.Int).SetBytes(pub.G.Bytes())
		yBig := new(big.Int).SetBytes(pub.Y.Bytes())
		expectedY := new(big.Int).Exp(gBig, x, pBig)
		if expectedY.Cmp(yBig) != 0 {
			return errors.KeyInvalidError("elgamal: private exponent does not match public key")
		}
		return nil

	case *ecdsaPublicParams:
		curve, x, y, err := pub.toECDSAParams()
		if err != nil {
			return err
		}
		p := sk.privateParams.(*ecdsaPrivateParams)
		impl := curve.Curve()
		if err := impl.ValidateECDSA(x, y, p.D.Bytes()); err != nil {
			return errors.KeyInvalidError(err.Error())
		}
		priv := &ecdsa.PrivateKey{PublicKey: ecdsa.PublicKey{Curve: curve, X: x, Y: y}, D: new(big.Int).SetBytes(p.D.Bytes())}
		if !ecdsa.ValidateParams(priv) {
			return errors.KeyInvalidError("ecdsa: sign/verify self-test failed")
		}
		return nil

	case *eddsaPublicParams:
		p := sk.privateParams.(*eddsaPrivateParams)
		seed := p.D.Bytes()
		if len(seed) != ed25519.SeedSize {
			return errors.KeyInvalidError("eddsa: private seed has the wrong length")
		}
		derived := ed25519.NewKeyFromSeed(seed)
		wantPoint := pub.Point.Bytes()
		if len(wantPoint) == 33 && wantPoint[0] == 0x40 {
			wantPoint = wantPoint[1:]
		}
		if !bytes.Equal(derived.Public().(ed25519.PublicKey), wantPoint) {
			return errors.KeyInvalidError("eddsa: private seed does not match public point")
		}
		return nil

	case *ecdhPublicParams:
		// No check of the ECDH private scalar against the public point
		// is made, here or in openpgp/ecdh; only the structural parse
		// that already succeeded has been applied.
		return nil

	default:
		return errors.UnknownAlgorithm("public-key algorithm", int(sk.PublicKey.PubKeyAlgo))
	}
}

// MakeDummy overwrites secret params with zero bytes, then installs a
// gnu-dummy S2K sentinel.
func (sk *SecretKey) MakeDummy() {
	sk.ClearPrivateParams()
	sk.s2kUsage = 254
	sk.symmetric = algorithm.CipherAES256
	sk.s2kParams = s2k.Dummy()
	sk.isEncrypted = false
}

// ClearPrivateParams zeros all secret bytes reachable through the
// packet before dropping the references, so an inadvertently retained
// view sees only zeros.
func (sk *SecretKey) ClearPrivateParams() {
	switch p := sk.privateParams.(type) {
	case *rsaPrivateParams:
		zeroMPI(p.D)
		zeroMPI(p.P)
		zeroMPI(p.Q)
		zeroMPI(p.U)
	case *dsaPrivateParams:
		zeroMPI(p.X)
	case *elGamalPrivateParams:
		zeroMPI(p.X)
	case *ecdsaPrivateParams:
		zeroMPI(p.D)
	case *ecdhPrivateParams:
		zeroMPI(p.D)
	case *eddsaPrivateParams:
		zeroMPI(p.D)
	}
	sk.privateParams = nil
	zero(sk.keyMaterial)
	sk.keyMaterial = nil
}

func zeroMPI(m *encoding.MPI) {
	if m == nil {
		return
	}
	zero(m.Bytes())
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// cfbEncryptAES/cfbDecryptAES are the module's sole CFB-mode
// collaborators, used only by the legacy s2kUsage=254 secret-key
// protection path; message-body symmetric encryption is out of scope.
func cfbEncryptAES(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	stream := cipher.NewCFBEncrypter(block, iv)
	ciphertext := make([]byte, len(plaintext))
	stream.XORKeyStream(ciphertext, plaintext)
	return ciphertext, nil
}

func cfbDecryptAES(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	stream := cipher.NewCFBDecrypter(block, iv)
	plaintext := make([]byte, len(ciphertext))
	stream.XORKeyStream(plaintext, ciphertext)
	return plaintext, nil
}

func hashIdForConfig(config *Config) byte {
	id, _ := algorithm.HashToHashId(config.Hash())
	return byte(id)
}
