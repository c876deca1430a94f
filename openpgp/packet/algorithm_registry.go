package packet

// PublicKeyAlgorithm is the RFC 4880 §9.1 public-key algorithm
// identifier, translated via this registry at every wire boundary.
type PublicKeyAlgorithm uint8

const (
	PubKeyAlgoRSA           PublicKeyAlgorithm = 1
	PubKeyAlgoRSAEncryptOnly PublicKeyAlgorithm = 2
	PubKeyAlgoRSASignOnly   PublicKeyAlgorithm = 3
	PubKeyAlgoElGamal      PublicKeyAlgorithm = 16
	PubKeyAlgoDSA          PublicKeyAlgorithm = 17
	PubKeyAlgoECDH         PublicKeyAlgorithm = 18
	PubKeyAlgoECDSA        PublicKeyAlgorithm = 19
	PubKeyAlgoEdDSA        PublicKeyAlgorithm = 22
)

var pubKeyAlgoNames = map[PublicKeyAlgorithm]string{
	PubKeyAlgoRSA:            "RSA",
	PubKeyAlgoRSAEncryptOnly: "RSA (encrypt only)",
	PubKeyAlgoRSASignOnly:    "RSA (sign only)",
	PubKeyAlgoElGamal:        "ElGamal",
	PubKeyAlgoDSA:            "DSA",
	PubKeyAlgoECDH:           "ECDH",
	PubKeyAlgoECDSA:          "ECDSA",
	PubKeyAlgoEdDSA:          "EdDSA",
}

// String returns the algorithm's symbolic name, or "" if unregistered.
func (algo PublicKeyAlgorithm) String() string {
	return pubKeyAlgoNames[algo]
}

// IsRSA reports whether algo is any of the three legacy RSA codes.
func (algo PublicKeyAlgorithm) IsRSA() bool {
	return algo == PubKeyAlgoRSA || algo == PubKeyAlgoRSAEncryptOnly || algo == PubKeyAlgoRSASignOnly
}

// CanSign reports whether algo is usable for a Signature/OnePassSignature
// binding. Encrypt-only RSA and ECDH, which is key-agreement only, are
// excluded.
func (algo PublicKeyAlgorithm) CanSign() bool {
	switch algo {
	case PubKeyAlgoRSAEncryptOnly, PubKeyAlgoECDH:
		return false
	default:
		_, known := pubKeyAlgoNames[algo]
		return known
	}
}

// CanEncrypt reports whether algo is usable for session-key encryption.
func (algo PublicKeyAlgorithm) CanEncrypt() bool {
	switch algo {
	case PubKeyAlgoRSASignOnly, PubKeyAlgoDSA, PubKeyAlgoECDSA, PubKeyAlgoEdDSA:
		return false
	default:
		_, known := pubKeyAlgoNames[algo]
		return known
	}
}
