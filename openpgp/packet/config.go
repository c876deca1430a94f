package packet

import (
	"crypto"
	"crypto/rand"
	"io"
	"math/big"
	"time"

	"github.com/openpgp-go/corepgp/internal/algorithm"
	"github.com/openpgp-go/corepgp/openpgp/s2k"
)

// CurveName names a curve by its configuration-facing generation name
// (internal/ecc's GenName), e.g. "p256", "curve25519".
type CurveName string

// AEADConfig selects AEAD-protected secret-key encryption. A nil
// *Config.AEADConfig means CFB+SHA-1 protection (s2kUsage 254); a
// non-nil one selects s2kUsage 253, which always uses EAX: Mode is not
// consulted.
type AEADConfig struct {
	Mode algorithm.AEADMode
}

// Logger is the narrow structured-logging interface the tolerant
// PacketList read path uses to report skipped packets. The standard
// library's *log.Logger has no Debugf and does not satisfy it as is;
// it needs a small wrapper that forwards Debugf to its Printf.
type Logger interface {
	Debugf(format string, args ...any)
}

// Config carries the tunable options governing key generation and
// secret-key protection, plus defaults for random source, hash, and
// cipher. Every accessor is nil-receiver safe:
// calling a method on a nil *Config returns the package default, so
// callers may pass a zero-value *Config (or simply nil) when they want
// stock behavior.
type Config struct {
	Rand                  io.Reader
	DefaultHash           crypto.Hash
	DefaultCipher         algorithm.CipherId
	Time                  func() time.Time
	DefaultCurve          CurveName
	AEADConfig            *AEADConfig
	V5Keys                bool
	RSAModulusBits        int
	RSAPrimes             []*big.Int
	S2KCount              int
	S2KMode               s2k.Mode
	Tolerant              bool
	Logger                Logger
}

func (c *Config) Random() io.Reader {
	if c == nil || c.Rand == nil {
		return rand.Reader
	}
	return c.Rand
}

func (c *Config) Hash() crypto.Hash {
	if c == nil || c.DefaultHash == 0 {
		return crypto.SHA256
	}
	return c.DefaultHash
}

func (c *Config) Cipher() algorithm.CipherId {
	if c == nil || c.DefaultCipher == 0 {
		return algorithm.CipherAES256
	}
	return c.DefaultCipher
}

func (c *Config) Now() time.Time {
	if c == nil || c.Time == nil {
		return time.Now()
	}
	return c.Time()
}

func (c *Config) CurveName() CurveName {
	if c == nil || c.DefaultCurve == "" {
		return "p256"
	}
	return c.DefaultCurve
}

func (c *Config) AEAD() *AEADConfig {
	if c == nil {
		return nil
	}
	return c.AEADConfig
}

func (c *Config) RSAModulusBitsOrDefault() int {
	if c == nil || c.RSAModulusBits == 0 {
		return 3072
	}
	return c.RSAModulusBits
}

func (c *Config) UseV5Keys() bool {
	return c != nil && c.V5Keys
}

func (c *Config) S2KCountOrDefault() int {
	if c == nil || c.S2KCount == 0 {
		return 65536
	}
	return c.S2KCount
}

// S2KCountEncoded returns the coded iteration-count octet a freshly
// generated iterated-salted S2K specifier should use.
func (c *Config) S2KCountEncoded() byte {
	return s2k.EncodeCount(c.S2KCountOrDefault())
}

func (c *Config) IsTolerant() bool {
	return c != nil && c.Tolerant
}

// debugf forwards to the configured Logger, if any, else is a no-op:
// the one place in this module that produces a log line (the tolerant
// PacketList skip path).
func (c *Config) debugf(format string, args ...any) {
	if c != nil && c.Logger != nil {
		c.Logger.Debugf(format, args...)
	}
}
