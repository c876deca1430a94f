package s2k

import "golang.org/x/crypto/argon2"

// decodeMemory expands the coded memory-exponent octet into the actual
// Argon2 memory parameter, in KiB, per the crypto-refresh Argon2 S2K
// extension: 2**memoryExp.
func decodeMemory(memoryExp byte) uint32 {
	return uint32(1) << uint(memoryExp)
}

// produceArgon2Key derives key material with Argon2id, the only Argon2
// variant the crypto-refresh Argon2 S2K specifier names.
func (p *Params) produceArgon2Key(passphrase []byte, length int) ([]byte, error) {
	return argon2.IDKey(passphrase, p.argonSalt[:], uint32(p.passes), decodeMemory(p.memoryExp), p.parallelism, uint32(length)), nil
}

// GenerateArgon2 builds a fresh Argon2id specifier with random salt and
// the given cost parameters.
func GenerateArgon2(randSalt []byte, passes, parallelism, memoryExp byte) (*Params, error) {
	p := &Params{mode: Argon2S2K, passes: passes, parallelism: parallelism, memoryExp: memoryExp}
	copy(p.argonSalt[:], randSalt)
	return p, nil
}
