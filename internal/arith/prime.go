package arith

import (
	crand "crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// Default tunables for the random prime search. The default bit length is
// sized for demonstrations, not for cryptographic strength.
const (
	DefaultPrimeBits         = 64
	DefaultMillerRabinRounds = 8
	DefaultMaxPrimeAttempts  = 1 << 16
)

var two = big.NewInt(2)

// PrimeConfig tunes the random prime search. The per-candidate Miller-Rabin
// strength and the attempt bound are explicit so callers that need
// cryptographic-strength confidence, or bounded worst-case latency, can set
// them.
type PrimeConfig struct {
	// Bits is the bit length of candidate primes.
	Bits int
	// Rounds is the number of Miller-Rabin rounds per candidate. A
	// composite passes all rounds with probability at most 4^-Rounds.
	Rounds int
	// MaxAttempts caps the number of candidates tried before giving up.
	MaxAttempts int
}

// DefaultPrimeConfig returns the demonstration-sized defaults.
func DefaultPrimeConfig() PrimeConfig {
	return PrimeConfig{
		Bits:        DefaultPrimeBits,
		Rounds:      DefaultMillerRabinRounds,
		MaxAttempts: DefaultMaxPrimeAttempts,
	}
}

// reader falls back to the system CSPRNG when no source is given.
func reader(source io.Reader) io.Reader {
	if source == nil {
		return crand.Reader
	}
	return source
}

// IsProbablyPrime runs the Miller-Rabin test on n with the given number of
// independent rounds. It never reports a prime as composite; a composite
// passes with probability at most 4^-rounds.
func IsProbablyPrime(n *big.Int, rounds int) bool {
	if n.Cmp(one) <= 0 {
		return false
	}
	if n.Cmp(two) == 0 || n.Cmp(big.NewInt(3)) == 0 {
		return true
	}
	if n.Bit(0) == 0 {
		return false
	}

	// n-1 = 2^s * t with t odd
	nMinusOne := new(big.Int).Sub(n, one)
	t := new(big.Int).Set(nMinusOne)
	s := 0
	for t.Bit(0) == 0 {
		t.Rsh(t, 1)
		s++
	}

trials:
	for i := 0; i < rounds; i++ {
		a, err := randRange(crand.Reader, two, new(big.Int).Sub(n, two))
		if err != nil {
			return false
		}
		x, err := ModPow(a, t, n)
		if err != nil {
			return false
		}
		if x.Cmp(one) == 0 || x.Cmp(nMinusOne) == 0 {
			continue trials
		}
		for j := 0; j < s-1; j++ {
			x.Mul(x, x).Mod(x, n)
			if x.Cmp(one) == 0 {
				// a nontrivial square root of 1 proves n composite
				return false
			}
			if x.Cmp(nMinusOne) == 0 {
				continue trials
			}
		}
		return false
	}
	return true
}

// GeneratePrime draws a random odd integer of cfg.Bits bits from source
// (crypto/rand when nil) and steps it by two until a probable prime is
// found. It errors out after cfg.MaxAttempts candidates.
func GeneratePrime(source io.Reader, cfg PrimeConfig) (*big.Int, error) {
	if cfg.Bits < 3 {
		return nil, fmt.Errorf("prime bit length %d too small", cfg.Bits)
	}
	rounds := cfg.Rounds
	if rounds <= 0 {
		rounds = DefaultMillerRabinRounds
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxPrimeAttempts
	}

	candidate, err := randBits(reader(source), cfg.Bits)
	if err != nil {
		return nil, fmt.Errorf("drawing prime candidate: %w", err)
	}
	candidate.SetBit(candidate, 0, 1)

	for i := 0; i < maxAttempts; i++ {
		if IsProbablyPrime(candidate, rounds) {
			return candidate, nil
		}
		candidate.Add(candidate, two)
	}
	return nil, fmt.Errorf("no prime found in %d candidates of %d bits", maxAttempts, cfg.Bits)
}

// RandElement draws a uniform value in [0, modulus) for use as a generator,
// a blinding component or a challenge.
func RandElement(source io.Reader, modulus *big.Int) (*big.Int, error) {
	if modulus.Sign() <= 0 {
		return nil, fmt.Errorf("random element mod %v: modulus not positive", modulus)
	}
	v, err := crand.Int(reader(source), modulus)
	if err != nil {
		return nil, fmt.Errorf("drawing random element: %w", err)
	}
	return v, nil
}

// randRange draws a uniform value in [min, max], both inclusive.
func randRange(source io.Reader, min, max *big.Int) (*big.Int, error) {
	width := new(big.Int).Sub(max, min)
	width.Add(width, one)
	if width.Sign() <= 0 {
		return nil, fmt.Errorf("empty range [%v, %v]", min, max)
	}
	v, err := crand.Int(reader(source), width)
	if err != nil {
		return nil, err
	}
	return v.Add(v, min), nil
}

// randBits draws a uniform integer of exactly bits bits, top bit set.
func randBits(source io.Reader, bits int) (*big.Int, error) {
	buf := make([]byte, (bits+7)/8)
	if _, err := io.ReadFull(source, buf); err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(buf)
	// drop any excess high bits, then pin the top one so the candidate has
	// the requested length
	mask := new(big.Int).Lsh(one, uint(bits))
	mask.Sub(mask, one)
	n.And(n, mask)
	n.SetBit(n, bits-1, 1)
	return n, nil
}
