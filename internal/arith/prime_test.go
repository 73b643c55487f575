package arith

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsProbablyPrimeTrivialCases(t *testing.T) {
	require.False(t, IsProbablyPrime(bi(-7), 8))
	require.False(t, IsProbablyPrime(bi(0), 8))
	require.False(t, IsProbablyPrime(bi(1), 8))
	require.True(t, IsProbablyPrime(bi(2), 8))
	require.True(t, IsProbablyPrime(bi(3), 8))
	require.False(t, IsProbablyPrime(bi(4), 8))
	require.False(t, IsProbablyPrime(bi(1000000), 8))
}

// The test must never report a true prime composite, for any round count.
func TestIsProbablyPrimeNoFalseNegatives(t *testing.T) {
	const limit = 1000000
	sieve := make([]bool, limit) // true means composite
	for i := 2; i*i < limit; i++ {
		if sieve[i] {
			continue
		}
		for j := i * i; j < limit; j += i {
			sieve[j] = true
		}
	}
	n := new(big.Int)
	for p := 2; p < limit; p++ {
		if sieve[p] {
			continue
		}
		n.SetInt64(int64(p))
		require.True(t, IsProbablyPrime(n, 1), "prime %d reported composite", p)
	}
}

func TestIsProbablyPrimeComposites(t *testing.T) {
	// includes Carmichael numbers, which fool the Fermat test
	for _, c := range []int64{9, 15, 21, 25, 91, 561, 1105, 1729, 6601, 62745, 999999} {
		require.False(t, IsProbablyPrime(bi(c), 8), "composite %d reported prime", c)
	}
}

func TestIsProbablyPrimeLargeKnownPrime(t *testing.T) {
	// 2^89 - 1, a Mersenne prime
	p := new(big.Int).Lsh(big.NewInt(1), 89)
	p.Sub(p, big.NewInt(1))
	require.True(t, IsProbablyPrime(p, 8))

	// its square is composite
	sq := new(big.Int).Mul(p, p)
	require.False(t, IsProbablyPrime(sq, 8))
}

func TestGeneratePrime(t *testing.T) {
	for _, bits := range []int{16, 32, 64} {
		cfg := DefaultPrimeConfig()
		cfg.Bits = bits
		p, err := GeneratePrime(nil, cfg)
		require.NoError(t, err)
		require.Equal(t, bits, p.BitLen())
		require.Equal(t, uint(1), p.Bit(0), "generated prime %v is even", p)
		require.True(t, p.ProbablyPrime(32), "generated %v is not prime", p)
	}
}

func TestGeneratePrimeBadConfig(t *testing.T) {
	cfg := DefaultPrimeConfig()
	cfg.Bits = 2
	_, err := GeneratePrime(nil, cfg)
	require.Error(t, err)
}

func TestRandElement(t *testing.T) {
	mod := bi(11)
	seen := make(map[int64]bool)
	for i := 0; i < 500; i++ {
		v, err := RandElement(nil, mod)
		require.NoError(t, err)
		require.True(t, v.Sign() >= 0 && v.Cmp(mod) < 0, "value %v out of [0, 11)", v)
		seen[v.Int64()] = true
	}
	// 500 draws over 11 residues hit every one with overwhelming probability
	require.Len(t, seen, 11)

	_, err := RandElement(nil, bi(0))
	require.Error(t, err)
}
