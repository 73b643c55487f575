// Package arith implements the modular arithmetic routines the sigma
// protocol is built on: Euclidean gcd, extended-Euclidean modular inverse
// and modular exponentiation with signed exponents.
//
// Failures ("no inverse exists", "zero modulus") are reported as wrapped
// sentinel errors rather than sentinel values, so a caller can never mistake
// a legitimate zero result for a failure.
package arith

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrNoInverse is returned when the requested modular inverse does not
	// exist, either because the operands are not coprime or because the
	// modulus admits no meaningful inverse.
	ErrNoInverse = errors.New("no modular inverse")
	// ErrZeroModulus is returned by ModPow when given a zero modulus.
	ErrZeroModulus = errors.New("modulus is zero")
)

var one = big.NewInt(1)

// GCD returns the greatest common divisor of two non-negative integers.
// GCD(a, 0) = a and GCD(0, b) = b.
func GCD(a, b *big.Int) *big.Int {
	if b.Sign() == 0 {
		return new(big.Int).Set(a)
	}
	return GCD(b, new(big.Int).Mod(a, b))
}

// ModInverse returns the unique inv in [0, m) with a*inv = 1 (mod m). It
// returns ErrNoInverse when gcd(a, m) != 1, when a is zero or when m <= 1.
func ModInverse(a, m *big.Int) (*big.Int, error) {
	if a.Sign() == 0 {
		return nil, fmt.Errorf("inverse of zero mod %v: %w", m, ErrNoInverse)
	}
	if m.Cmp(one) <= 0 {
		return nil, fmt.Errorf("inverse mod %v: %w", m, ErrNoInverse)
	}
	g, x, _ := extendedGCD(a, m)
	if g.Cmp(one) != 0 {
		return nil, fmt.Errorf("gcd(%v, %v) = %v: %w", a, m, g, ErrNoInverse)
	}
	return x.Mod(x, m), nil
}

// extendedGCD returns (g, x, y) such that a*x + b*y = g = gcd(a, b). The
// coefficients may be negative; ModInverse normalizes them.
func extendedGCD(a, b *big.Int) (g, x, y *big.Int) {
	if a.Sign() == 0 {
		return new(big.Int).Set(b), big.NewInt(0), big.NewInt(1)
	}
	g, x1, y1 := extendedGCD(new(big.Int).Mod(b, a), a)
	x = new(big.Int).Sub(y1, new(big.Int).Mul(new(big.Int).Div(b, a), x1))
	return g, x, x1
}

// ModPow computes base**exponent mod modulus by square-and-multiply. The
// exponent may be negative, in which case the base must be invertible mod
// modulus; a missing inverse surfaces as ErrNoInverse. A zero modulus is
// ErrZeroModulus and a modulus of one always yields zero. The result is
// always in [0, modulus).
//
// This is the single place where "is this element invertible" failures
// surface. Callers treat an error as a protocol-level failure, never a
// panic.
func ModPow(base, exponent, modulus *big.Int) (*big.Int, error) {
	if modulus.Sign() == 0 {
		return nil, ErrZeroModulus
	}
	if modulus.Cmp(one) == 0 {
		return big.NewInt(0), nil
	}

	if exponent.Sign() < 0 {
		inv, err := ModInverse(base, modulus)
		if err != nil {
			return nil, fmt.Errorf("negative exponent: %w", err)
		}
		return ModPow(inv, new(big.Int).Neg(exponent), modulus)
	}

	result := big.NewInt(1)
	b := new(big.Int).Mod(base, modulus)
	e := new(big.Int).Set(exponent)
	for e.Sign() > 0 {
		if e.Bit(0) == 1 {
			result.Mul(result, b).Mod(result, modulus)
		}
		b.Mul(b, b).Mod(b, modulus)
		e.Rsh(e, 1)
	}
	return result, nil
}
