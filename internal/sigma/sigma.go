// Package sigma implements the three moves of the proof of knowledge of a
// commitment opening: the prover convinces the verifier that it knows
// (alpha, beta) with u = g^alpha * h^beta mod q without revealing the pair.
//
// Every transition is a pure function of the group parameters and its
// explicit inputs; the only hidden effect is drawing randomness. Witnesses
// belong to exactly one run and are never kept in shared state.
package sigma

import (
	"fmt"
	"io"
	"math/big"

	"github.com/IKycTI/SigmaProtocol/internal/arith"
	"github.com/IKycTI/SigmaProtocol/internal/group"
)

// Witness is a pair of residues mod q. The same type serves three roles in
// a run: the prover's secret (alpha, beta), the per-run blinding pair
// (alpha_t, beta_t) and the derived response (alpha_z, beta_z).
type Witness struct {
	Alpha *big.Int
	Beta  *big.Int
}

// NewRandomWitness draws a uniform witness in [0, q) x [0, q).
func NewRandomWitness(source io.Reader, q *big.Int) (Witness, error) {
	alpha, err := arith.RandElement(source, q)
	if err != nil {
		return Witness{}, fmt.Errorf("sigma: drawing alpha: %w", err)
	}
	beta, err := arith.RandElement(source, q)
	if err != nil {
		return Witness{}, fmt.Errorf("sigma: drawing beta: %w", err)
	}
	return Witness{Alpha: alpha, Beta: beta}, nil
}

// Commit computes the public commitment u = g^alpha * h^beta mod q.
func Commit(w Witness, p *group.Params) (*big.Int, error) {
	ga, err := arith.ModPow(p.G, w.Alpha, p.Q)
	if err != nil {
		return nil, fmt.Errorf("sigma: committing g^alpha: %w", err)
	}
	hb, err := arith.ModPow(p.H, w.Beta, p.Q)
	if err != nil {
		return nil, fmt.Errorf("sigma: committing h^beta: %w", err)
	}
	u := new(big.Int).Mul(ga, hb)
	return u.Mod(u, p.Q), nil
}

// Blind draws a fresh blinding witness and returns it with its commitment
// u_t. The witness is used once and discarded with the run.
func Blind(source io.Reader, p *group.Params) (Witness, *big.Int, error) {
	k, err := NewRandomWitness(source, p.Q)
	if err != nil {
		return Witness{}, nil, err
	}
	ut, err := Commit(k, p)
	if err != nil {
		return Witness{}, nil, err
	}
	return k, ut, nil
}

// Challenge draws a uniform challenge in [0, q). The verifier role draws it
// only after both commitments u and u_t are fixed; the prover never
// influences or precomputes it. This is the relaxed demonstration regime: a
// production system would source the challenge from an independent verifier
// or a public randomness beacon.
func Challenge(source io.Reader, p *group.Params) (*big.Int, error) {
	c, err := arith.RandElement(source, p.Q)
	if err != nil {
		return nil, fmt.Errorf("sigma: drawing challenge: %w", err)
	}
	return c, nil
}

// Respond derives the response witness
// (alpha_t + alpha*c mod q, beta_t + beta*c mod q).
func Respond(secret, blinding Witness, c, q *big.Int) Witness {
	alphaZ := new(big.Int).Mul(secret.Alpha, c)
	alphaZ.Add(alphaZ, blinding.Alpha).Mod(alphaZ, q)
	betaZ := new(big.Int).Mul(secret.Beta, c)
	betaZ.Add(betaZ, blinding.Beta).Mod(betaZ, q)
	return Witness{Alpha: alphaZ, Beta: betaZ}
}

// Verdict is the terminal outcome of a verification.
type Verdict int

const (
	// Verified means the response matched: u_z = u_t * u^c mod q.
	Verified Verdict = iota
	// Rejected means the run completed but the equality check failed; a
	// normal outcome for a dishonest response, not an error.
	Rejected
	// Failed means a numeric error occurred (a non-invertible element or a
	// degenerate modulus), distinct from a disproof of knowledge.
	Failed
)

func (v Verdict) String() string {
	switch v {
	case Verified:
		return "verified"
	case Rejected:
		return "rejected"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Verify recomputes the prover's claim: it commits the response witness to
// u_z and checks u_z = u_t * u^c mod q. A numeric error yields Failed
// together with the cause; otherwise the verdict is Verified or Rejected.
//
// Completeness holds by construction: for an honest response,
// g^(alpha_t+alpha*c) * h^(beta_t+beta*c) = (g^alpha_t * h^beta_t) *
// (g^alpha * h^beta)^c = u_t * u^c.
func Verify(response Witness, u, ut, c *big.Int, p *group.Params) (Verdict, error) {
	uz, err := Commit(response, p)
	if err != nil {
		return Failed, err
	}
	uPowC, err := arith.ModPow(u, c, p.Q)
	if err != nil {
		return Failed, fmt.Errorf("sigma: computing u^c: %w", err)
	}
	expected := new(big.Int).Mul(ut, uPowC)
	expected.Mod(expected, p.Q)
	if uz.Cmp(expected) == 0 {
		return Verified, nil
	}
	return Rejected, nil
}
