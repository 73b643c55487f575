package sigma

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IKycTI/SigmaProtocol/internal/arith"
	"github.com/IKycTI/SigmaProtocol/internal/group"
)

func bi(v int64) *big.Int { return big.NewInt(v) }

func demoParams() *group.Params {
	return &group.Params{Q: bi(11), G: bi(2), H: bi(3)}
}

// Worked trace over q=11, g=2, h=3 with every value pinned:
//
//	secret   (5, 2)  =>  u   = 2^5 * 3^2 mod 11 = 288 mod 11   = 2
//	blinding (3, 7)  =>  u_t = 2^3 * 3^7 mod 11 = 17496 mod 11 = 6
//	c = 4            =>  z   = (3 + 5*4 mod 11, 7 + 2*4 mod 11) = (1, 4)
//	u_z = 2^1 * 3^4 mod 11 = 162 mod 11 = 8
//	u_t * u^c mod 11 = 6 * 16 mod 11   = 8
func TestGoldenTrace(t *testing.T) {
	p := demoParams()
	secret := Witness{Alpha: bi(5), Beta: bi(2)}
	blinding := Witness{Alpha: bi(3), Beta: bi(7)}
	c := bi(4)

	u, err := Commit(secret, p)
	require.NoError(t, err)
	require.Equal(t, bi(2), u)

	ut, err := Commit(blinding, p)
	require.NoError(t, err)
	require.Equal(t, bi(6), ut)

	z := Respond(secret, blinding, c, p.Q)
	require.Equal(t, bi(1), z.Alpha)
	require.Equal(t, bi(4), z.Beta)

	uz, err := Commit(z, p)
	require.NoError(t, err)
	require.Equal(t, bi(8), uz)

	verdict, err := Verify(z, u, ut, c, p)
	require.NoError(t, err)
	require.Equal(t, Verified, verdict)

	// with a wrong u_t the same response must be rejected
	verdict, err = Verify(z, u, bi(3), c, p)
	require.NoError(t, err)
	require.Equal(t, Rejected, verdict)
}

func TestCompleteness(t *testing.T) {
	params := []*group.Params{
		demoParams(),
		{Q: bi(10007), G: bi(5), H: bi(9999)},
	}
	generated, err := group.Generate(nil, arith.PrimeConfig{Bits: 48, Rounds: 8, MaxAttempts: 1 << 16})
	require.NoError(t, err)
	params = append(params, generated)

	for _, p := range params {
		for i := 0; i < 20; i++ {
			secret, err := NewRandomWitness(nil, p.Q)
			require.NoError(t, err)
			u, err := Commit(secret, p)
			require.NoError(t, err)
			blinding, ut, err := Blind(nil, p)
			require.NoError(t, err)
			c, err := Challenge(nil, p)
			require.NoError(t, err)

			z := Respond(secret, blinding, c, p.Q)
			verdict, err := Verify(z, u, ut, c, p)
			require.NoError(t, err)
			require.Equal(t, Verified, verdict,
				"q=%v secret=(%v,%v) blinding=(%v,%v) c=%v",
				p.Q, secret.Alpha, secret.Beta, blinding.Alpha, blinding.Beta, c)
		}
	}
}

func TestSoundnessPerturbedResponse(t *testing.T) {
	p := &group.Params{Q: bi(10007), G: bi(5), H: bi(9999)}
	rejected := 0
	const runs = 50
	for i := 0; i < runs; i++ {
		secret, err := NewRandomWitness(nil, p.Q)
		require.NoError(t, err)
		u, err := Commit(secret, p)
		require.NoError(t, err)
		blinding, ut, err := Blind(nil, p)
		require.NoError(t, err)
		c, err := Challenge(nil, p)
		require.NoError(t, err)

		z := Respond(secret, blinding, c, p.Q)
		bad := Witness{
			Alpha: new(big.Int).Add(z.Alpha, bi(1)),
			Beta:  new(big.Int).Set(z.Beta),
		}
		bad.Alpha.Mod(bad.Alpha, p.Q)
		verdict, err := Verify(bad, u, ut, c, p)
		require.NoError(t, err)
		if verdict == Rejected {
			rejected++
		}
	}
	// g^(z+1) = g^z only if g has a tiny order; over random runs a
	// perturbed response passing even once is overwhelmingly unlikely
	require.Equal(t, runs, rejected)
}

func TestChallengeRange(t *testing.T) {
	p := demoParams()
	for i := 0; i < 200; i++ {
		c, err := Challenge(nil, p)
		require.NoError(t, err)
		require.True(t, c.Sign() >= 0 && c.Cmp(p.Q) < 0, "challenge %v out of [0, 11)", c)
	}
}

func TestNewRandomWitnessRange(t *testing.T) {
	q := bi(11)
	for i := 0; i < 100; i++ {
		w, err := NewRandomWitness(nil, q)
		require.NoError(t, err)
		require.True(t, w.Alpha.Sign() >= 0 && w.Alpha.Cmp(q) < 0)
		require.True(t, w.Beta.Sign() >= 0 && w.Beta.Cmp(q) < 0)
	}
}

func TestVerifyFailed(t *testing.T) {
	// q = 12 makes u = 4 non-invertible, so u^c with a negative challenge
	// cannot be computed: the outcome is Failed, not Rejected
	p := &group.Params{Q: bi(12), G: bi(5), H: bi(7)}
	z := Witness{Alpha: bi(0), Beta: bi(0)}
	verdict, err := Verify(z, bi(4), bi(1), bi(-1), p)
	require.ErrorIs(t, err, arith.ErrNoInverse)
	require.Equal(t, Failed, verdict)
}

func TestVerdictString(t *testing.T) {
	require.Equal(t, "verified", Verified.String())
	require.Equal(t, "rejected", Rejected.String())
	require.Equal(t, "failed", Failed.String())
}
