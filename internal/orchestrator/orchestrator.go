// Package orchestrator sequences one proof session: it gates the start on
// observer presence, drives the engine through its three moves with a fixed
// pacing delay between steps, and publishes one transcript event per step.
// Publishing is best-effort; a run always reaches a terminal state.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"time"

	clock "github.com/jonboulle/clockwork"

	"github.com/IKycTI/SigmaProtocol/common/log"
	"github.com/IKycTI/SigmaProtocol/internal/group"
	"github.com/IKycTI/SigmaProtocol/internal/sigma"
	"github.com/IKycTI/SigmaProtocol/internal/transcript"
)

// State is the position of a session in its lifecycle. A session moves
// Idle -> CommitmentsSent -> ChallengeIssued -> ResponseSent and ends in
// one of Verified, Rejected or Failed.
type State int

const (
	Idle State = iota
	CommitmentsSent
	ChallengeIssued
	ResponseSent
	Verified
	Rejected
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CommitmentsSent:
		return "commitments-sent"
	case ChallengeIssued:
		return "challenge-issued"
	case ResponseSent:
		return "response-sent"
	case Verified:
		return "verified"
	case Rejected:
		return "rejected"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the session cannot progress further.
func (s State) Terminal() bool {
	return s == Verified || s == Rejected || s == Failed
}

// Defaults for the pacing and barrier delays. Pacing exists purely for
// human observability of the stream, it is not a correctness requirement.
const (
	DefaultStepDelay   = 500 * time.Millisecond
	DefaultBarrierPoll = 500 * time.Millisecond
)

// Config holds all the required information for a run to proceed.
type Config struct {
	// Log receives per-step progress statements.
	Log log.Logger
	// Clock regulates the start barrier and the inter-step pacing.
	Clock clock.Clock
	// Params is the shared read-only group the run proves against.
	Params *group.Params
	// Broadcaster receives one event per protocol step.
	Broadcaster *transcript.Broadcaster
	// Rand is the randomness source for witnesses and the challenge;
	// crypto/rand when nil.
	Rand io.Reader
	// StepDelay is the pause between published steps.
	StepDelay time.Duration
	// BarrierPoll is the backoff between subscriber-count polls before the
	// run starts.
	BarrierPoll time.Duration
}

// Orchestrator runs proof sessions against a fixed configuration.
type Orchestrator struct {
	c Config
}

// New fills in the zero-valued defaults and returns the orchestrator.
func New(c Config) *Orchestrator {
	if c.Log == nil {
		c.Log = log.DefaultLogger()
	}
	if c.Clock == nil {
		c.Clock = clock.NewRealClock()
	}
	if c.StepDelay == 0 {
		c.StepDelay = DefaultStepDelay
	}
	if c.BarrierPoll == 0 {
		c.BarrierPoll = DefaultBarrierPoll
	}
	return &Orchestrator{c: c}
}

// Run executes one full session and returns its terminal state. All session
// values (witnesses, commitments, challenge, response) are created here and
// owned exclusively by this call; nothing survives the run. The returned
// error is non-nil only when the context ended the run early.
func (o *Orchestrator) Run(ctx context.Context) (State, error) {
	c := o.c
	l := c.Log.Named("run")
	state := Idle

	if err := o.awaitSubscriber(ctx, l); err != nil {
		return state, err
	}

	l.Infow("starting proof session", "q", c.Params.Q, "g", c.Params.G, "h", c.Params.H)
	o.publish(transcript.RoleServer,
		"session rules: q = %v, g = %v, h = %v", c.Params.Q, c.Params.G, c.Params.H)
	if err := o.pace(ctx); err != nil {
		return state, err
	}

	secret, err := sigma.NewRandomWitness(c.Rand, c.Params.Q)
	if err != nil {
		return o.fail(l, err), nil
	}
	u, err := sigma.Commit(secret, c.Params)
	if err != nil {
		return o.fail(l, err), nil
	}
	l.Debugw("prover committed secret witness")
	o.publish(transcript.RoleProver,
		"hello, I know the secret behind this commitment: u = %v", u)
	if err := o.pace(ctx); err != nil {
		return state, err
	}

	blinding, ut, err := sigma.Blind(c.Rand, c.Params)
	if err != nil {
		return o.fail(l, err), nil
	}
	state = CommitmentsSent
	l.Debugw("prover committed blinding witness", "state", state)
	o.publish(transcript.RoleProver, "and here is my proof commitment: u_t = %v", ut)
	if err := o.pace(ctx); err != nil {
		return state, err
	}
	o.publish(transcript.RoleServer,
		"the verifier does not see this: secret witness (%v, %v), blinding witness (%v, %v)",
		secret.Alpha, secret.Beta, blinding.Alpha, blinding.Beta)
	if err := o.pace(ctx); err != nil {
		return state, err
	}

	challenge, err := sigma.Challenge(c.Rand, c.Params)
	if err != nil {
		return o.fail(l, err), nil
	}
	state = ChallengeIssued
	l.Debugw("verifier issued challenge", "state", state)
	o.publish(transcript.RoleVerifier,
		"prove that you know the secret, your challenge: c = %v", challenge)
	if err := o.pace(ctx); err != nil {
		return state, err
	}

	response := sigma.Respond(secret, blinding, challenge, c.Params.Q)
	state = ResponseSent
	l.Debugw("prover computed response", "state", state)
	o.publish(transcript.RoleProver,
		"my response: alpha_z = %v, beta_z = %v", response.Alpha, response.Beta)
	if err := o.pace(ctx); err != nil {
		return state, err
	}

	verdict, verr := sigma.Verify(response, u, ut, challenge, c.Params)
	switch verdict {
	case sigma.Verified:
		state = Verified
		o.publish(transcript.RoleVerifier, "the commitments match: you know the secret")
	case sigma.Rejected:
		state = Rejected
		o.publish(transcript.RoleVerifier, "the commitments do not match: you do not know the secret")
	case sigma.Failed:
		l.Errorw("verification failed", "err", verr)
		state = Failed
		o.publish(transcript.RoleVerifier, "the session ended with an error: %v", verr)
	}
	l.Infow("session finished", "state", state)
	return state, nil
}

// awaitSubscriber is the start barrier: without it a run's events would be
// silently dropped before anyone is watching.
func (o *Orchestrator) awaitSubscriber(ctx context.Context, l log.Logger) error {
	for o.c.Broadcaster.SubscriberCount() == 0 {
		l.Warnw("no subscribers yet, delaying run", "backoff", o.c.BarrierPoll)
		select {
		case <-o.c.Clock.After(o.c.BarrierPoll):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// fail publishes the distinct Failed terminal message. Numeric errors are
// recovered here into a terminal state, never panicked.
func (o *Orchestrator) fail(l log.Logger, err error) State {
	l.Errorw("session failed", "err", err)
	o.publish(transcript.RoleServer, "the session ended with an error: %v", err)
	return Failed
}

func (o *Orchestrator) publish(role transcript.Role, format string, args ...interface{}) {
	o.c.Broadcaster.Publish(transcript.Event{
		Time:    o.c.Clock.Now(),
		Role:    role,
		Message: fmt.Sprintf(format, args...),
	})
}

func (o *Orchestrator) pace(ctx context.Context) error {
	select {
	case <-o.c.Clock.After(o.c.StepDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
