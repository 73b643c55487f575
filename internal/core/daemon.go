// Package core wires the daemon together: it owns the group parameters,
// the transcript broadcaster and the run lifecycle, and exposes the two
// operations the transport layer consumes.
package core

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	clock "github.com/jonboulle/clockwork"

	"github.com/IKycTI/SigmaProtocol/common/log"
	"github.com/IKycTI/SigmaProtocol/internal/group"
	"github.com/IKycTI/SigmaProtocol/internal/orchestrator"
	"github.com/IKycTI/SigmaProtocol/internal/transcript"
)

// ErrRunInProgress is returned by StartRun while a session is still live.
// The reference design assumes at most one run at a time; concurrent runs
// would need per-run channel isolation, not a single shared broadcast.
var ErrRunInProgress = errors.New("core: a run is already in progress")

// Config carries everything the daemon needs at construction.
type Config struct {
	Log    log.Logger
	Clock  clock.Clock
	Params *group.Params
	// Rand overrides the randomness source, crypto/rand when nil.
	Rand io.Reader
	// Capacity bounds the transcript buffer,
	// transcript.DefaultCapacity when zero.
	Capacity int
	// StepDelay and BarrierPoll override the orchestrator pacing.
	StepDelay   time.Duration
	BarrierPoll time.Duration
}

// Daemon holds the process-lifetime state: parameters, broadcaster and the
// single-run gate.
type Daemon struct {
	log     log.Logger
	params  *group.Params
	b       *transcript.Broadcaster
	orch    *orchestrator.Orchestrator
	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New validates the parameters and assembles a daemon.
func New(c Config) (*Daemon, error) {
	if c.Log == nil {
		c.Log = log.DefaultLogger()
	}
	if c.Clock == nil {
		c.Clock = clock.NewRealClock()
	}
	if err := c.Params.Validate(); err != nil {
		return nil, err
	}
	b := transcript.NewBroadcaster(c.Capacity)
	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		log:    c.Log.Named("core"),
		params: c.Params,
		b:      b,
		ctx:    ctx,
		cancel: cancel,
	}
	d.orch = orchestrator.New(orchestrator.Config{
		Log:         c.Log,
		Clock:       c.Clock,
		Params:      c.Params,
		Broadcaster: b,
		Rand:        c.Rand,
		StepDelay:   c.StepDelay,
		BarrierPoll: c.BarrierPoll,
	})
	return d, nil
}

// Params returns the shared read-only group parameters.
func (d *Daemon) Params() *group.Params {
	return d.params
}

// Running reports whether a session is currently live.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// StartRun triggers a session and returns immediately; the run proceeds
// asynchronously and unwinds to a terminal state on its own. Only one run
// may be live at a time.
func (d *Daemon) StartRun() error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	d.log.Infow("run triggered")
	go func() {
		defer d.running.Store(false)
		state, err := d.orch.Run(d.ctx)
		if err != nil {
			d.log.Warnw("run interrupted", "state", state, "err", err)
			return
		}
		d.log.Infow("run completed", "state", state)
	}()
	return nil
}

// Subscribe attaches a new transcript observer. The caller must Close the
// subscription when done with it.
func (d *Daemon) Subscribe() *transcript.Subscription {
	return d.b.Subscribe()
}

// Stop cancels any live run and releases all subscribers.
func (d *Daemon) Stop() {
	d.cancel()
	d.b.Close()
	d.log.Infow("daemon stopped")
}
