package core

import (
	"context"
	"math/big"
	"testing"
	"time"

	clock "github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/IKycTI/SigmaProtocol/common/testlogger"
	"github.com/IKycTI/SigmaProtocol/internal/group"
)

func demoParams() *group.Params {
	return &group.Params{Q: big.NewInt(10007), G: big.NewInt(5), H: big.NewInt(3)}
}

func TestNewValidatesParams(t *testing.T) {
	_, err := New(Config{
		Log:    testlogger.New(t),
		Params: &group.Params{Q: big.NewInt(2), G: big.NewInt(0), H: big.NewInt(0)},
	})
	require.Error(t, err)
}

func TestStartRunRejectsConcurrentRuns(t *testing.T) {
	// a fake clock that is never advanced parks the run on the barrier,
	// keeping it live for the duration of the test
	d, err := New(Config{
		Log:    testlogger.New(t),
		Clock:  clock.NewFakeClock(),
		Params: demoParams(),
	})
	require.NoError(t, err)
	defer d.Stop()

	require.NoError(t, d.StartRun())
	require.True(t, d.Running())
	require.ErrorIs(t, d.StartRun(), ErrRunInProgress)
}

func TestStopUnblocksRun(t *testing.T) {
	d, err := New(Config{
		Log:    testlogger.New(t),
		Clock:  clock.NewFakeClock(),
		Params: demoParams(),
	})
	require.NoError(t, err)

	require.NoError(t, d.StartRun())
	d.Stop()
	require.Eventually(t, func() bool { return !d.Running() },
		time.Second, 5*time.Millisecond)
}

func TestFullRunThroughDaemon(t *testing.T) {
	d, err := New(Config{
		Log:         testlogger.New(t),
		Params:      demoParams(),
		StepDelay:   time.Millisecond,
		BarrierPoll: time.Millisecond,
	})
	require.NoError(t, err)
	defer d.Stop()

	sub := d.Subscribe()
	defer sub.Close()

	require.NoError(t, d.StartRun())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var last string
	for i := 0; i < 7; i++ {
		ev, err := sub.Recv(ctx)
		require.NoError(t, err)
		last = ev.Message
	}
	require.Contains(t, last, "you know the secret")

	require.Eventually(t, func() bool { return !d.Running() },
		time.Second, 5*time.Millisecond)

	// the daemon accepts a new trigger once the session is destroyed
	require.NoError(t, d.StartRun())
	for i := 0; i < 7; i++ {
		ev, err := sub.Recv(ctx)
		require.NoError(t, err)
		last = ev.Message
	}
	require.Contains(t, last, "you know the secret")
}
