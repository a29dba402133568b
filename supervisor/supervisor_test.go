package supervisor

import (
	"bufio"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ecatcyclic/ecatmgr/command"
	"github.com/ecatcyclic/ecatmgr/logging"
	"github.com/ecatcyclic/ecatmgr/netconfig"
	"github.com/ecatcyclic/ecatmgr/status"
)

// TestMain lets this same test binary stand in for the worker process
// Supervisor.Start re-execs: when WorkerEnvVar is set, it behaves like
// a minimal cyclic worker instead of running the test suite, the same
// trick the standard library's os/exec tests use to avoid needing a
// real second binary.
func TestMain(m *testing.M) {
	if os.Getenv(WorkerEnvVar) != "" {
		fakeWorkerMain()
		return
	}
	os.Exit(m.Run())
}

func fakeWorkerMain() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT)

	go func() {
		dec := json.NewDecoder(bufio.NewReader(os.Stdin))
		for {
			var c command.Command
			if err := dec.Decode(&c); err != nil {
				return
			}
		}
	}()

	enc := json.NewEncoder(os.Stdout)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-sig:
			os.Exit(0)
		case <-ticker.C:
			_ = enc.Encode(status.NetworkStatus{Drives: []status.DriveStatus{{Position: 0, Statusword: 0x27}}})
		}
	}
}

func testConfig() netconfig.NetworkConfig {
	return netconfig.NetworkConfig{
		MasterIndex:      9999,
		CyclePeriod:      time.Millisecond,
		ShutdownJoinWait: 500 * time.Millisecond,
	}
}

func TestStartAndStopRoundTrip(t *testing.T) {
	sup := New(testConfig(), "", logging.NewDiscardLogger())

	cmds := make(chan command.Command, 8)
	statuses := make(chan status.NetworkStatus, 8)

	require.NoError(t, sup.Start(cmds, statuses))

	select {
	case ns := <-statuses:
		require.Len(t, ns.Drives, 1)
		require.Equal(t, uint16(0x27), ns.Drives[0].Statusword)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for status from worker")
	}

	require.NoError(t, sup.Stop())
	close(cmds)
}

func TestStopWithoutStartReturnsError(t *testing.T) {
	sup := New(testConfig(), "", logging.NewDiscardLogger())
	require.ErrorIs(t, sup.Stop(), ErrNotRunning)
}

func TestStartTwiceReturnsError(t *testing.T) {
	sup := New(testConfig(), "", logging.NewDiscardLogger())
	cmds := make(chan command.Command, 1)
	statuses := make(chan status.NetworkStatus, 1)
	require.NoError(t, sup.Start(cmds, statuses))
	defer func() {
		require.NoError(t, sup.Stop())
		close(cmds)
	}()

	require.ErrorIs(t, sup.Start(cmds, statuses), ErrAlreadyRunning)
}
