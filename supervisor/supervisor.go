// Package supervisor implements the Process Supervisor: the
// single long-lived process that owns no master handle itself, spawns
// an isolated cyclic-worker process, wires the command and status
// queues across that process boundary, and tears the worker down
// gracefully on shutdown (SIGINT, then a bounded wait, then Kill).
package supervisor

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/ecatcyclic/ecatmgr/command"
	"github.com/ecatcyclic/ecatmgr/logging"
	"github.com/ecatcyclic/ecatmgr/master"
	"github.com/ecatcyclic/ecatmgr/netconfig"
	"github.com/ecatcyclic/ecatmgr/status"
)

// WorkerEnvVar is the environment variable the supervisor sets on the
// re-exec'd child so cmd/ecatcyclicd knows to run as the cyclic worker
// instead of spawning one.
const WorkerEnvVar = "ECATCYCLICD_WORKER"

var ErrNotRunning = errors.New("supervisor: not running")
var ErrAlreadyRunning = errors.New("supervisor: already running")

// Supervisor owns the child process lifecycle. It never touches the
// master adapter directly; that handle lives entirely inside the
// worker process.
type Supervisor struct {
	cfg        netconfig.NetworkConfig
	configPath string
	log        *logging.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// New creates a Supervisor for the network described by configPath.
// The worker process re-reads configPath itself rather than the
// config being marshaled across the process boundary, so cfg here is
// used only for ShutdownJoinWait and preflight decisions.
func New(cfg netconfig.NetworkConfig, configPath string, log *logging.Logger) *Supervisor {
	if log == nil {
		log = logging.NewDiscardLogger()
	}
	return &Supervisor{cfg: cfg, configPath: configPath, log: log}
}

// Start spawns the cyclic worker as a re-exec of the current binary
// and begins relaying commands and status across the wired pipes.
func (s *Supervisor) Start(cmds <-chan command.Command, statuses chan<- status.NetworkStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil {
		return ErrAlreadyRunning
	}

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("supervisor: resolve self: %w", err)
	}

	cmd := exec.Command(self, "-config-file-override", s.configPath)
	cmd.Env = append(os.Environ(), WorkerEnvVar+"=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	cmdIn, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("supervisor: stdin pipe: %w", err)
	}
	statusOut, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("supervisor: stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := maybeReleaseStaleLock(s.cfg); err != nil {
		s.log.Warn("preflight stale-lock release failed", logging.KVErr(err))
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("supervisor: start worker: %w", err)
	}
	s.cmd = cmd
	s.done = make(chan struct{})

	go s.relayCommands(cmdIn, cmds)
	go s.relayStatus(statusOut, statuses)
	go s.wait()

	return nil
}

func (s *Supervisor) relayCommands(w io.WriteCloser, cmds <-chan command.Command) {
	defer w.Close()
	enc := json.NewEncoder(w)
	for c := range cmds {
		if err := enc.Encode(c); err != nil {
			s.log.Warn("command relay write failed", logging.KVErr(err))
			return
		}
	}
}

func (s *Supervisor) relayStatus(r io.ReadCloser, statuses chan<- status.NetworkStatus) {
	defer r.Close()
	dec := json.NewDecoder(bufio.NewReader(r))
	for {
		var ns status.NetworkStatus
		if err := dec.Decode(&ns); err != nil {
			if err != io.EOF {
				s.log.Warn("status relay read failed", logging.KVErr(err))
			}
			return
		}
		select {
		case statuses <- ns:
		default:
			// Mirrors the bounded status queue's drop-oldest policy at
			// the process boundary: a stalled consumer never backs up
			// the worker's pipe write.
			select {
			case <-statuses:
			default:
			}
			statuses <- ns
		}
	}
}

func (s *Supervisor) wait() {
	err := s.cmd.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.log.Error("cyclic worker exited", logging.KVErr(err))
	} else {
		s.log.Info("cyclic worker exited")
	}
	close(s.done)
}

// Stop requests graceful shutdown: SIGINT, then a bounded wait for the
// worker to exit, then Kill.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	cmd := s.cmd
	done := s.done
	s.mu.Unlock()
	if cmd == nil {
		return ErrNotRunning
	}

	if cmd.Process != nil {
		if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
			return fmt.Errorf("supervisor: signal worker: %w", err)
		}
	}

	wait := s.cfg.ShutdownJoinWait
	if wait <= 0 {
		wait = netconfig.DefaultShutdownJoinWait
	}
	select {
	case <-done:
	case <-time.After(wait):
		s.log.Warn("cyclic worker did not exit within bounded wait, killing")
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-done
	}

	s.mu.Lock()
	s.cmd = nil
	s.mu.Unlock()
	return nil
}

// maybeReleaseStaleLock performs the supervisor's optional best-effort
// stale-holder release: if the master's device lock is
// held by a process that no longer exists, release it before spawning
// the worker so the worker's own Request doesn't fail spuriously.
func maybeReleaseStaleLock(cfg netconfig.NetworkConfig) error {
	if !cfg.PreflightEnabled {
		return nil
	}
	lock, err := master.AcquireDeviceLock(cfg.MasterIndex)
	if err != nil {
		// Held by a live process; nothing to clean up.
		return nil
	}
	return lock.Release()
}
