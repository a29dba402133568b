package main

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/ecatcyclic/ecatmgr/command"
	"github.com/ecatcyclic/ecatmgr/engine"
	"github.com/ecatcyclic/ecatmgr/logging"
	"github.com/ecatcyclic/ecatmgr/master"
	"github.com/ecatcyclic/ecatmgr/metrics"
	"github.com/ecatcyclic/ecatmgr/netconfig"
	"github.com/ecatcyclic/ecatmgr/queue"
	"github.com/ecatcyclic/ecatmgr/status"
)

// runWorker is the isolated cyclic-engine process the supervisor
// spawns. Commands arrive as newline-delimited JSON on
// stdin; status snapshots go out the same way on stdout. This process
// is the only one that ever holds the master handle.
func runWorker(cfg netconfig.NetworkConfig, lg *logging.Logger) {
	lock, err := master.AcquireDeviceLock(cfg.MasterIndex)
	if err != nil {
		lg.Fatal("failed to acquire master device lock", logging.KVErrKind(err)...)
	}
	defer lock.Release()

	cmdQueue := queue.NewBounded[command.Command](1024, queue.PolicyError)
	statusQ := queue.NewBounded[status.NetworkStatus](64, queue.PolicyDropOldest)
	m := metrics.New()

	adapter := master.NewCgoAdapter()
	// Preflight is intentionally left nil here: this process already
	// holds the device lock acquired above, so a master.Request
	// failure is a kernel-library condition the worker cannot itself
	// clear by re-acquiring a lock it already owns. The supervisor's
	// preflight release (run before this process is even spawned) is
	// the place a stale lock from a prior dead worker gets cleared.
	eng := engine.New(cfg, adapter, cmdQueue, statusQ, m, lg)

	stop := make(chan struct{})
	go readCommands(os.Stdin, cmdQueue, lg)
	go writeStatus(os.Stdout, statusQ, stop)

	go func() {
		waitForQuit()
		close(stop)
	}()

	if err := eng.Run(stop); err != nil {
		lg.Error("cyclic engine stopped with error", logging.KVErrKind(err)...)
		os.Exit(1)
	}
}

func readCommands(r io.Reader, q *queue.Bounded[command.Command], lg *logging.Logger) {
	dec := json.NewDecoder(bufio.NewReader(r))
	for {
		var c command.Command
		if err := dec.Decode(&c); err != nil {
			if err != io.EOF {
				lg.Warn("command decode failed", logging.KVErr(err))
			}
			return
		}
		if err := q.Push(c); err != nil {
			lg.Warn("command queue overflow", logging.KVErr(err))
		}
	}
}

func writeStatus(w io.Writer, q *queue.Bounded[status.NetworkStatus], stop <-chan struct{}) {
	enc := json.NewEncoder(w)
	const idleWait = engine.PublishInterval / 2
	for {
		drained := q.DrainUpTo(16)
		for _, ns := range drained {
			_ = enc.Encode(ns)
		}
		select {
		case <-stop:
			return
		default:
		}
		if len(drained) == 0 {
			select {
			case <-stop:
				return
			case <-time.After(idleWait):
			}
		}
	}
}
