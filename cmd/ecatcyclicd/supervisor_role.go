package main

import (
	"github.com/ecatcyclic/ecatmgr/command"
	"github.com/ecatcyclic/ecatmgr/logging"
	"github.com/ecatcyclic/ecatmgr/netconfig"
	"github.com/ecatcyclic/ecatmgr/status"
	"github.com/ecatcyclic/ecatmgr/supervisor"
)

// runSupervisor spawns the cyclic worker and blocks until a quit
// signal arrives, then tears it down.
func runSupervisor(cfg netconfig.NetworkConfig, cfgPath string, lg *logging.Logger) {
	sup := supervisor.New(cfg, cfgPath, lg)

	cmds := make(chan command.Command, 1024)
	statuses := make(chan status.NetworkStatus, 64)

	if err := sup.Start(cmds, statuses); err != nil {
		lg.Fatal("failed to start cyclic worker", logging.KVErr(err))
	}
	lg.Info("cyclic worker started")

	// Drain statuses so the relay never blocks; a real application
	// would fan these out to its own consumers (the drive handle
	// cache, a metrics scrape, etc).
	go func() {
		for range statuses {
		}
	}()

	waitForQuit()
	lg.Info("received shutdown signal, stopping cyclic worker")
	close(cmds)
	if err := sup.Stop(); err != nil {
		lg.Error("cyclic worker shutdown error", logging.KVErr(err))
	}
}
