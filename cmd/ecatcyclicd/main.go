// Command ecatcyclicd is the single binary for the fieldbus manager.
// By default it runs as the process supervisor; when
// re-exec'd with supervisor.WorkerEnvVar set, it instead runs as the
// isolated cyclic worker that the supervisor spawned.
// Startup loads config, builds the logger, starts the child, and waits
// for a quit signal before tearing the child down.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ecatcyclic/ecatmgr/logging"
	"github.com/ecatcyclic/ecatmgr/netconfig"
	"github.com/ecatcyclic/ecatmgr/supervisor"
	"github.com/ecatcyclic/ecatmgr/utils"
	"github.com/ecatcyclic/ecatmgr/version"
)

const defaultConfigLoc = `/opt/ecatcyclicd/etc/ecatcyclicd.conf`

var (
	cfgOverride = flag.String("config-file-override", "", "Override config file path")
	verFlag     = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *verFlag {
		version.Print(os.Stdout)
		os.Exit(0)
	}

	cfgPath := defaultConfigLoc
	if *cfgOverride != "" {
		cfgPath = *cfgOverride
	}

	cfg, err := netconfig.LoadFile(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ecatcyclicd: load config:", err)
		os.Exit(1)
	}
	if err := cfg.Verify(); err != nil {
		fmt.Fprintln(os.Stderr, "ecatcyclicd: invalid config:", err)
		os.Exit(1)
	}

	lg, err := logging.NewStderrLogger("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "ecatcyclicd: logger init:", err)
		os.Exit(1)
	}
	defer lg.Close()
	version.Print(lg)
	logging.PrintOSInfo(lg)

	if os.Getenv(supervisor.WorkerEnvVar) != "" {
		runWorker(cfg, lg)
		return
	}
	runSupervisor(cfg, cfgPath, lg)
}

func waitForQuit() os.Signal {
	return utils.WaitForQuit()
}
