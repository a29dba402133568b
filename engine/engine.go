// Package engine implements the Cyclic Engine: the
// fixed-period loop that owns the EtherCAT master handle, drains
// commands into per-drive intent, drives the CiA 402 and related
// sub-state machines, and publishes throttled status. It runs single-
// threaded inside the isolated process the supervisor spawns.
package engine

import (
	"fmt"
	"time"

	"github.com/ecatcyclic/ecatmgr/command"
	"github.com/ecatcyclic/ecatmgr/esi"
	"github.com/ecatcyclic/ecatmgr/intent"
	"github.com/ecatcyclic/ecatmgr/logging"
	"github.com/ecatcyclic/ecatmgr/master"
	"github.com/ecatcyclic/ecatmgr/metrics"
	"github.com/ecatcyclic/ecatmgr/netconfig"
	"github.com/ecatcyclic/ecatmgr/pdo"
	"github.com/ecatcyclic/ecatmgr/queue"
	"github.com/ecatcyclic/ecatmgr/status"
	"github.com/ecatcyclic/ecatmgr/wire"
)

// DefaultCommandDrainBudget is the default per-cycle command drain
// budget: at most this many queued commands are applied per cycle.
const DefaultCommandDrainBudget = 16

// PublishInterval is the status publisher's cadence, fixed regardless
// of cycle period.
const PublishInterval = 50 * time.Millisecond

// sdoFallbackInterval bounds how often an unmapped object is
// re-downloaded via SDO when its value hasn't changed.
const sdoFallbackInterval = time.Second

// driveState is the engine's bookkeeping for one configured drive:
// its static config, its intent state machine, and the PDO offsets
// discovered at startup.
type driveState struct {
	cfg     netconfig.DriveConfig
	slave   master.SlaveConfig
	offsets pdo.OffsetMap
	in      *intent.Drive
	log     *logging.DriveLogger

	lastSdoWrite map[wire.Object]time.Time
	lastSdoValue map[wire.Object]uint32
}

// Engine is the cyclic engine's live state for one network, wired by
// the process supervisor at startup.
type Engine struct {
	cfg     netconfig.NetworkConfig
	adapter master.Adapter
	domain  master.Domain

	drives   []*driveState
	byPos    map[uint16]*driveState
	cmdQueue *queue.Bounded[command.Command]
	statusQ  *queue.Bounded[status.NetworkStatus]
	metrics  *metrics.Metrics
	log      *logging.Logger

	// Preflight is the supervisor's optional best-effort stale-holder
	// releaser. Nil disables the preflight retry even if
	// cfg.PreflightEnabled is set.
	Preflight func() error

	lastPublish     time.Time
	cmdOverflows    uint64
	statusQOverflow uint64
}

// New wires an Engine from its configuration and collaborators. The
// returned Engine has not yet requested the master; call Startup.
func New(cfg netconfig.NetworkConfig, adapter master.Adapter, cmdQueue *queue.Bounded[command.Command], statusQ *queue.Bounded[status.NetworkStatus], m *metrics.Metrics, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.NewDiscardLogger()
	}
	return &Engine{
		cfg:      cfg,
		adapter:  adapter,
		byPos:    make(map[uint16]*driveState),
		cmdQueue: cmdQueue,
		statusQ:  statusQ,
		metrics:  m,
		log:      log,
	}
}

// Startup runs the one-time startup sequence: request the
// master (with optional preflight), create the domain, configure each
// drive's PDOs and DC, activate, wait for OP, and build each drive's
// PdoOffsetMap and DriveIntent.
func (e *Engine) Startup(now time.Time) error {
	if err := e.requestMaster(); err != nil {
		return err
	}
	domain, err := e.adapter.CreateDomain()
	if err != nil {
		return fmt.Errorf("engine: create domain: %w", err)
	}
	e.domain = domain

	referenceAssigned := false
	for _, dc := range e.cfg.Drives {
		ds, err := e.configureDrive(dc)
		if err != nil {
			return err
		}
		if dc.DC.Enable && !referenceAssigned {
			if err := e.adapter.SelectReferenceClock(ds.slave); err != nil {
				return fmt.Errorf("engine: select reference clock for drive %d: %w", dc.Position, err)
			}
			referenceAssigned = true
		}
		e.drives = append(e.drives, ds)
		e.byPos[dc.Position] = ds
	}

	if err := e.adapter.SetApplicationTime(now.UnixNano()); err != nil {
		return fmt.Errorf("engine: set application time: %w", err)
	}
	if err := e.adapter.Activate(); err != nil {
		return fmt.Errorf("engine: activate: %w", err)
	}

	if err := e.waitForOp(); err != nil {
		return err
	}

	if !e.cfg.SdoOnly {
		for _, ds := range e.drives {
			for _, obj := range []wire.Object{wire.ObjControlword, wire.ObjStatusword} {
				if netconfig.RequiresPdo(obj) && !ds.offsets.Has(obj) {
					return fmt.Errorf("engine: drive %d: controlword/statusword not mapped in PDO (required unless sdo-only)", ds.cfg.Position)
				}
			}
		}
	}
	return nil
}

func (e *Engine) requestMaster() error {
	err := e.adapter.Request(e.cfg.MasterIndex)
	if err == nil {
		return nil
	}
	if !e.cfg.PreflightEnabled || e.Preflight == nil {
		return fmt.Errorf("engine: request master %d: %w", e.cfg.MasterIndex, err)
	}
	e.log.Warn("master request failed, attempting preflight release", logging.KVErrKind(err)...)
	if perr := e.Preflight(); perr != nil {
		e.log.Warn("preflight releaser failed", logging.KVErrKind(perr)...)
	}
	time.Sleep(e.cfg.PreflightDelay)
	if err := e.adapter.Request(e.cfg.MasterIndex); err != nil {
		return fmt.Errorf("engine: request master %d after preflight: %w", e.cfg.MasterIndex, err)
	}
	return nil
}

func (e *Engine) configureDrive(dc netconfig.DriveConfig) (*driveState, error) {
	sc, err := e.adapter.ConfigSlave(dc.Alias, dc.Position, dc.Vendor, dc.Product)
	if err != nil {
		return nil, fmt.Errorf("engine: config slave %d: %w", dc.Position, err)
	}

	rx, err := dc.RxPDOs()
	if err != nil {
		return nil, fmt.Errorf("engine: drive %d: rx pdos: %w", dc.Position, err)
	}
	tx, err := dc.TxPDOs()
	if err != nil {
		return nil, fmt.Errorf("engine: drive %d: tx pdos: %w", dc.Position, err)
	}

	syncInfos := []master.SyncManagerInfo{
		{Index: 0, Direction: master.SyncManagerOutput, PdoIndices: indicesOf(rx)},
		{Index: 1, Direction: master.SyncManagerInput, PdoIndices: indicesOf(tx)},
	}
	if err := e.adapter.SlaveConfigPdos(sc, syncInfos); err != nil {
		return nil, fmt.Errorf("engine: drive %d: slave config pdos: %w", dc.Position, err)
	}

	var objs []wire.Object
	var regs []master.PdoRegistration
	for _, descList := range [][]esi.PdoDescriptor{rx, tx} {
		for _, desc := range descList {
			for _, entry := range desc.Entries {
				objs = append(objs, entry.Object)
				regs = append(regs, master.PdoRegistration{
					Alias: dc.Alias, Position: dc.Position, Vendor: dc.Vendor, Product: dc.Product,
					Index: entry.Object.Index, Subindex: entry.Object.Subindex, BitLength: entry.BitLength,
				})
			}
		}
	}
	offsets, err := e.adapter.RegisterPdoEntryList(e.domain, regs)
	if err != nil {
		return nil, fmt.Errorf("engine: drive %d: register pdo entries: %w", dc.Position, err)
	}

	if dc.DC.Enable {
		if err := e.adapter.ConfigureDC(sc, master.DCConfig{
			AssignActivate: dc.DC.AssignActivate,
			Sync0Cycle:     dc.DC.Sync0CycleNs,
			Sync0Shift:     dc.DC.Sync0ShiftNs,
			Sync1Cycle:     dc.DC.Sync1CycleNs,
			Sync1Shift:     dc.DC.Sync1ShiftNs,
		}); err != nil {
			return nil, fmt.Errorf("engine: drive %d: configure dc: %w", dc.Position, err)
		}
	}

	icfg := intent.DefaultConfig()
	icfg.EnableTransitionPacing = e.cfg.EnableTransitionPacing
	icfg.PPAckTimeout = e.cfg.PPAckTimeout

	ds := &driveState{
		cfg:          dc,
		slave:        sc,
		offsets:      pdo.NewOffsetMap(objs, offsets),
		in:           intent.NewDrive(dc.Position, icfg),
		log:          logging.NewDriveLogger(e.log, dc.Position),
		lastSdoWrite: make(map[wire.Object]time.Time),
		lastSdoValue: make(map[wire.Object]uint32),
	}
	ds.log.Info("drive configured", logging.KV("pdoObjects", len(objs)))
	return ds, nil
}

// indicesOf returns the PDO indices of descs, in order, for the
// sync-manager assignment SlaveConfigPdos expects.
func indicesOf(descs []esi.PdoDescriptor) []uint16 {
	out := make([]uint16, len(descs))
	for i, d := range descs {
		out[i] = d.Index
	}
	return out
}

func (e *Engine) waitForOp() error {
	deadline := time.Now().Add(e.cfg.OpStateTimeout)
	if e.cfg.OpStateTimeout <= 0 {
		deadline = time.Now().Add(30 * time.Second)
	}
	for {
		allOp := true
		for _, ds := range e.drives {
			si, err := e.adapter.SlaveInfo(ds.cfg.Position)
			if err != nil {
				return fmt.Errorf("engine: slave info %d: %w", ds.cfg.Position, err)
			}
			const alStateOp = 0x08
			if si.AlState != alStateOp {
				allOp = false
				break
			}
		}
		if allOp {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("engine: timed out waiting for all slaves to reach OP")
		}
		time.Sleep(time.Second)
	}
}

// Shutdown tears the engine down cooperatively. The master adapter
// interface has no explicit deactivate call distinct from Release; the
// adapter's Release is where that happens.
func (e *Engine) Shutdown() error {
	return e.adapter.Release()
}
