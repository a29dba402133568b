package engine

import (
	"time"

	"github.com/ecatcyclic/ecatmgr/intent"
	"github.com/ecatcyclic/ecatmgr/logging"
	"github.com/ecatcyclic/ecatmgr/pdo"
	"github.com/ecatcyclic/ecatmgr/status"
	"github.com/ecatcyclic/ecatmgr/wire"
)

// RunCycle executes one iteration of the per-cycle sequence: drain
// commands, exchange process data, apply drive intent, queue and send
// the domain, and publish status at the configured cadence. Pacing the
// sleep between cycles is the caller's responsibility, see Run.
func (e *Engine) RunCycle(now time.Time) error {
	for _, c := range e.cmdQueue.DrainUpTo(DefaultCommandDrainBudget) {
		if ds, ok := e.byPos[c.Position]; ok {
			ds.in.Apply(now, c)
		}
	}

	if !e.cfg.SdoOnly {
		if err := e.adapter.SetApplicationTime(now.UnixNano()); err != nil {
			return err
		}
		if err := e.adapter.Receive(); err != nil {
			return err
		}
		if err := e.adapter.ProcessDomain(e.domain); err != nil {
			return err
		}
	}

	for _, ds := range e.drives {
		if err := e.applyDrive(now, ds); err != nil {
			return err
		}
	}

	if !e.cfg.SdoOnly {
		if err := e.adapter.QueueDomain(e.domain); err != nil {
			return err
		}
		if err := e.adapter.Send(); err != nil {
			return err
		}
	}

	if now.Sub(e.lastPublish) >= PublishInterval {
		snap := e.snapshot(now)
		if err := e.statusQ.Push(snap); err != nil {
			e.statusQOverflow++
		}
		e.lastPublish = now
	}
	return nil
}

// readObject returns the current value of obj for ds, preferring PDO
// and falling back to SDO when unmapped. size is the object's byte
// width (2 or 4).
func (e *Engine) readObject(ds *driveState, obj wire.Object, size int) (uint32, pdo.Health, error) {
	if off, ok := ds.offsets.Offset(obj); ok {
		b, err := e.adapter.ReadDomain(e.domain, off, size)
		if err != nil {
			return 0, pdo.HealthError, err
		}
		if size == 2 {
			return uint32(wire.U16(b)), pdo.HealthMapped, nil
		}
		return binaryU32(b), pdo.HealthMapped, nil
	}
	b, err := e.adapter.SdoUpload(ds.cfg.Position, obj.Index, obj.Subindex)
	if err != nil {
		return 0, pdo.HealthError, err
	}
	if len(b) < 2 {
		return 0, pdo.HealthError, nil
	}
	if size == 2 {
		return uint32(wire.U16(b)), pdo.HealthMissing, nil
	}
	return binaryU32(b), pdo.HealthMissing, nil
}

func binaryU32(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return uint32(wire.I32(b))
}

// writeObject writes v to obj for ds, preferring PDO. When unmapped,
// it falls back to SDO at most once per sdoFallbackInterval unless the
// value changed.
func (e *Engine) writeObject(now time.Time, ds *driveState, obj wire.Object, v uint32, size int) error {
	if off, ok := ds.offsets.Offset(obj); ok {
		b := make([]byte, size)
		if size == 2 {
			wire.PutU16(b, uint16(v))
		} else {
			wire.PutI32(b, int32(v))
		}
		return e.adapter.WriteDomain(e.domain, off, b)
	}

	last, wrote := ds.lastSdoValue[obj]
	lastAt := ds.lastSdoWrite[obj]
	changed := !wrote || last != v
	if !changed && now.Sub(lastAt) < sdoFallbackInterval {
		return nil
	}
	b := make([]byte, size)
	if size == 2 {
		wire.PutU16(b, uint16(v))
	} else {
		wire.PutI32(b, int32(v))
	}
	if err := e.adapter.SdoDownload(ds.cfg.Position, obj.Index, obj.Subindex, b); err != nil {
		return err
	}
	ds.lastSdoValue[obj] = v
	ds.lastSdoWrite[obj] = now
	if e.metrics != nil {
		e.metrics.SdoFallbackTotal.WithLabelValues(drivePosLabel(ds.cfg.Position), objLabel(obj)).Inc()
	}
	ds.log.Warn("sdo fallback write", logging.KV("object", objLabel(obj)), logging.KV("value", v))
	return nil
}

func (e *Engine) applyDrive(now time.Time, ds *driveState) error {
	statusword, _, err := e.readObject(ds, wire.ObjStatusword, 2)
	if err != nil {
		return err
	}
	var modeDisplay *int8
	if ds.offsets.Has(wire.ObjModesDisplay) {
		md, _, err := e.readObject(ds, wire.ObjModesDisplay, 2)
		if err == nil {
			v := int8(md)
			modeDisplay = &v
		} else {
			ds.log.Warn("mode-display read failed", logging.KVErr(err))
		}
	}
	posActual, _, err := e.readObject(ds, wire.ObjPositionActual, 4)
	if err != nil {
		return err
	}
	var probeReadback *uint16
	if ds.offsets.Has(wire.ObjProbeFunction) {
		pf, _, err := e.readObject(ds, wire.ObjProbeFunction, 2)
		if err == nil {
			v := uint16(pf)
			probeReadback = &v
		} else {
			ds.log.Warn("probe-function read failed", logging.KVErr(err))
		}
	}

	in := intent.Inputs{
		Now:            now,
		Statusword:     uint16(statusword),
		ModeDisplay:    modeDisplay,
		PositionActual: int32(posActual),
		ProbeReadback:  probeReadback,
		StatuswordAck:  uint16(statusword)&e.cfg.PPAckMask != 0,
		HomingAttained: uint16(statusword)&(1<<12) != 0 && uint16(statusword)&(1<<10) != 0,
		HomingFailed:   uint16(statusword)&(1<<13) != 0,
	}
	out := ds.in.Step(in)

	if out.Controlword != nil {
		if err := e.writeObject(now, ds, wire.ObjControlword, uint32(*out.Controlword), 2); err != nil {
			return err
		}
	}
	if out.Mode != nil {
		if err := e.writeObject(now, ds, wire.ObjModesOfOperation, uint32(uint8(*out.Mode)), 2); err != nil {
			return err
		}
	}
	if out.Velocity != nil {
		if err := e.writeObject(now, ds, wire.ObjTargetVelocity, uint32(*out.Velocity), 4); err != nil {
			return err
		}
	}
	if out.Position != nil {
		if err := e.writeObject(now, ds, wire.ObjTargetPosition, uint32(*out.Position), 4); err != nil {
			return err
		}
	}
	if out.ProbeWrite != nil {
		if err := e.writeObject(now, ds, wire.ObjProbeFunction, uint32(*out.ProbeWrite), 2); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) snapshot(now time.Time) status.NetworkStatus {
	ns := status.NetworkStatus{
		TimestampNs: now.UnixNano(),
		CyclePeriod: int64(e.cfg.CyclePeriod),
		SdoOnly:     e.cfg.SdoOnly,
	}
	for _, ds := range e.drives {
		ds := ds
		sw, _, _ := e.readObject(ds, wire.ObjStatusword, 2)
		pos, _, _ := e.readObject(ds, wire.ObjPositionActual, 4)

		health := map[wire.Object]pdo.Health{
			wire.ObjControlword: ds.offsets.Health(wire.ObjControlword),
			wire.ObjStatusword:  ds.offsets.Health(wire.ObjStatusword),
		}
		ns.Drives = append(ns.Drives, status.DriveStatus{
			Position:              ds.cfg.Position,
			Statusword:            uint16(sw),
			PositionActual:        int32(pos),
			Homing:                ds.in.HomingState(),
			ModeVerifyFailed:      false,
			CommandQueueOverflows: e.cmdOverflows,
			ObjectHealth:          health,
		})
	}
	return ns
}

func drivePosLabel(pos uint16) string {
	return uintToString(uint32(pos))
}

func objLabel(obj wire.Object) string {
	return uintToString(uint32(obj.Index))
}

func uintToString(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
