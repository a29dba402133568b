package netconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gravwell/gcfg"
)

const maxConfigSize int64 = 1 << 20 // 1MB is generous for a drive-count-bounded config

var (
	ErrConfigFileTooLarge = errors.New("netconfig: config file is too large")
	ErrFailedFileRead     = errors.New("netconfig: failed to read entire config file")
)

// fileConfig mirrors the INI structure loaded by gcfg. Field names map
// to the [global] and [drive "position"] sections an operator writes
// in the config file (by default /opt/ecatcyclicd/etc/ecatcyclicd.conf);
// LoadFile converts it into a NetworkConfig.
type fileConfig struct {
	Global struct {
		Master_Index               int
		Cycle_Period_MS            int
		SDO_Only                   bool
		Op_State_Timeout_S         int
		Enable_Transition_Pacing_MS int
		PP_Ack_Mask                uint16
		PP_Ack_Timeout_MS          int
		Shutdown_Join_Wait_MS      int
		Preflight_Enabled          bool
		Preflight_Delay_MS         int
	}
	Drive map[string]*struct {
		Alias           uint16
		Vendor          uint32
		Product         uint32
		ESI_Path        string
		Pulses_Per_Unit float64
		Scale           float64
		Velocity        int32
		Acceleration    int32
		Polarity        uint8
		Max_Velocity    int32
	}
}

// LoadFile reads the gcfg-formatted configuration at path and builds a
// NetworkConfig from it. This is the operator-facing counterpart to
// constructing a NetworkConfig programmatically; both paths converge on
// the same Verify/WithDefaults contract.
func LoadFile(path string) (NetworkConfig, error) {
	fin, err := os.Open(path)
	if err != nil {
		return NetworkConfig{}, err
	}
	defer fin.Close()

	fi, err := fin.Stat()
	if err != nil {
		return NetworkConfig{}, err
	}
	if fi.Size() > maxConfigSize {
		return NetworkConfig{}, ErrConfigFileTooLarge
	}

	bb := bytes.NewBuffer(nil)
	n, err := io.Copy(bb, fin)
	if err != nil {
		return NetworkConfig{}, err
	} else if n != fi.Size() {
		return NetworkConfig{}, ErrFailedFileRead
	}
	return LoadBytes(bb.Bytes())
}

// LoadBytes parses b as a gcfg document and builds a NetworkConfig
// from it.
func LoadBytes(b []byte) (NetworkConfig, error) {
	if int64(len(b)) > maxConfigSize {
		return NetworkConfig{}, ErrConfigFileTooLarge
	}
	var fc fileConfig
	if err := gcfg.ReadStringInto(&fc, string(b)); err != nil {
		return NetworkConfig{}, fmt.Errorf("netconfig: parse: %w", err)
	}
	return fc.toNetworkConfig()
}

func (fc fileConfig) toNetworkConfig() (NetworkConfig, error) {
	nc := NetworkConfig{
		MasterIndex:            fc.Global.Master_Index,
		CyclePeriod:            time.Duration(fc.Global.Cycle_Period_MS) * time.Millisecond,
		SdoOnly:                fc.Global.SDO_Only,
		OpStateTimeout:         time.Duration(fc.Global.Op_State_Timeout_S) * time.Second,
		EnableTransitionPacing: time.Duration(fc.Global.Enable_Transition_Pacing_MS) * time.Millisecond,
		PPAckMask:              fc.Global.PP_Ack_Mask,
		PPAckTimeout:           time.Duration(fc.Global.PP_Ack_Timeout_MS) * time.Millisecond,
		ShutdownJoinWait:       time.Duration(fc.Global.Shutdown_Join_Wait_MS) * time.Millisecond,
		PreflightEnabled:       fc.Global.Preflight_Enabled,
		PreflightDelay:         time.Duration(fc.Global.Preflight_Delay_MS) * time.Millisecond,
	}
	for posStr, d := range fc.Drive {
		var pos uint16
		if _, err := fmt.Sscanf(posStr, "%d", &pos); err != nil {
			return NetworkConfig{}, fmt.Errorf("netconfig: drive section %q: not a bus position: %w", posStr, err)
		}
		scale := d.Scale
		if scale == 0 {
			scale = 1
		}
		nc.Drives = append(nc.Drives, DriveConfig{
			Position: pos,
			Alias:    d.Alias,
			Vendor:   d.Vendor,
			Product:  d.Product,
			ESIPath:  d.ESI_Path,
			Unit: UnitConversion{
				PulsesPerUnit: d.Pulses_Per_Unit,
				Scale:         scale,
			},
			Profile: ProfileDefaults{
				Velocity:     d.Velocity,
				Acceleration: d.Acceleration,
				Polarity:     d.Polarity,
				MaxVelocity:  d.Max_Velocity,
			},
		})
	}
	return nc.WithDefaults(), nil
}
