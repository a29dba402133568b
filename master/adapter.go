// Package master implements the Master Adapter: a thin, memory-exact
// wrapper over the EtherCAT kernel library. The adapter is
// the only place in the tree that crosses into C, and the only place
// that knows the library's pointer-lifetime and sentinel-termination
// contracts.
package master

// SyncManagerInfo describes one sync manager's PDO assignment, passed
// to SlaveConfigPdos. A sync index of 0xFF terminates the array the
// library actually sees; Go callers just pass a slice, and the cgo
// binding appends the sentinel.
type SyncManagerInfo struct {
	Index      uint8
	Direction  SyncManagerDirection
	PdoIndices []uint16
}

// SyncManagerDirection selects whether a sync manager carries
// outputs (RxPDO, master to slave) or inputs (TxPDO, slave to
// master).
type SyncManagerDirection int

const (
	SyncManagerOutput SyncManagerDirection = iota
	SyncManagerInput
)

// PdoRegistration requests that an object be mapped into a domain at
// a byte offset the library will report back in offsets[]. An object
// index of 0 or 0xFFFF terminates the array the library sees.
type PdoRegistration struct {
	Alias     uint16
	Position  uint16
	Vendor    uint32
	Product   uint32
	Index     uint16
	Subindex  uint8
	BitLength uint8
}

// DCConfig carries one slave's distributed-clock configuration:
// assign_activate plus the sync0/sync1 cycle and shift values passed
// to the kernel library's configure_dc call.
type DCConfig struct {
	AssignActivate uint16
	Sync0Cycle     uint32
	Sync0Shift     int32
	Sync1Cycle     uint32
	Sync1Shift     int32
}

// MasterInfo is the diagnostic summary returned by MasterInfo(). No
// caller in this module copies it into the metrics package's
// link/lost-frame collectors.
type MasterInfo struct {
	SlaveCount    uint32
	LinkUp        bool
	LostFrames    uint64
	TxFrameErrors uint64
}

// SlaveInfo is the diagnostic summary returned by SlaveInfo(pos).
type SlaveInfo struct {
	Position   uint16
	Vendor     uint32
	Product    uint32
	AlState    uint8
	OnlineFlag bool
}

// Domain is an opaque handle to a registered process-data domain,
// returned by CreateDomain and passed back into every domain call.
// Its zero value is never valid; adapters hand out non-zero values
// only on success.
type Domain uint32

// SlaveConfig is an opaque handle to a configured slave, returned by
// ConfigSlave.
type SlaveConfig uint32

// Adapter is the Master Adapter's full contract. The cyclic engine is written against this interface so its
// state machines can be driven by a fake in tests without linking the
// real kernel library.
type Adapter interface {
	Open() error
	Request(masterIndex int) error
	Release() error

	CreateDomain() (Domain, error)
	ConfigSlave(alias uint16, position uint16, vendor, product uint32) (SlaveConfig, error)
	SlaveConfigPdos(cfg SlaveConfig, syncInfos []SyncManagerInfo) error
	RegisterPdoEntryList(domain Domain, regs []PdoRegistration) ([]uint32, error)
	ConfigureDC(cfg SlaveConfig, dc DCConfig) error
	SelectReferenceClock(cfg SlaveConfig) error

	SdoDownload(position uint16, index uint16, subindex uint8, data []byte) error
	SdoUpload(position uint16, index uint16, subindex uint8) ([]byte, error)

	SetApplicationTime(ns int64) error
	Activate() error
	Receive() error
	ProcessDomain(domain Domain) error
	QueueDomain(domain Domain) error
	Send() error

	ReadDomain(domain Domain, offset uint32, size int) ([]byte, error)
	WriteDomain(domain Domain, offset uint32, data []byte) error

	MasterInfo() (MasterInfo, error)
	SlaveInfo(position uint16) (SlaveInfo, error)
}
