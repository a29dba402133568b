package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ecatcyclic/ecatmgr/command"
	"github.com/ecatcyclic/ecatmgr/esi"
	"github.com/ecatcyclic/ecatmgr/master"
	"github.com/ecatcyclic/ecatmgr/netconfig"
	"github.com/ecatcyclic/ecatmgr/queue"
	"github.com/ecatcyclic/ecatmgr/status"
	"github.com/ecatcyclic/ecatmgr/wire"
)

// fakeAdapter is an in-memory master.Adapter that keeps a flat domain
// buffer and per-slave SDO store, enough to script the end-to-end
// scenarios without linking the real kernel library.
type fakeAdapter struct {
	domainBuf  []byte
	nextOffset uint32
	slaveAl    map[uint16]uint8
	sdo        map[uint16]map[wire.Object][]byte

	requestErr error
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		domainBuf: make([]byte, 256),
		slaveAl:   make(map[uint16]uint8),
		sdo:       make(map[uint16]map[wire.Object][]byte),
	}
}

func (f *fakeAdapter) Open() error { return nil }
func (f *fakeAdapter) Request(int) error {
	return f.requestErr
}
func (f *fakeAdapter) Release() error { return nil }

func (f *fakeAdapter) CreateDomain() (master.Domain, error) { return master.Domain(1), nil }
func (f *fakeAdapter) ConfigSlave(alias, position uint16, vendor, product uint32) (master.SlaveConfig, error) {
	f.slaveAl[position] = 0x08
	return master.SlaveConfig(position), nil
}
func (f *fakeAdapter) SlaveConfigPdos(master.SlaveConfig, []master.SyncManagerInfo) error { return nil }
func (f *fakeAdapter) RegisterPdoEntryList(d master.Domain, regs []master.PdoRegistration) ([]uint32, error) {
	offsets := make([]uint32, len(regs))
	for i, r := range regs {
		offsets[i] = f.nextOffset
		f.nextOffset += uint32(r.BitLength) / 8
	}
	return offsets, nil
}
func (f *fakeAdapter) ConfigureDC(master.SlaveConfig, master.DCConfig) error  { return nil }
func (f *fakeAdapter) SelectReferenceClock(master.SlaveConfig) error         { return nil }
func (f *fakeAdapter) SdoDownload(position uint16, index uint16, sub uint8, data []byte) error {
	if f.sdo[position] == nil {
		f.sdo[position] = make(map[wire.Object][]byte)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.sdo[position][wire.Object{Index: index, Subindex: sub}] = cp
	return nil
}
func (f *fakeAdapter) SdoUpload(position uint16, index uint16, sub uint8) ([]byte, error) {
	v := f.sdo[position][wire.Object{Index: index, Subindex: sub}]
	if v == nil {
		return make([]byte, 4), nil
	}
	return v, nil
}
func (f *fakeAdapter) SetApplicationTime(int64) error    { return nil }
func (f *fakeAdapter) Activate() error                   { return nil }
func (f *fakeAdapter) Receive() error                    { return nil }
func (f *fakeAdapter) ProcessDomain(master.Domain) error { return nil }
func (f *fakeAdapter) QueueDomain(master.Domain) error   { return nil }
func (f *fakeAdapter) Send() error                       { return nil }

func (f *fakeAdapter) ReadDomain(d master.Domain, offset uint32, size int) ([]byte, error) {
	return f.domainBuf[offset : offset+uint32(size)], nil
}
func (f *fakeAdapter) WriteDomain(d master.Domain, offset uint32, data []byte) error {
	copy(f.domainBuf[offset:], data)
	return nil
}

func (f *fakeAdapter) MasterInfo() (master.MasterInfo, error) { return master.MasterInfo{}, nil }
func (f *fakeAdapter) SlaveInfo(position uint16) (master.SlaveInfo, error) {
	return master.SlaveInfo{Position: position, AlState: f.slaveAl[position], OnlineFlag: true}, nil
}

func testNetworkConfig() netconfig.NetworkConfig {
	fs := esi.FeatureSet{
		RxPDOs: []esi.PdoDescriptor{{Index: 0x1600, Entries: []esi.PdoEntry{
			{Object: wire.ObjControlword, BitLength: 16},
			{Object: wire.ObjModesOfOperation, BitLength: 16},
			{Object: wire.ObjTargetVelocity, BitLength: 32},
		}}},
		TxPDOs: []esi.PdoDescriptor{{Index: 0x1A00, Entries: []esi.PdoEntry{
			{Object: wire.ObjStatusword, BitLength: 16},
			{Object: wire.ObjModesDisplay, BitLength: 16},
			{Object: wire.ObjPositionActual, BitLength: 32},
		}}},
	}
	return netconfig.NetworkConfig{
		MasterIndex:    0,
		CyclePeriod:    time.Millisecond,
		OpStateTimeout: 50 * time.Millisecond,
		Drives: []netconfig.DriveConfig{
			{
				Position: 0, Alias: 0, Vendor: 1, Product: 1,
				Features: fs,
				Unit:     netconfig.UnitConversion{PulsesPerUnit: 1, Scale: 1},
			},
		},
	}.WithDefaults()
}

func newTestEngine(t *testing.T, fa *fakeAdapter) *Engine {
	t.Helper()
	cfg := testNetworkConfig()
	cmdQ := queue.NewBounded[command.Command](1024, queue.PolicyError)
	statusQ := queue.NewBounded[status.NetworkStatus](64, queue.PolicyDropOldest)
	return New(cfg, fa, cmdQ, statusQ, nil, nil)
}

func TestStartupReachesOpState(t *testing.T) {
	fa := newFakeAdapter()
	e := newTestEngine(t, fa)
	require.NoError(t, e.Startup(time.Now()))
	require.Len(t, e.drives, 1)
}

func TestStartupFailsOnMissingControlword(t *testing.T) {
	fa := newFakeAdapter()
	cfg := testNetworkConfig()
	cfg.Drives[0].Features.RxPDOs = nil
	cmdQ := queue.NewBounded[command.Command](8, queue.PolicyError)
	statusQ := queue.NewBounded[status.NetworkStatus](8, queue.PolicyDropOldest)
	e := New(cfg, fa, cmdQ, statusQ, nil, nil)
	err := e.Startup(time.Now())
	require.Error(t, err)
}

func TestRunCycleAppliesVelocityCommand(t *testing.T) {
	fa := newFakeAdapter()
	e := newTestEngine(t, fa)
	require.NoError(t, e.Startup(time.Now()))

	e.cmdQueue.Push(command.New(0, command.KindSetVelocityMode))
	e.cmdQueue.Push(command.SetVelocity(0, 5000))

	now := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, e.RunCycle(now))
		now = now.Add(time.Millisecond)
	}

	off, ok := e.drives[0].offsets.Offset(wire.ObjTargetVelocity)
	require.True(t, ok)
	require.Equal(t, int32(5000), wire.I32(fa.domainBuf[off:off+4]))
}

func TestRunCyclePublishesStatusAtInterval(t *testing.T) {
	fa := newFakeAdapter()
	e := newTestEngine(t, fa)
	require.NoError(t, e.Startup(time.Now()))

	now := time.Now()
	require.NoError(t, e.RunCycle(now))
	_, ok := e.statusQ.Pop()
	require.True(t, ok)

	// Too soon for a second publish.
	require.NoError(t, e.RunCycle(now.Add(time.Millisecond)))
	_, ok = e.statusQ.Pop()
	require.False(t, ok)

	require.NoError(t, e.RunCycle(now.Add(60*time.Millisecond)))
	_, ok = e.statusQ.Pop()
	require.True(t, ok)
}

func TestSdoFallbackWhenObjectUnmapped(t *testing.T) {
	fa := newFakeAdapter()
	cfg := testNetworkConfig()
	cfg.Drives[0].Features.RxPDOs[0].Entries = cfg.Drives[0].Features.RxPDOs[0].Entries[:1] // controlword only
	cmdQ := queue.NewBounded[command.Command](8, queue.PolicyError)
	statusQ := queue.NewBounded[status.NetworkStatus](8, queue.PolicyDropOldest)
	e := New(cfg, fa, cmdQ, statusQ, nil, nil)
	require.NoError(t, e.Startup(time.Now()))

	e.cmdQueue.Push(command.New(0, command.KindSetVelocityMode))
	e.cmdQueue.Push(command.SetVelocity(0, 1234))

	now := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, e.RunCycle(now))
		now = now.Add(time.Millisecond)
	}

	b, ok := fa.sdo[0][wire.ObjTargetVelocity]
	require.True(t, ok)
	require.Equal(t, int32(1234), wire.I32(b))
}
