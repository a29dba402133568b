//go:build !cgo

package master

// NewCgoAdapter is unavailable in a build without cgo enabled. It
// still satisfies the Adapter interface so callers that select an
// adapter at runtime don't need a build-tagged call site; every method
// just reports the library as unreachable.
func NewCgoAdapter() Adapter {
	return noCgoAdapter{}
}

type noCgoAdapter struct{}

func (noCgoAdapter) Open() error                    { return ErrLibraryUnavailable }
func (noCgoAdapter) Request(int) error              { return ErrLibraryUnavailable }
func (noCgoAdapter) Release() error                 { return nil }
func (noCgoAdapter) CreateDomain() (Domain, error)  { return 0, ErrLibraryUnavailable }
func (noCgoAdapter) ConfigSlave(uint16, uint16, uint32, uint32) (SlaveConfig, error) {
	return 0, ErrLibraryUnavailable
}
func (noCgoAdapter) SlaveConfigPdos(SlaveConfig, []SyncManagerInfo) error {
	return ErrLibraryUnavailable
}
func (noCgoAdapter) RegisterPdoEntryList(Domain, []PdoRegistration) ([]uint32, error) {
	return nil, ErrLibraryUnavailable
}
func (noCgoAdapter) ConfigureDC(SlaveConfig, DCConfig) error    { return ErrLibraryUnavailable }
func (noCgoAdapter) SelectReferenceClock(SlaveConfig) error     { return ErrLibraryUnavailable }
func (noCgoAdapter) SdoDownload(uint16, uint16, uint8, []byte) error {
	return ErrLibraryUnavailable
}
func (noCgoAdapter) SdoUpload(uint16, uint16, uint8) ([]byte, error) {
	return nil, ErrLibraryUnavailable
}
func (noCgoAdapter) SetApplicationTime(int64) error             { return ErrLibraryUnavailable }
func (noCgoAdapter) Activate() error                            { return ErrLibraryUnavailable }
func (noCgoAdapter) Receive() error                             { return ErrLibraryUnavailable }
func (noCgoAdapter) ProcessDomain(Domain) error                 { return ErrLibraryUnavailable }
func (noCgoAdapter) QueueDomain(Domain) error                   { return ErrLibraryUnavailable }
func (noCgoAdapter) Send() error                                { return ErrLibraryUnavailable }
func (noCgoAdapter) ReadDomain(Domain, uint32, int) ([]byte, error) {
	return nil, ErrLibraryUnavailable
}
func (noCgoAdapter) WriteDomain(Domain, uint32, []byte) error   { return ErrLibraryUnavailable }
func (noCgoAdapter) MasterInfo() (MasterInfo, error)            { return MasterInfo{}, ErrLibraryUnavailable }
func (noCgoAdapter) SlaveInfo(uint16) (SlaveInfo, error)        { return SlaveInfo{}, ErrLibraryUnavailable }
