package esi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ecatcyclic/ecatmgr/wire"
)

const sampleESI = `<?xml version="1.0"?>
<EtherCATInfo>
  <Descriptions>
    <Devices>
      <Device>
        <RxPdo>
          <Index>#x1600</Index>
          <Entry>
            <Index>#x6040</Index>
            <SubIndex>0</SubIndex>
            <BitLen>16</BitLen>
          </Entry>
        </RxPdo>
        <TxPdo>
          <Index>#x1a00</Index>
          <Entry>
            <Index>#x6041</Index>
            <SubIndex>0</SubIndex>
            <BitLen>16</BitLen>
          </Entry>
        </TxPdo>
      </Device>
    </Devices>
  </Descriptions>
</EtherCATInfo>`

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "drive.xml")
	if err := os.WriteFile(path, []byte(sampleESI), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	fs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !fs.HasEntry(wire.ObjControlword) {
		t.Fatalf("expected controlword entry in RxPDO")
	}
	if !fs.HasEntry(wire.ObjStatusword) {
		t.Fatalf("expected statusword entry in TxPDO")
	}
	if fs.NegativeProbeObject() != wire.ObjProbeNegPosB {
		t.Fatalf("expected default negative probe object fallback")
	}
}
