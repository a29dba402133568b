// Package esi defines the contract the cyclic engine consumes from the
// ESI XML decoder collaborator. The decoder itself — parsing vendor ESI
// files into sync-manager and PDO-entry descriptors — is not
// reimplemented here; this package only types the feature set the
// engine reads, plus a minimal loader for the common case of a
// single-file ESI reference so the rest of the tree has something
// concrete to run against in tests.
package esi

import (
	"encoding/xml"
	"fmt"
	"os"

	"github.com/ecatcyclic/ecatmgr/wire"
)

// PdoEntry describes one mapped object inside a PDO, the unit the
// master adapter registers against a domain.
type PdoEntry struct {
	Object    wire.Object
	BitLength uint8
}

// PdoDescriptor describes a single receive or transmit PDO: its own
// index and the ordered list of entries mapped into it.
type PdoDescriptor struct {
	Index   uint16
	Entries []PdoEntry
}

// FeatureSet is everything the cyclic engine needs out of a drive's
// ESI file: its default PDO layout and the small set of
// vendor-variable choices that differ across drive models.
type FeatureSet struct {
	RxPDOs []PdoDescriptor
	TxPDOs []PdoDescriptor

	// NegativeEdgeProbeObject resolves which register a drive's
	// touch-probe negative-edge latch lives at: some drives expose it
	// at 0x60BB, others at 0x60BC. Zero value means "unset"; callers
	// fall back to wire.ObjProbeNegPosB.
	NegativeEdgeProbeObject wire.Object

	// SupportsPreopPolarityWrite records whether this drive's firmware
	// accepts a polarity (0x607E) write outside PREOP. The cyclic
	// engine does not read it and issues no polarity write.
	SupportsPreopPolarityWrite bool
}

// esiDocument is the minimal subset of the ETG.2000 ESI XML schema this
// loader understands: enough to build a FeatureSet for common single-
// device files. Anything the subset doesn't recognize is ignored
// rather than rejected, since ESI files carry far more than this
// engine needs (documentation, icons, localized names, ...).
type esiDocument struct {
	XMLName xml.Name `xml:"EtherCATInfo"`
	Devices []struct {
		RxPdo []esiPdo `xml:"RxPdo"`
		TxPdo []esiPdo `xml:"TxPdo"`
	} `xml:"Descriptions>Devices>Device"`
}

type esiPdo struct {
	Index string `xml:"Index"`
	Entry []struct {
		Index    string `xml:"Index"`
		SubIndex uint8  `xml:"SubIndex"`
		BitLen   uint8  `xml:"BitLen"`
	} `xml:"Entry"`
}

// LoadFile parses the ESI XML file at path into a FeatureSet. This is
// the external collaborator's contract being exercised minimally, not
// a full ESI decoder: vendor-specific extensions, device selection
// among multiple <Device> blocks, and localization are not handled.
// Callers with a richer decoder available are expected to build a
// FeatureSet directly instead of calling LoadFile.
func LoadFile(path string) (FeatureSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return FeatureSet{}, fmt.Errorf("esi: read %s: %w", path, err)
	}
	var doc esiDocument
	if err := xml.Unmarshal(b, &doc); err != nil {
		return FeatureSet{}, fmt.Errorf("esi: parse %s: %w", path, err)
	}
	if len(doc.Devices) == 0 {
		return FeatureSet{}, fmt.Errorf("esi: %s: no <Device> block found", path)
	}
	dev := doc.Devices[0]
	fs := FeatureSet{
		RxPDOs: convertPdos(dev.RxPdo),
		TxPDOs: convertPdos(dev.TxPdo),
	}
	return fs, nil
}

func convertPdos(in []esiPdo) []PdoDescriptor {
	out := make([]PdoDescriptor, 0, len(in))
	for _, p := range in {
		idx, err := parseHexOrDec(p.Index)
		if err != nil {
			continue
		}
		entries := make([]PdoEntry, 0, len(p.Entry))
		for _, e := range p.Entry {
			eidx, err := parseHexOrDec(e.Index)
			if err != nil || eidx == 0 {
				continue
			}
			entries = append(entries, PdoEntry{
				Object:    wire.Object{Index: eidx, Subindex: e.SubIndex},
				BitLength: e.BitLen,
			})
		}
		out = append(out, PdoDescriptor{Index: idx, Entries: entries})
	}
	return out
}

func parseHexOrDec(s string) (uint16, error) {
	var v uint32
	if _, err := fmt.Sscanf(s, "#x%x", &v); err == nil {
		return uint16(v), nil
	}
	if _, err := fmt.Sscanf(s, "0x%x", &v); err == nil {
		return uint16(v), nil
	}
	_, err := fmt.Sscanf(s, "%d", &v)
	return uint16(v), err
}

// NegativeProbeObject returns fs's configured negative-edge probe
// object, falling back to the common default (0x60BB) when unset.
func (fs FeatureSet) NegativeProbeObject() wire.Object {
	if fs.NegativeEdgeProbeObject != (wire.Object{}) {
		return fs.NegativeEdgeProbeObject
	}
	return wire.ObjProbeNegPosB
}

// HasEntry reports whether any RxPDO or TxPDO in fs maps obj.
func (fs FeatureSet) HasEntry(obj wire.Object) bool {
	for _, pdos := range [][]PdoDescriptor{fs.RxPDOs, fs.TxPDOs} {
		for _, p := range pdos {
			for _, e := range p.Entries {
				if e.Object == obj {
					return true
				}
			}
		}
	}
	return false
}
