package inode

import (
	"github.com/tchajed/marshal"

	"github.com/sectorfs/sectorfs/common"
	"github.com/sectorfs/sectorfs/disk"
)

// SingleIndirect is a one-sector extension of a header's addressing
// range: a count of valid entries and up to NumIndirect data-sector
// pointers.
type SingleIndirect struct {
	count   uint64
	entries [common.NumIndirect]common.Snum
}

// DoubleIndirect is a one-sector table of pointers to SingleIndirect
// blocks, extending the range by NumIndirect² data sectors.
type DoubleIndirect struct {
	count  uint64
	blocks [common.NumIndirect]common.Snum
}

func (b *SingleIndirect) writeBack(d disk.Disk, s common.Snum) {
	enc := marshal.NewEnc(disk.SectorSize)
	enc.PutInt(b.count)
	enc.PutInts(b.entries[:])
	d.WriteSector(s, enc.Finish())
}

func fetchSingle(d disk.Disk, s common.Snum) *SingleIndirect {
	buf, _ := d.ReadSector(s)
	dec := marshal.NewDec(buf)
	b := &SingleIndirect{}
	b.count = dec.GetInt()
	copy(b.entries[:], dec.GetInts(common.NumIndirect))
	return b
}

func (b *DoubleIndirect) writeBack(d disk.Disk, s common.Snum) {
	enc := marshal.NewEnc(disk.SectorSize)
	enc.PutInt(b.count)
	enc.PutInts(b.blocks[:])
	d.WriteSector(s, enc.Finish())
}

func fetchDouble(d disk.Disk, s common.Snum) *DoubleIndirect {
	buf, _ := d.ReadSector(s)
	dec := marshal.NewDec(buf)
	b := &DoubleIndirect{}
	b.count = dec.GetInt()
	copy(b.blocks[:], dec.GetInts(common.NumIndirect))
	return b
}
