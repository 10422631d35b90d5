// Package inode manages file headers: the single-sector records mapping
// a file's byte range to the disk sectors holding its data.
//
// A header addresses its data in a fixed order: NumDirect direct
// pointers, then the entries of one single indirect block, then the
// nested entries of a double indirect block. Offset translation and
// allocation agree on this order, so the k-th data sector of a file is
// always the k-th sector claimed for it.
package inode

import (
	"fmt"
	"io"

	"github.com/tchajed/marshal"

	"github.com/sectorfs/sectorfs/common"
	"github.com/sectorfs/sectorfs/disk"
	"github.com/sectorfs/sectorfs/util"
)

// Allocator hands out and reclaims free sectors. *bitmap.FreeMap
// satisfies it.
type Allocator interface {
	CountClear() uint64
	FindAndSet() (common.Snum, bool)
	Clear(s common.Snum)
	Test(s common.Snum) bool
}

// FileHeader describes one file: its length and the sectors holding its
// data. It is stored in exactly one sector; NumDirect is chosen so the
// encoded form fills the sector.
//
// A header is initialized either by Allocate (new file) or FetchFrom
// (existing file).
type FileHeader struct {
	numBytes   uint64
	numSectors uint64
	single     common.Snum // single indirect block, or NullSnum
	double     common.Snum // double indirect block, or NullSnum
	direct     [common.NumDirect]common.Snum
}

// New returns an empty header with no data sectors.
func New() *FileHeader {
	return &FileHeader{single: common.NullSnum, double: common.NullSnum}
}

// claim takes a sector from fm. The caller has already admission-checked
// the whole request, so exhaustion here is an invariant violation.
func claim(fm Allocator) common.Snum {
	s, ok := fm.FindAndSet()
	if !ok {
		panic(fmt.Errorf("sector claim failed after admission check"))
	}
	return s
}

// overheadSectors returns how many indirect-block sectors a file of
// dataSectors data sectors needs, on top of the data itself.
func overheadSectors(dataSectors uint64) uint64 {
	if dataSectors <= common.NumDirect {
		return 0
	}
	if dataSectors <= common.NumDirect+common.NumIndirect {
		return 1
	}
	nested := util.RoundUp(dataSectors-common.NumDirect-common.NumIndirect, common.NumIndirect)
	return 2 + nested
}

// Allocate initializes a fresh header for a file of size bytes, claiming
// data and indirect-block sectors from fm and writing the indirect
// blocks to disk. On failure nothing has been claimed.
//
// Fails with ErrTooLarge past the double-indirect addressing limit and
// with ErrNoSpace when fm cannot cover the data plus the indirect-block
// overhead. The up-front count makes later claims infallible, so a claim
// failure panics.
func (h *FileHeader) Allocate(d disk.Disk, fm Allocator, size uint64) error {
	if size > common.MaxFileSize {
		return fmt.Errorf("allocating %d bytes: %w", size, common.ErrTooLarge)
	}
	h.numBytes = size
	h.numSectors = util.RoundUp(size, disk.SectorSize)
	h.single = common.NullSnum
	h.double = common.NullSnum
	if fm.CountClear() < h.numSectors+overheadSectors(h.numSectors) {
		return fmt.Errorf("allocating %d sectors: %w", h.numSectors, common.ErrNoSpace)
	}

	claimed := util.Min(h.numSectors, common.NumDirect)
	for i := uint64(0); i < claimed; i++ {
		h.direct[i] = claim(fm)
	}
	if claimed == h.numSectors {
		util.DPrintf(5, "Allocate: direct pointers cover %d bytes", size)
		return nil
	}

	claimed += h.allocateSingle(d, fm, h.numSectors-claimed)
	if claimed == h.numSectors {
		return nil
	}

	h.allocateDouble(d, fm, h.numSectors-claimed)
	return nil
}

// allocateSingle claims the single indirect block and up to NumIndirect
// data sectors, returning how many data sectors it covered.
func (h *FileHeader) allocateSingle(d disk.Disk, fm Allocator, remaining uint64) uint64 {
	blk := &SingleIndirect{}
	h.single = claim(fm)
	n := util.Min(remaining, common.NumIndirect)
	for i := uint64(0); i < n; i++ {
		blk.entries[i] = claim(fm)
	}
	blk.count = n
	blk.writeBack(d, h.single)
	return n
}

// allocateDouble claims the double indirect block and as many nested
// single indirect blocks as the remaining data sectors need.
func (h *FileHeader) allocateDouble(d disk.Disk, fm Allocator, remaining uint64) {
	dbl := &DoubleIndirect{}
	h.double = claim(fm)
	for remaining > 0 {
		sub := &SingleIndirect{}
		s := claim(fm)
		n := util.Min(remaining, common.NumIndirect)
		for i := uint64(0); i < n; i++ {
			sub.entries[i] = claim(fm)
		}
		sub.count = n
		sub.writeBack(d, s)
		dbl.blocks[dbl.count] = s
		dbl.count++
		remaining -= n
		util.DPrintf(8, "allocateDouble: nested block %d covers %d sectors", dbl.count, n)
	}
	dbl.writeBack(d, h.double)
}

// Deallocate returns every sector owned by this file to fm: data sectors
// first, then the indirect blocks themselves. Freeing an already-free
// sector panics, so Deallocate must not run twice without an intervening
// Allocate.
func (h *FileHeader) Deallocate(d disk.Disk, fm Allocator) {
	for i := uint64(0); i < h.numSectors && i < common.NumDirect; i++ {
		fm.Clear(h.direct[i])
	}
	if h.single != common.NullSnum {
		blk := fetchSingle(d, h.single)
		for i := uint64(0); i < blk.count; i++ {
			fm.Clear(blk.entries[i])
		}
		fm.Clear(h.single)
		h.single = common.NullSnum
	}
	if h.double != common.NullSnum {
		dbl := fetchDouble(d, h.double)
		for i := uint64(0); i < dbl.count; i++ {
			sub := fetchSingle(d, dbl.blocks[i])
			for j := uint64(0); j < sub.count; j++ {
				fm.Clear(sub.entries[j])
			}
			fm.Clear(dbl.blocks[i])
		}
		fm.Clear(h.double)
		h.double = common.NullSnum
	}
}

// ByteToSector translates a byte offset within the file to the sector
// holding it. Pure translation; expects offset < Length() rounded up to
// a sector.
func (h *FileHeader) ByteToSector(d disk.Disk, offset uint64) common.Snum {
	k := offset / disk.SectorSize
	if k >= h.numSectors {
		panic(fmt.Errorf("offset %d beyond %d sectors", offset, h.numSectors))
	}
	if k < common.NumDirect {
		return h.direct[k]
	}
	if k < common.NumDirect+common.NumIndirect {
		blk := fetchSingle(d, h.single)
		return blk.entries[k-common.NumDirect]
	}
	rel := k - common.NumDirect - common.NumIndirect
	dbl := fetchDouble(d, h.double)
	sub := fetchSingle(d, dbl.blocks[rel/common.NumIndirect])
	return sub.entries[rel%common.NumIndirect]
}

// FetchFrom initializes the header from the sector holding it.
func (h *FileHeader) FetchFrom(d disk.Disk, s common.Snum) {
	buf, _ := d.ReadSector(s)
	dec := marshal.NewDec(buf)
	h.numBytes = dec.GetInt()
	h.numSectors = dec.GetInt()
	h.single = dec.GetInt()
	h.double = dec.GetInt()
	copy(h.direct[:], dec.GetInts(common.NumDirect))
}

// WriteBack writes the header to the sector holding it.
func (h *FileHeader) WriteBack(d disk.Disk, s common.Snum) {
	enc := marshal.NewEnc(disk.SectorSize)
	enc.PutInt(h.numBytes)
	enc.PutInt(h.numSectors)
	enc.PutInt(h.single)
	enc.PutInt(h.double)
	enc.PutInts(h.direct[:])
	d.WriteSector(s, enc.Finish())
}

// Length returns the file length in bytes.
func (h *FileHeader) Length() uint64 {
	return h.numBytes
}

// Sectors returns the number of data sectors.
func (h *FileHeader) Sectors() uint64 {
	return h.numSectors
}

// SingleIndirectSector returns the single indirect block's sector, or
// NullSnum if the file has none.
func (h *FileHeader) SingleIndirectSector() common.Snum {
	return h.single
}

// DoubleIndirectSector returns the double indirect block's sector, or
// NullSnum if the file has none.
func (h *FileHeader) DoubleIndirectSector() common.Snum {
	return h.double
}

// Print dumps the header and the printable file contents to w, for the
// console front end.
func (h *FileHeader) Print(w io.Writer, d disk.Disk) {
	fmt.Fprintf(w, "FileHeader contents.  File size: %d.  File sectors:\n", h.numBytes)
	for k := uint64(0); k < h.numSectors; k++ {
		fmt.Fprintf(w, "%d ", h.ByteToSector(d, k*disk.SectorSize))
	}
	fmt.Fprintf(w, "\nFile contents:\n")
	remaining := h.numBytes
	for k := uint64(0); k < h.numSectors; k++ {
		buf, _ := d.ReadSector(h.ByteToSector(d, k*disk.SectorSize))
		n := util.Min(remaining, disk.SectorSize)
		for _, c := range buf[:n] {
			if c >= 0x20 && c <= 0x7e {
				fmt.Fprintf(w, "%c", c)
			} else {
				fmt.Fprintf(w, "\\%x", c)
			}
		}
		fmt.Fprintf(w, "\n")
		remaining -= n
	}
}
