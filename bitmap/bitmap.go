// Package bitmap tracks sector allocation state, one bit per sector.
//
// The map is persisted as an ordinary file in the file system it
// allocates for. The resulting circularity is resolved at format time:
// the caller builds the map in memory, marks the well-known header
// sectors, allocates space for the map file itself, and only then writes
// it back through the file abstraction.
package bitmap

import (
	"fmt"
	"io"

	"github.com/bits-and-blooms/bitset"
	"github.com/tchajed/marshal"

	"github.com/sectorfs/sectorfs/common"
	"github.com/sectorfs/sectorfs/util"
)

// FreeMap is a bit map over a fixed universe of sectors. Bit set means
// the sector is allocated.
type FreeMap struct {
	bits *bitset.BitSet
	n    uint64 // number of sectors tracked
}

// NewFreeMap returns a map of n sectors, all free. n must be a multiple
// of 64 so the map serializes to whole words.
func NewFreeMap(n uint64) *FreeMap {
	if n%64 != 0 {
		panic(fmt.Errorf("free map size %d is not word-aligned", n))
	}
	return &FreeMap{
		bits: bitset.New(uint(n)),
		n:    n,
	}
}

// Mark claims a specific sector. Marking an already-claimed sector is a
// double-set and panics.
func (fm *FreeMap) Mark(s common.Snum) {
	if s >= fm.n {
		panic(fmt.Errorf("mark of out-of-range sector %d", s))
	}
	if fm.bits.Test(uint(s)) {
		panic(fmt.Errorf("double set of sector %d", s))
	}
	fm.bits.Set(uint(s))
}

// FindAndSet claims the lowest-numbered free sector and returns it.
// Reports false if every sector is taken.
func (fm *FreeMap) FindAndSet() (common.Snum, bool) {
	s, ok := fm.bits.NextClear(0)
	if !ok || uint64(s) >= fm.n {
		return common.NullSnum, false
	}
	fm.bits.Set(s)
	util.DPrintf(10, "FindAndSet: claimed sector %d", s)
	return common.Snum(s), true
}

// Clear releases a sector. Clearing a free sector is a double free and
// panics.
func (fm *FreeMap) Clear(s common.Snum) {
	if s >= fm.n {
		panic(fmt.Errorf("clear of out-of-range sector %d", s))
	}
	if !fm.bits.Test(uint(s)) {
		panic(fmt.Errorf("double free of sector %d", s))
	}
	fm.bits.Clear(uint(s))
}

// Test reports whether sector s is allocated.
func (fm *FreeMap) Test(s common.Snum) bool {
	if s >= fm.n {
		panic(fmt.Errorf("test of out-of-range sector %d", s))
	}
	return fm.bits.Test(uint(s))
}

// CountClear returns the number of free sectors. Callers use it as an
// admission check before multi-sector allocations.
func (fm *FreeMap) CountClear() uint64 {
	return fm.n - uint64(fm.bits.Count())
}

// WriteBack persists the full bit vector through the file holding the
// map.
func (fm *FreeMap) WriteBack(f io.WriterAt) error {
	enc := marshal.NewEnc(fm.n / 8)
	enc.PutInts(fm.bits.Bytes())
	_, err := f.WriteAt(enc.Finish(), 0)
	return err
}

// LoadFreeMap reconstructs a map of n sectors from the file holding it.
func LoadFreeMap(f io.ReaderAt, n uint64) (*FreeMap, error) {
	if n%64 != 0 {
		panic(fmt.Errorf("free map size %d is not word-aligned", n))
	}
	buf := make([]byte, n/8)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return nil, err
	}
	dec := marshal.NewDec(buf)
	words := dec.GetInts(n / 64)
	return &FreeMap{
		bits: bitset.From(words),
		n:    n,
	}, nil
}
