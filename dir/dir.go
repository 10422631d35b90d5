// Package dir manages directories: fixed-capacity tables mapping names
// to the sectors holding file headers. A directory is persisted as an
// ordinary file, so capacity is fixed when the directory is created and
// never grows.
package dir

import (
	"bytes"
	"fmt"
	"io"

	"github.com/tchajed/marshal"

	"github.com/sectorfs/sectorfs/common"
	"github.com/sectorfs/sectorfs/util"
)

// Kind distinguishes what an entry's header sector describes.
type Kind uint64

const (
	KindFile Kind = 0
	KindDir  Kind = 1
)

func (k Kind) String() string {
	if k == KindDir {
		return "dir"
	}
	return "file"
}

// Entry is one directory slot. Removing an entry clears InUse but does
// not shift later slots, so scans skip free slots rather than relying on
// a shrinking length.
type Entry struct {
	InUse  bool
	Kind   Kind
	Sector common.Snum // sector of the entry's file header
	Name   string
}

// Directory is the in-memory copy of one on-disk directory table.
type Directory struct {
	table []Entry
}

// New returns an empty directory with room for size entries.
func New(size uint64) *Directory {
	return &Directory{table: make([]Entry, size)}
}

// FetchFrom loads the table from the file backing the directory.
func (dv *Directory) FetchFrom(f io.ReaderAt) error {
	buf := make([]byte, uint64(len(dv.table))*common.DirEntrySize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return err
	}
	dec := marshal.NewDec(buf)
	for i := range dv.table {
		dv.table[i].InUse = dec.GetInt() != 0
		dv.table[i].Kind = Kind(dec.GetInt())
		dv.table[i].Sector = dec.GetInt()
		name := dec.GetBytes(common.MaxNameLen)
		if j := bytes.IndexByte(name, 0); j >= 0 {
			name = name[:j]
		}
		dv.table[i].Name = string(name)
	}
	return nil
}

// WriteBack persists the table through the file backing the directory.
func (dv *Directory) WriteBack(f io.WriterAt) error {
	enc := marshal.NewEnc(uint64(len(dv.table)) * common.DirEntrySize)
	for i := range dv.table {
		inUse := uint64(0)
		if dv.table[i].InUse {
			inUse = 1
		}
		enc.PutInt(inUse)
		enc.PutInt(uint64(dv.table[i].Kind))
		enc.PutInt(dv.table[i].Sector)
		name := make([]byte, common.MaxNameLen)
		copy(name, dv.table[i].Name)
		enc.PutBytes(name)
	}
	_, err := f.WriteAt(enc.Finish(), 0)
	return err
}

// Find returns the header sector recorded for name.
func (dv *Directory) Find(name string) (common.Snum, bool) {
	for i := range dv.table {
		if dv.table[i].InUse && dv.table[i].Name == name {
			return dv.table[i].Sector, true
		}
	}
	return common.NullSnum, false
}

// FindEntry returns the full entry for name.
func (dv *Directory) FindEntry(name string) (Entry, bool) {
	for i := range dv.table {
		if dv.table[i].InUse && dv.table[i].Name == name {
			return dv.table[i], true
		}
	}
	return Entry{}, false
}

// Add records name at the lowest-numbered free slot. It fails if the
// name is empty, too long, already present, or the table is full.
func (dv *Directory) Add(name string, sector common.Snum, kind Kind) bool {
	if name == "" || uint64(len(name)) > common.MaxNameLen {
		return false
	}
	if _, ok := dv.Find(name); ok {
		return false
	}
	for i := range dv.table {
		if !dv.table[i].InUse {
			dv.table[i] = Entry{InUse: true, Kind: kind, Sector: sector, Name: name}
			util.DPrintf(8, "dir Add: %q -> sector %d at slot %d", name, sector, i)
			return true
		}
	}
	return false
}

// Remove frees the slot holding name. The slot is reusable by a later
// Add; nothing is compacted.
func (dv *Directory) Remove(name string) bool {
	for i := range dv.table {
		if dv.table[i].InUse && dv.table[i].Name == name {
			dv.table[i] = Entry{}
			return true
		}
	}
	return false
}

// Entries returns the in-use entries in slot order.
func (dv *Directory) Entries() []Entry {
	var out []Entry
	for i := range dv.table {
		if dv.table[i].InUse {
			out = append(out, dv.table[i])
		}
	}
	return out
}

// Print lists the in-use entries on w.
func (dv *Directory) Print(w io.Writer) {
	for _, e := range dv.Entries() {
		fmt.Fprintf(w, "%-4s %6d  %s\n", e.Kind, e.Sector, e.Name)
	}
}
