// Package file provides sequential and random access to the bytes of a
// file described by an on-disk header.
//
// A File supports the standard io interfaces over the file's fixed byte
// range. Files do not grow: reads and writes past the allocated length
// are clipped.
package file

import (
	"fmt"
	"io"

	"github.com/sectorfs/sectorfs/common"
	"github.com/sectorfs/sectorfs/disk"
	"github.com/sectorfs/sectorfs/inode"
	"github.com/sectorfs/sectorfs/util"
)

// File is an open file: a header plus a seek position. It is transient
// state, never persisted.
type File struct {
	d      disk.Disk
	hdr    *inode.FileHeader
	sector common.Snum // sector holding the header
	pos    uint64
}

var _ io.Reader = (*File)(nil)
var _ io.Writer = (*File)(nil)
var _ io.Seeker = (*File)(nil)
var _ io.ReaderAt = (*File)(nil)
var _ io.WriterAt = (*File)(nil)

// Open brings the header stored at sector into memory and returns a file
// positioned at offset 0.
func Open(d disk.Disk, sector common.Snum) *File {
	hdr := inode.New()
	hdr.FetchFrom(d, sector)
	return &File{d: d, hdr: hdr, sector: sector}
}

// Header exposes the in-memory header.
func (f *File) Header() *inode.FileHeader {
	return f.hdr
}

// Sector returns the sector holding the file's header.
func (f *File) Sector() common.Snum {
	return f.sector
}

// Length returns the file length in bytes.
func (f *File) Length() uint64 {
	return f.hdr.Length()
}

// ReadAt reads up to len(p) bytes starting at byte offset off. It
// returns io.EOF when the read is clipped by the file length.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("read at negative offset %d", off)
	}
	offset := uint64(off)
	if offset >= f.Length() {
		return 0, io.EOF
	}
	n := util.Min(uint64(len(p)), f.Length()-offset)
	util.DPrintf(12, "ReadAt: %d bytes at %d", n, offset)
	for done := uint64(0); done < n; {
		s := f.hdr.ByteToSector(f.d, offset+done)
		buf, _ := f.d.ReadSector(s)
		in := (offset + done) % disk.SectorSize
		c := util.Min(n-done, disk.SectorSize-in)
		copy(p[done:done+c], buf[in:in+c])
		done += c
	}
	if n < uint64(len(p)) {
		return int(n), io.EOF
	}
	return int(n), nil
}

// WriteAt writes up to len(p) bytes starting at byte offset off,
// reading and rewriting any partially covered sector. Writes past the
// allocated length are clipped and reported as io.ErrShortWrite.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("write at negative offset %d", off)
	}
	offset := uint64(off)
	if offset >= f.Length() {
		return 0, io.ErrShortWrite
	}
	n := util.Min(uint64(len(p)), f.Length()-offset)
	util.DPrintf(12, "WriteAt: %d bytes at %d", n, offset)
	for done := uint64(0); done < n; {
		s := f.hdr.ByteToSector(f.d, offset+done)
		in := (offset + done) % disk.SectorSize
		c := util.Min(n-done, disk.SectorSize-in)
		var buf disk.Sector
		if in == 0 && c == disk.SectorSize {
			buf = make([]byte, disk.SectorSize)
		} else {
			// partial sector: read-modify-write
			buf, _ = f.d.ReadSector(s)
		}
		copy(buf[in:in+c], p[done:done+c])
		f.d.WriteSector(s, buf)
		done += c
	}
	if n < uint64(len(p)) {
		return int(n), io.ErrShortWrite
	}
	return int(n), nil
}

// Read reads from the seek position and advances it.
func (f *File) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, int64(f.pos))
	f.pos += uint64(n)
	return n, err
}

// Write writes at the seek position and advances it.
func (f *File) Write(p []byte) (int, error) {
	n, err := f.WriteAt(p, int64(f.pos))
	f.pos += uint64(n)
	return n, err
}

// Seek repositions the cursor per the io.Seeker contract.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = int64(f.pos)
	case io.SeekEnd:
		base = int64(f.Length())
	default:
		return 0, fmt.Errorf("bad whence %d", whence)
	}
	if base+offset < 0 {
		return 0, fmt.Errorf("seek to negative offset")
	}
	f.pos = uint64(base + offset)
	return int64(f.pos), nil
}

// SaveHeader flushes the in-memory header back to its sector.
func (f *File) SaveHeader() {
	f.hdr.WriteBack(f.d, f.sector)
}
