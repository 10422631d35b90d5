// Package common holds the on-disk layout constants and shared types for
// the file system.
//
// Every on-disk structure (file header, indirect block, directory sector,
// free-map sector) must fit in exactly one sector; the counts below are
// derived from the sector size and the 8-byte word encoding so that each
// structure fills its sector exactly.
package common

import (
	"errors"

	"github.com/sectorfs/sectorfs/disk"
)

const (
	// SectorSize is the unit of disk transfer, in bytes.
	SectorSize uint64 = disk.SectorSize

	// NumSectors is the size of the sector universe, fixed at format time.
	NumSectors uint64 = 8192

	// FreeMapSector holds the file header for the free-sector bitmap.
	FreeMapSector uint64 = 0
	// RootDirSector holds the file header for the root directory.
	RootDirSector uint64 = 1

	// NumDirect is how many direct pointers fit in a header sector next to
	// the four bookkeeping words (length, sector count, two indirect
	// pointers).
	NumDirect uint64 = (SectorSize - 4*8) / 8

	// NumIndirect is how many sector pointers fit in an indirect block
	// next to its count word.
	NumIndirect uint64 = (SectorSize - 8) / 8

	// MaxFileSectors is the addressing limit: direct pointers, then one
	// single indirect block, then a double indirect block of single
	// indirect blocks.
	MaxFileSectors uint64 = NumDirect + NumIndirect + NumIndirect*NumIndirect

	// MaxFileSize is the largest byte length Allocate accepts.
	MaxFileSize uint64 = MaxFileSectors * SectorSize

	// FreeMapFileSize is the byte length of the free map stored as a file.
	FreeMapFileSize uint64 = NumSectors / 8

	// NumDirEntries is the fixed capacity of every directory.
	NumDirEntries uint64 = 64

	// MaxNameLen bounds a single path component.
	MaxNameLen uint64 = 40

	// DirEntrySize is the encoded size of one directory entry: in-use
	// word, kind word, sector word, and the padded name.
	DirEntrySize uint64 = 3*8 + MaxNameLen

	// DirectoryFileSize is the byte length of a directory stored as a file.
	DirectoryFileSize uint64 = NumDirEntries * DirEntrySize
)

// Snum is a sector number.
type Snum = uint64

// NullSnum marks an unused sector pointer. Sector 0 always belongs to the
// free-map header, so it can never appear as a data or indirect-block
// sector.
const NullSnum Snum = 0

// Recoverable failures of naming and allocation operations. Invariant
// violations (double free, claim failure after an admission check) panic
// instead; they indicate corruption or a concurrency violation.
var (
	ErrNotFound = errors.New("no such file or directory")
	ErrExists   = errors.New("name already exists")
	ErrNoSpace  = errors.New("out of disk space")
	ErrTooLarge = errors.New("file exceeds maximum size")
)
