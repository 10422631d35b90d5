// Package fs composes the free map, file headers, and directories into
// the naming layer of the file system: Create, Open, Remove, MkDir and
// List over hierarchical paths.
//
// Both the free map and every directory are themselves stored as
// ordinary files. Their headers live in well-known sectors (sector 0 for
// the free map, sector 1 for the root directory) so the volume can be
// found again on startup. Operations that modify the directory or free
// map flush the changed files only after every step has succeeded; on
// failure the in-memory copies are simply discarded.
//
// The layer is single-threaded by design: there is no locking and no
// isolation between in-flight operations.
package fs

import (
	"fmt"

	"github.com/sectorfs/sectorfs/bitmap"
	"github.com/sectorfs/sectorfs/common"
	"github.com/sectorfs/sectorfs/dir"
	"github.com/sectorfs/sectorfs/disk"
	"github.com/sectorfs/sectorfs/file"
	"github.com/sectorfs/sectorfs/inode"
	"github.com/sectorfs/sectorfs/util"
)

// FileSystem is the naming façade over one volume. Not safe for
// concurrent use.
type FileSystem struct {
	d disk.Disk

	// kept open for the lifetime of the file system
	freeMapFile *file.File
	rootDirFile *file.File

	// current-directory cursor for path resolution; reset to the root
	// after every top-level operation
	curDirFile *file.File
	curDir     *dir.Directory

	// open-file table for id-based access
	open   map[int]*file.File
	nextID int
}

// New attaches to the volume on d. With format set, the disk is assumed
// empty and is initialized with a free map and an empty root directory;
// otherwise the two well-known files are just opened.
func New(d disk.Disk, format bool) (*FileSystem, error) {
	sz, err := d.Size()
	if err != nil {
		return nil, err
	}
	if sz < common.NumSectors {
		return nil, fmt.Errorf("disk has %d sectors, volume needs %d", sz, common.NumSectors)
	}
	fsys := &FileSystem{d: d, open: make(map[int]*file.File), nextID: 1}
	if format {
		util.DPrintf(2, "formatting the file system")
		fm := bitmap.NewFreeMap(common.NumSectors)
		root := dir.New(common.NumDirEntries)
		mapHdr := inode.New()
		dirHdr := inode.New()

		// claim the two well-known header sectors before anything else
		// can grab them
		fm.Mark(common.FreeMapSector)
		fm.Mark(common.RootDirSector)

		// allocate the data sectors of the free-map and root-directory
		// files; an empty disk always has room
		if err := mapHdr.Allocate(d, fm, common.FreeMapFileSize); err != nil {
			panic(fmt.Errorf("formatting free map: %v", err))
		}
		if err := dirHdr.Allocate(d, fm, common.DirectoryFileSize); err != nil {
			panic(fmt.Errorf("formatting root directory: %v", err))
		}

		// the headers must be on disk before Open can read them back
		mapHdr.WriteBack(d, common.FreeMapSector)
		dirHdr.WriteBack(d, common.RootDirSector)

		fsys.freeMapFile = file.Open(d, common.FreeMapSector)
		fsys.rootDirFile = file.Open(d, common.RootDirSector)

		// now the initial contents: an empty directory, and a map that
		// already records the sectors claimed above
		if err := fm.WriteBack(fsys.freeMapFile); err != nil {
			return nil, err
		}
		if err := root.WriteBack(fsys.rootDirFile); err != nil {
			return nil, err
		}
	} else {
		fsys.freeMapFile = file.Open(d, common.FreeMapSector)
		fsys.rootDirFile = file.Open(d, common.RootDirSector)
	}
	fsys.resetRootDir()
	return fsys, nil
}

// loadFreeMap reads the current free map out of its file.
func (fsys *FileSystem) loadFreeMap() *bitmap.FreeMap {
	fm, err := bitmap.LoadFreeMap(fsys.freeMapFile, common.NumSectors)
	if err != nil {
		panic(fmt.Errorf("free map unreadable: %v", err))
	}
	return fm
}

// FreeSectors reports how many sectors the on-disk free map considers
// unallocated.
func (fsys *FileSystem) FreeSectors() uint64 {
	return fsys.loadFreeMap().CountClear()
}
