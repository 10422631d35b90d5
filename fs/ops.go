package fs

import (
	"fmt"
	"io"

	"github.com/sectorfs/sectorfs/common"
	"github.com/sectorfs/sectorfs/dir"
	"github.com/sectorfs/sectorfs/file"
	"github.com/sectorfs/sectorfs/inode"
	"github.com/sectorfs/sectorfs/util"
)

// Create makes a new file of exactly size bytes.
//
// Nothing reaches the disk unless every step succeeds; the commit order
// is header, directory, free map. Fails with ErrExists on a name
// collision, ErrNoSpace when the free map or the parent directory is
// exhausted, and ErrTooLarge past the addressing limit.
func (fsys *FileSystem) Create(path string, size uint64) error {
	defer fsys.resetRootDir()
	name, err := fsys.resolve(path)
	if err != nil {
		return err
	}
	if uint64(len(name)) > common.MaxNameLen {
		return fmt.Errorf("name %q longer than %d bytes", name, common.MaxNameLen)
	}
	util.DPrintf(3, "Create %q size %d", path, size)

	if _, ok := fsys.curDir.Find(name); ok {
		return fmt.Errorf("create %q: %w", path, common.ErrExists)
	}
	fm := fsys.loadFreeMap()
	sector, ok := fm.FindAndSet() // sector for the file header
	if !ok {
		return fmt.Errorf("create %q: no sector for header: %w", path, common.ErrNoSpace)
	}
	hdr := inode.New()
	if err := hdr.Allocate(fsys.d, fm, size); err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	if !fsys.curDir.Add(name, sector, dir.KindFile) {
		return fmt.Errorf("create %q: directory full: %w", path, common.ErrNoSpace)
	}

	// everything worked; flush all changes
	hdr.WriteBack(fsys.d, sector)
	if err := fsys.curDir.WriteBack(fsys.curDirFile); err != nil {
		return err
	}
	return fm.WriteBack(fsys.freeMapFile)
}

// Open resolves path and returns an open file over its header. Pure
// lookup; no mutation outside the transient cursor walk.
func (fsys *FileSystem) Open(path string) (*file.File, error) {
	defer fsys.resetRootDir()
	name, err := fsys.resolve(path)
	if err != nil {
		return nil, err
	}
	sector, ok := fsys.curDir.Find(name)
	if !ok {
		return nil, fmt.Errorf("open %q: %w", path, common.ErrNotFound)
	}
	util.DPrintf(3, "Open %q -> sector %d", path, sector)
	return file.Open(fsys.d, sector), nil
}

// Remove deletes the named file: its data sectors, its header sector,
// and its directory entry. The free map and directory are flushed after
// both updates are made.
func (fsys *FileSystem) Remove(path string) error {
	defer fsys.resetRootDir()
	name, err := fsys.resolve(path)
	if err != nil {
		return err
	}
	sector, ok := fsys.curDir.Find(name)
	if !ok {
		return fmt.Errorf("remove %q: %w", path, common.ErrNotFound)
	}
	util.DPrintf(3, "Remove %q (sector %d)", path, sector)

	hdr := inode.New()
	hdr.FetchFrom(fsys.d, sector)
	fm := fsys.loadFreeMap()
	hdr.Deallocate(fsys.d, fm) // data and indirect sectors
	fm.Clear(sector)           // the header sector itself
	fsys.curDir.Remove(name)

	if err := fm.WriteBack(fsys.freeMapFile); err != nil {
		return err
	}
	return fsys.curDir.WriteBack(fsys.curDirFile)
}

// MkDir creates an empty directory of fixed capacity. The path must be
// absolute: directories are only ever created by full name from the
// root.
func (fsys *FileSystem) MkDir(path string) error {
	if len(path) == 0 || path[0] != '/' {
		return fmt.Errorf("mkdir %q: path must start at the root", path)
	}
	defer fsys.resetRootDir()
	name, err := fsys.resolve(path)
	if err != nil {
		return err
	}
	if uint64(len(name)) > common.MaxNameLen {
		return fmt.Errorf("name %q longer than %d bytes", name, common.MaxNameLen)
	}
	util.DPrintf(3, "MkDir %q", path)

	if _, ok := fsys.curDir.Find(name); ok {
		return fmt.Errorf("mkdir %q: %w", path, common.ErrExists)
	}
	fm := fsys.loadFreeMap()
	sector, ok := fm.FindAndSet()
	if !ok {
		return fmt.Errorf("mkdir %q: no sector for header: %w", path, common.ErrNoSpace)
	}
	hdr := inode.New()
	if err := hdr.Allocate(fsys.d, fm, common.DirectoryFileSize); err != nil {
		return fmt.Errorf("mkdir %q: %w", path, err)
	}
	if !fsys.curDir.Add(name, sector, dir.KindDir) {
		return fmt.Errorf("mkdir %q: directory full: %w", path, common.ErrNoSpace)
	}

	hdr.WriteBack(fsys.d, sector)
	newDir := dir.New(common.NumDirEntries)
	if err := newDir.WriteBack(file.Open(fsys.d, sector)); err != nil {
		return err
	}
	if err := fsys.curDir.WriteBack(fsys.curDirFile); err != nil {
		return err
	}
	return fm.WriteBack(fsys.freeMapFile)
}

// ReadDir resolves path to a directory and returns its in-use entries.
// The empty path and "/" name the root.
func (fsys *FileSystem) ReadDir(path string) ([]dir.Entry, error) {
	defer fsys.resetRootDir()
	if err := fsys.changeToRightDir(splitPath(path)); err != nil {
		return nil, err
	}
	return fsys.curDir.Entries(), nil
}

// List prints the entries of the directory named by path on w.
func (fsys *FileSystem) List(w io.Writer, path string) error {
	entries, err := fsys.ReadDir(path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%-4s %6d  %s\n", e.Kind, e.Sector, e.Name)
	}
	return nil
}

// Print dumps the whole volume on w: the two well-known headers, the
// free-sector count, and the root directory.
func (fsys *FileSystem) Print(w io.Writer) {
	fmt.Fprintf(w, "Free map file header:\n")
	mapHdr := inode.New()
	mapHdr.FetchFrom(fsys.d, common.FreeMapSector)
	mapHdr.Print(w, fsys.d)

	fmt.Fprintf(w, "Root directory file header:\n")
	dirHdr := inode.New()
	dirHdr.FetchFrom(fsys.d, common.RootDirSector)
	dirHdr.Print(w, fsys.d)

	fmt.Fprintf(w, "Free sectors: %d of %d\n", fsys.FreeSectors(), common.NumSectors)

	fmt.Fprintf(w, "Root directory:\n")
	root := dir.New(common.NumDirEntries)
	if err := root.FetchFrom(fsys.rootDirFile); err == nil {
		root.Print(w)
	}
}
