package fs

import (
	"fmt"
	"io"

	"github.com/sectorfs/sectorfs/common"
)

// The open-file table decouples callers from holding *file.File
// references: OpenID hands out a process-unique integer, and later
// reads, writes and the close go through that id. Ids come from a
// monotonic counter, so a live id is never reissued.

// OpenID opens path and returns an id for it.
func (fsys *FileSystem) OpenID(path string) (int, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return 0, err
	}
	id := fsys.nextID
	fsys.nextID++
	fsys.open[id] = f
	return id, nil
}

// ReadID reads from the open file's cursor. A read clipped by the end
// of the file returns the short count with no error.
func (fsys *FileSystem) ReadID(id int, p []byte) (int, error) {
	f, ok := fsys.open[id]
	if !ok {
		return 0, fmt.Errorf("read on closed id %d: %w", id, common.ErrNotFound)
	}
	n, err := f.Read(p)
	if err == io.EOF {
		err = nil
	}
	return n, err
}

// WriteID writes at the open file's cursor. A write clipped by the
// file's fixed size returns the short count with no error.
func (fsys *FileSystem) WriteID(id int, p []byte) (int, error) {
	f, ok := fsys.open[id]
	if !ok {
		return 0, fmt.Errorf("write on closed id %d: %w", id, common.ErrNotFound)
	}
	n, err := f.Write(p)
	if err == io.ErrShortWrite {
		err = nil
	}
	return n, err
}

// CloseID drops the id from the table. Reports false for an id that is
// not open.
func (fsys *FileSystem) CloseID(id int) bool {
	if _, ok := fsys.open[id]; !ok {
		return false
	}
	delete(fsys.open, id)
	return true
}
