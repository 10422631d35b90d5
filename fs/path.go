package fs

import (
	"fmt"
	"strings"

	"github.com/sectorfs/sectorfs/common"
	"github.com/sectorfs/sectorfs/dir"
	"github.com/sectorfs/sectorfs/file"
	"github.com/sectorfs/sectorfs/util"
)

// splitPath breaks a path on "/" into its non-empty components.
func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// changeToRightDir advances the cursor from wherever it stands through
// each named component. Any dirty cursor state is persisted before the
// cursor is re-pointed. On failure the cursor is left mid-walk; the
// caller's deferred reset puts it back at the root.
func (fsys *FileSystem) changeToRightDir(parents []string) error {
	for _, name := range parents {
		e, ok := fsys.curDir.FindEntry(name)
		if !ok {
			return fmt.Errorf("directory %q: %w", name, common.ErrNotFound)
		}
		if e.Kind != dir.KindDir {
			return fmt.Errorf("%q is not a directory", name)
		}
		if err := fsys.curDir.WriteBack(fsys.curDirFile); err != nil {
			return err
		}
		fsys.curDirFile = file.Open(fsys.d, e.Sector)
		fsys.curDir = dir.New(common.NumDirEntries)
		if err := fsys.curDir.FetchFrom(fsys.curDirFile); err != nil {
			return err
		}
		util.DPrintf(8, "cursor now at %q (sector %d)", name, e.Sector)
	}
	return nil
}

// resetRootDir points the cursor back at the root directory. Called at
// the end of every top-level operation so no working-directory state
// leaks between calls.
func (fsys *FileSystem) resetRootDir() {
	fsys.curDirFile = file.Open(fsys.d, common.RootDirSector)
	fsys.curDir = dir.New(common.NumDirEntries)
	if err := fsys.curDir.FetchFrom(fsys.curDirFile); err != nil {
		panic(fmt.Errorf("root directory unreadable: %v", err))
	}
}

// resolve walks the cursor to the leaf's parent directory and returns
// the leaf name.
func (fsys *FileSystem) resolve(path string) (string, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return "", fmt.Errorf("empty path %q: %w", path, common.ErrNotFound)
	}
	if err := fsys.changeToRightDir(parts[:len(parts)-1]); err != nil {
		return "", err
	}
	return parts[len(parts)-1], nil
}
