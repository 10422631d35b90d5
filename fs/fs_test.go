package fs_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectorfs/sectorfs/common"
	"github.com/sectorfs/sectorfs/dir"
	"github.com/sectorfs/sectorfs/disk"
	"github.com/sectorfs/sectorfs/fs"
)

func newFS(t *testing.T) (disk.Disk, *fs.FileSystem) {
	t.Helper()
	d := disk.NewMemDisk(common.NumSectors)
	fsys, err := fs.New(d, true)
	require.NoError(t, err)
	return d, fsys
}

func names(entries []dir.Entry) []string {
	out := []string{}
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestFormatAndReload(t *testing.T) {
	assert := assert.New(t)
	d, fsys := newFS(t)

	// formatting consumes the two header sectors plus the data of the
	// free-map and root-directory files
	used := 2 + common.FreeMapFileSize/disk.SectorSize + common.DirectoryFileSize/disk.SectorSize
	assert.Equal(common.NumSectors-used, fsys.FreeSectors())

	require.NoError(t, fsys.Create("/hello", 100))

	// attach again without formatting; everything must still be there
	fsys2, err := fs.New(d, false)
	require.NoError(t, err)
	f, err := fsys2.Open("/hello")
	assert.NoError(err)
	assert.Equal(uint64(100), f.Length())
	assert.Equal(fsys.FreeSectors(), fsys2.FreeSectors())
}

func TestCreateOpenReadWrite(t *testing.T) {
	assert := assert.New(t)
	_, fsys := newFS(t)

	size := 2*disk.SectorSize + 17
	require.NoError(t, fsys.Create("/data.bin", size))

	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i * 3)
	}
	id, err := fsys.OpenID("/data.bin")
	require.NoError(t, err)
	n, err := fsys.WriteID(id, data)
	assert.NoError(err)
	assert.Equal(int(size), n)
	assert.True(fsys.CloseID(id))

	id, err = fsys.OpenID("/data.bin")
	require.NoError(t, err)
	got := make([]byte, size)
	n, err = fsys.ReadID(id, got)
	assert.NoError(err)
	assert.Equal(int(size), n)
	assert.Equal(data, got)
	// cursor at end now; further reads are empty, not an error
	n, err = fsys.ReadID(id, got)
	assert.NoError(err)
	assert.Equal(0, n)
	assert.True(fsys.CloseID(id))
}

func TestCreateExistingLeavesStateUntouched(t *testing.T) {
	assert := assert.New(t)
	_, fsys := newFS(t)
	require.NoError(t, fsys.Create("/f", 300))

	free := fsys.FreeSectors()
	entries, err := fsys.ReadDir("/")
	require.NoError(t, err)

	err = fsys.Create("/f", 999)
	assert.ErrorIs(err, common.ErrExists)

	assert.Equal(free, fsys.FreeSectors(), "failed create must not consume space")
	after, err := fsys.ReadDir("/")
	require.NoError(t, err)
	assert.Equal(entries, after, "failed create must not touch the directory")
}

func TestCreateTooLarge(t *testing.T) {
	assert := assert.New(t)
	_, fsys := newFS(t)
	free := fsys.FreeSectors()

	err := fsys.Create("/big", common.MaxFileSize+1)
	assert.ErrorIs(err, common.ErrTooLarge)
	assert.Equal(free, fsys.FreeSectors())
}

func TestCreateOutOfSpace(t *testing.T) {
	assert := assert.New(t)
	_, fsys := newFS(t)

	// the volume is far smaller than two maximum-size files
	require.NoError(t, fsys.Create("/a", common.MaxFileSize))
	free := fsys.FreeSectors()
	err := fsys.Create("/b", common.MaxFileSize)
	assert.ErrorIs(err, common.ErrNoSpace)
	assert.Equal(free, fsys.FreeSectors())
}

func TestPathResolutionAndCursorReset(t *testing.T) {
	assert := assert.New(t)
	_, fsys := newFS(t)

	require.NoError(t, fsys.MkDir("/a"))
	require.NoError(t, fsys.MkDir("/a/b"))
	require.NoError(t, fsys.Create("/a/b/f.txt", 100))

	f, err := fsys.Open("/a/b/f.txt")
	assert.NoError(err)
	assert.Equal(uint64(100), f.Length())

	// the cursor must be back at the root: a root-level listing shows
	// root's entries, not b's
	entries, err := fsys.ReadDir("")
	require.NoError(t, err)
	assert.Equal([]string{"a"}, names(entries))

	entries, err = fsys.ReadDir("/a/b")
	require.NoError(t, err)
	assert.Equal([]string{"f.txt"}, names(entries))

	entries, err = fsys.ReadDir("/a")
	require.NoError(t, err)
	assert.Equal([]string{"b"}, names(entries))
}

func TestOpenNotFound(t *testing.T) {
	assert := assert.New(t)
	_, fsys := newFS(t)
	_, err := fsys.Open("/nope")
	assert.ErrorIs(err, common.ErrNotFound)
	_, err = fsys.Open("/no/such/path")
	assert.ErrorIs(err, common.ErrNotFound)
}

func TestRemoveReturnsSpace(t *testing.T) {
	assert := assert.New(t)
	_, fsys := newFS(t)

	before := fsys.FreeSectors()
	// big enough to use both indirect levels
	size := (common.NumDirect + common.NumIndirect + 5) * disk.SectorSize
	require.NoError(t, fsys.Create("/big", size))
	assert.Less(fsys.FreeSectors(), before)

	require.NoError(t, fsys.Remove("/big"))
	assert.Equal(before, fsys.FreeSectors(), "remove must return every sector")

	_, err := fsys.Open("/big")
	assert.ErrorIs(err, common.ErrNotFound)
	err = fsys.Remove("/big")
	assert.ErrorIs(err, common.ErrNotFound)
}

func TestRemoveInSubdirectory(t *testing.T) {
	assert := assert.New(t)
	_, fsys := newFS(t)
	require.NoError(t, fsys.MkDir("/a"))
	require.NoError(t, fsys.Create("/a/f", 50))
	require.NoError(t, fsys.Remove("/a/f"))
	entries, err := fsys.ReadDir("/a")
	require.NoError(t, err)
	assert.Empty(entries)
}

func TestMkDirRequiresAbsolutePath(t *testing.T) {
	assert := assert.New(t)
	_, fsys := newFS(t)
	assert.Error(fsys.MkDir("relative"))
	assert.NoError(fsys.MkDir("/absolute"))
}

func TestMkDirExisting(t *testing.T) {
	assert := assert.New(t)
	_, fsys := newFS(t)
	require.NoError(t, fsys.MkDir("/x"))
	assert.ErrorIs(fsys.MkDir("/x"), common.ErrExists)
	assert.ErrorIs(fsys.Create("/x", 10), common.ErrExists)
}

func TestWalkThroughFileFails(t *testing.T) {
	assert := assert.New(t)
	_, fsys := newFS(t)
	require.NoError(t, fsys.Create("/f", 10))
	assert.Error(fsys.Create("/f/g", 10))
	_, err := fsys.ReadDir("/f")
	assert.Error(err)
}

func TestOpenIDLifecycle(t *testing.T) {
	assert := assert.New(t)
	_, fsys := newFS(t)
	require.NoError(t, fsys.Create("/f", 10))

	id1, err := fsys.OpenID("/f")
	require.NoError(t, err)
	id2, err := fsys.OpenID("/f")
	require.NoError(t, err)
	assert.NotEqual(id1, id2, "each open gets its own id")

	_, err = fsys.OpenID("/nope")
	assert.ErrorIs(err, common.ErrNotFound)

	assert.True(fsys.CloseID(id1))
	assert.False(fsys.CloseID(id1), "double close fails")
	_, err = fsys.ReadID(id1, make([]byte, 4))
	assert.Error(err, "reads on a closed id fail")
	assert.True(fsys.CloseID(id2))
}

func TestDirectoryFull(t *testing.T) {
	assert := assert.New(t)
	_, fsys := newFS(t)

	for i := uint64(0); i < common.NumDirEntries; i++ {
		require.NoError(t, fsys.Create(fmt.Sprintf("/f%d", i), 0))
	}
	free := fsys.FreeSectors()
	err := fsys.Create("/straw", 0)
	assert.ErrorIs(err, common.ErrNoSpace)
	assert.Equal(free, fsys.FreeSectors(), "failed create must not leak the header sector")

	// removing one entry frees a slot
	require.NoError(t, fsys.Remove("/f0"))
	assert.NoError(fsys.Create("/straw", 0))
}

func TestList(t *testing.T) {
	assert := assert.New(t)
	_, fsys := newFS(t)
	require.NoError(t, fsys.MkDir("/docs"))
	require.NoError(t, fsys.Create("/notes", 10))

	var buf bytes.Buffer
	assert.NoError(fsys.List(&buf, "/"))
	assert.Contains(buf.String(), "docs")
	assert.Contains(buf.String(), "notes")
	assert.Contains(buf.String(), "dir")
}
