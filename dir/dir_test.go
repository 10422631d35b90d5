package dir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sectorfs/sectorfs/common"
)

type memFile struct {
	data []byte
}

func (f *memFile) ReadAt(p []byte, off int64) (int, error) {
	copy(p, f.data[off:])
	return len(p), nil
}

func (f *memFile) WriteAt(p []byte, off int64) (int, error) {
	copy(f.data[off:], p)
	return len(p), nil
}

func TestAddFind(t *testing.T) {
	assert := assert.New(t)
	dv := New(4)

	assert.True(dv.Add("readme", 17, KindFile))
	s, ok := dv.Find("readme")
	assert.True(ok)
	assert.Equal(common.Snum(17), s)

	_, ok = dv.Find("missing")
	assert.False(ok)

	assert.False(dv.Add("readme", 99, KindFile), "duplicate names rejected")
	s, _ = dv.Find("readme")
	assert.Equal(common.Snum(17), s, "entry unchanged by rejected add")
}

func TestRemoveLeavesHole(t *testing.T) {
	assert := assert.New(t)
	dv := New(4)
	assert.True(dv.Add("a", 2, KindFile))
	assert.True(dv.Add("b", 3, KindFile))
	assert.True(dv.Add("c", 4, KindFile))

	assert.True(dv.Remove("b"))
	_, ok := dv.Find("b")
	assert.False(ok)
	_, ok = dv.Find("c")
	assert.True(ok, "later entries still findable after removal")
	assert.False(dv.Remove("b"), "second remove fails")

	// a re-add reuses the lowest free slot
	assert.True(dv.Add("d", 5, KindDir))
	entries := dv.Entries()
	assert.Equal([]string{"a", "d", "c"}, []string{entries[0].Name, entries[1].Name, entries[2].Name})
}

func TestAddFullAndBadNames(t *testing.T) {
	assert := assert.New(t)
	dv := New(2)
	assert.True(dv.Add("a", 2, KindFile))
	assert.True(dv.Add("b", 3, KindFile))
	assert.False(dv.Add("c", 4, KindFile), "table is full")

	dv = New(2)
	assert.False(dv.Add("", 2, KindFile))
	assert.False(dv.Add(strings.Repeat("x", int(common.MaxNameLen)+1), 2, KindFile))
	assert.True(dv.Add(strings.Repeat("x", int(common.MaxNameLen)), 2, KindFile))
}

func TestWriteBackRoundTrip(t *testing.T) {
	assert := assert.New(t)
	dv := New(common.NumDirEntries)
	assert.True(dv.Add("notes.txt", 12, KindFile))
	assert.True(dv.Add("src", 13, KindDir))
	assert.True(dv.Add("c", 14, KindFile))
	assert.True(dv.Remove("c"))

	f := &memFile{data: make([]byte, common.DirectoryFileSize)}
	assert.NoError(dv.WriteBack(f))

	got := New(common.NumDirEntries)
	assert.NoError(got.FetchFrom(f))
	assert.Equal(dv.Entries(), got.Entries())

	e, ok := got.FindEntry("src")
	assert.True(ok)
	assert.Equal(KindDir, e.Kind)
	assert.Equal(common.Snum(13), e.Sector)
}
