package disk

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

var _ Disk = (*fileDisk)(nil)

type fileDisk struct {
	fd         int
	numSectors uint64
}

// NewFileDisk opens (creating if needed) a disk backed by a host file of
// numSectors sectors.
func NewFileDisk(path string, numSectors uint64) (fileDisk, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0666)
	if err != nil {
		return fileDisk{}, err
	}
	var stat unix.Stat_t
	err = unix.Fstat(fd, &stat)
	if err != nil {
		return fileDisk{}, err
	}
	if (stat.Mode&unix.S_IFREG) != 0 && uint64(stat.Size) != numSectors*SectorSize {
		err = unix.Ftruncate(fd, int64(numSectors*SectorSize))
		if err != nil {
			return fileDisk{}, err
		}
	}
	return fileDisk{fd, numSectors}, nil
}

func (d fileDisk) ReadSectorTo(a uint64, buf Sector) error {
	if uint64(len(buf)) != SectorSize {
		panic("buffer is not sector-sized")
	}
	if a >= d.numSectors {
		panic(fmt.Errorf("out-of-bounds read at %v", a))
	}
	_, err := unix.Pread(d.fd, buf, int64(a*SectorSize))
	if err != nil {
		panic("read failed: " + err.Error())
	}
	return nil
}

func (d fileDisk) ReadSector(a uint64) (Sector, error) {
	buf := make([]byte, SectorSize)
	err := d.ReadSectorTo(a, buf)
	return buf, err
}

func (d fileDisk) WriteSector(a uint64, v Sector) error {
	if uint64(len(v)) != SectorSize {
		panic(fmt.Errorf("v is not sector sized (%d bytes)", len(v)))
	}
	if a >= d.numSectors {
		panic(fmt.Errorf("out-of-bounds write at %v", a))
	}
	_, err := unix.Pwrite(d.fd, v, int64(a*SectorSize))
	if err != nil {
		panic("write failed: " + err.Error())
	}
	return nil
}

func (d fileDisk) Size() (uint64, error) {
	return d.numSectors, nil
}

func (d fileDisk) Barrier() error {
	// NOTE: on macOS, this flushes to the drive but doesn't actually issue a
	// disk barrier; see https://golang.org/src/internal/poll/fd_fsync_darwin.go
	// for more details. The correct replacement is to issue a fcntl syscall with
	// cmd F_FULLFSYNC.
	err := unix.Fsync(d.fd)
	if err != nil {
		panic("file sync failed: " + err.Error())
	}
	return nil
}

func (d fileDisk) Close() error {
	err := unix.Close(d.fd)
	if err != nil {
		panic(err)
	}
	return nil
}

var _ Disk = (*memDisk)(nil)

type memDisk struct {
	l       *sync.RWMutex
	sectors [][SectorSize]byte
}

// NewMemDisk returns an in-memory disk of numSectors zeroed sectors.
func NewMemDisk(numSectors uint64) memDisk {
	sectors := make([][SectorSize]byte, numSectors)
	return memDisk{l: new(sync.RWMutex), sectors: sectors}
}

func (d memDisk) ReadSectorTo(a uint64, buf Sector) error {
	d.l.RLock()
	defer d.l.RUnlock()
	if a >= uint64(len(d.sectors)) {
		panic(fmt.Errorf("out-of-bounds read at %v", a))
	}
	copy(buf, d.sectors[a][:])
	return nil
}

func (d memDisk) ReadSector(a uint64) (Sector, error) {
	buf := make(Sector, SectorSize)
	d.ReadSectorTo(a, buf)
	return buf, nil
}

func (d memDisk) WriteSector(a uint64, v Sector) error {
	if uint64(len(v)) != SectorSize {
		panic(fmt.Errorf("v is not sector-sized (%d bytes)", len(v)))
	}
	d.l.Lock()
	defer d.l.Unlock()
	if a >= uint64(len(d.sectors)) {
		panic(fmt.Errorf("out-of-bounds write at %v", a))
	}
	copy(d.sectors[a][:], v)
	return nil
}

func (d memDisk) Size() (uint64, error) {
	// this never changes so we assume it's safe to run lock-free
	return uint64(len(d.sectors)), nil
}

func (d memDisk) Barrier() error { return nil }

func (d memDisk) Close() error { return nil }
