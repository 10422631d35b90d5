package disk

// Sector is a SectorSize-byte buffer
type Sector = []byte

const SectorSize uint64 = 512

// Disk provides access to a logical sector-based disk.
//
// The device is assumed reliable: implementations panic on out-of-range
// access or an I/O failure instead of surfacing a recoverable error.
type Disk interface {
	// ReadSector reads a disk sector by address
	//
	// Expects a < Size().
	ReadSector(a uint64) (Sector, error)

	// ReadSectorTo reads the disk sector at a and stores the result in b
	//
	// Expects a < Size().
	ReadSectorTo(a uint64, b Sector) error

	// WriteSector updates a disk sector by address
	//
	// Expects a < Size().
	WriteSector(a uint64, v Sector) error

	// Size reports how big the disk is, in sectors
	Size() (uint64, error)

	// Barrier ensures data is persisted.
	//
	// When it returns, all outstanding writes are guaranteed to be
	// durably on disk
	Barrier() error

	// Close releases any resources used by the disk and makes it unusable.
	Close() error
}
