package procmem

type Prot int

const (
	PROT_NONE Prot = 0
	PROT_READ Prot = 1 << (iota - 1)
	PROT_WRITE
	PROT_EXEC
)

type Region struct {
	Addr, Size uint64
	Prot       Prot
}

func (r Region) Contains(addr uint64) bool {
	return addr >= r.Addr && addr < r.Addr+r.Size
}

// AddressSpace is the read/write view of a foreign process's memory. The
// memory behind it is opaque and untyped; every access can fail at any time
// because the owning process exits, unmaps or reprotects pages on its own
// schedule. Implementations surface such failures as errors, never panics.
type AddressSpace interface {
	// PointerSize returns the width in bytes of a pointer in the target
	// process (4 or 8).
	PointerSize() uint64
	// Regions returns the currently mapped regions in ascending address
	// order.
	Regions() ([]Region, error)
	MemRead(addr, size uint64) ([]byte, error)
	MemWrite(addr uint64, data []byte) error
}
