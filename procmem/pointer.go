package procmem

import "encoding/binary"

type Pointer struct {
	space AddressSpace
	addr  uint64
}

func ToPointer(space AddressSpace, addr uint64) Pointer {
	return Pointer{space, addr}
}

func (p Pointer) IsNil() bool {
	return p.addr == 0
}

func (p Pointer) Address() uint64 {
	return p.addr
}

func (p Pointer) Add(offset int64) Pointer {
	return Pointer{p.space, uint64(int64(p.addr) + offset)}
}

func (p Pointer) MemRead(size uint64) ([]byte, error) {
	return p.space.MemRead(p.addr, size)
}

func (p Pointer) MemWrite(data []byte) error {
	return p.space.MemWrite(p.addr, data)
}

// ReadPointer dereferences p, reading a pointer-sized little-endian value.
func (p Pointer) ReadPointer() (Pointer, error) {
	size := p.space.PointerSize()
	data, err := p.space.MemRead(p.addr, size)
	if err != nil {
		return Pointer{}, err
	}
	var addr uint64
	if size == 4 {
		addr = uint64(binary.LittleEndian.Uint32(data))
	} else {
		addr = binary.LittleEndian.Uint64(data)
	}
	return Pointer{p.space, addr}, nil
}
