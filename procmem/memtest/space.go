// Package memtest provides an in-memory AddressSpace for tests. It behaves
// like a foreign process image: reads outside mapped regions fault, and the
// whole space can be switched to faulting to simulate a terminated process.
package memtest

import (
	"encoding/binary"
	"errors"
	"sort"

	"github.com/kestrad/procwarp/procmem"
)

var ErrUnmapped = errors.New("memtest: unmapped address")

type segment struct {
	region procmem.Region
	data   []byte
}

type Space struct {
	// Faulty makes every access fail, as if the owning process exited.
	Faulty   bool
	ptrSize  uint64
	segments []segment
}

func New() *Space {
	return &Space{ptrSize: 8}
}

// Map adds a readable+writable region at addr backed by data.
func (s *Space) Map(addr uint64, data []byte) {
	s.MapProt(addr, data, procmem.PROT_READ|procmem.PROT_WRITE)
}

func (s *Space) MapProt(addr uint64, data []byte, prot procmem.Prot) {
	s.segments = append(s.segments, segment{
		region: procmem.Region{Addr: addr, Size: uint64(len(data)), Prot: prot},
		data:   data,
	})
	sort.Slice(s.segments, func(i, j int) bool {
		return s.segments[i].region.Addr < s.segments[j].region.Addr
	})
}

// SetPointer writes a little-endian pointer value at addr, mapping the slot
// if needed.
func (s *Space) SetPointer(addr, value uint64) {
	buf := make([]byte, s.ptrSize)
	binary.LittleEndian.PutUint64(buf, value)
	if err := s.MemWrite(addr, buf); err != nil {
		s.Map(addr, buf)
	}
}

func (s *Space) PointerSize() uint64 {
	return s.ptrSize
}

func (s *Space) Regions() ([]procmem.Region, error) {
	if s.Faulty {
		return nil, ErrUnmapped
	}
	regions := make([]procmem.Region, len(s.segments))
	for i, seg := range s.segments {
		regions[i] = seg.region
	}
	return regions, nil
}

func (s *Space) MemRead(addr, size uint64) ([]byte, error) {
	if s.Faulty {
		return nil, ErrUnmapped
	}
	seg, ok := s.find(addr, size)
	if !ok {
		return nil, ErrUnmapped
	}
	off := addr - seg.region.Addr
	out := make([]byte, size)
	copy(out, seg.data[off:off+size])
	return out, nil
}

func (s *Space) MemWrite(addr uint64, data []byte) error {
	if s.Faulty {
		return ErrUnmapped
	}
	seg, ok := s.find(addr, uint64(len(data)))
	if !ok {
		return ErrUnmapped
	}
	off := addr - seg.region.Addr
	copy(seg.data[off:off+uint64(len(data))], data)
	return nil
}

func (s *Space) find(addr, size uint64) (segment, bool) {
	for _, seg := range s.segments {
		if addr >= seg.region.Addr && addr+size <= seg.region.Addr+seg.region.Size {
			return seg, true
		}
	}
	return segment{}, false
}
