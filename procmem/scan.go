package procmem

import "fmt"

const scanChunkSize = 64 * 1024

// Scan searches [start, start+size) for the first occurrence of p in
// ascending address order and returns the match address plus the pattern's
// fixed offset. Only readable regions are searched; regions that cannot be
// read (unmapped or reprotected mid-scan) are skipped rather than failing the
// whole scan. A match is not guaranteed to be unique; callers get the lowest
// address.
func Scan(space AddressSpace, start, size uint64, p Pattern) (uint64, error) {
	if p.Len() == 0 {
		return 0, fmt.Errorf("%w: empty pattern", ErrPatternSyntax)
	}
	regions, err := space.Regions()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	end := start + size
	for _, r := range regions {
		if r.Prot&PROT_READ == 0 {
			continue
		}
		lo, hi := max(r.Addr, start), min(r.Addr+r.Size, end)
		if lo >= hi {
			continue
		}
		if addr, ok := scanRange(space, lo, hi, p); ok {
			return uint64(int64(addr) + p.Offset), nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrPatternNotFound, p)
}

func scanRange(space AddressSpace, lo, hi uint64, p Pattern) (uint64, bool) {
	overlap := uint64(p.Len() - 1)
	for addr := lo; addr < hi; addr += scanChunkSize {
		size := min(hi-addr, scanChunkSize+overlap)
		buf, err := space.MemRead(addr, size)
		if err != nil {
			// Unreadable sub-range, move on.
			continue
		}
		for i := 0; i+p.Len() <= len(buf); i++ {
			if p.MatchAt(buf, i) {
				return addr + uint64(i), true
			}
		}
	}
	return 0, false
}
