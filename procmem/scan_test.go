package procmem_test

import (
	"errors"
	"testing"

	"github.com/kestrad/procwarp/procmem"
	"github.com/kestrad/procwarp/procmem/memtest"
)

func mustPattern(t *testing.T, s string, offset int64) procmem.Pattern {
	t.Helper()
	p, err := procmem.ParsePattern(s, offset)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestScanFindsFirstMatch(t *testing.T) {
	space := memtest.New()
	image := make([]byte, 0x100)
	copy(image[0x40:], []byte{0x48, 0x8B, 0x11, 0xC6})
	copy(image[0x80:], []byte{0x48, 0x8B, 0x22, 0xC6})
	space.Map(0x1000, image)

	p := mustPattern(t, "48 8B ?? C6", 0)
	addr, err := procmem.Scan(space, 0x1000, 0x100, p)
	if err != nil {
		t.Fatal(err)
	}
	if addr != 0x1040 {
		t.Errorf("Scan = %#x, want first match %#x", addr, 0x1040)
	}
}

func TestScanAppliesOffset(t *testing.T) {
	space := memtest.New()
	image := make([]byte, 0x100)
	copy(image[0x40:], []byte{0x48, 0x8B, 0x11, 0xC6})
	space.Map(0x1000, image)

	p := mustPattern(t, "48 8B ?? C6", 7)
	addr, err := procmem.Scan(space, 0x1000, 0x100, p)
	if err != nil {
		t.Fatal(err)
	}
	if addr != 0x1047 {
		t.Errorf("Scan = %#x, want %#x", addr, 0x1047)
	}
}

func TestScanIdempotent(t *testing.T) {
	space := memtest.New()
	image := make([]byte, 0x200)
	copy(image[0x123:], []byte{0xDE, 0xAD, 0xBE, 0xEF})
	space.Map(0x4000, image)

	p := mustPattern(t, "DE AD BE EF", 0)
	first, err := procmem.Scan(space, 0x4000, 0x200, p)
	if err != nil {
		t.Fatal(err)
	}
	second, err := procmem.Scan(space, 0x4000, 0x200, p)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("repeated scans differ: %#x vs %#x", first, second)
	}
}

func TestScanSkipsUnreadableRegions(t *testing.T) {
	space := memtest.New()
	space.MapProt(0x1000, make([]byte, 0x100), procmem.PROT_NONE)
	image := make([]byte, 0x100)
	copy(image[0x10:], []byte{0xAA, 0xBB})
	space.Map(0x2000, image)

	p := mustPattern(t, "AA BB", 0)
	addr, err := procmem.Scan(space, 0x1000, 0x1100, p)
	if err != nil {
		t.Fatal(err)
	}
	if addr != 0x2010 {
		t.Errorf("Scan = %#x, want %#x", addr, 0x2010)
	}
}

func TestScanNotFound(t *testing.T) {
	space := memtest.New()
	space.Map(0x1000, make([]byte, 0x100))

	p := mustPattern(t, "DE AD", 0)
	if _, err := procmem.Scan(space, 0x1000, 0x100, p); !errors.Is(err, procmem.ErrPatternNotFound) {
		t.Errorf("Scan = %v, want ErrPatternNotFound", err)
	}
}
