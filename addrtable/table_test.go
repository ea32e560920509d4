package addrtable_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kestrad/procwarp/addrtable"
	"github.com/kestrad/procwarp/procmem"
	"github.com/kestrad/procwarp/procmem/memtest"
)

const testSchema = `
bases:
  WorldChrMan:
    pattern: "48 8B 05 ?? ?? ?? ?? 48 85 C0"
    offset: 3
addresses:
  PlayerHP:
    base: WorldChrMan
    offsets: [0x10, 0x8]
    type: int
  PlayerSP:
    base: WorldChrMan
    offsets: [0x20]
    type: float
  BossName:
    base: WorldChrMan
    offsets: [0x10, 0x30]
    type: bytes
    length: 4
`

func loadSchema(t *testing.T, doc string) *addrtable.Schema {
	t.Helper()
	s, err := addrtable.Load(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// newFixture maps a fake module image whose signature resolves the base to
// 0x1043, with a pointer at base+0x10 leading to a data page at 0x2000.
func newFixture(t *testing.T) (*memtest.Space, *addrtable.Table) {
	t.Helper()
	space := memtest.New()
	image := make([]byte, 0x100)
	copy(image[0x40:], []byte{0x48, 0x8B, 0x05, 0x11, 0x22, 0x33, 0x44, 0x48, 0x85, 0xC0})
	space.Map(0x1000, image)
	space.SetPointer(0x1053, 0x2000) // base(0x1043)+0x10
	space.Map(0x2000, make([]byte, 0x100))

	table, err := addrtable.New(space, addrtable.ModuleRange{Base: 0x1000, Size: 0x100}, loadSchema(t, testSchema))
	if err != nil {
		t.Fatal(err)
	}
	return space, table
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown base", `
bases:
  A: {pattern: "AA BB"}
addresses:
  V: {base: B, offsets: [0], type: int}
`},
		{"empty chain", `
bases:
  A: {pattern: "AA BB"}
addresses:
  V: {base: A, offsets: [], type: int}
`},
		{"bad type tag", `
bases:
  A: {pattern: "AA BB"}
addresses:
  V: {base: A, offsets: [0], type: double}
`},
		{"bytes without length", `
bases:
  A: {pattern: "AA BB"}
addresses:
  V: {base: A, offsets: [0], type: bytes}
`},
		{"bad pattern", `
bases:
  A: {pattern: "ZZ"}
addresses:
  V: {base: A, offsets: [0], type: int}
`},
		{"no bases", `
addresses:
  V: {base: A, offsets: [0], type: int}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := addrtable.Load(strings.NewReader(tt.doc)); !errors.Is(err, addrtable.ErrMalformedTable) {
				t.Errorf("Load = %v, want ErrMalformedTable", err)
			}
		})
	}
}

func TestResolveAndRoundTrip(t *testing.T) {
	_, table := newFixture(t)

	addr, err := table.Resolve("PlayerHP")
	if err != nil {
		t.Fatal(err)
	}
	if addr != 0x2008 {
		t.Errorf("Resolve(PlayerHP) = %#x, want %#x", addr, 0x2008)
	}

	if err := table.Set("PlayerHP", procmem.Int32Value(454)); err != nil {
		t.Fatal(err)
	}
	v, err := table.Get("PlayerHP")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(procmem.Int32Value(454), v); diff != "" {
		t.Errorf("Get(PlayerHP) mismatch (-want +got):\n%s", diff)
	}
}

func TestBaseScannedOnce(t *testing.T) {
	_, table := newFixture(t)

	for i := 0; i < 3; i++ {
		if _, err := table.Get("PlayerHP"); err != nil {
			t.Fatal(err)
		}
	}
	gen, err := table.BaseGeneration("WorldChrMan")
	if err != nil {
		t.Fatal(err)
	}
	if gen != 1 {
		t.Errorf("base generation = %d, want 1 (single lazy scan)", gen)
	}
}

func TestUnknownName(t *testing.T) {
	_, table := newFixture(t)
	if _, err := table.Get("Nope"); !errors.Is(err, addrtable.ErrUnknownName) {
		t.Errorf("Get = %v, want ErrUnknownName", err)
	}
}

func TestStaleBaseAfterRepeatedInvalidPointer(t *testing.T) {
	space, table := newFixture(t)

	// First touch resolves the base, then the foreign object goes away.
	if _, err := table.Resolve("PlayerHP"); err != nil {
		t.Fatal(err)
	}
	space.SetPointer(0x1053, 0)

	for i := 0; i < 3; i++ {
		if _, err := table.Resolve("PlayerHP"); !errors.Is(err, procmem.ErrInvalidPointer) {
			t.Fatalf("tick %d: Resolve = %v, want ErrInvalidPointer", i, err)
		}
	}
	if _, err := table.Resolve("PlayerHP"); !errors.Is(err, addrtable.ErrStaleBase) {
		t.Fatalf("Resolve after repeated failures = %v, want ErrStaleBase", err)
	}

	// Rescan recovers once the pointer is valid again.
	space.SetPointer(0x1053, 0x2000)
	if err := table.Rescan("WorldChrMan"); err != nil {
		t.Fatal(err)
	}
	if _, err := table.Resolve("PlayerHP"); err != nil {
		t.Fatalf("Resolve after rescan = %v", err)
	}
}

func TestTransientFailureResetsOnSuccess(t *testing.T) {
	space, table := newFixture(t)

	if _, err := table.Resolve("PlayerHP"); err != nil {
		t.Fatal(err)
	}
	// Two bad ticks, then recovery; the base must not go stale.
	space.SetPointer(0x1053, 0)
	for i := 0; i < 2; i++ {
		if _, err := table.Resolve("PlayerHP"); !errors.Is(err, procmem.ErrInvalidPointer) {
			t.Fatal(err)
		}
	}
	space.SetPointer(0x1053, 0x2000)
	if _, err := table.Resolve("PlayerHP"); err != nil {
		t.Fatal(err)
	}
	space.SetPointer(0x1053, 0)
	for i := 0; i < 2; i++ {
		if _, err := table.Resolve("PlayerHP"); !errors.Is(err, procmem.ErrInvalidPointer) {
			t.Fatal(err)
		}
	}
	space.SetPointer(0x1053, 0x2000)
	if _, err := table.Resolve("PlayerHP"); err != nil {
		t.Errorf("Resolve = %v, want success (failure streak was broken)", err)
	}
}

func TestRescanByValueName(t *testing.T) {
	_, table := newFixture(t)
	if _, err := table.Get("PlayerHP"); err != nil {
		t.Fatal(err)
	}
	if err := table.Rescan("PlayerHP"); err != nil {
		t.Fatal(err)
	}
	if _, err := table.Get("PlayerHP"); err != nil {
		t.Fatal(err)
	}
	gen, err := table.BaseGeneration("WorldChrMan")
	if err != nil {
		t.Fatal(err)
	}
	if gen != 2 {
		t.Errorf("base generation = %d, want 2 after rescan", gen)
	}
}

func TestGetAfterProcessExit(t *testing.T) {
	space, table := newFixture(t)

	// Resolve once while the process is alive so the base is cached.
	if _, err := table.Get("PlayerSP"); err != nil {
		t.Fatal(err)
	}
	space.Faulty = true

	// PlayerSP has a single-hop chain, so resolution still succeeds and the
	// failure surfaces from the read itself.
	if _, err := table.Get("PlayerSP"); !errors.Is(err, procmem.ErrAccessDenied) {
		t.Errorf("Get = %v, want ErrAccessDenied", err)
	}
}
