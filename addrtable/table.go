package addrtable

import (
	"errors"
	"fmt"

	"github.com/kestrad/procwarp/procmem"
)

// staleThreshold is the number of consecutive failed chain resolutions after
// which a base is considered stale and must be re-scanned.
const staleThreshold = 3

// ModuleRange is the scan window for base signatures, normally the target
// module's image range.
type ModuleRange struct {
	Base, Size uint64
}

type base struct {
	pattern    procmem.Pattern
	addr       uint64
	resolved   bool
	stale      bool
	failures   int
	generation int
}

type value struct {
	base  string
	chain []int64
	typ   procmem.ValueType
}

// Table maps names to foreign-memory locations. Base addresses are resolved
// lazily by signature scan and cached until an explicit rescan; resolved
// value addresses are recomputed on every access because intermediate
// pointers change whenever the game reallocates.
//
// A Table is not safe for concurrent use.
type Table struct {
	space  procmem.AddressSpace
	module ModuleRange
	bases  map[string]*base
	values map[string]value
}

// New builds a table from a validated schema.
func New(space procmem.AddressSpace, module ModuleRange, schema *Schema) (*Table, error) {
	t := &Table{
		space:  space,
		module: module,
		bases:  make(map[string]*base, len(schema.Bases)),
		values: make(map[string]value, len(schema.Addresses)),
	}
	for name, def := range schema.Bases {
		pattern, err := procmem.ParsePattern(def.Pattern, def.Offset)
		if err != nil {
			return nil, fmt.Errorf("%w: base %q: %v", ErrMalformedTable, name, err)
		}
		t.bases[name] = &base{pattern: pattern}
	}
	for name, def := range schema.Addresses {
		typ, err := def.valueType()
		if err != nil {
			return nil, fmt.Errorf("%w: address %q: %v", ErrMalformedTable, name, err)
		}
		t.values[name] = value{base: def.Base, chain: def.Offsets, typ: typ}
	}
	return t, nil
}

// Resolve returns the current address of a named value. The owning base is
// scanned on first use; the pointer chain is walked fresh on every call.
func (t *Table) Resolve(name string) (uint64, error) {
	v, ok := t.values[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	b := t.bases[v.base]
	baseAddr, err := t.resolveBase(v.base, b)
	if err != nil {
		return 0, err
	}
	addr, err := procmem.ResolveChain(t.space, baseAddr, v.chain)
	if err != nil {
		if errors.Is(err, procmem.ErrInvalidPointer) {
			b.failures++
			if b.failures >= staleThreshold {
				b.stale = true
			}
		}
		return 0, fmt.Errorf("resolve %q: %w", name, err)
	}
	b.failures = 0
	return addr, nil
}

// Get reads the current value behind a name.
func (t *Table) Get(name string) (procmem.Value, error) {
	addr, err := t.Resolve(name)
	if err != nil {
		return procmem.Value{}, err
	}
	return procmem.ReadValue(t.space, addr, t.values[name].typ)
}

// Set writes a value behind a name. The value kind must match the declared
// type.
func (t *Table) Set(name string, v procmem.Value) error {
	addr, err := t.Resolve(name)
	if err != nil {
		return err
	}
	return procmem.WriteValue(t.space, addr, t.values[name].typ, v)
}

// Rescan invalidates a base so its signature is scanned again on next use.
// The name may be either a base name or a value name, in which case the
// owning base is invalidated.
func (t *Table) Rescan(name string) error {
	b, ok := t.bases[name]
	if !ok {
		v, vok := t.values[name]
		if !vok {
			return fmt.Errorf("%w: %q", ErrUnknownName, name)
		}
		b = t.bases[v.base]
	}
	b.invalidate()
	return nil
}

// RescanAll invalidates every base.
func (t *Table) RescanAll() {
	for _, b := range t.bases {
		b.invalidate()
	}
}

// BaseGeneration returns how many times a base has been scanned successfully.
func (t *Table) BaseGeneration(name string) (int, error) {
	b, ok := t.bases[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	return b.generation, nil
}

func (t *Table) resolveBase(name string, b *base) (uint64, error) {
	if b.stale {
		return 0, fmt.Errorf("%w: %q", ErrStaleBase, name)
	}
	if b.resolved {
		return b.addr, nil
	}
	addr, err := procmem.Scan(t.space, t.module.Base, t.module.Size, b.pattern)
	if err != nil {
		return 0, fmt.Errorf("scan base %q: %w", name, err)
	}
	b.addr = addr
	b.resolved = true
	b.generation++
	return addr, nil
}

func (b *base) invalidate() {
	b.resolved = false
	b.stale = false
	b.failures = 0
	b.addr = 0
}
