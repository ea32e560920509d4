package procmem

import "fmt"

// ResolveChain walks a pointer chain from base: every hop except the last
// adds its offset and dereferences the result, the last hop only adds. For a
// chain [o1, o2, o3] the result is deref(deref(base+o1)+o2)+o3: the address
// of the target value, not its contents. Chains must have at least one
// offset.
//
// A dereference that fails or yields a nil pointer returns ErrInvalidPointer.
// Intermediate pointers legitimately change between game ticks, so resolved
// addresses must not be cached across operations.
func ResolveChain(space AddressSpace, base uint64, chain []int64) (uint64, error) {
	if len(chain) == 0 {
		return 0, fmt.Errorf("%w: empty offset chain", ErrInvalidPointer)
	}
	ptr := ToPointer(space, base)
	for _, offset := range chain[:len(chain)-1] {
		hop := ptr.Add(offset)
		next, err := hop.ReadPointer()
		if err != nil {
			return 0, fmt.Errorf("%w: dereference at %#x: %v", ErrInvalidPointer, hop.Address(), err)
		}
		if next.IsNil() {
			return 0, fmt.Errorf("%w: nil pointer at %#x", ErrInvalidPointer, hop.Address())
		}
		ptr = next
	}
	return ptr.Add(chain[len(chain)-1]).Address(), nil
}
