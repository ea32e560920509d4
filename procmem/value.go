package procmem

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"
)

// Kind enumerates the closed set of value encodings the accessor knows about.
type Kind int

const (
	KindInt32 Kind = iota
	KindFloat32
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindInt32:
		return "int32"
	case KindFloat32:
		return "float32"
	case KindBytes:
		return "bytes"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ValueType describes how the bytes at an address decode. Len is the declared
// buffer length and is meaningful only for KindBytes.
type ValueType struct {
	Kind Kind
	Len  int
}

func (t ValueType) size() uint64 {
	switch t.Kind {
	case KindInt32, KindFloat32:
		return 4
	default:
		return uint64(t.Len)
	}
}

// Value is a decoded foreign-memory value. Exactly the field matching Kind is
// populated.
type Value struct {
	Kind  Kind
	Int   int32
	Float float32
	Raw   []byte
}

func Int32Value(v int32) Value     { return Value{Kind: KindInt32, Int: v} }
func Float32Value(v float32) Value { return Value{Kind: KindFloat32, Float: v} }
func BytesValue(b []byte) Value    { return Value{Kind: KindBytes, Raw: b} }

// ReadValue decodes a typed value at addr with a single read of exactly the
// declared byte count.
func ReadValue(space AddressSpace, addr uint64, typ ValueType) (Value, error) {
	data, err := space.MemRead(addr, typ.size())
	if err != nil {
		return Value{}, fmt.Errorf("%w: read %s at %#x: %v", ErrAccessDenied, typ.Kind, addr, err)
	}
	switch typ.Kind {
	case KindInt32:
		return Int32Value(int32(binary.LittleEndian.Uint32(data))), nil
	case KindFloat32:
		return Float32Value(math.Float32frombits(binary.LittleEndian.Uint32(data))), nil
	case KindBytes:
		return BytesValue(data), nil
	}
	return Value{}, fmt.Errorf("%w: %s", ErrValueType, typ.Kind)
}

// WriteValue encodes v at addr with a single write of exactly the declared
// byte count. For KindBytes the buffer length must equal the declared length.
func WriteValue(space AddressSpace, addr uint64, typ ValueType, v Value) error {
	if v.Kind != typ.Kind {
		return fmt.Errorf("%w: have %s, want %s", ErrValueType, v.Kind, typ.Kind)
	}
	var data []byte
	switch typ.Kind {
	case KindInt32:
		data = binary.LittleEndian.AppendUint32(nil, uint32(v.Int))
	case KindFloat32:
		data = binary.LittleEndian.AppendUint32(nil, math.Float32bits(v.Float))
	case KindBytes:
		if len(v.Raw) != typ.Len {
			return fmt.Errorf("%w: buffer length %d, declared %d", ErrValueType, len(v.Raw), typ.Len)
		}
		data = v.Raw
	default:
		return fmt.Errorf("%w: %s", ErrValueType, typ.Kind)
	}
	if err := space.MemWrite(addr, data); err != nil {
		return fmt.Errorf("%w: write %s at %#x: %v", ErrAccessDenied, typ.Kind, addr, err)
	}
	return nil
}

// ReadStringUTF16 reads up to maxLen bytes at addr and decodes a UTF-16LE
// string, cut at the first aligned double-zero terminator.
func ReadStringUTF16(space AddressSpace, addr uint64, maxLen int) (string, error) {
	data, err := space.MemRead(addr, uint64(maxLen))
	if err != nil {
		return "", fmt.Errorf("%w: read string at %#x: %v", ErrAccessDenied, addr, err)
	}
	units := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		u := binary.LittleEndian.Uint16(data[i:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units)), nil
}

// WriteBit sets or clears a single bit of the byte at addr.
func WriteBit(space AddressSpace, addr uint64, index uint, set bool) error {
	if index > 7 {
		return fmt.Errorf("%w: bit index %d", ErrValueType, index)
	}
	data, err := space.MemRead(addr, 1)
	if err != nil {
		return fmt.Errorf("%w: read bit at %#x: %v", ErrAccessDenied, addr, err)
	}
	b := data[0] &^ (1 << index)
	if set {
		b |= 1 << index
	}
	if err := space.MemWrite(addr, []byte{b}); err != nil {
		return fmt.Errorf("%w: write bit at %#x: %v", ErrAccessDenied, addr, err)
	}
	return nil
}
