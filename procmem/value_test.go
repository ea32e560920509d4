package procmem_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/kestrad/procwarp/procmem"
	"github.com/kestrad/procwarp/procmem/memtest"
)

func TestValueRoundTrip(t *testing.T) {
	space := memtest.New()
	space.Map(0x1000, make([]byte, 0x100))

	intType := procmem.ValueType{Kind: procmem.KindInt32}
	if err := procmem.WriteValue(space, 0x1000, intType, procmem.Int32Value(1234)); err != nil {
		t.Fatal(err)
	}
	v, err := procmem.ReadValue(space, 0x1000, intType)
	if err != nil {
		t.Fatal(err)
	}
	if v.Int != 1234 {
		t.Errorf("read int32 = %d, want 1234", v.Int)
	}

	floatType := procmem.ValueType{Kind: procmem.KindFloat32}
	if err := procmem.WriteValue(space, 0x1010, floatType, procmem.Float32Value(-12.5)); err != nil {
		t.Fatal(err)
	}
	f, err := procmem.ReadValue(space, 0x1010, floatType)
	if err != nil {
		t.Fatal(err)
	}
	if f.Float != -12.5 {
		t.Errorf("read float32 = %v, want -12.5", f.Float)
	}

	buf := []byte("0123456789abcdef")
	bytesType := procmem.ValueType{Kind: procmem.KindBytes, Len: len(buf)}
	if err := procmem.WriteValue(space, 0x1020, bytesType, procmem.BytesValue(buf)); err != nil {
		t.Fatal(err)
	}
	b, err := procmem.ReadValue(space, 0x1020, bytesType)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b.Raw, buf) {
		t.Errorf("read bytes = %q, want %q", b.Raw, buf)
	}
}

func TestWriteValueKindMismatch(t *testing.T) {
	space := memtest.New()
	space.Map(0x1000, make([]byte, 8))

	typ := procmem.ValueType{Kind: procmem.KindInt32}
	if err := procmem.WriteValue(space, 0x1000, typ, procmem.Float32Value(1)); !errors.Is(err, procmem.ErrValueType) {
		t.Errorf("WriteValue = %v, want ErrValueType", err)
	}
}

func TestWriteValueBufferLength(t *testing.T) {
	space := memtest.New()
	space.Map(0x1000, make([]byte, 32))

	typ := procmem.ValueType{Kind: procmem.KindBytes, Len: 16}
	err := procmem.WriteValue(space, 0x1000, typ, procmem.BytesValue([]byte("short")))
	if !errors.Is(err, procmem.ErrValueType) {
		t.Errorf("WriteValue = %v, want ErrValueType", err)
	}
}

func TestAccessDeniedSurfaces(t *testing.T) {
	space := memtest.New()
	space.Map(0x1000, make([]byte, 8))
	space.Faulty = true

	typ := procmem.ValueType{Kind: procmem.KindInt32}
	if _, err := procmem.ReadValue(space, 0x1000, typ); !errors.Is(err, procmem.ErrAccessDenied) {
		t.Errorf("ReadValue = %v, want ErrAccessDenied", err)
	}
	if err := procmem.WriteValue(space, 0x1000, typ, procmem.Int32Value(1)); !errors.Is(err, procmem.ErrAccessDenied) {
		t.Errorf("WriteValue = %v, want ErrAccessDenied", err)
	}
}

func TestReadStringUTF16(t *testing.T) {
	space := memtest.New()
	raw := []byte{'I', 0, 'u', 0, 'd', 0, 'e', 0, 'x', 0, 0, 0, 'x', 0}
	space.Map(0x1000, raw)

	s, err := procmem.ReadStringUTF16(space, 0x1000, len(raw))
	if err != nil {
		t.Fatal(err)
	}
	if s != "Iudex" {
		t.Errorf("ReadStringUTF16 = %q, want %q", s, "Iudex")
	}
}

func TestWriteBit(t *testing.T) {
	space := memtest.New()
	space.Map(0x1000, []byte{0b0000_0100})

	if err := procmem.WriteBit(space, 0x1000, 0, true); err != nil {
		t.Fatal(err)
	}
	if err := procmem.WriteBit(space, 0x1000, 2, false); err != nil {
		t.Fatal(err)
	}
	data, err := space.MemRead(0x1000, 1)
	if err != nil {
		t.Fatal(err)
	}
	if data[0] != 0b0000_0001 {
		t.Errorf("byte = %#08b, want 0b00000001", data[0])
	}
}
