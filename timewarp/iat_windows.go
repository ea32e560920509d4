//go:build windows

package timewarp

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Import table layout of an in-memory PE32+ image. Only the fields needed to
// reach the import address tables are declared.

type imageDosHeader struct {
	Magic  uint16
	_      [58]byte
	Lfanew int32
}

type imageFileHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

type imageDataDirectory struct {
	VirtualAddress uint32
	Size           uint32
}

type imageOptionalHeader64 struct {
	Magic                       uint16
	MajorLinkerVersion          uint8
	MinorLinkerVersion          uint8
	SizeOfCode                  uint32
	SizeOfInitializedData       uint32
	SizeOfUninitializedData     uint32
	AddressOfEntryPoint         uint32
	BaseOfCode                  uint32
	ImageBase                   uint64
	SectionAlignment            uint32
	FileAlignment               uint32
	MajorOperatingSystemVersion uint16
	MinorOperatingSystemVersion uint16
	MajorImageVersion           uint16
	MinorImageVersion           uint16
	MajorSubsystemVersion       uint16
	MinorSubsystemVersion       uint16
	Win32VersionValue           uint32
	SizeOfImage                 uint32
	SizeOfHeaders               uint32
	CheckSum                    uint32
	Subsystem                   uint16
	DllCharacteristics          uint16
	SizeOfStackReserve          uint64
	SizeOfStackCommit           uint64
	SizeOfHeapReserve           uint64
	SizeOfHeapCommit            uint64
	LoaderFlags                 uint32
	NumberOfRvaAndSizes         uint32
	DataDirectory               [16]imageDataDirectory
}

type imageNtHeaders64 struct {
	Signature      uint32
	FileHeader     imageFileHeader
	OptionalHeader imageOptionalHeader64
}

type imageImportDescriptor struct {
	OriginalFirstThunk uint32
	TimeDateStamp      uint32
	ForwarderChain     uint32
	Name               uint32
	FirstThunk         uint32
}

const (
	dosMagic        = 0x5A4D // MZ
	ntSignature     = 0x4550 // PE\0\0
	importDirectory = 1
	optionalMagic64 = 0x20B
)

// patch records one rewritten import slot so Remove can restore it.
type patch struct {
	slot     *uintptr
	original uintptr
}

// patchModuleImports swaps every import-address-table entry of the module at
// base whose value appears in replace. Matching by resolved address instead
// of import name sidesteps api-set forwarding. Images that are not PE32+ or
// have no import directory are skipped silently.
func patchModuleImports(base uintptr, replace map[uintptr]uintptr) ([]patch, error) {
	dos := (*imageDosHeader)(unsafe.Pointer(base))
	if dos.Magic != dosMagic {
		return nil, nil
	}
	nt := (*imageNtHeaders64)(unsafe.Pointer(base + uintptr(dos.Lfanew)))
	if nt.Signature != ntSignature || nt.OptionalHeader.Magic != optionalMagic64 {
		return nil, nil
	}
	dir := nt.OptionalHeader.DataDirectory[importDirectory]
	if dir.VirtualAddress == 0 {
		return nil, nil
	}

	var patches []patch
	descAddr := base + uintptr(dir.VirtualAddress)
	for {
		desc := (*imageImportDescriptor)(unsafe.Pointer(descAddr))
		if desc.FirstThunk == 0 && desc.OriginalFirstThunk == 0 {
			break
		}
		thunk := base + uintptr(desc.FirstThunk)
		for {
			slot := (*uintptr)(unsafe.Pointer(thunk))
			if *slot == 0 {
				break
			}
			if target, ok := replace[*slot]; ok {
				original, err := swapSlot(slot, target)
				if err != nil {
					restorePatches(patches)
					return nil, err
				}
				patches = append(patches, patch{slot: slot, original: original})
			}
			thunk += unsafe.Sizeof(uintptr(0))
		}
		descAddr += unsafe.Sizeof(imageImportDescriptor{})
	}
	return patches, nil
}

// swapSlot rewrites one IAT slot under a temporary PAGE_READWRITE window and
// returns the previous value.
func swapSlot(slot *uintptr, target uintptr) (uintptr, error) {
	addr := uintptr(unsafe.Pointer(slot))
	size := unsafe.Sizeof(uintptr(0))
	var old uint32
	if err := windows.VirtualProtect(addr, size, windows.PAGE_READWRITE, &old); err != nil {
		return 0, fmt.Errorf("unprotect import slot %#x: %w", addr, err)
	}
	original := *slot
	*slot = target
	var scratch uint32
	if err := windows.VirtualProtect(addr, size, old, &scratch); err != nil {
		return 0, fmt.Errorf("reprotect import slot %#x: %w", addr, err)
	}
	return original, nil
}

func restorePatches(patches []patch) {
	for i := len(patches) - 1; i >= 0; i-- {
		swapSlot(patches[i].slot, patches[i].original)
	}
}
