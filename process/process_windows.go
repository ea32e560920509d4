//go:build windows

package process

import (
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/kestrad/procwarp/procmem"
)

const openAccess = windows.PROCESS_QUERY_INFORMATION |
	windows.PROCESS_VM_READ |
	windows.PROCESS_VM_WRITE |
	windows.PROCESS_VM_OPERATION

type winProcess struct {
	handle  windows.Handle
	pid     uint32
	main    Module
	modules []Module
	ptrSize uint64
}

// Open attaches to the first process whose executable name matches name
// (case-insensitive), e.g. "DarkSoulsIII.exe".
func Open(name string) (Process, error) {
	pid, err := findPid(name)
	if err != nil {
		return nil, err
	}
	return OpenPid(pid)
}

// OpenPid attaches to a process by id.
func OpenPid(pid uint32) (Process, error) {
	handle, err := windows.OpenProcess(openAccess, false, pid)
	if err != nil {
		return nil, fmt.Errorf("open process %d: %w", pid, err)
	}
	p := &winProcess{handle: handle, pid: pid, ptrSize: 8}
	var wow64 bool
	if err := windows.IsWow64Process(handle, &wow64); err == nil && wow64 {
		p.ptrSize = 4
	}
	if err := p.loadModules(); err != nil {
		windows.CloseHandle(handle)
		return nil, err
	}
	return p, nil
}

func findPid(name string) (uint32, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return 0, fmt.Errorf("process snapshot: %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	for err := windows.Process32First(snapshot, &entry); err == nil; err = windows.Process32Next(snapshot, &entry) {
		if strings.EqualFold(windows.UTF16ToString(entry.ExeFile[:]), name) {
			return entry.ProcessID, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrProcessNotFound, name)
}

func (p *winProcess) loadModules() error {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, p.pid)
	if err != nil {
		return fmt.Errorf("module snapshot: %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ModuleEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	for err := windows.Module32First(snapshot, &entry); err == nil; err = windows.Module32Next(snapshot, &entry) {
		m := Module{
			Name: windows.UTF16ToString(entry.Module[:]),
			Base: uint64(entry.ModBaseAddr),
			Size: uint64(entry.ModBaseSize),
		}
		p.modules = append(p.modules, m)
	}
	if len(p.modules) == 0 {
		return fmt.Errorf("%w: no modules in process %d", ErrModuleNotFound, p.pid)
	}
	// The first snapshot entry is the executable image itself.
	p.main = p.modules[0]
	return nil
}

func (p *winProcess) Pid() uint32 {
	return p.pid
}

func (p *winProcess) MainModule() Module {
	return p.main
}

func (p *winProcess) FindModule(name string) (Module, error) {
	for _, m := range p.modules {
		if strings.EqualFold(m.Name, name) {
			return m, nil
		}
	}
	return Module{}, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
}

func (p *winProcess) PointerSize() uint64 {
	return p.ptrSize
}

func (p *winProcess) Regions() ([]procmem.Region, error) {
	var regions []procmem.Region
	var addr uintptr
	for {
		var mbi windows.MemoryBasicInformation
		err := windows.VirtualQueryEx(p.handle, addr, &mbi, unsafe.Sizeof(mbi))
		if err != nil {
			break
		}
		if mbi.State == windows.MEM_COMMIT {
			regions = append(regions, procmem.Region{
				Addr: uint64(mbi.BaseAddress),
				Size: uint64(mbi.RegionSize),
				Prot: protFromWindows(mbi.Protect),
			})
		}
		next := mbi.BaseAddress + mbi.RegionSize
		if next <= addr {
			break
		}
		addr = next
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("%w: no committed regions", procmem.ErrAccessDenied)
	}
	return regions, nil
}

func (p *winProcess) MemRead(addr, size uint64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	buf := make([]byte, size)
	var read uintptr
	err := windows.ReadProcessMemory(p.handle, uintptr(addr), &buf[0], uintptr(size), &read)
	if err != nil {
		return nil, fmt.Errorf("%w: read %d bytes at %#x: %v", procmem.ErrAccessDenied, size, addr, err)
	}
	if read != uintptr(size) {
		return nil, fmt.Errorf("%w: short read at %#x: %d of %d bytes", procmem.ErrAccessDenied, addr, read, size)
	}
	return buf, nil
}

func (p *winProcess) MemWrite(addr uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var written uintptr
	err := windows.WriteProcessMemory(p.handle, uintptr(addr), &data[0], uintptr(len(data)), &written)
	if err != nil {
		return fmt.Errorf("%w: write %d bytes at %#x: %v", procmem.ErrAccessDenied, len(data), addr, err)
	}
	if written != uintptr(len(data)) {
		return fmt.Errorf("%w: short write at %#x: %d of %d bytes", procmem.ErrAccessDenied, addr, written, len(data))
	}
	return nil
}

func (p *winProcess) Close() error {
	return windows.CloseHandle(p.handle)
}

func protFromWindows(protect uint32) procmem.Prot {
	if protect&windows.PAGE_GUARD != 0 || protect&windows.PAGE_NOACCESS != 0 {
		return procmem.PROT_NONE
	}
	var prot procmem.Prot
	switch protect &^ (windows.PAGE_GUARD | windows.PAGE_NOCACHE | windows.PAGE_WRITECOMBINE) {
	case windows.PAGE_READONLY:
		prot = procmem.PROT_READ
	case windows.PAGE_READWRITE, windows.PAGE_WRITECOPY:
		prot = procmem.PROT_READ | procmem.PROT_WRITE
	case windows.PAGE_EXECUTE:
		prot = procmem.PROT_EXEC
	case windows.PAGE_EXECUTE_READ:
		prot = procmem.PROT_READ | procmem.PROT_EXEC
	case windows.PAGE_EXECUTE_READWRITE, windows.PAGE_EXECUTE_WRITECOPY:
		prot = procmem.PROT_READ | procmem.PROT_WRITE | procmem.PROT_EXEC
	}
	return prot
}
