//go:build windows

package inject

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modkernel32            = windows.NewLazySystemDLL("kernel32.dll")
	procVirtualAllocEx     = modkernel32.NewProc("VirtualAllocEx")
	procVirtualFreeEx      = modkernel32.NewProc("VirtualFreeEx")
	procCreateRemoteThread = modkernel32.NewProc("CreateRemoteThread")
	procLoadLibraryW       = modkernel32.NewProc("LoadLibraryW")
)

const injectAccess = windows.PROCESS_QUERY_INFORMATION |
	windows.PROCESS_CREATE_THREAD |
	windows.PROCESS_VM_READ |
	windows.PROCESS_VM_WRITE |
	windows.PROCESS_VM_OPERATION

// Library forces the process identified by pid to load the DLL at path: the
// path is written into freshly allocated memory in the target and a remote
// thread runs LoadLibraryW on it. The thread is awaited so hook installation
// inside the DLL has begun before Library returns.
func Library(pid uint32, path string) error {
	handle, err := windows.OpenProcess(injectAccess, false, pid)
	if err != nil {
		return fmt.Errorf("%w: open process %d: %v", ErrInjection, pid, err)
	}
	defer windows.CloseHandle(handle)

	pathUTF16, err := windows.UTF16FromString(path)
	if err != nil {
		return fmt.Errorf("%w: DLL path: %v", ErrInjection, err)
	}
	size := uintptr(len(pathUTF16) * 2)

	remote, _, callErr := procVirtualAllocEx.Call(
		uintptr(handle), 0, size,
		windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if remote == 0 {
		return fmt.Errorf("%w: allocate in target: %v", ErrInjection, callErr)
	}
	defer procVirtualFreeEx.Call(uintptr(handle), remote, 0, windows.MEM_RELEASE)

	if err := windows.WriteProcessMemory(handle, remote, (*byte)(unsafe.Pointer(&pathUTF16[0])), size, nil); err != nil {
		return fmt.Errorf("%w: write DLL path: %v", ErrInjection, err)
	}

	if err := procLoadLibraryW.Find(); err != nil {
		return fmt.Errorf("%w: locate LoadLibraryW: %v", ErrInjection, err)
	}
	thread, _, callErr := procCreateRemoteThread.Call(
		uintptr(handle), 0, 0, procLoadLibraryW.Addr(), remote, 0, 0)
	if thread == 0 {
		return fmt.Errorf("%w: create remote thread: %v", ErrInjection, callErr)
	}
	defer windows.CloseHandle(windows.Handle(thread))

	if _, err := windows.WaitForSingleObject(windows.Handle(thread), loadTimeoutMs); err != nil {
		return fmt.Errorf("%w: wait for LoadLibrary: %v", ErrInjection, err)
	}
	return nil
}
