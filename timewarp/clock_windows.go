//go:build windows

package timewarp

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")
	modwinmm    = windows.NewLazySystemDLL("winmm.dll")

	procQueryPerformanceCounter = modkernel32.NewProc("QueryPerformanceCounter")
	procGetTickCount            = modkernel32.NewProc("GetTickCount")
	procGetTickCount64          = modkernel32.NewProc("GetTickCount64")
	procTimeGetTime             = modwinmm.NewProc("timeGetTime")
)

// SystemClocks returns the unvirtualized time sources. The procs resolve to
// the real exports, which stay intact because only import tables are patched;
// the engine can therefore keep reading true time after hooks are installed.
func SystemClocks() Clocks {
	return Clocks{
		PerformanceCounter: func() int64 {
			var counter int64
			procQueryPerformanceCounter.Call(uintptr(unsafe.Pointer(&counter)))
			return counter
		},
		TickCount32: func() uint32 {
			r, _, _ := procGetTickCount.Call()
			return uint32(r)
		},
		TickCount64: func() uint64 {
			r, _, _ := procGetTickCount64.Call()
			return uint64(r)
		},
		WallClock: func() uint32 {
			r, _, _ := procTimeGetTime.Call()
			return uint32(r)
		},
	}
}
