//go:build windows

package timewarp

import (
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// HookSet is the process-wide intercept state: one rewritten import slot per
// module per hooked entry point. It is created by InstallHooks when the
// library is loaded into the target and torn down by Remove on unload; there
// is at most one live HookSet per process.
type HookSet struct {
	patches []patch
}

// Callback thunks are registered once per process (syscall.NewCallback slots
// are never released). They route through hookEngine so that a removed hook
// set degrades to pass-through instead of calling into a dead engine.
var (
	callbackOnce sync.Once
	hookEngine   atomic.Pointer[Engine]

	cbQueryPerformanceCounter uintptr
	cbGetTickCount            uintptr
	cbGetTickCount64          uintptr
	cbTimeGetTime             uintptr
)

func initCallbacks() {
	real := SystemClocks()
	cbQueryPerformanceCounter = syscall.NewCallback(func(counter *int64) uintptr {
		if e := hookEngine.Load(); e != nil {
			*counter = e.QueryPerformanceCounter()
		} else {
			*counter = real.PerformanceCounter()
		}
		return 1
	})
	cbGetTickCount = syscall.NewCallback(func() uintptr {
		if e := hookEngine.Load(); e != nil {
			return uintptr(e.GetTickCount())
		}
		return uintptr(real.TickCount32())
	})
	cbGetTickCount64 = syscall.NewCallback(func() uintptr {
		if e := hookEngine.Load(); e != nil {
			return uintptr(e.GetTickCount64())
		}
		return uintptr(real.TickCount64())
	})
	cbTimeGetTime = syscall.NewCallback(func() uintptr {
		if e := hookEngine.Load(); e != nil {
			return uintptr(e.TimeGetTime())
		}
		return uintptr(real.WallClock())
	})
}

// InstallHooks reroutes the four time-query imports of every loaded module
// (except this library's own image) to the engine. The original exports stay
// untouched, so the engine keeps reading real time through SystemClocks.
func InstallHooks(engine *Engine) (*HookSet, error) {
	callbackOnce.Do(initCallbacks)

	replace, err := replacementMap()
	if err != nil {
		return nil, err
	}
	bases, err := ownModuleBases()
	if err != nil {
		return nil, err
	}
	self := selfBase()

	hookEngine.Store(engine)
	var all []patch
	for _, base := range bases {
		if base == self {
			continue
		}
		patches, err := patchModuleImports(base, replace)
		if err != nil {
			restorePatches(all)
			hookEngine.Store(nil)
			return nil, err
		}
		all = append(all, patches...)
	}
	return &HookSet{patches: all}, nil
}

// Remove restores every patched import slot and detaches the engine from the
// callback thunks.
func (h *HookSet) Remove() {
	restorePatches(h.patches)
	h.patches = nil
	hookEngine.Store(nil)
}

func replacementMap() (map[uintptr]uintptr, error) {
	targets := []struct {
		proc     *windows.LazyProc
		callback uintptr
	}{
		{procQueryPerformanceCounter, cbQueryPerformanceCounter},
		{procGetTickCount, cbGetTickCount},
		{procGetTickCount64, cbGetTickCount64},
		{procTimeGetTime, cbTimeGetTime},
	}
	replace := make(map[uintptr]uintptr, len(targets))
	for _, t := range targets {
		if err := t.proc.Find(); err != nil {
			return nil, fmt.Errorf("locate %s: %w", t.proc.Name, err)
		}
		replace[t.proc.Addr()] = t.callback
	}
	return replace, nil
}

func ownModuleBases() ([]uintptr, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE, windows.GetCurrentProcessId())
	if err != nil {
		return nil, fmt.Errorf("module snapshot: %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var bases []uintptr
	var entry windows.ModuleEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	for err := windows.Module32First(snapshot, &entry); err == nil; err = windows.Module32Next(snapshot, &entry) {
		bases = append(bases, entry.ModBaseAddr)
	}
	return bases, nil
}

// selfMarker lives in this library's data section; its address identifies our
// own image so we never patch our own import table.
var selfMarker byte

var procGetModuleHandleExW = modkernel32.NewProc("GetModuleHandleExW")

const (
	getModuleHandleExFlagFromAddress       = 0x4
	getModuleHandleExFlagUnchangedRefcount = 0x2
)

func selfBase() uintptr {
	var handle windows.Handle
	flags := uintptr(getModuleHandleExFlagFromAddress | getModuleHandleExFlagUnchangedRefcount)
	r, _, _ := procGetModuleHandleExW.Call(flags, uintptr(unsafe.Pointer(&selfMarker)), uintptr(unsafe.Pointer(&handle)))
	if r == 0 {
		return 0
	}
	return uintptr(handle)
}
