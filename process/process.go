// Package process attaches to a live foreign process and exposes its memory
// as a procmem.AddressSpace. The target does not cooperate: it may exit,
// suspend or remap pages at any moment, and every such condition surfaces as
// an error on the individual operation, never as a crash.
package process

import (
	"errors"
	"io"

	"github.com/kestrad/procwarp/procmem"
)

var (
	ErrProcessNotFound = errors.New("process not found")
	ErrModuleNotFound  = errors.New("module not found")
)

// Module is one mapped executable image inside the target.
type Module struct {
	Name string
	Base uint64
	Size uint64
}

// Process is an open handle to the target. Reads and writes go through
// exactly one syscall each against the foreign address space.
type Process interface {
	io.Closer
	procmem.AddressSpace
	Pid() uint32
	// MainModule returns the executable image, the usual scan window for
	// signature bases.
	MainModule() Module
	FindModule(name string) (Module, error)
}
