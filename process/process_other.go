//go:build !windows

package process

import (
	"errors"
	"fmt"
)

// The controller targets Windows processes; other platforms only get the
// typed errors so cross-platform callers and tests still compile.

func Open(name string) (Process, error) {
	return nil, fmt.Errorf("open %s: %w", name, errors.ErrUnsupported)
}

func OpenPid(pid uint32) (Process, error) {
	return nil, fmt.Errorf("open pid %d: %w", pid, errors.ErrUnsupported)
}
