//go:build windows

package command

import (
	"fmt"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

// DefaultPipeName is the well-known channel endpoint. The engine creates it
// inside the hooked process; controllers dial it.
const DefaultPipeName = `\\.\pipe\ProcWarpSpeed`

// ListenPipe opens the engine-side named pipe endpoint.
func ListenPipe(name string) (net.Listener, error) {
	if name == "" {
		name = DefaultPipeName
	}
	l, err := winio.ListenPipe(name, nil)
	if err != nil {
		return nil, fmt.Errorf("listen pipe %s: %w", name, err)
	}
	return l, nil
}

// DialPipe connects the controller side to a running engine.
func DialPipe(name string, timeout time.Duration) (*Client, error) {
	if name == "" {
		name = DefaultPipeName
	}
	conn, err := winio.DialPipe(name, &timeout)
	if err != nil {
		return nil, fmt.Errorf("dial pipe %s: %w", name, err)
	}
	return NewClient(conn), nil
}
