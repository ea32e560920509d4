// Package command implements the speed-command channel: a single-client
// sequential byte stream carrying 4-byte little-endian IEEE-754 floats with
// no framing. Each flush of N floats is a batch; only the last float is the
// command, and negative commands are ignored.
package command

import (
	"encoding/binary"
	"errors"
	"math"
)

const floatSize = 4

// readBufSize bounds one batch to 512 floats, matching the channel's
// historical pipe buffer.
const readBufSize = 512 * floatSize

var (
	ErrNotConnected = errors.New("command channel not connected")
	ErrShortBatch   = errors.New("batch holds no complete float")
)

// Last extracts the effective command from one batch: the last complete
// 4-byte float. Trailing partial bytes and every earlier float are discarded.
func Last(batch []byte) (float32, error) {
	n := len(batch) / floatSize
	if n == 0 {
		return 0, ErrShortBatch
	}
	bits := binary.LittleEndian.Uint32(batch[(n-1)*floatSize:])
	return math.Float32frombits(bits), nil
}

// Encode appends the wire form of one scale command to b.
func Encode(b []byte, scale float32) []byte {
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(scale))
}
