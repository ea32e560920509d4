package addrtable

import "errors"

var (
	ErrMalformedTable = errors.New("malformed address table")
	ErrUnknownName    = errors.New("unknown address name")
	ErrStaleBase      = errors.New("stale base address")
)
