package procmem

import "errors"

var (
	ErrPatternNotFound = errors.New("pattern not found")
	ErrInvalidPointer  = errors.New("invalid pointer")
	ErrAccessDenied    = errors.New("memory access denied")
	ErrPatternSyntax   = errors.New("pattern syntax error")
	ErrValueType       = errors.New("value type mismatch")
)
