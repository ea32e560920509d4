//go:build !windows

package inject

import (
	"errors"
	"fmt"
)

func Library(pid uint32, path string) error {
	return fmt.Errorf("%w: %w", ErrInjection, errors.ErrUnsupported)
}
