// Package inject loads a library into a foreign Windows process, the
// attachment step that brings the time virtualization engine into the
// target's address space.
package inject

import "errors"

var ErrInjection = errors.New("injection failed")

// loadTimeoutMs bounds the wait for the remote LoadLibrary thread.
const loadTimeoutMs = 5000
