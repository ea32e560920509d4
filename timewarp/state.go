package timewarp

import (
	"sync"

	"golang.org/x/exp/constraints"
)

// speedState rescales the flow of one time source:
//
//	virtual(t) = (t - anchorReal) * scale + anchorVirtual
//
// Re-anchoring on a scale change sets the new anchorVirtual to the virtual
// time computed with the old state at the instant of change, so the reported
// time is continuous across changes and, with scale >= 0, never decreases.
type speedState[T constraints.Integer] struct {
	scale         float64
	anchorReal    T
	anchorVirtual T
}

func (s *speedState[T]) virtual(now T) T {
	return T(float64(now-s.anchorReal)*s.scale) + s.anchorVirtual
}

func (s *speedState[T]) reanchor(now T, scale float64) {
	s.anchorVirtual = s.virtual(now)
	s.anchorReal = now
	s.scale = scale
}

// warpSource pairs a raw clock with its speed state under a dedicated lock.
// The lock is held only to read or update this source's own state; sources
// never block each other on the query path.
type warpSource[T constraints.Integer] struct {
	mu     sync.Mutex
	raw    func() T
	active bool
	state  speedState[T]
}

// now answers one intercepted time query. Before the engine is attached the
// raw value passes through unchanged; the hot path never fails outward.
func (w *warpSource[T]) now() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	t := w.raw()
	if !w.active {
		return t
	}
	return w.state.virtual(t)
}

// anchorLocked (re-)anchors at the current raw time. The caller holds mu.
func (w *warpSource[T]) anchorLocked(scale float64) {
	t := w.raw()
	if !w.active {
		w.state = speedState[T]{scale: 1, anchorReal: t, anchorVirtual: t}
		w.active = true
	}
	w.state.reanchor(t, scale)
}
