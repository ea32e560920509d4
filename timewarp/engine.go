package timewarp

// Clocks supplies the raw, unhooked time sources. On Windows these are the
// original kernel32/winmm entry points saved before patching; tests inject
// fakes.
type Clocks struct {
	PerformanceCounter func() int64
	TickCount32        func() uint32
	TickCount64        func() uint64
	WallClock          func() uint32
}

// Engine virtualizes the four time-query entry points of the host process.
// It is the single owner of all per-source speed state; there is exactly one
// Engine per hooked process, with an explicit Attach/Detach lifecycle tied to
// library load/unload.
//
// Query methods are called from arbitrary host threads at high frequency and
// take only the queried source's lock. SetScale takes all four locks in a
// fixed order, which cannot deadlock against queries because those hold at
// most one lock at a time.
type Engine struct {
	qpc    warpSource[int64]
	tick32 warpSource[uint32]
	tick64 warpSource[uint64]
	wall   warpSource[uint32]
}

func NewEngine(clocks Clocks) *Engine {
	e := &Engine{}
	e.qpc.raw = clocks.PerformanceCounter
	e.tick32.raw = clocks.TickCount32
	e.tick64.raw = clocks.TickCount64
	e.wall.raw = clocks.WallClock
	return e
}

// Attach anchors every source at the current raw time with scale 1, so
// virtual time equals real time until the first command arrives.
func (e *Engine) Attach() {
	e.SetScale(1)
}

// Detach stops virtualizing: subsequent queries return raw values unchanged.
func (e *Engine) Detach() {
	e.lockAll()
	defer e.unlockAll()
	e.qpc.active = false
	e.tick32.active = false
	e.tick64.active = false
	e.wall.active = false
}

// SetScale re-anchors all four sources at one shared instant and applies the
// new scale. Negative scales are ignored. Each source's re-anchor is
// indivisible with respect to concurrent queries on that source.
func (e *Engine) SetScale(scale float64) {
	if scale < 0 {
		return
	}
	e.lockAll()
	defer e.unlockAll()
	e.qpc.anchorLocked(scale)
	e.tick32.anchorLocked(scale)
	e.tick64.anchorLocked(scale)
	e.wall.anchorLocked(scale)
}

// Scale returns the currently applied scale factor.
func (e *Engine) Scale() float64 {
	e.qpc.mu.Lock()
	defer e.qpc.mu.Unlock()
	if !e.qpc.active {
		return 1
	}
	return e.qpc.state.scale
}

// QueryPerformanceCounter answers an intercepted performance-counter query.
func (e *Engine) QueryPerformanceCounter() int64 {
	return e.qpc.now()
}

// GetTickCount answers an intercepted 32-bit tick-count query.
func (e *Engine) GetTickCount() uint32 {
	return e.tick32.now()
}

// GetTickCount64 answers an intercepted 64-bit tick-count query.
func (e *Engine) GetTickCount64() uint64 {
	return e.tick64.now()
}

// TimeGetTime answers an intercepted wall-clock time query.
func (e *Engine) TimeGetTime() uint32 {
	return e.wall.now()
}

// Virtual reports one source's current virtual time widened to uint64, for
// diagnostics and tests. Hook thunks use the typed query methods instead.
func (e *Engine) Virtual(s Source) uint64 {
	switch s {
	case PerformanceCounter:
		return uint64(e.QueryPerformanceCounter())
	case TickCount32:
		return uint64(e.GetTickCount())
	case TickCount64:
		return e.GetTickCount64()
	case WallClockTime:
		return uint64(e.TimeGetTime())
	}
	return 0
}

// Lock order is fixed: qpc, tick32, tick64, wall.
func (e *Engine) lockAll() {
	e.qpc.mu.Lock()
	e.tick32.mu.Lock()
	e.tick64.mu.Lock()
	e.wall.mu.Lock()
}

func (e *Engine) unlockAll() {
	e.wall.mu.Unlock()
	e.tick64.mu.Unlock()
	e.tick32.mu.Unlock()
	e.qpc.mu.Unlock()
}
