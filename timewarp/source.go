package timewarp

import "fmt"

// Source identifies one of the four hooked time-query entry points. Each
// source owns independent rescaling state; the three tick sources and the
// wall-clock source share the same anchor math and differ only in width.
type Source int

const (
	PerformanceCounter Source = iota
	TickCount32
	TickCount64
	WallClockTime

	numSources
)

func (s Source) String() string {
	switch s {
	case PerformanceCounter:
		return "performance-counter"
	case TickCount32:
		return "tick-count-32"
	case TickCount64:
		return "tick-count-64"
	case WallClockTime:
		return "wall-clock-time"
	}
	return fmt.Sprintf("Source(%d)", int(s))
}
