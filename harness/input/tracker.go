// Package input serializes asynchronous input-device events into one
// consumable state: a held-control set plus an accumulated pointer
// delta, both read by a single control loop once per tick.
package input

import (
	"sync"
)

type Control string

const (
	ControlForward Control = "forward"
	ControlBack    Control = "back"
	ControlLeft    Control = "left"
	ControlRight   Control = "right"
	ControlJump    Control = "jump"
	ControlAttack  Control = "attack"
	ControlQuit    Control = "quit"
)

// DefaultPointerScale converts reported pixels of pointer travel into
// camera degrees.
const DefaultPointerScale = 0.1

// Sample is one tick's consistent view of the tracker.
type Sample struct {
	Held   map[Control]bool
	DeltaX float64
	DeltaY float64
}

func (s Sample) IsHeld(control Control) bool {
	return s.Held[control]
}

// Tracker accepts writes from any goroutine; SampleAndReset is the one
// critical section pairing a held-set snapshot with a read-and-zero of
// the accumulated delta.
type Tracker struct {
	mutex  sync.Mutex
	held   map[Control]bool
	deltaX float64
	deltaY float64
	scale  float64
}

func NewTracker(pointerScale float64) *Tracker {
	if pointerScale <= 0 {
		pointerScale = DefaultPointerScale
	}

	return &Tracker{
		held:  make(map[Control]bool),
		scale: pointerScale,
	}
}

func (t *Tracker) ApplyPress(control Control) {
	t.mutex.Lock()
	t.held[control] = true
	t.mutex.Unlock()
}

func (t *Tracker) ApplyRelease(control Control) {
	t.mutex.Lock()
	delete(t.held, control)
	t.mutex.Unlock()
}

func (t *Tracker) ApplyMotion(dx float64, dy float64) {
	t.mutex.Lock()
	t.deltaX += dx * t.scale
	t.deltaY += dy * t.scale
	t.mutex.Unlock()
}

// SampleAndReset returns the current held set and accumulated delta,
// then zeroes only the delta; held controls persist until released.
func (t *Tracker) SampleAndReset() Sample {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	held := make(map[Control]bool, len(t.held))
	for control := range t.held {
		held[control] = true
	}

	sample := Sample{
		Held:   held,
		DeltaX: t.deltaX,
		DeltaY: t.deltaY,
	}

	t.deltaX = 0
	t.deltaY = 0

	return sample
}
