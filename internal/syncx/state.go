package syncx

import (
	"errors"
	"sync/atomic"
	"time"
)

// State is a step in the life of a single lock acquisition.
//
//	Idle -> Acquiring -> Held -> Releasing -> Idle
//
// Acquiring may loop back to itself on a wake-up whose predicate no longer
// holds, or end in TimedOut or Interrupted instead of Held.
type State int

const (
	StateIdle State = iota
	StateAcquiring
	StateHeld
	StateReleasing
	StateTimedOut
	StateInterrupted

	numStates
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StateHeld:
		return "held"
	case StateReleasing:
		return "releasing"
	case StateTimedOut:
		return "timed_out"
	case StateInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Observer receives lock state transitions. observability.LockMetrics
// implements it.
type Observer interface {
	ObserveTransition(component string, from, to State)
	ObserveWait(component string, wait time.Duration)
}

// Tracker counts state transitions for one component and forwards them to
// an optional Observer. A nil *Tracker is valid and records nothing.
type Tracker struct {
	component string
	observer  Observer
	entered   [numStates]atomic.Int64
	holders   atomic.Int64
	respins   atomic.Int64
}

// NewTracker creates a Tracker for the named component. observer may be nil.
func NewTracker(component string, observer Observer) *Tracker {
	return &Tracker{component: component, observer: observer}
}

// Component returns the name the tracker reports under.
func (t *Tracker) Component() string {
	if t == nil {
		return ""
	}
	return t.component
}

// Entered returns how many times the given state has been entered.
func (t *Tracker) Entered(s State) int64 {
	if t == nil || s < 0 || s >= numStates {
		return 0
	}
	return t.entered[s].Load()
}

// Holders returns the number of acquisitions currently in Held.
func (t *Tracker) Holders() int64 {
	if t == nil {
		return 0
	}
	return t.holders.Load()
}

// Stats counts acquisition outcomes of one component.
type Stats struct {
	Acquired    int64
	Respins     int64
	TimedOut    int64
	Interrupted int64
}

// Stats summarizes the transitions recorded so far.
func (t *Tracker) Stats() Stats {
	if t == nil {
		return Stats{}
	}
	return Stats{
		Acquired:    t.entered[StateHeld].Load(),
		Respins:     t.respins.Load(),
		TimedOut:    t.entered[StateTimedOut].Load(),
		Interrupted: t.entered[StateInterrupted].Load(),
	}
}

func (t *Tracker) move(from, to State) {
	t.entered[to].Add(1)
	if t.observer != nil {
		t.observer.ObserveTransition(t.component, from, to)
	}
}

// Acquire starts tracking one acquisition: Idle -> Acquiring.
func (t *Tracker) Acquire() Acquisition {
	if t == nil {
		return Acquisition{}
	}
	t.move(StateIdle, StateAcquiring)
	return Acquisition{t: t, start: time.Now()}
}

// Acquisition is the tracked progress of one lock acquisition.
type Acquisition struct {
	t     *Tracker
	start time.Time
}

// Respin records a wake-up after which the caller must wait again.
func (a Acquisition) Respin() {
	if a.t == nil {
		return
	}
	a.t.respins.Add(1)
	a.t.move(StateAcquiring, StateAcquiring)
}

// Held records a successful acquisition.
func (a Acquisition) Held() {
	if a.t == nil {
		return
	}
	a.t.holders.Add(1)
	a.t.move(StateAcquiring, StateHeld)
	if a.t.observer != nil {
		a.t.observer.ObserveWait(a.t.component, time.Since(a.start))
	}
}

// Release records Held -> Releasing -> Idle.
func (a Acquisition) Release() {
	if a.t == nil {
		return
	}
	a.t.move(StateHeld, StateReleasing)
	a.t.holders.Add(-1)
	a.t.move(StateReleasing, StateIdle)
}

// Fail records an acquisition that ended without the lock. err decides
// between TimedOut and Interrupted.
func (a Acquisition) Fail(err error) {
	if a.t == nil {
		return
	}
	to := StateInterrupted
	if errors.Is(err, ErrLockTimeout) {
		to = StateTimedOut
	}
	a.t.move(StateAcquiring, to)
	a.t.move(to, StateIdle)
}
