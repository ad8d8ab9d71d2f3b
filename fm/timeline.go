package fm

import (
	"math"
	"sort"
)

// EventKind identifies a scheduled automation event.
type EventKind int

const (
	EventSet EventKind = iota
	EventLinear
	EventExponential
	EventTarget
)

func (k EventKind) String() string {
	switch k {
	case EventLinear:
		return "linear"
	case EventExponential:
		return "exponential"
	case EventTarget:
		return "target"
	}
	return "set"
}

// Event is one scheduled change on a Timeline.
type Event struct {
	Kind         EventKind
	Time         float64
	Value        float64
	TimeConstant float64 // EventTarget only
}

// Timeline is a Param that records its schedule and can evaluate it at any time.
// It follows the automation rules of a Web Audio AudioParam: ramps run from the
// previous event to their own end time, targets approach asymptotically.
type Timeline struct {
	initial float64
	events  []Event
}

// NewTimeline returns a Timeline holding initial until something is scheduled.
func NewTimeline(initial float64) *Timeline {
	return &Timeline{initial: initial}
}

// insert adds e after every event with the same or an earlier time.
func (tl *Timeline) insert(e Event) {
	i := sort.Search(len(tl.events), func(i int) bool {
		return tl.events[i].Time > e.Time
	})
	tl.events = append(tl.events, Event{})
	copy(tl.events[i+1:], tl.events[i:])
	tl.events[i] = e
}

func (tl *Timeline) SetValueAtTime(value, time float64) {
	tl.insert(Event{Kind: EventSet, Time: time, Value: value})
}

func (tl *Timeline) LinearRampToValueAtTime(value, time float64) {
	tl.insert(Event{Kind: EventLinear, Time: time, Value: value})
}

func (tl *Timeline) ExponentialRampToValueAtTime(value, time float64) {
	tl.insert(Event{Kind: EventExponential, Time: time, Value: value})
}

func (tl *Timeline) SetTargetAtTime(target, startTime, timeConstant float64) {
	tl.insert(Event{Kind: EventTarget, Time: startTime, Value: target, TimeConstant: timeConstant})
}

// CancelAndHoldAtTime removes every event at or after time and holds the value
// the schedule had at that instant. A ramp that was in progress is shortened so
// it ends at time with that value.
func (tl *Timeline) CancelAndHoldAtTime(time float64) {
	held := tl.ValueAt(time)
	i := sort.Search(len(tl.events), func(i int) bool {
		return tl.events[i].Time >= time
	})
	kind := EventSet
	if i < len(tl.events) {
		e := tl.events[i]
		if e.Time > time && (e.Kind == EventLinear || e.Kind == EventExponential) {
			kind = e.Kind
		}
	}
	tl.events = tl.events[:i]
	tl.insert(Event{Kind: kind, Time: time, Value: held})
}

// Events returns the current schedule in time order.
func (tl *Timeline) Events() []Event {
	return tl.events
}

// Initial returns the value before the first event.
func (tl *Timeline) Initial() float64 {
	return tl.initial
}

// ValueAt evaluates the schedule at time.
func (tl *Timeline) ValueAt(time float64) float64 {
	v0, t0 := tl.initial, 0.0
	var target *Event

	current := func(t float64) float64 {
		if target == nil {
			return v0
		}
		return target.Value + (v0-target.Value)*math.Exp(-(t-t0)/target.TimeConstant)
	}

	for i := range tl.events {
		e := &tl.events[i]
		if e.Time > time {
			switch e.Kind {
			case EventLinear:
				start := current(t0)
				if e.Time == t0 {
					return e.Value
				}
				return start + (e.Value-start)*(time-t0)/(e.Time-t0)
			case EventExponential:
				start := current(t0)
				if start == 0 || (start < 0) != (e.Value < 0) || e.Time == t0 {
					return start
				}
				return start * math.Pow(e.Value/start, (time-t0)/(e.Time-t0))
			}
			break
		}
		switch e.Kind {
		case EventTarget:
			v0 = current(e.Time)
			t0 = e.Time
			target = e
		default:
			v0, t0 = e.Value, e.Time
			target = nil
		}
	}
	return current(time)
}
