package fm

// Param is a schedulable audio parameter provided by the host. All times are in
// seconds on the host clock. Calls for the same Param are issued in time order.
type Param interface {
	SetValueAtTime(value, time float64)
	LinearRampToValueAtTime(value, time float64)
	ExponentialRampToValueAtTime(value, time float64)
	SetTargetAtTime(target, startTime, timeConstant float64)
	CancelAndHoldAtTime(time float64)
}

// Method selects how a new value is approached when it is scheduled.
type Method int

const (
	SetValue Method = iota
	LinearRamp
	ExponentialRamp
)

func (m Method) String() string {
	switch m {
	case LinearRamp:
		return "linear"
	case ExponentialRamp:
		return "exponential"
	}
	return "set"
}

// schedule applies value to p at time using method.
func schedule(p Param, method Method, value, time float64) {
	switch method {
	case LinearRamp:
		p.LinearRampToValueAtTime(value, time)
	case ExponentialRamp:
		p.ExponentialRampToValueAtTime(value, time)
	default:
		p.SetValueAtTime(value, time)
	}
}

// cancelAndHold discards everything scheduled on p from time onwards and then
// pins p to value at time.
func cancelAndHold(p Param, value, time float64) {
	p.CancelAndHoldAtTime(time)
	p.SetValueAtTime(value, time)
}

// Source is a started oscillator or sample player. Stop may be called more
// than once; the last call wins.
type Source interface {
	Stop(time float64)
}

// SourceConfig describes a source to create.
type SourceConfig struct {
	Waveform *Waveform
	// Frequency drives the source's frequency in Hz.
	Frequency Param
	// PlaybackRate drives sample playback speed for sampled waveforms.
	PlaybackRate Param
}

// Host provides the clock and the schedulable primitives.
type Host interface {
	CurrentTime() float64
	SampleRate() float64
	NewParam(initial float64) Param
	NewSource(cfg SourceConfig, startTime float64) Source
}
