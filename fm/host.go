package fm

import "math"

// Oscillator is a source created by a TimelineHost.
type Oscillator struct {
	Waveform     *Waveform
	Frequency    Param
	PlaybackRate Param
	StartTime    float64
	StopTime     float64 // +Inf until stopped
}

// Stop schedules the end of playback. The latest call replaces any earlier one.
func (o *Oscillator) Stop(time float64) {
	o.StopTime = time
}

// Playing reports whether the oscillator sounds at time.
func (o *Oscillator) Playing(time float64) bool {
	return time >= o.StartTime && time < o.StopTime
}

// TimelineHost is an offline Host. Params are Timelines and sources are
// recorded Oscillators; nothing is rendered.
type TimelineHost struct {
	now     float64
	rate    float64
	params  []*Timeline
	sources []*Oscillator
}

// NewTimelineHost creates a host with the given sample rate.
// A zero rate defaults to 48 kHz.
func NewTimelineHost(sampleRate float64) *TimelineHost {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	return &TimelineHost{rate: sampleRate}
}

func (h *TimelineHost) CurrentTime() float64 { return h.now }

func (h *TimelineHost) SampleRate() float64 { return h.rate }

// SetTime moves the host clock.
func (h *TimelineHost) SetTime(time float64) { h.now = time }

func (h *TimelineHost) NewParam(initial float64) Param {
	tl := NewTimeline(initial)
	h.params = append(h.params, tl)
	return tl
}

func (h *TimelineHost) NewSource(cfg SourceConfig, startTime float64) Source {
	o := &Oscillator{
		Waveform:     cfg.Waveform,
		Frequency:    cfg.Frequency,
		PlaybackRate: cfg.PlaybackRate,
		StartTime:    startTime,
		StopTime:     math.Inf(1),
	}
	h.sources = append(h.sources, o)
	return o
}

// Sources returns every source created so far, oldest first.
func (h *TimelineHost) Sources() []*Oscillator { return h.sources }

// ParamCount returns how many params have been created.
func (h *TimelineHost) ParamCount() int { return len(h.params) }
