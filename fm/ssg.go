package fm

import "math"

// SSGCycle is one period of an SSG-EG waveform expressed as samples on the
// 0-1 gain scale, to be played back at PlaybackRate samples per envelope tick.
type SSGCycle struct {
	Samples      []float64
	PlaybackRate float64
}

type ssgSegment struct {
	duration float64
	level    float64
}

// ssgLoop describes a repeating SSG-EG envelope. Offsets are relative to the
// end of the attack.
type ssgLoop struct {
	env        *Envelope
	startLevel float64
	segments   []ssgSegment
	period     float64
	origin     float64 // absolute time of the first cycle
	scheduled  int     // cycles written to the gain param
}

func (l *ssgLoop) valueAt(x float64) float64 {
	x -= math.Floor(x/l.period) * l.period
	level := l.startLevel
	for _, s := range l.segments {
		if x < s.duration {
			return level + (s.level-level)*x/s.duration
		}
		x -= s.duration
		level = s.level
	}
	return level
}

// startLoop completes the first cycle (its decay and sustain ramps are already
// scheduled) and records the shape for later cycles.
func (e *Envelope) startLoop(decay, sustainTime, sustain, final, endSustain float64) {
	start := 1023.0
	if e.inverted {
		start = 0
	}
	l := &ssgLoop{
		env:        e,
		startLevel: start,
		origin:     e.keyOnAt + e.attackEnd,
		segments: []ssgSegment{
			{decay, sustain},
			{sustainTime, final * 1023},
		},
	}
	if e.jump {
		l.segments = append(l.segments, ssgSegment{e.timing.EnvelopeTick, 1023 - final*1023})
	} else {
		l.segments = append(l.segments, ssgSegment{sustainTime, sustain}, ssgSegment{decay, start})
	}
	end := endSustain
	for _, s := range l.segments[2:] {
		end += s.duration
		e.gain.LinearRampToValueAtTime(s.level/1023, end)
	}
	for _, s := range l.segments {
		l.period += s.duration
	}
	l.scheduled = 1
	e.loop = l
	e.sustainEnd = math.Inf(1)
}

// Looping reports whether the envelope is repeating an SSG-EG cycle.
func (e *Envelope) Looping() bool { return e.loop != nil }

// LoopPeriod returns the duration of one SSG-EG cycle, or 0 when not looping.
func (e *Envelope) LoopPeriod() float64 {
	if e.loop == nil {
		return 0
	}
	return e.loop.period
}

// ScheduleLoops writes further SSG-EG cycles to the gain param until the
// schedule covers until.
func (e *Envelope) ScheduleLoops(until float64) {
	l := e.loop
	if l == nil {
		return
	}
	for l.origin+float64(l.scheduled)*l.period < until {
		t := l.origin + float64(l.scheduled)*l.period
		for _, s := range l.segments {
			t += s.duration
			e.gain.LinearRampToValueAtTime(s.level/1023, t)
		}
		l.scheduled++
	}
}

// SSGCycle returns the sampled SSG-EG cycle for the current decay, sustain
// level and sustain rate at the given rate adjustment, or nil when the
// settings do not produce a repeating waveform. Results are cached.
func (e *Envelope) SSGCycle(rateAdjust int) *SSGCycle {
	if rateAdjust < 0 || rateAdjust >= len(e.ssgSamples) {
		return nil
	}
	if c := e.ssgSamples[rateAdjust]; c != nil {
		return c
	}
	if e.sustainRate == 0 && e.sustain != 0 {
		return nil
	}
	decay := rateCode(e.decayRate, rateAdjust)
	if e.decayRate == 0 || decay < 2 {
		return nil
	}
	sustain := rateCode(e.sustainRate, rateAdjust)
	c := makeEnvelopeSample(decay, e.sustain, sustain, e.inverted, !e.jump)
	e.ssgSamples[rateAdjust] = c
	return c
}

// rampLength returns how many ramp samples it takes to fall from 1023 to level
// with the increment pattern mod.
func rampLength(level float64, mod int, limit int) int {
	n := int(math.Ceil((1023-level)*8/(6*float64(4+mod)))) + 1
	if n > limit {
		n = limit
	}
	return n
}

func stretchInto(out []float64, values []float64, stretch int) []float64 {
	for _, v := range values {
		for i := 0; i < stretch; i++ {
			out = append(out, v)
		}
	}
	return out
}

func makeEnvelopeSample(decayRate int, sustainLevel float64, sustainRate int, invert, mirror bool) *SSGCycle {
	decayPower := decayRate/4 - 14
	decayMod := int(envIncrementMod[decayRate]) - 4
	var samples []float64
	var playbackRate float64

	offset := 0
	if invert {
		offset = 4
	}

	if sustainLevel == 0 || decayRate == sustainRate {
		samples = append(samples, ssgRamps[decayMod+offset]...)
		playbackRate = math.Pow(2, float64(decayPower))
	} else {
		sustainPower := sustainRate/4 - 14
		sustainMod := int(envIncrementMod[sustainRate]) - 4
		arr1 := ssgRamps[decayMod+offset]
		arr2 := ssgRamps[sustainMod+offset]
		arr1 = arr1[:rampLength(sustainLevel, decayMod, len(arr1))]
		arr2 = arr2[rampLength(sustainLevel, sustainMod, len(arr2)):]

		switch {
		case decayPower == sustainPower:
			samples = append(append(samples, arr1...), arr2...)
			playbackRate = math.Pow(2, float64(decayPower))
		case decayPower > sustainPower:
			samples = stretchInto(samples, arr1, 1<<uint(decayPower-sustainPower))
			samples = append(samples, arr2...)
			playbackRate = math.Pow(2, float64(sustainPower))
		default:
			samples = append(samples, arr1...)
			samples = stretchInto(samples, arr2, 1<<uint(sustainPower-decayPower))
			playbackRate = math.Pow(2, float64(decayPower))
		}
	}

	if mirror {
		n := len(samples)
		for i := n - 1; i >= 0; i-- {
			samples = append(samples, samples[i])
		}
	}
	return &SSGCycle{Samples: samples, PlaybackRate: playbackRate}
}
