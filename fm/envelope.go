package fm

import "math"

// Timing holds the clock-derived constants shared by every part of a Synth.
type Timing struct {
	EnvelopeTick    float64 // seconds per envelope generator step
	FrequencyStep   float64 // Hz per unit of full frequency number
	LFORateDividend float64 // LFO frequency = dividend / divisor
}

// Envelope is an operator's amplitude envelope generator.
//
// Levels are on a 0-1023 scale where 1023 is the peak of the attack and 0 is
// silence. The envelope schedules gain = level/1023 on its gain param.
type Envelope struct {
	timing      *Timing
	gain        Param
	totalLevel  Param
	totalLevelV float64

	rateScaling int
	attackRate  float64
	decayRate   float64
	sustainRate float64
	releaseRate float64 // RR + 0.5, so the rate code is 2*RR+1
	sustain     float64

	ssgEnabled bool
	inverted   bool
	jump       bool
	looping    bool
	ssgSamples [32]*SSGCycle

	// Captured at key on. Phase ends are relative to keyOnAt.
	keyOnAt        float64
	beginLevel     float64
	hasAttack      bool
	prevAttackRate int
	attackEnd      float64
	decayEnd       float64
	sustainEnd     float64

	// Captured at key off or sound off.
	released     bool
	beginRelease float64
	releaseLevel float64
	endRelease   float64

	loop *ssgLoop
}

// NewEnvelope creates an envelope with its gain and total level params.
func NewEnvelope(host Host, timing *Timing) *Envelope {
	return &Envelope{
		timing:      timing,
		gain:        host.NewParam(0),
		totalLevel:  host.NewParam(0),
		attackRate:  16,
		releaseRate: 17, // rate code 34 until SetRelease
		sustain:     1023,
		hasAttack:   true,
	}
}

// Gain returns the param carrying the envelope's linear level (0-1).
func (e *Envelope) Gain() Param { return e.gain }

// TotalLevelParam returns the param carrying the total level offset.
func (e *Envelope) TotalLevelParam() Param { return e.totalLevel }

// SetTotalLevel sets attenuation in 0.75 dB steps (0 = loudest, 127 = quietest).
func (e *Envelope) SetTotalLevel(level float64, time float64, method Method) {
	e.totalLevelV = -level / 128
	schedule(e.totalLevel, method, e.totalLevelV, time)
}

func (e *Envelope) TotalLevel() int {
	return -int(math.Round(e.totalLevelV * 128))
}

func (e *Envelope) SetRateScaling(amount int) { e.rateScaling = amount }
func (e *Envelope) RateScaling() int          { return e.rateScaling }

func (e *Envelope) SetAttack(rate float64) { e.attackRate = rate }
func (e *Envelope) Attack() float64        { return e.attackRate }

func (e *Envelope) SetDecay(rate float64) {
	e.decayRate = rate
	e.clearSSGSamples()
}

func (e *Envelope) Decay() float64 { return e.decayRate }

// SetSustain sets the sustain level from a register value 0-15. Level 15
// (and the out of range 16) fall a further 512 steps, as the chip does.
func (e *Envelope) SetSustain(level int) {
	gain := 1023.0
	if level != 0 {
		gain = float64(1024 - level*32)
	}
	if level > 14 {
		gain -= 512
	}
	e.sustain = gain
	e.clearSSGSamples()
}

// Sustain returns the register value for the current sustain level.
func (e *Envelope) Sustain() float64 {
	gain := e.sustain
	if gain == 1023 {
		return 0
	}
	if gain < 512 {
		gain += 512
	}
	return (1024 - gain) / 32
}

// SetSustainLevel sets the sustain level directly on the 0-1023 scale.
func (e *Envelope) SetSustainLevel(level float64) {
	e.sustain = level
	e.clearSSGSamples()
}

// SustainLevel returns the sustain level on the 0-1023 scale.
func (e *Envelope) SustainLevel() float64 { return e.sustain }

func (e *Envelope) SetSustainRate(rate float64) {
	e.sustainRate = rate
	e.clearSSGSamples()
}

func (e *Envelope) SustainRate() float64 { return e.sustainRate }

// SetRelease sets the release rate 0-15. The chip appends a low bit of 1.
func (e *Envelope) SetRelease(rate float64) { e.releaseRate = rate + 0.5 }

func (e *Envelope) Release() float64 { return e.releaseRate - 0.5 }

// SetSSG applies an SSG-EG register value. Bit 3 enables, bit 2 inverts the
// attack, bit 1 alternates and bit 0 holds.
func (e *Envelope) SetSSG(mode int) {
	oldInverted, oldJump := e.inverted, e.jump
	if mode < 8 {
		e.ssgEnabled = false
		e.inverted = false
		e.jump = false
		e.looping = false
	} else {
		m := mode - 8
		e.ssgEnabled = true
		e.inverted = m >= 4
		e.jump = m == 0 || m == 3 || m == 4 || m == 7
		e.looping = m%2 == 0
	}
	if e.inverted != oldInverted || e.jump != oldJump {
		e.clearSSGSamples()
	}
}

// SSG returns the SSG-EG register value (0 when disabled).
func (e *Envelope) SSG() int {
	if !e.ssgEnabled {
		return 0
	}
	m := 8
	if e.inverted {
		m += 4
	}
	if !e.looping {
		m++
	}
	// alternate is set when hold and jump agree
	if e.looping != e.jump {
		m += 2
	}
	return m
}

func (e *Envelope) clearSSGSamples() {
	e.ssgSamples = [32]*SSGCycle{}
}

func (e *Envelope) ssgScale() float64 {
	if e.ssgEnabled {
		return 6
	}
	return 1
}

func rateAdjustment(keyCode, rateScaling int) int {
	return keyCode >> uint(3-rateScaling)
}

// decayTime returns how long a linear ramp from one level to another takes.
// A basic rate of 0 means the ramp never ends and must not be passed here.
func (e *Envelope) decayTime(from, to, basicRate float64, rateAdjust int) float64 {
	gradient := EnvIncrement[rateCode(basicRate, rateAdjust)]
	return e.timing.EnvelopeTick * (from - to) / gradient
}

// EndAttack returns when the attack phase ends.
func (e *Envelope) EndAttack() float64 { return e.keyOnAt + e.attackEnd }

// EndDecay returns when the decay phase ends (+Inf if never).
func (e *Envelope) EndDecay() float64 { return e.keyOnAt + e.decayEnd }

// EndSustain returns when the sustain phase reaches its final level (+Inf if never).
func (e *Envelope) EndSustain() float64 { return e.keyOnAt + e.sustainEnd }

// EndRelease returns when the last release finishes.
func (e *Envelope) EndRelease() float64 { return e.endRelease }

// KeyOn opens the envelope at time. The attack starts from whatever level an
// unfinished release has reached.
func (e *Envelope) KeyOn(source Source, keyCode int, time float64) {
	rateAdjust := rateAdjustment(keyCode, e.rateScaling)
	tick := e.timing.EnvelopeTick
	invert := e.inverted
	scale := e.ssgScale()

	beginLevel := 0.0
	if e.endRelease > 0 {
		if time >= e.endRelease {
			if e.jump {
				beginLevel = 1023
			}
		} else {
			proportion := (time - e.beginRelease) / (e.endRelease - e.beginRelease)
			beginLevel = e.releaseLevel * (1 - proportion)
		}
		if invert {
			beginLevel = 1023 - beginLevel
		}
	}

	e.keyOnAt = time
	e.released = false
	e.loop = nil
	e.beginLevel = beginLevel
	e.hasAttack = true
	endAttack := time
	if invert {
		cancelAndHold(e.gain, 0, time)
	} else {
		attackRate := 0
		if e.attackRate != 0 {
			attackRate = rateCode(e.attackRate, rateAdjust)
		}
		if attackRate <= 1 {
			// level never rises
			if beginLevel == 0 {
				cancelAndHold(e.gain, 0, time)
				e.attackEnd, e.decayEnd, e.sustainEnd = 0, 0, 0
				source.Stop(time)
			} else {
				cancelAndHold(e.gain, beginLevel/1023, time)
				e.hasAttack = false
				e.attackEnd = 0
				e.decayEnd = math.Inf(1)
				e.sustainEnd = math.Inf(1)
			}
			return
		} else if attackRate < 62 && beginLevel < 1023 {
			cancelAndHold(e.gain, beginLevel/1023, time)
			target := attackTarget[attackRate-2]
			timeConstant := attackConstant[attackRate-2] * tick
			e.gain.SetTargetAtTime(target/1023, time, timeConstant)
			e.prevAttackRate = attackRate
			endAttack += -timeConstant * math.Log((1023-target)/(beginLevel-target))
		}
		cancelAndHold(e.gain, 1, endAttack)
	}
	e.attackEnd = endAttack - time

	if e.decayRate == 0 {
		end := math.Inf(1)
		if invert {
			end = 0
			source.Stop(time)
		}
		e.decayEnd = end
		e.sustainEnd = end
		return
	}

	decay := e.decayTime(1023, e.sustain, e.decayRate, rateAdjust) / scale
	endDecay := endAttack + decay
	sustain := e.sustain
	if invert {
		sustain = 1023 - sustain
	}
	e.gain.LinearRampToValueAtTime(sustain/1023, endDecay)
	e.decayEnd = endDecay - time
	if e.sustainRate == 0 {
		if sustain == 0 {
			e.sustainEnd = e.decayEnd
			source.Stop(endDecay)
		} else {
			e.sustainEnd = math.Inf(1)
		}
		return
	}

	sustainTime := e.decayTime(e.sustain, 0, e.sustainRate, rateAdjust) / scale
	endSustain := endDecay + sustainTime
	final := 0.0
	if invert {
		final = 1
	}
	e.gain.LinearRampToValueAtTime(final, endSustain)

	if e.looping {
		e.startLoop(decay, sustainTime, sustain, final, endSustain)
		return
	}

	if e.jump {
		final = 1 - final
		endSustain += tick
		e.gain.LinearRampToValueAtTime(final, endSustain)
	}
	e.sustainEnd = endSustain - time
	if final == 0 {
		source.Stop(endSustain)
	}
}

// LinearValueAtTime returns the envelope level (0-1023) at time without
// consulting the host. It covers every phase including an active release.
func (e *Envelope) LinearValueAtTime(time float64) float64 {
	if e.released && time >= e.beginRelease {
		if time >= e.endRelease {
			return 0
		}
		proportion := (time - e.beginRelease) / (e.endRelease - e.beginRelease)
		return e.releaseLevel * (1 - proportion)
	}

	if !e.hasAttack {
		// attack too slow to move, the level holds where key on found it
		return e.beginLevel
	}

	rel := time - e.keyOnAt
	if e.loop != nil && rel >= e.attackEnd {
		return e.loop.valueAt(rel - e.attackEnd)
	}

	var linear float64
	switch {
	case rel >= e.sustainEnd:
		if e.jump {
			linear = 1023
		}
	case rel >= e.decayEnd:
		if math.IsInf(e.sustainEnd, 1) {
			linear = e.sustain
		} else {
			proportion := (rel - e.decayEnd) / (e.sustainEnd - e.decayEnd)
			linear = e.sustain * (1 - proportion)
		}
	case rel >= e.attackEnd:
		if math.IsInf(e.decayEnd, 1) {
			linear = 1023
		} else {
			proportion := (rel - e.attackEnd) / (e.decayEnd - e.attackEnd)
			linear = 1023 - proportion*(1023-e.sustain)
		}
	case e.prevAttackRate < 2:
		return e.beginLevel
	default:
		target := attackTarget[e.prevAttackRate-2]
		timeConstant := attackConstant[e.prevAttackRate-2] * e.timing.EnvelopeTick
		return target + (e.beginLevel-target)*math.Exp(-rel/timeConstant)
	}

	if e.inverted {
		linear = 1023 - linear
	}
	return linear
}

// Level returns the envelope gain (0-1) at time.
func (e *Envelope) Level(time float64) float64 {
	v := e.LinearValueAtTime(time) / 1023
	return math.Max(0, math.Min(1, v))
}

// KeyOff starts the release from the current level.
func (e *Envelope) KeyOff(source Source, keyCode int, time float64) {
	current := e.LinearValueAtTime(time)
	rateAdjust := rateAdjustment(keyCode, e.rateScaling)
	releaseTime := e.decayTime(current, 0, e.releaseRate, rateAdjust) / e.ssgScale()
	cancelAndHold(e.gain, current/1023, time)
	endRelease := time + releaseTime
	e.gain.LinearRampToValueAtTime(0, endRelease)
	source.Stop(endRelease)
	e.loop = nil
	e.released = true
	e.beginRelease = time
	e.releaseLevel = current
	e.endRelease = endRelease
}

// SoundOff silences the envelope at time without a release.
func (e *Envelope) SoundOff(time float64) {
	cancelAndHold(e.gain, 0, time)
	e.loop = nil
	e.released = true
	e.beginRelease = time
	e.releaseLevel = 0
	e.endRelease = time
}
