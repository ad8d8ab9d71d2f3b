package fm

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNoWaveformNumber = errors.New("fm: waveform number required (parameters: waveformNumber, [time])")
	ErrNoPeriodicWave   = errors.New("fm: periodic wave required (parameters: periodicWave, [time])")
	ErrNoWaveformSample = errors.New("fm: waveform sample required (parameters: sample, [length], [time])")
	ErrBadWaveform      = errors.New("fm: waveform number out of range")
)

// Operator is one FM operator: a source whose frequency is set from a block and
// frequency number, shaped by an Envelope and scaled by tremolo and volume.
type Operator struct {
	host   Host
	timing *Timing

	frequencyParam Param // Hz
	fmModAmp       Param // modulation depth applied to the frequency input
	vibratoAmp     Param
	tremoloAmp     Param
	tremolo        Param
	mixer          Param
	sampleSpeed    Param

	envelope *Envelope
	source   Source
	waveform *Waveform

	block     int
	fnum      int
	multiple  float64
	detune    int
	keyCode   int
	frequency float64

	tremoloDepth float64
	vibratoDepth float64
	volume       float64

	keyIsOn  bool
	disabled bool
}

// NewOperator creates an operator at block 4, frequency number 1093.
func NewOperator(host Host, timing *Timing) *Operator {
	op := &Operator{
		host:     host,
		timing:   timing,
		block:    4,
		fnum:     1093,
		multiple: 1,
		keyCode:  KeyCode(4, 1093),
		volume:   1,
		waveform: defaultSine,
	}
	op.frequency = timing.FrequencyStep * float64(ComponentsToFullFreq(op.block, op.fnum))
	op.frequencyParam = host.NewParam(op.frequency)
	op.fmModAmp = host.NewParam(op.frequency)
	op.vibratoAmp = host.NewParam(0)
	op.tremoloAmp = host.NewParam(0)
	op.tremolo = host.NewParam(1)
	op.mixer = host.NewParam(1)
	op.sampleSpeed = host.NewParam(0)
	op.envelope = NewEnvelope(host, timing)
	return op
}

var defaultSine = Waveforms[0]

// Envelope returns the operator's envelope generator.
func (op *Operator) Envelope() *Envelope { return op.envelope }

// FrequencyParam returns the param carrying the operator's frequency in Hz.
func (op *Operator) FrequencyParam() Param { return op.frequencyParam }

// ModulationParam returns the param scaling incoming phase modulation.
func (op *Operator) ModulationParam() Param { return op.fmModAmp }

// MixerParam returns the param carrying the operator's output volume.
func (op *Operator) MixerParam() Param { return op.mixer }

// Source returns the most recently started source, or nil.
func (op *Operator) Source() Source { return op.source }

// SetFrequency changes the operator's frequency. Detune is applied to the
// combined frequency number; a result below zero wraps the way the chip's
// 17-bit phase increment does.
func (op *Operator) SetFrequency(block, fnum int, multiple, time float64, method Method) {
	keyCode := KeyCode(block, fnum)
	full := ComponentsToFullFreq(block, fnum) + detuneSteps(op.detune, keyCode)
	if full < 0 {
		full += 0x1FFFF
	}
	frequency := float64(full) * multiple * op.timing.FrequencyStep
	schedule(op.frequencyParam, method, frequency, time)
	schedule(op.fmModAmp, method, frequency, time)
	op.frequency = frequency
	op.block = block
	op.fnum = fnum
	op.multiple = multiple
	op.keyCode = keyCode
}

func (op *Operator) Frequency() float64        { return op.frequency }
func (op *Operator) FrequencyBlock() int        { return op.block }
func (op *Operator) FrequencyNumber() int       { return op.fnum }
func (op *Operator) FrequencyMultiple() float64 { return op.multiple }
func (op *Operator) KeyCode() int               { return op.keyCode }

// SetDetune sets the detune amount: 1-3 raise the pitch slightly, 5-7 lower it.
// When time is non-nil the frequency is re-applied at that time, otherwise the
// change waits for the next SetFrequency.
func (op *Operator) SetDetune(extent int, time *float64, method Method) {
	op.detune = extent
	if time != nil {
		op.SetFrequency(op.block, op.fnum, op.multiple, *time, method)
	}
}

func (op *Operator) Detune() int { return op.detune }

// SetTremoloDepth sets the fraction of the output the LFO removes at its peak.
func (op *Operator) SetTremoloDepth(amount, time float64, method Method) {
	schedule(op.tremoloAmp, method, -amount, time)
	schedule(op.tremolo, method, 1-amount, time)
	op.tremoloDepth = amount
}

func (op *Operator) TremoloDepth() float64 { return op.tremoloDepth }

// SetVibratoDepth sets the LFO's frequency deviation as a linear fraction.
func (op *Operator) SetVibratoDepth(amount, time float64, method Method) {
	schedule(op.vibratoAmp, method, amount, time)
	op.vibratoDepth = amount
}

func (op *Operator) VibratoDepth() float64 { return op.vibratoDepth }

func (op *Operator) SetVolume(level, time float64, method Method) {
	schedule(op.mixer, method, level, time)
	op.volume = level
}

func (op *Operator) Volume() float64 { return op.volume }

// Disable stops the operator's source and ignores key on until Enable.
func (op *Operator) Disable(time float64) {
	if op.source != nil {
		op.source.Stop(time)
	}
	op.disabled = true
}

func (op *Operator) Enable() { op.disabled = false }

func (op *Operator) Disabled() bool { return op.disabled }

func (op *Operator) KeyIsOn() bool { return op.keyIsOn }

// newSource replaces the running source with a fresh one started at time.
func (op *Operator) newSource(time float64) {
	src := op.host.NewSource(SourceConfig{
		Waveform:     op.waveform,
		Frequency:    op.frequencyParam,
		PlaybackRate: op.sampleSpeed,
	}, time)
	if op.source != nil {
		op.source.Stop(time)
	}
	op.source = src
}

// KeyOn starts a new source and opens the envelope. It has no effect while the
// key is already on or the operator is disabled.
func (op *Operator) KeyOn(time float64) {
	if op.keyIsOn || op.disabled {
		return
	}
	op.newSource(time)
	op.envelope.KeyOn(op.source, op.keyCode, time)
	op.keyIsOn = true
}

func (op *Operator) KeyOff(time float64) {
	if !op.keyIsOn {
		return
	}
	op.envelope.KeyOff(op.source, op.keyCode, time)
	op.keyIsOn = false
}

// SoundOff silences the operator immediately, skipping the release.
func (op *Operator) SoundOff(time float64) {
	if op.source != nil {
		op.source.Stop(time)
	}
	op.envelope.SoundOff(time)
	op.keyIsOn = false
}

// SetWaveformNumber selects one of the synth's standard waveforms.
func (op *Operator) SetWaveformNumber(n *int, time float64) error {
	if n == nil {
		return ErrNoWaveformNumber
	}
	if *n < 0 || *n >= len(Waveforms) {
		return fmt.Errorf("%w: %d (0-%d)", ErrBadWaveform, *n, len(Waveforms)-1)
	}
	op.waveform = Waveforms[*n]
	op.sampleSpeed.SetValueAtTime(samplePeriods[*n]/op.host.SampleRate(), time)
	return nil
}

// WaveformNumber returns the standard waveform number in use, or -1.
func (op *Operator) WaveformNumber() int {
	for i, w := range Waveforms {
		if w == op.waveform {
			return i
		}
	}
	return -1
}

// Waveform returns the waveform used by the next source.
func (op *Operator) Waveform() *Waveform { return op.waveform }

// SetPeriodicWave uses a custom Fourier waveform for subsequent key ons.
func (op *Operator) SetPeriodicWave(wave *Waveform, time float64) error {
	if wave == nil || wave.Kind != WavePeriodic {
		return ErrNoPeriodicWave
	}
	op.waveform = wave
	return nil
}

// SetWaveformSample uses a looped sample for subsequent key ons. A length of
// 0 uses the whole sample.
func (op *Operator) SetWaveformSample(sample []float64, length int, time float64) error {
	if sample == nil {
		return ErrNoWaveformSample
	}
	if length <= 0 {
		length = len(sample)
	}
	op.waveform = NewSampledWave("sample", sample)
	op.sampleSpeed.SetValueAtTime(float64(length)/op.host.SampleRate(), time)
	return nil
}

func (op *Operator) SetTotalLevel(level, time float64, method Method) {
	op.envelope.SetTotalLevel(level, time, method)
}

func (op *Operator) TotalLevel() int { return op.envelope.TotalLevel() }

func (op *Operator) SetRateScaling(amount int) { op.envelope.SetRateScaling(amount) }
func (op *Operator) SetAttack(rate float64)    { op.envelope.SetAttack(rate) }
func (op *Operator) SetDecay(rate float64)     { op.envelope.SetDecay(rate) }
func (op *Operator) SetSustain(level int)      { op.envelope.SetSustain(level) }
func (op *Operator) SetSustainRate(r float64)  { op.envelope.SetSustainRate(r) }
func (op *Operator) SetRelease(rate float64)   { op.envelope.SetRelease(rate) }
func (op *Operator) SetSSG(mode int)           { op.envelope.SetSSG(mode) }

// Amplitude returns the operator's output amplitude at time, before tremolo
// and volume, derived from the envelope and total level.
func (op *Operator) Amplitude(time float64) float64 {
	return EnvelopeAmplitude(op.envelope.Level(time), op.envelope.totalLevelV)
}

// vibratoCents converts a linear frequency deviation back into cents.
func vibratoCents(linear float64) float64 {
	if linear == 0 {
		return 0
	}
	sign := 1.0
	if linear < 0 {
		sign = -1
	}
	return sign * 1200 * math.Log2(1+math.Abs(linear))
}
