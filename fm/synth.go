package fm

import "math"

// Master clock rates.
const (
	ClockNTSC = 53693175
	ClockPAL  = 53203424
)

// Config configures a Synth. Zero fields take the defaults noted.
type Config struct {
	Channels        int     // 6
	ClockRate       float64 // ClockNTSC
	Divider1        float64 // 7, master clock to chip clock
	Divider2        float64 // 144, chip clock to sample clock
	TuningPrecision float64 // 1
	ReferencePitch  float64 // 440 Hz
	ReferenceNote   int     // 69 (A4)
}

func (c Config) withDefaults() Config {
	if c.Channels <= 0 {
		c.Channels = 6
	}
	if c.ClockRate <= 0 {
		c.ClockRate = ClockNTSC
	}
	if c.Divider1 <= 0 {
		c.Divider1 = 7
	}
	if c.Divider2 <= 0 {
		c.Divider2 = 144
	}
	if c.TuningPrecision <= 0 {
		c.TuningPrecision = 1
	}
	if c.ReferencePitch <= 0 {
		c.ReferencePitch = 440
	}
	if c.ReferenceNote == 0 {
		c.ReferenceNote = 69
	}
	return c
}

// Synth is a set of FM channels sharing a clock, an LFO and a DAC.
type Synth struct {
	host   Host
	cfg    Config
	timing Timing

	channels []*Channel
	twoOp    []*Channel

	lfo          Param
	lfoFrequency float64

	channelGain  Param
	channelGainV float64
	pcmGain      Param
	pcmMix       float64
	dac          Param
	dacValue     int

	ref    refPitch
	tuning *Tuning

	started bool
}

// New creates a synth scheduling on host.
func New(host Host, cfg Config) *Synth {
	cfg = cfg.withDefaults()
	s := &Synth{
		host: host,
		cfg:  cfg,
		ref:  refPitch{cfg.ReferencePitch, cfg.ReferenceNote},
	}
	s.timing = timingFor(cfg.ClockRate, cfg.Divider1, cfg.Divider2)
	s.tuning = s.EqualTemperament(EqualTemperament{Precision: cfg.TuningPrecision})

	n := cfg.Channels
	s.lfo = host.NewParam(0)
	s.channelGainV = 1
	s.channelGain = host.NewParam(1 / float64(n))
	s.pcmGain = host.NewParam(0)
	s.dac = host.NewParam(0)
	s.dacValue = 128

	s.channels = make([]*Channel, n)
	s.twoOp = make([]*Channel, 2*n)
	for i := range s.channels {
		core := newChannelCore(s)
		s.channels[i] = newChannel(core)
		s.twoOp[2*i] = newTwoOpChannel(core, 0)
		s.twoOp[2*i+1] = newTwoOpChannel(core, 2)
	}
	return s
}

func timingFor(clock, divider1, divider2 float64) Timing {
	chip := clock / divider1
	return Timing{
		EnvelopeTick:    divider2 * 3 / chip,
		FrequencyStep:   chip / (divider2 * (1 << 20)),
		LFORateDividend: chip / (divider2 * 128),
	}
}

// Host returns the host the synth schedules on.
func (s *Synth) Host() Host { return s.host }

// Timing returns the clock derived constants.
func (s *Synth) Timing() Timing { return s.timing }

// ClockRate returns the master clock rate in Hz.
func (s *Synth) ClockRate() float64 { return s.cfg.ClockRate }

// SetClockRate changes the master clock and dividers. A zero divider keeps
// the current one. The LFO keeps its preset and the channels are retuned to
// the synth's equal tempered table; custom tunings must be reapplied.
func (s *Synth) SetClockRate(rate, divider1, divider2 float64) {
	preset := s.LFOPreset()
	if divider1 > 0 {
		s.cfg.Divider1 = divider1
	}
	if divider2 > 0 {
		s.cfg.Divider2 = divider2
	}
	s.cfg.ClockRate = rate
	s.timing = timingFor(rate, s.cfg.Divider1, s.cfg.Divider2)
	if preset > 0 {
		s.UseLFOPreset(preset, s.host.CurrentTime(), SetValue)
	}
	s.SetTuning(s.EqualTemperament(EqualTemperament{Precision: s.cfg.TuningPrecision}))
}

// NumChannels returns the number of four operator channels.
func (s *Synth) NumChannels() int { return len(s.channels) }

// Channel returns four operator channel n, numbered from 1, or nil.
func (s *Synth) Channel(n int) *Channel {
	if n < 1 || n > len(s.channels) {
		return nil
	}
	return s.channels[n-1]
}

// TwoOpChannel returns two operator channel n, numbered from 1, or nil.
// Channels 2k-1 and 2k share four operator channel k.
func (s *Synth) TwoOpChannel(n int) *Channel {
	if n < 1 || n > len(s.twoOp) {
		return nil
	}
	return s.twoOp[n-1]
}

// LFOParam returns the param carrying the LFO frequency in Hz.
func (s *Synth) LFOParam() Param { return s.lfo }

func (s *Synth) SetLFOFrequency(frequency, time float64, method Method) {
	schedule(s.lfo, method, frequency, time)
	s.lfoFrequency = frequency
}

func (s *Synth) LFOFrequency() float64 { return s.lfoFrequency }

// LFOPresetToFrequency converts a register LFO setting, 0 (off) or 1-8, into
// Hz at the current clock rate.
func (s *Synth) LFOPresetToFrequency(n int) float64 {
	if n <= 0 || n > len(lfoDivisors) {
		return 0
	}
	return s.timing.LFORateDividend / lfoDivisors[n-1]
}

// FrequencyToLFOPreset returns the preset producing frequency, or -1.
func (s *Synth) FrequencyToLFOPreset(frequency float64) int {
	if frequency == 0 {
		return 0
	}
	divisor := math.Round(s.timing.LFORateDividend / frequency)
	for i, d := range lfoDivisors {
		if d == divisor {
			return i + 1
		}
	}
	return -1
}

func (s *Synth) UseLFOPreset(n int, time float64, method Method) {
	s.SetLFOFrequency(s.LFOPresetToFrequency(n), time, method)
}

func (s *Synth) LFOPreset() int { return s.FrequencyToLFOPreset(s.lfoFrequency) }

// PCMGainParam returns the param scaling the DAC output.
func (s *Synth) PCMGainParam() Param { return s.pcmGain }

// DACParam returns the param carrying the DAC level, -1 to 1.
func (s *Synth) DACParam() Param { return s.dac }

// MixPCM sets how much of the DAC is heard, from 0 to the number of channels.
// Up to 1 the DAC replaces the last channel; beyond that the other channels
// are turned down too.
func (s *Synth) MixPCM(amount, time float64, method Method) {
	n := len(s.channels)
	last, others := 1-amount, 1.0
	if amount > 1 {
		last = 0
		others = 1 - (amount-1)/float64(n-1)
	}
	s.channels[n-1].SetVolume(last, time, method)
	schedule(s.pcmGain, method, amount, time)
	s.pcmMix = amount
	for _, ch := range s.channels[:n-1] {
		ch.SetVolume(others, time, method)
	}
}

func (s *Synth) PCMMix() float64 { return s.pcmMix }

// WritePCM sets the DAC to an unsigned 8 bit sample.
func (s *Synth) WritePCM(value int, time float64) {
	s.dac.SetValueAtTime(float64(value-128)/128, time)
	s.dacValue = value
}

// PCMValue returns the last sample written to the DAC.
func (s *Synth) PCMValue() int { return s.dacValue }

// ChannelGainParam returns the param for the overall output level.
func (s *Synth) ChannelGainParam() Param { return s.channelGain }

// SetChannelGain sets the overall output level. The per channel gain is
// level divided by the number of channels.
func (s *Synth) SetChannelGain(level, time float64, method Method) {
	schedule(s.channelGain, method, level/float64(len(s.channels)), time)
	s.channelGainV = level
}

func (s *Synth) ChannelGain() float64 { return s.channelGainV }

// SetReferencePitch sets which note sounds at which frequency and retunes every
// channel to equal temperament.
func (s *Synth) SetReferencePitch(frequency float64, note int) {
	s.ref = refPitch{frequency, note}
	s.SetTuning(s.EqualTemperament(EqualTemperament{Precision: s.cfg.TuningPrecision}))
}

// Tuning returns the synth's default tuning.
func (s *Synth) Tuning() *Tuning { return s.tuning }

// SetTuning becomes the default tuning and is applied to every channel.
func (s *Synth) SetTuning(t *Tuning) {
	s.tuning = t
	for _, ch := range s.channels {
		ch.SetTuning(t)
	}
}

// TunedMIDINotes returns a table tuned to a4 Hz without key code spreading.
func (s *Synth) TunedMIDINotes(a4 float64) *Tuning {
	return tunedMIDINotes(s.timing.FrequencyStep, a4)
}

// EqualTemperament returns a tuning that divides an interval equally.
func (s *Synth) EqualTemperament(et EqualTemperament) *Tuning {
	return equalTemperament(s.timing.FrequencyStep, s.ref, et)
}

// RatioTuning returns a tuning built from note ratios. The last ratio is the
// interval the scale repeats at; startNote is the note (0-11) the ratios
// begin on.
func (s *Synth) RatioTuning(detune float64, ratios []float64, startNote int, precision float64) *Tuning {
	return ratioTuning(s.timing.FrequencyStep, s.ref, detune, ratios, startNote, precision)
}

// CopyTuning gives channel to a copy of channel from's tuning.
func (s *Synth) CopyTuning(from, to int) {
	src, dst := s.Channel(from), s.Channel(to)
	if src == nil || dst == nil {
		return
	}
	dst.SetTuning(src.Tuning().Clone())
}

// FrequencyToNote looks up a note in the default tuning.
func (s *Synth) FrequencyToNote(block, fnum int) int {
	return s.tuning.FrequencyToNote(block, fnum)
}

// Start marks the synth as running from time with the DAC at its midpoint.
func (s *Synth) Start(time float64) {
	s.WritePCM(128, time)
	s.started = true
}

// Stop silences every channel and marks the synth as stopped.
func (s *Synth) Stop(time float64) {
	s.SoundOff(time)
	s.started = false
}

func (s *Synth) Running() bool { return s.started }

// SoundOff silences every channel immediately.
func (s *Synth) SoundOff(time float64) {
	for _, ch := range s.channels {
		ch.SoundOff(time)
	}
}

// clockSetter is implemented by hosts whose clock is driven by the caller.
type clockSetter interface {
	SetTime(time float64)
}

// Advance extends looping SSG-EG envelopes so their schedules cover until
// and, for hosts with a settable clock, moves the clock there.
func (s *Synth) Advance(until float64) {
	for _, ch := range s.channels {
		for _, env := range ch.Envelopes() {
			env.ScheduleLoops(until)
		}
	}
	if cs, ok := s.host.(clockSetter); ok {
		cs.SetTime(until)
	}
}

// Now returns the host's current time.
func (s *Synth) Now() float64 { return s.host.CurrentTime() }
