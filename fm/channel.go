package fm

import "math"

// feedbackCalibration scales feedback presets to modulation depth.
const feedbackCalibration = 2.5

// channelCore is the state shared by a four operator channel and the two
// operator channels carved out of it.
type channelCore struct {
	synth *Synth
	ops   [4]*Operator

	// 1->1, 3->3, 1->2, 1->3, 1->4, 2->3, 2->4, 3->4
	gains      [8]Param
	gainValues [8]float64

	blocks    [4]int
	fnums     [4]int
	multiples [4]float64
	fixed     [4]bool

	tremoloEnabled [4]bool
	vibratoEnabled [4]bool
	keyVelocity    [4]float64

	volume  Param
	pan     Param
	mute    Param
	volumeV float64
	panV    float64
	muted   bool

	lfoEnvelope Param
	lfoAttack   float64

	tuning *Tuning
}

func newChannelCore(s *Synth) *channelCore {
	h := s.host
	c := &channelCore{
		synth:       s,
		volume:      h.NewParam(1),
		pan:         h.NewParam(0),
		mute:        h.NewParam(1),
		volumeV:     1,
		lfoEnvelope: h.NewParam(1),
		tuning:      s.tuning,
	}
	for i := range c.ops {
		c.ops[i] = NewOperator(h, &s.timing)
		c.blocks[i] = 4
		c.fnums[i] = 1093
		c.multiples[i] = 1
		c.vibratoEnabled[i] = true
		c.keyVelocity[i] = 1
	}
	for i := range c.gains {
		c.gains[i] = h.NewParam(0)
	}
	return c
}

// Channel is either a four operator channel or a two operator channel that
// uses operators 1-2 or 3-4 of a four operator channel. Operator numbers
// passed to Channel methods are 1-based and relative to the channel.
type Channel struct {
	core   *channelCore
	offset int
	count  int

	algorithm    int
	transpose    int
	tremoloDepth float64
	vibratoDepth float64
}

func newChannel(core *channelCore) *Channel {
	ch := &Channel{core: core, count: 4}
	ch.UseAlgorithm(7, 0, SetValue)
	return ch
}

func newTwoOpChannel(core *channelCore, offset int) *Channel {
	return &Channel{core: core, offset: offset, count: 2, algorithm: 1}
}

func (ch *Channel) index(opNum int) int { return ch.offset + opNum - 1 }

// base is the slot holding the channel frequency that multiples apply to.
func (ch *Channel) base() int {
	if ch.count == 4 {
		return 3
	}
	return ch.offset
}

// NumOperators returns 4 or 2.
func (ch *Channel) NumOperators() int { return ch.count }

// Operator returns operator opNum.
func (ch *Channel) Operator(opNum int) *Operator { return ch.core.ops[ch.index(opNum)] }

// Activate prepares the channel for use after the other mode was in use. A two
// operator channel halves the parent's volume so both pairs fit.
func (ch *Channel) Activate(time float64, method Method) {
	if ch.count == 4 {
		ch.SetVolume(1, time, method)
		return
	}
	ch.SetVolume(0.5, time, method)
	ch.SetLFOAttack(0, time)
	ch.Mute(false, time)
}

// SetAlgorithm applies a modulation and output routing. Every value is
// scheduled at the same time so the routing changes as one.
func (ch *Channel) SetAlgorithm(modulations, outputs []float64, time float64, method Method) {
	c := ch.core
	if ch.count == 4 {
		for i := 0; i < 6; i++ {
			ch.setGain(i+2, at(modulations, i), time, method)
		}
	} else {
		ch.SetModulationDepth(1, 2, at(modulations, 0), time, method)
	}
	for i := 0; i < ch.count; i++ {
		op := c.ops[ch.offset+i]
		level := at(outputs, i)
		op.Enable()
		op.SetVolume(level, time, method)
		if level == 0 {
			c.keyVelocity[ch.offset+i] = 0
		} else {
			c.keyVelocity[ch.offset+i] = 1
		}
	}
}

func at(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}

// UseAlgorithm selects one of FourOpAlgorithms, or TwoOpAlgorithms for a two
// operator channel. Unknown numbers are ignored.
func (ch *Channel) UseAlgorithm(n int, time float64, method Method) {
	var alg Algorithm
	switch {
	case ch.count == 4 && n >= 0 && n < len(FourOpAlgorithms):
		alg = FourOpAlgorithms[n]
	case ch.count == 2 && n >= 0 && n < len(TwoOpAlgorithms):
		alg = TwoOpAlgorithms[n]
	default:
		return
	}
	ch.SetAlgorithm(alg.Modulations, alg.Outputs, time, method)
	ch.algorithm = n
}

func (ch *Channel) Algorithm() int { return ch.algorithm }

func (ch *Channel) setGain(index int, amount, time float64, method Method) {
	schedule(ch.core.gains[index], method, amount, time)
	ch.core.gainValues[index] = amount
}

// SetModulationDepth sets how strongly one operator modulates another.
// Combinations without a path are ignored.
func (ch *Channel) SetModulationDepth(modulator, carrier int, amount, time float64, method Method) {
	index := IndexOfGain(ch.offset+modulator, ch.offset+carrier)
	if index < 0 {
		return
	}
	ch.setGain(index, amount, time, method)
}

// ModulationDepth returns the modulation depth between two operators, or 0.
func (ch *Channel) ModulationDepth(modulator, carrier int) float64 {
	index := IndexOfGain(ch.offset+modulator, ch.offset+carrier)
	if index < 0 {
		return 0
	}
	return ch.core.gainValues[index]
}

// GainParam returns the param for a gain slot as numbered by IndexOfGain.
func (ch *Channel) GainParam(index int) Param { return ch.core.gains[index] }

func (ch *Channel) DisableOperator(opNum int, time float64) { ch.Operator(opNum).Disable(time) }
func (ch *Channel) EnableOperator(opNum int)                { ch.Operator(opNum).Enable() }

// FixFrequency switches an operator between following the channel
// frequency (times its multiple) and holding its own frequency.
//
// With preserve set, a newly fixed operator keeps the pitch it had. Otherwise,
// when time is given, the operator's own stored frequency is applied (fixing)
// or the channel frequency is restored (unfixing).
func (ch *Channel) FixFrequency(opNum int, fixed bool, time *float64, preserve bool, method Method) {
	c := ch.core
	i := ch.index(opNum)
	op := c.ops[i]
	base := ch.base()
	block, fnum := c.blocks[base], c.fnums[base]

	if fixed {
		if preserve {
			if !c.fixed[i] && (i != base || ch.othersFixed(i)) {
				full := float64(ComponentsToFullFreq(block, fnum)) * c.multiples[i]
				c.blocks[i], c.fnums[i] = c.tuning.FullFreqToComponents(full)
			}
		} else if time != nil {
			op.SetFrequency(c.blocks[i], c.fnums[i], 1, *time, method)
		}
	} else if time != nil {
		op.SetFrequency(block, fnum, c.multiples[i], *time, method)
	}
	c.fixed[i] = fixed
}

func (ch *Channel) othersFixed(skip int) bool {
	for i := ch.offset; i < ch.offset+ch.count; i++ {
		if i != skip && !ch.core.fixed[i] {
			return false
		}
	}
	return true
}

func (ch *Channel) IsOperatorFixed(opNum int) bool { return ch.core.fixed[ch.index(opNum)] }

// SetFrequency sets the channel frequency. Operators with their own fixed
// frequency keep it.
func (ch *Channel) SetFrequency(block, fnum int, time float64, method Method) {
	c := ch.core
	for i := ch.offset; i < ch.offset+ch.count; i++ {
		if !c.fixed[i] {
			c.ops[i].SetFrequency(block, fnum, c.multiples[i], time, method)
		}
	}
	base := ch.base()
	c.blocks[base] = block
	c.fnums[base] = fnum
}

// SetOperatorFrequency stores an operator's own frequency, applying it at
// once if the operator is fixed.
func (ch *Channel) SetOperatorFrequency(opNum, block, fnum int, time float64, method Method) {
	c := ch.core
	i := ch.index(opNum)
	if c.fixed[i] {
		c.ops[i].SetFrequency(block, fnum, 1, time, method)
	}
	c.blocks[i] = block
	c.fnums[i] = fnum
}

func (ch *Channel) FrequencyBlock(opNum int) int  { return ch.core.blocks[ch.index(opNum)] }
func (ch *Channel) FrequencyNumber(opNum int) int { return ch.core.fnums[ch.index(opNum)] }

// SetFrequencyMultiple sets an operator's ratio to the channel frequency. When
// time is given and the operator is not fixed the new ratio sounds at once.
func (ch *Channel) SetFrequencyMultiple(opNum int, multiple float64, time *float64, method Method) {
	c := ch.core
	i := ch.index(opNum)
	c.multiples[i] = multiple
	if time != nil && !c.fixed[i] {
		base := ch.base()
		c.ops[i].SetFrequency(c.blocks[base], c.fnums[base], multiple, *time, method)
	}
}

func (ch *Channel) FrequencyMultiple(opNum int) float64 { return ch.core.multiples[ch.index(opNum)] }

func (ch *Channel) SetTranspose(semitones int) { ch.transpose = semitones }
func (ch *Channel) Transpose() int             { return ch.transpose }

// SetTuning replaces the note table used by the channel and its two operator
// halves.
func (ch *Channel) SetTuning(t *Tuning) { ch.core.tuning = t }

func (ch *Channel) Tuning() *Tuning { return ch.core.tuning }

// SetMIDINote sets the channel frequency from a note number, after transposing.
func (ch *Channel) SetMIDINote(note int, time float64, method Method) {
	block, fnum := ch.core.tuning.Note(note + ch.transpose)
	ch.SetFrequency(block, fnum, time, method)
}

// SetOperatorNote fixes an operator's frequency at a note number times
// multiple. Transposition does not apply.
func (ch *Channel) SetOperatorNote(opNum, note int, multiple, time float64, method Method) {
	t := ch.core.tuning
	if ch.count == 4 {
		ch.core.fixed[ch.index(opNum)] = true
	} else {
		ch.FixFrequency(opNum, true, nil, false, method)
	}
	block, fnum := t.Note(note)
	if multiple != 1 {
		block, fnum = t.MultiplyFreqComponents(block, fnum, multiple)
	}
	ch.SetOperatorFrequency(opNum, block, fnum, time, method)
}

// MIDINote returns the note nearest an operator's frequency. For operators
// following the channel frequency the channel transposition is removed.
func (ch *Channel) MIDINote(opNum int) int {
	c := ch.core
	i := ch.index(opNum)
	slot := i
	if !c.fixed[i] {
		slot = ch.base()
	}
	note := c.tuning.FrequencyToNote(c.blocks[slot], c.fnums[slot])
	if !c.fixed[i] {
		note -= ch.transpose
	}
	return note
}

func (ch *Channel) feedbackIndex(opNum int) int { return ch.index(opNum) / 2 }

// SetFeedback sets an operator's self modulation. Only operators 1 and 3 of
// a four operator channel (1 of a two operator channel) have feedback; opNum
// must refer to one of them.
func (ch *Channel) SetFeedback(amount float64, opNum int, time float64, method Method) {
	ch.setGain(ch.feedbackIndex(opNum), amount, time, method)
}

func (ch *Channel) Feedback(opNum int) float64 {
	return ch.core.gainValues[ch.feedbackIndex(opNum)]
}

// UseFeedbackPreset applies a register style feedback level 0-7.
func (ch *Channel) UseFeedbackPreset(n float64, opNum int, time float64, method Method) {
	amount := 0.0
	if n != 0 {
		amount = -feedbackCalibration * math.Pow(2, n-6)
	}
	ch.SetFeedback(amount, opNum, time, method)
}

// FeedbackPreset converts the current feedback back to a preset level,
// rounded to 1/28ths.
func (ch *Channel) FeedbackPreset(opNum int) float64 {
	amount := ch.Feedback(opNum)
	if amount == 0 {
		return 0
	}
	level := math.Log2(amount/-feedbackCalibration) + 6
	return math.Round(level*28) / 28
}

// SetTremoloDepth sets the tremolo depth, 0-1023, on operators with tremolo
// enabled.
func (ch *Channel) SetTremoloDepth(depth int, time float64, method Method) {
	ch.applyTremolo(float64(depth)/1023, time, method)
}

func (ch *Channel) applyTremolo(amount, time float64, method Method) {
	c := ch.core
	for i := ch.offset; i < ch.offset+ch.count; i++ {
		if c.tremoloEnabled[i] {
			c.ops[i].SetTremoloDepth(amount, time, method)
		}
	}
	ch.tremoloDepth = amount
}

func (ch *Channel) TremoloDepth() int { return int(math.Round(ch.tremoloDepth * 1023)) }

// UseTremoloPreset applies one of the chip's four AMS depths.
func (ch *Channel) UseTremoloPreset(n int, time float64, method Method) {
	ch.applyTremolo(tremoloPresets[n], time, method)
}

// TremoloPreset returns the preset matching the tremolo depth, or -1.
func (ch *Channel) TremoloPreset() int {
	depth := math.Round(ch.tremoloDepth * 2046)
	for i, p := range tremoloPresets {
		if math.Round(p*2046) == depth {
			return i
		}
	}
	return -1
}

func (ch *Channel) EnableTremolo(opNum int, enabled bool, time float64, method Method) {
	depth := 0.0
	if enabled {
		depth = ch.tremoloDepth
	}
	ch.Operator(opNum).SetTremoloDepth(depth, time, method)
	ch.core.tremoloEnabled[ch.index(opNum)] = enabled
}

func (ch *Channel) TremoloEnabled(opNum int) bool { return ch.core.tremoloEnabled[ch.index(opNum)] }

// SetVibratoDepth sets the vibrato depth in cents on operators with vibrato
// enabled.
func (ch *Channel) SetVibratoDepth(cents, time float64, method Method) {
	sign := 1.0
	if cents < 0 {
		sign = -1
	}
	linear := sign * (math.Pow(2, math.Abs(cents)/1200) - 1)
	c := ch.core
	for i := ch.offset; i < ch.offset+ch.count; i++ {
		if c.vibratoEnabled[i] {
			c.ops[i].SetVibratoDepth(linear, time, method)
		}
	}
	ch.vibratoDepth = linear
}

// VibratoDepth returns the vibrato depth in cents, to 0.1 cent.
func (ch *Channel) VibratoDepth() float64 {
	return math.Round(vibratoCents(ch.vibratoDepth)*10) / 10
}

// UseVibratoPreset applies one of the chip's eight PMS depths.
func (ch *Channel) UseVibratoPreset(n int, time float64) {
	ch.SetVibratoDepth(VibratoPresets[n], time, SetValue)
}

// VibratoPreset returns the preset matching the vibrato depth, or -1.
func (ch *Channel) VibratoPreset() int {
	depth := ch.VibratoDepth()
	for i, p := range VibratoPresets {
		if p == depth {
			return i
		}
	}
	return -1
}

func (ch *Channel) EnableVibrato(opNum int, enabled bool, time float64, method Method) {
	depth := 0.0
	if enabled {
		depth = ch.vibratoDepth
	}
	ch.Operator(opNum).SetVibratoDepth(depth, time, method)
	ch.core.vibratoEnabled[ch.index(opNum)] = enabled
}

func (ch *Channel) VibratoEnabled(opNum int) bool { return ch.core.vibratoEnabled[ch.index(opNum)] }

// LFOEnvelope returns the param that fades the LFO in after key on.
func (ch *Channel) LFOEnvelope() Param { return ch.core.lfoEnvelope }

// SetLFOAttack sets how long the LFO takes to reach full depth after key on.
func (ch *Channel) SetLFOAttack(seconds, time float64) {
	c := ch.core
	c.lfoEnvelope.CancelAndHoldAtTime(time)
	c.lfoEnvelope.LinearRampToValueAtTime(1, time)
	c.lfoAttack = seconds
}

func (ch *Channel) LFOAttack() float64 { return ch.core.lfoAttack }

// TriggerLFO restarts the LFO fade in.
func (ch *Channel) TriggerLFO(time float64) {
	c := ch.core
	if c.lfoAttack > 0 {
		cancelAndHold(c.lfoEnvelope, 0, time)
		c.lfoEnvelope.LinearRampToValueAtTime(1, time+c.lfoAttack)
	}
}

// KeyOnOff keys each operator on or off. Missing values repeat the first, so
// KeyOnOff(t, true) keys every operator on. It does not restart the LFO fade.
func (ch *Channel) KeyOnOff(time float64, on ...bool) {
	if len(on) == 0 {
		return
	}
	for n := 0; n < ch.count; n++ {
		state := on[0]
		if n < len(on) {
			state = on[n]
		}
		op := ch.core.ops[ch.offset+n]
		if state {
			op.KeyOn(time)
		} else {
			op.KeyOff(time)
		}
	}
}

// KeyOn keys every operator on. A four operator channel also restarts the LFO
// fade in.
func (ch *Channel) KeyOn(time float64) {
	if ch.count == 4 {
		ch.TriggerLFO(time)
	}
	ch.KeyOnOff(time, true)
}

func (ch *Channel) KeyOff(time float64) { ch.KeyOnOff(time, false) }

// SetVelocity sets the total level of velocity sensitive operators (the
// carriers, after an algorithm change) to 127 - velocity.
func (ch *Channel) SetVelocity(velocity int, time float64, method Method) {
	c := ch.core
	totalLevel := float64(127 - velocity)
	for i := ch.offset; i < ch.offset+ch.count; i++ {
		if c.keyVelocity[i] > 0 {
			c.ops[i].SetTotalLevel(totalLevel, time, method)
		}
	}
}

// KeyOnWithVelocity sets the velocity and keys on at the same time.
func (ch *Channel) KeyOnWithVelocity(velocity int, time float64) {
	ch.SetVelocity(velocity, time, SetValue)
	ch.KeyOn(time)
}

func (ch *Channel) SetKeyVelocity(opNum int, sensitivity float64) {
	ch.core.keyVelocity[ch.index(opNum)] = sensitivity
}

func (ch *Channel) KeyVelocity(opNum int) float64 { return ch.core.keyVelocity[ch.index(opNum)] }

// SoundOff silences every operator immediately.
func (ch *Channel) SoundOff(time float64) {
	for i := ch.offset; i < ch.offset+ch.count; i++ {
		ch.core.ops[i].SoundOff(time)
	}
}

// SetPan positions the channel: -1 is left only, 0 centre and 1 right only.
// Both two operator halves share the parent's pan.
func (ch *Channel) SetPan(pan, time float64, method Method) {
	schedule(ch.core.pan, method, pan, time)
	ch.core.panV = pan
}

func (ch *Channel) Pan() float64 { return ch.core.panV }

func (ch *Channel) SetVolume(volume, time float64, method Method) {
	schedule(ch.core.volume, method, volume, time)
	ch.core.volumeV = volume
}

func (ch *Channel) Volume() float64 { return ch.core.volumeV }

// VolumeParam returns the param carrying the channel volume.
func (ch *Channel) VolumeParam() Param { return ch.core.volume }

// PanParam returns the param carrying the channel pan.
func (ch *Channel) PanParam() Param { return ch.core.pan }

func (ch *Channel) Mute(muted bool, time float64) {
	v := 1.0
	if muted {
		v = 0
	}
	ch.core.mute.SetValueAtTime(v, time)
	ch.core.muted = muted
}

func (ch *Channel) Muted() bool { return ch.core.muted }

// PitchBend runs b on the frequency of the operators selected by mask, bit 0
// being operator 1. A mask of -1 selects the operators that follow the
// channel frequency.
func (ch *Channel) PitchBend(b *Bend, release bool, start float64, timesPerStep []float64, scaling float64, mask, maxSteps int) {
	c := ch.core
	if mask < 0 {
		mask = 0
		for n := 0; n < ch.count; n++ {
			if !c.fixed[ch.offset+n] {
				mask |= 1 << n
			}
		}
	}
	for n := 0; n < ch.count; n++ {
		if mask&(1<<n) == 0 {
			continue
		}
		op := c.ops[ch.offset+n]
		b.Execute(op.FrequencyParam(), release, start, timesPerStep, scaling, op.Frequency(), maxSteps)
	}
}

// VolumeAutomation runs b on the channel volume.
func (ch *Channel) VolumeAutomation(b *Bend, release bool, start float64, timesPerStep []float64, maxSteps int) {
	b.Execute(ch.core.volume, release, start, timesPerStep, 1, 0, maxSteps)
}

// Envelopes returns the channel's operator envelopes in operator order.
func (ch *Channel) Envelopes() []*Envelope {
	envs := make([]*Envelope, ch.count)
	for n := range envs {
		envs[n] = ch.core.ops[ch.offset+n].Envelope()
	}
	return envs
}
