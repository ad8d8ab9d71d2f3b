package chip

import (
	"errors"

	"github.com/user-none/opnfm/fm"
)

// ErrTooFewChannels is returned when the synth cannot hold the chip's six channels.
var ErrTooFewChannels = errors.New("ym2612: synth needs at least 6 channels")

// pcmLevels are the DAC output levels indexed by the enable bits, bit 0 from
// $2B and bit 1 from the $2C test register.
var pcmLevels = [4]float64{0, 99, 141, 141}

// operatorOrder maps register slot bits to operator number.
// Register order is S1, S3, S2, S4.
var operatorOrder = [4]int{1, 3, 2, 4}

// ch3SlotOperator maps the channel 3 special mode registers $A8-$AA (and
// $AC-$AE) to the operator they tune.
var ch3SlotOperator = [3]int{3, 1, 2}

// YM2612 decodes OPN2 register writes into calls on an fm.Synth. Every write
// takes effect at the time given with it.
type YM2612 struct {
	synth *fm.Synth

	addrLatch [2]uint8
	regs      [2][256]uint8
	written   [2][256]bool

	// Block/F-number high bytes latched by $A4-$A6 and $AC-$AE until the
	// matching low byte is written.
	freqHigh [6]uint8
	ch3High  [3]uint8

	ch3Special bool
	pcmLevel   int
}

// NewYM2612 creates a register front end for s.
func NewYM2612(s *fm.Synth) (*YM2612, error) {
	if s.NumChannels() < 6 {
		return nil, ErrTooFewChannels
	}
	y := &YM2612{synth: s}
	for i := range y.freqHigh {
		ch := s.Channel(i + 1)
		y.freqHigh[i] = highByte(ch.FrequencyBlock(4), ch.FrequencyNumber(4))
	}
	for i := range y.ch3High {
		y.ch3High[i] = y.freqHigh[2]
	}
	return y, nil
}

func highByte(block, fnum int) uint8 {
	return uint8(block<<3 | fnum>>8)
}

func splitFrequency(high, low uint8) (block, fnum int) {
	return int(high>>3) & 7, int(high&7)<<8 | int(low)
}

// Synth returns the synth the chip drives.
func (y *YM2612) Synth() *fm.Synth { return y.synth }

// WritePort writes to one of the four bus ports at time.
// Port 0: address latch for Part I
// Port 1: data write for Part I
// Port 2: address latch for Part II
// Port 3: data write for Part II
func (y *YM2612) WritePort(port, val uint8, time float64) {
	switch port & 3 {
	case 0:
		y.addrLatch[0] = val
	case 1:
		y.Write(y.addrLatch[0], val, 0, time)
	case 2:
		y.addrLatch[1] = val
	case 3:
		y.Write(y.addrLatch[1], val, 1, time)
	}
}

// Register returns the last value written to a register.
func (y *YM2612) Register(addr uint8, part int) uint8 { return y.regs[part&1][addr] }

// Write applies a register write. part 0 addresses channels 1-3 and the global
// registers, part 1 channels 4-6.
func (y *YM2612) Write(addr, val uint8, part int, time float64) {
	part &= 1
	y.regs[part][addr] = val
	y.written[part][addr] = true
	switch {
	case addr < 0x20:
		return
	case addr < 0x30:
		// Global registers only exist in Part I
		if part == 0 {
			y.writeGlobalRegister(addr, val, time)
		}
	case addr < 0xA0:
		y.writeOperatorRegister(part, addr, val, time)
	default:
		y.writeChannelRegister(part, addr, val, time)
	}
}

func (y *YM2612) writeGlobalRegister(addr, val uint8, time float64) {
	s := y.synth
	switch addr {
	case 0x22:
		// LFO enable and rate
		if val&0x08 != 0 {
			s.UseLFOPreset(int(val&7)+1, time, fm.SetValue)
		} else {
			s.SetLFOFrequency(0, time, fm.SetValue)
		}
	case 0x27:
		// Channel 3 mode, bits 7-6. Timer bits have no effect here.
		special := val&0xC0 != 0
		if special == y.ch3Special {
			return
		}
		y.ch3Special = special
		ch := s.Channel(3)
		for n := 1; n <= 4; n++ {
			ch.FixFrequency(n, special, &time, false, fm.SetValue)
		}
	case 0x28:
		y.writeKeyOnOff(val, time)
	case 0x2A:
		s.WritePCM(int(val), time)
	case 0x2B:
		y.enablePCM(1, val&0x80 != 0, time)
	case 0x2C:
		y.enablePCM(2, val&0x10 != 0, time)
	}
}

func (y *YM2612) enablePCM(bit int, enabled bool, time float64) {
	y.pcmLevel &^= bit
	if enabled {
		y.pcmLevel |= bit
	}
	s := y.synth
	gain := min(fm.OutputLevelToGain(pcmLevels[y.pcmLevel]), float64(s.NumChannels()))
	s.MixPCM(gain, time, fm.SetValue)
}

// PCMEnabled reports whether the DAC replaces channel 6.
func (y *YM2612) PCMEnabled() bool { return y.pcmLevel&1 != 0 }

// writeKeyOnOff handles $28.
// val bits 0-2: channel (0-2=Part I, 4-6=Part II)
// val bits 4-7: operator keys (bit4=S1, bit5=S2, bit6=S3, bit7=S4)
func (y *YM2612) writeKeyOnOff(val uint8, time float64) {
	chLow := int(val & 0x03)
	if chLow == 3 {
		return
	}
	chNum := chLow + 1
	if val&0x04 != 0 {
		chNum += 3
	}
	y.synth.Channel(chNum).KeyOnOff(time,
		val&0x10 != 0, val&0x20 != 0, val&0x40 != 0, val&0x80 != 0)
}

// writeOperatorRegister handles $30-$9F.
func (y *YM2612) writeOperatorRegister(part int, addr, val uint8, time float64) {
	chSlot := int(addr & 0x03)
	if chSlot == 3 {
		return
	}
	opNum := operatorOrder[(addr>>2)&0x03]
	ch := y.synth.Channel(part*3 + chSlot + 1)
	op := ch.Operator(opNum)

	switch addr & 0xF0 {
	case 0x30:
		// DT1/MUL
		multiple := float64(val & 0x0F)
		if multiple == 0 {
			multiple = 0.5
		}
		op.SetDetune(int(val>>4)&7, &time, fm.SetValue)
		ch.SetFrequencyMultiple(opNum, multiple, &time, fm.SetValue)
	case 0x40:
		op.SetTotalLevel(float64(val&0x7F), time, fm.SetValue)
	case 0x50:
		// RS/AR
		op.SetRateScaling(int(val >> 6))
		op.SetAttack(float64(val & 0x1F))
	case 0x60:
		// AM/D1R
		ch.EnableTremolo(opNum, val&0x80 != 0, time, fm.SetValue)
		op.SetDecay(float64(val & 0x1F))
	case 0x70:
		op.SetSustainRate(float64(val & 0x1F))
	case 0x80:
		// D1L/RR
		op.SetSustain(int(val >> 4))
		op.SetRelease(float64(val & 0x0F))
	case 0x90:
		op.SetSSG(int(val & 0x0F))
	}
}

// writeChannelRegister handles $A0-$B6.
func (y *YM2612) writeChannelRegister(part int, addr, val uint8, time float64) {
	chSlot := int(addr & 0x03)
	if chSlot == 3 {
		return
	}
	chIdx := part*3 + chSlot
	ch := y.synth.Channel(chIdx + 1)

	switch {
	case addr >= 0xA0 && addr <= 0xA2:
		// F-Number LSB, latching the block and MSB written before it
		block, fnum := splitFrequency(y.freqHigh[chIdx], val)
		if chIdx == 2 && ch.IsOperatorFixed(4) {
			ch.SetOperatorFrequency(4, block, fnum, time, fm.SetValue)
		} else {
			ch.SetFrequency(block, fnum, time, fm.SetValue)
		}
	case addr >= 0xA4 && addr <= 0xA6:
		y.freqHigh[chIdx] = val & 0x3F
	case addr >= 0xA8 && addr <= 0xAA:
		if part == 0 {
			block, fnum := splitFrequency(y.ch3High[chSlot], val)
			y.synth.Channel(3).SetOperatorFrequency(ch3SlotOperator[chSlot], block, fnum, time, fm.SetValue)
		}
	case addr >= 0xAC && addr <= 0xAE:
		if part == 0 {
			y.ch3High[chSlot] = val & 0x3F
		}
	case addr >= 0xB0 && addr <= 0xB2:
		// Feedback/Algorithm
		ch.UseAlgorithm(int(val&7), time, fm.SetValue)
		ch.UseFeedbackPreset(float64((val>>3)&7), 1, time, fm.SetValue)
	case addr >= 0xB4 && addr <= 0xB6:
		// Panning/AMS/FMS
		ch.UseVibratoPreset(int(val&7), time)
		ch.UseTremoloPreset(int(val>>4)&3, time, fm.SetValue)
		if val&0xC0 == 0 {
			ch.Mute(true, time)
			return
		}
		pan := 0.0
		if val&0x80 != 0 {
			pan--
		}
		if val&0x40 != 0 {
			pan++
		}
		ch.SetPan(pan, time, fm.SetValue)
		ch.Mute(false, time)
	}
}
