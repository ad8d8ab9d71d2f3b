package chip

import (
	"math"

	sn76489 "github.com/user-none/go-chip-sn76489"
	"github.com/user-none/opnfm/fm"
)

// psgBufferSize is the sample buffer handed to the chip core. Samples are not
// rendered, so it only needs to satisfy the constructor.
const psgBufferSize = 1024

// noiseDividers are the counter reloads for noise rates 0-2. Rate 3 follows
// tone channel 3.
var noiseDividers = [3]uint16{0x10, 0x20, 0x40}

// PSG is an SN76489 front end. The chip core decodes the latch/data protocol;
// each write is then translated into scheduled tone frequencies, noise rate
// and channel amplitudes.
type PSG struct {
	chip  *sn76489.SN76489
	clock float64

	tone   [3]fm.Param
	volume [4]fm.Param
	noise  fm.Param

	toneReg  [3]uint16
	volReg   [4]uint8
	noiseReg uint8
}

// NewPSG creates a PSG clocked at clockHz whose params are created on host.
func NewPSG(host fm.Host, clockHz int) *PSG {
	p := &PSG{
		chip:  sn76489.New(clockHz, int(host.SampleRate()), psgBufferSize, sn76489.Sega),
		clock: float64(clockHz),
	}
	for i := range p.tone {
		p.tone[i] = host.NewParam(p.toneFrequency(0))
	}
	for i := range p.volume {
		p.volume[i] = host.NewParam(volumeTable(p.chip.GetVolume(i)))
	}
	p.noise = host.NewParam(p.noiseFrequency())
	for i := range p.volReg {
		p.volReg[i] = p.chip.GetVolume(i)
	}
	p.noiseReg = p.chip.GetNoiseReg()
	return p
}

func volumeTable(v uint8) float64 {
	return float64(sn76489.GetVolumeTable()[v&15])
}

// toneFrequency converts a tone register to Hz. Register 0 behaves as 1.
func (p *PSG) toneFrequency(reg uint16) float64 {
	if reg == 0 {
		reg = 1
	}
	return p.clock / (32 * float64(reg))
}

// noiseFrequency is the rate at which the noise shift register steps.
func (p *PSG) noiseFrequency() float64 {
	rate := p.noiseReg & 3
	if rate == 3 {
		return p.toneFrequency(p.toneReg[2])
	}
	return p.clock / (32 * float64(noiseDividers[rate]))
}

// Write sends one byte to the chip at time.
func (p *PSG) Write(value uint8, time float64) {
	p.chip.Write(value)

	noiseChanged := false
	for i := range p.toneReg {
		reg := p.chip.GetToneReg(i)
		if reg == p.toneReg[i] {
			continue
		}
		p.toneReg[i] = reg
		p.tone[i].SetValueAtTime(p.toneFrequency(reg), time)
		noiseChanged = noiseChanged || i == 2
	}
	for i := range p.volReg {
		v := p.chip.GetVolume(i)
		if v == p.volReg[i] {
			continue
		}
		p.volReg[i] = v
		p.volume[i].SetValueAtTime(volumeTable(v), time)
	}
	if nr := p.chip.GetNoiseReg(); nr != p.noiseReg {
		p.noiseReg = nr
		noiseChanged = true
	}
	if noiseChanged {
		p.noise.SetValueAtTime(p.noiseFrequency(), time)
	}
}

// ToneFrequency returns tone channel ch's frequency (0-2) in Hz.
func (p *PSG) ToneFrequency(ch int) float64 { return p.toneFrequency(p.toneReg[ch]) }

// ToneRegister returns the register value nearest frequency, 1-1023.
func (p *PSG) ToneRegister(frequency float64) uint16 {
	if frequency <= 0 {
		return 1023
	}
	reg := math.Round(p.clock / (32 * frequency))
	return uint16(max(1, min(reg, 1023)))
}

// Amplitude returns channel ch's linear amplitude; channel 3 is noise.
func (p *PSG) Amplitude(ch int) float64 { return volumeTable(p.volReg[ch]) }

// Attenuation returns channel ch's 4-bit attenuation, 15 being silent.
func (p *PSG) Attenuation(ch int) uint8 { return p.volReg[ch] }

// NoiseFrequency returns the noise shift rate in Hz.
func (p *PSG) NoiseFrequency() float64 { return p.noiseFrequency() }

// WhiteNoise reports whether the noise channel is in white noise mode.
func (p *PSG) WhiteNoise() bool { return p.noiseReg&4 != 0 }

func (p *PSG) ToneParam(ch int) fm.Param   { return p.tone[ch] }
func (p *PSG) VolumeParam(ch int) fm.Param { return p.volume[ch] }
func (p *PSG) NoiseParam() fm.Param        { return p.noise }

// SetTone writes both bytes needed to set tone channel ch to reg.
func (p *PSG) SetTone(ch int, reg uint16, time float64) {
	p.Write(0x80|uint8(ch&3)<<5|uint8(reg&0x0F), time)
	p.Write(uint8(reg>>4)&0x3F, time)
}

// SetAttenuation writes channel ch's volume register.
func (p *PSG) SetAttenuation(ch int, att uint8, time float64) {
	p.Write(0x90|uint8(ch&3)<<5|att&0x0F, time)
}
