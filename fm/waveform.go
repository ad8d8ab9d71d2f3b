package fm

import "math"

// WaveKind identifies how a waveform is produced.
type WaveKind int

const (
	WaveOscillator WaveKind = iota // host built-in shape
	WaveSampled                    // looped sample
	WavePeriodic                   // Fourier coefficients
)

// Waveform is something an operator's source can play.
type Waveform struct {
	Kind WaveKind
	Name string
	// Samples holds one cycle for WaveSampled.
	Samples []float64
	// Real and Imag hold cosine and sine terms for WavePeriodic.
	Real, Imag []float64
}

// Length returns the playback length in samples of one cycle, or 0 when the
// host generates the waveform at the source frequency.
func (w *Waveform) Length() int {
	if w.Kind == WaveSampled {
		return len(w.Samples)
	}
	return 0
}

// NewPeriodicWave builds a waveform from Fourier coefficients.
func NewPeriodicWave(real, imag []float64) *Waveform {
	return &Waveform{Kind: WavePeriodic, Name: "custom", Real: real, Imag: imag}
}

// NewSampledWave builds a looped waveform from one cycle of samples.
func NewSampledWave(name string, samples []float64) *Waveform {
	return &Waveform{Kind: WaveSampled, Name: name, Samples: samples}
}

const cycleLength = 1024

func sineAt(i int) float64 {
	return math.Sin(2 * math.Pi * (float64(i) + 0.5) / cycleLength)
}

// Waveforms is the standard waveform set, indexed by waveform number.
var Waveforms = standardWaveforms()

// standardWaveforms returns the chip-style waveform set, numbered 0-8: sine,
// half sine, absolute sine, pulse sine, even sine, absolute even sine, square,
// sawtooth and triangle. Sampled shapes play one 1024 sample sine cycle per
// period of the source frequency; the pulse and absolute shapes repeat twice
// as often and the even shapes half as often.
func standardWaveforms() []*Waveform {
	half := make([]float64, cycleLength)
	abs := make([]float64, cycleLength/2)
	for i := 0; i < cycleLength/2; i++ {
		half[i] = sineAt(i)
		abs[i] = half[i]
	}
	pulse := make([]float64, cycleLength/2)
	for i := 0; i < cycleLength/4; i++ {
		pulse[i] = sineAt(i)
	}
	even := make([]float64, 2*cycleLength)
	absEven := make([]float64, 2*cycleLength)
	for i := 0; i < cycleLength; i++ {
		even[i] = sineAt(i)
		absEven[i] = math.Abs(even[i])
	}
	return []*Waveform{
		{Kind: WaveOscillator, Name: "sine"},
		NewSampledWave("halfsine", half),
		NewSampledWave("abssine", abs),
		NewSampledWave("pulsesine", pulse),
		NewSampledWave("evensine", even),
		NewSampledWave("absevensine", absEven),
		{Kind: WaveOscillator, Name: "square"},
		{Kind: WaveOscillator, Name: "sawtooth"},
		{Kind: WaveOscillator, Name: "triangle"},
	}
}

// samplePeriods gives, per standard waveform, the number of samples the
// playback rate is scaled by (0 for host generated shapes).
var samplePeriods = [9]float64{0, cycleLength, cycleLength, cycleLength, 2 * cycleLength, 2 * cycleLength, 0, 0, 0}

// EnvelopeAmplitude converts an envelope gain (0-1) plus total level offset
// into output amplitude using the chip's 54 dB log curve.
func EnvelopeAmplitude(gain, totalLevel float64) float64 {
	x := gain + totalLevel
	if x <= 0 {
		return 0
	}
	if x > 1 {
		x = 1
	}
	return math.Pow(10, 54.0/20*(x-1))
}
