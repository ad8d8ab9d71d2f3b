package fm

import (
	"math"
	"testing"
)

func TestSynth_LFOPresets(t *testing.T) {
	s, _ := makeTestSynth()
	for n := 1; n <= 8; n++ {
		f := s.LFOPresetToFrequency(n)
		if got := s.FrequencyToLFOPreset(f); got != n {
			t.Errorf("preset %d (%v Hz) read back as %d", n, f, got)
		}
	}
	if got := s.LFOPresetToFrequency(0); got != 0 {
		t.Errorf("preset 0: got %v Hz, want 0", got)
	}
	if got := s.FrequencyToLFOPreset(0); got != 0 {
		t.Errorf("0 Hz: got preset %d, want 0", got)
	}
	if got := s.FrequencyToLFOPreset(123); got != -1 {
		t.Errorf("123 Hz: got preset %d, want -1", got)
	}
	if got, want := s.LFOPresetToFrequency(1), s.Timing().LFORateDividend/109; got != want {
		t.Errorf("preset 1: got %v Hz, want %v", got, want)
	}
}

func TestSynth_SetClockRateKeepsLFOPreset(t *testing.T) {
	s, _ := makeTestSynth()
	s.UseLFOPreset(4, 0, SetValue)
	ntsc := s.LFOFrequency()
	s.SetClockRate(ClockPAL, 0, 0)
	if got := s.LFOPreset(); got != 4 {
		t.Errorf("preset after clock change: got %d, want 4", got)
	}
	if s.LFOFrequency() >= ntsc {
		t.Errorf("PAL LFO should be slower: %v >= %v", s.LFOFrequency(), ntsc)
	}
	if s.ClockRate() != ClockPAL {
		t.Errorf("clock rate: got %v, want %v", s.ClockRate(), ClockPAL)
	}
	b, f := s.Channel(1).Tuning().Note(69)
	hz := float64(ComponentsToFullFreq(b, f)) * s.Timing().FrequencyStep
	if math.Abs(hz-440)/440 > 0.001 {
		t.Errorf("A4 after clock change: %v Hz", hz)
	}
}

func TestSynth_Timing(t *testing.T) {
	s, _ := makeTestSynth()
	timing := s.Timing()
	chip := float64(ClockNTSC) / 7
	if want := 144 * 3 / chip; math.Abs(timing.EnvelopeTick-want) > 1e-15 {
		t.Errorf("envelope tick: got %v, want %v", timing.EnvelopeTick, want)
	}
	if want := chip / (144 * 1048576); math.Abs(timing.FrequencyStep-want) > 1e-15 {
		t.Errorf("frequency step: got %v, want %v", timing.FrequencyStep, want)
	}
}

func TestSynth_MixPCM(t *testing.T) {
	tests := []struct {
		amount, last, others float64
	}{
		{0, 1, 1},
		{0.5, 0.5, 1},
		{1, 0, 1},
		{3.5, 0, 0.5},
		{6, 0, 0},
	}
	for _, tt := range tests {
		s, _ := makeTestSynth()
		s.MixPCM(tt.amount, 0, SetValue)
		if got := s.Channel(6).Volume(); got != tt.last {
			t.Errorf("mix %v: last channel %v, want %v", tt.amount, got, tt.last)
		}
		for n := 1; n < 6; n++ {
			if got := s.Channel(n).Volume(); got != tt.others {
				t.Errorf("mix %v: channel %d %v, want %v", tt.amount, n, got, tt.others)
			}
		}
		if s.PCMMix() != tt.amount {
			t.Errorf("mix %v read back as %v", tt.amount, s.PCMMix())
		}
	}
}

func TestSynth_WritePCM(t *testing.T) {
	s, _ := makeTestSynth()
	s.Start(0)
	dac := s.DACParam().(*Timeline)
	if got := dac.ValueAt(0); got != 0 {
		t.Errorf("DAC after start: got %v, want 0", got)
	}
	s.WritePCM(255, 1)
	if got := dac.ValueAt(1); got != 127.0/128 {
		t.Errorf("DAC 255: got %v, want %v", got, 127.0/128)
	}
	s.WritePCM(0, 2)
	if got := dac.ValueAt(2); got != -1 {
		t.Errorf("DAC 0: got %v, want -1", got)
	}
	if s.PCMValue() != 0 {
		t.Errorf("PCM value: got %d, want 0", s.PCMValue())
	}
}

func TestSynth_ChannelLookup(t *testing.T) {
	s, _ := makeTestSynth()
	if s.NumChannels() != 6 {
		t.Errorf("channels: got %d, want 6", s.NumChannels())
	}
	for _, n := range []int{0, 7, -1} {
		if s.Channel(n) != nil {
			t.Errorf("Channel(%d) should be nil", n)
		}
	}
	if s.TwoOpChannel(12) == nil || s.TwoOpChannel(13) != nil {
		t.Error("there should be 12 two operator channels")
	}
	if s.TwoOpChannel(11).Operator(1) != s.Channel(6).Operator(1) {
		t.Error("two operator channel 11 should start on channel 6 operator 1")
	}
}

func TestSynth_ChannelGain(t *testing.T) {
	s, _ := makeTestSynth()
	gain := s.ChannelGainParam().(*Timeline)
	if got := gain.ValueAt(0); got != 1.0/6 {
		t.Errorf("default gain: got %v, want 1/6", got)
	}
	s.SetChannelGain(3, 1, SetValue)
	if got := gain.ValueAt(1); got != 0.5 {
		t.Errorf("gain 3: got %v, want 0.5", got)
	}
	if s.ChannelGain() != 3 {
		t.Errorf("channel gain: got %v, want 3", s.ChannelGain())
	}
}

func TestSynth_CopyTuning(t *testing.T) {
	s, _ := makeTestSynth()
	s.Channel(1).SetTuning(s.TunedMIDINotes(432))
	s.CopyTuning(1, 2)
	a, b := s.Channel(1).Tuning(), s.Channel(2).Tuning()
	if a == b {
		t.Fatal("copied tuning should be a separate table")
	}
	if a.FreqNums != b.FreqNums {
		t.Error("copied tuning should have the same notes")
	}
	s.CopyTuning(1, 9)
}

func TestSynth_AdvanceAndStop(t *testing.T) {
	s, host := makeTestSynth()
	s.Start(0)
	ch := s.Channel(1)
	ch.KeyOn(0)
	s.Advance(0.5)
	if host.CurrentTime() != 0.5 || s.Now() != 0.5 {
		t.Errorf("clock: got %v, want 0.5", host.CurrentTime())
	}
	s.Stop(0.5)
	if s.Running() {
		t.Error("synth should be stopped")
	}
	for n := 1; n <= 4; n++ {
		if ch.Operator(n).KeyIsOn() {
			t.Errorf("operator %d still keyed after stop", n)
		}
	}
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		in      string
		want    Region
		wantErr bool
	}{
		{"", RegionNTSC, false},
		{"ntsc", RegionNTSC, false},
		{"PAL", RegionPAL, false},
		{"secam", RegionNTSC, true},
	}
	for _, tt := range tests {
		got, err := ParseRegion(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRegion(%q): error %v", tt.in, err)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseRegion(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
	if got := ClocksForRegion(RegionPAL).FMClockHz; got != ClockPAL {
		t.Errorf("PAL FM clock: got %v", got)
	}
}
