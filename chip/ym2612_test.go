package chip

import (
	"testing"

	"github.com/user-none/opnfm/fm"
)

func makeTestYM2612(t *testing.T) (*YM2612, *fm.Synth) {
	t.Helper()
	s := fm.New(fm.NewTimelineHost(48000), fm.Config{})
	y, err := NewYM2612(s)
	if err != nil {
		t.Fatalf("NewYM2612: %v", err)
	}
	return y, s
}

func TestYM2612_TooFewChannels(t *testing.T) {
	s := fm.New(fm.NewTimelineHost(48000), fm.Config{Channels: 3})
	if _, err := NewYM2612(s); err != ErrTooFewChannels {
		t.Errorf("3 channels: got %v, want ErrTooFewChannels", err)
	}
}

func TestYM2612_KeyOnOff(t *testing.T) {
	y, s := makeTestYM2612(t)
	// Channel 6 (part II, slot 2), S1 and S2
	y.Write(0x28, 0x36, 0, 0)
	ch := s.Channel(6)
	want := []bool{true, true, false, false}
	for i, w := range want {
		if got := ch.Operator(i + 1).KeyIsOn(); got != w {
			t.Errorf("channel 6 operator %d: got %v, want %v", i+1, got, w)
		}
	}
	y.Write(0x28, 0x06, 0, 1)
	for n := 1; n <= 4; n++ {
		if ch.Operator(n).KeyIsOn() {
			t.Errorf("operator %d should be keyed off", n)
		}
	}
	// Slot 3 is not a channel
	y.Write(0x28, 0xF3, 0, 2)
	for n := 1; n <= 6; n++ {
		if s.Channel(n).Operator(1).KeyIsOn() {
			t.Errorf("channel %d keyed by an invalid slot", n)
		}
	}
}

func TestYM2612_Frequency(t *testing.T) {
	y, s := makeTestYM2612(t)
	y.Write(0xA4, 0x22, 0, 0)
	y.Write(0xA0, 0x69, 0, 0)
	if b, f := s.Channel(1).FrequencyBlock(4), s.Channel(1).FrequencyNumber(4); b != 4 || f != 0x269 {
		t.Errorf("channel 1: got (%d, %#x), want (4, 0x269)", b, f)
	}

	y.Write(0xA6, 0x1C, 1, 0)
	y.Write(0xA2, 0x44, 1, 0)
	if b, f := s.Channel(6).FrequencyBlock(4), s.Channel(6).FrequencyNumber(4); b != 3 || f != 0x444 {
		t.Errorf("channel 6: got (%d, %#x), want (3, 0x444)", b, f)
	}
	if got := s.Channel(6).Operator(2).FrequencyBlock(); got != 3 {
		t.Errorf("channel 6 operator 2 block: got %d, want 3", got)
	}
}

func TestYM2612_WritePort(t *testing.T) {
	y, s := makeTestYM2612(t)
	y.WritePort(2, 0xB1, 0)
	y.WritePort(3, 0x05, 0)
	if got := s.Channel(5).Algorithm(); got != 5 {
		t.Errorf("channel 5 algorithm: got %d, want 5", got)
	}
	if got := y.Register(0xB1, 1); got != 0x05 {
		t.Errorf("register shadow: got %#x, want 0x05", got)
	}
}

func TestYM2612_OperatorRegisters(t *testing.T) {
	y, s := makeTestYM2612(t)

	// TL, channel 1 S3
	y.Write(0x44, 0x20, 0, 0)
	if got := s.Channel(1).Operator(3).TotalLevel(); got != 32 {
		t.Errorf("total level: got %d, want 32", got)
	}

	// DT/MUL, channel 2 S2
	y.Write(0x39, 0x72, 0, 0)
	if got := s.Channel(2).Operator(2).Detune(); got != 7 {
		t.Errorf("detune: got %d, want 7", got)
	}
	if got := s.Channel(2).FrequencyMultiple(2); got != 2 {
		t.Errorf("multiple: got %v, want 2", got)
	}
	y.Write(0x39, 0x00, 0, 0)
	if got := s.Channel(2).FrequencyMultiple(2); got != 0.5 {
		t.Errorf("MUL 0: got %v, want 0.5", got)
	}

	env := s.Channel(1).Operator(4).Envelope()
	y.Write(0x5C, 0xDF, 0, 0)
	if env.RateScaling() != 3 || env.Attack() != 31 {
		t.Errorf("RS/AR: got %d/%v, want 3/31", env.RateScaling(), env.Attack())
	}
	y.Write(0x8C, 0xA7, 0, 0)
	if env.Sustain() != 10 || env.Release() != 7 {
		t.Errorf("D1L/RR: got %v/%v, want 10/7", env.Sustain(), env.Release())
	}
	y.Write(0x7C, 0x09, 0, 0)
	if env.SustainRate() != 9 {
		t.Errorf("D2R: got %v, want 9", env.SustainRate())
	}
	y.Write(0x9C, 0x0A, 0, 0)
	if env.SSG() != 10 {
		t.Errorf("SSG-EG: got %d, want 10", env.SSG())
	}

	y.Write(0x60, 0x85, 0, 0)
	if !s.Channel(1).TremoloEnabled(1) {
		t.Error("AM bit should enable tremolo")
	}
	if got := s.Channel(1).Operator(1).Envelope().Decay(); got != 5 {
		t.Errorf("D1R: got %v, want 5", got)
	}

	// Part II, channel 4 S1
	y.Write(0x40, 0x7F, 1, 0)
	if got := s.Channel(4).Operator(1).TotalLevel(); got != 127 {
		t.Errorf("part II total level: got %d, want 127", got)
	}
}

func TestYM2612_AlgorithmAndFeedback(t *testing.T) {
	y, s := makeTestYM2612(t)
	y.Write(0xB2, 0x3C, 0, 0)
	ch := s.Channel(3)
	if got := ch.Algorithm(); got != 4 {
		t.Errorf("algorithm: got %d, want 4", got)
	}
	if got := ch.FeedbackPreset(1); got != 7 {
		t.Errorf("feedback: got %v, want 7", got)
	}
}

func TestYM2612_PanAndLFO(t *testing.T) {
	y, s := makeTestYM2612(t)
	ch := s.Channel(1)

	tests := []struct {
		val  uint8
		pan  float64
		mute bool
	}{
		{0xC0, 0, false},
		{0x80, -1, false},
		{0x40, 1, false},
		{0x00, 1, true},
	}
	for _, tt := range tests {
		y.Write(0xB4, tt.val, 0, 0)
		if ch.Muted() != tt.mute {
			t.Errorf("%#x: muted %v, want %v", tt.val, ch.Muted(), tt.mute)
		}
		if !tt.mute && ch.Pan() != tt.pan {
			t.Errorf("%#x: pan %v, want %v", tt.val, ch.Pan(), tt.pan)
		}
	}

	y.Write(0xB4, 0xF3, 0, 0)
	if got := ch.TremoloPreset(); got != 3 {
		t.Errorf("AMS: got %d, want 3", got)
	}
	if got := ch.VibratoPreset(); got != 3 {
		t.Errorf("FMS: got %d, want 3", got)
	}

	y.Write(0x22, 0x0B, 0, 0)
	if got := s.LFOPreset(); got != 4 {
		t.Errorf("LFO preset: got %d, want 4", got)
	}
	y.Write(0x22, 0x08, 1, 0)
	if got := s.LFOPreset(); got != 4 {
		t.Errorf("global register in part II should be ignored, preset %d", got)
	}
	y.Write(0x22, 0x00, 0, 0)
	if got := s.LFOFrequency(); got != 0 {
		t.Errorf("LFO off: got %v Hz", got)
	}
}

func TestYM2612_DAC(t *testing.T) {
	y, s := makeTestYM2612(t)
	y.Write(0x2B, 0x80, 0, 0)
	if !y.PCMEnabled() {
		t.Fatal("DAC should be enabled")
	}
	if got := s.PCMMix(); got != 1 {
		t.Errorf("PCM mix: got %v, want 1", got)
	}
	if got := s.Channel(6).Volume(); got != 0 {
		t.Errorf("channel 6 volume: got %v, want 0", got)
	}
	y.Write(0x2A, 0xFF, 0, 0)
	if got := s.PCMValue(); got != 0xFF {
		t.Errorf("DAC value: got %d, want 255", got)
	}
	y.Write(0x2B, 0x00, 0, 1)
	if got := s.Channel(6).Volume(); got != 1 {
		t.Errorf("channel 6 after DAC off: got %v, want 1", got)
	}
}

func TestYM2612_Channel3Special(t *testing.T) {
	y, s := makeTestYM2612(t)
	ch := s.Channel(3)
	y.Write(0xA6, 0x22, 0, 0)
	y.Write(0xA2, 0x69, 0, 0)

	y.Write(0x27, 0x40, 0, 1)
	for n := 1; n <= 4; n++ {
		if !ch.IsOperatorFixed(n) {
			t.Errorf("operator %d should be fixed in special mode", n)
		}
	}

	y.Write(0xAD, 0x1C, 0, 1)
	y.Write(0xA9, 0x44, 0, 1)
	if b, f := ch.Operator(1).FrequencyBlock(), ch.Operator(1).FrequencyNumber(); b != 3 || f != 0x444 {
		t.Errorf("operator 1: got (%d, %#x), want (3, 0x444)", b, f)
	}
	y.Write(0xAC, 0x0C, 0, 1)
	y.Write(0xA8, 0x10, 0, 1)
	if b := ch.Operator(3).FrequencyBlock(); b != 1 {
		t.Errorf("operator 3 block: got %d, want 1", b)
	}

	y.Write(0xA6, 0x2C, 0, 2)
	y.Write(0xA2, 0x00, 0, 2)
	if b, f := ch.Operator(4).FrequencyBlock(), ch.Operator(4).FrequencyNumber(); b != 5 || f != 0x400 {
		t.Errorf("operator 4: got (%d, %#x), want (5, 0x400)", b, f)
	}
	if b := ch.Operator(1).FrequencyBlock(); b != 3 {
		t.Errorf("operator 1 should keep its own frequency, block %d", b)
	}

	y.Write(0x27, 0x00, 0, 3)
	if ch.IsOperatorFixed(1) {
		t.Error("normal mode should unfix the operators")
	}
	if b := ch.Operator(1).FrequencyBlock(); b != 5 {
		t.Errorf("operator 1 should follow the channel again, block %d", b)
	}
}
