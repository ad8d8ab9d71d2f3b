package fm

import (
	"math"
	"testing"
)

func TestIndexOfGain(t *testing.T) {
	tests := []struct {
		mod, car, want int
	}{
		{1, 1, 0},
		{3, 3, 1},
		{2, 2, -1},
		{4, 4, -1},
		{1, 2, 2},
		{1, 3, 3},
		{1, 4, 4},
		{2, 3, 5},
		{2, 4, 6},
		{3, 4, 7},
		{2, 1, -1},
		{4, 1, -1},
		{0, 2, -1},
		{3, 5, -1},
	}
	for _, tt := range tests {
		if got := IndexOfGain(tt.mod, tt.car); got != tt.want {
			t.Errorf("IndexOfGain(%d, %d): got %d, want %d", tt.mod, tt.car, got, tt.want)
		}
	}
}

func TestChannel_DefaultAlgorithm(t *testing.T) {
	s, _ := makeTestSynth()
	ch := s.Channel(1)
	if ch.Algorithm() != 7 {
		t.Errorf("default algorithm: got %d, want 7", ch.Algorithm())
	}
	for n := 1; n <= 4; n++ {
		if v := ch.Operator(n).Volume(); v != 1 {
			t.Errorf("operator %d volume: got %v, want 1", n, v)
		}
	}
	if d := ch.ModulationDepth(1, 2); d != 0 {
		t.Errorf("1->2 depth: got %v, want 0", d)
	}
}

func TestChannel_UseAlgorithmAtomic(t *testing.T) {
	s, _ := makeTestSynth()
	ch := s.Channel(1)
	ch.UseAlgorithm(4, 1.5, SetValue)

	for i := 2; i < 8; i++ {
		events := ch.GainParam(i).(*Timeline).Events()
		if last := events[len(events)-1]; last.Time != 1.5 {
			t.Errorf("gain %d last scheduled at %v, want 1.5", i, last.Time)
		}
	}
	wantDepth := map[[2]int]float64{{1, 2}: 1, {3, 4}: 1, {1, 3}: 0, {2, 3}: 0}
	for pair, want := range wantDepth {
		if got := ch.ModulationDepth(pair[0], pair[1]); got != want {
			t.Errorf("%d->%d: got %v, want %v", pair[0], pair[1], got, want)
		}
	}
	wantOut := []float64{0, 1, 0, 1}
	for i, want := range wantOut {
		op := ch.Operator(i + 1)
		if got := op.MixerParam().(*Timeline).ValueAt(1.5); got != want {
			t.Errorf("operator %d output: got %v, want %v", i+1, got, want)
		}
		if got := ch.KeyVelocity(i + 1); got != want {
			t.Errorf("operator %d velocity sensitivity: got %v, want %v", i+1, got, want)
		}
	}

	ch.UseAlgorithm(12, 2, SetValue)
	if ch.Algorithm() != 4 {
		t.Errorf("unknown algorithm should be ignored, now %d", ch.Algorithm())
	}
}

func TestChannel_FrequencyMultiples(t *testing.T) {
	s, _ := makeTestSynth()
	ch := s.Channel(1)
	step := s.Timing().FrequencyStep

	ch.SetFrequencyMultiple(1, 2, nil, SetValue)
	ch.SetFrequency(4, 1000, 0, SetValue)
	full := float64(ComponentsToFullFreq(4, 1000))
	if got, want := ch.Operator(1).Frequency(), full*2*step; math.Abs(got-want) > 1e-9 {
		t.Errorf("operator 1: got %v Hz, want %v", got, want)
	}
	if got, want := ch.Operator(4).Frequency(), full*step; math.Abs(got-want) > 1e-9 {
		t.Errorf("operator 4: got %v Hz, want %v", got, want)
	}

	ch.FixFrequency(1, true, nil, true, SetValue)
	if !ch.IsOperatorFixed(1) {
		t.Fatal("operator 1 should be fixed")
	}
	if b, f := ch.FrequencyBlock(1), ch.FrequencyNumber(1); b != 5 || f != 1000 {
		t.Errorf("preserved frequency: got (%d, %d), want (5, 1000)", b, f)
	}
	before := ch.Operator(1).Frequency()
	ch.SetFrequency(3, 500, 1, SetValue)
	if ch.Operator(1).Frequency() != before {
		t.Error("fixed operator should ignore the channel frequency")
	}

	now := 2.0
	ch.FixFrequency(1, false, &now, true, SetValue)
	full = float64(ComponentsToFullFreq(3, 500))
	if got, want := ch.Operator(1).Frequency(), full*2*step; math.Abs(got-want) > 1e-9 {
		t.Errorf("unfixed operator 1: got %v Hz, want %v", got, want)
	}
}

func TestChannel_MIDINotes(t *testing.T) {
	s, _ := makeTestSynth()
	ch := s.Channel(2)
	ch.SetMIDINote(69, 0, SetValue)
	if b, f := ch.FrequencyBlock(4), ch.FrequencyNumber(4); b != 4 || f != 1083 {
		t.Errorf("A4: got (%d, %d), want (4, 1083)", b, f)
	}
	if got := ch.MIDINote(4); got != 69 {
		t.Errorf("note: got %d, want 69", got)
	}

	ch.SetTranspose(2)
	ch.SetMIDINote(67, 0, SetValue)
	if b, f := ch.FrequencyBlock(4), ch.FrequencyNumber(4); b != 4 || f != 1083 {
		t.Errorf("transposed G4: got (%d, %d), want (4, 1083)", b, f)
	}
	if got := ch.MIDINote(4); got != 67 {
		t.Errorf("transposed note: got %d, want 67", got)
	}

	ch.SetOperatorNote(2, 60, 1, 0, SetValue)
	if !ch.IsOperatorFixed(2) {
		t.Error("operator note should fix the operator")
	}
	if got := ch.MIDINote(2); got != 60 {
		t.Errorf("operator 2 note: got %d, want 60", got)
	}
}

func TestChannel_Feedback(t *testing.T) {
	s, _ := makeTestSynth()
	ch := s.Channel(1)
	for _, preset := range []float64{0, 1, 3, 6, 7} {
		ch.UseFeedbackPreset(preset, 1, 0, SetValue)
		if got := ch.FeedbackPreset(1); got != preset {
			t.Errorf("preset %v read back as %v", preset, got)
		}
	}
	ch.UseFeedbackPreset(6, 1, 0, SetValue)
	if got := ch.Feedback(1); got != -2.5 {
		t.Errorf("preset 6 amount: got %v, want -2.5", got)
	}
	ch.SetFeedback(0.25, 3, 0, SetValue)
	if got := ch.ModulationDepth(3, 3); got != 0.25 {
		t.Errorf("operator 3 feedback: got %v, want 0.25", got)
	}
}

func TestChannel_LFODepths(t *testing.T) {
	s, _ := makeTestSynth()
	ch := s.Channel(1)
	ch.EnableTremolo(1, true, 0, SetValue)
	ch.UseTremoloPreset(2, 0, SetValue)
	if got := ch.Operator(1).TremoloDepth(); got != 63.0/2046 {
		t.Errorf("operator 1 tremolo: got %v", got)
	}
	if got := ch.Operator(2).TremoloDepth(); got != 0 {
		t.Errorf("operator 2 has tremolo disabled, got %v", got)
	}
	if got := ch.TremoloPreset(); got != 2 {
		t.Errorf("tremolo preset: got %d, want 2", got)
	}

	for n := range VibratoPresets {
		ch.UseVibratoPreset(n, 0)
		if got := ch.VibratoPreset(); got != n {
			t.Errorf("vibrato preset %d read back as %d (%v cents)", n, got, ch.VibratoDepth())
		}
	}
	ch.EnableVibrato(3, false, 0, SetValue)
	if got := ch.Operator(3).VibratoDepth(); got != 0 {
		t.Errorf("operator 3 vibrato disabled, got %v", got)
	}
	ch.SetVibratoDepth(-1200, 0, SetValue)
	if got := ch.Operator(1).VibratoDepth(); got != -1 {
		t.Errorf("-1200 cents: got %v, want -1", got)
	}
}

func TestChannel_LFOAttack(t *testing.T) {
	s, _ := makeTestSynth()
	ch := s.Channel(1)
	ch.SetLFOAttack(0.5, 0)
	ch.KeyOn(1)
	env := ch.LFOEnvelope().(*Timeline)
	if got := env.ValueAt(1); got != 0 {
		t.Errorf("LFO at key on: got %v, want 0", got)
	}
	if got := env.ValueAt(1.25); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("LFO mid fade: got %v, want 0.5", got)
	}
	if got := env.ValueAt(2); got != 1 {
		t.Errorf("LFO after fade: got %v, want 1", got)
	}
}

func TestChannel_KeyingAndVelocity(t *testing.T) {
	s, host := makeTestSynth()
	ch := s.Channel(1)
	ch.KeyOnWithVelocity(100, 0)
	if n := len(host.Sources()); n != 4 {
		t.Errorf("key on should start 4 sources, got %d", n)
	}
	for n := 1; n <= 4; n++ {
		if got := ch.Operator(n).TotalLevel(); got != 27 {
			t.Errorf("operator %d total level: got %d, want 27", n, got)
		}
	}
	ch.KeyOnOff(1, false, true, false, true)
	if ch.Operator(1).KeyIsOn() || !ch.Operator(2).KeyIsOn() {
		t.Error("KeyOnOff should apply per operator")
	}
	ch.SoundOff(2)
	for n := 1; n <= 4; n++ {
		if ch.Operator(n).KeyIsOn() {
			t.Errorf("operator %d still keyed after sound off", n)
		}
	}
}

func TestChannel_TwoOperator(t *testing.T) {
	s, _ := makeTestSynth()
	parent := s.Channel(1)
	upper := s.TwoOpChannel(2)
	if upper.NumOperators() != 2 || upper.Operator(1) != parent.Operator(3) {
		t.Fatal("two operator channel 2 should use operators 3 and 4 of channel 1")
	}

	upper.UseAlgorithm(0, 0, SetValue)
	if got := parent.ModulationDepth(3, 4); got != 1 {
		t.Errorf("3->4 depth: got %v, want 1", got)
	}
	if got := parent.KeyVelocity(3); got != 0 {
		t.Errorf("modulator should not be velocity sensitive, got %v", got)
	}

	before := parent.Operator(1).Frequency()
	upper.SetFrequency(5, 700, 0, SetValue)
	if parent.FrequencyBlock(3) != 5 || parent.FrequencyNumber(3) != 700 {
		t.Errorf("base frequency stored as (%d, %d)", parent.FrequencyBlock(3), parent.FrequencyNumber(3))
	}
	if parent.Operator(1).Frequency() != before {
		t.Error("lower pair should be unaffected")
	}
	if parent.Operator(4).FrequencyBlock() != 5 {
		t.Error("operator 4 should follow the upper pair")
	}

	upper.Activate(0, SetValue)
	if got := parent.Volume(); got != 0.5 {
		t.Errorf("parent volume: got %v, want 0.5", got)
	}
	upper.UseFeedbackPreset(7, 1, 0, SetValue)
	if got := parent.Feedback(3); got != -5 {
		t.Errorf("upper pair feedback lands on operator 3: got %v", got)
	}
}

func TestChannel_PitchBendMask(t *testing.T) {
	s, _ := makeTestSynth()
	ch := s.Channel(1)
	ch.FixFrequency(1, true, nil, true, SetValue)
	b := NewPitchBend()
	b.Append(2, 12, Smooth)

	counts := make([]int, 4)
	for n := 1; n <= 4; n++ {
		counts[n-1] = len(ch.Operator(n).FrequencyParam().(*Timeline).Events())
	}
	ch.PitchBend(b, false, 0, []float64{0.1}, 1, -1, AllSteps)
	for n := 1; n <= 4; n++ {
		added := len(ch.Operator(n).FrequencyParam().(*Timeline).Events()) - counts[n-1]
		if n == 1 && added != 0 {
			t.Errorf("fixed operator 1 should not bend, got %d events", added)
		}
		if n > 1 && added == 0 {
			t.Errorf("operator %d should bend", n)
		}
	}
	last := ch.Operator(4).FrequencyParam().(*Timeline)
	if got, want := last.ValueAt(1), 2*ch.Operator(4).Frequency(); math.Abs(got-want) > 1e-9 {
		t.Errorf("octave bend: got %v, want %v", got, want)
	}
}

func TestChannel_PanMuteVolume(t *testing.T) {
	s, _ := makeTestSynth()
	ch := s.Channel(3)
	ch.SetPan(-1, 0, SetValue)
	ch.Mute(true, 0)
	if ch.Pan() != -1 || !ch.Muted() {
		t.Errorf("pan %v muted %v", ch.Pan(), ch.Muted())
	}
	b := NewVolumeAutomation()
	b.Append(4, 0, Smooth)
	ch.VolumeAutomation(b, false, 0, []float64{0.25}, AllSteps)
	if got := ch.VolumeParam().(*Timeline).ValueAt(0); got != 1 {
		t.Errorf("volume automation start: got %v, want 1", got)
	}
}
