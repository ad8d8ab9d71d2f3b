package script

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/user-none/opnfm/chip"
	"github.com/user-none/opnfm/fm"
)

func makeTestEngine(t *testing.T, opts Options) (*Engine, *fm.Synth) {
	t.Helper()
	s := fm.New(fm.NewTimelineHost(48000), fm.Config{})
	e, err := New(s, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e.Close)
	return e, s
}

func TestNew_NilSynth(t *testing.T) {
	if _, err := New(nil, Options{}); err != ErrNoSynth {
		t.Errorf("got %v, want ErrNoSynth", err)
	}
}

func TestPatchAndPlay(t *testing.T) {
	e, s := makeTestEngine(t, Options{})
	err := e.RunString(`
		patch(1, {alg=4, fb=3, ops={{ar=31, tl=10, mul=2}, {}, {}, {tl=0, dt=5}}})
		note(1, 69)
		key_on(1)
		wait(0.5)
		key_off(1)
	`)
	if err != nil {
		t.Fatalf("RunString: %v", err)
	}
	ch := s.Channel(1)
	if ch.Algorithm() != 4 {
		t.Errorf("algorithm: got %d, want 4", ch.Algorithm())
	}
	if got := ch.FeedbackPreset(1); got != 3 {
		t.Errorf("feedback: got %v, want 3", got)
	}
	op1 := ch.Operator(1)
	if op1.TotalLevel() != 10 || op1.Envelope().Attack() != 31 {
		t.Errorf("op1: got TL %d AR %v, want TL 10 AR 31", op1.TotalLevel(), op1.Envelope().Attack())
	}
	if ch.FrequencyMultiple(1) != 2 {
		t.Errorf("op1 multiple: got %v, want 2", ch.FrequencyMultiple(1))
	}
	if ch.Operator(4).Detune() != 5 {
		t.Errorf("op4 detune: got %d, want 5", ch.Operator(4).Detune())
	}
	if ch.MIDINote(4) != 69 {
		t.Errorf("note: got %d, want 69", ch.MIDINote(4))
	}
	if op1.KeyIsOn() {
		t.Error("channel should be keyed off")
	}
	if e.Time() != 0.5 {
		t.Errorf("cursor: got %v, want 0.5", e.Time())
	}
	if got := s.Now(); got != 0.5 {
		t.Errorf("host time: got %v, want 0.5", got)
	}
}

func TestOperatorParams(t *testing.T) {
	e, s := makeTestEngine(t, Options{})
	err := e.RunString(`
		op(2, 3, "dr", 12)
		op(2, 3, "sr", 4)
		op(2, 3, "rr", 7)
		op(2, 3, "ks", 2)
		op(2, 3, "ssg", 9)
		op(2, 3, "am", 1)
		op(2, 3, "mul", 0)
		op(2, 3, "wave", 2)
	`)
	if err != nil {
		t.Fatalf("RunString: %v", err)
	}
	ch := s.Channel(2)
	env := ch.Operator(3).Envelope()
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"decay", env.Decay(), 12},
		{"sustain rate", env.SustainRate(), 4},
		{"release", env.Release(), 7},
		{"rate scaling", float64(env.RateScaling()), 2},
		{"ssg", float64(env.SSG()), 9},
		{"multiple", ch.FrequencyMultiple(3), 0.5},
		{"waveform", float64(ch.Operator(3).WaveformNumber()), 2},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if !ch.TremoloEnabled(3) {
		t.Error("tremolo should be enabled on operator 3")
	}
}

func TestChannelControls(t *testing.T) {
	e, s := makeTestEngine(t, Options{})
	err := e.RunString(`
		lfo(8)
		tremolo(3, 2)
		vibrato(3, 7)
		pan(3, -1)
		volume(3, 0.25)
		mute(4)
		pcm_mix(1)
		dac(255)
	`)
	if err != nil {
		t.Fatalf("RunString: %v", err)
	}
	ch := s.Channel(3)
	if s.LFOPreset() != 8 {
		t.Errorf("LFO preset: got %d, want 8", s.LFOPreset())
	}
	if ch.TremoloPreset() != 2 || ch.VibratoPreset() != 7 {
		t.Errorf("LFO depths: got tremolo %d vibrato %d, want 2 and 7", ch.TremoloPreset(), ch.VibratoPreset())
	}
	if ch.Pan() != -1 || ch.Volume() != 0.25 {
		t.Errorf("pan/volume: got %v/%v, want -1/0.25", ch.Pan(), ch.Volume())
	}
	if !s.Channel(4).Muted() {
		t.Error("channel 4 should be muted")
	}
	if s.PCMMix() != 1 || s.PCMValue() != 255 {
		t.Errorf("PCM: got mix %v value %d", s.PCMMix(), s.PCMValue())
	}
}

func TestKeyOps(t *testing.T) {
	e, s := makeTestEngine(t, Options{})
	if err := e.RunString(`key_ops(1, true, false, true)`); err != nil {
		t.Fatalf("RunString: %v", err)
	}
	ch := s.Channel(1)
	want := []bool{true, false, true, false}
	for i, w := range want {
		if got := ch.Operator(i + 1).KeyIsOn(); got != w {
			t.Errorf("operator %d: got key on %v, want %v", i+1, got, w)
		}
	}
	if err := e.RunString(`sound_off()`); err != nil {
		t.Fatalf("sound_off: %v", err)
	}
	if ch.Operator(1).KeyIsOn() {
		t.Error("sound_off should release every operator")
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`key_on(9)`, "channel must be 1-6"},
		{`op(1, 5, "ar", 1)`, "operator must be 1-4"},
		{`op(1, 1, "zz", 1)`, "unknown operator parameter"},
		{`wait(1) at(0.5)`, "before the cursor"},
		{`wait(-1)`, "negative wait"},
		{`algorithm(1, 9)`, "algorithm must be 0-8"},
		{`tremolo(1, 4)`, "tremolo preset"},
		{`dac(300)`, "DAC value"},
		{`write(0x28, 0xF0)`, "no YM2612"},
		{`psg(0x90)`, "no PSG"},
		{`patch(1, {ops={[5]={ar=1}}})`, "out of range"},
		{`op(1, 1, "wave", 99)`, "waveform"},
		{`this is not lua`, "script:"},
	}
	for _, tt := range tests {
		e, _ := makeTestEngine(t, Options{})
		err := e.RunString(tt.src)
		if err == nil {
			t.Errorf("%s: expected an error", tt.src)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: got %q, want it to mention %q", tt.src, err, tt.want)
		}
	}
}

func TestChips(t *testing.T) {
	host := fm.NewTimelineHost(48000)
	s := fm.New(host, fm.Config{})
	ym, err := chip.NewYM2612(s)
	if err != nil {
		t.Fatalf("NewYM2612: %v", err)
	}
	psg := chip.NewPSG(host, 3579545)
	e, err := New(s, Options{YM: ym, PSG: psg})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	err = e.RunString(`
		wait(0.25)
		write(0x28, 0xF0)
		psg_tone(1, 440)
		psg_volume(4, 3)
	`)
	if err != nil {
		t.Fatalf("RunString: %v", err)
	}
	op := s.Channel(1).Operator(1)
	if !op.KeyIsOn() {
		t.Fatal("register write should key on channel 1")
	}
	if start := op.Source().(*fm.Oscillator).StartTime; start != 0.25 {
		t.Errorf("key on time: got %v, want 0.25", start)
	}
	if got := psg.ToneRegister(psg.ToneFrequency(0)); got != 254 {
		t.Errorf("PSG tone register: got %d, want 254", got)
	}
	if got := psg.Attenuation(3); got != 3 {
		t.Errorf("noise attenuation: got %d, want 3", got)
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	e, _ := makeTestEngine(t, Options{Logger: log.New(&buf, "", 0)})
	if err := e.Run("hello.lua", strings.NewReader(`wait(2) print("at", now())`)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := buf.String(), "at\t2\n"; got != want {
		t.Errorf("print: got %q, want %q", got, want)
	}
}
