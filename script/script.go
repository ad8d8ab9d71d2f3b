// Package script plays a synthesiser from Lua.
//
// A script keeps a time cursor that starts at zero. Calls take effect at the
// cursor and wait/at move it forward, advancing the synth as they go.
// Channel and operator numbers count from 1.
package script

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/user-none/opnfm/chip"
	"github.com/user-none/opnfm/fm"
	lua "github.com/yuin/gopher-lua"
)

var ErrNoSynth = errors.New("script: nil synth")

// Options are the optional targets of a script.
type Options struct {
	// YM receives write(); without it write raises an error.
	YM *chip.YM2612
	// PSG receives psg, psg_tone and psg_volume.
	PSG *chip.PSG
	// Logger receives print output. Nil uses the standard logger.
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Engine is a Lua state bound to one Synth.
type Engine struct {
	L     *lua.LState
	synth *fm.Synth
	opts  Options
	time  float64
}

// New creates an engine with the standard Lua libraries and the synth
// functions registered as globals.
func New(s *fm.Synth, opts Options) (*Engine, error) {
	if s == nil {
		return nil, ErrNoSynth
	}
	e := &Engine{
		L:     lua.NewState(),
		synth: s,
		opts:  opts.withDefaults(),
	}
	for name, fn := range e.functions() {
		e.L.SetGlobal(name, e.L.NewFunction(fn))
	}
	return e, nil
}

// Close releases the Lua state.
func (e *Engine) Close() { e.L.Close() }

// Time returns the script's time cursor.
func (e *Engine) Time() float64 { return e.time }

// RunString executes Lua source.
func (e *Engine) RunString(src string) error {
	if err := e.L.DoString(src); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return nil
}

// RunFile executes a Lua file.
func (e *Engine) RunFile(path string) error {
	if err := e.L.DoFile(path); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return nil
}

// Run executes Lua source read from r. name is used in error messages.
func (e *Engine) Run(name string, r io.Reader) error {
	fn, err := e.L.Load(r, name)
	if err != nil {
		return fmt.Errorf("script: %w", err)
	}
	e.L.Push(fn)
	if err := e.L.PCall(0, lua.MultRet, nil); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return nil
}

func (e *Engine) functions() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"print": e.print,
		"now":   e.now,
		"wait":  e.wait,
		"at":    e.at,

		"key_on":    e.keyOn,
		"key_off":   e.keyOff,
		"key_ops":   e.keyOps,
		"sound_off": e.soundOff,
		"note":      e.note,
		"freq":      e.freq,
		"fix":       e.fix,
		"algorithm": e.algorithm,
		"feedback":  e.feedback,
		"op":        e.op,
		"patch":     e.patch,
		"lfo":       e.lfo,
		"tremolo":   e.tremolo,
		"vibrato":   e.vibrato,
		"pan":       e.pan,
		"volume":    e.volume,
		"mute":      e.mute,
		"pcm_mix":   e.pcmMix,
		"dac":       e.dac,

		"write":      e.write,
		"psg":        e.psg,
		"psg_tone":   e.psgTone,
		"psg_volume": e.psgVolume,
	}
}

func (e *Engine) print(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, n)
	for i := 1; i <= n; i++ {
		parts[i-1] = L.Get(i).String()
	}
	e.opts.Logger.Print(strings.Join(parts, "\t"))
	return 0
}

func (e *Engine) now(L *lua.LState) int {
	L.Push(lua.LNumber(e.time))
	return 1
}

func (e *Engine) wait(L *lua.LState) int {
	d := float64(L.CheckNumber(1))
	if d < 0 {
		L.ArgError(1, "negative wait")
		return 0
	}
	e.moveTo(e.time + d)
	return 0
}

func (e *Engine) at(L *lua.LState) int {
	t := float64(L.CheckNumber(1))
	if t < e.time {
		L.ArgError(1, fmt.Sprintf("time %g is before the cursor at %g", t, e.time))
		return 0
	}
	e.moveTo(t)
	return 0
}

func (e *Engine) moveTo(t float64) {
	e.time = t
	e.synth.Advance(t)
}

func (e *Engine) channel(L *lua.LState, n int) *fm.Channel {
	ch := e.synth.Channel(L.CheckInt(n))
	if ch == nil {
		L.ArgError(n, fmt.Sprintf("channel must be 1-%d", e.synth.NumChannels()))
	}
	return ch
}

func (e *Engine) opNum(L *lua.LState, ch *fm.Channel, n int) int {
	op := L.CheckInt(n)
	if op < 1 || op > ch.NumOperators() {
		L.ArgError(n, "operator must be 1-4")
	}
	return op
}

func (e *Engine) keyOn(L *lua.LState) int {
	ch := e.channel(L, 1)
	if L.GetTop() >= 2 {
		ch.KeyOnWithVelocity(L.CheckInt(2), e.time)
	} else {
		ch.KeyOn(e.time)
	}
	return 0
}

func (e *Engine) keyOff(L *lua.LState) int {
	e.channel(L, 1).KeyOff(e.time)
	return 0
}

// key_ops(ch, on1, on2, on3, on4) keys operators individually.
func (e *Engine) keyOps(L *lua.LState) int {
	ch := e.channel(L, 1)
	on := make([]bool, ch.NumOperators())
	for i := range on {
		on[i] = L.OptBool(i+2, false)
	}
	ch.KeyOnOff(e.time, on...)
	return 0
}

func (e *Engine) soundOff(L *lua.LState) int {
	if L.GetTop() == 0 {
		e.synth.SoundOff(e.time)
		return 0
	}
	e.channel(L, 1).SoundOff(e.time)
	return 0
}

func (e *Engine) note(L *lua.LState) int {
	e.channel(L, 1).SetMIDINote(L.CheckInt(2), e.time, fm.SetValue)
	return 0
}

func (e *Engine) freq(L *lua.LState) int {
	ch := e.channel(L, 1)
	block, fnum := L.CheckInt(2), L.CheckInt(3)
	if block < 0 || block > 7 || fnum < 0 || fnum > 2047 {
		L.ArgError(2, "block must be 0-7 and frequency number 0-2047")
		return 0
	}
	ch.SetFrequency(block, fnum, e.time, fm.SetValue)
	return 0
}

// fix(ch, op, note [, multiple]) fixes an operator at a note.
func (e *Engine) fix(L *lua.LState) int {
	ch := e.channel(L, 1)
	op := e.opNum(L, ch, 2)
	ch.SetOperatorNote(op, L.CheckInt(3), float64(L.OptNumber(4, 1)), e.time, fm.SetValue)
	return 0
}

func (e *Engine) algorithm(L *lua.LState) int {
	ch := e.channel(L, 1)
	n := L.CheckInt(2)
	if n < 0 || n >= len(fm.FourOpAlgorithms) {
		L.ArgError(2, fmt.Sprintf("algorithm must be 0-%d", len(fm.FourOpAlgorithms)-1))
		return 0
	}
	ch.UseAlgorithm(n, e.time, fm.SetValue)
	return 0
}

func (e *Engine) feedback(L *lua.LState) int {
	e.channel(L, 1).UseFeedbackPreset(float64(L.CheckNumber(2)), 1, e.time, fm.SetValue)
	return 0
}

// op(ch, op, name, value) sets one operator parameter.
func (e *Engine) op(L *lua.LState) int {
	ch := e.channel(L, 1)
	op := e.opNum(L, ch, 2)
	name := L.CheckString(3)
	if err := e.setOperator(ch, op, name, float64(L.CheckNumber(4))); err != nil {
		L.ArgError(3, err.Error())
	}
	return 0
}

var errUnknownParameter = errors.New("unknown operator parameter")

func (e *Engine) setOperator(ch *fm.Channel, opNum int, name string, v float64) error {
	op := ch.Operator(opNum)
	t := e.time
	switch name {
	case "ar":
		op.SetAttack(v)
	case "dr":
		op.SetDecay(v)
	case "sl":
		op.SetSustain(int(v))
	case "sr":
		op.SetSustainRate(v)
	case "rr":
		op.SetRelease(v)
	case "tl":
		op.SetTotalLevel(v, t, fm.SetValue)
	case "ks":
		op.SetRateScaling(int(v))
	case "mul":
		if v == 0 {
			v = 0.5
		}
		ch.SetFrequencyMultiple(opNum, v, &t, fm.SetValue)
	case "dt":
		op.SetDetune(int(v), &t, fm.SetValue)
	case "ssg":
		op.SetSSG(int(v))
	case "wave":
		n := int(v)
		return op.SetWaveformNumber(&n, t)
	case "am":
		ch.EnableTremolo(opNum, v != 0, t, fm.SetValue)
	case "vel":
		ch.SetKeyVelocity(opNum, v)
	default:
		return fmt.Errorf("%w %q", errUnknownParameter, name)
	}
	return nil
}

// patch(ch, {alg=4, fb=3, ops={{ar=31, ...}, ...}}) applies a whole voice.
func (e *Engine) patch(L *lua.LState) int {
	ch := e.channel(L, 1)
	tbl := L.CheckTable(2)

	if v, ok := tbl.RawGetString("alg").(lua.LNumber); ok {
		ch.UseAlgorithm(int(v), e.time, fm.SetValue)
	}
	if v, ok := tbl.RawGetString("fb").(lua.LNumber); ok {
		ch.UseFeedbackPreset(float64(v), 1, e.time, fm.SetValue)
	}
	ops, ok := tbl.RawGetString("ops").(*lua.LTable)
	if !ok {
		return 0
	}
	var err error
	ops.ForEach(func(k, v lua.LValue) {
		n, isNum := k.(lua.LNumber)
		opTbl, isTbl := v.(*lua.LTable)
		if err != nil || !isNum || !isTbl {
			return
		}
		opNum := int(n)
		if opNum < 1 || opNum > ch.NumOperators() {
			err = fmt.Errorf("operator %d out of range", opNum)
			return
		}
		opTbl.ForEach(func(name, value lua.LValue) {
			f, isNum := value.(lua.LNumber)
			if err != nil || !isNum {
				return
			}
			if opErr := e.setOperator(ch, opNum, name.String(), float64(f)); opErr != nil {
				err = fmt.Errorf("operator %d: %w", opNum, opErr)
			}
		})
	})
	if err != nil {
		L.RaiseError("patch: %v", err)
	}
	return 0
}

func (e *Engine) lfo(L *lua.LState) int {
	e.synth.UseLFOPreset(L.CheckInt(1), e.time, fm.SetValue)
	return 0
}

func (e *Engine) tremolo(L *lua.LState) int {
	ch := e.channel(L, 1)
	n := L.CheckInt(2)
	if n < 0 || n > 3 {
		L.ArgError(2, "tremolo preset must be 0-3")
		return 0
	}
	ch.UseTremoloPreset(n, e.time, fm.SetValue)
	return 0
}

func (e *Engine) vibrato(L *lua.LState) int {
	ch := e.channel(L, 1)
	n := L.CheckInt(2)
	if n < 0 || n >= len(fm.VibratoPresets) {
		L.ArgError(2, "vibrato preset must be 0-7")
		return 0
	}
	ch.UseVibratoPreset(n, e.time)
	return 0
}

func (e *Engine) pan(L *lua.LState) int {
	e.channel(L, 1).SetPan(float64(L.CheckNumber(2)), e.time, fm.SetValue)
	return 0
}

func (e *Engine) volume(L *lua.LState) int {
	e.channel(L, 1).SetVolume(float64(L.CheckNumber(2)), e.time, fm.SetValue)
	return 0
}

func (e *Engine) mute(L *lua.LState) int {
	e.channel(L, 1).Mute(L.OptBool(2, true), e.time)
	return 0
}

func (e *Engine) pcmMix(L *lua.LState) int {
	e.synth.MixPCM(float64(L.CheckNumber(1)), e.time, fm.SetValue)
	return 0
}

func (e *Engine) dac(L *lua.LState) int {
	v := L.CheckInt(1)
	if v < 0 || v > 255 {
		L.ArgError(1, "DAC value must be 0-255")
		return 0
	}
	e.synth.WritePCM(v, e.time)
	return 0
}

// write(addr, value [, part]) writes a YM2612 register.
func (e *Engine) write(L *lua.LState) int {
	if e.opts.YM == nil {
		L.RaiseError("write: no YM2612 attached")
		return 0
	}
	addr, val, part := L.CheckInt(1), L.CheckInt(2), L.OptInt(3, 0)
	if part != 0 && part != 1 {
		L.ArgError(3, "part must be 0 or 1")
		return 0
	}
	e.opts.YM.Write(uint8(addr), uint8(val), part, e.time)
	return 0
}

func (e *Engine) checkPSG(L *lua.LState, fn string) *chip.PSG {
	if e.opts.PSG == nil {
		L.RaiseError("%s: no PSG attached", fn)
	}
	return e.opts.PSG
}

func (e *Engine) psg(L *lua.LState) int {
	e.checkPSG(L, "psg").Write(uint8(L.CheckInt(1)), e.time)
	return 0
}

func (e *Engine) psgChannel(L *lua.LState, n, limit int) int {
	ch := L.CheckInt(n)
	if ch < 1 || ch > limit {
		L.ArgError(n, fmt.Sprintf("PSG channel must be 1-%d", limit))
	}
	return ch - 1
}

// psg_tone(ch, hz) sets a tone channel to the nearest available pitch.
func (e *Engine) psgTone(L *lua.LState) int {
	p := e.checkPSG(L, "psg_tone")
	ch := e.psgChannel(L, 1, 3)
	p.SetTone(ch, p.ToneRegister(float64(L.CheckNumber(2))), e.time)
	return 0
}

// psg_volume(ch, attenuation) takes channel 4 as the noise channel.
func (e *Engine) psgVolume(L *lua.LState) int {
	p := e.checkPSG(L, "psg_volume")
	ch := e.psgChannel(L, 1, 4)
	att := L.CheckInt(2)
	if att < 0 || att > 15 {
		L.ArgError(2, "attenuation must be 0-15")
		return 0
	}
	p.SetAttenuation(ch, uint8(att), e.time)
	return 0
}
