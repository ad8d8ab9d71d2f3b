// Package cli provides an offline runner for the synthesiser.
// It builds a session from options, plays a script, a driver program or a
// built in patch on the reference host, and samples the chosen operator.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/bradleyjkemp/memviz"
	"github.com/davecgh/go-spew/spew"
	"github.com/user-none/opnfm/chip"
	"github.com/user-none/opnfm/curve"
	"github.com/user-none/opnfm/driver"
	"github.com/user-none/opnfm/fm"
	"github.com/user-none/opnfm/script"
	"golang.org/x/term"
)

var (
	ErrBothSources = errors.New("cli: a script and a driver program cannot be combined")
	ErrUnknownCPU  = errors.New("cli: cpu must be z80 or m68k")
)

// Options select what a Runner plays and samples. Zero fields take the
// defaults noted.
type Options struct {
	Script   string    // Lua file
	Program  string    // driver program image
	CPU      string    // "z80"
	Region   fm.Region // NTSC
	Channel  int       // 1
	Operator int       // 4
	Duration float64   // 1 second
	Rate     float64   // curve sample rate, 1000 Hz
	PCM      string    // WAV or MP3 streamed into the DAC
	Logger   *log.Logger
}

func (o Options) withDefaults() Options {
	if o.CPU == "" {
		o.CPU = "z80"
	}
	o.CPU = strings.ToLower(o.CPU)
	if o.Channel <= 0 {
		o.Channel = 1
	}
	if o.Operator <= 0 {
		o.Operator = 4
	}
	if o.Duration <= 0 {
		o.Duration = 1
	}
	if o.Rate <= 0 {
		o.Rate = 1000
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Runner owns a synth on a TimelineHost with both sound chip front ends.
type Runner struct {
	opts   Options
	host   *fm.TimelineHost
	synth  *fm.Synth
	ym     *chip.YM2612
	psg    *chip.PSG
	curves []*curve.Curve
}

// NewRunner creates the session. The sample rate of the host matches the
// chip's own output rate for the region.
func NewRunner(opts Options) (*Runner, error) {
	opts = opts.withDefaults()
	if opts.Script != "" && opts.Program != "" {
		return nil, ErrBothSources
	}
	if opts.CPU != "z80" && opts.CPU != "m68k" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCPU, opts.CPU)
	}

	clocks := fm.ClocksForRegion(opts.Region)
	cfg := fm.Config{ClockRate: clocks.FMClockHz}
	// Divider defaults are 7 and 144
	host := fm.NewTimelineHost(clocks.FMClockHz / (7 * 144))
	s := fm.New(host, cfg)
	if s.Channel(opts.Channel) == nil {
		return nil, fmt.Errorf("cli: channel %d out of range 1-%d", opts.Channel, s.NumChannels())
	}
	if opts.Operator > 4 {
		return nil, fmt.Errorf("cli: operator %d out of range 1-4", opts.Operator)
	}
	ym, err := chip.NewYM2612(s)
	if err != nil {
		return nil, fmt.Errorf("cli: %w", err)
	}
	return &Runner{
		opts:  opts,
		host:  host,
		synth: s,
		ym:    ym,
		psg:   chip.NewPSG(host, int(clocks.PSGClockHz)),
	}, nil
}

func (r *Runner) Synth() *fm.Synth     { return r.synth }
func (r *Runner) YM2612() *chip.YM2612 { return r.ym }
func (r *Runner) PSG() *chip.PSG       { return r.psg }

// Curves returns the curves sampled by the last Run.
func (r *Runner) Curves() []*curve.Curve { return r.curves }

// Run plays the session to the end of the duration and samples the selected
// operator.
func (r *Runner) Run() error {
	end := r.opts.Duration
	if r.opts.PCM != "" {
		if err := r.streamPCM(end); err != nil {
			return err
		}
	}

	switch {
	case r.opts.Script != "":
		if err := r.runScript(); err != nil {
			return err
		}
	case r.opts.Program != "":
		if err := r.runProgram(end); err != nil {
			return err
		}
	default:
		r.defaultPatch(end)
	}
	r.synth.Advance(end)

	op := r.synth.Channel(r.opts.Channel).Operator(r.opts.Operator)
	prefix := fmt.Sprintf("ch%d.op%d.", r.opts.Channel, r.opts.Operator)
	curves, err := curve.Operator(prefix, op, 0, end, r.opts.Rate)
	if err != nil {
		return fmt.Errorf("cli: %w", err)
	}
	r.curves = curves
	return nil
}

func (r *Runner) streamPCM(end float64) error {
	f, err := os.Open(r.opts.PCM)
	if err != nil {
		return fmt.Errorf("cli: %w", err)
	}
	defer f.Close()

	pcm, err := curve.LoadPCM(r.opts.PCM, f)
	if err != nil {
		return fmt.Errorf("cli: %s: %w", r.opts.PCM, err)
	}
	r.synth.MixPCM(1, 0, fm.SetValue)
	n := pcm.Stream(r.synth, 0, end)
	if n < len(pcm.Data) {
		r.opts.Logger.Printf("Warning: PCM truncated to %d of %d samples", n, len(pcm.Data))
	}
	return nil
}

func (r *Runner) runScript() error {
	e, err := script.New(r.synth, script.Options{YM: r.ym, PSG: r.psg, Logger: r.opts.Logger})
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.RunFile(r.opts.Script); err != nil {
		return err
	}
	if e.Time() > r.opts.Duration {
		r.opts.Logger.Printf("Warning: script ran to %.3fs, past the %.3fs duration", e.Time(), r.opts.Duration)
	}
	return nil
}

func (r *Runner) runProgram(end float64) error {
	program, err := os.ReadFile(r.opts.Program)
	if err != nil {
		return fmt.Errorf("cli: %w", err)
	}
	chips := driver.Chips{FM: r.ym, PSG: r.psg}
	clocks := fm.ClocksForRegion(r.opts.Region)

	var cpu driver.Runner
	if r.opts.CPU == "m68k" {
		cpu, err = driver.NewM68K(chips, clocks.M68KClockHz, 0, program)
	} else {
		cpu, err = driver.NewZ80(chips, clocks.Z80ClockHz, 0, program)
	}
	if err != nil {
		return fmt.Errorf("cli: %w", err)
	}
	if t := cpu.Run(end); t < end {
		r.opts.Logger.Printf("%s program stopped at %.6fs", r.opts.CPU, t)
	}
	return nil
}

// defaultPatch plays a single note on the selected channel: instant attack,
// linear decay to sustain, released half way through.
func (r *Runner) defaultPatch(end float64) {
	ch := r.synth.Channel(r.opts.Channel)
	for n := 1; n <= ch.NumOperators(); n++ {
		env := ch.Operator(n).Envelope()
		env.SetAttack(31)
		env.SetDecay(5)
		env.SetSustainLevel(200)
		env.SetSustainRate(0)
		env.SetRelease(10)
	}
	ch.SetMIDINote(69, 0, fm.SetValue)
	ch.KeyOn(0)
	ch.KeyOff(end / 2)
}

// WriteCSV writes the sampled curves to w.
func (r *Runner) WriteCSV(w io.Writer) error { return curve.WriteCSV(w, r.curves...) }

// WriteWAV writes the envelope level curve as audio at the curve rate.
func (r *Runner) WriteWAV(w io.WriteSeeker) error {
	if len(r.curves) == 0 {
		return curve.ErrNoCurves
	}
	return curve.WriteWAV(w, r.curves[0], 1)
}

// WriteSummary prints a table of each curve's range and final value when w
// is a terminal, and CSV otherwise.
func (r *Runner) WriteSummary(w io.Writer) error {
	if f, ok := w.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		return r.WriteCSV(w)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "curve\tmin\tmax\tfinal")
	for _, c := range r.curves {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range c.Values {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		final := math.NaN()
		if len(c.Values) > 0 {
			final = c.Values[len(c.Values)-1]
		}
		fmt.Fprintf(tw, "%s\t%.6g\t%.6g\t%.6g\n", c.Name, lo, hi, final)
	}
	return tw.Flush()
}

// Dump writes the selected operator's state.
func (r *Runner) Dump(w io.Writer) {
	cfg := spew.ConfigState{Indent: "  ", MaxDepth: 2, DisablePointerAddresses: true, SortKeys: true}
	ch := r.synth.Channel(r.opts.Channel)
	cfg.Fdump(w, ch.Operator(r.opts.Operator).Envelope())
}

// Graph writes a Graphviz view of the selected operator's envelope.
func (r *Runner) Graph(w io.Writer) {
	ch := r.synth.Channel(r.opts.Channel)
	memviz.Map(w, ch.Operator(r.opts.Operator).Envelope())
}
