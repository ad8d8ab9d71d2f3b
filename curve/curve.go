// Package curve samples scheduled synthesiser parameters at a fixed rate and
// writes the results as CSV or WAV. It also loads PCM recordings to stream
// into the DAC.
package curve

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/user-none/opnfm/fm"
)

var (
	ErrNotSampled = errors.New("curve: parameter has no schedule to sample")
	ErrBadRate    = errors.New("curve: sample rate must be positive")
	ErrNoCurves   = errors.New("curve: nothing to write")
)

// Func is a value over host time.
type Func func(time float64) float64

// Curve is a run of evenly spaced samples.
type Curve struct {
	Name   string
	Start  float64
	Rate   float64
	Values []float64
}

// Time returns the host time of sample i.
func (c *Curve) Time(i int) float64 { return c.Start + float64(i)/c.Rate }

// Duration is the time covered by the samples.
func (c *Curve) Duration() float64 { return float64(len(c.Values)) / c.Rate }

// Sample evaluates f from start up to, but not including, end.
func Sample(name string, f Func, start, end, rate float64) (*Curve, error) {
	if rate <= 0 {
		return nil, ErrBadRate
	}
	n := 0
	if end > start {
		n = int(math.Ceil((end - start) * rate))
	}
	c := &Curve{Name: name, Start: start, Rate: rate, Values: make([]float64, n)}
	for i := range c.Values {
		c.Values[i] = f(c.Time(i))
	}
	return c, nil
}

// FromParam returns the evaluator of a param created by fm.TimelineHost.
// Params from other hosts are not inspectable.
func FromParam(p fm.Param) (Func, error) {
	tl, ok := p.(*fm.Timeline)
	if !ok {
		return nil, ErrNotSampled
	}
	return tl.ValueAt, nil
}

// SampleParam is Sample over a scheduled param.
func SampleParam(name string, p fm.Param, start, end, rate float64) (*Curve, error) {
	f, err := FromParam(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return Sample(name, f, start, end, rate)
}

// Operator samples the curves which describe one operator: its envelope
// level from the envelope's own model, the scheduled envelope gain, the total
// level attenuation and the oscillator frequency.
func Operator(prefix string, op *fm.Operator, start, end, rate float64) ([]*Curve, error) {
	env := op.Envelope()
	level, err := Sample(prefix+"level", env.Level, start, end, rate)
	if err != nil {
		return nil, err
	}
	curves := []*Curve{level}
	params := []struct {
		name string
		p    fm.Param
	}{
		{"gain", env.Gain()},
		{"tl", env.TotalLevelParam()},
		{"freq", op.FrequencyParam()},
	}
	for _, pp := range params {
		c, err := SampleParam(prefix+pp.name, pp.p, start, end, rate)
		if err != nil {
			return nil, err
		}
		curves = append(curves, c)
	}
	return curves, nil
}

// WriteCSV writes a time column followed by one column per curve. Curves are
// assumed to share a start and rate with the first; shorter curves leave
// their trailing cells empty.
func WriteCSV(w io.Writer, curves ...*Curve) error {
	if len(curves) == 0 {
		return ErrNoCurves
	}
	cw := csv.NewWriter(w)
	row := make([]string, len(curves)+1)
	row[0] = "time"
	rows := 0
	for i, c := range curves {
		row[i+1] = c.Name
		rows = max(rows, len(c.Values))
	}
	if err := cw.Write(row); err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	for n := 0; n < rows; n++ {
		row[0] = strconv.FormatFloat(curves[0].Time(n), 'g', 10, 64)
		for i, c := range curves {
			row[i+1] = ""
			if n < len(c.Values) {
				row[i+1] = strconv.FormatFloat(c.Values[n], 'g', -1, 64)
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	return nil
}

// WriteWAV writes a curve as mono 16 bit PCM at the curve's rate. The curve
// is scaled so that full is full scale and clipped to [-full, full]. A full
// of zero scales by the curve's peak magnitude.
func WriteWAV(w io.WriteSeeker, c *Curve, full float64) error {
	if c.Rate <= 0 {
		return ErrBadRate
	}
	if full == 0 {
		for _, v := range c.Values {
			full = math.Max(full, math.Abs(v))
		}
		if full == 0 {
			full = 1
		}
	}
	const bitDepth = 16
	const peak = 1<<(bitDepth-1) - 1

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: int(c.Rate)},
		Data:           make([]int, len(c.Values)),
		SourceBitDepth: bitDepth,
	}
	for i, v := range c.Values {
		v = math.Max(-1, math.Min(1, v/full))
		buf.Data[i] = int(math.Round(v * peak))
	}

	enc := wav.NewEncoder(w, int(c.Rate), bitDepth, 1, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	return nil
}
