package curve

import (
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

var ErrUnknownFormat = errors.New("pcm: unrecognised file extension")

// PCM is a mono recording with samples in [-1, 1].
type PCM struct {
	SampleRate float64
	Data       []float32
}

// Duration returns the length of the recording in seconds.
func (p *PCM) Duration() float64 {
	if p.SampleRate == 0 {
		return 0
	}
	return float64(len(p.Data)) / p.SampleRate
}

// LoadPCM decodes a WAV or MP3 file, chosen by the extension of name. Only
// the first (left) channel is kept.
func LoadPCM(name string, r io.ReadSeeker) (*PCM, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav":
		return loadWAV(r)
	case ".mp3":
		return loadMP3(r)
	}
	return nil, fmt.Errorf("%s: %w", name, ErrUnknownFormat)
}

func loadWAV(r io.ReadSeeker) (*PCM, error) {
	dec := wav.NewDecoder(r)
	if dec == nil {
		return nil, fmt.Errorf("wav: error decoding")
	}
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("wav: not a valid wav file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	floatBuf := buf.AsFloat32Buffer()

	// AsFloat32Buffer keeps integer magnitudes
	scale := float32(1)
	if dec.BitDepth > 0 {
		scale = float32(int(1) << (dec.BitDepth - 1))
	}
	chans := max(1, int(dec.NumChans))

	p := &PCM{
		SampleRate: float64(dec.SampleRate),
		Data:       make([]float32, 0, len(floatBuf.Data)/chans),
	}
	for i := 0; i < len(floatBuf.Data); i += chans {
		p.Data = append(p.Data, floatBuf.Data[i]/scale)
	}
	return p, nil
}

func loadMP3(r io.Reader) (*PCM, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}

	p := &PCM{SampleRate: float64(dec.SampleRate())}

	// The decoder always produces 16 bit little endian stereo, 4 bytes per
	// frame. A read may end part way through a frame.
	chunk := make([]byte, 4096)
	var pending []byte
	for {
		n, err := dec.Read(chunk)
		data := append(pending, chunk[:n]...)
		whole := len(data) &^ 3
		for i := 0; i < whole; i += 4 {
			s := int16(uint16(data[i]) | uint16(data[i+1])<<8)
			p.Data = append(p.Data, float32(s)/32768)
		}
		pending = append(pending[:0], data[whole:]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("mp3: %w", err)
		}
	}
	return p, nil
}

// DAC receives 8 bit unsigned samples. *fm.Synth satisfies it.
type DAC interface {
	WritePCM(value int, time float64)
}

// Stream schedules the recording into dac starting at start, stopping at end
// if the recording is longer. It returns the number of samples written.
func (p *PCM) Stream(dac DAC, start, end float64) int {
	if p.SampleRate <= 0 {
		return 0
	}
	n := 0
	for i, v := range p.Data {
		t := start + float64(i)/p.SampleRate
		if t >= end {
			break
		}
		dac.WritePCM(ToDAC(v), t)
		n++
	}
	return n
}

// ToDAC converts a sample in [-1, 1] to the unsigned 8 bit DAC range.
func ToDAC(v float32) int {
	d := int(math.Round(float64(v)*128)) + 128
	return max(0, min(255, d))
}
