// Package driver runs sound driver programs on an emulated Z80 or 68000.
// Memory mapped chip writes made by the program are forwarded to the chip
// front ends, timestamped by the CPU cycle on which they happen.
package driver

import (
	"errors"

	"github.com/user-none/opnfm/chip"
)

var (
	ErrProgramTooLarge = errors.New("driver: program does not fit in memory")
	ErrEmptyProgram    = errors.New("driver: empty program")
)

// Chips are the write targets of a driver. Either may be nil, in which case
// writes to it are dropped.
type Chips struct {
	FM  *chip.YM2612
	PSG *chip.PSG
}

func (c Chips) writeFM(port, val uint8, time float64) {
	if c.FM != nil {
		c.FM.WritePort(port, val, time)
	}
}

func (c Chips) writePSG(val uint8, time float64) {
	if c.PSG != nil {
		c.PSG.Write(val, time)
	}
}

// clock converts elapsed CPU cycles into host time.
type clock struct {
	hz     float64
	start  float64
	cycles uint64
}

func (c *clock) now() float64 { return c.start + float64(c.cycles)/c.hz }

// Runner is a CPU executing a driver program.
type Runner interface {
	// Run executes until the program halts or until the host time reaches
	// end, and returns the time reached.
	Run(end float64) float64
	Time() float64
}
