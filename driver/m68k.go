package driver

import (
	"encoding/binary"

	"github.com/user-none/go-chip-m68k"
)

const (
	m68kROMSize = 0x400000
	m68kRAMSize = 0x10000

	// M68KOrigin is where a 68000 program is loaded and starts executing.
	M68KOrigin = 0x000200
	// m68kStack is the initial supervisor stack pointer, at the top of RAM.
	m68kStack = 0x00FFFE00
)

// M68KBus implements m68k.Bus for the main CPU address space, reduced to the
// parts a sound driver uses.
//
//	0x000000-0x3FFFFF  ROM: vectors, then the program at M68KOrigin
//	0xA04000-0xA04003  YM2612 ports
//	0xC00011           PSG (mirrored across 0xC00010-0xC00017)
//	0xFF0000-0xFFFFFF  RAM (64KB)
type M68KBus struct {
	rom   []byte
	ram   [m68kRAMSize]byte
	chips Chips
	clock *clock
}

func (b *M68KBus) Read(s m68k.Size, addr uint32) uint32 {
	addr &= 0xFFFFFF // 24-bit address bus
	switch {
	case addr < m68kROMSize:
		return readSized(b.rom, s, addr)
	case addr >= 0xFF0000:
		return readSized(b.ram[:], s, addr&0xFFFF)
	}
	return 0
}

func readSized(mem []byte, s m68k.Size, addr uint32) uint32 {
	n := uint32(len(mem))
	switch s {
	case m68k.Byte:
		if addr < n {
			return uint32(mem[addr])
		}
	case m68k.Word:
		if addr+1 < n {
			return uint32(binary.BigEndian.Uint16(mem[addr:]))
		}
	case m68k.Long:
		if addr+3 < n {
			return binary.BigEndian.Uint32(mem[addr:])
		}
	}
	return 0
}

func (b *M68KBus) Write(s m68k.Size, addr uint32, value uint32) {
	addr &= 0xFFFFFF
	switch {
	case addr >= 0xA04000 && addr <= 0xA04003:
		// Word writes put the high byte on the even address
		if s == m68k.Byte {
			b.chips.writeFM(uint8(addr&3), uint8(value), b.clock.now())
			return
		}
		b.chips.writeFM(uint8(addr&2), uint8(value>>8), b.clock.now())
		b.chips.writeFM(uint8(addr&2)|1, uint8(value), b.clock.now())
	case addr >= 0xC00010 && addr <= 0xC00017:
		b.chips.writePSG(uint8(value), b.clock.now())
	case addr >= 0xFF0000:
		writeSized(b.ram[:], s, addr&0xFFFF, value)
	}
}

func writeSized(mem []byte, s m68k.Size, addr, value uint32) {
	n := uint32(len(mem))
	switch s {
	case m68k.Byte:
		if addr < n {
			mem[addr] = uint8(value)
		}
	case m68k.Word:
		if addr+1 < n {
			binary.BigEndian.PutUint16(mem[addr:], uint16(value))
		}
	case m68k.Long:
		if addr+3 < n {
			binary.BigEndian.PutUint32(mem[addr:], value)
		}
	}
}

// Reset clears RAM. Implements m68k.Bus.
func (b *M68KBus) Reset() {
	b.ram = [m68kRAMSize]byte{}
}

// M68K runs a driver program on a 68000.
type M68K struct {
	cpu   *m68k.CPU
	bus   *M68KBus
	clock clock
	base  uint64
	done  bool
}

// NewM68K creates a 68000 clocked at clockHz whose time starts at start.
// The program is placed at M68KOrigin behind a reset vector table.
func NewM68K(chips Chips, clockHz, start float64, program []byte) (*M68K, error) {
	if len(program) == 0 {
		return nil, ErrEmptyProgram
	}
	size := M68KOrigin + len(program)
	if size > m68kROMSize {
		return nil, ErrProgramTooLarge
	}
	// Word accesses need an even sized image
	rom := make([]byte, size+size&1)
	binary.BigEndian.PutUint32(rom[0:], m68kStack)
	binary.BigEndian.PutUint32(rom[4:], M68KOrigin)
	copy(rom[M68KOrigin:], program)

	d := &M68K{clock: clock{hz: clockHz, start: start}}
	d.bus = &M68KBus{rom: rom, chips: chips, clock: &d.clock}
	d.cpu = m68k.New(d.bus)

	regs := d.cpu.Registers()
	regs.PC = M68KOrigin
	regs.SR = 0x2700 // Supervisor mode, all interrupts masked
	d.cpu.SetState(regs)
	d.base = d.cpu.Cycles()
	return d, nil
}

// Bus returns the 68000 address space.
func (d *M68K) Bus() *M68KBus { return d.bus }

func (d *M68K) Time() float64 { return d.clock.now() }

// Stopped reports whether the CPU has stopped consuming cycles.
func (d *M68K) Stopped() bool { return d.done }

// Run executes instructions, one at a time, until end.
func (d *M68K) Run(end float64) float64 {
	for !d.done && d.clock.now() < end {
		if d.cpu.StepCycles(1) == 0 {
			d.done = true
			break
		}
		d.clock.cycles = d.cpu.Cycles() - d.base
	}
	return d.clock.now()
}
