package driver

import "github.com/user-none/go-chip-z80"

const z80RAMSize = 0x2000

// Z80Memory implements z80.Bus for a sound CPU address space.
//
// Memory map (16-bit):
//
//	0x0000-0x1FFF  Z80 RAM (8KB)
//	0x2000-0x3FFF  Z80 RAM mirror
//	0x4000-0x5FFF  YM2612 ports, mirrored every 4 bytes
//	0x6000         Bank register (write-only, bit-by-bit)
//	0x6001-0x7EFF  Unused (reads return 0xFF)
//	0x7F11         PSG (mirrored across 0x7F10-0x7F17)
//	0x8000-0xFFFF  Bank window, unmapped (reads return 0xFF)
type Z80Memory struct {
	ram          [z80RAMSize]uint8
	chips        Chips
	clock        *clock
	bankRegister uint16
}

// Fetch reads an opcode byte during an M1 cycle.
func (m *Z80Memory) Fetch(addr uint16) uint8 {
	return m.Read(addr)
}

func (m *Z80Memory) Read(addr uint16) uint8 {
	switch {
	case addr < 0x4000:
		return m.ram[addr&0x1FFF]
	case addr < 0x6000:
		// YM2612 status: never busy, no timers
		return 0
	default:
		return 0xFF
	}
}

func (m *Z80Memory) Write(addr uint16, val uint8) {
	switch {
	case addr < 0x4000:
		m.ram[addr&0x1FFF] = val
	case addr < 0x6000:
		m.chips.writeFM(uint8(addr&0x03), val, m.clock.now())
	case addr == 0x6000:
		// Bank register: shift in bit 0, 9 bits total
		m.bankRegister = (m.bankRegister >> 1) | (uint16(val&1) << 8)
	case addr >= 0x7F10 && addr < 0x7F18:
		m.chips.writePSG(val, m.clock.now())
	}
}

// In reads from an I/O port. All peripherals are memory-mapped.
func (m *Z80Memory) In(port uint16) uint8 {
	return 0xFF
}

// Out writes to an I/O port. No-op.
func (m *Z80Memory) Out(port uint16, val uint8) {}

// BankRegister returns the 9-bit bank address shifted in through 0x6000.
func (m *Z80Memory) BankRegister() uint16 { return m.bankRegister }

// Z80 runs a driver program loaded into Z80 RAM.
type Z80 struct {
	cpu   *z80.CPU
	mem   *Z80Memory
	clock clock
}

// NewZ80 creates a Z80 clocked at clockHz whose time starts at start.
// The program is copied to address 0, where execution begins.
func NewZ80(chips Chips, clockHz, start float64, program []byte) (*Z80, error) {
	if len(program) == 0 {
		return nil, ErrEmptyProgram
	}
	if len(program) > z80RAMSize {
		return nil, ErrProgramTooLarge
	}
	d := &Z80{clock: clock{hz: clockHz, start: start}}
	d.mem = &Z80Memory{chips: chips, clock: &d.clock}
	copy(d.mem.ram[:], program)
	d.cpu = z80.New(d.mem)
	return d, nil
}

// Memory returns the Z80 address space.
func (d *Z80) Memory() *Z80Memory { return d.mem }

func (d *Z80) Time() float64 { return d.clock.now() }

// Halted reports whether the program has executed HALT.
func (d *Z80) Halted() bool { return d.cpu.Halted() }

// Run executes instructions until HALT or end.
func (d *Z80) Run(end float64) float64 {
	for !d.cpu.Halted() && d.clock.now() < end {
		d.clock.cycles += uint64(d.cpu.Step())
	}
	return d.clock.now()
}
