package chip

import (
	"errors"
)

const (
	ym2612SerializeVersion = 1
	// Per part: registers(256) + written mask(32)
	ymPartSerializeSize = 256 + 32
	// YM2612SerializeSize is the total bytes needed for YM2612 serialization.
	// version(1) + addrLatch(2) + 2 parts * 288 = 579
	YM2612SerializeSize = 1 + 2 + 2*ymPartSerializeSize
)

var (
	ErrStateTooSmall = errors.New("ym2612: state buffer too small")
	ErrStateVersion  = errors.New("ym2612: unsupported state version")
)

// Serialize writes the register image to buf. buf must be at least
// YM2612SerializeSize bytes. Only the registers are saved: the synth state
// they produced is rebuilt by Deserialize.
func (y *YM2612) Serialize(buf []byte) error {
	if len(buf) < YM2612SerializeSize {
		return ErrStateTooSmall
	}
	offset := 0
	buf[offset] = ym2612SerializeVersion
	offset++
	buf[offset] = y.addrLatch[0]
	buf[offset+1] = y.addrLatch[1]
	offset += 2

	for part := 0; part < 2; part++ {
		copy(buf[offset:], y.regs[part][:])
		offset += 256
		mask := buf[offset : offset+32]
		clear(mask)
		for addr, w := range y.written[part] {
			if w {
				mask[addr>>3] |= 1 << (addr & 7)
			}
		}
		offset += 32
	}
	return nil
}

// restoreOrder lists the registers replayed by Deserialize for each part.
// Frequency high bytes come before the low bytes that apply them, and the
// channel 3 mode comes before the special mode frequencies. Key on/off is
// not state and is never replayed.
var restoreOrder = func() []uint8 {
	var order []uint8
	span := func(from, to uint8) {
		for a := int(from); a <= int(to); a++ {
			order = append(order, uint8(a))
		}
	}
	span(0x22, 0x27)
	span(0x29, 0x2F)
	span(0x30, 0x9F)
	span(0xA4, 0xA6)
	span(0xA0, 0xA2)
	span(0xAC, 0xAE)
	span(0xA8, 0xAA)
	span(0xB0, 0xB6)
	return order
}()

// Deserialize loads a register image saved by Serialize and replays every
// written register into the synth at time.
func (y *YM2612) Deserialize(buf []byte, time float64) error {
	if len(buf) < YM2612SerializeSize {
		return ErrStateTooSmall
	}
	if buf[0] != ym2612SerializeVersion {
		return ErrStateVersion
	}
	offset := 3

	var regs [2][256]uint8
	var written [2][256]bool
	for part := 0; part < 2; part++ {
		copy(regs[part][:], buf[offset:offset+256])
		offset += 256
		for addr := range written[part] {
			written[part][addr] = buf[offset+addr>>3]&(1<<(addr&7)) != 0
		}
		offset += 32
	}

	for part := 0; part < 2; part++ {
		for _, addr := range restoreOrder {
			if written[part][addr] {
				y.Write(addr, regs[part][addr], part, time)
			}
		}
	}
	// Registers the replay skips still read back as saved
	y.regs = regs
	y.written = written
	y.addrLatch[0] = buf[1]
	y.addrLatch[1] = buf[2]
	return nil
}
