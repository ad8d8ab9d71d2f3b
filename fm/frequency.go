package fm

import "math"

// KeyCode derives the 5-bit key code from a block and 11-bit frequency number.
// Bits 4-2 are the block, bit 1 is F11 and bit 0 is
// (F11 & (F10 | F9 | F8)) | (!F11 & F10 & F9 & F8).
func KeyCode(block, fnum int) int {
	f11 := (fnum >> 10) & 1
	f10 := (fnum >> 9) & 1
	f9 := (fnum >> 8) & 1
	f8 := (fnum >> 7) & 1

	bit1 := f11
	bit0 := (f11 & (f10 | f9 | f8)) | ((1 ^ f11) & f10 & f9 & f8)

	return block<<2 | bit1<<1 | bit0
}

// ComponentsToFullFreq combines a block and frequency number into a single
// linear frequency number: (fnum << block) >> 1.
func ComponentsToFullFreq(block, fnum int) int {
	return (fnum << uint(block)) >> 1
}

// FullFreqToComponents splits a linear frequency number into the lowest block
// that keeps the frequency number within 11 bits.
func FullFreqToComponents(full float64) (block, fnum int) {
	f := full
	if f < 1023.75 {
		block = 0
		f *= 2
	} else {
		block = 1
		for f >= 2047.5 {
			f /= 2
			block++
		}
	}
	return block, int(math.Round(f))
}

// fullFreqToComponentsBelow splits a linear frequency number, moving up a
// block whenever the frequency number reaches threshold.
func fullFreqToComponentsBelow(full, threshold float64) (block, fnum int) {
	block = 1
	f := full
	if f < 1023.5 {
		block = 0
		f = math.Round(f) * 2
	}
	for f >= 2047.5 || (block < 7 && f >= threshold) {
		f /= 2
		block++
	}
	return block, int(math.Round(f))
}

// detuneSteps returns the signed frequency delta for a detune setting 0-7.
func detuneSteps(detune, keyCode int) int {
	if keyCode > 31 {
		keyCode = 31
	}
	steps := detuneTable[keyCode][detune&3]
	if detune&4 != 0 {
		return -steps
	}
	return steps
}
