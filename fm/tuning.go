package fm

import "math"

// NumNotes is the number of MIDI notes a Tuning covers.
const NumNotes = 128

// Tuning maps MIDI notes onto block and frequency number pairs. Entries are
// sorted by block and then frequency number.
type Tuning struct {
	Ratio           float64 // frequency ratio between adjacent notes
	OctaveThreshold float64 // frequency numbers at or above this move up a block
	Blocks          [NumNotes]int
	FreqNums        [NumNotes]float64
}

// Note returns the block and frequency number for a MIDI note.
func (t *Tuning) Note(n int) (block, fnum int) {
	if n < 0 {
		n = 0
	} else if n >= NumNotes {
		n = NumNotes - 1
	}
	return t.Blocks[n], int(math.Round(t.FreqNums[n]))
}

// FrequencyToNote finds the note whose table entry matches block and fnum,
// or the nearest note at or below the insertion point when none does.
func (t *Tuning) FrequencyToNote(block, fnum int) int {
	lb, ub := 0, NumNotes-1
	f := float64(fnum)
	for lb < ub {
		mid := (lb + ub) / 2
		noteBlock := t.Blocks[mid]
		noteFreqNum := t.FreqNums[mid]
		switch {
		case block < noteBlock:
			ub = mid - 1
		case block > noteBlock:
			lb = mid + 1
		case f < noteFreqNum:
			ub = mid - 1
		case f > noteFreqNum:
			lb = mid + 1
		default:
			return mid
		}
	}
	return lb
}

// FullFreqToComponents splits a linear frequency number using this tuning's
// octave threshold, so results share key codes with the table's notes.
func (t *Tuning) FullFreqToComponents(full float64) (block, fnum int) {
	return fullFreqToComponentsBelow(full, t.OctaveThreshold)
}

// MultiplyFreqComponents scales a block and frequency number by multiple.
func (t *Tuning) MultiplyFreqComponents(block, fnum int, multiple float64) (int, int) {
	full := float64(ComponentsToFullFreq(block, fnum)) * multiple
	return t.FullFreqToComponents(full)
}

// Clone returns a copy of the tuning.
func (t *Tuning) Clone() *Tuning {
	c := *t
	return &c
}

// EqualTemperament describes a tuning that divides an interval equally.
type EqualTemperament struct {
	Detune     float64 // cents
	Precision  float64 // frequency number resolution, 1 for OPN
	Interval   float64 // 2 for an octave
	Divisions  float64 // steps per interval
	Steps      []int   // scale steps between consecutive keys, repeating
	StartIndex int     // which step middle C begins on
}

func (et EqualTemperament) withDefaults() EqualTemperament {
	if et.Precision == 0 {
		et.Precision = 1
	}
	if et.Interval == 0 {
		et.Interval = 2
	}
	if et.Divisions == 0 {
		et.Divisions = 12
	}
	if len(et.Steps) == 0 {
		et.Steps = []int{1}
	}
	return et
}

// refPitch identifies which note sounds at which frequency.
type refPitch struct {
	frequency float64
	note      int
}

func equalTemperament(step float64, ref refPitch, et EqualTemperament) *Tuning {
	et = et.withDefaults()
	var data [NumNotes]float64
	n := len(et.Steps)
	pitch := func(note int) float64 {
		return ref.frequency * math.Pow(et.Interval, (float64(note-ref.note)+et.Detune/100)/et.Divisions) / step
	}

	note := 60
	stepIndex := et.StartIndex
	for i := 60; i < NumNotes; i++ {
		data[i] = pitch(note)
		note += et.Steps[stepIndex]
		stepIndex = (stepIndex + 1) % n
	}
	note = 60
	stepIndex = et.StartIndex - 1
	for i := 59; i >= 0; i-- {
		if stepIndex < 0 {
			stepIndex = n - 1
		}
		note -= et.Steps[stepIndex]
		data[i] = pitch(note)
		stepIndex--
	}
	ratio := math.Pow(et.Interval, 1/et.Divisions)
	return spreadKeyCodes(step, data, ratio, et.Precision)
}

// ratioTuning builds a tuning from a list of frequency ratios whose last entry
// is the repeating interval (usually 2).
func ratioTuning(step float64, ref refPitch, detune float64, ratios []float64, startNote int, precision float64) *Tuning {
	if precision == 0 {
		precision = 1
	}
	var data [NumNotes]float64
	numRatios := len(ratios) - 1
	octave := ratios[numRatios]
	pitch := ref.frequency * math.Pow(2, detune/1200)
	pitch /= ratios[((ref.note-startNote)%12)%numRatios]
	refNote := ref.note/12*12 + startNote

	cycles, index := 0, 0
	for i := refNote; i < NumNotes; i++ {
		data[i] = pitch * math.Pow(octave, float64(cycles)) * ratios[index] / step
		index++
		if index == numRatios {
			cycles++
			index = 0
		}
	}
	cycles, index = -1, numRatios-1
	for i := refNote - 1; i >= 0; i-- {
		data[i] = pitch * math.Pow(octave, float64(cycles)) * ratios[index] / step
		index--
		if index == -1 {
			cycles--
			index = numRatios - 1
		}
	}
	ratio := math.Pow(octave, 1/float64(numRatios))
	return spreadKeyCodes(step, data, ratio, precision)
}

// spreadKeyCodes assigns blocks to the notes' linear frequency numbers, then
// repeatedly moves the highest remaining frequency numbers up a block while
// that evens out how many notes share each key code.
func spreadKeyCodes(step float64, data [NumNotes]float64, ratio, precision float64) *Tuning {
	var blocks [NumNotes]int
	var freqNums [NumNotes]float64
	var keyCodes [NumNotes]int
	var instances [32]int

	maxFreqNum := 2048 - 0.5*precision
	lowPrecision := math.Max(1, precision)
	for i := 0; i < NumNotes; i++ {
		f := data[i]
		rounded := math.Round(f/lowPrecision) * lowPrecision
		block := 0
		if rounded < 1023 {
			f = rounded * 2
		} else {
			block = 1
			for f >= maxFreqNum && block < 7 {
				f /= 2
				block++
			}
			f = math.Min(math.Round(f/precision)*precision, 2047)
		}
		blocks[i] = block
		freqNums[i] = f
		keyCodes[i] = KeyCode(block, int(f))
		instances[keyCodes[i]]++
	}

	// notes outside the range of acoustic instruments don't count
	minIndex := 0
	a0 := 27.5 / step
	for data[minIndex+1] <= a0 && keyCodes[minIndex] == 0 {
		instances[0]--
		minIndex++
	}
	maxIndex := NumNotes - 1
	c8 := 440 * math.Pow(2, 39.0/12) / step
	for data[maxIndex-1] >= c8 && keyCodes[maxIndex] == 31 {
		instances[31]--
		maxIndex--
	}

	threshold := 2048.0
	history := [2]float64{2048, 2048}
	newVariance := math.Inf(1)
	var variance float64
	var changes bool
	for {
		variance = newVariance
		minKeyCode, maxKeyCode := keyCodes[minIndex], keyCodes[maxIndex]
		sum, sumSquares := 0.0, 0.0
		for i := minKeyCode; i <= maxKeyCode; i++ {
			c := float64(instances[i])
			sum += c
			sumSquares += c * c
		}
		span := float64(maxKeyCode - minKeyCode + 1)
		mean := sum / span
		newVariance = sumSquares/span - mean*mean

		next := 0.0
		for i := minIndex; i <= maxIndex; i++ {
			if freqNums[i] < threshold {
				next = math.Max(next, freqNums[i])
			}
		}
		history[0] = history[1]
		history[1] = threshold
		threshold = next

		changes = false
		for i := 0; i < NumNotes; i++ {
			if freqNums[i] == threshold && blocks[i] < 7 {
				blocks[i]++
				freqNums[i] = math.Round(freqNums[i] / 2)
				old := keyCodes[i]
				keyCodes[i] = KeyCode(blocks[i], int(freqNums[i]))
				instances[old]--
				instances[keyCodes[i]]++
				changes = true
			}
		}

		// Keep going while the spread improves, or while nothing moved.
		if !(newVariance < variance || !changes) {
			break
		}
	}

	return &Tuning{
		Ratio:           ratio,
		OctaveThreshold: history[0] - 0.5,
		Blocks:          blocks,
		FreqNums:        freqNums,
	}
}

// tunedMIDINotes builds a plain 12 tone equal temperament table without key
// code spreading.
func tunedMIDINotes(step, a4 float64) *Tuning {
	t := &Tuning{Ratio: math.Pow(2, 1.0/12), OctaveThreshold: 2047.5}
	for i := 0; i < NumNotes; i++ {
		f := a4 * math.Pow(2, float64(i-69)/12)
		b, n := FullFreqToComponents(f / step)
		t.Blocks[i] = b
		t.FreqNums[i] = float64(n)
	}
	return t
}
