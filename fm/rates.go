package fm

import "math"

// envIncrementMod is the per-rate increment multiplier. Rates 0-7 are irregular,
// 8-59 cycle through 4,5,6,7 and 60-63 saturate at 4 (the shift caps instead).
var envIncrementMod [64]float64

// EnvIncrement holds the envelope level change per envelope tick for each 6-bit rate code.
var EnvIncrement [64]float64

func init() {
	copy(envIncrementMod[:8], []float64{0, 0, 4, 4, 4, 4, 6, 6})
	for i := 8; i < 60; i++ {
		envIncrementMod[i] = float64(i%4 + 4)
	}
	for i := 60; i < 64; i++ {
		envIncrementMod[i] = 4
	}
	for i := range EnvIncrement {
		EnvIncrement[i] = envIncrementMod[i] * math.Pow(2, float64(i/4-14))
	}
}

// attackTarget is the asymptote of the exponential attack, indexed by rate code - 2.
// Fitted to hardware output so the curve crosses 1023 when the chip's attack ends.
var attackTarget = [60]float64{
	1032.48838867428, 1032.48838867428, 1032.48838867428, 1032.48838867428,
	1032.53583418919, 1032.53583418919, 1032.48838867428, 1032.47884850242,
	1032.53583418919, 1032.32194631456,
	1032.48838867428, 1032.47884850242, 1032.53583418919, 1032.32194631456,
	1032.48838867428, 1032.47884850242, 1032.53583418919, 1032.32194631456,
	1032.48838867428, 1032.47884850242, 1032.53583418919, 1032.32194631456,
	1032.48838867428, 1032.47884850242, 1032.53583418919, 1032.32194631456,
	1032.48838867428, 1032.47884850242, 1032.53583418919, 1032.32194631456,
	1032.48838867428, 1032.47884850242, 1032.53583418919, 1032.32194631456,
	1032.48838867428, 1032.47884850242, 1032.53583418919, 1032.32194631456,
	1032.48838867428, 1032.47884850242, 1032.53583418919, 1032.32194631456,
	1032.48838867428, 1032.47884850242, 1032.53583418919, 1032.32194631456,
	1032.48840023324, 1031.31610973218, 1031.52352501199, 1031.65420794345,
	1033.03574873511, 1033.43041057801, 1033.37306598363, 1035.4171820433,
	1035.39653268357, 1034.15032097183, 1032.96478469666, 1029.17518847789,
	1030.84690128005, 1030.84690128005,
}

// attackConstant is the attack time constant in envelope ticks, indexed by rate code - 2.
var attackConstant = [60]float64{
	63279.2004921133, 63279.2004921133, 31639.6002460567, 31639.6002460567,
	21091.98357754, 21091.98357754, 15819.8001230283, 12657.5084839186,
	10545.99178877, 9032.5441919039, 7909.90006151416, 6328.75424195932,
	5272.995894385, 4516.27209595195, 3954.95003075708, 3164.37712097966,
	2636.4979471925, 2258.13604797597, 1977.47501537854, 1582.18856048983,
	1318.24897359625, 1129.06802398799, 988.73750768927, 791.094280244915,
	659.124486798125, 564.534011993994, 494.368753844635, 395.547140122458,
	329.562243399062, 282.267005996997, 247.184376922318, 197.773570061229,
	164.781121699531, 141.133502998498, 123.592188461159, 98.8867850306144,
	82.3905608497656, 70.5667514992492, 61.7960942305794, 49.4433925153072,
	41.1952804248828, 35.2833757496246, 30.8980471152897, 24.7216962576536,
	20.5976402124414, 17.6416878748123, 15.4490240655454, 12.2013635004957,
	10.1012241857225, 8.60768940429353, 7.51608965104502, 5.82598001278768,
	4.78058630318776, 4.03544786153862, 3.49406413913649, 2.59733598774052,
	2.05386854284152, 1.6949173421721, 1.42848405503094, 1.42848405503094,
}

// ssgRamps holds one SSG-EG ramp per increment pattern. Entries 0-3 ramp down
// from 1 to 0, entries 4-7 ramp up from 0 to 1.
var ssgRamps [8][]float64

// ssgPatterns are the 8-step increment patterns for rate code remainders 0-3.
var ssgPatterns = [4][8]float64{
	{0, 1, 0, 1, 0, 1, 0, 1},
	{0, 1, 0, 1, 1, 1, 0, 1},
	{0, 1, 1, 1, 0, 1, 1, 1},
	{0, 1, 1, 1, 1, 1, 1, 1},
}

func init() {
	lengths := [4]int{343, 275, 229, 197}
	for i := 0; i < 4; i++ {
		down := make([]float64, lengths[i])
		up := make([]float64, lengths[i])
		down[0] = 1
		up[0] = 0
		counter := 0.0
		for j := 1; j < lengths[i]; j++ {
			counter = math.Min(counter+6*ssgPatterns[i][(j-1)%8], 1023)
			down[j] = (1023 - counter) / 1023
			up[j] = counter / 1023
		}
		ssgRamps[i] = down
		ssgRamps[i+4] = up
	}
}

// detuneTable is a 32x4 table of frequency deltas indexed by [keyCode][DT&3].
// DT bit 2 controls sign (0 = add, 1 = subtract).
var detuneTable = [32][4]int{
	{0, 0, 1, 2},   // KC 0
	{0, 0, 1, 2},   // KC 1
	{0, 0, 1, 2},   // KC 2
	{0, 0, 1, 2},   // KC 3
	{0, 1, 2, 2},   // KC 4
	{0, 1, 2, 3},   // KC 5
	{0, 1, 2, 3},   // KC 6
	{0, 1, 2, 3},   // KC 7
	{0, 1, 2, 4},   // KC 8
	{0, 1, 3, 4},   // KC 9
	{0, 1, 3, 4},   // KC 10
	{0, 1, 3, 5},   // KC 11
	{0, 2, 4, 5},   // KC 12
	{0, 2, 4, 6},   // KC 13
	{0, 2, 4, 6},   // KC 14
	{0, 2, 5, 7},   // KC 15
	{0, 2, 5, 8},   // KC 16
	{0, 3, 6, 8},   // KC 17
	{0, 3, 6, 9},   // KC 18
	{0, 3, 7, 10},  // KC 19
	{0, 4, 8, 11},  // KC 20
	{0, 4, 8, 12},  // KC 21
	{0, 4, 9, 13},  // KC 22
	{0, 5, 10, 14}, // KC 23
	{0, 5, 11, 16}, // KC 24
	{0, 6, 12, 17}, // KC 25
	{0, 6, 13, 19}, // KC 26
	{0, 7, 14, 20}, // KC 27
	{0, 8, 16, 22}, // KC 28
	{0, 8, 16, 22}, // KC 29
	{0, 8, 16, 22}, // KC 30
	{0, 8, 16, 22}, // KC 31
}

// lfoDivisors are the LFO periods, in units of the LFO rate dividend, for presets 1-8.
var lfoDivisors = [8]float64{109, 78, 72, 68, 63, 45, 9, 6}

// VibratoPresets are the chip's vibrato depths in cents for PMS 0-7.
var VibratoPresets = [8]float64{0, 3.4, 6.7, 10, 14, 20, 40, 80}

// tremoloPresets are the tremolo depths for AMS 0-3, as a fraction of full scale.
var tremoloPresets = [4]float64{0, 15.0 / 2046, 63.0 / 2046, 126.0 / 2046}

// rateCode converts a basic rate and key-scaling adjustment into a 6-bit rate code.
func rateCode(basic float64, adjust int) int {
	code := int(math.Round(2*basic)) + adjust
	if code > 63 {
		code = 63
	}
	if code < 0 {
		code = 0
	}
	return code
}

// logToLinear maps a 10-bit attenuation-style level (1023 = full) onto linear gain.
func logToLinear(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Pow(2, -8*(1023-x)/1024)
}

var dxToSYLevels = [21]float64{0, 5, 9, 13, 17, 20, 23, 25, 27, 29, 31, 33, 35, 37, 39, 41, 42, 43, 45, 46, 48}

// dxToSYLevel converts a 0-99 output level onto the 0-127 total level scale,
// interpolating below 20.
func dxToSYLevel(level float64) float64 {
	if level >= 20 {
		return level + 28
	}
	lower := int(level)
	frac := level - float64(lower)
	return dxToSYLevels[lower]*(1-frac) + dxToSYLevels[lower+1]*frac
}

// OutputLevelToGain converts a signed 0-99 output level into a linear gain.
func OutputLevelToGain(level float64) float64 {
	if level == 0 {
		return 0
	}
	sign := 1.0
	if level < 0 {
		sign = -1
		level = -level
	}
	return sign * logToLinear(dxToSYLevel(level)*8+7)
}
