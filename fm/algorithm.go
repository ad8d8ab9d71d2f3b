package fm

// Algorithm is a routing between operators. Modulations lists the gains
// 1->2, 1->3, 1->4, 2->3, 2->4 and 3->4 (just 1->2 for two operators) and
// Outputs lists each operator's output level.
type Algorithm struct {
	Modulations []float64
	Outputs     []float64
}

// FourOpAlgorithms are the chip's eight algorithms plus a ninth that routes
// 2 -> 3 -> 4 alongside a free running operator 1.
var FourOpAlgorithms = [9]Algorithm{
	// 1 -> 2 -> 3 -> 4
	{[]float64{1, 0, 0, 1, 0, 1}, []float64{0, 0, 0, 1}},
	// (1 + 2) -> 3 -> 4
	{[]float64{0, 1, 0, 1, 0, 1}, []float64{0, 0, 0, 1}},
	// (1 + (2 -> 3)) -> 4
	{[]float64{0, 0, 1, 1, 0, 1}, []float64{0, 0, 0, 1}},
	// ((1 -> 2) + 3) -> 4
	{[]float64{1, 0, 0, 0, 1, 1}, []float64{0, 0, 0, 1}},
	// (1 -> 2) + (3 -> 4)
	{[]float64{1, 0, 0, 0, 0, 1}, []float64{0, 1, 0, 1}},
	// 1 -> (2 + 3 + 4)
	{[]float64{1, 1, 1, 0, 0, 0}, []float64{0, 1, 1, 1}},
	// (1 -> 2) + 3 + 4
	{[]float64{1, 0, 0, 0, 0, 0}, []float64{0, 1, 1, 1}},
	// 1 + 2 + 3 + 4
	{[]float64{0, 0, 0, 0, 0, 0}, []float64{1, 1, 1, 1}},
	// 1 + (2 -> 3 -> 4)
	{[]float64{0, 0, 0, 1, 0, 1}, []float64{1, 0, 0, 1}},
}

// TwoOpAlgorithms are frequency modulation and additive synthesis.
var TwoOpAlgorithms = [2]Algorithm{
	{[]float64{1}, []float64{0, 1}},
	{[]float64{0}, []float64{1, 1}},
}

// IndexOfGain returns the slot in a channel's gain array that carries
// modulation from one operator to another, or -1 if there is no such path.
// Slots 0 and 1 are the self feedback of operators 1 and 3.
func IndexOfGain(modulator, carrier int) int {
	if modulator == carrier {
		switch modulator {
		case 1:
			return 0
		case 3:
			return 1
		}
		return -1
	}
	if modulator < 1 || modulator >= 4 || modulator >= carrier || carrier > 4 {
		return -1
	}
	index := 2
	for i := modulator - 1; i > 0; i-- {
		index += 4 - i
	}
	return index + carrier - modulator - 1
}
