package fm

import "math"

// Point is a bend breakpoint. Time is measured in bend steps.
type Point struct {
	Time  int
	Value float64
}

// IntervalType selects how a bend moves between two consecutive points.
type IntervalType int

const (
	Smooth    IntervalType = iota // continuous ramp
	Glissando                     // a jump every time the value crosses an integer
	Jump                          // a single jump at the start of the last step
)

func (it IntervalType) String() string {
	switch it {
	case Glissando:
		return "glissando"
	case Jump:
		return "jump"
	}
	return "smooth"
}

// NoRelease is the release point of a bend without a key off part.
const NoRelease = math.MaxInt

// AllSteps asks Execute to perform the whole bend.
const AllSteps = -1

// numTimeConstants is how many time constants a falling exponential segment
// lasts for.
const numTimeConstants = 4

// BendKind converts bend values into the units of the parameter they drive.
type BendKind interface {
	Encode(value, initial float64) float64
	Exponential() bool
	// MinNonZero replaces zero endpoints of exponential ramps.
	MinNonZero() float64
}

// PitchBend values are semitones relative to the param's initial frequency.
type PitchBend struct{}

func (PitchBend) Encode(semitones, initial float64) float64 {
	return initial * math.Pow(2, semitones/12)
}
func (PitchBend) Exponential() bool   { return true }
func (PitchBend) MinNonZero() float64 { return 2 }

// VolumeAutomation values run from 0 (silent) to 63 (full volume).
type VolumeAutomation struct{}

func (VolumeAutomation) Encode(volume, _ float64) float64 {
	return logToLinear(math.Round(volume * 1023 / 63))
}
func (VolumeAutomation) Exponential() bool   { return true }
func (VolumeAutomation) MinNonZero() float64 { return math.Pow(2, -10*1023.0/1024) }

// AttenuationAutomation values are total levels, 0 (loudest) to 127.
type AttenuationAutomation struct{}

func (AttenuationAutomation) Encode(totalLevel, _ float64) float64 { return -totalLevel / 128 }
func (AttenuationAutomation) Exponential() bool                   { return false }
func (AttenuationAutomation) MinNonZero() float64                 { return 0 }

// Bend is a sequence of breakpoints applied to a param over time.
type Bend struct {
	Kind          BendKind
	Points        []Point
	IntervalTypes []IntervalType // one per consecutive pair of points
	ReleasePoint  int            // index of the first key off point
}

// NewBend creates a bend holding initial at step 0.
func NewBend(kind BendKind, initial float64) *Bend {
	return &Bend{
		Kind:         kind,
		Points:       []Point{{0, initial}},
		ReleasePoint: NoRelease,
	}
}

// NewPitchBend creates a pitch bend starting at 0 semitones.
func NewPitchBend() *Bend { return NewBend(PitchBend{}, 0) }

// NewVolumeAutomation creates a volume automation starting at full volume.
func NewVolumeAutomation() *Bend { return NewBend(VolumeAutomation{}, 63) }

// NewAttenuationAutomation creates an attenuation automation starting silent.
func NewAttenuationAutomation() *Bend { return NewBend(AttenuationAutomation{}, 127) }

// Append adds a point reached from the previous one using it.
func (b *Bend) Append(time int, value float64, it IntervalType) {
	b.Points = append(b.Points, Point{time, value})
	b.IntervalTypes = append(b.IntervalTypes, it)
}

// Length returns the number of steps in the key on part, or in the key off
// part when release is true.
func (b *Bend) Length(release bool) int {
	numSteps := b.Points[len(b.Points)-1].Time
	hasRelease := b.ReleasePoint < len(b.Points)
	if release {
		if hasRelease {
			return numSteps - b.Points[b.ReleasePoint].Time
		}
		return 0
	}
	if hasRelease {
		return b.Points[b.ReleasePoint].Time
	}
	return numSteps
}

// stepTimes returns the offset of every step from the first, cycling through
// timesPerStep.
func stepTimes(n int, timesPerStep []float64) []float64 {
	times := make([]float64, n+1)
	for i := 1; i <= n; i++ {
		times[i] = times[i-1] + timesPerStep[(i-1)%len(timesPerStep)]
	}
	return times
}

// Execute schedules the bend on p beginning at startTime. When release is true
// the key off part is performed, otherwise the key on part. Values are
// multiplied by scaling. Only the first maxSteps steps are applied (AllSteps
// for all of them); a segment cut short ends on the value its curve has
// reached at that step.
func (b *Bend) Execute(p Param, release bool, startTime float64, timesPerStep []float64, scaling, initial float64, maxSteps int) {
	if maxSteps < 0 {
		maxSteps = b.Length(release)
	}
	points := b.Points
	last := points[len(points)-1].Time
	var first, startStep int
	switch {
	case release:
		if b.ReleasePoint >= len(points) {
			return
		}
		first = b.ReleasePoint
		startStep = points[first].Time
		maxSteps += startStep
	case b.ReleasePoint == 0:
		return
	default:
		if b.ReleasePoint < len(points) {
			maxSteps = min(maxSteps, points[b.ReleasePoint].Time)
		}
	}
	maxSteps = min(maxSteps, last)
	if len(timesPerStep) == 0 {
		timesPerStep = []float64{0}
	}
	time := stepTimes(last, timesPerStep)
	kind := b.Kind
	// step offsets are measured from the first point performed
	origin := startTime - time[startStep]

	from := points[first].Value * scaling
	p.SetValueAtTime(kind.Encode(from, initial), startTime)

	for i := first + 1; i < len(points); i++ {
		to := points[i].Value * scaling
		endStep := points[i].Time
		switch b.IntervalTypes[i-1] {
		case Jump:
			endStep--
			if endStep > maxSteps {
				return
			}
			p.SetValueAtTime(kind.Encode(to, initial), origin+time[endStep])

		case Smooth:
			if startStep >= maxSteps {
				return
			}
			encodedTo := kind.Encode(to, initial)
			if !kind.Exponential() {
				if endStep > maxSteps {
					to = from + (to-from)*float64(maxSteps-startStep)/float64(endStep-startStep)
					p.LinearRampToValueAtTime(kind.Encode(to, initial), origin+time[maxSteps])
					return
				}
				p.LinearRampToValueAtTime(encodedTo, origin+time[endStep])
				break
			}

			duration := time[endStep] - time[startStep]
			if to > from {
				encodedFrom := kind.Encode(from, initial)
				if encodedFrom == 0 {
					encodedFrom = kind.MinNonZero()
				}
				p.SetValueAtTime(encodedFrom, origin+time[startStep])
				if encodedTo == 0 {
					encodedTo = -kind.MinNonZero()
				}
				if endStep > maxSteps {
					progress := (time[maxSteps] - time[startStep]) / duration
					value := encodedFrom * math.Pow(encodedTo/encodedFrom, progress)
					p.ExponentialRampToValueAtTime(value, origin+time[maxSteps])
					return
				}
				p.ExponentialRampToValueAtTime(encodedTo, origin+time[endStep])
			} else {
				encodedFrom := kind.Encode(from, initial)
				timeConstant := duration / numTimeConstants
				p.SetTargetAtTime(encodedTo, origin+time[startStep], timeConstant)
				if endStep > maxSteps {
					value := encodedTo + (encodedFrom-encodedTo)*math.Exp((time[startStep]-time[maxSteps])/timeConstant)
					p.SetValueAtTime(value, origin+time[maxSteps])
					return
				}
			}

		default:
			if startStep >= maxSteps {
				return
			}
			gradient := (to - from) / float64(endStep-startStep)
			endStep = min(endStep, maxSteps)
			round := math.Trunc
			if to < from {
				round = math.Ceil
			}
			encoded := kind.Encode(from, initial)
			prev := round(from)
			to = from
			for j := startStep + 1; j <= endStep; j++ {
				v := round(from + float64(j-startStep)*gradient)
				if v != prev {
					encoded = kind.Encode(v, initial)
					p.SetValueAtTime(encoded, origin+time[j])
					to = v
					prev = v
				}
			}
			p.SetValueAtTime(encoded, origin+time[endStep])
		}
		from = to
		startStep = endStep
	}
}
