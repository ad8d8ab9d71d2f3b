package fm

import (
	"fmt"
	"strings"

	emucore "github.com/user-none/eblitui/api"
)

// Region is an alias for emucore.Region so frontends can pass theirs through.
type Region = emucore.Region

const (
	RegionNTSC = emucore.RegionNTSC
	RegionPAL  = emucore.RegionPAL
)

// RegionClocks holds the clock rates a console region runs the sound chips at.
type RegionClocks struct {
	FMClockHz   float64 // master clock feeding the FM chip's divider
	PSGClockHz  float64 // PSG input clock
	Z80ClockHz  float64 // sound CPU
	M68KClockHz float64 // main CPU
}

// NTSC clocks: master 53.693175 MHz, PSG and Z80 3.579545 MHz, 68000 7.670454 MHz
var NTSCClocks = RegionClocks{
	FMClockHz:   ClockNTSC,
	PSGClockHz:  3579545,
	Z80ClockHz:  3579545,
	M68KClockHz: 7670454,
}

// PAL clocks: master 53.203424 MHz, PSG and Z80 3.546893 MHz, 68000 7.600489 MHz
var PALClocks = RegionClocks{
	FMClockHz:   ClockPAL,
	PSGClockHz:  3546893,
	Z80ClockHz:  3546893,
	M68KClockHz: 7600489,
}

// ClocksForRegion returns the clock rates for r.
func ClocksForRegion(r Region) RegionClocks {
	if r == RegionPAL {
		return PALClocks
	}
	return NTSCClocks
}

// ParseRegion accepts "ntsc" or "pal" in any case.
func ParseRegion(s string) (Region, error) {
	switch strings.ToLower(s) {
	case "", "ntsc":
		return RegionNTSC, nil
	case "pal":
		return RegionPAL, nil
	}
	return RegionNTSC, fmt.Errorf("unknown region %q", s)
}
