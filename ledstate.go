package mx5

// LedState is the discrete indicator state. Exactly one is active per tick.
type LedState uint8

const (
	LedIdle LedState = iota
	LedEfficiency
	LedStallDanger
	LedNormal
	LedShiftWarning
	LedRevLimit
	LedError
)

func (s LedState) String() string {
	switch s {
	case LedIdle:
		return "idle"
	case LedEfficiency:
		return "efficiency"
	case LedStallDanger:
		return "stall-danger"
	case LedNormal:
		return "normal"
	case LedShiftWarning:
		return "shift-warning"
	case LedRevLimit:
		return "rev-limit"
	case LedError:
		return "error"
	}
	return "invalid"
}

// Bands holds the RPM thresholds that classify driving states.
type Bands struct {
	PowerBandMin uint16 `toml:"power_band_min"`
	ShiftBandMin uint16 `toml:"shift_band_min"`
	Redline      uint16 `toml:"redline"`

	// CruiseMin/CruiseMax describe the optional efficiency sub-band inside
	// the normal band. CruiseMax <= CruiseMin disables it.
	CruiseMin uint16 `toml:"cruise_min"`
	CruiseMax uint16 `toml:"cruise_max"`

	IdleSpeedMax uint8 `toml:"idle_speed_max"`

	// HysteresisRPM keeps the previous state while rpm sits within this
	// margin of the band edge it would cross, so a value pinned on a
	// boundary cannot flicker between neighbours.
	HysteresisRPM uint16 `toml:"hysteresis_rpm"`
}

// StateMachine selects one LedState per tick by fixed priority. The only
// history it keeps is the previously selected state, used for boundary
// hysteresis; everything else is re-evaluated from scratch.
type StateMachine struct {
	bands   Bands
	prev    LedState
	hasPrev bool
}

func NewStateMachine(bands Bands) *StateMachine {
	return &StateMachine{bands: bands}
}

// Select picks the active state for this tick. Health failures dominate,
// then descending RPM bands, then stall danger, then idle as the fallback.
func (m *StateMachine) Select(health Health, rpm uint16, speed uint8) LedState {
	next := m.classify(health, rpm, speed)
	if m.hasPrev && next != m.prev && m.withinHysteresis(next, rpm) {
		next = m.prev
	}
	m.prev = next
	m.hasPrev = true
	return next
}

func (m *StateMachine) classify(health Health, rpm uint16, speed uint8) LedState {
	b := m.bands
	switch {
	case health != HealthOK:
		return LedError
	case rpm >= b.Redline:
		return LedRevLimit
	case rpm >= b.ShiftBandMin:
		return LedShiftWarning
	case rpm >= b.PowerBandMin:
		// the efficiency sub-band is a refinement of normal, so normal
		// yields to it rather than shadowing it outright
		if b.CruiseMax > b.CruiseMin && rpm >= b.CruiseMin && rpm < b.CruiseMax {
			return LedEfficiency
		}
		return LedNormal
	case speed > b.IdleSpeedMax:
		return LedStallDanger
	default:
		return LedIdle
	}
}

// withinHysteresis reports whether rpm is still inside the hysteresis margin
// of the edge shared by the previous state and the newly classified one.
// Transitions involving Error and Idle are never delayed.
func (m *StateMachine) withinHysteresis(next LedState, rpm uint16) bool {
	hys := m.bands.HysteresisRPM
	if hys == 0 {
		return false
	}
	var edge uint16
	switch {
	case bandPair(m.prev, next, LedStallDanger, LedNormal),
		bandPair(m.prev, next, LedStallDanger, LedEfficiency):
		edge = m.bands.PowerBandMin
	case bandPair(m.prev, next, LedNormal, LedShiftWarning),
		bandPair(m.prev, next, LedEfficiency, LedShiftWarning):
		edge = m.bands.ShiftBandMin
	case bandPair(m.prev, next, LedShiftWarning, LedRevLimit):
		edge = m.bands.Redline
	case bandPair(m.prev, next, LedNormal, LedEfficiency):
		edge = nearerEdge(rpm, m.bands.CruiseMin, m.bands.CruiseMax)
	default:
		return false
	}
	return rpmDistance(rpm, edge) < hys
}

func bandPair(a, b, x, y LedState) bool {
	return (a == x && b == y) || (a == y && b == x)
}

func nearerEdge(rpm, lo, hi uint16) uint16 {
	if rpmDistance(rpm, lo) <= rpmDistance(rpm, hi) {
		return lo
	}
	return hi
}

func rpmDistance(a, b uint16) uint16 {
	if a > b {
		return a - b
	}
	return b - a
}
