package mx5

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testBands() Bands {
	return Bands{
		PowerBandMin: 2000,
		ShiftBandMin: 5500,
		Redline:      7000,
	}
}

// expectedState mirrors the priority table directly: the first matching
// predicate wins.
func expectedState(health Health, rpm uint16, speed uint8, b Bands) LedState {
	switch {
	case health != HealthOK:
		return LedError
	case rpm >= b.Redline:
		return LedRevLimit
	case rpm >= b.ShiftBandMin:
		return LedShiftWarning
	case rpm >= b.PowerBandMin:
		return LedNormal
	case speed > 0:
		return LedStallDanger
	default:
		return LedIdle
	}
}

func TestSelectTotalCoverage(t *testing.T) {
	b := testBands()
	for _, speed := range []uint8{0, 80} {
		for rpm := uint16(0); rpm <= 9000; rpm++ {
			m := NewStateMachine(b)
			got := m.Select(HealthOK, rpm, speed)
			want := expectedState(HealthOK, rpm, speed, b)
			if got != want {
				t.Fatalf("rpm=%d speed=%d: got %v want %v", rpm, speed, got, want)
			}
		}
	}
}

func TestSelectErrorDominates(t *testing.T) {
	m := NewStateMachine(testBands())
	assert.Equal(t, LedError, m.Select(HealthStale, 8000, 120))
	assert.Equal(t, LedError, m.Select(HealthStale, 0, 0))
	// clears the moment health recovers
	assert.Equal(t, LedIdle, m.Select(HealthOK, 0, 0))
}

func TestSelectBoundaryStability(t *testing.T) {
	b := testBands()
	b.HysteresisRPM = 50
	m := NewStateMachine(b)

	first := m.Select(HealthOK, b.ShiftBandMin, 80)
	for i := 0; i < 1000; i++ {
		assert.Equal(t, first, m.Select(HealthOK, b.ShiftBandMin, 80),
			"pinned boundary rpm must never oscillate")
	}
}

func TestSelectHysteresis(t *testing.T) {
	b := testBands()
	b.HysteresisRPM = 50
	m := NewStateMachine(b)

	assert.Equal(t, LedNormal, m.Select(HealthOK, 5000, 80))
	// crossing the boundary but staying within the margin holds the state
	assert.Equal(t, LedNormal, m.Select(HealthOK, 5510, 80))
	assert.Equal(t, LedNormal, m.Select(HealthOK, 5490, 80))
	// beyond the margin the new band wins
	assert.Equal(t, LedShiftWarning, m.Select(HealthOK, 5550, 80))
	// and dropping just below the boundary now holds shift-warning
	assert.Equal(t, LedShiftWarning, m.Select(HealthOK, 5460, 80))
	assert.Equal(t, LedNormal, m.Select(HealthOK, 5400, 80))
}

func TestSelectSweepOrder(t *testing.T) {
	b := testBands()
	b.HysteresisRPM = 50
	m := NewStateMachine(b)

	var observed []LedState
	for rpm := uint16(0); rpm <= 9000; rpm += 10 {
		state := m.Select(HealthOK, rpm, 80)
		if len(observed) == 0 || observed[len(observed)-1] != state {
			observed = append(observed, state)
		}
	}
	assert.Equal(t,
		[]LedState{LedStallDanger, LedNormal, LedShiftWarning, LedRevLimit},
		observed,
		"sweep must transition strictly in band order")
}

func TestSelectEfficiencyBand(t *testing.T) {
	b := testBands()
	b.CruiseMin = 2800
	b.CruiseMax = 3200
	m := NewStateMachine(b)

	assert.Equal(t, LedNormal, m.Select(HealthOK, 2500, 80))
	assert.Equal(t, LedEfficiency, m.Select(HealthOK, 3000, 80))
	assert.Equal(t, LedNormal, m.Select(HealthOK, 3500, 80))
}

func TestSelectEfficiencyDisabled(t *testing.T) {
	m := NewStateMachine(testBands())
	for rpm := uint16(2000); rpm < 5500; rpm += 100 {
		assert.Equal(t, LedNormal, m.Select(HealthOK, rpm, 80))
	}
}

func TestSelectIdleThreshold(t *testing.T) {
	b := testBands()
	b.IdleSpeedMax = 3
	m := NewStateMachine(b)

	assert.Equal(t, LedIdle, m.Select(HealthOK, 900, 0))
	assert.Equal(t, LedIdle, m.Select(HealthOK, 900, 3))
	assert.Equal(t, LedStallDanger, m.Select(HealthOK, 900, 4))
}

func TestLedStateString(t *testing.T) {
	names := map[LedState]string{
		LedIdle:         "idle",
		LedEfficiency:   "efficiency",
		LedStallDanger:  "stall-danger",
		LedNormal:       "normal",
		LedShiftWarning: "shift-warning",
		LedRevLimit:     "rev-limit",
		LedError:        "error",
	}
	for state, name := range names {
		assert.Equal(t, name, state.String())
	}
	assert.Equal(t, "invalid", LedState(42).String())
}
