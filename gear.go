package mx5

import (
	"math"
	"strconv"
)

// Gear identifies a transmission gear. Forward gears are 1..N.
type Gear int8

const (
	GearUnknown Gear = -2
	GearReverse Gear = -1
	GearNeutral Gear = 0
)

func (g Gear) String() string {
	switch {
	case g == GearUnknown:
		return "?"
	case g == GearReverse:
		return "R"
	case g == GearNeutral:
		return "N"
	default:
		return strconv.Itoa(int(g))
	}
}

// GearEstimate is recomputed in full on every estimator invocation; it is
// always replaced wholesale, never partially mutated.
type GearEstimate struct {
	Gear          Gear
	Confidence    float32 // 0..1
	ClutchEngaged bool
}

const (
	defaultMinMovementSpeed = 2 // km/h
	defaultClutchDeviation  = 0.30

	// gearTieEpsilon bounds what counts as an equal-error tie between two
	// gears, which resolves to the numerically higher gear (lower RPM for
	// the same speed).
	gearTieEpsilon = 1e-6
)

// VehicleProfile is the static drivetrain description loaded once at
// construction. Read-only for the lifetime of the estimator.
type VehicleProfile struct {
	GearRatios          []float64 `toml:"gear_ratios"` // ordered, 1st gear first
	FinalDrive          float64   `toml:"final_drive"`
	WheelCircumferenceM float64   `toml:"wheel_circumference_m"`

	// MinMovementSpeed is the km/h floor below which the vehicle is
	// treated as stationary. Zero means the default of 2.
	MinMovementSpeed uint8 `toml:"min_movement_speed"`

	// ClutchDeviation is the relative-error bound past which no gear is
	// considered engaged. Zero means the default of 0.30.
	ClutchDeviation float64 `toml:"clutch_deviation"`
}

func (p *VehicleProfile) minMovementSpeed() uint8 {
	if p.MinMovementSpeed == 0 {
		return defaultMinMovementSpeed
	}
	return p.MinMovementSpeed
}

func (p *VehicleProfile) clutchDeviation() float64 {
	if p.ClutchDeviation <= 0 {
		return defaultClutchDeviation
	}
	return p.ClutchDeviation
}

// Estimate derives the current gear purely from the speed/rpm relationship.
// It never errors: a degenerate (empty) profile yields GearUnknown with zero
// confidence, which is a configuration-loading problem, not ours.
func (p *VehicleProfile) Estimate(s *EngineSample) GearEstimate {
	if s.Speed <= p.minMovementSpeed() || s.RPM == 0 {
		return GearEstimate{
			Gear:       GearNeutral,
			Confidence: 1.0,
		}
	}
	if len(p.GearRatios) == 0 || p.FinalDrive == 0 || p.WheelCircumferenceM == 0 {
		return GearEstimate{Gear: GearUnknown}
	}

	// actual ratio in metres-per-second per rpm, matching the unit of
	// expectedRatio below
	actual := float64(s.Speed) / 3.6 / float64(s.RPM)

	best := -1
	bestErr := math.Inf(1)
	for i, ratio := range p.GearRatios {
		expected := p.WheelCircumferenceM / (ratio * p.FinalDrive * 60)
		relErr := math.Abs(actual-expected) / expected
		// ties within epsilon fall to the later, higher gear
		if best < 0 || relErr <= bestErr+gearTieEpsilon {
			best = i
			if relErr < bestErr {
				bestErr = relErr
			}
		}
	}

	confidence := 1 - bestErr
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}
	return GearEstimate{
		Gear:       Gear(best + 1),
		Confidence: float32(confidence),
		// mid-shift or rev-match: no gear fits, but the best match is
		// still the most useful thing to show the driver
		ClutchEngaged: bestErr > p.clutchDeviation(),
	}
}
