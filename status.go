package mx5

import "strconv"

// Status tokens are short textual projections relayed over an external
// serial-command transport. Framing and checksumming belong to that
// transport; the contract here is only "given current state, produce token".

const tokenDash = "-"

const (
	tokenClutchGlyph = "C"
	tokenSlipGlyph   = "S"
)

// GearToken renders the estimated gear as a single token.
func GearToken(est GearEstimate) string {
	if est.Gear == GearUnknown {
		return tokenDash
	}
	return est.Gear.String()
}

// AdvisoryToken is the token shown while the clutch is disengaged from the
// wheels, matching the configured display mode.
func AdvisoryToken(mode DisplayMode, est GearEstimate) string {
	switch mode {
	case DisplayGearNumber:
		if est.Gear < 1 {
			return tokenDash
		}
		return est.Gear.String()
	case DisplayClutchGlyph:
		return tokenClutchGlyph
	case DisplaySlipGlyph:
		return tokenSlipGlyph
	}
	return tokenDash
}

// StatusToken picks the advisory token during clutch slip and the plain gear
// token otherwise.
func StatusToken(mode DisplayMode, est GearEstimate) string {
	if est.ClutchEngaged {
		return AdvisoryToken(mode, est)
	}
	return GearToken(est)
}

// RPMToken renders the current engine speed.
func RPMToken(s *EngineSample) string {
	return strconv.Itoa(int(s.RPM))
}
