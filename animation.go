package mx5

import "math"

// RGB is one physical LED's color.
type RGB struct {
	R, G, B uint8
}

// AnimationFrame is the rendered pixel buffer, always LedCount entries long.
type AnimationFrame []RGB

// DisplayMode selects what the advisory overlay shows while the clutch is
// slipping.
type DisplayMode uint8

const (
	// DisplayGearNumber lights as many pixels as the target gear.
	DisplayGearNumber DisplayMode = iota
	// DisplayClutchGlyph renders the fixed clutch glyph.
	DisplayClutchGlyph
	// DisplaySlipGlyph renders the alternate slip glyph.
	DisplaySlipGlyph
	// DisplayDash renders a placeholder dash.
	DisplayDash
)

const DefaultLedCount = 16

// State hues. The advisory hue must stay distinguishable from every driving
// hue, so nothing else uses magenta.
var (
	colorIdle       = RGB{R: 0, G: 48, B: 96}
	colorError      = RGB{R: 255, G: 0, B: 0}
	colorStall      = RGB{R: 255, G: 64, B: 0}
	colorNormal     = RGB{R: 0, G: 200, B: 0}
	colorEfficiency = RGB{R: 0, G: 200, B: 120}
	colorWarn       = RGB{R: 255, G: 160, B: 0}
	colorContrast   = RGB{R: 0, G: 0, B: 255}
	colorRevLimit   = RGB{R: 255, G: 255, B: 255}
	colorAdvisory   = RGB{R: 255, G: 0, B: 255}
)

const (
	idleFillDelayMS  = 120
	idleHoldMS       = 1500
	errorFillDelayMS = 45
	errorHoldMS      = 600

	stallPeriodMS      = 800
	stallMinBrightness = 0.15
	stallMaxBrightness = 1.0

	strobeSlowMS = 400
	strobeFastMS = 60
)

// Animator owns the only mutable animation state: which state is being
// rendered and when it was entered. Everything drawn is a pure function of
// (state, elapsed-in-state, rpm, estimate), which is what makes rendering
// bit-identical across runs. The pixel buffer is reused between ticks;
// callers must copy it if they need to retain it.
type Animator struct {
	bands Bands
	mode  DisplayMode
	frame AnimationFrame

	state     LedState
	enteredMS uint64
	started   bool
}

func NewAnimator(ledCount int, bands Bands, mode DisplayMode) *Animator {
	if ledCount <= 0 {
		ledCount = DefaultLedCount
	}
	return &Animator{
		bands: bands,
		mode:  mode,
		frame: make(AnimationFrame, ledCount),
	}
}

// Render draws one tick. Entering a different state resets the in-state
// clock; staying in the same state preserves it, so animations continue
// rather than restart.
func (a *Animator) Render(nowMS uint64, state LedState, est GearEstimate, rpm uint16) AnimationFrame {
	if !a.started || state != a.state {
		a.state = state
		a.enteredMS = nowMS
		a.started = true
	}
	elapsed := nowMS - a.enteredMS

	a.clear()
	if est.ClutchEngaged && advisoryApplies(state) {
		a.renderAdvisory(est)
		return a.frame
	}
	switch state {
	case LedIdle:
		a.renderEdgeFill(elapsed, colorIdle, idleFillDelayMS, idleHoldMS)
	case LedError:
		a.renderEdgeFill(elapsed, colorError, errorFillDelayMS, errorHoldMS)
	case LedStallDanger:
		a.renderPulse(elapsed)
	case LedNormal:
		a.renderBar(rpm, colorNormal)
	case LedEfficiency:
		a.renderBar(rpm, colorEfficiency)
	case LedShiftWarning:
		a.renderShiftWarning(elapsed, rpm)
	case LedRevLimit:
		// full and unmoving, unlike every other state
		a.fill(colorRevLimit)
	}
	return a.frame
}

// advisoryApplies limits the overlay to states whose rendering is an RPM
// color mapping. Error and Idle keep their own patterns so a bus failure is
// never masked by a shift advisory.
func advisoryApplies(state LedState) bool {
	switch state {
	case LedStallDanger, LedNormal, LedEfficiency, LedShiftWarning, LedRevLimit:
		return true
	}
	return false
}

func (a *Animator) clear() {
	for i := range a.frame {
		a.frame[i] = RGB{}
	}
}

func (a *Animator) fill(c RGB) {
	for i := range a.frame {
		a.frame[i] = c
	}
}

// renderEdgeFill ignites pixels from both strip edges toward the center, one
// pair per delay interval, holds the fully lit strip, then clears and
// restarts.
func (a *Animator) renderEdgeFill(elapsedMS uint64, c RGB, delayMS, holdMS uint64) {
	n := len(a.frame)
	steps := uint64((n + 1) / 2)
	fillDur := steps * delayMS
	pos := elapsedMS % (fillDur + holdMS)

	lit := int(steps)
	if pos < fillDur {
		lit = int(pos/delayMS) + 1
	}
	for i := 0; i < lit; i++ {
		a.frame[i] = c
		a.frame[n-1-i] = c
	}
}

// renderPulse modulates the whole strip's brightness with a sine of elapsed
// time, bounded between the stall min and max brightness.
func (a *Animator) renderPulse(elapsedMS uint64) {
	phase := float64(elapsedMS%stallPeriodMS) / stallPeriodMS
	level := stallMinBrightness +
		(stallMaxBrightness-stallMinBrightness)*(0.5+0.5*math.Sin(2*math.Pi*phase))
	a.fill(scaleRGB(colorStall, level))
}

func (a *Animator) renderBar(rpm uint16, c RGB) {
	fill := a.barFill(rpm)
	n := len(a.frame)
	for i := 0; i < fill; i++ {
		a.frame[i] = c
		a.frame[n-1-i] = c
	}
}

// barFill is the per-side fill length of the mirrored bar, spanning the
// power band entry through to redline so the bar keeps growing through the
// shift-warning band.
func (a *Animator) barFill(rpm uint16) int {
	half := len(a.frame) / 2
	frac := bandFraction(rpm, a.bands.PowerBandMin, a.bands.Redline)
	return int(math.Round(float64(half) * frac))
}

func (a *Animator) renderShiftWarning(elapsedMS uint64, rpm uint16) {
	fill := a.barFill(rpm)
	n := len(a.frame)
	for i := 0; i < fill; i++ {
		a.frame[i] = colorWarn
		a.frame[n-1-i] = colorWarn
	}

	// the unfilled center gap strobes, speeding up toward redline
	t := bandFraction(rpm, a.bands.ShiftBandMin, a.bands.Redline)
	interval := uint64(strobeSlowMS + t*(strobeFastMS-strobeSlowMS))
	if interval == 0 {
		interval = 1
	}
	gap := colorWarn
	if (elapsedMS/interval)%2 == 1 {
		gap = colorContrast
	}
	for i := fill; i < n-fill; i++ {
		a.frame[i] = gap
	}
}

func (a *Animator) renderAdvisory(est GearEstimate) {
	n := len(a.frame)
	mode := a.mode
	if mode == DisplayGearNumber && est.Gear < 1 {
		mode = DisplayDash
	}
	switch mode {
	case DisplayGearNumber:
		count := int(est.Gear)
		if count > n {
			count = n
		}
		start := (n - count) / 2
		for i := start; i < start+count; i++ {
			a.frame[i] = colorAdvisory
		}
	case DisplayClutchGlyph:
		for i := 0; i < n; i += 2 {
			a.frame[i] = colorAdvisory
		}
	case DisplaySlipGlyph:
		block := n / 4
		if block == 0 {
			block = 1
		}
		for i := 0; i < block && i < n; i++ {
			a.frame[i] = colorAdvisory
			a.frame[n-1-i] = colorAdvisory
		}
	case DisplayDash:
		lo := (n - 1) / 2
		hi := n / 2
		a.frame[lo] = colorAdvisory
		a.frame[hi] = colorAdvisory
	}
}

// bandFraction is rpm's position within [min, max], clamped to 0..1.
func bandFraction(rpm, min, max uint16) float64 {
	if max <= min {
		return 0
	}
	f := (float64(rpm) - float64(min)) / (float64(max) - float64(min))
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func scaleRGB(c RGB, f float64) RGB {
	return RGB{
		R: uint8(math.Round(float64(c.R) * f)),
		G: uint8(math.Round(float64(c.G) * f)),
		B: uint8(math.Round(float64(c.B) * f)),
	}
}
