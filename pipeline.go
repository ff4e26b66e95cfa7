package mx5

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

const channelBufferSize = 16

// to allow testing
var nowMillis = func() uint64 {
	return uint64(time.Now().UnixMilli())
}

// Pipeline wires decode, health, gear estimation, state selection and
// animation together. The engine sample has a single writer (the pipeline
// goroutine draining frameChan) and is only read on the same goroutine's
// ticks, so no locking is needed; cross-goroutine handoff happens at the
// bounded channels only.
type Pipeline struct {
	frameChan  chan Frame
	busErrChan chan struct{}

	cfg  *Config
	mode DisplayMode

	sample   EngineSample
	estimate GearEstimate
	health   *Monitor
	machine  *StateMachine
	anim     *Animator

	snapshot Snapshot

	canRunner  *canRunner
	forwarders []Forwarder
	drivers    []LedDriver

	testMode bool
}

func NewPipeline(cfg *Config) *Pipeline {
	mode, err := ParseDisplayMode(cfg.Led.DisplayMode)
	if err != nil {
		// config validation catches this for loaded files
		mode = DisplayGearNumber
	}

	monitor := NewMonitor()
	if cfg.Health.StaleTimeoutMS != 0 {
		monitor.StaleTimeoutMS = cfg.Health.StaleTimeoutMS
	}
	monitor.BusErrorThreshold = cfg.Health.BusErrorThreshold

	p := &Pipeline{
		frameChan:  make(chan Frame, channelBufferSize),
		busErrChan: make(chan struct{}, channelBufferSize),
		cfg:        cfg,
		mode:       mode,
		health:     monitor,
		machine:    NewStateMachine(cfg.Bands),
		anim:       NewAnimator(cfg.Led.Count, cfg.Bands, mode),
	}
	p.canRunner = &canRunner{
		iface:    cfg.CANInterface,
		pipeline: p,
	}
	if cfg.Health.BusErrorThreshold > 0 {
		monitor.Reinit = p.reinitBus
	}
	return p
}

// reinitBus closes the live bus connection so the retry loop brings it back
// up. Only wired in when a bus-error threshold is configured.
func (p *Pipeline) reinitBus(busErrors int) {
	bus := p.canRunner.CANBus()
	if bus == nil {
		return
	}
	log.WithField("busErrors", busErrors).Warn("requesting canbus re-initialization")
	if err := bus.Close(); err != nil {
		log.WithField("err", err).Warn("unable to close canbus for reinit")
	}
}

func (p *Pipeline) AddForwarder(f Forwarder) {
	p.forwarders = append(p.forwarders, f)
}

// AddTokenForwarder publishes status tokens back over the CAN transport.
func (p *Pipeline) AddTokenForwarder() {
	p.AddForwarder(&TokenForwarder{
		runner: p.canRunner,
		mode:   p.mode,
	})
}

func (p *Pipeline) AddLedDriver(d LedDriver) {
	p.drivers = append(p.drivers, d)
}

func (p *Pipeline) SetTestMode(enabled bool) {
	p.testMode = enabled
}

// Start launches the frame source: the CAN transport with its retry loop,
// or the synthetic generator in test mode.
func (p *Pipeline) Start(ctx context.Context) {
	if p.testMode {
		log.Info("test mode: generating synthetic frames")
		go p.runTestMode(ctx)
		return
	}
	go runCAN(ctx, p.canRunner)
}

// OfferFrame hands a frame to the pipeline without blocking the transport
// goroutine. Frames are not buffered beyond the channel; a full channel
// drops the frame, as a missed poll would on the microcontroller.
func (p *Pipeline) OfferFrame(f Frame) {
	select {
	case p.frameChan <- f:
	default:
	}
}

func (p *Pipeline) OfferBusError() {
	select {
	case p.busErrChan <- struct{}{}:
	default:
	}
}

// CheckChannels consumes one pending event, reporting whether the engine
// sample changed.
func (p *Pipeline) CheckChannels() bool {
	select {
	case f := <-p.frameChan:
		return p.handleFrame(f)
	case <-p.busErrChan:
		p.health.BusError()
		return false
	}
}

func (p *Pipeline) handleFrame(f Frame) bool {
	switch DecodeFrame(f, nowMillis(), &p.sample) {
	case DecodeUpdated:
		return true
	case DecodeMalformed:
		p.health.DecodeError()
	}
	return false
}

// Tick runs one animation step: estimate gear, select the LED state, render,
// push to the LED drivers and forward the snapshot if it changed. The
// returned buffer is reused between ticks.
func (p *Pipeline) Tick() AnimationFrame {
	now := nowMillis()
	p.estimate = p.cfg.Profile.Estimate(&p.sample)
	health := p.health.Status(now, &p.sample)
	state := p.machine.Select(health, p.sample.RPM, p.sample.Speed)
	frame := p.anim.Render(now, state, p.estimate, p.sample.RPM)

	for _, d := range p.drivers {
		if err := d.Write(frame); err != nil {
			log.WithField("err", err).Warn("unable to write led frame")
		}
	}

	newSnapshot := Snapshot{
		RPM:           p.sample.RPM,
		Speed:         p.sample.Speed,
		Gear:          int8(p.estimate.Gear),
		Confidence:    p.estimate.Confidence,
		ClutchEngaged: p.estimate.ClutchEngaged,
		State:         uint8(state),
		Stale:         health != HealthOK,
	}
	if newSnapshot != p.snapshot {
		prevSnapshot := p.snapshot
		p.snapshot = newSnapshot
		for _, fw := range p.forwarders {
			if err := fw.Forward(&newSnapshot, &prevSnapshot); err != nil {
				log.Error("unable to forward snapshot ", err)
			}
		}
	}
	return frame
}

func (p *Pipeline) Snapshot() Snapshot {
	return p.snapshot
}

// Run is the cooperative loop of the host deployment: decode events as they
// arrive, animate at the configured tick interval.
func (p *Pipeline) Run(ctx context.Context) error {
	tick := time.NewTicker(time.Duration(p.cfg.Led.TickIntervalMS) * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-p.frameChan:
			p.handleFrame(f)
		case <-p.busErrChan:
			p.health.BusError()
		case <-tick.C:
			p.Tick()
		}
	}
}
