package mx5

import (
	log "github.com/sirupsen/logrus"
)

// Health is the signal the LED state machine consumes. Anything other than
// HealthOK forces the Error state.
type Health uint8

const (
	HealthOK Health = iota
	HealthStale
)

func (h Health) String() string {
	if h == HealthOK {
		return "ok"
	}
	return "stale"
}

const defaultStaleTimeoutMS = 500

// ReinitFunc is invoked when the bus-error counter crosses the configured
// threshold. It typically asks the transport collaborator to re-initialize
// the controller.
type ReinitFunc func(busErrors int)

// Monitor tracks bus errors and data staleness. Staleness is derived from
// EngineSample.LastUpdateMS, so it self-heals the instant a valid frame
// lands; there is no acknowledge step.
type Monitor struct {
	StaleTimeoutMS uint64

	// BusErrorThreshold of zero disables the reinit policy entirely, which
	// is the default: reinit thrash on a marginal bus is worse than the
	// errors themselves.
	BusErrorThreshold int
	Reinit            ReinitFunc

	busErrors    int
	decodeErrors int
}

func NewMonitor() *Monitor {
	return &Monitor{
		StaleTimeoutMS: defaultStaleTimeoutMS,
	}
}

// BusError records one hardware-reported fault flag. When the threshold is
// crossed the reinit policy fires once and the counter resets.
func (m *Monitor) BusError() {
	m.busErrors++
	if m.BusErrorThreshold > 0 && m.busErrors >= m.BusErrorThreshold {
		log.WithField("busErrors", m.busErrors).Warn("bus error threshold crossed")
		if m.Reinit != nil {
			m.Reinit(m.busErrors)
		}
		m.busErrors = 0
	}
}

// DecodeError records a tracked frame that arrived with an unexpected length.
func (m *Monitor) DecodeError() {
	m.decodeErrors++
}

func (m *Monitor) BusErrors() int {
	return m.busErrors
}

func (m *Monitor) DecodeErrors() int {
	return m.decodeErrors
}

// Status reports staleness against the sample's last update. A sample that
// has never been updated reads as stale once the timeout has elapsed from
// boot.
func (m *Monitor) Status(nowMS uint64, s *EngineSample) Health {
	timeout := m.StaleTimeoutMS
	if timeout == 0 {
		timeout = defaultStaleTimeoutMS
	}
	if nowMS-s.LastUpdateMS > timeout {
		return HealthStale
	}
	return HealthOK
}
