package mx5

import (
	"context"

	"github.com/brutella/can"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tnnrhpwd/MX5-Telemetry-sub002/socketcan"
)

// to allow testing
var canConnect = func(p string) (CANBus, error) {
	return socketcan.Connect(p)
}

// canRunner adapts the socketcan connection to the retry loop and feeds
// every received frame into the pipeline.
type canRunner struct {
	c        CANBus
	iface    string
	pipeline *Pipeline
}

func (r *canRunner) Name() string {
	return "canbus"
}

func (r *canRunner) Open() error {
	c, err := canConnect(r.iface)
	r.c = c
	return err
}

func (r *canRunner) Close() error {
	if r.c == nil {
		return nil
	}
	return r.c.Close()
}

func (r *canRunner) CANBus() CANBus {
	return r.c
}

func (r *canRunner) Start(ctx context.Context) error {
	return r.c.Start(ctx, socketcan.Callbacks{
		Frame: func(f can.Frame) {
			r.pipeline.OfferFrame(Frame{
				ID:     f.ID,
				Length: f.Length,
				Data:   f.Data,
			})
		},
		BusError: r.pipeline.OfferBusError,
	})
}

func runCAN(ctx context.Context, r *canRunner) {
	if err := retry(ctx, r); err != nil {
		log.Errorf("canbus done: %v", err)
	}
}

// TokenForwarder publishes the status token back onto the bus whenever it
// changes, for the external serial-display node.
type TokenForwarder struct {
	runner *canRunner
	mode   DisplayMode
}

func (t *TokenForwarder) Forward(newSnapshot *Snapshot, prevSnapshot *Snapshot) error {
	newToken := snapshotToken(t.mode, newSnapshot)
	if snapshotToken(t.mode, prevSnapshot) == newToken {
		return nil
	}
	bus := t.runner.CANBus()
	if bus == nil {
		return errors.New("canbus is not initialized")
	}
	if err := bus.SendToken(newToken); err != nil {
		return errors.Wrapf(err, "unable to send token %q to CAN bus", newToken)
	}
	return nil
}

func snapshotToken(mode DisplayMode, s *Snapshot) string {
	return StatusToken(mode, GearEstimate{
		Gear:          Gear(s.Gear),
		Confidence:    s.Confidence,
		ClutchEngaged: s.ClutchEngaged,
	})
}
