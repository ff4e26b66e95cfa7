package mx5

import (
	"context"

	"github.com/tnnrhpwd/MX5-Telemetry-sub002/socketcan"
)

// CANBus is the transport collaborator. It owns controller bring-up and
// interrupt wiring; this core only consumes the frames it hands over.
type CANBus interface {
	Close() error
	Start(context.Context, socketcan.Callbacks) error
	SendToken(string) error
}

// LedDriver consumes the rendered pixel buffer and performs the physical
// strip protocol.
type LedDriver interface {
	Write(AnimationFrame) error
	Close() error
}

// Forwarder relays interpreted snapshots to an external consumer.
type Forwarder interface {
	Forward(newSnapshot *Snapshot, prevSnapshot *Snapshot) error
}
