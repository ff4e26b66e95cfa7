package socketcan

import (
	"context"

	"github.com/brutella/can"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Raw socketcan ID flag bits.
const (
	flagError    uint32 = 0x20000000
	flagRTR      uint32 = 0x40000000
	maskExtended uint32 = 0x1fffffff
)

// frameStatusToken carries the short advisory token published back onto the
// bus for the serial-display node.
const frameStatusToken uint32 = 0x50b

type FrameFn func(can.Frame)

// Callbacks receive every data frame seen on the bus (ID already masked) and
// a signal per hardware-reported error frame. Which IDs matter is the
// consumer's business, not the transport's.
type Callbacks struct {
	Frame    FrameFn
	BusError func()
}

type CANBus interface {
	SubscribeFunc(can.HandlerFunc)
	ConnectAndPublish() error
	Disconnect() error
	Publish(can.Frame) error
}

type Connection struct {
	bus CANBus
	cb  Callbacks
}

// to allow testing
var newBus = func(portName string) (CANBus, error) {
	return can.NewBusForInterfaceWithName(portName)
}

func Connect(portName string) (*Connection, error) {
	bus, err := newBus(portName)
	if err != nil {
		return nil, err
	}
	return &Connection{bus: bus}, nil
}

func (c *Connection) Start(ctx context.Context, cb Callbacks) error {
	c.cb = cb
	c.bus.SubscribeFunc(c.handleFrame)
	log.Info("CAN bus opened and subscribed")

	go func() {
		<-ctx.Done()
		log.Infof("stopping can bus: %v", ctx.Err())
		if err := c.bus.Disconnect(); err != nil {
			log.WithField("err", err).Warn("unable to disconnect canbus after context")
		}
	}()

	return c.bus.ConnectAndPublish()
}

func (c *Connection) Close() error {
	if c.bus == nil {
		return errors.New("can bus not connected")
	}
	return c.bus.Disconnect()
}

// SendToken publishes a status token frame for the external serial-display
// collaborator.
func (c *Connection) SendToken(token string) error {
	if c.bus == nil {
		return errors.New("can bus not connected")
	}
	if len(token) > 8 {
		return errors.Errorf("token %q does not fit a frame", token)
	}
	log.WithField("token", token).Debug("sending status token over canbus")
	f := can.Frame{
		ID:     frameStatusToken,
		Length: uint8(len(token)),
	}
	copy(f.Data[:], token)
	return c.bus.Publish(f)
}

func (c *Connection) handleFrame(frame can.Frame) {
	if frame.ID&flagError != 0 {
		log.WithField("canID", frame.ID).Debug("bus error frame")
		if c.cb.BusError != nil {
			c.cb.BusError()
		}
		return
	}
	if frame.ID&flagRTR != 0 {
		// remote requests carry no data worth decoding
		return
	}
	frame.ID &= maskExtended

	log.WithField("canID", frame.ID).
		WithField("length", frame.Length).
		Debug("received canbus frame")

	if c.cb.Frame == nil {
		log.WithField("canID", frame.ID).Debug("no frame callback registered")
		return
	}
	c.cb.Frame(frame)
}
