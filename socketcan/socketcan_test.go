package socketcan

import (
	"context"
	"sync"
	"testing"

	"github.com/brutella/can"
	"github.com/stretchr/testify/assert"
)

type busStub struct {
	disconnected bool
	subscribed   bool
	stopChan     chan struct{}
	startedChan  chan struct{}
	publishChan  chan *can.Frame
}

func (bus *busStub) SubscribeFunc(can.HandlerFunc) {
	bus.subscribed = true
}

func (bus *busStub) ConnectAndPublish() error {
	bus.startedChan <- struct{}{}
	<-bus.stopChan
	return nil
}

func (bus *busStub) Disconnect() error {
	bus.disconnected = true
	if bus.stopChan != nil {
		bus.stopChan <- struct{}{}
	}
	return nil
}

func (bus *busStub) Publish(f can.Frame) error {
	bus.publishChan <- &f
	return nil
}

func TestConnect(t *testing.T) {
	origNewBus := newBus
	bus := &busStub{
		stopChan: make(chan struct{}, 1),
	}
	newBus = func(string) (CANBus, error) {
		return bus, nil
	}
	defer func() {
		newBus = origNewBus
	}()

	c, err := Connect("fakeport")
	assert.NotNil(t, c)
	assert.NoError(t, err)
	assert.IsType(t, &busStub{}, c.bus)

	assert.NoError(t, c.Close())
	assert.True(t, bus.disconnected)
}

func TestStart(t *testing.T) {
	bus := &busStub{
		stopChan:    make(chan struct{}),
		startedChan: make(chan struct{}),
	}

	c := &Connection{
		bus: bus,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		assert.NoError(t, c.Start(ctx, Callbacks{}))
		wg.Done()
	}()
	<-bus.startedChan
	assert.True(t, bus.subscribed)
	cancel()
	wg.Wait()
}

func TestSendToken(t *testing.T) {
	bus := &busStub{
		publishChan: make(chan *can.Frame, 1),
	}

	c := &Connection{
		bus: bus,
	}

	assert.NoError(t, c.SendToken("3"))
	f := <-bus.publishChan
	assert.Equal(t, frameStatusToken, f.ID)
	assert.Equal(t, uint8(1), f.Length)
	assert.Equal(t, uint8('3'), f.Data[0])

	assert.Error(t, c.SendToken("way too long"))
}

func TestSendTokenNotConnected(t *testing.T) {
	c := &Connection{}
	assert.Error(t, c.SendToken("N"))
}

func TestHandleFrame(t *testing.T) {
	var received []can.Frame
	busErrors := 0

	c := &Connection{
		cb: Callbacks{
			Frame: func(f can.Frame) {
				received = append(received, f)
			},
			BusError: func() {
				busErrors++
			},
		},
	}

	c.handleFrame(can.Frame{ID: 0x201, Length: 8})
	assert.Len(t, received, 1)
	assert.Equal(t, uint32(0x201), received[0].ID)

	// extended-frame flag bits are stripped before delivery
	c.handleFrame(can.Frame{ID: 0x80000201, Length: 8})
	assert.Len(t, received, 2)
	assert.Equal(t, uint32(0x201), received[1].ID)

	// error frames surface as bus errors, not data
	c.handleFrame(can.Frame{ID: flagError | 0x01, Length: 8})
	assert.Len(t, received, 2)
	assert.Equal(t, 1, busErrors)

	// remote requests are dropped
	c.handleFrame(can.Frame{ID: flagRTR | 0x201, Length: 0})
	assert.Len(t, received, 2)
	assert.Equal(t, 1, busErrors)
}

func TestHandleFrameNoCallbacks(t *testing.T) {
	c := &Connection{}
	assert.NotPanics(t, func() {
		c.handleFrame(can.Frame{ID: 0x201, Length: 8})
		c.handleFrame(can.Frame{ID: flagError, Length: 8})
	})
}
