package ledout

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	mx5 "github.com/tnnrhpwd/MX5-Telemetry-sub002"
)

func TestUDPDriver(t *testing.T) {
	pc, err := net.ListenPacket("udp", "localhost:0")
	assert.NoError(t, err)
	defer pc.Close()
	udpAddr := pc.LocalAddr().(*net.UDPAddr)

	drv, err := NewUDPDriver("127.0.0.1", udpAddr.Port)
	assert.NoError(t, err)
	defer drv.Close()

	frame := mx5.AnimationFrame{
		{R: 1, G: 2, B: 3},
		{R: 4, G: 5, B: 6},
	}
	assert.NoError(t, drv.Write(frame))

	buffer := make([]byte, 64)
	assert.NoError(t, pc.SetReadDeadline(time.Now().Add(time.Second*3)))
	n, _, err := pc.ReadFrom(buffer)
	assert.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, buffer[:n])
}

func TestBuffer(t *testing.T) {
	b := &Buffer{}
	frame := mx5.AnimationFrame{{R: 10}, {G: 20}}
	assert.NoError(t, b.Write(frame))
	assert.Equal(t, 1, b.Frames)
	assert.Equal(t, frame, b.Last)

	// the driver keeps its own copy
	frame[0].R = 99
	assert.Equal(t, uint8(10), b.Last[0].R)

	assert.NoError(t, b.Write(frame))
	assert.Equal(t, 2, b.Frames)
	assert.NoError(t, b.Close())
}
