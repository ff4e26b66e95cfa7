// Package ledout holds LED driver collaborators. A driver receives the
// rendered pixel buffer and performs the physical strip protocol; the core
// never addresses hardware directly.
package ledout

import (
	"fmt"
	"net"

	"github.com/pkg/errors"

	mx5 "github.com/tnnrhpwd/MX5-Telemetry-sub002"
)

// UDPDriver ships raw RGB bytes to a strip bridge (for example a
// microcontroller listening on the bench network).
type UDPDriver struct {
	conn net.Conn
	buf  []byte
}

func NewUDPDriver(server string, port int) (*UDPDriver, error) {
	conn, err := net.Dial("udp", fmt.Sprintf("%s:%d", server, port))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to reach led bridge %s:%d", server, port)
	}
	return &UDPDriver{conn: conn}, nil
}

func (d *UDPDriver) Write(frame mx5.AnimationFrame) error {
	need := len(frame) * 3
	if cap(d.buf) < need {
		d.buf = make([]byte, need)
	}
	d.buf = d.buf[:need]
	for i, px := range frame {
		d.buf[i*3] = px.R
		d.buf[i*3+1] = px.G
		d.buf[i*3+2] = px.B
	}
	if _, err := d.conn.Write(d.buf); err != nil {
		return errors.Wrap(err, "unable to write led frame")
	}
	return nil
}

func (d *UDPDriver) Close() error {
	return d.conn.Close()
}

// Buffer is an in-memory driver for tests and print mode.
type Buffer struct {
	Frames int
	Last   mx5.AnimationFrame
}

func (b *Buffer) Write(frame mx5.AnimationFrame) error {
	if len(b.Last) != len(frame) {
		b.Last = make(mx5.AnimationFrame, len(frame))
	}
	copy(b.Last, frame)
	b.Frames++
	return nil
}

func (b *Buffer) Close() error {
	return nil
}
