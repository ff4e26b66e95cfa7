package forwarder

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	mx5 "github.com/tnnrhpwd/MX5-Telemetry-sub002"
)

type UDPConfig struct {
	Server string
	Port   int
}

// UDPForwarder ships interpreted snapshots to a remote pit/debug console as
// little-endian binary datagrams, rate limited so a busy bus cannot flood
// the link.
type UDPForwarder struct {
	Config *UDPConfig

	conn    net.Conn
	fwdChan chan *mx5.Snapshot
}

func NewUDPForwarder(fileName string) (*UDPForwarder, error) {
	dir, err := filepath.Abs(filepath.Dir(os.Args[0]))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to determine binary location")
	}
	file, err := os.Open(filepath.Join(dir, fileName))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open file %s", fileName)
	}
	defer file.Close()
	return NewUDPForwarderFromReader(file)
}

func NewUDPForwarderFromReader(configReader io.Reader) (*UDPForwarder, error) {
	configData, err := io.ReadAll(configReader)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read config reader")
	}
	config := UDPConfig{}
	if _, err := toml.Decode(string(configData), &config); err != nil {
		return nil, errors.Wrapf(err, "unable to load udp forwarder configuration")
	}
	udp := &UDPForwarder{
		Config:  &config,
		fwdChan: make(chan *mx5.Snapshot, 1),
	}
	if err = udp.connect(); err != nil {
		return nil, err
	}
	return udp, nil
}

func (udp *UDPForwarder) Close() error {
	return udp.conn.Close()
}

// Forward queues the snapshot for the sending goroutine. A full queue drops
// the update; the next changed tick will requeue fresher data anyway.
func (udp *UDPForwarder) Forward(newSnapshot *mx5.Snapshot, prevSnapshot *mx5.Snapshot) error {
	snapCopy := *newSnapshot
	select {
	case udp.fwdChan <- &snapCopy:
	default:
	}
	return nil
}

func (udp *UDPForwarder) Start(ctx context.Context) error {
	limiter := time.Tick(100 * time.Millisecond)
	for {
		<-limiter
		select {
		case s := <-udp.fwdChan:
			if err := udp.forward(s); err != nil {
				log.Error("unable to forward snapshot to server ", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (udp *UDPForwarder) forward(s *mx5.Snapshot) error {
	buf := bytes.NewBuffer([]byte{})
	hdr := Header{
		Type: TypeSnapshot,
	}
	if err := binary.Write(buf, binary.LittleEndian, &hdr); err != nil {
		return errors.Wrap(err, "unable to write udp packet header")
	}
	if err := binary.Write(buf, binary.LittleEndian, s); err != nil {
		return errors.Wrap(err, "unable to write snapshot udp packet")
	}
	return binary.Write(udp.conn, binary.LittleEndian, buf.Bytes())
}

func (udp *UDPForwarder) connect() error {
	conn, err := net.Dial("udp", fmt.Sprintf("%s:%d",
		udp.Config.Server,
		udp.Config.Port))
	if err != nil {
		return err
	}
	udp.conn = conn
	return nil
}
