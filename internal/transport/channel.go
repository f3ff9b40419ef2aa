// Package transport provides the byte channels fiscal drivers talk through
// (serial and TCP with STX/length/ETX/LRC framing) and the connection
// factory that binds a vendor driver to a printer URI.
package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	stx = 0x02
	etx = 0x03

	defaultBaudRate = 115200
	defaultTimeout  = 3 * time.Second
)

var errShortFrame = errors.New("short response frame")

// FramedChannel frames request/response payloads over an io.ReadWriteCloser:
// STX, two-byte little-endian length, payload, ETX, XOR checksum over the
// preceding bytes. One Send is answered by one Receive.
type FramedChannel struct {
	mu sync.Mutex
	rw io.ReadWriteCloser
}

// Send writes one framed request.
func (c *FramedChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rw == nil {
		return errors.New("channel is closed")
	}
	packet := make([]byte, 0, len(data)+5)
	packet = append(packet, stx)
	lenBuf := make([]byte, 2)
	binary.LittleEndian.PutUint16(lenBuf, uint16(len(data)))
	packet = append(packet, lenBuf...)
	packet = append(packet, data...)
	packet = append(packet, etx)
	lrc := byte(0)
	for _, b := range packet {
		lrc ^= b
	}
	packet = append(packet, lrc)
	_, err := c.rw.Write(packet)
	return err
}

// Receive reads one framed response and returns its payload with the frame
// and checksum stripped.
func (c *FramedChannel) Receive() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rw == nil {
		return nil, errors.New("channel is closed")
	}

	buf := make([]byte, 1)
	frame := make([]byte, 0, 256)
	for {
		n, err := c.rw.Read(buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			continue
		}
		frame = append(frame, buf[0])
		if buf[0] == etx && framed(frame) {
			break
		}
	}
	lrcBuf := make([]byte, 1)
	if _, err := io.ReadFull(c.rw, lrcBuf); err != nil {
		return nil, err
	}
	lrc := byte(0)
	for _, b := range frame {
		lrc ^= b
	}
	if lrc != lrcBuf[0] {
		return nil, fmt.Errorf("frame checksum mismatch: got %02X, want %02X", lrcBuf[0], lrc)
	}
	if len(frame) < 4 {
		return nil, errShortFrame
	}
	return frame[3 : len(frame)-1], nil
}

// framed reports whether the accumulated bytes form a complete frame: the
// declared length must match, so payload bytes that happen to equal ETX do
// not terminate the read early.
func framed(frame []byte) bool {
	if len(frame) < 4 || frame[0] != stx {
		return false
	}
	declared := int(binary.LittleEndian.Uint16(frame[1:3]))
	return len(frame) == declared+4
}

// Close releases the underlying port or socket.
func (c *FramedChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rw == nil {
		return nil
	}
	err := c.rw.Close()
	c.rw = nil
	return err
}

// OpenSerial opens a COM/tty port channel. An empty baud rate falls back to
// the device default.
func OpenSerial(portName string, baudRate int, timeout time.Duration) (*FramedChannel, error) {
	if baudRate == 0 {
		baudRate = defaultBaudRate
	}
	if timeout == 0 {
		timeout = defaultTimeout
	}
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", portName, err)
	}
	return &FramedChannel{rw: port}, nil
}

// OpenTCP dials a LAN-attached printer. The connection stays up for the
// channel's lifetime; deadlines are refreshed per exchange by the deadline
// wrapper.
func OpenTCP(addr string, timeout time.Duration) (*FramedChannel, error) {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("connect tcp %s: %w", addr, err)
	}
	return &FramedChannel{rw: &deadlineConn{Conn: conn, timeout: timeout}}, nil
}

// deadlineConn pushes the read/write deadline forward on every operation so
// a wedged device fails the exchange instead of hanging the worker forever.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (d *deadlineConn) Read(p []byte) (int, error) {
	if err := d.Conn.SetReadDeadline(time.Now().Add(d.timeout)); err != nil {
		return 0, err
	}
	return d.Conn.Read(p)
}

func (d *deadlineConn) Write(p []byte) (int, error) {
	if err := d.Conn.SetWriteDeadline(time.Now().Add(d.timeout)); err != nil {
		return 0, err
	}
	return d.Conn.Write(p)
}

// ListSerialPorts enumerates host serial ports for auto-detect.
func ListSerialPorts() ([]string, error) {
	return serial.GetPortsList()
}
