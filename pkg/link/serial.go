package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the factory setting of HC-12 modules.
const DefaultBaudRate = 9600

// OpenError is returned when a link can't be opened.
type OpenError struct {
	Link string
	Err  error
}

// Error implements error.
func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Link, e.Err)
}

// Unwrap returns the cause.
func (e *OpenError) Unwrap() error {
	return e.Err
}

// IsNotFound tells if the device of the link is absent, which
// is expected while a USB adapter is unplugged.
func IsNotFound(err error) bool {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		return portErr.Code() == serial.PortNotFound
	}
	var portErrVal serial.PortError
	if errors.As(err, &portErrVal) {
		return portErrVal.Code() == serial.PortNotFound
	}
	return false
}

// Serial is a Source reading from a serial port, 8N1.
type Serial struct {
	Path     string
	BaudRate int
}

// SerialFromURL parses serial:///dev/ttyUSB0?baud=9600, a plain
// device path is accepted as well.
func SerialFromURL(s string) (*Serial, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "" && u.Scheme != "serial" {
		return nil, fmt.Errorf("unsupported serial link scheme %q", u.Scheme)
	}
	path := u.Path
	if u.Host != "" {
		path = u.Host + path
	}
	if path == "" {
		return nil, fmt.Errorf("missing serial device in %q", s)
	}
	port := &Serial{Path: path, BaudRate: DefaultBaudRate}
	if baud := u.Query().Get("baud"); baud != "" {
		if port.BaudRate, err = strconv.Atoi(baud); err != nil || port.BaudRate <= 0 {
			return nil, fmt.Errorf("invalid baud rate %q", baud)
		}
	}
	return port, nil
}

// Open implements Source.
func (s *Serial) Open(context.Context) (io.ReadCloser, error) {
	return s.OpenPort()
}

// OpenPort opens the port for both directions.
func (s *Serial) OpenPort() (serial.Port, error) {
	baud := s.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(s.Path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, &OpenError{Link: s.Path, Err: err}
	}
	return port, nil
}

// String implements fmt.Stringer.
func (s *Serial) String() string {
	return fmt.Sprintf("serial %s@%d", s.Path, s.BaudRate)
}
