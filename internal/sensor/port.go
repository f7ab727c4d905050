package sensor

import (
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"
)

// SerialPorter is the part of a serial port the accelerometer driver uses.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutSerialPorter is implemented by ports whose read timeout can be set.
type TimeoutSerialPorter interface {
	SerialPorter
	SetReadTimeout(timeout time.Duration) error
}

// PortOpener opens a serial port at path. Tests replace it to avoid hardware.
type PortOpener func(path string, opts PortOptions) (SerialPorter, error)

// PortOptions are the line settings of an accelerometer's serial port.
type PortOptions struct {
	BaudRate    int           `json:"baud_rate"`
	DataBits    int           `json:"data_bits"`
	StopBits    int           `json:"stop_bits"`
	Parity      string        `json:"parity"`
	ReadTimeout time.Duration `json:"read_timeout"`
}

var parities = map[string]serial.Parity{
	"N": serial.NoParity,
	"E": serial.EvenParity,
	"O": serial.OddParity,
}

// Normalize fills unset fields with 115200 8N1 and a 10ms read timeout, and
// rejects settings the driver cannot apply. Parity accepts N/E/O or
// none/even/odd in any case.
func (o PortOptions) Normalize() (PortOptions, error) {
	if o.BaudRate <= 0 {
		o.BaudRate = 115200
	}
	if o.DataBits == 0 {
		o.DataBits = 8
	}
	if o.DataBits < 5 || o.DataBits > 8 {
		return o, fmt.Errorf("invalid data bits %d: must be between 5 and 8", o.DataBits)
	}
	if o.StopBits == 0 {
		o.StopBits = 1
	}
	if o.StopBits != 1 && o.StopBits != 2 {
		return o, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", o.StopBits)
	}

	parity := strings.ToUpper(strings.TrimSpace(o.Parity))
	switch parity {
	case "", "NONE":
		parity = "N"
	case "EVEN":
		parity = "E"
	case "ODD":
		parity = "O"
	}
	if _, ok := parities[parity]; !ok {
		return o, fmt.Errorf("unsupported parity %q: expected N, E, or O", o.Parity)
	}
	o.Parity = parity

	// a micro-read must not stall a whole cycle
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 10 * time.Millisecond
	}
	return o, nil
}

// SerialMode converts the options into the go.bug.st/serial mode.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	n, err := o.Normalize()
	if err != nil {
		return nil, err
	}
	mode := &serial.Mode{
		BaudRate: n.BaudRate,
		DataBits: n.DataBits,
		Parity:   parities[n.Parity],
		StopBits: serial.OneStopBit,
	}
	if n.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	return mode, nil
}

// OpenSerialPort is the PortOpener backed by go.bug.st/serial. The returned
// port is a TimeoutSerialPorter; SerialSensor.Open applies opts.ReadTimeout.
func OpenSerialPort(path string, opts PortOptions) (SerialPorter, error) {
	n, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	mode, err := n.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	return port, nil
}

// ListPorts returns the serial ports present on the system.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
