package sensor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"unicode"
)

// pollCommand asks the accelerometer firmware for one reading.
const pollCommand = "R\n"

// maxLineLen bounds a response line; anything longer is treated as garbage.
const maxLineLen = 256

// SerialSensor is an accelerometer attached over a serial link. Each Read
// writes a poll command and parses one response line, either "x,y,z" or a
// JSON object {"x":..,"y":..,"z":..}.
type SerialSensor struct {
	Base

	path   string
	opts   PortOptions
	opener PortOpener

	ioMu    sync.Mutex
	port    SerialPorter
	buf     []byte
	pending []byte
	// stale is set after a timed-out poll whose reply may still arrive.
	stale bool
}

// NewSerialSensor returns a sensor for the device at path. A nil opener uses
// OpenSerialPort.
func NewSerialSensor(path string, t Type, opts PortOptions, opener PortOpener) *SerialSensor {
	if opener == nil {
		opener = OpenSerialPort
	}
	if t == TypeNotFound {
		t = TypeSerial
	}
	s := &SerialSensor{
		path:   path,
		opts:   opts,
		opener: opener,
		buf:    make([]byte, 64),
	}
	s.Init(t, path)
	return s
}

// Open opens the serial port. Calling Open on an open sensor is a no-op.
func (s *SerialSensor) Open() error {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()

	if s.port != nil {
		return nil
	}
	opts, err := s.opts.Normalize()
	if err != nil {
		return fmt.Errorf("invalid options for %s: %w", s.path, err)
	}
	port, err := s.opener(s.path, opts)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.path, err)
	}
	if tp, ok := port.(TimeoutSerialPorter); ok {
		if err := tp.SetReadTimeout(opts.ReadTimeout); err != nil {
			port.Close()
			return fmt.Errorf("failed to set read timeout on %s: %w", s.path, err)
		}
	}
	s.port = port
	s.pending = s.pending[:0]
	s.stale = false
	s.setPort(portNumber(s.path))
	s.logf("opened %s on %s", s.Identity().Type, s.path)
	return nil
}

// Close closes the serial port. Calling Close on a closed sensor is a no-op.
func (s *SerialSensor) Close() error {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()

	if s.port == nil {
		return nil
	}
	s.logf("closing port %s", s.path)
	err := s.port.Close()
	s.port = nil
	s.setPort(-1)
	return err
}

// Read polls the device and parses one reading.
func (s *SerialSensor) Read() (Reading, error) {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()

	if s.port == nil {
		return Reading{}, ErrNotOpen
	}

	if s.stale {
		s.discardInput()
	}

	n, err := s.port.Write([]byte(pollCommand))
	if err != nil {
		return Reading{}, fmt.Errorf("failed to poll sensor: %w", err)
	}
	if n != len(pollCommand) {
		return Reading{}, fmt.Errorf("short poll write: %d of %d bytes", n, len(pollCommand))
	}

	line, err := s.readLine()
	if err != nil {
		if errors.Is(err, ErrReadTimeout) {
			s.pending = s.pending[:0]
			s.stale = true
		}
		return Reading{}, err
	}
	return ParseReading(line)
}

// discardInput drops whatever a late reply left in the port so the next
// poll is answered in step. It reads until the port times out, at most a few
// lines' worth.
func (s *SerialSensor) discardInput() {
	s.pending = s.pending[:0]
	s.stale = false
	for dropped := 0; dropped < 4*maxLineLen; {
		n, err := s.port.Read(s.buf)
		if n == 0 || err != nil {
			break
		}
		dropped += n
	}
}

func (s *SerialSensor) readLine() (string, error) {
	for {
		if i := bytes.IndexByte(s.pending, '\n'); i >= 0 {
			line := string(s.pending[:i])
			s.pending = append(s.pending[:0], s.pending[i+1:]...)
			return strings.TrimSpace(line), nil
		}
		if len(s.pending) > maxLineLen {
			s.pending = s.pending[:0]
			return "", fmt.Errorf("response line exceeds %d bytes", maxLineLen)
		}

		n, err := s.port.Read(s.buf)
		if n > 0 {
			s.pending = append(s.pending, s.buf[:n]...)
			continue
		}
		// go.bug.st/serial reports a read timeout as (0, nil)
		if err == nil || errors.Is(err, io.EOF) {
			return "", ErrReadTimeout
		}
		return "", err
	}
}

// ParseReading parses a "x,y,z" line or a JSON object with x, y and z keys.
func ParseReading(line string) (Reading, error) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "{") {
		var r struct {
			X *float64 `json:"x"`
			Y *float64 `json:"y"`
			Z *float64 `json:"z"`
		}
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return Reading{}, fmt.Errorf("failed to unmarshal JSON: %v", err)
		}
		if r.X == nil || r.Y == nil || r.Z == nil {
			return Reading{}, fmt.Errorf("invalid payload %s: expected x, y and z", line)
		}
		return checkFinite(line, Reading{X: *r.X, Y: *r.Y, Z: *r.Z})
	}

	segments := strings.Split(line, ",")
	if len(segments) != 3 {
		return Reading{}, fmt.Errorf("invalid payload format: %s, expected 3 segments", line)
	}
	var vals [3]float64
	for i, seg := range segments {
		v, err := strconv.ParseFloat(strings.TrimSpace(seg), 64)
		if err != nil {
			return Reading{}, fmt.Errorf("failed to parse axis %d: %v", i, err)
		}
		vals[i] = v
	}
	return checkFinite(line, Reading{X: vals[0], Y: vals[1], Z: vals[2]})
}

// checkFinite rejects readings such as "nan,0,-9.8", which firmware prints
// when a conversion fails.
func checkFinite(line string, r Reading) (Reading, error) {
	if !r.Finite() {
		return Reading{}, fmt.Errorf("invalid payload %s: %w", line, ErrNonFinite)
	}
	return r, nil
}

// portNumber extracts the trailing number of a device path (ttyUSB3 -> 3,
// COM4 -> 4). Paths without one map to port 0.
func portNumber(path string) int {
	end := len(path)
	start := end
	for start > 0 && unicode.IsDigit(rune(path[start-1])) {
		start--
	}
	if start == end {
		return 0
	}
	n, err := strconv.Atoi(path[start:end])
	if err != nil {
		return 0
	}
	return n
}
