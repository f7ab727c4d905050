package sensor

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// MockSensor is a scripted Sensor for tests and dev mode. Reads cycle through
// Readings; ReadFunc, if set, takes precedence.
type MockSensor struct {
	Base

	mu sync.Mutex

	// Readings are returned in order, wrapping around at the end.
	Readings []Reading

	// ReadFunc overrides Readings. It receives the zero-based read index.
	ReadFunc func(i int) (Reading, error)

	// OpenError is returned by Open if set.
	OpenError error

	// CloseError is returned by Close if set.
	CloseError error

	// PortIndex is the port assigned on Open.
	PortIndex int

	ReadCalls  int
	OpenCalls  int
	CloseCalls int
	open       bool
}

// NewMockSensor creates a MockSensor cycling through readings.
func NewMockSensor(readings ...Reading) *MockSensor {
	m := &MockSensor{Readings: readings}
	m.Init(TypeMock, "mock")
	return m
}

// Open marks the sensor open. Repeated calls do not reopen.
func (m *MockSensor) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open {
		return nil
	}
	m.OpenCalls++
	if m.OpenError != nil {
		return m.OpenError
	}
	m.open = true
	m.setPort(m.PortIndex)
	return nil
}

// Close marks the sensor closed. Repeated calls do not close twice.
func (m *MockSensor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return nil
	}
	m.CloseCalls++
	m.open = false
	m.setPort(-1)
	return m.CloseError
}

// Read returns the next scripted reading.
func (m *MockSensor) Read() (Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return Reading{}, ErrNotOpen
	}
	i := m.ReadCalls
	m.ReadCalls++
	if m.ReadFunc != nil {
		return m.ReadFunc(i)
	}
	if len(m.Readings) == 0 {
		return Reading{}, ErrReadTimeout
	}
	return m.Readings[i%len(m.Readings)], nil
}

// Reads returns the number of Read calls so far.
func (m *MockSensor) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ReadCalls
}

// TestableSerialPort is an in-memory accelerometer port. Each write is taken
// as a poll and releases the next reply queued with AddResponse, so the port
// answers like the device does. An empty read buffer reads as a timeout.
type TestableSerialPort struct {
	mu sync.Mutex

	pending bytes.Buffer
	written bytes.Buffer
	replies [][]byte

	// ReadError and WriteError fail the next call of that kind once.
	ReadError  error
	WriteError error
	CloseError error

	Closed      bool
	ReadTimeout time.Duration
}

func NewTestableSerialPort() *TestableSerialPort {
	return &TestableSerialPort{}
}

var errPortClosed = errors.New("serial port closed")

func (t *TestableSerialPort) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.Closed:
		return 0, errPortClosed
	case t.ReadError != nil:
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	case t.pending.Len() == 0:
		return 0, nil
	}
	return t.pending.Read(p)
}

func (t *TestableSerialPort) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.Closed:
		return 0, errPortClosed
	case t.WriteError != nil:
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}
	if len(t.replies) > 0 {
		t.pending.Write(t.replies[0])
		t.replies = t.replies[1:]
	}
	return t.written.Write(p)
}

func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Closed = true
	return t.CloseError
}

// SetReadTimeout implements TimeoutSerialPorter.
func (t *TestableSerialPort) SetReadTimeout(d time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReadTimeout = d
	return nil
}

// AddReadData makes data readable without waiting for a poll.
func (t *TestableSerialPort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending.Write(data)
}

// AddResponse queues a reply released by the next Write.
func (t *TestableSerialPort) AddResponse(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies = append(t.replies, data)
}

// GetWrittenData returns everything polled so far.
func (t *TestableSerialPort) GetWrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.written.Bytes()...)
}

// StaticOpener returns a PortOpener that always hands out port, recording the
// paths it was asked to open.
func StaticOpener(port SerialPorter, err error, paths *[]string) PortOpener {
	return func(path string, _ PortOptions) (SerialPorter, error) {
		if paths != nil {
			*paths = append(*paths, path)
		}
		if err != nil {
			return nil, err
		}
		return port, nil
	}
}
