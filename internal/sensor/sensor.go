// Package sensor defines the accelerometer capability consumed by the
// sampler: a single instantaneous 3-axis read plus open/close lifecycle and
// a hardware identity used for labelling and read-mode selection.
package sensor

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/kimlab-seismo/detectQuake/internal/monitoring"
)

var (
	// ErrNotOpen is returned by Read on a sensor that has not been opened.
	ErrNotOpen = errors.New("sensor not open")
	// ErrReadTimeout is returned when the device produced no reading in time.
	ErrReadTimeout = errors.New("sensor read timed out")
	// ErrNonFinite is returned for a reading with a NaN or infinite axis.
	ErrNonFinite = errors.New("non-finite reading")
)

// Reading is one instantaneous acceleration sample in m/s^2.
type Reading struct {
	X, Y, Z float64
}

// Finite reports whether no axis is NaN or infinite.
func (r Reading) Finite() bool {
	for _, v := range [3]float64{r.X, r.Y, r.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Type identifies a supported hardware variant.
type Type int

const (
	TypeNotFound Type = iota
	TypeMacPPC1
	TypeMacPPC2
	TypeMacPPC3
	TypeMacIntel
	TypeThinkpad
	TypeHP
	TypeUSB
	TypeSerial
	TypeMock
	TypeFixture
)

// String returns the human-readable label for the sensor type.
func (t Type) String() string {
	switch t {
	case TypeMacPPC1:
		return "PPC Mac Type 1"
	case TypeMacPPC2:
		return "PPC Mac Type 2"
	case TypeMacPPC3:
		return "PPC Mac Type 3"
	case TypeMacIntel:
		return "Intel Mac"
	case TypeThinkpad:
		return "Lenovo Thinkpad"
	case TypeHP:
		return "HP Laptop"
	case TypeUSB:
		return "JoyWarrior 24F8 USB"
	case TypeSerial:
		return "Serial Accelerometer"
	case TypeMock:
		return "Mock"
	case TypeFixture:
		return "Fixture Replay"
	default:
		return "Not Found"
	}
}

// SingleSample reports whether the variant yields one already-filtered
// reading per cycle rather than raw readings that need averaging.
func (t Type) SingleSample() bool {
	return t == TypeUSB
}

// Identity is the bookkeeping state of a sensor. Port is -1 until opened.
type Identity struct {
	Type             Type   `json:"type"`
	Port             int    `json:"port"`
	SingleSampleMode bool   `json:"single_sample_mode"`
	Label            string `json:"label,omitempty"`
}

// TypeString returns the label of the identity's type.
func (id Identity) TypeString() string {
	return id.Type.String()
}

// IsOpen reports whether the identity has an assigned port.
func (id Identity) IsOpen() bool {
	return id.Port > -1
}

// Sensor is the capability the sampler reads from. Open and Close are
// idempotent.
type Sensor interface {
	Open() error
	Close() error
	Read() (Reading, error)
	Identity() Identity
}

// Base carries the identity shared by every sensor implementation.
type Base struct {
	mu  sync.Mutex
	id  Identity
	log func(format string, v ...interface{})
}

// Init sets the type and label with no port assigned. Implementations call it
// from their constructors.
func (b *Base) Init(t Type, label string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.id = Identity{
		Type:             t,
		Port:             -1,
		SingleSampleMode: t.SingleSample(),
		Label:            label,
	}
	b.log = monitoring.Prefixed("[sensor] ")
}

// Identity returns a copy of the current identity.
func (b *Base) Identity() Identity {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.id
}

// SetSingleSampleMode overrides the mode derived from the type.
func (b *Base) SetSingleSampleMode(single bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.id.SingleSampleMode = single
}

func (b *Base) setPort(port int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.id.Port = port
}

func (b *Base) isOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.id.Port > -1
}

func (b *Base) logf(format string, v ...interface{}) {
	if b.log == nil {
		monitoring.Logf(format, v...)
		return
	}
	b.log(format, v...)
}

// Acquire opens s, runs fn and closes s on every return path. A close error is
// reported only when fn itself succeeded.
func Acquire(s Sensor, fn func(Sensor) error) (err error) {
	if err := s.Open(); err != nil {
		return fmt.Errorf("failed to open %s sensor: %w", s.Identity().Type, err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s sensor: %w", s.Identity().Type, cerr)
		}
	}()
	return fn(s)
}
