package worker

import (
	"sync/atomic"

	"github.com/kimlab-seismo/detectQuake/internal/sampler"
	"github.com/kimlab-seismo/detectQuake/internal/sensor"
	"github.com/kimlab-seismo/detectQuake/internal/trigger"
)

// Status is a point-in-time snapshot of one worker.
type Status struct {
	DeviceID    int             `json:"device_id"`
	Sensor      sensor.Identity `json:"sensor"`
	SensorType  string          `json:"sensor_type"`
	Running     bool            `json:"running"`
	State       string          `json:"state"`
	Last        sampler.Sample  `json:"last"`
	Stats       sampler.Stats   `json:"stats"`
	Discarded   int64           `json:"discarded"`
	SinkErrors  int64           `json:"sink_errors"`
	WindowLen   int             `json:"window_len"`
	WindowCap   int             `json:"window_cap"`
	Exceedances int             `json:"exceedances"`
	STA         float64         `json:"sta"`
	LTA         float64         `json:"lta"`
	Ratio       float64         `json:"ratio"`
	Session     trigger.Session `json:"session"`
	Recordings  int64           `json:"recordings"`
	Err         string          `json:"error,omitempty"`
}

// StatusSlot holds the latest Status of a worker. The worker is its only
// writer; any number of readers may Load concurrently.
type StatusSlot struct {
	p atomic.Pointer[Status]
}

// Load returns the latest snapshot, or false if none has been stored.
func (s *StatusSlot) Load() (Status, bool) {
	st := s.p.Load()
	if st == nil {
		return Status{}, false
	}
	return *st, true
}

func (s *StatusSlot) store(st Status) {
	s.p.Store(&st)
}
