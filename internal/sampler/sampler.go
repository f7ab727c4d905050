// Package sampler turns a sensor's instantaneous reads into regularly spaced
// averaged samples. Each macro-cycle polls the sensor at a short micro-interval
// until the cycle's ideal deadline passes, averages what it collected and
// advances the deadline by one cycle regardless of how long the work took.
// When the completion time strays from the deadline by more than the
// configured threshold the deadline is resynchronized to the wall clock.
package sampler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/kimlab-seismo/detectQuake/internal/config"
	"github.com/kimlab-seismo/detectQuake/internal/monitoring"
	"github.com/kimlab-seismo/detectQuake/internal/sensor"
	"github.com/kimlab-seismo/detectQuake/internal/timeutil"
)

// ErrShutdownRequested is returned by RunCycle once the shutdown flag is set
// or the context is done. It is the normal way a sampling loop ends.
var ErrShutdownRequested = errors.New("shutdown requested")

// Options carries the collaborators of a Sampler. Zero values are usable.
type Options struct {
	DeviceID int
	// Clock defaults to timeutil.RealClock.
	Clock timeutil.Clock
	// Stop is the process-wide cooperative shutdown flag.
	Stop *atomic.Bool
	// Notifier receives drift notifications.
	Notifier monitoring.Notifier
}

// Stats are running totals over the sampler's lifetime.
type Stats struct {
	Cycles     int64   `json:"cycles"`
	Reads      int64   `json:"reads"`
	ReadErrors int64   `json:"read_errors"`
	Invalid    int64   `json:"invalid"`
	Resyncs    int64   `json:"resyncs"`
	DriftSum   float64 `json:"drift_sum"`
	MaxDrift   float64 `json:"max_drift"`
}

// ReadsPerCycle is the mean number of successful micro-reads per cycle.
func (s Stats) ReadsPerCycle() float64 {
	if s.Cycles == 0 {
		return 0
	}
	return float64(s.Reads) / float64(s.Cycles)
}

// MeanDrift is the mean per-cycle drift in seconds.
func (s Stats) MeanDrift() float64 {
	if s.Cycles == 0 {
		return 0
	}
	return s.DriftSum / float64(s.Cycles)
}

// Sampler runs timing-compensated cycles against one sensor. It is owned by a
// single goroutine; none of its methods are safe for concurrent use.
type Sampler struct {
	sensor   sensor.Sensor
	clock    timeutil.Clock
	stop     *atomic.Bool
	notifier monitoring.Notifier
	deviceID int

	cycle     time.Duration
	micro     time.Duration
	sampleCap int
	threshold time.Duration
	resync    bool

	started bool
	ideal   time.Time
	offset  int64
	stats   Stats
}

// New returns a Sampler reading from s with the timing parameters of cfg.
func New(s sensor.Sensor, cfg *config.Config, opts Options) *Sampler {
	if cfg == nil {
		cfg = config.EmptyConfig()
	}
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Sampler{
		sensor:    s,
		clock:     clock,
		stop:      opts.Stop,
		notifier:  opts.Notifier,
		deviceID:  opts.DeviceID,
		cycle:     cfg.CycleDuration(),
		micro:     cfg.MicroInterval(),
		sampleCap: cfg.GetSampleCap(),
		threshold: cfg.TimingErrorThreshold(),
		resync:    cfg.GetResyncOnDrift(),
	}
}

// NextIdealTime returns the deadline of the next cycle, or 0 before the first
// cycle has run.
func (s *Sampler) NextIdealTime() float64 {
	if !s.started {
		return 0
	}
	return timeutil.UnixSeconds(s.ideal)
}

// Stats returns a copy of the running totals.
func (s *Sampler) Stats() Stats {
	return s.stats
}

func (s *Sampler) shutdownRequested(ctx context.Context) bool {
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	return s.stop != nil && s.stop.Load()
}

// RunCycle collects one macro-cycle and returns its Sample. A sample whose
// micro-reads all failed is returned with Count 0 and zero means; callers
// should discard it. RunCycle returns ErrShutdownRequested without reading
// when shutdown has been requested.
func (s *Sampler) RunCycle(ctx context.Context) (Sample, error) {
	if s.shutdownRequested(ctx) {
		return Sample{}, ErrShutdownRequested
	}
	if !s.started {
		s.ideal = s.clock.Now().Add(s.cycle)
		s.started = true
	}

	limit := s.sampleCap
	if s.sensor.Identity().SingleSampleMode {
		limit = 1
	}

	var sx, sy, sz float64
	count := 0
	for {
		if count < limit {
			r, err := s.sensor.Read()
			if err == nil && !r.Finite() {
				err = sensor.ErrNonFinite
			}
			if err != nil {
				s.stats.ReadErrors++
			} else {
				sx += r.X
				sy += r.Y
				sz += r.Z
				count++
			}
		}
		s.clock.Sleep(s.micro)
		if s.ideal.Sub(s.clock.Now()) <= 0 {
			break
		}
	}

	sample := Sample{Count: count, Offset: s.offset}
	if count > 0 {
		n := float64(count)
		sample.X, sample.Y, sample.Z = sx/n, sy/n, sz/n
	} else {
		s.stats.Invalid++
	}
	actual := s.clock.Now()
	deadline := s.ideal
	sample.ActualTime = timeutil.UnixSeconds(actual)
	sample.IdealTime = timeutil.UnixSeconds(deadline)

	s.ideal = s.ideal.Add(s.cycle)
	s.offset++

	drift := actual.Sub(deadline)
	if drift < 0 {
		drift = -drift
	}
	sample.Drift = drift.Seconds()
	if drift > s.threshold {
		if s.resync {
			s.ideal = actual
			sample.Resynced = true
			s.stats.Resyncs++
		}
		s.notify(monitoring.Notification{
			Kind:  monitoring.KindDriftCorrected,
			Time:  sample.ActualTime,
			Drift: sample.Drift,
		})
	}

	s.stats.Cycles++
	s.stats.Reads += int64(count)
	s.stats.DriftSum += sample.Drift
	if sample.Drift > s.stats.MaxDrift {
		s.stats.MaxDrift = sample.Drift
	}
	return sample, nil
}

func (s *Sampler) notify(n monitoring.Notification) {
	n.DeviceID = s.deviceID
	if s.notifier == nil {
		monitoring.LogNotifier{}.Notify(n)
		return
	}
	s.notifier.Notify(n)
}
