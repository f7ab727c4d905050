// Package worker runs the per-sensor sampling loop: the sampler produces one
// sample per cycle, the sample is persisted and handed to the recording
// controller, and a status snapshot is published for HTTP readers.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/kimlab-seismo/detectQuake/internal/config"
	"github.com/kimlab-seismo/detectQuake/internal/monitoring"
	"github.com/kimlab-seismo/detectQuake/internal/sampler"
	"github.com/kimlab-seismo/detectQuake/internal/sensor"
	"github.com/kimlab-seismo/detectQuake/internal/timeutil"
	"github.com/kimlab-seismo/detectQuake/internal/trigger"
)

// Sink persists samples. Failures are logged and never stop the loop.
type Sink interface {
	RecordSample(deviceID int, s sampler.Sample) error
}

// RecordingSink is optionally implemented by a Sink that also stores
// recording sessions.
type RecordingSink interface {
	StartRecording(s trigger.Session) error
	FinishRecording(s trigger.Session) error
}

// discardLogEvery limits how often discarded empty cycles are logged.
const discardLogEvery = 500

// Worker drives one sensor until shutdown.
type Worker struct {
	Sensor   sensor.Sensor
	Config   *config.Config
	Sink     Sink
	Notifier monitoring.Notifier
	Clock    timeutil.Clock
	// Stop is the process-wide shutdown flag shared with the supervisor.
	Stop *atomic.Bool

	status StatusSlot
	logf   func(format string, v ...interface{})
}

// New returns a worker for s. DeviceID and all timing and trigger parameters
// come from cfg.
func New(s sensor.Sensor, cfg *config.Config, sink Sink, notifier monitoring.Notifier) *Worker {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Worker{
		Sensor:   s,
		Config:   cfg,
		Sink:     sink,
		Notifier: notifier,
	}
}

// DeviceID returns the configured device id.
func (w *Worker) DeviceID() int { return w.Config.GetDeviceID() }

// Status returns the latest snapshot published by the worker.
func (w *Worker) Status() (Status, bool) { return w.status.Load() }

// Run acquires the sensor and samples until ctx is done or the stop flag is
// set. A requested shutdown returns nil after the sensor has been closed.
func (w *Worker) Run(ctx context.Context) error {
	deviceID := w.DeviceID()
	w.logf = monitoring.Prefixed(fmt.Sprintf("[device %d] ", deviceID))

	notifier := w.Notifier
	if notifier == nil {
		notifier = monitoring.LogNotifier{}
	}

	base := Status{DeviceID: deviceID, Sensor: w.Sensor.Identity(), SensorType: w.Sensor.Identity().TypeString()}
	w.status.store(base)

	err := sensor.Acquire(w.Sensor, func(s sensor.Sensor) error {
		w.logf("sampling %s (port %d, single sample: %v)",
			s.Identity().TypeString(), s.Identity().Port, s.Identity().SingleSampleMode)

		smp := sampler.New(s, w.Config, sampler.Options{
			DeviceID: deviceID,
			Clock:    w.Clock,
			Stop:     w.Stop,
			Notifier: notifier,
		})
		ctrl := trigger.NewController(w.Config, notifier)
		return w.loop(ctx, s, smp, ctrl)
	})

	final, _ := w.status.Load()
	final.Running = false
	if err != nil && !errors.Is(err, sampler.ErrShutdownRequested) {
		final.Err = err.Error()
		w.status.store(final)
		return err
	}
	w.status.store(final)
	w.logf("sampling stopped")
	return nil
}

func (w *Worker) loop(ctx context.Context, s sensor.Sensor, smp *sampler.Sampler, ctrl *trigger.Controller) error {
	deviceID := w.DeviceID()
	recSink, _ := w.Sink.(RecordingSink)

	var discarded, sinkErrors, recordings int64
	for {
		sample, err := smp.RunCycle(ctx)
		if err != nil {
			return err
		}

		if !sample.Valid() {
			discarded++
			if discarded%discardLogEvery == 1 {
				w.logf("discarding cycle %d: no successful reads (%d discarded so far)", sample.Offset, discarded)
			}
			w.publish(s, smp, ctrl, sample, discarded, sinkErrors, recordings)
			continue
		}

		if w.Sink != nil {
			if err := w.Sink.RecordSample(deviceID, sample); err != nil {
				sinkErrors++
				w.logf("failed to persist sample: %v", err)
			}
		}

		switch tr, session := ctrl.Observe(sample); tr {
		case trigger.Started:
			recordings++
			if recSink != nil {
				if err := recSink.StartRecording(session); err != nil {
					w.logf("failed to store recording start: %v", err)
				}
			}
		case trigger.Ended:
			if recSink != nil {
				if err := recSink.FinishRecording(session); err != nil {
					w.logf("failed to store recording end: %v", err)
				}
			}
		}

		w.publish(s, smp, ctrl, sample, discarded, sinkErrors, recordings)
	}
}

func (w *Worker) publish(s sensor.Sensor, smp *sampler.Sampler, ctrl *trigger.Controller, last sampler.Sample, discarded, sinkErrors, recordings int64) {
	det := ctrl.Detector()
	sta, lta := det.Averages()
	id := s.Identity()
	w.status.store(Status{
		DeviceID:    w.DeviceID(),
		Sensor:      id,
		SensorType:  id.TypeString(),
		Running:     true,
		State:       ctrl.State().String(),
		Last:        last,
		Stats:       smp.Stats(),
		Discarded:   discarded,
		SinkErrors:  sinkErrors,
		WindowLen:   ctrl.Window().Len(),
		WindowCap:   ctrl.Window().Cap(),
		Exceedances: det.Exceedances(),
		STA:         sta,
		LTA:         lta,
		Ratio:       det.Ratio(),
		Session:     ctrl.Session(),
		Recordings:  recordings,
	})
}
