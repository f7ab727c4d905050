package worker

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimlab-seismo/detectQuake/internal/config"
	"github.com/kimlab-seismo/detectQuake/internal/monitoring"
	"github.com/kimlab-seismo/detectQuake/internal/sensor"
	"github.com/kimlab-seismo/detectQuake/internal/testutil"
	"github.com/kimlab-seismo/detectQuake/internal/timeutil"
)

var t0 = time.Unix(1700000000, 0)

// workerConfig gives 2 reads per 10ms cycle, a 20/5 cycle STA/LTA window and
// 5-cycle recordings.
func workerConfig(deviceID int) *config.Config {
	cfg := config.DefaultConfig()
	*cfg.DeviceID = deviceID
	*cfg.CycleSeconds = 0.01
	*cfg.MicroIntervalSeconds = 0.005
	*cfg.SampleCap = 2
	*cfg.LongTermSeconds = 0.2
	*cfg.ShortTermSeconds = 0.05
	*cfg.RecordSeconds = 0.05
	*cfg.TriggerLimit = 4
	return cfg
}

// spikeBetween returns a read function that reports gravity only, then a
// 5 m/s^2 spike on z for cycles in [from, to).
func spikeBetween(from, to int) func(i int) (sensor.Reading, error) {
	return func(i int) (sensor.Reading, error) {
		cycle := i / 2
		if cycle >= from && cycle < to {
			return sensor.Reading{Z: -4.8}, nil
		}
		return sensor.Reading{Z: -9.8}, nil
	}
}

func newTestWorker(t *testing.T, m *sensor.MockSensor, sink Sink, rec monitoring.Notifier) (*Worker, *atomic.Bool) {
	t.Helper()
	w := New(m, workerConfig(7), sink, rec)
	w.Clock = timeutil.NewMockClock(t0)
	stop := new(atomic.Bool)
	w.Stop = stop
	return w, stop
}

func stopAfter(stop *atomic.Bool, n int) func(int) {
	return func(got int) {
		if got >= n {
			stop.Store(true)
		}
	}
}

func TestWorkerRecordsTriggeredSession(t *testing.T) {
	m := sensor.NewMockSensor()
	m.ReadFunc = spikeBetween(25, 40)
	sink := testutil.NewMemorySink()
	rec := &monitoring.Recorder{}

	w, stop := newTestWorker(t, m, sink, rec)
	sink.OnSample = stopAfter(stop, 45)

	require.NoError(t, w.Run(context.Background()))

	samples := sink.Samples(7)
	require.Len(t, samples, 45)
	for i, s := range samples {
		assert.Equal(t, int64(i), s.Offset)
		assert.Equal(t, 2, s.Count)
	}

	started := sink.Started()
	finished := sink.Finished()
	require.Len(t, started, 1)
	require.Len(t, finished, 1)
	assert.Equal(t, started[0].ID, finished[0].ID)
	assert.Equal(t, 7, started[0].DeviceID)
	assert.Equal(t, samples[28].IdealTime, started[0].Start)
	assert.GreaterOrEqual(t, finished[0].End-finished[0].Start, 0.05-1e-9)
	assert.InDelta(t, 5.0, finished[0].Peak, 1e-9)

	assert.Equal(t, 1, rec.Count(monitoring.KindRecordingStarted))
	assert.Equal(t, 1, rec.Count(monitoring.KindRecordingEnded))
	assert.Equal(t, 0, rec.Count(monitoring.KindDriftCorrected))

	st, ok := w.Status()
	require.True(t, ok)
	assert.False(t, st.Running)
	assert.Empty(t, st.Err)
	assert.Equal(t, "idle", st.State)
	assert.Equal(t, int64(1), st.Recordings)
	assert.Equal(t, int64(45), st.Stats.Cycles)
	assert.Equal(t, int64(90), st.Stats.Reads)
	assert.Equal(t, 20, st.WindowLen)
	assert.Equal(t, 20, st.WindowCap)
	assert.Equal(t, "Mock", st.SensorType)

	assert.Equal(t, 1, m.OpenCalls)
	assert.Equal(t, 1, m.CloseCalls)
}

func TestWorkerTriggersAfterNonFiniteRead(t *testing.T) {
	m := sensor.NewMockSensor()
	spike := spikeBetween(25, 40)
	m.ReadFunc = func(i int) (sensor.Reading, error) {
		// one glitched micro-read in cycle 22, before the event
		if i == 44 {
			return sensor.Reading{Z: math.NaN()}, nil
		}
		return spike(i)
	}
	sink := testutil.NewMemorySink()
	rec := &monitoring.Recorder{}

	w, stop := newTestWorker(t, m, sink, rec)
	sink.OnSample = stopAfter(stop, 45)

	require.NoError(t, w.Run(context.Background()))

	samples := sink.Samples(7)
	require.Len(t, samples, 45)
	assert.Equal(t, 1, samples[22].Count)
	assert.Equal(t, -9.8, samples[22].Z)
	for _, s := range samples {
		assert.False(t, math.IsNaN(s.Z), "cycle %d stored NaN", s.Offset)
	}

	started := sink.Started()
	require.Len(t, started, 1)
	assert.Equal(t, samples[28].IdealTime, started[0].Start)
	assert.Equal(t, 1, rec.Count(monitoring.KindRecordingEnded))

	st, _ := w.Status()
	assert.Equal(t, int64(1), st.Stats.ReadErrors)
}

func TestWorkerDiscardsEmptyCycles(t *testing.T) {
	m := sensor.NewMockSensor()
	m.ReadFunc = func(int) (sensor.Reading, error) { return sensor.Reading{}, sensor.ErrReadTimeout }
	sink := testutil.NewMemorySink()

	w, stop := newTestWorker(t, m, sink, &monitoring.Recorder{})
	// Every cycle sleeps twice, so the 20th sleep completes the 10th cycle.
	w.Clock.(*timeutil.MockClock).OnSleep = func(d time.Duration, n int) time.Duration {
		if n == 19 {
			stop.Store(true)
		}
		return 0
	}

	require.NoError(t, w.Run(context.Background()))

	assert.Empty(t, sink.Samples(7))
	st, ok := w.Status()
	require.True(t, ok)
	assert.Equal(t, int64(10), st.Discarded)
	assert.Equal(t, int64(10), st.Stats.Invalid)
	assert.Equal(t, int64(20), st.Stats.ReadErrors)
	assert.Equal(t, 0, st.WindowLen)
}

func TestWorkerSurvivesSinkErrors(t *testing.T) {
	m := sensor.NewMockSensor(sensor.Reading{Z: -9.8})
	sink := testutil.NewMemorySink()
	sink.Err = errors.New("database is locked")

	w, stop := newTestWorker(t, m, sink, &monitoring.Recorder{})
	sink.OnSample = stopAfter(stop, 5)

	require.NoError(t, w.Run(context.Background()))

	st, ok := w.Status()
	require.True(t, ok)
	assert.Equal(t, int64(5), st.SinkErrors)
	assert.Equal(t, int64(5), st.Stats.Cycles)
	assert.Equal(t, 5, st.WindowLen)
}

func TestWorkerWithoutSink(t *testing.T) {
	m := sensor.NewMockSensor(sensor.Reading{Z: -9.8})
	w, _ := newTestWorker(t, m, nil, &monitoring.Recorder{})

	ctx, cancel := context.WithCancel(context.Background())
	w.Clock.(*timeutil.MockClock).OnSleep = func(d time.Duration, n int) time.Duration {
		if n == 5 {
			cancel()
		}
		return 0
	}
	defer cancel()

	require.NoError(t, w.Run(ctx))
	st, ok := w.Status()
	require.True(t, ok)
	assert.Equal(t, int64(3), st.Stats.Cycles)
}

func TestWorkerOpenFailure(t *testing.T) {
	m := sensor.NewMockSensor()
	m.OpenError = errors.New("no such device")

	w, _ := newTestWorker(t, m, testutil.NewMemorySink(), &monitoring.Recorder{})
	err := w.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, m.OpenError)

	st, ok := w.Status()
	require.True(t, ok)
	assert.False(t, st.Running)
	assert.Contains(t, st.Err, "no such device")
	assert.Equal(t, 0, m.CloseCalls)
}

func TestStatusSlotEmpty(t *testing.T) {
	var slot StatusSlot
	_, ok := slot.Load()
	assert.False(t, ok)

	slot.store(Status{DeviceID: 3, State: "recording"})
	st, ok := slot.Load()
	require.True(t, ok)
	assert.Equal(t, 3, st.DeviceID)
	assert.Equal(t, "recording", st.State)
}
