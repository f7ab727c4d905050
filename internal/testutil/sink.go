package testutil

import (
	"sync"

	"github.com/kimlab-seismo/detectQuake/internal/sampler"
	"github.com/kimlab-seismo/detectQuake/internal/trigger"
)

// MemorySink keeps persisted samples and recording sessions in memory. It is
// safe for concurrent use.
type MemorySink struct {
	mu       sync.Mutex
	samples  map[int][]sampler.Sample
	started  []trigger.Session
	finished []trigger.Session

	// Err, if set, is returned by every call after the value is recorded.
	Err error

	// OnSample, if set, is called with the total number of samples stored so
	// far, outside the lock.
	OnSample func(n int)
}

// NewMemorySink returns an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{samples: make(map[int][]sampler.Sample)}
}

func (m *MemorySink) RecordSample(deviceID int, s sampler.Sample) error {
	m.mu.Lock()
	if m.samples == nil {
		m.samples = make(map[int][]sampler.Sample)
	}
	m.samples[deviceID] = append(m.samples[deviceID], s)
	n := 0
	for _, v := range m.samples {
		n += len(v)
	}
	hook, err := m.OnSample, m.Err
	m.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return err
}

func (m *MemorySink) StartRecording(s trigger.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, s)
	return m.Err
}

func (m *MemorySink) FinishRecording(s trigger.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, s)
	return m.Err
}

// Samples returns a copy of the samples stored for deviceID.
func (m *MemorySink) Samples(deviceID int) []sampler.Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sampler.Sample(nil), m.samples[deviceID]...)
}

// Started returns the sessions passed to StartRecording.
func (m *MemorySink) Started() []trigger.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]trigger.Session(nil), m.started...)
}

// Finished returns the sessions passed to FinishRecording.
func (m *MemorySink) Finished() []trigger.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]trigger.Session(nil), m.finished...)
}
