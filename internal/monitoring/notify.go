package monitoring

import (
	"fmt"
	"sync"
)

// Kind identifies a notification emitted by a sampling worker.
type Kind string

const (
	KindRecordingStarted Kind = "recording_started"
	KindRecordingEnded   Kind = "recording_ended"
	KindDriftCorrected   Kind = "drift_corrected"
)

// Notification is an observable event from the detection loop. Time is the
// cycle time the event refers to, in Unix seconds.
type Notification struct {
	Kind        Kind    `json:"kind"`
	DeviceID    int     `json:"device_id"`
	Time        float64 `json:"time"`
	Drift       float64 `json:"drift,omitempty"`
	RecordingID string  `json:"recording_id,omitempty"`
}

// String renders the human-readable form written to the log.
func (n Notification) String() string {
	switch n.Kind {
	case KindRecordingStarted:
		return fmt.Sprintf("recording started at %f", n.Time)
	case KindRecordingEnded:
		return fmt.Sprintf("recording ended at %f", n.Time)
	case KindDriftCorrected:
		return fmt.Sprintf("timing drift corrected: drift=%f", n.Drift)
	default:
		return fmt.Sprintf("%s at %f", n.Kind, n.Time)
	}
}

// Notifier receives notifications. Implementations must not block the caller
// for long: Notify runs on the sampling goroutine.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier writes every notification through Logf.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notification) {
	Logf("[device %d] %s", n.DeviceID, n)
}

// MultiNotifier fans a notification out to several notifiers in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(n Notification) {
	for _, nt := range m {
		if nt != nil {
			nt.Notify(n)
		}
	}
}

// Recorder is a Notifier that keeps every notification it receives. It is
// safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// Notifications returns a copy of the recorded notifications.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Count returns how many notifications of kind k were recorded.
func (r *Recorder) Count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, it := range r.items {
		if it.Kind == k {
			n++
		}
	}
	return n
}
