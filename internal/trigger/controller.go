package trigger

import (
	"github.com/google/uuid"

	"github.com/kimlab-seismo/detectQuake/internal/config"
	"github.com/kimlab-seismo/detectQuake/internal/monitoring"
	"github.com/kimlab-seismo/detectQuake/internal/sampler"
)

// State is the recording session state.
type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// Transition reports what an Observe call changed.
type Transition int

const (
	NoTransition Transition = iota
	Started
	Ended
)

// Session is a recording session. End is zero while the session is active.
type Session struct {
	ID       string  `json:"id"`
	DeviceID int     `json:"device_id"`
	Start    float64 `json:"start"`
	End      float64 `json:"end,omitempty"`
	Summary
}

// Active reports whether the session has not ended yet.
func (s Session) Active() bool { return s.ID != "" && s.End == 0 }

// Controller owns the window, the detector and the recording session of one
// sensor. It is driven by a single goroutine.
type Controller struct {
	window   *Window
	detector *Detector
	notifier monitoring.Notifier
	deviceID int
	zOffset  float64
	duration float64

	state   State
	session Session
	values  []float64
	live    runningSummary
}

// NewController returns an idle controller sized from cfg. A nil notifier logs
// through monitoring.Logf.
func NewController(cfg *config.Config, notifier monitoring.Notifier) *Controller {
	if cfg == nil {
		cfg = config.EmptyConfig()
	}
	if notifier == nil {
		notifier = monitoring.LogNotifier{}
	}
	return &Controller{
		window:   NewWindow(cfg.LongTermCount()),
		detector: NewDetector(cfg),
		notifier: notifier,
		deviceID: cfg.GetDeviceID(),
		zOffset:  cfg.GetZOffset(),
		duration: cfg.GetRecordSeconds(),
	}
}

// Observe appends s to the window and advances the state machine. While
// recording the detector is not evaluated; the session ends on the first
// sample whose ideal time is at least the recording duration past the start.
// The returned Session is the one that started or ended, if any.
func (c *Controller) Observe(s sampler.Sample) (Transition, Session) {
	c.window.Push(s)

	if c.state == Recording {
		a := c.amplitude(s)
		c.values = append(c.values, a)
		c.live.add(a)
		if s.IdealTime-c.session.Start < c.duration {
			return NoTransition, Session{}
		}
		c.session.End = s.IdealTime
		c.session.Summary = Summarize(c.values)
		ended := c.session
		c.state = Idle
		c.values = nil
		c.notifier.Notify(monitoring.Notification{
			Kind:        monitoring.KindRecordingEnded,
			DeviceID:    c.deviceID,
			Time:        ended.End,
			RecordingID: ended.ID,
		})
		return Ended, ended
	}

	if c.detector.Evaluate(c.window) != Triggered {
		return NoTransition, Session{}
	}

	c.state = Recording
	c.session = Session{
		ID:       uuid.NewString(),
		DeviceID: c.deviceID,
		Start:    c.detector.StartTime(),
	}
	a := c.amplitude(s)
	c.values = append(c.values[:0], a)
	c.live = runningSummary{}
	c.live.add(a)
	c.notifier.Notify(monitoring.Notification{
		Kind:        monitoring.KindRecordingStarted,
		DeviceID:    c.deviceID,
		Time:        c.session.Start,
		RecordingID: c.session.ID,
	})
	return Started, c.session
}

func (c *Controller) amplitude(s sampler.Sample) float64 {
	d := s.Z - c.zOffset
	if d < 0 {
		return -d
	}
	return d
}

// State returns the current session state.
func (c *Controller) State() State { return c.state }

// Session returns the active session, or the zero Session when idle. Its
// summary is maintained incrementally, so the call is constant time.
func (c *Controller) Session() Session {
	if c.state != Recording {
		return Session{}
	}
	cur := c.session
	cur.Summary = c.live.summary()
	return cur
}

// Window returns the sample window. Callers must not modify it.
func (c *Controller) Window() *Window { return c.window }

// Detector returns the underlying detector.
func (c *Controller) Detector() *Detector { return c.detector }
