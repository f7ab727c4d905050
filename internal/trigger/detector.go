// Package trigger implements the STA/LTA event detector and the recording
// session state machine that consumes its verdicts.
package trigger

import (
	"math"

	"github.com/kimlab-seismo/detectQuake/internal/config"
)

// Verdict is the outcome of one detector evaluation.
type Verdict int

const (
	NoEvent Verdict = iota
	Triggered
)

func (v Verdict) String() string {
	if v == Triggered {
		return "triggered"
	}
	return "no_event"
}

// Detector compares the short-term average of |z - zOffset| over the newest
// samples against the long-term average over the whole window. An event fires
// after triggerLimit consecutive exceedances.
type Detector struct {
	zOffset    float64
	multiplier float64
	limit      int
	shortCount int

	exceedances int
	startTime   float64
	evaluations int64
	lastSTA     float64
	lastLTA     float64
}

// NewDetector builds a detector from the trigger parameters of cfg.
func NewDetector(cfg *config.Config) *Detector {
	if cfg == nil {
		cfg = config.EmptyConfig()
	}
	return &Detector{
		zOffset:    cfg.GetZOffset(),
		multiplier: cfg.GetThresholdMultiplier(),
		limit:      cfg.GetTriggerLimit(),
		shortCount: cfg.ShortTermCount(),
	}
}

// Evaluate runs the ratio test over w. A window that is not yet full yields
// NoEvent and leaves the exceedance counter untouched.
func (d *Detector) Evaluate(w *Window) Verdict {
	d.evaluations++
	if w == nil || !w.Full() {
		return NoEvent
	}

	longCount := w.Len()
	shortCount := d.shortCount
	if shortCount > longCount {
		shortCount = longCount
	}
	if shortCount < 1 {
		shortCount = 1
	}

	var longSum, shortSum float64
	for i := 0; i < longCount; i++ {
		longSum += math.Abs(w.Recent(i).Z - d.zOffset)
		if i+1 == shortCount {
			shortSum = longSum
		}
	}
	lta := longSum / float64(longCount)
	sta := shortSum / float64(shortCount)
	d.lastLTA, d.lastSTA = lta, sta

	if math.Abs(lta*d.multiplier) < math.Abs(sta) {
		d.exceedances++
		if d.exceedances >= d.limit {
			d.exceedances = 0
			d.startTime = w.Recent(0).IdealTime
			return Triggered
		}
		return NoEvent
	}
	d.exceedances = 0
	return NoEvent
}

// Exceedances returns the current consecutive exceedance count.
func (d *Detector) Exceedances() int { return d.exceedances }

// StartTime returns the ideal time of the newest sample at the last trigger.
func (d *Detector) StartTime() float64 { return d.startTime }

// Evaluations returns how many times Evaluate has been called.
func (d *Detector) Evaluations() int64 { return d.evaluations }

// Averages returns the STA and LTA of the last full evaluation.
func (d *Detector) Averages() (sta, lta float64) { return d.lastSTA, d.lastLTA }

// Ratio returns STA/LTA of the last full evaluation, or 0 if LTA was zero.
func (d *Detector) Ratio() float64 {
	if d.lastLTA == 0 {
		return 0
	}
	return d.lastSTA / d.lastLTA
}
