package trigger

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the |z - zOffset| amplitudes captured during a recording.
type Summary struct {
	Samples int     `json:"samples"`
	Peak    float64 `json:"peak"`
	Mean    float64 `json:"mean"`
	RMS     float64 `json:"rms"`
	StdDev  float64 `json:"std_dev"`
}

// Summarize computes amplitude statistics over values.
func Summarize(values []float64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{}
	}
	s := Summary{
		Samples: n,
		Peak:    floats.Max(values),
		Mean:    stat.Mean(values, nil),
		RMS:     math.Sqrt(floats.Dot(values, values) / float64(n)),
	}
	if n > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	return s
}

// runningSummary accumulates a Summary one amplitude at a time so an active
// session can be reported without rescanning its amplitudes.
type runningSummary struct {
	n     int
	peak  float64
	mean  float64
	m2    float64
	sumSq float64
}

func (r *runningSummary) add(v float64) {
	r.n++
	if r.n == 1 || v > r.peak {
		r.peak = v
	}
	// Welford update
	d := v - r.mean
	r.mean += d / float64(r.n)
	r.m2 += d * (v - r.mean)
	r.sumSq += v * v
}

func (r *runningSummary) summary() Summary {
	if r.n == 0 {
		return Summary{}
	}
	s := Summary{
		Samples: r.n,
		Peak:    r.peak,
		Mean:    r.mean,
		RMS:     math.Sqrt(r.sumSq / float64(r.n)),
	}
	if r.n > 1 {
		s.StdDev = math.Sqrt(r.m2 / float64(r.n-1))
	}
	return s
}
