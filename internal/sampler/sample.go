package sampler

import (
	"fmt"

	"github.com/kimlab-seismo/detectQuake/internal/timeutil"
)

// Sample is one averaged observation produced per macro-cycle. It is a value:
// the sampler never touches a Sample after returning it.
type Sample struct {
	// IdealTime is the planned deadline of the cycle in Unix seconds.
	IdealTime float64 `json:"ideal_time"`
	// ActualTime is the wall-clock time at which the cycle completed.
	ActualTime float64 `json:"actual_time"`

	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`

	// Count is the number of successful micro-reads averaged into X, Y and Z.
	Count int `json:"count"`
	// Offset is the cycle index since the sampler started.
	Offset int64 `json:"offset"`

	Drift    float64 `json:"drift"`
	Resynced bool    `json:"resynced,omitempty"`
}

// Valid reports whether at least one micro-read contributed to the sample.
func (s Sample) Valid() bool {
	return s.Count > 0
}

func (s Sample) String() string {
	return fmt.Sprintf("#%d ideal=%s x=%.4f y=%.4f z=%.4f n=%d drift=%.4f",
		s.Offset, timeutil.FromUnixSeconds(s.IdealTime).Format("15:04:05.000"),
		s.X, s.Y, s.Z, s.Count, s.Drift)
}
