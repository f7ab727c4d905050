package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kimlab-seismo/detectQuake/internal/config"
	"github.com/kimlab-seismo/detectQuake/internal/sampler"
)

const testZOffset = -9.8

// triggerConfig uses one-second cycles so counts equal seconds: a 20 sample
// long-term window, a 5 sample short-term window and a 5 second recording.
func triggerConfig() *config.Config {
	cfg := config.DefaultConfig()
	*cfg.CycleSeconds = 1
	*cfg.LongTermSeconds = 20
	*cfg.ShortTermSeconds = 5
	*cfg.ZOffset = testZOffset
	*cfg.ThresholdMultiplier = 3
	*cfg.TriggerLimit = 4
	*cfg.RecordSeconds = 5
	return cfg
}

// fill returns a full window of n samples at the given z values, newest last.
func fill(n int, z func(i int) float64) *Window {
	w := NewWindow(n)
	for i := 0; i < n; i++ {
		w.Push(sampler.Sample{IdealTime: float64(i + 1), Z: z(i), Count: 1, Offset: int64(i)})
	}
	return w
}

func quiet(int) float64 { return testZOffset }

// spiking has a single large sample in the newest slot.
func spiking(n int) *Window {
	return fill(n, func(i int) float64 {
		if i == n-1 {
			return testZOffset + 5
		}
		return testZOffset
	})
}

func TestEvaluateNotFullLeavesCounter(t *testing.T) {
	t.Parallel()

	d := NewDetector(triggerConfig())
	assert.Equal(t, NoEvent, d.Evaluate(spiking(20)))
	assert.Equal(t, 1, d.Exceedances())

	partial := NewWindow(20)
	for i := 0; i < 19; i++ {
		partial.Push(sampler.Sample{Z: testZOffset + 100})
		assert.Equal(t, NoEvent, d.Evaluate(partial))
		assert.Equal(t, 1, d.Exceedances(), "after %d samples", i+1)
	}
	assert.Equal(t, NoEvent, d.Evaluate(nil))
	assert.Equal(t, 1, d.Exceedances())
}

func TestEvaluateConstantAmplitudeNeverTriggers(t *testing.T) {
	t.Parallel()

	cfg := triggerConfig()
	*cfg.ZOffset = -8
	for _, mult := range []float64{1, 1.5, 3} {
		*cfg.ThresholdMultiplier = mult
		d := NewDetector(cfg)
		w := fill(20, func(int) float64 { return -6 })
		for i := 0; i < 10; i++ {
			assert.Equal(t, NoEvent, d.Evaluate(w), "multiplier %v", mult)
		}
		sta, lta := d.Averages()
		assert.Equal(t, 2.0, sta)
		assert.Equal(t, 2.0, lta)
		assert.Equal(t, 1.0, d.Ratio())
		assert.Zero(t, d.Exceedances())
	}
}

func TestEvaluateTriggersOnLimit(t *testing.T) {
	t.Parallel()

	d := NewDetector(triggerConfig())
	w := spiking(20)

	var verdicts []Verdict
	for i := 0; i < 8; i++ {
		verdicts = append(verdicts, d.Evaluate(w))
		if verdicts[i] == Triggered {
			assert.Zero(t, d.Exceedances(), "counter resets after trigger")
		}
	}
	assert.Equal(t, []Verdict{
		NoEvent, NoEvent, NoEvent, Triggered,
		NoEvent, NoEvent, NoEvent, Triggered,
	}, verdicts)
	assert.Equal(t, 20.0, d.StartTime())
	assert.Equal(t, int64(8), d.Evaluations())
}

func TestEvaluateGapResetsCounter(t *testing.T) {
	t.Parallel()

	d := NewDetector(triggerConfig())
	hot, calm := spiking(20), fill(20, quiet)

	for i := 0; i < 3; i++ {
		assert.Equal(t, NoEvent, d.Evaluate(hot))
	}
	assert.Equal(t, 3, d.Exceedances())

	assert.Equal(t, NoEvent, d.Evaluate(calm))
	assert.Zero(t, d.Exceedances())

	for i := 0; i < 3; i++ {
		assert.Equal(t, NoEvent, d.Evaluate(hot))
	}
	assert.Equal(t, Triggered, d.Evaluate(hot))
}

func TestEvaluateUsesOnlyZ(t *testing.T) {
	t.Parallel()

	d := NewDetector(triggerConfig())
	w := NewWindow(20)
	for i := 0; i < 20; i++ {
		w.Push(sampler.Sample{X: float64(i * 100), Y: -float64(i * 100), Z: testZOffset})
	}
	for i := 0; i < 6; i++ {
		assert.Equal(t, NoEvent, d.Evaluate(w))
	}
	assert.Zero(t, d.Exceedances())
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "triggered", Triggered.String())
	assert.Equal(t, "no_event", NoEvent.String())
}
