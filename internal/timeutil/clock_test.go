package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	past := time.Now().Add(-time.Second)
	d := clock.Since(past)

	if d < time.Second {
		t.Errorf("Since() returned %v, expected >= 1s", d)
	}
}

func TestRealClock_Sleep(t *testing.T) {
	clock := RealClock{}
	start := time.Now()
	clock.Sleep(5 * time.Millisecond)
	if time.Since(start) < 5*time.Millisecond {
		t.Error("Sleep returned early")
	}
}

func TestMockClock_SleepAdvances(t *testing.T) {
	start := time.Unix(1000, 0)
	clock := NewMockClock(start)

	clock.Sleep(2 * time.Millisecond)
	clock.Sleep(3 * time.Millisecond)

	if got := clock.Since(start); got != 5*time.Millisecond {
		t.Errorf("Since(start) = %v, want 5ms", got)
	}
	sleeps := clock.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 2*time.Millisecond || sleeps[1] != 3*time.Millisecond {
		t.Errorf("Sleeps() = %v", sleeps)
	}
}

func TestMockClock_OnSleepAddsDelay(t *testing.T) {
	start := time.Unix(0, 0)
	clock := NewMockClock(start)
	clock.OnSleep = func(d time.Duration, n int) time.Duration {
		if n == 1 {
			return time.Second
		}
		return 0
	}

	clock.Sleep(time.Millisecond)
	clock.Sleep(time.Millisecond)
	clock.Sleep(time.Millisecond)

	want := 3*time.Millisecond + time.Second
	if got := clock.Since(start); got != want {
		t.Errorf("Since(start) = %v, want %v", got, want)
	}
}

func TestMockClock_SetAndAdvance(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	clock.Set(time.Unix(50, 0))
	clock.Advance(10 * time.Second)
	if got := clock.Now(); !got.Equal(time.Unix(60, 0)) {
		t.Errorf("Now() = %v, want 60s", got)
	}
}

func TestUnixSecondsRoundTrip(t *testing.T) {
	tm := time.Unix(1750719826, 31000000)
	s := UnixSeconds(tm)
	if diff := s - 1750719826.031; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("UnixSeconds = %f", s)
	}
	back := FromUnixSeconds(s)
	if d := back.Sub(tm); d > time.Microsecond || d < -time.Microsecond {
		t.Errorf("FromUnixSeconds drifted by %v", d)
	}
}
