package sensor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeString(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{TypeMacPPC1, "PPC Mac Type 1"},
		{TypeMacPPC2, "PPC Mac Type 2"},
		{TypeMacPPC3, "PPC Mac Type 3"},
		{TypeMacIntel, "Intel Mac"},
		{TypeThinkpad, "Lenovo Thinkpad"},
		{TypeHP, "HP Laptop"},
		{TypeUSB, "JoyWarrior 24F8 USB"},
		{TypeSerial, "Serial Accelerometer"},
		{TypeNotFound, "Not Found"},
		{Type(99), "Not Found"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.typ.String())
	}
}

func TestSingleSampleSelection(t *testing.T) {
	assert.True(t, TypeUSB.SingleSample())
	assert.False(t, TypeSerial.SingleSample())
	assert.False(t, TypeMacIntel.SingleSample())

	m := NewMockSensor()
	assert.False(t, m.Identity().SingleSampleMode)
	m.SetSingleSampleMode(true)
	assert.True(t, m.Identity().SingleSampleMode)
}

func TestMockSensorLifecycle(t *testing.T) {
	m := NewMockSensor(Reading{1, 2, 3})
	m.PortIndex = 4

	id := m.Identity()
	assert.Equal(t, -1, id.Port)
	assert.False(t, id.IsOpen())
	assert.Equal(t, "Mock", id.TypeString())

	_, err := m.Read()
	assert.ErrorIs(t, err, ErrNotOpen)

	require.NoError(t, m.Open())
	require.NoError(t, m.Open())
	assert.Equal(t, 1, m.OpenCalls, "second Open must be a no-op")
	assert.Equal(t, 4, m.Identity().Port)

	r, err := m.Read()
	require.NoError(t, err)
	assert.Equal(t, Reading{1, 2, 3}, r)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Equal(t, 1, m.CloseCalls, "second Close must be a no-op")
	assert.Equal(t, -1, m.Identity().Port)
}

func TestMockSensorReadFuncAndCycling(t *testing.T) {
	m := NewMockSensor(Reading{Z: 1}, Reading{Z: 2})
	require.NoError(t, m.Open())
	for i, want := range []float64{1, 2, 1} {
		r, err := m.Read()
		require.NoError(t, err)
		assert.Equal(t, want, r.Z, "read %d", i)
	}

	boom := errors.New("boom")
	m.ReadFunc = func(i int) (Reading, error) { return Reading{}, boom }
	_, err := m.Read()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 4, m.Reads())
}

func TestAcquireClosesOnEveryPath(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		m := NewMockSensor(Reading{})
		err := Acquire(m, func(s Sensor) error {
			assert.True(t, s.Identity().IsOpen())
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, m.CloseCalls)
	})

	t.Run("callback error", func(t *testing.T) {
		m := NewMockSensor(Reading{})
		stop := errors.New("stop")
		err := Acquire(m, func(Sensor) error { return stop })
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, m.CloseCalls)
	})

	t.Run("open error skips close", func(t *testing.T) {
		m := NewMockSensor()
		m.OpenError = errors.New("no device")
		called := false
		err := Acquire(m, func(Sensor) error { called = true; return nil })
		assert.ErrorIs(t, err, m.OpenError)
		assert.False(t, called)
		assert.Equal(t, 0, m.CloseCalls)
	})

	t.Run("close error surfaces", func(t *testing.T) {
		m := NewMockSensor()
		m.CloseError = errors.New("stuck")
		err := Acquire(m, func(Sensor) error { return nil })
		assert.ErrorIs(t, err, m.CloseError)
	})
}
