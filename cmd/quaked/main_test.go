package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimlab-seismo/detectQuake/internal/config"
	"github.com/kimlab-seismo/detectQuake/internal/httputil"
	"github.com/kimlab-seismo/detectQuake/internal/sampler"
	"github.com/kimlab-seismo/detectQuake/internal/sensor"
	"github.com/kimlab-seismo/detectQuake/internal/worker"
)

func TestBuildSensors(t *testing.T) {
	t.Run("dev mode replays fixtures", func(t *testing.T) {
		got, err := buildSensors(sensorOptions{dev: true, fixtures: "fixtures.txt", ports: "/dev/ttyUSB0"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, sensor.TypeFixture, got[0].Identity().Type)
	})

	t.Run("one serial sensor per port", func(t *testing.T) {
		got, err := buildSensors(sensorOptions{ports: "/dev/ttyUSB0, /dev/ttyUSB1,", kind: "serial", baud: 9600})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "/dev/ttyUSB1", got[1].Identity().Label)
		assert.Equal(t, sensor.TypeSerial, got[0].Identity().Type)
		assert.False(t, got[0].Identity().SingleSampleMode)
	})

	t.Run("usb is single sample", func(t *testing.T) {
		got, err := buildSensors(sensorOptions{ports: "/dev/ttyACM0", kind: "USB"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, sensor.TypeUSB, got[0].Identity().Type)
		assert.True(t, got[0].Identity().SingleSampleMode)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := buildSensors(sensorOptions{ports: " , "})
		assert.Error(t, err)
		_, err = buildSensors(sensorOptions{ports: "/dev/ttyUSB0", kind: "spi"})
		assert.Error(t, err)
	})
}

func TestDeviceConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	*cfg.DeviceID = 4

	first := deviceConfig(cfg, 0)
	second := deviceConfig(cfg, 1)
	assert.Equal(t, 4, first.GetDeviceID())
	assert.Equal(t, 5, second.GetDeviceID())
	assert.Equal(t, 4, cfg.GetDeviceID(), "source config must not change")
	assert.Equal(t, cfg.GetCycleSeconds(), second.GetCycleSeconds())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.json")

	cfg, err := loadConfig(missing, false)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().GetCycleSeconds(), cfg.GetCycleSeconds())

	_, err = loadConfig(missing, true)
	assert.Error(t, err)

	path := filepath.Join(dir, "detection.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"device_id": 3, "trigger_limit": 6}`), 0o644))
	cfg, err = loadConfig(path, true)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.GetDeviceID())
	assert.Equal(t, 6, cfg.GetTriggerLimit())
}

func TestStatusURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/api/status", statusURL(":8080"))
	assert.Equal(t, "http://10.0.0.2:9000/api/status", statusURL("10.0.0.2:9000"))
}

func TestPrintStatus(t *testing.T) {
	statuses := []worker.Status{
		{DeviceID: 0, SensorType: "Serial Accelerometer", Running: true, State: "recording",
			Stats: sampler.Stats{Cycles: 10, Reads: 95}, Recordings: 2},
		{DeviceID: 1, SensorType: "JoyWarrior 24F8 USB", Err: "failed to open"},
	}
	body, err := json.Marshal(statuses)
	require.NoError(t, err)

	client := httputil.NewMockHTTPClient().
		AddResponse(http.StatusOK, string(body)).
		AddResponse(http.StatusOK, "[]")

	var out bytes.Buffer
	require.NoError(t, printStatus(client, "http://localhost:8080/api/status", &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "recording")
	assert.Contains(t, lines[0], "reads/cycle=9.5")
	assert.Contains(t, lines[0], "recordings=2")
	assert.Contains(t, lines[1], "stopped")
	assert.Contains(t, lines[1], "error=failed to open")

	out.Reset()
	require.NoError(t, printStatus(client, "http://localhost:8080/api/status", &out))
	assert.Equal(t, "no sensors running\n", out.String())
}
