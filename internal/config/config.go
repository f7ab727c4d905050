package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical detection defaults file.
const DefaultConfigPath = "config/detection.defaults.json"

// Config holds the sampling and STA/LTA detection parameters for one sensor.
// It is read once at startup. Fields omitted from the JSON keep their
// defaults through the Get* accessors, so partial configs are safe.
type Config struct {
	DeviceID *int `json:"device_id,omitempty"`

	// Sampler params
	CycleSeconds         *float64 `json:"cycle_seconds,omitempty"`
	MicroIntervalSeconds *float64 `json:"micro_interval_seconds,omitempty"`
	SampleCap            *int     `json:"sample_cap,omitempty"`
	TimingErrorSeconds   *float64 `json:"timing_error_seconds,omitempty"`
	ResyncOnDrift        *bool    `json:"resync_on_drift,omitempty"`

	// Calibration offsets (m/s^2). ZOffset carries the gravity bias and must
	// be negative; detection and plots subtract it. XOffset and YOffset are
	// stored calibration only: stored samples keep the raw axis means and
	// nothing in the daemon applies them.
	XOffset *float64 `json:"x_offset,omitempty"`
	YOffset *float64 `json:"y_offset,omitempty"`
	ZOffset *float64 `json:"z_offset,omitempty"`

	// Trigger params
	LongTermSeconds     *float64 `json:"long_term_seconds,omitempty"`
	ShortTermSeconds    *float64 `json:"short_term_seconds,omitempty"`
	ThresholdMultiplier *float64 `json:"threshold_multiplier,omitempty"`
	TriggerLimit        *int     `json:"trigger_limit,omitempty"`
	RecordSeconds       *float64 `json:"record_seconds,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyConfig returns a Config with all fields set to nil.
func EmptyConfig() *Config {
	return &Config{}
}

// DefaultConfig returns a Config with every field populated with its default.
func DefaultConfig() *Config {
	return &Config{
		DeviceID:             ptrInt(0),
		CycleSeconds:         ptrFloat64(0.02),
		MicroIntervalSeconds: ptrFloat64(0.002),
		SampleCap:            ptrInt(10),
		TimingErrorSeconds:   ptrFloat64(1.0),
		ResyncOnDrift:        ptrBool(true),
		XOffset:              ptrFloat64(0),
		YOffset:              ptrFloat64(0),
		ZOffset:              ptrFloat64(-9.8),
		LongTermSeconds:      ptrFloat64(10),
		ShortTermSeconds:     ptrFloat64(3),
		ThresholdMultiplier:  ptrFloat64(3.0),
		TriggerLimit:         ptrInt(4),
		RecordSeconds:        ptrFloat64(300),
	}
}

// LoadConfig loads a Config from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file cannot
// be loaded, intended for test setup.
func MustLoadDefaultConfig() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.DeviceID != nil && *c.DeviceID < 0 {
		return fmt.Errorf("device_id must be non-negative, got %d", *c.DeviceID)
	}
	if c.CycleSeconds != nil && *c.CycleSeconds <= 0 {
		return fmt.Errorf("cycle_seconds must be positive, got %f", *c.CycleSeconds)
	}
	if c.MicroIntervalSeconds != nil && *c.MicroIntervalSeconds <= 0 {
		return fmt.Errorf("micro_interval_seconds must be positive, got %f", *c.MicroIntervalSeconds)
	}
	if c.GetMicroIntervalSeconds() > c.GetCycleSeconds() {
		return fmt.Errorf("micro_interval_seconds (%f) must not exceed cycle_seconds (%f)",
			c.GetMicroIntervalSeconds(), c.GetCycleSeconds())
	}
	if c.SampleCap != nil && *c.SampleCap < 1 {
		return fmt.Errorf("sample_cap must be at least 1, got %d", *c.SampleCap)
	}
	if c.TimingErrorSeconds != nil && *c.TimingErrorSeconds <= 0 {
		return fmt.Errorf("timing_error_seconds must be positive, got %f", *c.TimingErrorSeconds)
	}
	if c.ZOffset != nil && *c.ZOffset > 0 {
		return fmt.Errorf("z_offset must be zero or negative, got %f", *c.ZOffset)
	}
	if c.ThresholdMultiplier != nil && *c.ThresholdMultiplier <= 0 {
		return fmt.Errorf("threshold_multiplier must be positive, got %f", *c.ThresholdMultiplier)
	}
	if c.TriggerLimit != nil && *c.TriggerLimit < 1 {
		return fmt.Errorf("trigger_limit must be at least 1, got %d", *c.TriggerLimit)
	}
	if c.RecordSeconds != nil && *c.RecordSeconds <= 0 {
		return fmt.Errorf("record_seconds must be positive, got %f", *c.RecordSeconds)
	}
	if c.GetShortTermSeconds() <= 0 {
		return fmt.Errorf("short_term_seconds must be positive, got %f", c.GetShortTermSeconds())
	}
	if c.GetLongTermSeconds() <= c.GetShortTermSeconds() {
		return fmt.Errorf("long_term_seconds (%f) must exceed short_term_seconds (%f)",
			c.GetLongTermSeconds(), c.GetShortTermSeconds())
	}
	if c.ShortTermCount() < 1 {
		return fmt.Errorf("short_term_seconds %f is shorter than one cycle", c.GetShortTermSeconds())
	}
	return nil
}

// GetDeviceID returns the device_id value or the default.
func (c *Config) GetDeviceID() int {
	if c.DeviceID == nil {
		return 0
	}
	return *c.DeviceID
}

// GetCycleSeconds returns the cycle_seconds value or the default.
func (c *Config) GetCycleSeconds() float64 {
	if c.CycleSeconds == nil {
		return 0.02 // 50 Hz
	}
	return *c.CycleSeconds
}

// GetMicroIntervalSeconds returns the micro_interval_seconds value or the default.
func (c *Config) GetMicroIntervalSeconds() float64 {
	if c.MicroIntervalSeconds == nil {
		return 0.002
	}
	return *c.MicroIntervalSeconds
}

// GetSampleCap returns the sample_cap value or the default.
func (c *Config) GetSampleCap() int {
	if c.SampleCap == nil {
		return 10
	}
	return *c.SampleCap
}

// GetTimingErrorSeconds returns the timing_error_seconds value or the default.
func (c *Config) GetTimingErrorSeconds() float64 {
	if c.TimingErrorSeconds == nil {
		return 1.0
	}
	return *c.TimingErrorSeconds
}

// GetResyncOnDrift returns the resync_on_drift value or the default.
func (c *Config) GetResyncOnDrift() bool {
	if c.ResyncOnDrift == nil {
		return true
	}
	return *c.ResyncOnDrift
}

// GetXOffset returns the x_offset value or the default.
func (c *Config) GetXOffset() float64 {
	if c.XOffset == nil {
		return 0
	}
	return *c.XOffset
}

// GetYOffset returns the y_offset value or the default.
func (c *Config) GetYOffset() float64 {
	if c.YOffset == nil {
		return 0
	}
	return *c.YOffset
}

// GetZOffset returns the z_offset value or the default gravity bias.
func (c *Config) GetZOffset() float64 {
	if c.ZOffset == nil {
		return -9.8
	}
	return *c.ZOffset
}

// GetLongTermSeconds returns the long_term_seconds value or the default.
func (c *Config) GetLongTermSeconds() float64 {
	if c.LongTermSeconds == nil {
		return 10
	}
	return *c.LongTermSeconds
}

// GetShortTermSeconds returns the short_term_seconds value or the default.
func (c *Config) GetShortTermSeconds() float64 {
	if c.ShortTermSeconds == nil {
		return 3
	}
	return *c.ShortTermSeconds
}

// GetThresholdMultiplier returns the threshold_multiplier value or the default.
func (c *Config) GetThresholdMultiplier() float64 {
	if c.ThresholdMultiplier == nil {
		return 3.0
	}
	return *c.ThresholdMultiplier
}

// GetTriggerLimit returns the trigger_limit value or the default.
func (c *Config) GetTriggerLimit() int {
	if c.TriggerLimit == nil {
		return 4
	}
	return *c.TriggerLimit
}

// GetRecordSeconds returns the record_seconds value or the default.
func (c *Config) GetRecordSeconds() float64 {
	if c.RecordSeconds == nil {
		return 300
	}
	return *c.RecordSeconds
}

// CycleDuration returns the macro-cycle length as a time.Duration.
func (c *Config) CycleDuration() time.Duration {
	return secondsToDuration(c.GetCycleSeconds())
}

// MicroInterval returns the micro-read spacing as a time.Duration.
func (c *Config) MicroInterval() time.Duration {
	return secondsToDuration(c.GetMicroIntervalSeconds())
}

// TimingErrorThreshold returns the drift threshold as a time.Duration.
func (c *Config) TimingErrorThreshold() time.Duration {
	return secondsToDuration(c.GetTimingErrorSeconds())
}

// LongTermCount is the number of cycles in the long-term window, rounded down.
func (c *Config) LongTermCount() int {
	return cyclesIn(c.GetLongTermSeconds(), c.GetCycleSeconds())
}

// ShortTermCount is the number of cycles in the short-term window, rounded down.
func (c *Config) ShortTermCount() int {
	return cyclesIn(c.GetShortTermSeconds(), c.GetCycleSeconds())
}

// cyclesIn divides with a small tolerance so that e.g. 10/0.02 is 500 and
// not 499 when the quotient lands a hair below the integer.
func cyclesIn(seconds, cycle float64) int {
	return int(math.Floor(seconds/cycle + 1e-9))
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
