package db

import (
	"fmt"

	"github.com/kimlab-seismo/detectQuake/internal/sampler"
)

// SampleRecord is a stored sample together with the device that produced it.
type SampleRecord struct {
	DeviceID int `json:"device_id"`
	sampler.Sample
}

// RecordSample stores one cycle's sample for deviceID.
func (db *DB) RecordSample(deviceID int, s sampler.Sample) error {
	_, err := db.Exec(
		`INSERT INTO samples (
			device_id, ideal_time, actual_time, x, y, z, sample_count, cycle_offset, drift
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		deviceID, s.IdealTime, s.ActualTime, s.X, s.Y, s.Z, s.Count, s.Offset, s.Drift,
	)
	if err != nil {
		return fmt.Errorf("failed to record sample %d for device %d: %w", s.Offset, deviceID, err)
	}
	return nil
}

const sampleColumns = `device_id, ideal_time, actual_time, x, y, z, sample_count, cycle_offset, drift`

// RecentSamples returns up to limit of the newest samples for deviceID, oldest
// first.
func (db *DB) RecentSamples(deviceID, limit int) ([]SampleRecord, error) {
	if limit <= 0 {
		limit = 500
	}
	return db.querySamples(
		`SELECT `+sampleColumns+` FROM (
			SELECT * FROM samples WHERE device_id = ? ORDER BY ideal_time DESC LIMIT ?
		) ORDER BY ideal_time ASC`,
		deviceID, limit,
	)
}

// SamplesBetween returns the samples of deviceID whose ideal time lies in
// [start, end], oldest first.
func (db *DB) SamplesBetween(deviceID int, start, end float64) ([]SampleRecord, error) {
	if end < start {
		return nil, fmt.Errorf("invalid range: end %f before start %f", end, start)
	}
	return db.querySamples(
		`SELECT `+sampleColumns+` FROM samples
		WHERE device_id = ? AND ideal_time >= ? AND ideal_time <= ?
		ORDER BY ideal_time ASC`,
		deviceID, start, end,
	)
}

// SampleCount returns the number of stored samples for deviceID.
func (db *DB) SampleCount(deviceID int) (int64, error) {
	var n int64
	err := db.QueryRow(`SELECT COUNT(*) FROM samples WHERE device_id = ?`, deviceID).Scan(&n)
	return n, err
}

func (db *DB) querySamples(query string, args ...interface{}) ([]SampleRecord, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SampleRecord
	for rows.Next() {
		var r SampleRecord
		if err := rows.Scan(
			&r.DeviceID,
			&r.IdealTime,
			&r.ActualTime,
			&r.X,
			&r.Y,
			&r.Z,
			&r.Count,
			&r.Offset,
			&r.Drift,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
