package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/kimlab-seismo/detectQuake/internal/trigger"
)

// ErrRecordingNotFound is returned when no recording has the requested ID.
var ErrRecordingNotFound = errors.New("recording not found")

// StartRecording stores a newly started session.
func (db *DB) StartRecording(s trigger.Session) error {
	if s.ID == "" {
		return fmt.Errorf("recording has no id")
	}
	_, err := db.Exec(
		`INSERT INTO recordings (recording_id, device_id, start_time) VALUES (?, ?, ?)`,
		s.ID, s.DeviceID, s.Start,
	)
	if err != nil {
		return fmt.Errorf("failed to start recording %s: %w", s.ID, err)
	}
	return nil
}

// FinishRecording stores the end time and amplitude summary of a session. A
// session that was never started is inserted whole.
func (db *DB) FinishRecording(s trigger.Session) error {
	if s.ID == "" {
		return fmt.Errorf("recording has no id")
	}
	_, err := db.Exec(
		`INSERT INTO recordings (
			recording_id, device_id, start_time, end_time, sample_count, peak, mean, rms, std_dev
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(recording_id) DO UPDATE SET
			end_time = excluded.end_time,
			sample_count = excluded.sample_count,
			peak = excluded.peak,
			mean = excluded.mean,
			rms = excluded.rms,
			std_dev = excluded.std_dev`,
		s.ID, s.DeviceID, s.Start, s.End, s.Samples, s.Peak, s.Mean, s.RMS, s.StdDev,
	)
	if err != nil {
		return fmt.Errorf("failed to finish recording %s: %w", s.ID, err)
	}
	return nil
}

const recordingColumns = `recording_id, device_id, start_time, end_time, sample_count, peak, mean, rms, std_dev`

// Recordings returns up to limit recordings, newest first. A negative
// deviceID selects every device.
func (db *DB) Recordings(deviceID, limit int) ([]trigger.Session, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + recordingColumns + ` FROM recordings`
	args := []interface{}{}
	if deviceID >= 0 {
		query += ` WHERE device_id = ?`
		args = append(args, deviceID)
	}
	query += ` ORDER BY start_time DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trigger.Session
	for rows.Next() {
		s, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Recording returns the recording with the given id.
func (db *DB) Recording(id string) (trigger.Session, error) {
	row := db.QueryRow(`SELECT `+recordingColumns+` FROM recordings WHERE recording_id = ?`, id)
	s, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return trigger.Session{}, ErrRecordingNotFound
	}
	return s, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecording(row scanner) (trigger.Session, error) {
	var (
		s   trigger.Session
		end sql.NullFloat64
	)
	if err := row.Scan(
		&s.ID,
		&s.DeviceID,
		&s.Start,
		&end,
		&s.Samples,
		&s.Peak,
		&s.Mean,
		&s.RMS,
		&s.StdDev,
	); err != nil {
		return trigger.Session{}, err
	}
	if end.Valid {
		s.End = end.Float64
	}
	return s, nil
}
