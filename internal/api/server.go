// Package api serves the read-only HTTP view of the running detector: worker
// status, stored samples, recordings and a waveform chart.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kimlab-seismo/detectQuake/internal/db"
	"github.com/kimlab-seismo/detectQuake/internal/httputil"
	"github.com/kimlab-seismo/detectQuake/internal/monitoring"
	"github.com/kimlab-seismo/detectQuake/internal/trigger"
	"github.com/kimlab-seismo/detectQuake/internal/units"
	"github.com/kimlab-seismo/detectQuake/internal/version"
	"github.com/kimlab-seismo/detectQuake/internal/worker"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

const (
	defaultSampleLimit    = 500
	maxSampleLimit        = 20000
	defaultRecordingLimit = 100
)

// Store is the read side of the sample database.
type Store interface {
	RecentSamples(deviceID, limit int) ([]db.SampleRecord, error)
	Recordings(deviceID, limit int) ([]trigger.Session, error)
	Recording(id string) (trigger.Session, error)
}

// StatusSource reports the latest snapshot of every sensor worker.
type StatusSource interface {
	Statuses() []worker.Status
}

type Server struct {
	statuses StatusSource
	store    Store
	units    string
	timezone string
}

// NewServer returns a server using units and timezone as the defaults for
// requests that do not override them.
func NewServer(statuses StatusSource, store Store, defaultUnits, timezone string) *Server {
	if !units.IsValid(defaultUnits) {
		defaultUnits = units.MPS2
	}
	return &Server{
		statuses: statuses,
		store:    store,
		units:    defaultUnits,
		timezone: timezone,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/samples", s.listSamples)
	mux.HandleFunc("/api/recordings", s.listRecordings)
	mux.HandleFunc("/api/recordings/", s.showRecording)
	mux.HandleFunc("/api/chart", s.showChart)
	mux.HandleFunc("/api/version", s.showVersion)
	return mux
}

// query holds the parameters shared by the read endpoints.
type query struct {
	deviceID int
	limit    int
	units    string
	timezone string
}

func (s *Server) parseQuery(r *http.Request, defaultDevice, defaultLimit int) (query, error) {
	q := query{deviceID: defaultDevice, limit: defaultLimit, units: s.units, timezone: s.timezone}
	v := r.URL.Query()

	if d := v.Get("device_id"); d != "" {
		id, err := strconv.Atoi(d)
		if err != nil || id < 0 {
			return q, fmt.Errorf("invalid 'device_id' parameter")
		}
		q.deviceID = id
	}
	if l := v.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			return q, fmt.Errorf("invalid 'limit' parameter")
		}
		if n > maxSampleLimit {
			n = maxSampleLimit
		}
		q.limit = n
	}
	if u := v.Get("units"); u != "" {
		if !units.IsValid(u) {
			return q, fmt.Errorf("invalid 'units' parameter. Must be one of: %s", units.GetValidUnitsString())
		}
		q.units = u
	}
	if tz := v.Get("tz"); tz != "" {
		if !units.IsTimezoneValid(tz) {
			return q, fmt.Errorf("invalid 'tz' parameter")
		}
		q.timezone = tz
	}
	return q, nil
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	statuses := []worker.Status{}
	if s.statuses != nil {
		statuses = append(statuses, s.statuses.Statuses()...)
	}
	httputil.WriteJSONOK(w, statuses)
}

// SampleResponse is a stored sample with converted acceleration.
type SampleResponse struct {
	DeviceID  int     `json:"device_id"`
	Offset    int64   `json:"offset"`
	IdealTime float64 `json:"ideal_time"`
	Time      string  `json:"time"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Count     int     `json:"count"`
	Drift     float64 `json:"drift"`
	Units     string  `json:"units"`
}

func (s *Server) listSamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	q, err := s.parseQuery(r, 0, defaultSampleLimit)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	records, err := s.store.RecentSamples(q.deviceID, q.limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve samples: %v", err))
		return
	}

	out := make([]SampleResponse, 0, len(records))
	for _, rec := range records {
		ts, err := units.FormatUnixSeconds(rec.IdealTime, q.timezone)
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		out = append(out, SampleResponse{
			DeviceID:  rec.DeviceID,
			Offset:    rec.Offset,
			IdealTime: rec.IdealTime,
			Time:      ts,
			X:         units.ConvertAcceleration(rec.X, q.units),
			Y:         units.ConvertAcceleration(rec.Y, q.units),
			Z:         units.ConvertAcceleration(rec.Z, q.units),
			Count:     rec.Count,
			Drift:     rec.Drift,
			Units:     q.units,
		})
	}
	httputil.WriteJSONOK(w, out)
}

// RecordingResponse is a recording session with converted amplitudes.
type RecordingResponse struct {
	trigger.Session
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at,omitempty"`
	Units     string `json:"units"`
}

func (s *Server) recordingResponse(rec trigger.Session, q query) (RecordingResponse, error) {
	start, err := units.FormatUnixSeconds(rec.Start, q.timezone)
	if err != nil {
		return RecordingResponse{}, err
	}
	resp := RecordingResponse{Session: rec, StartedAt: start, Units: q.units}
	if rec.End != 0 {
		if resp.EndedAt, err = units.FormatUnixSeconds(rec.End, q.timezone); err != nil {
			return RecordingResponse{}, err
		}
	}
	resp.Peak = units.ConvertAcceleration(rec.Peak, q.units)
	resp.Mean = units.ConvertAcceleration(rec.Mean, q.units)
	resp.RMS = units.ConvertAcceleration(rec.RMS, q.units)
	resp.StdDev = units.ConvertAcceleration(rec.StdDev, q.units)
	return resp, nil
}

func (s *Server) listRecordings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	q, err := s.parseQuery(r, -1, defaultRecordingLimit)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	recs, err := s.store.Recordings(q.deviceID, q.limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve recordings: %v", err))
		return
	}
	out := make([]RecordingResponse, 0, len(recs))
	for _, rec := range recs {
		resp, err := s.recordingResponse(rec, q)
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		out = append(out, resp)
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) showRecording(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/recordings/"), "/")
	if id == "" {
		httputil.BadRequest(w, "missing recording id")
		return
	}
	q, err := s.parseQuery(r, -1, 1)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	rec, err := s.store.Recording(id)
	if errors.Is(err, db.ErrRecordingNotFound) {
		httputil.NotFound(w, fmt.Sprintf("recording %s not found", id))
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve recording: %v", err))
		return
	}
	resp, err := s.recordingResponse(rec, q)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}
