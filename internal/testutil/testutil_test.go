package testutil

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/kimlab-seismo/detectQuake/internal/sampler"
	"github.com/kimlab-seismo/detectQuake/internal/trigger"
)

func TestAssertStatusCode(t *testing.T) {
	t.Parallel()

	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertStatusCode(t, http.StatusNotFound, http.StatusNotFound)
}

func TestServe(t *testing.T) {
	t.Parallel()

	var gotMethod, gotQuery, gotRemote string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotQuery, gotRemote = r.Method, r.URL.RawQuery, r.RemoteAddr
		w.WriteHeader(http.StatusTeapot)
	})

	w := Serve(h, http.MethodPost, "/api/samples?device_id=2")
	AssertStatusCode(t, w.Code, http.StatusTeapot)
	if gotMethod != http.MethodPost || gotQuery != "device_id=2" {
		t.Errorf("request = %s ?%s, want POST ?device_id=2", gotMethod, gotQuery)
	}
	if !strings.HasPrefix(gotRemote, "127.0.0.1:") {
		t.Errorf("RemoteAddr = %q, want loopback", gotRemote)
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"device_id": 3, "state": "recording"}`))
	})
	var got struct {
		DeviceID int    `json:"device_id"`
		State    string `json:"state"`
	}
	DecodeJSON(t, Serve(h, http.MethodGet, "/api/status"), &got)
	if got.DeviceID != 3 || got.State != "recording" {
		t.Errorf("decoded %+v", got)
	}
}

func TestMemorySink(t *testing.T) {
	t.Parallel()

	sink := NewMemorySink()
	var seen []int
	sink.OnSample = func(n int) { seen = append(seen, n) }

	requireNoError(t, sink.RecordSample(1, sampler.Sample{Offset: 0, Count: 3}))
	requireNoError(t, sink.RecordSample(2, sampler.Sample{Offset: 0, Count: 1}))
	requireNoError(t, sink.RecordSample(1, sampler.Sample{Offset: 1, Count: 2}))

	if got := len(sink.Samples(1)); got != 2 {
		t.Errorf("device 1 samples = %d, want 2", got)
	}
	if got := len(sink.Samples(2)); got != 1 {
		t.Errorf("device 2 samples = %d, want 1", got)
	}
	if got := len(sink.Samples(3)); got != 0 {
		t.Errorf("device 3 samples = %d, want 0", got)
	}
	if len(seen) != 3 || seen[2] != 3 {
		t.Errorf("OnSample calls = %v, want [1 2 3]", seen)
	}

	requireNoError(t, sink.StartRecording(trigger.Session{ID: "a", DeviceID: 1, Start: 10}))
	requireNoError(t, sink.FinishRecording(trigger.Session{ID: "a", DeviceID: 1, Start: 10, End: 15}))
	if got := sink.Started(); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("Started = %+v", got)
	}
	if got := sink.Finished(); len(got) != 1 || got[0].End != 15 {
		t.Errorf("Finished = %+v", got)
	}
}

func TestMemorySinkError(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	var sink MemorySink
	sink.Err = boom

	if err := sink.RecordSample(1, sampler.Sample{Count: 1}); !errors.Is(err, boom) {
		t.Errorf("RecordSample error = %v, want %v", err, boom)
	}
	if err := sink.StartRecording(trigger.Session{ID: "x"}); !errors.Is(err, boom) {
		t.Errorf("StartRecording error = %v, want %v", err, boom)
	}
	if got := len(sink.Samples(1)); got != 1 {
		t.Errorf("samples are stored even when failing: got %d, want 1", got)
	}
}

func requireNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
