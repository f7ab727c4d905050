package db

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kimlab-seismo/detectQuake/internal/sampler"
)

func TestAttachAdminRoutes(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.RecordSample(1, sampler.Sample{IdealTime: 1, Count: 1}))

	backupDir := t.TempDir()
	httpMux := http.NewServeMux()
	require.NoError(t, db.AttachAdminRoutes(httpMux, backupDir))

	for _, path := range []string{"/debug/", "/debug/tailsql/", "/debug/backup"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			w := httptest.NewRecorder()

			httpMux.ServeHTTP(w, req)

			// Should be registered (might return 403 due to access checks)
			if w.Code == http.StatusNotFound {
				t.Errorf("Route %s should be registered, got 404", path)
			}
		})
	}

	t.Run("backup from loopback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/debug/backup", nil)
		req.RemoteAddr = "127.0.0.1:4321"
		w := httptest.NewRecorder()

		httpMux.ServeHTTP(w, req)

		if w.Code == http.StatusOK {
			if w.Header().Get("Content-Disposition") == "" {
				t.Error("Expected Content-Disposition header for backup download")
			}
			if w.Body.Len() == 0 {
				t.Error("Expected a non-empty backup body")
			}
		}

		// staged backups never accumulate
		left, err := filepath.Glob(filepath.Join(backupDir, "backup-*.db"))
		require.NoError(t, err)
		if len(left) != 0 {
			t.Errorf("backup file left behind: %v", left)
		}
	})
}

func TestAttachAdminRoutesDefaultBackupDir(t *testing.T) {
	db := newTestDB(t)
	httpMux := http.NewServeMux()
	require.NoError(t, db.AttachAdminRoutes(httpMux, ""))

	req := httptest.NewRequest(http.MethodGet, "/debug/tailsql/", nil)
	w := httptest.NewRecorder()
	httpMux.ServeHTTP(w, req)
	if w.Code == http.StatusNotFound {
		t.Error("Route /debug/tailsql/ should be registered, got 404")
	}
}
