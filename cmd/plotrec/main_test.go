package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimlab-seismo/detectQuake/internal/db"
	"github.com/kimlab-seismo/detectQuake/internal/trigger"
)

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()

	got, err := outputPath("", dir, "abc")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "recording-abc.png"), got)

	got, err = outputPath(filepath.Join(dir, "sub", "x.png"), dir, "abc")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sub", "x.png"), got)

	_, err = outputPath(filepath.Join(dir, "..", "escape.png"), dir, "abc")
	assert.Error(t, err)

	got, err = outputPath(filepath.Join(os.TempDir(), "plot.png"), "", "abc")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(os.TempDir(), "plot.png"), got)

	_, err = outputPath("/etc/plot.png", "", "abc")
	assert.Error(t, err)
}

func TestResolveRecording(t *testing.T) {
	database, err := db.NewDB(filepath.Join(t.TempDir(), "plot.db"))
	require.NoError(t, err)
	defer database.Close()

	_, err = resolveRecording(database, "", -1)
	assert.Error(t, err)

	require.NoError(t, database.StartRecording(trigger.Session{ID: "old", DeviceID: 1, Start: 10}))
	require.NoError(t, database.StartRecording(trigger.Session{ID: "new", DeviceID: 1, Start: 20}))
	require.NoError(t, database.StartRecording(trigger.Session{ID: "other", DeviceID: 2, Start: 30}))

	id, err := resolveRecording(database, "", 1)
	require.NoError(t, err)
	assert.Equal(t, "new", id)

	id, err = resolveRecording(database, "", -1)
	require.NoError(t, err)
	assert.Equal(t, "other", id)

	id, err = resolveRecording(database, "given", -1)
	require.NoError(t, err)
	assert.Equal(t, "given", id)
}
