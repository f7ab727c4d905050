// Command plotrec renders the vertical trace of a stored recording to a PNG.
package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/kimlab-seismo/detectQuake/internal/config"
	"github.com/kimlab-seismo/detectQuake/internal/db"
	"github.com/kimlab-seismo/detectQuake/internal/fsutil"
	"github.com/kimlab-seismo/detectQuake/internal/security"
	"github.com/kimlab-seismo/detectQuake/internal/units"
	"github.com/kimlab-seismo/detectQuake/internal/waveplot"
)

var (
	dbPath     = flag.String("db", "seismic.db", "Path to the SQLite database")
	recording  = flag.String("recording", "", "Recording id to plot (default: newest recording)")
	device     = flag.Int("device", -1, "Restrict the newest-recording lookup to this device")
	out        = flag.String("out", "", "Output PNG path (default: recording-<id>.png in -out-dir)")
	outDir     = flag.String("out-dir", "", "Directory the output must stay within (default: working or temp directory)")
	configPath = flag.String("config", "", "Detection config JSON supplying z_offset (default: built-in defaults)")
	unitsFlag  = flag.String("units", units.MPS2, "Y axis units ("+units.GetValidUnitsString()+")")
	before     = flag.Float64("before", 5, "Seconds to include before the trigger")
	after      = flag.Float64("after", 5, "Seconds to include after the recording ends")
)

func main() {
	flag.Parse()

	if !units.IsValid(*unitsFlag) {
		log.Fatalf("invalid -units %q: must be one of %s", *unitsFlag, units.GetValidUnitsString())
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	database, err := db.OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	id, err := resolveRecording(database, *recording, *device)
	if err != nil {
		log.Fatal(err)
	}

	path, err := outputPath(*out, *outDir, id)
	if err != nil {
		log.Fatal(err)
	}

	opts := waveplot.Options{
		ZOffset: cfg.GetZOffset(),
		Units:   *unitsFlag,
		Before:  *before,
		After:   *after,
	}
	p, rec, err := waveplot.Build(database, id, opts)
	if err != nil {
		log.Fatal(err)
	}
	if err := waveplot.Save(fsutil.OSFileSystem{}, p, path, opts); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s (device %d, %d samples recorded, peak %.4f %s)",
		path, rec.DeviceID, rec.Samples, units.ConvertAcceleration(rec.Peak, *unitsFlag), *unitsFlag)
}

// resolveRecording returns id, or the newest recording of device when id is
// empty.
func resolveRecording(database *db.DB, id string, device int) (string, error) {
	if id != "" {
		return id, nil
	}
	recs, err := database.Recordings(device, 1)
	if err != nil {
		return "", fmt.Errorf("failed to list recordings: %w", err)
	}
	if len(recs) == 0 {
		return "", fmt.Errorf("no recordings found")
	}
	return recs[0].ID, nil
}

// outputPath picks the PNG path and checks that it stays inside dir, or inside
// the working or temp directory when dir is empty.
func outputPath(out, dir, id string) (string, error) {
	if out == "" {
		out = waveplot.DefaultFilename(id)
		if dir != "" {
			out = filepath.Join(dir, out)
		}
	}
	if dir != "" {
		if err := security.ValidatePathWithinDirectory(out, dir); err != nil {
			return "", fmt.Errorf("invalid output path: %w", err)
		}
		return out, nil
	}
	if err := security.ValidateOutputPath(out); err != nil {
		return "", fmt.Errorf("invalid output path: %w", err)
	}
	return out, nil
}
