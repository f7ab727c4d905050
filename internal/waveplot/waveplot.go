// Package waveplot renders the vertical trace around a stored recording as a
// PNG using gonum/plot.
package waveplot

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/kimlab-seismo/detectQuake/internal/db"
	"github.com/kimlab-seismo/detectQuake/internal/fsutil"
	"github.com/kimlab-seismo/detectQuake/internal/security"
	"github.com/kimlab-seismo/detectQuake/internal/trigger"
	"github.com/kimlab-seismo/detectQuake/internal/units"
)

// ErrNoSamples is returned when no stored samples fall inside the plotted span.
var ErrNoSamples = errors.New("no samples in recording span")

// Store is the read side of the sample database needed to plot a recording.
type Store interface {
	Recording(id string) (trigger.Session, error)
	SamplesBetween(deviceID int, start, end float64) ([]db.SampleRecord, error)
}

// Options controls the plotted span and scaling.
type Options struct {
	// ZOffset is subtracted from z so the trace is centred on zero.
	ZOffset float64
	// Units for the y axis; see package units.
	Units string
	// Before and After extend the span around the recording, in seconds.
	Before, After float64
	Width, Height vg.Length
}

func (o Options) withDefaults() Options {
	if !units.IsValid(o.Units) {
		o.Units = units.MPS2
	}
	if o.Before < 0 {
		o.Before = 0
	}
	if o.After < 0 {
		o.After = 0
	}
	if o.Width <= 0 {
		o.Width = 14 * vg.Inch
	}
	if o.Height <= 0 {
		o.Height = 6 * vg.Inch
	}
	return o
}

var (
	traceColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	markerColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Build loads recording id and its samples and returns the plot. Time on the
// x axis is relative to the recording start. An active recording is plotted
// up to the newest stored sample.
func Build(store Store, id string, opts Options) (*plot.Plot, trigger.Session, error) {
	opts = opts.withDefaults()

	rec, err := store.Recording(id)
	if err != nil {
		return nil, trigger.Session{}, fmt.Errorf("failed to load recording %s: %w", id, err)
	}
	end := math.MaxFloat64
	if !rec.Active() {
		end = rec.End + opts.After
	}
	samples, err := store.SamplesBetween(rec.DeviceID, rec.Start-opts.Before, end)
	if err != nil {
		return nil, rec, fmt.Errorf("failed to load samples for recording %s: %w", id, err)
	}
	if len(samples) == 0 {
		return nil, rec, fmt.Errorf("recording %s: %w", id, ErrNoSamples)
	}

	pts := make(plotter.XYs, 0, len(samples))
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		y := units.ConvertAcceleration(s.Z-opts.ZOffset, opts.Units)
		pts = append(pts, plotter.XY{X: s.IdealTime - rec.Start, Y: y})
		lo, hi = math.Min(lo, y), math.Max(hi, y)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Recording %s (device %d)", rec.ID, rec.DeviceID)
	p.X.Label.Text = "Time since trigger (s)"
	p.Y.Label.Text = fmt.Sprintf("z - offset (%s)", opts.Units)
	p.Add(plotter.NewGrid())

	trace, err := plotter.NewLine(pts)
	if err != nil {
		return nil, rec, err
	}
	trace.Color = traceColor
	trace.Width = vg.Points(1)
	p.Add(trace)
	p.Legend.Add("z", trace)

	markers := []float64{0}
	if !rec.Active() {
		markers = append(markers, rec.End-rec.Start)
	}
	for _, x := range markers {
		m, err := plotter.NewLine(plotter.XYs{{X: x, Y: lo}, {X: x, Y: hi}})
		if err != nil {
			return nil, rec, err
		}
		m.Color = markerColor
		m.Width = vg.Points(1)
		m.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(m)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, rec, nil
}

// Save writes p as a PNG to path on fsys, creating the parent directory.
func Save(fsys fsutil.FileSystem, p *plot.Plot, path string, opts Options) (err error) {
	opts = opts.withDefaults()

	wt, err := p.WriterTo(opts.Width, opts.Height, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	if _, err := wt.WriteTo(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// DefaultFilename is the output name used when none is given.
func DefaultFilename(id string) string {
	return "recording-" + security.SanitizeFilename(id) + ".png"
}
