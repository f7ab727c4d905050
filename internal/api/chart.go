package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kimlab-seismo/detectQuake/internal/httputil"
	"github.com/kimlab-seismo/detectQuake/internal/units"
)

// showChart renders the most recent samples of one device as an HTML line
// chart, one series per axis, against seconds since the first sample.
func (s *Server) showChart(w http.ResponseWriter, r *http.Request) {
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

	xAxis := make([]string, 0, len(records))
	xs := make([]opts.LineData, 0, len(records))
	ys := make([]opts.LineData, 0, len(records))
	zs := make([]opts.LineData, 0, len(records))
	subtitle := fmt.Sprintf("device=%d samples=0", q.deviceID)
	if len(records) > 0 {
		t0 := records[0].IdealTime
		for _, rec := range records {
			xAxis = append(xAxis, strconv.FormatFloat(rec.IdealTime-t0, 'f', 3, 64))
			xs = append(xs, opts.LineData{Value: units.ConvertAcceleration(rec.X, q.units)})
			ys = append(ys, opts.LineData{Value: units.ConvertAcceleration(rec.Y, q.units)})
			zs = append(zs, opts.LineData{Value: units.ConvertAcceleration(rec.Z, q.units)})
		}
		start, err := units.FormatUnixSeconds(t0, q.timezone)
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		subtitle = fmt.Sprintf("device=%d samples=%d from %s", q.deviceID, len(records), start)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "detectQuake waveform", Theme: "dark", Width: "100%", Height: "640px"}),
		charts.WithTitleOpts(opts.Title{Title: "Acceleration", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: q.units, NameLocation: "middle", NameGap: 40}),
	)
	lineOpts := charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)})
	line.SetXAxis(xAxis).
		AddSeries("x", xs, lineOpts).
		AddSeries("y", ys, lineOpts).
		AddSeries("z", zs, lineOpts)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
