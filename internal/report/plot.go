package report

import (
	"fmt"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/pipeline"
)

// series groups rows by method, each sorted by bitrate.
func series(rows []pipeline.RDRow) ([]string, map[string][]pipeline.RDRow) {
	by := map[string][]pipeline.RDRow{}
	for _, r := range rows {
		by[r.Method] = append(by[r.Method], r)
	}
	names := make([]string, 0, len(by))
	for m, rs := range by {
		sort.Slice(rs, func(i, j int) bool { return rs[i].Bitrate < rs[j].Bitrate })
		names = append(names, m)
	}
	sort.Strings(names)
	return names, by
}

func metricValue(r pipeline.RDRow, m pipeline.Metric) float64 {
	switch m {
	case pipeline.MetricPSNRU:
		return r.PSNRU
	case pipeline.MetricPSNRV:
		return r.PSNRV
	case pipeline.MetricROIPSNR:
		return r.ROIPSNR
	default:
		return r.PSNRY
	}
}

// SaveRDPlot draws one line per method of metric against bitrate and
// saves it to path. The format follows the file extension.
func SaveRDPlot(path, title string, rows []pipeline.RDRow, metric pipeline.Metric) error {
	if len(rows) == 0 {
		return errors.New("no rows to plot")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Bitrate (kbps)"
	p.Y.Label.Text = fmt.Sprintf("%s (dB)", metric)

	names, by := series(rows)
	for i, name := range names {
		pts := make(plotter.XYs, 0, len(by[name]))
		for _, r := range by[name] {
			pts = append(pts, plotter.XY{X: r.Bitrate, Y: metricValue(r, metric)})
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return errors.Wrapf(err, "series %s", name)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		p.Add(line, points)
		p.Legend.Add(name, line, points)
	}
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	return nil
}
