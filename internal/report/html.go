package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/roiqp/internal/pipeline"
)

// AssetsHost is where the rendered pages load the echarts scripts from.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

func rdChart(title string, rows []pipeline.RDRow, metric pipeline.Metric) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "RD curves", Width: "900px", Height: "540px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: string(metric)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "kbps", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "dB", Scale: opts.Bool(true)}),
	)
	names, by := series(rows)
	for _, name := range names {
		data := make([]opts.LineData, 0, len(by[name]))
		for _, r := range by[name] {
			data = append(data, opts.LineData{Value: []interface{}{r.Bitrate, metricValue(r, metric)}})
		}
		line.AddSeries(name, data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}))
	}
	return line
}

// RenderRDPage writes an HTML page with one chart per (sequence,
// structure) pair found in rows.
func RenderRDPage(w io.Writer, rows []pipeline.RDRow, metric pipeline.Metric) error {
	type key struct{ seq, st string }
	groups := map[key][]pipeline.RDRow{}
	var keys []key
	for _, r := range rows {
		k := key{r.Sequence, r.Structure}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], r)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].seq != keys[j].seq {
			return keys[i].seq < keys[j].seq
		}
		return keys[i].st < keys[j].st
	})

	page := components.NewPage()
	page.SetAssetsHost(AssetsHost)
	for _, k := range keys {
		page.AddCharts(rdChart(fmt.Sprintf("%s (%s)", k.seq, k.st), groups[k], metric))
	}
	return page.Render(w)
}
