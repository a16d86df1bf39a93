package pipeline

import (
	"sort"

	"github.com/banshee-data/roiqp/internal/bdrate"
	"github.com/banshee-data/roiqp/internal/monitoring"
)

// Metric names an RDRow quality column.
type Metric string

const (
	MetricPSNRY   Metric = "psnr_y"
	MetricPSNRU   Metric = "psnr_u"
	MetricPSNRV   Metric = "psnr_v"
	MetricROIPSNR Metric = "roi_psnr"
)

func (r RDRow) metric(m Metric) float64 {
	switch m {
	case MetricPSNRU:
		return r.PSNRU
	case MetricPSNRV:
		return r.PSNRV
	case MetricROIPSNR:
		return r.ROIPSNR
	default:
		return r.PSNRY
	}
}

// Curve extracts (bitrate, metric) samples from rows.
func Curve(rows []RDRow, m Metric) bdrate.Curve {
	c := make(bdrate.Curve, 0, len(rows))
	for _, r := range rows {
		c = append(c, bdrate.Sample{Bitrate: r.Bitrate, Metric: r.metric(m)})
	}
	return c
}

// Comparison is a test method measured against an anchor on one sequence
// and structure.
type Comparison struct {
	Sequence  string `json:"sequence"`
	Structure string `json:"structure"`
	Anchor    string `json:"anchor"`
	Test      string `json:"test"`

	BDRate bdrate.Result `json:"bd_rate"`
	BDPSNR bdrate.Result `json:"bd_psnr"`
	// BDRateROI is the BD-Rate measured on ROI PSNR.
	BDRateROI bdrate.Result `json:"bd_rate_roi"`

	AnchorBitrate float64 `json:"anchor_bitrate"`
	TestBitrate   float64 `json:"test_bitrate"`
	AnchorPSNR    float64 `json:"anchor_psnr"`
	TestPSNR      float64 `json:"test_psnr"`
	// TimeSaving is the relative encoding-time reduction in percent.
	TimeSaving float64 `json:"time_saving"`
}

// Compare evaluates test against anchor. BD-Rate and BD-PSNR use luma
// PSNR; BDRateROI is the rate saving at equal ROI PSNR and is marked
// MISSING_METRIC when either side has no ROI PSNR. Data-quality problems
// are reported in the Result fields, never as errors.
func Compare(anchor, test []RDRow, integration bdrate.Integration) Comparison {
	c := Comparison{}
	if len(anchor) > 0 {
		c.Sequence, c.Structure, c.Anchor = anchor[0].Sequence, anchor[0].Structure, anchor[0].Method
	}
	if len(test) > 0 {
		c.Test = test[0].Method
	}
	rate := bdrate.Options{Mode: bdrate.ModeRate, Integration: integration}
	quality := bdrate.Options{Mode: bdrate.ModeMetric, Integration: integration}

	aY, tY := Curve(anchor, MetricPSNRY), Curve(test, MetricPSNRY)
	c.BDRate = bdrate.Compute(aY, tY, rate)
	c.BDPSNR = bdrate.Compute(aY, tY, quality)
	if hasMetric(anchor, MetricROIPSNR) && hasMetric(test, MetricROIPSNR) {
		c.BDRateROI = bdrate.Compute(Curve(anchor, MetricROIPSNR), Curve(test, MetricROIPSNR), rate)
	} else {
		c.BDRateROI = bdrate.Result{Mode: bdrate.ModeRate, Reason: bdrate.ReasonMissingMetric}
	}
	for _, r := range []bdrate.Result{c.BDRate, c.BDPSNR, c.BDRateROI} {
		if !r.Valid {
			monitoring.Logf("bd %s vs %s on %s/%s: %s", c.Test, c.Anchor, c.Sequence, c.Structure, r.Reason.Text())
		}
	}

	var aTime, tTime float64
	c.AnchorBitrate, c.AnchorPSNR, aTime = means(anchor)
	c.TestBitrate, c.TestPSNR, tTime = means(test)
	if aTime > 0 {
		c.TimeSaving = (aTime - tTime) / aTime * 100
	}
	return c
}

// hasMetric reports whether any row carries a value for m. Encoders that
// do not measure a metric leave it zero.
func hasMetric(rows []RDRow, m Metric) bool {
	for _, r := range rows {
		if r.metric(m) != 0 {
			return true
		}
	}
	return false
}

func means(rows []RDRow) (bitrate, psnr, seconds float64) {
	if len(rows) == 0 {
		return 0, 0, 0
	}
	for _, r := range rows {
		bitrate += r.Bitrate
		psnr += r.PSNRY
		seconds += r.EncodingTime
	}
	n := float64(len(rows))
	return bitrate / n, psnr / n, seconds
}

// CompareAll compares every non-anchor method with the anchor method for
// each (sequence, structure) pair present in rows.
func CompareAll(rows []RDRow, anchor string, integration bdrate.Integration) []Comparison {
	type key struct{ seq, st string }
	groups := map[key]map[string][]RDRow{}
	var keys []key
	for _, r := range rows {
		k := key{r.Sequence, r.Structure}
		if groups[k] == nil {
			groups[k] = map[string][]RDRow{}
			keys = append(keys, k)
		}
		groups[k][r.Method] = append(groups[k][r.Method], r)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].seq != keys[j].seq {
			return keys[i].seq < keys[j].seq
		}
		return keys[i].st < keys[j].st
	})

	var out []Comparison
	for _, k := range keys {
		g := groups[k]
		base, ok := g[anchor]
		if !ok {
			monitoring.Logf("compare: no %s rows for %s/%s", anchor, k.seq, k.st)
			continue
		}
		methods := make([]string, 0, len(g))
		for m := range g {
			if m != anchor {
				methods = append(methods, m)
			}
		}
		sort.Slice(methods, func(i, j int) bool { return methodRank(methods[i]) < methodRank(methods[j]) })
		for _, m := range methods {
			out = append(out, Compare(base, g[m], integration))
		}
	}
	return out
}

func methodRank(name string) int {
	for i, m := range Methods() {
		if m.Name == name {
			return i
		}
	}
	return len(Methods())
}
