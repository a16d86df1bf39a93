package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/roiqp/internal/bdrate"
	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/geometry"
	"github.com/banshee-data/roiqp/internal/pipeline"
)

// RowHeader is the column order of WriteRowsCSV.
var RowHeader = []string{
	"sequence", "method", "structure", "qp", "bitrate_kbps",
	"psnr_y", "psnr_u", "psnr_v", "roi_psnr",
	"core_pct", "context_pct", "background_pct",
	"unnormalized_frames", "mean_rate_ratio", "detections", "encoding_time_s",
	"mean_qp_core", "mean_qp_context", "mean_qp_background",
}

func ff(v float64, prec int) string { return strconv.FormatFloat(v, 'f', prec, 64) }

// WriteRowsCSV writes one line per operating point.
func WriteRowsCSV(w io.Writer, rows []pipeline.RDRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RowHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Sequence, r.Method, r.Structure, strconv.Itoa(r.QP), ff(r.Bitrate, 2),
			ff(r.PSNRY, 4), ff(r.PSNRU, 4), ff(r.PSNRV, 4), ff(r.ROIPSNR, 4),
			ff(r.CorePercent, 2), ff(r.ContextPercent, 2), ff(r.BackgroundPercent, 2),
			strconv.Itoa(r.UnnormalizedFrames), ff(r.MeanRateRatio, 4), strconv.Itoa(r.Detections), ff(r.EncodingTime, 3),
			ff(r.QPStats[geometry.Core].MeanQP, 2), ff(r.QPStats[geometry.Context].MeanQP, 2), ff(r.QPStats[geometry.Background].MeanQP, 2),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadRowsCSV parses a table written by WriteRowsCSV. Columns are matched
// by header name so older files with fewer columns still load; sequence,
// method, qp, bitrate_kbps and psnr_y are required.
func ReadRowsCSV(r io.Reader) ([]pipeline.RDRow, error) {
	recs, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read rd csv")
	}
	if len(recs) == 0 {
		return nil, errors.New("rd csv: empty file")
	}
	col := make(map[string]int, len(recs[0]))
	for i, name := range recs[0] {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range []string{"sequence", "method", "qp", "bitrate_kbps", "psnr_y"} {
		if _, ok := col[name]; !ok {
			return nil, errors.Newf("rd csv: missing column %q", name)
		}
	}

	rows := make([]pipeline.RDRow, 0, len(recs)-1)
	for n, rec := range recs[1:] {
		line := n + 2
		str := func(name string) string {
			if i, ok := col[name]; ok && i < len(rec) {
				return rec[i]
			}
			return ""
		}
		var perr error
		num := func(name string) float64 {
			v := str(name)
			if v == "" || perr != nil {
				return 0
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				perr = errors.Wrapf(err, "rd csv line %d column %s", line, name)
			}
			return f
		}
		row := pipeline.RDRow{
			Sequence:           str("sequence"),
			Method:             str("method"),
			Structure:          str("structure"),
			QP:                 int(num("qp")),
			Bitrate:            num("bitrate_kbps"),
			PSNRY:              num("psnr_y"),
			PSNRU:              num("psnr_u"),
			PSNRV:              num("psnr_v"),
			ROIPSNR:            num("roi_psnr"),
			CorePercent:        num("core_pct"),
			ContextPercent:     num("context_pct"),
			BackgroundPercent:  num("background_pct"),
			UnnormalizedFrames: int(num("unnormalized_frames")),
			MeanRateRatio:      num("mean_rate_ratio"),
			Detections:         int(num("detections")),
			EncodingTime:       num("encoding_time_s"),
		}
		row.QPStats[geometry.Core].MeanQP = num("mean_qp_core")
		row.QPStats[geometry.Context].MeanQP = num("mean_qp_context")
		row.QPStats[geometry.Background].MeanQP = num("mean_qp_background")
		if perr != nil {
			return nil, perr
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ComparisonHeader is the column order of WriteComparisonsCSV.
var ComparisonHeader = []string{
	"sequence", "structure", "anchor", "test",
	"bd_rate", "bd_psnr", "bd_roi_rate", "time_saving",
	"anchor_bitrate", "test_bitrate", "anchor_psnr", "test_psnr",
}

// FormatResult renders a BD result for a table cell: the value, or
// "N/A (reason)" when the comparison was not valid.
func FormatResult(r bdrate.Result) string {
	return r.String()
}

// WriteComparisonsCSV writes one line per comparison. Invalid BD values
// are written as "N/A (reason)".
func WriteComparisonsCSV(w io.Writer, cs []pipeline.Comparison) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ComparisonHeader); err != nil {
		return err
	}
	for _, c := range cs {
		rec := []string{
			c.Sequence, c.Structure, c.Anchor, c.Test,
			FormatResult(c.BDRate), FormatResult(c.BDPSNR), FormatResult(c.BDRateROI), ff(c.TimeSaving, 2),
			ff(c.AnchorBitrate, 2), ff(c.TestBitrate, 2), ff(c.AnchorPSNR, 4), ff(c.TestPSNR, 4),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteComparisonsMarkdown writes a GitHub-flavoured table.
func WriteComparisonsMarkdown(w io.Writer, cs []pipeline.Comparison) error {
	var b strings.Builder
	b.WriteString("| Sequence | Structure | Method | BD-Rate | BD-PSNR | BD-Rate (ROI) | Time saving |\n")
	b.WriteString("|---|---|---|---:|---:|---:|---:|\n")
	for _, c := range cs {
		fmt.Fprintf(&b, "| %s | %s | %s vs %s | %s | %s | %s | %.1f%% |\n",
			c.Sequence, c.Structure, c.Test, c.Anchor,
			FormatResult(c.BDRate), FormatResult(c.BDPSNR), FormatResult(c.BDRateROI), c.TimeSaving)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON writes v to path, indented.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal report")
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
