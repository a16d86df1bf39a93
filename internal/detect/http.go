package detect

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/geometry"
	"github.com/banshee-data/roiqp/internal/httputil"
	"github.com/banshee-data/roiqp/internal/monitoring"
)

// HTTPDetector sends frames to an inference service. The service accepts a
// multipart POST with the PNG frame in the "file" field and answers
//
//	{"detections": [{"x1":..,"y1":..,"x2":..,"y2":..,"confidence":..,"class_id":..}]}
//
// GET <endpoint>/health answers 200 when the model is loaded.
type HTTPDetector struct {
	endpoint string
	client   httputil.HTTPClient
}

// NewHTTPDetector returns a detector posting to endpoint. A nil client uses
// http.DefaultClient.
func NewHTTPDetector(endpoint string, client httputil.HTTPClient) *HTTPDetector {
	if client == nil {
		client = httputil.NewStandardClient(nil)
	}
	return &HTTPDetector{endpoint: strings.TrimRight(endpoint, "/"), client: client}
}

type detectResponse struct {
	Detections []geometry.BoundingBox `json:"detections"`
}

// Detect encodes frame and returns the service's boxes. Every failure is
// marked as detection unavailable.
func (d *HTTPDetector) Detect(ctx context.Context, frame image.Image) (geometry.ROISet, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "frame.png")
	if err != nil {
		return nil, errors.WrapDetection(err, "create form file")
	}
	if err := png.Encode(part, frame); err != nil {
		return nil, errors.WrapDetection(err, "encode frame")
	}
	if err := writer.Close(); err != nil {
		return nil, errors.WrapDetection(err, "close multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, body)
	if err != nil {
		return nil, errors.WrapDetection(err, "create request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, errors.WrapDetection(err, "send request")
	}
	var out detectResponse
	if err := httputil.DecodeJSON(resp, &out); err != nil {
		return nil, errors.WrapDetection(err, "inference")
	}
	monitoring.Debugf("detector %s: %d boxes", d.endpoint, len(out.Detections))
	return geometry.ROISet(out.Detections), nil
}

// CheckHealth reports whether the inference service is reachable and ready.
func (d *HTTPDetector) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return errors.WrapDetection(err, "health check")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.WrapDetection(errors.Newf("status %d", resp.StatusCode), "detector unhealthy")
	}
	return nil
}
